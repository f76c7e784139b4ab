package risk

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func numeric(values map[Field]float64) PatientFeatures {
	var f PatientFeatures
	for field, v := range values {
		f.Set(field, Num(v))
	}
	return f
}

func highRiskFeatures() PatientFeatures {
	return numeric(map[Field]float64{
		Age: 70, Trestbps: 160, Chol: 300, Sex: 1, CP: 2, Exang: 1, Oldpeak: 3.0,
		CA: 2, Thalach: 90, Thal: 3, FBS: 1, Slope: 2, RestECG: 1,
	})
}

func lowRiskFeatures() PatientFeatures {
	return numeric(map[Field]float64{
		Age: 30, Trestbps: 110, Chol: 180, Sex: 0, CP: 3, Exang: 0, Oldpeak: 0.1,
		CA: 0, Thalach: 170, Thal: 0, FBS: 0, Slope: 0, RestECG: 0,
	})
}

func TestClientTierHighRisk(t *testing.T) {
	f := highRiskFeatures()

	assert.Equal(t, 206, ClientTier.Points(f))

	a := ClientTier.Score(f)
	assert.Equal(t, 0.99, a.Probability)
	assert.Equal(t, VeryHigh, a.RiskLevel)
	assert.Equal(t, 1, a.Prediction)
	assert.Equal(t, "High", a.Confidence)
	require.NotNil(t, a.RiskScore)
	assert.Equal(t, 206, *a.RiskScore)
	assert.False(t, a.Demo)
}

func TestClientTierMinimalRisk(t *testing.T) {
	a := ClientTier.Score(lowRiskFeatures())

	require.NotNil(t, a.RiskScore)
	assert.Equal(t, 0, *a.RiskScore)
	assert.Equal(t, 0.0, a.Probability)
	assert.Equal(t, Low, a.RiskLevel)
	assert.Equal(t, 0, a.Prediction)
	assert.Equal(t, "High", a.Confidence)
}

func TestServerTierHighRisk(t *testing.T) {
	f := highRiskFeatures()

	assert.Equal(t, 120, ServerTier.Points(f))

	a := ServerTier.Score(f)
	assert.Equal(t, 1.0, a.Probability)
	assert.Equal(t, VeryHigh, a.RiskLevel)
	assert.Equal(t, 1, a.Prediction)
	assert.Equal(t, DemoConfidence, a.Confidence)
	assert.True(t, a.Demo)
	assert.Nil(t, a.RiskScore)
}

func TestServerTierBoundary(t *testing.T) {
	f := numeric(map[Field]float64{
		Age: 50, Trestbps: 130, Chol: 210, Sex: 1, CP: 1, Exang: 0, Oldpeak: 1.0,
		CA: 1, Thalach: 90, Thal: 2, FBS: 0, Slope: 2, RestECG: 1,
	})

	// thalach, slope, restecg and thal=2 carry no weight in the server table
	assert.Equal(t, 30, ServerTier.Points(f))

	a := ServerTier.Score(f)
	assert.Equal(t, 0.3, a.Probability)
	assert.Equal(t, Moderate, a.RiskLevel)
	assert.Equal(t, 0, a.Prediction)
}

func TestLadderFirstMatchWins(t *testing.T) {
	tests := []struct {
		name  string
		table Table
		field Field
		value float64
		want  int
	}{
		{"client age top band", ClientTier, Age, 66, 25},
		{"client age on bound", ClientTier, Age, 65, 18},
		{"client age lowest band", ClientTier, Age, 36, 5},
		{"client age below ladder", ClientTier, Age, 35, 0},
		{"client trestbps", ClientTier, Trestbps, 141, 15},
		{"client chol", ClientTier, Chol, 241, 15},
		{"client cp asymptomatic", ClientTier, CP, 3, 0},
		{"client cp atypical", ClientTier, CP, 1, 8},
		{"client cp typical", ClientTier, CP, 0, 5},
		{"client thalach low", ClientTier, Thalach, 99, 15},
		{"client thalach mid", ClientTier, Thalach, 119, 10},
		{"client thalach high", ClientTier, Thalach, 150, 0},
		{"client thal fixed", ClientTier, Thal, 2, 8},
		{"client slope flat", ClientTier, Slope, 1, 5},
		{"client ca", ClientTier, CA, 3, 24},
		{"server age", ServerTier, Age, 61, 20},
		{"server age on bound", ServerTier, Age, 60, 10},
		{"server cp at least", ServerTier, CP, 3, 10},
		{"server cp below", ServerTier, CP, 1, 0},
		{"server ca", ServerTier, CA, 3, 15},
		{"server thal fixed", ServerTier, Thal, 2, 0},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			f := numeric(map[Field]float64{tc.field: tc.value})
			assert.Equal(t, tc.want, tc.table.Points(f))
		})
	}
}

func TestUnparsableValuesFallToLowestBand(t *testing.T) {
	tests := []struct {
		name  string
		field Field
		value string
		want  int
	}{
		{"age text", Age, "old", 0},
		{"blank thalach", Thalach, "", 0},
		{"oldpeak text", Oldpeak, "abc", 0},
		{"oldpeak with unit", Oldpeak, "2.6mm", 20},
		{"ca fractional", CA, "2.9", 16},
		{"ca with suffix", CA, "1 vessel", 8},
		{"ca text", CA, "none", 0},
		{"sex numeric string", Sex, "1", 8},
		{"sex padded", Sex, " 1 ", 8},
		{"cp numeric string", CP, "2", 12},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			var f PatientFeatures
			f.Set(tc.field, Text(tc.value))
			assert.Equal(t, tc.want, ClientTier.Points(f))
		})
	}
}

func TestMissingFeaturesScoreZero(t *testing.T) {
	for _, table := range []Table{ClientTier, ServerTier} {
		t.Run(table.Name, func(t *testing.T) {
			a := table.Score(PatientFeatures{})
			assert.Equal(t, 0.0, a.Probability)
			assert.Equal(t, Low, a.RiskLevel)
			assert.Equal(t, 0, a.Prediction)
		})
	}
}

func TestProbabilityBoundsAndPrediction(t *testing.T) {
	for _, table := range []Table{ClientTier, ServerTier} {
		t.Run(table.Name, func(t *testing.T) {
			for age := 20.0; age <= 90; age += 7 {
				for ca := 0.0; ca <= 3; ca++ {
					for _, exang := range []float64{0, 1} {
						f := highRiskFeatures()
						f.Set(Age, Num(age))
						f.Set(CA, Num(ca))
						f.Set(Exang, Num(exang))
						f.Set(Trestbps, Num(age+60))

						a := table.Score(f)
						assert.GreaterOrEqual(t, a.Probability, 0.0)
						assert.LessOrEqual(t, a.Probability, table.Cap)
						assert.Equal(t, a.Probability > 0.5, a.Prediction == 1)
					}
				}
			}
		})
	}
}

func TestNegativeVesselCountDoesNotGoBelowZero(t *testing.T) {
	f := numeric(map[Field]float64{CA: -5})
	a := ClientTier.Score(f)
	assert.Equal(t, 0.0, a.Probability)
	assert.Equal(t, Low, a.RiskLevel)
}

func TestMonotonicity(t *testing.T) {
	fields := map[Field][]float64{
		Age:      {0, 20, 35, 36, 45, 46, 55, 56, 60, 61, 65, 66, 90},
		Trestbps: {80, 120, 121, 130, 131, 140, 141, 150, 151, 200},
		Chol:     {100, 200, 201, 240, 241, 280, 281, 400},
		CA:       {0, 1, 2, 3, 1e9, 1e17, 2e18, 1e19, 1e300},
		Oldpeak:  {0, 0.5, 0.6, 1.5, 1.6, 2.5, 2.6, 6.2},
	}

	for _, table := range []Table{ClientTier, ServerTier} {
		for field, values := range fields {
			t.Run(table.Name+"/"+string(field), func(t *testing.T) {
				base := lowRiskFeatures()
				prev := -1
				for _, v := range values {
					f := base
					f.Set(field, Num(v))
					got := table.Points(f)
					assert.GreaterOrEqual(t, got, prev, "%s=%v", field, v)
					prev = got
				}
			})
		}
	}
}

func TestHugeCASaturates(t *testing.T) {
	for _, table := range []Table{ClientTier, ServerTier} {
		f := lowRiskFeatures()
		f.Set(Age, Num(70))
		f.Set(CA, Text("99999999999999999999999999"))

		a := table.Score(f)
		assert.Equal(t, table.Cap, a.Probability, table.Name)
		assert.Equal(t, 1, a.Prediction, table.Name)
	}
}

func TestScoreIsIdempotent(t *testing.T) {
	f := highRiskFeatures()
	f.Set(Oldpeak, Text("1.7"))

	for _, table := range []Table{ClientTier, ServerTier} {
		first := Score(table, f)
		second := Score(table, f)
		assert.Equal(t, first, second)
	}
}

func TestClientConfidenceBands(t *testing.T) {
	tests := []struct {
		p    float64
		want string
	}{
		{0.0, "High"},
		{0.14, "High"},
		{0.15, "Moderate"},
		{0.5, "Moderate"},
		{0.8, "Moderate"},
		{0.85, "Moderate"},
		{0.86, "High"},
	}

	for _, tc := range tests {
		assert.Equal(t, tc.want, ClientTier.Confidence(tc.p), "p=%v", tc.p)
	}
}

func TestLevelBands(t *testing.T) {
	client := []struct {
		p    float64
		want Level
	}{
		{0.29, Low}, {0.3, Moderate}, {0.54, Moderate}, {0.55, High}, {0.74, High}, {0.75, VeryHigh},
	}
	for _, tc := range client {
		assert.Equal(t, tc.want, ClientTier.Level(tc.p), "client p=%v", tc.p)
	}

	server := []struct {
		p    float64
		want Level
	}{
		{0.29, Low}, {0.3, Moderate}, {0.59, Moderate}, {0.6, High}, {0.79, High}, {0.8, VeryHigh},
	}
	for _, tc := range server {
		assert.Equal(t, tc.want, ServerTier.Level(tc.p), "server p=%v", tc.p)
	}
}

func TestLookup(t *testing.T) {
	tbl, err := Lookup("client")
	require.NoError(t, err)
	assert.Equal(t, "client", tbl.Name)

	tbl, err = Lookup("server")
	require.NoError(t, err)
	assert.True(t, tbl.Demo)

	_, err = Lookup("hospital")
	assert.ErrorIs(t, err, ErrUnknownTier)

	assert.Equal(t, []string{"client", "server"}, TierNames())
}
