package risk

import "math"

// Scorer turns a feature record into an assessment.
type Scorer interface {
	Score(f PatientFeatures) Assessment
}

var _ Scorer = Table{}

// Points sums the contribution of every ladder. Unparsable values contribute nothing.
func (t Table) Points(f PatientFeatures) int {
	total := 0
	for _, l := range t.Ladders {
		total += l.points(f.Get(l.Field))
	}
	return total
}

// Probability normalizes a point total to [0, Cap].
func (t Table) Probability(points int) float64 {
	p := math.Min(float64(points)/100, t.Cap)
	p = math.Max(p, 0)
	if t.Decimals > 0 {
		scale := math.Pow(10, float64(t.Decimals))
		p = math.Round(p*scale) / scale
	}
	return p
}

// Level classifies a probability.
func (t Table) Level(p float64) Level {
	for _, b := range t.Levels {
		if p < b.Below {
			return b.Level
		}
	}
	return t.Top
}

// Score is pure: the same features always yield the same assessment.
func (t Table) Score(f PatientFeatures) Assessment {
	points := t.Points(f)
	p := t.Probability(points)

	a := Assessment{
		Probability: p,
		RiskLevel:   t.Level(p),
		Demo:        t.Demo,
	}
	if p > 0.5 {
		a.Prediction = 1
	}
	if t.Confidence != nil {
		a.Confidence = t.Confidence(p)
	}
	if t.ReportScore {
		a.RiskScore = &points
	}
	return a
}

// Score scores f with table t.
func Score(t Table, f PatientFeatures) Assessment {
	return t.Score(f)
}
