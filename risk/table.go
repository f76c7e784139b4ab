package risk

import (
	"errors"
	"fmt"
	"math"
	"sort"
)

// Comparison is how a band compares a feature value with its bound.
type Comparison int

const (
	GreaterThan Comparison = iota
	AtLeast
	LessThan
	Equal
)

// Parse selects how a ladder reads its feature value.
type Parse int

const (
	// ParseNumber uses the whole value; unparsable values match no band.
	ParseNumber Parse = iota
	// ParseLeadingFloat reads the numeric prefix.
	ParseLeadingFloat
	// ParseLeadingInt reads the integer prefix, truncating toward zero.
	ParseLeadingInt
)

// Band awards Points when the value compares true against Bound.
type Band struct {
	Op     Comparison
	Bound  float64
	Points int
}

func (b Band) matches(x float64) bool {
	switch b.Op {
	case GreaterThan:
		return x > b.Bound
	case AtLeast:
		return x >= b.Bound
	case LessThan:
		return x < b.Bound
	case Equal:
		return x == b.Bound
	}
	return false
}

// Ladder scores one field. Bands are checked in order and the first match wins.
// A non-zero PerUnit replaces the bands: the integer value times PerUnit.
type Ladder struct {
	Field   Field
	Parse   Parse
	Bands   []Band
	PerUnit int
}

func (l Ladder) read(v Value) (float64, bool) {
	switch l.Parse {
	case ParseLeadingFloat:
		return v.LeadingFloat()
	case ParseLeadingInt:
		n, ok := v.LeadingInt()
		return float64(n), ok
	default:
		return v.Float()
	}
}

func (l Ladder) points(v Value) int {
	if l.PerUnit != 0 {
		n, ok := v.LeadingInt()
		if !ok {
			return 0
		}
		return clampPoints(int64(n) * int64(l.PerUnit))
	}

	x, ok := l.read(v)
	if !ok {
		return 0
	}
	for _, b := range l.Bands {
		if b.matches(x) {
			return b.Points
		}
	}
	return 0
}

func clampPoints(p int64) int {
	switch {
	case p > math.MaxInt32:
		return math.MaxInt32
	case p < -math.MaxInt32:
		return -math.MaxInt32
	}
	return int(p)
}

// LevelBand assigns Level to probabilities strictly below Below.
type LevelBand struct {
	Below float64
	Level Level
}

// Table is a named constant configuration for the scoring heuristic.
type Table struct {
	Name    string
	Ladders []Ladder

	// Cap is the maximum probability.
	Cap float64
	// Decimals rounds the probability; 0 leaves it as computed.
	Decimals int

	// Levels are checked in order; Top applies when none match.
	Levels []LevelBand
	Top    Level

	Confidence func(probability float64) string

	// ReportScore includes the raw point total in the assessment.
	ReportScore bool
	// Demo marks assessments as produced by the fallback heuristic.
	Demo bool
}

// DemoConfidence labels every server-tier assessment.
const DemoConfidence = "Moderate (Demo Mode)"

// ClientTier is the finer-grained table used where scoring runs without a network call.
var ClientTier = Table{
	Name: "client",
	Ladders: []Ladder{
		{Field: Age, Bands: []Band{{GreaterThan, 65, 25}, {GreaterThan, 55, 18}, {GreaterThan, 45, 12}, {GreaterThan, 35, 5}}},
		{Field: Trestbps, Bands: []Band{{GreaterThan, 150, 20}, {GreaterThan, 140, 15}, {GreaterThan, 130, 10}, {GreaterThan, 120, 5}}},
		{Field: Chol, Bands: []Band{{GreaterThan, 280, 20}, {GreaterThan, 240, 15}, {GreaterThan, 200, 8}}},
		{Field: Sex, Bands: []Band{{Equal, 1, 8}}},
		{Field: CP, Bands: []Band{{Equal, 3, 0}, {Equal, 2, 12}, {Equal, 1, 8}, {Equal, 0, 5}}},
		{Field: Exang, Bands: []Band{{Equal, 1, 15}}},
		{Field: Oldpeak, Parse: ParseLeadingFloat, Bands: []Band{{GreaterThan, 2.5, 20}, {GreaterThan, 1.5, 12}, {GreaterThan, 0.5, 5}}},
		{Field: CA, PerUnit: 8},
		{Field: Thalach, Bands: []Band{{LessThan, 100, 15}, {LessThan, 120, 10}, {LessThan, 150, 5}}},
		{Field: Thal, Bands: []Band{{Equal, 3, 12}, {Equal, 2, 8}}},
		{Field: FBS, Bands: []Band{{Equal, 1, 8}}},
		{Field: Slope, Bands: []Band{{Equal, 2, 10}, {Equal, 1, 5}}},
		{Field: RestECG, Bands: []Band{{Equal, 1, 5}}},
	},
	Cap:         0.99,
	Levels:      []LevelBand{{0.3, Low}, {0.55, Moderate}, {0.75, High}},
	Top:         VeryHigh,
	Confidence:  gradedConfidence,
	ReportScore: true,
}

// ServerTier is the reduced table the backend falls back to when no external
// predictor answers. It intentionally differs from ClientTier.
var ServerTier = Table{
	Name: "server",
	Ladders: []Ladder{
		{Field: Age, Bands: []Band{{GreaterThan, 60, 20}, {GreaterThan, 45, 10}}},
		{Field: Trestbps, Bands: []Band{{GreaterThan, 140, 15}, {GreaterThan, 120, 5}}},
		{Field: Chol, Bands: []Band{{GreaterThan, 240, 15}, {GreaterThan, 200, 5}}},
		{Field: Sex, Bands: []Band{{Equal, 1, 5}}},
		{Field: CP, Bands: []Band{{AtLeast, 2, 10}}},
		{Field: Exang, Bands: []Band{{Equal, 1, 15}}},
		{Field: Oldpeak, Bands: []Band{{GreaterThan, 1.5, 15}}},
		{Field: CA, PerUnit: 5},
		{Field: Thal, Bands: []Band{{Equal, 3, 10}}},
		{Field: FBS, Bands: []Band{{Equal, 1, 5}}},
	},
	Cap:        1.0,
	Decimals:   2,
	Levels:     []LevelBand{{0.3, Low}, {0.6, Moderate}, {0.8, High}},
	Top:        VeryHigh,
	Confidence: func(float64) string { return DemoConfidence },
	Demo:       true,
}

// gradedConfidence is "High" near either end of the scale. The middle band
// reports the same label as everything else.
func gradedConfidence(p float64) string {
	switch {
	case p > 0.85 || p < 0.15:
		return "High"
	case p > 0.70 || p < 0.30:
		return "Moderate"
	default:
		return "Moderate"
	}
}

// ErrUnknownTier is returned by Lookup for names that are not registered.
var ErrUnknownTier = errors.New("unknown scoring tier")

var tables = map[string]Table{
	ClientTier.Name: ClientTier,
	ServerTier.Name: ServerTier,
}

// Lookup returns the table registered under name.
func Lookup(name string) (Table, error) {
	t, ok := tables[name]
	if !ok {
		return Table{}, fmt.Errorf("%w: %q (known: %v)", ErrUnknownTier, name, TierNames())
	}
	return t, nil
}

// TierNames lists the registered table names in sorted order.
func TierNames() []string {
	names := make([]string, 0, len(tables))
	for name := range tables {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}
