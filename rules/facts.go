package rules

import "github.com/liamcoop/cardiorisk/risk"

// Facts builds the activation for rule evaluation. Only valid numeric
// features appear under patient, so `has(patient.chol)` tells a rule
// whether it can rely on the value.
func Facts(f risk.PatientFeatures, a risk.Assessment) map[string]any {
	patient := make(map[string]any, len(risk.Fields))
	for _, field := range risk.Fields {
		if x, ok := f.Get(field).Float(); ok {
			patient[string(field)] = x
		}
	}

	assessment := map[string]any{
		"prediction":  int64(a.Prediction),
		"probability": a.Probability,
		"risk_level":  string(a.RiskLevel),
		"confidence":  a.Confidence,
		"demo":        a.Demo,
	}
	if a.RiskScore != nil {
		assessment["risk_score"] = int64(*a.RiskScore)
	}

	return map[string]any{
		"patient":    patient,
		"assessment": assessment,
	}
}
