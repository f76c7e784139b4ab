package rules

import (
	"errors"
	"fmt"
)

const (
	whenAtRisk  = `assessment.prediction == 1`
	whenHealthy = `assessment.prediction == 0`
)

// DefaultRules returns the stock recommendation panel: follow-up care when
// heart disease is predicted, lifestyle maintenance otherwise.
func DefaultRules() []*Rule {
	return []*Rule{
		{ID: "risk-cardiologist", Name: "See a cardiologist", Expression: whenAtRisk, Priority: 10, Active: true,
			Icon: "🏥", Advice: "Schedule an appointment with a cardiologist immediately."},
		{ID: "risk-medication", Name: "Medication review", Expression: whenAtRisk, Priority: 20, Active: true,
			Icon: "💊", Advice: "Discuss medication options with your healthcare provider."},
		{ID: "risk-diagnostics", Name: "Further diagnostics", Expression: whenAtRisk, Priority: 30, Active: true,
			Icon: "📊", Advice: "Consider additional diagnostic tests like ECG or echocardiogram."},
		{ID: "risk-diet", Name: "Heart-healthy diet", Expression: whenAtRisk, Priority: 40, Active: true,
			Icon: "❤️", Advice: "Adopt a heart-healthy lifestyle: reduce sodium and saturated fats."},
		{ID: "risk-activity", Name: "Supervised activity", Expression: whenAtRisk, Priority: 50, Active: true,
			Icon: "🚶", Advice: "Engage in regular physical activity as advised by your doctor."},
		{ID: "risk-smoking", Name: "Quit smoking", Expression: whenAtRisk, Priority: 60, Active: true,
			Icon: "🚭", Advice: "If you smoke, seek support to quit smoking immediately."},
		{ID: "risk-sleep", Name: "Sleep and stress", Expression: whenAtRisk, Priority: 70, Active: true,
			Icon: "😴", Advice: "Ensure adequate sleep (7-9 hours) and manage stress levels."},
		{ID: "risk-followup", Name: "Regular follow-ups", Expression: whenAtRisk, Priority: 80, Active: true,
			Icon: "📅", Advice: "Keep regular follow-ups with your healthcare provider."},

		{ID: "healthy-habits", Name: "Keep healthy habits", Expression: whenHealthy, Priority: 10, Active: true,
			Icon: "✅", Advice: "Continue maintaining your healthy lifestyle habits."},
		{ID: "healthy-diet", Name: "Balanced diet", Expression: whenHealthy, Priority: 20, Active: true,
			Icon: "🥗", Advice: "Maintain a balanced diet rich in fruits and vegetables."},
		{ID: "healthy-activity", Name: "Regular activity", Expression: whenHealthy, Priority: 30, Active: true,
			Icon: "🏃", Advice: "Keep up regular physical activity (150 minutes/week)."},
		{ID: "healthy-checkups", Name: "Annual check-ups", Expression: whenHealthy, Priority: 40, Active: true,
			Icon: "🩺", Advice: "Schedule annual health check-ups."},
		{ID: "healthy-sleep", Name: "Sleep and stress", Expression: whenHealthy, Priority: 50, Active: true,
			Icon: "💤", Advice: "Ensure quality sleep and stress management."},
		{ID: "healthy-mindfulness", Name: "Mindfulness", Expression: whenHealthy, Priority: 60, Active: true,
			Icon: "🧘", Advice: "Practice mindfulness and relaxation techniques."},
		{ID: "healthy-informed", Name: "Stay informed", Expression: whenHealthy, Priority: 70, Active: true,
			Icon: "📚", Advice: "Stay informed about heart health best practices."},
	}
}

// Seed adds every rule not already in store and reports how many were added.
func Seed(store RuleStore, rules []*Rule) (int, error) {
	added := 0
	for _, r := range rules {
		err := store.Add(r)
		if errors.Is(err, ErrRuleExists) {
			continue
		}
		if err != nil {
			return added, fmt.Errorf("failed to seed rule %s: %w", r.ID, err)
		}
		added++
	}
	return added, nil
}
