package rules

import "time"

// Rule attaches a piece of advice to a CEL condition over the patient
// features and their assessment.
type Rule struct {
	ID         string    `json:"id" yaml:"id"`
	Name       string    `json:"name" yaml:"name"`
	Expression string    `json:"expression" yaml:"expression"`
	Advice     string    `json:"advice" yaml:"advice"`
	Icon       string    `json:"icon,omitempty" yaml:"icon,omitempty"`
	Priority   int       `json:"priority" yaml:"priority"`
	Active     bool      `json:"active" yaml:"active"`
	CreatedAt  time.Time `json:"created_at" yaml:"created_at,omitempty"`
	UpdatedAt  time.Time `json:"updated_at" yaml:"updated_at,omitempty"`
}

// EvaluationResult contains the outcome of evaluating a rule
type EvaluationResult struct {
	RuleID   string
	RuleName string
	Matched  bool
	Error    error
	Trace    any
}

// Recommendation is one line of the recommendation panel.
type Recommendation struct {
	RuleID string `json:"rule_id" yaml:"rule_id"`
	Icon   string `json:"icon,omitempty" yaml:"icon,omitempty"`
	Text   string `json:"text" yaml:"text"`
}
