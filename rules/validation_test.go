package rules

import (
	"errors"
	"strings"
	"testing"
)

func TestValidateRule(t *testing.T) {
	valid := func() *Rule {
		return &Rule{ID: "risk-bp_1", Name: "Blood pressure", Expression: `patient.trestbps > 140`, Advice: "Check your blood pressure.", Priority: 5}
	}

	tests := []struct {
		name    string
		mutate  func(r *Rule)
		wantErr string
	}{
		{name: "valid", mutate: func(r *Rule) {}},
		{name: "empty id", mutate: func(r *Rule) { r.ID = "" }, wantErr: "cannot be empty"},
		{name: "id with spaces", mutate: func(r *Rule) { r.ID = "bad id" }, wantErr: "must match pattern"},
		{name: "id starting with dash", mutate: func(r *Rule) { r.ID = "-x" }, wantErr: "must match pattern"},
		{name: "id too long", mutate: func(r *Rule) { r.ID = strings.Repeat("a", 101) }, wantErr: "exceeds maximum"},
		{name: "blank name", mutate: func(r *Rule) { r.Name = "  " }, wantErr: "name is required"},
		{name: "name too long", mutate: func(r *Rule) { r.Name = strings.Repeat("n", 201) }, wantErr: "name length"},
		{name: "empty expression", mutate: func(r *Rule) { r.Expression = "" }, wantErr: "expression is required"},
		{name: "expression too long", mutate: func(r *Rule) { r.Expression = strings.Repeat("t", 4097) }, wantErr: "expression length"},
		{name: "empty advice", mutate: func(r *Rule) { r.Advice = "" }, wantErr: "advice is required"},
		{name: "negative priority", mutate: func(r *Rule) { r.Priority = -1 }, wantErr: "priority"},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			r := valid()
			tc.mutate(r)

			err := ValidateRule(r)
			if tc.wantErr == "" {
				if err != nil {
					t.Fatalf("ValidateRule() unexpected error: %v", err)
				}
				return
			}
			if !errors.Is(err, ErrInvalidRule) {
				t.Fatalf("ValidateRule() error = %v, want ErrInvalidRule", err)
			}
			if !strings.Contains(err.Error(), tc.wantErr) {
				t.Errorf("ValidateRule() error = %q, want it to contain %q", err, tc.wantErr)
			}
		})
	}
}

func TestValidateRuleNil(t *testing.T) {
	if err := ValidateRule(nil); !errors.Is(err, ErrInvalidRule) {
		t.Errorf("ValidateRule(nil) error = %v, want ErrInvalidRule", err)
	}
}
