package rules

import (
	"errors"
	"fmt"
	"regexp"
	"strings"
)

// ErrInvalidRule is wrapped by every rule validation or compile failure.
var ErrInvalidRule = errors.New("invalid rule")

const (
	maxIDLength         = 100
	maxNameLength       = 200
	maxExpressionLength = 4096
)

var validRuleID = regexp.MustCompile(`^[a-zA-Z0-9][a-zA-Z0-9_-]*$`)

// ValidateRule checks the fields a rule needs before it is compiled.
func ValidateRule(r *Rule) error {
	if r == nil {
		return fmt.Errorf("%w: rule is nil", ErrInvalidRule)
	}

	if err := validateID(r.ID); err != nil {
		return fmt.Errorf("%w: id %q: %v", ErrInvalidRule, r.ID, err)
	}

	if strings.TrimSpace(r.Name) == "" {
		return fmt.Errorf("%w: name is required", ErrInvalidRule)
	}
	if len(r.Name) > maxNameLength {
		return fmt.Errorf("%w: name length %d exceeds maximum of %d characters", ErrInvalidRule, len(r.Name), maxNameLength)
	}

	if strings.TrimSpace(r.Expression) == "" {
		return fmt.Errorf("%w: expression is required", ErrInvalidRule)
	}
	if len(r.Expression) > maxExpressionLength {
		return fmt.Errorf("%w: expression length %d exceeds maximum of %d characters", ErrInvalidRule, len(r.Expression), maxExpressionLength)
	}

	if strings.TrimSpace(r.Advice) == "" {
		return fmt.Errorf("%w: advice is required", ErrInvalidRule)
	}

	if r.Priority < 0 {
		return fmt.Errorf("%w: priority must not be negative", ErrInvalidRule)
	}

	return nil
}

func validateID(id string) error {
	if len(id) == 0 {
		return fmt.Errorf("identifier cannot be empty")
	}
	if len(id) > maxIDLength {
		return fmt.Errorf("identifier length %d exceeds maximum of %d characters", len(id), maxIDLength)
	}
	if !validRuleID.MatchString(id) {
		return fmt.Errorf("must match pattern %s", validRuleID)
	}
	return nil
}
