package rules

import (
	"fmt"
	"sync"

	"github.com/google/cel-go/cel"

	"github.com/liamcoop/cardiorisk/internal/logger"
	"github.com/liamcoop/cardiorisk/risk"
)

// costLimit bounds the work a single rule expression may do.
const costLimit = 1000000

// Engine manages CEL environment and rule compilation/evaluation.
// Safe for concurrent use.
type Engine struct {
	env      *cel.Env
	store    RuleStore
	cache    RulesCache             // cache for active rules list
	programs map[string]cel.Program // ruleID -> compiled program
	mu       sync.RWMutex
}

// NewEnv returns the CEL environment rule expressions are checked against.
// Both variables are maps keyed by field name; int and double values compare
// freely so `patient.age > 60` works whatever the input looked like.
func NewEnv() (*cel.Env, error) {
	return cel.NewEnv(
		cel.Variable("patient", cel.DynType),
		cel.Variable("assessment", cel.DynType),
		cel.CrossTypeNumericComparisons(true),
	)
}

// NewEngine creates a rules engine and compiles every active rule in store.
func NewEngine(store RuleStore) (*Engine, error) {
	env, err := NewEnv()
	if err != nil {
		return nil, fmt.Errorf("failed to create CEL environment: %w", err)
	}

	return NewEngineWithEnv(env, store)
}

// NewEngineWithEnv creates a new rules engine with a custom CEL environment
func NewEngineWithEnv(env *cel.Env, store RuleStore) (*Engine, error) {
	en := &Engine{
		env:      env,
		store:    store,
		cache:    NewInMemoryRulesCache(DefaultCacheConfig()),
		programs: make(map[string]cel.Program),
	}

	if err := en.CompileAllRules(); err != nil {
		return nil, fmt.Errorf("failed to compile rules: %w", err)
	}

	return en, nil
}

// Store returns the backing rule store.
func (en *Engine) Store() RuleStore {
	return en.store
}

// Check compiles expression without registering it.
func (en *Engine) Check(expression string) error {
	_, err := en.program(expression)
	return err
}

func (en *Engine) program(expression string) (cel.Program, error) {
	ast, issues := en.env.Compile(expression)
	if issues != nil && issues.Err() != nil {
		return nil, fmt.Errorf("compile error: %w", issues.Err())
	}

	prog, err := en.env.Program(ast,
		cel.EvalOptions(cel.OptTrackState),
		cel.CostLimit(costLimit),
	)
	if err != nil {
		return nil, fmt.Errorf("program creation error: %w", err)
	}
	return prog, nil
}

// CompileRule compiles a single rule expression and caches the program.
func (en *Engine) CompileRule(ruleID, expression string) error {
	prog, err := en.program(expression)
	if err != nil {
		return err
	}

	en.mu.Lock()
	en.programs[ruleID] = prog
	en.mu.Unlock()

	return nil
}

// Evaluate evaluates a single rule against the provided facts.
// Non-boolean results count as not matched.
func (en *Engine) Evaluate(ruleID string, facts map[string]any) (*EvaluationResult, error) {
	rule, err := en.store.Get(ruleID)
	if err != nil {
		return nil, err
	}

	res := en.eval(rule, facts)
	return res, res.Error
}

func (en *Engine) eval(rule *Rule, facts map[string]any) *EvaluationResult {
	en.mu.RLock()
	prog, exists := en.programs[rule.ID]
	en.mu.RUnlock()

	if !exists {
		return &EvaluationResult{
			RuleID:   rule.ID,
			RuleName: rule.Name,
			Error:    fmt.Errorf("rule %s is not compiled", rule.ID),
		}
	}

	out, details, err := prog.Eval(facts)
	if err != nil {
		return &EvaluationResult{
			RuleID:   rule.ID,
			RuleName: rule.Name,
			Error:    err,
		}
	}

	matched := false
	if boolVal, ok := out.Value().(bool); ok {
		matched = boolVal
	}

	return &EvaluationResult{
		RuleID:   rule.ID,
		RuleName: rule.Name,
		Matched:  matched,
		Trace:    details.State(),
	}
}

// CompileAllRules compiles all active rules from the store
// and populates the cache with the active rules list.
func (en *Engine) CompileAllRules() error {
	_, gen := en.cache.Get()

	rules, err := en.store.ListActive()
	if err != nil {
		return err
	}

	for _, rule := range rules {
		if err := en.CompileRule(rule.ID, rule.Expression); err != nil {
			return fmt.Errorf("failed to compile rule %s: %w", rule.ID, err)
		}
	}

	en.cache.Set(rules, gen)

	return nil
}

// AddRule validates, compiles and stores a rule. Nothing is stored when
// the expression does not compile.
func (en *Engine) AddRule(r *Rule) error {
	if err := ValidateRule(r); err != nil {
		return err
	}

	if _, err := en.store.Get(r.ID); err == nil {
		return fmt.Errorf("%w: %s", ErrRuleExists, r.ID)
	}

	prog, err := en.program(r.Expression)
	if err != nil {
		return fmt.Errorf("%w: %v", ErrInvalidRule, err)
	}

	// a concurrent add of the same ID fails here and leaves the winner's program alone
	if err := en.store.Add(r); err != nil {
		return err
	}

	en.mu.Lock()
	en.programs[r.ID] = prog
	en.mu.Unlock()

	en.cache.Invalidate()

	return nil
}

// UpdateRule replaces a rule and recompiles it. The previous program is
// kept when the new expression fails to compile or the store rejects it.
func (en *Engine) UpdateRule(r *Rule) error {
	if err := ValidateRule(r); err != nil {
		return err
	}

	prog, err := en.program(r.Expression)
	if err != nil {
		return fmt.Errorf("%w: %v", ErrInvalidRule, err)
	}

	if err := en.store.Update(r); err != nil {
		return err
	}

	en.mu.Lock()
	en.programs[r.ID] = prog
	en.mu.Unlock()

	en.cache.Invalidate()

	return nil
}

// DeleteRule removes a rule from the store and compiled programs
func (en *Engine) DeleteRule(ruleID string) error {
	if err := en.store.Delete(ruleID); err != nil {
		return err
	}

	en.mu.Lock()
	delete(en.programs, ruleID)
	en.mu.Unlock()

	en.cache.Invalidate()

	return nil
}

// activeRules serves the active list from cache, refilling it on a miss.
// A refill that races a mutation is returned but not cached.
func (en *Engine) activeRules() ([]*Rule, error) {
	rules, gen := en.cache.Get()
	if rules != nil {
		return rules, nil
	}

	rules, err := en.store.ListActive()
	if err != nil {
		return nil, err
	}
	en.cache.Set(rules, gen)
	return rules, nil
}

// EvaluateAll evaluates all active rules against the provided facts.
// A failing rule is recorded in its result and does not stop the others.
func (en *Engine) EvaluateAll(facts map[string]any) ([]*EvaluationResult, error) {
	rules, err := en.activeRules()
	if err != nil {
		return nil, err
	}

	results := make([]*EvaluationResult, 0, len(rules))
	for _, rule := range rules {
		results = append(results, en.eval(rule, facts))
	}

	return results, nil
}

// Recommend returns the advice of every matched active rule, in priority
// order. Rules that fail to evaluate are logged and skipped.
func (en *Engine) Recommend(f risk.PatientFeatures, a risk.Assessment) ([]Recommendation, error) {
	rules, err := en.activeRules()
	if err != nil {
		return nil, err
	}

	facts := Facts(f, a)
	recs := make([]Recommendation, 0, len(rules))
	for _, rule := range rules {
		res := en.eval(rule, facts)
		if res.Error != nil {
			logger.Debug("Rule evaluation failed", "rule_id", rule.ID, "error", res.Error)
			continue
		}
		if !res.Matched {
			continue
		}
		recs = append(recs, Recommendation{
			RuleID: rule.ID,
			Icon:   rule.Icon,
			Text:   rule.Advice,
		})
	}

	return recs, nil
}
