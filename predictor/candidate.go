package predictor

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"math"
	"os/exec"
	"strings"
	"time"

	"github.com/liamcoop/cardiorisk/risk"
)

// ErrInvalidOutput is returned when a predictor exits cleanly but its output
// is not a usable assessment.
var ErrInvalidOutput = errors.New("invalid predictor output")

// Candidate is one strategy in the fallback chain.
type Candidate interface {
	Name() string
	Predict(ctx context.Context, payload []byte) (risk.Assessment, error)
}

// CandidateFunc adapts a function to Candidate.
type CandidateFunc struct {
	Label string
	Fn    func(ctx context.Context, payload []byte) (risk.Assessment, error)
}

func (c CandidateFunc) Name() string { return c.Label }

func (c CandidateFunc) Predict(ctx context.Context, payload []byte) (risk.Assessment, error) {
	return c.Fn(ctx, payload)
}

const waitDelay = 2 * time.Second

// Command runs `<Interpreter> <Script> <payload>` and reads one JSON
// assessment from stdout.
type Command struct {
	Interpreter string
	Script      string
	Dir         string
	Timeout     time.Duration
}

// Commands builds one Command per interpreter, in order.
func Commands(interpreters []string, script, dir string, timeout time.Duration) []Candidate {
	candidates := make([]Candidate, 0, len(interpreters))
	for _, interpreter := range interpreters {
		candidates = append(candidates, Command{
			Interpreter: interpreter,
			Script:      script,
			Dir:         dir,
			Timeout:     timeout,
		})
	}
	return candidates
}

func (c Command) Name() string {
	return c.Interpreter
}

// InvocationError describes a predictor process that could not be started or
// exited with a non-zero status.
type InvocationError struct {
	Interpreter string
	Stderr      string
	Err         error
}

func (e *InvocationError) Error() string {
	if e.Stderr == "" {
		return fmt.Sprintf("%s: %v", e.Interpreter, e.Err)
	}
	return fmt.Sprintf("%s: %v: %s", e.Interpreter, e.Err, e.Stderr)
}

func (e *InvocationError) Unwrap() error {
	return e.Err
}

func (c Command) Predict(ctx context.Context, payload []byte) (risk.Assessment, error) {
	if c.Timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, c.Timeout)
		defer cancel()
	}

	cmd := exec.CommandContext(ctx, c.Interpreter, c.Script, string(payload))
	cmd.Dir = c.Dir
	// children of a killed interpreter may still hold stdout open
	cmd.WaitDelay = waitDelay

	var stdout, stderr bytes.Buffer
	cmd.Stdout = &stdout
	cmd.Stderr = &stderr

	if err := cmd.Run(); err != nil {
		if ctxErr := ctx.Err(); ctxErr != nil {
			err = ctxErr
		}
		return risk.Assessment{}, &InvocationError{
			Interpreter: c.Interpreter,
			Stderr:      strings.TrimSpace(stderr.String()),
			Err:         err,
		}
	}

	a, err := ParseAssessment(stdout.Bytes())
	if err != nil {
		return risk.Assessment{}, fmt.Errorf("%s: %w", c.Interpreter, err)
	}
	return a, nil
}

type wireAssessment struct {
	Prediction  *int            `json:"prediction"`
	Probability *float64        `json:"probability"`
	RiskLevel   risk.Level      `json:"risk_level"`
	Confidence  string          `json:"confidence"`
	RiskScore   risk.Value      `json:"risk_score"`
	Demo        bool            `json:"demo"`
	Error       json.RawMessage `json:"error"`
}

// ParseAssessment decodes exactly one JSON assessment. Documents carrying an
// error member, a prediction outside {0,1} or a probability outside [0,1] are
// rejected with ErrInvalidOutput.
func ParseAssessment(b []byte) (risk.Assessment, error) {
	dec := json.NewDecoder(bytes.NewReader(b))

	var w wireAssessment
	if err := dec.Decode(&w); err != nil {
		return risk.Assessment{}, fmt.Errorf("%w: %v", ErrInvalidOutput, err)
	}
	if err := dec.Decode(&struct{}{}); err != io.EOF {
		return risk.Assessment{}, fmt.Errorf("%w: trailing data after assessment", ErrInvalidOutput)
	}

	switch {
	case len(w.Error) > 0 && string(w.Error) != "null":
		return risk.Assessment{}, fmt.Errorf("%w: predictor reported %s", ErrInvalidOutput, w.Error)
	case w.Prediction == nil:
		return risk.Assessment{}, fmt.Errorf("%w: missing prediction", ErrInvalidOutput)
	case *w.Prediction != 0 && *w.Prediction != 1:
		return risk.Assessment{}, fmt.Errorf("%w: prediction %d", ErrInvalidOutput, *w.Prediction)
	case w.Probability == nil:
		return risk.Assessment{}, fmt.Errorf("%w: missing probability", ErrInvalidOutput)
	case math.IsNaN(*w.Probability) || *w.Probability < 0 || *w.Probability > 1:
		return risk.Assessment{}, fmt.Errorf("%w: probability %v", ErrInvalidOutput, *w.Probability)
	}

	a := risk.Assessment{
		Prediction:  *w.Prediction,
		Probability: *w.Probability,
		RiskLevel:   w.RiskLevel,
		Confidence:  w.Confidence,
		Demo:        w.Demo,
	}
	if n, ok := w.RiskScore.LeadingInt(); ok {
		a.RiskScore = &n
	}
	return a, nil
}
