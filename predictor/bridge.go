package predictor

import (
	"context"
	"encoding/json"
	"sync/atomic"
	"time"

	"github.com/google/uuid"

	"github.com/liamcoop/cardiorisk/internal/logger"
	"github.com/liamcoop/cardiorisk/risk"
)

// Source says which path produced an assessment.
type Source string

const (
	SourceExternal Source = "external"
	SourceDemo     Source = "demo"
)

// Result is an assessment plus where it came from.
type Result struct {
	Assessment risk.Assessment
	Source     Source
	// Candidate names the interpreter that answered; empty for demo results.
	Candidate string
}

// Stats counts bridge outcomes since start.
type Stats struct {
	External          int64 `json:"external"`
	CandidateFailures int64 `json:"candidate_failures"`
	DemoFallbacks     int64 `json:"demo_fallbacks"`
	ArtifactsMissing  int64 `json:"artifacts_missing"`
}

// Bridge prefers an external predictor and degrades to the server-tier
// heuristic. It never returns an error.
type Bridge struct {
	artifacts  Artifacts
	candidates []Candidate
	fallback   risk.Table

	external         atomic.Int64
	failures         atomic.Int64
	fallbacks        atomic.Int64
	artifactsMissing atomic.Int64
}

// NewBridge tries candidates in order once the artifacts are present.
func NewBridge(artifacts Artifacts, candidates []Candidate) *Bridge {
	return &Bridge{
		artifacts:  artifacts,
		candidates: candidates,
		fallback:   risk.ServerTier,
	}
}

// Artifacts returns the probed artifact paths.
func (b *Bridge) Artifacts() Artifacts {
	return b.artifacts
}

// Predict returns the external assessment or the demo fallback.
func (b *Bridge) Predict(ctx context.Context, f risk.PatientFeatures) risk.Assessment {
	return b.Resolve(ctx, f).Assessment
}

// Resolve runs the fallback chain: artifact gate, then each candidate in
// order, then the demo heuristic.
func (b *Bridge) Resolve(ctx context.Context, f risk.PatientFeatures) Result {
	attempt := uuid.NewString()

	status := b.artifacts.Check()
	if !status.Ready() {
		b.artifactsMissing.Add(1)
		logger.Info("model artifacts missing, using demo mode",
			"attempt", attempt,
			"model", status.Model,
			"scaler", status.Scaler,
		)
		return b.demo(f)
	}

	payload, err := json.Marshal(f)
	if err != nil {
		logger.Error("failed to encode features", "attempt", attempt, "error", err)
		return b.demo(f)
	}

	for i, c := range b.candidates {
		start := time.Now()
		logger.Debug("trying predictor", "attempt", attempt, "candidate", c.Name(), "position", i)

		a, err := c.Predict(ctx, payload)
		if err != nil {
			b.failures.Add(1)
			logger.Warn("predictor candidate failed",
				"attempt", attempt,
				"candidate", c.Name(),
				"duration", time.Since(start).String(),
				"error", err,
			)
			continue
		}

		b.external.Add(1)
		logger.Info("external prediction",
			"attempt", attempt,
			"candidate", c.Name(),
			"duration", time.Since(start).String(),
		)
		return Result{Assessment: a, Source: SourceExternal, Candidate: c.Name()}
	}

	logger.Info("all predictor candidates failed, using demo mode",
		"attempt", attempt,
		"candidates", len(b.candidates),
	)
	return b.demo(f)
}

func (b *Bridge) demo(f risk.PatientFeatures) Result {
	b.fallbacks.Add(1)
	return Result{Assessment: b.fallback.Score(f), Source: SourceDemo}
}

// Stats returns a snapshot of the outcome counters.
func (b *Bridge) Stats() Stats {
	return Stats{
		External:          b.external.Load(),
		CandidateFailures: b.failures.Load(),
		DemoFallbacks:     b.fallbacks.Load(),
		ArtifactsMissing:  b.artifactsMissing.Load(),
	}
}
