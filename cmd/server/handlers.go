package main

import (
	"encoding/json"
	"errors"
	"net/http"
	"strings"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/google/uuid"

	"github.com/liamcoop/cardiorisk/intake"
	"github.com/liamcoop/cardiorisk/internal/logger"
	"github.com/liamcoop/cardiorisk/risk"
	"github.com/liamcoop/cardiorisk/rules"
)

// Health check handler
func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	if s.db != nil {
		if err := s.db.PingContext(r.Context()); err != nil {
			respondJSON(w, http.StatusServiceUnavailable, HealthResponse{
				Status: "unhealthy",
				Error:  err.Error(),
			})
			return
		}

		stats := s.db.Stats()
		if stats.MaxOpenConnections > 0 && stats.InUse >= stats.MaxOpenConnections {
			logger.WarnConnPool()
			logger.Warn("Database connection pool exhausted",
				"in_use", stats.InUse,
				"max_open", stats.MaxOpenConnections,
				"wait_count", stats.WaitCount)
		}
	}

	respondJSON(w, http.StatusOK, HealthResponse{Status: "OK"})
}

func (s *Server) handleArtifacts(w http.ResponseWriter, r *http.Request) {
	respondJSON(w, http.StatusOK, s.bridge.Artifacts().Check())
}

func (s *Server) handleMetrics(w http.ResponseWriter, r *http.Request) {
	respondJSON(w, http.StatusOK, newMetricsResponse(s.bridge))
}

// handlePredict validates every feature before anything is scored, then
// hands the record to the bridge. The bridge never fails; at worst the
// response is the demo heuristic.
func (s *Server) handlePredict(w http.ResponseWriter, r *http.Request) {
	f, ok := s.decodeFeatures(w, r)
	if !ok {
		return
	}

	if err := intake.Validate(f); err != nil {
		var verr *intake.ValidationError
		if errors.As(err, &verr) {
			respondJSON(w, http.StatusBadRequest, MissingFieldsResponse{
				Error:   "Missing fields",
				Missing: verr.Missing,
			})
			return
		}
		respondError(w, http.StatusInternalServerError, "validation failed", err)
		return
	}

	res := s.bridge.Resolve(r.Context(), f)
	logger.Info("Prediction served",
		"source", res.Source,
		"candidate", res.Candidate,
		"risk_level", res.Assessment.RiskLevel,
		"request_id", middleware.GetReqID(r.Context()))

	respondJSON(w, http.StatusOK, res.Assessment)
}

// handleScore runs the named table directly. Missing or unparsable
// features score zero, as they would in the browser.
func (s *Server) handleScore(w http.ResponseWriter, r *http.Request) {
	table, f, ok := s.scoreInput(w, r)
	if !ok {
		return
	}

	respondJSON(w, http.StatusOK, risk.Score(table, f))
}

func (s *Server) handleAssess(w http.ResponseWriter, r *http.Request) {
	table, f, ok := s.scoreInput(w, r)
	if !ok {
		return
	}

	assessment := risk.Score(table, f)
	recs, err := s.engine.Recommend(f, assessment)
	if err != nil {
		respondError(w, http.StatusInternalServerError, "failed to build recommendations", err)
		return
	}

	respondJSON(w, http.StatusOK, AssessResponse{
		Assessment:      assessment,
		Recommendations: recs,
	})
}

func (s *Server) scoreInput(w http.ResponseWriter, r *http.Request) (risk.Table, risk.PatientFeatures, bool) {
	tier := r.URL.Query().Get("tier")
	if tier == "" {
		tier = risk.ClientTier.Name
	}
	table, err := risk.Lookup(tier)
	if err != nil {
		respondError(w, http.StatusBadRequest, "unknown tier", err)
		return risk.Table{}, risk.PatientFeatures{}, false
	}

	f, ok := s.decodeFeatures(w, r)
	if !ok {
		return risk.Table{}, risk.PatientFeatures{}, false
	}
	return table, f, true
}

func (s *Server) decodeFeatures(w http.ResponseWriter, r *http.Request) (risk.PatientFeatures, bool) {
	f, err := intake.Decode(r)
	if err != nil {
		respondError(w, http.StatusBadRequest, "invalid request body", err)
		return risk.PatientFeatures{}, false
	}
	return f, true
}

// List rules handler
func (s *Server) handleListRules(w http.ResponseWriter, r *http.Request) {
	list, err := s.engine.Store().List()
	if err != nil {
		respondError(w, http.StatusInternalServerError, "failed to list rules", err)
		return
	}

	respondJSON(w, http.StatusOK, RulesListResponse{Rules: list})
}

// Create rule handler
func (s *Server) handleCreateRule(w http.ResponseWriter, r *http.Request) {
	var req CreateRuleRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		respondError(w, http.StatusBadRequest, "invalid request body", err)
		return
	}

	rule := &rules.Rule{
		ID:         strings.TrimSpace(req.ID),
		Name:       req.Name,
		Expression: req.Expression,
		Advice:     req.Advice,
		Icon:       req.Icon,
		Priority:   req.Priority,
		Active:     true,
	}
	if req.Active != nil {
		rule.Active = *req.Active
	}
	if rule.ID == "" {
		rule.ID = uuid.New().String()
	}

	if err := s.engine.AddRule(rule); err != nil {
		respondRuleError(w, "failed to add rule", err)
		return
	}

	logger.Info("Recommendation rule created", "rule_id", rule.ID)
	respondJSON(w, http.StatusCreated, rule)
}

// Get rule handler
func (s *Server) handleGetRule(w http.ResponseWriter, r *http.Request) {
	rule, err := s.engine.Store().Get(chi.URLParam(r, "ruleId"))
	if err != nil {
		respondRuleError(w, "failed to get rule", err)
		return
	}

	respondJSON(w, http.StatusOK, rule)
}

// Update rule handler
func (s *Server) handleUpdateRule(w http.ResponseWriter, r *http.Request) {
	ruleID := chi.URLParam(r, "ruleId")

	var req UpdateRuleRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		respondError(w, http.StatusBadRequest, "invalid request body", err)
		return
	}

	rule, err := s.engine.Store().Get(ruleID)
	if err != nil {
		respondRuleError(w, "failed to update rule", err)
		return
	}

	if req.Name != "" {
		rule.Name = req.Name
	}
	if req.Expression != "" {
		rule.Expression = req.Expression
	}
	if req.Advice != "" {
		rule.Advice = req.Advice
	}
	if req.Icon != nil {
		rule.Icon = *req.Icon
	}
	if req.Priority != nil {
		rule.Priority = *req.Priority
	}
	if req.Active != nil {
		rule.Active = *req.Active
	}

	if err := s.engine.UpdateRule(rule); err != nil {
		respondRuleError(w, "failed to update rule", err)
		return
	}

	logger.Info("Recommendation rule updated", "rule_id", rule.ID)
	respondJSON(w, http.StatusOK, rule)
}

// Delete rule handler
func (s *Server) handleDeleteRule(w http.ResponseWriter, r *http.Request) {
	ruleID := chi.URLParam(r, "ruleId")

	if err := s.engine.DeleteRule(ruleID); err != nil {
		respondRuleError(w, "failed to delete rule", err)
		return
	}

	logger.Info("Recommendation rule deleted", "rule_id", ruleID)
	w.WriteHeader(http.StatusNoContent)
}

// Helper functions
func respondJSON(w http.ResponseWriter, status int, data any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(data); err != nil {
		logger.Error("Failed to encode response", "error", err)
	}
}

func respondError(w http.ResponseWriter, status int, message string, err error) {
	response := map[string]string{
		"error": message,
	}
	if err != nil {
		response["details"] = err.Error()
		if status >= 500 {
			logger.Error(message, "error", err)
		}
	}
	respondJSON(w, status, response)
}

func respondRuleError(w http.ResponseWriter, message string, err error) {
	switch {
	case errors.Is(err, rules.ErrRuleNotFound):
		respondError(w, http.StatusNotFound, "rule not found", err)
	case errors.Is(err, rules.ErrRuleExists):
		respondError(w, http.StatusConflict, "rule already exists", err)
	case errors.Is(err, rules.ErrInvalidRule):
		respondError(w, http.StatusBadRequest, message, err)
	default:
		respondError(w, http.StatusInternalServerError, message, err)
	}
}
