package main

import (
	"github.com/liamcoop/cardiorisk/internal/logger"
	"github.com/liamcoop/cardiorisk/predictor"
	"github.com/liamcoop/cardiorisk/risk"
	"github.com/liamcoop/cardiorisk/rules"
)

// API request and response models

// MissingFieldsResponse is returned with 400 when required features are absent
type MissingFieldsResponse struct {
	Error   string   `json:"error" example:"Missing fields"`
	Missing []string `json:"missing" example:"chol,thal"`
}

// HealthResponse represents the health check response
type HealthResponse struct {
	Status string `json:"status" example:"OK"`
	Error  string `json:"error,omitempty"`
}

// AssessResponse pairs an assessment with the matching recommendations
type AssessResponse struct {
	Assessment      risk.Assessment        `json:"assessment"`
	Recommendations []rules.Recommendation `json:"recommendations"`
}

// MetricsResponse exposes the logger and bridge counters
type MetricsResponse struct {
	HTTP      map[string]int64 `json:"http"`
	Predictor predictor.Stats  `json:"predictor"`
}

func newMetricsResponse(bridge *predictor.Bridge) MetricsResponse {
	return MetricsResponse{
		HTTP:      logger.Counters(),
		Predictor: bridge.Stats(),
	}
}

// CreateRuleRequest represents the request body for creating a rule.
// ID is generated when empty; Active defaults to true.
type CreateRuleRequest struct {
	ID         string `json:"id,omitempty" example:"risk-bp"`
	Name       string `json:"name" example:"High blood pressure"`
	Expression string `json:"expression" example:"patient.trestbps > 140"`
	Advice     string `json:"advice" example:"Monitor your blood pressure daily."`
	Icon       string `json:"icon,omitempty" example:"🩸"`
	Priority   int    `json:"priority" example:"15"`
	Active     *bool  `json:"active,omitempty" example:"true"`
}

// UpdateRuleRequest represents the request body for updating a rule.
// Omitted fields keep their stored values.
type UpdateRuleRequest struct {
	Name       string  `json:"name,omitempty"`
	Expression string  `json:"expression,omitempty"`
	Advice     string  `json:"advice,omitempty"`
	Icon       *string `json:"icon,omitempty"`
	Priority   *int    `json:"priority,omitempty"`
	Active     *bool   `json:"active,omitempty"`
}

// RulesListResponse represents the response for listing rules
type RulesListResponse struct {
	Rules []*rules.Rule `json:"rules"`
}
