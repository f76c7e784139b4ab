package main

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"net/url"
	"os"
	"path/filepath"
	"strings"
	"sync/atomic"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/liamcoop/cardiorisk/config"
	"github.com/liamcoop/cardiorisk/internal/logger"
	"github.com/liamcoop/cardiorisk/predictor"
	"github.com/liamcoop/cardiorisk/risk"
	"github.com/liamcoop/cardiorisk/rules"
)

const highRiskBody = `{"age":70,"sex":1,"cp":2,"trestbps":160,"chol":300,"fbs":1,"restecg":1,
	"thalach":90,"exang":1,"oldpeak":3.0,"slope":2,"ca":2,"thal":3}`

const lowRiskBody = `{"age":30,"sex":0,"cp":3,"trestbps":110,"chol":180,"fbs":0,"restecg":0,
	"thalach":170,"exang":0,"oldpeak":0.1,"slope":0,"ca":0,"thal":0}`

type fakeCandidate struct {
	calls atomic.Int64
	out   risk.Assessment
	err   error
}

func (c *fakeCandidate) candidate(name string) predictor.Candidate {
	return predictor.CandidateFunc{Label: name, Fn: func(ctx context.Context, payload []byte) (risk.Assessment, error) {
		c.calls.Add(1)
		return c.out, c.err
	}}
}

// presentArtifacts creates model and scaler files so the external path is taken.
func presentArtifacts(t *testing.T) predictor.Artifacts {
	t.Helper()
	dir := t.TempDir()
	a := predictor.Artifacts{
		Model:        filepath.Join(dir, "model.pkl"),
		Scaler:       filepath.Join(dir, "scaler.pkl"),
		FeatureNames: filepath.Join(dir, "feature_names.json"),
	}
	require.NoError(t, os.WriteFile(a.Model, []byte("m"), 0o600))
	require.NoError(t, os.WriteFile(a.Scaler, []byte("s"), 0o600))
	return a
}

func missingArtifacts(t *testing.T) predictor.Artifacts {
	dir := t.TempDir()
	return predictor.Artifacts{
		Model:        filepath.Join(dir, "model.pkl"),
		Scaler:       filepath.Join(dir, "scaler.pkl"),
		FeatureNames: filepath.Join(dir, "feature_names.json"),
	}
}

func newTestServer(t *testing.T, bridge *predictor.Bridge) *Server {
	t.Helper()
	s, err := newServer(config.Default(), nil, bridge)
	require.NoError(t, err)
	return s
}

func do(t *testing.T, s *Server, method, target, contentType, body string) *httptest.ResponseRecorder {
	t.Helper()
	req := httptest.NewRequest(method, target, strings.NewReader(body))
	if contentType != "" {
		req.Header.Set("Content-Type", contentType)
	}
	rec := httptest.NewRecorder()
	s.ServeHTTP(rec, req)
	return rec
}

func decode[T any](t *testing.T, rec *httptest.ResponseRecorder) T {
	t.Helper()
	var v T
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &v), rec.Body.String())
	return v
}

func TestHealth(t *testing.T) {
	s := newTestServer(t, predictor.NewBridge(missingArtifacts(t), nil))

	rec := do(t, s, http.MethodGet, "/api/health", "", "")

	assert.Equal(t, http.StatusOK, rec.Code)
	assert.JSONEq(t, `{"status":"OK"}`, rec.Body.String())
}

func TestNewServerWiresCommandsFromConfig(t *testing.T) {
	cfg := config.Default()
	a := missingArtifacts(t)
	cfg.Predictor.ModelPath = a.Model
	cfg.Predictor.ScalerPath = a.Scaler

	s, err := NewServer(cfg, nil)
	require.NoError(t, err)

	assert.Equal(t, a.Model, s.bridge.Artifacts().Model)
	rec := do(t, s, http.MethodPost, "/api/predict", "application/json", highRiskBody)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.True(t, decode[risk.Assessment](t, rec).Demo)
}

func TestPredictMissingFields(t *testing.T) {
	fc := &fakeCandidate{out: risk.Assessment{Prediction: 1, Probability: 0.9}}
	s := newTestServer(t, predictor.NewBridge(presentArtifacts(t), []predictor.Candidate{fc.candidate("python3")}))

	body := strings.NewReplacer(`"chol":300,`, ``, `,"thal":3`, ``).Replace(highRiskBody)
	rec := do(t, s, http.MethodPost, "/api/predict", "application/json", body)

	require.Equal(t, http.StatusBadRequest, rec.Code)
	assert.JSONEq(t, `{"error":"Missing fields","missing":["chol","thal"]}`, rec.Body.String())
	assert.Zero(t, fc.calls.Load(), "nothing should be scored when fields are missing")
}

func TestPredictEmptyBodyListsEveryField(t *testing.T) {
	s := newTestServer(t, predictor.NewBridge(missingArtifacts(t), nil))

	rec := do(t, s, http.MethodPost, "/api/predict", "application/json", "")

	require.Equal(t, http.StatusBadRequest, rec.Code)
	resp := decode[MissingFieldsResponse](t, rec)
	assert.Equal(t, "Missing fields", resp.Error)
	assert.Len(t, resp.Missing, len(risk.Fields))
}

func TestPredictMalformedBody(t *testing.T) {
	s := newTestServer(t, predictor.NewBridge(missingArtifacts(t), nil))

	rec := do(t, s, http.MethodPost, "/api/predict", "application/json", `{"age":`)

	require.Equal(t, http.StatusBadRequest, rec.Code)
	resp := decode[map[string]string](t, rec)
	assert.Equal(t, "invalid request body", resp["error"])
	assert.NotEmpty(t, resp["details"])
}

func TestPredictWithoutArtifactsUsesDemo(t *testing.T) {
	fc := &fakeCandidate{out: risk.Assessment{Prediction: 0, Probability: 0.1}}
	s := newTestServer(t, predictor.NewBridge(missingArtifacts(t), []predictor.Candidate{fc.candidate("python3")}))

	rec := do(t, s, http.MethodPost, "/api/predict", "application/json", highRiskBody)

	require.Equal(t, http.StatusOK, rec.Code)
	a := decode[risk.Assessment](t, rec)
	assert.True(t, a.Demo)
	assert.Equal(t, risk.DemoConfidence, a.Confidence)
	assert.Equal(t, 1.0, a.Probability)
	assert.Equal(t, risk.VeryHigh, a.RiskLevel)
	assert.Zero(t, fc.calls.Load())
}

func TestPredictExternalResult(t *testing.T) {
	fc := &fakeCandidate{out: risk.Assessment{Prediction: 0, Probability: 0.12, RiskLevel: risk.Low, Confidence: "High"}}
	s := newTestServer(t, predictor.NewBridge(presentArtifacts(t), []predictor.Candidate{fc.candidate("python3")}))

	rec := do(t, s, http.MethodPost, "/api/predict", "application/json", highRiskBody)

	require.Equal(t, http.StatusOK, rec.Code)
	assert.JSONEq(t, `{"prediction":0,"probability":0.12,"risk_level":"Low","confidence":"High"}`, rec.Body.String())
	assert.EqualValues(t, 1, fc.calls.Load())
}

func TestPredictAllCandidatesFail(t *testing.T) {
	first := &fakeCandidate{err: errors.New("exit status 1")}
	second := &fakeCandidate{err: predictor.ErrInvalidOutput}
	s := newTestServer(t, predictor.NewBridge(presentArtifacts(t), []predictor.Candidate{
		first.candidate("python3"),
		second.candidate("python"),
	}))

	rec := do(t, s, http.MethodPost, "/api/predict", "application/json", lowRiskBody)

	require.Equal(t, http.StatusOK, rec.Code)
	a := decode[risk.Assessment](t, rec)
	assert.True(t, a.Demo)
	assert.Equal(t, risk.Low, a.RiskLevel)
	assert.EqualValues(t, 1, first.calls.Load())
	assert.EqualValues(t, 1, second.calls.Load())
}

func TestPredictFormPost(t *testing.T) {
	s := newTestServer(t, predictor.NewBridge(missingArtifacts(t), nil))

	form := url.Values{}
	for _, field := range risk.Fields {
		form.Set(string(field), "0")
	}
	form.Set("thal", "")

	rec := do(t, s, http.MethodPost, "/api/predict", "application/x-www-form-urlencoded", form.Encode())

	require.Equal(t, http.StatusBadRequest, rec.Code)
	assert.Equal(t, []string{"thal"}, decode[MissingFieldsResponse](t, rec).Missing)
}

func TestScoreTiers(t *testing.T) {
	s := newTestServer(t, predictor.NewBridge(missingArtifacts(t), nil))

	rec := do(t, s, http.MethodPost, "/api/score", "application/json", highRiskBody)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.JSONEq(t, `{"prediction":1,"probability":0.99,"risk_level":"Very High","confidence":"High","risk_score":206}`, rec.Body.String())

	rec = do(t, s, http.MethodPost, "/api/score?tier=server", "application/json", highRiskBody)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.JSONEq(t, `{"prediction":1,"probability":1,"risk_level":"Very High","confidence":"Moderate (Demo Mode)","demo":true}`, rec.Body.String())

	rec = do(t, s, http.MethodPost, "/api/score?tier=hospital", "application/json", highRiskBody)
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestScoreDoesNotRequireEveryField(t *testing.T) {
	s := newTestServer(t, predictor.NewBridge(missingArtifacts(t), nil))

	rec := do(t, s, http.MethodPost, "/api/score", "application/json", `{"age":70,"ca":"2 vessels"}`)

	require.Equal(t, http.StatusOK, rec.Code)
	a := decode[risk.Assessment](t, rec)
	require.NotNil(t, a.RiskScore)
	assert.Equal(t, 25+16, *a.RiskScore)
}

func TestAssessAttachesRecommendations(t *testing.T) {
	s := newTestServer(t, predictor.NewBridge(missingArtifacts(t), nil))

	rec := do(t, s, http.MethodPost, "/api/assess", "application/json", highRiskBody)
	require.Equal(t, http.StatusOK, rec.Code)
	resp := decode[AssessResponse](t, rec)
	assert.Equal(t, 1, resp.Assessment.Prediction)
	require.Len(t, resp.Recommendations, 8)
	assert.Equal(t, "risk-cardiologist", resp.Recommendations[0].RuleID)

	rec = do(t, s, http.MethodPost, "/api/assess", "application/json", lowRiskBody)
	require.Equal(t, http.StatusOK, rec.Code)
	resp = decode[AssessResponse](t, rec)
	assert.Equal(t, 0, resp.Assessment.Prediction)
	assert.Len(t, resp.Recommendations, 7)
}

func TestArtifactsEndpoint(t *testing.T) {
	s := newTestServer(t, predictor.NewBridge(presentArtifacts(t), nil))

	rec := do(t, s, http.MethodGet, "/api/artifacts", "", "")

	require.Equal(t, http.StatusOK, rec.Code)
	assert.JSONEq(t, `{"model":true,"scaler":true,"feature_names":false}`, rec.Body.String())
}

func TestMetricsCountsResponses(t *testing.T) {
	s := newTestServer(t, predictor.NewBridge(missingArtifacts(t), nil))
	before := logger.Counters()

	do(t, s, http.MethodPost, "/api/predict", "application/json", `{}`)
	do(t, s, http.MethodGet, "/api/recommendations/rules/nope", "", "")
	do(t, s, http.MethodPost, "/api/predict", "application/json", lowRiskBody)

	rec := do(t, s, http.MethodGet, "/api/metrics", "", "")
	require.Equal(t, http.StatusOK, rec.Code)

	resp := decode[MetricsResponse](t, rec)
	assert.Equal(t, before["http_400_total"]+1, resp.HTTP["http_400_total"])
	assert.Equal(t, before["http_404_total"]+1, resp.HTTP["http_404_total"])
	assert.Equal(t, before["http_4xx_total"]+2, resp.HTTP["http_4xx_total"])
	assert.EqualValues(t, 1, resp.Predictor.DemoFallbacks)
	assert.EqualValues(t, 1, resp.Predictor.ArtifactsMissing)
}

func TestRulesCRUD(t *testing.T) {
	s := newTestServer(t, predictor.NewBridge(missingArtifacts(t), nil))

	rec := do(t, s, http.MethodGet, "/api/recommendations/rules", "", "")
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Len(t, decode[RulesListResponse](t, rec).Rules, 15)

	create := `{"id":"bp-watch","name":"Blood pressure","expression":"patient.trestbps > 150","advice":"Track your blood pressure daily.","icon":"🩸","priority":5}`
	rec = do(t, s, http.MethodPost, "/api/recommendations/rules", "application/json", create)
	require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())
	created := decode[map[string]any](t, rec)
	assert.Equal(t, "bp-watch", created["id"])
	assert.Equal(t, true, created["active"])

	rec = do(t, s, http.MethodPost, "/api/recommendations/rules", "application/json", create)
	assert.Equal(t, http.StatusConflict, rec.Code)

	rec = do(t, s, http.MethodPost, "/api/assess", "application/json", highRiskBody)
	resp := decode[AssessResponse](t, rec)
	require.Len(t, resp.Recommendations, 9)
	assert.Equal(t, "bp-watch", resp.Recommendations[0].RuleID)

	rec = do(t, s, http.MethodPut, "/api/recommendations/rules/bp-watch", "application/json", `{"active":false}`)
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())

	rec = do(t, s, http.MethodGet, "/api/recommendations/rules/bp-watch", "", "")
	require.Equal(t, http.StatusOK, rec.Code)
	got := decode[map[string]any](t, rec)
	assert.Equal(t, false, got["active"])
	assert.Equal(t, "Track your blood pressure daily.", got["advice"])

	rec = do(t, s, http.MethodPost, "/api/assess", "application/json", highRiskBody)
	assert.Len(t, decode[AssessResponse](t, rec).Recommendations, 8)

	rec = do(t, s, http.MethodDelete, "/api/recommendations/rules/bp-watch", "", "")
	assert.Equal(t, http.StatusNoContent, rec.Code)

	rec = do(t, s, http.MethodGet, "/api/recommendations/rules/bp-watch", "", "")
	assert.Equal(t, http.StatusNotFound, rec.Code)
}

func TestCreateRuleValidation(t *testing.T) {
	s := newTestServer(t, predictor.NewBridge(missingArtifacts(t), nil))

	tests := []struct {
		name string
		body string
		want int
	}{
		{"malformed", `{"name":`, http.StatusBadRequest},
		{"bad expression", `{"name":"x","expression":"patient.age >","advice":"y"}`, http.StatusBadRequest},
		{"missing advice", `{"name":"x","expression":"true"}`, http.StatusBadRequest},
		{"generated id", `{"name":"x","expression":"true","advice":"y"}`, http.StatusCreated},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			rec := do(t, s, http.MethodPost, "/api/recommendations/rules", "application/json", tc.body)
			assert.Equal(t, tc.want, rec.Code, rec.Body.String())
		})
	}
}

func TestUpdateRuleErrors(t *testing.T) {
	s := newTestServer(t, predictor.NewBridge(missingArtifacts(t), nil))

	rec := do(t, s, http.MethodPut, "/api/recommendations/rules/ghost", "application/json", `{"name":"x"}`)
	assert.Equal(t, http.StatusNotFound, rec.Code)

	rec = do(t, s, http.MethodPut, "/api/recommendations/rules/risk-followup", "application/json", `{"expression":"assessment.prediction =="}`)
	assert.Equal(t, http.StatusBadRequest, rec.Code)

	rec = do(t, s, http.MethodDelete, "/api/recommendations/rules/ghost", "", "")
	assert.Equal(t, http.StatusNotFound, rec.Code)
}

func TestRespondErrorShape(t *testing.T) {
	rec := httptest.NewRecorder()
	respondError(rec, http.StatusBadRequest, "bad", errors.New("details here"))

	assert.Equal(t, "application/json", rec.Header().Get("Content-Type"))
	assert.JSONEq(t, `{"error":"bad","details":"details here"}`, rec.Body.String())
}

func TestSeedRulesOnlyWhenEmpty(t *testing.T) {
	store := rules.NewInMemoryRuleStore()

	added, err := seedRules(store)
	require.NoError(t, err)
	assert.Equal(t, len(rules.DefaultRules()), added)

	require.NoError(t, store.Delete("risk-sleep"))

	added, err = seedRules(store)
	require.NoError(t, err)
	assert.Zero(t, added)

	list, err := store.List()
	require.NoError(t, err)
	assert.Len(t, list, len(rules.DefaultRules())-1)
}
