package serving

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/gorilla/mux"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/CS-UWC/OralSmart-sub001/pkg/common/models"
	"github.com/CS-UWC/OralSmart-sub001/pkg/features"
	"github.com/CS-UWC/OralSmart-sub001/pkg/risk"
	"github.com/CS-UWC/OralSmart-sub001/pkg/serving/predictor"
	"github.com/CS-UWC/OralSmart-sub001/pkg/storage"
)

type memoryLogs struct {
	mu   sync.Mutex
	rows []PredictionLog
	err  error
}

func (m *memoryLogs) RecordPrediction(_ context.Context, log *PredictionLog) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.err != nil {
		return m.err
	}
	m.rows = append(m.rows, *log)
	return nil
}

func (m *memoryLogs) Recent(_ context.Context, limit int) ([]PredictionLog, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if limit <= 0 || limit > len(m.rows) {
		limit = len(m.rows)
	}
	out := make([]PredictionLog, 0, limit)
	for i := len(m.rows) - 1; i >= 0 && len(out) < limit; i-- {
		out = append(out, m.rows[i])
	}
	return out, nil
}

type recordingPublisher struct {
	mu     sync.Mutex
	events []map[string]interface{}
	types  []string
}

func (p *recordingPublisher) PublishEvent(_ context.Context, eventType string, _ string, data map[string]interface{}) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.types = append(p.types, eventType)
	p.events = append(p.events, data)
	return nil
}

type fixture struct {
	service   *Service
	logs      *memoryLogs
	publisher *recordingPublisher
	cache     *storage.MemoryStore
	router    *mux.Router
}

func newFixture(t *testing.T) *fixture {
	t.Helper()
	f := &fixture{
		logs:      &memoryLogs{},
		publisher: &recordingPublisher{},
		cache:     storage.NewMemoryStore(time.Hour),
	}
	p := predictor.New(nil, risk.NewCalculator(risk.DefaultCalibration()), 5)
	f.service = NewService(p, WithCache(f.cache), WithLogs(f.logs), WithPublisher(f.publisher))
	f.router = mux.NewRouter()
	NewHTTPHandler(f.service, 1<<20).Register(f.router)
	return f
}

func (f *fixture) do(method, path string, body interface{}) *httptest.ResponseRecorder {
	var buf bytes.Buffer
	if s, ok := body.(string); ok {
		buf.WriteString(s)
	} else if body != nil {
		json.NewEncoder(&buf).Encode(body)
	}
	req := httptest.NewRequest(method, path, &buf)
	rec := httptest.NewRecorder()
	f.router.ServeHTTP(rec, req)
	return rec
}

func highRiskRequest() AssessRequest {
	return AssessRequest{
		PatientID: "patient-7",
		Dental: &features.DentalScreening{
			CavitatedLesions: "yes",
			SpecialNeeds:     "yes",
			TeethData:        map[string]string{"11": "B", "12": "C", "21": "D"},
		},
		Dietary: &features.DietaryScreening{},
	}
}

func TestAssessCachesLogsAndPublishes(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	a, err := f.service.Assess(ctx, highRiskRequest())
	require.NoError(t, err)
	assert.Equal(t, "patient-7", a.PatientID)
	assert.Equal(t, predictor.SourceFallback, a.Source)
	assert.Equal(t, predictor.NotTrained, a.Diagnostic)
	assert.Equal(t, 2, a.Completeness)
	assert.NotEmpty(t, a.TopFactors)

	cached, err := f.cache.Get(ctx, "patient-7")
	require.NoError(t, err)
	assert.Equal(t, features.SchemaVersion, cached.Vector.Version)

	require.Len(t, f.logs.rows, 1)
	assert.Equal(t, a.ID, f.logs.rows[0].ID)
	assert.Equal(t, string(a.RiskLevel), f.logs.rows[0].RiskLevel)
	assert.Equal(t, []string{models.TopicRiskAssessed}, f.publisher.types)
	assert.Equal(t, a.ID.String(), f.publisher.events[0]["assessment_id"])

	again, err := f.service.PatientRisk(ctx, "patient-7", Thresholds{})
	require.NoError(t, err)
	assert.Equal(t, a.RiskLevel, again.RiskLevel)
	assert.Equal(t, a.Probabilities, again.Probabilities)
}

func TestLogFailureDoesNotFailAssessment(t *testing.T) {
	f := newFixture(t)
	f.logs.err = errors.New("database unavailable")
	_, err := f.service.Assess(context.Background(), highRiskRequest())
	assert.NoError(t, err)
}

func TestPatientRiskNotFound(t *testing.T) {
	f := newFixture(t)
	_, err := f.service.PatientRisk(context.Background(), "ghost", Thresholds{})
	assert.ErrorIs(t, err, ErrPatientNotFound)

	bare := NewService(predictor.New(nil, risk.NewCalculator(risk.DefaultCalibration()), 5))
	_, err = bare.PatientRisk(context.Background(), "ghost", Thresholds{})
	assert.ErrorIs(t, err, ErrPatientNotFound)
	_, err = bare.Recent(context.Background(), 10)
	assert.ErrorIs(t, err, ErrLogsDisabled)
}

func TestPredictFeaturesRejectsIncompleteMap(t *testing.T) {
	f := newFixture(t)
	_, err := f.service.PredictFeatures(context.Background(), PredictRequest{Features: map[string]float64{"plaque": 1}})
	assert.ErrorIs(t, err, ErrInvalidInput)

	full := features.NewVector().ToMap()
	full["plaque"] = 1
	a, err := f.service.PredictFeatures(context.Background(), PredictRequest{Features: full})
	require.NoError(t, err)
	assert.Empty(t, a.PatientID)
}

func TestHTTPAssess(t *testing.T) {
	f := newFixture(t)
	rec := f.do(http.MethodPost, "/api/v1/risk/assess", highRiskRequest())
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	assert.Equal(t, "application/json", rec.Header().Get("Content-Type"))

	var body map[string]interface{}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
	assert.Equal(t, "fallback", body["source"])
	assert.Contains(t, body, "risk_level")
	assert.Contains(t, body, "probabilities")
	assert.Equal(t, "patient-7", body["patient_id"])

	rec = f.do(http.MethodGet, "/api/v1/patients/patient-7/risk?min_dmft=1", nil)
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
	assert.Equal(t, "high", body["risk_level"])

	rec = f.do(http.MethodGet, "/api/v1/predictions?limit=1", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	var logs []models.PredictionLog
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &logs))
	assert.Len(t, logs, 1)
}

func TestHTTPErrors(t *testing.T) {
	f := newFixture(t)
	assert.Equal(t, http.StatusBadRequest, f.do(http.MethodPost, "/api/v1/risk/assess", "{bad json").Code)
	assert.Equal(t, http.StatusBadRequest, f.do(http.MethodPost, "/api/v1/risk/predict", PredictRequest{Features: map[string]float64{"nope": 1}}).Code)
	assert.Equal(t, http.StatusNotFound, f.do(http.MethodGet, "/api/v1/patients/unknown/risk", nil).Code)
	assert.Equal(t, http.StatusBadRequest, f.do(http.MethodGet, "/api/v1/patients/unknown/risk?risk_threshold=abc", nil).Code)

	h := NewHTTPHandler(f.service, 16)
	router := mux.NewRouter()
	h.Register(router)
	req := httptest.NewRequest(http.MethodPost, "/api/v1/risk/assess", strings.NewReader(`{"patient_id":"`+strings.Repeat("x", 64)+`"}`))
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestHTTPModelEndpoints(t *testing.T) {
	f := newFixture(t)
	rec := f.do(http.MethodGet, "/api/v1/model", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	var st predictor.Status
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &st))
	assert.Equal(t, predictor.SourceFallback, st.Mode)

	rec = f.do(http.MethodPost, "/api/v1/model/reload", nil)
	require.Equal(t, http.StatusOK, rec.Code)

	rec = f.do(http.MethodGet, "/api/v1/features", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	var schema struct {
		Version  string   `json:"version"`
		Features []string `json:"features"`
	}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &schema))
	assert.Equal(t, features.SchemaVersion, schema.Version)
	assert.Equal(t, features.Names(), schema.Features)
}

func TestHandleModelEventIgnoresOtherTypes(t *testing.T) {
	f := newFixture(t)
	assert.NoError(t, f.service.HandleModelEvent(context.Background(), models.Event{Type: "something.else"}))
	assert.NoError(t, f.service.HandleModelEvent(context.Background(), models.Event{Type: models.TopicModelPublished}))
	assert.Equal(t, predictor.NotTrained, f.service.ModelStatus().Diagnostic)
}
