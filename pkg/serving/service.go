package serving

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"gorm.io/datatypes"

	"github.com/CS-UWC/OralSmart-sub001/pkg/common/logger"
	"github.com/CS-UWC/OralSmart-sub001/pkg/common/models"
	"github.com/CS-UWC/OralSmart-sub001/pkg/features"
	"github.com/CS-UWC/OralSmart-sub001/pkg/risk"
	"github.com/CS-UWC/OralSmart-sub001/pkg/serving/predictor"
	"github.com/CS-UWC/OralSmart-sub001/pkg/storage"
)

var (
	ErrInvalidInput    = errors.New("invalid prediction input")
	ErrPatientNotFound = errors.New("no assessment cached for patient")
	ErrLogsDisabled    = errors.New("prediction logging is disabled")
)

// EventPublisher is satisfied by kafka.Producer.
type EventPublisher interface {
	PublishEvent(ctx context.Context, eventType string, source string, data map[string]interface{}) error
}

// Thresholds are the caller-supplied overrides for the rule calculator.
type Thresholds struct {
	MinDMFT       *float64 `json:"min_dmft,omitempty"`
	RiskThreshold *float64 `json:"risk_threshold,omitempty"`
}

func (t Thresholds) options() risk.Options {
	return risk.Options{MinDMFT: t.MinDMFT, RiskThreshold: t.RiskThreshold}
}

type AssessRequest struct {
	PatientID string                     `json:"patient_id,omitempty"`
	Dental    *features.DentalScreening  `json:"dental"`
	Dietary   *features.DietaryScreening `json:"dietary"`
	Thresholds
}

type PredictRequest struct {
	Features map[string]float64 `json:"features"`
	Thresholds
}

type Assessment struct {
	ID           uuid.UUID `json:"id"`
	PatientID    string    `json:"patient_id,omitempty"`
	Completeness int       `json:"data_completeness"`
	predictor.Prediction
	AssessedAt time.Time `json:"assessed_at"`
}

type Service struct {
	predictor *predictor.Predictor
	cache     storage.VectorCache
	logs      LogStore
	publisher EventPublisher
}

type Option func(*Service)

func WithCache(c storage.VectorCache) Option {
	return func(s *Service) { s.cache = c }
}

func WithLogs(l LogStore) Option {
	return func(s *Service) { s.logs = l }
}

func WithPublisher(p EventPublisher) Option {
	return func(s *Service) { s.publisher = p }
}

func NewService(p *predictor.Predictor, opts ...Option) *Service {
	s := &Service{predictor: p}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Assess extracts features from screening records and predicts. With a
// patient id the vector is cached for later lookups.
func (s *Service) Assess(ctx context.Context, req AssessRequest) (Assessment, error) {
	v := features.Extract(req.Dental, req.Dietary)
	patientID := strings.TrimSpace(req.PatientID)
	if patientID != "" && s.cache != nil {
		if err := s.cache.Put(ctx, patientID, v); err != nil {
			logger.WithField("patient_id", patientID).WithError(err).Warn("failed to cache feature vector")
		}
	}
	return s.predict(ctx, patientID, v, req.Thresholds)
}

// PredictFeatures predicts from a complete feature map.
func (s *Service) PredictFeatures(ctx context.Context, req PredictRequest) (Assessment, error) {
	v, err := features.FromMap(req.Features)
	if err != nil {
		return Assessment{}, fmt.Errorf("%w: %w", ErrInvalidInput, err)
	}
	return s.predict(ctx, "", v, req.Thresholds)
}

// PatientRisk re-predicts from the patient's cached vector, so it reflects
// the model that is current now.
func (s *Service) PatientRisk(ctx context.Context, patientID string, t Thresholds) (Assessment, error) {
	if s.cache == nil {
		return Assessment{}, ErrPatientNotFound
	}
	cached, err := s.cache.Get(ctx, patientID)
	if errors.Is(err, storage.ErrNotCached) {
		return Assessment{}, ErrPatientNotFound
	}
	if err != nil {
		return Assessment{}, err
	}
	return s.predict(ctx, patientID, cached.Vector, t)
}

func (s *Service) predict(ctx context.Context, patientID string, v features.Vector, t Thresholds) (Assessment, error) {
	start := time.Now()
	pred, err := s.predictor.Predict(v, t.options())
	if err != nil {
		return Assessment{}, fmt.Errorf("%w: %w", ErrInvalidInput, err)
	}
	a := Assessment{
		ID:           uuid.New(),
		PatientID:    patientID,
		Completeness: features.Completeness(v),
		Prediction:   pred,
		AssessedAt:   time.Now().UTC(),
	}
	latency := time.Since(start)

	if s.logs != nil {
		entry := &PredictionLog{
			ID:            a.ID,
			PatientID:     patientID,
			RiskLevel:     string(pred.RiskLevel),
			Confidence:    pred.Confidence,
			Probabilities: datatypes.NewJSONType(pred.Probabilities),
			TopFactors:    datatypes.NewJSONSlice(pred.TopFactors),
			Source:        string(pred.Source),
			ModelID:       pred.ModelID,
			Diagnostic:    pred.Diagnostic,
			Features:      featureMap(v),
			LatencyMs:     float64(latency.Microseconds()) / 1000.0,
			CreatedAt:     a.AssessedAt,
		}
		if err := s.logs.RecordPrediction(ctx, entry); err != nil {
			logger.Log.WithError(err).Error("failed to record prediction")
		}
	}
	if s.publisher != nil {
		data := map[string]interface{}{
			"assessment_id": a.ID.String(),
			"patient_id":    patientID,
			"risk_level":    string(pred.RiskLevel),
			"confidence":    pred.Confidence,
			"source":        string(pred.Source),
			"model_id":      pred.ModelID,
		}
		if err := s.publisher.PublishEvent(ctx, models.TopicRiskAssessed, "serving-service", data); err != nil {
			logger.Log.WithError(err).Warn("failed to publish assessment event")
		}
	}

	logger.Log.WithFields(map[string]interface{}{
		"assessment_id": a.ID,
		"risk_level":    pred.RiskLevel,
		"source":        pred.Source,
		"latency_ms":    latency.Milliseconds(),
	}).Info("Risk assessed")
	return a, nil
}

// Recent returns the latest prediction logs.
func (s *Service) Recent(ctx context.Context, limit int) ([]models.PredictionLog, error) {
	if s.logs == nil {
		return nil, ErrLogsDisabled
	}
	rows, err := s.logs.Recent(ctx, limit)
	if err != nil {
		return nil, err
	}
	out := make([]models.PredictionLog, len(rows))
	for i, row := range rows {
		out[i] = row.toDomain()
	}
	return out, nil
}

func (s *Service) ModelStatus() predictor.Status {
	return s.predictor.Status()
}

func (s *Service) ReloadModel() predictor.Status {
	return s.predictor.Reload()
}

// HandleModelEvent reloads the model when training publishes a new one.
func (s *Service) HandleModelEvent(ctx context.Context, event models.Event) error {
	if event.Type != models.TopicModelPublished {
		return nil
	}
	st := s.predictor.Reload()
	logger.WithFields(map[string]interface{}{
		"event_id": event.ID,
		"model_id": st.ModelID,
		"mode":     st.Mode,
	}).Info("Reloaded model after publish event")
	return nil
}

func featureMap(v features.Vector) map[string]interface{} {
	out := make(map[string]interface{})
	for name, value := range v.ToMap() {
		if value != 0 {
			out[name] = value
		}
	}
	return out
}
