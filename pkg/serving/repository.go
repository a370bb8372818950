package serving

import (
	"context"
	"time"

	"github.com/google/uuid"
	"gorm.io/datatypes"
	"gorm.io/gorm"

	"github.com/CS-UWC/OralSmart-sub001/pkg/common/models"
)

// PredictionLog is the persistence model for served risk predictions.
type PredictionLog struct {
	ID            uuid.UUID                              `gorm:"type:uuid;primaryKey;column:id"`
	PatientID     string                                 `gorm:"column:patient_id;index"`
	RiskLevel     string                                 `gorm:"column:risk_level"`
	Confidence    float64                                `gorm:"column:confidence"`
	Probabilities datatypes.JSONType[map[string]float64] `gorm:"column:probabilities"`
	TopFactors    datatypes.JSONSlice[string]            `gorm:"column:top_factors"`
	Source        string                                 `gorm:"column:source"`
	ModelID       string                                 `gorm:"column:model_id"`
	Diagnostic    string                                 `gorm:"column:diagnostic"`
	Features      datatypes.JSONMap                      `gorm:"column:features"`
	LatencyMs     float64                                `gorm:"column:latency_ms"`
	CreatedAt     time.Time                              `gorm:"column:created_at;index"`
}

// TableName overrides gorm naming.
func (PredictionLog) TableName() string {
	return "risk_prediction_logs"
}

func (l PredictionLog) toDomain() models.PredictionLog {
	return models.PredictionLog{
		ID:            l.ID,
		PatientID:     l.PatientID,
		RiskLevel:     l.RiskLevel,
		Confidence:    l.Confidence,
		Probabilities: l.Probabilities.Data(),
		TopFactors:    []string(l.TopFactors),
		Source:        l.Source,
		ModelID:       l.ModelID,
		Diagnostic:    l.Diagnostic,
		CreatedAt:     l.CreatedAt,
	}
}

// LogStore persists prediction logs.
type LogStore interface {
	RecordPrediction(ctx context.Context, log *PredictionLog) error
	Recent(ctx context.Context, limit int) ([]PredictionLog, error)
}

// Repository handles prediction logs queries.
type Repository struct {
	db *gorm.DB
}

func NewRepository(db *gorm.DB) *Repository {
	return &Repository{db: db}
}

func (r *Repository) AutoMigrate() error {
	return r.db.AutoMigrate(&PredictionLog{})
}

func (r *Repository) RecordPrediction(ctx context.Context, log *PredictionLog) error {
	return r.db.WithContext(ctx).Create(log).Error
}

// Recent returns the most recent prediction logs up to limit.
func (r *Repository) Recent(ctx context.Context, limit int) ([]PredictionLog, error) {
	if limit <= 0 {
		limit = 50
	}
	var logs []PredictionLog
	err := r.db.WithContext(ctx).
		Order("created_at DESC").
		Limit(limit).
		Find(&logs).Error
	return logs, err
}
