package models

import (
	"time"

	"github.com/google/uuid"
)

// Event bus topics
const (
	TopicRiskAssessed   = "risk.assessed"
	TopicModelPublished = "model.published"
)

// Event is the envelope for every message on the event bus.
type Event struct {
	ID        string                 `json:"id"`
	Type      string                 `json:"type"` // risk.assessed, model.published
	Source    string                 `json:"source"`
	Data      map[string]interface{} `json:"data"`
	Timestamp time.Time              `json:"timestamp"`
	Metadata  map[string]string      `json:"metadata,omitempty"`
}

// Training
type TrainingJob struct {
	ID           uuid.UUID              `json:"id"`
	Status       string                 `json:"status"`
	Options      map[string]interface{} `json:"options"`
	DatasetPath  string                 `json:"dataset_path,omitempty"`
	Samples      int                    `json:"samples"`
	CreatedAt    time.Time              `json:"created_at"`
	StartedAt    *time.Time             `json:"started_at,omitempty"`
	CompletedAt  *time.Time             `json:"completed_at,omitempty"`
	Metrics      map[string]interface{} `json:"metrics,omitempty"`
	ArtifactID   string                 `json:"artifact_id,omitempty"`
	ErrorMessage string                 `json:"error_message,omitempty"`
}

// Serving
type PredictionLog struct {
	ID            uuid.UUID          `json:"id"`
	PatientID     string             `json:"patient_id,omitempty"`
	RiskLevel     string             `json:"risk_level"`
	Confidence    float64            `json:"confidence"`
	Probabilities map[string]float64 `json:"probabilities"`
	TopFactors    []string           `json:"top_factors"`
	Source        string             `json:"source"`
	ModelID       string             `json:"model_id,omitempty"`
	Diagnostic    string             `json:"diagnostic,omitempty"`
	CreatedAt     time.Time          `json:"created_at"`
}
