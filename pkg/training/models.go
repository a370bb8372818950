package training

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/datatypes"
)

const (
	StatusQueued    = "queued"
	StatusRunning   = "running"
	StatusCompleted = "completed"
	StatusFailed    = "failed"
)

type JobModel struct {
	ID           uuid.UUID         `gorm:"type:uuid;primaryKey;column:id"`
	Status       string            `gorm:"column:status;index"`
	Options      datatypes.JSONMap `gorm:"column:options"`
	DatasetPath  string            `gorm:"column:dataset_path"`
	Samples      int               `gorm:"column:samples"`
	Metrics      datatypes.JSONMap `gorm:"column:metrics"`
	ArtifactID   string            `gorm:"column:artifact_id"`
	ErrorMessage string            `gorm:"column:error_message"`
	CreatedAt    time.Time         `gorm:"column:created_at"`
	UpdatedAt    time.Time         `gorm:"column:updated_at"`
	StartedAt    *time.Time        `gorm:"column:started_at"`
	CompletedAt  *time.Time        `gorm:"column:completed_at"`
}

func (JobModel) TableName() string {
	return "training_jobs"
}

// CreateJobInput selects the dataset and overrides the service's default
// pipeline options. Exactly one of DatasetPath and SampleSize is used;
// DatasetPath wins when both are set and is relative to the dataset directory.
type CreateJobInput struct {
	DatasetPath string `json:"dataset_path"`
	SampleSize  int    `json:"sample_size"`
	Selection   string `json:"feature_selection"`
	NFeatures   int    `json:"n_features"`
	Search      bool   `json:"hyperparameter_search"`
}
