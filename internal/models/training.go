package models

import (
	"encoding/json"
	"time"

	"github.com/google/uuid"
)

type TrainingRun struct {
	ID          uuid.UUID       `json:"id" db:"id"`
	DatasetPath string          `json:"dataset_path" db:"dataset_path"`
	ModelPath   string          `json:"model_path" db:"model_path"`
	Status      string          `json:"status" db:"status"`
	Examples    int             `json:"examples" db:"examples"`
	Labels      []string        `json:"labels" db:"labels"`
	Metrics     json.RawMessage `json:"metrics,omitempty" db:"metrics"`
	Error       string          `json:"error,omitempty" db:"error"`
	StartedAt   time.Time       `json:"started_at" db:"started_at"`
	CompletedAt *time.Time      `json:"completed_at,omitempty" db:"completed_at"`
}

const (
	TrainingStatusRunning   = "running"
	TrainingStatusSucceeded = "succeeded"
	TrainingStatusFailed    = "failed"
)
