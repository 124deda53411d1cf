package models

import (
	"encoding/json"
	"time"

	"github.com/google/uuid"
)

type JobKind string

const (
	JobKindPreprocess           JobKind = "preprocess"
	JobKindCrackDetection       JobKind = "crack-detection"
	JobKindDepthEstimation      JobKind = "depth-estimation"
	JobKindDamageClassification JobKind = "damage-classification"
	JobKindSeverityCalculation  JobKind = "severity-calculation"
	JobKindFullInspection       JobKind = "full-inspection"
)

func (k JobKind) Valid() bool {
	switch k {
	case JobKindPreprocess, JobKindCrackDetection, JobKindDepthEstimation,
		JobKindDamageClassification, JobKindSeverityCalculation, JobKindFullInspection:
		return true
	}
	return false
}

type JobStatus string

const (
	JobStatusQueued     JobStatus = "queued"
	JobStatusProcessing JobStatus = "processing"
	JobStatusCompleted  JobStatus = "completed"
	JobStatusFailed     JobStatus = "failed"
)

// AnalysisJob is one queued unit of analysis work against an inspection.
// Progress runs 0..1 and is updated by the worker as frames complete.
type AnalysisJob struct {
	ID           uuid.UUID       `json:"id" db:"id"`
	InspectionID uuid.UUID       `json:"inspection_id" db:"inspection_id"`
	Kind         JobKind         `json:"kind" db:"kind"`
	Status       JobStatus       `json:"status" db:"status"`
	Progress     float64         `json:"progress" db:"progress"`
	Error        string          `json:"error,omitempty" db:"error"`
	Metadata     json.RawMessage `json:"metadata,omitempty" db:"metadata"`
	CreatedAt    time.Time       `json:"created_at" db:"created_at"`
	UpdatedAt    time.Time       `json:"updated_at" db:"updated_at"`
	StartedAt    *time.Time      `json:"started_at,omitempty" db:"started_at"`
	CompletedAt  *time.Time      `json:"completed_at,omitempty" db:"completed_at"`
}

// AnalysisTask is the message published to NATS for worker processing.
type AnalysisTask struct {
	JobID        uuid.UUID `json:"job_id"`
	InspectionID uuid.UUID `json:"inspection_id"`
	Kind         JobKind   `json:"kind"`
	FPS          int       `json:"fps,omitempty"`
}

// JobEvent is published on every job lifecycle transition so the API can
// fan it out to WebSocket subscribers.
type JobEvent struct {
	JobID        uuid.UUID `json:"job_id"`
	InspectionID uuid.UUID `json:"inspection_id"`
	Kind         JobKind   `json:"kind"`
	Status       JobStatus `json:"status"`
	Progress     float64   `json:"progress"`
	Error        string    `json:"error,omitempty"`
	Timestamp    time.Time `json:"timestamp"`
}
