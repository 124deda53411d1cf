package dto

import (
	"encoding/json"

	"github.com/google/uuid"
)

type AnalyzeRequest struct {
	Kind string `json:"kind" binding:"required"`
	FPS  int    `json:"fps"`
}

// AnalyzeResponse acknowledges a queued analysis job. Callers poll
// GET /v1/jobs/:id for completion.
type AnalyzeResponse struct {
	JobID   uuid.UUID `json:"job_id"`
	Status  string    `json:"status"`
	Message string    `json:"message"`
}

type JobResponse struct {
	JobID        uuid.UUID       `json:"job_id"`
	InspectionID uuid.UUID       `json:"inspection_id"`
	Kind         string          `json:"kind"`
	Status       string          `json:"status"`
	Progress     float64         `json:"progress"`
	Metadata     json.RawMessage `json:"metadata,omitempty"`
	Error        string          `json:"error,omitempty"`
	CreatedAt    string          `json:"created_at"`
	StartedAt    string          `json:"started_at,omitempty"`
	CompletedAt  string          `json:"completed_at,omitempty"`
}

type JobListResponse struct {
	Jobs  []JobResponse `json:"jobs"`
	Total int           `json:"total"`
}

// WSJobEvent is a WebSocket message for real-time job progress delivery.
type WSJobEvent struct {
	Type         string    `json:"type"` // job_queued, job_progress, job_completed, job_failed
	InspectionID uuid.UUID `json:"inspection_id"`
	JobID        uuid.UUID `json:"job_id"`
	Kind         string    `json:"kind"`
	Status       string    `json:"status"`
	Progress     float64   `json:"progress"`
	Error        string    `json:"error,omitempty"`
}
