package models

import (
	"time"

	"github.com/google/uuid"
)

type InspectionStatus string

const (
	InspectionStatusCreated   InspectionStatus = "created"
	InspectionStatusAnalyzing InspectionStatus = "analyzing"
	InspectionStatusCompleted InspectionStatus = "completed"
	InspectionStatusFailed    InspectionStatus = "failed"
)

// Inspection is one tyre inspection case: a reference (fresh tyre) video and
// a damaged (post-stint) video of the same tyre, plus the analysis lifecycle.
type Inspection struct {
	ID                uuid.UUID        `json:"id" db:"id"`
	Label             string           `json:"label" db:"label"`
	ReferenceVideoKey string           `json:"reference_video_key" db:"reference_video_key"`
	DamagedVideoKey   string           `json:"damaged_video_key" db:"damaged_video_key"`
	Status            InspectionStatus `json:"status" db:"status"`
	FrameCount        int              `json:"frame_count" db:"frame_count"`
	CreatedAt         time.Time        `json:"created_at" db:"created_at"`
	UpdatedAt         time.Time        `json:"updated_at" db:"updated_at"`
}
