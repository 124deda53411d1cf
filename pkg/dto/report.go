package dto

import (
	"encoding/json"

	"github.com/google/uuid"
)

// ReportResponse wraps the persisted severity report document with its
// storage metadata. Report carries the exact JSON written by the severity
// calculator (overall_severity_score, recommended_action, component_scores,
// severity_timeline, timeline_statistics, input_metrics).
type ReportResponse struct {
	ID           uuid.UUID       `json:"id"`
	InspectionID uuid.UUID       `json:"inspection_id"`
	OverallScore float64         `json:"overall_severity_score"`
	Action       string          `json:"recommended_action"`
	Report       json.RawMessage `json:"report"`
	CreatedAt    string          `json:"created_at"`
}
