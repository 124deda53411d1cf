package dto

import "github.com/google/uuid"

type InspectionResponse struct {
	ID                uuid.UUID `json:"id"`
	Label             string    `json:"label"`
	ReferenceVideoKey string    `json:"reference_video_key"`
	DamagedVideoKey   string    `json:"damaged_video_key"`
	Status            string    `json:"status"`
	FrameCount        int       `json:"frame_count"`
	CreatedAt         string    `json:"created_at"`
	UpdatedAt         string    `json:"updated_at"`
}

type InspectionListResponse struct {
	Inspections []InspectionResponse `json:"inspections"`
	Total       int                  `json:"total"`
}

// SimilarRequest tunes the similar-damage search.
type SimilarRequest struct {
	Limit int `json:"limit"`
}

type SimilarMatch struct {
	InspectionID uuid.UUID `json:"inspection_id"`
	Label        string    `json:"label"`
	OverallScore float64   `json:"overall_severity_score"`
	Action       string    `json:"recommended_action"`
	Similarity   float64   `json:"similarity"`
}

type SimilarResponse struct {
	Matches []SimilarMatch `json:"matches"`
	Total   int            `json:"total"`
}
