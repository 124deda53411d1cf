package models

// DamageType is the closed vocabulary of tyre damage classes.
type DamageType string

const (
	DamageBlistering  DamageType = "blistering"
	DamageMicroCracks DamageType = "micro-cracks"
	DamageGrain       DamageType = "grain"
	DamageCuts        DamageType = "cuts"
	DamageFlatSpots   DamageType = "flat-spots"
	DamageChunking    DamageType = "chunking"
)

// AllDamageTypes lists the vocabulary in a stable order.
var AllDamageTypes = []DamageType{
	DamageBlistering,
	DamageMicroCracks,
	DamageGrain,
	DamageCuts,
	DamageFlatSpots,
	DamageChunking,
}

// Stage result artifacts, one JSON document per analysis stage.
const (
	PreprocessMetadataFile = "preprocessing_metadata.json"
	CrackResultsFile       = "crack_detection_results.json"
	DepthResultsFile       = "depth_estimation_results.json"
	DamageResultsFile      = "damage_classification_results.json"
)

type CrackFrameMetrics struct {
	FrameIndex   int     `json:"frame_index"`
	CrackCount   int     `json:"crack_count"`
	CrackDensity float64 `json:"crack_density"`
}

// CrackAnalysis aggregates crack detection across all frames of a video.
type CrackAnalysis struct {
	TotalFramesAnalyzed       int                 `json:"total_frames_analyzed"`
	TotalCrackCount           int                 `json:"total_crack_count"`
	AverageCrackCountPerFrame float64             `json:"average_crack_count_per_frame"`
	AverageCrackDensity       float64             `json:"average_crack_density"`
	FrameResults              []CrackFrameMetrics `json:"frame_results"`
}

type DepthFrameMetrics struct {
	FrameIndex  int     `json:"frame_index"`
	MaxDepthMM  float64 `json:"max_depth_mm"`
	MeanDepthMM float64 `json:"mean_depth_mm"`
}

// DepthAnalysis aggregates depth estimation across all frames of a video.
type DepthAnalysis struct {
	TotalFramesAnalyzed int                 `json:"total_frames_analyzed"`
	MaxDepthEstimateMM  float64             `json:"max_depth_estimate_mm"`
	AverageMaxDepthMM   float64             `json:"average_max_depth_mm"`
	FrameResults        []DepthFrameMetrics `json:"frame_results"`
}

type DamageFrameMetrics struct {
	FrameIndex     int          `json:"frame_index"`
	DamageTypes    []DamageType `json:"damage_types"`
	NumDamageTypes int          `json:"num_damage_types"`
}

// DamageAnalysis aggregates damage classification across all frames.
// A type counts as detected when it appears in enough frames (presence
// ratio, default 20%) to rule out single-frame noise.
type DamageAnalysis struct {
	TotalFramesAnalyzed   int                `json:"total_frames_analyzed"`
	DetectedDamageTypes   []DamageType       `json:"detected_damage_types"`
	DamageTypeFrameCounts map[DamageType]int `json:"damage_type_frame_counts"`
	FrameResults          []DamageFrameMetrics `json:"frame_results"`
}

// Circle is a detected tyre circle in frame coordinates.
type Circle struct {
	X      int `json:"x"`
	Y      int `json:"y"`
	Radius int `json:"radius"`
}

// PreprocessMetadata describes the output of the preprocessing stage for
// one video role (reference or damaged).
type PreprocessMetadata struct {
	VideoKey     string `json:"video_key"`
	TotalFrames  int    `json:"total_frames"`
	FPS          int    `json:"fps"`
	AvgCircle    Circle `json:"avg_circle"`
	FramesPrefix string `json:"frames_prefix"`
}
