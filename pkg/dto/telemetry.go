package dto

// LapTelemetry is one lap of a stint as submitted by the telemetry client,
// with pre-aggregated channel statistics for that lap.
type LapTelemetry struct {
	LapNumber    int     `json:"lap_number"`
	LapTime      float64 `json:"lap_time"` // seconds
	TyreLife     float64 `json:"tyre_life"`
	SpeedMean    float64 `json:"speed_mean"`
	SpeedMax     float64 `json:"speed_max"`
	SpeedStd     float64 `json:"speed_std"`
	RPMMean      float64 `json:"rpm_mean"`
	RPMMax       float64 `json:"rpm_max"`
	ThrottleMean float64 `json:"throttle_mean"`
	ThrottleMax  float64 `json:"throttle_max"`
	ThrottleStd  float64 `json:"throttle_std"`
	GearMean     float64 `json:"gear_mean"`
	GearMax      float64 `json:"gear_max"`
	BrakePercent float64 `json:"brake_percent"`
	BrakeCount   float64 `json:"brake_count"`
}

type StintRequest struct {
	Compound    string         `json:"compound" binding:"required"`
	StintNumber int            `json:"stint_number"`
	Laps        []LapTelemetry `json:"laps" binding:"required"`
}

// LapDegradation is one lap of computed degradation.
type LapDegradation struct {
	LapNumber           int     `json:"lap_number"`
	FuelCorrection      float64 `json:"fuel_correction"`
	FuelCorrectedTime   float64 `json:"fuel_corrected_time"`
	EnhancedDegradation float64 `json:"enhanced_degradation"`
	SimpleDegradation   float64 `json:"simple_degradation"`
}

type DegradationResponse struct {
	Compound            string           `json:"compound"`
	StintLength         int              `json:"stint_length"`
	AvgEnhanced         float64          `json:"avg_enhanced_degradation"`
	MaxEnhanced         float64          `json:"max_enhanced_degradation"`
	AvgSimple           float64          `json:"avg_simple_degradation"`
	MaxSimple           float64          `json:"max_simple_degradation"`
	TotalFuelEffect     float64          `json:"total_fuel_effect"`
	OptimalPitLap       int              `json:"optimal_pit_lap"`
	Laps                []LapDegradation `json:"laps"`
}

type PredictResponse struct {
	Compound     string    `json:"compound"`
	Predictions  []float64 `json:"predicted_degradation"`
	ModelVersion string    `json:"model_version"`
}
