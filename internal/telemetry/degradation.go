// Package telemetry predicts tyre performance degradation from race stint
// telemetry: a fuel-corrected lap time model plus an optional regression
// model for forward prediction.
package telemetry

import (
	"fmt"
	"math"

	"github.com/your-org/td/pkg/dto"
)

// FuelEffectPerLap is the lap time gained per lap of fuel burn, in seconds.
// Fixed constant of the correction model, not calibrated per track.
const FuelEffectPerLap = 0.035

// PitThresholdSeconds is the enhanced degradation level at which pitting
// becomes faster than staying out.
const PitThresholdSeconds = 2.0

type DegradationCalculator struct{}

func NewDegradationCalculator() *DegradationCalculator {
	return &DegradationCalculator{}
}

// Analyze computes per-lap and stint-level degradation for one stint.
//
// Enhanced degradation removes the fuel burn effect first: lap times are
// corrected by tyre_life * FuelEffectPerLap, the stint's fastest corrected
// lap becomes the baseline, and degradation is the gap to it (floored at
// zero). Simple degradation is the same gap on raw lap times.
func (c *DegradationCalculator) Analyze(req dto.StintRequest) (*dto.DegradationResponse, error) {
	if len(req.Laps) == 0 {
		return nil, fmt.Errorf("stint has no laps")
	}

	laps := make([]dto.LapDegradation, 0, len(req.Laps))
	minCorrected := math.Inf(1)
	minRaw := math.Inf(1)
	validLaps := 0

	for _, lap := range req.Laps {
		if lap.LapTime <= 0 {
			continue
		}
		validLaps++
		correction := lap.TyreLife * FuelEffectPerLap
		corrected := lap.LapTime + correction
		if corrected < minCorrected {
			minCorrected = corrected
		}
		if lap.LapTime < minRaw {
			minRaw = lap.LapTime
		}
		laps = append(laps, dto.LapDegradation{
			LapNumber:         lap.LapNumber,
			FuelCorrection:    correction,
			FuelCorrectedTime: corrected,
		})
	}
	if validLaps == 0 {
		return nil, fmt.Errorf("stint has no valid laps")
	}

	var sumEnhanced, maxEnhanced, sumSimple, maxSimple float64
	optimalPitLap := 0
	rawIdx := 0
	for i := range laps {
		// Advance to the matching raw lap (invalid laps were skipped).
		for req.Laps[rawIdx].LapNumber != laps[i].LapNumber {
			rawIdx++
		}

		enhanced := math.Max(0, laps[i].FuelCorrectedTime-minCorrected)
		simple := math.Max(0, req.Laps[rawIdx].LapTime-minRaw)
		laps[i].EnhancedDegradation = round3(enhanced)
		laps[i].SimpleDegradation = round3(simple)

		sumEnhanced += enhanced
		sumSimple += simple
		if enhanced > maxEnhanced {
			maxEnhanced = enhanced
		}
		if simple > maxSimple {
			maxSimple = simple
		}
		if optimalPitLap == 0 && enhanced >= PitThresholdSeconds {
			optimalPitLap = laps[i].LapNumber
		}
	}

	// No lap crossed the threshold: the stint could have run one more lap.
	if optimalPitLap == 0 {
		optimalPitLap = laps[len(laps)-1].LapNumber + 1
	}

	n := float64(len(laps))
	return &dto.DegradationResponse{
		Compound:        req.Compound,
		StintLength:     len(laps),
		AvgEnhanced:     round3(sumEnhanced / n),
		MaxEnhanced:     round3(maxEnhanced),
		AvgSimple:       round3(sumSimple / n),
		MaxSimple:       round3(maxSimple),
		TotalFuelEffect: round3(laps[len(laps)-1].FuelCorrection),
		OptimalPitLap:   optimalPitLap,
		Laps:            laps,
	}, nil
}

func round3(v float64) float64 {
	return math.Round(v*1000) / 1000
}
