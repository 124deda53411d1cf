package telemetry

import (
	"fmt"
	"math"

	ort "github.com/yalue/onnxruntime_go"

	"github.com/your-org/td/pkg/dto"
)

// featureCount is the width of the per-lap feature vector the regression
// model was trained on.
const featureCount = 16

// compoundCode encodes tyre compounds the way the model's training data did.
var compoundCode = map[string]float64{
	"SOFT":         0,
	"MEDIUM":       1,
	"HARD":         2,
	"INTERMEDIATE": 3,
	"WET":          4,
}

// Predictor runs the degradation regression model over per-lap telemetry.
// With no model configured it falls back to moving-average smoothing of the
// computed enhanced degradation, so the predict endpoint always answers.
type Predictor struct {
	session      *ort.AdvancedSession
	inputTensor  *ort.Tensor[float32]
	outputTensor *ort.Tensor[float32]
	calc         *DegradationCalculator
	modelVersion string
}

// NewPredictor loads the ONNX regression model. modelPath may be empty, in
// which case the fallback predictor is returned.
func NewPredictor(modelPath string) (*Predictor, error) {
	p := &Predictor{
		calc:         NewDegradationCalculator(),
		modelVersion: "fallback-moving-average",
	}
	if modelPath == "" {
		return p, nil
	}

	inputShape := ort.NewShape(1, featureCount)
	inputTensor, err := ort.NewEmptyTensor[float32](inputShape)
	if err != nil {
		return nil, fmt.Errorf("create input tensor: %w", err)
	}

	outputShape := ort.NewShape(1, 1)
	outputTensor, err := ort.NewEmptyTensor[float32](outputShape)
	if err != nil {
		inputTensor.Destroy()
		return nil, fmt.Errorf("create output tensor: %w", err)
	}

	session, err := ort.NewAdvancedSession(modelPath,
		[]string{"input"},
		[]string{"output"},
		[]ort.Value{inputTensor},
		[]ort.Value{outputTensor},
		nil,
	)
	if err != nil {
		inputTensor.Destroy()
		outputTensor.Destroy()
		return nil, fmt.Errorf("create predictor session: %w", err)
	}

	p.session = session
	p.inputTensor = inputTensor
	p.outputTensor = outputTensor
	p.modelVersion = "onnx-regression-v1"
	return p, nil
}

// Predict returns one predicted degradation value per lap of the stint.
// Predictions are clipped at zero; a tyre cannot un-degrade.
func (p *Predictor) Predict(req dto.StintRequest) (*dto.PredictResponse, error) {
	if len(req.Laps) == 0 {
		return nil, fmt.Errorf("stint has no laps")
	}

	if p.session == nil {
		return p.fallback(req)
	}

	predictions := make([]float64, 0, len(req.Laps))
	for _, lap := range req.Laps {
		features := lapFeatures(req, lap)

		inputSlice := p.inputTensor.GetData()
		copy(inputSlice, features)

		if err := p.session.Run(); err != nil {
			return nil, fmt.Errorf("run prediction: %w", err)
		}

		v := float64(p.outputTensor.GetData()[0])
		predictions = append(predictions, math.Max(0, v))
	}

	return &dto.PredictResponse{
		Compound:     req.Compound,
		Predictions:  predictions,
		ModelVersion: p.modelVersion,
	}, nil
}

// fallback smooths the computed enhanced degradation with a window-3 moving
// average.
func (p *Predictor) fallback(req dto.StintRequest) (*dto.PredictResponse, error) {
	analysis, err := p.calc.Analyze(req)
	if err != nil {
		return nil, err
	}

	const window = 3
	predictions := make([]float64, len(analysis.Laps))
	for i := range analysis.Laps {
		var sum float64
		count := 0
		for j := i - window + 1; j <= i; j++ {
			if j < 0 {
				continue
			}
			sum += analysis.Laps[j].EnhancedDegradation
			count++
		}
		predictions[i] = math.Max(0, round3(sum/float64(count)))
	}

	return &dto.PredictResponse{
		Compound:     req.Compound,
		Predictions:  predictions,
		ModelVersion: p.modelVersion,
	}, nil
}

func lapFeatures(req dto.StintRequest, lap dto.LapTelemetry) []float32 {
	code, ok := compoundCode[req.Compound]
	if !ok {
		code = compoundCode["MEDIUM"]
	}
	return []float32{
		float32(lap.TyreLife),
		float32(code),
		float32(req.StintNumber),
		float32(lap.TyreLife * FuelEffectPerLap),
		float32(lap.SpeedMean),
		float32(lap.SpeedMax),
		float32(lap.SpeedStd),
		float32(lap.RPMMean),
		float32(lap.RPMMax),
		float32(lap.ThrottleMean),
		float32(lap.ThrottleMax),
		float32(lap.ThrottleStd),
		float32(lap.GearMean),
		float32(lap.GearMax),
		float32(lap.BrakePercent),
		float32(lap.BrakeCount),
	}
}

func (p *Predictor) Close() {
	if p.session != nil {
		p.session.Destroy()
	}
	if p.inputTensor != nil {
		p.inputTensor.Destroy()
	}
	if p.outputTensor != nil {
		p.outputTensor.Destroy()
	}
}
