package severity

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/your-org/td/internal/models"
)

func TestSignatureDimensions(t *testing.T) {
	calc := NewCalculator(t.TempDir())
	report, err := calc.CalculateOverallSeverity(
		crackAnalysis(10),
		depthAnalysis(10),
		damageAnalysis(10, models.DamageCuts),
	)
	require.NoError(t, err)

	sig := Signature(report)
	require.Len(t, sig, SignatureDim)
	for i, v := range sig {
		assert.GreaterOrEqual(t, v, float32(0.0), "dim %d", i)
		assert.LessOrEqual(t, v, float32(1.0), "dim %d", i)
	}

	assert.InDelta(t, report.OverallSeverityScore/100.0, float64(sig[signatureBins]), 1e-6)
	assert.InDelta(t, report.ComponentScores.CrackDensityScore/100.0, float64(sig[signatureBins+1]), 1e-6)
}

func TestSignatureDeterministic(t *testing.T) {
	calc := NewCalculator(t.TempDir())
	report, err := calc.CalculateOverallSeverity(
		crackAnalysis(6),
		depthAnalysis(6),
		damageAnalysis(6, models.DamageGrain),
	)
	require.NoError(t, err)

	assert.Equal(t, Signature(report), Signature(report))
}

func TestSignatureResamplesTimeline(t *testing.T) {
	calc := NewCalculator(t.TempDir())
	report, err := calc.CalculateOverallSeverity(
		crackAnalysis(10),
		depthAnalysis(10),
		damageAnalysis(10, models.DamageCuts),
	)
	require.NoError(t, err)
	require.Len(t, report.SeverityTimeline, 10)

	sig := Signature(report)

	// 60 bins over 10 frames: each frame covers six consecutive bins.
	for b := 0; b < signatureBins; b++ {
		frame := b * 10 / signatureBins
		want := float32(report.SeverityTimeline[frame].Severity / 100.0)
		assert.Equal(t, want, sig[b], "bin %d", b)
	}
}

func TestSignatureEmptyTimeline(t *testing.T) {
	report := &Report{OverallSeverityScore: 42.0}
	sig := Signature(report)
	require.Len(t, sig, SignatureDim)

	// Without a timeline every bin carries the overall score.
	for b := 0; b < signatureBins; b++ {
		assert.InDelta(t, 0.42, float64(sig[b]), 1e-6, "bin %d", b)
	}
}
