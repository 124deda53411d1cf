package severity

// SignatureDim is the length of a damage signature vector: 60 angular
// severity bins followed by the overall score and the three component
// scores, all scaled to [0,1].
const SignatureDim = 64

const signatureBins = 60

// Signature condenses a report into a fixed-length vector so past
// inspections with similar damage patterns can be recalled by vector
// similarity. The timeline is resampled positionally into the angular bins;
// with no timeline every bin carries the overall score, which keeps
// degenerate reports searchable instead of zeroed out.
func Signature(r *Report) []float32 {
	sig := make([]float32, SignatureDim)

	n := len(r.SeverityTimeline)
	for b := 0; b < signatureBins; b++ {
		if n == 0 {
			sig[b] = float32(r.OverallSeverityScore / 100)
			continue
		}
		idx := b * n / signatureBins
		sig[b] = float32(r.SeverityTimeline[idx].Severity / 100)
	}

	sig[signatureBins] = float32(r.OverallSeverityScore / 100)
	sig[signatureBins+1] = float32(r.ComponentScores.CrackDensityScore / 100)
	sig[signatureBins+2] = float32(r.ComponentScores.DepthScore / 100)
	sig[signatureBins+3] = float32(r.ComponentScores.DamageTypeScore / 100)

	return sig
}
