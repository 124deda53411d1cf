package severity

// Action is the discrete operational guidance derived from an overall score.
type Action string

const (
	ActionReplaceImmediately Action = "replace-immediately"
	ActionMonitorNextStint   Action = "monitor-next-stint"
	ActionSafeQualifyingOnly Action = "safe-qualifying-only"
)

// Action thresholds. 80.0 exactly stays in the monitor band (strict > on the
// high side); 50.0 exactly enters it (inclusive >= on the low side).
const (
	replaceThreshold = 80.0
	monitorThreshold = 50.0
)

// RecommendAction maps an overall severity score to a recommended action.
func RecommendAction(score float64) Action {
	switch {
	case score > replaceThreshold:
		return ActionReplaceImmediately
	case score >= monitorThreshold:
		return ActionMonitorNextStint
	default:
		return ActionSafeQualifyingOnly
	}
}
