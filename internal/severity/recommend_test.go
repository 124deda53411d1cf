package severity

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestRecommendAction(t *testing.T) {
	cases := []struct {
		score float64
		want  Action
	}{
		{0.0, ActionSafeQualifyingOnly},
		{25.0, ActionSafeQualifyingOnly},
		{49.9, ActionSafeQualifyingOnly},
		{50.0, ActionMonitorNextStint},
		{65.0, ActionMonitorNextStint},
		{80.0, ActionMonitorNextStint},
		{80.1, ActionReplaceImmediately},
		{100.0, ActionReplaceImmediately},
	}
	for _, tc := range cases {
		assert.Equal(t, tc.want, RecommendAction(tc.score), "score %v", tc.score)
	}
}
