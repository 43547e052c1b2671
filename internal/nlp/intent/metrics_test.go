package intent

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestEvaluate(t *testing.T) {
	tests := []struct {
		name  string
		truth []string
		pred  []string
		want  Metrics
	}{
		{
			name:  "perfect",
			truth: []string{"a", "b"},
			pred:  []string{"a", "b"},
			want:  Metrics{Accuracy: 1, F1Weighted: 1, PrecisionWeighted: 1, RecallWeighted: 1, Support: 2},
		},
		{
			name:  "mixed",
			truth: []string{"a", "a", "b", "b"},
			pred:  []string{"a", "b", "b", "b"},
			want: Metrics{
				Accuracy:          0.75,
				PrecisionWeighted: 0.5*1 + 0.5*(2.0/3.0),
				RecallWeighted:    0.5*0.5 + 0.5*1,
				F1Weighted:        0.5*(2.0/3.0) + 0.5*0.8,
				Support:           4,
			},
		},
		{
			name:  "zero division scores zero",
			truth: []string{"a"},
			pred:  []string{"b"},
			want:  Metrics{Support: 1},
		},
		{
			name: "empty",
			want: Metrics{},
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := evaluate(tt.truth, tt.pred)
			assert.InDelta(t, tt.want.Accuracy, got.Accuracy, 1e-12)
			assert.InDelta(t, tt.want.PrecisionWeighted, got.PrecisionWeighted, 1e-12)
			assert.InDelta(t, tt.want.RecallWeighted, got.RecallWeighted, 1e-12)
			assert.InDelta(t, tt.want.F1Weighted, got.F1Weighted, 1e-12)
			assert.Equal(t, tt.want.Support, got.Support)
		})
	}
}
