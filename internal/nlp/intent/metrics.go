package intent

import "sort"

// Metrics summarizes classifier quality on held-out examples. Weighted scores
// average the per-label score by label support; a zero denominator scores 0.
type Metrics struct {
	Accuracy          float64 `json:"accuracy"`
	F1Weighted        float64 `json:"f1_weighted"`
	PrecisionWeighted float64 `json:"precision_weighted"`
	RecallWeighted    float64 `json:"recall_weighted"`
	Support           int     `json:"support"`
	EvaluatedOn       string  `json:"evaluated_on"`
}

const (
	evaluatedOnValidation = "validation"
	evaluatedOnTrain      = "train"
)

func evaluate(truth, pred []string) Metrics {
	m := Metrics{Support: len(truth)}
	if len(truth) == 0 {
		return m
	}

	type counts struct{ tp, fp, fn, support int }
	byLabel := make(map[string]*counts)
	get := func(l string) *counts {
		c, ok := byLabel[l]
		if !ok {
			c = &counts{}
			byLabel[l] = c
		}
		return c
	}

	correct := 0
	for i := range truth {
		t, p := truth[i], pred[i]
		get(t).support++
		if t == p {
			correct++
			get(t).tp++
			continue
		}
		get(p).fp++
		get(t).fn++
	}

	labels := make([]string, 0, len(byLabel))
	for l := range byLabel {
		labels = append(labels, l)
	}
	sort.Strings(labels)

	n := float64(len(truth))
	for _, l := range labels {
		c := byLabel[l]
		if c.support == 0 {
			continue
		}
		precision := ratio(c.tp, c.tp+c.fp)
		recall := ratio(c.tp, c.tp+c.fn)
		var f1 float64
		if precision+recall > 0 {
			f1 = 2 * precision * recall / (precision + recall)
		}
		w := float64(c.support) / n
		m.PrecisionWeighted += w * precision
		m.RecallWeighted += w * recall
		m.F1Weighted += w * f1
	}
	m.Accuracy = float64(correct) / n
	return m
}

func ratio(num, den int) float64 {
	if den == 0 {
		return 0
	}
	return float64(num) / float64(den)
}
