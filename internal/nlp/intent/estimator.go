package intent

import (
	"math"

	"gonum.org/v1/gonum/floats"
)

// Estimator is the view a Model has of a fitted classifier. Classes are
// returned in the order used for tie-breaking.
type Estimator interface {
	Classes() []string
	Predict(x []float64) string
}

// ProbabilisticEstimator also exposes per-class probabilities aligned with
// Classes().
type ProbabilisticEstimator interface {
	Estimator
	PredictProba(x []float64) []float64
}

// LogisticRegression is a multinomial (softmax) linear classifier.
type LogisticRegression struct {
	classes    []string
	weights    [][]float64
	intercepts []float64
	iterations int
}

var _ ProbabilisticEstimator = (*LogisticRegression)(nil)

func (lr *LogisticRegression) Classes() []string { return append([]string(nil), lr.classes...) }

// Iterations is the number of optimizer steps taken during fitting.
func (lr *LogisticRegression) Iterations() int { return lr.iterations }

func (lr *LogisticRegression) PredictProba(x []float64) []float64 {
	z := make([]float64, len(lr.classes))
	for c := range lr.classes {
		z[c] = floats.Dot(lr.weights[c], x) + lr.intercepts[c]
	}
	softmax(z)
	return z
}

func (lr *LogisticRegression) Predict(x []float64) string {
	return lr.classes[argmax(lr.PredictProba(x))]
}

type fitParams struct {
	C         float64
	MaxIter   int
	Tolerance float64
}

type sparseRow struct {
	idx []int
	val []float64
}

func toSparse(x []float64) sparseRow {
	var r sparseRow
	for j, v := range x {
		if v != 0 {
			r.idx = append(r.idx, j)
			r.val = append(r.val, v)
		}
	}
	return r
}

func (r sparseRow) dot(w []float64) float64 {
	var s float64
	for k, j := range r.idx {
		s += w[j] * r.val[k]
	}
	return s
}

// fitLogistic minimizes the sample-weighted mean cross-entropy plus
// ||W||²/(2·C·n) by full-batch gradient descent. The intercepts are not
// penalized. Iteration order is fixed, so the result is reproducible.
func fitLogistic(X [][]float64, y []int, classes []string, sampleWeight []float64, p fitParams) *LogisticRegression {
	k, n := len(classes), len(X)
	d := 0
	if n > 0 {
		d = len(X[0])
	}

	lr := &LogisticRegression{
		classes:    append([]string(nil), classes...),
		weights:    make([][]float64, k),
		intercepts: make([]float64, k),
	}
	for c := range lr.weights {
		lr.weights[c] = make([]float64, d)
	}
	if k < 2 || n == 0 {
		return lr
	}

	rows := make([]sparseRow, n)
	for i, x := range X {
		rows[i] = toSparse(x)
	}

	lambda := 1 / (p.C * float64(n))
	// Rows have ||x|| <= 1, so with the intercept column ||[x,1]||² <= 2 and the
	// softmax curvature bound of 1/2 the gradient is mean(w)+lambda Lipschitz.
	step := 1 / (floats.Sum(sampleWeight)/float64(n) + lambda)

	gradW := make([][]float64, k)
	for c := range gradW {
		gradW[c] = make([]float64, d)
	}
	gradB := make([]float64, k)
	probs := make([]float64, k)

	for it := 0; it < p.MaxIter; it++ {
		for c := range gradW {
			clear(gradW[c])
		}
		clear(gradB)

		for i, row := range rows {
			for c := 0; c < k; c++ {
				probs[c] = row.dot(lr.weights[c]) + lr.intercepts[c]
			}
			softmax(probs)
			scale := sampleWeight[i] / float64(n)
			for c := 0; c < k; c++ {
				g := probs[c]
				if y[i] == c {
					g--
				}
				g *= scale
				gradB[c] += g
				for m, j := range row.idx {
					gradW[c][j] += g * row.val[m]
				}
			}
		}

		var maxGrad float64
		for c := 0; c < k; c++ {
			floats.AddScaled(gradW[c], lambda, lr.weights[c])
			maxGrad = math.Max(maxGrad, floats.Norm(gradW[c], math.Inf(1)))
			maxGrad = math.Max(maxGrad, math.Abs(gradB[c]))
		}
		lr.iterations = it + 1
		if maxGrad < p.Tolerance {
			break
		}

		for c := 0; c < k; c++ {
			floats.AddScaled(lr.weights[c], -step, gradW[c])
			lr.intercepts[c] -= step * gradB[c]
		}
	}
	return lr
}

// balancedWeights gives every example of class c the weight n/(k·count_c).
func balancedWeights(y []int, k int) []float64 {
	counts := make([]int, k)
	for _, c := range y {
		counts[c]++
	}
	w := make([]float64, len(y))
	for i, c := range y {
		w[i] = float64(len(y)) / (float64(k) * float64(counts[c]))
	}
	return w
}

func softmax(z []float64) {
	if len(z) == 0 {
		return
	}
	m := floats.Max(z)
	var sum float64
	for i := range z {
		z[i] = math.Exp(z[i] - m)
		sum += z[i]
	}
	for i := range z {
		z[i] /= sum
	}
}

// argmax returns the first index holding the maximum value.
func argmax(v []float64) int {
	best := 0
	for i := 1; i < len(v); i++ {
		if v[i] > v[best] {
			best = i
		}
	}
	return best
}
