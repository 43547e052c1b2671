// Package intent trains and serves the utterance intent classifier: TF-IDF
// features feeding a class-balanced multinomial logistic regression.
package intent

import (
	"fmt"
	"log/slog"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/nikhilbhutani/voiceassistant/internal/nlp/features"
)

const (
	ClassWeightBalanced = "balanced"
	ClassWeightNone     = "none"

	DefaultValidationFraction = 0.2
	modelVersion              = "1.0"
)

type Config struct {
	Features    features.Config
	C           float64
	MaxIter     int
	Tolerance   float64
	Seed        uint64
	ClassWeight string
}

func DefaultConfig() Config {
	return Config{
		Features:    features.DefaultConfig(),
		C:           1.0,
		MaxIter:     1000,
		Tolerance:   1e-4,
		Seed:        42,
		ClassWeight: ClassWeightBalanced,
	}
}

func (c Config) withDefaults() Config {
	d := DefaultConfig()
	if c.C <= 0 {
		c.C = d.C
	}
	if c.MaxIter <= 0 {
		c.MaxIter = d.MaxIter
	}
	if c.Tolerance <= 0 {
		c.Tolerance = d.Tolerance
	}
	if c.ClassWeight == "" {
		c.ClassWeight = d.ClassWeight
	}
	return c
}

type Hyperparameters struct {
	MaxFeatures        int     `json:"max_features"`
	NGramRange         [2]int  `json:"ngram_range"`
	C                  float64 `json:"c"`
	MaxIter            int     `json:"max_iter"`
	Tolerance          float64 `json:"tolerance"`
	ClassWeight        string  `json:"class_weight"`
	Seed               uint64  `json:"seed"`
	ValidationFraction float64 `json:"validation_fraction"`
}

type Metadata struct {
	Version         string          `json:"version,omitempty"`
	TrainedAt       string          `json:"trained_at,omitempty"`
	Labels          []string        `json:"labels"`
	Hyperparameters Hyperparameters `json:"hyperparameters"`
	Metrics         *Metrics        `json:"metrics,omitempty"`
	TrainSize       int             `json:"train_size"`
	ValidationSize  int             `json:"validation_size"`
	Stratified      bool            `json:"stratified"`
	Iterations      int             `json:"iterations,omitempty"`
}

type Prediction struct {
	Label      string  `json:"label"`
	Confidence float64 `json:"confidence"`
}

type Info struct {
	Trained  bool     `json:"is_trained"`
	Metadata Metadata `json:"metadata"`
	Classes  []string `json:"classes"`
}

// Model is not safe for concurrent mutation. Train and Load replace the whole
// state; concurrent readers must be serialized against them by the caller,
// which is what Registry does.
type Model struct {
	cfg        Config
	vectorizer *features.Vectorizer
	estimator  Estimator
	meta       Metadata
	trained    bool

	probaWarn sync.Once
	logger    *slog.Logger
}

func New(cfg Config) *Model {
	return &Model{
		cfg:    cfg.withDefaults(),
		logger: slog.Default().With("component", "intent"),
	}
}

// Train fits a fresh vectorizer and classifier and replaces the model state.
// It returns metrics measured on the held-out validation partition.
func (m *Model) Train(texts, labels []string, validationFraction float64) (*Metrics, error) {
	if len(texts) == 0 || len(labels) == 0 {
		return nil, fmt.Errorf("%w: training data is empty", ErrInvalidInput)
	}
	if len(texts) != len(labels) {
		return nil, fmt.Errorf("%w: %d texts but %d labels", ErrInvalidInput, len(texts), len(labels))
	}
	if validationFraction < 0 || validationFraction >= 1 {
		return nil, fmt.Errorf("%w: validation fraction %v outside [0, 1)", ErrInvalidInput, validationFraction)
	}
	for i := range texts {
		if strings.TrimSpace(texts[i]) == "" {
			return nil, fmt.Errorf("%w: example %d has empty text", ErrInvalidInput, i)
		}
		if strings.TrimSpace(labels[i]) == "" {
			return nil, fmt.Errorf("%w: example %d has empty label", ErrInvalidInput, i)
		}
	}

	start := time.Now()
	parts := splitIndices(labels, validationFraction, m.cfg.Seed)
	if !parts.stratified && len(parts.validation) > 0 {
		m.logger.Debug("falling back to unstratified split", "examples", len(texts))
	}

	trainTexts, trainLabels := pick(texts, parts.train), pick(labels, parts.train)

	vec := features.NewVectorizer(m.cfg.Features)
	X, err := vec.FitTransform(trainTexts)
	if err != nil {
		return nil, fmt.Errorf("fit features: %w", err)
	}

	classes := uniqueSorted(trainLabels)
	classIndex := make(map[string]int, len(classes))
	for i, c := range classes {
		classIndex[c] = i
	}
	y := make([]int, len(trainLabels))
	for i, l := range trainLabels {
		y[i] = classIndex[l]
	}

	var sw []float64
	if m.cfg.ClassWeight == ClassWeightBalanced {
		sw = balancedWeights(y, len(classes))
	} else {
		sw = make([]float64, len(y))
		for i := range sw {
			sw[i] = 1
		}
	}

	est := fitLogistic(X, y, classes, sw, fitParams{C: m.cfg.C, MaxIter: m.cfg.MaxIter, Tolerance: m.cfg.Tolerance})

	evalTexts, evalLabels, evaluatedOn := pick(texts, parts.validation), pick(labels, parts.validation), evaluatedOnValidation
	if len(parts.validation) == 0 {
		evalTexts, evalLabels, evaluatedOn = trainTexts, trainLabels, evaluatedOnTrain
	}
	evalX, err := vec.Transform(evalTexts)
	if err != nil {
		return nil, fmt.Errorf("transform evaluation set: %w", err)
	}
	preds := make([]string, len(evalX))
	for i, x := range evalX {
		preds[i] = est.Predict(x)
	}
	metrics := evaluate(evalLabels, preds)
	metrics.EvaluatedOn = evaluatedOn

	fcfg := vec.Config()
	m.vectorizer = vec
	m.estimator = est
	m.meta = Metadata{
		Version:   modelVersion,
		TrainedAt: time.Now().UTC().Format(time.RFC3339),
		Labels:    uniqueSorted(labels),
		Hyperparameters: Hyperparameters{
			MaxFeatures:        fcfg.MaxFeatures,
			NGramRange:         [2]int{fcfg.NGramMin, fcfg.NGramMax},
			C:                  m.cfg.C,
			MaxIter:            m.cfg.MaxIter,
			Tolerance:          m.cfg.Tolerance,
			ClassWeight:        m.cfg.ClassWeight,
			Seed:               m.cfg.Seed,
			ValidationFraction: validationFraction,
		},
		Metrics:        &metrics,
		TrainSize:      len(parts.train),
		ValidationSize: len(parts.validation),
		Stratified:     parts.stratified,
		Iterations:     est.Iterations(),
	}
	m.trained = true

	m.logger.Info("intent model trained",
		"examples", len(texts),
		"classes", len(classes),
		"features", vec.Dim(),
		"iterations", est.Iterations(),
		"accuracy", metrics.Accuracy,
		"f1_weighted", metrics.F1Weighted,
		"duration_ms", time.Since(start).Milliseconds(),
	)
	result := metrics
	return &result, nil
}

func (m *Model) Trained() bool { return m.trained }

func (m *Model) Predict(text string) (string, error) {
	x, err := m.vectorize(text)
	if err != nil {
		return "", err
	}
	return m.estimator.Predict(x), nil
}

// PredictProba returns the predicted label and its probability. Estimators
// without probability output report a confidence of exactly 1.0.
func (m *Model) PredictProba(text string) (Prediction, error) {
	x, err := m.vectorize(text)
	if err != nil {
		return Prediction{}, err
	}
	pe, ok := m.estimator.(ProbabilisticEstimator)
	if !ok {
		m.probaWarn.Do(func() {
			m.logger.Warn("estimator has no probability output, reporting confidence 1.0",
				"estimator", fmt.Sprintf("%T", m.estimator))
		})
		return Prediction{Label: m.estimator.Predict(x), Confidence: 1.0}, nil
	}
	probs := pe.PredictProba(x)
	best := argmax(probs)
	conf := min(max(probs[best], 0), 1)
	return Prediction{Label: pe.Classes()[best], Confidence: conf}, nil
}

// PredictBatch predicts each text independently; output order matches input.
func (m *Model) PredictBatch(texts []string) ([]string, error) {
	if !m.trained {
		return nil, ErrNotTrained
	}
	X, err := m.vectorizer.Transform(texts)
	if err != nil {
		return nil, err
	}
	out := make([]string, len(X))
	for i, x := range X {
		out[i] = m.estimator.Predict(x)
	}
	return out, nil
}

// Info never fails; an untrained model reports empty metadata.
func (m *Model) Info() Info {
	info := Info{Trained: m.trained, Classes: []string{}, Metadata: Metadata{Labels: []string{}}}
	if !m.trained {
		return info
	}
	info.Classes = m.estimator.Classes()
	info.Metadata = m.meta
	info.Metadata.Labels = append([]string(nil), m.meta.Labels...)
	return info
}

func (m *Model) vectorize(text string) ([]float64, error) {
	if !m.trained {
		return nil, ErrNotTrained
	}
	rows, err := m.vectorizer.Transform([]string{text})
	if err != nil {
		return nil, err
	}
	return rows[0], nil
}

func pick(values []string, idx []int) []string {
	out := make([]string, len(idx))
	for i, j := range idx {
		out[i] = values[j]
	}
	return out
}

func uniqueSorted(values []string) []string {
	seen := make(map[string]struct{}, len(values))
	out := make([]string, 0)
	for _, v := range values {
		if _, ok := seen[v]; !ok {
			seen[v] = struct{}{}
			out = append(out, v)
		}
	}
	sort.Strings(out)
	return out
}
