package intent

import (
	"encoding/json"
	"fmt"
	"io"
	"math"
	"os"
	"sort"

	"github.com/nikhilbhutani/voiceassistant/internal/nlp/features"
	"github.com/nikhilbhutani/voiceassistant/pkg/atomicfile"
)

const bundleFormat = "voiceassistant.intent-model/v1"

// bundle is the on-disk form of a trained Model. Vectorizer, classifier and
// metadata always travel together.
type bundle struct {
	Format     string          `json:"format"`
	Vectorizer vectorizerState `json:"vectorizer"`
	Classifier classifierState `json:"classifier"`
	Metadata   Metadata        `json:"metadata"`
}

type vectorizerState struct {
	Terms       []string  `json:"terms"`
	IDF         []float64 `json:"idf"`
	MaxFeatures int       `json:"max_features"`
	NGramRange  [2]int    `json:"ngram_range"`
}

type classifierState struct {
	Classes    []string    `json:"classes"`
	Weights    [][]float64 `json:"weights"`
	Intercepts []float64   `json:"intercepts"`
}

// Save writes the model to path. The file is replaced atomically, so a
// concurrent Load sees either the previous bundle or the new one.
func (m *Model) Save(path string) error {
	if !m.trained {
		return ErrNotTrained
	}
	lr, ok := m.estimator.(*LogisticRegression)
	if !ok {
		return fmt.Errorf("save model: estimator %T cannot be persisted", m.estimator)
	}

	fcfg := m.vectorizer.Config()
	b := bundle{
		Format: bundleFormat,
		Vectorizer: vectorizerState{
			Terms:       m.vectorizer.Terms(),
			IDF:         m.vectorizer.IDF(),
			MaxFeatures: fcfg.MaxFeatures,
			NGramRange:  [2]int{fcfg.NGramMin, fcfg.NGramMax},
		},
		Classifier: classifierState{
			Classes:    lr.Classes(),
			Weights:    lr.weights,
			Intercepts: lr.intercepts,
		},
		Metadata: m.meta,
	}

	err := atomicfile.Write(path, 0o644, func(w io.Writer) error {
		return json.NewEncoder(w).Encode(b)
	})
	if err != nil {
		return fmt.Errorf("save model %s: %w", path, err)
	}
	m.logger.Info("intent model saved", "path", path, "classes", len(lr.classes), "features", m.vectorizer.Dim())
	return nil
}

// Load replaces the model state with the bundle stored at path. On any error
// the current state is kept.
func (m *Model) Load(path string) error {
	data, err := os.ReadFile(path)
	if err != nil {
		return fmt.Errorf("%w: %s: %v", ErrModelNotFound, path, err)
	}

	var b bundle
	if err := json.Unmarshal(data, &b); err != nil {
		return corrupt(path, "decode: %v", err)
	}
	vec, est, err := b.decode()
	if err != nil {
		return corrupt(path, "%v", err)
	}

	m.vectorizer = vec
	m.estimator = est
	m.meta = b.Metadata
	m.trained = true

	m.logger.Info("intent model loaded", "path", path, "classes", len(est.classes), "features", vec.Dim(),
		"trained_at", b.Metadata.TrainedAt)
	return nil
}

func (b *bundle) decode() (*features.Vectorizer, *LogisticRegression, error) {
	if b.Format != bundleFormat {
		return nil, nil, fmt.Errorf("unknown format %q", b.Format)
	}

	vs := b.Vectorizer
	vec, err := features.Restore(features.Config{
		MaxFeatures: vs.MaxFeatures,
		NGramMin:    vs.NGramRange[0],
		NGramMax:    vs.NGramRange[1],
	}, vs.Terms, vs.IDF)
	if err != nil {
		return nil, nil, fmt.Errorf("vectorizer: %v", err)
	}

	cs := b.Classifier
	k, d := len(cs.Classes), vec.Dim()
	if k == 0 {
		return nil, nil, fmt.Errorf("classifier has no classes")
	}
	if !sort.StringsAreSorted(cs.Classes) {
		return nil, nil, fmt.Errorf("classifier classes are not sorted")
	}
	for i := 1; i < k; i++ {
		if cs.Classes[i] == cs.Classes[i-1] {
			return nil, nil, fmt.Errorf("duplicate class %q", cs.Classes[i])
		}
	}
	if len(cs.Weights) != k || len(cs.Intercepts) != k {
		return nil, nil, fmt.Errorf("classifier has %d classes, %d weight rows and %d intercepts",
			k, len(cs.Weights), len(cs.Intercepts))
	}
	for c, row := range cs.Weights {
		if len(row) != d {
			return nil, nil, fmt.Errorf("weight row %d has dimension %d, vocabulary has %d terms", c, len(row), d)
		}
		if !finite(row) {
			return nil, nil, fmt.Errorf("weight row %d has non-finite values", c)
		}
	}
	if !finite(cs.Intercepts) {
		return nil, nil, fmt.Errorf("intercepts have non-finite values")
	}

	labels := make(map[string]struct{}, len(b.Metadata.Labels))
	for _, l := range b.Metadata.Labels {
		labels[l] = struct{}{}
	}
	for _, c := range cs.Classes {
		if _, ok := labels[c]; !ok {
			return nil, nil, fmt.Errorf("class %q missing from metadata labels", c)
		}
	}

	return vec, &LogisticRegression{
		classes:    cs.Classes,
		weights:    cs.Weights,
		intercepts: cs.Intercepts,
		iterations: b.Metadata.Iterations,
	}, nil
}

func corrupt(path, format string, args ...any) error {
	return fmt.Errorf("%w: %s: %s", ErrCorruptModel, path, fmt.Sprintf(format, args...))
}

func finite(v []float64) bool {
	for _, x := range v {
		if math.IsNaN(x) || math.IsInf(x, 0) {
			return false
		}
	}
	return true
}
