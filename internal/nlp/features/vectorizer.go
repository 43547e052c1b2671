// Package features turns utterances into TF-IDF vectors over word n-grams.
package features

import (
	"errors"
	"fmt"
	"math"
	"sort"
	"strings"

	"gonum.org/v1/gonum/floats"

	"github.com/nikhilbhutani/voiceassistant/pkg/tokenizer"
)

var (
	ErrInvalidInput = errors.New("invalid input")
	ErrNotFitted    = errors.New("vectorizer not fitted")
)

const (
	DefaultMaxFeatures = 20000
	minTokenLen        = 2
)

// Config controls vocabulary construction.
type Config struct {
	MaxFeatures int `json:"max_features"`
	NGramMin    int `json:"ngram_min"`
	NGramMax    int `json:"ngram_max"`
}

func DefaultConfig() Config {
	return Config{MaxFeatures: DefaultMaxFeatures, NGramMin: 1, NGramMax: 2}
}

func (c Config) withDefaults() Config {
	d := DefaultConfig()
	if c.MaxFeatures <= 0 {
		c.MaxFeatures = d.MaxFeatures
	}
	if c.NGramMin <= 0 {
		c.NGramMin = d.NGramMin
	}
	if c.NGramMax < c.NGramMin {
		c.NGramMax = max(c.NGramMin, d.NGramMax)
	}
	return c
}

// Vectorizer maps text to L2-normalized TF-IDF vectors. The vocabulary is
// fixed by Fit (or Restore) and never grows during Transform.
type Vectorizer struct {
	cfg   Config
	index map[string]int
	terms []string
	idf   []float64
}

func NewVectorizer(cfg Config) *Vectorizer {
	return &Vectorizer{cfg: cfg.withDefaults()}
}

// Restore rebuilds a fitted vectorizer from persisted terms and IDF weights.
func Restore(cfg Config, terms []string, idf []float64) (*Vectorizer, error) {
	if len(terms) == 0 {
		return nil, fmt.Errorf("%w: empty vocabulary", ErrInvalidInput)
	}
	if len(terms) != len(idf) {
		return nil, fmt.Errorf("%w: %d terms but %d idf weights", ErrInvalidInput, len(terms), len(idf))
	}
	v := NewVectorizer(cfg)
	v.index = make(map[string]int, len(terms))
	for i, t := range terms {
		if _, dup := v.index[t]; dup {
			return nil, fmt.Errorf("%w: duplicate term %q", ErrInvalidInput, t)
		}
		if w := idf[i]; math.IsNaN(w) || math.IsInf(w, 0) || w <= 0 {
			return nil, fmt.Errorf("%w: invalid idf %v for term %q", ErrInvalidInput, w, t)
		}
		v.index[t] = i
	}
	v.terms = append([]string(nil), terms...)
	v.idf = append([]float64(nil), idf...)
	return v, nil
}

func (v *Vectorizer) Config() Config { return v.cfg }

func (v *Vectorizer) Fitted() bool { return v.index != nil }

// Dim is the length of every vector produced by Transform.
func (v *Vectorizer) Dim() int { return len(v.terms) }

// Terms returns the vocabulary in column order.
func (v *Vectorizer) Terms() []string { return append([]string(nil), v.terms...) }

func (v *Vectorizer) IDF() []float64 { return append([]float64(nil), v.idf...) }

// Analyze returns the n-grams extracted from text, in order of appearance,
// unigrams first.
func (v *Vectorizer) Analyze(text string) []string {
	tokens := tokenizer.Tokens(text, minTokenLen)
	var grams []string
	for n := v.cfg.NGramMin; n <= v.cfg.NGramMax; n++ {
		for i := 0; i+n <= len(tokens); i++ {
			if n == 1 {
				grams = append(grams, tokens[i])
				continue
			}
			grams = append(grams, strings.Join(tokens[i:i+n], " "))
		}
	}
	return grams
}

// Fit builds the vocabulary and IDF weights from texts, replacing any
// previous state.
func (v *Vectorizer) Fit(texts []string) error {
	if len(texts) == 0 {
		return fmt.Errorf("%w: no texts to fit", ErrInvalidInput)
	}

	df := make(map[string]int)
	total := make(map[string]int)
	for _, text := range texts {
		seen := make(map[string]struct{})
		for _, g := range v.Analyze(text) {
			total[g]++
			if _, ok := seen[g]; !ok {
				seen[g] = struct{}{}
				df[g]++
			}
		}
	}
	if len(df) == 0 {
		return fmt.Errorf("%w: empty vocabulary, texts contain no usable tokens", ErrInvalidInput)
	}

	n := float64(len(texts))
	terms := make([]string, 0, len(df))
	idf := make(map[string]float64, len(df))
	for t, d := range df {
		terms = append(terms, t)
		idf[t] = math.Log((1+n)/(1+float64(d))) + 1
	}

	if len(terms) > v.cfg.MaxFeatures {
		mass := func(t string) float64 { return float64(total[t]) * idf[t] }
		sort.Slice(terms, func(i, j int) bool {
			mi, mj := mass(terms[i]), mass(terms[j])
			if mi != mj {
				return mi > mj
			}
			return terms[i] < terms[j]
		})
		terms = terms[:v.cfg.MaxFeatures]
	}
	sort.Strings(terms)

	index := make(map[string]int, len(terms))
	weights := make([]float64, len(terms))
	for i, t := range terms {
		index[t] = i
		weights[i] = idf[t]
	}

	v.index, v.terms, v.idf = index, terms, weights
	return nil
}

// Transform maps each text to a vector of Dim() non-negative weights.
func (v *Vectorizer) Transform(texts []string) ([][]float64, error) {
	if !v.Fitted() {
		return nil, ErrNotFitted
	}
	out := make([][]float64, len(texts))
	for i, text := range texts {
		out[i] = v.vector(text)
	}
	return out, nil
}

func (v *Vectorizer) FitTransform(texts []string) ([][]float64, error) {
	if err := v.Fit(texts); err != nil {
		return nil, err
	}
	return v.Transform(texts)
}

func (v *Vectorizer) vector(text string) []float64 {
	row := make([]float64, len(v.terms))
	for _, g := range v.Analyze(text) {
		if j, ok := v.index[g]; ok {
			row[j]++
		}
	}
	floats.Mul(row, v.idf)
	if norm := floats.Norm(row, 2); norm > 0 {
		floats.Scale(1/norm, row)
	}
	return row
}
