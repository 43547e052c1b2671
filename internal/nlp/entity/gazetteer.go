package entity

import (
	"context"
	"fmt"
	"os"
	"sort"
	"strings"
	"unicode/utf8"

	"gopkg.in/yaml.v3"

	"github.com/nikhilbhutani/voiceassistant/pkg/tokenizer"
)

// GazetteerEntry lists the phrases that mark an entity label.
type GazetteerEntry struct {
	Label   string   `yaml:"label"`
	Phrases []string `yaml:"phrases"`
}

type gazetteerFile struct {
	Entities []GazetteerEntry `yaml:"entities"`
}

// Gazetteer matches known phrases, ignoring case and accents. At each
// position the longest phrase wins.
type Gazetteer struct {
	phrases map[string]string // folded phrase -> label
	longest int               // in words
	labels  []string
}

var _ Extractor = (*Gazetteer)(nil)

func NewGazetteer(entries []GazetteerEntry) *Gazetteer {
	g := &Gazetteer{phrases: make(map[string]string)}
	seen := map[string]bool{}
	for _, e := range entries {
		for _, p := range e.Phrases {
			words := tokenizer.Words(tokenizer.Fold(p))
			if len(words) == 0 {
				continue
			}
			g.phrases[strings.Join(words, " ")] = e.Label
			g.longest = max(g.longest, len(words))
		}
		if !seen[e.Label] {
			seen[e.Label] = true
			g.labels = append(g.labels, e.Label)
		}
	}
	sort.Strings(g.labels)
	return g
}

// LoadGazetteer reads a YAML file of the form:
//
//	entities:
//	  - label: LOC
//	    phrases: [São Paulo, Rio de Janeiro]
func LoadGazetteer(path string) (*Gazetteer, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read gazetteer: %w", err)
	}
	var f gazetteerFile
	if err := yaml.Unmarshal(data, &f); err != nil {
		return nil, fmt.Errorf("parse gazetteer %s: %w", path, err)
	}
	return NewGazetteer(f.Entities), nil
}

func (g *Gazetteer) Labels() []string { return append([]string(nil), g.labels...) }

type span struct {
	word       string
	start, end int // byte offsets
}

func (g *Gazetteer) Extract(ctx context.Context, text string) ([]Entity, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	spans := wordSpans(text)
	ents := []Entity{}
	for i := 0; i < len(spans); {
		matched := 0
		for n := min(g.longest, len(spans)-i); n > 0; n-- {
			parts := make([]string, n)
			for k := 0; k < n; k++ {
				parts[k] = spans[i+k].word
			}
			label, ok := g.phrases[strings.Join(parts, " ")]
			if !ok {
				continue
			}
			start, end := spans[i].start, spans[i+n-1].end
			ents = append(ents, Entity{
				Text:  text[start:end],
				Label: label,
				Start: utf8.RuneCountInString(text[:start]),
				End:   utf8.RuneCountInString(text[:end]),
			})
			matched = n
			break
		}
		if matched == 0 {
			matched = 1
		}
		i += matched
	}
	return ents, nil
}

func wordSpans(text string) []span {
	var spans []span
	start := -1
	for i, r := range text {
		if tokenizer.IsWordRune(r) {
			if start < 0 {
				start = i
			}
			continue
		}
		if start >= 0 {
			spans = append(spans, span{word: tokenizer.Fold(text[start:i]), start: start, end: i})
			start = -1
		}
	}
	if start >= 0 {
		spans = append(spans, span{word: tokenizer.Fold(text[start:]), start: start, end: len(text)})
	}
	return spans
}
