package entity

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"
	"unicode/utf8"
)

// Completer is the completion capability the LLM extractor needs.
type Completer interface {
	Complete(ctx context.Context, prompt, system string) (string, error)
}

// LLMExtractor asks a language model to list entities and maps each reported
// span back onto the input. Spans the model invents are dropped.
type LLMExtractor struct {
	completer Completer
	labels    []string
}

var _ Extractor = (*LLMExtractor)(nil)

// DefaultLabels are the spaCy-style labels used when none are configured.
func DefaultLabels() []string {
	return []string{"PER", "LOC", "ORG", "MISC"}
}

func NewLLMExtractor(c Completer, labels []string) *LLMExtractor {
	if len(labels) == 0 {
		labels = DefaultLabels()
	}
	return &LLMExtractor{completer: c, labels: labels}
}

func (e *LLMExtractor) Labels() []string { return append([]string(nil), e.labels...) }

func (e *LLMExtractor) Extract(ctx context.Context, text string) ([]Entity, error) {
	if e.completer == nil {
		return nil, ErrUnavailable
	}
	if strings.TrimSpace(text) == "" {
		return []Entity{}, nil
	}

	system := fmt.Sprintf(`Extract named entities from the user's message.
Allowed labels: %s.
Reply with ONLY a JSON array: [{"text": "exact substring", "label": "LABEL"}]. Reply [] when there are none.`,
		strings.Join(e.labels, ", "))

	reply, err := e.completer.Complete(ctx, text, system)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrUnavailable, err)
	}

	content := strings.TrimSpace(reply)
	content = strings.TrimPrefix(content, "```json")
	content = strings.TrimPrefix(content, "```")
	content = strings.TrimSuffix(content, "```")
	content = strings.TrimSpace(content)

	var raw []struct {
		Text  string `json:"text"`
		Label string `json:"label"`
	}
	if err := json.Unmarshal([]byte(content), &raw); err != nil {
		return nil, fmt.Errorf("parse entity reply: %w", err)
	}

	allowed := make(map[string]bool, len(e.labels))
	for _, l := range e.labels {
		allowed[l] = true
	}

	ents := []Entity{}
	cursor := 0
	for _, r := range raw {
		if r.Text == "" || !allowed[r.Label] {
			continue
		}
		idx := strings.Index(text[cursor:], r.Text)
		if idx < 0 {
			// Out of order; search from the beginning.
			if idx = strings.Index(text, r.Text); idx < 0 {
				continue
			}
		} else {
			idx += cursor
		}
		end := idx + len(r.Text)
		ents = append(ents, Entity{
			Text:  r.Text,
			Label: r.Label,
			Start: utf8.RuneCountInString(text[:idx]),
			End:   utf8.RuneCountInString(text[:end]),
		})
		cursor = end
	}
	return ents, nil
}
