// Package entity extracts named entities from utterances.
package entity

import (
	"context"
	"errors"
)

var ErrUnavailable = errors.New("entity extractor unavailable")

// Entity is a labelled span of the input. Start and End are rune offsets,
// End exclusive.
type Entity struct {
	Text  string `json:"text"`
	Label string `json:"label"`
	Start int    `json:"start"`
	End   int    `json:"end"`
}

type Extractor interface {
	Extract(ctx context.Context, text string) ([]Entity, error)
	Labels() []string
}

// HasEntities reports whether ex finds at least one entity in text.
func HasEntities(ctx context.Context, ex Extractor, text string) (bool, error) {
	if ex == nil {
		return false, ErrUnavailable
	}
	ents, err := ex.Extract(ctx, text)
	if err != nil {
		return false, err
	}
	return len(ents) > 0, nil
}
