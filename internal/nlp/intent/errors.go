package intent

import (
	"errors"

	"github.com/nikhilbhutani/voiceassistant/internal/nlp/features"
)

// Errors returned by Model and Registry. Callers match them with errors.Is.
var (
	ErrInvalidInput  = features.ErrInvalidInput
	ErrNotFitted     = features.ErrNotFitted
	ErrNotTrained    = errors.New("intent model not trained")
	ErrModelNotFound = errors.New("intent model not found")
	ErrCorruptModel  = errors.New("intent model corrupt")
)
