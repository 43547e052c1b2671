// Package dialogue turns an utterance into a structured reply: predicted
// intent, extracted entities and a templated response.
package dialogue

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"github.com/nikhilbhutani/voiceassistant/internal/metrics"
	"github.com/nikhilbhutani/voiceassistant/internal/nlp/entity"
	"github.com/nikhilbhutani/voiceassistant/internal/nlp/intent"
)

type IntentPredictor interface {
	Predict(text string) (string, error)
}

// ConfidencePredictor is implemented by predictors that also report the
// probability of the predicted label.
type ConfidencePredictor interface {
	PredictProba(text string) (intent.Prediction, error)
}

type Result struct {
	Intent     *string         `json:"intent"`
	Confidence *float64        `json:"confidence,omitempty"`
	Entities   []entity.Entity `json:"entities"`
	Response   string          `json:"response"`
}

type Orchestrator struct {
	predictor IntentPredictor
	extractor entity.Extractor
	templates *Templates
	logger    *slog.Logger
}

// New builds an orchestrator. A nil extractor is allowed and yields no
// entities; nil templates are a configuration error.
func New(predictor IntentPredictor, extractor entity.Extractor, templates *Templates) (*Orchestrator, error) {
	if templates == nil {
		return nil, ErrMissingTemplates
	}
	if predictor == nil {
		return nil, errors.New("dialogue: intent predictor is required")
	}
	logger := slog.Default().With("component", "dialogue")
	if extractor == nil {
		logger.Warn("entity extractor unavailable, replies will carry no entities")
	}
	return &Orchestrator{
		predictor: predictor,
		extractor: extractor,
		templates: templates,
		logger:    logger,
	}, nil
}

func (o *Orchestrator) Templates() *Templates { return o.templates }

// Process never fails because of a provider: intent and entity failures are
// logged and replaced with null and an empty list. The only error is a
// misconfigured orchestrator.
func (o *Orchestrator) Process(ctx context.Context, input any) (*Result, error) {
	if o == nil || o.templates == nil {
		return nil, ErrMissingTemplates
	}

	text, ok := input.(string)
	if !ok {
		o.logger.Error("invalid input, expected a string", "type", fmt.Sprintf("%T", input))
		return &Result{Entities: []entity.Entity{}, Response: o.templates.InvalidInput}, nil
	}

	res := &Result{Entities: []entity.Entity{}}
	o.predict(text, res)
	res.Entities = o.extract(ctx, text)

	if res.Intent != nil {
		res.Response = o.templates.Lookup(*res.Intent)
	} else {
		res.Response = o.templates.Fallback
	}
	return res, nil
}

func (o *Orchestrator) predict(text string, res *Result) {
	if cp, ok := o.predictor.(ConfidencePredictor); ok {
		p, err := cp.PredictProba(text)
		if err != nil {
			o.providerFailed("intent", err)
			return
		}
		res.Intent, res.Confidence = &p.Label, &p.Confidence
	} else {
		label, err := o.predictor.Predict(text)
		if err != nil {
			o.providerFailed("intent", err)
			return
		}
		res.Intent = &label
	}
	metrics.IntentPredictions.WithLabelValues(*res.Intent).Inc()
}

func (o *Orchestrator) extract(ctx context.Context, text string) []entity.Entity {
	if o.extractor == nil {
		return []entity.Entity{}
	}
	ents, err := o.extractor.Extract(ctx, text)
	if err != nil {
		o.providerFailed("entity", err)
		return []entity.Entity{}
	}
	if ents == nil {
		return []entity.Entity{}
	}
	return ents
}

func (o *Orchestrator) providerFailed(provider string, err error) {
	metrics.ProviderFailures.WithLabelValues(provider).Inc()
	level := slog.LevelError
	if errors.Is(err, intent.ErrNotTrained) {
		level = slog.LevelWarn
	}
	o.logger.Log(context.Background(), level, "provider failed, continuing without it", "provider", provider, "error", err)
}
