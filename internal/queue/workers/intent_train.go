package workers

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"

	"github.com/hibiken/asynq"

	"github.com/nikhilbhutani/voiceassistant/internal/nlp/intent"
	"github.com/nikhilbhutani/voiceassistant/internal/queue"
	"github.com/nikhilbhutani/voiceassistant/internal/training"
)

type Trainer interface {
	Run(ctx context.Context, job training.Job) (*training.Report, error)
}

// IntentTrainWorker handles intent:train tasks.
type IntentTrainWorker struct {
	trainer  Trainer
	defaults training.Job
}

func NewIntentTrainWorker(trainer Trainer, defaults training.Job) *IntentTrainWorker {
	return &IntentTrainWorker{trainer: trainer, defaults: defaults}
}

func (w *IntentTrainWorker) ProcessTask(ctx context.Context, t *asynq.Task) error {
	var payload queue.IntentTrainPayload
	if err := json.Unmarshal(t.Payload(), &payload); err != nil {
		return fmt.Errorf("unmarshal payload: %v: %w", err, asynq.SkipRetry)
	}

	job := w.defaults
	if payload.DatasetPath != "" {
		job.DatasetPath = payload.DatasetPath
	}
	if payload.ModelPath != "" {
		job.ModelPath = payload.ModelPath
	}
	if payload.ValidationFraction != nil {
		job.ValidationFraction = *payload.ValidationFraction
	}

	slog.Info("running intent training task", "dataset", job.DatasetPath, "model", job.ModelPath, "requested_by", payload.RequestedBy)

	report, err := w.trainer.Run(ctx, job)
	if err != nil {
		// Bad data will not fix itself on retry.
		if errors.Is(err, training.ErrInvalidDataset) || errors.Is(err, intent.ErrInvalidInput) {
			return fmt.Errorf("intent training: %v: %w", err, asynq.SkipRetry)
		}
		return fmt.Errorf("intent training: %w", err)
	}

	// Tasks built outside a server have no result writer.
	if rw := t.ResultWriter(); rw != nil {
		if res, err := json.Marshal(report); err == nil {
			if _, err := rw.Write(res); err != nil {
				slog.Warn("could not write task result", "error", err)
			}
		}
	}
	return nil
}
