// Package training fits intent models from JSONL datasets and publishes
// them for the API to reload.
package training

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"sort"
	"time"

	"github.com/google/uuid"

	"github.com/nikhilbhutani/voiceassistant/internal/cache"
	"github.com/nikhilbhutani/voiceassistant/internal/metrics"
	"github.com/nikhilbhutani/voiceassistant/internal/models"
	"github.com/nikhilbhutani/voiceassistant/internal/nlp/intent"
)

// Notifier announces a freshly written model.
type Notifier interface {
	Publish(ctx context.Context, u cache.ModelUpdate) error
}

type Job struct {
	DatasetPath        string  `json:"dataset_path"`
	ModelPath          string  `json:"model_path"`
	ValidationFraction float64 `json:"validation_fraction"`
}

type Report struct {
	RunID    uuid.UUID      `json:"run_id"`
	Examples int            `json:"examples"`
	Metrics  intent.Metrics `json:"metrics"`
	Info     intent.Info    `json:"info"`
	Duration time.Duration  `json:"duration"`
}

type Service struct {
	cfg      intent.Config
	runs     RunStore
	notifier Notifier
	logger   *slog.Logger
}

// NewService builds a trainer. runs and notifier are optional.
func NewService(cfg intent.Config, runs RunStore, notifier Notifier) *Service {
	return &Service{
		cfg:      cfg,
		runs:     runs,
		notifier: notifier,
		logger:   slog.Default().With("component", "training"),
	}
}

func (s *Service) Run(ctx context.Context, job Job) (*Report, error) {
	start := time.Now()
	run := &models.TrainingRun{
		ID:          uuid.New(),
		DatasetPath: job.DatasetPath,
		ModelPath:   job.ModelPath,
		Status:      models.TrainingStatusRunning,
		Labels:      []string{},
		StartedAt:   start.UTC(),
	}
	if s.runs != nil {
		if err := s.runs.Start(ctx, run); err != nil {
			s.logger.Warn("could not record training run", "run_id", run.ID, "error", err)
		}
	}
	logger := s.logger.With("run_id", run.ID)
	logger.Info("training started", "dataset", job.DatasetPath, "model", job.ModelPath)

	report, err := s.train(ctx, job, run)
	elapsed := time.Since(start)
	metrics.TrainingDuration.Observe(elapsed.Seconds())

	finished := time.Now().UTC()
	run.CompletedAt = &finished
	if err != nil {
		run.Status = models.TrainingStatusFailed
		run.Error = err.Error()
		metrics.TrainingRuns.WithLabelValues(models.TrainingStatusFailed).Inc()
		logger.Error("training failed", "error", err)
	} else {
		run.Status = models.TrainingStatusSucceeded
		metrics.TrainingRuns.WithLabelValues(models.TrainingStatusSucceeded).Inc()
	}
	if s.runs != nil {
		if ferr := s.runs.Finish(context.WithoutCancel(ctx), run); ferr != nil {
			logger.Warn("could not finish training run record", "error", ferr)
		}
	}
	if err != nil {
		return nil, err
	}

	report.RunID = run.ID
	report.Duration = elapsed
	if s.notifier != nil {
		u := cache.ModelUpdate{Path: job.ModelPath, RunID: run.ID.String(), TrainedAt: report.Info.Metadata.TrainedAt}
		if err := s.notifier.Publish(ctx, u); err != nil {
			logger.Warn("model reload notification failed", "error", err)
		}
	}
	logger.Info("training finished",
		"examples", report.Examples,
		"accuracy", report.Metrics.Accuracy,
		"evaluated_on", report.Metrics.EvaluatedOn,
		"duration_ms", elapsed.Milliseconds(),
	)
	return report, nil
}

func (s *Service) train(ctx context.Context, job Job, run *models.TrainingRun) (*Report, error) {
	if job.DatasetPath == "" || job.ModelPath == "" {
		return nil, fmt.Errorf("%w: dataset and model paths are required", intent.ErrInvalidInput)
	}
	ds, err := LoadDataset(job.DatasetPath)
	if err != nil {
		return nil, err
	}
	run.Examples = ds.Len()
	run.Labels = labels(ds)

	if err := ctx.Err(); err != nil {
		return nil, err
	}

	m := intent.New(s.cfg)
	mt, err := m.Train(ds.Texts, ds.Labels, job.ValidationFraction)
	if err != nil {
		return nil, fmt.Errorf("train intent model: %w", err)
	}
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	if err := m.Save(job.ModelPath); err != nil {
		return nil, err
	}

	if raw, err := json.Marshal(mt); err == nil {
		run.Metrics = raw
	}
	return &Report{Examples: ds.Len(), Metrics: *mt, Info: m.Info()}, nil
}

func labels(ds *Dataset) []string {
	counts := ds.LabelCounts()
	out := make([]string, 0, len(counts))
	for l := range counts {
		out = append(out, l)
	}
	sort.Strings(out)
	return out
}
