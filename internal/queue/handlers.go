package queue

import (
	"context"
	"log/slog"
	"time"

	"github.com/hibiken/asynq"

	"github.com/nikhilbhutani/voiceassistant/internal/metrics"
)

// HandlersRegistry routes task types to workers. Every task is logged and
// counted by type and outcome.
type HandlersRegistry struct {
	mux   *asynq.ServeMux
	types []string
}

func NewHandlersRegistry() *HandlersRegistry {
	mux := asynq.NewServeMux()
	mux.Use(observe)
	return &HandlersRegistry{mux: mux}
}

func (r *HandlersRegistry) Register(taskType string, handler asynq.Handler) {
	r.mux.Handle(taskType, handler)
	r.types = append(r.types, taskType)
}

// Types lists the registered task types in registration order.
func (r *HandlersRegistry) Types() []string {
	return append([]string(nil), r.types...)
}

func (r *HandlersRegistry) Mux() *asynq.ServeMux {
	return r.mux
}

func observe(next asynq.Handler) asynq.Handler {
	return asynq.HandlerFunc(func(ctx context.Context, t *asynq.Task) error {
		start := time.Now()
		id, _ := asynq.GetTaskID(ctx)
		logger := slog.Default().With("component", "queue", "task_type", t.Type(), "task_id", id)

		err := next.ProcessTask(ctx, t)
		elapsed := time.Since(start).Milliseconds()
		if err != nil {
			metrics.QueueTasks.WithLabelValues(t.Type(), "failed").Inc()
			logger.Error("task failed", "error", err, "duration_ms", elapsed)
			return err
		}
		metrics.QueueTasks.WithLabelValues(t.Type(), "succeeded").Inc()
		logger.Info("task done", "duration_ms", elapsed)
		return nil
	})
}
