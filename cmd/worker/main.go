package main

import (
	"context"
	"log/slog"
	"os"

	"github.com/hibiken/asynq"

	"github.com/nikhilbhutani/voiceassistant/internal/cache"
	"github.com/nikhilbhutani/voiceassistant/internal/config"
	"github.com/nikhilbhutani/voiceassistant/internal/database"
	"github.com/nikhilbhutani/voiceassistant/internal/queue"
	"github.com/nikhilbhutani/voiceassistant/internal/queue/workers"
	"github.com/nikhilbhutani/voiceassistant/internal/training"
)

// Training is CPU bound; one or two runs at a time is plenty.
const concurrency = 2

func main() {
	logger := slog.New(slog.NewJSONHandler(os.Stdout, &slog.HandlerOptions{Level: slog.LevelInfo}))
	slog.SetDefault(logger)

	cfg, err := config.Load()
	if err != nil {
		slog.Error("failed to load config", "error", err)
		os.Exit(1)
	}
	slog.SetDefault(slog.New(slog.NewJSONHandler(os.Stdout, &slog.HandlerOptions{Level: cfg.Log.SlogLevel()})))

	// Run history is optional
	var runs training.RunStore
	if cfg.Database.URL != "" {
		db, err := database.NewPool(context.Background(), cfg.Database)
		if err != nil {
			slog.Warn("database unavailable, training runs will not be recorded", "error", err)
		} else {
			defer db.Close()
			runs = training.NewPostgresRunStore(db)
		}
	}

	rdb := cache.NewClient(cfg.Redis)
	defer rdb.Close()
	events := cache.NewModelEvents(rdb, cfg.Intent.ReloadChannel)

	trainer := training.NewService(training.ModelConfig(cfg.Intent), runs, events)

	srv := asynq.NewServer(
		queue.RedisOpt(cfg.Redis),
		asynq.Config{
			Concurrency: concurrency,
			Queues:      queue.Queues(),
		},
	)

	registry := queue.NewHandlersRegistry()

	// Register workers
	trainWorker := workers.NewIntentTrainWorker(trainer, training.DefaultJob(cfg.Intent))

	registry.Register(queue.TypeIntentTrain, asynq.HandlerFunc(trainWorker.ProcessTask))

	slog.Info("starting worker", "concurrency", concurrency, "task_types", registry.Types(), "reload_channel", events.Channel())
	if err := srv.Run(registry.Mux()); err != nil {
		slog.Error("worker error", "error", err)
		os.Exit(1)
	}
}
