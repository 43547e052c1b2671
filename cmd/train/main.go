// Command train fits the intent model from a JSONL dataset and writes the
// model file. When Redis is reachable, running API instances are told to
// reload it.
package main

import (
	"context"
	"encoding/json"
	"flag"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/nikhilbhutani/voiceassistant/internal/cache"
	"github.com/nikhilbhutani/voiceassistant/internal/config"
	"github.com/nikhilbhutani/voiceassistant/internal/training"
)

func main() {
	logger := slog.New(slog.NewJSONHandler(os.Stderr, &slog.HandlerOptions{Level: slog.LevelInfo}))
	slog.SetDefault(logger)

	cfg, err := config.Load()
	if err != nil {
		slog.Error("failed to load config", "error", err)
		os.Exit(1)
	}

	job := training.DefaultJob(cfg.Intent)
	flag.StringVar(&job.DatasetPath, "dataset", job.DatasetPath, "JSONL dataset with text and intent fields")
	flag.StringVar(&job.ModelPath, "model", job.ModelPath, "where to write the trained model")
	flag.Float64Var(&job.ValidationFraction, "validation", job.ValidationFraction, "held-out fraction, 0 evaluates on the training set")
	notify := flag.Bool("notify", true, "publish a reload event to running API servers")
	flag.Parse()

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	var notifier training.Notifier
	if *notify {
		rdb := cache.NewClient(cfg.Redis)
		defer rdb.Close()
		pingCtx, cancel := context.WithTimeout(ctx, 2*time.Second)
		if err := rdb.Ping(pingCtx).Err(); err != nil {
			slog.Warn("redis unavailable, API servers will not be notified", "error", err)
		} else {
			notifier = cache.NewModelEvents(rdb, cfg.Intent.ReloadChannel)
		}
		cancel()
	}

	report, err := training.NewService(training.ModelConfig(cfg.Intent), nil, notifier).Run(ctx, job)
	if err != nil {
		slog.Error("training failed", "error", err)
		os.Exit(1)
	}

	enc := json.NewEncoder(os.Stdout)
	enc.SetIndent("", "  ")
	if err := enc.Encode(report); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}
