package main

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/redis/go-redis/v9"
	"golang.org/x/sync/errgroup"

	"github.com/nikhilbhutani/voiceassistant/internal/api"
	"github.com/nikhilbhutani/voiceassistant/internal/assistant"
	"github.com/nikhilbhutani/voiceassistant/internal/auth"
	"github.com/nikhilbhutani/voiceassistant/internal/cache"
	"github.com/nikhilbhutani/voiceassistant/internal/command"
	"github.com/nikhilbhutani/voiceassistant/internal/config"
	"github.com/nikhilbhutani/voiceassistant/internal/database"
	"github.com/nikhilbhutani/voiceassistant/internal/dialogue"
	"github.com/nikhilbhutani/voiceassistant/internal/feedback"
	"github.com/nikhilbhutani/voiceassistant/internal/llm"
	"github.com/nikhilbhutani/voiceassistant/internal/multimodal/audio"
	"github.com/nikhilbhutani/voiceassistant/internal/multimodal/stt"
	"github.com/nikhilbhutani/voiceassistant/internal/multimodal/tts"
	"github.com/nikhilbhutani/voiceassistant/internal/nlp/entity"
	"github.com/nikhilbhutani/voiceassistant/internal/nlp/intent"
	"github.com/nikhilbhutani/voiceassistant/internal/queue"
	"github.com/nikhilbhutani/voiceassistant/internal/training"
)

func main() {
	logger := slog.New(slog.NewJSONHandler(os.Stdout, &slog.HandlerOptions{Level: slog.LevelInfo}))
	slog.SetDefault(logger)

	cfg, err := config.Load()
	if err != nil {
		slog.Error("failed to load config", "error", err)
		os.Exit(1)
	}
	slog.SetDefault(slog.New(slog.NewJSONHandler(os.Stdout, &slog.HandlerOptions{Level: cfg.Log.SlogLevel()})))

	if err := cfg.Validate(); err != nil {
		slog.Error("invalid config", "error", err)
		os.Exit(1)
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	if err := run(ctx, cfg); err != nil {
		slog.Error("api server failed", "error", err)
		os.Exit(1)
	}
	slog.Info("server stopped")
}

func run(ctx context.Context, cfg *config.Config) error {
	deps := api.Deps{Config: cfg}

	// Database (optional: feedback falls back to the JSON file)
	db := connectDatabase(ctx, cfg.Database)
	if db != nil {
		defer db.Close()
		deps.DB = db
		deps.Runs = training.NewPostgresRunStore(db)
	}

	// Redis (optional: no reply cache, no training queue, no reload events)
	rdb := cache.NewClient(cfg.Redis)
	defer rdb.Close()
	redisUp := true
	if err := rdb.Ping(ctx).Err(); err != nil {
		slog.Warn("redis unavailable, running without cache and training queue", "error", err)
		redisUp = false
	}
	replies := cache.NewCache(rdb)
	if redisUp {
		deps.Cache = replies
		qc := queue.NewClient(cfg.Redis)
		defer qc.Close()
		deps.Trainer = qc
	}

	// Intent model
	registry := intent.NewRegistry(cfg.Intent.ModelPath, training.ModelConfig(cfg.Intent))
	if cfg.Intent.Required {
		if err := registry.Load(); err != nil {
			return err
		}
	} else if err := registry.LoadOptional(); err != nil {
		slog.Error("intent model unusable, serving without predictions", "path", cfg.Intent.ModelPath, "error", err)
	}
	deps.Registry = registry

	templates := dialogue.DefaultTemplates()
	if cfg.Dialogue.ResponsesPath != "" {
		t, err := dialogue.LoadTemplates(cfg.Dialogue.ResponsesPath)
		if err != nil {
			return err
		}
		templates = t
	}

	// LLM
	gw := llm.NewGateway(cfg.LLM)
	var completer assistant.Completer
	if c, err := llm.NewCompleter(gw, cfg.LLM); err != nil {
		slog.Info("llm replies disabled", "provider", cfg.LLM.Provider, "reason", err)
	} else {
		deps.LLM = gw
		completer = c
		if redisUp && cfg.LLM.CacheTTL > 0 {
			completer = llm.NewCachedCompleter(c, replies, cfg.LLM.CacheTTL)
		}
	}

	extractor, err := newExtractor(cfg.Dialogue, completer)
	if err != nil {
		return err
	}

	orch, err := dialogue.New(registry, extractor, templates)
	if err != nil {
		return err
	}

	var phrases map[string]string
	if cfg.Dialogue.CommandsPath != "" {
		phrases, err = command.LoadPhrases(cfg.Dialogue.CommandsPath)
		if err != nil {
			return err
		}
	}

	opts := []assistant.Option{assistant.WithCommands(command.NewExecutor(phrases))}
	if completer != nil {
		opts = append(opts, assistant.WithLLM(completer))
	}
	if voices := tts.NewRegistryFromConfig(cfg.TTS); len(voices.Names()) > 0 {
		opts = append(opts, assistant.WithSpeech(voices))
	} else {
		slog.Warn("no tts backend configured, replies will carry no audio")
	}
	if transcriber, err := stt.New(cfg.STT); err != nil {
		slog.Warn("speech input disabled", "error", err)
	} else {
		opts = append(opts, assistant.WithAudioInput(transcriber, audio.NewFFmpeg(cfg.Audio.FFmpegPath, cfg.Audio.SampleRate)))
	}

	deps.Assistant, err = assistant.NewService(orch, assistant.Config{
		Language:       cfg.Dialogue.Language,
		SystemPrompt:   cfg.LLM.SystemPrompt,
		MaxUploadBytes: cfg.Server.MaxUploadBytes,
	}, opts...)
	if err != nil {
		return err
	}

	var primary feedback.Store
	if db != nil {
		primary = feedback.NewPostgresStore(db)
	}
	deps.Feedback = feedback.NewService(primary, feedback.NewFileStore(cfg.Feedback.FilePath))

	deps.Issuer, err = auth.NewIssuer(cfg.Auth)
	if err != nil {
		return err
	}

	g, gctx := errgroup.WithContext(ctx)

	srv := &http.Server{
		Addr:         cfg.Addr(),
		Handler:      api.NewRouter(deps).Setup(gctx),
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 60 * time.Second,
		IdleTimeout:  120 * time.Second,
	}

	g.Go(func() error {
		slog.Info("starting API server", "addr", cfg.Addr())
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return err
		}
		return nil
	})

	g.Go(func() error {
		<-gctx.Done()
		slog.Info("shutting down server...")
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
		defer cancel()
		return srv.Shutdown(shutdownCtx)
	})

	if redisUp {
		events := cache.NewModelEvents(rdb, cfg.Intent.ReloadChannel)
		g.Go(func() error {
			watchModelUpdates(gctx, events, registry)
			return nil
		})
	}

	return g.Wait()
}

func connectDatabase(ctx context.Context, cfg config.DatabaseConfig) *pgxpool.Pool {
	if cfg.URL == "" {
		slog.Warn("DATABASE_URL not set, feedback is stored in the JSON file only")
		return nil
	}
	db, err := database.NewPool(ctx, cfg)
	if err != nil {
		slog.Warn("database unavailable, running without DB", "error", err)
		return nil
	}

	fsys, err := database.Migrations(cfg.MigrationsPath)
	if err == nil {
		err = database.RunMigrations(ctx, db, fsys)
	}
	if err != nil {
		slog.Warn("migrations failed", "error", err)
	}
	return db
}

func newExtractor(cfg config.DialogueConfig, completer assistant.Completer) (entity.Extractor, error) {
	switch cfg.EntityBackend {
	case "gazetteer":
		if cfg.GazetteerPath == "" {
			return nil, nil
		}
		return entity.LoadGazetteer(cfg.GazetteerPath)
	case "llm":
		if completer == nil {
			slog.Warn("ENTITY_BACKEND=llm but no llm provider is configured, extracting no entities")
			return nil, nil
		}
		return entity.NewLLMExtractor(completer, cfg.EntityLabels), nil
	default:
		return nil, nil
	}
}

// watchModelUpdates reloads the served model whenever the training worker
// announces a new one, resubscribing after Redis outages.
func watchModelUpdates(ctx context.Context, events *cache.ModelEvents, registry *intent.Registry) {
	for {
		err := events.Subscribe(ctx, func(u cache.ModelUpdate) {
			if u.Path != "" && u.Path != registry.Path() {
				slog.Warn("model update for a different path, reloading configured path anyway",
					"update_path", u.Path, "path", registry.Path())
			}
			if err := registry.Reload(); err == nil {
				slog.Info("intent model reloaded", "run_id", u.RunID, "trained_at", u.TrainedAt)
			}
		})
		if ctx.Err() != nil {
			return
		}
		if err != nil && !errors.Is(err, redis.ErrClosed) {
			slog.Warn("model update subscription lost, retrying", "error", err)
		}
		select {
		case <-ctx.Done():
			return
		case <-time.After(5 * time.Second):
		}
	}
}
