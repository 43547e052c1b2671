package config

import (
	"errors"
	"fmt"
	"io/fs"
	"log/slog"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
)

type Config struct {
	Server   ServerConfig
	Database DatabaseConfig
	Redis    RedisConfig
	Auth     AuthConfig
	LLM      LLMConfig
	STT      STTConfig
	TTS      TTSConfig
	Audio    AudioConfig
	Intent   IntentConfig
	Dialogue DialogueConfig
	Feedback FeedbackConfig
	Log      LogConfig
}

type ServerConfig struct {
	Host           string
	Port           int
	MaxUploadBytes int64
	CORSOrigins    []string
	RateLimitRPS   float64
	RateLimitBurst int
}

type DatabaseConfig struct {
	URL            string
	MaxConns       int
	MinConns       int
	MigrationsPath string // empty: use the embedded migrations
}

type RedisConfig struct {
	Addr     string
	Password string
	DB       int
}

type AuthConfig struct {
	JWTSecret   string
	TokenTTL    time.Duration
	Users       map[string]string // username -> password
	AdminAPIKey string
	AdminHeader string
}

type LLMConfig struct {
	OpenAIKey        string
	OpenAIBaseURL    string
	AnthropicKey     string
	OllamaURL        string
	Provider         string // "openai", "anthropic" or "ollama"
	Model            string
	FallbackProvider string
	MaxRetries       int
	Temperature      float64
	MaxTokens        int
	SystemPrompt     string
	CacheTTL         time.Duration
}

type STTConfig struct {
	Backend       string // "openai" or "local"
	OpenAIKey     string
	OpenAIBaseURL string
	OpenAIModel   string
	LocalBaseURL  string // default: "http://localhost:8178"
}

type TTSConfig struct {
	Backend         string // default provider: "openai" or "local"
	OpenAIKey       string
	OpenAIBaseURL   string
	OpenAIModel     string
	Voice           string
	LocalBinPath    string // default: "piper"
	LocalModel      string // required when backend=local
	LocalSampleRate int
}

type AudioConfig struct {
	FFmpegPath string
	SampleRate int
}

type IntentConfig struct {
	ModelPath          string
	DatasetPath        string
	ValidationFraction float64
	MaxFeatures        int
	C                  float64
	MaxIter            int
	Seed               uint64
	Required           bool // refuse to start without a loadable model
	ReloadChannel      string
}

type DialogueConfig struct {
	Language      string
	ResponsesPath string
	CommandsPath  string
	EntityBackend string // "gazetteer", "llm" or "none"
	GazetteerPath string
	EntityLabels  []string
}

type FeedbackConfig struct {
	FilePath string
}

type LogConfig struct {
	Level string
}

// SlogLevel maps LOG_LEVEL (debug, info, warn, error) to a slog level.
// Unknown values fall back to info.
func (c LogConfig) SlogLevel() slog.Level {
	var l slog.Level
	if err := l.UnmarshalText([]byte(c.Level)); err != nil {
		return slog.LevelInfo
	}
	return l
}

// Load reads configuration from the environment. A .env file in the working
// directory is applied first when present; real environment variables win.
func Load() (*Config, error) {
	if err := godotenv.Load(); err != nil && !errors.Is(err, fs.ErrNotExist) {
		return nil, fmt.Errorf("load .env: %w", err)
	}

	var errs []error
	port := getEnvInt("SERVER_PORT", 8080, &errs)
	maxUpload := getEnvInt("MAX_UPLOAD_BYTES", 10<<20, &errs)
	rps := getEnvFloat("RATE_LIMIT_RPS", 100, &errs)
	burst := getEnvInt("RATE_LIMIT_BURST", 200, &errs)
	maxConns := getEnvInt("DB_MAX_CONNS", 20, &errs)
	minConns := getEnvInt("DB_MIN_CONNS", 5, &errs)
	redisDB := getEnvInt("REDIS_DB", 0, &errs)
	tokenTTL := getEnvDuration("JWT_TTL", 120*time.Minute, &errs)
	maxRetries := getEnvInt("LLM_MAX_RETRIES", 3, &errs)
	temperature := getEnvFloat("LLM_TEMPERATURE", 0.7, &errs)
	maxTokens := getEnvInt("LLM_MAX_TOKENS", 512, &errs)
	cacheTTL := getEnvDuration("LLM_CACHE_TTL", 10*time.Minute, &errs)
	piperRate := getEnvInt("TTS_LOCAL_SAMPLE_RATE", 22050, &errs)
	sampleRate := getEnvInt("AUDIO_SAMPLE_RATE", 16000, &errs)
	valFraction := getEnvFloat("INTENT_VALIDATION_FRACTION", 0.2, &errs)
	maxFeatures := getEnvInt("INTENT_MAX_FEATURES", 20000, &errs)
	regC := getEnvFloat("INTENT_C", 1.0, &errs)
	maxIter := getEnvInt("INTENT_MAX_ITER", 1000, &errs)
	seed := getEnvInt("INTENT_SEED", 42, &errs)
	required := getEnvBool("INTENT_MODEL_REQUIRED", false, &errs)
	if len(errs) > 0 {
		return nil, errors.Join(errs...)
	}

	openAIKey := getEnv("OPENAI_API_KEY", "")

	cfg := &Config{
		Server: ServerConfig{
			Host:           getEnv("SERVER_HOST", "0.0.0.0"),
			Port:           port,
			MaxUploadBytes: int64(maxUpload),
			CORSOrigins:    getEnvList("CORS_ORIGINS", []string{"*"}),
			RateLimitRPS:   rps,
			RateLimitBurst: burst,
		},
		Database: DatabaseConfig{
			URL:            getEnv("DATABASE_URL", ""),
			MaxConns:       maxConns,
			MinConns:       minConns,
			MigrationsPath: getEnv("MIGRATIONS_PATH", ""),
		},
		Redis: RedisConfig{
			Addr:     getEnv("REDIS_ADDR", "localhost:6379"),
			Password: getEnv("REDIS_PASSWORD", ""),
			DB:       redisDB,
		},
		Auth: AuthConfig{
			JWTSecret:   getEnv("JWT_SECRET", ""),
			TokenTTL:    tokenTTL,
			Users:       parseUsers(getEnv("AUTH_USERS", "")),
			AdminAPIKey: getEnv("ADMIN_API_KEY", ""),
			AdminHeader: getEnv("ADMIN_API_KEY_HEADER", "X-Admin-Key"),
		},
		LLM: LLMConfig{
			OpenAIKey:        openAIKey,
			OpenAIBaseURL:    getEnv("OPENAI_BASE_URL", ""),
			AnthropicKey:     getEnv("ANTHROPIC_API_KEY", ""),
			OllamaURL:        getEnv("OLLAMA_URL", ""),
			Provider:         getEnv("LLM_PROVIDER", "openai"),
			Model:            getEnv("LLM_MODEL", "gpt-4o-mini"),
			FallbackProvider: getEnv("LLM_FALLBACK_PROVIDER", ""),
			MaxRetries:       maxRetries,
			Temperature:      temperature,
			MaxTokens:        maxTokens,
			SystemPrompt:     getEnv("LLM_SYSTEM_PROMPT", "You are a helpful voice assistant. Answer briefly, in the user's language."),
			CacheTTL:         cacheTTL,
		},
		STT: STTConfig{
			Backend:       getEnv("STT_BACKEND", "openai"),
			OpenAIKey:     openAIKey,
			OpenAIBaseURL: getEnv("STT_OPENAI_BASE_URL", ""),
			OpenAIModel:   getEnv("STT_OPENAI_MODEL", ""),
			LocalBaseURL:  getEnv("STT_LOCAL_BASE_URL", "http://localhost:8178"),
		},
		TTS: TTSConfig{
			Backend:         getEnv("TTS_BACKEND", "openai"),
			OpenAIKey:       openAIKey,
			OpenAIBaseURL:   getEnv("TTS_OPENAI_BASE_URL", ""),
			OpenAIModel:     getEnv("TTS_OPENAI_MODEL", ""),
			Voice:           getEnv("TTS_VOICE", ""),
			LocalBinPath:    getEnv("TTS_LOCAL_PIPER_BIN", "piper"),
			LocalModel:      getEnv("TTS_LOCAL_PIPER_MODEL", ""),
			LocalSampleRate: piperRate,
		},
		Audio: AudioConfig{
			FFmpegPath: getEnv("FFMPEG_PATH", "ffmpeg"),
			SampleRate: sampleRate,
		},
		Intent: IntentConfig{
			ModelPath:          getEnv("INTENT_MODEL_PATH", "models/intent_model.json"),
			DatasetPath:        getEnv("INTENT_DATASET_PATH", "data/intents.jsonl"),
			ValidationFraction: valFraction,
			MaxFeatures:        maxFeatures,
			C:                  regC,
			MaxIter:            maxIter,
			Seed:               uint64(seed),
			Required:           required,
			ReloadChannel:      getEnv("INTENT_RELOAD_CHANNEL", "intent:model:reload"),
		},
		Dialogue: DialogueConfig{
			Language:      getEnv("DEFAULT_LANGUAGE", "pt"),
			ResponsesPath: getEnv("RESPONSES_PATH", ""),
			CommandsPath:  getEnv("COMMANDS_PATH", ""),
			EntityBackend: getEnv("ENTITY_BACKEND", "gazetteer"),
			GazetteerPath: getEnv("ENTITY_GAZETTEER_PATH", ""),
			EntityLabels:  getEnvList("ENTITY_LABELS", nil),
		},
		Feedback: FeedbackConfig{
			FilePath: getEnv("FEEDBACK_FILE", "data/feedbacks.json"),
		},
		Log: LogConfig{
			Level: getEnv("LOG_LEVEL", "info"),
		},
	}

	return cfg, nil
}

func (c *Config) Addr() string {
	return fmt.Sprintf("%s:%d", c.Server.Host, c.Server.Port)
}

// Validate reports settings the API server cannot run without.
func (c *Config) Validate() error {
	var missing []string
	if c.Auth.JWTSecret == "" {
		missing = append(missing, "JWT_SECRET")
	}
	if c.Intent.ModelPath == "" {
		missing = append(missing, "INTENT_MODEL_PATH")
	}
	if len(missing) > 0 {
		return fmt.Errorf("missing required env vars: %s", strings.Join(missing, ", "))
	}
	if f := c.Intent.ValidationFraction; f < 0 || f >= 1 {
		return fmt.Errorf("INTENT_VALIDATION_FRACTION must be in [0, 1), got %v", f)
	}
	switch c.Dialogue.EntityBackend {
	case "gazetteer", "llm", "none":
	default:
		return fmt.Errorf("unknown ENTITY_BACKEND %q", c.Dialogue.EntityBackend)
	}
	return nil
}

func getEnv(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}

func getEnvInt(key string, fallback int, errs *[]error) int {
	v := os.Getenv(key)
	if v == "" {
		return fallback
	}
	n, err := strconv.Atoi(v)
	if err != nil {
		*errs = append(*errs, fmt.Errorf("invalid %s: %w", key, err))
		return fallback
	}
	return n
}

func getEnvFloat(key string, fallback float64, errs *[]error) float64 {
	v := os.Getenv(key)
	if v == "" {
		return fallback
	}
	f, err := strconv.ParseFloat(v, 64)
	if err != nil {
		*errs = append(*errs, fmt.Errorf("invalid %s: %w", key, err))
		return fallback
	}
	return f
}

func getEnvBool(key string, fallback bool, errs *[]error) bool {
	v := os.Getenv(key)
	if v == "" {
		return fallback
	}
	b, err := strconv.ParseBool(v)
	if err != nil {
		*errs = append(*errs, fmt.Errorf("invalid %s: %w", key, err))
		return fallback
	}
	return b
}

func getEnvDuration(key string, fallback time.Duration, errs *[]error) time.Duration {
	v := os.Getenv(key)
	if v == "" {
		return fallback
	}
	d, err := time.ParseDuration(v)
	if err != nil {
		*errs = append(*errs, fmt.Errorf("invalid %s: %w", key, err))
		return fallback
	}
	return d
}

func getEnvList(key string, fallback []string) []string {
	v := os.Getenv(key)
	if v == "" {
		return fallback
	}
	var out []string
	for _, part := range strings.Split(v, ",") {
		if p := strings.TrimSpace(part); p != "" {
			out = append(out, p)
		}
	}
	return out
}

// parseUsers reads "alice:secret,bob:hunter2".
func parseUsers(v string) map[string]string {
	users := make(map[string]string)
	for _, pair := range strings.Split(v, ",") {
		name, pass, ok := strings.Cut(strings.TrimSpace(pair), ":")
		if !ok || name == "" || pass == "" {
			continue
		}
		users[name] = pass
	}
	return users
}
