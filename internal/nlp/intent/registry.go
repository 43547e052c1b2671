package intent

import (
	"errors"
	"log/slog"
	"sync"
	"sync/atomic"
	"time"
)

// Registry owns the model currently used for inference. Loads build a new
// Model off to the side and swap it in atomically, so readers always see a
// complete model and a failed reload keeps serving the previous one.
type Registry struct {
	path     string
	cfg      Config
	current  atomic.Pointer[Model]
	loadedAt atomic.Pointer[time.Time]
	mu       sync.Mutex
	logger   *slog.Logger
}

func NewRegistry(path string, cfg Config) *Registry {
	return &Registry{
		path:   path,
		cfg:    cfg,
		logger: slog.Default().With("component", "intent-registry"),
	}
}

func (r *Registry) Path() string { return r.path }

// Load loads the model from the configured path.
func (r *Registry) Load() error {
	return r.LoadFrom(r.path)
}

// Reload re-reads the configured path, typically after a training run has
// replaced the bundle.
func (r *Registry) Reload() error {
	err := r.LoadFrom(r.path)
	if err != nil {
		r.logger.Error("model reload failed, keeping previous model", "path", r.path, "error", err)
	}
	return err
}

func (r *Registry) LoadFrom(path string) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	m := New(r.cfg)
	if err := m.Load(path); err != nil {
		return err
	}
	r.swap(m)
	r.logger.Info("model installed", "path", path, "classes", len(m.Info().Classes))
	return nil
}

// Set installs an already trained model.
func (r *Registry) Set(m *Model) error {
	if m == nil || !m.Trained() {
		return ErrNotTrained
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	r.swap(m)
	return nil
}

func (r *Registry) swap(m *Model) {
	now := time.Now().UTC()
	r.current.Store(m)
	r.loadedAt.Store(&now)
}

// Current returns the served model, or ErrNotTrained when none is loaded.
func (r *Registry) Current() (*Model, error) {
	m := r.current.Load()
	if m == nil {
		return nil, ErrNotTrained
	}
	return m, nil
}

// LoadedAt reports when the served model was installed.
func (r *Registry) LoadedAt() (time.Time, bool) {
	t := r.loadedAt.Load()
	if t == nil {
		return time.Time{}, false
	}
	return *t, true
}

func (r *Registry) Predict(text string) (string, error) {
	m, err := r.Current()
	if err != nil {
		return "", err
	}
	return m.Predict(text)
}

func (r *Registry) PredictProba(text string) (Prediction, error) {
	m, err := r.Current()
	if err != nil {
		return Prediction{}, err
	}
	return m.PredictProba(text)
}

func (r *Registry) PredictBatch(texts []string) ([]string, error) {
	m, err := r.Current()
	if err != nil {
		return nil, err
	}
	return m.PredictBatch(texts)
}

func (r *Registry) Info() Info {
	m, err := r.Current()
	if err != nil {
		return New(r.cfg).Info()
	}
	return m.Info()
}

// LoadOptional loads the configured model, treating a missing file as an
// untrained registry rather than an error.
func (r *Registry) LoadOptional() error {
	err := r.Load()
	if errors.Is(err, ErrModelNotFound) {
		r.logger.Warn("no intent model on disk, train one before serving predictions", "path", r.path)
		return nil
	}
	return err
}
