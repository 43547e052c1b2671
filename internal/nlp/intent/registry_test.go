package intent

import (
	"os"
	"path/filepath"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRegistry_Empty(t *testing.T) {
	r := NewRegistry(filepath.Join(t.TempDir(), "intent.json"), DefaultConfig())

	_, err := r.Predict("play music")
	assert.ErrorIs(t, err, ErrNotTrained)
	_, err = r.PredictProba("play music")
	assert.ErrorIs(t, err, ErrNotTrained)
	_, err = r.PredictBatch([]string{"play music"})
	assert.ErrorIs(t, err, ErrNotTrained)

	assert.False(t, r.Info().Trained)
	_, ok := r.LoadedAt()
	assert.False(t, ok)

	assert.ErrorIs(t, r.Load(), ErrModelNotFound)
	assert.NoError(t, r.LoadOptional())
}

func TestRegistry_LoadAndReload(t *testing.T) {
	path := filepath.Join(t.TempDir(), "intent.json")
	require.NoError(t, trainedModel(t).Save(path))

	r := NewRegistry(path, DefaultConfig())
	require.NoError(t, r.Load())

	label, err := r.Predict("open chrome")
	require.NoError(t, err)
	assert.Equal(t, "open_app", label)
	_, ok := r.LoadedAt()
	assert.True(t, ok)

	lights := New(DefaultConfig())
	_, err = lights.Train([]string{"turn on the lights", "turn off the lights"}, []string{"lights_on", "lights_off"}, 0)
	require.NoError(t, err)
	require.NoError(t, lights.Save(path))

	require.NoError(t, r.Reload())
	assert.Equal(t, []string{"lights_off", "lights_on"}, r.Info().Classes)
}

func TestRegistry_FailedReloadKeepsModel(t *testing.T) {
	path := filepath.Join(t.TempDir(), "intent.json")
	require.NoError(t, trainedModel(t).Save(path))

	r := NewRegistry(path, DefaultConfig())
	require.NoError(t, r.Load())
	before, err := r.Current()
	require.NoError(t, err)

	require.NoError(t, os.WriteFile(path, []byte(`{"format":"broken"}`), 0o644))
	assert.ErrorIs(t, r.Reload(), ErrCorruptModel)

	after, err := r.Current()
	require.NoError(t, err)
	assert.Same(t, before, after)
}

func TestRegistry_Set(t *testing.T) {
	r := NewRegistry("", DefaultConfig())
	assert.ErrorIs(t, r.Set(New(DefaultConfig())), ErrNotTrained)
	assert.ErrorIs(t, r.Set(nil), ErrNotTrained)

	m := trainedModel(t)
	require.NoError(t, r.Set(m))
	got, err := r.Current()
	require.NoError(t, err)
	assert.Same(t, m, got)
}

func TestRegistry_ConcurrentReadsDuringReload(t *testing.T) {
	path := filepath.Join(t.TempDir(), "intent.json")
	require.NoError(t, trainedModel(t).Save(path))

	r := NewRegistry(path, DefaultConfig())
	require.NoError(t, r.Load())

	var wg sync.WaitGroup
	for i := 0; i < 4; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for j := 0; j < 50; j++ {
				p, err := r.PredictProba("play music")
				assert.NoError(t, err)
				assert.NotEmpty(t, p.Label)
			}
		}()
	}
	for i := 0; i < 5; i++ {
		assert.NoError(t, r.Reload())
	}
	wg.Wait()
}
