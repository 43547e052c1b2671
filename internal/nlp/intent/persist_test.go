package intent

import (
	"encoding/json"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func trainedModel(t *testing.T) *Model {
	t.Helper()
	texts, labels := trainingSet()
	m := New(DefaultConfig())
	_, err := m.Train(texts, labels, 0.2)
	require.NoError(t, err)
	return m
}

func TestSaveLoad_RoundTrip(t *testing.T) {
	m := trainedModel(t)
	path := filepath.Join(t.TempDir(), "models", "intent.json")
	require.NoError(t, m.Save(path))

	loaded := New(DefaultConfig())
	require.NoError(t, loaded.Load(path))

	probes := []string{"I want to listen to music", "open chrome", "rain tomorrow?", "", "xyz"}
	for _, text := range probes {
		want, err := m.PredictProba(text)
		require.NoError(t, err)
		got, err := loaded.PredictProba(text)
		require.NoError(t, err)
		assert.Equal(t, want, got, text)
	}
	assert.Equal(t, m.Info(), loaded.Info())
}

func TestLoad_ScenarioE_Missing(t *testing.T) {
	m := New(DefaultConfig())
	err := m.Load(filepath.Join(t.TempDir(), "does-not-exist.json"))
	require.ErrorIs(t, err, ErrModelNotFound)
	assert.False(t, m.Trained())
}

func TestLoad_Corrupt(t *testing.T) {
	m := trainedModel(t)
	dir := t.TempDir()
	good := filepath.Join(dir, "good.json")
	require.NoError(t, m.Save(good))

	raw, err := os.ReadFile(good)
	require.NoError(t, err)

	mutate := func(t *testing.T, fn func(b *bundle)) []byte {
		t.Helper()
		var b bundle
		require.NoError(t, json.Unmarshal(raw, &b))
		fn(&b)
		out, err := json.Marshal(b)
		require.NoError(t, err)
		return out
	}

	tests := []struct {
		name string
		data func(t *testing.T) []byte
	}{
		{"garbage", func(*testing.T) []byte { return []byte("{not json") }},
		{"truncated", func(*testing.T) []byte { return raw[:len(raw)/2] }},
		{"unknown format", func(t *testing.T) []byte {
			return mutate(t, func(b *bundle) { b.Format = "something-else" })
		}},
		{"dimension mismatch", func(t *testing.T) []byte {
			return mutate(t, func(b *bundle) { b.Classifier.Weights[0] = b.Classifier.Weights[0][1:] })
		}},
		{"missing intercept", func(t *testing.T) []byte {
			return mutate(t, func(b *bundle) { b.Classifier.Intercepts = b.Classifier.Intercepts[1:] })
		}},
		{"idf mismatch", func(t *testing.T) []byte {
			return mutate(t, func(b *bundle) { b.Vectorizer.IDF = b.Vectorizer.IDF[1:] })
		}},
		{"metadata from another model", func(t *testing.T) []byte {
			return mutate(t, func(b *bundle) { b.Metadata.Labels = []string{"lights_off", "lights_on"} })
		}},
		{"unsorted classes", func(t *testing.T) []byte {
			return mutate(t, func(b *bundle) {
				c := b.Classifier.Classes
				c[0], c[1] = c[1], c[0]
			})
		}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			path := filepath.Join(dir, "corrupt.json")
			require.NoError(t, os.WriteFile(path, tt.data(t), 0o644))

			target := trainedModel(t)
			before := target.Info()

			err := target.Load(path)
			require.ErrorIs(t, err, ErrCorruptModel)
			assert.Equal(t, before, target.Info(), "failed load must keep previous state")
		})
	}
}

func TestLoad_ReplacesState(t *testing.T) {
	m := trainedModel(t)
	path := filepath.Join(t.TempDir(), "intent.json")
	require.NoError(t, m.Save(path))

	other := New(DefaultConfig())
	_, err := other.Train([]string{"turn on the lights", "turn off the lights"}, []string{"lights_on", "lights_off"}, 0)
	require.NoError(t, err)

	require.NoError(t, other.Load(path))
	assert.Equal(t, []string{"check_weather", "open_app", "play_audio"}, other.Info().Classes)
}

func TestSave_LeavesNoTempFiles(t *testing.T) {
	m := trainedModel(t)
	dir := t.TempDir()
	path := filepath.Join(dir, "intent.json")
	require.NoError(t, m.Save(path))
	require.NoError(t, m.Save(path))

	entries, err := os.ReadDir(dir)
	require.NoError(t, err)
	require.Len(t, entries, 1)
	assert.Equal(t, "intent.json", entries[0].Name())
}
