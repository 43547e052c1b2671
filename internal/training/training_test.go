package training

import (
	"context"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/nikhilbhutani/voiceassistant/internal/cache"
	"github.com/nikhilbhutani/voiceassistant/internal/config"
	"github.com/nikhilbhutani/voiceassistant/internal/models"
	"github.com/nikhilbhutani/voiceassistant/internal/nlp/intent"
)

const sampleDataset = `{"text": "abre o navegador", "label": "abrir_app"}
{"text": "abrir o chrome", "label": "abrir_app"}
{"text": "abre a calculadora", "label": "abrir_app"}

{"text": "toca uma música", "label": "tocar_audio"}
{"text": "tocar minha playlist", "label": "tocar_audio"}
{"text": "toca musica do leonardo", "label": "tocar_audio"}
{"text": "qual a previsão do tempo", "label": "buscar_info"}
{"text": "pesquisa sobre python", "label": "buscar_info"}
{"text": "busca a capital da frança", "label": "buscar_info"}
`

type memoryRuns struct {
	mu      sync.Mutex
	started []models.TrainingRun
	done    []models.TrainingRun
}

func (m *memoryRuns) Start(_ context.Context, run *models.TrainingRun) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.started = append(m.started, *run)
	return nil
}

func (m *memoryRuns) Finish(_ context.Context, run *models.TrainingRun) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.done = append(m.done, *run)
	return nil
}

func (m *memoryRuns) Recent(context.Context, int) ([]models.TrainingRun, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	return append([]models.TrainingRun(nil), m.done...), nil
}

type recordingNotifier struct {
	updates []cache.ModelUpdate
}

func (r *recordingNotifier) Publish(_ context.Context, u cache.ModelUpdate) error {
	r.updates = append(r.updates, u)
	return nil
}

func writeDataset(t *testing.T, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "intents.jsonl")
	require.NoError(t, os.WriteFile(path, []byte(content), 0o644))
	return path
}

func TestReadDataset(t *testing.T) {
	ds, err := ReadDataset(strings.NewReader(sampleDataset))
	require.NoError(t, err)
	assert.Equal(t, 9, ds.Len())
	assert.Equal(t, map[string]int{"abrir_app": 3, "tocar_audio": 3, "buscar_info": 3}, ds.LabelCounts())
	assert.Equal(t, "toca uma música", ds.Texts[3])
}

func TestReadDataset_Invalid(t *testing.T) {
	tests := map[string]string{
		"not json":      `{"text": "abre"`,
		"missing label": `{"text": "abre o navegador"}`,
		"blank text":    `{"text": "   ", "label": "abrir_app"}`,
		"label number":  `{"text": "abre", "label": 3}`,
		"empty file":    "\n\n",
	}
	for name, content := range tests {
		t.Run(name, func(t *testing.T) {
			_, err := ReadDataset(strings.NewReader(content))
			assert.ErrorIs(t, err, ErrInvalidDataset)
		})
	}
}

func TestReadDataset_ReportsLine(t *testing.T) {
	_, err := ReadDataset(strings.NewReader("{\"text\": \"a b\", \"label\": \"x\"}\n\n{\"text\": \"c d\"}\n"))
	require.Error(t, err)
	assert.Contains(t, err.Error(), "line 3")
}

func TestRun_TrainsSavesAndNotifies(t *testing.T) {
	runs := &memoryRuns{}
	notifier := &recordingNotifier{}
	svc := NewService(intent.DefaultConfig(), runs, notifier)

	modelPath := filepath.Join(t.TempDir(), "models", "intent_model.json")
	report, err := svc.Run(context.Background(), Job{
		DatasetPath:        writeDataset(t, sampleDataset),
		ModelPath:          modelPath,
		ValidationFraction: 0.34,
	})
	require.NoError(t, err)
	assert.Equal(t, 9, report.Examples)
	assert.True(t, report.Info.Trained)
	assert.Equal(t, []string{"abrir_app", "buscar_info", "tocar_audio"}, report.Info.Classes)

	m := intent.New(intent.DefaultConfig())
	require.NoError(t, m.Load(modelPath))

	require.Len(t, runs.started, 1)
	require.Len(t, runs.done, 1)
	assert.Equal(t, models.TrainingStatusRunning, runs.started[0].Status)
	done := runs.done[0]
	assert.Equal(t, report.RunID, done.ID)
	assert.Equal(t, models.TrainingStatusSucceeded, done.Status)
	assert.Equal(t, 9, done.Examples)
	assert.NotEmpty(t, done.Metrics)
	assert.NotNil(t, done.CompletedAt)

	require.Len(t, notifier.updates, 1)
	assert.Equal(t, modelPath, notifier.updates[0].Path)
	assert.Equal(t, report.RunID.String(), notifier.updates[0].RunID)
}

func TestRun_RecordsFailure(t *testing.T) {
	runs := &memoryRuns{}
	notifier := &recordingNotifier{}
	svc := NewService(intent.DefaultConfig(), runs, notifier)

	_, err := svc.Run(context.Background(), Job{
		DatasetPath: writeDataset(t, `{"text": "oi"}`),
		ModelPath:   filepath.Join(t.TempDir(), "model.json"),
	})
	assert.ErrorIs(t, err, ErrInvalidDataset)

	require.Len(t, runs.done, 1)
	assert.Equal(t, models.TrainingStatusFailed, runs.done[0].Status)
	assert.Contains(t, runs.done[0].Error, "line 1")
	assert.Empty(t, notifier.updates)
}

func TestRun_WithoutOptionalCollaborators(t *testing.T) {
	svc := NewService(intent.DefaultConfig(), nil, nil)
	_, err := svc.Run(context.Background(), Job{
		DatasetPath: writeDataset(t, sampleDataset),
		ModelPath:   filepath.Join(t.TempDir(), "model.json"),
	})
	assert.NoError(t, err)

	_, err = svc.Run(context.Background(), Job{DatasetPath: "", ModelPath: ""})
	assert.ErrorIs(t, err, intent.ErrInvalidInput)
}

func TestModelConfig(t *testing.T) {
	mc := ModelConfig(config.IntentConfig{MaxFeatures: 500, C: 2, MaxIter: 50, Seed: 7})
	assert.Equal(t, 500, mc.Features.MaxFeatures)
	assert.Equal(t, 2, mc.Features.NGramMax)
	assert.Equal(t, 2.0, mc.C)
	assert.Equal(t, 50, mc.MaxIter)
	assert.Equal(t, uint64(7), mc.Seed)

	assert.Equal(t, intent.DefaultConfig(), ModelConfig(config.IntentConfig{}))
}
