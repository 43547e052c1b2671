package feedback

import (
	"bytes"
	"context"
	"encoding/csv"
	"errors"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/nikhilbhutani/voiceassistant/internal/models"
)

type downStore struct{}

var errDown = errors.New("connection refused")

func (downStore) Name() string { return "postgres" }

func (downStore) Insert(context.Context, *models.Feedback) error { return errDown }

func (downStore) All(context.Context) ([]models.Feedback, error) { return nil, errDown }

func (downStore) List(context.Context, int, int) ([]models.Feedback, error) { return nil, errDown }

func ptr(v int) *int { return &v }

func newFileService(t *testing.T) (*Service, string) {
	t.Helper()
	path := filepath.Join(t.TempDir(), "data", "feedbacks.json")
	return NewService(nil, NewFileStore(path)), path
}

func TestSubmit_Validation(t *testing.T) {
	svc, _ := newFileService(t)
	tests := []struct {
		name string
		in   Input
	}{
		{"missing user", Input{Message: "great"}},
		{"blank message", Input{User: "ana", Message: "   "}},
		{"rating too low", Input{User: "ana", Message: "ok", Rating: ptr(0)}},
		{"rating too high", Input{User: "ana", Message: "ok", Rating: ptr(6)}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := svc.Submit(context.Background(), tt.in)
			assert.ErrorIs(t, err, ErrInvalidFeedback)
		})
	}
}

func TestSubmit_FallsBackToFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "feedbacks.json")
	svc := NewService(downStore{}, NewFileStore(path))

	f, err := svc.Submit(context.Background(), Input{User: " ana ", Message: "Adorei!", Rating: ptr(5), Intent: "tocar_audio"})
	require.NoError(t, err)
	assert.Equal(t, "ana", f.User)
	assert.NotEqual(t, [16]byte{}, [16]byte(f.ID))

	list, err := svc.List(context.Background(), 10, 0)
	require.NoError(t, err)
	require.Len(t, list, 1)
	assert.Equal(t, f.ID, list[0].ID)
	assert.Equal(t, 5, *list[0].Rating)

	_, err = os.Stat(path)
	assert.NoError(t, err)
}

func TestSubmit_NoStores(t *testing.T) {
	_, err := NewService(nil, nil).Submit(context.Background(), Input{User: "a", Message: "b"})
	assert.Error(t, err)
}

func TestListAndSummary(t *testing.T) {
	svc, _ := newFileService(t)
	day1 := time.Date(2024, 5, 1, 10, 0, 0, 0, time.UTC)
	clock := day1
	svc.now = func() time.Time { clock = clock.Add(6 * time.Hour); return clock }

	inputs := []Input{
		{User: "ana", Message: "ótimo", Rating: ptr(5)},
		{User: "bruno", Message: "ok", Rating: ptr(3)},
		{User: "ana", Message: "sem nota"},
		{User: "carla", Message: "ruim", Rating: ptr(1)},
	}
	for _, in := range inputs {
		_, err := svc.Submit(context.Background(), in)
		require.NoError(t, err)
	}

	page, err := svc.List(context.Background(), 2, 0)
	require.NoError(t, err)
	require.Len(t, page, 2)
	assert.Equal(t, "ruim", page[0].Message)
	assert.Equal(t, "sem nota", page[1].Message)

	rest, err := svc.List(context.Background(), 10, 3)
	require.NoError(t, err)
	require.Len(t, rest, 1)
	assert.Equal(t, "ótimo", rest[0].Message)

	sum, err := svc.Summary(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 4, sum.Count)
	assert.Equal(t, 3, sum.Rated)
	require.NotNil(t, sum.AverageRating)
	assert.InDelta(t, 3.0, *sum.AverageRating, 1e-9)
	assert.Equal(t, map[string]int{"1": 1, "2": 0, "3": 1, "4": 0, "5": 1}, sum.RatingDistribution)
	assert.Equal(t, map[string]int{"ana": 2, "bruno": 1, "carla": 1}, sum.ByUser)
	assert.Equal(t, map[string]int{"2024-05-01": 2, "2024-05-02": 2}, sum.ByDay)
}

func TestSummary_Empty(t *testing.T) {
	svc, _ := newFileService(t)
	sum, err := svc.Summary(context.Background())
	require.NoError(t, err)
	assert.Zero(t, sum.Count)
	assert.Nil(t, sum.AverageRating)
}

func TestExportCSV(t *testing.T) {
	svc, _ := newFileService(t)
	_, err := svc.Submit(context.Background(), Input{User: "ana", Message: "linha, com vírgula", Rating: ptr(4)})
	require.NoError(t, err)
	_, err = svc.Submit(context.Background(), Input{User: "bruno", Message: "sem nota"})
	require.NoError(t, err)

	var buf bytes.Buffer
	require.NoError(t, svc.ExportCSV(context.Background(), &buf))

	records, err := csv.NewReader(&buf).ReadAll()
	require.NoError(t, err)
	require.Len(t, records, 3)
	assert.Equal(t, []string{"id", "user", "message", "rating", "intent", "created_at"}, records[0])

	byUser := map[string][]string{}
	for _, r := range records[1:] {
		byUser[r[1]] = r
	}
	assert.Equal(t, "linha, com vírgula", byUser["ana"][2])
	assert.Equal(t, "4", byUser["ana"][3])
	assert.Equal(t, "", byUser["bruno"][3])
}

func TestFileStore_CorruptFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "feedbacks.json")
	require.NoError(t, os.WriteFile(path, []byte("{not json"), 0o644))

	_, err := NewFileStore(path).All(context.Background())
	assert.Error(t, err)
}
