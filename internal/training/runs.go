package training

import (
	"context"
	"fmt"

	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/nikhilbhutani/voiceassistant/internal/models"
)

// RunStore records training runs.
type RunStore interface {
	Start(ctx context.Context, run *models.TrainingRun) error
	Finish(ctx context.Context, run *models.TrainingRun) error
	Recent(ctx context.Context, limit int) ([]models.TrainingRun, error)
}

type PostgresRunStore struct {
	db *pgxpool.Pool
}

func NewPostgresRunStore(db *pgxpool.Pool) *PostgresRunStore {
	return &PostgresRunStore{db: db}
}

func (s *PostgresRunStore) Start(ctx context.Context, run *models.TrainingRun) error {
	_, err := s.db.Exec(ctx,
		`INSERT INTO intent_training_runs (id, dataset_path, model_path, status, started_at)
		 VALUES ($1, $2, $3, $4, $5)`,
		run.ID, run.DatasetPath, run.ModelPath, run.Status, run.StartedAt,
	)
	if err != nil {
		return fmt.Errorf("record training run: %w", err)
	}
	return nil
}

func (s *PostgresRunStore) Finish(ctx context.Context, run *models.TrainingRun) error {
	_, err := s.db.Exec(ctx,
		`UPDATE intent_training_runs
		 SET status = $2, examples = $3, labels = $4, metrics = $5, error = NULLIF($6, ''), completed_at = $7
		 WHERE id = $1`,
		run.ID, run.Status, run.Examples, run.Labels, run.Metrics, run.Error, run.CompletedAt,
	)
	if err != nil {
		return fmt.Errorf("finish training run: %w", err)
	}
	return nil
}

func (s *PostgresRunStore) Recent(ctx context.Context, limit int) ([]models.TrainingRun, error) {
	rows, err := s.db.Query(ctx,
		`SELECT id, dataset_path, model_path, status, examples, labels, metrics, COALESCE(error, ''), started_at, completed_at
		 FROM intent_training_runs ORDER BY started_at DESC LIMIT $1`,
		limit,
	)
	if err != nil {
		return nil, fmt.Errorf("list training runs: %w", err)
	}
	defer rows.Close()

	runs := []models.TrainingRun{}
	for rows.Next() {
		var r models.TrainingRun
		if err := rows.Scan(&r.ID, &r.DatasetPath, &r.ModelPath, &r.Status, &r.Examples, &r.Labels, &r.Metrics, &r.Error, &r.StartedAt, &r.CompletedAt); err != nil {
			return nil, fmt.Errorf("scan training run: %w", err)
		}
		runs = append(runs, r)
	}
	return runs, rows.Err()
}
