package feedback

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"io/fs"
	"os"
	"sort"
	"sync"

	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/nikhilbhutani/voiceassistant/internal/models"
	"github.com/nikhilbhutani/voiceassistant/pkg/atomicfile"
)

// Store persists feedback. List and All return newest first.
type Store interface {
	Name() string
	Insert(ctx context.Context, f *models.Feedback) error
	List(ctx context.Context, limit, offset int) ([]models.Feedback, error)
	All(ctx context.Context) ([]models.Feedback, error)
}

type PostgresStore struct {
	db *pgxpool.Pool
}

func NewPostgresStore(db *pgxpool.Pool) *PostgresStore {
	return &PostgresStore{db: db}
}

func (s *PostgresStore) Name() string { return "postgres" }

func (s *PostgresStore) Insert(ctx context.Context, f *models.Feedback) error {
	_, err := s.db.Exec(ctx,
		`INSERT INTO feedbacks (id, user_name, message, rating, intent, created_at)
		 VALUES ($1, $2, $3, $4, NULLIF($5, ''), $6)`,
		f.ID, f.User, f.Message, f.Rating, f.Intent, f.CreatedAt,
	)
	if err != nil {
		return fmt.Errorf("insert feedback: %w", err)
	}
	return nil
}

func (s *PostgresStore) List(ctx context.Context, limit, offset int) ([]models.Feedback, error) {
	return s.query(ctx,
		`SELECT id, user_name, message, rating, COALESCE(intent, ''), created_at
		 FROM feedbacks ORDER BY created_at DESC LIMIT $1 OFFSET $2`,
		limit, offset,
	)
}

func (s *PostgresStore) All(ctx context.Context) ([]models.Feedback, error) {
	return s.query(ctx,
		`SELECT id, user_name, message, rating, COALESCE(intent, ''), created_at
		 FROM feedbacks ORDER BY created_at DESC`,
	)
}

func (s *PostgresStore) query(ctx context.Context, sql string, args ...any) ([]models.Feedback, error) {
	rows, err := s.db.Query(ctx, sql, args...)
	if err != nil {
		return nil, fmt.Errorf("list feedback: %w", err)
	}
	defer rows.Close()

	out := []models.Feedback{}
	for rows.Next() {
		var f models.Feedback
		if err := rows.Scan(&f.ID, &f.User, &f.Message, &f.Rating, &f.Intent, &f.CreatedAt); err != nil {
			return nil, fmt.Errorf("scan feedback: %w", err)
		}
		out = append(out, f)
	}
	return out, rows.Err()
}

// FileStore keeps feedback in a JSON array on disk, rewritten atomically on
// every insert. It is meant for small deployments and as a fallback.
type FileStore struct {
	path string
	mu   sync.Mutex
}

func NewFileStore(path string) *FileStore {
	return &FileStore{path: path}
}

func (s *FileStore) Name() string { return "file" }

func (s *FileStore) Insert(_ context.Context, f *models.Feedback) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	all, err := s.read()
	if err != nil {
		return err
	}
	all = append(all, *f)
	return atomicfile.Write(s.path, 0o644, func(w io.Writer) error {
		enc := json.NewEncoder(w)
		enc.SetIndent("", "  ")
		return enc.Encode(all)
	})
}

func (s *FileStore) List(ctx context.Context, limit, offset int) ([]models.Feedback, error) {
	all, err := s.All(ctx)
	if err != nil {
		return nil, err
	}
	if offset >= len(all) {
		return []models.Feedback{}, nil
	}
	end := len(all)
	if limit > 0 {
		end = min(offset+limit, len(all))
	}
	return all[offset:end], nil
}

func (s *FileStore) All(_ context.Context) ([]models.Feedback, error) {
	s.mu.Lock()
	all, err := s.read()
	s.mu.Unlock()
	if err != nil {
		return nil, err
	}
	sort.SliceStable(all, func(i, j int) bool { return all[i].CreatedAt.After(all[j].CreatedAt) })
	return all, nil
}

func (s *FileStore) read() ([]models.Feedback, error) {
	data, err := os.ReadFile(s.path)
	if errors.Is(err, fs.ErrNotExist) {
		return []models.Feedback{}, nil
	}
	if err != nil {
		return nil, fmt.Errorf("read feedback file: %w", err)
	}
	all := []models.Feedback{}
	if len(data) == 0 {
		return all, nil
	}
	if err := json.Unmarshal(data, &all); err != nil {
		return nil, fmt.Errorf("decode feedback file %s: %w", s.path, err)
	}
	return all, nil
}
