// Package feedback stores user feedback and aggregates it for the
// dashboard.
package feedback

import (
	"context"
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"strconv"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/nikhilbhutani/voiceassistant/internal/metrics"
	"github.com/nikhilbhutani/voiceassistant/internal/models"
)

var ErrInvalidFeedback = errors.New("invalid feedback")

const (
	DefaultListLimit = 50
	MaxListLimit     = 500
)

type Input struct {
	User    string `json:"user"`
	Message string `json:"message"`
	Rating  *int   `json:"rating,omitempty"`
	Intent  string `json:"intent,omitempty"`
}

type Summary struct {
	Count              int            `json:"count"`
	Rated              int            `json:"rated"`
	AverageRating      *float64       `json:"average_rating"`
	RatingDistribution map[string]int `json:"rating_distribution"`
	ByUser             map[string]int `json:"by_user"`
	ByDay              map[string]int `json:"by_day"`
}

// Service writes to the primary store and falls back to the secondary when
// the primary fails or is not configured.
type Service struct {
	primary  Store
	fallback Store
	now      func() time.Time
	logger   *slog.Logger
}

func NewService(primary, fallback Store) *Service {
	return &Service{
		primary:  primary,
		fallback: fallback,
		now:      time.Now,
		logger:   slog.Default().With("component", "feedback"),
	}
}

func (s *Service) Submit(ctx context.Context, in Input) (*models.Feedback, error) {
	in.User = strings.TrimSpace(in.User)
	in.Message = strings.TrimSpace(in.Message)
	if in.User == "" {
		return nil, fmt.Errorf("%w: user is required", ErrInvalidFeedback)
	}
	if in.Message == "" {
		return nil, fmt.Errorf("%w: message is required", ErrInvalidFeedback)
	}
	if in.Rating != nil && (*in.Rating < 1 || *in.Rating > 5) {
		return nil, fmt.Errorf("%w: rating must be between 1 and 5", ErrInvalidFeedback)
	}

	f := &models.Feedback{
		ID:        uuid.New(),
		User:      in.User,
		Message:   in.Message,
		Rating:    in.Rating,
		Intent:    strings.TrimSpace(in.Intent),
		CreatedAt: s.now().UTC(),
	}

	var errs []error
	for _, st := range s.stores() {
		err := st.Insert(ctx, f)
		if err == nil {
			metrics.FeedbackSubmissions.WithLabelValues(st.Name()).Inc()
			s.logger.Info("feedback stored", "id", f.ID, "store", st.Name(), "rating", f.Rating)
			return f, nil
		}
		s.logger.Warn("feedback store failed", "store", st.Name(), "error", err)
		errs = append(errs, err)
	}
	if len(errs) == 0 {
		return nil, errors.New("no feedback store configured")
	}
	return nil, fmt.Errorf("store feedback: %w", errors.Join(errs...))
}

func (s *Service) List(ctx context.Context, limit, offset int) ([]models.Feedback, error) {
	if limit <= 0 {
		limit = DefaultListLimit
	}
	limit = min(limit, MaxListLimit)
	offset = max(offset, 0)
	return readFrom(s, func(st Store) ([]models.Feedback, error) { return st.List(ctx, limit, offset) })
}

func (s *Service) Summary(ctx context.Context) (*Summary, error) {
	all, err := readFrom(s, func(st Store) ([]models.Feedback, error) { return st.All(ctx) })
	if err != nil {
		return nil, err
	}
	return summarize(all), nil
}

// ExportCSV writes every feedback row, newest first.
func (s *Service) ExportCSV(ctx context.Context, w io.Writer) error {
	all, err := readFrom(s, func(st Store) ([]models.Feedback, error) { return st.All(ctx) })
	if err != nil {
		return err
	}

	cw := csv.NewWriter(w)
	if err := cw.Write([]string{"id", "user", "message", "rating", "intent", "created_at"}); err != nil {
		return err
	}
	for _, f := range all {
		rating := ""
		if f.Rating != nil {
			rating = strconv.Itoa(*f.Rating)
		}
		rec := []string{f.ID.String(), f.User, f.Message, rating, f.Intent, f.CreatedAt.UTC().Format(time.RFC3339)}
		if err := cw.Write(rec); err != nil {
			return err
		}
	}
	cw.Flush()
	return cw.Error()
}

func (s *Service) stores() []Store {
	var out []Store
	for _, st := range []Store{s.primary, s.fallback} {
		if st != nil {
			out = append(out, st)
		}
	}
	return out
}

func readFrom(s *Service, fn func(Store) ([]models.Feedback, error)) ([]models.Feedback, error) {
	var errs []error
	for _, st := range s.stores() {
		out, err := fn(st)
		if err == nil {
			return out, nil
		}
		s.logger.Warn("feedback store read failed", "store", st.Name(), "error", err)
		errs = append(errs, err)
	}
	if len(errs) == 0 {
		return []models.Feedback{}, nil
	}
	return nil, fmt.Errorf("read feedback: %w", errors.Join(errs...))
}

func summarize(all []models.Feedback) *Summary {
	sum := &Summary{
		Count:              len(all),
		RatingDistribution: map[string]int{"1": 0, "2": 0, "3": 0, "4": 0, "5": 0},
		ByUser:             map[string]int{},
		ByDay:              map[string]int{},
	}
	total := 0
	for _, f := range all {
		sum.ByUser[f.User]++
		sum.ByDay[f.CreatedAt.UTC().Format(time.DateOnly)]++
		if f.Rating != nil {
			sum.Rated++
			total += *f.Rating
			sum.RatingDistribution[strconv.Itoa(*f.Rating)]++
		}
	}
	if sum.Rated > 0 {
		avg := float64(total) / float64(sum.Rated)
		sum.AverageRating = &avg
	}
	return sum
}
