package cache

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"

	"github.com/redis/go-redis/v9"
)

// ModelUpdate announces that a new intent model was written to Path.
type ModelUpdate struct {
	Path      string `json:"path"`
	RunID     string `json:"run_id,omitempty"`
	TrainedAt string `json:"trained_at,omitempty"`
}

// ModelEvents carries model reload notifications between the training
// worker and API instances.
type ModelEvents struct {
	client  *redis.Client
	channel string
	logger  *slog.Logger
}

func NewModelEvents(client *redis.Client, channel string) *ModelEvents {
	return &ModelEvents{
		client:  client,
		channel: channel,
		logger:  slog.Default().With("component", "model-events"),
	}
}

func (e *ModelEvents) Channel() string { return e.channel }

func (e *ModelEvents) Publish(ctx context.Context, u ModelUpdate) error {
	data, err := json.Marshal(u)
	if err != nil {
		return fmt.Errorf("marshal model update: %w", err)
	}
	if err := e.client.Publish(ctx, e.channel, data).Err(); err != nil {
		return fmt.Errorf("publish %s: %w", e.channel, err)
	}
	return nil
}

// Subscribe calls fn for every update until ctx is cancelled. Malformed
// messages are logged and skipped.
func (e *ModelEvents) Subscribe(ctx context.Context, fn func(ModelUpdate)) error {
	sub := e.client.Subscribe(ctx, e.channel)
	defer sub.Close()

	if _, err := sub.Receive(ctx); err != nil {
		return fmt.Errorf("subscribe %s: %w", e.channel, err)
	}
	e.logger.Info("listening for model updates", "channel", e.channel)

	ch := sub.Channel()
	for {
		select {
		case <-ctx.Done():
			return nil
		case msg, ok := <-ch:
			if !ok {
				return nil
			}
			var u ModelUpdate
			if err := json.Unmarshal([]byte(msg.Payload), &u); err != nil {
				e.logger.Warn("ignoring malformed model update", "error", err)
				continue
			}
			fn(u)
		}
	}
}
