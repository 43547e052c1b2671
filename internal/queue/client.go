package queue

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/hibiken/asynq"

	"github.com/nikhilbhutani/voiceassistant/internal/config"
)

const trainingQueue = "training"

type Client struct {
	client *asynq.Client
}

func RedisOpt(cfg config.RedisConfig) asynq.RedisClientOpt {
	return asynq.RedisClientOpt{
		Addr:     cfg.Addr,
		Password: cfg.Password,
		DB:       cfg.DB,
	}
}

func NewClient(cfg config.RedisConfig) *Client {
	return &Client{client: asynq.NewClient(RedisOpt(cfg))}
}

func (c *Client) Close() error {
	return c.client.Close()
}

// EnqueueIntentTrain schedules a training run and returns the task id.
// Only one training task may be pending at a time.
func (c *Client) EnqueueIntentTrain(ctx context.Context, payload IntentTrainPayload) (string, error) {
	task, err := NewIntentTrainTask(payload)
	if err != nil {
		return "", err
	}
	info, err := c.client.EnqueueContext(ctx, task,
		asynq.Queue(trainingQueue),
		asynq.MaxRetry(1),
		asynq.Timeout(30*time.Minute),
		asynq.Unique(30*time.Minute),
	)
	if err != nil {
		return "", fmt.Errorf("enqueue %s: %w", TypeIntentTrain, err)
	}
	return info.ID, nil
}

func NewIntentTrainTask(payload IntentTrainPayload) (*asynq.Task, error) {
	data, err := json.Marshal(payload)
	if err != nil {
		return nil, fmt.Errorf("marshal payload: %w", err)
	}
	return asynq.NewTask(TypeIntentTrain, data), nil
}

// Queues is the worker queue priority table.
func Queues() map[string]int {
	return map[string]int{trainingQueue: 1}
}
