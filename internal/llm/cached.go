package llm

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"errors"
	"log/slog"
	"time"
)

const replyKeyPrefix = "llm:reply:"

// ReplyStore is the subset of the Redis cache used for completion replies.
type ReplyStore interface {
	Get(ctx context.Context, key string, dest any) error
	Set(ctx context.Context, key string, value any, ttl time.Duration) error
}

type completer interface {
	Complete(ctx context.Context, prompt, system string) (string, error)
}

// CachedCompleter memoizes replies keyed by a hash of provider, system and
// prompt. Cache failures never fail a completion.
type CachedCompleter struct {
	next     completer
	store    ReplyStore
	ttl      time.Duration
	provider string
	logger   *slog.Logger
}

func NewCachedCompleter(next *Completer, store ReplyStore, ttl time.Duration) *CachedCompleter {
	return &CachedCompleter{
		next:     next,
		store:    store,
		ttl:      ttl,
		provider: next.Provider(),
		logger:   slog.Default().With("component", "llm-cache"),
	}
}

func (c *CachedCompleter) Complete(ctx context.Context, prompt, system string) (string, error) {
	key := ReplyKey(c.provider, prompt, system)

	var cached string
	if err := c.store.Get(ctx, key, &cached); err == nil && cached != "" {
		return cached, nil
	}

	reply, err := c.next.Complete(ctx, prompt, system)
	if err != nil {
		return "", err
	}
	if c.ttl > 0 {
		if err := c.store.Set(ctx, key, reply, c.ttl); err != nil && !errors.Is(err, context.Canceled) {
			c.logger.Warn("failed to cache completion", "error", err)
		}
	}
	return reply, nil
}

func ReplyKey(provider, prompt, system string) string {
	h := sha256.New()
	for _, part := range []string{provider, system, prompt} {
		h.Write([]byte(part))
		h.Write([]byte{0})
	}
	return replyKeyPrefix + hex.EncodeToString(h.Sum(nil))
}
