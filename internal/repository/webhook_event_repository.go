package repository

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/griga-events/ticketing/internal/clock"
)

const webhookEventKeyPrefix = "griga:webhook-event:"

// RedisWebhookEventLedger remembers processed provider event ids in Redis.
type RedisWebhookEventLedger struct {
	client *redis.Client
	ttl    time.Duration
}

// NewRedisWebhookEventLedger builds a ledger whose claims expire after ttl.
func NewRedisWebhookEventLedger(client *redis.Client, ttl time.Duration) *RedisWebhookEventLedger {
	return &RedisWebhookEventLedger{client: client, ttl: ttl}
}

// Claim records eventID and reports whether this call was the first to do so.
func (l *RedisWebhookEventLedger) Claim(ctx context.Context, eventID string) (bool, error) {
	ok, err := l.client.SetNX(ctx, webhookEventKeyPrefix+eventID, time.Now().UTC().Format(time.RFC3339), l.ttl).Result()
	if err != nil {
		return false, fmt.Errorf("claim webhook event %s: %w", eventID, err)
	}
	return ok, nil
}

// Release forgets eventID so a redelivery can be processed again.
func (l *RedisWebhookEventLedger) Release(ctx context.Context, eventID string) error {
	if err := l.client.Del(ctx, webhookEventKeyPrefix+eventID).Err(); err != nil {
		return fmt.Errorf("release webhook event %s: %w", eventID, err)
	}
	return nil
}

// MemoryWebhookEventLedger is the in-process ledger used when Redis is not configured.
type MemoryWebhookEventLedger struct {
	mu     sync.Mutex
	ttl    time.Duration
	clock  clock.Clock
	claims map[string]time.Time
}

// NewMemoryWebhookEventLedger builds an in-process ledger.
func NewMemoryWebhookEventLedger(ttl time.Duration, clk clock.Clock) *MemoryWebhookEventLedger {
	if clk == nil {
		clk = clock.NewSystem()
	}
	return &MemoryWebhookEventLedger{ttl: ttl, clock: clk, claims: make(map[string]time.Time)}
}

// Claim records eventID and reports whether this call was the first to do so.
func (l *MemoryWebhookEventLedger) Claim(_ context.Context, eventID string) (bool, error) {
	l.mu.Lock()
	defer l.mu.Unlock()

	now := l.clock.Now()
	for id, expires := range l.claims {
		if !now.Before(expires) {
			delete(l.claims, id)
		}
	}

	if _, exists := l.claims[eventID]; exists {
		return false, nil
	}
	l.claims[eventID] = now.Add(l.ttl)
	return true, nil
}

// Release forgets eventID.
func (l *MemoryWebhookEventLedger) Release(_ context.Context, eventID string) error {
	l.mu.Lock()
	defer l.mu.Unlock()
	delete(l.claims, eventID)
	return nil
}
