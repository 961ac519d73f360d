package service

import (
	"context"
	"encoding/json"
	"time"

	"tuitionhub/internal/payment/models"
	redisplat "tuitionhub/internal/platform/redis"
)

const receiptKeyPrefix = "settle:sess:"

// ReceiptCache is a Redis-backed fast path for settlement replays: provider
// redirects fire the success callback more than once, and a cache hit skips
// the provider round trip. Correctness never depends on it; every miss falls
// through to the idempotent settlement path.
type ReceiptCache struct {
	client *redisplat.Client
	ttl    time.Duration
}

// NewReceiptCache wraps the redis client. A nil client yields a cache that
// always misses.
func NewReceiptCache(client *redisplat.Client, ttl time.Duration) *ReceiptCache {
	return &ReceiptCache{client: client, ttl: ttl}
}

func (c *ReceiptCache) Get(ctx context.Context, sessionID string) (*models.Receipt, bool) {
	if c == nil || c.client == nil {
		return nil, false
	}
	raw, err := c.client.Get(ctx, receiptKeyPrefix+sessionID).Bytes()
	if err != nil {
		return nil, false
	}
	var receipt models.Receipt
	if err := json.Unmarshal(raw, &receipt); err != nil {
		return nil, false
	}
	return &receipt, true
}

func (c *ReceiptCache) Set(ctx context.Context, sessionID string, receipt *models.Receipt) {
	if c == nil || c.client == nil {
		return
	}
	raw, err := json.Marshal(receipt)
	if err != nil {
		return
	}
	c.client.Set(ctx, receiptKeyPrefix+sessionID, raw, c.ttl)
}
