// File: services/intelligence/contextStore.go
package intelligence

import (
	"context"
	"encoding/json"
	"time"

	"revline/models"

	"github.com/go-redis/redis/v8"
)

const callerContextPrefix = "caller:ctx:"

// RedisContextStore keeps per-caller continuity between calls: last intent,
// last outcome, and SMS preferences, keyed by shop and phone number.
type RedisContextStore struct {
	client *redis.Client
	ttl    time.Duration
}

func NewRedisContextStore(client *redis.Client, ttl time.Duration) *RedisContextStore {
	return &RedisContextStore{client: client, ttl: ttl}
}

func contextKey(shopID, phone string) string {
	return callerContextPrefix + shopID + ":" + phone
}

func (s *RedisContextStore) Get(ctx context.Context, shopID, phone string) (*models.CallerContext, error) {
	data, err := s.client.Get(ctx, contextKey(shopID, phone)).Result()
	if err == redis.Nil {
		return &models.CallerContext{ShopID: shopID, PhoneNumber: phone}, nil
	}
	if err != nil {
		return nil, err
	}
	var callerCtx models.CallerContext
	if err := json.Unmarshal([]byte(data), &callerCtx); err != nil {
		return nil, err
	}
	return &callerCtx, nil
}

func (s *RedisContextStore) Set(ctx context.Context, callerCtx *models.CallerContext) error {
	b, err := json.Marshal(callerCtx)
	if err != nil {
		return err
	}
	return s.client.Set(ctx, contextKey(callerCtx.ShopID, callerCtx.PhoneNumber), b, s.ttl).Err()
}

func (s *RedisContextStore) Clear(ctx context.Context, shopID, phone string) error {
	return s.client.Del(ctx, contextKey(shopID, phone)).Err()
}

// RecordCall folds one finished call into the caller's context.
func (s *RedisContextStore) RecordCall(ctx context.Context, shopID, phone, intent, outcome, summary string) error {
	callerCtx, err := s.Get(ctx, shopID, phone)
	if err != nil {
		return err
	}
	callerCtx.CallCount++
	callerCtx.LastIntent = intent
	callerCtx.LastOutcome = outcome
	callerCtx.LastSummary = summary
	callerCtx.LastCallAt = time.Now()
	return s.Set(ctx, callerCtx)
}
