package service

import (
	"context"
	"encoding/json"
	"errors"
	"math/rand/v2"
	"time"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog"
	"github.com/stemsi/assessment-backend/internal/config"
	"github.com/stemsi/assessment-backend/internal/model"
	"golang.org/x/sync/singleflight"
)

// QuestionLoader fetches a test's questions from the authoritative store.
type QuestionLoader interface {
	ListQuestions(ctx context.Context, testID uuid.UUID) ([]model.Question, error)
}

// TestCache keeps question banks in Redis.
// Redis is never authoritative: every failure falls back to the store.
type TestCache struct {
	rdb         *redis.Client
	loader      QuestionLoader
	questionTTL time.Duration
	sf          singleflight.Group
	log         zerolog.Logger
}

// NewTestCache creates a new TestCache. rdb may be nil, in which case every
// read goes to loader.
func NewTestCache(rdb *redis.Client, loader QuestionLoader, cfg *config.Config, log zerolog.Logger) *TestCache {
	return &TestCache{
		rdb:         rdb,
		loader:      loader,
		questionTTL: cfg.QuestionCacheTTL,
		log:         log.With().Str("component", "test_cache").Logger(),
	}
}

// Questions returns the question bank of a test, loading it at most once per
// test across concurrent callers on a cache miss.
func (c *TestCache) Questions(ctx context.Context, testID uuid.UUID) ([]model.Question, error) {
	key := config.CacheKey.TestQuestionsKey(testID.String())
	if qs, ok := c.getQuestions(ctx, key); ok {
		return qs, nil
	}

	v, err, _ := c.sf.Do(key, func() (interface{}, error) {
		// Another caller may have filled it while we waited.
		if qs, ok := c.getQuestions(ctx, key); ok {
			return qs, nil
		}
		qs, err := c.loader.ListQuestions(ctx, testID)
		if err != nil {
			return nil, err
		}
		c.setJSON(ctx, key, qs, c.withJitter(c.questionTTL))
		return qs, nil
	})
	if err != nil {
		return nil, err
	}
	return v.([]model.Question), nil
}

// WarmQuestions stores a freshly created question bank.
func (c *TestCache) WarmQuestions(ctx context.Context, testID uuid.UUID, questions []model.Question) {
	c.setJSON(ctx, config.CacheKey.TestQuestionsKey(testID.String()), questions, c.withJitter(c.questionTTL))
}

// Evict drops everything cached for a test.
func (c *TestCache) Evict(ctx context.Context, testID uuid.UUID) {
	if c.rdb == nil {
		return
	}
	if err := c.rdb.Del(ctx, config.CacheKey.TestQuestionsKey(testID.String())).Err(); err != nil {
		c.log.Warn().Err(err).Str("test_id", testID.String()).Msg("Cache eviction failed")
	}
}

func (c *TestCache) getQuestions(ctx context.Context, key string) ([]model.Question, bool) {
	var qs []model.Question
	if !c.getJSON(ctx, key, &qs) || len(qs) == 0 {
		return nil, false
	}
	return qs, true
}

func (c *TestCache) getJSON(ctx context.Context, key string, dst any) bool {
	if c.rdb == nil {
		return false
	}
	raw, err := c.rdb.Get(ctx, key).Bytes()
	if err != nil {
		if !errors.Is(err, redis.Nil) {
			c.log.Warn().Err(err).Str("key", key).Msg("Cache read failed, falling back to store")
		}
		return false
	}
	if err := json.Unmarshal(raw, dst); err != nil {
		c.log.Warn().Err(err).Str("key", key).Msg("Corrupt cache entry")
		return false
	}
	return true
}

func (c *TestCache) setJSON(ctx context.Context, key string, v any, ttl time.Duration) {
	if c.rdb == nil {
		return
	}
	raw, err := json.Marshal(v)
	if err != nil {
		c.log.Error().Err(err).Str("key", key).Msg("Cache encode failed")
		return
	}
	if err := c.rdb.Set(ctx, key, raw, ttl).Err(); err != nil {
		c.log.Warn().Err(err).Str("key", key).Msg("Cache write failed")
	}
}

// withJitter spreads expiries by up to 10% so warmed keys don't expire together.
func (c *TestCache) withJitter(ttl time.Duration) time.Duration {
	if ttl <= 0 {
		return 0
	}
	return ttl + time.Duration(rand.Int64N(int64(ttl)/10+1))
}
