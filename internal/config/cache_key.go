package config

import (
	"fmt"
	"time"
)

type CacheKeyStruct struct{}

func NewCacheKeyStruct() *CacheKeyStruct {
	return &CacheKeyStruct{}
}

// TestQuestionsKey returns the cache key for a test's question bank, answers included.
// Never serve this value to students directly.
func (r *CacheKeyStruct) TestQuestionsKey(testID string) string {
	return fmt.Sprintf("test:%s:questions", testID)
}

// AttemptRateKey returns the fixed-window counter key for a user's start/submit calls
func (r *CacheKeyStruct) AttemptRateKey(userID string, window time.Time) string {
	return fmt.Sprintf("ratelimit:attempt:%s:%d", userID, window.Unix())
}

var CacheKey = NewCacheKeyStruct()
