package qa

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"time"

	"medlabel/internal/redis"
)

// CachedEngine memoizes answers in redis. Context blocks are append-only, so
// a (question, context) pair always maps to the same answer; the TTL only
// bounds cache growth. Cache failures are transparent: the inner engine is
// always consulted on any cache problem.
type CachedEngine struct {
	inner Engine
	cache *redis.Client
	ttl   time.Duration
}

func NewCachedEngine(inner Engine, cache *redis.Client, ttl time.Duration) *CachedEngine {
	return &CachedEngine{inner: inner, cache: cache, ttl: ttl}
}

func (e *CachedEngine) Answer(ctx context.Context, question, contextText string) (Answer, error) {
	key := answerKey(question, contextText)

	if cached, err := e.cache.Get(ctx, key); err == nil {
		var ans Answer
		if jsonErr := json.Unmarshal([]byte(cached), &ans); jsonErr == nil {
			return ans, nil
		}
	}

	ans, err := e.inner.Answer(ctx, question, contextText)
	if err != nil {
		return Answer{}, err
	}
	if payload, jsonErr := json.Marshal(ans); jsonErr == nil {
		_ = e.cache.Set(ctx, key, payload, e.ttl)
	}
	return ans, nil
}

func answerKey(question, contextText string) string {
	h := sha256.New()
	h.Write([]byte(question))
	h.Write([]byte{0})
	h.Write([]byte(contextText))
	return "qa:answer:" + hex.EncodeToString(h.Sum(nil))
}
