// Package llmcache caches model replies in a key-value store so
// repeated queries skip the completion round trip.
package llmcache

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"fmt"

	"github.com/prometheus/client_golang/prometheus"
	"go.uber.org/zap"
)

// store is the consumer interface for the reply cache (ISP).
type store interface {
	Get(ctx context.Context, key string) ([]byte, error)
	Set(ctx context.Context, key string, value []byte) error
}

// llm is the inner completion provider.
type llm interface {
	Complete(ctx context.Context, systemPrompt, userPrompt string) (string, error)
}

// CachedLLM caches completion replies keyed by the prompt pair. The
// system prompt participates in the key, so a schema change naturally
// invalidates old entries.
type CachedLLM struct {
	inner      llm
	store      store
	prefix     string
	cacheTotal *prometheus.CounterVec
	logger     *zap.Logger
}

// New creates a caching decorator.
// cacheTotal is a counter vec with label "result" ("hit"/"miss"), passed explicitly.
func New(inner llm, s store, prefix string, cacheTotal *prometheus.CounterVec, logger *zap.Logger) *CachedLLM {
	return &CachedLLM{
		inner:      inner,
		store:      s,
		prefix:     prefix,
		cacheTotal: cacheTotal,
		logger:     logger,
	}
}

// Complete returns a cached reply or calls the inner provider.
func (c *CachedLLM) Complete(ctx context.Context, systemPrompt, userPrompt string) (string, error) {
	key := c.cacheKey(systemPrompt, userPrompt)

	if reply, ok := c.getFromCache(ctx, key); ok {
		c.incCache("hit")
		return reply, nil
	}

	c.incCache("miss")

	reply, err := c.inner.Complete(ctx, systemPrompt, userPrompt)
	if err != nil {
		return "", fmt.Errorf("complete: %w", err)
	}

	c.putToCache(ctx, key, reply)
	return reply, nil
}

func (c *CachedLLM) incCache(result string) {
	if c.cacheTotal != nil {
		c.cacheTotal.WithLabelValues(result).Inc()
	}
}

func (c *CachedLLM) cacheKey(systemPrompt, userPrompt string) string {
	h := sha256.New()
	h.Write([]byte(systemPrompt))
	h.Write([]byte{0})
	h.Write([]byte(userPrompt))
	return c.prefix + "llm_cache:" + hex.EncodeToString(h.Sum(nil))
}

// getFromCache treats every store failure as a miss.
func (c *CachedLLM) getFromCache(ctx context.Context, key string) (string, bool) {
	data, err := c.store.Get(ctx, key)
	if err != nil {
		return "", false
	}
	return string(data), true
}

// putToCache is best effort; a failed write only logs.
func (c *CachedLLM) putToCache(ctx context.Context, key, reply string) {
	if err := c.store.Set(ctx, key, []byte(reply)); err != nil {
		c.logger.Warn("llm cache write failed", zap.String("key", key), zap.Error(err))
	}
}
