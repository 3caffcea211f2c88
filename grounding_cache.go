package main

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/redis/go-redis/v9"
)

// The answer cache sits in front of the grounding service when Redis is
// configured. Road conditions go stale fast, so the TTL is short; a hit only
// saves the remote call and never changes how results enter the history.

const (
	answerCacheKeyPrefix  = "grounding"
	defaultAnswerCacheTTL = 2 * time.Minute
)

type cachedGroundingService struct {
	next   GroundingService
	cache  Cache
	ttl    time.Duration
	logger *slog.Logger
}

func newCachedGroundingService(next GroundingService, cache Cache, ttl time.Duration, logger *slog.Logger) *cachedGroundingService {
	if ttl <= 0 {
		ttl = defaultAnswerCacheTTL
	}
	return &cachedGroundingService{
		next:   next,
		cache:  cache,
		ttl:    ttl,
		logger: logger,
	}
}

// answerCacheKey buckets the origin to roughly 100m so nearby fixes share entries.
func answerCacheKey(prompt string, origin Coordinate) (string, error) {
	normalized, err := normalizePrompt(prompt)
	if err != nil {
		return "", err
	}
	sum := sha256.Sum256([]byte(fmt.Sprintf("%s|%.3f|%.3f", normalized, origin.Latitude, origin.Longitude)))
	return answerCacheKeyPrefix + ":" + hex.EncodeToString(sum[:]), nil
}

func (s *cachedGroundingService) Query(ctx context.Context, prompt string, origin Coordinate) (GroundedAnswer, error) {
	key, err := answerCacheKey(prompt, origin)
	if err != nil {
		s.logger.Warn("could not build answer cache key, bypassing cache", "error", err)
		return s.next.Query(ctx, prompt, origin)
	}

	cached, err := s.cache.Get(ctx, key)
	switch {
	case err == nil:
		var answer GroundedAnswer
		jsonErr := json.Unmarshal([]byte(cached), &answer)
		if jsonErr == nil {
			s.logger.Debug("answer cache hit", "key", key)
			answerCacheLookupsTotal.WithLabelValues("hit").Inc()
			if answer.Sources == nil {
				answer.Sources = []Source{}
			}
			return answer, nil
		}
		s.logger.Warn("invalid answer cache entry", "key", key, "error", jsonErr)
	case errors.Is(err, redis.Nil):
	default:
		s.logger.Warn("error getting from answer cache", "key", key, "error", err)
	}
	answerCacheLookupsTotal.WithLabelValues("miss").Inc()

	answer, err := s.next.Query(ctx, prompt, origin)
	if err != nil {
		return GroundedAnswer{}, err
	}

	if cacheErr := s.cache.Set(ctx, key, answer, s.ttl); cacheErr != nil {
		s.logger.Warn("error setting answer cache", "key", key, "error", cacheErr)
	} else {
		s.logger.Debug("set answer cache", "key", key)
	}
	return answer, nil
}
