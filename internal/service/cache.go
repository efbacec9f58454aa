package service

import (
	"context" // Request scoped context
	"strconv" // Key building
	"sync"    // Generation guard
	"time"    // TTL

	"vertex_games/internal/utils" // Cache implementations

	"github.com/sirupsen/logrus" // Logging
)

// CacheTTL is how long read results stay cached
const CacheTTL = 60 * time.Second

// Cache keys
const (
	keyGamesAll      = "games:all"
	keyGamesFeatured = "games:featured"
)

func gameKey(id uint) string {
	return "games:id:" + strconv.FormatUint(uint64(id), 10)
}

func reviewsKey(gameID uint) string {
	return "reviews:game:" + strconv.FormatUint(uint64(gameID), 10)
}

// generations counts invalidations per key. A loaded value is only stored when
// no invalidation of its key happened while it was being loaded.
var generations = struct {
	mu    sync.Mutex
	byKey map[string]uint64
}{byKey: map[string]uint64{}}

// cached returns the value under key, loading and storing it on a miss.
// Cache failures never fail the request.
func cached[T any](ctx context.Context, c utils.Cache, key string, load func() (T, error)) (T, error) {
	var v T
	if c == nil {
		return load()
	}
	found, err := c.Get(ctx, key, &v)
	if err == nil && found {
		return v, nil
	}
	if err != nil {
		logrus.WithFields(logrus.Fields{"key": key, "error": err.Error()}).Warn("Cache read failed")
	}
	generations.mu.Lock()
	gen := generations.byKey[key]
	generations.mu.Unlock()

	v, err = load()
	if err != nil {
		return v, err
	}

	generations.mu.Lock()
	defer generations.mu.Unlock()
	if generations.byKey[key] != gen {
		return v, nil // A write landed during the load, the value may be stale
	}
	if err := c.Set(ctx, key, v, CacheTTL); err != nil {
		logrus.WithFields(logrus.Fields{"key": key, "error": err.Error()}).Warn("Cache write failed")
	}
	return v, nil
}

// invalidate drops keys, logging failures
func invalidate(ctx context.Context, c utils.Cache, keys ...string) {
	if c == nil {
		return
	}
	generations.mu.Lock()
	defer generations.mu.Unlock()
	for _, k := range keys {
		generations.byKey[k]++
	}
	if err := c.Delete(ctx, keys...); err != nil {
		logrus.WithFields(logrus.Fields{"keys": keys, "error": err.Error()}).Warn("Cache invalidation failed")
	}
}
