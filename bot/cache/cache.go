package cache

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"golang.org/x/sync/singleflight"

	"github.com/concert-mate/bot/core/logger"
	"log/slog"
)

// Kind names one cacheable collection of a user.
type Kind string

const (
	KindCities     Kind = "cities"
	KindTrackLists Kind = "track_lists"
	KindConcerts   Kind = "concerts"
)

// TTL returns the fixed expiry for the kind. Concert selections are more
// expensive to compute upstream, so they live longer.
func (k Kind) TTL() time.Duration {
	if k == KindConcerts {
		return 300 * time.Second
	}
	return 120 * time.Second
}

// Invalidation sets per mutation class: a city change outdates the concert
// selection too, and likewise for track lists.
var (
	CityMutation      = []Kind{KindCities, KindConcerts}
	TrackListMutation = []Kind{KindTrackLists, KindConcerts}
)

// Cache is a per-user, per-kind read-through cache over a KV store.
type Cache struct {
	kv KV
	sf singleflight.Group
}

func New(kv KV) *Cache {
	return &Cache{kv: kv}
}

func key(userID int64, kind Kind) string {
	return fmt.Sprintf("cache:%s:%d", kind, userID)
}

// Invalidate drops the given kinds for one user.
func (c *Cache) Invalidate(ctx context.Context, userID int64, kinds ...Kind) error {
	keys := make([]string, len(kinds))
	for i, k := range kinds {
		keys[i] = key(userID, k)
	}
	if err := c.kv.Del(ctx, keys...); err != nil {
		logger.CACHE.Warn("cache invalidation failed",
			slog.String("event", "cache.invalidate"),
			slog.Int64("user_id", userID),
			slog.String("cause", err.Error()),
		)
		return err
	}
	return nil
}

// Fetch returns the cached value for (userID, kind) or, on a miss, calls
// fetch, stores the result, and returns it. A stored value that no longer
// decodes into T counts as a miss. Concurrent misses for the same key are
// collapsed into one backend call.
func Fetch[T any](ctx context.Context, c *Cache, userID int64, kind Kind, fetch func(context.Context) (T, error)) (T, error) {
	k := key(userID, kind)

	if raw, ok, err := c.kv.Get(ctx, k); err == nil && ok {
		var cached T
		if jsonErr := json.Unmarshal([]byte(raw), &cached); jsonErr == nil {
			logger.CACHE.Debug("cache hit",
				slog.String("event", "cache.hit"),
				slog.String("kind", string(kind)),
				slog.Int64("user_id", userID),
			)
			return cached, nil
		}
		logger.CACHE.Warn("cached value does not decode, treating as miss",
			slog.String("event", "cache.decode"),
			slog.String("kind", string(kind)),
			slog.Int64("user_id", userID),
		)
	} else if err != nil {
		logger.CACHE.Warn("cache read failed, falling through to backend",
			slog.String("event", "cache.read"),
			slog.String("kind", string(kind)),
			slog.Int64("user_id", userID),
			slog.String("cause", err.Error()),
		)
	}

	result, err, _ := c.sf.Do(k, func() (any, error) {
		fetched, err := fetch(ctx)
		if err != nil {
			return fetched, err
		}
		encoded, jsonErr := json.Marshal(fetched)
		if jsonErr == nil {
			if setErr := c.kv.Set(ctx, k, string(encoded), kind.TTL()); setErr != nil {
				logger.CACHE.Warn("cache write failed",
					slog.String("event", "cache.write"),
					slog.String("kind", string(kind)),
					slog.Int64("user_id", userID),
					slog.String("cause", setErr.Error()),
				)
			}
		}
		return fetched, nil
	})
	if err != nil {
		var zero T
		return zero, err
	}
	return result.(T), nil
}
