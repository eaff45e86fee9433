// Package statuscache caches computed learner verification statuses.
//
// Every user has a generation counter. Invalidate bumps it, and an entry
// only counts as a hit while it carries the current generation. Set is
// conditional on the generation the caller saw at Get, so a status computed
// from rows read before a write cannot be stored after that write's
// invalidation.
package statuscache

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strconv"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/redis/go-redis/v9"

	"veritas/internal/verification/models"
	id "veritas/pkg/domain"
)

var lookups = promauto.NewCounterVec(prometheus.CounterOpts{
	Name: "veritas_status_cache_lookups_total",
	Help: "Status cache lookups by result (hit, miss, stale)",
}, []string{"result"})

var staleWrites = promauto.NewCounter(prometheus.CounterOpts{
	Name: "veritas_status_cache_stale_writes_total",
	Help: "Status cache writes dropped because the user was invalidated meanwhile",
})

const keyPrefix = "verification:status:"

// Keys share the {user} hash tag so one user's keys land in one cluster slot.
func userTag(userID id.UserID) string {
	return keyPrefix + "{" + userID.String() + "}:"
}

func genKey(userID id.UserID) string {
	return userTag(userID) + "gen"
}

func entryKey(userID id.UserID, windowID *id.WindowID) string {
	return userTag(userID) + field(windowID)
}

func field(windowID *id.WindowID) string {
	if windowID == nil {
		return "original"
	}
	return windowID.String()
}

type entry struct {
	Gen     uint64 `json:"gen"`
	Tag     string `json:"tag"`
	Message string `json:"message,omitempty"`
}

// KEYS[1] generation, KEYS[2] entry; ARGV gen, value, ttl in ms.
var setIfCurrent = redis.NewScript(`
local current = redis.call('GET', KEYS[1]) or '0'
if current ~= ARGV[1] then
	return 0
end
redis.call('SET', KEYS[2], ARGV[2], 'PX', ARGV[3])
return 1
`)

// RedisCache keeps one key per (user, window), each with its own TTL.
type RedisCache struct {
	client redis.UniversalClient
	ttl    time.Duration
	genTTL time.Duration
}

func NewRedisCache(client redis.UniversalClient, ttl time.Duration) *RedisCache {
	if ttl <= 0 {
		ttl = 5 * time.Minute
	}
	// Generations outlive every entry so an expired counter cannot
	// resurrect an entry written under the same number.
	genTTL := 24 * time.Hour
	if genTTL < 2*ttl {
		genTTL = 2 * ttl
	}
	return &RedisCache{client: client, ttl: ttl, genTTL: genTTL}
}

// Get returns the cached status and the user's current generation; ok is
// false on a miss.
func (c *RedisCache) Get(ctx context.Context, userID id.UserID, windowID *id.WindowID) (models.UserStatus, uint64, bool, error) {
	vals, err := c.client.MGet(ctx, genKey(userID), entryKey(userID, windowID)).Result()
	if err != nil {
		return models.UserStatus{}, 0, false, fmt.Errorf("status cache get: %w", err)
	}

	var gen uint64
	if s, ok := vals[0].(string); ok {
		gen, err = strconv.ParseUint(s, 10, 64)
		if err != nil {
			return models.UserStatus{}, 0, false, fmt.Errorf("status cache generation: %w", err)
		}
	}
	raw, ok := vals[1].(string)
	if !ok {
		lookups.WithLabelValues("miss").Inc()
		return models.UserStatus{}, gen, false, nil
	}
	var e entry
	if err := json.Unmarshal([]byte(raw), &e); err != nil {
		return models.UserStatus{}, gen, false, fmt.Errorf("status cache decode: %w", err)
	}
	if e.Gen != gen {
		lookups.WithLabelValues("stale").Inc()
		return models.UserStatus{}, gen, false, nil
	}
	lookups.WithLabelValues("hit").Inc()
	return models.UserStatus{Tag: models.StatusTag(e.Tag), Message: e.Message}, gen, true, nil
}

// Set stores status under gen. It is a no-op when the user has been
// invalidated since gen was read.
func (c *RedisCache) Set(ctx context.Context, userID id.UserID, windowID *id.WindowID, gen uint64, status models.UserStatus) error {
	raw, err := json.Marshal(entry{Gen: gen, Tag: string(status.Tag), Message: status.Message})
	if err != nil {
		return fmt.Errorf("status cache encode: %w", err)
	}
	stored, err := setIfCurrent.Run(ctx, c.client,
		[]string{genKey(userID), entryKey(userID, windowID)},
		strconv.FormatUint(gen, 10), raw, c.ttl.Milliseconds(),
	).Int()
	if err != nil && !errors.Is(err, redis.Nil) {
		return fmt.Errorf("status cache set: %w", err)
	}
	if stored == 0 {
		staleWrites.Inc()
	}
	return nil
}

// Invalidate retires every cached status for the user. Old entries stay
// until their own TTL but no longer match the generation.
func (c *RedisCache) Invalidate(ctx context.Context, userID id.UserID) error {
	key := genKey(userID)
	pipe := c.client.TxPipeline()
	pipe.Incr(ctx, key)
	pipe.Expire(ctx, key, c.genTTL)
	if _, err := pipe.Exec(ctx); err != nil {
		return fmt.Errorf("status cache invalidate: %w", err)
	}
	return nil
}
