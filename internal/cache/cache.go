// Package cache holds the read-through cache for owner document listings.
package cache

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"strconv"
	"time"

	"github.com/redis/go-redis/v9"
	"github.com/sirupsen/logrus"

	"docstore/internal/config"
	"docstore/internal/model"
)

const keyPrefix = "docstore:documents:owner:"

// minGenTTL bounds how long an owner's generation counter outlives its
// last invalidation. It is kept well above the entry TTL so a counter never
// resets while an entry stamped with it is still readable.
const minGenTTL = 24 * time.Hour

// DocumentCache stores ListByOwner results. Failures are logged and treated
// as misses; the database stays the source of truth.
//
// Entries are stamped with the owner's generation as observed by the read
// that produced them. InvalidateOwner bumps the generation, so a listing
// read before a write but stored after its invalidation is never served.
type DocumentCache interface {
	// GetOwnerDocuments returns the cached listing and the owner's current
	// generation. A negative generation means the cache is unavailable.
	GetOwnerDocuments(ctx context.Context, ownerID string) (docs []model.Document, gen int64, hit bool)

	// SetOwnerDocuments stores docs under gen, the value returned by the
	// GetOwnerDocuments call that preceded the database read.
	SetOwnerDocuments(ctx context.Context, ownerID string, gen int64, docs []model.Document)

	InvalidateOwner(ctx context.Context, ownerID string)
}

// client is the subset of *redis.Client used here.
type client interface {
	MGet(ctx context.Context, keys ...string) *redis.SliceCmd
	Set(ctx context.Context, key string, value any, expiration time.Duration) *redis.StatusCmd
	Incr(ctx context.Context, key string) *redis.IntCmd
	Expire(ctx context.Context, key string, expiration time.Duration) *redis.BoolCmd
	Del(ctx context.Context, keys ...string) *redis.IntCmd
}

// Redis is a DocumentCache backed by Redis.
type Redis struct {
	client client
	ttl    time.Duration
	genTTL time.Duration
	log    logrus.FieldLogger
}

var _ DocumentCache = (*Redis)(nil)

// NewRedis connects to cfg.Addr and verifies the connection with PING.
func NewRedis(ctx context.Context, cfg config.RedisConfig, log logrus.FieldLogger) (*Redis, error) {
	rdb := redis.NewClient(&redis.Options{
		Addr:     cfg.Addr,
		Password: cfg.Password,
		DB:       cfg.DB,
	})

	pingCtx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()
	if err := rdb.Ping(pingCtx).Err(); err != nil {
		_ = rdb.Close()
		return nil, fmt.Errorf("ping redis: %w", err)
	}
	return NewRedisWithClient(rdb, cfg.TTL, log), nil
}

// Close releases the underlying connection pool when the client owns one.
func (r *Redis) Close() error {
	if c, ok := r.client.(io.Closer); ok {
		return c.Close()
	}
	return nil
}

// NewRedisWithClient wraps an existing client.
func NewRedisWithClient(c client, ttl time.Duration, log logrus.FieldLogger) *Redis {
	if ttl <= 0 {
		ttl = time.Minute
	}
	genTTL := 10 * ttl
	if genTTL < minGenTTL {
		genTTL = minGenTTL
	}
	return &Redis{client: c, ttl: ttl, genTTL: genTTL, log: log.WithField("component", "cache")}
}

func dataKey(ownerID string) string {
	return keyPrefix + ownerID
}

func genKey(ownerID string) string {
	return keyPrefix + ownerID + ":gen"
}

type entry struct {
	Gen  int64            `json:"gen"`
	Docs []model.Document `json:"docs"`
}

func (r *Redis) GetOwnerDocuments(ctx context.Context, ownerID string) ([]model.Document, int64, bool) {
	logger := r.log.WithField("owner_id", ownerID)

	vals, err := r.client.MGet(ctx, genKey(ownerID), dataKey(ownerID)).Result()
	if err != nil || len(vals) != 2 {
		logger.WithError(err).Warn("cache get failed")
		return nil, -1, false
	}

	var gen int64
	if s, ok := vals[0].(string); ok {
		if gen, err = strconv.ParseInt(s, 10, 64); err != nil {
			logger.WithError(err).Warn("cache generation undecodable")
			return nil, -1, false
		}
	}

	raw, ok := vals[1].(string)
	if !ok {
		return nil, gen, false
	}
	var e entry
	if err := json.Unmarshal([]byte(raw), &e); err != nil {
		logger.WithError(err).Warn("cache entry undecodable")
		return nil, gen, false
	}
	if e.Gen != gen {
		return nil, gen, false
	}
	return e.Docs, gen, true
}

func (r *Redis) SetOwnerDocuments(ctx context.Context, ownerID string, gen int64, docs []model.Document) {
	if gen < 0 {
		return
	}
	raw, err := json.Marshal(entry{Gen: gen, Docs: docs})
	if err != nil {
		r.log.WithError(err).Warn("cache encode failed")
		return
	}
	if err := r.client.Set(ctx, dataKey(ownerID), raw, r.ttl).Err(); err != nil {
		r.log.WithError(err).WithField("owner_id", ownerID).Warn("cache set failed")
	}
}

func (r *Redis) InvalidateOwner(ctx context.Context, ownerID string) {
	logger := r.log.WithField("owner_id", ownerID)
	if err := r.client.Incr(ctx, genKey(ownerID)).Err(); err != nil {
		logger.WithError(err).Warn("cache generation bump failed")
	} else if err := r.client.Expire(ctx, genKey(ownerID), r.genTTL).Err(); err != nil {
		logger.WithError(err).Warn("cache generation expire failed")
	}
	if err := r.client.Del(ctx, dataKey(ownerID)).Err(); err != nil {
		logger.WithError(err).Warn("cache invalidate failed")
	}
}

// Noop is used when no Redis address is configured.
type Noop struct{}

var _ DocumentCache = Noop{}

func (Noop) GetOwnerDocuments(context.Context, string) ([]model.Document, int64, bool) {
	return nil, 0, false
}
func (Noop) SetOwnerDocuments(context.Context, string, int64, []model.Document) {}
func (Noop) InvalidateOwner(context.Context, string)                            {}
