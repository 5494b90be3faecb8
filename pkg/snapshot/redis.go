package snapshot

import (
	"context"
	"encoding/json"
	"sort"
	"strings"
	"time"

	errs "bup/pkg/errors"
	"bup/pkg/logger"
	"bup/pkg/models"

	"github.com/redis/go-redis/v9"
)

// DefaultRedisKey is the hash holding every snapshot, one field per uid.
const DefaultRedisKey = "bup:snapshots"

// RedisStore keeps snapshots as JSON fields of one hash.
type RedisStore struct {
	rdb     *redis.Client
	hashKey string
	log     logger.Logger
}

// NewRedisStore connects to url and pings it.
func NewRedisStore(ctx context.Context, url, hashKey string, log logger.Logger) (*RedisStore, error) {
	opt, err := redis.ParseURL(strings.TrimSpace(url))
	if err != nil {
		return nil, errs.NewStorage("invalid redis url", err)
	}
	rdb := redis.NewClient(opt)

	pingCtx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()
	if err := rdb.Ping(pingCtx).Err(); err != nil {
		_ = rdb.Close()
		return nil, errs.NewStorage("redis unreachable", err)
	}

	return NewRedisStoreWithClient(rdb, hashKey, log), nil
}

// NewRedisStoreWithClient wraps an existing client.
func NewRedisStoreWithClient(rdb *redis.Client, hashKey string, log logger.Logger) *RedisStore {
	if hashKey == "" {
		hashKey = DefaultRedisKey
	}
	if log == nil {
		log = logger.NewNopLogger()
	}
	return &RedisStore{rdb: rdb, hashKey: hashKey, log: log}
}

// Close releases the connection pool.
func (s *RedisStore) Close() error {
	if s == nil || s.rdb == nil {
		return nil
	}
	return s.rdb.Close()
}

func (s *RedisStore) Load(ctx context.Context, uid string) (*models.Metadata, error) {
	raw, err := s.rdb.HGet(ctx, s.hashKey, uid).Result()
	if err == redis.Nil {
		return nil, nil
	}
	if err != nil {
		return nil, errs.NewStorage("failed to read snapshot", err)
	}

	var md models.Metadata
	if err := json.Unmarshal([]byte(raw), &md); err != nil {
		return nil, errs.NewStorage("failed to decode snapshot "+uid, err)
	}
	return &md, nil
}

func (s *RedisStore) Save(ctx context.Context, md *models.Metadata) error {
	b, err := json.Marshal(md)
	if err != nil {
		return errs.NewStorage("failed to encode snapshot", err)
	}
	if err := s.rdb.HSet(ctx, s.hashKey, md.UID, string(b)).Err(); err != nil {
		return errs.NewStorage("failed to write snapshot", err)
	}
	s.log.DebugWithFields("snapshot saved", map[string]interface{}{
		"uid": md.UID,
		"key": s.hashKey,
	})
	return nil
}

func (s *RedisStore) Delete(ctx context.Context, uid string) error {
	if err := s.rdb.HDel(ctx, s.hashKey, uid).Err(); err != nil {
		return errs.NewStorage("failed to delete snapshot", err)
	}
	return nil
}

func (s *RedisStore) List(ctx context.Context) ([]string, error) {
	uids, err := s.rdb.HKeys(ctx, s.hashKey).Result()
	if err != nil {
		return nil, errs.NewStorage("failed to list snapshots", err)
	}
	sort.Strings(uids)
	return uids, nil
}
