package store

import (
	"context"
	"errors"
	"fmt"
	"net"
	"sort"
	"time"

	"github.com/redis/go-redis/v9"
)

// Lua script for compare-and-delete. Only the holder that wrote the value
// may remove the key.
const luaDeleteIfEquals = `
-- KEYS[1] = key
-- ARGV[1] = expected value
if redis.call("GET", KEYS[1]) == ARGV[1] then
    return redis.call("DEL", KEYS[1])
end
return 0
`

// Lua script for a conditional hash field write
const luaHashCompareAndSwap = `
-- KEYS[1] = hash key
-- ARGV[1] = field, ARGV[2] = expected value, ARGV[3] = new value
if redis.call("HGET", KEYS[1], ARGV[1]) == ARGV[2] then
    redis.call("HSET", KEYS[1], ARGV[1], ARGV[3])
    return 1
end
return 0
`

var (
	deleteIfEqualsScript     = redis.NewScript(luaDeleteIfEquals)
	hashCompareAndSwapScript = redis.NewScript(luaHashCompareAndSwap)
)

const scanBatchSize = 100

// RedisStore implements Store on top of a go-redis client
type RedisStore struct {
	redis *redis.Client
}

// NewRedisStore creates a new Redis backed store
func NewRedisStore(redisClient *redis.Client) *RedisStore {
	return &RedisStore{
		redis: redisClient,
	}
}

func (s *RedisStore) HashGet(ctx context.Context, key, field string) (string, bool, error) {
	val, err := s.redis.HGet(ctx, key, field).Result()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return "", false, nil
		}
		return "", false, classify("hget", key, err)
	}
	return val, true, nil
}

func (s *RedisStore) HashPut(ctx context.Context, key, field, value string) error {
	if err := s.redis.HSet(ctx, key, field, value).Err(); err != nil {
		return classify("hset", key, err)
	}
	return nil
}

// HashPutAll writes every field in one HSET. Fields are sent in sorted
// order so the command is deterministic.
func (s *RedisStore) HashPutAll(ctx context.Context, key string, values map[string]string) error {
	if len(values) == 0 {
		return nil
	}

	fields := make([]string, 0, len(values))
	for field := range values {
		fields = append(fields, field)
	}
	sort.Strings(fields)

	args := make([]interface{}, 0, len(values)*2)
	for _, field := range fields {
		args = append(args, field, values[field])
	}

	if err := s.redis.HSet(ctx, key, args...).Err(); err != nil {
		return classify("hset", key, err)
	}
	return nil
}

func (s *RedisStore) HashEntries(ctx context.Context, key string) (map[string]string, error) {
	entries, err := s.redis.HGetAll(ctx, key).Result()
	if err != nil {
		return nil, classify("hgetall", key, err)
	}
	return entries, nil
}

func (s *RedisStore) HashCompareAndSwap(ctx context.Context, key, field, old, value string) (bool, error) {
	n, err := hashCompareAndSwapScript.Run(ctx, s.redis, []string{key}, field, old, value).Int64()
	if err != nil {
		return false, classify("eval", key, err)
	}
	return n == 1, nil
}

func (s *RedisStore) Get(ctx context.Context, key string) (string, bool, error) {
	val, err := s.redis.Get(ctx, key).Result()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return "", false, nil
		}
		return "", false, classify("get", key, err)
	}
	return val, true, nil
}

// SetIfAbsent maps to SET key value PX ttl NX
func (s *RedisStore) SetIfAbsent(ctx context.Context, key, value string, ttl time.Duration) (bool, error) {
	ok, err := s.redis.SetNX(ctx, key, value, ttl).Result()
	if err != nil {
		return false, classify("setnx", key, err)
	}
	return ok, nil
}

func (s *RedisStore) Delete(ctx context.Context, key string) error {
	if err := s.redis.Del(ctx, key).Err(); err != nil {
		return classify("del", key, err)
	}
	return nil
}

func (s *RedisStore) DeleteIfEquals(ctx context.Context, key, value string) (bool, error) {
	n, err := deleteIfEqualsScript.Run(ctx, s.redis, []string{key}, value).Int64()
	if err != nil {
		return false, classify("eval", key, err)
	}
	return n == 1, nil
}

// ScanKeys walks the keyspace with SCAN rather than KEYS so large
// keyspaces do not block the server.
func (s *RedisStore) ScanKeys(ctx context.Context, match string) ([]string, error) {
	var (
		cursor uint64
		keys   []string
	)
	for {
		batch, next, err := s.redis.Scan(ctx, cursor, match, scanBatchSize).Result()
		if err != nil {
			return nil, classify("scan", match, err)
		}
		keys = append(keys, batch...)
		if next == 0 {
			return keys, nil
		}
		cursor = next
	}
}

func (s *RedisStore) Ping(ctx context.Context) error {
	if err := s.redis.Ping(ctx).Err(); err != nil {
		return classify("ping", "", err)
	}
	return nil
}

// classify tags a client error as a timeout or a generic outage
func classify(op, key string, err error) error {
	if isTimeout(err) {
		return fmt.Errorf("%w: %s %s: %w", ErrTimeout, op, key, err)
	}
	return fmt.Errorf("%w: %s %s: %w", ErrUnavailable, op, key, err)
}

func isTimeout(err error) bool {
	if errors.Is(err, context.DeadlineExceeded) {
		return true
	}
	var netErr net.Error
	return errors.As(err, &netErr) && netErr.Timeout()
}
