package params

import (
	"context"
	"errors"
	"fmt"

	"github.com/redis/go-redis/v9"
)

const redisKeyPrefix = "groupctl:params:"

// RedisSource reads peer parameters from a shared redis, where each peer
// keeps its parameters in one hash.
type RedisSource struct {
	rdb *redis.Client
}

func NewRedisSource(rawURL string) (*RedisSource, error) {
	opt, err := redis.ParseURL(rawURL)
	if err != nil {
		return nil, fmt.Errorf("params: redis url: %w", err)
	}
	return &RedisSource{rdb: redis.NewClient(opt)}, nil
}

func redisKey(peer string) string {
	return redisKeyPrefix + peer
}

// Available reports whether peer has published its parameter hash.
func (s *RedisSource) Available(ctx context.Context, peer string) bool {
	n, err := s.rdb.Exists(ctx, redisKey(peer)).Result()
	return err == nil && n > 0
}

func (s *RedisSource) Get(ctx context.Context, peer, name string) (string, bool, error) {
	v, err := s.rdb.HGet(ctx, redisKey(peer), name).Result()
	if errors.Is(err, redis.Nil) {
		return "", false, nil
	}
	if err != nil {
		return "", false, err
	}
	return v, true, nil
}

// Publish writes this process's parameters under its own peer name so other
// processes can fetch them.
func (s *RedisSource) Publish(ctx context.Context, self string, values map[string]string) error {
	if len(values) == 0 {
		return nil
	}
	args := make([]any, 0, len(values)*2)
	for k, v := range values {
		args = append(args, k, v)
	}
	return s.rdb.HSet(ctx, redisKey(self), args...).Err()
}

func (s *RedisSource) Close() error {
	return s.rdb.Close()
}
