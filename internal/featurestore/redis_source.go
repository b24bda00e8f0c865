package featurestore

import (
	"context"
	"fmt"

	"github.com/redis/go-redis/v9"
)

// RedisSource reads the dataset from a Redis hash whose fields are user ids
// and whose values are JSON-encoded records.
type RedisSource struct {
	client redis.Cmdable
	key    string
}

func NewRedisSource(client redis.Cmdable, key string) *RedisSource {
	return &RedisSource{client: client, key: key}
}

func (s *RedisSource) Name() string {
	return "redis:" + s.key
}

func (s *RedisSource) Load(ctx context.Context) (map[int64]Record, error) {
	entries, err := s.client.HGetAll(ctx, s.key).Result()
	if err != nil {
		return nil, fmt.Errorf("hgetall %s: %w", s.key, err)
	}
	if len(entries) == 0 {
		return nil, fmt.Errorf("hash %s is missing or empty", s.key)
	}

	records := make(map[int64]Record, len(entries))
	for field, value := range entries {
		id, err := ParseUserID(field)
		if err != nil {
			return nil, fmt.Errorf("hash field %q: %w", field, err)
		}
		record, err := decodeRecord([]byte(value))
		if err != nil {
			return nil, fmt.Errorf("user %d: %w", id, err)
		}
		records[id] = record
	}
	return records, nil
}
