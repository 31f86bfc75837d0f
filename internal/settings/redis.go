package settings

import (
	"context"
	"fmt"
	"strconv"

	"github.com/redis/go-redis/v9"
)

// RedisStore keeps settings as a hash with one field per setting.
type RedisStore struct {
	client *redis.Client
	key    string
}

// NewRedisStore connects using a redis:// URL.
func NewRedisStore(url, key string) (*RedisStore, error) {
	opts, err := redis.ParseURL(url)
	if err != nil {
		return nil, fmt.Errorf("parse redis url: %w", err)
	}
	return &RedisStore{client: redis.NewClient(opts), key: key}, nil
}

func (r *RedisStore) Load(ctx context.Context) (Settings, error) {
	fields, err := r.client.HGetAll(ctx, r.key).Result()
	if err != nil {
		return Default(), fmt.Errorf("load settings: %w", err)
	}
	return fromFields(fields), nil
}

func (r *RedisStore) Save(ctx context.Context, s Settings) error {
	s = s.Normalize()
	err := r.client.HSet(ctx, r.key,
		KeyEnabled, strconv.FormatBool(s.Enabled),
		KeyBoldRatio, strconv.Itoa(s.BoldRatio),
	).Err()
	if err != nil {
		return fmt.Errorf("save settings: %w", err)
	}
	return nil
}

func (r *RedisStore) Close() error {
	return r.client.Close()
}

func fromFields(fields map[string]string) Settings {
	m := make(map[string]any, len(fields))
	for k, v := range fields {
		m[k] = v
	}
	return FromMap(m)
}
