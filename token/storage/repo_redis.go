package storage

import (
	"context"
	"fmt"

	"github.com/redis/go-redis/v9"
)

var _ Repo = (*RedisRepo)(nil)

// RedisRepo keeps both keys as fields of a single hash.
type RedisRepo struct {
	client *redis.Client
	key    string
}

// RedisConfig holds the configuration for the Redis client
type RedisConfig struct {
	Addr     string
	Password string
	DB       int
	Key      string
}

// NewRedisRepo connects to Redis and pings it to ensure the connection is established
func NewRedisRepo(ctx context.Context, cfg RedisConfig) (*RedisRepo, error) {
	client := redis.NewClient(&redis.Options{
		Addr:     cfg.Addr,
		Password: cfg.Password,
		DB:       cfg.DB,
	})

	if err := client.Ping(ctx).Err(); err != nil {
		_ = client.Close()
		return nil, fmt.Errorf("[storage NewRedisRepo] failed to connect to redis at %s: %w", cfg.Addr, err)
	}
	return NewRedisRepoFromClient(client, cfg.Key), nil
}

func NewRedisRepoFromClient(client *redis.Client, key string) *RedisRepo {
	return &RedisRepo{client: client, key: key}
}

func (r *RedisRepo) Load(ctx context.Context) (Record, error) {
	values, err := r.client.HMGet(ctx, r.key, KeyAuthToken, KeyRefreshToken).Result()
	if err != nil {
		return Record{}, fmt.Errorf("[RedisRepo Load] %w", err)
	}

	record := Record{}
	if v, ok := values[0].(string); ok {
		record.AuthToken = v
	}
	if v, ok := values[1].(string); ok {
		record.RefreshToken = v
	}
	if !record.complete() {
		return Record{}, ErrNotFound
	}
	return record, nil
}

func (r *RedisRepo) Save(ctx context.Context, record Record) error {
	if err := validate(record); err != nil {
		return err
	}

	_, err := r.client.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
		pipe.Del(ctx, r.key)
		pipe.HSet(ctx, r.key, KeyAuthToken, record.AuthToken, KeyRefreshToken, record.RefreshToken)
		return nil
	})
	if err != nil {
		return fmt.Errorf("[RedisRepo Save] %w", err)
	}
	return nil
}

func (r *RedisRepo) Clear(ctx context.Context) error {
	if err := r.client.Del(ctx, r.key).Err(); err != nil {
		return fmt.Errorf("[RedisRepo Clear] %w", err)
	}
	return nil
}

func (r *RedisRepo) Close() error {
	return r.client.Close()
}
