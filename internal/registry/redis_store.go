package registry

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/OldStager01/genomerx/internal/resilience"
)

const DefaultRedisPrefix = "genomerx:model:"

type RedisStoreConfig struct {
	Addr     string
	Password string
	DB       int
	Prefix   string
	Breaker  resilience.CircuitBreakerConfig
}

// RedisStore serves artifacts shared between replicas. Calls go through a
// circuit breaker so an unreachable redis fails requests fast.
type RedisStore struct {
	client  *redis.Client
	prefix  string
	breaker *resilience.CircuitBreaker
}

func NewRedisStore(cfg RedisStoreConfig) (*RedisStore, error) {
	if cfg.Addr == "" {
		return nil, errors.New("redis address cannot be empty")
	}
	if cfg.DB < 0 {
		return nil, errors.New("redis database number must be >= 0")
	}
	if cfg.Prefix == "" {
		cfg.Prefix = DefaultRedisPrefix
	}
	if cfg.Breaker.Name == "" {
		cfg.Breaker.Name = "redis-artifacts"
	}
	cfg.Breaker.IsFailure = func(err error) bool {
		return err != nil && !errors.Is(err, ErrArtifactNotFound) && !errors.Is(err, context.Canceled)
	}

	client := redis.NewClient(&redis.Options{
		Addr:         cfg.Addr,
		Password:     cfg.Password,
		DB:           cfg.DB,
		MaxRetries:   3,
		DialTimeout:  5 * time.Second,
		ReadTimeout:  3 * time.Second,
		WriteTimeout: 3 * time.Second,
		PoolSize:     10,
	})

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := client.Ping(ctx).Err(); err != nil {
		_ = client.Close()
		return nil, fmt.Errorf("failed to connect to redis at %s: %w", cfg.Addr, err)
	}

	return &RedisStore{
		client:  client,
		prefix:  cfg.Prefix,
		breaker: resilience.NewCircuitBreaker(cfg.Breaker),
	}, nil
}

func (s *RedisStore) key(key string) string { return s.prefix + key }

func (s *RedisStore) Exists(ctx context.Context, key string) (bool, error) {
	if key == "" {
		return false, nil
	}
	var n int64
	err := s.breaker.Execute(ctx, func(ctx context.Context) error {
		var err error
		n, err = s.client.Exists(ctx, s.key(key)).Result()
		return err
	})
	if err != nil {
		return false, fmt.Errorf("check artifact %s in redis: %w", key, err)
	}
	return n > 0, nil
}

func (s *RedisStore) Load(ctx context.Context, key string) ([]byte, error) {
	if key == "" {
		return nil, ErrArtifactNotFound
	}
	var data []byte
	err := s.breaker.Execute(ctx, func(ctx context.Context) error {
		var err error
		data, err = s.client.Get(ctx, s.key(key)).Bytes()
		if errors.Is(err, redis.Nil) {
			return ErrArtifactNotFound
		}
		return err
	})
	if err != nil {
		if errors.Is(err, ErrArtifactNotFound) {
			return nil, err
		}
		return nil, fmt.Errorf("load artifact %s from redis: %w", key, err)
	}
	return data, nil
}

// Put uploads an artifact; used by the CLI to publish models.
func (s *RedisStore) Put(ctx context.Context, key string, data []byte) error {
	if key == "" {
		return errors.New("artifact key required")
	}
	return s.breaker.Execute(ctx, func(ctx context.Context) error {
		return s.client.Set(ctx, s.key(key), data, 0).Err()
	})
}

func (s *RedisStore) Ping(ctx context.Context) error {
	return s.client.Ping(ctx).Err()
}

func (s *RedisStore) Close() error {
	return s.client.Close()
}
