package redisx

import (
	"context"
	"errors"
	"time"

	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"

	"github.com/EgorLis/study-share-hub/internal/domain"
)

type Cache struct {
	rdb    *redis.Client
	logger *zap.Logger
}

type Config struct {
	Addr     string
	DB       int
	Password string
}

var _ domain.Cache = (*Cache)(nil)

func New(cfg Config, logger *zap.Logger) *Cache {
	rdb := redis.NewClient(&redis.Options{
		Addr:     cfg.Addr,
		DB:       cfg.DB,
		Password: cfg.Password,
	})
	return &Cache{rdb: rdb, logger: logger}
}

// NewWithClient: для тестов и общего клиента.
func NewWithClient(rdb *redis.Client, logger *zap.Logger) *Cache {
	return &Cache{rdb: rdb, logger: logger}
}

func (c *Cache) Ping(ctx context.Context) error {
	err := c.rdb.Ping(ctx).Err()
	if err != nil {
		c.logger.Warn("PING failed", zap.Error(err))
	}
	return err
}

func (c *Cache) Close() {
	if c.rdb == nil {
		return
	}
	if err := c.rdb.Close(); err != nil {
		c.logger.Warn("error while closing", zap.Error(err))
		return
	}
	c.logger.Info("closed")
}

func (c *Cache) Get(ctx context.Context, key string) ([]byte, error) {
	b, err := c.rdb.Get(ctx, key).Bytes()
	if errors.Is(err, redis.Nil) {
		c.logger.Debug("GET miss", zap.String("key", key))
		return nil, nil
	}
	if err != nil {
		c.logger.Warn("GET failed", zap.String("key", key), zap.Error(err))
		return nil, err
	}
	c.logger.Debug("GET hit", zap.String("key", key), zap.Int("bytes", len(b)))
	return b, nil
}

func (c *Cache) Set(ctx context.Context, key string, val []byte, ttlSeconds int) error {
	ttl := seconds(ttlSeconds)
	err := c.rdb.Set(ctx, key, val, ttl).Err()
	if err != nil {
		c.logger.Warn("SET failed", zap.String("key", key), zap.Error(err))
	} else {
		c.logger.Debug("SET ok", zap.String("key", key), zap.Duration("ttl", ttl))
	}
	return err
}

func (c *Cache) Del(ctx context.Context, keys ...string) error {
	if len(keys) == 0 {
		return nil
	}
	n, err := c.rdb.Del(ctx, keys...).Result()
	if err != nil {
		c.logger.Warn("DEL failed", zap.Strings("keys", keys), zap.Error(err))
	} else {
		c.logger.Debug("DEL ok", zap.Strings("keys", keys), zap.Int64("deleted", n))
	}
	return err
}

func (c *Cache) Incr(ctx context.Context, key string) (int64, error) {
	n, err := c.rdb.Incr(ctx, key).Result()
	if err != nil {
		c.logger.Warn("INCR failed", zap.String("key", key), zap.Error(err))
	} else {
		c.logger.Debug("INCR ok", zap.String("key", key), zap.Int64("value", n))
	}
	return n, err
}

// SetNX устанавливает значение только если ключ ещё не существует.
func (c *Cache) SetNX(ctx context.Context, key string, val []byte, ttlSeconds int) (bool, error) {
	ttl := seconds(ttlSeconds)
	ok, err := c.rdb.SetNX(ctx, key, val, ttl).Result()
	if err != nil {
		c.logger.Warn("SETNX failed", zap.String("key", key), zap.Error(err))
	} else {
		c.logger.Debug("SETNX", zap.String("key", key), zap.Bool("set", ok), zap.Duration("ttl", ttl))
	}
	return ok, err
}

// Exists проверяет наличие ключа.
func (c *Cache) Exists(ctx context.Context, key string) (bool, error) {
	n, err := c.rdb.Exists(ctx, key).Result()
	if err != nil {
		c.logger.Warn("EXISTS failed", zap.String("key", key), zap.Error(err))
		return false, err
	}
	return n == 1, nil
}

func seconds(n int) time.Duration {
	if n <= 0 {
		return 0
	}
	return time.Duration(n) * time.Second
}
