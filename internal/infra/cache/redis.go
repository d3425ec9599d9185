package cache

import (
	"context"
	"time"

	"github.com/redis/go-redis/v9"

	"yt-niche-finder/internal/domain"
)

// RedisCache — TTL-хранилище поверх Redis. Сервис сканирования держит
// в нём выдачу поиска по ключевым словам, воркер — ключи дедупликации
// задач.
type RedisCache struct {
	client *redis.Client
}

var _ domain.Cache = (*RedisCache)(nil)

// NewRedis оборачивает подключение в кэш.
func NewRedis(client *redis.Client) *RedisCache {
	return &RedisCache{client: client}
}

// Once выполняет fn только если ключ ещё не занят. При ошибке fn ключ
// снимается, чтобы повторная доставка задачи могла выполнить её заново.
func (c *RedisCache) Once(key string, ttl time.Duration, fn func() error) error {
	ctx := context.Background()
	claimed, err := c.client.SetNX(ctx, key, "1", ttl).Result()
	if err != nil {
		return err
	}
	if !claimed {
		return nil
	}
	if err := fn(); err != nil {
		_ = c.client.Del(ctx, key).Err()
		return err
	}
	return nil
}

// Set кладёт значение с TTL.
func (c *RedisCache) Set(key string, value []byte, ttl time.Duration) error {
	return c.client.Set(context.Background(), key, value, ttl).Err()
}

// Get возвращает значение; отсутствующий ключ отдаёт ошибку redis.Nil.
func (c *RedisCache) Get(key string) ([]byte, error) {
	return c.client.Get(context.Background(), key).Bytes()
}
