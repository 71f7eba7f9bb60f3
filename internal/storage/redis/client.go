package redis

import (
	"context"
	"fmt"
	"strconv"
	"time"

	"github.com/redis/go-redis/v9"
)

// Rate limit входа: 10 попыток / 10 минут на логин. При превышении — HTTP 429.
const (
	LoginRateLimitWindow = 600 // 10 минут
	LoginRateLimitMax    = 10  // попыток за окно
)

type Client struct {
	cli *redis.Client
}

func New(ctx context.Context, url string) (*Client, error) {
	opts, err := redis.ParseURL(url)
	if err != nil {
		return nil, fmt.Errorf("redis parse url: %w", err)
	}
	cli := redis.NewClient(opts)
	if err := cli.Ping(ctx).Err(); err != nil {
		if closeErr := cli.Close(); closeErr != nil {
			return nil, fmt.Errorf("redis ping: %w (close: %v)", err, closeErr)
		}
		return nil, fmt.Errorf("redis ping: %w", err)
	}
	return &Client{cli: cli}, nil
}

func (c *Client) Close() error {
	return c.cli.Close()
}

// SaveToken сохраняет user id по ключу token:{jti} с TTL, равным времени жизни токена.
// Истечение TTL само очищает запись — отдельного GC не нужно.
func (c *Client) SaveToken(ctx context.Context, jti string, userID int64, ttl time.Duration) error {
	return c.cli.Set(ctx, "token:"+jti, userID, ttl).Err()
}

// GetToken возвращает user id по jti. Ключа нет — токен отозван или истёк (ok=false).
func (c *Client) GetToken(ctx context.Context, jti string) (int64, bool, error) {
	val, err := c.cli.Get(ctx, "token:"+jti).Result()
	if err == redis.Nil {
		return 0, false, nil
	}
	if err != nil {
		return 0, false, err
	}
	userID, err := strconv.ParseInt(val, 10, 64)
	if err != nil {
		return 0, false, fmt.Errorf("redis token value: %w", err)
	}
	return userID, true, nil
}

// DeleteToken удаляет токен (отзыв при logout).
func (c *Client) DeleteToken(ctx context.Context, jti string) error {
	return c.cli.Del(ctx, "token:"+jti).Err()
}

// CheckLoginRateLimit проверяет login_limit:{login}: макс. LoginRateLimitMax попыток за окно.
func (c *Client) CheckLoginRateLimit(ctx context.Context, login string) (allowed bool, err error) {
	key := "login_limit:" + login
	n, err := c.cli.Incr(ctx, key).Result()
	if err != nil {
		return false, err
	}
	if n == 1 {
		c.cli.Expire(ctx, key, LoginRateLimitWindow*time.Second)
	}
	return n <= int64(LoginRateLimitMax), nil
}

// FlushDB очищает текущую БД Redis (сброс токенов и rate limit при тестах/перезапуске).
func (c *Client) FlushDB(ctx context.Context) error {
	return c.cli.FlushDB(ctx).Err()
}
