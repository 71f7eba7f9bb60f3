package memory

import (
	"context"
	"sync"
	"time"
)

const (
	loginRateLimitWindow = 600 * time.Second
	loginRateLimitMax    = 10
)

type item struct {
	userID int64
	exp    time.Time
}

// Client — in-memory реализация storage.TokenStore для -dev и тестов (без Redis).
type Client struct {
	mu     sync.RWMutex
	tokens map[string]item
	limit  map[string][]time.Time
}

func New() *Client {
	return &Client{
		tokens: make(map[string]item),
		limit:  make(map[string][]time.Time),
	}
}

func (c *Client) Close() error { return nil }

func (c *Client) SaveToken(ctx context.Context, jti string, userID int64, ttl time.Duration) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.tokens[jti] = item{userID: userID, exp: time.Now().Add(ttl)}
	return nil
}

func (c *Client) GetToken(ctx context.Context, jti string) (int64, bool, error) {
	c.mu.RLock()
	defer c.mu.RUnlock()
	v, ok := c.tokens[jti]
	if !ok || time.Now().After(v.exp) {
		return 0, false, nil
	}
	return v.userID, true, nil
}

func (c *Client) DeleteToken(ctx context.Context, jti string) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	delete(c.tokens, jti)
	return nil
}

func (c *Client) CheckLoginRateLimit(ctx context.Context, login string) (bool, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	now := time.Now()
	cut := now.Add(-loginRateLimitWindow)
	slice := c.limit[login]
	var kept []time.Time
	for _, t := range slice {
		if t.After(cut) {
			kept = append(kept, t)
		}
	}
	if len(kept) >= loginRateLimitMax {
		return false, nil
	}
	kept = append(kept, now)
	c.limit[login] = kept
	return true, nil
}
