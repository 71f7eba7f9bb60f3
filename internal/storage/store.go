package storage

import (
	"context"
	"time"
)

// TokenStore — хранилище выпущенных токенов и rate limit попыток входа.
// Токен жив, пока его jti есть в хранилище; logout удаляет запись (отзыв),
// естественное истечение обеспечивает TTL.
// Реализации: redis.Client, memory.Client (для -dev и тестов без Redis).
type TokenStore interface {
	SaveToken(ctx context.Context, jti string, userID int64, ttl time.Duration) error
	// GetToken возвращает user id по jti; ok=false — токен отозван или истёк.
	GetToken(ctx context.Context, jti string) (userID int64, ok bool, err error)
	DeleteToken(ctx context.Context, jti string) error
	// CheckLoginRateLimit ограничивает попытки входа по логину (защита от перебора пароля).
	CheckLoginRateLimit(ctx context.Context, login string) (allowed bool, err error)
	Close() error
}
