// Package token выпускает и проверяет подписанные токены (JWT HS256) с абсолютным сроком
// действия. Отзыв обязателен и хранится в TokenStore: jti живого токена лежит в хранилище,
// logout удаляет запись, истечение TTL очищает её само.
package token

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/authd/internal/storage"
	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
)

var (
	ErrExpired          = errors.New("token expired")
	ErrInvalidSignature = errors.New("invalid token signature")
	ErrRevoked          = errors.New("token revoked")
	ErrMalformed        = errors.New("malformed token")
)

// Claims — стандартные утверждения плюс user id.
type Claims struct {
	jwt.RegisteredClaims
	UserID int64 `json:"uid"`
}

type Manager struct {
	secret []byte
	ttl    time.Duration
	store  storage.TokenStore
}

func NewManager(secret []byte, ttl time.Duration, store storage.TokenStore) *Manager {
	return &Manager{secret: secret, ttl: ttl, store: store}
}

// TTL возвращает срок жизни выпускаемых токенов.
func (m *Manager) TTL() time.Duration { return m.ttl }

// Issue выпускает токен для пользователя и регистрирует его jti в TokenStore.
func (m *Manager) Issue(ctx context.Context, userID int64) (token string, expiresAt time.Time, err error) {
	now := time.Now()
	expiresAt = now.Add(m.ttl)
	jti := uuid.NewString()
	t := jwt.NewWithClaims(jwt.SigningMethodHS256, Claims{
		RegisteredClaims: jwt.RegisteredClaims{
			ID:        jti,
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(expiresAt),
		},
		UserID: userID,
	})
	token, err = t.SignedString(m.secret)
	if err != nil {
		return "", time.Time{}, fmt.Errorf("sign token: %w", err)
	}
	if err := m.store.SaveToken(ctx, jti, userID, m.ttl); err != nil {
		return "", time.Time{}, fmt.Errorf("save token: %w", err)
	}
	return token, expiresAt, nil
}

// Verify проверяет подпись и срок действия, затем статус отзыва в TokenStore.
// Порядок ошибок: ErrMalformed/ErrInvalidSignature → ErrExpired → ErrRevoked.
func (m *Manager) Verify(ctx context.Context, tokenStr string) (*Claims, error) {
	claims := &Claims{}
	_, err := jwt.ParseWithClaims(tokenStr, claims, func(t *jwt.Token) (any, error) {
		if _, ok := t.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, fmt.Errorf("unexpected signing method %v", t.Header["alg"])
		}
		return m.secret, nil
	})
	if err != nil {
		switch {
		case errors.Is(err, jwt.ErrTokenExpired):
			return nil, ErrExpired
		case errors.Is(err, jwt.ErrTokenSignatureInvalid):
			return nil, ErrInvalidSignature
		default:
			return nil, ErrMalformed
		}
	}
	if claims.ID == "" {
		return nil, ErrMalformed
	}
	userID, ok, err := m.store.GetToken(ctx, claims.ID)
	if err != nil {
		return nil, fmt.Errorf("token store: %w", err)
	}
	if !ok || userID != claims.UserID {
		return nil, ErrRevoked
	}
	return claims, nil
}

// Revoke отзывает токен по jti (после успешной Verify).
func (m *Manager) Revoke(ctx context.Context, jti string) error {
	return m.store.DeleteToken(ctx, jti)
}
