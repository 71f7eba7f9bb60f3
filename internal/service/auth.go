package service

import (
	"context"
	"errors"
	"fmt"
	"regexp"
	"strings"
	"time"

	"github.com/authd/internal/logger"
	"github.com/authd/internal/model"
	"github.com/authd/internal/password"
	"github.com/authd/internal/repository"
	"github.com/authd/internal/storage"
	"github.com/authd/internal/token"
)

var (
	ErrValidation        = errors.New("validation failed")
	ErrConflict          = errors.New("login already taken")
	ErrNotFound          = errors.New("user not found")
	ErrUnauthorized      = errors.New("unauthorized")
	ErrRateLimitExceeded = errors.New("rate limit exceeded")
)

// UserRepo — операции над пользователями, нужные сервису (реализация: repository.UserRepository).
type UserRepo interface {
	Create(ctx context.Context, login, passwordHash string) (int64, error)
	GetByID(ctx context.Context, id int64) (*model.User, error)
	GetByLogin(ctx context.Context, login string) (*model.User, error)
	UpdateLastLogin(ctx context.Context, id int64, t time.Time) error
	Delete(ctx context.Context, id int64) error
}

type AuthService struct {
	users  UserRepo
	tokens *token.Manager
	store  storage.TokenStore
}

func NewAuthService(users UserRepo, tokens *token.Manager, store storage.TokenStore) *AuthService {
	return &AuthService{users: users, tokens: tokens, store: store}
}

const (
	minLoginLen    = 3
	minPasswordLen = 8
)

var (
	upperRegexp = regexp.MustCompile(`[A-Z]`)
	lowerRegexp = regexp.MustCompile(`[a-z]`)
	digitRegexp = regexp.MustCompile(`\d`)
)

// validateCredentials — базовые проверки формы: логин от 3 символов; пароль от 8,
// с заглавной, строчной буквой и цифрой.
func validateCredentials(login, pass string) error {
	if len(login) < minLoginLen {
		return fmt.Errorf("%w: login must be at least %d characters long", ErrValidation, minLoginLen)
	}
	if len(pass) < minPasswordLen {
		return fmt.Errorf("%w: password must be at least %d characters long", ErrValidation, minPasswordLen)
	}
	if !upperRegexp.MatchString(pass) {
		return fmt.Errorf("%w: password must contain at least one uppercase letter", ErrValidation)
	}
	if !lowerRegexp.MatchString(pass) {
		return fmt.Errorf("%w: password must contain at least one lowercase letter", ErrValidation)
	}
	if !digitRegexp.MatchString(pass) {
		return fmt.Errorf("%w: password must contain at least one digit", ErrValidation)
	}
	return nil
}

// Register создаёт пользователя и возвращает присвоенный id.
func (s *AuthService) Register(ctx context.Context, login, pass string) (int64, error) {
	login = strings.TrimSpace(login)
	if err := validateCredentials(login, pass); err != nil {
		return 0, err
	}
	hash, err := password.Hash(pass)
	if err != nil {
		return 0, err
	}
	id, err := s.users.Create(ctx, login, hash)
	if err != nil {
		if errors.Is(err, repository.ErrDuplicate) {
			return 0, ErrConflict
		}
		return 0, err
	}
	logger.Infof("register: создан пользователь id=%d", id)
	return id, nil
}

type LoginResult struct {
	Token     string    `json:"token"`
	ExpiresAt time.Time `json:"expires_at"`
}

// Login проверяет пароль, отмечает last_login_at и выпускает токен.
// Попытки входа ограничены по логину (защита от перебора пароля).
func (s *AuthService) Login(ctx context.Context, login, pass string) (*LoginResult, error) {
	login = strings.TrimSpace(login)
	if login == "" || pass == "" {
		return nil, fmt.Errorf("%w: login and password are required", ErrValidation)
	}
	allowed, err := s.store.CheckLoginRateLimit(ctx, login)
	if err != nil {
		return nil, err
	}
	if !allowed {
		return nil, ErrRateLimitExceeded
	}
	user, err := s.users.GetByLogin(ctx, login)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return nil, ErrNotFound
		}
		return nil, err
	}
	if err := password.Verify(user.PasswordHash, pass); err != nil {
		if errors.Is(err, password.ErrMismatch) {
			return nil, ErrUnauthorized
		}
		return nil, err
	}
	if err := s.users.UpdateLastLogin(ctx, user.ID, time.Now().UTC()); err != nil {
		// Не фатально для входа, но фиксируем в логе.
		logger.Errorf("login: UpdateLastLogin id=%d: %v", user.ID, err)
	}
	tok, expiresAt, err := s.tokens.Issue(ctx, user.ID)
	if err != nil {
		return nil, err
	}
	return &LoginResult{Token: tok, ExpiresAt: expiresAt}, nil
}

// Logout отзывает токен. Невалидный, истёкший или уже отозванный токен — ошибка верификации
// (на границе HTTP всё это 401).
func (s *AuthService) Logout(ctx context.Context, tokenStr string) error {
	claims, err := s.tokens.Verify(ctx, tokenStr)
	if err != nil {
		return err
	}
	return s.tokens.Revoke(ctx, claims.ID)
}

// Profile возвращает публичные поля владельца токена. Хеш пароля наружу не отдаётся.
func (s *AuthService) Profile(ctx context.Context, tokenStr string) (*model.Profile, error) {
	claims, err := s.tokens.Verify(ctx, tokenStr)
	if err != nil {
		return nil, err
	}
	user, err := s.users.GetByID(ctx, claims.UserID)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			// Пользователь удалён — токен больше ничего не удостоверяет.
			return nil, ErrUnauthorized
		}
		return nil, err
	}
	p := user.ToProfile()
	return &p, nil
}

// Delete удаляет аккаунт после повторной проверки пароля.
func (s *AuthService) Delete(ctx context.Context, login, pass string) error {
	login = strings.TrimSpace(login)
	if login == "" || pass == "" {
		return fmt.Errorf("%w: login and password are required", ErrValidation)
	}
	user, err := s.users.GetByLogin(ctx, login)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return ErrNotFound
		}
		return err
	}
	if err := password.Verify(user.PasswordHash, pass); err != nil {
		if errors.Is(err, password.ErrMismatch) {
			return ErrUnauthorized
		}
		return err
	}
	if err := s.users.Delete(ctx, user.ID); err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return ErrNotFound
		}
		return err
	}
	logger.Infof("delete: удалён пользователь id=%d", user.ID)
	return nil
}
