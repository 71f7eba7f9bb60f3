package service

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/authd/internal/model"
	"github.com/authd/internal/repository"
	"github.com/authd/internal/storage/memory"
	"github.com/authd/internal/token"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// fakeUserRepo — in-memory реализация UserRepo для тестов сервиса (без Postgres).
type fakeUserRepo struct {
	mu     sync.Mutex
	nextID int64
	users  map[int64]*model.User
}

func newFakeUserRepo() *fakeUserRepo {
	return &fakeUserRepo{nextID: 1, users: make(map[int64]*model.User)}
}

func (f *fakeUserRepo) Create(ctx context.Context, login, passwordHash string) (int64, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	for _, u := range f.users {
		if u.Login == login {
			return 0, repository.ErrDuplicate
		}
	}
	id := f.nextID
	f.nextID++
	f.users[id] = &model.User{ID: id, Login: login, PasswordHash: passwordHash, CreatedAt: time.Now().UTC()}
	return id, nil
}

func (f *fakeUserRepo) GetByID(ctx context.Context, id int64) (*model.User, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	u, ok := f.users[id]
	if !ok {
		return nil, repository.ErrNotFound
	}
	cp := *u
	return &cp, nil
}

func (f *fakeUserRepo) GetByLogin(ctx context.Context, login string) (*model.User, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	for _, u := range f.users {
		if u.Login == login {
			cp := *u
			return &cp, nil
		}
	}
	return nil, repository.ErrNotFound
}

func (f *fakeUserRepo) UpdateLastLogin(ctx context.Context, id int64, t time.Time) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if u, ok := f.users[id]; ok {
		u.LastLoginAt = &t
	}
	return nil
}

func (f *fakeUserRepo) Delete(ctx context.Context, id int64) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if _, ok := f.users[id]; !ok {
		return repository.ErrNotFound
	}
	delete(f.users, id)
	return nil
}

func newTestService() *AuthService {
	store := memory.New()
	tokens := token.NewManager([]byte("test-secret"), time.Hour, store)
	return NewAuthService(newFakeUserRepo(), tokens, store)
}

func TestRegister_Validation(t *testing.T) {
	t.Parallel()
	svc := newTestService()
	ctx := context.Background()

	tests := []struct {
		name     string
		login    string
		password string
	}{
		{"short login", "ab", "Secret123"},
		{"short password", "alice", "Ab1"},
		{"no uppercase", "alice", "secret123"},
		{"no lowercase", "alice", "SECRET123"},
		{"no digit", "alice", "SecretSecret"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := svc.Register(ctx, tt.login, tt.password)
			assert.ErrorIs(t, err, ErrValidation)
		})
	}
}

func TestRegister_DuplicateLogin(t *testing.T) {
	t.Parallel()
	svc := newTestService()
	ctx := context.Background()

	id, err := svc.Register(ctx, "alice", "Secret123")
	require.NoError(t, err)
	assert.Positive(t, id)

	_, err = svc.Register(ctx, "alice", "Secret123")
	assert.ErrorIs(t, err, ErrConflict)
}

func TestLogin(t *testing.T) {
	t.Parallel()
	svc := newTestService()
	ctx := context.Background()

	_, err := svc.Register(ctx, "alice", "Secret123")
	require.NoError(t, err)

	res, err := svc.Login(ctx, "alice", "Secret123")
	require.NoError(t, err)
	assert.NotEmpty(t, res.Token)
	assert.True(t, res.ExpiresAt.After(time.Now()))

	_, err = svc.Login(ctx, "alice", "wrong")
	assert.ErrorIs(t, err, ErrUnauthorized)

	_, err = svc.Login(ctx, "nobody", "Secret123")
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestLogin_UpdatesLastLogin(t *testing.T) {
	t.Parallel()
	svc := newTestService()
	ctx := context.Background()

	_, err := svc.Register(ctx, "alice", "Secret123")
	require.NoError(t, err)

	res, err := svc.Login(ctx, "alice", "Secret123")
	require.NoError(t, err)

	p, err := svc.Profile(ctx, res.Token)
	require.NoError(t, err)
	require.NotNil(t, p.LastLoginAt)
	assert.WithinDuration(t, time.Now(), *p.LastLoginAt, 5*time.Second)
}

func TestLogin_RateLimited(t *testing.T) {
	t.Parallel()
	svc := newTestService()
	ctx := context.Background()

	_, err := svc.Register(ctx, "alice", "Secret123")
	require.NoError(t, err)

	// Лимит памяти/Redis: 10 попыток за окно, дальше — отказ независимо от пароля.
	for i := 0; i < 10; i++ {
		_, err := svc.Login(ctx, "alice", "wrong")
		assert.ErrorIs(t, err, ErrUnauthorized)
	}
	_, err = svc.Login(ctx, "alice", "Secret123")
	assert.ErrorIs(t, err, ErrRateLimitExceeded)
}

func TestLogout_RevokesToken(t *testing.T) {
	t.Parallel()
	svc := newTestService()
	ctx := context.Background()

	_, err := svc.Register(ctx, "alice", "Secret123")
	require.NoError(t, err)
	res, err := svc.Login(ctx, "alice", "Secret123")
	require.NoError(t, err)

	// До logout токен действителен.
	_, err = svc.Profile(ctx, res.Token)
	require.NoError(t, err)

	require.NoError(t, svc.Logout(ctx, res.Token))

	_, err = svc.Profile(ctx, res.Token)
	assert.ErrorIs(t, err, token.ErrRevoked)

	// Повторный logout того же токена — тоже ошибка отзыва.
	err = svc.Logout(ctx, res.Token)
	assert.ErrorIs(t, err, token.ErrRevoked)
}

func TestProfile_NeverExposesPasswordHash(t *testing.T) {
	t.Parallel()
	svc := newTestService()
	ctx := context.Background()

	_, err := svc.Register(ctx, "alice", "Secret123")
	require.NoError(t, err)
	res, err := svc.Login(ctx, "alice", "Secret123")
	require.NoError(t, err)

	p, err := svc.Profile(ctx, res.Token)
	require.NoError(t, err)
	assert.Equal(t, "alice", p.Login)
	assert.False(t, p.CreatedAt.IsZero())
}

func TestDelete(t *testing.T) {
	t.Parallel()
	svc := newTestService()
	ctx := context.Background()

	_, err := svc.Register(ctx, "alice", "Secret123")
	require.NoError(t, err)

	err = svc.Delete(ctx, "alice", "wrong")
	assert.ErrorIs(t, err, ErrUnauthorized)

	require.NoError(t, svc.Delete(ctx, "alice", "Secret123"))

	_, err = svc.Login(ctx, "alice", "Secret123")
	assert.ErrorIs(t, err, ErrNotFound)

	err = svc.Delete(ctx, "alice", "Secret123")
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestProfile_AfterAccountDeleted(t *testing.T) {
	t.Parallel()
	svc := newTestService()
	ctx := context.Background()

	_, err := svc.Register(ctx, "alice", "Secret123")
	require.NoError(t, err)
	res, err := svc.Login(ctx, "alice", "Secret123")
	require.NoError(t, err)

	require.NoError(t, svc.Delete(ctx, "alice", "Secret123"))

	_, err = svc.Profile(ctx, res.Token)
	assert.ErrorIs(t, err, ErrUnauthorized)
}
