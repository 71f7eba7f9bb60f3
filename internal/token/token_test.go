package token

import (
	"context"
	"testing"
	"time"

	"github.com/authd/internal/storage/memory"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestManager(ttl time.Duration) *Manager {
	return NewManager([]byte("test-secret"), ttl, memory.New())
}

func TestIssueAndVerify(t *testing.T) {
	t.Parallel()
	ctx := context.Background()
	m := newTestManager(time.Hour)

	tok, expiresAt, err := m.Issue(ctx, 42)
	require.NoError(t, err)
	require.NotEmpty(t, tok)
	assert.WithinDuration(t, time.Now().Add(time.Hour), expiresAt, 5*time.Second)

	claims, err := m.Verify(ctx, tok)
	require.NoError(t, err)
	assert.Equal(t, int64(42), claims.UserID)
	assert.NotEmpty(t, claims.ID)
}

func TestVerify_Expired(t *testing.T) {
	t.Parallel()
	ctx := context.Background()
	m := newTestManager(-time.Minute)

	tok, _, err := m.Issue(ctx, 1)
	require.NoError(t, err)

	_, err = m.Verify(ctx, tok)
	assert.ErrorIs(t, err, ErrExpired)
}

func TestVerify_WrongSecret(t *testing.T) {
	t.Parallel()
	ctx := context.Background()
	store := memory.New()
	m1 := NewManager([]byte("right-secret"), time.Hour, store)
	m2 := NewManager([]byte("wrong-secret"), time.Hour, store)

	tok, _, err := m1.Issue(ctx, 1)
	require.NoError(t, err)

	_, err = m2.Verify(ctx, tok)
	assert.ErrorIs(t, err, ErrInvalidSignature)
}

func TestVerify_RevokedAfterLogout(t *testing.T) {
	t.Parallel()
	ctx := context.Background()
	m := newTestManager(time.Hour)

	tok, _, err := m.Issue(ctx, 7)
	require.NoError(t, err)

	claims, err := m.Verify(ctx, tok)
	require.NoError(t, err)

	require.NoError(t, m.Revoke(ctx, claims.ID))

	_, err = m.Verify(ctx, tok)
	assert.ErrorIs(t, err, ErrRevoked)
}

func TestVerify_Malformed(t *testing.T) {
	t.Parallel()
	m := newTestManager(time.Hour)

	_, err := m.Verify(context.Background(), "not.a.jwt")
	assert.ErrorIs(t, err, ErrMalformed)
}
