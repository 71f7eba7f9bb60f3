package password

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestHash_NotPlaintext(t *testing.T) {
	t.Parallel()

	h, err := Hash("Secret123")
	require.NoError(t, err)
	assert.NotEqual(t, "Secret123", h)
	assert.NotEmpty(t, h)
}

func TestHash_SaltRandomized(t *testing.T) {
	t.Parallel()

	h1, err := Hash("Secret123")
	require.NoError(t, err)
	h2, err := Hash("Secret123")
	require.NoError(t, err)
	// Соль на каждый вызов — два хеша одного пароля различаются.
	assert.NotEqual(t, h1, h2)

	require.NoError(t, Verify(h1, "Secret123"))
	require.NoError(t, Verify(h2, "Secret123"))
}

func TestVerify_Mismatch(t *testing.T) {
	t.Parallel()

	h, err := Hash("Secret123")
	require.NoError(t, err)

	err = Verify(h, "wrong-password")
	assert.ErrorIs(t, err, ErrMismatch)
}

func TestVerify_GarbageHash(t *testing.T) {
	t.Parallel()

	err := Verify("not-a-bcrypt-hash", "Secret123")
	require.Error(t, err)
	assert.NotErrorIs(t, err, ErrMismatch)
}
