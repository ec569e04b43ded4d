package identity

import (
	"context"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func setupTestProvider(t *testing.T) (*SQLiteProvider, func()) {
	t.Helper()

	tmpDir, err := os.MkdirTemp("", "marquee-identity-test-*")
	require.NoError(t, err)

	provider, err := Open(filepath.Join(tmpDir, "identity.db"), nil)
	require.NoError(t, err)

	cleanup := func() {
		provider.Close()
		os.RemoveAll(tmpDir)
	}

	return provider, cleanup
}

func TestCreateAndVerifyCredential(t *testing.T) {
	provider, cleanup := setupTestProvider(t)
	defer cleanup()

	ctx := context.Background()

	cred, err := provider.CreateCredential(ctx, "user_1", "mina@example.com", "correct horse battery")
	require.NoError(t, err)
	assert.Equal(t, "user_1", cred.ID)

	t.Run("correct password", func(t *testing.T) {
		got, err := provider.Verify(ctx, "mina@example.com", "correct horse battery")
		require.NoError(t, err)
		assert.Equal(t, "user_1", got.ID)
	})

	t.Run("email lookup is case-insensitive", func(t *testing.T) {
		got, err := provider.Verify(ctx, "MINA@Example.COM", "correct horse battery")
		require.NoError(t, err)
		assert.Equal(t, "user_1", got.ID)
	})

	t.Run("wrong password", func(t *testing.T) {
		_, err := provider.Verify(ctx, "mina@example.com", "wrong")
		assert.ErrorIs(t, err, ErrInvalidCredentials)
	})

	t.Run("unknown email", func(t *testing.T) {
		_, err := provider.Verify(ctx, "ghost@example.com", "whatever")
		assert.ErrorIs(t, err, ErrInvalidCredentials)
	})
}

func TestCreateCredential_DuplicateEmail(t *testing.T) {
	provider, cleanup := setupTestProvider(t)
	defer cleanup()

	ctx := context.Background()

	_, err := provider.CreateCredential(ctx, "user_1", "mina@example.com", "password123")
	require.NoError(t, err)

	_, err = provider.CreateCredential(ctx, "user_2", "Mina@Example.com", "password456")
	assert.ErrorIs(t, err, ErrEmailInUse)
}

func TestDeleteCredential(t *testing.T) {
	provider, cleanup := setupTestProvider(t)
	defer cleanup()

	ctx := context.Background()

	_, err := provider.CreateCredential(ctx, "user_1", "mina@example.com", "password123")
	require.NoError(t, err)

	require.NoError(t, provider.DeleteCredential(ctx, "user_1"))

	_, err = provider.Verify(ctx, "mina@example.com", "password123")
	assert.ErrorIs(t, err, ErrInvalidCredentials)

	// Compensation may run against a credential that was never created
	assert.NoError(t, provider.DeleteCredential(ctx, "user_ghost"))

	// Freed email can be reused
	_, err = provider.CreateCredential(ctx, "user_2", "mina@example.com", "password456")
	assert.NoError(t, err)
}

func TestUpdateDisplayName(t *testing.T) {
	provider, cleanup := setupTestProvider(t)
	defer cleanup()

	ctx := context.Background()

	_, err := provider.CreateCredential(ctx, "user_1", "mina@example.com", "password123")
	require.NoError(t, err)

	require.NoError(t, provider.UpdateDisplayName(ctx, "user_1", "Mina"))

	cred, err := provider.Verify(ctx, "mina@example.com", "password123")
	require.NoError(t, err)
	assert.Equal(t, "Mina", cred.DisplayName)

	assert.ErrorIs(t, provider.UpdateDisplayName(ctx, "user_ghost", "Nobody"), ErrCredentialNotFound)
}
