package secrets_test

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/uamcli/uamcli/internal/secrets"
)

func TestCompositeKey(t *testing.T) {
	t.Parallel()

	key := secrets.CompositeKey("org-1", "proj-1", "env-1", "client-1")
	assert.Equal(t, "org-1:proj-1:env-1:client-1", key)
}

func TestMemoryStoreRoundTrip(t *testing.T) {
	t.Parallel()

	store := secrets.NewMemoryStore()
	key := secrets.CompositeKey("o", "p", "e", "c")

	require.NoError(t, store.Store(key, "s3cr3t-value"))

	got, err := store.Retrieve(key)
	require.NoError(t, err)
	assert.Equal(t, "s3cr3t-value", got)

	require.NoError(t, store.Delete(key))

	_, err = store.Retrieve(key)
	assert.ErrorIs(t, err, secrets.ErrNotFound)
}

func TestMemoryStoreOverwrite(t *testing.T) {
	t.Parallel()

	store := secrets.NewMemoryStore()
	require.NoError(t, store.Store("k", "first"))
	require.NoError(t, store.Store("k", "second"))

	got, err := store.Retrieve("k")
	require.NoError(t, err)
	assert.Equal(t, "second", got)
}

func TestMemoryStoreNotFound(t *testing.T) {
	t.Parallel()

	store := secrets.NewMemoryStore()

	_, err := store.Retrieve("missing")
	assert.ErrorIs(t, err, secrets.ErrNotFound)
	assert.ErrorIs(t, store.Delete("missing"), secrets.ErrNotFound)
}

func TestStoreErrorOmitsSecretValue(t *testing.T) {
	t.Parallel()

	store := secrets.NewMemoryStore()
	store.Fail(secrets.ErrAccessDenied)

	err := store.Store("org:proj:env:client", "super-secret-value")
	require.Error(t, err)
	assert.NotContains(t, err.Error(), "super-secret-value")
	assert.ErrorIs(t, err, secrets.ErrAccessDenied)

	var storeErr *secrets.StoreError
	require.True(t, errors.As(err, &storeErr))
	assert.Equal(t, "store", storeErr.Op)
}

func TestStoreErrorUnavailable(t *testing.T) {
	t.Parallel()

	store := secrets.NewMemoryStore()
	store.Fail(secrets.ErrUnavailable)

	_, err := store.Retrieve("k")
	assert.ErrorIs(t, err, secrets.ErrUnavailable)
}
