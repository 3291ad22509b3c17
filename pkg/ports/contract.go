package ports

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/aretw0/lattice/pkg/domain"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// RunBlobStoreContract runs a suite of tests to verify that a BlobStore implementation
// adheres to the defined interface contract.
func RunBlobStoreContract(t *testing.T, store BlobStore) {
	ctx := context.Background()
	name := "contract-" + time.Now().Format("20060102150405")

	t.Run("Set and Get", func(t *testing.T) {
		blob := []byte(`{"graph":{"edges":{},"vertices":{}}}`)
		require.NoError(t, store.Set(ctx, name, blob))

		got, err := store.Get(ctx, name)
		require.NoError(t, err)
		assert.Equal(t, blob, got)
	})

	t.Run("Set replaces", func(t *testing.T) {
		require.NoError(t, store.Set(ctx, name, []byte("one")))
		require.NoError(t, store.Set(ctx, name, []byte("two")))

		got, err := store.Get(ctx, name)
		require.NoError(t, err)
		assert.Equal(t, []byte("two"), got)
	})

	t.Run("Stored blob is isolated from caller", func(t *testing.T) {
		blob := []byte("abc")
		require.NoError(t, store.Set(ctx, name, blob))
		blob[0] = 'x'

		got, err := store.Get(ctx, name)
		require.NoError(t, err)
		assert.Equal(t, []byte("abc"), got)
		got[1] = 'y'

		again, err := store.Get(ctx, name)
		require.NoError(t, err)
		assert.Equal(t, []byte("abc"), again)
	})

	t.Run("Get Non-Existent", func(t *testing.T) {
		_, err := store.Get(ctx, "non-existent-"+name)
		assert.ErrorIs(t, err, domain.ErrSessionNotFound)
	})

	t.Run("Delete", func(t *testing.T) {
		require.NoError(t, store.Set(ctx, name, []byte("bye")))
		require.NoError(t, store.Delete(ctx, name))

		_, err := store.Get(ctx, name)
		assert.ErrorIs(t, err, domain.ErrSessionNotFound, "Get after Delete should return ErrSessionNotFound")
		assert.NoError(t, store.Delete(ctx, name), "deleting twice is not an error")
	})

	t.Run("List", func(t *testing.T) {
		id1 := name + "-b"
		id2 := name + "-a"
		require.NoError(t, store.Set(ctx, id1, []byte("1")))
		require.NoError(t, store.Set(ctx, id2, []byte("2")))
		defer func() {
			_ = store.Delete(ctx, id1)
			_ = store.Delete(ctx, id2)
		}()

		names, err := store.List(ctx)
		require.NoError(t, err)
		assert.Contains(t, names, id1)
		assert.Contains(t, names, id2)
		assert.IsNonDecreasing(t, names)
	})

	t.Run("Concurrent Set", func(t *testing.T) {
		var wg sync.WaitGroup
		for i := range 8 {
			wg.Add(1)
			go func() {
				defer wg.Done()
				assert.NoError(t, store.Set(ctx, name+"-concurrent", []byte{byte('a' + i)}))
			}()
		}
		wg.Wait()
		defer func() { _ = store.Delete(ctx, name+"-concurrent") }()

		got, err := store.Get(ctx, name+"-concurrent")
		require.NoError(t, err)
		assert.Len(t, got, 1)
	})
}
