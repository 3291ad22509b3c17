package file_test

import (
	"context"
	"os"
	"path/filepath"
	"testing"

	"github.com/aretw0/lattice/internal/adapters/file"
	"github.com/aretw0/lattice/pkg/ports"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var _ ports.BlobStore = (*file.Store)(nil)

func TestFileStore_Contract(t *testing.T) {
	ports.RunBlobStoreContract(t, file.New(t.TempDir()))
}

func TestFileStore_Layout(t *testing.T) {
	dir := t.TempDir()
	store := file.New(dir)
	ctx := context.Background()

	require.NoError(t, store.Set(ctx, "model", []byte(`{}`)))
	data, err := os.ReadFile(filepath.Join(dir, "model.json"))
	require.NoError(t, err)
	assert.Equal(t, `{}`, string(data))

	// Stray files are not sessions.
	require.NoError(t, os.WriteFile(filepath.Join(dir, "notes.txt"), []byte("x"), 0644))
	require.NoError(t, os.WriteFile(filepath.Join(dir, ".tmp-model-123"), []byte("x"), 0644))
	require.NoError(t, os.Mkdir(filepath.Join(dir, "sub.json"), 0755))

	names, err := store.List(ctx)
	require.NoError(t, err)
	assert.Equal(t, []string{"model"}, names)
}

func TestFileStore_ListMissingDirectory(t *testing.T) {
	store := file.New(filepath.Join(t.TempDir(), "absent"))
	names, err := store.List(context.Background())
	require.NoError(t, err)
	assert.Empty(t, names)
}

func TestFileStore_RejectsPathNames(t *testing.T) {
	store := file.New(t.TempDir())
	ctx := context.Background()
	for _, name := range []string{"", "../escape", "a/b", ".hidden"} {
		assert.Error(t, store.Set(ctx, name, []byte("x")), name)
		_, err := store.Get(ctx, name)
		assert.Error(t, err, name)
	}
}
