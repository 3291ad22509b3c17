package memory_test

import (
	"testing"

	"github.com/aretw0/lattice/pkg/adapters/memory"
	"github.com/aretw0/lattice/pkg/ports"
)

var _ ports.BlobStore = (*memory.Store)(nil)

func TestMemoryStore_Contract(t *testing.T) {
	store := memory.NewStore()
	ports.RunBlobStoreContract(t, store)
}
