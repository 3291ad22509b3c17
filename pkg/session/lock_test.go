package session

import (
	"context"
	"fmt"
	"testing"

	"github.com/aretw0/lattice/pkg/adapters/memory"
	"github.com/aretw0/lattice/pkg/domain"
	"github.com/stretchr/testify/assert"
)

func TestManager_LockLifecycle(t *testing.T) {
	mgr := NewManager(memory.NewStore())
	ctx := context.Background()
	count := 10000

	for i := 0; i < count; i++ {
		name := fmt.Sprintf("file-%d", i)
		_ = mgr.Save(ctx, name, domain.NewDocument())
		_ = mgr.Delete(ctx, name)
	}

	assert.Empty(t, mgr.locks, "locks must be released once no caller holds them")
}
