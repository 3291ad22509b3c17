package ports

import (
	"context"

	"github.com/aretw0/lattice/pkg/domain"
)

// LayerComputer runs a layer computation outside the process.
type LayerComputer interface {
	// Compute sends the layer record and returns the field values the
	// computation produced, keyed by field id.
	Compute(ctx context.Context, rec domain.LayerRecord) (map[string]string, error)
}
