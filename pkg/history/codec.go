package history

import (
	"github.com/aretw0/lattice/pkg/diff"
)

// Codec converts a state value to and from its canonical tree view.
type Codec[T any] interface {
	Encode(state T) (diff.Map, error)
	Decode(tree diff.Map) (T, error)
}

// JSONCodec maps any JSON-serializable type using its JSON form.
type JSONCodec[T any] struct{}

func (JSONCodec[T]) Encode(state T) (diff.Map, error) {
	return diff.FromValue(state)
}

func (JSONCodec[T]) Decode(tree diff.Map) (T, error) {
	var out T
	err := diff.Decode(tree, &out)
	return out, err
}
