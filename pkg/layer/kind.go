package layer

import (
	"fmt"

	"github.com/aretw0/lattice/pkg/domain"
)

// Kind enumerates the available layer types.
type Kind int

const (
	KindAdd Kind = iota
	KindRepeat
	KindInput
	KindConstant

	kindCount
)

var kindNames = [kindCount]string{
	KindAdd:      "Add",
	KindRepeat:   "Repeat",
	KindInput:    "Input",
	KindConstant: "Constant",
}

// registry maps every kind to the constructor of its default instance.
var registry = [kindCount]func() *Layer{
	KindAdd:      newAdd,
	KindRepeat:   newRepeat,
	KindInput:    newInput,
	KindConstant: newConstant,
}

func (k Kind) String() string {
	if k < 0 || k >= kindCount {
		return fmt.Sprintf("Kind(%d)", int(k))
	}
	return kindNames[k]
}

// Kinds lists every kind in declaration order.
func Kinds() []Kind {
	out := make([]Kind, 0, kindCount)
	for k := Kind(0); k < kindCount; k++ {
		out = append(out, k)
	}
	return out
}

// ParseKind resolves a type tag.
func ParseKind(tag string) (Kind, error) {
	for k, name := range kindNames {
		if name == tag {
			return Kind(k), nil
		}
	}
	return 0, fmt.Errorf("%w: %q", domain.ErrUnknownType, tag)
}

// New builds a default, valid layer of the given kind.
func New(k Kind) (*Layer, error) {
	if k < 0 || k >= kindCount {
		return nil, fmt.Errorf("%w: %s", domain.ErrUnknownType, k)
	}
	return registry[k](), nil
}

// NewFromTag is New after ParseKind.
func NewFromTag(tag string) (*Layer, error) {
	k, err := ParseKind(tag)
	if err != nil {
		return nil, err
	}
	return New(k)
}
