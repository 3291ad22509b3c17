package layer

import (
	"fmt"
	"maps"
	"slices"

	"github.com/aretw0/lattice/pkg/domain"
)

// ToRecord serializes every field with its wrapper's canonical string.
func ToRecord(l *Layer) domain.LayerRecord {
	vals := make(map[string]string, len(l.fields))
	for id, f := range l.fields {
		vals[id] = f.Wrapper.Stringify()
	}
	return domain.LayerRecord{LayerType: l.Type(), ValDict: vals}
}

// FromRecord builds a default layer of r.LayerType and loads every listed field.
// It fails with domain.ErrUnknownType or domain.ErrUnknownField, or with the
// parse/validation error of the first offending field.
func FromRecord(r domain.LayerRecord) (*Layer, error) {
	l, err := NewFromTag(r.LayerType)
	if err != nil {
		return nil, err
	}
	for _, id := range slices.Sorted(maps.Keys(r.ValDict)) {
		f, ok := l.fields[id]
		if !ok {
			return nil, fmt.Errorf("%w: %q on %s layer", domain.ErrUnknownField, id, r.LayerType)
		}
		if err := f.Wrapper.SetFromString(r.ValDict[id]); err != nil {
			return nil, fmt.Errorf("field %q: %w", id, err)
		}
	}
	return l, nil
}

// Clone returns an independent copy made by a full record round trip.
func (l *Layer) Clone() (*Layer, error) {
	return FromRecord(ToRecord(l))
}
