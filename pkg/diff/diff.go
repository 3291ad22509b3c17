package diff

import (
	"encoding/json"
	"fmt"
	"maps"
	"slices"

	"github.com/aretw0/lattice/pkg/domain"
)

// Map is a tree node.
type Map = map[string]any

// Diff is the delta between two Maps. A nil *Diff means "no change".
type Diff struct {
	Added   Map               `json:"added,omitempty"`
	Removed Map               `json:"removed,omitempty"`
	Changed map[string]Change `json:"changed,omitempty"`
}

// Change describes a key present on both sides. Exactly one form is used:
// Node for two Maps, Before/After for anything else.
type Change struct {
	Node   *Diff `json:"node,omitempty"`
	Before any   `json:"before,omitempty"`
	After  any   `json:"after,omitempty"`
}

// IsEmpty reports whether d carries no change.
func (d *Diff) IsEmpty() bool {
	return d == nil || (len(d.Added) == 0 && len(d.Removed) == 0 && len(d.Changed) == 0)
}

// Compute returns the diff turning before into after, or nil if they are equal.
// It fails if either tree holds a value outside the supported leaf types.
func Compute(before, after Map) (*Diff, error) {
	if err := Check(before); err != nil {
		return nil, err
	}
	if err := Check(after); err != nil {
		return nil, err
	}
	return compute(before, after), nil
}

func compute(before, after Map) *Diff {
	d := &Diff{}
	for _, k := range sortedKeys(after) {
		av := after[k]
		bv, ok := before[k]
		if !ok {
			if d.Added == nil {
				d.Added = Map{}
			}
			d.Added[k] = av
			continue
		}
		if Equal(bv, av) {
			continue
		}
		if d.Changed == nil {
			d.Changed = map[string]Change{}
		}
		bm, bIsMap := bv.(Map)
		am, aIsMap := av.(Map)
		if bIsMap && aIsMap {
			d.Changed[k] = Change{Node: compute(bm, am)}
		} else {
			d.Changed[k] = Change{Before: bv, After: av}
		}
	}
	for _, k := range sortedKeys(before) {
		if _, ok := after[k]; !ok {
			if d.Removed == nil {
				d.Removed = Map{}
			}
			d.Removed[k] = before[k]
		}
	}
	if d.IsEmpty() {
		return nil
	}
	return d
}

// Apply rebuilds the after tree from before.
func Apply(before Map, d *Diff) (Map, error) {
	return apply(before, d, "")
}

func apply(m Map, d *Diff, path string) (Map, error) {
	if d == nil {
		return m, nil
	}
	out := maps.Clone(m)
	if out == nil {
		out = Map{}
	}
	for _, k := range sortedKeys(d.Removed) {
		cur, ok := out[k]
		if !ok {
			return nil, incompatible(path, k, "removed key is missing")
		}
		if !Equal(cur, d.Removed[k]) {
			return nil, incompatible(path, k, "removed value differs")
		}
		delete(out, k)
	}
	for _, k := range sortedKeys(d.Added) {
		if _, ok := out[k]; ok {
			return nil, incompatible(path, k, "added key already present")
		}
		out[k] = d.Added[k]
	}
	for _, k := range sortedChanges(d.Changed) {
		c := d.Changed[k]
		cur, ok := out[k]
		if !ok {
			return nil, incompatible(path, k, "changed key is missing")
		}
		if c.Node != nil {
			sub, isMap := cur.(Map)
			if !isMap {
				return nil, incompatible(path, k, "expected a map")
			}
			next, err := apply(sub, c.Node, join(path, k))
			if err != nil {
				return nil, err
			}
			out[k] = next
			continue
		}
		if !Equal(cur, c.Before) {
			return nil, incompatible(path, k, "value differs from recorded before")
		}
		out[k] = c.After
	}
	return out, nil
}

// Undo rebuilds the before tree from after.
func Undo(after Map, d *Diff) (Map, error) {
	return undo(after, d, "")
}

func undo(m Map, d *Diff, path string) (Map, error) {
	if d == nil {
		return m, nil
	}
	out := maps.Clone(m)
	if out == nil {
		out = Map{}
	}
	for _, k := range sortedKeys(d.Added) {
		cur, ok := out[k]
		if !ok {
			return nil, incompatible(path, k, "added key is missing")
		}
		if !Equal(cur, d.Added[k]) {
			return nil, incompatible(path, k, "added value differs")
		}
		delete(out, k)
	}
	for _, k := range sortedKeys(d.Removed) {
		if _, ok := out[k]; ok {
			return nil, incompatible(path, k, "removed key already present")
		}
		out[k] = d.Removed[k]
	}
	for _, k := range sortedChanges(d.Changed) {
		c := d.Changed[k]
		cur, ok := out[k]
		if !ok {
			return nil, incompatible(path, k, "changed key is missing")
		}
		if c.Node != nil {
			sub, isMap := cur.(Map)
			if !isMap {
				return nil, incompatible(path, k, "expected a map")
			}
			prev, err := undo(sub, c.Node, join(path, k))
			if err != nil {
				return nil, err
			}
			out[k] = prev
			continue
		}
		if !Equal(cur, c.After) {
			return nil, incompatible(path, k, "value differs from recorded after")
		}
		out[k] = c.Before
	}
	return out, nil
}

// Equal reports structural equality of two tree values.
func Equal(a, b any) bool {
	am, aIsMap := a.(Map)
	bm, bIsMap := b.(Map)
	if aIsMap || bIsMap {
		if !aIsMap || !bIsMap || len(am) != len(bm) {
			return false
		}
		for k, av := range am {
			bv, ok := bm[k]
			if !ok || !Equal(av, bv) {
				return false
			}
		}
		return true
	}
	if !isLeaf(a) || !isLeaf(b) {
		return false
	}
	return a == b
}

// Check verifies that every value in m is a Map or a supported leaf.
func Check(m Map) error {
	return check(m, "")
}

func check(m Map, path string) error {
	for k, v := range m {
		if sub, ok := v.(Map); ok {
			if err := check(sub, join(path, k)); err != nil {
				return err
			}
			continue
		}
		if !isLeaf(v) {
			return fmt.Errorf("diff: unsupported value of type %T at %s", v, join(path, k))
		}
	}
	return nil
}

func isLeaf(v any) bool {
	switch v.(type) {
	case nil, string, bool, float64, float32, int, int64, json.Number:
		return true
	}
	return false
}

func incompatible(path, key, reason string) error {
	return &domain.IncompatibleDiffError{Path: join(path, key), Reason: reason}
}

func join(path, key string) string {
	if path == "" {
		return key
	}
	return path + "." + key
}

func sortedKeys(m Map) []string {
	return slices.Sorted(maps.Keys(m))
}

func sortedChanges(m map[string]Change) []string {
	return slices.Sorted(maps.Keys(m))
}
