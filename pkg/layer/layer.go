package layer

import (
	"fmt"
	"maps"
	"slices"

	"github.com/aretw0/lattice/pkg/domain"
	"github.com/aretw0/lattice/pkg/value"
)

// Direction is the data flow direction of a port.
type Direction string

const (
	Input  Direction = "input"
	Output Direction = "output"
)

// Port maps a port id to the field that backs it.
type Port struct {
	ValueKey  string    `json:"valueKey"`
	Direction Direction `json:"direction"`
}

// Field is a named value owned by a layer.
type Field struct {
	Wrapper  value.Wrapper
	Readonly bool
}

// Report is the outcome of a what-if update.
type Report struct {
	Errors   []string `json:"errors,omitempty"`
	Warnings []string `json:"warnings,omitempty"`
}

// OK reports whether the preview produced no errors.
func (r Report) OK() bool { return len(r.Errors) == 0 }

// computeFunc derives the readonly fields of l from its inputs, in place.
// It returns validation errors and warnings; l may be left partially updated,
// which is why Update only ever runs it on a clone.
type computeFunc func(l *Layer) (errs, warnings []string)

// Layer is a computation unit exposing ports backed by fields.
type Layer struct {
	kind       Kind
	portOrder  []string
	ports      map[string]Port
	fieldOrder []string
	fields     map[string]*Field
	compute    computeFunc
}

type builder struct {
	l *Layer
}

func build(k Kind, compute computeFunc) *builder {
	return &builder{l: &Layer{
		kind:    k,
		ports:   make(map[string]Port),
		fields:  make(map[string]*Field),
		compute: compute,
	}}
}

func (b *builder) field(id string, w value.Wrapper, readonly bool) *builder {
	b.l.fieldOrder = append(b.l.fieldOrder, id)
	b.l.fields[id] = &Field{Wrapper: w, Readonly: readonly}
	return b
}

func (b *builder) port(id, valueKey string, dir Direction) *builder {
	if _, ok := b.l.fields[valueKey]; !ok {
		panic(fmt.Sprintf("layer %s: port %q refers to missing field %q", b.l.kind, id, valueKey))
	}
	b.l.portOrder = append(b.l.portOrder, id)
	b.l.ports[id] = Port{ValueKey: valueKey, Direction: dir}
	return b
}

func (b *builder) done() *Layer { return b.l }

// Kind returns the layer type.
func (l *Layer) Kind() Kind { return l.kind }

// Type returns the layer type tag.
func (l *Layer) Type() string { return l.kind.String() }

// PortIDs lists ports in declaration order.
func (l *Layer) PortIDs() []string { return slices.Clone(l.portOrder) }

// Port returns the port description for id.
func (l *Layer) Port(id string) (Port, error) {
	p, ok := l.ports[id]
	if !ok {
		return Port{}, fmt.Errorf("%w: port %q on %s layer", domain.ErrNotFound, id, l.kind)
	}
	return p, nil
}

// HasField reports whether id names a field.
func (l *Layer) HasField(id string) bool {
	_, ok := l.fields[id]
	return ok
}

// FieldIDs lists fields in declaration order.
func (l *Layer) FieldIDs() []string { return slices.Clone(l.fieldOrder) }

// IsReadonlyField reports whether id is a derived field. Unknown ids are not readonly.
func (l *Layer) IsReadonlyField(id string) bool {
	f, ok := l.fields[id]
	return ok && f.Readonly
}

// Wrapper returns the live wrapper of a field. Callers must not write
// readonly fields through it.
func (l *Layer) Wrapper(id string) (value.Wrapper, error) {
	f, ok := l.fields[id]
	if !ok {
		return nil, fmt.Errorf("%w: field %q on %s layer", domain.ErrNotFound, id, l.kind)
	}
	return f.Wrapper, nil
}

// PortWrapper returns the wrapper behind a port.
func (l *Layer) PortWrapper(portID string) (value.Wrapper, Port, error) {
	p, err := l.Port(portID)
	if err != nil {
		return nil, Port{}, err
	}
	w, err := l.Wrapper(p.ValueKey)
	return w, p, err
}

func (l *Layer) number(id string) *value.Number {
	return l.fields[id].Wrapper.(*value.Number)
}

func (l *Layer) shape(id string) *value.Shape {
	return l.fields[id].Wrapper.(*value.Shape)
}

// Update recomputes the readonly fields. It is atomic: on failure the error
// wraps domain.ErrCompute and a *domain.ValidationError listing every message,
// and no field changes.
func (l *Layer) Update() error {
	preview, err := l.Clone()
	if err != nil {
		return err
	}
	if errs, _ := preview.compute(preview); len(errs) > 0 {
		return computeError(errs)
	}
	l.adopt(preview)
	return nil
}

// ValidateUpdate runs the update against an independent clone and reports
// the outcome. The layer itself is never touched.
func (l *Layer) ValidateUpdate() Report {
	preview, err := l.Clone()
	if err != nil {
		return Report{Errors: []string{err.Error()}}
	}
	errs, warnings := preview.compute(preview)
	return Report{Errors: errs, Warnings: warnings}
}

// SetFields writes a batch of writable fields from strings and then updates
// the layer. The batch is atomic: any parse, validation or update failure
// leaves the layer unchanged.
func (l *Layer) SetFields(values map[string]string) error {
	next, err := l.withFields(values)
	if err != nil {
		return err
	}
	if errs, _ := next.compute(next); len(errs) > 0 {
		return computeError(errs)
	}
	l.adopt(next)
	return nil
}

// PreviewFields reports what SetFields would produce without applying it.
func (l *Layer) PreviewFields(values map[string]string) Report {
	next, err := l.withFields(values)
	if err != nil {
		return Report{Errors: []string{err.Error()}}
	}
	errs, warnings := next.compute(next)
	return Report{Errors: errs, Warnings: warnings}
}

func (l *Layer) withFields(values map[string]string) (*Layer, error) {
	next, err := l.Clone()
	if err != nil {
		return nil, err
	}
	for _, id := range slices.Sorted(maps.Keys(values)) {
		f, ok := next.fields[id]
		if !ok {
			return nil, fmt.Errorf("%w: field %q on %s layer", domain.ErrNotFound, id, l.kind)
		}
		if f.Readonly {
			return nil, fmt.Errorf("%w: %q on %s layer", domain.ErrReadonlyField, id, l.kind)
		}
		if err := f.Wrapper.SetFromString(values[id]); err != nil {
			return nil, fmt.Errorf("field %q: %w", id, err)
		}
	}
	return next, nil
}

func computeError(errs []string) error {
	return fmt.Errorf("%w: %w", domain.ErrCompute, domain.NewValidationError(errs...))
}

// adopt takes over the wrappers of other, which must be a clone of l.
func (l *Layer) adopt(other *Layer) {
	for id, f := range other.fields {
		l.fields[id].Wrapper = f.Wrapper
	}
}
