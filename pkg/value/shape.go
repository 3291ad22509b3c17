package value

import (
	"fmt"
	"slices"
	"strconv"
	"strings"

	"github.com/aretw0/lattice/pkg/domain"
)

// MaxDimension is the largest accepted size of a single shape dimension.
const MaxDimension = 1<<31 - 1

// ShapeConfig constrains a Shape. Dims pins the exact dimension count;
// MinDims and MaxDims bound it. Nil means unconstrained.
type ShapeConfig struct {
	Dims    *int
	MinDims *int
	MaxDims *int
}

func (c ShapeConfig) clone() ShapeConfig {
	return ShapeConfig{Dims: cloneInt(c.Dims), MinDims: cloneInt(c.MinDims), MaxDims: cloneInt(c.MaxDims)}
}

func cloneInt(p *int) *int {
	if p == nil {
		return nil
	}
	v := *p
	return &v
}

// Shape holds a validated sequence of positive integers.
type Shape struct {
	value  []int
	config ShapeConfig
}

var _ Wrapper = (*Shape)(nil)

// NewShape creates a Shape. It fails if initial does not satisfy config.
func NewShape(initial []int, config ShapeConfig) (*Shape, error) {
	s := &Shape{config: config.clone()}
	if msg := s.ValidateValue(initial); msg != "" {
		return nil, domain.NewValidationError(msg)
	}
	s.value = slices.Clone(initial)
	if s.value == nil {
		s.value = []int{}
	}
	return s, nil
}

// MustShape is NewShape for statically known defaults.
func MustShape(initial []int, config ShapeConfig) *Shape {
	s, err := NewShape(initial, config)
	if err != nil {
		panic(err)
	}
	return s
}

// ParseShape reads "(a,b,c)". Whitespace around the parentheses and the
// elements is tolerated; "()" is the empty shape.
func ParseShape(s string) ([]int, error) {
	fail := &domain.ParseError{Input: s, Type: "shape"}
	trimmed := strings.TrimSpace(s)
	if len(trimmed) < 2 || trimmed[0] != '(' || trimmed[len(trimmed)-1] != ')' {
		return nil, fail
	}
	inner := strings.TrimSpace(trimmed[1 : len(trimmed)-1])
	if inner == "" {
		return []int{}, nil
	}
	parts := strings.Split(inner, ",")
	out := make([]int, 0, len(parts))
	for _, part := range parts {
		part = strings.TrimSpace(part)
		if part == "" {
			return nil, fail
		}
		for i, r := range part {
			if r >= '0' && r <= '9' {
				continue
			}
			if i == 0 && (r == '-' || r == '+') && len(part) > 1 {
				continue
			}
			return nil, fail
		}
		v, err := strconv.ParseInt(part, 10, 64)
		if err != nil {
			return nil, fail
		}
		out = append(out, int(v))
	}
	return out, nil
}

// FormatShape renders dims canonically, e.g. "(224,224,3)".
func FormatShape(dims []int) string {
	parts := make([]string, len(dims))
	for i, d := range dims {
		parts[i] = strconv.Itoa(d)
	}
	return "(" + strings.Join(parts, ",") + ")"
}

func (s *Shape) Type() string { return "shape" }

// Value returns a copy of the held dimensions.
func (s *Shape) Value() []int { return slices.Clone(s.value) }

// Config returns a copy of the validation config.
func (s *Shape) Config() ShapeConfig { return s.config.clone() }

// ValidateValue reports why dims would be rejected, or "" if acceptable.
func (s *Shape) ValidateValue(dims []int) string {
	for i, d := range dims {
		if d <= 0 {
			return fmt.Sprintf("dimension %d is not positive", i)
		}
		if d > MaxDimension {
			return fmt.Sprintf("dimension %d exceeds %d", i, MaxDimension)
		}
	}
	n := len(dims)
	if c := s.config.Dims; c != nil && n != *c {
		return fmt.Sprintf("must have exactly %d dimensions", *c)
	}
	if c := s.config.MinDims; c != nil && n < *c {
		return fmt.Sprintf("must have at least %d dimensions", *c)
	}
	if c := s.config.MaxDims; c != nil && n > *c {
		return fmt.Sprintf("must have at most %d dimensions", *c)
	}
	return ""
}

// SetValue stores a copy of dims if it validates.
func (s *Shape) SetValue(dims []int) error {
	if msg := s.ValidateValue(dims); msg != "" {
		return domain.NewValidationError(msg)
	}
	s.value = slices.Clone(dims)
	if s.value == nil {
		s.value = []int{}
	}
	return nil
}

func (s *Shape) Stringify() string { return FormatShape(s.value) }

func (s *Shape) SetFromString(str string) error {
	dims, err := ParseShape(str)
	if err != nil {
		return err
	}
	return s.SetValue(dims)
}

func (s *Shape) ValidateString(str string) string {
	dims, err := ParseShape(str)
	if err != nil {
		return describe(err)
	}
	return s.ValidateValue(dims)
}

// CompareTo reports element-wise, length-sensitive equality.
func (s *Shape) CompareTo(dims []int) bool { return slices.Equal(s.value, dims) }

func (s *Shape) CompareToString(str string) bool {
	dims, err := ParseShape(str)
	if err != nil {
		return false
	}
	return s.CompareTo(dims)
}

// Clone returns an independent copy.
func (s *Shape) Clone() *Shape {
	return &Shape{value: slices.Clone(s.value), config: s.config.clone()}
}

func (s *Shape) CloneWrapper() Wrapper { return s.Clone() }

// Int returns a pointer to v, for building configs inline.
func Int(v int) *int { return &v }
