package value

import (
	"fmt"
	"math"
	"regexp"
	"strconv"
	"strings"

	"github.com/aretw0/lattice/pkg/domain"
)

// MaxSafeNumber is the exclusive magnitude bound for numbers (2^53).
// Beyond it float64 can no longer represent every integer.
const MaxSafeNumber = 1 << 53

var numberPattern = regexp.MustCompile(`^[+-]?\d+(\.\d+)?$`)

// Bound is one side of a numeric range.
type Bound struct {
	Value     float64
	Inclusive bool
}

// NumberConfig constrains a Number.
type NumberConfig struct {
	Integer bool
	Min     *Bound
	Max     *Bound
}

func (c NumberConfig) clone() NumberConfig {
	out := NumberConfig{Integer: c.Integer}
	if c.Min != nil {
		b := *c.Min
		out.Min = &b
	}
	if c.Max != nil {
		b := *c.Max
		out.Max = &b
	}
	return out
}

// Number holds a validated float64.
type Number struct {
	value  float64
	config NumberConfig
}

var _ Wrapper = (*Number)(nil)

// NewNumber creates a Number. It fails if initial does not satisfy config.
func NewNumber(initial float64, config NumberConfig) (*Number, error) {
	n := &Number{config: config.clone()}
	if msg := n.ValidateValue(initial); msg != "" {
		return nil, domain.NewValidationError(msg)
	}
	n.value = initial
	return n, nil
}

// MustNumber is NewNumber for statically known defaults.
func MustNumber(initial float64, config NumberConfig) *Number {
	n, err := NewNumber(initial, config)
	if err != nil {
		panic(err)
	}
	return n
}

// ParseNumber parses the canonical number grammar: optional sign, digits,
// optional fractional part, optional surrounding whitespace. Exponents are rejected.
func ParseNumber(s string) (float64, error) {
	trimmed := strings.TrimSpace(s)
	if !numberPattern.MatchString(trimmed) {
		return 0, &domain.ParseError{Input: s, Type: "number"}
	}
	v, err := strconv.ParseFloat(trimmed, 64)
	if err != nil && !isRangeError(err) {
		return 0, &domain.ParseError{Input: s, Type: "number"}
	}
	// Out-of-range literals become ±Inf and are rejected by validation.
	return v, nil
}

func isRangeError(err error) bool {
	numErr, ok := err.(*strconv.NumError)
	return ok && numErr.Err == strconv.ErrRange
}

// FormatNumber renders v in the shortest form ParseNumber reads back exactly.
func FormatNumber(v float64) string {
	return strconv.FormatFloat(v, 'f', -1, 64)
}

func (n *Number) Type() string { return "number" }

// Value returns the held number.
func (n *Number) Value() float64 { return n.value }

// Config returns a copy of the validation config.
func (n *Number) Config() NumberConfig { return n.config.clone() }

// ValidateValue reports why v would be rejected, or "" if it is acceptable.
func (n *Number) ValidateValue(v float64) string {
	switch {
	case math.IsNaN(v) || math.IsInf(v, 0):
		return "must be a finite number"
	case math.Abs(v) >= MaxSafeNumber:
		return fmt.Sprintf("must be smaller in magnitude than %d", int64(MaxSafeNumber))
	case n.config.Integer && v != math.Trunc(v):
		return "must be an integer"
	}
	if b := n.config.Min; b != nil {
		if b.Inclusive && v < b.Value {
			return "must be at least " + FormatNumber(b.Value)
		}
		if !b.Inclusive && v <= b.Value {
			return "must be greater than " + FormatNumber(b.Value)
		}
	}
	if b := n.config.Max; b != nil {
		if b.Inclusive && v > b.Value {
			return "must be at most " + FormatNumber(b.Value)
		}
		if !b.Inclusive && v >= b.Value {
			return "must be less than " + FormatNumber(b.Value)
		}
	}
	return ""
}

// SetValue stores v if it validates.
func (n *Number) SetValue(v float64) error {
	if msg := n.ValidateValue(v); msg != "" {
		return domain.NewValidationError(msg)
	}
	n.value = v
	return nil
}

func (n *Number) Stringify() string { return FormatNumber(n.value) }

func (n *Number) SetFromString(s string) error {
	v, err := ParseNumber(s)
	if err != nil {
		return err
	}
	return n.SetValue(v)
}

func (n *Number) ValidateString(s string) string {
	v, err := ParseNumber(s)
	if err != nil {
		return describe(err)
	}
	return n.ValidateValue(v)
}

// CompareTo reports numeric equality.
func (n *Number) CompareTo(v float64) bool { return n.value == v }

func (n *Number) CompareToString(s string) bool {
	v, err := ParseNumber(s)
	if err != nil {
		return false
	}
	return n.CompareTo(v)
}

// Clone returns an independent copy.
func (n *Number) Clone() *Number {
	return &Number{value: n.value, config: n.config.clone()}
}

func (n *Number) CloneWrapper() Wrapper { return n.Clone() }
