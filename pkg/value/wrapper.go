package value

// Wrapper is the type-erased view of a value holder used by layers and graphs.
type Wrapper interface {
	// Type names the semantic value type (e.g. "number", "shape").
	Type() string

	// Stringify returns the canonical text form of the current value.
	Stringify() string

	// SetFromString parses s and stores it. Parse failures wrap domain.ErrParse,
	// constraint failures wrap domain.ErrValidation. The value is unchanged on error.
	SetFromString(s string) error

	// ValidateString previews SetFromString without mutating. Empty means valid.
	ValidateString(s string) string

	// CompareToString reports whether s denotes a value equal to the current one.
	CompareToString(s string) bool

	// CloneWrapper returns an independent copy.
	CloneWrapper() Wrapper
}

// describe turns a setter error into its inline message.
func describe(err error) string {
	if err == nil {
		return ""
	}
	return err.Error()
}
