package value

import (
	"testing"

	"github.com/aretw0/lattice/pkg/domain"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseShape(t *testing.T) {
	tests := []struct {
		in      string
		want    []int
		wantErr bool
	}{
		{in: "(224,224,3)", want: []int{224, 224, 3}},
		{in: " ( 1 , 2 ) ", want: []int{1, 2}},
		{in: "()", want: []int{}},
		{in: "( )", want: []int{}},
		{in: "(0,5)", want: []int{0, 5}},
		{in: "(-1)", want: []int{-1}},
		{in: "(1,,2)", wantErr: true},
		{in: "(1,2", wantErr: true},
		{in: "1,2", wantErr: true},
		{in: "(1.5)", wantErr: true},
		{in: "(a)", wantErr: true},
		{in: "(1 2)", wantErr: true},
		{in: "(-)", wantErr: true},
		{in: "", wantErr: true},
	}
	for _, tt := range tests {
		t.Run(tt.in, func(t *testing.T) {
			got, err := ParseShape(tt.in)
			if tt.wantErr {
				assert.ErrorIs(t, err, domain.ErrParse)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestShapeValidation(t *testing.T) {
	s := MustShape([]int{1}, ShapeConfig{})

	assert.Equal(t, "dimension 0 is not positive", s.ValidateString("(0,5)"))
	assert.Equal(t, "dimension 1 is not positive", s.ValidateString("(3,-2)"))
	assert.Contains(t, s.ValidateString("(4294967296)"), "exceeds")
	assert.Equal(t, "", s.ValidateString("()"))
	assert.Contains(t, s.ValidateString("(1"), "cannot parse")

	fixed := MustShape([]int{1, 1, 1}, ShapeConfig{Dims: Int(3)})
	assert.Equal(t, "must have exactly 3 dimensions", fixed.ValidateString("()"))
	assert.Equal(t, "", fixed.ValidateString("(2,2,2)"))

	bounded := MustShape([]int{1}, ShapeConfig{MinDims: Int(1), MaxDims: Int(2)})
	assert.Equal(t, "must have at least 1 dimensions", bounded.ValidateValue(nil))
	assert.Equal(t, "must have at most 2 dimensions", bounded.ValidateValue([]int{1, 2, 3}))
}

func TestShapeSetAndRoundTrip(t *testing.T) {
	s := MustShape([]int{1, 1, 1}, ShapeConfig{})

	require.NoError(t, s.SetFromString("(224,224,3)"))
	assert.Equal(t, []int{224, 224, 3}, s.Value())
	assert.Equal(t, "(224,224,3)", s.Stringify())

	err := s.SetFromString("(0,5)")
	assert.ErrorIs(t, err, domain.ErrValidation)
	assert.Contains(t, err.Error(), "not positive")
	assert.Equal(t, []int{224, 224, 3}, s.Value())

	for _, dims := range [][]int{{}, {1}, {7, 8, 9, 10}} {
		require.NoError(t, s.SetValue(dims))
		parsed, err := ParseShape(s.Stringify())
		require.NoError(t, err)
		assert.Equal(t, dims, parsed)
		assert.NoError(t, s.SetValue(s.Value()))
	}
}

func TestShapeDefensiveCopies(t *testing.T) {
	in := []int{2, 3}
	s := MustShape(in, ShapeConfig{})
	in[0] = 99
	assert.Equal(t, []int{2, 3}, s.Value())

	out := s.Value()
	out[0] = 99
	assert.Equal(t, []int{2, 3}, s.Value())

	c := s.Clone()
	require.NoError(t, c.SetValue([]int{4}))
	assert.Equal(t, []int{2, 3}, s.Value())
}

func TestShapeCompare(t *testing.T) {
	s := MustShape([]int{1, 2}, ShapeConfig{})
	assert.True(t, s.CompareTo([]int{1, 2}))
	assert.False(t, s.CompareTo([]int{1, 2, 1}))
	assert.False(t, s.CompareTo([]int{1}))
	assert.True(t, s.CompareToString(" (1, 2) "))
	assert.False(t, s.CompareToString("5"))
}

func TestWrappersAsInterface(t *testing.T) {
	wrappers := []Wrapper{MustNumber(2, NumberConfig{}), MustShape([]int{3}, ShapeConfig{})}
	for _, w := range wrappers {
		c := w.CloneWrapper()
		assert.Equal(t, w.Stringify(), c.Stringify())
		assert.True(t, w.CompareToString(c.Stringify()))
		assert.Equal(t, w.Type(), c.Type())
	}
}
