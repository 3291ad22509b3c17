package value

import (
	"math"
	"testing"

	"github.com/aretw0/lattice/pkg/domain"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseNumber(t *testing.T) {
	tests := []struct {
		in      string
		want    float64
		wantErr bool
	}{
		{in: "5", want: 5},
		{in: "  -3.25 ", want: -3.25},
		{in: "+7", want: 7},
		{in: "0.5", want: 0.5},
		{in: "1e3", wantErr: true},
		{in: ".5", wantErr: true},
		{in: "5.", wantErr: true},
		{in: "", wantErr: true},
		{in: "abc", wantErr: true},
		{in: "1 2", wantErr: true},
		{in: "NaN", wantErr: true},
		{in: "Infinity", wantErr: true},
	}
	for _, tt := range tests {
		t.Run(tt.in, func(t *testing.T) {
			got, err := ParseNumber(tt.in)
			if tt.wantErr {
				assert.ErrorIs(t, err, domain.ErrParse)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestNumberValidation(t *testing.T) {
	n := MustNumber(1, NumberConfig{
		Integer: true,
		Min:     &Bound{Value: 0, Inclusive: true},
		Max:     &Bound{Value: 10, Inclusive: false},
	})

	assert.Equal(t, "", n.ValidateValue(0))
	assert.Equal(t, "must be an integer", n.ValidateValue(1.5))
	assert.Equal(t, "must be at least 0", n.ValidateValue(-1))
	assert.Equal(t, "must be less than 10", n.ValidateValue(10))
	assert.Equal(t, "must be a finite number", n.ValidateValue(math.Inf(1)))
	assert.Equal(t, "must be a finite number", n.ValidateValue(math.NaN()))

	free := MustNumber(0, NumberConfig{})
	assert.Contains(t, free.ValidateValue(MaxSafeNumber), "smaller in magnitude")
	assert.Equal(t, "", free.ValidateValue(MaxSafeNumber-1))
}

func TestNumberSetValueIsAtomic(t *testing.T) {
	n := MustNumber(3, NumberConfig{Integer: true})

	err := n.SetValue(2.5)
	assert.ErrorIs(t, err, domain.ErrValidation)
	assert.Equal(t, 3.0, n.Value())

	err = n.SetFromString("x")
	assert.ErrorIs(t, err, domain.ErrParse)
	assert.NotErrorIs(t, err, domain.ErrValidation)
	assert.Equal(t, 3.0, n.Value())

	err = n.SetFromString("2.5")
	assert.ErrorIs(t, err, domain.ErrValidation)
	assert.Equal(t, 3.0, n.Value())

	// Huge literals parse but fail validation, same as SetValue.
	err = n.SetFromString("99999999999999999999999")
	assert.ErrorIs(t, err, domain.ErrValidation)

	require.NoError(t, n.SetFromString(" 42 "))
	assert.Equal(t, 42.0, n.Value())
	assert.Equal(t, "42", n.Stringify())
}

func TestNumberRoundTrip(t *testing.T) {
	n := MustNumber(0, NumberConfig{})
	for _, v := range []float64{0, 1, -1, 0.1, 123.456, -0.0000001, 9007199254740991, 1.5e-10} {
		require.NoError(t, n.SetValue(v))
		parsed, err := ParseNumber(n.Stringify())
		require.NoError(t, err, "stringify(%v) = %q", v, n.Stringify())
		assert.Equal(t, v, parsed)
		// Setting the wrapper's own value never fails.
		assert.NoError(t, n.SetValue(n.Value()))
	}
}

func TestNumberCompareAndClone(t *testing.T) {
	n := MustNumber(5, NumberConfig{})
	assert.True(t, n.CompareTo(5))
	assert.True(t, n.CompareToString("5.0"))
	assert.True(t, n.CompareToString(" +5 "))
	assert.False(t, n.CompareToString("6"))
	assert.False(t, n.CompareToString("(5)"))

	c := n.Clone()
	require.NoError(t, c.SetValue(6))
	assert.Equal(t, 5.0, n.Value())
	assert.Equal(t, 6.0, c.Value())
}

func TestNumberConfigIsCopied(t *testing.T) {
	cfg := NumberConfig{Min: &Bound{Value: 0, Inclusive: true}}
	n := MustNumber(1, cfg)
	cfg.Min.Value = 100
	assert.Equal(t, "", n.ValidateValue(50))

	got := n.Config()
	got.Min.Value = 100
	assert.Equal(t, "", n.ValidateValue(50))
}

func TestNewNumberRejectsInvalidInitial(t *testing.T) {
	_, err := NewNumber(0.5, NumberConfig{Integer: true})
	assert.ErrorIs(t, err, domain.ErrValidation)
}
