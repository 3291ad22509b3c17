package layer

import (
	"testing"

	"github.com/aretw0/lattice/pkg/domain"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func mustNew(t *testing.T, k Kind) *Layer {
	t.Helper()
	l, err := New(k)
	require.NoError(t, err)
	return l
}

func TestEveryKindBuildsAValidLayer(t *testing.T) {
	for _, k := range Kinds() {
		t.Run(k.String(), func(t *testing.T) {
			l := mustNew(t, k)
			assert.Equal(t, k, l.Kind())
			for _, id := range l.PortIDs() {
				p, err := l.Port(id)
				require.NoError(t, err)
				assert.True(t, l.HasField(p.ValueKey), "port %s refers to %s", id, p.ValueKey)
				if p.Direction == Output {
					assert.True(t, l.IsReadonlyField(p.ValueKey))
				}
			}
			assert.True(t, l.ValidateUpdate().OK())
			require.NoError(t, l.Update())

			parsed, err := ParseKind(k.String())
			require.NoError(t, err)
			assert.Equal(t, k, parsed)
		})
	}
}

func TestUnknownKind(t *testing.T) {
	_, err := ParseKind("Conv9D")
	assert.ErrorIs(t, err, domain.ErrUnknownType)

	_, err = New(Kind(42))
	assert.ErrorIs(t, err, domain.ErrUnknownType)
	assert.Equal(t, "Kind(42)", Kind(42).String())
}

func TestLookups(t *testing.T) {
	l := mustNew(t, KindAdd)
	assert.Equal(t, []string{"a", "b", "sum"}, l.PortIDs())
	assert.Equal(t, []string{"a", "b", "sum"}, l.FieldIDs())

	_, err := l.Port("nope")
	assert.ErrorIs(t, err, domain.ErrNotFound)
	_, err = l.Wrapper("nope")
	assert.ErrorIs(t, err, domain.ErrNotFound)
	assert.False(t, l.HasField("nope"))
	assert.False(t, l.IsReadonlyField("nope"))
	assert.False(t, l.IsReadonlyField("a"))

	w, p, err := l.PortWrapper("sum")
	require.NoError(t, err)
	assert.Equal(t, Output, p.Direction)
	assert.Equal(t, "0", w.Stringify())
}

func TestAddUpdate(t *testing.T) {
	l := mustNew(t, KindAdd)
	a, _ := l.Wrapper("a")
	b, _ := l.Wrapper("b")
	require.NoError(t, a.SetFromString("2"))
	require.NoError(t, b.SetFromString("3"))

	require.NoError(t, l.Update())
	sum, _ := l.Wrapper("sum")
	assert.Equal(t, "5", sum.Stringify())
}

func TestAddUpdateOverflowIsAtomic(t *testing.T) {
	l := mustNew(t, KindAdd)
	require.NoError(t, l.SetFields(map[string]string{"a": "1", "b": "1"}))

	a, _ := l.Wrapper("a")
	b, _ := l.Wrapper("b")
	require.NoError(t, a.SetFromString("9007199254740991"))
	require.NoError(t, b.SetFromString("9007199254740991"))

	err := l.Update()
	assert.ErrorIs(t, err, domain.ErrCompute)
	var ve *domain.ValidationError
	require.ErrorAs(t, err, &ve)
	assert.Len(t, ve.Messages, 1)
	assert.Contains(t, ve.Messages[0], "sum:")

	sum, _ := l.Wrapper("sum")
	assert.Equal(t, "2", sum.Stringify(), "outputs must be untouched after a failed update")
}

func TestRepeatPassesShapeThrough(t *testing.T) {
	l := mustNew(t, KindRepeat)
	require.NoError(t, l.SetFields(map[string]string{"input_shape": "(224,224,3)"}))
	out, _ := l.Wrapper("output_shape")
	assert.Equal(t, "(224,224,3)", out.Stringify())

	report := l.PreviewFields(map[string]string{"input_shape": "()"})
	assert.True(t, report.OK())
	assert.Equal(t, []string{"output_shape: shape is empty"}, report.Warnings)
}

func TestValidateUpdateDoesNotMutate(t *testing.T) {
	l := mustNew(t, KindAdd)
	a, _ := l.Wrapper("a")
	require.NoError(t, a.SetFromString("4"))

	report := l.ValidateUpdate()
	assert.True(t, report.OK())

	sum, _ := l.Wrapper("sum")
	assert.Equal(t, "0", sum.Stringify(), "preview must run on a clone")
}

func TestSetFieldsBatchIsAtomic(t *testing.T) {
	l := mustNew(t, KindAdd)

	err := l.SetFields(map[string]string{"a": "7", "b": "oops"})
	assert.ErrorIs(t, err, domain.ErrParse)
	a, _ := l.Wrapper("a")
	assert.Equal(t, "0", a.Stringify())

	err = l.SetFields(map[string]string{"a": "7", "sum": "1"})
	assert.ErrorIs(t, err, domain.ErrReadonlyField)
	assert.Equal(t, "0", a.Stringify())

	err = l.SetFields(map[string]string{"c": "1"})
	assert.ErrorIs(t, err, domain.ErrNotFound)

	report := l.PreviewFields(map[string]string{"b": "x"})
	assert.False(t, report.OK())
	assert.Contains(t, report.Errors[0], "cannot parse")
}

func TestRecordRoundTrip(t *testing.T) {
	l := mustNew(t, KindRepeat)
	require.NoError(t, l.SetFields(map[string]string{"input_shape": "(8,8)"}))

	rec := ToRecord(l)
	assert.Equal(t, "Repeat", rec.LayerType)
	assert.Equal(t, map[string]string{"input_shape": "(8,8)", "output_shape": "(8,8)"}, rec.ValDict)

	back, err := FromRecord(rec)
	require.NoError(t, err)
	assert.Equal(t, rec, ToRecord(back))
}

func TestFromRecordErrors(t *testing.T) {
	_, err := FromRecord(domain.LayerRecord{LayerType: "Nope"})
	assert.ErrorIs(t, err, domain.ErrUnknownType)

	_, err = FromRecord(domain.LayerRecord{LayerType: "Add", ValDict: map[string]string{"c": "1"}})
	assert.ErrorIs(t, err, domain.ErrUnknownField)

	_, err = FromRecord(domain.LayerRecord{LayerType: "Add", ValDict: map[string]string{"a": "1e5"}})
	assert.ErrorIs(t, err, domain.ErrParse)
}

func TestCloneSharesNoState(t *testing.T) {
	l := mustNew(t, KindAdd)
	c, err := l.Clone()
	require.NoError(t, err)

	require.NoError(t, c.SetFields(map[string]string{"a": "10"}))
	a, _ := l.Wrapper("a")
	assert.Equal(t, "0", a.Stringify())

	require.NoError(t, l.SetFields(map[string]string{"b": "3"}))
	cb, _ := c.Wrapper("b")
	assert.Equal(t, "0", cb.Stringify())
}
