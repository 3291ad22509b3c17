package domain

import (
	"errors"
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestErrorTaxonomy(t *testing.T) {
	parse := fmt.Errorf("field a: %w", &ParseError{Input: "x", Type: "number"})
	assert.ErrorIs(t, parse, ErrParse)
	assert.NotErrorIs(t, parse, ErrValidation)

	validation := fmt.Errorf("field a: %w", NewValidationError("must be an integer", "must be positive"))
	assert.ErrorIs(t, validation, ErrValidation)
	var ve *ValidationError
	if assert.True(t, errors.As(validation, &ve)) {
		assert.Len(t, ve.Messages, 2)
	}
	assert.Equal(t, "field a: must be an integer; must be positive", validation.Error())

	incompatible := &IncompatibleDiffError{Path: "graph.vertices", Reason: "key missing"}
	assert.ErrorIs(t, incompatible, ErrIncompatibleDiff)
	assert.Equal(t, "incompatible diff at graph.vertices: key missing", incompatible.Error())
}

func TestNewDocument(t *testing.T) {
	doc := NewDocument()
	assert.NotNil(t, doc.EdgesByVertex)
	assert.NotNil(t, doc.Graph.Vertices)
	assert.NotNil(t, doc.Graph.Edges)
	assert.NotNil(t, doc.Layers)
}
