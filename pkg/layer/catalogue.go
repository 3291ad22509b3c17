package layer

import (
	"github.com/aretw0/lattice/pkg/value"
)

func newAdd() *Layer {
	return build(KindAdd, computeAdd).
		field("a", value.MustNumber(0, value.NumberConfig{}), false).
		field("b", value.MustNumber(0, value.NumberConfig{}), false).
		field("sum", value.MustNumber(0, value.NumberConfig{}), true).
		port("a", "a", Input).
		port("b", "b", Input).
		port("sum", "sum", Output).
		done()
}

func computeAdd(l *Layer) (errs, warnings []string) {
	sum := l.number("a").Value() + l.number("b").Value()
	if err := l.number("sum").SetValue(sum); err != nil {
		errs = append(errs, "sum: "+err.Error())
	}
	return errs, nil
}

func newRepeat() *Layer {
	return build(KindRepeat, computeRepeat).
		field("input_shape", value.MustShape([]int{1, 1, 1}, value.ShapeConfig{}), false).
		field("output_shape", value.MustShape([]int{1, 1, 1}, value.ShapeConfig{}), true).
		port("input", "input_shape", Input).
		port("output", "output_shape", Output).
		done()
}

func computeRepeat(l *Layer) (errs, warnings []string) {
	return passShape(l, "input_shape", "output_shape")
}

func newInput() *Layer {
	return build(KindInput, computeInput).
		field("shape", value.MustShape([]int{1}, value.ShapeConfig{MinDims: value.Int(1)}), false).
		field("output_shape", value.MustShape([]int{1}, value.ShapeConfig{}), true).
		port("output", "output_shape", Output).
		done()
}

func computeInput(l *Layer) (errs, warnings []string) {
	return passShape(l, "shape", "output_shape")
}

func passShape(l *Layer, from, to string) (errs, warnings []string) {
	dims := l.shape(from).Value()
	if err := l.shape(to).SetValue(dims); err != nil {
		errs = append(errs, to+": "+err.Error())
	}
	if len(dims) == 0 {
		warnings = append(warnings, to+": shape is empty")
	}
	return errs, warnings
}

func newConstant() *Layer {
	return build(KindConstant, computeConstant).
		field("value", value.MustNumber(0, value.NumberConfig{}), false).
		field("output", value.MustNumber(0, value.NumberConfig{}), true).
		port("output", "output", Output).
		done()
}

func computeConstant(l *Layer) (errs, warnings []string) {
	if err := l.number("output").SetValue(l.number("value").Value()); err != nil {
		errs = append(errs, "output: "+err.Error())
	}
	return errs, nil
}
