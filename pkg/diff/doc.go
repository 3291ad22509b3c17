/*
Package diff computes, applies and undoes structural deltas between two
immutable trees.

A tree is a Map whose values are either nested Maps or scalar leaves (string,
bool, float64, int, int64, json.Number or nil). Callers build such a tree view of
their state, typically with FromValue, before diffing. No reflection is involved:
values are inspected with type switches only.

A Diff lists the keys Added (present only after), Removed (present only before) and
Changed (present in both). A Change is a tagged variant: either a nested Node diff
when both sides are Maps, or a Before/After leaf pair.

The laws hold for every pair of trees:

	Apply(before, Compute(before, after)) == after
	Undo(after, Compute(before, after))   == before
	Compute(x, x)                         == nil

Apply and Undo never mutate their input; unchanged subtrees are shared with the
result. They fail with a *domain.IncompatibleDiffError instead of guessing when the
tree does not have the shape the diff was recorded against.
*/
package diff
