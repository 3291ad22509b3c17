/*
Package history implements bounded undo/redo over any state value.

A Manager keeps the current state as a diff.Map tree, a bounded stack of past diffs
and an unbounded stack of future diffs. Every recorded change stores only the delta
against the previous state. The oldest undo step is silently dropped once the past
stack exceeds its capacity (DefaultMaxSize unless WithMaxSize is given).

The Manager also tracks the distance between the current state and the last opened
or saved file (the save offset), so callers can ask AreAllChangesSaved.
*/
package history
