/*
Package runtime is the editing engine behind every outer surface.

The Engine owns the graph, its undo history and the saved files. Each change
request either commits (the new document is recorded in the history and a
ChangeEvent is published) or fails with a descriptive error and leaves no trace.
Info requests never mutate. Requests that reach outside the process (file
operations and remote computations) go through a FIFO Queue that keeps at most
one of them in flight; remote results that were superseded while in flight are
dropped with ErrStale. The engine lock is released while a store or remote call
is pending, so info requests keep answering.
*/
package runtime
