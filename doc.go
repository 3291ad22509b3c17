/*
Package lattice is an editing engine for graphs of computational layers.

A graph is made of vertices, each holding a typed layer (Add, Repeat, Input, Constant),
connected by edges that run from an output port of one layer to an input port of another.
Layers keep their fields as typed, validated values; writing a field recomputes the layer's
derived outputs atomically. Every edge carries a consistency flag telling whether the value
at its source still matches the value at its target.

# Concept

Every successful change is recorded as a structural diff between two canonical documents,
which makes undo and redo cheap and lets clients follow the editor through a stream of diffs.
Documents can be saved to and opened from a blob store (memory, filesystem or redis), and a
layer can be recomputed by a remote service over a small JSON protocol.

# Key Features

  - Atomic field updates: a failing parse, validation or computation leaves the layer untouched.
  - Undo and redo of every change, including opening a file.
  - Saved-state tracking against the open file.
  - Strict edge rules (direction, value type, fan-in, self-loops and cycles), relaxable per graph.
  - Stale remote results are dropped when the vertex changed while the request was in flight.

# Usage

	package main

	import (
		"context"
		"fmt"
		"log"

		"github.com/aretw0/lattice"
	)

	func main() {
		ctx := context.Background()
		eng, err := lattice.New()
		if err != nil {
			log.Fatal(err)
		}

		a, _ := eng.AddLayer(ctx, "", "Add", 0, 0)
		if err := eng.SetLayerFields(ctx, a, map[string]string{"a": "2", "b": "3"}); err != nil {
			log.Fatal(err)
		}
		fmt.Println(eng.Document().Layers[a].ValDict["sum"]) // 5

		if err := eng.SaveFile(ctx, "example"); err != nil {
			log.Fatal(err)
		}
	}
*/
package lattice
