package lattice_test

import (
	"context"
	"fmt"
	"log"

	"github.com/aretw0/lattice"
)

// ExampleNew builds a two-layer graph, edits it and walks back through the history.
func ExampleNew() {
	ctx := context.Background()
	eng, err := lattice.New()
	if err != nil {
		log.Fatal(err)
	}

	if _, err := eng.AddLayer(ctx, "add", "Add", 0, 0); err != nil {
		log.Fatal(err)
	}
	if err := eng.SetLayerFields(ctx, "add", map[string]string{"a": "2", "b": "3"}); err != nil {
		log.Fatal(err)
	}
	fmt.Println("sum:", eng.Document().Layers["add"].ValDict["sum"])

	if err := eng.Undo(ctx); err != nil {
		log.Fatal(err)
	}
	fmt.Println("after undo:", eng.Document().Layers["add"].ValDict["sum"])

	if err := eng.Redo(ctx); err != nil {
		log.Fatal(err)
	}
	fmt.Println("after redo:", eng.Document().Layers["add"].ValDict["sum"])

	// Output:
	// sum: 5
	// after undo: 0
	// after redo: 5
}

// ExampleEngine_ValidateEdge asks whether two ports could be connected before trying.
func ExampleEngine_ValidateEdge() {
	ctx := context.Background()
	eng, err := lattice.New()
	if err != nil {
		log.Fatal(err)
	}
	_, _ = eng.AddLayer(ctx, "add", "Add", 0, 0)
	_, _ = eng.AddLayer(ctx, "repeat", "Repeat", 100, 0)
	_, _ = eng.AddLayer(ctx, "const", "Constant", 0, 100)

	fmt.Println(eng.ValidateEdge("const", "output", "add", "a").Valid)
	fmt.Println(eng.ValidateEdge("add", "sum", "repeat", "input").Reason)

	// Output:
	// true
	// structural error: cannot connect a number output to a shape input
}
