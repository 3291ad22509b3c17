package domain

import (
	"context"
	"encoding/json"
	"time"
)

// ChangeKind names the request that produced a change.
type ChangeKind string

const (
	ChangeAddLayer      ChangeKind = "add_layer"
	ChangeMoveVertex    ChangeKind = "move_vertex"
	ChangeCloneVertex   ChangeKind = "clone_vertex"
	ChangeDeleteVertex  ChangeKind = "delete_vertex"
	ChangeCreateEdge    ChangeKind = "create_edge"
	ChangeDeleteEdge    ChangeKind = "delete_edge"
	ChangeSetFields     ChangeKind = "set_layer_fields"
	ChangeUndo          ChangeKind = "undo"
	ChangeRedo          ChangeKind = "redo"
	ChangeOpenFile      ChangeKind = "open_file"
	ChangeSaveFile      ChangeKind = "save_file"
	ChangeDeleteFile    ChangeKind = "delete_file"
	ChangeRemoteCompute ChangeKind = "remote_compute"
)

// ChangeEvent describes a committed change.
type ChangeEvent struct {
	Timestamp time.Time  `json:"timestamp"`
	Kind      ChangeKind `json:"kind"`
	Target    string     `json:"target,omitempty"`
	// Diff is the canonical JSON diff between the previous and the new document.
	// It is empty when the change did not touch the document (e.g. save).
	Diff json.RawMessage `json:"diff,omitempty"`
	// Saved reports whether the document matches the last saved or opened file.
	Saved bool `json:"saved"`
}

// LifecycleHooks defines callbacks for engine observability.
type LifecycleHooks struct {
	OnChange   func(context.Context, *ChangeEvent)
	OnRejected func(ctx context.Context, kind ChangeKind, err error)
}
