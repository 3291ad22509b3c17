package runtime

import (
	"context"
	"time"

	"github.com/aretw0/lattice/pkg/diff"
	"github.com/aretw0/lattice/pkg/domain"
	"github.com/aretw0/lattice/pkg/graph"
)

// Undo reverts the latest change. With nothing to undo it does nothing.
func (e *Engine) Undo(ctx context.Context) error {
	return e.step(ctx, domain.ChangeUndo, e.history.Undo, e.history.Redo)
}

// Redo re-applies the latest undone change. With nothing to redo it does nothing.
func (e *Engine) Redo(ctx context.Context) error {
	return e.step(ctx, domain.ChangeRedo, e.history.Redo, e.history.Undo)
}

func (e *Engine) step(ctx context.Context, kind domain.ChangeKind, move, back func() (domain.Document, *diff.Diff, error)) error {
	e.mu.Lock()
	ev, err := e.stepLocked(kind, move, back)
	e.mu.Unlock()
	if err != nil {
		return e.reject(ctx, kind, err)
	}
	e.emit(ctx, ev)
	return nil
}

func (e *Engine) stepLocked(kind domain.ChangeKind, move, back func() (domain.Document, *diff.Diff, error)) (*domain.ChangeEvent, error) {
	doc, d, err := move()
	if err != nil || d == nil {
		return nil, err
	}
	g, err := graph.FromDocument(doc, e.graphOpts...)
	if err != nil {
		if _, _, backErr := back(); backErr != nil {
			e.logger.Error("failed to roll back history step", "kind", kind, "err", backErr)
		}
		return nil, err
	}
	e.graph = g
	e.epoch++
	return e.eventLocked(kind, "", d), nil
}

// CanUndo reports whether Undo would change anything.
func (e *Engine) CanUndo() bool {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.history.CanUndo()
}

// CanRedo reports whether Redo would change anything.
func (e *Engine) CanRedo() bool {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.history.CanRedo()
}

// AreAllChangesSaved reports whether the graph matches the open file.
func (e *Engine) AreAllChangesSaved() bool {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.history.AreAllChangesSaved()
}

// CurrentFile returns the name of the open file, if any.
func (e *Engine) CurrentFile() (string, bool) {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.history.OpenFile()
}

// SaveFile saves the current document under name and marks it saved.
// The engine stays readable while the store writes. If a change is committed
// meanwhile, the written file is no longer the current state and the graph
// is reported as unsaved.
func (e *Engine) SaveFile(ctx context.Context, name string) error {
	if e.files == nil {
		return e.reject(ctx, domain.ChangeSaveFile, ErrNoFiles)
	}
	var saved bool
	err := e.queue.Do(ctx, func(ctx context.Context) error {
		e.mu.Lock()
		doc, commits := e.graph.ToDocument(), e.commits
		e.mu.Unlock()

		if err := e.files.Save(ctx, name, doc); err != nil {
			return err
		}

		e.mu.Lock()
		defer e.mu.Unlock()
		if e.commits != commits {
			e.logger.Warn("Graph changed while saving", "file", name)
			e.history.OnFileSaveOutdated(name)
			return nil
		}
		e.history.OnFileSave(name)
		saved = true
		return nil
	})
	if err != nil {
		return e.reject(ctx, domain.ChangeSaveFile, err)
	}
	e.emit(ctx, &domain.ChangeEvent{Timestamp: time.Now(), Kind: domain.ChangeSaveFile, Target: name, Saved: saved})
	return nil
}

// OpenFile replaces the graph with a saved file. Opening is itself an undoable step.
func (e *Engine) OpenFile(ctx context.Context, name string) error {
	if e.files == nil {
		return e.reject(ctx, domain.ChangeOpenFile, ErrNoFiles)
	}
	var ev *domain.ChangeEvent
	err := e.queue.Do(ctx, func(ctx context.Context) error {
		doc, err := e.files.Load(ctx, name)
		if err != nil {
			return err
		}
		g, err := graph.FromDocument(doc, e.graphOpts...)
		if err != nil {
			return err
		}

		e.mu.Lock()
		defer e.mu.Unlock()
		d, err := e.history.OnFileOpen(name, g.ToDocument())
		if err != nil {
			return err
		}
		e.graph = g
		e.epoch++
		ev = e.eventLocked(domain.ChangeOpenFile, name, d)
		if ev == nil {
			ev = &domain.ChangeEvent{Timestamp: time.Now(), Kind: domain.ChangeOpenFile, Target: name, Saved: true}
		}
		return nil
	})
	if err != nil {
		return e.reject(ctx, domain.ChangeOpenFile, err)
	}
	e.emit(ctx, ev)
	return nil
}

// DeleteFile deletes a saved file. If it is the open file, the graph is no longer
// considered saved.
func (e *Engine) DeleteFile(ctx context.Context, name string) error {
	if e.files == nil {
		return e.reject(ctx, domain.ChangeDeleteFile, ErrNoFiles)
	}
	var saved bool
	err := e.queue.Do(ctx, func(ctx context.Context) error {
		if err := e.files.Delete(ctx, name); err != nil {
			return err
		}
		e.mu.Lock()
		defer e.mu.Unlock()
		e.history.OnFileDelete(name)
		saved = e.history.AreAllChangesSaved()
		return nil
	})
	if err != nil {
		return e.reject(ctx, domain.ChangeDeleteFile, err)
	}
	e.emit(ctx, &domain.ChangeEvent{Timestamp: time.Now(), Kind: domain.ChangeDeleteFile, Target: name, Saved: saved})
	return nil
}
