// Package wizard implements the ordered-step state machine behind the
// nomination and registration flows. The machine is an explicit value with
// pure transitions: each Advance validates the step payload, merges it into
// the aggregate draft, persists through the injected saver and only then
// moves the cursor. Nothing here touches HTTP or rendering.
package wizard

import (
	"context"
	"encoding/json"

	dErrors "ovation/pkg/domain-errors"
)

// Step is one page of a multi-page form. Apply validates the raw payload and
// returns the draft with the payload merged in; it must not mutate its input.
// A nil Apply marks a step that cannot be advanced through the wizard (the
// registration payment step is driven by the payment flow instead).
type Step[T any] struct {
	Key   string
	Apply func(ctx context.Context, draft T, data json.RawMessage) (T, error)
}

// Config wires a machine to a concrete aggregate.
type Config[T any] struct {
	Steps []Step[T]

	// Save persists the draft and returns the persisted value (with
	// refreshed timestamps). Failures leave the cursor where it was.
	Save func(ctx context.Context, draft T) (T, error)

	// Finalized reports whether the draft reached a terminal state
	// (submitted nomination, paid registration). A finalized draft rejects
	// every Advance.
	Finalized func(draft T) bool

	// Position and SetPosition read and write the draft's stored step key so
	// a machine can resume after a page reload.
	Position    func(draft T) string
	SetPosition func(draft T, key string) T

	// Commit, when set, runs after CommitAt's payload is merged and before
	// the cursor moves. Commit failure keeps the machine on CommitAt with no
	// partial advance.
	Commit   func(ctx context.Context, draft T) (T, error)
	CommitAt string
}

// Machine holds the cursor and the current draft value.
type Machine[T any] struct {
	cfg   Config[T]
	idx   int
	draft T
}

// Resume builds a machine positioned at the draft's stored step.
func Resume[T any](cfg Config[T], draft T) (*Machine[T], error) {
	if len(cfg.Steps) == 0 {
		return nil, dErrors.New(dErrors.CodeInternal, "wizard has no steps")
	}
	idx := 0
	if key := cfg.Position(draft); key != "" {
		found := false
		for i, step := range cfg.Steps {
			if step.Key == key {
				idx = i
				found = true
				break
			}
		}
		if !found {
			return nil, dErrors.New(dErrors.CodeInternal, "draft positioned at unknown step "+key)
		}
	}
	return &Machine[T]{cfg: cfg, idx: idx, draft: draft}, nil
}

// Draft returns the current aggregate value.
func (m *Machine[T]) Draft() T { return m.draft }

// Current returns the active step key.
func (m *Machine[T]) Current() string { return m.cfg.Steps[m.idx].Key }

// Advance validates data against the current step, merges it, persists, and
// moves to the next step. On validation failure the cursor does not move and
// the error carries field-level detail. On a finalized draft it returns
// CodeInvalidState.
func (m *Machine[T]) Advance(ctx context.Context, data json.RawMessage) error {
	if m.cfg.Finalized(m.draft) {
		return dErrors.New(dErrors.CodeInvalidState, "draft is already finalized")
	}

	step := m.cfg.Steps[m.idx]
	if step.Apply == nil {
		return dErrors.New(dErrors.CodeInvalidState, "step "+step.Key+" is not advanced through the form")
	}

	merged, err := step.Apply(ctx, m.draft, data)
	if err != nil {
		return err
	}

	if m.cfg.Commit != nil && step.Key == m.cfg.CommitAt {
		merged, err = m.cfg.Commit(ctx, merged)
		if err != nil {
			return err
		}
	}

	next := m.idx
	if m.idx+1 < len(m.cfg.Steps) {
		next = m.idx + 1
		merged = m.cfg.SetPosition(merged, m.cfg.Steps[next].Key)
	}

	saved, err := m.cfg.Save(ctx, merged)
	if err != nil {
		return err
	}

	m.draft = saved
	m.idx = next
	return nil
}

// Retreat moves to the previous step without discarding later answers. On the
// first step it is a no-op.
func (m *Machine[T]) Retreat(ctx context.Context) error {
	if m.idx == 0 {
		return nil
	}
	prev := m.cfg.SetPosition(m.draft, m.cfg.Steps[m.idx-1].Key)
	saved, err := m.cfg.Save(ctx, prev)
	if err != nil {
		return err
	}
	m.draft = saved
	m.idx--
	return nil
}
