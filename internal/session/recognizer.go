package session

import (
	"context"

	"github.com/looplab/fsm"

	"github.com/talkie-app/sttd/pkg/engine"
)

// Recognizer lifecycle states. The transition is irreversible.
const (
	StateOpen   = "open"
	StateClosed = "closed"

	eventClose = "close"
)

// RecognizerHandle owns one engine recognizer session. It holds its
// parent model by registry name, never by pointer, so a destroyed
// model can never be reached through a stale reference.
type RecognizerHandle struct {
	name      string
	modelName string
	ref       engine.RecognizerRef
	lifecycle *fsm.FSM
}

func newRecognizerHandle(name, modelName string, ref engine.RecognizerRef) *RecognizerHandle {
	return &RecognizerHandle{
		name:      name,
		modelName: modelName,
		ref:       ref,
		lifecycle: fsm.NewFSM(
			StateOpen,
			fsm.Events{
				{Name: eventClose, Src: []string{StateOpen}, Dst: StateClosed},
			},
			fsm.Callbacks{},
		),
	}
}

func (r *RecognizerHandle) Name() string      { return r.name }
func (r *RecognizerHandle) ModelName() string { return r.modelName }

// Closed reports whether the handle has left the open state.
func (r *RecognizerHandle) Closed() bool {
	return r.lifecycle.Current() == StateClosed
}

// Ref returns the engine recognizer, nil once closed.
func (r *RecognizerHandle) Ref() engine.RecognizerRef { return r.ref }

// destroy marks the handle closed before freeing anything, so any
// observer sees closed the moment teardown begins. Frees are
// null-guarded; re-entry is a no-op.
func (r *RecognizerHandle) destroy() {
	if r.Closed() {
		return
	}
	_ = r.lifecycle.Event(context.Background(), eventClose)
	if r.ref != nil {
		_ = r.ref.Close()
		r.ref = nil
	}
}
