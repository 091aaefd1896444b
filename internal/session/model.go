package session

import (
	"sync/atomic"

	"github.com/talkie-app/sttd/pkg/engine"
)

// ModelHandle owns one engine model. The engine ref is non-nil while
// the handle is alive; teardown nils it and it is never reused.
// destroyed is atomic because dispatch reads it outside the registry
// lock while a concurrent Unregister may flip it.
type ModelHandle struct {
	name       string
	engineType string
	modelPath  string
	ref        engine.ModelRef
	children   map[string]struct{}
	destroyed  atomic.Bool
}

func (m *ModelHandle) Name() string       { return m.name }
func (m *ModelHandle) EngineType() string { return m.engineType }
func (m *ModelHandle) Path() string       { return m.modelPath }

// Destroyed reports whether the handle has been torn down.
func (m *ModelHandle) Destroyed() bool { return m.destroyed.Load() }

// Ref returns the engine model, nil once destroyed.
func (m *ModelHandle) Ref() engine.ModelRef { return m.ref }

// Children lists the names of live recognizers created from this model.
func (m *ModelHandle) Children() []string {
	names := make([]string, 0, len(m.children))
	for n := range m.children {
		names = append(names, n)
	}
	return names
}

// destroy frees the engine model exactly once. Every release is
// null-guarded so a partially-initialized handle tears down cleanly.
func (m *ModelHandle) destroy() {
	if !m.destroyed.CompareAndSwap(false, true) {
		return
	}
	if m.ref != nil {
		_ = m.ref.Close()
		m.ref = nil
	}
	m.children = nil
}
