// Package session tracks the live model and recognizer objects the
// command surface exposes by name. Unregistering a name is the only
// way an object is destroyed: teardown runs exactly once, from
// explicit close or from registry shutdown.
package session

import (
	"fmt"
	"sync"

	"github.com/talkie-app/sttd/pkg/Logger"
	"github.com/talkie-app/sttd/pkg/engine"
)

// Registry is the name table for live objects. It serializes all
// lifecycle operations; per-object engine calls are left to callers.
type Registry struct {
	mu       sync.Mutex
	models   map[string]*ModelHandle
	recs     map[string]*RecognizerHandle
	modelSeq int
	recSeq   int
	logger   *Logger.Logger
}

func NewRegistry(logger *Logger.Logger) *Registry {
	return &Registry{
		models: make(map[string]*ModelHandle),
		recs:   make(map[string]*RecognizerHandle),
		logger: logger,
	}
}

// AddModel registers a loaded engine model and returns its handle
// under a fresh name (m1, m2, ...).
func (r *Registry) AddModel(engineType, path string, ref engine.ModelRef) *ModelHandle {
	r.mu.Lock()
	defer r.mu.Unlock()

	r.modelSeq++
	h := &ModelHandle{
		name:       fmt.Sprintf("m%d", r.modelSeq),
		engineType: engineType,
		modelPath:  path,
		ref:        ref,
		children:   make(map[string]struct{}),
	}
	r.models[h.name] = h
	r.logger.Infof("registered model %s (engine=%s path=%s)", h.name, engineType, path)
	return h
}

// AddRecognizer registers an engine recognizer under a fresh name
// (r1, r2, ...) as a child of the named model.
func (r *Registry) AddRecognizer(modelName string, ref engine.RecognizerRef) (*RecognizerHandle, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	parent, ok := r.models[modelName]
	if !ok || parent.Destroyed() {
		return nil, fmt.Errorf("model %q is gone", modelName)
	}

	r.recSeq++
	h := newRecognizerHandle(fmt.Sprintf("r%d", r.recSeq), modelName, ref)
	r.recs[h.name] = h
	parent.children[h.name] = struct{}{}
	r.logger.Infof("registered recognizer %s (model=%s)", h.name, modelName)
	return h, nil
}

// Model looks up a live model handle by name.
func (r *Registry) Model(name string) (*ModelHandle, bool) {
	r.mu.Lock()
	defer r.mu.Unlock()
	h, ok := r.models[name]
	return h, ok
}

// Recognizer looks up a live recognizer handle by name.
func (r *Registry) Recognizer(name string) (*RecognizerHandle, bool) {
	r.mu.Lock()
	defer r.mu.Unlock()
	h, ok := r.recs[name]
	return h, ok
}

// Unregister removes a name and destroys its object. Removing a model
// cascade-closes its live recognizers first, so no recognizer can
// observe a freed engine model.
func (r *Registry) Unregister(name string) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.unregisterLocked(name)
}

func (r *Registry) unregisterLocked(name string) error {
	if h, ok := r.recs[name]; ok {
		delete(r.recs, name)
		if parent, ok := r.models[h.modelName]; ok && parent.children != nil {
			delete(parent.children, name)
		}
		h.destroy()
		r.logger.Infof("closed recognizer %s", name)
		return nil
	}

	if h, ok := r.models[name]; ok {
		for child := range h.children {
			if rec, ok := r.recs[child]; ok {
				delete(r.recs, child)
				rec.destroy()
				r.logger.Infof("cascade-closed recognizer %s with model %s", child, name)
			}
		}
		delete(r.models, name)
		h.destroy()
		r.logger.Infof("closed model %s", name)
		return nil
	}

	return fmt.Errorf("no object named %q", name)
}

// ModelNames lists live models, for the listing API.
func (r *Registry) ModelNames() []string {
	r.mu.Lock()
	defer r.mu.Unlock()
	names := make([]string, 0, len(r.models))
	for n := range r.models {
		names = append(names, n)
	}
	return names
}

// Shutdown tears down every live object, recognizers before models.
func (r *Registry) Shutdown() {
	r.mu.Lock()
	defer r.mu.Unlock()
	for name := range r.recs {
		_ = r.unregisterLocked(name)
	}
	for name := range r.models {
		_ = r.unregisterLocked(name)
	}
}
