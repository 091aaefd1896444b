//go:build !vosk

package vosk

import (
	"context"

	"github.com/talkie-app/sttd/pkg/engine"
)

// Available reports whether the native vosk backend is compiled in.
func Available() bool { return false }

// Driver is a stub satisfying engine.Driver when the native backend
// is absent.
type Driver struct{}

func NewDriver() *Driver {
	return &Driver{}
}

func (d *Driver) Name() string { return "vosk" }

func (d *Driver) LoadModel(ctx context.Context, path string) (engine.ModelRef, error) {
	return nil, engine.ErrEngineUnavailable
}
