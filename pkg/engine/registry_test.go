package engine

import (
	"context"
	"testing"
)

type stubDriver struct {
	name string
}

func (d *stubDriver) Name() string { return d.name }

func (d *stubDriver) LoadModel(ctx context.Context, path string) (ModelRef, error) {
	return nil, ErrEngineUnavailable
}

func TestRegistryLookup(t *testing.T) {
	r := NewRegistry()
	r.Register(&stubDriver{name: "vosk"})
	r.Register(&stubDriver{name: "sherpa"})

	d, err := r.Get("vosk")
	if err != nil {
		t.Fatalf("Get failed: %v", err)
	}
	if d.Name() != "vosk" {
		t.Errorf("Expected vosk, got %s", d.Name())
	}

	if _, err := r.Get("kaldi"); err == nil {
		t.Error("Expected error for unregistered engine")
	}

	if n := len(r.Names()); n != 2 {
		t.Errorf("Expected 2 names, got %d", n)
	}
}

func TestRegisterReplaces(t *testing.T) {
	r := NewRegistry()
	first := &stubDriver{name: "vosk"}
	second := &stubDriver{name: "vosk"}
	r.Register(first)
	r.Register(second)

	d, _ := r.Get("vosk")
	if d != Driver(second) {
		t.Error("Expected the later registration to win")
	}
}
