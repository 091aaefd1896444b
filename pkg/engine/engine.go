// Package engine defines the boundary between sttd and speech-to-text
// backends. A backend supplies a Driver; everything past LoadModel is
// opaque engine state. The adapter performs no audio processing of its
// own and does not interpret recognition output.
//
// Drivers are not required to be safe for concurrent use; callers
// serialize access per model and per recognizer.
package engine

import (
	"context"
	"errors"
)

var (
	// ErrEngineUnavailable is returned by drivers whose native backend
	// was not compiled in or whose remote service is not configured.
	ErrEngineUnavailable = errors.New("engine backend unavailable")
)

// Driver is one STT backend ("vosk", "sherpa", "whisper", ...).
type Driver interface {
	// Name returns the engine type tag.
	Name() string

	// LoadModel acquires engine model state for the given path. The
	// path is opaque pass-through metadata; remote engines may ignore
	// it entirely.
	LoadModel(ctx context.Context, path string) (ModelRef, error)
}

// ModelRef is a loaded model. It is exclusively owned by one
// session-layer model handle and freed exactly once via Close.
type ModelRef interface {
	Close() error
}

// RecognizerFactory is the optional recognizer-creation capability of
// a ModelRef. A ModelRef that does not implement it cannot stream;
// callers report the engine as unsupported rather than failing the
// type assertion silently.
type RecognizerFactory interface {
	NewRecognizer(ctx context.Context, sampleRate int) (RecognizerRef, error)
}

// RecognizerRef is one streaming decoding session.
type RecognizerRef interface {
	// AcceptWaveform feeds PCM bytes to the engine. The boolean is the
	// engine's utterance-boundary judgement, passed through untouched.
	AcceptWaveform(data []byte) (bool, error)

	// Partial returns the current partial hypothesis, "" if the engine
	// has nothing yet. Never returns a meaningful nil.
	Partial() (string, error)

	// Final returns the finalized hypothesis, "" if none.
	Final() (string, error)

	// Reset clears engine state between utterances.
	Reset() error

	// Close frees the engine recognizer. Safe to call once.
	Close() error
}
