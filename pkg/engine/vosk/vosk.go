//go:build vosk

// Package vosk wraps the native vosk-api binding as an sttd engine
// driver. Build with -tags vosk and libvosk available at link time.
package vosk

import (
	"context"
	"encoding/json"
	"fmt"

	vosk "github.com/alphacep/vosk-api/go"

	"github.com/talkie-app/sttd/pkg/engine"
)

// Available reports whether the native vosk backend is compiled in.
func Available() bool { return true }

type Driver struct{}

func NewDriver() *Driver {
	return &Driver{}
}

func (d *Driver) Name() string { return "vosk" }

// LoadModel loads an acoustic model directory from disk. Loading is
// blocking and can take seconds for large models; ctx is checked only
// before the call since the binding has no cancellation path.
func (d *Driver) LoadModel(ctx context.Context, path string) (engine.ModelRef, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	m, err := vosk.NewModel(path)
	if err != nil {
		return nil, fmt.Errorf("loading vosk model at %s: %w", path, err)
	}
	return &model{m: m}, nil
}

type model struct {
	m *vosk.VoskModel
}

func (m *model) Close() error {
	if m.m != nil {
		m.m.Free()
		m.m = nil
	}
	return nil
}

// NewRecognizer implements engine.RecognizerFactory.
func (m *model) NewRecognizer(ctx context.Context, sampleRate int) (engine.RecognizerRef, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	if m.m == nil {
		return nil, fmt.Errorf("vosk model already freed")
	}
	r, err := vosk.NewRecognizer(m.m, float64(sampleRate))
	if err != nil {
		return nil, fmt.Errorf("creating vosk recognizer at %d Hz: %w", sampleRate, err)
	}
	return &recognizer{r: r}, nil
}

type recognizer struct {
	r *vosk.VoskRecognizer
}

// voskResult is the JSON shape vosk returns for both partial and
// final results.
type voskResult struct {
	Partial string `json:"partial"`
	Text    string `json:"text"`
}

func (r *recognizer) AcceptWaveform(data []byte) (bool, error) {
	return r.r.AcceptWaveform(data) != 0, nil
}

func (r *recognizer) Partial() (string, error) {
	var res voskResult
	if err := json.Unmarshal([]byte(r.r.PartialResult()), &res); err != nil {
		return "", nil
	}
	return res.Partial, nil
}

func (r *recognizer) Final() (string, error) {
	var res voskResult
	if err := json.Unmarshal([]byte(r.r.FinalResult()), &res); err != nil {
		return "", nil
	}
	return res.Text, nil
}

func (r *recognizer) Reset() error {
	r.r.Reset()
	return nil
}

func (r *recognizer) Close() error {
	if r.r != nil {
		r.r.Free()
		r.r = nil
	}
	return nil
}
