package dispatch

import (
	"context"
	"errors"
	"strings"
	"testing"

	"github.com/talkie-app/sttd/internal/session"
	"github.com/talkie-app/sttd/pkg/Logger"
	"github.com/talkie-app/sttd/pkg/engine"
)

// fakeDriver is an in-memory engine for dispatcher tests.
type fakeDriver struct {
	name    string
	noRecog bool // models lack the recognizer capability
}

func (d *fakeDriver) Name() string { return d.name }

func (d *fakeDriver) LoadModel(ctx context.Context, path string) (engine.ModelRef, error) {
	if d.noRecog {
		return &fakeBareModel{}, nil
	}
	return &fakeModel{}, nil
}

// fakeBareModel has no NewRecognizer.
type fakeBareModel struct {
	closeCalls int
}

func (m *fakeBareModel) Close() error {
	m.closeCalls++
	return nil
}

type fakeModel struct {
	closeCalls  int
	createCalls int
	lastRate    int
	lastRec     *fakeRecognizer
}

func (m *fakeModel) Close() error {
	m.closeCalls++
	return nil
}

func (m *fakeModel) NewRecognizer(ctx context.Context, sampleRate int) (engine.RecognizerRef, error) {
	m.createCalls++
	m.lastRate = sampleRate
	m.lastRec = &fakeRecognizer{}
	return m.lastRec, nil
}

type fakeRecognizer struct {
	acceptCalls  int
	lastData     []byte
	partial      string
	final        string
	resetCalls   int
	closeCalls   int
	boundaryNext bool
}

func (r *fakeRecognizer) AcceptWaveform(data []byte) (bool, error) {
	r.acceptCalls++
	r.lastData = data
	return r.boundaryNext, nil
}

func (r *fakeRecognizer) Partial() (string, error) { return r.partial, nil }
func (r *fakeRecognizer) Final() (string, error)   { return r.final, nil }

func (r *fakeRecognizer) Reset() error {
	r.resetCalls++
	return nil
}

func (r *fakeRecognizer) Close() error {
	r.closeCalls++
	return nil
}

func words(ws ...string) [][]byte {
	out := make([][]byte, len(ws))
	for i, w := range ws {
		out[i] = []byte(w)
	}
	return out
}

func newTestDispatcher(t *testing.T, drivers ...engine.Driver) *Dispatcher {
	t.Helper()
	logger := Logger.New(true)
	engines := engine.NewRegistry()
	for _, d := range drivers {
		engines.Register(d)
	}
	return New(session.NewRegistry(logger), engines, logger)
}

func mustLoad(t *testing.T, d *Dispatcher, engineType string) string {
	t.Helper()
	name, err := d.LoadModel(context.Background(), engineType, "/models/"+engineType)
	if err != nil {
		t.Fatalf("LoadModel failed: %v", err)
	}
	return name
}

func TestLoadModelUnknownEngine(t *testing.T) {
	d := newTestDispatcher(t, &fakeDriver{name: "vosk"})

	if _, err := d.LoadModel(context.Background(), "kaldi", "/m"); !errors.Is(err, ErrInvalidArgument) {
		t.Errorf("Expected ErrInvalidArgument for unknown engine, got %v", err)
	}
}

func TestCreateRecognizerInvokesEngineOnce(t *testing.T) {
	drv := &fakeDriver{name: "vosk"}
	d := newTestDispatcher(t, drv)
	m := mustLoad(t, d, "vosk")

	recName, err := d.Do(context.Background(), words(m, "create_recognizer", "-rate", "16000"))
	if err != nil {
		t.Fatalf("create_recognizer failed: %v", err)
	}
	if recName != "r1" {
		t.Errorf("Expected recognizer name r1, got %q", recName)
	}

	h, ok := d.objects.Model(m)
	if !ok {
		t.Fatal("model disappeared")
	}
	fm := h.Ref().(*fakeModel)
	if fm.createCalls != 1 {
		t.Errorf("Expected exactly one engine create call, got %d", fm.createCalls)
	}
	if fm.lastRate != 16000 {
		t.Errorf("Expected rate 16000 passed to engine, got %d", fm.lastRate)
	}
}

func TestCreateRecognizerUnsupportedEngine(t *testing.T) {
	d := newTestDispatcher(t, &fakeDriver{name: "whisper", noRecog: true})
	m := mustLoad(t, d, "whisper")

	_, err := d.Do(context.Background(), words(m, "create_recognizer", "-rate", "16000"))
	if !errors.Is(err, ErrUnsupported) {
		t.Fatalf("Expected ErrUnsupported, got %v", err)
	}
	if !strings.Contains(err.Error(), "whisper") {
		t.Errorf("Error should name the engine type, got %q", err.Error())
	}
}

func TestCreateRecognizerArgumentErrors(t *testing.T) {
	d := newTestDispatcher(t, &fakeDriver{name: "vosk"})
	m := mustLoad(t, d, "vosk")

	cases := []struct {
		name string
		cmd  []string
		want error
	}{
		{"missing args", []string{m, "create_recognizer"}, ErrWrongArity},
		{"wrong flag", []string{m, "create_recognizer", "-hz", "16000"}, ErrWrongArity},
		{"extra args", []string{m, "create_recognizer", "-rate", "16000", "x"}, ErrWrongArity},
		{"non-integer rate", []string{m, "create_recognizer", "-rate", "fast"}, ErrInvalidArgument},
		{"negative rate", []string{m, "create_recognizer", "-rate", "-8000"}, ErrInvalidArgument},
		{"zero rate", []string{m, "create_recognizer", "-rate", "0"}, ErrInvalidArgument},
	}
	for _, tc := range cases {
		if _, err := d.Do(context.Background(), words(tc.cmd...)); !errors.Is(err, tc.want) {
			t.Errorf("%s: expected %v, got %v", tc.name, tc.want, err)
		}
	}

	h, _ := d.objects.Model(m)
	if calls := h.Ref().(*fakeModel).createCalls; calls != 0 {
		t.Errorf("Engine should not be invoked on argument errors, got %d calls", calls)
	}
}

func TestAcceptWaveformEmptyPayload(t *testing.T) {
	d := newTestDispatcher(t, &fakeDriver{name: "vosk"})
	m := mustLoad(t, d, "vosk")
	rec, _ := d.Do(context.Background(), words(m, "create_recognizer", "-rate", "16000"))

	_, err := d.Do(context.Background(), [][]byte{[]byte(rec), []byte("accept-waveform"), {}})
	if !errors.Is(err, ErrInvalidArgument) {
		t.Fatalf("Expected ErrInvalidArgument for empty payload, got %v", err)
	}

	h, _ := d.objects.Model(m)
	if calls := h.Ref().(*fakeModel).lastRec.acceptCalls; calls != 0 {
		t.Errorf("Engine should not see an empty payload, got %d calls", calls)
	}
}

func TestClosedRecognizerRejectsEverything(t *testing.T) {
	d := newTestDispatcher(t, &fakeDriver{name: "vosk"})
	m := mustLoad(t, d, "vosk")
	rec, _ := d.Do(context.Background(), words(m, "create_recognizer", "-rate", "16000"))

	h, _ := d.objects.Recognizer(rec)
	fr := h.Ref().(*fakeRecognizer)

	if res, err := d.Do(context.Background(), words(rec, "close")); err != nil || res != "ok" {
		t.Fatalf("close failed: %v (%q)", err, res)
	}
	if fr.closeCalls != 1 {
		t.Errorf("Expected one engine free, got %d", fr.closeCalls)
	}

	// The name is unregistered, so every follow-up fails without an
	// engine call.
	for _, sub := range []string{"accept-waveform", "text", "final-result", "reset", "close", "bogus"} {
		cmd := words(rec, sub)
		if sub == "accept-waveform" {
			cmd = append(cmd, []byte{1, 2})
		}
		if _, err := d.Do(context.Background(), cmd); !errors.Is(err, ErrUnknownObject) {
			t.Errorf("%s after close: expected ErrUnknownObject, got %v", sub, err)
		}
	}
	if fr.acceptCalls != 0 || fr.resetCalls != 0 || fr.closeCalls != 1 {
		t.Errorf("Engine touched after close: accepts=%d resets=%d closes=%d",
			fr.acceptCalls, fr.resetCalls, fr.closeCalls)
	}
}

func TestClosedHandleGuard(t *testing.T) {
	// A still-held handle that was torn down reports closed on every
	// subcommand, unknown ones included.
	d := newTestDispatcher(t, &fakeDriver{name: "vosk"})
	m := mustLoad(t, d, "vosk")
	rec, _ := d.Do(context.Background(), words(m, "create_recognizer", "-rate", "16000"))

	h, _ := d.objects.Recognizer(rec)
	if _, err := d.Do(context.Background(), words(rec, "close")); err != nil {
		t.Fatalf("close failed: %v", err)
	}
	if !h.Closed() {
		t.Fatal("Handle should be closed after unregister")
	}

	if _, err := d.recognizerCmd(h, words(rec, "bogus")); !errors.Is(err, ErrObjectClosed) {
		t.Errorf("Expected ErrObjectClosed on torn-down handle, got %v", err)
	}
	if h.Ref() != nil {
		t.Error("Engine ref should be nil after teardown")
	}
}

func TestPartialAndFinalNeverAbsent(t *testing.T) {
	d := newTestDispatcher(t, &fakeDriver{name: "vosk"})
	m := mustLoad(t, d, "vosk")
	rec, _ := d.Do(context.Background(), words(m, "create_recognizer", "-rate", "16000"))

	if text, err := d.Do(context.Background(), words(rec, "text")); err != nil || text != "" {
		t.Errorf("Expected empty partial, got %q (%v)", text, err)
	}
	if text, err := d.Do(context.Background(), words(rec, "final-result")); err != nil || text != "" {
		t.Errorf("Expected empty final, got %q (%v)", text, err)
	}
}

func TestDictationScenario(t *testing.T) {
	d := newTestDispatcher(t, &fakeDriver{name: "vosk"})

	m := mustLoad(t, d, "vosk")
	if m != "m1" {
		t.Fatalf("Expected first model named m1, got %q", m)
	}

	rec, err := d.Do(context.Background(), words("m1", "create_recognizer", "-rate", "16000"))
	if err != nil || rec != "r1" {
		t.Fatalf("Expected r1, got %q (%v)", rec, err)
	}

	silence := make([]byte, 16000)
	res, err := d.Do(context.Background(), [][]byte{[]byte("r1"), []byte("accept-waveform"), silence})
	if err != nil {
		t.Fatalf("accept-waveform failed: %v", err)
	}
	if res != "false" {
		t.Errorf("Expected boundary false, got %q", res)
	}

	if text, _ := d.Do(context.Background(), words("r1", "text")); text != "" {
		t.Errorf("Expected empty partial, got %q", text)
	}

	if res, _ := d.Do(context.Background(), words("r1", "close")); res != "ok" {
		t.Errorf("Expected ok from close, got %q", res)
	}

	if _, err := d.Do(context.Background(), words("r1", "text")); err == nil {
		t.Error("text after close should fail")
	}
}

func TestBoundaryTrue(t *testing.T) {
	d := newTestDispatcher(t, &fakeDriver{name: "vosk"})
	m := mustLoad(t, d, "vosk")
	rec, _ := d.Do(context.Background(), words(m, "create_recognizer", "-rate", "16000"))

	h, _ := d.objects.Recognizer(rec)
	h.Ref().(*fakeRecognizer).boundaryNext = true

	res, err := d.Do(context.Background(), [][]byte{[]byte(rec), []byte("accept-waveform"), {1, 2, 3}})
	if err != nil {
		t.Fatalf("accept-waveform failed: %v", err)
	}
	if res != "true" {
		t.Errorf("Expected boundary true, got %q", res)
	}
}

func TestUnknownSubcommandEchoesInput(t *testing.T) {
	d := newTestDispatcher(t, &fakeDriver{name: "vosk"})
	m := mustLoad(t, d, "vosk")

	_, err := d.Do(context.Background(), words(m, "bogus-subcommand"))
	if !errors.Is(err, ErrUnknownSubcommand) {
		t.Fatalf("Expected ErrUnknownSubcommand, got %v", err)
	}
	if !strings.Contains(err.Error(), "bogus-subcommand") {
		t.Errorf("Error should echo the offending word, got %q", err.Error())
	}

	// Subcommands are case-sensitive and unabbreviated.
	if _, err := d.Do(context.Background(), words(m, "CLOSE")); !errors.Is(err, ErrUnknownSubcommand) {
		t.Errorf("Expected case-sensitive rejection, got %v", err)
	}
}

func TestResetForwards(t *testing.T) {
	d := newTestDispatcher(t, &fakeDriver{name: "vosk"})
	m := mustLoad(t, d, "vosk")
	rec, _ := d.Do(context.Background(), words(m, "create_recognizer", "-rate", "16000"))

	if res, err := d.Do(context.Background(), words(rec, "reset")); err != nil || res != "ok" {
		t.Fatalf("reset failed: %v (%q)", err, res)
	}

	h, _ := d.objects.Recognizer(rec)
	if calls := h.Ref().(*fakeRecognizer).resetCalls; calls != 1 {
		t.Errorf("Expected one engine reset, got %d", calls)
	}
}

func TestModelCloseCascades(t *testing.T) {
	d := newTestDispatcher(t, &fakeDriver{name: "vosk"})
	m := mustLoad(t, d, "vosk")
	rec, _ := d.Do(context.Background(), words(m, "create_recognizer", "-rate", "16000"))

	mh, _ := d.objects.Model(m)
	fm := mh.Ref().(*fakeModel)
	rh, _ := d.objects.Recognizer(rec)
	fr := rh.Ref().(*fakeRecognizer)

	if res, err := d.Do(context.Background(), words(m, "close")); err != nil || res != "ok" {
		t.Fatalf("model close failed: %v (%q)", err, res)
	}

	if fr.closeCalls != 1 {
		t.Errorf("Recognizer should be cascade-closed, got %d frees", fr.closeCalls)
	}
	if fm.closeCalls != 1 {
		t.Errorf("Model should be freed once, got %d frees", fm.closeCalls)
	}
	if !rh.Closed() {
		t.Error("Cascaded recognizer handle should report closed")
	}

	if _, err := d.Do(context.Background(), words(m, "create_recognizer", "-rate", "16000")); !errors.Is(err, ErrUnknownObject) {
		t.Errorf("Expected ErrUnknownObject after model close, got %v", err)
	}
	if _, err := d.Do(context.Background(), words(rec, "text")); !errors.Is(err, ErrUnknownObject) {
		t.Errorf("Expected ErrUnknownObject for cascaded recognizer, got %v", err)
	}
}

func TestUnknownObject(t *testing.T) {
	d := newTestDispatcher(t, &fakeDriver{name: "vosk"})

	if _, err := d.Do(context.Background(), words("m99", "close")); !errors.Is(err, ErrUnknownObject) {
		t.Errorf("Expected ErrUnknownObject, got %v", err)
	}
	if _, err := d.Do(context.Background(), words("m1")); !errors.Is(err, ErrWrongArity) {
		t.Errorf("Expected ErrWrongArity for bare name, got %v", err)
	}
}
