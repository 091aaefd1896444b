// Package dispatch translates text subcommands on named model and
// recognizer objects into engine calls. Commands run synchronously to
// completion; the dispatcher holds no state of its own beyond the
// registries it forwards to.
package dispatch

import (
	"context"
	"fmt"
	"strconv"

	"github.com/talkie-app/sttd/internal/session"
	"github.com/talkie-app/sttd/pkg/Logger"
	"github.com/talkie-app/sttd/pkg/engine"
)

type Dispatcher struct {
	objects *session.Registry
	engines *engine.Registry
	logger  *Logger.Logger
}

func New(objects *session.Registry, engines *engine.Registry, logger *Logger.Logger) *Dispatcher {
	return &Dispatcher{
		objects: objects,
		engines: engines,
		logger:  logger.Named("dispatch"),
	}
}

// LoadModel loads a model through the named engine and exposes it as
// a fresh object (m1, m2, ...). This is the entry point that brings
// objects into existence; everything else goes through Do.
func (d *Dispatcher) LoadModel(ctx context.Context, engineType, path string) (string, error) {
	drv, err := d.engines.Get(engineType)
	if err != nil {
		return "", fmt.Errorf("%w: %v", ErrInvalidArgument, err)
	}
	ref, err := drv.LoadModel(ctx, path)
	if err != nil {
		return "", fmt.Errorf("loading %s model: %w", engineType, err)
	}
	return d.objects.AddModel(engineType, path, ref).Name(), nil
}

// Do executes one command. words[0] names the object, words[1] the
// subcommand; remaining words are arguments and may be binary.
func (d *Dispatcher) Do(ctx context.Context, words [][]byte) (string, error) {
	if len(words) < 2 {
		return "", wrongArity("name subcommand ?args?")
	}
	name := string(words[0])

	if m, ok := d.objects.Model(name); ok {
		return d.modelCmd(ctx, m, words)
	}
	if r, ok := d.objects.Recognizer(name); ok {
		return d.recognizerCmd(r, words)
	}
	return "", fmt.Errorf("%w %q", ErrUnknownObject, name)
}

func (d *Dispatcher) modelCmd(ctx context.Context, m *session.ModelHandle, words [][]byte) (string, error) {
	if m.Destroyed() {
		return "", ErrObjectDeleted
	}

	sub := string(words[1])
	switch sub {
	case "create_recognizer":
		if len(words) != 4 || string(words[2]) != "-rate" {
			return "", wrongArity("create_recognizer -rate sample_rate")
		}
		rate, err := strconv.Atoi(string(words[3]))
		if err != nil {
			return "", fmt.Errorf("%w: malformed sample rate %q", ErrInvalidArgument, string(words[3]))
		}
		if rate <= 0 {
			return "", fmt.Errorf("%w: sample rate must be positive, got %d", ErrInvalidArgument, rate)
		}

		factory, ok := m.Ref().(engine.RecognizerFactory)
		if !ok {
			return "", fmt.Errorf("%w: create_recognizer not implemented for engine: %s", ErrUnsupported, m.EngineType())
		}
		ref, err := factory.NewRecognizer(ctx, rate)
		if err != nil {
			return "", fmt.Errorf("creating %s recognizer: %w", m.EngineType(), err)
		}
		rec, err := d.objects.AddRecognizer(m.Name(), ref)
		if err != nil {
			_ = ref.Close()
			return "", err
		}
		d.logger.Debugf("%s -> %s at %d Hz", m.Name(), rec.Name(), rate)
		return rec.Name(), nil

	case "close":
		if err := d.objects.Unregister(m.Name()); err != nil {
			return "", err
		}
		return "ok", nil
	}

	return "", unknownSubcommand(sub)
}

func (d *Dispatcher) recognizerCmd(r *session.RecognizerHandle, words [][]byte) (string, error) {
	// Closed wins over everything, including unknown subcommands.
	if r.Closed() {
		return "", ErrObjectClosed
	}

	sub := string(words[1])
	switch sub {
	case "accept-waveform":
		if len(words) != 3 {
			return "", wrongArity("accept-waveform audio_data")
		}
		data := words[2]
		if len(data) == 0 {
			return "", fmt.Errorf("%w: invalid audio data", ErrInvalidArgument)
		}
		boundary, err := r.Ref().AcceptWaveform(data)
		if err != nil {
			return "", fmt.Errorf("accept-waveform on %s: %w", r.Name(), err)
		}
		return strconv.FormatBool(boundary), nil

	case "text":
		text, err := r.Ref().Partial()
		if err != nil {
			return "", fmt.Errorf("reading partial from %s: %w", r.Name(), err)
		}
		return text, nil

	case "final-result":
		text, err := r.Ref().Final()
		if err != nil {
			return "", fmt.Errorf("finalizing %s: %w", r.Name(), err)
		}
		return text, nil

	case "reset":
		if err := r.Ref().Reset(); err != nil {
			return "", fmt.Errorf("resetting %s: %w", r.Name(), err)
		}
		return "ok", nil

	case "close":
		if err := d.objects.Unregister(r.Name()); err != nil {
			return "", err
		}
		return "ok", nil
	}

	return "", unknownSubcommand(sub)
}
