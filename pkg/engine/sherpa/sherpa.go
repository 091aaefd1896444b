// Package sherpa streams audio to a sherpa-onnx streaming WebSocket
// server. The model lives in the server process; LoadModel only
// records the endpoint and each recognizer is one WebSocket session.
package sherpa

import (
	"context"
	"encoding/binary"
	"encoding/json"
	"fmt"
	"math"
	"sync"
	"time"

	"github.com/gorilla/websocket"

	"github.com/talkie-app/sttd/pkg/engine"
)

const finalWait = 5 * time.Second

type Driver struct {
	serverURL string
}

// NewDriver creates a sherpa driver for the given ws:// endpoint. An
// empty endpoint yields a driver whose models cannot stream.
func NewDriver(serverURL string) *Driver {
	return &Driver{serverURL: serverURL}
}

func (d *Driver) Name() string { return "sherpa" }

func (d *Driver) LoadModel(ctx context.Context, path string) (engine.ModelRef, error) {
	if d.serverURL == "" {
		return nil, engine.ErrEngineUnavailable
	}
	// path is opaque metadata here; the server owns model selection.
	return &model{serverURL: d.serverURL}, nil
}

type model struct {
	serverURL string
}

func (m *model) Close() error { return nil }

// sessionConfig opens a streaming session; the server decodes all
// samples on this connection at the declared rate.
type sessionConfig struct {
	SampleRate int `json:"sample_rate"`
}

// NewRecognizer implements engine.RecognizerFactory by opening one
// streaming session against the server.
func (m *model) NewRecognizer(ctx context.Context, sampleRate int) (engine.RecognizerRef, error) {
	dialer := websocket.Dialer{HandshakeTimeout: 10 * time.Second}
	conn, _, err := dialer.DialContext(ctx, m.serverURL, nil)
	if err != nil {
		return nil, fmt.Errorf("dialing sherpa server %s: %w", m.serverURL, err)
	}

	if err := conn.WriteJSON(sessionConfig{SampleRate: sampleRate}); err != nil {
		conn.Close()
		return nil, fmt.Errorf("sending session config to sherpa server: %w", err)
	}

	r := &recognizer{
		conn: conn,
		done: make(chan struct{}),
	}
	go r.readPump()
	return r, nil
}

// serverResult is the JSON the streaming server emits per decode step.
type serverResult struct {
	Text    string `json:"text"`
	Segment int    `json:"segment"`
	IsFinal bool   `json:"is_final"`
}

type recognizer struct {
	conn *websocket.Conn

	mu           sync.Mutex
	text         string
	finalText    string
	segment      int
	lastReported int
	gotFinal     bool

	closeOnce sync.Once
	done      chan struct{}
}

func (r *recognizer) readPump() {
	for {
		_, msg, err := r.conn.ReadMessage()
		if err != nil {
			close(r.done)
			return
		}
		var res serverResult
		if err := json.Unmarshal(msg, &res); err != nil {
			continue
		}
		r.mu.Lock()
		r.text = res.Text
		if res.Segment > r.segment {
			r.segment = res.Segment
		}
		if res.IsFinal {
			r.finalText = res.Text
			r.gotFinal = true
		}
		r.mu.Unlock()
	}
}

// AcceptWaveform sends 16-bit PCM as float32 samples, the server's
// wire format. The boundary boolean reports whether the server
// advanced to a new segment since the last call. The read pump
// delivers segment counts asynchronously, so the comparison is
// against the segment last handed out here, not a snapshot taken
// around the write.
func (r *recognizer) AcceptWaveform(data []byte) (bool, error) {
	if err := r.conn.WriteMessage(websocket.BinaryMessage, pcmToFloat32(data)); err != nil {
		return false, fmt.Errorf("writing samples to sherpa server: %w", err)
	}

	r.mu.Lock()
	defer r.mu.Unlock()
	boundary := r.segment > r.lastReported
	r.lastReported = r.segment
	return boundary, nil
}

func (r *recognizer) Partial() (string, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.text, nil
}

// Final tells the server the stream is over and waits briefly for its
// last decode before returning whatever text is in hand.
func (r *recognizer) Final() (string, error) {
	if err := r.conn.WriteMessage(websocket.TextMessage, []byte("Done")); err == nil {
		select {
		case <-r.done:
		case <-time.After(finalWait):
		}
	}

	r.mu.Lock()
	defer r.mu.Unlock()
	if r.gotFinal {
		return r.finalText, nil
	}
	return r.text, nil
}

// Reset drops accumulated text. The streaming server keeps its own
// segmentation state; there is nothing else to clear client-side.
func (r *recognizer) Reset() error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.text = ""
	r.finalText = ""
	r.gotFinal = false
	r.lastReported = r.segment
	return nil
}

func (r *recognizer) Close() error {
	var err error
	r.closeOnce.Do(func() {
		err = r.conn.Close()
	})
	return err
}

// pcmToFloat32 converts little-endian 16-bit PCM to the float32
// sample stream the server expects.
func pcmToFloat32(pcm []byte) []byte {
	n := len(pcm) / 2
	out := make([]byte, n*4)
	for i := 0; i < n; i++ {
		s := int16(binary.LittleEndian.Uint16(pcm[i*2:]))
		f := float32(s) / 32768.0
		binary.LittleEndian.PutUint32(out[i*4:], math.Float32bits(f))
	}
	return out
}
