// Package whisper adapts a whisper ASR web service (multipart WAV
// upload) as an sttd engine. Whisper is a batch decoder: waveform is
// buffered locally and transcribed when the caller asks for the final
// result, so there are no partial hypotheses.
package whisper

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"mime/multipart"
	"net/http"
	"time"

	"github.com/talkie-app/sttd/pkg/audio"
	"github.com/talkie-app/sttd/pkg/engine"
)

const bufferSize = 4 * 1024 * 1024 // ~2 minutes of 16kHz mono PCM

type Driver struct {
	baseURL    string
	language   string
	httpClient *http.Client
}

// NewDriver creates a whisper driver for the given service base URL.
// With an empty URL the driver still loads models, but they cannot
// create recognizers.
func NewDriver(baseURL, language string) *Driver {
	if language == "" {
		language = "en"
	}
	return &Driver{
		baseURL:  baseURL,
		language: language,
		httpClient: &http.Client{
			Timeout: 30 * time.Second,
		},
	}
}

func (d *Driver) Name() string { return "whisper" }

func (d *Driver) LoadModel(ctx context.Context, path string) (engine.ModelRef, error) {
	if d.baseURL == "" {
		// Loadable but stream-less: the recognizer capability is absent.
		return &offlineModel{}, nil
	}
	return &model{driver: d}, nil
}

// offlineModel deliberately does not implement engine.RecognizerFactory.
type offlineModel struct{}

func (m *offlineModel) Close() error { return nil }

type model struct {
	driver *Driver
}

func (m *model) Close() error { return nil }

// NewRecognizer implements engine.RecognizerFactory.
func (m *model) NewRecognizer(ctx context.Context, sampleRate int) (engine.RecognizerRef, error) {
	return &recognizer{
		driver:     m.driver,
		sampleRate: int32(sampleRate),
		buffer:     audio.NewRing(bufferSize),
	}, nil
}

type recognizer struct {
	driver     *Driver
	sampleRate int32
	buffer     audio.FrameRing
}

// AcceptWaveform buffers PCM until finalization. A batch engine never
// reports an utterance boundary.
func (r *recognizer) AcceptWaveform(data []byte) (bool, error) {
	f := audio.Frame{
		Data:       data,
		Timestamp:  time.Now(),
		SampleRate: r.sampleRate,
		Channels:   1,
	}
	if err := r.buffer.Enqueue(f); err != nil {
		return false, fmt.Errorf("buffering waveform: %w", err)
	}
	return false, nil
}

func (r *recognizer) Partial() (string, error) {
	return "", nil
}

// Final flushes the buffered audio through the ASR service.
func (r *recognizer) Final() (string, error) {
	pcm := audio.PCMBytes(r.buffer.Drain())
	if len(pcm) == 0 {
		return "", nil
	}
	return r.driver.transcribe(audio.EncodeWAV(pcm, r.sampleRate))
}

func (r *recognizer) Reset() error {
	r.buffer.Reset()
	return nil
}

func (r *recognizer) Close() error {
	r.buffer.Reset()
	return nil
}

// asrResponse is the service's JSON output shape.
type asrResponse struct {
	Text     string `json:"text"`
	Language string `json:"language"`
}

func (d *Driver) transcribe(wavData []byte) (string, error) {
	var body bytes.Buffer
	writer := multipart.NewWriter(&body)

	part, err := writer.CreateFormFile("audio_file", "audio.wav")
	if err != nil {
		return "", fmt.Errorf("failed to create form file: %w", err)
	}
	if _, err := part.Write(wavData); err != nil {
		return "", fmt.Errorf("failed to write audio data: %w", err)
	}
	if err := writer.Close(); err != nil {
		return "", fmt.Errorf("failed to close multipart writer: %w", err)
	}

	requestURL := fmt.Sprintf("%s/asr?encode=true&task=transcribe&language=%s&output=json",
		d.baseURL, d.language)
	req, err := http.NewRequest("POST", requestURL, &body)
	if err != nil {
		return "", fmt.Errorf("failed to create request: %w", err)
	}
	req.Header.Set("Content-Type", writer.FormDataContentType())

	resp, err := d.httpClient.Do(req)
	if err != nil {
		return "", fmt.Errorf("failed to send request: %w", err)
	}
	defer resp.Body.Close()

	responseBody, err := io.ReadAll(resp.Body)
	if err != nil {
		return "", fmt.Errorf("failed to read response body: %w", err)
	}
	if resp.StatusCode != http.StatusOK {
		return "", fmt.Errorf("whisper service returned status %d: %s", resp.StatusCode, string(responseBody))
	}

	var parsed asrResponse
	if err := json.Unmarshal(responseBody, &parsed); err != nil {
		// Some deployments return plain text for output=json mismatches.
		return string(responseBody), nil
	}
	return parsed.Text, nil
}
