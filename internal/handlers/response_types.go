package handlers

import "github.com/talkie-app/sttd/internal/repository/transcript"

// ErrorResponse represents an error response
type ErrorResponse struct {
	Error string `json:"error"`
}

// LoadModelRequest is the body for loading a model.
type LoadModelRequest struct {
	Engine string `json:"engine" binding:"required"`
	Path   string `json:"path"`
}

// LoadModelResponse returns the exposed object name.
type LoadModelResponse struct {
	Name   string `json:"name"`
	Engine string `json:"engine"`
}

// ModelInfo describes one live model and its recognizers.
type ModelInfo struct {
	Name        string   `json:"name"`
	Engine      string   `json:"engine"`
	Path        string   `json:"path,omitempty"`
	Recognizers []string `json:"recognizers"`
}

// ListModelsResponse lists live models.
type ListModelsResponse struct {
	Models []ModelInfo `json:"models"`
}

// CommandRequest carries one dispatcher command. Audio payloads ride
// base64-encoded and are appended as the final command word.
type CommandRequest struct {
	Command string `json:"command" binding:"required"`
	Audio   string `json:"audio,omitempty"`
}

// CommandResponse carries the dispatcher result string.
type CommandResponse struct {
	Result string `json:"result"`
}

// TranscriptsResponse lists a session's finalized transcripts.
type TranscriptsResponse struct {
	Transcripts []transcript.Transcript `json:"transcripts"`
}
