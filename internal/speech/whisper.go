package speech

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"mime/multipart"
	"net/http"
	"os"
	"path/filepath"
	"strings"
	"time"
)

const openaiTranscribeURL = "https://api.openai.com/v1/audio/transcriptions"

// WhisperConfig holds Whisper STT configuration.
type WhisperConfig struct {
	APIKey   string
	Model    string
	Language string
	Timeout  time.Duration
	Endpoint string // defaults to the OpenAI transcription endpoint
}

// Whisper transcribes recorded call audio via the OpenAI transcription
// endpoint.
type Whisper struct {
	cfg    WhisperConfig
	client *http.Client
}

// NewWhisper creates a Whisper transcriber. The API key falls back to
// OPENAI_API_KEY.
func NewWhisper(cfg WhisperConfig) (*Whisper, error) {
	if cfg.APIKey == "" {
		cfg.APIKey = os.Getenv("OPENAI_API_KEY")
	}
	if cfg.APIKey == "" {
		return nil, fmt.Errorf("OPENAI_API_KEY not set")
	}
	if cfg.Model == "" {
		cfg.Model = "whisper-1"
	}
	if cfg.Timeout == 0 {
		cfg.Timeout = 60 * time.Second
	}
	if cfg.Endpoint == "" {
		cfg.Endpoint = openaiTranscribeURL
	}
	return &Whisper{cfg: cfg, client: &http.Client{Timeout: cfg.Timeout}}, nil
}

// Transcribe uploads the WAV file and returns the recognized text. An empty
// transcript is not an error; it means the caller said nothing intelligible.
func (w *Whisper) Transcribe(ctx context.Context, wavPath string) (string, error) {
	audio, err := os.ReadFile(wavPath)
	if err != nil {
		return "", fmt.Errorf("failed to read recording: %w", err)
	}

	var buf bytes.Buffer
	mw := multipart.NewWriter(&buf)
	part, err := mw.CreateFormFile("file", filepath.Base(wavPath))
	if err != nil {
		return "", err
	}
	if _, err := part.Write(audio); err != nil {
		return "", err
	}
	if err := mw.WriteField("model", w.cfg.Model); err != nil {
		return "", err
	}
	if w.cfg.Language != "" {
		if err := mw.WriteField("language", w.cfg.Language); err != nil {
			return "", err
		}
	}
	if err := mw.Close(); err != nil {
		return "", err
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, w.cfg.Endpoint, &buf)
	if err != nil {
		return "", err
	}
	req.Header.Set("Authorization", "Bearer "+w.cfg.APIKey)
	req.Header.Set("Content-Type", mw.FormDataContentType())

	resp, err := w.client.Do(req)
	if err != nil {
		slog.Error("Whisper.Transcribe: request failed", "error", err)
		return "", fmt.Errorf("transcription request failed: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		msg, _ := io.ReadAll(io.LimitReader(resp.Body, 512))
		return "", fmt.Errorf("transcription request returned %d: %s", resp.StatusCode, msg)
	}

	var out struct {
		Text string `json:"text"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&out); err != nil {
		return "", fmt.Errorf("failed to decode transcription response: %w", err)
	}
	return strings.TrimSpace(out.Text), nil
}
