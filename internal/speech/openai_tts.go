package speech

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"os"
	"time"

	"github.com/hajimehoshi/go-mp3"
)

const openaiSpeechURL = "https://api.openai.com/v1/audio/speech"

// OpenAITTSConfig holds OpenAI TTS configuration.
type OpenAITTSConfig struct {
	APIKey   string
	Model    string // tts-1 or tts-1-hd
	Voice    string // alloy, echo, fable, onyx, nova, shimmer
	Speed    float64
	Timeout  time.Duration
	Endpoint string // defaults to the OpenAI speech endpoint
}

// DefaultOpenAITTSConfig returns sensible defaults for telephony use.
func DefaultOpenAITTSConfig() OpenAITTSConfig {
	return OpenAITTSConfig{
		Model:   "tts-1",
		Voice:   "nova",
		Speed:   1.0,
		Timeout: 30 * time.Second,
	}
}

// OpenAITTS synthesizes speech via the OpenAI TTS endpoint and converts the
// returned MP3 to 8 kHz mono WAV for Asterisk playback.
type OpenAITTS struct {
	cfg    OpenAITTSConfig
	client *http.Client
}

// NewOpenAITTS creates an OpenAI TTS synthesizer. The API key falls back to
// OPENAI_API_KEY.
func NewOpenAITTS(cfg OpenAITTSConfig) (*OpenAITTS, error) {
	if cfg.APIKey == "" {
		cfg.APIKey = os.Getenv("OPENAI_API_KEY")
	}
	if cfg.APIKey == "" {
		return nil, fmt.Errorf("OPENAI_API_KEY not set")
	}
	if cfg.Model == "" {
		cfg.Model = "tts-1"
	}
	if cfg.Voice == "" {
		cfg.Voice = "nova"
	}
	if cfg.Speed == 0 {
		cfg.Speed = 1.0
	}
	if cfg.Timeout == 0 {
		cfg.Timeout = 30 * time.Second
	}
	if cfg.Endpoint == "" {
		cfg.Endpoint = openaiSpeechURL
	}
	return &OpenAITTS{cfg: cfg, client: &http.Client{Timeout: cfg.Timeout}}, nil
}

// Synthesize generates WAV audio for the utterance text.
func (t *OpenAITTS) Synthesize(ctx context.Context, text string) ([]byte, error) {
	body, err := json.Marshal(map[string]any{
		"model":           t.cfg.Model,
		"input":           text,
		"voice":           t.cfg.Voice,
		"speed":           t.cfg.Speed,
		"response_format": "mp3",
	})
	if err != nil {
		return nil, err
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, t.cfg.Endpoint, bytes.NewReader(body))
	if err != nil {
		return nil, err
	}
	req.Header.Set("Authorization", "Bearer "+t.cfg.APIKey)
	req.Header.Set("Content-Type", "application/json")

	resp, err := t.client.Do(req)
	if err != nil {
		slog.Error("OpenAITTS.Synthesize: request failed", "error", err)
		return nil, fmt.Errorf("tts request failed: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		msg, _ := io.ReadAll(io.LimitReader(resp.Body, 512))
		return nil, fmt.Errorf("tts request returned %d: %s", resp.StatusCode, msg)
	}

	mp3Data, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("failed to read tts response: %w", err)
	}
	return mp3ToTelephonyWAV(mp3Data)
}

// mp3ToTelephonyWAV decodes MP3 into 16-bit PCM, downmixes to mono, and
// resamples to the Asterisk rate.
func mp3ToTelephonyWAV(data []byte) ([]byte, error) {
	dec, err := mp3.NewDecoder(bytes.NewReader(data))
	if err != nil {
		return nil, fmt.Errorf("failed to decode mp3: %w", err)
	}
	// go-mp3 always yields interleaved 16-bit stereo.
	stereo, err := io.ReadAll(dec)
	if err != nil {
		return nil, fmt.Errorf("failed to read mp3 samples: %w", err)
	}
	mono, err := downmixStereo(stereo)
	if err != nil {
		return nil, err
	}
	mono = resampleMono(mono, dec.SampleRate(), AsteriskSampleRate)
	return EncodeWAV(mono, AsteriskSampleRate), nil
}
