package session

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"time"

	"github.com/voxloop/voxloop/internal/agi"
	"github.com/voxloop/voxloop/internal/speech"
)

const (
	// DefaultListenTimeout bounds one caller utterance.
	DefaultListenTimeout = 60 * time.Second
	// DefaultSilenceSecs stops a recording after trailing silence.
	DefaultSilenceSecs = 3
)

// PhoneChannel implements SpeechIO over an Asterisk AGI session: Say
// synthesizes to a sound file and streams it down the channel, Listen records
// the caller and transcribes the recording. Sound files are written under the
// Asterisk sounds directory and named after the call's unique id so
// concurrent calls never collide.
type PhoneChannel struct {
	agi         *agi.Session
	synth       speech.Synthesizer
	stt         speech.Transcriber
	soundsDir   string
	listenMs    int
	silenceSecs int
	turn        int
}

// PhoneChannelConfig configures a PhoneChannel.
type PhoneChannelConfig struct {
	SoundsDir     string
	ListenTimeout time.Duration
	SilenceSecs   int
}

// NewPhoneChannel creates the speech boundary for one AGI call.
func NewPhoneChannel(s *agi.Session, synth speech.Synthesizer, stt speech.Transcriber, cfg PhoneChannelConfig) *PhoneChannel {
	if cfg.ListenTimeout == 0 {
		cfg.ListenTimeout = DefaultListenTimeout
	}
	if cfg.SilenceSecs == 0 {
		cfg.SilenceSecs = DefaultSilenceSecs
	}
	return &PhoneChannel{
		agi:         s,
		synth:       synth,
		stt:         stt,
		soundsDir:   cfg.SoundsDir,
		listenMs:    int(cfg.ListenTimeout / time.Millisecond),
		silenceSecs: cfg.SilenceSecs,
	}
}

// Say synthesizes the text and plays it to the caller.
func (c *PhoneChannel) Say(ctx context.Context, text string) error {
	wav, err := c.synth.Synthesize(ctx, text)
	if err != nil {
		return fmt.Errorf("failed to synthesize utterance: %w", err)
	}

	c.turn++
	name := fmt.Sprintf("say_%d_%s", c.turn, c.agi.UniqueID())
	path := filepath.Join(c.soundsDir, name+".wav")
	if err := os.WriteFile(path, wav, 0o644); err != nil {
		return fmt.Errorf("failed to write sound file: %w", err)
	}
	defer c.cleanup(path)

	if err := c.agi.StreamFile(name, ""); err != nil {
		return fmt.Errorf("failed to stream %s: %w", name, err)
	}
	return nil
}

// Listen records one caller utterance and returns its transcript. Silence or
// an unintelligible recording returns an empty string with a nil error.
func (c *PhoneChannel) Listen(ctx context.Context) (string, error) {
	c.turn++
	name := fmt.Sprintf("input_%d_%s", c.turn, c.agi.UniqueID())
	path := filepath.Join(c.soundsDir, name+".wav")

	if err := c.agi.RecordFile(name, "wav", "#", c.listenMs, true, c.silenceSecs); err != nil {
		return "", fmt.Errorf("failed to record caller: %w", err)
	}
	defer c.cleanup(path)

	if fi, err := os.Stat(path); err != nil || fi.Size() <= 44 {
		// Nothing recorded beyond the WAV header.
		return "", nil
	}

	text, err := c.stt.Transcribe(ctx, path)
	if err != nil {
		return "", fmt.Errorf("failed to transcribe caller: %w", err)
	}
	return text, nil
}

func (c *PhoneChannel) cleanup(path string) {
	if err := os.Remove(path); err != nil && !os.IsNotExist(err) {
		slog.Warn("PhoneChannel.cleanup: failed to remove sound file", "path", path, "error", err)
	}
}
