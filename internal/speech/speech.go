// Package speech provides the text-to-speech and speech-to-text
// collaborators that bridge utterance text and Asterisk sound files.
package speech

import "context"

// Synthesizer turns utterance text into WAV audio playable by Asterisk
// (8 kHz, 16-bit, mono).
type Synthesizer interface {
	Synthesize(ctx context.Context, text string) ([]byte, error)
}

// Transcriber turns a recorded WAV file into text. An empty string with a
// nil error means no speech was recognized.
type Transcriber interface {
	Transcribe(ctx context.Context, wavPath string) (string, error)
}

// AsteriskSampleRate is the sample rate Asterisk expects for wav playback.
const AsteriskSampleRate = 8000
