package speech

import (
	"context"
	"fmt"

	texttospeech "cloud.google.com/go/texttospeech/apiv1"
	"cloud.google.com/go/texttospeech/apiv1/texttospeechpb"
)

// GoogleTTSConfig holds Google Cloud TTS configuration. Credentials come from
// GOOGLE_APPLICATION_CREDENTIALS as usual for Google Cloud clients.
type GoogleTTSConfig struct {
	LanguageCode string
	VoiceName    string
	SpeakingRate float64
}

// GoogleTTS synthesizes speech via Google Cloud Text-to-Speech, requesting
// LINEAR16 at the telephony rate so no local conversion is needed.
type GoogleTTS struct {
	cfg    GoogleTTSConfig
	client *texttospeech.Client
}

// NewGoogleTTS creates a Google Cloud TTS synthesizer.
func NewGoogleTTS(ctx context.Context, cfg GoogleTTSConfig) (*GoogleTTS, error) {
	if cfg.LanguageCode == "" {
		cfg.LanguageCode = "en-US"
	}
	if cfg.SpeakingRate == 0 {
		cfg.SpeakingRate = 1.0
	}
	client, err := texttospeech.NewClient(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to create texttospeech client: %w", err)
	}
	return &GoogleTTS{cfg: cfg, client: client}, nil
}

// Synthesize generates WAV audio for the utterance text.
func (t *GoogleTTS) Synthesize(ctx context.Context, text string) ([]byte, error) {
	voice := &texttospeechpb.VoiceSelectionParams{
		LanguageCode: t.cfg.LanguageCode,
		SsmlGender:   texttospeechpb.SsmlVoiceGender_FEMALE,
	}
	if t.cfg.VoiceName != "" {
		voice.Name = t.cfg.VoiceName
	}
	resp, err := t.client.SynthesizeSpeech(ctx, &texttospeechpb.SynthesizeSpeechRequest{
		Input: &texttospeechpb.SynthesisInput{
			InputSource: &texttospeechpb.SynthesisInput_Text{Text: text},
		},
		Voice: voice,
		AudioConfig: &texttospeechpb.AudioConfig{
			AudioEncoding:   texttospeechpb.AudioEncoding_LINEAR16,
			SampleRateHertz: AsteriskSampleRate,
			SpeakingRate:    t.cfg.SpeakingRate,
		},
	})
	if err != nil {
		return nil, fmt.Errorf("texttospeech synthesize failed: %w", err)
	}
	// LINEAR16 responses already carry a WAV header.
	return resp.GetAudioContent(), nil
}

// Close releases the underlying gRPC connection.
func (t *GoogleTTS) Close() error {
	return t.client.Close()
}
