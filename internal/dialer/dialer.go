// Package dialer originates outbound calls through Twilio so a campaign can
// ring a candidate and drop them into the Asterisk dialplan that runs the
// voice bot.
package dialer

import (
	"context"
	"fmt"
	"log/slog"
	"os"

	"github.com/twilio/twilio-go"
	twilioApi "github.com/twilio/twilio-go/rest/api/v2010"
)

// Dialer places outbound calls.
type Dialer interface {
	Dial(ctx context.Context, to string) (string, error)
}

// Opts holds configuration options for the Twilio dialer.
type Opts struct {
	AccountSID string
	AuthToken  string
	From       string
	// AnswerURL serves the TwiML that connects the answered call to the
	// Asterisk entry point.
	AnswerURL string
}

// Option defines a configuration option for the Twilio dialer.
type Option func(*Opts)

func WithAccountSID(sid string) Option {
	return func(o *Opts) { o.AccountSID = sid }
}

func WithAuthToken(token string) Option {
	return func(o *Opts) { o.AuthToken = token }
}

func WithFrom(from string) Option {
	return func(o *Opts) { o.From = from }
}

func WithAnswerURL(url string) Option {
	return func(o *Opts) { o.AnswerURL = url }
}

// callCreator is the slice of the Twilio API the dialer needs.
type callCreator interface {
	CreateCall(params *twilioApi.CreateCallParams) (*twilioApi.ApiV2010Call, error)
}

// Client places calls via the Twilio REST API.
type Client struct {
	api       callCreator
	from      string
	answerURL string
}

// NewClient creates a Twilio dialer. Credentials fall back to
// TWILIO_ACCOUNT_SID, TWILIO_AUTH_TOKEN, TWILIO_FROM_NUMBER and
// TWILIO_ANSWER_URL.
func NewClient(opts ...Option) (*Client, error) {
	var cfg Opts
	for _, opt := range opts {
		opt(&cfg)
	}
	if cfg.AccountSID == "" {
		cfg.AccountSID = os.Getenv("TWILIO_ACCOUNT_SID")
	}
	if cfg.AuthToken == "" {
		cfg.AuthToken = os.Getenv("TWILIO_AUTH_TOKEN")
	}
	if cfg.From == "" {
		cfg.From = os.Getenv("TWILIO_FROM_NUMBER")
	}
	if cfg.AnswerURL == "" {
		cfg.AnswerURL = os.Getenv("TWILIO_ANSWER_URL")
	}

	if cfg.AccountSID == "" || cfg.AuthToken == "" {
		return nil, fmt.Errorf("account SID and auth token must be provided")
	}
	if cfg.From == "" {
		return nil, fmt.Errorf("from number must be provided")
	}
	if cfg.AnswerURL == "" {
		return nil, fmt.Errorf("answer URL must be provided")
	}

	rest := twilio.NewRestClientWithParams(twilio.ClientParams{
		Username: cfg.AccountSID,
		Password: cfg.AuthToken,
	})

	return &Client{
		api:       rest.Api,
		from:      cfg.From,
		answerURL: cfg.AnswerURL,
	}, nil
}

// Dial rings the number and returns the Twilio call SID.
func (c *Client) Dial(ctx context.Context, to string) (string, error) {
	params := &twilioApi.CreateCallParams{}
	params.SetTo(to)
	params.SetFrom(c.from)
	params.SetUrl(c.answerURL)

	call, err := c.api.CreateCall(params)
	if err != nil {
		slog.Error("Dialer.Dial: call creation failed", "to", to, "error", err)
		return "", fmt.Errorf("failed to dial %s: %w", to, err)
	}

	sid := ""
	if call.Sid != nil {
		sid = *call.Sid
	}
	slog.Info("Dialer.Dial: call placed", "to", to, "sid", sid)
	return sid, nil
}
