// Package session drives one call: it pulls prompts from the flow engine,
// pushes them through the speech boundary, and feeds recognized text back in.
package session

import (
	"context"
	"log/slog"
	"time"

	"github.com/voxloop/voxloop/internal/flow"
	"github.com/voxloop/voxloop/internal/models"
	"github.com/voxloop/voxloop/internal/store"
)

// SpeechIO is the speech boundary for one call. Say makes the text audible
// to the remote party; Listen blocks until speech is recognized, returning
// an empty string on silence or timeout. Both are synchronous and may be
// slow; timeouts are the collaborator's concern, not the driver's.
type SpeechIO interface {
	Say(ctx context.Context, text string) error
	Listen(ctx context.Context) (string, error)
}

// Driver orchestrates one call session. One driver per call; never shared.
type Driver struct {
	deps       flow.Deps
	speech     SpeechIO
	store      store.Store
	sessionID  string
	callerID   string
	engineOpts []flow.Option
	transcript []models.Message
}

// NewDriver creates a session driver. The store may be nil, in which case
// results are not persisted.
func NewDriver(deps flow.Deps, speech SpeechIO, st store.Store, sessionID, callerID string, engineOpts ...flow.Option) *Driver {
	return &Driver{
		deps:       deps,
		speech:     speech,
		store:      st,
		sessionID:  sessionID,
		callerID:   callerID,
		engineOpts: engineOpts,
	}
}

// Transcript returns the messages exchanged so far, in order.
func (d *Driver) Transcript() []models.Message {
	return d.transcript
}

// Run conducts the conversation to a terminal outcome. The returned error is
// non-nil only for configuration problems detected before the call starts;
// collaborator failures mid-call surface as an io_failure outcome instead so
// the caller can still hang up cleanly.
func (d *Driver) Run(ctx context.Context, questions []models.QuestionSpec) (models.Outcome, error) {
	engine, err := flow.NewEngine(questions, d.deps, d.engineOpts...)
	if err != nil {
		slog.Error("Driver.Run: engine construction failed", "sessionID", d.sessionID, "error", err)
		return models.Outcome{}, err
	}

	var outcome models.Outcome
	for {
		prompt, ok := engine.NextPrompt()
		if !ok {
			outcome = *engine.Outcome()
			break
		}

		if err := d.say(ctx, prompt); err != nil {
			slog.Error("Driver.Run: speech output failed", "sessionID", d.sessionID, "error", err)
			outcome = d.ioFailureOutcome(engine)
			break
		}

		text, err := d.speech.Listen(ctx)
		if err != nil {
			slog.Error("Driver.Run: speech input failed", "sessionID", d.sessionID, "error", err)
			outcome = d.ioFailureOutcome(engine)
			d.sayBestEffort(ctx, outcome.FinalMessage)
			break
		}
		if text != "" {
			d.record("user", text)
		}
		slog.Debug("Driver.Run: caller said", "sessionID", d.sessionID, "text", text)

		if out := engine.HandleResponse(ctx, text); out != nil {
			outcome = *out
			d.sayBestEffort(ctx, outcome.FinalMessage)
			break
		}
	}

	slog.Info("Driver.Run: session finished", "sessionID", d.sessionID, "status", outcome.Status, "answers", len(outcome.Answers))
	d.persist(ctx, outcome)
	return outcome, nil
}

// say speaks an utterance and records it in the transcript.
func (d *Driver) say(ctx context.Context, text string) error {
	if err := d.speech.Say(ctx, text); err != nil {
		return err
	}
	d.record("assistant", text)
	return nil
}

// sayBestEffort speaks the farewell before hangup; failures are only logged
// since the session is already terminal.
func (d *Driver) sayBestEffort(ctx context.Context, text string) {
	if text == "" {
		return
	}
	if err := d.say(ctx, text); err != nil {
		slog.Warn("Driver.sayBestEffort: farewell failed", "sessionID", d.sessionID, "error", err)
	}
}

func (d *Driver) ioFailureOutcome(engine *flow.Engine) models.Outcome {
	return models.Outcome{
		Status:       models.OutcomeIoFailure,
		FinalMessage: models.DefaultExitMessage,
		Answers:      engine.Answers(),
	}
}

func (d *Driver) record(role, content string) {
	d.transcript = append(d.transcript, models.Message{
		Role:      role,
		Content:   content,
		Timestamp: time.Now(),
	})
}

// persist hands the result off to storage. Fire-and-forget: errors are
// logged and never affect the call outcome.
func (d *Driver) persist(ctx context.Context, outcome models.Outcome) {
	if d.store == nil {
		return
	}
	rec := models.CallRecord{
		SessionID:    d.sessionID,
		CallerID:     d.callerID,
		Status:       outcome.Status,
		FinalMessage: outcome.FinalMessage,
		Answers:      outcome.Answers,
		Transcript:   d.transcript,
		CreatedAt:    time.Now(),
	}
	if err := d.store.SaveCallRecord(ctx, rec); err != nil {
		slog.Error("Driver.persist: failed to save call record", "sessionID", d.sessionID, "error", err)
		return
	}
	slog.Debug("Driver.persist: call record saved", "sessionID", d.sessionID)
}
