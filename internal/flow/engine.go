// Package flow implements the question-flow engine: a per-call state machine
// that sequences question specs, applies conditional skipping, classifies
// answers, loops for clarification, and produces the terminal outcome.
package flow

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"

	"github.com/voxloop/voxloop/internal/models"
)

// State is the engine's position in the per-question lifecycle.
type State string

const (
	StateAsking     State = "asking"
	StateAwaiting   State = "awaiting_answer"
	StateClarifying State = "clarifying"
	StateEarlyExit  State = "early_exit"
	StateCompleted  State = "completed"
)

// DefaultMaxClarifications bounds the clarification loop per question. The
// reference behavior re-prompts forever; after this many failed attempts the
// engine ends the call with a graceful farewell instead.
const DefaultMaxClarifications = 3

// AnswerClassifier resolves a caller response against a question's options.
type AnswerClassifier interface {
	Classify(ctx context.Context, response string, q models.QuestionSpec, allowFollowUp bool) (models.ClassificationResult, error)
}

// Clarifier generates a context-aware re-prompt for an unresolved reply.
type Clarifier interface {
	GenerateClarification(ctx context.Context, primaryQuestion, reply string, options []string) (string, error)
}

// ExitDetector decides whether a reply signals intent to end the call.
type ExitDetector interface {
	DetectExitIntent(ctx context.Context, response string) bool
}

// Deps bundles the collaborator interfaces the engine drives.
type Deps struct {
	Classifier   AnswerClassifier
	Clarifier    Clarifier
	ExitDetector ExitDetector
}

// Opts holds engine configuration.
type Opts struct {
	CompletionMessage string
	MaxClarifications int
}

// Option configures the engine.
type Option func(*Opts)

// WithCompletionMessage sets the farewell spoken when all questions are done.
func WithCompletionMessage(msg string) Option {
	return func(o *Opts) { o.CompletionMessage = msg }
}

// WithMaxClarifications overrides the per-question clarification budget.
func WithMaxClarifications(n int) Option {
	return func(o *Opts) { o.MaxClarifications = n }
}

// Engine is the dialogue state machine for one call. It is single-threaded
// per session and holds no cross-call state; the question list it references
// is read-only.
type Engine struct {
	questions []models.QuestionSpec
	deps      Deps
	opts      Opts

	state             State
	cursor            int
	clarificationMode bool
	clarifications    int
	pendingPrompt     string
	answers           map[string]string
	answerOrder       []string
	outcome           *models.Outcome
}

// NewEngine validates the question list and creates an engine positioned at
// the first applicable question. Malformed specs are rejected here, never at
// runtime mid-call.
func NewEngine(questions []models.QuestionSpec, deps Deps, options ...Option) (*Engine, error) {
	if deps.Classifier == nil || deps.Clarifier == nil || deps.ExitDetector == nil {
		return nil, fmt.Errorf("flow engine dependencies not fully provided")
	}
	seen := make(map[string]bool, len(questions))
	for i := range questions {
		if err := questions[i].Validate(); err != nil {
			return nil, fmt.Errorf("invalid question at index %d: %w", i, err)
		}
		if seen[questions[i].Key] {
			return nil, fmt.Errorf("duplicate question key %q", questions[i].Key)
		}
		seen[questions[i].Key] = true
	}

	opts := Opts{
		CompletionMessage: models.DefaultDoneMessage,
		MaxClarifications: DefaultMaxClarifications,
	}
	for _, opt := range options {
		opt(&opts)
	}

	e := &Engine{
		questions: questions,
		deps:      deps,
		opts:      opts,
		state:     StateAsking,
		answers:   make(map[string]string),
	}
	e.advanceToAskable()
	if e.cursor >= len(e.questions) {
		// Empty script or every question skipped by its condition.
		e.terminate(models.OutcomeCompleted, opts.CompletionMessage)
	}
	return e, nil
}

// NextPrompt returns the utterance to speak next. ok is false once the
// engine has reached a terminal state; the final message then lives in the
// outcome returned by Outcome or HandleResponse.
func (e *Engine) NextPrompt() (prompt string, ok bool) {
	if e.state == StateCompleted || e.state == StateEarlyExit {
		return "", false
	}
	return e.pendingPrompt, true
}

// State returns the engine's current state.
func (e *Engine) State() State { return e.state }

// Answers returns the validated answers collected so far.
func (e *Engine) Answers() map[string]string { return e.answers }

// Outcome returns the terminal outcome, or nil while the call is live.
func (e *Engine) Outcome() *models.Outcome { return e.outcome }

// HandleResponse processes the recognized text for the current question and
// either stages the next prompt (returning nil) or returns the terminal
// outcome. The response is normalized here; an empty response terminates the
// session with a no-input outcome regardless of position.
func (e *Engine) HandleResponse(ctx context.Context, response string) *models.Outcome {
	if e.outcome != nil {
		return e.outcome
	}
	response = strings.ToLower(strings.TrimSpace(response))
	if response == "" {
		slog.Info("Engine.HandleResponse: no input, ending session", "cursor", e.cursor)
		return e.terminate(models.OutcomeNoInput, models.DefaultNoInputMessage)
	}

	q := e.questions[e.cursor]
	slog.Debug("Engine.HandleResponse: processing", "key", q.Key, "response", response, "clarificationMode", e.clarificationMode)

	// Exit intent applies to binary confirmations only, ahead of the
	// sentiment call, so a flat refusal ends the call with the question's
	// own farewell.
	if q.IsBinary() && e.deps.ExitDetector.DetectExitIntent(ctx, response) {
		slog.Info("Engine.HandleResponse: exit intent detected", "key", q.Key)
		return e.terminate(models.OutcomeEndedEarly, q.ExitFarewell())
	}

	result, err := e.deps.Classifier.Classify(ctx, response, q, !e.clarificationMode)
	if err != nil {
		// Classifier backend failure is not fatal to the call: treat the
		// turn as ambiguous and re-prompt.
		slog.Warn("Engine.HandleResponse: classification failed, treating as ambiguous", "key", q.Key, "error", err)
		result = models.ClassificationResult{Kind: models.ClassificationAmbiguous}
	}

	switch result.Kind {
	case models.ClassificationMatched:
		if q.ExitTrigger != "" && strings.EqualFold(result.Option, q.ExitTrigger) {
			slog.Info("Engine.HandleResponse: exit trigger matched", "key", q.Key, "option", result.Option)
			return e.terminate(models.OutcomeEndedEarly, q.ExitFarewell())
		}
		e.recordAnswer(q.Key, result.Option)
		return e.advance()
	case models.ClassificationFollowUp, models.ClassificationAmbiguous:
		return e.clarify(ctx, q, response)
	default:
		slog.Warn("Engine.HandleResponse: unknown classification, re-prompting", "kind", result.Kind)
		return e.clarify(ctx, q, response)
	}
}

// clarify stages a generated re-prompt for the same question, or ends the
// call once the clarification budget is exhausted.
func (e *Engine) clarify(ctx context.Context, q models.QuestionSpec, response string) *models.Outcome {
	if e.clarifications >= e.opts.MaxClarifications {
		slog.Info("Engine.clarify: clarification budget exhausted", "key", q.Key, "attempts", e.clarifications)
		return e.terminate(models.OutcomeEndedEarly, q.ExitFarewell())
	}
	e.clarifications++
	e.clarificationMode = true
	e.state = StateClarifying

	clarification, err := e.deps.Clarifier.GenerateClarification(ctx, q.Prompt, response, q.OptionsLower())
	if err != nil {
		if !errors.Is(err, models.ErrGenerationFailed) {
			slog.Error("Engine.clarify: unexpected clarifier error", "key", q.Key, "error", err)
		}
		// Fall back to re-speaking the primary prompt verbatim; the failed
		// attempt still counts against the budget.
		slog.Warn("Engine.clarify: falling back to primary prompt", "key", q.Key, "error", err)
		e.pendingPrompt = q.Prompt
		return nil
	}
	e.pendingPrompt = clarification
	return nil
}

// recordAnswer stores a validated answer, preserving ask order.
func (e *Engine) recordAnswer(key, option string) {
	if _, exists := e.answers[key]; !exists {
		e.answerOrder = append(e.answerOrder, key)
	}
	e.answers[key] = option
	slog.Debug("Engine.recordAnswer: recorded", "key", key, "answer", option)
}

// advance moves the cursor to the next applicable question or completes.
func (e *Engine) advance() *models.Outcome {
	e.cursor++
	e.clarificationMode = false
	e.clarifications = 0
	e.advanceToAskable()
	if e.cursor >= len(e.questions) {
		slog.Info("Engine.advance: all questions answered")
		return e.terminate(models.OutcomeCompleted, e.opts.CompletionMessage)
	}
	e.state = StateAsking
	return nil
}

// advanceToAskable skips questions whose condition evaluates false. Skipped
// questions produce no utterance and never appear in the answers map.
func (e *Engine) advanceToAskable() {
	for e.cursor < len(e.questions) {
		q := e.questions[e.cursor]
		if q.Condition.Evaluate(e.answers) {
			e.pendingPrompt = q.Prompt
			return
		}
		slog.Debug("Engine.advanceToAskable: skipping question", "key", q.Key)
		e.cursor++
	}
	e.pendingPrompt = ""
}

// terminate records the terminal outcome and freezes the engine.
func (e *Engine) terminate(status models.OutcomeStatus, finalMessage string) *models.Outcome {
	if status == models.OutcomeCompleted {
		e.state = StateCompleted
	} else {
		e.state = StateEarlyExit
	}
	e.pendingPrompt = ""
	e.outcome = &models.Outcome{
		Status:       status,
		FinalMessage: finalMessage,
		Answers:      e.answers,
		AnswerOrder:  e.answerOrder,
	}
	return e.outcome
}
