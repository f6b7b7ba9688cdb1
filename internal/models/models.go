// Package models defines core data types shared across voxloop components.
package models

import (
	"errors"
	"fmt"
	"strings"
	"time"
)

// Classification is the outcome of classifying a caller's answer against a
// question's valid options.
type Classification string

const (
	// ClassificationMatched means the answer resolved to one of the valid options.
	ClassificationMatched Classification = "matched"
	// ClassificationAmbiguous means the answer could not be resolved to an option.
	ClassificationAmbiguous Classification = "ambiguous"
	// ClassificationFollowUp means the caller asked a question instead of answering.
	ClassificationFollowUp Classification = "follow_up"
)

// ClassificationResult carries the classification kind and, when matched,
// the resolved option (lower-cased).
type ClassificationResult struct {
	Kind   Classification
	Option string
}

// OutcomeStatus is the terminal status of a call session.
type OutcomeStatus string

const (
	// OutcomeCompleted means every applicable question was answered.
	OutcomeCompleted OutcomeStatus = "completed"
	// OutcomeEndedEarly means an exit trigger or exit intent ended the call.
	OutcomeEndedEarly OutcomeStatus = "ended_early"
	// OutcomeNoInput means the caller produced no recognizable speech.
	OutcomeNoInput OutcomeStatus = "no_input"
	// OutcomeIoFailure means a speech collaborator failed mid-call.
	OutcomeIoFailure OutcomeStatus = "io_failure"
)

// Default utterances spoken at terminal transitions.
const (
	DefaultExitMessage    = "Thank you for your time. Goodbye!"
	DefaultNoInputMessage = "No input received. Ending session. Goodbye!"
	DefaultDoneMessage    = "That's all we need for now. Thank you for your time. Our team will review your details and reach out soon. Have a great day!"
)

// Sentinel errors for the error taxonomy shared by flow and session layers.
var (
	// ErrGenerationFailed indicates the clarification LLM call failed; the
	// flow engine recovers by re-speaking the primary prompt.
	ErrGenerationFailed = errors.New("clarification generation failed")
	// ErrIoFailure indicates a speech synthesis or recognition collaborator
	// failed; terminal for the session.
	ErrIoFailure = errors.New("speech io failure")
)

// Condition is a declarative predicate over previously collected answers.
// A question carrying a condition is skipped when the predicate is false.
type Condition struct {
	Field  string `json:"field"`
	Equals string `json:"equals"`
}

// Evaluate reports whether the condition holds for the collected answers.
// Comparison is case-insensitive; a missing answer evaluates false.
func (c *Condition) Evaluate(answers map[string]string) bool {
	if c == nil {
		return true
	}
	got, ok := answers[c.Field]
	if !ok {
		return false
	}
	return strings.EqualFold(strings.TrimSpace(got), strings.TrimSpace(c.Equals))
}

// QuestionSpec is the static definition of one dialogue turn.
type QuestionSpec struct {
	// Key uniquely identifies the question; it is the answers map key.
	Key string `json:"key"`
	// Prompt is the utterance spoken to ask the question.
	Prompt string `json:"prompt"`
	// ValidOptions is the closed set of acceptable answers (lower-cased).
	// The special pair {"yes","no"} switches classification to sentiment mode.
	ValidOptions []string `json:"valid_options"`
	// ExitTrigger, when matched as the answer, ends the session early.
	ExitTrigger string `json:"exit_trigger,omitempty"`
	// ExitMessage is spoken on early exit; defaults to DefaultExitMessage.
	ExitMessage string `json:"exit_message,omitempty"`
	// Condition, when present and false, causes the question to be skipped.
	Condition *Condition `json:"condition,omitempty"`
}

// Validate checks the structural invariants of a question spec. It is called
// at flow-engine construction so malformed scripts never reach a live call.
func (q *QuestionSpec) Validate() error {
	if strings.TrimSpace(q.Key) == "" {
		return fmt.Errorf("question has empty key")
	}
	if strings.TrimSpace(q.Prompt) == "" {
		return fmt.Errorf("question %q has empty prompt", q.Key)
	}
	if len(q.ValidOptions) == 0 {
		return fmt.Errorf("question %q has no valid options", q.Key)
	}
	for _, opt := range q.ValidOptions {
		if strings.TrimSpace(opt) == "" {
			return fmt.Errorf("question %q has an empty option", q.Key)
		}
	}
	if q.ExitTrigger != "" && !q.HasOption(q.ExitTrigger) {
		return fmt.Errorf("question %q exit trigger %q is not a valid option", q.Key, q.ExitTrigger)
	}
	return nil
}

// OptionsLower returns the valid options lower-cased and trimmed.
func (q *QuestionSpec) OptionsLower() []string {
	opts := make([]string, len(q.ValidOptions))
	for i, opt := range q.ValidOptions {
		opts[i] = strings.ToLower(strings.TrimSpace(opt))
	}
	return opts
}

// HasOption reports whether opt is one of the valid options, case-insensitively.
func (q *QuestionSpec) HasOption(opt string) bool {
	for _, o := range q.ValidOptions {
		if strings.EqualFold(strings.TrimSpace(o), strings.TrimSpace(opt)) {
			return true
		}
	}
	return false
}

// IsBinary reports whether the question is a yes/no confirmation, which is
// classified by sentiment instead of option matching.
func (q *QuestionSpec) IsBinary() bool {
	opts := q.OptionsLower()
	return len(opts) == 2 && opts[0] == "yes" && opts[1] == "no"
}

// ExitFarewell returns the utterance to speak on early exit.
func (q *QuestionSpec) ExitFarewell() string {
	if q.ExitMessage != "" {
		return q.ExitMessage
	}
	return DefaultExitMessage
}

// Outcome is the terminal value of a call session.
type Outcome struct {
	Status OutcomeStatus `json:"status"`
	// FinalMessage is the farewell utterance spoken before hangup.
	FinalMessage string `json:"final_message"`
	// Answers maps question key to the validated, normalized answer.
	Answers map[string]string `json:"answers"`
	// AnswerOrder lists answer keys in the order the questions were asked.
	AnswerOrder []string `json:"answer_order"`
}

// Message is one transcript entry, owned by the session driver and passed
// into LLM calls explicitly rather than through shared global state.
type Message struct {
	Role      string    `json:"role"`
	Content   string    `json:"content"`
	Timestamp time.Time `json:"timestamp"`
}

// CallRecord is the persisted result of one call session.
type CallRecord struct {
	SessionID    string            `json:"session_id"`
	CallerID     string            `json:"caller_id,omitempty"`
	Status       OutcomeStatus     `json:"status"`
	FinalMessage string            `json:"final_message"`
	Answers      map[string]string `json:"answers"`
	Transcript   []Message         `json:"transcript,omitempty"`
	CreatedAt    time.Time         `json:"created_at"`
}
