// Package classify decides what a caller's utterance means: which option it
// matches, whether it is a follow-up question, whether the caller wants out.
// Cheap deterministic checks always run before any LLM round-trip.
package classify

import (
	"context"
	"fmt"
	"log/slog"
	"strings"

	"github.com/voxloop/voxloop/internal/genai"
	"github.com/voxloop/voxloop/internal/models"
)

// Classifier resolves caller utterances using layered strategies backed by
// a GenAI client for the semantic tiers.
type Classifier struct {
	genaiClient genai.ClientInterface
}

// NewClassifier creates a classifier with the given GenAI client.
func NewClassifier(genaiClient genai.ClientInterface) *Classifier {
	return &Classifier{genaiClient: genaiClient}
}

// Classify resolves a caller response against a question's valid options.
// The response must already be lower-cased and trimmed; empty responses are
// handled upstream and never reach here.
//
// Binary yes/no questions degenerate to a sentiment call: negative maps to
// "no", everything else to "yes". Otherwise a direct substring match is
// tried first so the common case never pays for an LLM round-trip; the
// semantic option check and the follow-up check only run after it fails.
// allowFollowUp gates the follow-up check: it is attempted at most once per
// question turn, before clarification mode has been entered.
func (c *Classifier) Classify(ctx context.Context, response string, q models.QuestionSpec, allowFollowUp bool) (models.ClassificationResult, error) {
	if q.IsBinary() {
		sentiment, err := c.DetermineSentiment(ctx, response)
		if err != nil {
			return models.ClassificationResult{}, fmt.Errorf("sentiment check failed: %w", err)
		}
		option := "yes"
		if sentiment == "negative" {
			option = "no"
		}
		slog.Debug("Classifier.Classify: sentiment mode", "response", response, "sentiment", sentiment, "option", option)
		return models.ClassificationResult{Kind: models.ClassificationMatched, Option: option}, nil
	}

	options := q.OptionsLower()
	if option, ok := directMatch(response, options); ok {
		slog.Debug("Classifier.Classify: direct match", "response", response, "option", option)
		return models.ClassificationResult{Kind: models.ClassificationMatched, Option: option}, nil
	}

	option, err := c.validateOption(ctx, response, options)
	if err != nil {
		return models.ClassificationResult{}, fmt.Errorf("option validation failed: %w", err)
	}
	if option != "" {
		slog.Debug("Classifier.Classify: semantic match", "response", response, "option", option)
		return models.ClassificationResult{Kind: models.ClassificationMatched, Option: option}, nil
	}

	if allowFollowUp {
		followUp, err := c.isFollowUpQuestion(ctx, response, options)
		if err != nil {
			slog.Warn("Classifier.Classify: follow-up check failed, treating as ambiguous", "error", err)
		} else if followUp {
			slog.Debug("Classifier.Classify: follow-up detected", "response", response)
			return models.ClassificationResult{Kind: models.ClassificationFollowUp}, nil
		}
	}

	slog.Debug("Classifier.Classify: ambiguous", "response", response)
	return models.ClassificationResult{Kind: models.ClassificationAmbiguous}, nil
}

// directMatch checks whether the response contains one of the valid options.
// Options are matched in order, so scripts should list longer or more
// specific options first when they overlap.
func directMatch(response string, options []string) (string, bool) {
	response = strings.ToLower(strings.TrimSpace(response))
	for _, opt := range options {
		if response == opt || strings.Contains(response, opt) {
			return opt, true
		}
	}
	return "", false
}

// DetermineSentiment asks the LLM whether a yes/no reply is positive or
// negative. Any result that does not mention "negative" counts as positive;
// for binary confirmations any non-negative signal is treated as assent.
func (c *Classifier) DetermineSentiment(ctx context.Context, response string) (string, error) {
	prompt := fmt.Sprintf("Determine whether the following response is positive or negative: %q. Respond with only 'positive' or 'negative'.", response)
	result, err := c.genaiClient.GeneratePrompt(ctx, prompt, response)
	if err != nil {
		return "", err
	}
	if strings.Contains(strings.ToLower(result), "negative") {
		return "negative", nil
	}
	return "positive", nil
}

// validateOption asks the LLM whether the response clearly includes one of
// the valid options. The answer is accepted only when it is literally one of
// the options; anything else (including "none") means no match.
func (c *Classifier) validateOption(ctx context.Context, response string, options []string) (string, error) {
	prompt := fmt.Sprintf(
		"Candidate's response: %q.\nValid options: %s.\n"+
			"Check if the candidate's response clearly includes one of these options. "+
			"If yes, respond with the matching option exactly as given (one word). "+
			"If the response is ambiguous or does not clearly include any of these options, respond with 'none'. "+
			"Respond with only one word.",
		response, strings.Join(options, ", "))
	result, err := c.genaiClient.GeneratePrompt(ctx, prompt, response)
	if err != nil {
		return "", err
	}
	result = strings.ToLower(strings.TrimSpace(result))
	for _, opt := range options {
		if result == opt {
			return opt, nil
		}
	}
	return "", nil
}

// isFollowUpQuestion asks the LLM whether the response is a clarification
// question rather than an answer.
func (c *Classifier) isFollowUpQuestion(ctx context.Context, response string, options []string) (bool, error) {
	prompt := fmt.Sprintf(
		"Candidate's response: %q.\n"+
			"Determine if this response is a follow-up clarification question (i.e., the candidate is asking for more details) "+
			"rather than directly answering the primary question. If the response includes any of these valid options: %s, "+
			"or if it clearly answers the question, then respond with 'no'. Otherwise, if it seems like they are asking for clarification, respond with 'yes'. "+
			"Respond with only 'yes' or 'no'.",
		response, strings.Join(options, ", "))
	result, err := c.genaiClient.GeneratePrompt(ctx, prompt, response)
	if err != nil {
		return false, err
	}
	return strings.ToLower(strings.TrimSpace(result)) == "yes", nil
}
