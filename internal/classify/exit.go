package classify

import (
	"context"
	"log/slog"
	"strings"
)

// exitKeywords short-circuit exit detection on a substring hit.
var exitKeywords = []string{
	"no", "bye", "goodbye", "quit", "stop calling",
	"not interested", "leave me alone", "hang up",
}

// negativeLexicon words are counted; reaching negativeThreshold signals exit.
var negativeLexicon = []string{
	"not", "never", "can't", "cannot", "won't", "don't", "nope", "nah",
}

const negativeThreshold = 2

// DetectExitIntent reports whether a reply signals the caller wants to end
// the interaction. The keyword and lexicon tiers are deterministic and avoid
// an LLM round-trip for the common case; the semantic fallback only runs
// when both are inconclusive and is accepted only on an exact "yes".
func (c *Classifier) DetectExitIntent(ctx context.Context, response string) bool {
	response = strings.ToLower(strings.TrimSpace(response))
	if response == "" {
		return false
	}

	for _, kw := range exitKeywords {
		if strings.Contains(response, kw) {
			slog.Debug("Classifier.DetectExitIntent: keyword hit", "keyword", kw)
			return true
		}
	}

	count := 0
	for _, word := range strings.Fields(response) {
		word = strings.Trim(word, ".,!?")
		for _, neg := range negativeLexicon {
			if word == neg {
				count++
				break
			}
		}
	}
	if count >= negativeThreshold {
		slog.Debug("Classifier.DetectExitIntent: negative lexicon threshold reached", "count", count)
		return true
	}

	prompt := "Determine if the following response indicates that the person wants to end the conversation. Respond with only 'yes' or 'no'."
	result, err := c.genaiClient.GeneratePrompt(ctx, prompt, response)
	if err != nil {
		slog.Warn("Classifier.DetectExitIntent: semantic fallback failed", "error", err)
		return false
	}
	return strings.ToLower(strings.TrimSpace(result)) == "yes"
}
