package classify

import (
	"context"
	"fmt"
	"log/slog"
	"strings"

	"github.com/voxloop/voxloop/internal/models"
)

// GenerateClarification produces a short directive re-prompt after an
// ambiguous or follow-up reply. It acknowledges the caller's reply without
// repeating the primary question verbatim and restates the closed option
// set. The output feeds speech synthesis, so the template forbids emoji and
// decorative formatting. Failures are wrapped as ErrGenerationFailed so the
// flow engine can fall back to re-speaking the original prompt.
func (c *Classifier) GenerateClarification(ctx context.Context, primaryQuestion, reply string, options []string) (string, error) {
	prompt := fmt.Sprintf(
		"The candidate said: %q. The primary question is: %q. "+
			"Provide a smart, friendly response that acknowledges their reply and instructs them to answer the main question by choosing one of the following options: %s. "+
			"Do not repeat the entire primary question verbatim; just provide a concise clarification and directive. "+
			"Do not use any emojis, and keep your answer small and concise.",
		reply, primaryQuestion, strings.Join(options, ", "))

	result, err := c.genaiClient.GeneratePrompt(ctx, prompt, reply)
	if err != nil {
		slog.Error("Classifier.GenerateClarification: generation failed", "error", err)
		return "", fmt.Errorf("%w: %v", models.ErrGenerationFailed, err)
	}
	if strings.TrimSpace(result) == "" {
		return "", fmt.Errorf("%w: empty clarification", models.ErrGenerationFailed)
	}
	slog.Debug("Classifier.GenerateClarification: generated", "clarification", result)
	return result, nil
}
