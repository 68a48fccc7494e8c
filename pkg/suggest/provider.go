package suggest

import (
	"context"
	"fmt"
	"strings"
)

// Provider generates one reply candidate from prompt material.
// Failures are soft: the orchestrator moves to the next tier.
type Provider interface {
	Name() string
	Complete(ctx context.Context, prompt Prompt) (string, error)
}

const maxSuggestionLength = 100

// Scaffold prefixes models tend to wrap replies in.
var scaffoldPrefixes = []string{
	"sure, here's a reply:",
	"sure, here's",
	"here's a reply:",
	"here's a suggestion:",
	"here is a reply:",
	"suggested reply:",
	"response:",
	"reply:",
}

// postProcess normalizes a raw provider response: trim, strip leading
// scaffold text and wrapping quotes, truncate to the display budget.
func postProcess(raw string) string {
	text := strings.TrimSpace(raw)

	lower := strings.ToLower(text)
	for _, prefix := range scaffoldPrefixes {
		if strings.HasPrefix(lower, prefix) {
			text = strings.TrimSpace(text[len(prefix):])
			break
		}
	}

	text = strings.Trim(text, `"“”`)
	text = strings.TrimSpace(text)

	runes := []rune(text)
	if len(runes) > maxSuggestionLength {
		text = strings.TrimSpace(string(runes[:maxSuggestionLength]))
	}
	return text
}

func providerError(name string, err error) error {
	return fmt.Errorf("provider %s: %w", name, err)
}
