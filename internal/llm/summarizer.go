package llm

import (
	"context"
	"strings"
)

const turnSummarySystem = "Generate a short title (5-10 words) and a 1-sentence summary of what the user asked/discussed. Return as: TITLE: <title>\nSUMMARY: <summary>"

// SummarizeTurn asks provider for a turn's title and one-sentence summary,
// grounded on worker.go's _llm_summarize_turn. Callers are responsible for
// the deterministic-truncation fallback on error (spec.md §4.9).
func SummarizeTurn(ctx context.Context, provider Provider, model, userMessage string) (title, summary string, err error) {
	truncated := userMessage
	if len(truncated) > 1000 {
		truncated = truncated[:1000]
	}

	text, err := provider.Complete(ctx, model, turnSummarySystem, truncated, 200)
	if err != nil {
		return "", "", err
	}

	for _, line := range strings.Split(strings.TrimSpace(text), "\n") {
		switch {
		case strings.HasPrefix(line, "TITLE:"):
			title = strings.TrimSpace(line[len("TITLE:"):])
		case strings.HasPrefix(line, "SUMMARY:"):
			summary = strings.TrimSpace(line[len("SUMMARY:"):])
		}
	}

	if title == "" {
		title = truncate(userMessage, 80)
	}
	if summary == "" {
		summary = truncate(userMessage, 200)
	}
	return title, summary, nil
}

func truncate(s string, n int) string {
	if len(s) <= n {
		return s
	}
	return s[:n]
}
