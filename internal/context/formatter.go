package context

import (
	"fmt"
	"sort"
	"strings"

	"focus/internal/domain/models"
)

// typeLabels is the fixed label table of spec.md §4.7; unknown types
// fall back to a title-cased rendering of the raw source type.
var typeLabels = map[models.SourceType]string{
	models.SourceTypeConversation: "Conv",
	models.SourceTypeTask:         "Task",
	models.SourceTypeEmail:        "Email",
	models.SourceTypeCommitment:   "Commitment",
	models.SourceTypePerson:       "Person",
	models.SourceTypeSprint:       "Sprint",
	models.SourceTypeFileContext:  "File",
	models.SourceTypeError:        "Error",
	models.SourceTypeSkill:        "Skill",
}

const contextHeader = "## Focus Context\n\n"

// FormatContextBlocks greedily packs blocks (sorted by relevance
// descending) into maxTokens, appending an overflow notice if any block
// was dropped. Returns "" if nothing fit.
func FormatContextBlocks(blocks []models.ContextBlock, maxTokens int) string {
	if len(blocks) == 0 {
		return ""
	}

	sorted := make([]models.ContextBlock, len(blocks))
	copy(sorted, blocks)
	sort.SliceStable(sorted, func(i, j int) bool {
		return sorted[i].RelevanceScore > sorted[j].RelevanceScore
	})

	remaining := maxTokens - models.EstimateTokens(contextHeader)

	var parts []string
	overflow := 0
	for _, b := range sorted {
		formatted := formatSingleBlock(b)
		tokens := models.EstimateTokens(formatted)
		if tokens <= remaining {
			parts = append(parts, formatted)
			remaining -= tokens
		} else {
			overflow++
		}
	}

	if len(parts) == 0 {
		return ""
	}

	result := contextHeader + strings.Join(parts, "\n")
	if overflow > 0 {
		result += fmt.Sprintf("\n\n(+%d more — run 'focus search' for details)", overflow)
	}
	return result
}

func formatSingleBlock(b models.ContextBlock) string {
	label, ok := typeLabels[b.SourceType]
	if !ok {
		label = titleCase(string(b.SourceType))
	}
	return fmt.Sprintf("[%s] %s", label, b.Content)
}

func titleCase(s string) string {
	words := strings.Fields(strings.ReplaceAll(s, "_", " "))
	for i, w := range words {
		if w == "" {
			continue
		}
		words[i] = strings.ToUpper(w[:1]) + w[1:]
	}
	return strings.Join(words, " ")
}
