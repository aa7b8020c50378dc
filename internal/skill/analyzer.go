package skill

import (
	"context"
	"crypto/md5"
	"encoding/hex"
	"fmt"
	"strings"

	"focus/internal/config"
	"focus/internal/domain/models"
	"focus/internal/domain/repositories"
)

// Candidate is a session that may become a skill, per spec.md §4.10.
type Candidate struct {
	SessionID     string
	QualityScore  float64
	Description   string
	Context       Context
	WorkspacePath string
}

// ScoreSessionQuality scores a session from 0.0 to 1.0, grounded on
// original_source/simon/skills/analyzer.go's score_session_quality.
func ScoreSessionQuality(turnCount, errorCount int, filesTouched, toolsUsed []string, hasSummary bool) float64 {
	score := 0.0

	if turnCount >= 3 {
		score += minFloat(float64(turnCount)/12.0, 0.25)
	}

	if turnCount > 0 {
		errorRate := float64(errorCount) / float64(turnCount)
		if errorRate < 0.3 {
			score += 0.25 * (1.0 - errorRate)
		}
	}

	fileCount := len(uniqueStrings(filesTouched))
	if fileCount >= 2 {
		score += minFloat(float64(fileCount)/10.0, 0.2)
	}

	uniqueTools := len(uniqueStrings(toolsUsed))
	if uniqueTools >= 2 {
		score += minFloat(float64(uniqueTools)/8.0, 0.15)
	}

	if hasSummary {
		score += 0.15
	}

	return minFloat(score, 1.0)
}

// ComputeDescriptionHash hashes a normalized description for duplicate
// detection, the same shape as the skill_content_hash column.
func ComputeDescriptionHash(description string) string {
	normalized := strings.Join(strings.Fields(strings.ToLower(description)), " ")
	sum := md5.Sum([]byte(normalized))
	return hex.EncodeToString(sum[:])
}

// AnalyzeSessionForSkill decides whether a completed session qualifies
// for auto skill generation, applying every gate from spec.md §4.10 in
// order: auto-generate enabled, fully processed, daily cap, quality
// floor, duplicate-description check.
func AnalyzeSessionForSkill(
	ctx context.Context,
	sessions repositories.SessionStore,
	skills repositories.SkillStore,
	cfg config.SkillSettings,
	session *models.AgentSession,
) (*Candidate, error) {
	if !cfg.AutoGenerate {
		return nil, nil
	}
	if !session.IsProcessed || session.SessionSummary == "" {
		return nil, nil
	}

	todayCount, err := skills.CountAutoSkillsToday(ctx)
	if err != nil {
		return nil, fmt.Errorf("count today's auto skills: %w", err)
	}
	if todayCount >= cfg.MaxAutoSkillsPerDay {
		return nil, nil
	}

	turns, err := sessions.ListTurns(ctx, session.ID)
	if err != nil {
		return nil, fmt.Errorf("list turns: %w", err)
	}

	var filesTouched, toolsUsed, commandsRun []string
	errorCount := 0
	for _, t := range turns {
		toolsUsed = append(toolsUsed, t.ToolNames...)
		content, err := sessions.GetTurnContent(ctx, t.ID)
		if err != nil {
			return nil, fmt.Errorf("get turn content: %w", err)
		}
		if content == nil {
			continue
		}
		filesTouched = append(filesTouched, content.FilesTouched...)
		commandsRun = append(commandsRun, content.CommandsRun...)
		errorCount += len(content.ErrorsEncountered)
	}

	quality := ScoreSessionQuality(len(turns), errorCount, filesTouched, toolsUsed, session.SessionSummary != "")
	if quality < cfg.MinQualityScore {
		return nil, nil
	}

	description := session.SessionSummary
	hash := ComputeDescriptionHash(description)
	exists, err := skills.HasActiveSkillWithHash(ctx, hash)
	if err != nil {
		return nil, fmt.Errorf("check duplicate skill: %w", err)
	}
	if exists {
		return nil, nil
	}

	return &Candidate{
		SessionID:    session.SessionID,
		QualityScore: quality,
		Description:  description,
		Context: Context{
			WorkspacePath:  session.WorkspacePath,
			FilesTouched:   uniqueStrings(filesTouched),
			CommandsRun:    uniqueStrings(commandsRun),
			ToolsUsed:      uniqueStrings(toolsUsed),
			SessionSummary: session.SessionSummary,
		},
		WorkspacePath: session.WorkspacePath,
	}, nil
}

func uniqueStrings(items []string) []string {
	seen := make(map[string]bool)
	var out []string
	for _, s := range items {
		if !seen[s] {
			seen[s] = true
			out = append(out, s)
		}
	}
	return out
}

func minFloat(a, b float64) float64 {
	if a < b {
		return a
	}
	return b
}
