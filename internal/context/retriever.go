// Package context is the Context Retriever and Formatter of spec.md
// §4.6–§4.7, grounded on original_source/simon/context/retriever.go and
// formatter.go.
package context

import (
	"context"
	"fmt"
	"path/filepath"
	"regexp"
	"sort"
	"strings"
	"time"

	"github.com/google/uuid"

	"focus/internal/classify"
	"focus/internal/domain/models"
	"focus/internal/domain/repositories"
	"focus/internal/skill"
)

// Retriever resolves a classification into a deduplicated, relevance-sorted
// list of ContextBlocks, per spec.md §4.6.
type Retriever struct {
	entities repositories.EntityStore
}

// NewRetriever builds a Retriever over the given read-only entity store.
func NewRetriever(entities repositories.EntityStore) *Retriever {
	return &Retriever{entities: entities}
}

// Retrieve gathers and dedupes context blocks for classification. It
// returns an empty slice (not an error) when confidence is below the
// floor or nothing resolves.
func (r *Retriever) Retrieve(ctx context.Context, c classify.Classification) ([]models.ContextBlock, error) {
	if c.Confidence < 0.1 {
		return nil, nil
	}

	var blocks []models.ContextBlock

	projectIDs, err := r.resolveProjectIDs(ctx, c)
	if err != nil {
		return nil, err
	}

	for _, pid := range projectIDs {
		recent, err := r.entities.RecentTurns(ctx, pid, 5)
		if err != nil {
			return nil, err
		}
		blocks = append(blocks, turnsToBlocks(recent, models.SourceTypeConversation, 0.70)...)

		tasks, err := r.entities.ActiveTasks(ctx, pid, 5)
		if err != nil {
			return nil, err
		}
		blocks = append(blocks, tasksToBlocks(tasks)...)

		commitments, err := r.entities.OpenCommitments(ctx, &pid, 3)
		if err != nil {
			return nil, err
		}
		blocks = append(blocks, commitmentsToBlocks(commitments)...)
	}

	if c.WorkspaceProject != "" {
		wsTurns, err := r.entities.WorkspaceTurns(ctx, c.WorkspaceProject, 5)
		if err != nil {
			return nil, err
		}
		blocks = append(blocks, turnsToBlocks(wsTurns, models.SourceTypeConversation, 0.70)...)
	}

	if len(projectIDs) == 0 && c.WorkspaceProject == "" {
		fallback, err := r.entities.GlobalRecentTurns(ctx, 3)
		if err != nil {
			return nil, err
		}
		blocks = append(blocks, turnsToBlocks(fallback, models.SourceTypeConversation, 0.70)...)
	}

	if len(c.PersonNames) > 0 {
		personBlocks, err := r.personContext(ctx, c.PersonNames)
		if err != nil {
			return nil, err
		}
		blocks = append(blocks, personBlocks...)
	}

	if len(c.FilePaths) > 0 {
		fileBlocks, err := r.turnsByFile(ctx, c.FilePaths)
		if err != nil {
			return nil, err
		}
		blocks = append(blocks, fileBlocks...)
	}

	if c.QueryType == "code" && len(projectIDs) > 0 {
		for _, pid := range projectIDs {
			errTurns, err := r.entities.RecentErrorTurns(ctx, pid, 3)
			if err != nil {
				return nil, err
			}
			blocks = append(blocks, errorTurnsToBlocks(errTurns)...)
		}
	}

	if len(projectIDs) == 0 {
		globalCommitments, err := r.entities.OpenCommitments(ctx, nil, 3)
		if err != nil {
			return nil, err
		}
		blocks = append(blocks, commitmentsToBlocks(globalCommitments)...)
	}

	sprints, err := r.entities.ActiveSprints(ctx, 3)
	if err != nil {
		return nil, err
	}
	blocks = append(blocks, sprintsToBlocks(sprints)...)

	blocks = append(blocks, r.relevantSkills(c, 3)...)

	return dedupeAndSort(blocks), nil
}

func (r *Retriever) resolveProjectIDs(ctx context.Context, c classify.Classification) ([]uuid.UUID, error) {
	var ids []uuid.UUID
	if len(c.ProjectSlugs) > 0 {
		for _, slug := range c.ProjectSlugs {
			p, found, err := r.entities.FindActiveProjectBySlug(ctx, slug)
			if err != nil {
				return nil, err
			}
			if found {
				ids = append(ids, p.ID)
			}
		}
		return ids, nil
	}
	if c.WorkspaceProject != "" {
		p, found, err := r.entities.FindActiveProjectBySlug(ctx, c.WorkspaceProject)
		if err != nil {
			return nil, err
		}
		if found {
			ids = append(ids, p.ID)
		}
	}
	return ids, nil
}

func (r *Retriever) personContext(ctx context.Context, names []string) ([]models.ContextBlock, error) {
	var blocks []models.ContextBlock
	for _, name := range firstN(names, 3) {
		matches, err := r.entities.PersonByNameLike(ctx, name, 1)
		if err != nil {
			return nil, err
		}
		if len(matches) == 0 {
			continue
		}
		p := matches[0]
		content := p.Name
		if p.Email != "" {
			content += " (" + p.Email + ")"
		}
		blocks = append(blocks, models.NewContextBlock(models.SourceTypePerson, p.ID.String(), p.Name, content, 0.50, nil))
	}
	return blocks, nil
}

func (r *Retriever) turnsByFile(ctx context.Context, paths []string) ([]models.ContextBlock, error) {
	var blocks []models.ContextBlock
	for _, path := range firstN(paths, 5) {
		turns, err := r.entities.TurnsByFile(ctx, path, 3)
		if err != nil {
			return nil, err
		}
		for _, tw := range turns {
			title := tw.Turn.TurnTitle
			if title == "" {
				title = truncate(tw.Turn.UserMessage, 60)
			}
			summary := tw.Turn.AssistantSummary
			if summary == "" {
				summary = tw.Turn.UserMessage
			}
			content := truncate(strings.TrimSpace(fmt.Sprintf("Previously touched %s: %s", path, summary)), 200)
			blocks = append(blocks, models.NewContextBlock(
				models.SourceTypeFileContext,
				fmt.Sprintf("file:%s:%s", tw.Turn.ID, path),
				"File: "+filepath.Base(path),
				content,
				0.65,
				tw.Turn.StartedAt,
			))
		}
	}
	return blocks, nil
}

func (r *Retriever) relevantSkills(c classify.Classification, maxSkills int) []models.ContextBlock {
	projectPath := ""
	installed := skill.ListInstalledSkills("all", projectPath)
	if len(installed) == 0 {
		return nil
	}

	promptWords := buildPromptWords(c)
	if len(promptWords) == 0 {
		return nil
	}

	type scored struct {
		score float64
		s     skill.InstalledSkill
		body  string
	}
	var candidates []scored
	for _, s := range installed {
		score, body := scoreSkillRelevance(s, promptWords)
		if score > 0 {
			candidates = append(candidates, scored{score, s, body})
		}
	}
	sort.Slice(candidates, func(i, j int) bool { return candidates[i].score > candidates[j].score })

	var blocks []models.ContextBlock
	for _, cand := range firstNScored(candidates, maxSkills) {
		content := formatSkillContent(cand.s, cand.body)
		relevance := minFloat(0.85, 0.5+cand.score*0.35)
		blocks = append(blocks, models.NewContextBlock(
			models.SourceTypeSkill,
			"skill:"+cand.s.Name,
			"Skill: "+cand.s.Name,
			content,
			relevance,
			nil,
		))
	}
	return blocks
}

var wordSplitPattern = regexp.MustCompile(`[_\-.]+`)
var bodyWordSplitPattern = regexp.MustCompile(`[\s,.\-_:;()]+`)
var nameWordSplitPattern = regexp.MustCompile(`[_\-\s]+`)
var descWordSplitPattern = regexp.MustCompile(`[\s,.\-_]+`)

func buildPromptWords(c classify.Classification) map[string]bool {
	words := map[string]bool{}
	add := func(s string) {
		if len(s) > 2 {
			words[s] = true
		}
	}
	for _, slug := range c.ProjectSlugs {
		for _, w := range strings.Split(strings.ToLower(slug), "-") {
			add(w)
		}
	}
	for _, name := range c.PersonNames {
		for _, w := range strings.Fields(strings.ToLower(name)) {
			add(w)
		}
	}
	if c.WorkspaceProject != "" {
		for _, w := range strings.Split(strings.ToLower(c.WorkspaceProject), "-") {
			add(w)
		}
	}
	if c.QueryType != "general" {
		add(c.QueryType)
	}
	for _, path := range c.FilePaths {
		stem := strings.ToLower(strings.TrimSuffix(filepath.Base(path), filepath.Ext(path)))
		for _, w := range wordSplitPattern.Split(stem, -1) {
			add(w)
		}
	}
	return words
}

func scoreSkillRelevance(s skill.InstalledSkill, promptWords map[string]bool) (float64, string) {
	skillWords := map[string]bool{}
	for _, w := range nameWordSplitPattern.Split(strings.ToLower(s.Name), -1) {
		if len(w) > 2 {
			skillWords[w] = true
		}
	}
	if s.Description != "" {
		for _, w := range descWordSplitPattern.Split(strings.ToLower(s.Description), -1) {
			if len(w) > 2 {
				skillWords[w] = true
			}
		}
	}

	body := skill.ReadBody(s)
	if body != "" {
		bodyWords := bodyWordSplitPattern.Split(strings.ToLower(body), -1)
		if len(bodyWords) > 200 {
			bodyWords = bodyWords[:200]
		}
		for _, w := range bodyWords {
			if len(w) > 2 {
				skillWords[w] = true
			}
		}
	}

	if len(skillWords) == 0 {
		return 0, body
	}

	overlapCount := 0
	for w := range promptWords {
		if skillWords[w] {
			overlapCount++
		}
	}
	if overlapCount == 0 {
		return 0, body
	}

	coverage := float64(overlapCount) / float64(len(promptWords))
	nameBonus := 0.0
	for _, w := range nameWordSplitPattern.Split(strings.ToLower(s.Name), -1) {
		if promptWords[w] {
			nameBonus = 0.3
			break
		}
	}
	return minFloat(1.0, coverage+nameBonus), body
}

func formatSkillContent(s skill.InstalledSkill, rawBody string) string {
	var parts []string
	if s.Description != "" {
		parts = append(parts, s.Description)
	}
	body := rawBody
	if len(body) > 300 {
		body = body[:297] + "..."
	}
	if body != "" {
		parts = append(parts, body)
	}
	parts = append(parts, fmt.Sprintf("(full instructions: %s)", s.Path))
	return strings.Join(parts, " | ")
}

func turnsToBlocks(turns []repositories.TurnWithSession, sourceType models.SourceType, relevance float64) []models.ContextBlock {
	var blocks []models.ContextBlock
	for _, tw := range turns {
		title := tw.Turn.TurnTitle
		if title == "" {
			title = truncate(tw.Turn.UserMessage, 60)
		}
		content := tw.Turn.AssistantSummary
		if content == "" {
			content = truncate(tw.Turn.UserMessage, 150)
		}
		age := relativeTime(tw.Turn.StartedAt)
		blocks = append(blocks, models.NewContextBlock(
			sourceType,
			tw.Turn.ID.String(),
			fmt.Sprintf("%s (%s)", title, age),
			content,
			relevance,
			tw.Turn.StartedAt,
		))
	}
	return blocks
}

func errorTurnsToBlocks(turns []repositories.TurnWithSession) []models.ContextBlock {
	var blocks []models.ContextBlock
	for _, tw := range turns {
		title := tw.Turn.TurnTitle
		if title == "" {
			title = "Error encountered"
		}
		age := relativeTime(tw.Turn.StartedAt)
		content := truncate(strings.TrimSpace("Errors in previous session: "+tw.Turn.UserMessage), 200)
		blocks = append(blocks, models.NewContextBlock(
			models.SourceTypeError,
			"error:"+tw.Turn.ID.String(),
			fmt.Sprintf("%s (%s)", title, age),
			content,
			0.55,
			tw.Turn.StartedAt,
		))
	}
	return blocks
}

func tasksToBlocks(tasks []models.Task) []models.ContextBlock {
	var blocks []models.ContextBlock
	for _, t := range tasks {
		due := ""
		if t.DueDate != nil {
			due = " (due " + t.DueDate.Format("2006-01-02") + ")"
		}
		content := fmt.Sprintf("[%s] %s%s | %s", t.Status, t.Title, due, t.Priority)
		relevance := 0.40
		if t.Status == "in_progress" {
			relevance = 0.60
		}
		blocks = append(blocks, models.NewContextBlock(models.SourceTypeTask, t.ID.String(), t.Title, content, relevance, nil))
	}
	return blocks
}

func commitmentsToBlocks(commitments []models.Commitment) []models.ContextBlock {
	var blocks []models.ContextBlock
	for _, c := range commitments {
		direction := "from"
		if c.Direction == "from_me" {
			direction = "from me to"
		}
		deadline := ""
		if c.Deadline != nil {
			deadline = " by " + c.Deadline.Format("2006-01-02")
		}
		content := fmt.Sprintf("Commitment %s person: %s%s", direction, c.Description, deadline)
		blocks = append(blocks, models.NewContextBlock(models.SourceTypeCommitment, c.ID.String(), truncate(c.Description, 60), content, 0.50, nil))
	}
	return blocks
}

func sprintsToBlocks(sprints []models.Sprint) []models.ContextBlock {
	var blocks []models.ContextBlock
	now := time.Now().UTC()
	for _, s := range sprints {
		daysLeft := int(s.EndsAt.Sub(now).Hours() / 24)
		content := fmt.Sprintf("Sprint: %s (%dd left)", s.Name, daysLeft)
		blocks = append(blocks, models.NewContextBlock(models.SourceTypeSprint, s.ID.String(), s.Name, content, 0.30, nil))
	}
	return blocks
}

func dedupeAndSort(blocks []models.ContextBlock) []models.ContextBlock {
	seen := make(map[string]bool)
	var unique []models.ContextBlock
	for _, b := range blocks {
		if seen[b.SourceID] {
			continue
		}
		seen[b.SourceID] = true
		unique = append(unique, b)
	}
	sort.SliceStable(unique, func(i, j int) bool {
		return unique[i].RelevanceScore > unique[j].RelevanceScore
	})
	return unique
}

func relativeTime(t *time.Time) string {
	if t == nil {
		return "unknown time"
	}
	diff := time.Since(*t)
	seconds := int(diff.Seconds())
	switch {
	case seconds < 60:
		return "just now"
	case seconds < 3600:
		return fmt.Sprintf("%dm ago", seconds/60)
	case seconds < 86400:
		return fmt.Sprintf("%dh ago", seconds/3600)
	case seconds < 604800:
		return fmt.Sprintf("%dd ago", seconds/86400)
	default:
		return fmt.Sprintf("%dw ago", seconds/604800)
	}
}

func truncate(s string, n int) string {
	if len(s) <= n {
		return s
	}
	return s[:n]
}

func firstN(items []string, n int) []string {
	if len(items) <= n {
		return items
	}
	return items[:n]
}

func firstNScored[T any](items []T, n int) []T {
	if len(items) <= n {
		return items
	}
	return items[:n]
}

func minFloat(a, b float64) float64 {
	if a < b {
		return a
	}
	return b
}
