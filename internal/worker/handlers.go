// Package worker is the background job processor of spec.md §4.8–§4.9,
// grounded on original_source/simon/context/worker.go.
package worker

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"path/filepath"
	"regexp"
	"sort"
	"strings"

	"github.com/google/uuid"

	"focus/internal/artifact"
	"focus/internal/config"
	"focus/internal/domain/models"
	"focus/internal/domain/repositories"
	"focus/internal/llm"
	"focus/internal/projectstate"
	"focus/internal/recorder"
	"focus/internal/skill"
)

// Handlers implements one method per JobKind, matching spec.md §4.9's
// handler table.
type Handlers struct {
	Jobs      repositories.JobQueue
	Sessions  repositories.SessionStore
	Entities  repositories.EntityStore
	Skills    repositories.SkillStore
	Recorder  *recorder.Recorder
	Provider  llm.Provider // nil when no Anthropic API key is configured
	Settings  *config.Settings
	State     *projectstate.Store
	Logger    *slog.Logger
}

func decodePayload(payload map[string]interface{}, out interface{}) error {
	raw, err := json.Marshal(payload)
	if err != nil {
		return err
	}
	return json.Unmarshal(raw, out)
}

func ptr(s string) *string { return &s }

// ProcessSessionJob parses a transcript into turns, records any new ones,
// auto-links the session to a project by workspace path, and enqueues the
// per-turn and session-level follow-up jobs.
func (h *Handlers) ProcessSessionJob(ctx context.Context, job *models.Job) error {
	var p models.SessionProcessPayload
	if err := decodePayload(job.Payload, &p); err != nil {
		return fmt.Errorf("decode session_process payload: %w", err)
	}

	result, err := h.Recorder.RecordSession(ctx, p.SessionID, p.TranscriptPath, p.WorkspacePath)
	if err != nil {
		return fmt.Errorf("recording failed: %w", err)
	}

	if p.WorkspacePath != "" {
		if err := h.linkSessionToProject(ctx, p.SessionID, p.WorkspacePath); err != nil {
			h.Logger.Warn("failed to link session to project", "session_id", p.SessionID, "error", err)
		}
	}

	if result.TurnsRecorded > 0 {
		session, found, err := h.Sessions.GetBySessionID(ctx, p.SessionID)
		if err != nil {
			return fmt.Errorf("look up session: %w", err)
		}
		if found {
			turns, err := h.Sessions.ListTurnsWithoutSummary(ctx, session.ID)
			if err != nil {
				return fmt.Errorf("list turns without summary: %w", err)
			}
			for _, t := range turns {
				if err := h.enqueueTurnJobs(ctx, t.ID); err != nil {
					return err
				}
			}
			if _, err := h.Jobs.Enqueue(ctx, models.JobKindSessionSummary,
				map[string]interface{}{"session_id": p.SessionID},
				ptr("session_summary:"+p.SessionID), models.PrioritySessionSummary, models.DefaultMaxAttempts,
			); err != nil {
				return fmt.Errorf("enqueue session_summary: %w", err)
			}
		}
	}

	h.Logger.Info("session job done", "session_id", p.SessionID, "recorded", result.TurnsRecorded, "skipped", result.TurnsSkipped)
	return nil
}

func (h *Handlers) enqueueTurnJobs(ctx context.Context, turnID uuid.UUID) error {
	turnIDStr := turnID.String()
	if _, err := h.Jobs.Enqueue(ctx, models.JobKindTurnSummary,
		map[string]interface{}{"turn_id": turnIDStr}, ptr("turn_summary:"+turnIDStr), models.PriorityTurnSummary, models.DefaultMaxAttempts); err != nil {
		return fmt.Errorf("enqueue turn_summary: %w", err)
	}
	if _, err := h.Jobs.Enqueue(ctx, models.JobKindEntityExtract,
		map[string]interface{}{"turn_id": turnIDStr}, ptr("entity_extract:"+turnIDStr), models.PriorityEntityExtract, models.DefaultMaxAttempts); err != nil {
		return fmt.Errorf("enqueue entity_extract: %w", err)
	}
	if _, err := h.Jobs.Enqueue(ctx, models.JobKindArtifactExtract,
		map[string]interface{}{"turn_id": turnIDStr}, ptr("artifact_extract:"+turnIDStr), models.PriorityArtifactExtract, models.DefaultMaxAttempts); err != nil {
		return fmt.Errorf("enqueue artifact_extract: %w", err)
	}
	return nil
}

// linkSessionToProject matches the workspace directory name (or an
// explicit project-state override) against an active project slug and
// links the session if it isn't already linked.
func (h *Handlers) linkSessionToProject(ctx context.Context, sessionID, workspacePath string) error {
	dirName := strings.ToLower(filepath.Base(strings.TrimRight(workspacePath, "/")))
	if dirName == "" {
		return nil
	}

	searchSlug := dirName
	if h.State != nil {
		if explicit, ok := h.State.GetActiveProject(workspacePath); ok && explicit != "" {
			searchSlug = explicit
		}
	}

	project, found, err := h.Entities.FindActiveProjectBySlug(ctx, searchSlug)
	if err != nil {
		return err
	}
	if !found {
		return nil
	}

	session, found, err := h.Sessions.GetBySessionID(ctx, sessionID)
	if err != nil {
		return err
	}
	if !found || session.ProjectID != nil {
		return nil
	}

	changed, err := h.Sessions.SetSessionProjectID(ctx, session.ID, project.ID)
	if err != nil {
		return err
	}
	if changed {
		h.Logger.Info("linked session to project", "session_id", sessionID[:min(12, len(sessionID))], "project", project.Slug)
	}
	return nil
}

// ProcessTurnSummaryJob generates an LLM title/summary for a turn,
// skipping the LLM call entirely for short user messages.
func (h *Handlers) ProcessTurnSummaryJob(ctx context.Context, job *models.Job) error {
	var p models.TurnPayload
	if err := decodePayload(job.Payload, &p); err != nil {
		return fmt.Errorf("decode turn_summary payload: %w", err)
	}
	turnID, err := uuid.Parse(p.TurnID)
	if err != nil {
		return fmt.Errorf("invalid turn_id: %w", err)
	}

	turn, err := h.Sessions.GetTurn(ctx, turnID)
	if err != nil {
		return fmt.Errorf("get turn: %w", err)
	}
	if turn == nil {
		h.Logger.Warn("turn not found, skipping summary", "turn_id", p.TurnID)
		return nil
	}
	if turn.HasSummary() {
		return nil
	}

	userMsg := truncate(turn.UserMessage, 200)
	if len(userMsg) < 50 {
		title := truncate(userMsg, 80)
		if title == "" {
			title = "Short exchange"
		}
		return h.Sessions.UpdateTurnSummary(ctx, turnID, title, userMsg)
	}

	if h.Provider != nil {
		title, summary, err := llm.SummarizeTurn(ctx, h.Provider, h.Settings.Context.TurnSummaryModel, userMsg)
		if err == nil {
			return h.Sessions.UpdateTurnSummary(ctx, turnID, title, summary)
		}
		h.Logger.Debug("LLM summary failed, using truncation", "error", err)
	}

	return h.Sessions.UpdateTurnSummary(ctx, turnID, truncate(userMsg, 80), truncate(userMsg, 200))
}

// ProcessEntityExtractJob keyword-matches a turn's text against known
// projects and people and records each match as evidence.
func (h *Handlers) ProcessEntityExtractJob(ctx context.Context, job *models.Job) error {
	var p models.TurnPayload
	if err := decodePayload(job.Payload, &p); err != nil {
		return fmt.Errorf("decode entity_extract payload: %w", err)
	}
	turnID, err := uuid.Parse(p.TurnID)
	if err != nil {
		return fmt.Errorf("invalid turn_id: %w", err)
	}

	turn, err := h.Sessions.GetTurn(ctx, turnID)
	if err != nil {
		return fmt.Errorf("get turn: %w", err)
	}
	if turn == nil {
		return nil
	}
	content, err := h.Sessions.GetTurnContent(ctx, turnID)
	if err != nil {
		return fmt.Errorf("get turn content: %w", err)
	}

	var textParts []string
	if turn.UserMessage != "" {
		textParts = append(textParts, turn.UserMessage)
	}
	if content != nil && content.AssistantText != "" {
		textParts = append(textParts, content.AssistantText)
	}
	fullText := strings.ToLower(strings.Join(textParts, "\n"))
	if fullText == "" {
		return nil
	}

	projects, err := h.Entities.ActiveProjects(ctx)
	if err != nil {
		return fmt.Errorf("load active projects: %w", err)
	}
	people, err := h.Entities.PeopleWithNames(ctx)
	if err != nil {
		return fmt.Errorf("load people: %w", err)
	}

	for _, proj := range projects {
		confidence := 0.0
		if wordBoundaryMatch(strings.ToLower(proj.Slug), fullText) {
			confidence = 0.9
		} else if proj.Name != "" && wordBoundaryMatch(strings.ToLower(proj.Name), fullText) {
			confidence = 0.7
		}
		if confidence > 0 {
			if err := h.Sessions.InsertTurnEntity(ctx, &models.AgentTurnEntity{
				TurnID: turnID, EntityType: models.EntityTypeProject, EntityID: proj.ID,
				DisplayName: proj.Name, Confidence: confidence,
			}); err != nil {
				return fmt.Errorf("insert project entity: %w", err)
			}
		}
	}

	for _, person := range people {
		if len(person.Name) <= 2 {
			continue
		}
		if wordBoundaryMatch(strings.ToLower(person.Name), fullText) {
			if err := h.Sessions.InsertTurnEntity(ctx, &models.AgentTurnEntity{
				TurnID: turnID, EntityType: models.EntityTypePerson, EntityID: person.ID,
				DisplayName: person.Name, Confidence: 0.8,
			}); err != nil {
				return fmt.Errorf("insert person entity: %w", err)
			}
		}
	}

	return nil
}

// ProcessArtifactExtractJob walks a turn's raw payload and records its
// files/commands/errors/tool-call artifacts plus the content summary columns.
func (h *Handlers) ProcessArtifactExtractJob(ctx context.Context, job *models.Job) error {
	var p models.TurnPayload
	if err := decodePayload(job.Payload, &p); err != nil {
		return fmt.Errorf("decode artifact_extract payload: %w", err)
	}
	turnID, err := uuid.Parse(p.TurnID)
	if err != nil {
		return fmt.Errorf("invalid turn_id: %w", err)
	}

	content, err := h.Sessions.GetTurnContent(ctx, turnID)
	if err != nil {
		return fmt.Errorf("get turn content: %w", err)
	}
	if content == nil || content.RawJSONL == "" {
		return nil
	}

	result := artifact.Extract(content.RawJSONL)

	for _, a := range result.Artifacts {
		if err := h.Sessions.InsertTurnArtifact(ctx, &models.AgentTurnArtifact{
			TurnID: turnID, Type: a.Type, Value: a.Value, Metadata: a.Metadata,
		}); err != nil {
			return fmt.Errorf("insert artifact: %w", err)
		}
	}

	if err := h.Sessions.UpdateTurnExtraction(ctx, turnID, result.FilesTouched, result.CommandsRun, result.ErrorsEncountered, result.ToolCallCount); err != nil {
		return fmt.Errorf("update turn extraction: %w", err)
	}

	h.Logger.Info("artifacts extracted",
		"turn_id", turnID, "artifacts", len(result.Artifacts),
		"files", len(result.FilesTouched), "commands", len(result.CommandsRun), "errors", len(result.ErrorsEncountered))
	return nil
}

// ProcessSessionSummaryJob concatenates turn titles/summaries into an
// aggregate session title and summary, then enqueues skill extraction.
func (h *Handlers) ProcessSessionSummaryJob(ctx context.Context, job *models.Job) error {
	var p models.SessionPayload
	if err := decodePayload(job.Payload, &p); err != nil {
		return fmt.Errorf("decode session_summary payload: %w", err)
	}

	session, found, err := h.Sessions.GetBySessionID(ctx, p.SessionID)
	if err != nil {
		return fmt.Errorf("get session: %w", err)
	}
	if !found {
		return nil
	}

	turns, err := h.Sessions.ListTurns(ctx, session.ID)
	if err != nil {
		return fmt.Errorf("list turns: %w", err)
	}
	sort.Slice(turns, func(i, j int) bool { return turns[i].TurnNumber < turns[j].TurnNumber })

	var parts []string
	for _, t := range turns {
		if t.TurnTitle != "" {
			parts = append(parts, t.TurnTitle)
		} else if t.UserMessage != "" {
			parts = append(parts, truncate(t.UserMessage, 80))
		}
	}
	if len(parts) == 0 {
		return nil
	}

	title := truncate(parts[0], 100)
	summary := truncate(strings.Join(parts, "; "), 500)

	if err := h.Sessions.UpdateSessionSummary(ctx, session.ID, title, summary, true); err != nil {
		return fmt.Errorf("update session summary: %w", err)
	}
	h.Logger.Info("session summary generated", "session_id", p.SessionID)

	if _, err := h.Jobs.Enqueue(ctx, models.JobKindSkillExtract,
		map[string]interface{}{"session_id": p.SessionID},
		ptr("skill_extract:"+p.SessionID), models.PrioritySkillExtract, models.DefaultMaxAttempts,
	); err != nil {
		return fmt.Errorf("enqueue skill_extract: %w", err)
	}
	return nil
}

// ProcessSkillExtractJob analyzes a completed session and, if it
// qualifies, generates and installs a skill from it.
func (h *Handlers) ProcessSkillExtractJob(ctx context.Context, job *models.Job) error {
	var p models.SessionPayload
	if err := decodePayload(job.Payload, &p); err != nil {
		return fmt.Errorf("decode skill_extract payload: %w", err)
	}

	session, found, err := h.Sessions.GetBySessionID(ctx, p.SessionID)
	if err != nil {
		return fmt.Errorf("get session: %w", err)
	}
	if !found {
		return nil
	}

	candidate, err := skill.AnalyzeSessionForSkill(ctx, h.Sessions, h.Skills, h.Settings.Skills, session)
	if err != nil {
		return fmt.Errorf("analyze session for skill: %w", err)
	}
	if candidate == nil {
		h.Logger.Debug("session did not qualify for skill", "session_id", p.SessionID)
		return nil
	}

	if h.Provider == nil {
		h.Logger.Debug("no LLM provider configured, cannot generate skill")
		return nil
	}

	generated, err := skill.GenerateSkillMD(ctx, h.Provider, h.Settings.Skills.SkillGenerationModel, candidate.Description, candidate.Context, "auto")
	if err != nil {
		h.Logger.Debug("skill generation failed", "session_id", p.SessionID, "error", err)
		return nil
	}

	path, err := skill.InstallSkill(generated.Name, generated.FullContent, "personal", "", false, nil)
	if err != nil {
		h.Logger.Debug("skipped skill install", "session_id", p.SessionID, "error", err)
		return nil
	}

	record := &models.GeneratedSkillRecord{
		Name:             generated.Name,
		Description:      generated.Description,
		Source:           models.SkillSourceAuto,
		SourceSessionID:  &session.ID,
		InstalledPath:    path,
		Scope:            models.SkillScopePersonal,
		QualityScore:     candidate.QualityScore,
		SkillContentHash: skill.ComputeDescriptionHash(generated.Description),
	}
	if err := h.Skills.InsertSkillRecord(ctx, record); err != nil {
		return fmt.Errorf("insert skill record: %w", err)
	}

	h.Logger.Info("auto-generated skill", "name", generated.Name, "session_id", p.SessionID, "path", path)
	return nil
}

// wordBoundaryMatch applies the same \b...\b whole-word rule worker.go
// uses for keyword entity matching.
func wordBoundaryMatch(pattern, text string) bool {
	if pattern == "" {
		return false
	}
	re, err := regexp.Compile(`\b` + regexp.QuoteMeta(pattern) + `\b`)
	if err != nil {
		return strings.Contains(text, pattern)
	}
	return re.MatchString(text)
}

func truncate(s string, n int) string {
	if len(s) <= n {
		return s
	}
	return s[:n]
}
