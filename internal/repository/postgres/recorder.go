package postgres

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"focus/internal/domain/models"
	"focus/internal/domain/repositories"
)

// SessionRepository implements repositories.SessionStore over the
// agent_sessions/agent_turns/agent_turn_content/agent_turn_entities/
// agent_turn_artifacts tables.
type SessionRepository struct {
	pool    *pgxpool.Pool
	tables  *TableNames
	logger  *slog.Logger
}

func NewSessionRepository(pool *pgxpool.Pool, tables *TableNames, logger *slog.Logger) repositories.SessionStore {
	return &SessionRepository{pool: pool, tables: tables, logger: logger}
}

func (r *SessionRepository) GetBySessionID(ctx context.Context, sessionID string) (*models.AgentSession, bool, error) {
	exec := GetExecutor(ctx, r.pool)
	query := fmt.Sprintf(`
		SELECT id, session_id, transcript_path, workspace_path, project_id, session_title,
		       session_summary, started_at, last_activity_at, turn_count, is_processed, created_at, updated_at
		FROM %s WHERE session_id = $1
	`, r.tables.Sessions)

	session, err := scanSession(exec.QueryRow(ctx, query, sessionID))
	if err != nil {
		if IsPgNoRowsError(err) {
			return nil, false, nil
		}
		return nil, false, fmt.Errorf("get session by session_id: %w", err)
	}
	return session, true, nil
}

func (r *SessionRepository) GetByID(ctx context.Context, id uuid.UUID) (*models.AgentSession, error) {
	exec := GetExecutor(ctx, r.pool)
	query := fmt.Sprintf(`
		SELECT id, session_id, transcript_path, workspace_path, project_id, session_title,
		       session_summary, started_at, last_activity_at, turn_count, is_processed, created_at, updated_at
		FROM %s WHERE id = $1
	`, r.tables.Sessions)

	session, err := scanSession(exec.QueryRow(ctx, query, id))
	if err != nil {
		if IsPgNoRowsError(err) {
			return nil, fmt.Errorf("session %s: %w", id, domainErrNotFound)
		}
		return nil, fmt.Errorf("get session: %w", err)
	}
	return session, nil
}

func (r *SessionRepository) CreateSession(ctx context.Context, session *models.AgentSession) error {
	exec := GetExecutor(ctx, r.pool)
	if session.ID == uuid.Nil {
		session.ID = uuid.New()
	}
	query := fmt.Sprintf(`
		INSERT INTO %s (id, session_id, transcript_path, workspace_path, session_title, session_summary,
		                 started_at, last_activity_at, turn_count, is_processed, created_at, updated_at)
		VALUES ($1, $2, $3, $4, '', '', $5, $6, $7, false, now(), now())
	`, r.tables.Sessions)
	_, err := exec.Exec(ctx, query, session.ID, session.SessionID, session.TranscriptPath,
		session.WorkspacePath, session.StartedAt, session.LastActivityAt, session.TurnCount)
	if err != nil {
		if IsPgDuplicateError(err) {
			return fmt.Errorf("session %s: %w", session.SessionID, domainErrConflict)
		}
		return fmt.Errorf("create session: %w", err)
	}
	return nil
}

func (r *SessionRepository) UpdateSessionMeta(ctx context.Context, session *models.AgentSession) error {
	exec := GetExecutor(ctx, r.pool)
	query := fmt.Sprintf(`
		UPDATE %s SET started_at = $2, last_activity_at = $3, turn_count = $4, transcript_path = $5, updated_at = now()
		WHERE id = $1
	`, r.tables.Sessions)
	_, err := exec.Exec(ctx, query, session.ID, session.StartedAt, session.LastActivityAt, session.TurnCount, session.TranscriptPath)
	if err != nil {
		return fmt.Errorf("update session meta: %w", err)
	}
	return nil
}

func (r *SessionRepository) SetSessionProjectID(ctx context.Context, sessionID, projectID uuid.UUID) (bool, error) {
	exec := GetExecutor(ctx, r.pool)
	query := fmt.Sprintf(`UPDATE %s SET project_id = $2, updated_at = now() WHERE id = $1 AND project_id IS NULL`, r.tables.Sessions)
	tag, err := exec.Exec(ctx, query, sessionID, projectID)
	if err != nil {
		if IsPgForeignKeyError(err) {
			// Project was deleted between the classifier's lookup and this
			// write; treat it the same as "no matching project" rather than
			// failing the whole session job.
			return false, nil
		}
		return false, fmt.Errorf("set session project: %w", err)
	}
	return tag.RowsAffected() > 0, nil
}

func (r *SessionRepository) UpdateSessionSummary(ctx context.Context, sessionID uuid.UUID, title, summary string, isProcessed bool) error {
	exec := GetExecutor(ctx, r.pool)
	query := fmt.Sprintf(`UPDATE %s SET session_title = $2, session_summary = $3, is_processed = $4, updated_at = now() WHERE id = $1`, r.tables.Sessions)
	_, err := exec.Exec(ctx, query, sessionID, title, summary, isProcessed)
	if err != nil {
		return fmt.Errorf("update session summary: %w", err)
	}
	return nil
}

func (r *SessionRepository) ExistingTurnHashes(ctx context.Context, sessionID uuid.UUID) (map[string]bool, error) {
	exec := GetExecutor(ctx, r.pool)
	query := fmt.Sprintf(`SELECT content_hash FROM %s WHERE session_id = $1`, r.tables.Turns)
	rows, err := exec.Query(ctx, query, sessionID)
	if err != nil {
		return nil, fmt.Errorf("load existing turn hashes: %w", err)
	}
	defer rows.Close()

	hashes := make(map[string]bool)
	for rows.Next() {
		var hash string
		if err := rows.Scan(&hash); err != nil {
			return nil, fmt.Errorf("scan turn hash: %w", err)
		}
		hashes[hash] = true
	}
	return hashes, rows.Err()
}

func (r *SessionRepository) InsertTurn(ctx context.Context, turn *models.AgentTurn, content *models.AgentTurnContent) error {
	exec := GetExecutor(ctx, r.pool)
	if turn.ID == uuid.Nil {
		turn.ID = uuid.New()
	}
	turnQuery := fmt.Sprintf(`
		INSERT INTO %s (id, session_id, turn_number, user_message, assistant_summary, turn_title,
		                 content_hash, tool_names, started_at, ended_at, created_at, updated_at)
		VALUES ($1, $2, $3, $4, '', '', $5, $6, $7, $8, now(), now())
	`, r.tables.Turns)
	_, err := exec.Exec(ctx, turnQuery, turn.ID, turn.SessionID, turn.TurnNumber, turn.UserMessage,
		turn.ContentHash, turn.ToolNames, turn.StartedAt, turn.EndedAt)
	if err != nil {
		return fmt.Errorf("insert turn: %w", err)
	}

	content.ID = uuid.New()
	content.TurnID = turn.ID
	contentQuery := fmt.Sprintf(`
		INSERT INTO %s (id, turn_id, raw_jsonl, assistant_text, files_touched, commands_run,
		                 errors_encountered, tool_call_count, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, now(), now())
	`, r.tables.TurnContent)
	_, err = exec.Exec(ctx, contentQuery, content.ID, content.TurnID, content.RawJSONL, content.AssistantText,
		content.FilesTouched, content.CommandsRun, content.ErrorsEncountered, content.ToolCallCount)
	if err != nil {
		return fmt.Errorf("insert turn content: %w", err)
	}
	return nil
}

func (r *SessionRepository) GetTurn(ctx context.Context, turnID uuid.UUID) (*models.AgentTurn, error) {
	exec := GetExecutor(ctx, r.pool)
	query := fmt.Sprintf(`
		SELECT id, session_id, turn_number, user_message, assistant_summary, turn_title,
		       content_hash, tool_names, started_at, ended_at, created_at, updated_at
		FROM %s WHERE id = $1
	`, r.tables.Turns)
	turn, err := scanTurn(exec.QueryRow(ctx, query, turnID))
	if err != nil {
		if IsPgNoRowsError(err) {
			return nil, fmt.Errorf("turn %s: %w", turnID, domainErrNotFound)
		}
		return nil, fmt.Errorf("get turn: %w", err)
	}
	return turn, nil
}

func (r *SessionRepository) GetTurnContent(ctx context.Context, turnID uuid.UUID) (*models.AgentTurnContent, error) {
	exec := GetExecutor(ctx, r.pool)
	query := fmt.Sprintf(`
		SELECT id, turn_id, raw_jsonl, assistant_text, files_touched, commands_run,
		       errors_encountered, tool_call_count, created_at, updated_at
		FROM %s WHERE turn_id = $1
	`, r.tables.TurnContent)
	var c models.AgentTurnContent
	err := exec.QueryRow(ctx, query, turnID).Scan(&c.ID, &c.TurnID, &c.RawJSONL, &c.AssistantText,
		&c.FilesTouched, &c.CommandsRun, &c.ErrorsEncountered, &c.ToolCallCount, &c.CreatedAt, &c.UpdatedAt)
	if err != nil {
		if IsPgNoRowsError(err) {
			return nil, fmt.Errorf("turn content %s: %w", turnID, domainErrNotFound)
		}
		return nil, fmt.Errorf("get turn content: %w", err)
	}
	return &c, nil
}

func (r *SessionRepository) UpdateTurnSummary(ctx context.Context, turnID uuid.UUID, title, summary string) error {
	exec := GetExecutor(ctx, r.pool)
	query := fmt.Sprintf(`UPDATE %s SET turn_title = $2, assistant_summary = $3, updated_at = now() WHERE id = $1`, r.tables.Turns)
	_, err := exec.Exec(ctx, query, turnID, title, summary)
	if err != nil {
		return fmt.Errorf("update turn summary: %w", err)
	}
	return nil
}

func (r *SessionRepository) UpdateTurnExtraction(ctx context.Context, turnID uuid.UUID, filesTouched, commandsRun, errorsEncountered []string, toolCallCount int) error {
	exec := GetExecutor(ctx, r.pool)
	// Only overwrite list columns when the extractor found something, matching
	// worker.py's "only overwrite if non-empty" rule; tool_call_count always sets.
	query := fmt.Sprintf(`
		UPDATE %s SET
			files_touched = CASE WHEN array_length($2::text[], 1) > 0 THEN $2 ELSE files_touched END,
			commands_run = CASE WHEN array_length($3::text[], 1) > 0 THEN $3 ELSE commands_run END,
			errors_encountered = CASE WHEN array_length($4::text[], 1) > 0 THEN $4 ELSE errors_encountered END,
			tool_call_count = $5,
			updated_at = now()
		WHERE turn_id = $1
	`, r.tables.TurnContent)
	_, err := exec.Exec(ctx, query, turnID, filesTouched, commandsRun, errorsEncountered, toolCallCount)
	if err != nil {
		return fmt.Errorf("update turn extraction: %w", err)
	}
	return nil
}

func (r *SessionRepository) ListTurns(ctx context.Context, sessionID uuid.UUID) ([]*models.AgentTurn, error) {
	exec := GetExecutor(ctx, r.pool)
	query := fmt.Sprintf(`
		SELECT id, session_id, turn_number, user_message, assistant_summary, turn_title,
		       content_hash, tool_names, started_at, ended_at, created_at, updated_at
		FROM %s WHERE session_id = $1 ORDER BY turn_number ASC
	`, r.tables.Turns)
	rows, err := exec.Query(ctx, query, sessionID)
	if err != nil {
		return nil, fmt.Errorf("list turns: %w", err)
	}
	defer rows.Close()
	return collectTurns(rows)
}

func (r *SessionRepository) ListTurnsWithoutSummary(ctx context.Context, sessionID uuid.UUID) ([]*models.AgentTurn, error) {
	exec := GetExecutor(ctx, r.pool)
	query := fmt.Sprintf(`
		SELECT id, session_id, turn_number, user_message, assistant_summary, turn_title,
		       content_hash, tool_names, started_at, ended_at, created_at, updated_at
		FROM %s WHERE session_id = $1 AND (assistant_summary IS NULL OR assistant_summary = '')
		ORDER BY turn_number ASC
	`, r.tables.Turns)
	rows, err := exec.Query(ctx, query, sessionID)
	if err != nil {
		return nil, fmt.Errorf("list turns without summary: %w", err)
	}
	defer rows.Close()
	return collectTurns(rows)
}

func (r *SessionRepository) InsertTurnEntity(ctx context.Context, entity *models.AgentTurnEntity) error {
	exec := GetExecutor(ctx, r.pool)
	if entity.ID == uuid.Nil {
		entity.ID = uuid.New()
	}
	query := fmt.Sprintf(`
		INSERT INTO %s (id, turn_id, entity_type, entity_id, display_name, confidence, created_at)
		VALUES ($1, $2, $3, $4, $5, $6, now())
	`, r.tables.TurnEntities)
	_, err := exec.Exec(ctx, query, entity.ID, entity.TurnID, string(entity.EntityType), entity.EntityID, entity.DisplayName, entity.Confidence)
	if err != nil {
		return fmt.Errorf("insert turn entity: %w", err)
	}
	return nil
}

func (r *SessionRepository) InsertTurnArtifact(ctx context.Context, artifact *models.AgentTurnArtifact) error {
	exec := GetExecutor(ctx, r.pool)
	if artifact.ID == uuid.Nil {
		artifact.ID = uuid.New()
	}
	metadataJSON, err := json.Marshal(artifact.Metadata)
	if err != nil {
		return fmt.Errorf("marshal artifact metadata: %w", err)
	}
	query := fmt.Sprintf(`
		INSERT INTO %s (id, turn_id, type, value, metadata, created_at)
		VALUES ($1, $2, $3, $4, $5, now())
	`, r.tables.TurnArtifacts)
	_, err = exec.Exec(ctx, query, artifact.ID, artifact.TurnID, string(artifact.Type), artifact.Value, metadataJSON)
	if err != nil {
		return fmt.Errorf("insert turn artifact: %w", err)
	}
	return nil
}

func scanSession(row pgx.Row) (*models.AgentSession, error) {
	var s models.AgentSession
	var startedAt, lastActivityAt *time.Time
	if err := row.Scan(&s.ID, &s.SessionID, &s.TranscriptPath, &s.WorkspacePath, &s.ProjectID,
		&s.SessionTitle, &s.SessionSummary, &startedAt, &lastActivityAt, &s.TurnCount, &s.IsProcessed,
		&s.CreatedAt, &s.UpdatedAt); err != nil {
		return nil, err
	}
	s.StartedAt = startedAt
	s.LastActivityAt = lastActivityAt
	return &s, nil
}

func scanTurn(row pgx.Row) (*models.AgentTurn, error) {
	var t models.AgentTurn
	if err := row.Scan(&t.ID, &t.SessionID, &t.TurnNumber, &t.UserMessage, &t.AssistantSummary, &t.TurnTitle,
		&t.ContentHash, &t.ToolNames, &t.StartedAt, &t.EndedAt, &t.CreatedAt, &t.UpdatedAt); err != nil {
		return nil, err
	}
	return &t, nil
}

func collectTurns(rows pgx.Rows) ([]*models.AgentTurn, error) {
	var turns []*models.AgentTurn
	for rows.Next() {
		var t models.AgentTurn
		if err := rows.Scan(&t.ID, &t.SessionID, &t.TurnNumber, &t.UserMessage, &t.AssistantSummary, &t.TurnTitle,
			&t.ContentHash, &t.ToolNames, &t.StartedAt, &t.EndedAt, &t.CreatedAt, &t.UpdatedAt); err != nil {
			return nil, fmt.Errorf("scan turn: %w", err)
		}
		turns = append(turns, &t)
	}
	return turns, rows.Err()
}
