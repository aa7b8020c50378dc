package postgres

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"focus/internal/domain/models"
	"focus/internal/domain/repositories"
)

// EntityRepository implements repositories.EntityStore: read-only access
// to the projects/people/tasks/commitments/sprints schema plus the
// session/turn queries the retriever joins against it. Grounded on
// original_source/simon/context/retriever.py's per-source query shapes.
type EntityRepository struct {
	pool   *pgxpool.Pool
	tables *TableNames
	logger *slog.Logger
}

func NewEntityRepository(pool *pgxpool.Pool, tables *TableNames, logger *slog.Logger) repositories.EntityStore {
	return &EntityRepository{pool: pool, tables: tables, logger: logger}
}

func (r *EntityRepository) ActiveProjects(ctx context.Context) ([]models.Project, error) {
	query := fmt.Sprintf(`SELECT id, slug, name FROM %s WHERE status = 'active'`, r.tables.Projects)
	rows, err := r.pool.Query(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("load active projects: %w", err)
	}
	defer rows.Close()

	var out []models.Project
	for rows.Next() {
		var p models.Project
		if err := rows.Scan(&p.ID, &p.Slug, &p.Name); err != nil {
			return nil, fmt.Errorf("scan project: %w", err)
		}
		p.Status = "active"
		out = append(out, p)
	}
	return out, rows.Err()
}

func (r *EntityRepository) PeopleWithNames(ctx context.Context) ([]models.Person, error) {
	query := fmt.Sprintf(`SELECT id, name, COALESCE(email, '') FROM %s WHERE name IS NOT NULL AND name != ''`, r.tables.People)
	rows, err := r.pool.Query(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("load people: %w", err)
	}
	defer rows.Close()

	var out []models.Person
	for rows.Next() {
		var p models.Person
		if err := rows.Scan(&p.ID, &p.Name, &p.Email); err != nil {
			return nil, fmt.Errorf("scan person: %w", err)
		}
		out = append(out, p)
	}
	return out, rows.Err()
}

func (r *EntityRepository) FindActiveProjectBySlug(ctx context.Context, slug string) (*models.Project, bool, error) {
	query := fmt.Sprintf(`SELECT id, slug, name FROM %s WHERE slug = $1 AND status = 'active'`, r.tables.Projects)
	var p models.Project
	err := r.pool.QueryRow(ctx, query, slug).Scan(&p.ID, &p.Slug, &p.Name)
	if err != nil {
		if IsPgNoRowsError(err) {
			return nil, false, nil
		}
		return nil, false, fmt.Errorf("find project by slug: %w", err)
	}
	p.Status = "active"
	return &p, true, nil
}

func (r *EntityRepository) turnRowQuery(extraWhere, orderAndLimit string) string {
	return fmt.Sprintf(`
		SELECT t.id, t.session_id, t.turn_number, t.user_message, t.assistant_summary, t.turn_title,
		       t.content_hash, t.tool_names, t.started_at, t.ended_at, t.created_at, t.updated_at,
		       c.id, c.raw_jsonl, c.assistant_text, c.files_touched, c.commands_run, c.errors_encountered, c.tool_call_count,
		       s.workspace_path
		FROM %s t
		JOIN %s s ON s.id = t.session_id
		LEFT JOIN %s c ON c.turn_id = t.id
		WHERE %s
		%s
	`, r.tables.Turns, r.tables.Sessions, r.tables.TurnContent, extraWhere, orderAndLimit)
}

func scanTurnsWithSession(rows pgx.Rows) ([]repositories.TurnWithSession, error) {
	defer rows.Close()
	var out []repositories.TurnWithSession
	for rows.Next() {
		var tws repositories.TurnWithSession
		var contentID *uuid.UUID
		var rawJSONL, assistantText *string
		var filesTouched, commandsRun, errorsEncountered []string
		var toolCallCount *int

		if err := rows.Scan(
			&tws.Turn.ID, &tws.Turn.SessionID, &tws.Turn.TurnNumber, &tws.Turn.UserMessage,
			&tws.Turn.AssistantSummary, &tws.Turn.TurnTitle, &tws.Turn.ContentHash, &tws.Turn.ToolNames,
			&tws.Turn.StartedAt, &tws.Turn.EndedAt, &tws.Turn.CreatedAt, &tws.Turn.UpdatedAt,
			&contentID, &rawJSONL, &assistantText, &filesTouched, &commandsRun, &errorsEncountered, &toolCallCount,
			&tws.WorkspacePath,
		); err != nil {
			return nil, fmt.Errorf("scan turn with session: %w", err)
		}

		if contentID != nil {
			tws.Content = &models.AgentTurnContent{
				ID: *contentID, TurnID: tws.Turn.ID,
				FilesTouched: filesTouched, CommandsRun: commandsRun, ErrorsEncountered: errorsEncountered,
			}
			if rawJSONL != nil {
				tws.Content.RawJSONL = *rawJSONL
			}
			if assistantText != nil {
				tws.Content.AssistantText = *assistantText
			}
			if toolCallCount != nil {
				tws.Content.ToolCallCount = *toolCallCount
			}
		}
		out = append(out, tws)
	}
	return out, rows.Err()
}

func (r *EntityRepository) RecentTurns(ctx context.Context, projectID uuid.UUID, limit int) ([]repositories.TurnWithSession, error) {
	query := r.turnRowQuery("s.project_id = $1", "ORDER BY t.started_at DESC NULLS LAST LIMIT $2")
	rows, err := r.pool.Query(ctx, query, projectID, limit)
	if err != nil {
		return nil, fmt.Errorf("recent turns: %w", err)
	}
	return scanTurnsWithSession(rows)
}

func (r *EntityRepository) WorkspaceTurns(ctx context.Context, workspaceProject string, limit int) ([]repositories.TurnWithSession, error) {
	query := r.turnRowQuery("s.workspace_path ILIKE '%' || $1 || '%'", "ORDER BY t.started_at DESC NULLS LAST LIMIT $2")
	rows, err := r.pool.Query(ctx, query, workspaceProject, limit)
	if err != nil {
		return nil, fmt.Errorf("workspace turns: %w", err)
	}
	return scanTurnsWithSession(rows)
}

func (r *EntityRepository) GlobalRecentTurns(ctx context.Context, limit int) ([]repositories.TurnWithSession, error) {
	query := r.turnRowQuery("TRUE", "ORDER BY t.started_at DESC NULLS LAST LIMIT $1")
	rows, err := r.pool.Query(ctx, query, limit)
	if err != nil {
		return nil, fmt.Errorf("global recent turns: %w", err)
	}
	return scanTurnsWithSession(rows)
}

func (r *EntityRepository) TurnsByFile(ctx context.Context, path string, limit int) ([]repositories.TurnWithSession, error) {
	query := r.turnRowQuery("c.files_touched @> ARRAY[$1::text]", "ORDER BY t.started_at DESC NULLS LAST LIMIT $2")
	rows, err := r.pool.Query(ctx, query, path, limit)
	if err != nil {
		return nil, fmt.Errorf("turns by file: %w", err)
	}
	return scanTurnsWithSession(rows)
}

func (r *EntityRepository) RecentErrorTurns(ctx context.Context, projectID uuid.UUID, limit int) ([]repositories.TurnWithSession, error) {
	query := r.turnRowQuery("s.project_id = $1 AND c.errors_encountered IS NOT NULL AND array_length(c.errors_encountered, 1) > 0", "ORDER BY t.started_at DESC NULLS LAST LIMIT $2")
	rows, err := r.pool.Query(ctx, query, projectID, limit)
	if err != nil {
		return nil, fmt.Errorf("recent error turns: %w", err)
	}
	return scanTurnsWithSession(rows)
}

func (r *EntityRepository) ActiveTasks(ctx context.Context, projectID uuid.UUID, limit int) ([]models.Task, error) {
	query := fmt.Sprintf(`
		SELECT id, project_id, title, status, priority, due_date
		FROM %s
		WHERE project_id = $1 AND status IN ('in_progress', 'waiting', 'backlog')
		ORDER BY
			CASE status WHEN 'in_progress' THEN 0 WHEN 'waiting' THEN 1 ELSE 2 END,
			CASE priority WHEN 'urgent' THEN 0 WHEN 'high' THEN 1 WHEN 'normal' THEN 2 ELSE 3 END
		LIMIT $2
	`, r.tables.Tasks)
	rows, err := r.pool.Query(ctx, query, projectID, limit)
	if err != nil {
		return nil, fmt.Errorf("active tasks: %w", err)
	}
	defer rows.Close()

	var out []models.Task
	for rows.Next() {
		var t models.Task
		if err := rows.Scan(&t.ID, &t.ProjectID, &t.Title, &t.Status, &t.Priority, &t.DueDate); err != nil {
			return nil, fmt.Errorf("scan task: %w", err)
		}
		out = append(out, t)
	}
	return out, rows.Err()
}

func (r *EntityRepository) OpenCommitments(ctx context.Context, projectID *uuid.UUID, limit int) ([]models.Commitment, error) {
	var query string
	var rows pgx.Rows
	var err error
	base := fmt.Sprintf(`
		SELECT id, person_id, project_id, direction, description, deadline, status
		FROM %s WHERE status = 'open'
	`, r.tables.Commitments)
	if projectID != nil {
		query = base + ` AND project_id = $1 ORDER BY deadline ASC NULLS LAST LIMIT $2`
		rows, err = r.pool.Query(ctx, query, *projectID, limit)
	} else {
		query = base + ` ORDER BY deadline ASC NULLS LAST LIMIT $1`
		rows, err = r.pool.Query(ctx, query, limit)
	}
	if err != nil {
		return nil, fmt.Errorf("open commitments: %w", err)
	}
	defer rows.Close()

	var out []models.Commitment
	for rows.Next() {
		var c models.Commitment
		if err := rows.Scan(&c.ID, &c.PersonID, &c.ProjectID, &c.Direction, &c.Description, &c.Deadline, &c.Status); err != nil {
			return nil, fmt.Errorf("scan commitment: %w", err)
		}
		out = append(out, c)
	}
	return out, rows.Err()
}

func (r *EntityRepository) PersonByNameLike(ctx context.Context, name string, limit int) ([]models.Person, error) {
	query := fmt.Sprintf(`SELECT id, name, COALESCE(email, '') FROM %s WHERE name ILIKE $1 LIMIT $2`, r.tables.People)
	rows, err := r.pool.Query(ctx, query, "%"+name+"%", limit)
	if err != nil {
		return nil, fmt.Errorf("person by name: %w", err)
	}
	defer rows.Close()

	var out []models.Person
	for rows.Next() {
		var p models.Person
		if err := rows.Scan(&p.ID, &p.Name, &p.Email); err != nil {
			return nil, fmt.Errorf("scan person: %w", err)
		}
		out = append(out, p)
	}
	return out, rows.Err()
}

func (r *EntityRepository) ActiveSprints(ctx context.Context, limit int) ([]models.Sprint, error) {
	query := fmt.Sprintf(`
		SELECT id, name, project_id, priority_boost, starts_at, ends_at, is_active
		FROM %s WHERE is_active AND ends_at > now()
		ORDER BY ends_at ASC LIMIT $1
	`, r.tables.Sprints)
	rows, err := r.pool.Query(ctx, query, limit)
	if err != nil {
		return nil, fmt.Errorf("active sprints: %w", err)
	}
	defer rows.Close()

	var out []models.Sprint
	for rows.Next() {
		var s models.Sprint
		if err := rows.Scan(&s.ID, &s.Name, &s.ProjectID, &s.PriorityBoost, &s.StartsAt, &s.EndsAt, &s.IsActive); err != nil {
			return nil, fmt.Errorf("scan sprint: %w", err)
		}
		out = append(out, s)
	}
	return out, rows.Err()
}
