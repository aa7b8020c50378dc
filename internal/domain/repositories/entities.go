package repositories

import (
	"context"

	"github.com/google/uuid"

	"focus/internal/domain/models"
)

// EntityStore is the read-only access to the domain-entity schema
// (projects/people/tasks/commitments/sprints) that spec.md §1 scopes out
// of this module's writes but that the Classifier and Context Retriever
// consume.
type EntityStore interface {
	// ActiveProjects returns (slug, name) for all status=active projects,
	// the Classifier's load_entities step.
	ActiveProjects(ctx context.Context) ([]models.Project, error)

	// PeopleWithNames returns (name, email) for all people with a
	// non-empty name.
	PeopleWithNames(ctx context.Context) ([]models.Person, error)

	// FindActiveProjectBySlug looks up a single active project by slug,
	// used by session_process's project-linking step.
	FindActiveProjectBySlug(ctx context.Context, slug string) (project *models.Project, found bool, err error)

	// RecentTurns returns the most recent turns (by started_at desc) for
	// a project, joined through its sessions.
	RecentTurns(ctx context.Context, projectID uuid.UUID, limit int) ([]TurnWithSession, error)

	// WorkspaceTurns returns the most recent turns whose session's
	// workspace_path contains workspaceProject.
	WorkspaceTurns(ctx context.Context, workspaceProject string, limit int) ([]TurnWithSession, error)

	// GlobalRecentTurns returns the most recent turns across all sessions,
	// the fallback source when neither project nor workspace resolved.
	GlobalRecentTurns(ctx context.Context, limit int) ([]TurnWithSession, error)

	// TurnsByFile returns turns whose content.files_touched contains path.
	TurnsByFile(ctx context.Context, path string, limit int) ([]TurnWithSession, error)

	// RecentErrorTurns returns turns for a project whose content has a
	// non-empty errors_encountered, most recent first.
	RecentErrorTurns(ctx context.Context, projectID uuid.UUID, limit int) ([]TurnWithSession, error)

	// ActiveTasks returns tasks for a project with status in
	// {in_progress, waiting, backlog}, ordered by status then priority.
	ActiveTasks(ctx context.Context, projectID uuid.UUID, limit int) ([]models.Task, error)

	// OpenCommitments returns status=open commitments for a project
	// ordered by nearest deadline. If projectID is nil, returns global
	// open commitments instead.
	OpenCommitments(ctx context.Context, projectID *uuid.UUID, limit int) ([]models.Commitment, error)

	// PersonByNameLike returns up to limit people whose name ILIKE-matches name.
	PersonByNameLike(ctx context.Context, name string, limit int) ([]models.Person, error)

	// ActiveSprints returns sprints with is_active and ends_at > now(),
	// most-soon-ending first.
	ActiveSprints(ctx context.Context, limit int) ([]models.Sprint, error)
}

// TurnWithSession bundles a turn, its content row, and its owning
// session's workspace path — the shape the retriever's sources need to
// build ContextBlocks without a second round-trip per turn.
type TurnWithSession struct {
	Turn          models.AgentTurn
	Content       *models.AgentTurnContent
	WorkspacePath string
}
