package repositories

import (
	"context"

	"github.com/google/uuid"

	"focus/internal/domain/models"
)

// SessionStore persists AgentSession/AgentTurn/AgentTurnContent rows and
// backs both the Recorder (spec.md §4.4) and the pipeline handlers
// (spec.md §4.9) that mutate turns and sessions after recording.
type SessionStore interface {
	// GetBySessionID looks up a session by its external session_id.
	// found is false (not an error) when no row exists.
	GetBySessionID(ctx context.Context, sessionID string) (session *models.AgentSession, found bool, err error)

	// GetByID looks up a session by its internal id. Only the session
	// row is loaded; ListTurns returns its turns.
	GetByID(ctx context.Context, id uuid.UUID) (*models.AgentSession, error)

	// CreateSession inserts a new session row, assigning ID if unset.
	CreateSession(ctx context.Context, session *models.AgentSession) error

	// UpdateSessionMeta persists started_at/last_activity_at/turn_count/
	// transcript_path on an existing session.
	UpdateSessionMeta(ctx context.Context, session *models.AgentSession) error

	// SetSessionProjectID sets project_id only if currently unset;
	// returns whether it changed.
	SetSessionProjectID(ctx context.Context, sessionID, projectID uuid.UUID) (bool, error)

	// UpdateSessionSummary sets title/summary/is_processed.
	UpdateSessionSummary(ctx context.Context, sessionID uuid.UUID, title, summary string, isProcessed bool) error

	// ExistingTurnHashes eager-loads the set of content_hash values
	// already recorded for a session, avoiding N+1 lookups per turn
	// (spec.md §9's ORM-relationships design note).
	ExistingTurnHashes(ctx context.Context, sessionID uuid.UUID) (map[string]bool, error)

	// InsertTurn inserts a turn and its one-to-one content row together.
	InsertTurn(ctx context.Context, turn *models.AgentTurn, content *models.AgentTurnContent) error

	// GetTurn loads a turn by id.
	GetTurn(ctx context.Context, turnID uuid.UUID) (*models.AgentTurn, error)

	// GetTurnContent loads a turn's content row.
	GetTurnContent(ctx context.Context, turnID uuid.UUID) (*models.AgentTurnContent, error)

	// UpdateTurnSummary sets turn_title/assistant_summary.
	UpdateTurnSummary(ctx context.Context, turnID uuid.UUID, title, summary string) error

	// UpdateTurnExtraction sets the content row's post-extraction
	// summary columns.
	UpdateTurnExtraction(ctx context.Context, turnID uuid.UUID, filesTouched, commandsRun, errorsEncountered []string, toolCallCount int) error

	// ListTurns returns a session's turns ordered by turn_number ascending.
	ListTurns(ctx context.Context, sessionID uuid.UUID) ([]*models.AgentTurn, error)

	// ListTurnsWithoutSummary returns turns still lacking an assistant_summary.
	ListTurnsWithoutSummary(ctx context.Context, sessionID uuid.UUID) ([]*models.AgentTurn, error)

	// InsertTurnEntity inserts one entity-match row (duplicates allowed).
	InsertTurnEntity(ctx context.Context, entity *models.AgentTurnEntity) error

	// InsertTurnArtifact inserts one extracted artifact row.
	InsertTurnArtifact(ctx context.Context, artifact *models.AgentTurnArtifact) error
}

// SkillStore persists GeneratedSkillRecord rows for the skill subsystem's
// dedup and daily-cap bookkeeping.
type SkillStore interface {
	// CountAutoSkillsToday counts source=auto records created since
	// midnight UTC today.
	CountAutoSkillsToday(ctx context.Context) (int, error)

	// HasActiveSkillWithHash reports whether an active record already
	// shares the given skill_content_hash.
	HasActiveSkillWithHash(ctx context.Context, hash string) (bool, error)

	// InsertSkillRecord persists a newly installed skill.
	InsertSkillRecord(ctx context.Context, record *models.GeneratedSkillRecord) error
}
