package models

import (
	"time"

	"github.com/google/uuid"
)

// AgentSession is one recorded assistant session. Mutated only by the
// Recorder (metadata fields) or the session_process/session_summary
// pipeline handlers (project_id link, titles, is_processed).
type AgentSession struct {
	ID              uuid.UUID
	SessionID       string // external id, unique
	TranscriptPath  string
	WorkspacePath   string
	ProjectID       *uuid.UUID
	SessionTitle    string
	SessionSummary  string
	StartedAt       *time.Time
	LastActivityAt  *time.Time
	TurnCount       int
	IsProcessed     bool
	CreatedAt       time.Time
	UpdatedAt       time.Time
}
