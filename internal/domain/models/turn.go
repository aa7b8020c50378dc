package models

import (
	"time"

	"github.com/google/uuid"
)

// AgentTurn is one user message and the contiguous assistant records that
// followed it (see GLOSSARY). turn_number is 0-based and unique within a
// session, monotonic in user-message order.
type AgentTurn struct {
	ID               uuid.UUID
	SessionID        uuid.UUID
	TurnNumber       int
	UserMessage      string
	AssistantSummary string
	TurnTitle        string
	ContentHash      string // MD5 of raw_jsonl, the dedup key
	ToolNames        []string
	StartedAt        *time.Time
	EndedAt          *time.Time
	CreatedAt        time.Time
	UpdatedAt        time.Time
}

// HasSummary reports whether the turn already carries an assistant
// summary, the no-op condition turn_summary's handler checks for.
func (t *AgentTurn) HasSummary() bool {
	return t.AssistantSummary != ""
}

// AgentTurnContent is the one-to-one raw-payload and extraction-summary
// row for a turn.
type AgentTurnContent struct {
	ID                uuid.UUID
	TurnID            uuid.UUID
	RawJSONL          string
	AssistantText     string
	FilesTouched      []string
	CommandsRun       []string
	ErrorsEncountered []string
	ToolCallCount     int
	CreatedAt         time.Time
	UpdatedAt         time.Time
}
