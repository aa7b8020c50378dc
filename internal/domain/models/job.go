package models

import (
	"time"

	"github.com/google/uuid"
)

// JobKind is the closed set of job kinds the queue dispatches. Modeled as a
// tagged variant rather than a free string per spec.md §9's design note.
type JobKind string

const (
	JobKindSessionProcess JobKind = "session_process"
	JobKindTurnSummary    JobKind = "turn_summary"
	JobKindEntityExtract  JobKind = "entity_extract"
	JobKindArtifactExtract JobKind = "artifact_extract"
	JobKindSessionSummary JobKind = "session_summary"
	JobKindSkillExtract   JobKind = "skill_extract"
)

// AllJobKinds lists every kind the worker's main loop claims against.
var AllJobKinds = []JobKind{
	JobKindSessionProcess,
	JobKindTurnSummary,
	JobKindEntityExtract,
	JobKindArtifactExtract,
	JobKindSessionSummary,
	JobKindSkillExtract,
}

// JobStatus is the closed lifecycle a Job row moves through.
type JobStatus string

const (
	JobStatusQueued     JobStatus = "queued"
	JobStatusProcessing JobStatus = "processing"
	JobStatusRetry      JobStatus = "retry"
	JobStatusDone       JobStatus = "done"
	JobStatusFailed     JobStatus = "failed"
)

// Job is a single durable queue row. Payload is left as a JSON map rather
// than per-kind structs at the storage boundary (it is opaque to the
// queue itself); handlers decode it into the shape their kind expects.
type Job struct {
	ID           uuid.UUID
	Kind         JobKind
	Payload      map[string]interface{}
	DedupeKey    *string
	Priority     int
	Attempts     int
	MaxAttempts  int
	Status       JobStatus
	LockedUntil  *time.Time
	ErrorMessage *string
	CreatedAt    time.Time
	UpdatedAt    time.Time
}

// Default priorities per spec.md §4.8's handler ordering table, plus the
// default attempt limit and lease length.
const (
	PrioritySessionProcess  = 5
	PriorityTurnSummary     = 15
	PriorityArtifactExtract = 18
	PriorityEntityExtract   = 20
	PrioritySessionSummary  = 25
	PrioritySkillExtract    = 30

	DefaultMaxAttempts = 10
	DefaultLeaseSeconds = 300
)

// SessionProcessPayload is the payload shape for a session_process job.
type SessionProcessPayload struct {
	SessionID      string `json:"session_id"`
	TranscriptPath string `json:"transcript_path"`
	WorkspacePath  string `json:"workspace_path"`
}

// TurnPayload is the payload shape shared by turn_summary, entity_extract,
// and artifact_extract jobs: each carries only a turn id.
type TurnPayload struct {
	TurnID string `json:"turn_id"`
}

// SessionPayload is the payload shape shared by session_summary and
// skill_extract jobs: each carries only a session id.
type SessionPayload struct {
	SessionID string `json:"session_id"`
}
