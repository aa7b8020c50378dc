package models

import (
	"time"

	"github.com/google/uuid"
)

// EntityType is the closed set of domain-entity kinds a turn can be linked to.
type EntityType string

const (
	EntityTypeProject EntityType = "project"
	EntityTypePerson  EntityType = "person"
)

// AgentTurnEntity links a turn to a domain entity match found during
// entity_extract. Duplicate rows per turn are allowed — each is a
// separate piece of evidence (spec.md §4.9).
type AgentTurnEntity struct {
	ID          uuid.UUID
	TurnID      uuid.UUID
	EntityType  EntityType
	EntityID    uuid.UUID
	DisplayName string
	Confidence  float64
	CreatedAt   time.Time
}

// ArtifactType is the closed set of artifact kinds the extractor emits.
type ArtifactType string

const (
	ArtifactTypeFileRead  ArtifactType = "file_read"
	ArtifactTypeFileWrite ArtifactType = "file_write"
	ArtifactTypeFileEdit  ArtifactType = "file_edit"
	ArtifactTypeCommand   ArtifactType = "command"
	ArtifactTypeError     ArtifactType = "error"
	ArtifactTypeToolCall  ArtifactType = "tool_call"
)

// AgentTurnArtifact is one extracted item (a file touched, a command run,
// an error surfaced, or a generic tool call) from a turn's raw payload.
type AgentTurnArtifact struct {
	ID        uuid.UUID
	TurnID    uuid.UUID
	Type      ArtifactType
	Value     string
	Metadata  map[string]interface{}
	CreatedAt time.Time
}
