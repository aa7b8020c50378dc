package models

import (
	"time"

	"github.com/google/uuid"
)

// The types below are read-only domain entities owned by a schema outside
// this spec's scope (spec.md §1's "embedding SQL schema" out-of-scope
// item). The classifier and retriever consume them; nothing in this
// module writes them. Field shapes follow original_source/simon/storage/models.py.

// Project is a tracked project the classifier/retriever match against.
type Project struct {
	ID     uuid.UUID
	Name   string
	Slug   string
	Tier   string // fleeting|simple|complex|life_thread
	Status string // active|paused|completed|abandoned
}

// Person is a tracked individual the classifier/retriever match against.
type Person struct {
	ID    uuid.UUID
	Name  string
	Email string
}

// Task is a tracked to-do item surfaced by the retriever's active-tasks source.
type Task struct {
	ID         uuid.UUID
	ProjectID  *uuid.UUID
	Title      string
	Status     string // backlog|in_progress|waiting|done
	Priority   string // urgent|high|normal|low
	DueDate    *time.Time
}

// Commitment is a tracked promise surfaced by the retriever's commitments source.
type Commitment struct {
	ID          uuid.UUID
	PersonID    *uuid.UUID
	ProjectID   *uuid.UUID
	Direction   string // from_me|to_me
	Description string
	Deadline    *time.Time
	Status      string // open|fulfilled|broken|cancelled
}

// Sprint is a tracked time-boxed push surfaced by the retriever's sprints source.
type Sprint struct {
	ID             uuid.UUID
	Name           string
	ProjectID      *uuid.UUID
	PriorityBoost  float64
	StartsAt       time.Time
	EndsAt         time.Time
	IsActive       bool
}
