package models

import (
	"time"

	"github.com/google/uuid"
)

// SkillSource records how a skill came to be generated.
type SkillSource string

const (
	SkillSourceAuto     SkillSource = "auto"
	SkillSourceManual   SkillSource = "manual"
	SkillSourceRegistry SkillSource = "registry"
)

// SkillScope is where a skill file is installed.
type SkillScope string

const (
	SkillScopePersonal SkillScope = "personal"
	SkillScopeProject  SkillScope = "project"
)

// GeneratedSkillRecord tracks an installed skill for dedup and daily-cap
// bookkeeping (spec.md §4.10's qualification gates).
type GeneratedSkillRecord struct {
	ID               uuid.UUID
	Name             string
	Description      string
	Source           SkillSource
	SourceSessionID  *uuid.UUID
	InstalledPath    string
	Scope            SkillScope
	QualityScore     float64
	SkillContentHash string
	IsActive         bool
	CreatedAt        time.Time
	UpdatedAt        time.Time
}
