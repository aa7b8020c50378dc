package postgres

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgxpool"

	"focus/internal/domain/models"
	"focus/internal/domain/repositories"
)

// SkillRepository implements repositories.SkillStore over generated_skills.
type SkillRepository struct {
	pool   *pgxpool.Pool
	table  string
	logger *slog.Logger
}

func NewSkillRepository(pool *pgxpool.Pool, tables *TableNames, logger *slog.Logger) repositories.SkillStore {
	return &SkillRepository{pool: pool, table: tables.GeneratedSkills, logger: logger}
}

func (r *SkillRepository) CountAutoSkillsToday(ctx context.Context) (int, error) {
	exec := GetExecutor(ctx, r.pool)
	query := fmt.Sprintf(`
		SELECT count(*) FROM %s
		WHERE source = 'auto' AND created_at >= date_trunc('day', now() AT TIME ZONE 'UTC')
	`, r.table)
	var n int
	if err := exec.QueryRow(ctx, query).Scan(&n); err != nil {
		return 0, fmt.Errorf("count today's auto skills: %w", err)
	}
	return n, nil
}

func (r *SkillRepository) HasActiveSkillWithHash(ctx context.Context, hash string) (bool, error) {
	exec := GetExecutor(ctx, r.pool)
	query := fmt.Sprintf(`SELECT EXISTS(SELECT 1 FROM %s WHERE skill_content_hash = $1 AND is_active)`, r.table)
	var exists bool
	if err := exec.QueryRow(ctx, query, hash).Scan(&exists); err != nil {
		return false, fmt.Errorf("check existing skill hash: %w", err)
	}
	return exists, nil
}

func (r *SkillRepository) InsertSkillRecord(ctx context.Context, record *models.GeneratedSkillRecord) error {
	exec := GetExecutor(ctx, r.pool)
	if record.ID == uuid.Nil {
		record.ID = uuid.New()
	}
	query := fmt.Sprintf(`
		INSERT INTO %s (id, name, description, source, source_session_id, installed_path, scope,
		                 quality_score, skill_content_hash, is_active, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, true, now(), now())
	`, r.table)
	_, err := exec.Exec(ctx, query, record.ID, record.Name, record.Description, string(record.Source),
		record.SourceSessionID, record.InstalledPath, string(record.Scope), record.QualityScore, record.SkillContentHash)
	if err != nil {
		return fmt.Errorf("insert skill record: %w", err)
	}
	return nil
}
