package adminapi

import (
	"context"

	"github.com/google/uuid"

	"focus/internal/domain/models"
	"focus/internal/domain/repositories"
)

type fakeJobQueue struct {
	stats    map[models.JobStatus]int
	statsErr error
}

func (f *fakeJobQueue) Enqueue(ctx context.Context, kind models.JobKind, payload map[string]interface{}, dedupeKey *string, priority, maxAttempts int) (*models.Job, error) {
	return nil, nil
}
func (f *fakeJobQueue) Claim(ctx context.Context, kinds []models.JobKind, leaseSeconds int) (*models.Job, error) {
	return nil, nil
}
func (f *fakeJobQueue) Complete(ctx context.Context, jobID uuid.UUID) error { return nil }
func (f *fakeJobQueue) Fail(ctx context.Context, jobID uuid.UUID, errMessage string) error {
	return nil
}
func (f *fakeJobQueue) ExpireStaleLeases(ctx context.Context) (int, error) { return 0, nil }
func (f *fakeJobQueue) Stats(ctx context.Context) (map[models.JobStatus]int, error) {
	if f.statsErr != nil {
		return nil, f.statsErr
	}
	return f.stats, nil
}

var _ repositories.JobQueue = (*fakeJobQueue)(nil)

type fakeEntityStore struct {
	projects  []models.Project
	people    []models.Person
	turns     []repositories.TurnWithSession
	tasks     []models.Task
	loadErr   error
}

func (f *fakeEntityStore) ActiveProjects(ctx context.Context) ([]models.Project, error) {
	if f.loadErr != nil {
		return nil, f.loadErr
	}
	return f.projects, nil
}
func (f *fakeEntityStore) PeopleWithNames(ctx context.Context) ([]models.Person, error) {
	if f.loadErr != nil {
		return nil, f.loadErr
	}
	return f.people, nil
}
func (f *fakeEntityStore) FindActiveProjectBySlug(ctx context.Context, slug string) (*models.Project, bool, error) {
	for _, p := range f.projects {
		if p.Slug == slug {
			return &p, true, nil
		}
	}
	return nil, false, nil
}
func (f *fakeEntityStore) RecentTurns(ctx context.Context, projectID uuid.UUID, limit int) ([]repositories.TurnWithSession, error) {
	return f.turns, nil
}
func (f *fakeEntityStore) WorkspaceTurns(ctx context.Context, workspaceProject string, limit int) ([]repositories.TurnWithSession, error) {
	return f.turns, nil
}
func (f *fakeEntityStore) GlobalRecentTurns(ctx context.Context, limit int) ([]repositories.TurnWithSession, error) {
	return f.turns, nil
}
func (f *fakeEntityStore) TurnsByFile(ctx context.Context, path string, limit int) ([]repositories.TurnWithSession, error) {
	return nil, nil
}
func (f *fakeEntityStore) RecentErrorTurns(ctx context.Context, projectID uuid.UUID, limit int) ([]repositories.TurnWithSession, error) {
	return nil, nil
}
func (f *fakeEntityStore) ActiveTasks(ctx context.Context, projectID uuid.UUID, limit int) ([]models.Task, error) {
	return f.tasks, nil
}
func (f *fakeEntityStore) OpenCommitments(ctx context.Context, projectID *uuid.UUID, limit int) ([]models.Commitment, error) {
	return nil, nil
}
func (f *fakeEntityStore) PersonByNameLike(ctx context.Context, name string, limit int) ([]models.Person, error) {
	return nil, nil
}
func (f *fakeEntityStore) ActiveSprints(ctx context.Context, limit int) ([]models.Sprint, error) {
	return nil, nil
}

var _ repositories.EntityStore = (*fakeEntityStore)(nil)
