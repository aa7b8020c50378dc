package context

import (
	"context"
	"testing"
	"time"

	"github.com/google/uuid"

	"focus/internal/classify"
	"focus/internal/domain/models"
	"focus/internal/domain/repositories"
)

type fakeEntityStore struct {
	projects        map[string]models.Project
	recentTurns     map[uuid.UUID][]repositories.TurnWithSession
	workspaceTurns  []repositories.TurnWithSession
	globalTurns     []repositories.TurnWithSession
	activeTasks     map[uuid.UUID][]models.Task
	commitments     map[uuid.UUID][]models.Commitment
	globalCommits   []models.Commitment
	people          []models.Person
	sprints         []models.Sprint
	errorTurns      map[uuid.UUID][]repositories.TurnWithSession
	turnsByFile     map[string][]repositories.TurnWithSession
}

func (f *fakeEntityStore) ActiveProjects(ctx context.Context) ([]models.Project, error) { return nil, nil }
func (f *fakeEntityStore) PeopleWithNames(ctx context.Context) ([]models.Person, error) { return nil, nil }

func (f *fakeEntityStore) FindActiveProjectBySlug(ctx context.Context, slug string) (*models.Project, bool, error) {
	p, ok := f.projects[slug]
	if !ok {
		return nil, false, nil
	}
	return &p, true, nil
}
func (f *fakeEntityStore) RecentTurns(ctx context.Context, projectID uuid.UUID, limit int) ([]repositories.TurnWithSession, error) {
	return f.recentTurns[projectID], nil
}
func (f *fakeEntityStore) WorkspaceTurns(ctx context.Context, workspaceProject string, limit int) ([]repositories.TurnWithSession, error) {
	return f.workspaceTurns, nil
}
func (f *fakeEntityStore) GlobalRecentTurns(ctx context.Context, limit int) ([]repositories.TurnWithSession, error) {
	return f.globalTurns, nil
}
func (f *fakeEntityStore) TurnsByFile(ctx context.Context, path string, limit int) ([]repositories.TurnWithSession, error) {
	return f.turnsByFile[path], nil
}
func (f *fakeEntityStore) RecentErrorTurns(ctx context.Context, projectID uuid.UUID, limit int) ([]repositories.TurnWithSession, error) {
	return f.errorTurns[projectID], nil
}
func (f *fakeEntityStore) ActiveTasks(ctx context.Context, projectID uuid.UUID, limit int) ([]models.Task, error) {
	return f.activeTasks[projectID], nil
}
func (f *fakeEntityStore) OpenCommitments(ctx context.Context, projectID *uuid.UUID, limit int) ([]models.Commitment, error) {
	if projectID == nil {
		return f.globalCommits, nil
	}
	return f.commitments[*projectID], nil
}
func (f *fakeEntityStore) PersonByNameLike(ctx context.Context, name string, limit int) ([]models.Person, error) {
	var out []models.Person
	for _, p := range f.people {
		if p.Name == name {
			out = append(out, p)
		}
	}
	return out, nil
}
func (f *fakeEntityStore) ActiveSprints(ctx context.Context, limit int) ([]models.Sprint, error) {
	return f.sprints, nil
}

func TestRetrieve_BelowConfidenceFloorReturnsNil(t *testing.T) {
	r := NewRetriever(&fakeEntityStore{})
	blocks, err := r.Retrieve(context.Background(), classify.Classification{Confidence: 0.05})
	if err != nil {
		t.Fatalf("Retrieve: %v", err)
	}
	if blocks != nil {
		t.Fatalf("Retrieve() = %v, want nil below confidence floor", blocks)
	}
}

func TestRetrieve_ResolvesProjectAndGathersBlocks(t *testing.T) {
	projectID := uuid.New()
	turnID := uuid.New()
	started := time.Now().Add(-time.Hour)

	store := &fakeEntityStore{
		projects: map[string]models.Project{
			"focus-app": {ID: projectID, Slug: "focus-app", Name: "Focus App"},
		},
		recentTurns: map[uuid.UUID][]repositories.TurnWithSession{
			projectID: {{Turn: models.AgentTurn{ID: turnID, TurnTitle: "fixed bug", AssistantSummary: "fixed the bug", StartedAt: &started}}},
		},
		activeTasks: map[uuid.UUID][]models.Task{
			projectID: {{ID: uuid.New(), Title: "ship release", Status: "in_progress", Priority: "high"}},
		},
	}

	r := NewRetriever(store)
	classification := classify.Classification{Confidence: 0.8, ProjectSlugs: []string{"focus-app"}, QueryType: "code"}
	blocks, err := r.Retrieve(context.Background(), classification)
	if err != nil {
		t.Fatalf("Retrieve: %v", err)
	}
	if len(blocks) == 0 {
		t.Fatalf("Retrieve() returned no blocks")
	}

	var sawTurn, sawTask bool
	for _, b := range blocks {
		if b.SourceType == models.SourceTypeConversation && b.SourceID == turnID.String() {
			sawTurn = true
		}
		if b.SourceType == models.SourceTypeTask {
			sawTask = true
		}
	}
	if !sawTurn {
		t.Fatalf("Retrieve() missing recent-turn block: %+v", blocks)
	}
	if !sawTask {
		t.Fatalf("Retrieve() missing task block: %+v", blocks)
	}
}

func TestRetrieve_FallsBackToGlobalWhenUnresolved(t *testing.T) {
	turnID := uuid.New()
	store := &fakeEntityStore{
		globalTurns: []repositories.TurnWithSession{
			{Turn: models.AgentTurn{ID: turnID, UserMessage: "what happened yesterday"}},
		},
	}
	r := NewRetriever(store)
	classification := classify.Classification{Confidence: 0.3, QueryType: "general"}
	blocks, err := r.Retrieve(context.Background(), classification)
	if err != nil {
		t.Fatalf("Retrieve: %v", err)
	}
	found := false
	for _, b := range blocks {
		if b.SourceID == turnID.String() {
			found = true
		}
	}
	if !found {
		t.Fatalf("Retrieve() missing global fallback turn: %+v", blocks)
	}
}

func TestDedupeAndSort_FirstOccurrenceWinsAndSortedDescending(t *testing.T) {
	blocks := []models.ContextBlock{
		{SourceID: "a", RelevanceScore: 0.2, Content: "first a"},
		{SourceID: "b", RelevanceScore: 0.9, Content: "b"},
		{SourceID: "a", RelevanceScore: 0.9, Content: "second a"},
	}
	got := dedupeAndSort(blocks)
	if len(got) != 2 {
		t.Fatalf("dedupeAndSort() len = %d, want 2", len(got))
	}
	if got[0].SourceID != "b" {
		t.Fatalf("dedupeAndSort()[0] = %+v, want source b first", got[0])
	}
	for _, b := range got {
		if b.SourceID == "a" && b.Content != "first a" {
			t.Fatalf("dedupeAndSort() should keep first occurrence, got %q", b.Content)
		}
	}
}

func TestRelativeTime(t *testing.T) {
	now := time.Now()
	tests := []struct {
		name string
		t    *time.Time
		want string
	}{
		{"nil", nil, "unknown time"},
		{"seconds ago", ptrTime(now.Add(-30 * time.Second)), "just now"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := relativeTime(tt.t); got != tt.want {
				t.Fatalf("relativeTime() = %q, want %q", got, tt.want)
			}
		})
	}
}

func ptrTime(t time.Time) *time.Time { return &t }

func TestTruncate(t *testing.T) {
	if got := truncate("hello", 10); got != "hello" {
		t.Fatalf("truncate() = %q, want hello", got)
	}
	if got := truncate("hello world", 5); got != "hello" {
		t.Fatalf("truncate() = %q, want hello", got)
	}
}

func TestTasksToBlocks_InProgressGetsHigherRelevance(t *testing.T) {
	tasks := []models.Task{
		{ID: uuid.New(), Title: "backlog item", Status: "backlog", Priority: "low"},
		{ID: uuid.New(), Title: "active item", Status: "in_progress", Priority: "high"},
	}
	blocks := tasksToBlocks(tasks)
	if len(blocks) != 2 {
		t.Fatalf("tasksToBlocks() len = %d, want 2", len(blocks))
	}
	if blocks[0].RelevanceScore >= blocks[1].RelevanceScore {
		t.Fatalf("expected in_progress task to score higher: %+v", blocks)
	}
}
