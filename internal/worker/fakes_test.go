package worker

import (
	"context"
	"sync"

	"github.com/google/uuid"

	"focus/internal/domain/models"
	"focus/internal/domain/repositories"
)

type fakeJobQueue struct {
	mu          sync.Mutex
	queued      []*models.Job
	completed   []uuid.UUID
	failed      map[uuid.UUID]string
	enqueued    []*models.Job
	dedupeKeys  map[string]bool
	claimErr    error
	expireCount int
}

func newFakeJobQueue() *fakeJobQueue {
	return &fakeJobQueue{failed: map[uuid.UUID]string{}, dedupeKeys: map[string]bool{}}
}

func (f *fakeJobQueue) Enqueue(ctx context.Context, kind models.JobKind, payload map[string]interface{}, dedupeKey *string, priority, maxAttempts int) (*models.Job, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if dedupeKey != nil && f.dedupeKeys[*dedupeKey] {
		return nil, nil
	}
	if dedupeKey != nil {
		f.dedupeKeys[*dedupeKey] = true
	}
	job := &models.Job{ID: uuid.New(), Kind: kind, Payload: payload, DedupeKey: dedupeKey, Priority: priority, MaxAttempts: maxAttempts, Status: models.JobStatusQueued}
	f.enqueued = append(f.enqueued, job)
	f.queued = append(f.queued, job)
	return job, nil
}

func (f *fakeJobQueue) Claim(ctx context.Context, kinds []models.JobKind, leaseSeconds int) (*models.Job, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.claimErr != nil {
		return nil, f.claimErr
	}
	if len(f.queued) == 0 {
		return nil, nil
	}
	job := f.queued[0]
	f.queued = f.queued[1:]
	return job, nil
}

func (f *fakeJobQueue) Complete(ctx context.Context, jobID uuid.UUID) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.completed = append(f.completed, jobID)
	return nil
}

func (f *fakeJobQueue) Fail(ctx context.Context, jobID uuid.UUID, errMessage string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.failed[jobID] = errMessage
	return nil
}

func (f *fakeJobQueue) ExpireStaleLeases(ctx context.Context) (int, error) {
	return f.expireCount, nil
}

func (f *fakeJobQueue) Stats(ctx context.Context) (map[models.JobStatus]int, error) {
	return map[models.JobStatus]int{}, nil
}

var _ repositories.JobQueue = (*fakeJobQueue)(nil)

type fakeSessionStore struct {
	bySessionID       map[string]*models.AgentSession
	byID              map[uuid.UUID]*models.AgentSession
	turns             map[uuid.UUID][]*models.AgentTurn
	turnsByID         map[uuid.UUID]*models.AgentTurn
	contents          map[uuid.UUID]*models.AgentTurnContent
	turnsWithoutSumm  map[uuid.UUID][]*models.AgentTurn
	insertedEntities  []*models.AgentTurnEntity
	insertedArtifacts []*models.AgentTurnArtifact
	summaryUpdates    map[uuid.UUID][2]string
	extractionUpdates map[uuid.UUID]bool
	projectLinks      map[uuid.UUID]uuid.UUID
}

func newFakeSessionStore() *fakeSessionStore {
	return &fakeSessionStore{
		bySessionID:       map[string]*models.AgentSession{},
		byID:              map[uuid.UUID]*models.AgentSession{},
		turns:             map[uuid.UUID][]*models.AgentTurn{},
		turnsByID:         map[uuid.UUID]*models.AgentTurn{},
		contents:          map[uuid.UUID]*models.AgentTurnContent{},
		turnsWithoutSumm:  map[uuid.UUID][]*models.AgentTurn{},
		summaryUpdates:    map[uuid.UUID][2]string{},
		extractionUpdates: map[uuid.UUID]bool{},
		projectLinks:      map[uuid.UUID]uuid.UUID{},
	}
}

func (f *fakeSessionStore) GetBySessionID(ctx context.Context, sessionID string) (*models.AgentSession, bool, error) {
	s, ok := f.bySessionID[sessionID]
	return s, ok, nil
}
func (f *fakeSessionStore) GetByID(ctx context.Context, id uuid.UUID) (*models.AgentSession, error) {
	return f.byID[id], nil
}
func (f *fakeSessionStore) CreateSession(ctx context.Context, session *models.AgentSession) error {
	if session.ID == uuid.Nil {
		session.ID = uuid.New()
	}
	f.bySessionID[session.SessionID] = session
	f.byID[session.ID] = session
	return nil
}
func (f *fakeSessionStore) UpdateSessionMeta(ctx context.Context, session *models.AgentSession) error {
	f.bySessionID[session.SessionID] = session
	f.byID[session.ID] = session
	return nil
}
func (f *fakeSessionStore) SetSessionProjectID(ctx context.Context, sessionID, projectID uuid.UUID) (bool, error) {
	if _, exists := f.projectLinks[sessionID]; exists {
		return false, nil
	}
	f.projectLinks[sessionID] = projectID
	if s, ok := f.byID[sessionID]; ok {
		s.ProjectID = &projectID
	}
	return true, nil
}
func (f *fakeSessionStore) UpdateSessionSummary(ctx context.Context, sessionID uuid.UUID, title, summary string, isProcessed bool) error {
	f.summaryUpdates[sessionID] = [2]string{title, summary}
	if s, ok := f.byID[sessionID]; ok {
		s.SessionTitle = title
		s.SessionSummary = summary
		s.IsProcessed = isProcessed
	}
	return nil
}
func (f *fakeSessionStore) ExistingTurnHashes(ctx context.Context, sessionID uuid.UUID) (map[string]bool, error) {
	out := map[string]bool{}
	for _, t := range f.turns[sessionID] {
		out[t.ContentHash] = true
	}
	return out, nil
}
func (f *fakeSessionStore) InsertTurn(ctx context.Context, turn *models.AgentTurn, content *models.AgentTurnContent) error {
	f.turns[turn.SessionID] = append(f.turns[turn.SessionID], turn)
	f.turnsByID[turn.ID] = turn
	f.contents[turn.ID] = content
	return nil
}
func (f *fakeSessionStore) GetTurn(ctx context.Context, turnID uuid.UUID) (*models.AgentTurn, error) {
	return f.turnsByID[turnID], nil
}
func (f *fakeSessionStore) GetTurnContent(ctx context.Context, turnID uuid.UUID) (*models.AgentTurnContent, error) {
	return f.contents[turnID], nil
}
func (f *fakeSessionStore) UpdateTurnSummary(ctx context.Context, turnID uuid.UUID, title, summary string) error {
	if t, ok := f.turnsByID[turnID]; ok {
		t.TurnTitle = title
		t.AssistantSummary = summary
	}
	return nil
}
func (f *fakeSessionStore) UpdateTurnExtraction(ctx context.Context, turnID uuid.UUID, filesTouched, commandsRun, errorsEncountered []string, toolCallCount int) error {
	f.extractionUpdates[turnID] = true
	return nil
}
func (f *fakeSessionStore) ListTurns(ctx context.Context, sessionID uuid.UUID) ([]*models.AgentTurn, error) {
	return f.turns[sessionID], nil
}
func (f *fakeSessionStore) ListTurnsWithoutSummary(ctx context.Context, sessionID uuid.UUID) ([]*models.AgentTurn, error) {
	return f.turnsWithoutSumm[sessionID], nil
}
func (f *fakeSessionStore) InsertTurnEntity(ctx context.Context, entity *models.AgentTurnEntity) error {
	f.insertedEntities = append(f.insertedEntities, entity)
	return nil
}
func (f *fakeSessionStore) InsertTurnArtifact(ctx context.Context, artifact *models.AgentTurnArtifact) error {
	f.insertedArtifacts = append(f.insertedArtifacts, artifact)
	return nil
}

var _ repositories.SessionStore = (*fakeSessionStore)(nil)

type fakeEntityStore struct {
	projects map[string]models.Project
	people   []models.Person
}

func (f *fakeEntityStore) ActiveProjects(ctx context.Context) ([]models.Project, error) {
	var out []models.Project
	for _, p := range f.projects {
		out = append(out, p)
	}
	return out, nil
}
func (f *fakeEntityStore) PeopleWithNames(ctx context.Context) ([]models.Person, error) {
	return f.people, nil
}
func (f *fakeEntityStore) FindActiveProjectBySlug(ctx context.Context, slug string) (*models.Project, bool, error) {
	p, ok := f.projects[slug]
	if !ok {
		return nil, false, nil
	}
	return &p, true, nil
}
func (f *fakeEntityStore) RecentTurns(ctx context.Context, projectID uuid.UUID, limit int) ([]repositories.TurnWithSession, error) {
	return nil, nil
}
func (f *fakeEntityStore) WorkspaceTurns(ctx context.Context, workspaceProject string, limit int) ([]repositories.TurnWithSession, error) {
	return nil, nil
}
func (f *fakeEntityStore) GlobalRecentTurns(ctx context.Context, limit int) ([]repositories.TurnWithSession, error) {
	return nil, nil
}
func (f *fakeEntityStore) TurnsByFile(ctx context.Context, path string, limit int) ([]repositories.TurnWithSession, error) {
	return nil, nil
}
func (f *fakeEntityStore) RecentErrorTurns(ctx context.Context, projectID uuid.UUID, limit int) ([]repositories.TurnWithSession, error) {
	return nil, nil
}
func (f *fakeEntityStore) ActiveTasks(ctx context.Context, projectID uuid.UUID, limit int) ([]models.Task, error) {
	return nil, nil
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

type fakeSkillStore struct {
	todayCount int
	hashes     map[string]bool
	inserted   []*models.GeneratedSkillRecord
}

func (f *fakeSkillStore) CountAutoSkillsToday(ctx context.Context) (int, error) {
	return f.todayCount, nil
}
func (f *fakeSkillStore) HasActiveSkillWithHash(ctx context.Context, hash string) (bool, error) {
	return f.hashes[hash], nil
}
func (f *fakeSkillStore) InsertSkillRecord(ctx context.Context, record *models.GeneratedSkillRecord) error {
	f.inserted = append(f.inserted, record)
	return nil
}

var _ repositories.SkillStore = (*fakeSkillStore)(nil)
