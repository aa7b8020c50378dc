package recorder

import (
	"context"
	"os"
	"path/filepath"
	"testing"

	"github.com/google/uuid"

	"focus/internal/domain/models"
	"focus/internal/domain/repositories"
)

type memSessionStore struct {
	bySessionID map[string]*models.AgentSession
	turns       map[uuid.UUID][]*models.AgentTurn
	contents    map[uuid.UUID]*models.AgentTurnContent
}

func newMemSessionStore() *memSessionStore {
	return &memSessionStore{
		bySessionID: map[string]*models.AgentSession{},
		turns:       map[uuid.UUID][]*models.AgentTurn{},
		contents:    map[uuid.UUID]*models.AgentTurnContent{},
	}
}

func (m *memSessionStore) GetBySessionID(ctx context.Context, sessionID string) (*models.AgentSession, bool, error) {
	s, ok := m.bySessionID[sessionID]
	return s, ok, nil
}
func (m *memSessionStore) GetByID(ctx context.Context, id uuid.UUID) (*models.AgentSession, error) {
	for _, s := range m.bySessionID {
		if s.ID == id {
			return s, nil
		}
	}
	return nil, nil
}
func (m *memSessionStore) CreateSession(ctx context.Context, session *models.AgentSession) error {
	if session.ID == uuid.Nil {
		session.ID = uuid.New()
	}
	m.bySessionID[session.SessionID] = session
	return nil
}
func (m *memSessionStore) UpdateSessionMeta(ctx context.Context, session *models.AgentSession) error {
	m.bySessionID[session.SessionID] = session
	return nil
}
func (m *memSessionStore) SetSessionProjectID(ctx context.Context, sessionID, projectID uuid.UUID) (bool, error) {
	return false, nil
}
func (m *memSessionStore) UpdateSessionSummary(ctx context.Context, sessionID uuid.UUID, title, summary string, isProcessed bool) error {
	return nil
}
func (m *memSessionStore) ExistingTurnHashes(ctx context.Context, sessionID uuid.UUID) (map[string]bool, error) {
	out := map[string]bool{}
	for _, t := range m.turns[sessionID] {
		out[t.ContentHash] = true
	}
	return out, nil
}
func (m *memSessionStore) InsertTurn(ctx context.Context, turn *models.AgentTurn, content *models.AgentTurnContent) error {
	m.turns[turn.SessionID] = append(m.turns[turn.SessionID], turn)
	m.contents[turn.ID] = content
	return nil
}
func (m *memSessionStore) GetTurn(ctx context.Context, turnID uuid.UUID) (*models.AgentTurn, error) {
	for _, ts := range m.turns {
		for _, t := range ts {
			if t.ID == turnID {
				return t, nil
			}
		}
	}
	return nil, nil
}
func (m *memSessionStore) GetTurnContent(ctx context.Context, turnID uuid.UUID) (*models.AgentTurnContent, error) {
	return m.contents[turnID], nil
}
func (m *memSessionStore) UpdateTurnSummary(ctx context.Context, turnID uuid.UUID, title, summary string) error {
	return nil
}
func (m *memSessionStore) UpdateTurnExtraction(ctx context.Context, turnID uuid.UUID, filesTouched, commandsRun, errorsEncountered []string, toolCallCount int) error {
	return nil
}
func (m *memSessionStore) ListTurns(ctx context.Context, sessionID uuid.UUID) ([]*models.AgentTurn, error) {
	return m.turns[sessionID], nil
}
func (m *memSessionStore) ListTurnsWithoutSummary(ctx context.Context, sessionID uuid.UUID) ([]*models.AgentTurn, error) {
	return nil, nil
}
func (m *memSessionStore) InsertTurnEntity(ctx context.Context, entity *models.AgentTurnEntity) error {
	return nil
}
func (m *memSessionStore) InsertTurnArtifact(ctx context.Context, artifact *models.AgentTurnArtifact) error {
	return nil
}

var _ repositories.SessionStore = (*memSessionStore)(nil)

func writeTranscript(t *testing.T, lines ...string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "transcript.jsonl")
	content := ""
	for _, l := range lines {
		content += l + "\n"
	}
	if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
		t.Fatalf("write transcript: %v", err)
	}
	return path
}

func TestRecordSession_CreatesSessionAndTurns(t *testing.T) {
	path := writeTranscript(t,
		`{"type":"user","message":{"role":"user","content":"fix the bug"}}`,
		`{"type":"assistant","message":{"role":"assistant","content":"fixed it"}}`,
	)
	store := newMemSessionStore()
	r := New(store, nil)

	result, err := r.RecordSession(context.Background(), "session-1", path, "/home/user/work")
	if err != nil {
		t.Fatalf("RecordSession: %v", err)
	}
	if result.TurnsRecorded != 1 {
		t.Fatalf("TurnsRecorded = %d, want 1", result.TurnsRecorded)
	}
	if result.TurnsSkipped != 0 {
		t.Fatalf("TurnsSkipped = %d, want 0", result.TurnsSkipped)
	}

	session, found, err := store.GetBySessionID(context.Background(), "session-1")
	if err != nil || !found {
		t.Fatalf("expected session to be created, found=%v err=%v", found, err)
	}
	if session.TurnCount != 1 {
		t.Fatalf("TurnCount = %d, want 1", session.TurnCount)
	}
}

func TestRecordSession_IdempotentOnRerun(t *testing.T) {
	path := writeTranscript(t,
		`{"type":"user","message":{"role":"user","content":"fix the bug"}}`,
		`{"type":"assistant","message":{"role":"assistant","content":"fixed it"}}`,
	)
	store := newMemSessionStore()
	r := New(store, nil)

	if _, err := r.RecordSession(context.Background(), "session-1", path, "/home/user/work"); err != nil {
		t.Fatalf("first RecordSession: %v", err)
	}
	result, err := r.RecordSession(context.Background(), "session-1", path, "/home/user/work")
	if err != nil {
		t.Fatalf("second RecordSession: %v", err)
	}
	if result.TurnsRecorded != 0 {
		t.Fatalf("TurnsRecorded on rerun = %d, want 0 (deduped)", result.TurnsRecorded)
	}
	if result.TurnsSkipped != 1 {
		t.Fatalf("TurnsSkipped on rerun = %d, want 1", result.TurnsSkipped)
	}
}

func TestRecordSession_AppendsNewTurnsOnGrowingTranscript(t *testing.T) {
	path := writeTranscript(t,
		`{"type":"user","message":{"role":"user","content":"first turn"}}`,
		`{"type":"assistant","message":{"role":"assistant","content":"reply one"}}`,
	)
	store := newMemSessionStore()
	r := New(store, nil)

	if _, err := r.RecordSession(context.Background(), "session-1", path, ""); err != nil {
		t.Fatalf("first RecordSession: %v", err)
	}

	path2 := writeTranscript(t,
		`{"type":"user","message":{"role":"user","content":"first turn"}}`,
		`{"type":"assistant","message":{"role":"assistant","content":"reply one"}}`,
		`{"type":"user","message":{"role":"user","content":"second turn"}}`,
		`{"type":"assistant","message":{"role":"assistant","content":"reply two"}}`,
	)

	result, err := r.RecordSession(context.Background(), "session-1", path2, "")
	if err != nil {
		t.Fatalf("second RecordSession: %v", err)
	}
	if result.TurnsRecorded != 1 {
		t.Fatalf("TurnsRecorded = %d, want 1 (only the new turn)", result.TurnsRecorded)
	}
	if result.TurnsSkipped != 1 {
		t.Fatalf("TurnsSkipped = %d, want 1 (the already-recorded turn)", result.TurnsSkipped)
	}

	session, _, err := store.GetBySessionID(context.Background(), "session-1")
	if err != nil {
		t.Fatalf("GetBySessionID: %v", err)
	}
	if session.TurnCount != 2 {
		t.Fatalf("TurnCount = %d, want 2", session.TurnCount)
	}
}

func TestRecordSession_EmptyTranscriptNoOp(t *testing.T) {
	path := writeTranscript(t, "")
	store := newMemSessionStore()
	r := New(store, nil)

	result, err := r.RecordSession(context.Background(), "session-1", path, "")
	if err != nil {
		t.Fatalf("RecordSession: %v", err)
	}
	if result.TurnsRecorded != 0 {
		t.Fatalf("TurnsRecorded = %d, want 0 for empty transcript", result.TurnsRecorded)
	}
	if _, found, _ := store.GetBySessionID(context.Background(), "session-1"); found {
		t.Fatalf("session should not be created for an empty transcript")
	}
}
