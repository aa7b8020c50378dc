// Package recorder stores parsed transcript turns into the session store,
// per spec.md §4.4, grounded on original_source/simon/context/recorder.go.
package recorder

import (
	"context"
	"fmt"
	"os"
	"time"

	"github.com/google/uuid"

	"focus/internal/domain/models"
	"focus/internal/domain/repositories"
	"focus/internal/transcript"
)

// Result summarizes one recording pass for the caller (and for the
// session_process handler's "enqueue child jobs only if > 0 new turns"
// decision).
type Result struct {
	SessionID     string
	TurnsRecorded int
	TurnsSkipped  int
}

// Recorder persists a transcript file's turns, deduplicating by
// content_hash.
type Recorder struct {
	sessions repositories.SessionStore
	jobs     repositories.JobQueue
}

// New builds a Recorder over the given session store and job queue.
func New(sessions repositories.SessionStore, jobs repositories.JobQueue) *Recorder {
	return &Recorder{sessions: sessions, jobs: jobs}
}

// EnqueueSessionRecording is the Stop hook's fast path (spec.md §4.4):
// it enqueues a session_process job and returns immediately without
// parsing the transcript. The dedupe key includes the transcript file's
// size so that a session with new turns appended since the last Stop
// produces a new job instead of being silently deduplicated away — the
// recorder itself still dedupes individual turns by content_hash, so
// reprocessing the same file is safe. Grounded on
// original_source/simon/context/recorder.py's enqueue_session_recording.
func (r *Recorder) EnqueueSessionRecording(ctx context.Context, sessionID, transcriptPath, workspacePath string) (bool, error) {
	var fileSize int64
	if info, err := os.Stat(transcriptPath); err == nil {
		fileSize = info.Size()
	}

	dedupeKey := fmt.Sprintf("session_process:%s:%d", sessionID, fileSize)
	payload := map[string]interface{}{
		"session_id":      sessionID,
		"transcript_path": transcriptPath,
		"workspace_path":  workspacePath,
	}
	job, err := r.jobs.Enqueue(ctx, models.JobKindSessionProcess, payload, &dedupeKey, models.PrioritySessionProcess, models.DefaultMaxAttempts)
	if err != nil {
		return false, fmt.Errorf("enqueue session recording: %w", err)
	}
	return job != nil, nil
}

// RecordSession parses transcriptPath and inserts any turns not already
// present (by content_hash), creating the AgentSession row if needed.
func (r *Recorder) RecordSession(ctx context.Context, sessionID, transcriptPath, workspacePath string) (Result, error) {
	turns, err := transcript.ParseFile(transcriptPath)
	if err != nil {
		return Result{}, fmt.Errorf("parse transcript %s: %w", transcriptPath, err)
	}
	if len(turns) == 0 {
		return Result{SessionID: sessionID}, nil
	}

	session, found, err := r.sessions.GetBySessionID(ctx, sessionID)
	if err != nil {
		return Result{}, fmt.Errorf("look up session: %w", err)
	}

	var existingHashes map[string]bool
	if !found {
		session = &models.AgentSession{
			SessionID:      sessionID,
			TranscriptPath: transcriptPath,
			WorkspacePath:  workspacePath,
		}
		if err := r.sessions.CreateSession(ctx, session); err != nil {
			return Result{}, fmt.Errorf("create session: %w", err)
		}
		existingHashes = map[string]bool{}
	} else {
		existingHashes, err = r.sessions.ExistingTurnHashes(ctx, session.ID)
		if err != nil {
			return Result{}, fmt.Errorf("load existing turn hashes: %w", err)
		}
	}

	turnsRecorded := 0
	turnsSkipped := 0
	var minStarted, maxActivity *time.Time

	for _, t := range turns {
		if existingHashes[t.ContentHash] {
			turnsSkipped++
			continue
		}

		turn := &models.AgentTurn{
			ID:          uuid.New(),
			SessionID:   session.ID,
			TurnNumber:  t.Index,
			UserMessage: t.UserMessage,
			ContentHash: t.ContentHash,
			ToolNames:   t.ToolNames,
			StartedAt:   t.StartedAt,
			EndedAt:     t.EndedAt,
		}
		content := &models.AgentTurnContent{
			ID:            uuid.New(),
			TurnID:        turn.ID,
			RawJSONL:      t.RawJSONL,
			AssistantText: t.AssistantText,
		}
		if err := r.sessions.InsertTurn(ctx, turn, content); err != nil {
			return Result{}, fmt.Errorf("insert turn %d: %w", t.Index, err)
		}
		turnsRecorded++

		if t.StartedAt != nil {
			if minStarted == nil || t.StartedAt.Before(*minStarted) {
				minStarted = t.StartedAt
			}
		}
		end := t.EndedAt
		if end == nil {
			end = t.StartedAt
		}
		if end != nil {
			if maxActivity == nil || end.After(*maxActivity) {
				maxActivity = end
			}
		}
	}

	if minStarted != nil && session.StartedAt == nil {
		session.StartedAt = minStarted
	}
	if maxActivity != nil {
		session.LastActivityAt = maxActivity
	}
	session.TurnCount = len(existingHashes) + turnsRecorded
	session.TranscriptPath = transcriptPath

	if err := r.sessions.UpdateSessionMeta(ctx, session); err != nil {
		return Result{}, fmt.Errorf("update session meta: %w", err)
	}

	return Result{SessionID: sessionID, TurnsRecorded: turnsRecorded, TurnsSkipped: turnsSkipped}, nil
}
