// Command hook is the thin binary Claude Code invokes for the
// UserPromptSubmit ("presubmit") and Stop ("poststop") hook events, per
// spec.md §6's External Interfaces. Both paths are best-effort: any
// failure is logged to stderr and the process exits 0 so a broken
// database or LLM never blocks the assistant.
package main

import (
	"context"
	"encoding/json"
	"io"
	"log/slog"
	"os"
	"time"

	"github.com/joho/godotenv"

	"focus/internal/classify"
	"focus/internal/config"
	focuscontext "focus/internal/context"
	"focus/internal/projectstate"
	"focus/internal/recorder"
	"focus/internal/repository/postgres"
)

type preSubmitInput struct {
	Prompt string `json:"prompt"`
	Cwd    string `json:"cwd"`
}

type postStopInput struct {
	SessionID      string `json:"session_id"`
	TranscriptPath string `json:"transcript_path"`
	Cwd            string `json:"cwd"`
}

type hookSpecificOutput struct {
	HookEventName     string `json:"hookEventName"`
	AdditionalContext string `json:"additionalContext"`
}

type preSubmitOutput struct {
	HookSpecificOutput hookSpecificOutput `json:"hookSpecificOutput"`
}

func main() {
	logger := slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: slog.LevelWarn}))

	mode := ""
	if len(os.Args) > 1 {
		mode = os.Args[1]
	}

	switch mode {
	case "presubmit":
		runPreSubmit(logger)
	case "poststop":
		runPostStop(logger)
	default:
		// Unknown invocation: never block, never print.
	}
	os.Exit(0)
}

func runPreSubmit(logger *slog.Logger) {
	var in preSubmitInput
	if !decodeStdin(os.Stdin, &in, logger) {
		return
	}
	if in.Prompt == "" {
		return
	}

	cfg, err := loadConfig(logger)
	if err != nil || !cfg.Context.Enabled || !cfg.Context.RetrievalEnabled {
		return
	}

	timeout := time.Duration(cfg.Context.RetrievalTimeoutMS) * time.Millisecond
	if timeout <= 0 {
		timeout = 2 * time.Second
	}
	ctx, cancel := context.WithTimeout(context.Background(), timeout)
	defer cancel()

	pool, err := postgres.CreateConnectionPool(ctx, cfg.General.DBURL)
	if err != nil {
		logger.Warn("presubmit: connect failed", "error", err)
		return
	}
	defer pool.Close()

	tables := postgres.NewTableNames(cfg.TablePrefix)
	entities := postgres.NewEntityRepository(pool, tables, logger)

	projects, err := entities.ActiveProjects(ctx)
	if err != nil {
		logger.Warn("presubmit: load projects failed", "error", err)
		return
	}
	people, err := entities.PeopleWithNames(ctx)
	if err != nil {
		logger.Warn("presubmit: load people failed", "error", err)
		return
	}

	state, err := projectstate.Open(os.Getenv("FOCUS_PROJECT_STATE_PATH"))
	if err != nil {
		logger.Warn("presubmit: open project state failed", "error", err)
		state, _ = projectstate.Open("")
	}

	classifier := classify.New(projects, people, state)
	classification := classifier.Classify(in.Prompt, in.Cwd)
	if classification.Confidence < 0.1 {
		return
	}

	retriever := focuscontext.NewRetriever(entities)
	blocks, err := retriever.Retrieve(ctx, classification)
	if err != nil {
		logger.Warn("presubmit: retrieve failed", "error", err)
		return
	}
	if len(blocks) == 0 {
		return
	}

	formatted := focuscontext.FormatContextBlocks(blocks, cfg.Context.MaxContextTokens)
	if formatted == "" {
		return
	}

	out := preSubmitOutput{HookSpecificOutput: hookSpecificOutput{
		HookEventName:     "UserPromptSubmit",
		AdditionalContext: formatted,
	}}
	enc := json.NewEncoder(os.Stdout)
	if err := enc.Encode(out); err != nil {
		logger.Warn("presubmit: encode output failed", "error", err)
	}
}

func runPostStop(logger *slog.Logger) {
	var in postStopInput
	if !decodeStdin(os.Stdin, &in, logger) {
		return
	}
	if in.SessionID == "" || in.TranscriptPath == "" {
		return
	}

	cfg, err := loadConfig(logger)
	if err != nil || !cfg.Context.Enabled || !cfg.Context.RecordingEnabled {
		return
	}

	timeout := time.Duration(cfg.Context.RecordingTimeoutMS) * time.Millisecond
	if timeout <= 0 {
		timeout = 200 * time.Millisecond
	}
	ctx, cancel := context.WithTimeout(context.Background(), timeout)
	defer cancel()

	pool, err := postgres.CreateConnectionPool(ctx, cfg.General.DBURL)
	if err != nil {
		logger.Warn("poststop: connect failed", "error", err)
		return
	}
	defer pool.Close()

	tables := postgres.NewTableNames(cfg.TablePrefix)
	jobs := postgres.NewJobQueueRepository(pool, tables, logger)
	sessions := postgres.NewSessionRepository(pool, tables, logger)

	rec := recorder.New(sessions, jobs)
	enqueued, err := rec.EnqueueSessionRecording(ctx, in.SessionID, in.TranscriptPath, in.Cwd)
	if err != nil {
		logger.Warn("poststop: enqueue failed", "error", err)
		return
	}
	if !enqueued {
		logger.Debug("poststop: recording job deduplicated", "session_id", in.SessionID)
	}
}

func loadConfig(logger *slog.Logger) (*config.Settings, error) {
	_ = godotenv.Load()
	cfg, err := config.Load(os.Getenv("FOCUS_CONFIG_PATH"))
	if err != nil {
		logger.Warn("load config failed", "error", err)
		return nil, err
	}
	return cfg, nil
}

func decodeStdin(r io.Reader, v interface{}, logger *slog.Logger) bool {
	data, err := io.ReadAll(r)
	if err != nil || len(data) == 0 {
		return false
	}
	if err := json.Unmarshal(data, v); err != nil {
		logger.Warn("decode stdin failed", "error", err)
		return false
	}
	return true
}
