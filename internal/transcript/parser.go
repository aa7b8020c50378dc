// Package transcript converts a line-oriented Claude Code session
// transcript into ordered turns with deterministic content hashes, per
// spec.md §4.1. Grounded on
// original_source/simon/ingestion/claude_code.py.
package transcript

import (
	"bufio"
	"crypto/md5"
	"encoding/hex"
	"encoding/json"
	"io"
	"os"
	"strings"
	"time"
)

// Turn is one user message and the contiguous assistant records that
// followed it, finalized with its 0-based index and content hash.
type Turn struct {
	Index         int
	UserMessage   string
	AssistantText string
	ToolNames     []string
	ModelName     string
	StartedAt     *time.Time
	EndedAt       *time.Time
	RawJSONL      string
	ContentHash   string
}

// record is the subset of a transcript line's shape this parser cares about.
type record struct {
	Type        string          `json:"type"`
	IsSidechain bool            `json:"isSidechain"`
	IsMeta      bool            `json:"isMeta"`
	Timestamp   string          `json:"timestamp"`
	Message     recordMessage   `json:"message"`
}

type recordMessage struct {
	Role    string          `json:"role"`
	Model   string          `json:"model"`
	Content json.RawMessage `json:"content"`
}

type contentBlock struct {
	Type    string `json:"type"`
	Text    string `json:"text"`
	Name    string `json:"name"`
	IsError bool   `json:"is_error"`
}

// ParseFile reads the transcript at path and groups it into turns.
func ParseFile(path string) ([]Turn, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer f.Close()
	return Parse(f)
}

// Parse groups a line-oriented transcript read from r into turns. It never
// returns an error for malformed individual lines — those are skipped —
// only for I/O failures reading the stream.
func Parse(r io.Reader) ([]Turn, error) {
	scanner := bufio.NewScanner(r)
	scanner.Buffer(make([]byte, 0, 64*1024), 10*1024*1024)

	var turns []Turn
	var current *pendingTurn
	var currentLines []string

	flush := func() {
		if current != nil && current.userMessage != "" {
			turns = append(turns, finalizeTurn(current, currentLines, len(turns)))
		}
		current = nil
		currentLines = nil
	}

	for scanner.Scan() {
		line := scanner.Text()
		trimmed := strings.TrimSpace(line)
		if trimmed == "" {
			continue
		}

		var rec record
		if err := json.Unmarshal([]byte(trimmed), &rec); err != nil {
			continue
		}

		if rec.Type != "user" && rec.Type != "assistant" {
			continue
		}
		if rec.IsSidechain || rec.IsMeta {
			continue
		}

		text := extractTextContent(rec.Message.Content)
		if strings.HasPrefix(strings.TrimSpace(text), "<command-name>") || strings.HasPrefix(strings.TrimSpace(text), "<local-command") {
			continue
		}

		ts := parseTimestamp(rec.Timestamp)

		if rec.Type == "user" {
			flush()
			current = &pendingTurn{userMessage: text, startedAt: ts}
			currentLines = []string{line}
			continue
		}

		// assistant record
		if current == nil {
			// Assistant message with no preceding user turn in this file;
			// nothing to attach it to.
			continue
		}
		if text != "" {
			if current.assistantText != "" {
				current.assistantText += "\n" + text
			} else {
				current.assistantText = text
			}
		}
		for _, name := range extractToolNames(rec.Message.Content) {
			if !containsString(current.toolNames, name) {
				current.toolNames = append(current.toolNames, name)
			}
		}
		if current.modelName == "" && rec.Message.Model != "" {
			current.modelName = rec.Message.Model
		}
		if ts != nil {
			current.endedAt = ts
		}
		currentLines = append(currentLines, line)
	}
	flush()

	if err := scanner.Err(); err != nil {
		return nil, err
	}
	return turns, nil
}

type pendingTurn struct {
	userMessage   string
	assistantText string
	toolNames     []string
	modelName     string
	startedAt     *time.Time
	endedAt       *time.Time
}

func finalizeTurn(p *pendingTurn, lines []string, index int) Turn {
	raw := strings.Join(lines, "\n")
	sum := md5.Sum([]byte(raw))
	return Turn{
		Index:         index,
		UserMessage:   p.userMessage,
		AssistantText: p.assistantText,
		ToolNames:     p.toolNames,
		ModelName:     p.modelName,
		StartedAt:     p.startedAt,
		EndedAt:       p.endedAt,
		RawJSONL:      raw,
		ContentHash:   hex.EncodeToString(sum[:]),
	}
}

// ComputeContentHash exposes the MD5-of-raw-bytes dedup key computation
// for callers (e.g. tests) that construct raw_jsonl directly.
func ComputeContentHash(raw string) string {
	sum := md5.Sum([]byte(raw))
	return hex.EncodeToString(sum[:])
}

func parseTimestamp(ts string) *time.Time {
	if ts == "" {
		return nil
	}
	normalized := strings.Replace(ts, "Z", "+00:00", 1)
	for _, layout := range []string{time.RFC3339Nano, time.RFC3339, "2006-01-02T15:04:05-07:00"} {
		if t, err := time.Parse(layout, normalized); err == nil {
			return &t
		}
	}
	return nil
}

// extractTextContent implements spec.md §4.1 rule 3: a string content is
// its own text; a list content yields the newline-joined concatenation of
// text blocks only.
func extractTextContent(raw json.RawMessage) string {
	if len(raw) == 0 {
		return ""
	}
	var asString string
	if err := json.Unmarshal(raw, &asString); err == nil {
		return asString
	}

	var blocks []contentBlock
	if err := json.Unmarshal(raw, &blocks); err != nil {
		return ""
	}
	var parts []string
	for _, b := range blocks {
		if b.Type == "text" && b.Text != "" {
			parts = append(parts, b.Text)
		}
	}
	return strings.Join(parts, "\n")
}

// extractToolNames returns tool_use block names, deduplicated preserving
// first-seen order.
func extractToolNames(raw json.RawMessage) []string {
	var blocks []contentBlock
	if err := json.Unmarshal(raw, &blocks); err != nil {
		return nil
	}
	var names []string
	for _, b := range blocks {
		if b.Type == "tool_use" && b.Name != "" && !containsString(names, b.Name) {
			names = append(names, b.Name)
		}
	}
	return names
}

func containsString(haystack []string, needle string) bool {
	for _, s := range haystack {
		if s == needle {
			return true
		}
	}
	return false
}
