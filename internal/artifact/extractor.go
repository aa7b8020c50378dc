// Package artifact extracts files/commands/errors/tool-calls from a
// turn's raw transcript payload, per spec.md §4.2. The block shapes are
// as dynamically typed as the teacher's own LLM provider JSON pass-through
// (internal/service/llm/adapters/conversion.go), so this walk uses
// tidwall/gjson rather than strict structs for the per-block fields.
package artifact

import (
	"strings"

	"github.com/tidwall/gjson"

	"focus/internal/domain/models"
)

// Artifact is one extracted item from a turn's raw payload.
type Artifact struct {
	Type     models.ArtifactType
	Value    string
	Metadata map[string]interface{}
}

// Result is the full extraction output for one turn.
type Result struct {
	Artifacts         []Artifact
	FilesTouched      []string
	CommandsRun       []string
	ErrorsEncountered []string
	ToolCallCount     int
}

// Extract walks every line of rawJSONL's message.content blocks and
// builds the artifact list plus the AgentTurnContent summary columns.
func Extract(rawJSONL string) Result {
	var res Result
	seenFiles := make(map[string]bool)

	for _, line := range strings.Split(rawJSONL, "\n") {
		line = strings.TrimSpace(line)
		if line == "" || !gjson.Valid(line) {
			continue
		}
		content := gjson.Parse(line).Get("message.content")
		if !content.IsArray() {
			continue
		}

		content.ForEach(func(_, block gjson.Result) bool {
			switch block.Get("type").String() {
			case "tool_use":
				res.ToolCallCount++
				handleToolUse(&res, seenFiles, block)
			case "tool_result":
				if block.Get("is_error").Bool() {
					handleToolError(&res, block)
				}
			}
			return true
		})
	}
	return res
}

func handleToolUse(res *Result, seenFiles map[string]bool, block gjson.Result) {
	name := block.Get("name").String()
	input := block.Get("input")

	addFile := func(path string) {
		if path == "" {
			return
		}
		if !seenFiles[path] {
			seenFiles[path] = true
			res.FilesTouched = append(res.FilesTouched, path)
		}
	}

	switch name {
	case "Read":
		path := input.Get("file_path").String()
		addFile(path)
		res.Artifacts = append(res.Artifacts, Artifact{Type: models.ArtifactTypeFileRead, Value: path})
	case "Glob", "Grep":
		pattern := input.Get("pattern").String()
		path := input.Get("path").String()
		value := pattern
		if value == "" {
			value = path
		}
		meta := map[string]interface{}{}
		if pattern != "" {
			meta["pattern"] = pattern
		}
		if path != "" {
			meta["path"] = path
		}
		res.Artifacts = append(res.Artifacts, Artifact{Type: models.ArtifactTypeFileRead, Value: value, Metadata: meta})
	case "Write":
		path := input.Get("file_path").String()
		addFile(path)
		res.Artifacts = append(res.Artifacts, Artifact{Type: models.ArtifactTypeFileWrite, Value: path})
	case "Edit", "NotebookEdit":
		path := input.Get("file_path").String()
		if path == "" {
			path = input.Get("notebook_path").String()
		}
		addFile(path)
		meta := map[string]interface{}{}
		if old := input.Get("old_string").String(); old != "" {
			meta["old_string_preview"] = truncate(old, 100)
		}
		res.Artifacts = append(res.Artifacts, Artifact{Type: models.ArtifactTypeFileEdit, Value: path, Metadata: meta})
	case "Bash":
		cmd := truncate(input.Get("command").String(), 500)
		res.CommandsRun = append(res.CommandsRun, cmd)
		res.Artifacts = append(res.Artifacts, Artifact{Type: models.ArtifactTypeCommand, Value: cmd})
	case "Task":
		meta := map[string]interface{}{
			"subagent_type": input.Get("subagent_type").String(),
			"prompt":        truncate(input.Get("prompt").String(), 200),
		}
		res.Artifacts = append(res.Artifacts, Artifact{Type: models.ArtifactTypeToolCall, Value: name, Metadata: meta})
	default:
		meta := map[string]interface{}{"tool_name": name}
		keys := firstInputKeys(input, 10)
		if len(keys) > 0 {
			meta["input_keys"] = keys
		}
		res.Artifacts = append(res.Artifacts, Artifact{Type: models.ArtifactTypeToolCall, Value: name, Metadata: meta})
	}
}

func handleToolError(res *Result, block gjson.Result) {
	text := extractToolResultText(block.Get("content"))
	text = truncate(text, 500)
	res.ErrorsEncountered = append(res.ErrorsEncountered, text)
	res.Artifacts = append(res.Artifacts, Artifact{Type: models.ArtifactTypeError, Value: text})
}

// extractToolResultText handles a tool_result's content, which may be a
// bare string or a list of text blocks (same shape rule as message text).
func extractToolResultText(content gjson.Result) string {
	if content.Type == gjson.String {
		return content.String()
	}
	if content.IsArray() {
		var parts []string
		content.ForEach(func(_, block gjson.Result) bool {
			if block.Get("type").String() == "text" {
				if t := block.Get("text").String(); t != "" {
					parts = append(parts, t)
				}
			}
			return true
		})
		return strings.Join(parts, "\n")
	}
	return ""
}

func firstInputKeys(input gjson.Result, max int) []string {
	if !input.IsObject() {
		return nil
	}
	var keys []string
	input.ForEach(func(k, _ gjson.Result) bool {
		if len(keys) >= max {
			return false
		}
		keys = append(keys, k.String())
		return true
	})
	return keys
}

func truncate(s string, n int) string {
	if len(s) <= n {
		return s
	}
	return s[:n]
}
