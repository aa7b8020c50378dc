package skill

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"

	"gopkg.in/yaml.v3"

	"focus/internal/llm"
)

// SkillGenerationSystem is the system prompt for the skill-generation
// capability, grounded on original_source/simon/skills/generator.go.
const SkillGenerationSystem = `You generate Claude Code skills (SKILL.md files) following the Agent Skills standard.

Given a description of what the skill should do and context about the project/task,
generate a skill with:

1. A short name (lowercase-with-hyphens, max 64 chars)
2. A description (1-2 sentences explaining what it does and when to use it)
3. Step-by-step markdown instructions for Claude to follow

Your output MUST be valid JSON with these fields:
- name: string (lowercase, hyphens only, max 64 chars)
- description: string (1-2 sentences, max 200 chars)
- body: string (markdown instructions, specific and actionable)
- allowed_tools: list of strings (Claude Code tools this skill needs, e.g. ["Read", "Write", "Bash", "Grep", "Glob"])

Keep instructions concise and specific. Reference file paths, commands, and patterns
from the context when available. Focus on the repeatable workflow, not one-time setup.`

// Context is the project-specific context fed to skill generation.
type Context struct {
	WorkspacePath  string
	ProjectSlug    string
	FilesTouched   []string
	CommandsRun    []string
	ToolsUsed      []string
	Conventions    string
	SessionSummary string
}

// Generated is a generated skill ready for installation.
type Generated struct {
	Name        string
	Description string
	Body        string
	FullContent string
	Source      string
}

type generationResponse struct {
	Name         string   `json:"name"`
	Description  string   `json:"description"`
	Body         string   `json:"body"`
	AllowedTools []string `json:"allowed_tools"`
}

// GenerateSkillMD calls the LLM provider to turn description+context into
// a complete SKILL.md. It returns an error on any failure: a failed
// provider call, an unparseable response, a name that does not
// normalize, or an empty body.
func GenerateSkillMD(ctx context.Context, provider llm.Provider, model, description string, skillCtx Context, source string) (*Generated, error) {
	prompt := buildGenerationPrompt(description, skillCtx)

	raw, err := provider.Complete(ctx, model, SkillGenerationSystem, prompt, 2000)
	if err != nil {
		return nil, fmt.Errorf("skill generation request failed: %w", err)
	}

	parsed, err := parseGenerationResponse(raw)
	if err != nil {
		return nil, fmt.Errorf("parse skill generation response: %w", err)
	}

	name, err := ValidateSkillName(parsed.Name)
	if err != nil {
		return nil, err
	}
	desc := parsed.Description
	if desc == "" {
		desc = description
	}
	desc = truncateRunes(desc, 200)

	if parsed.Body == "" {
		return nil, fmt.Errorf("LLM returned empty skill body")
	}

	fullContent := RenderSkillMD(name, desc, parsed.Body, parsed.AllowedTools, false)

	return &Generated{
		Name:        name,
		Description: desc,
		Body:        parsed.Body,
		FullContent: fullContent,
		Source:      source,
	}, nil
}

// frontmatter is the fixed front-matter shape spec.md §6 defines for
// SKILL.md files, field order preserved by struct tags rather than a
// plain map (YAML map keys sort alphabetically otherwise).
type frontmatter struct {
	Name                   string `yaml:"name"`
	Description            string `yaml:"description"`
	AllowedTools           string `yaml:"allowed-tools,omitempty"`
	DisableModelInvocation bool   `yaml:"disable-model-invocation,omitempty"`
}

// RenderSkillMD assembles a complete SKILL.md file with YAML front-matter,
// marshaled via gopkg.in/yaml.v3 rather than hand-built lines.
func RenderSkillMD(name, description, body string, allowedTools []string, disableModelInvocation bool) string {
	fm := frontmatter{
		Name:                   name,
		Description:            description,
		DisableModelInvocation: disableModelInvocation,
	}
	if len(allowedTools) > 0 {
		fm.AllowedTools = strings.Join(allowedTools, ", ")
	}

	encoded, err := yaml.Marshal(fm)
	if err != nil {
		encoded = []byte(fmt.Sprintf("name: %s\ndescription: %s\n", name, description))
	}

	var sb strings.Builder
	sb.WriteString("---\n")
	sb.Write(encoded)
	sb.WriteString("---\n\n")
	sb.WriteString(strings.TrimSpace(body))
	sb.WriteString("\n")
	return sb.String()
}

func buildGenerationPrompt(description string, c Context) string {
	var parts []string
	parts = append(parts, "Generate a Claude Code skill for:\n"+description)

	if c.WorkspacePath != "" {
		parts = append(parts, "\nWorkspace: "+c.WorkspacePath)
	}
	if c.SessionSummary != "" {
		parts = append(parts, "\nSession summary:\n"+truncateRunes(c.SessionSummary, 2000))
	}
	if len(c.FilesTouched) > 0 {
		parts = append(parts, "\nFiles involved: "+strings.Join(firstNStrings(c.FilesTouched, 20), ", "))
	}
	if len(c.CommandsRun) > 0 {
		parts = append(parts, "\nCommands used: "+strings.Join(firstNStrings(c.CommandsRun, 10), ", "))
	}
	if len(c.ToolsUsed) > 0 {
		parts = append(parts, "\nTools used: "+strings.Join(firstNStrings(c.ToolsUsed, 10), ", "))
	}
	if c.Conventions != "" {
		parts = append(parts, "\nProject conventions:\n"+truncateRunes(c.Conventions, 1000))
	}
	parts = append(parts, "\nReturn JSON with: name, description, body, allowed_tools")
	return strings.Join(parts, "\n")
}

// parseGenerationResponse strips an optional markdown code fence before
// decoding the JSON payload.
func parseGenerationResponse(raw string) (generationResponse, error) {
	text := strings.TrimSpace(raw)
	if strings.HasPrefix(text, "```") {
		lines := strings.Split(text, "\n")
		lines = lines[1:]
		if len(lines) > 0 && strings.TrimSpace(lines[len(lines)-1]) == "```" {
			lines = lines[:len(lines)-1]
		}
		text = strings.Join(lines, "\n")
	}

	var parsed generationResponse
	if err := json.Unmarshal([]byte(text), &parsed); err != nil {
		return generationResponse{}, err
	}
	return parsed, nil
}

func truncateRunes(s string, n int) string {
	r := []rune(s)
	if len(r) <= n {
		return s
	}
	return string(r[:n])
}

func firstNStrings(items []string, n int) []string {
	if len(items) <= n {
		return items
	}
	return items[:n]
}
