// Package classify is the fast keyword/regex matcher of spec.md §4.5,
// grounded on original_source/simon/context/classifier.py.
package classify

import (
	"regexp"
	"strings"

	"focus/internal/artifact"
	"focus/internal/domain/models"
	"focus/internal/projectstate"
)

// Classification is the output of one Classify call.
type Classification struct {
	ProjectSlugs     []string
	PersonNames      []string
	QueryType        string
	WorkspaceProject string
	ExplicitProject  string
	FilePaths        []string
	Confidence       float64
}

// Closed query-type vocabularies, case-insensitive whole-word, checked in
// code → email → task → meta priority order (spec.md §4.5).
var (
	codePatterns  = compileVocab("bug", "fix", "error", "refactor", "test", "function", "class", "module", "import", "file", "code", "implement", "build", "compile", "lint", "deploy")
	emailPatterns = compileVocab("email", "reply", "send", "draft", "inbox", "gmail", "message", "forward")
	taskPatterns  = compileVocab("task", "todo", "priority", "deadline", "sprint", "kanban", "backlog", "assign", "commit", "milestone")
	metaPatterns  = compileVocab("focus", "vault", "sync", "config", "setup", "hook", "daemon", "worker")
)

func compileVocab(words ...string) *regexp.Regexp {
	escaped := make([]string, len(words))
	for i, w := range words {
		escaped[i] = regexp.QuoteMeta(w)
	}
	return regexp.MustCompile(`(?i)\b(?:` + strings.Join(escaped, "|") + `)\b`)
}

// Classifier holds the per-invocation preloaded entity lists (spec.md
// §4.5's load_entities step).
type Classifier struct {
	projects []models.Project
	people   []models.Person
	state    *projectstate.Store
}

// New builds a Classifier from preloaded active projects and named people.
func New(projects []models.Project, people []models.Person, state *projectstate.Store) *Classifier {
	return &Classifier{projects: projects, people: people, state: state}
}

// Classify runs the classification steps of spec.md §4.5 against prompt
// and the invoking workspace cwd (may be empty).
func (c *Classifier) Classify(prompt, cwd string) Classification {
	if len(strings.TrimSpace(prompt)) < 3 {
		return Classification{QueryType: "general"}
	}

	promptLower := strings.ToLower(prompt)
	result := Classification{QueryType: "general"}

	if active, ok := c.state.GetActiveProject(cwd); ok && active != "" {
		result.ExplicitProject = active
		result.ProjectSlugs = appendUnique(result.ProjectSlugs, active)
	}

	if cwd != "" {
		result.WorkspaceProject = strings.ToLower(baseName(cwd))
	}

	for _, p := range c.projects {
		slugLower := strings.ToLower(p.Slug)
		nameLower := strings.ToLower(p.Name)
		if wordMatch(slugLower, promptLower) {
			result.ProjectSlugs = appendUnique(result.ProjectSlugs, p.Slug)
		} else if wordMatch(nameLower, promptLower) {
			result.ProjectSlugs = appendUnique(result.ProjectSlugs, p.Slug)
		}
	}

	for _, person := range c.people {
		if len(person.Name) <= 2 {
			continue
		}
		if wordMatch(strings.ToLower(person.Name), promptLower) {
			result.PersonNames = appendUnique(result.PersonNames, person.Name)
		}
	}

	result.QueryType = detectQueryType(prompt)
	result.FilePaths = artifact.ExtractFilePaths(prompt)
	result.Confidence = computeConfidence(result)

	return result
}

func detectQueryType(prompt string) string {
	switch {
	case codePatterns.MatchString(prompt):
		return "code"
	case emailPatterns.MatchString(prompt):
		return "email"
	case taskPatterns.MatchString(prompt):
		return "task"
	case metaPatterns.MatchString(prompt):
		return "meta"
	default:
		return "general"
	}
}

func computeConfidence(r Classification) float64 {
	floor := 0.1
	if r.QueryType != "general" {
		floor = maxFloat(floor, 0.3)
	}
	if r.WorkspaceProject != "" {
		floor = maxFloat(floor, 0.5)
	}
	if len(r.PersonNames) > 0 {
		floor = maxFloat(floor, 0.7)
	}
	if len(r.ProjectSlugs) > 0 {
		floor = maxFloat(floor, 0.8)
	}
	if r.ExplicitProject != "" {
		floor = maxFloat(floor, 0.9)
	}
	return floor
}

func maxFloat(a, b float64) float64 {
	if a > b {
		return a
	}
	return b
}

// wordMatch escapes pattern, prepends/appends a word-boundary anchor only
// when the corresponding end of the pattern is alphanumeric, and falls
// back to substring containment on a regex compile error.
func wordMatch(pattern, text string) bool {
	if pattern == "" {
		return false
	}
	escaped := regexp.QuoteMeta(pattern)
	prefix := ""
	suffix := ""
	if isAlnum(rune(pattern[0])) {
		prefix = `\b`
	}
	if isAlnum(rune(pattern[len(pattern)-1])) {
		suffix = `\b`
	}
	re, err := regexp.Compile(prefix + escaped + suffix)
	if err != nil {
		return strings.Contains(text, pattern)
	}
	return re.MatchString(text)
}

func isAlnum(r rune) bool {
	return (r >= 'a' && r <= 'z') || (r >= 'A' && r <= 'Z') || (r >= '0' && r <= '9')
}

func appendUnique(list []string, value string) []string {
	for _, v := range list {
		if v == value {
			return list
		}
	}
	return append(list, value)
}

func baseName(path string) string {
	path = strings.TrimRight(path, "/")
	if idx := strings.LastIndex(path, "/"); idx >= 0 {
		return path[idx+1:]
	}
	return path
}
