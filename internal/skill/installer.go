// Package skill is the Skill Subsystem of spec.md §4.10: installing,
// listing, and scoring SKILL.md files on disk. Grounded on
// original_source/simon/skills/installer.go.
package skill

import (
	"fmt"
	"os"
	"path/filepath"
	"regexp"
	"sort"
	"strings"

	"gopkg.in/yaml.v3"
)

const skillFileName = "SKILL.md"

// InstalledSkill is one installed skill on disk, as parsed from its
// SKILL.md front-matter.
type InstalledSkill struct {
	Name        string
	Description string
	Path        string
	Scope       string // "personal" or "project"
	Source      string
}

func personalSkillsDir() string {
	home, err := os.UserHomeDir()
	if err != nil {
		return ""
	}
	return filepath.Join(home, ".claude", "skills")
}

func projectSkillsDir(projectPath string) string {
	if projectPath == "" {
		projectPath, _ = os.Getwd()
	}
	return filepath.Join(projectPath, ".claude", "skills")
}

func skillsDirFor(scope, projectPath string) string {
	if scope == "project" {
		return projectSkillsDir(projectPath)
	}
	return personalSkillsDir()
}

// ParseFrontmatter decodes the YAML block between a SKILL.md file's
// leading --- delimiters via gopkg.in/yaml.v3, flattening scalar and
// list values to strings (allowed-tools' list form is joined with ", "
// to match its front-matter-line form). Malformed or missing
// front-matter yields an empty map, never an error.
func ParseFrontmatter(content string) map[string]string {
	fm := map[string]string{}
	block, ok := frontmatterBlock(content)
	if !ok {
		return fm
	}

	var raw map[string]interface{}
	if err := yaml.Unmarshal([]byte(block), &raw); err != nil {
		return fm
	}
	for key, value := range raw {
		switch v := value.(type) {
		case string:
			fm[key] = v
		case bool:
			fm[key] = fmt.Sprintf("%t", v)
		case []interface{}:
			items := make([]string, 0, len(v))
			for _, item := range v {
				items = append(items, fmt.Sprintf("%v", item))
			}
			fm[key] = strings.Join(items, ", ")
		default:
			fm[key] = fmt.Sprintf("%v", v)
		}
	}
	return fm
}

// frontmatterBlock returns the raw YAML text between a SKILL.md file's
// leading --- delimiters, or ok=false if the file has none.
func frontmatterBlock(content string) (string, bool) {
	if !strings.HasPrefix(content, "---") {
		return "", false
	}
	lines := strings.Split(content, "\n")
	endIdx := -1
	for i := 1; i < len(lines); i++ {
		if strings.TrimSpace(lines[i]) == "---" {
			endIdx = i
			break
		}
	}
	if endIdx == -1 {
		return "", false
	}
	return strings.Join(lines[1:endIdx], "\n"), true
}

// bodyAfterFrontmatter returns the instruction body following the second
// --- delimiter, or the whole content if there's no front-matter.
func bodyAfterFrontmatter(content string) string {
	parts := strings.SplitN(content, "---", 3)
	if len(parts) >= 3 {
		return strings.TrimSpace(parts[2])
	}
	return strings.TrimSpace(content)
}

var skillNamePattern = regexp.MustCompile(`^[a-z0-9][a-z0-9-]*[a-z0-9]$|^[a-z0-9]$`)

// ValidateSkillContent checks content against the Agent Skills shape:
// front-matter present, name normalized, description present, and a
// non-empty instruction body.
func ValidateSkillContent(content string) []string {
	var errs []string

	if strings.TrimSpace(content) == "" {
		return []string{"skill content is empty"}
	}
	if !strings.HasPrefix(content, "---") {
		return []string{"missing YAML frontmatter (must start with ---)"}
	}

	fm := ParseFrontmatter(content)
	if name, ok := fm["name"]; ok {
		if !skillNamePattern.MatchString(name) {
			errs = append(errs, fmt.Sprintf("invalid skill name %q: must be lowercase alphanumeric + hyphens", name))
		}
		if len(name) > 64 {
			errs = append(errs, fmt.Sprintf("skill name too long (%d > 64 chars)", len(name)))
		}
	}
	if desc, ok := fm["description"]; !ok || desc == "" {
		errs = append(errs, "missing or empty 'description' field in frontmatter")
	}
	if bodyAfterFrontmatter(content) == "" {
		errs = append(errs, "missing instruction body after frontmatter")
	}
	return errs
}

// ValidateSkillName normalizes and checks a proposed skill name, applying
// the same lowercase-alphanumeric-plus-hyphens rule as ValidateSkillContent.
func ValidateSkillName(name string) (string, error) {
	normalized := strings.ToLower(strings.TrimSpace(name))
	normalized = regexp.MustCompile(`\s+`).ReplaceAllString(normalized, "-")
	normalized = regexp.MustCompile(`[^a-z0-9-]`).ReplaceAllString(normalized, "")
	normalized = strings.Trim(normalized, "-")
	if normalized == "" {
		return "", fmt.Errorf("skill name %q normalizes to empty string", name)
	}
	if len(normalized) > 64 {
		normalized = normalized[:64]
		normalized = strings.TrimRight(normalized, "-")
	}
	if !skillNamePattern.MatchString(normalized) {
		return "", fmt.Errorf("normalized skill name %q is still invalid", normalized)
	}
	return normalized, nil
}

// InstallSkill writes content as name/SKILL.md under the scope's skills
// directory. It refuses to overwrite an existing skill unless force is
// set, and validates content first.
func InstallSkill(name, content, scope, projectPath string, force bool, supportingFiles map[string]string) (string, error) {
	if errs := ValidateSkillContent(content); len(errs) > 0 {
		return "", fmt.Errorf("invalid skill content: %s", strings.Join(errs, "; "))
	}

	skillDir := filepath.Join(skillsDirFor(scope, projectPath), name)
	if _, err := os.Stat(skillDir); err == nil && !force {
		return "", fmt.Errorf("skill %q already exists at %s (force required to overwrite)", name, skillDir)
	}

	if err := os.MkdirAll(skillDir, 0o755); err != nil {
		return "", err
	}
	skillPath := filepath.Join(skillDir, skillFileName)
	if err := os.WriteFile(skillPath, []byte(content), 0o644); err != nil {
		return "", err
	}

	for filename, fileContent := range supportingFiles {
		filePath := filepath.Join(skillDir, filename)
		if err := os.MkdirAll(filepath.Dir(filePath), 0o755); err != nil {
			return "", err
		}
		if err := os.WriteFile(filePath, []byte(fileContent), 0o644); err != nil {
			return "", err
		}
	}

	return skillPath, nil
}

// UninstallSkill removes an installed skill's directory. It reports
// whether anything was removed.
func UninstallSkill(name, scope, projectPath string) (bool, error) {
	skillDir := filepath.Join(skillsDirFor(scope, projectPath), name)
	if _, err := os.Stat(skillDir); err != nil {
		return false, nil
	}
	if err := os.RemoveAll(skillDir); err != nil {
		return false, err
	}
	return true, nil
}

// ListInstalledSkills scans the personal and/or project skills
// directories and parses each SKILL.md's front-matter. scope is
// "personal", "project", or "all".
func ListInstalledSkills(scope, projectPath string) []InstalledSkill {
	var skills []InstalledSkill

	type scanDir struct {
		scope string
		dir   string
	}
	var dirs []scanDir
	if scope == "personal" || scope == "all" {
		dirs = append(dirs, scanDir{"personal", personalSkillsDir()})
	}
	if scope == "project" || scope == "all" {
		dirs = append(dirs, scanDir{"project", projectSkillsDir(projectPath)})
	}

	for _, d := range dirs {
		entries, err := os.ReadDir(d.dir)
		if err != nil {
			continue
		}
		sort.Slice(entries, func(i, j int) bool { return entries[i].Name() < entries[j].Name() })

		for _, entry := range entries {
			if !entry.IsDir() {
				continue
			}
			skillPath := filepath.Join(d.dir, entry.Name(), skillFileName)
			content, err := os.ReadFile(skillPath)
			if err != nil {
				continue
			}
			fm := ParseFrontmatter(string(content))
			name := fm["name"]
			if name == "" {
				name = entry.Name()
			}
			skills = append(skills, InstalledSkill{
				Name:        name,
				Description: fm["description"],
				Path:        skillPath,
				Scope:       d.scope,
				Source:      fm["source"],
			})
		}
	}

	return skills
}

// ReadBody returns the installed skill's instruction body (the content
// following its front-matter), or "" if the file can't be read.
func ReadBody(s InstalledSkill) string {
	content, err := os.ReadFile(s.Path)
	if err != nil {
		return ""
	}
	return bodyAfterFrontmatter(string(content))
}
