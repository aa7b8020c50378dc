package artifact

import "regexp"

// Known-shaped extensions for the absolute-path pattern, and the
// conventional source-prefix folders for the relative-path pattern —
// spec.md §4.2's secondary free-text path extractor, and an explicitly
// named Open Question in spec.md §9 (the prefix set is narrow by design;
// widening it is a product decision, not a bug, so it is preserved as-is).
var (
	absolutePathPattern = regexp.MustCompile(`(?:^|[^\w./-])(/[\w./-]+\.(?:go|py|js|ts|tsx|jsx|rb|java|c|cpp|h|hpp|rs|md|json|yaml|yml|toml|sh|sql)\b)`)
	relativePathPattern = regexp.MustCompile(`\b(?:src|tests|lib|app|pkg)/[\w./-]+\.\w+\b`)
)

// ExtractFilePaths scans free text for file-path shapes and returns the
// unique paths longer than 3 characters, first-seen order preserved.
func ExtractFilePaths(text string) []string {
	var out []string
	seen := make(map[string]bool)

	add := func(matches []string) {
		for _, m := range matches {
			if len(m) <= 3 || seen[m] {
				continue
			}
			seen[m] = true
			out = append(out, m)
		}
	}

	var absolute []string
	for _, m := range absolutePathPattern.FindAllStringSubmatch(text, -1) {
		absolute = append(absolute, m[1])
	}
	add(absolute)
	add(relativePathPattern.FindAllString(text, -1))
	return out
}
