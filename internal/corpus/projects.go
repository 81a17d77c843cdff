package corpus

import (
	"sort"
	"strings"

	"github.com/sahilm/fuzzy"
)

// MatchProjects returns the projects matching pattern, sorted by name.
// Project directories are usually mangled absolute paths such as
// "-Users-me-code-app", so a pattern is matched fuzzily: "app" or "code/app"
// both select that project. A case-insensitive exact match wins over fuzzy
// matches. An empty pattern selects every project.
func MatchProjects(pattern string, projects []string) []string {
	pattern = strings.TrimSpace(pattern)
	if pattern == "" {
		return projects
	}
	for _, p := range projects {
		if strings.EqualFold(p, pattern) {
			return []string{p}
		}
	}

	// Path separators in the pattern correspond to dashes in directory names.
	pattern = strings.NewReplacer("/", "-", "\\", "-").Replace(pattern)
	matches := fuzzy.Find(pattern, projects)
	out := make([]string, 0, len(matches))
	for _, m := range matches {
		out = append(out, m.Str)
	}
	sort.Strings(out)
	return out
}
