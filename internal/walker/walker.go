package walker

import (
	"fmt"
	"path/filepath"
	"sort"
	"strings"

	"github.com/bmatcuk/doublestar/v4"
)

type ExpandResult struct {
	Paths  []string
	Errors []error
}

// Expand turns watch patterns into concrete paths. Glob patterns (doublestar
// syntax, including **) are matched against the filesystem once; plain paths
// are kept even when they do not exist yet. Paths matching an exclusion are
// dropped and duplicates are removed.
func Expand(patterns []string, exclusions []string) (*ExpandResult, error) {
	result := &ExpandResult{
		Paths:  make([]string, 0, len(patterns)),
		Errors: make([]error, 0),
	}
	seen := make(map[string]bool)

	add := func(path string) {
		clean := filepath.Clean(path)
		if seen[clean] || Excluded(clean, exclusions) {
			return
		}
		seen[clean] = true
		result.Paths = append(result.Paths, clean)
	}

	for _, pattern := range patterns {
		if !isGlob(pattern) {
			add(pattern)
			continue
		}

		if !doublestar.ValidatePathPattern(pattern) {
			return nil, fmt.Errorf("invalid watch pattern %q", pattern)
		}

		matches, err := doublestar.FilepathGlob(pattern, doublestar.WithFailOnIOErrors())
		if err != nil {
			// Keep expanding the remaining patterns
			result.Errors = append(result.Errors, fmt.Errorf("%s: %w", pattern, err))
			continue
		}
		sort.Strings(matches)
		for _, match := range matches {
			add(match)
		}
	}

	return result, nil
}

func isGlob(pattern string) bool {
	return strings.ContainsAny(pattern, "*?[{")
}

// Excluded reports whether path matches any exclusion. Patterns ending in "/"
// exclude any path with a matching directory component; other patterns match
// the base name, or the whole path when they contain a separator.
func Excluded(path string, exclusions []string) bool {
	slashPath := filepath.ToSlash(filepath.Clean(path))

	for _, pattern := range exclusions {
		if strings.HasSuffix(pattern, "/") {
			dirPattern := strings.TrimSuffix(pattern, "/")
			parts := strings.Split(slashPath, "/")
			for _, part := range parts {
				if matched, _ := doublestar.Match(dirPattern, part); matched {
					return true
				}
			}
			continue
		}

		if matched, err := doublestar.Match(pattern, filepath.Base(path)); err == nil && matched {
			return true
		}
		if strings.Contains(pattern, "/") {
			if matched, err := doublestar.Match(pattern, slashPath); err == nil && matched {
				return true
			}
			if matched, err := doublestar.Match("**/"+strings.TrimPrefix(pattern, "/"), slashPath); err == nil && matched {
				return true
			}
		}
	}
	return false
}
