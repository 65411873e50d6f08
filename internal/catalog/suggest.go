package catalog

import (
	"strings"

	"github.com/sahilm/fuzzy"

	"mcp-baby-meals/internal/models"
)

// Suggest returns up to n catalog food names that fuzzily match text, best
// first. It is only a hint for unresolved items and never drives resolution.
func Suggest(foods []models.Food, text string, n int) []string {
	text = strings.ToLower(strings.TrimSpace(text))
	if text == "" || n <= 0 {
		return nil
	}

	names := make([]string, len(foods))
	for i, f := range foods {
		names[i] = strings.ToLower(f.Name)
	}

	matches := fuzzy.Find(text, names)
	if len(matches) > n {
		matches = matches[:n]
	}

	out := make([]string, 0, len(matches))
	for _, m := range matches {
		out = append(out, foods[m.Index].Name)
	}
	return out
}
