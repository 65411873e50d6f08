package catalog

import (
	"strings"

	"mcp-baby-meals/internal/models"
)

// Query narrows the food library. Zero values match everything.
type Query struct {
	Text         string
	Category     models.Category
	AllergenFree bool
}

// Filter returns the foods matching q, in catalog order. Text is matched
// case-insensitively against the name, the category and every tag.
func Filter(foods []models.Food, q Query) []models.Food {
	text := strings.ToLower(q.Text)

	out := []models.Food{}
	for _, f := range foods {
		if text != "" && !matchesText(f, text) {
			continue
		}
		if q.Category != "" && f.Category != q.Category {
			continue
		}
		if q.AllergenFree && f.HasAllergens() {
			continue
		}
		out = append(out, f)
	}
	return out
}

func matchesText(f models.Food, text string) bool {
	if strings.Contains(strings.ToLower(f.Name), text) ||
		strings.Contains(strings.ToLower(string(f.Category)), text) {
		return true
	}
	for _, tag := range f.Tags {
		if strings.Contains(strings.ToLower(tag), text) {
			return true
		}
	}
	return false
}

// AgeSuitability gives a caregiver-facing starting age for a food.
func AgeSuitability(f models.Food) string {
	switch {
	case f.HasTag("sweetener") && strings.Contains(strings.ToLower(f.Name), "honey"):
		return "12+ months (botulism risk)"
	case f.HasTag("juice"):
		return "12+ months (AAP guidelines)"
	case f.HasAllergens():
		return "6+ months (introduce carefully)"
	case f.ChokingFormNotes != "":
		return "9+ months (with modifications)"
	}
	return "6+ months"
}

const highIronMgPer100g = 10

func NutritionHighlights(f models.Food) []string {
	var highlights []string

	if f.IronMgPer100g != nil && *f.IronMgPer100g > highIronMgPer100g {
		highlights = append(highlights, "High Iron")
	}
	if f.HasTag("omega-3") {
		highlights = append(highlights, "Omega-3")
	}
	if f.HasTag("healthy-fat") {
		highlights = append(highlights, "Healthy Fats")
	}
	if f.HasTag("iron-fortified") {
		highlights = append(highlights, "Iron Fortified")
	}
	if f.Category == models.CategoryVegetable && f.HasTag("orange-vegetable") {
		highlights = append(highlights, "Vitamin A")
	}
	if f.Category == models.CategoryVegetable && f.HasTag("green-vegetable") {
		highlights = append(highlights, "Folate & Vitamin K")
	}

	return highlights
}
