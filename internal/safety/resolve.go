package safety

import (
	"strings"

	"mcp-baby-meals/internal/models"
)

// ResolveFood finds the catalog food a meal item refers to. An id is looked up
// exactly. Free text matches the first food whose lowercased name contains the
// text or is contained in it, so "pea" can resolve to "Peanut" if that comes
// first in the catalog.
func ResolveFood(item models.MealItem, foods []models.Food) (*models.Food, bool) {
	if item.FoodID != "" {
		for i := range foods {
			if foods[i].ID == item.FoodID {
				return &foods[i], true
			}
		}
		return nil, false
	}

	if item.FreeText == "" {
		return nil, false
	}

	search := strings.ToLower(item.FreeText)
	for i := range foods {
		name := strings.ToLower(foods[i].Name)
		if strings.Contains(name, search) || strings.Contains(search, name) {
			return &foods[i], true
		}
	}
	return nil, false
}
