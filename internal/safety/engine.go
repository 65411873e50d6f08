// Package safety decides which published feeding rules apply to a baby's meal.
package safety

import (
	"sort"
	"time"

	"mcp-baby-meals/internal/models"
)

// Catalog is a read-only snapshot of the data the engine evaluates against.
type Catalog struct {
	Babies []models.Baby
	Foods  []models.Food
	Rules  []models.SafetyRule
}

func (c Catalog) baby(id string) (*models.Baby, bool) {
	for i := range c.Babies {
		if c.Babies[i].ID == id {
			return &c.Babies[i], true
		}
	}
	return nil, false
}

// Check returns the rules triggered by items for the baby with babyID, highest
// severity first. An unknown baby or unresolvable items simply produce fewer
// (or no) rules.
func Check(catalog Catalog, babyID string, items []models.MealItem, now time.Time) []models.SafetyRule {
	baby, ok := catalog.baby(babyID)
	if !ok {
		return []models.SafetyRule{}
	}
	return Evaluate(*baby, catalog.Foods, catalog.Rules, items, now)
}

// Evaluate is Check for an already-resolved baby.
func Evaluate(baby models.Baby, foods []models.Food, rules []models.SafetyRule, items []models.MealItem, now time.Time) []models.SafetyRule {
	age := AgeInMonths(baby.DateOfBirth, now)

	triggered := []models.SafetyRule{}
	seen := make(map[string]bool)

	for _, item := range items {
		food, ok := ResolveFood(item, foods)
		if !ok {
			continue
		}
		for _, rule := range EvaluateFood(age, *food, rules) {
			if seen[rule.RuleKey] {
				continue
			}
			seen[rule.RuleKey] = true
			triggered = append(triggered, rule)
		}
	}

	SortBySeverity(triggered)
	return triggered
}

// SortBySeverity orders rules danger, caution, info, keeping ties in place.
func SortBySeverity(rules []models.SafetyRule) {
	sort.SliceStable(rules, func(i, j int) bool {
		return rules[i].Severity.Rank() > rules[j].Severity.Rank()
	})
}
