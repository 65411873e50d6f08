package safety

import (
	"strings"

	"mcp-baby-meals/internal/models"
)

// Eligible reports whether ageMonths falls in the rule's inclusive age range.
func Eligible(rule models.SafetyRule, ageMonths int) bool {
	return ageMonths >= rule.AgeMinMonths && ageMonths <= rule.AgeMaxMonths
}

// Triggers reports whether any rule tag hits the food's name, tags or allergens.
func Triggers(rule models.SafetyRule, food models.Food) bool {
	name := strings.ToLower(food.Name)

	for _, tag := range rule.Tags {
		tag = strings.ToLower(tag)
		if tag == "" {
			continue
		}

		if strings.Contains(name, tag) {
			return true
		}
		for _, ft := range food.Tags {
			if strings.ToLower(ft) == tag {
				return true
			}
		}
		for _, allergen := range food.Allergens {
			if strings.Contains(strings.ToLower(allergen), tag) {
				return true
			}
		}
	}
	return false
}

// EvaluateFood returns the rules, in catalog order, that apply to food for a
// baby of the given age.
func EvaluateFood(ageMonths int, food models.Food, rules []models.SafetyRule) []models.SafetyRule {
	var matched []models.SafetyRule
	for _, rule := range rules {
		if Eligible(rule, ageMonths) && Triggers(rule, food) {
			matched = append(matched, rule)
		}
	}
	return matched
}
