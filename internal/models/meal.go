// internal/models/meal.go
package models

import (
	"time"
)

type Meal struct {
	ID        string     `json:"id"`
	BabyID    string     `json:"baby_id"`
	MealDate  string     `json:"meal_date"` // YYYY-MM-DD
	MealTime  string     `json:"meal_time"` // HH:MM
	MealType  MealType   `json:"meal_type,omitempty"`
	Items     []MealItem `json:"items"`
	Reactions []string   `json:"reactions,omitempty"`
	Notes     string     `json:"notes,omitempty"`
	CreatedAt time.Time  `json:"created_at"`
	UpdatedAt time.Time  `json:"updated_at"`
}

// MealItem references a catalog food either by id or by free text. When both
// are set the id wins.
type MealItem struct {
	FoodID     string `json:"food_id,omitempty"`
	FreeText   string `json:"free_text,omitempty"`
	PortionTag string `json:"portion_tag"`
}

func (i MealItem) IsEmpty() bool {
	return i.FoodID == "" && i.FreeText == ""
}

// Label is what a caller typed or picked for this item.
func (i MealItem) Label() string {
	if i.FoodID != "" {
		return i.FoodID
	}
	return i.FreeText
}

type MealType string

const (
	Breakfast MealType = "breakfast"
	Lunch     MealType = "lunch"
	Dinner    MealType = "dinner"
	Snack     MealType = "snack"
)

func (t MealType) IsValid() bool {
	switch t {
	case Breakfast, Lunch, Dinner, Snack, "":
		return true
	}
	return false
}
