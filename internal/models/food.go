// internal/models/food.go
package models

type Category string

const (
	CategoryFruit     Category = "fruit"
	CategoryVegetable Category = "vegetable"
	CategoryProtein   Category = "protein"
	CategoryDairy     Category = "dairy"
	CategoryGrain     Category = "grain"
	CategorySweetener Category = "sweetener"
	CategoryDrink     Category = "drink"
	CategoryOther     Category = "other"
)

var Categories = []Category{
	CategoryFruit,
	CategoryVegetable,
	CategoryProtein,
	CategoryDairy,
	CategoryGrain,
	CategorySweetener,
	CategoryDrink,
	CategoryOther,
}

func (c Category) IsValid() bool {
	for _, known := range Categories {
		if c == known {
			return true
		}
	}
	return false
}

// Food is a read-only catalog entry.
type Food struct {
	ID               string   `json:"id" yaml:"id"`
	Name             string   `json:"name" yaml:"name"`
	Category         Category `json:"category" yaml:"category"`
	Allergens        []string `json:"allergens" yaml:"allergens"`
	Tags             []string `json:"tags" yaml:"tags"`
	ChokingFormNotes string   `json:"choking_form_notes,omitempty" yaml:"choking_form_notes"`
	IronMgPer100g    *float64 `json:"iron_mg_per_100g,omitempty" yaml:"iron_mg_per_100g"`
}

func (f Food) HasAllergens() bool {
	return len(f.Allergens) > 0
}

func (f Food) HasTag(tag string) bool {
	for _, t := range f.Tags {
		if t == tag {
			return true
		}
	}
	return false
}
