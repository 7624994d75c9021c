package pantrychef

import (
	"encoding/json"
	"fmt"
	"net/http"
	"strings"
	"time"
)

type HTTPClient interface {
	Do(req *http.Request) (*http.Response, error)
}

// RecipeType classifies a recommended recipe. The model answers with the
// Chinese display labels; both forms decode to the same value.
type RecipeType string

const (
	RecipeTypeQuick  RecipeType = "quick"  // 快手菜, cooking time <= 20 minutes
	RecipeTypeHearty RecipeType = "hearty" // 营养大餐, serves 2-4
	RecipeTypeOnePot RecipeType = "onepot" // 省时锅, one pot, serves 3-6
)

var recipeTypeLabels = map[string]RecipeType{
	"快手菜":    RecipeTypeQuick,
	"营养大餐":   RecipeTypeHearty,
	"省时锅":    RecipeTypeOnePot,
	"quick":  RecipeTypeQuick,
	"hearty": RecipeTypeHearty,
	"onepot": RecipeTypeOnePot,
}

func (rt *RecipeType) UnmarshalJSON(data []byte) error {
	var s string
	if err := json.Unmarshal(data, &s); err != nil {
		return err
	}
	if mapped, ok := recipeTypeLabels[strings.TrimSpace(s)]; ok {
		*rt = mapped
		return nil
	}
	// Keep the raw label; Validate rejects it with a usable message.
	*rt = RecipeType(s)
	return nil
}

// Known reports whether the type is one of the three supported categories.
func (rt RecipeType) Known() bool {
	switch rt {
	case RecipeTypeQuick, RecipeTypeHearty, RecipeTypeOnePot:
		return true
	}
	return false
}

// Nutrition holds macro-nutrient shares as percentages of calories.
type Nutrition struct {
	Protein int `json:"protein"`
	Carb    int `json:"carb"`
	Fat     int `json:"fat"`
}

// Sum returns the combined percentage. A well-formed answer sums to 100.
func (n Nutrition) Sum() int {
	return n.Protein + n.Carb + n.Fat
}

// RecipeIngredient is one line of a recipe's ingredient list.
type RecipeIngredient struct {
	Name   string  `json:"name"`
	Amount float64 `json:"amount"`
	Unit   string  `json:"unit"`
}

// Recipe is a single recommendation decoded from the model's answer.
type Recipe struct {
	Name               string             `json:"name"`
	Type               RecipeType         `json:"type"`
	CookingTime        string             `json:"cooking_time"`
	Servings           string             `json:"servings"`
	Calories           int                `json:"calories"`
	Nutrition          Nutrition          `json:"nutrition"`
	Ingredients        []RecipeIngredient `json:"ingredients"`
	Steps              []string           `json:"steps"`
	ExpirationPriority bool               `json:"expiration_priority"`
	Tips               string             `json:"tips"`
}

// Validate checks the invariants a decoded recipe must satisfy: required
// fields present and non-empty, numeric fields non-negative, ingredient and
// step lists non-empty. It returns the first violation found.
func (r *Recipe) Validate() error {
	if strings.TrimSpace(r.Name) == "" {
		return fmt.Errorf("missing name")
	}
	if !r.Type.Known() {
		return fmt.Errorf("unknown recipe type %q", string(r.Type))
	}
	if r.Calories < 0 {
		return fmt.Errorf("negative calories %d", r.Calories)
	}
	if r.Nutrition.Protein < 0 || r.Nutrition.Carb < 0 || r.Nutrition.Fat < 0 {
		return fmt.Errorf("negative nutrition share")
	}
	if len(r.Ingredients) == 0 {
		return fmt.Errorf("empty ingredient list")
	}
	for _, ing := range r.Ingredients {
		if strings.TrimSpace(ing.Name) == "" {
			return fmt.Errorf("ingredient with empty name")
		}
		if ing.Amount < 0 {
			return fmt.Errorf("ingredient %q has negative amount", ing.Name)
		}
	}
	if len(r.Steps) == 0 {
		return fmt.Errorf("empty step list")
	}
	for i, step := range r.Steps {
		if strings.TrimSpace(step) == "" {
			return fmt.Errorf("empty step at index %d", i)
		}
	}
	return nil
}

// InventoryItem is a raw pantry record as loaded from an inventory artifact.
// The inventory itself is owned by the pantry app; this service only reads
// point-in-time exports of it.
type InventoryItem struct {
	ID           string     `json:"id,omitempty"`
	Name         string     `json:"name"`
	Category     string     `json:"category"`
	Quantity     float64    `json:"quantity"`
	Unit         string     `json:"unit"`
	PurchaseDate *time.Time `json:"purchase_date,omitempty"`
	ExpiryDate   *time.Time `json:"expiry_date,omitempty"`
}

// IngredientSnapshot is an immutable, fingerprintable view of one inventory
// item with the expiry already resolved to whole days so nothing downstream
// needs to consult the clock.
type IngredientSnapshot struct {
	ID        string  `json:"id"`
	Name      string  `json:"name"`
	Category  string  `json:"category"`
	Quantity  float64 `json:"quantity"`
	Unit      string  `json:"unit"`
	DaysLeft  int     `json:"days_left"`
	HasExpiry bool    `json:"has_expiry"`
}

// NearExpiry reports whether the ingredient should carry the urgency mark
// in the prompt: a known expiry within the next three days.
func (s IngredientSnapshot) NearExpiry() bool {
	return s.HasExpiry && s.DaysLeft >= 0 && s.DaysLeft <= 3
}

// HistoryEntry is one recent meal, already rendered with its display date.
// History is only ever turned into prompt text, never parsed back.
type HistoryEntry struct {
	Date string `json:"date"`
	Meal string `json:"meal"`
}
