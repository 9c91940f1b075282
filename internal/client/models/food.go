package models

import (
	"encoding/json"
	"fmt"
)

// Food is a single nutrition entry.
type Food struct {
	ID          string  `json:"id"`
	Name        string  `json:"name"`
	NameAr      string  `json:"nameAr,omitempty"`
	Category    string  `json:"category,omitempty"`
	ServingSize float64 `json:"servingSize"`
	ServingUnit string  `json:"servingUnit"`
	Calories    float64 `json:"calories"`
	Protein     float64 `json:"protein"`
	Carbs       float64 `json:"carbs"`
	Fat         float64 `json:"fat"`
}

// Ingredient is a food and its quantity within a recipe.
type Ingredient struct {
	FoodID   string  `json:"foodId"`
	Quantity float64 `json:"quantity"`
	Unit     string  `json:"unit,omitempty"`
}

// Recipe is a composition of foods.
type Recipe struct {
	ID           string       `json:"id"`
	Name         string       `json:"name"`
	NameAr       string       `json:"nameAr,omitempty"`
	Servings     int          `json:"servings"`
	Ingredients  []Ingredient `json:"ingredients"`
	Instructions string       `json:"instructions,omitempty"`
}

// Decode converts the untyped record data into T. The record id is
// injected under "id" so typed structs carry it.
func Decode[T any](r Record) (T, error) {
	var out T

	data := CloneData(r.Data)
	if data == nil {
		data = map[string]any{}
	}
	data["id"] = r.ID

	raw, err := json.Marshal(data)
	if err != nil {
		return out, fmt.Errorf("encode record %s: %w", r.ID, err)
	}
	if err := json.Unmarshal(raw, &out); err != nil {
		return out, fmt.Errorf("decode record %s: %w", r.ID, err)
	}
	return out, nil
}
