package ai

import (
	"encoding/json"
	"fmt"
	"strings"

	"github.com/google/uuid"
)

// ClassificationPayload is the structured output requested for classification.
type ClassificationPayload struct {
	Category      string `json:"category" jsonschema:"enum=Fruit,enum=Vegetable,enum=Meat,enum=Dairy,enum=Grain,enum=Beverage,enum=Snack,enum=Condiment,enum=Other"`
	Emoji         string `json:"emoji"`
	ShelfLifeDays int    `json:"shelfLifeDays" jsonschema:"minimum=0"`
}

type IdentificationPayload struct {
	Name string `json:"name"`
	ClassificationPayload
}

type RecipePayload struct {
	Name            string   `json:"name"`
	Description     string   `json:"description"`
	Ingredients     []string `json:"ingredients"`
	Instructions    []string `json:"instructions"`
	TimeMinutes     int      `json:"timeMinutes" jsonschema:"minimum=1"`
	MatchPercentage int      `json:"matchPercentage" jsonschema:"minimum=0,maximum=100"`
	Calories        int      `json:"calories" jsonschema:"minimum=0"`
}

type RecipeListPayload struct {
	Recipes []RecipePayload `json:"recipes"`
}

func (p ClassificationPayload) toClassification() (Classification, error) {
	cat, err := ParseCategory(p.Category)
	if err != nil {
		return Classification{}, err
	}
	c := Classification{Category: cat, Emoji: strings.TrimSpace(p.Emoji), ShelfLifeDays: p.ShelfLifeDays}
	if err := c.Validate(); err != nil {
		return Classification{}, err
	}
	return c, nil
}

func (p RecipePayload) toRecipe(prefix string) (Recipe, error) {
	calories := p.Calories
	r := Recipe{
		ID:              prefix + uuid.NewString(),
		Name:            strings.TrimSpace(p.Name),
		Description:     strings.TrimSpace(p.Description),
		Ingredients:     p.Ingredients,
		Instructions:    p.Instructions,
		TimeMinutes:     p.TimeMinutes,
		MatchPercentage: p.MatchPercentage,
		Calories:        &calories,
	}
	if err := r.Validate(); err != nil {
		return Recipe{}, err
	}
	return r, nil
}

func DecodeClassification(content string) (Classification, error) {
	var p ClassificationPayload
	if err := json.Unmarshal([]byte(stripCodeFence(content)), &p); err != nil {
		return Classification{}, fmt.Errorf("failed to parse classification: %w", err)
	}
	return p.toClassification()
}

func DecodeIdentification(content string) (Identification, error) {
	var p IdentificationPayload
	if err := json.Unmarshal([]byte(stripCodeFence(content)), &p); err != nil {
		return Identification{}, fmt.Errorf("failed to parse identification: %w", err)
	}
	name := strings.TrimSpace(p.Name)
	if name == "" {
		return Identification{}, fmt.Errorf("identification has no name")
	}
	c, err := p.ClassificationPayload.toClassification()
	if err != nil {
		return Identification{}, err
	}
	return Identification{Name: name, Classification: c}, nil
}

// DecodeRecipes accepts either {"recipes": [...]} or a bare array; providers differ on
// whether they allow an array at the root.
func DecodeRecipes(content string) ([]Recipe, error) {
	content = stripCodeFence(content)
	var payloads []RecipePayload
	if strings.HasPrefix(content, "[") {
		if err := json.Unmarshal([]byte(content), &payloads); err != nil {
			return nil, fmt.Errorf("failed to parse recipes: %w", err)
		}
	} else {
		var list RecipeListPayload
		if err := json.Unmarshal([]byte(content), &list); err != nil {
			return nil, fmt.Errorf("failed to parse recipes: %w", err)
		}
		payloads = list.Recipes
	}
	if len(payloads) == 0 {
		return nil, fmt.Errorf("provider returned no recipes")
	}
	recipes := make([]Recipe, 0, len(payloads))
	for _, p := range payloads {
		r, err := p.toRecipe("ai-")
		if err != nil {
			return nil, err
		}
		recipes = append(recipes, r)
	}
	return recipes, nil
}

func DecodeRecipe(content string) (Recipe, error) {
	var p RecipePayload
	if err := json.Unmarshal([]byte(stripCodeFence(content)), &p); err != nil {
		return Recipe{}, fmt.Errorf("failed to parse recipe: %w", err)
	}
	return p.toRecipe("ai-random-")
}

func stripCodeFence(content string) string {
	trimmed := strings.TrimSpace(content)
	if !strings.HasPrefix(trimmed, "```") {
		return trimmed
	}
	trimmed = strings.TrimPrefix(trimmed, "```json")
	trimmed = strings.TrimPrefix(trimmed, "```")
	trimmed = strings.TrimSuffix(trimmed, "```")
	return strings.TrimSpace(trimmed)
}
