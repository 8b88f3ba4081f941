package ai

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDecodeClassification(t *testing.T) {
	t.Run("plain json", func(t *testing.T) {
		c, err := DecodeClassification(`{"category":"dairy","emoji":"🥛","shelfLifeDays":7}`)
		require.NoError(t, err)
		assert.Equal(t, CategoryDairy, c.Category)
		assert.Equal(t, "🥛", c.Emoji)
		assert.Equal(t, 7, c.ShelfLifeDays)
		assert.Empty(t, c.Source)
	})

	t.Run("code fenced", func(t *testing.T) {
		c, err := DecodeClassification("```json\n{\"category\":\"Fruit\",\"emoji\":\"🍎\",\"shelfLifeDays\":14}\n```")
		require.NoError(t, err)
		assert.Equal(t, CategoryFruit, c.Category)
	})

	t.Run("unknown category", func(t *testing.T) {
		_, err := DecodeClassification(`{"category":"Spaceship","emoji":"🚀","shelfLifeDays":1}`)
		require.Error(t, err)
	})

	t.Run("negative shelf life", func(t *testing.T) {
		_, err := DecodeClassification(`{"category":"Meat","emoji":"🥩","shelfLifeDays":-2}`)
		require.Error(t, err)
	})

	t.Run("not json", func(t *testing.T) {
		_, err := DecodeClassification("I think it is a vegetable")
		require.Error(t, err)
	})
}

func TestDecodeIdentificationRequiresName(t *testing.T) {
	_, err := DecodeIdentification(`{"name":"  ","category":"Fruit","emoji":"🍌","shelfLifeDays":5}`)
	require.Error(t, err)

	id, err := DecodeIdentification(`{"name":"Banana","category":"Fruit","emoji":"🍌","shelfLifeDays":5}`)
	require.NoError(t, err)
	assert.Equal(t, "Banana", id.Name)
	assert.Equal(t, CategoryFruit, id.Category)
}

func TestDecodeRecipes(t *testing.T) {
	const recipe = `{"name":"Tomato Egg Stir-fry","description":"Classic.","ingredients":["tomato","egg"],"instructions":["beat eggs","fry"],"timeMinutes":15,"matchPercentage":95,"calories":320}`

	t.Run("wrapped object", func(t *testing.T) {
		recipes, err := DecodeRecipes(`{"recipes":[` + recipe + `]}`)
		require.NoError(t, err)
		require.Len(t, recipes, 1)
		assert.True(t, strings.HasPrefix(recipes[0].ID, "ai-"))
		require.NotNil(t, recipes[0].Calories)
		assert.Equal(t, 320, *recipes[0].Calories)
	})

	t.Run("bare array", func(t *testing.T) {
		recipes, err := DecodeRecipes(`[` + recipe + `,` + recipe + `]`)
		require.NoError(t, err)
		require.Len(t, recipes, 2)
		assert.NotEqual(t, recipes[0].ID, recipes[1].ID)
	})

	t.Run("empty list", func(t *testing.T) {
		_, err := DecodeRecipes(`{"recipes":[]}`)
		require.Error(t, err)
	})

	t.Run("match percentage out of range", func(t *testing.T) {
		_, err := DecodeRecipes(`{"recipes":[{"name":"x","ingredients":["a"],"instructions":["b"],"timeMinutes":5,"matchPercentage":140,"calories":1}]}`)
		require.Error(t, err)
	})

	t.Run("zero time", func(t *testing.T) {
		_, err := DecodeRecipe(`{"name":"x","ingredients":["a"],"instructions":["b"],"timeMinutes":0,"matchPercentage":100,"calories":1}`)
		require.Error(t, err)
	})
}

func TestSchemasAreStrictObjects(t *testing.T) {
	for name, schema := range map[string]map[string]any{
		"classification": ClassificationSchema(),
		"identification": IdentificationSchema(),
		"recipes":        RecipeListSchema(),
		"recipe":         RecipeSchema(),
	} {
		t.Run(name, func(t *testing.T) {
			assert.Equal(t, "object", schema["type"])
			assert.Equal(t, false, schema["additionalProperties"])
			assert.NotContains(t, schema, "$schema")
			assert.NotEmpty(t, schema["required"])
		})
	}

	props := IdentificationSchema()["properties"].(map[string]any)
	for _, field := range []string{"name", "category", "emoji", "shelfLifeDays"} {
		assert.Contains(t, props, field)
	}
}
