package ai

import (
	"fmt"
	"strings"

	"github.com/samber/lo"
	"golang.org/x/text/language"
)

var (
	supportedLanguages = []language.Tag{language.English, language.SimplifiedChinese}
	languageMatcher    = language.NewMatcher(supportedLanguages)
)

// ParseLanguage maps a caller-supplied language ("zh", "en-US", "zh-CN"...) onto one of the
// languages prompts are written for. Anything unrecognised is English.
func ParseLanguage(s string) language.Tag {
	s = strings.TrimSpace(s)
	if s == "" {
		return language.English
	}
	tag, err := language.Parse(s)
	if err != nil {
		return language.English
	}
	_, idx, conf := languageMatcher.Match(tag)
	if conf == language.No {
		return language.English
	}
	return supportedLanguages[idx]
}

func IsChinese(lang language.Tag) bool {
	base, _ := lang.Base()
	zh, _ := language.SimplifiedChinese.Base()
	return base == zh
}

func languageInstruction(lang language.Tag) string {
	if IsChinese(lang) {
		return "用简体中文回答 (Respond in Simplified Chinese, but keep the category value in English)."
	}
	return "Respond in English."
}

func categoryList() string {
	return strings.Join(lo.Map(Categories, func(c Category, _ int) string { return string(c) }), ", ")
}

const ClassifierSystemPrompt = "You are a food classification assistant for a household fridge inventory. Always answer with JSON matching the requested schema."

const ChefSystemPrompt = "You are a home cooking assistant who suggests practical recipes from what is already in the fridge. Always answer with JSON matching the requested schema."

func ClassifyPrompt(itemName string, lang language.Tag) string {
	return fmt.Sprintf(`Classify the food item %q. %s
Return JSON with:
- category: one of [%s]
- emoji: a single representative emoji
- shelfLifeDays: estimated days the item keeps in a refrigerator (integer, 0 or more)

Context: managing a household fridge inventory.`, itemName, languageInstruction(lang), categoryList())
}

func IdentifyPrompt(lang language.Tag) string {
	return fmt.Sprintf(`Identify the main food item in the photo. %s
Return JSON with:
- name: short name of the item
- category: one of [%s]
- emoji: a single representative emoji
- shelfLifeDays: estimated days the item keeps in a refrigerator (integer, 0 or more)`, languageInstruction(lang), categoryList())
}

func RecipesPrompt(ingredients []string, partySize int, lang language.Tag) string {
	if partySize < 1 {
		partySize = 1
	}
	return fmt.Sprintf(`Suggest 3 recipes using these available ingredients: %s.
Cook for %d people.

Prefer authentic home-style dishes the ingredients allow and use as many of the provided ingredients as possible to reduce waste. %s

Return JSON {"recipes": [...]} where each recipe has:
- name
- description: one enticing sentence
- ingredients: list of required ingredients
- instructions: step-by-step list, without numbering
- timeMinutes: total time in minutes (positive integer)
- matchPercentage: 0-100 estimate of how well the recipe matches the provided ingredients
- calories: estimated calories per serving`, strings.Join(ingredients, ", "), partySize, languageInstruction(lang))
}

func RandomRecipePrompt(lang language.Tag) string {
	return fmt.Sprintf(`Recommend one random, tasty home-style dish suitable for lunch or dinner. %s

Return JSON with:
- name
- description: a short fun description
- ingredients: list of required ingredients
- instructions: brief steps, without numbering
- timeMinutes: total time in minutes (positive integer)
- matchPercentage: 100 (this is a random pick)
- calories: estimated calories per serving`, languageInstruction(lang))
}

// PingPrompt is the cheapest request that proves the credential and model work.
const PingPrompt = `Reply with the single word "OK".`
