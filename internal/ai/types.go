package ai

import (
	"fmt"
	"strings"
	"unicode/utf8"

	"github.com/go-playground/validator/v10"
)

type Category string

const (
	CategoryFruit     Category = "Fruit"
	CategoryVegetable Category = "Vegetable"
	CategoryMeat      Category = "Meat"
	CategoryDairy     Category = "Dairy"
	CategoryGrain     Category = "Grain"
	CategoryBeverage  Category = "Beverage"
	CategorySnack     Category = "Snack"
	CategoryCondiment Category = "Condiment"
	CategoryOther     Category = "Other"
)

// Categories lists every category in display order. Prompts and schemas enumerate it.
var Categories = []Category{
	CategoryFruit, CategoryVegetable, CategoryMeat, CategoryDairy, CategoryGrain,
	CategoryBeverage, CategorySnack, CategoryCondiment, CategoryOther,
}

func ParseCategory(s string) (Category, error) {
	for _, c := range Categories {
		if strings.EqualFold(strings.TrimSpace(s), string(c)) {
			return c, nil
		}
	}
	return "", fmt.Errorf("unknown category %q", s)
}

// Source tells callers whether a result came from a provider or from the offline knowledge base.
type Source string

const (
	SourceLive     Source = "live"
	SourceFallback Source = "fallback"
)

type Classification struct {
	Category      Category `json:"category"`
	Emoji         string   `json:"emoji"`
	ShelfLifeDays int      `json:"shelfLifeDays"`
	Source        Source   `json:"source,omitempty"`
}

func (c Classification) Validate() error {
	if _, err := ParseCategory(string(c.Category)); err != nil {
		return err
	}
	if strings.TrimSpace(c.Emoji) == "" {
		return fmt.Errorf("emoji is required")
	}
	if utf8.RuneCountInString(c.Emoji) > 8 {
		return fmt.Errorf("emoji %q is not a single glyph", c.Emoji)
	}
	if c.ShelfLifeDays < 0 {
		return fmt.Errorf("shelf life must not be negative, got %d", c.ShelfLifeDays)
	}
	return nil
}

type Identification struct {
	Name string `json:"name"`
	Classification
}

type Recipe struct {
	ID              string   `json:"id"`
	Name            string   `json:"name"`
	Description     string   `json:"description"`
	Ingredients     []string `json:"ingredients"`
	Instructions    []string `json:"instructions"`
	TimeMinutes     int      `json:"timeMinutes"`
	MatchPercentage int      `json:"matchPercentage"`
	Calories        *int     `json:"calories,omitempty"`
	Emoji           string   `json:"emoji,omitempty"`
	Source          Source   `json:"source,omitempty"`
}

func (r Recipe) Validate() error {
	if strings.TrimSpace(r.Name) == "" {
		return fmt.Errorf("recipe name is required")
	}
	if len(r.Ingredients) == 0 {
		return fmt.Errorf("recipe %q has no ingredients", r.Name)
	}
	if len(r.Instructions) == 0 {
		return fmt.Errorf("recipe %q has no instructions", r.Name)
	}
	if r.TimeMinutes <= 0 {
		return fmt.Errorf("recipe %q time must be positive, got %d", r.Name, r.TimeMinutes)
	}
	if r.MatchPercentage < 0 || r.MatchPercentage > 100 {
		return fmt.Errorf("recipe %q match percentage out of range: %d", r.Name, r.MatchPercentage)
	}
	if r.Calories != nil && *r.Calories < 0 {
		return fmt.Errorf("recipe %q calories must not be negative", r.Name)
	}
	return nil
}

type Kind string

const (
	KindMultimodal     Kind = "multimodal"
	KindChatCompatible Kind = "chat-compatible"
)

type ProviderConfig struct {
	ID           string `json:"id" yaml:"id" validate:"required,max=64"`
	Kind         Kind   `json:"kind" yaml:"kind" validate:"required,oneof=multimodal chat-compatible"`
	DisplayName  string `json:"displayName" yaml:"displayName"`
	Credential   string `json:"credential" yaml:"-"`
	BaseEndpoint string `json:"baseEndpoint,omitempty" yaml:"baseEndpoint" validate:"omitempty,url"`
	Model        string `json:"model" yaml:"model" validate:"required"`
	Enabled      bool   `json:"enabled" yaml:"-"`
}

// Usable reports whether live calls may be sent with this config.
func (p ProviderConfig) Usable() bool {
	return p.Enabled && strings.TrimSpace(p.Credential) != ""
}

// Redacted hides the credential for anything that leaves the process.
func (p ProviderConfig) Redacted() ProviderConfig {
	if p.Credential != "" {
		p.Credential = "********"
	}
	return p
}

var validate = validator.New(validator.WithRequiredStructEnabled())

func (p ProviderConfig) Validate() error {
	return validate.Struct(p)
}

// Diagnostic is what TestConnection reports. It is a value, never an error.
type Diagnostic struct {
	OK      bool   `json:"ok"`
	Message string `json:"message"`
}
