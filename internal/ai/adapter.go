package ai

import (
	"context"
	"fmt"
	"sync"

	"golang.org/x/text/language"
)

// Operation names, used in errors, logs and spans.
const (
	OpClassify        = "classify"
	OpIdentify        = "identify"
	OpGenerateRecipes = "generate_recipes"
	OpRecommendRandom = "recommend_random"
	OpTestConnection  = "test_connection"
)

// Adapter translates the canonical operations into one provider's wire format.
// Content methods return *CallError on any failure.
type Adapter interface {
	ClassifyItem(ctx context.Context, cfg ProviderConfig, itemName string, lang language.Tag) (Classification, error)
	IdentifyFromImage(ctx context.Context, cfg ProviderConfig, image []byte, lang language.Tag) (Identification, error)
	GenerateRecipes(ctx context.Context, cfg ProviderConfig, ingredients []string, partySize int, lang language.Tag) ([]Recipe, error)
	RecommendRandom(ctx context.Context, cfg ProviderConfig, lang language.Tag) (Recipe, error)
	TestConnection(ctx context.Context, cfg ProviderConfig) Diagnostic
}

// Registry selects an adapter by provider kind.
type Registry struct {
	mu       sync.RWMutex
	adapters map[Kind]Adapter
}

func NewRegistry() *Registry {
	return &Registry{adapters: make(map[Kind]Adapter)}
}

func (r *Registry) Register(kind Kind, a Adapter) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.adapters[kind] = a
}

func (r *Registry) Lookup(kind Kind) (Adapter, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	a, ok := r.adapters[kind]
	if !ok {
		return nil, fmt.Errorf("no adapter registered for provider kind %q", kind)
	}
	return a, nil
}
