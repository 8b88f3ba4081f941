// Package service routes every AI request to the primary provider and answers from the
// offline knowledge base whenever that is not possible.
package service

import (
	"context"
	"errors"
	"log/slog"
	"math/rand/v2"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/samber/lo"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
	"golang.org/x/text/language"

	"refrigee/internal/ai"
	"refrigee/internal/imaging"
	"refrigee/internal/knowledge"
	"refrigee/internal/settings"
)

const (
	tracerName = "refrigee/service"

	maxFallbackRecipes   = 3
	fallbackMatchPercent = 80
	randomMatchPercent   = 100
	fallbackTimeMinutes  = 30
	fallbackCalories     = 500
)

type Manager struct {
	store       *settings.Store
	registry    *ai.Registry
	imageMaxDim int
	now         func() time.Time
	tracer      trace.Tracer

	rngMu sync.Mutex
	rng   *rand.Rand
}

type Option func(*Manager)

func WithClock(now func() time.Time) Option {
	return func(m *Manager) { m.now = now }
}

// WithRand makes the offline random pick reproducible.
func WithRand(rng *rand.Rand) Option {
	return func(m *Manager) { m.rng = rng }
}

func WithImageMaxDim(n int) Option {
	return func(m *Manager) { m.imageMaxDim = n }
}

func NewManager(store *settings.Store, registry *ai.Registry, opts ...Option) *Manager {
	m := &Manager{
		store:       store,
		registry:    registry,
		imageMaxDim: imaging.DefaultMaxDim,
		now:         time.Now,
		tracer:      otel.Tracer(tracerName),
	}
	for _, opt := range opts {
		opt(m)
	}
	return m
}

// call runs one content operation through the live-or-fallback state machine. It never
// fails: any problem reaching or using the primary provider yields fallback().
func call[T any](ctx context.Context, m *Manager, op string, live func(context.Context, ai.Adapter, ai.ProviderConfig) (T, error), fallback func() T) T {
	ctx, span := m.tracer.Start(ctx, op, trace.WithAttributes(attribute.String("ai.op", op)))
	defer span.End()

	useFallback := func(reason string) T {
		span.SetAttributes(attribute.String("ai.source", string(ai.SourceFallback)), attribute.String("ai.fallback_reason", reason))
		return fallback()
	}

	p, ok, err := m.store.ActiveProvider(ctx)
	if err != nil {
		slog.WarnContext(ctx, "failed to load provider config, using knowledge base", "op", op, "error", err)
		return useFallback("config unavailable")
	}
	if !ok {
		return useFallback("no active provider")
	}
	span.SetAttributes(attribute.String("ai.provider", p.ID), attribute.String("ai.kind", string(p.Kind)))

	adapter, err := m.registry.Lookup(p.Kind)
	if err != nil {
		slog.ErrorContext(ctx, "primary provider has no adapter, using knowledge base", "provider", p.ID, "kind", p.Kind, "op", op, "error", err)
		span.RecordError(err)
		return useFallback("unknown provider kind")
	}

	start := m.now()
	result, err := live(ctx, adapter, p)
	if err != nil {
		slog.WarnContext(ctx, "provider call failed, using knowledge base", "provider", p.ID, "op", op, "error", err)
		span.RecordError(err)
		span.SetStatus(codes.Error, "provider call failed")
		return useFallback("provider call failed")
	}

	if err := m.store.RecordCall(ctx, p.ID, m.now()); err != nil {
		slog.ErrorContext(ctx, "failed to record provider usage", "provider", p.ID, "error", err)
	}
	slog.InfoContext(ctx, "provider call succeeded", "provider", p.ID, "op", op, "duration", m.now().Sub(start))
	span.SetAttributes(attribute.String("ai.source", string(ai.SourceLive)))
	return result
}

func (m *Manager) ClassifyItem(ctx context.Context, name string, lang language.Tag) ai.Classification {
	return call(ctx, m, ai.OpClassify,
		func(ctx context.Context, a ai.Adapter, p ai.ProviderConfig) (ai.Classification, error) {
			c, err := a.ClassifyItem(ctx, p, name, lang)
			c.Source = ai.SourceLive
			return c, err
		},
		func() ai.Classification {
			c := knowledge.Lookup(name)
			c.Source = ai.SourceFallback
			return c
		})
}

// IdentifyFromImage shrinks the photo before upload. The offline answer has no name since
// the knowledge base cannot see.
func (m *Manager) IdentifyFromImage(ctx context.Context, image []byte, lang language.Tag) ai.Identification {
	return call(ctx, m, ai.OpIdentify,
		func(ctx context.Context, a ai.Adapter, p ai.ProviderConfig) (ai.Identification, error) {
			prepared, err := imaging.Prepare(image, m.imageMaxDim)
			if errors.Is(err, imaging.ErrTooLarge) {
				return ai.Identification{}, err
			}
			if err != nil {
				// formats we cannot decode (HEIC...) may still be readable by the provider
				slog.WarnContext(ctx, "failed to prepare image, sending original", "bytes", len(image), "error", err)
				prepared = image
			}
			id, err := a.IdentifyFromImage(ctx, p, prepared, lang)
			id.Source = ai.SourceLive
			return id, err
		},
		func() ai.Identification {
			return ai.Identification{
				Name: "",
				Classification: ai.Classification{
					Category:      ai.CategoryOther,
					Emoji:         knowledge.UnidentifiedEmoji,
					ShelfLifeDays: knowledge.DefaultShelfLifeDays,
					Source:        ai.SourceFallback,
				},
			}
		})
}

func (m *Manager) GenerateRecipes(ctx context.Context, ingredients []string, partySize int, lang language.Tag) []ai.Recipe {
	return call(ctx, m, ai.OpGenerateRecipes,
		func(ctx context.Context, a ai.Adapter, p ai.ProviderConfig) ([]ai.Recipe, error) {
			recipes, err := a.GenerateRecipes(ctx, p, ingredients, partySize, lang)
			for i := range recipes {
				recipes[i].Source = ai.SourceLive
			}
			return recipes, err
		},
		func() []ai.Recipe {
			matches := knowledge.Match(ingredients)
			if len(matches) > maxFallbackRecipes {
				matches = matches[:maxFallbackRecipes]
			}
			return lo.Map(matches, func(d knowledge.Dish, _ int) ai.Recipe {
				return offlineRecipe(d, lang, fallbackMatchPercent)
			})
		})
}

func (m *Manager) RecommendRandom(ctx context.Context, lang language.Tag) ai.Recipe {
	return call(ctx, m, ai.OpRecommendRandom,
		func(ctx context.Context, a ai.Adapter, p ai.ProviderConfig) (ai.Recipe, error) {
			r, err := a.RecommendRandom(ctx, p, lang)
			r.Source = ai.SourceLive
			return r, err
		},
		func() ai.Recipe {
			return offlineRecipe(m.randomDish(), lang, randomMatchPercent)
		})
}

func (m *Manager) randomDish() knowledge.Dish {
	m.rngMu.Lock()
	defer m.rngMu.Unlock()
	return knowledge.Random(m.rng)
}

func offlineRecipe(d knowledge.Dish, lang language.Tag, match int) ai.Recipe {
	name, description, ingredients := d.Localized(lang)
	return ai.Recipe{
		ID:              "offline-" + uuid.NewString(),
		Name:            name,
		Description:     description,
		Ingredients:     ingredients,
		Instructions:    knowledge.GenericInstructions(lang),
		TimeMinutes:     fallbackTimeMinutes,
		MatchPercentage: match,
		Calories:        lo.ToPtr(fallbackCalories),
		Emoji:           d.Emoji,
		Source:          ai.SourceFallback,
	}
}
