// Package settings persists which AI providers exist, which one is primary, and how often
// each has been called.
package settings

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"maps"
	"slices"
	"strings"
	"sync"
	"time"

	"github.com/samber/lo"

	"refrigee/internal/ai"
	"refrigee/internal/cache"
)

const (
	ConfigKey = "ai_config"
	UsageKey  = "ai_usage"

	DefaultProviderID = "gemini"

	periodLayout = "2006-01-02"
)

type Config struct {
	PrimaryProviderID string                       `json:"primaryProviderId"`
	Providers         map[string]ai.ProviderConfig `json:"providers"`
	// FallbackEnabled is shown to users; content calls fall back regardless.
	FallbackEnabled bool `json:"fallbackEnabled"`
}

type UsageCounter struct {
	Calls       int    `json:"calls"`
	PeriodStart string `json:"periodStart"`
}

// ProviderUpdate is a partial update; nil fields are left alone.
type ProviderUpdate struct {
	DisplayName  *string  `json:"displayName,omitempty"`
	Credential   *string  `json:"credential,omitempty"`
	BaseEndpoint *string  `json:"baseEndpoint,omitempty"`
	Model        *string  `json:"model,omitempty"`
	Enabled      *bool    `json:"enabled,omitempty"`
	Kind         *ai.Kind `json:"kind,omitempty"`
}

// ConfigUpdate is a partial update of the top-level settings.
type ConfigUpdate struct {
	PrimaryProviderID *string `json:"primaryProviderId,omitempty"`
	FallbackEnabled   *bool   `json:"fallbackEnabled,omitempty"`
}

type Options struct {
	// DefaultCredential seeds the built-in gemini provider of a fresh install.
	DefaultCredential string
	// Passphrase turns on age encryption of the stored config.
	Passphrase string
	// ScryptWorkFactor overrides age's default cost; tests lower it.
	ScryptWorkFactor int
}

// Store is the single owner of the ai_config and ai_usage records. Every mutation is a
// read-modify-write under mu.
type Store struct {
	mu                sync.Mutex
	cache             cache.Cache
	defaultCredential string
	sealer            sealer
}

func NewStore(c cache.Cache, opts Options) *Store {
	return &Store{
		cache:             c,
		defaultCredential: opts.DefaultCredential,
		sealer:            sealer{passphrase: opts.Passphrase, workFactor: opts.ScryptWorkFactor},
	}
}

// DefaultConfig is what a fresh install runs with: the gemini preset, enabled.
func DefaultConfig(credential string) Config {
	p, err := FromPreset(DefaultProviderID)
	if err != nil {
		// the default provider ships in presets.yaml
		panic(err)
	}
	p.Credential = credential
	p.Enabled = true
	return Config{
		PrimaryProviderID: DefaultProviderID,
		Providers:         map[string]ai.ProviderConfig{DefaultProviderID: p},
		FallbackEnabled:   true,
	}
}

func (s *Store) Config(ctx context.Context) (Config, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.loadConfig(ctx)
}

// Providers returns every configured provider ordered by id.
func (s *Store) Providers(ctx context.Context) ([]ai.ProviderConfig, error) {
	cfg, err := s.Config(ctx)
	if err != nil {
		return nil, err
	}
	return providersOf(cfg), nil
}

func providersOf(cfg Config) []ai.ProviderConfig {
	ids := slices.Sorted(maps.Keys(cfg.Providers))
	return lo.Map(ids, func(id string, _ int) ai.ProviderConfig { return cfg.Providers[id] })
}

func (s *Store) Provider(ctx context.Context, id string) (ai.ProviderConfig, error) {
	cfg, err := s.Config(ctx)
	if err != nil {
		return ai.ProviderConfig{}, err
	}
	p, ok := cfg.Providers[id]
	if !ok {
		return ai.ProviderConfig{}, configErr("get provider", id, ErrUnknownProvider)
	}
	return p, nil
}

// ActiveProvider returns the primary provider when it is enabled and has a credential.
func (s *Store) ActiveProvider(ctx context.Context) (ai.ProviderConfig, bool, error) {
	cfg, err := s.Config(ctx)
	if err != nil {
		return ai.ProviderConfig{}, false, err
	}
	p, ok := cfg.Providers[cfg.PrimaryProviderID]
	if !ok || !p.Usable() {
		return ai.ProviderConfig{}, false, nil
	}
	return p, true, nil
}

func (s *Store) AddProvider(ctx context.Context, p ai.ProviderConfig) error {
	const op = "add provider"
	p.ID = strings.TrimSpace(p.ID)
	if err := p.Validate(); err != nil {
		return invalid(op, p.ID, err)
	}
	return s.mutate(ctx, func(cfg *Config) error {
		if _, exists := cfg.Providers[p.ID]; exists {
			return configErr(op, p.ID, ErrProviderExists)
		}
		cfg.Providers[p.ID] = p
		return nil
	})
}

// RemoveProvider deletes a non-primary provider and its usage counter.
func (s *Store) RemoveProvider(ctx context.Context, id string) error {
	const op = "remove provider"
	err := s.mutate(ctx, func(cfg *Config) error {
		if _, ok := cfg.Providers[id]; !ok {
			return configErr(op, id, ErrUnknownProvider)
		}
		if cfg.PrimaryProviderID == id {
			return configErr(op, id, ErrRemovePrimary)
		}
		delete(cfg.Providers, id)
		return nil
	})
	if err != nil {
		return err
	}
	return s.mutateUsage(ctx, func(usage map[string]UsageCounter) {
		delete(usage, id)
	})
}

func (s *Store) SetPrimary(ctx context.Context, id string) error {
	return s.UpdateConfig(ctx, ConfigUpdate{PrimaryProviderID: &id})
}

// UpdateConfig changes the top-level settings in one write; nothing is saved if any
// field is rejected.
func (s *Store) UpdateConfig(ctx context.Context, u ConfigUpdate) error {
	return s.mutate(ctx, func(cfg *Config) error {
		if u.PrimaryProviderID != nil {
			id := *u.PrimaryProviderID
			if _, ok := cfg.Providers[id]; !ok {
				return configErr("set primary", id, ErrUnknownProvider)
			}
			cfg.PrimaryProviderID = id
		}
		if u.FallbackEnabled != nil {
			cfg.FallbackEnabled = *u.FallbackEnabled
		}
		return nil
	})
}

func (s *Store) UpdateProvider(ctx context.Context, id string, u ProviderUpdate) (ai.ProviderConfig, error) {
	const op = "update provider"
	var updated ai.ProviderConfig
	err := s.mutate(ctx, func(cfg *Config) error {
		p, ok := cfg.Providers[id]
		if !ok {
			return configErr(op, id, ErrUnknownProvider)
		}
		if u.DisplayName != nil {
			p.DisplayName = *u.DisplayName
		}
		if u.Credential != nil {
			p.Credential = strings.TrimSpace(*u.Credential)
		}
		if u.BaseEndpoint != nil {
			p.BaseEndpoint = strings.TrimSpace(*u.BaseEndpoint)
		}
		if u.Model != nil {
			p.Model = strings.TrimSpace(*u.Model)
		}
		if u.Enabled != nil {
			p.Enabled = *u.Enabled
		}
		if u.Kind != nil {
			p.Kind = *u.Kind
		}
		if err := p.Validate(); err != nil {
			return invalid(op, id, err)
		}
		cfg.Providers[id] = p
		updated = p
		return nil
	})
	return updated, err
}

func (s *Store) SetFallbackEnabled(ctx context.Context, enabled bool) error {
	return s.UpdateConfig(ctx, ConfigUpdate{FallbackEnabled: &enabled})
}

func (s *Store) Usage(ctx context.Context) (map[string]UsageCounter, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.loadUsage(ctx)
}

// RecordCall counts one successful live call. A counter whose period began in an earlier
// month starts over.
func (s *Store) RecordCall(ctx context.Context, providerID string, now time.Time) error {
	return s.mutateUsage(ctx, func(usage map[string]UsageCounter) {
		c, ok := usage[providerID]
		if !ok || !samePeriod(c.PeriodStart, now) {
			c = UsageCounter{PeriodStart: now.Format(periodLayout)}
		}
		c.Calls++
		usage[providerID] = c
	})
}

// ResetUsage zeroes one provider's counter, or drops every counter when providerID is empty.
func (s *Store) ResetUsage(ctx context.Context, providerID string, now time.Time) error {
	if providerID == "" {
		s.mu.Lock()
		defer s.mu.Unlock()
		if err := s.cache.Delete(ctx, UsageKey); err != nil && !errors.Is(err, cache.ErrNotFound) {
			return fmt.Errorf("failed to reset usage: %w", err)
		}
		return nil
	}
	return s.mutateUsage(ctx, func(usage map[string]UsageCounter) {
		if _, ok := usage[providerID]; ok {
			usage[providerID] = UsageCounter{PeriodStart: now.Format(periodLayout)}
		}
	})
}

func samePeriod(periodStart string, now time.Time) bool {
	start, err := time.Parse(periodLayout, periodStart)
	if err != nil {
		return false
	}
	return start.Year() == now.Year() && start.Month() == now.Month()
}

// mutate applies fn to the stored config. The first write of a fresh install is
// conditional, so two processes seeding at once cannot overwrite each other; the loser
// reapplies fn to the winner's config.
func (s *Store) mutate(ctx context.Context, fn func(*Config) error) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	for attempt := 0; ; attempt++ {
		cfg, fresh, err := s.readConfig(ctx)
		if err != nil {
			return err
		}
		if err := fn(&cfg); err != nil {
			return err
		}
		opts := lo.Ternary(fresh, cache.PutOptions{Condition: cache.PutIfNoneMatch}, cache.Unconditional)
		err = s.saveConfig(ctx, cfg, opts)
		if errors.Is(err, cache.ErrAlreadyExists) && attempt == 0 {
			slog.InfoContext(ctx, "provider config was created concurrently, retrying update")
			continue
		}
		return err
	}
}

func (s *Store) mutateUsage(ctx context.Context, fn func(map[string]UsageCounter)) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	usage, err := s.loadUsage(ctx)
	if err != nil {
		return err
	}
	fn(usage)
	b, err := json.Marshal(usage)
	if err != nil {
		return fmt.Errorf("failed to encode usage: %w", err)
	}
	if err := s.cache.Put(ctx, UsageKey, string(b), cache.Unconditional); err != nil {
		return fmt.Errorf("failed to save usage: %w", err)
	}
	return nil
}

func (s *Store) loadConfig(ctx context.Context) (Config, error) {
	cfg, _, err := s.readConfig(ctx)
	return cfg, err
}

// readConfig reports fresh when nothing is stored yet and the defaults were returned.
func (s *Store) readConfig(ctx context.Context) (Config, bool, error) {
	stored, err := cache.ReadString(ctx, s.cache, ConfigKey)
	if errors.Is(err, cache.ErrNotFound) {
		return DefaultConfig(s.defaultCredential), true, nil
	}
	if err != nil {
		return Config{}, false, fmt.Errorf("failed to read %s: %w", ConfigKey, err)
	}
	plain, err := s.sealer.open(stored)
	if err != nil {
		return Config{}, false, err
	}
	var cfg Config
	if err := json.Unmarshal(plain, &cfg); err != nil {
		return Config{}, false, fmt.Errorf("failed to parse %s: %w", ConfigKey, err)
	}
	if cfg.Providers == nil {
		cfg.Providers = map[string]ai.ProviderConfig{}
	}
	return cfg, false, nil
}

func (s *Store) saveConfig(ctx context.Context, cfg Config, opts cache.PutOptions) error {
	b, err := json.Marshal(cfg)
	if err != nil {
		return fmt.Errorf("failed to encode %s: %w", ConfigKey, err)
	}
	sealed, err := s.sealer.seal(b)
	if err != nil {
		return err
	}
	if err := s.cache.Put(ctx, ConfigKey, sealed, opts); err != nil {
		return fmt.Errorf("failed to save %s: %w", ConfigKey, err)
	}
	slog.DebugContext(ctx, "saved provider config", "primary", cfg.PrimaryProviderID, "providers", len(cfg.Providers), "sealed", s.sealer.enabled())
	return nil
}

func (s *Store) loadUsage(ctx context.Context) (map[string]UsageCounter, error) {
	stored, err := cache.ReadString(ctx, s.cache, UsageKey)
	if errors.Is(err, cache.ErrNotFound) {
		return map[string]UsageCounter{}, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to read %s: %w", UsageKey, err)
	}
	usage := map[string]UsageCounter{}
	if err := json.Unmarshal([]byte(stored), &usage); err != nil {
		// a corrupt counter is not worth failing a content call over
		slog.WarnContext(ctx, "discarding unreadable usage record", "error", err)
		return map[string]UsageCounter{}, nil
	}
	return usage, nil
}
