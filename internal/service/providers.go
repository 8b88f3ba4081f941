package service

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"golang.org/x/sync/errgroup"

	"refrigee/internal/ai"
	"refrigee/internal/settings"
)

const (
	OfflineProviderID = "offline"
	testAllLimit      = 4
)

// ProviderInfo describes who will answer the next content call.
type ProviderInfo struct {
	ID          string  `json:"id"`
	DisplayName string  `json:"displayName"`
	Kind        ai.Kind `json:"kind,omitempty"`
	Model       string  `json:"model,omitempty"`
	Icon        string  `json:"icon"`
	Live        bool    `json:"live"`
}

type ProviderDiagnostic struct {
	ProviderID string `json:"providerId"`
	ai.Diagnostic
}

// TestConnection checks one configured provider. Every problem is reported in the
// diagnostic, never as an error.
func (m *Manager) TestConnection(ctx context.Context, providerID string) ai.Diagnostic {
	ctx, span := m.tracer.Start(ctx, ai.OpTestConnection)
	defer span.End()

	p, err := m.store.Provider(ctx, providerID)
	if err != nil {
		if errors.Is(err, settings.ErrUnknownProvider) {
			return ai.Diagnostic{OK: false, Message: fmt.Sprintf("provider %q does not exist", providerID)}
		}
		return ai.Diagnostic{OK: false, Message: fmt.Sprintf("failed to load provider config: %v", err)}
	}
	if strings.TrimSpace(p.Credential) == "" {
		return ai.Diagnostic{OK: false, Message: "API key not configured"}
	}
	adapter, err := m.registry.Lookup(p.Kind)
	if err != nil {
		return ai.Diagnostic{OK: false, Message: err.Error()}
	}
	d := adapter.TestConnection(ctx, p)
	slog.InfoContext(ctx, "tested provider connection", "provider", p.ID, "ok", d.OK, "message", d.Message)
	return d
}

// TestAll checks every configured provider concurrently, in provider id order.
func (m *Manager) TestAll(ctx context.Context) ([]ProviderDiagnostic, error) {
	providers, err := m.store.Providers(ctx)
	if err != nil {
		return nil, err
	}
	results := make([]ProviderDiagnostic, len(providers))
	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(testAllLimit)
	for i, p := range providers {
		g.Go(func() error {
			results[i] = ProviderDiagnostic{ProviderID: p.ID, Diagnostic: m.TestConnection(gctx, p.ID)}
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}
	return results, nil
}

func (m *Manager) CurrentProvider(ctx context.Context) ProviderInfo {
	p, ok, err := m.store.ActiveProvider(ctx)
	if err != nil {
		slog.WarnContext(ctx, "failed to load provider config", "error", err)
	}
	if !ok {
		return ProviderInfo{ID: OfflineProviderID, DisplayName: "Offline knowledge base", Icon: "📦", Live: false}
	}
	info := ProviderInfo{ID: p.ID, DisplayName: p.DisplayName, Kind: p.Kind, Model: p.Model, Icon: "🤖", Live: true}
	if preset, found := settings.PresetByID(p.ID); found {
		info.Icon = preset.Icon
	}
	return info
}

func (m *Manager) Config(ctx context.Context) (settings.Config, error) {
	return m.store.Config(ctx)
}

func (m *Manager) Providers(ctx context.Context) ([]ai.ProviderConfig, error) {
	return m.store.Providers(ctx)
}

func (m *Manager) AddProvider(ctx context.Context, p ai.ProviderConfig) error {
	if err := m.store.AddProvider(ctx, p); err != nil {
		return err
	}
	slog.InfoContext(ctx, "added provider", "provider", p.ID, "kind", p.Kind, "model", p.Model)
	return nil
}

func (m *Manager) RemoveProvider(ctx context.Context, id string) error {
	if err := m.store.RemoveProvider(ctx, id); err != nil {
		return err
	}
	slog.InfoContext(ctx, "removed provider", "provider", id)
	return nil
}

func (m *Manager) SetPrimary(ctx context.Context, id string) error {
	if err := m.store.SetPrimary(ctx, id); err != nil {
		return err
	}
	slog.InfoContext(ctx, "switched primary provider", "provider", id)
	return nil
}

func (m *Manager) UpdateProvider(ctx context.Context, id string, u settings.ProviderUpdate) (ai.ProviderConfig, error) {
	return m.store.UpdateProvider(ctx, id, u)
}

func (m *Manager) SetFallbackEnabled(ctx context.Context, enabled bool) error {
	return m.store.SetFallbackEnabled(ctx, enabled)
}

func (m *Manager) UpdateConfig(ctx context.Context, u settings.ConfigUpdate) error {
	if err := m.store.UpdateConfig(ctx, u); err != nil {
		return err
	}
	if u.PrimaryProviderID != nil {
		slog.InfoContext(ctx, "switched primary provider", "provider", *u.PrimaryProviderID)
	}
	return nil
}

func (m *Manager) UsageStats(ctx context.Context) (map[string]settings.UsageCounter, error) {
	return m.store.Usage(ctx)
}

// ResetUsageStats resets one provider's counter, or every counter when providerID is empty.
func (m *Manager) ResetUsageStats(ctx context.Context, providerID string) error {
	return m.store.ResetUsage(ctx, providerID, m.now())
}

func (m *Manager) Presets() []settings.Preset {
	return settings.Presets()
}

// Clock is exposed so handlers and the inventory stamp items with the same time source.
func (m *Manager) Now() time.Time { return m.now() }
