package settings

import (
	_ "embed"
	"fmt"
	"sync"

	"github.com/samber/lo"
	"gopkg.in/yaml.v3"

	"refrigee/internal/ai"
)

//go:embed presets.yaml
var presetsYAML []byte

// Preset describes a provider users can add without knowing its endpoint or model names.
type Preset struct {
	ID                   string   `yaml:"id" json:"id"`
	Kind                 ai.Kind  `yaml:"kind" json:"kind"`
	DisplayName          string   `yaml:"displayName" json:"displayName"`
	Description          string   `yaml:"description" json:"description"`
	BaseEndpoint         string   `yaml:"baseEndpoint" json:"baseEndpoint,omitempty"`
	DefaultModel         string   `yaml:"defaultModel" json:"defaultModel"`
	Models               []string `yaml:"models" json:"models"`
	Features             []string `yaml:"features" json:"features"`
	RequiresBaseEndpoint bool     `yaml:"requiresBaseEndpoint" json:"requiresBaseEndpoint"`
	Docs                 string   `yaml:"docs" json:"docs"`
	Icon                 string   `yaml:"icon" json:"icon"`
}

var loadPresets = sync.OnceValues(func() ([]Preset, error) {
	var presets []Preset
	if err := yaml.Unmarshal(presetsYAML, &presets); err != nil {
		return nil, fmt.Errorf("failed to parse provider presets: %w", err)
	}
	return presets, nil
})

// Presets returns the built-in provider presets in display order.
func Presets() []Preset {
	presets, err := loadPresets()
	if err != nil {
		// embedded at build time; a parse failure is a programming error
		panic(err)
	}
	return append([]Preset(nil), presets...)
}

func PresetByID(id string) (Preset, bool) {
	return lo.Find(Presets(), func(p Preset) bool { return p.ID == id })
}

// FromPreset builds a disabled, uncredentialed provider config from a preset.
func FromPreset(id string) (ai.ProviderConfig, error) {
	p, ok := PresetByID(id)
	if !ok {
		return ai.ProviderConfig{}, configErr("from preset", id, ErrUnknownProvider)
	}
	return ai.ProviderConfig{
		ID:           p.ID,
		Kind:         p.Kind,
		DisplayName:  p.DisplayName,
		BaseEndpoint: p.BaseEndpoint,
		Model:        p.DefaultModel,
		Enabled:      false,
	}, nil
}
