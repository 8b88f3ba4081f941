package service

import (
	"errors"
	"log/slog"
	"net/http"
	"strings"

	"github.com/samber/lo"

	"refrigee/internal/ai"
	"refrigee/internal/httpjson"
	"refrigee/internal/imaging"
	"refrigee/internal/settings"
)

type server struct {
	manager *Manager
}

func NewHandler(m *Manager) *server {
	return &server{manager: m}
}

func (s *server) Register(mux *http.ServeMux) {
	mux.HandleFunc("POST /api/classify", s.handleClassify)
	mux.HandleFunc("POST /api/identify", s.handleIdentify)
	mux.HandleFunc("POST /api/recipes", s.handleRecipes)
	mux.HandleFunc("GET /api/recipes/random", s.handleRandomRecipe)

	mux.HandleFunc("GET /api/providers", s.handleListProviders)
	mux.HandleFunc("POST /api/providers", s.handleAddProvider)
	mux.HandleFunc("GET /api/providers/current", s.handleCurrentProvider)
	mux.HandleFunc("POST /api/providers/test", s.handleTestAll)
	mux.HandleFunc("PATCH /api/providers/{id}", s.handleUpdateProvider)
	mux.HandleFunc("DELETE /api/providers/{id}", s.handleRemoveProvider)
	mux.HandleFunc("POST /api/providers/{id}/primary", s.handleSetPrimary)
	mux.HandleFunc("POST /api/providers/{id}/test", s.handleTestProvider)
	mux.HandleFunc("GET /api/presets", s.handlePresets)

	mux.HandleFunc("GET /api/config", s.handleGetConfig)
	mux.HandleFunc("PATCH /api/config", s.handlePatchConfig)

	mux.HandleFunc("GET /api/usage", s.handleUsage)
	mux.HandleFunc("DELETE /api/usage", s.handleResetUsage)
}

type classifyRequest struct {
	Name string `json:"name" validate:"required,max=200"`
	Lang string `json:"lang"`
}

type identifyRequest struct {
	// Image is a data: URL or bare base64.
	Image string `json:"image" validate:"required"`
	Lang  string `json:"lang"`
}

type recipesRequest struct {
	Ingredients []string `json:"ingredients" validate:"required,min=1,max=100,dive,required"`
	PartySize   int      `json:"partySize" validate:"omitempty,min=1,max=50"`
	Lang        string   `json:"lang"`
}

type recipesResponse struct {
	Recipes []ai.Recipe `json:"recipes"`
}

func (s *server) handleClassify(w http.ResponseWriter, r *http.Request) {
	var req classifyRequest
	if err := httpjson.Decode(w, r, &req); err != nil {
		httpjson.Error(w, r, http.StatusBadRequest, err.Error())
		return
	}
	c := s.manager.ClassifyItem(r.Context(), req.Name, ai.ParseLanguage(req.Lang))
	httpjson.Write(w, r, http.StatusOK, c)
}

func (s *server) handleIdentify(w http.ResponseWriter, r *http.Request) {
	var req identifyRequest
	if err := httpjson.Decode(w, r, &req); err != nil {
		httpjson.Error(w, r, http.StatusBadRequest, err.Error())
		return
	}
	image, err := imaging.DecodeDataURL(req.Image)
	if err != nil {
		httpjson.Error(w, r, http.StatusBadRequest, err.Error())
		return
	}
	id := s.manager.IdentifyFromImage(r.Context(), image, ai.ParseLanguage(req.Lang))
	httpjson.Write(w, r, http.StatusOK, id)
}

func (s *server) handleRecipes(w http.ResponseWriter, r *http.Request) {
	var req recipesRequest
	if err := httpjson.Decode(w, r, &req); err != nil {
		httpjson.Error(w, r, http.StatusBadRequest, err.Error())
		return
	}
	partySize := lo.Ternary(req.PartySize > 0, req.PartySize, 2)
	recipes := s.manager.GenerateRecipes(r.Context(), req.Ingredients, partySize, ai.ParseLanguage(req.Lang))
	httpjson.Write(w, r, http.StatusOK, recipesResponse{Recipes: lo.Ternary(recipes == nil, []ai.Recipe{}, recipes)})
}

func (s *server) handleRandomRecipe(w http.ResponseWriter, r *http.Request) {
	recipe := s.manager.RecommendRandom(r.Context(), ai.ParseLanguage(r.URL.Query().Get("lang")))
	httpjson.Write(w, r, http.StatusOK, recipe)
}

func (s *server) handleListProviders(w http.ResponseWriter, r *http.Request) {
	providers, err := s.manager.Providers(r.Context())
	if err != nil {
		s.configError(w, r, err)
		return
	}
	httpjson.Write(w, r, http.StatusOK, redact(providers))
}

type addProviderRequest struct {
	// Preset fills in kind, endpoint and model; explicit fields override it.
	Preset       string  `json:"preset"`
	ID           string  `json:"id"`
	Kind         ai.Kind `json:"kind"`
	DisplayName  string  `json:"displayName"`
	Credential   string  `json:"credential"`
	BaseEndpoint string  `json:"baseEndpoint"`
	Model        string  `json:"model"`
	Enabled      *bool   `json:"enabled"`
}

func (req addProviderRequest) config() (ai.ProviderConfig, error) {
	var p ai.ProviderConfig
	if req.Preset != "" {
		var err error
		if p, err = settings.FromPreset(req.Preset); err != nil {
			return ai.ProviderConfig{}, err
		}
	}
	p.ID = lo.CoalesceOrEmpty(strings.TrimSpace(req.ID), p.ID)
	p.Kind = lo.CoalesceOrEmpty(req.Kind, p.Kind)
	p.DisplayName = lo.CoalesceOrEmpty(req.DisplayName, p.DisplayName, p.ID)
	p.Credential = strings.TrimSpace(req.Credential)
	p.BaseEndpoint = lo.CoalesceOrEmpty(strings.TrimSpace(req.BaseEndpoint), p.BaseEndpoint)
	p.Model = lo.CoalesceOrEmpty(strings.TrimSpace(req.Model), p.Model)
	// a provider added with a key is meant to be used
	p.Enabled = lo.FromPtrOr(req.Enabled, p.Credential != "")
	return p, nil
}

func (s *server) handleAddProvider(w http.ResponseWriter, r *http.Request) {
	var req addProviderRequest
	if err := httpjson.Decode(w, r, &req); err != nil {
		httpjson.Error(w, r, http.StatusBadRequest, err.Error())
		return
	}
	p, err := req.config()
	if err != nil {
		s.configError(w, r, err)
		return
	}
	if err := s.manager.AddProvider(r.Context(), p); err != nil {
		s.configError(w, r, err)
		return
	}
	httpjson.Write(w, r, http.StatusCreated, p.Redacted())
}

func (s *server) handleUpdateProvider(w http.ResponseWriter, r *http.Request) {
	var u settings.ProviderUpdate
	if err := httpjson.Decode(w, r, &u); err != nil {
		httpjson.Error(w, r, http.StatusBadRequest, err.Error())
		return
	}
	p, err := s.manager.UpdateProvider(r.Context(), r.PathValue("id"), u)
	if err != nil {
		s.configError(w, r, err)
		return
	}
	httpjson.Write(w, r, http.StatusOK, p.Redacted())
}

func (s *server) handleRemoveProvider(w http.ResponseWriter, r *http.Request) {
	if err := s.manager.RemoveProvider(r.Context(), r.PathValue("id")); err != nil {
		s.configError(w, r, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (s *server) handleSetPrimary(w http.ResponseWriter, r *http.Request) {
	if err := s.manager.SetPrimary(r.Context(), r.PathValue("id")); err != nil {
		s.configError(w, r, err)
		return
	}
	httpjson.Write(w, r, http.StatusOK, s.manager.CurrentProvider(r.Context()))
}

func (s *server) handleTestProvider(w http.ResponseWriter, r *http.Request) {
	httpjson.Write(w, r, http.StatusOK, s.manager.TestConnection(r.Context(), r.PathValue("id")))
}

func (s *server) handleTestAll(w http.ResponseWriter, r *http.Request) {
	results, err := s.manager.TestAll(r.Context())
	if err != nil {
		s.configError(w, r, err)
		return
	}
	httpjson.Write(w, r, http.StatusOK, results)
}

func (s *server) handleCurrentProvider(w http.ResponseWriter, r *http.Request) {
	httpjson.Write(w, r, http.StatusOK, s.manager.CurrentProvider(r.Context()))
}

func (s *server) handlePresets(w http.ResponseWriter, r *http.Request) {
	httpjson.Write(w, r, http.StatusOK, s.manager.Presets())
}

type configResponse struct {
	PrimaryProviderID string              `json:"primaryProviderId"`
	FallbackEnabled   bool                `json:"fallbackEnabled"`
	Providers         []ai.ProviderConfig `json:"providers"`
}

func (s *server) handleGetConfig(w http.ResponseWriter, r *http.Request) {
	s.writeConfig(w, r)
}

func (s *server) handlePatchConfig(w http.ResponseWriter, r *http.Request) {
	var req settings.ConfigUpdate
	if err := httpjson.Decode(w, r, &req); err != nil {
		httpjson.Error(w, r, http.StatusBadRequest, err.Error())
		return
	}
	if err := s.manager.UpdateConfig(r.Context(), req); err != nil {
		s.configError(w, r, err)
		return
	}
	s.writeConfig(w, r)
}

func (s *server) writeConfig(w http.ResponseWriter, r *http.Request) {
	cfg, err := s.manager.Config(r.Context())
	if err != nil {
		s.configError(w, r, err)
		return
	}
	providers, err := s.manager.Providers(r.Context())
	if err != nil {
		s.configError(w, r, err)
		return
	}
	httpjson.Write(w, r, http.StatusOK, configResponse{
		PrimaryProviderID: cfg.PrimaryProviderID,
		FallbackEnabled:   cfg.FallbackEnabled,
		Providers:         redact(providers),
	})
}

func (s *server) handleUsage(w http.ResponseWriter, r *http.Request) {
	usage, err := s.manager.UsageStats(r.Context())
	if err != nil {
		s.configError(w, r, err)
		return
	}
	httpjson.Write(w, r, http.StatusOK, usage)
}

func (s *server) handleResetUsage(w http.ResponseWriter, r *http.Request) {
	if err := s.manager.ResetUsageStats(r.Context(), r.URL.Query().Get("provider")); err != nil {
		s.configError(w, r, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func redact(providers []ai.ProviderConfig) []ai.ProviderConfig {
	return lo.Map(providers, func(p ai.ProviderConfig, _ int) ai.ProviderConfig { return p.Redacted() })
}

func (s *server) configError(w http.ResponseWriter, r *http.Request, err error) {
	var ce *settings.ConfigurationError
	if !errors.As(err, &ce) {
		slog.ErrorContext(r.Context(), "provider config request failed", "path", r.URL.Path, "error", err)
		httpjson.Error(w, r, http.StatusInternalServerError, "failed to access provider config")
		return
	}
	status := http.StatusBadRequest
	switch {
	case errors.Is(err, settings.ErrUnknownProvider):
		status = http.StatusNotFound
	case errors.Is(err, settings.ErrProviderExists), errors.Is(err, settings.ErrRemovePrimary):
		status = http.StatusConflict
	}
	httpjson.Error(w, r, status, ce.Error())
}
