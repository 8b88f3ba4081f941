package inventory

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"strings"
	"time"

	"github.com/samber/lo"
	"golang.org/x/text/language"

	"refrigee/internal/ai"
	"refrigee/internal/httpjson"
)

type classifier interface {
	ClassifyItem(ctx context.Context, name string, lang language.Tag) ai.Classification
}

type server struct {
	store      *Store
	classifier classifier
	now        func() time.Time
}

func NewHandler(store *Store, c classifier) *server {
	return &server{store: store, classifier: c, now: time.Now}
}

func (s *server) Register(mux *http.ServeMux) {
	mux.HandleFunc("GET /api/items", s.handleList)
	mux.HandleFunc("POST /api/items", s.handleAdd)
	mux.HandleFunc("PATCH /api/items/{id}", s.handleUpdate)
	mux.HandleFunc("DELETE /api/items/{id}", s.handleRemove)
	mux.HandleFunc("GET /api/dashboard", s.handleDashboard)
}

type addItemRequest struct {
	Name     string  `json:"name" validate:"required,max=200"`
	Quantity float64 `json:"quantity" validate:"gte=0"`
	Unit     string  `json:"unit" validate:"max=32"`
	// Category, Emoji and ExpiresAt are filled in by classification when omitted.
	Category  ai.Category `json:"category"`
	Emoji     string      `json:"emoji"`
	ExpiresAt *time.Time  `json:"expiresAt"`
	Lang      string      `json:"lang"`
}

func (s *server) handleList(w http.ResponseWriter, r *http.Request) {
	items, err := s.store.List(r.Context())
	if err != nil {
		s.storeError(w, r, err)
		return
	}
	if r.URL.Query().Get("sort") == "expiry" {
		items = SortByExpiry(items)
	}
	now := s.now()
	httpjson.Write(w, r, http.StatusOK, lo.Map(items, func(it Item, _ int) View { return ViewOf(it, now) }))
}

func (s *server) handleAdd(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	var req addItemRequest
	if err := httpjson.Decode(w, r, &req); err != nil {
		httpjson.Error(w, r, http.StatusBadRequest, err.Error())
		return
	}
	now := s.now()
	name := strings.TrimSpace(req.Name)

	var it Item
	if req.Category == "" || req.ExpiresAt == nil || req.Emoji == "" {
		c := s.classifier.ClassifyItem(ctx, name, ai.ParseLanguage(req.Lang))
		it = NewItem(name, c, now)
		slog.InfoContext(ctx, "classified new item", "name", name, "category", c.Category, "source", c.Source)
	} else {
		it = Item{Name: name, AddedAt: now}
	}
	if req.Category != "" {
		c, err := ai.ParseCategory(string(req.Category))
		if err != nil {
			httpjson.Error(w, r, http.StatusBadRequest, err.Error())
			return
		}
		it.Category = c
	}
	it.Emoji = lo.CoalesceOrEmpty(req.Emoji, it.Emoji)
	if req.ExpiresAt != nil {
		it.ExpiresAt = *req.ExpiresAt
	}
	it.Quantity = lo.Ternary(req.Quantity > 0, req.Quantity, 1)
	it.Unit = req.Unit

	added, err := s.store.Add(ctx, it)
	if err != nil {
		s.storeError(w, r, err)
		return
	}
	httpjson.Write(w, r, http.StatusCreated, ViewOf(added, now))
}

func (s *server) handleUpdate(w http.ResponseWriter, r *http.Request) {
	var u ItemUpdate
	if err := httpjson.Decode(w, r, &u); err != nil {
		httpjson.Error(w, r, http.StatusBadRequest, err.Error())
		return
	}
	it, err := s.store.Update(r.Context(), r.PathValue("id"), u)
	if err != nil {
		s.storeError(w, r, err)
		return
	}
	httpjson.Write(w, r, http.StatusOK, ViewOf(it, s.now()))
}

func (s *server) handleRemove(w http.ResponseWriter, r *http.Request) {
	if err := s.store.Remove(r.Context(), r.PathValue("id")); err != nil {
		s.storeError(w, r, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (s *server) handleDashboard(w http.ResponseWriter, r *http.Request) {
	items, err := s.store.List(r.Context())
	if err != nil {
		s.storeError(w, r, err)
		return
	}
	httpjson.Write(w, r, http.StatusOK, Summarize(items, s.now()))
}

func (s *server) storeError(w http.ResponseWriter, r *http.Request, err error) {
	if errors.Is(err, ErrItemNotFound) {
		httpjson.Error(w, r, http.StatusNotFound, err.Error())
		return
	}
	if errors.Is(err, ErrInvalidItem) {
		httpjson.Error(w, r, http.StatusBadRequest, err.Error())
		return
	}
	slog.ErrorContext(r.Context(), "inventory request failed", "path", r.URL.Path, "error", err)
	httpjson.Error(w, r, http.StatusInternalServerError, "failed to access inventory")
}
