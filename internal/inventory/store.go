package inventory

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"slices"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"

	"refrigee/internal/ai"
	"refrigee/internal/cache"
)

// StorageKey holds the whole inventory as one JSON list, newest first.
const StorageKey = "refrigee_inventory_v1"

var (
	ErrItemNotFound = errors.New("item not found")
	ErrInvalidItem  = errors.New("invalid item")
)

type ItemUpdate struct {
	Name      *string      `json:"name,omitempty"`
	Quantity  *float64     `json:"quantity,omitempty" validate:"omitempty,gte=0"`
	Unit      *string      `json:"unit,omitempty"`
	Category  *ai.Category `json:"category,omitempty"`
	Emoji     *string      `json:"emoji,omitempty"`
	ExpiresAt *time.Time   `json:"expiresAt,omitempty"`
}

type Store struct {
	mu    sync.Mutex
	cache cache.Cache
	now   func() time.Time
}

func NewStore(c cache.Cache) *Store {
	return &Store{cache: c, now: time.Now}
}

func (s *Store) List(ctx context.Context) ([]Item, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.load(ctx)
}

func (s *Store) Get(ctx context.Context, id string) (Item, error) {
	items, err := s.List(ctx)
	if err != nil {
		return Item{}, err
	}
	i := slices.IndexFunc(items, func(it Item) bool { return it.ID == id })
	if i < 0 {
		return Item{}, fmt.Errorf("%w: %s", ErrItemNotFound, id)
	}
	return items[i], nil
}

// Add stores a new item with a fresh id. AddedAt defaults to now.
func (s *Store) Add(ctx context.Context, it Item) (Item, error) {
	it.Name = strings.TrimSpace(it.Name)
	if it.Name == "" {
		return Item{}, fmt.Errorf("%w: name is required", ErrInvalidItem)
	}
	it.ID = uuid.NewString()
	if it.AddedAt.IsZero() {
		it.AddedAt = s.now()
	}
	err := s.mutate(ctx, func(items []Item) ([]Item, error) {
		return append([]Item{it}, items...), nil
	})
	return it, err
}

func (s *Store) Update(ctx context.Context, id string, u ItemUpdate) (Item, error) {
	var updated Item
	err := s.mutate(ctx, func(items []Item) ([]Item, error) {
		i := slices.IndexFunc(items, func(it Item) bool { return it.ID == id })
		if i < 0 {
			return nil, fmt.Errorf("%w: %s", ErrItemNotFound, id)
		}
		it := items[i]
		if u.Name != nil {
			it.Name = strings.TrimSpace(*u.Name)
		}
		if u.Quantity != nil {
			it.Quantity = *u.Quantity
		}
		if u.Unit != nil {
			it.Unit = *u.Unit
		}
		if u.Category != nil {
			c, err := ai.ParseCategory(string(*u.Category))
			if err != nil {
				return nil, fmt.Errorf("%w: %v", ErrInvalidItem, err)
			}
			it.Category = c
		}
		if u.Emoji != nil {
			it.Emoji = *u.Emoji
		}
		if u.ExpiresAt != nil {
			it.ExpiresAt = *u.ExpiresAt
		}
		if it.Name == "" {
			return nil, fmt.Errorf("%w: name is required", ErrInvalidItem)
		}
		items[i] = it
		updated = it
		return items, nil
	})
	return updated, err
}

func (s *Store) Remove(ctx context.Context, id string) error {
	return s.mutate(ctx, func(items []Item) ([]Item, error) {
		i := slices.IndexFunc(items, func(it Item) bool { return it.ID == id })
		if i < 0 {
			return nil, fmt.Errorf("%w: %s", ErrItemNotFound, id)
		}
		return slices.Delete(items, i, i+1), nil
	})
}

func (s *Store) mutate(ctx context.Context, fn func([]Item) ([]Item, error)) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	items, err := s.load(ctx)
	if err != nil {
		return err
	}
	items, err = fn(items)
	if err != nil {
		return err
	}
	b, err := json.Marshal(items)
	if err != nil {
		return fmt.Errorf("failed to encode inventory: %w", err)
	}
	if err := s.cache.Put(ctx, StorageKey, string(b), cache.Unconditional); err != nil {
		return fmt.Errorf("failed to save inventory: %w", err)
	}
	return nil
}

func (s *Store) load(ctx context.Context) ([]Item, error) {
	stored, err := cache.ReadString(ctx, s.cache, StorageKey)
	if errors.Is(err, cache.ErrNotFound) {
		return []Item{}, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to read inventory: %w", err)
	}
	var items []Item
	if err := json.Unmarshal([]byte(stored), &items); err != nil {
		return nil, fmt.Errorf("failed to parse inventory: %w", err)
	}
	if items == nil {
		items = []Item{}
	}
	return items, nil
}
