// Package knowledge is the offline answer to every AI question: a static food table and a
// small recipe catalog. Nothing here does I/O or fails.
package knowledge

import (
	"strings"

	"refrigee/internal/ai"
)

type entry struct {
	key           string
	category      ai.Category
	emoji         string
	shelfLifeDays int
}

// table is searched in declaration order; the first containment hit wins.
var table = []entry{
	{"apple", ai.CategoryFruit, "🍎", 14},
	{"banana", ai.CategoryFruit, "🍌", 5},
	{"orange", ai.CategoryFruit, "🍊", 14},
	{"grape", ai.CategoryFruit, "🍇", 7},
	{"strawberry", ai.CategoryFruit, "🍓", 3},

	{"carrot", ai.CategoryVegetable, "🥕", 21},
	{"lettuce", ai.CategoryVegetable, "🥬", 5},
	{"tomato", ai.CategoryVegetable, "🍅", 7},
	{"potato", ai.CategoryVegetable, "🥔", 30},
	{"onion", ai.CategoryVegetable, "🧅", 30},
	{"spinach", ai.CategoryVegetable, "🥬", 4},

	{"milk", ai.CategoryDairy, "🥛", 7},
	{"cheese", ai.CategoryDairy, "🧀", 14},
	{"yogurt", ai.CategoryDairy, "🥣", 10},
	{"butter", ai.CategoryDairy, "🧈", 60},
	{"egg", ai.CategoryDairy, "🥚", 21},

	{"chicken", ai.CategoryMeat, "🍗", 2},
	{"beef", ai.CategoryMeat, "🥩", 3},
	{"pork", ai.CategoryMeat, "🥓", 3},
	{"fish", ai.CategoryMeat, "🐟", 2},

	{"bread", ai.CategoryGrain, "🍞", 5},
	{"rice", ai.CategoryGrain, "🍚", 365},
	{"pasta", ai.CategoryGrain, "🍝", 365},
}

const (
	DefaultEmoji         = "📦"
	DefaultShelfLifeDays = 7
	// UnidentifiedEmoji marks a photo nobody could name.
	UnidentifiedEmoji = "📸"
)

func Default() ai.Classification {
	return ai.Classification{Category: ai.CategoryOther, Emoji: DefaultEmoji, ShelfLifeDays: DefaultShelfLifeDays}
}

// Lookup classifies an item name from the static table. It never fails; unknown names get
// Default().
func Lookup(name string) ai.Classification {
	n := strings.ToLower(strings.TrimSpace(name))
	if n == "" {
		return Default()
	}
	for _, e := range table {
		if e.key == n {
			return e.classification()
		}
	}
	for _, e := range table {
		if overlaps(n, e.key) {
			return e.classification()
		}
	}
	return Default()
}

func (e entry) classification() ai.Classification {
	return ai.Classification{Category: e.category, Emoji: e.emoji, ShelfLifeDays: e.shelfLifeDays}
}

// overlaps is case-sensitive; callers lowercase first.
func overlaps(a, b string) bool {
	return strings.Contains(a, b) || strings.Contains(b, a)
}
