package knowledge

import (
	"math/rand/v2"
	"testing"

	"golang.org/x/text/language"

	"refrigee/internal/ai"
)

func TestLookup(t *testing.T) {
	tests := []struct {
		name     string
		input    string
		category ai.Category
		emoji    string
		days     int
	}{
		{"exact", "apple", ai.CategoryFruit, "🍎", 14},
		{"case and whitespace", "  MILK ", ai.CategoryDairy, "🥛", 7},
		{"name contains key", "Greek Yogurt Cup", ai.CategoryDairy, "🥣", 10},
		{"key contains name", "spina", ai.CategoryVegetable, "🥬", 4},
		{"grain mapping", "Brown Rice", ai.CategoryGrain, "🍚", 365},
		{"first match in declaration order", "apple and banana smoothie", ai.CategoryFruit, "🍎", 14},
		{"unknown", "dragon fruit jam", ai.CategoryOther, DefaultEmoji, DefaultShelfLifeDays},
		{"empty", "   ", ai.CategoryOther, DefaultEmoji, DefaultShelfLifeDays},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := Lookup(tt.input)
			if got.Category != tt.category || got.Emoji != tt.emoji || got.ShelfLifeDays != tt.days {
				t.Fatalf("Lookup(%q) = %+v, want {%s %s %d}", tt.input, got, tt.category, tt.emoji, tt.days)
			}
		})
	}
}

func TestLookupDeterministic(t *testing.T) {
	for _, name := range []string{"egg", "eggplant", "Pork Chops", "??", "orange juice"} {
		first := Lookup(name)
		for i := 0; i < 10; i++ {
			if got := Lookup(name); got != first {
				t.Fatalf("Lookup(%q) changed between calls: %+v vs %+v", name, first, got)
			}
		}
	}
}

func TestTableEntriesAreValid(t *testing.T) {
	if len(table) != 23 {
		t.Fatalf("expected 23 table entries, got %d", len(table))
	}
	for _, e := range table {
		if err := Lookup(e.key).Validate(); err != nil {
			t.Errorf("entry %q invalid: %v", e.key, err)
		}
	}
	if err := Default().Validate(); err != nil {
		t.Errorf("default invalid: %v", err)
	}
}

func TestMatch(t *testing.T) {
	got := Match([]string{"tomato", "egg"})
	if len(got) != 1 || got[0].Name != "Tomato Omelette" {
		t.Fatalf("Match(tomato, egg) = %v, want only the omelette", names(got))
	}

	got = Match([]string{"西红柿", "鸡蛋"})
	if len(got) != 1 || got[0].NameZh != "煎蛋卷" {
		t.Fatalf("Match(西红柿, 鸡蛋) = %v, want only the omelette", names(got))
	}

	// creamy pasta needs three
	got = Match([]string{"pasta", "milk"})
	for _, d := range got {
		if d.Name == "Creamy Pasta" {
			t.Fatalf("Creamy Pasta matched with two ingredients")
		}
	}
	got = Match([]string{"Pasta", "whole milk", "cheddar cheese", "potato", "beef"})
	want := []string{"Tomato Omelette", "Creamy Pasta", "Steak with Potatoes"}
	if g := names(got); !equal(g, want) {
		t.Fatalf("Match = %v, want %v", g, want)
	}

	if got := Match(nil); len(got) != 0 {
		t.Fatalf("Match(nil) = %v", names(got))
	}
	if got := Match([]string{"", "  "}); len(got) != 0 {
		t.Fatalf("blank names should not match everything, got %v", names(got))
	}
}

func TestRandom(t *testing.T) {
	rng := rand.New(rand.NewPCG(1, 2))
	seen := map[string]bool{}
	for i := 0; i < 200; i++ {
		seen[Random(rng).Name] = true
	}
	if len(seen) != len(Catalog()) {
		t.Fatalf("expected every dish to come up in 200 draws, saw %d", len(seen))
	}
	if Random(nil).Name == "" {
		t.Fatal("Random(nil) returned an empty dish")
	}
}

func TestLocalized(t *testing.T) {
	d := Catalog()[0]
	name, desc, ings := d.Localized(language.SimplifiedChinese)
	if name != "水果沙拉" || desc == "" || ings[0] != "苹果" {
		t.Fatalf("unexpected zh localization: %s %s %v", name, desc, ings)
	}
	name, _, ings = d.Localized(language.English)
	if name != "Fruit Salad" || ings[0] != "apple" {
		t.Fatalf("unexpected en localization: %s %v", name, ings)
	}
	ings[0] = "mutated"
	if Catalog()[0].Ingredients[0] != "apple" {
		t.Fatal("Localized leaked the catalog slice")
	}
	if len(GenericInstructions(language.English)) != 3 || GenericInstructions(language.Chinese)[0] != "准备食材" {
		t.Fatal("unexpected generic instructions")
	}
}

func names(ds []Dish) []string {
	out := make([]string, len(ds))
	for i, d := range ds {
		out[i] = d.Name
	}
	return out
}

func equal(a, b []string) bool {
	if len(a) != len(b) {
		return false
	}
	for i := range a {
		if a[i] != b[i] {
			return false
		}
	}
	return true
}
