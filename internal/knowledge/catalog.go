package knowledge

import (
	"math/rand/v2"
	"strings"

	"github.com/samber/lo"
	"golang.org/x/text/language"

	"refrigee/internal/ai"
)

// Dish is a canned recipe the offline path can offer. Ingredients are kept in both
// languages, position for position, so either spelling matches.
type Dish struct {
	Name           string
	NameZh         string
	Description    string
	DescriptionZh  string
	Emoji          string
	Ingredients    []string
	IngredientsZh  []string
	MinIngredients int
}

var catalog = []Dish{
	{
		Name: "Fruit Salad", NameZh: "水果沙拉",
		Description: "A fresh and healthy mix of fruit.", DescriptionZh: "新鲜健康的水果混合。",
		Emoji:          "🥗",
		Ingredients:    []string{"apple", "banana", "orange", "grape", "strawberry"},
		IngredientsZh:  []string{"苹果", "香蕉", "橙子", "葡萄", "草莓"},
		MinIngredients: 2,
	},
	{
		Name: "Vegetable Stir-Fry", NameZh: "蔬菜炒菜",
		Description: "A quick stir-fry from whatever vegetables are on hand.", DescriptionZh: "用现有蔬菜快速炒制。",
		Emoji:          "🥘",
		Ingredients:    []string{"carrot", "onion", "spinach", "potato"},
		IngredientsZh:  []string{"胡萝卜", "洋葱", "菠菜", "土豆"},
		MinIngredients: 2,
	},
	{
		Name: "Tomato Omelette", NameZh: "煎蛋卷",
		Description: "A classic breakfast dish.", DescriptionZh: "经典早餐菜肴。",
		Emoji:          "🍳",
		Ingredients:    []string{"egg", "milk", "cheese", "tomato", "onion"},
		IngredientsZh:  []string{"鸡蛋", "牛奶", "奶酪", "西红柿", "洋葱"},
		MinIngredients: 2,
	},
	{
		Name: "Creamy Pasta", NameZh: "奶油意面",
		Description: "Rich, silky pasta.", DescriptionZh: "浓郁顺滑的意面。",
		Emoji:          "🍝",
		Ingredients:    []string{"pasta", "milk", "cheese", "butter"},
		IngredientsZh:  []string{"意大利面", "牛奶", "奶酪", "黄油"},
		MinIngredients: 3,
	},
	{
		Name: "Chicken Salad", NameZh: "鸡肉沙拉",
		Description: "A healthy high-protein salad.", DescriptionZh: "健康高蛋白沙拉。",
		Emoji:          "🥗",
		Ingredients:    []string{"chicken", "lettuce", "tomato", "onion"},
		IngredientsZh:  []string{"鸡肉", "生菜", "西红柿", "洋葱"},
		MinIngredients: 2,
	},
	{
		Name: "Steak with Potatoes", NameZh: "牛排配土豆",
		Description: "A hearty plate for meat lovers.", DescriptionZh: "肉食爱好者的丰盛餐食。",
		Emoji:          "🥩",
		Ingredients:    []string{"beef", "potato", "butter"},
		IngredientsZh:  []string{"牛肉", "土豆", "黄油"},
		MinIngredients: 2,
	},
}

// Catalog returns a copy of the canned recipes in catalog order.
func Catalog() []Dish {
	return append([]Dish(nil), catalog...)
}

// Match returns the dishes that share at least MinIngredients ingredients with have, in
// catalog order.
func Match(have []string) []Dish {
	normalized := lo.FilterMap(have, func(s string, _ int) (string, bool) {
		s = strings.ToLower(strings.TrimSpace(s))
		return s, s != ""
	})
	return lo.Filter(catalog, func(d Dish, _ int) bool {
		return d.overlapCount(normalized) >= d.MinIngredients
	})
}

func (d Dish) overlapCount(have []string) int {
	count := 0
	for i, ing := range d.Ingredients {
		names := []string{ing}
		if i < len(d.IngredientsZh) {
			names = append(names, d.IngredientsZh[i])
		}
		if lo.SomeBy(have, func(h string) bool {
			return lo.SomeBy(names, func(n string) bool { return overlaps(h, n) })
		}) {
			count++
		}
	}
	return count
}

// Random picks a catalog entry uniformly. A nil rng uses the global source.
func Random(rng *rand.Rand) Dish {
	if rng == nil {
		return catalog[rand.IntN(len(catalog))]
	}
	return catalog[rng.IntN(len(catalog))]
}

// Localized returns name, description and ingredients in lang.
func (d Dish) Localized(lang language.Tag) (name, description string, ingredients []string) {
	if ai.IsChinese(lang) {
		return d.NameZh, d.DescriptionZh, append([]string(nil), d.IngredientsZh...)
	}
	return d.Name, d.Description, append([]string(nil), d.Ingredients...)
}

// GenericInstructions are the steps attached to every offline recipe.
func GenericInstructions(lang language.Tag) []string {
	if ai.IsChinese(lang) {
		return []string{"准备食材", "按照常规方法烹饪", "享用美食"}
	}
	return []string{"Prepare the ingredients", "Cook using your usual method", "Enjoy"}
}
