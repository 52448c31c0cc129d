package recipe

import "strings"

// Recipe 內建食譜目錄中的一筆資料，執行期間不可變
type Recipe struct {
	ID               string   `json:"id"`
	Emoji            string   `json:"emoji"`
	Title            string   `json:"title"`
	Description      string   `json:"description"`
	Time             string   `json:"time"`
	Servings         string   `json:"servings"`
	Difficulty       string   `json:"difficulty"`
	Calories         string   `json:"calories"`
	Badges           []string `json:"badges"`
	UsedIngredients  []string `json:"usedIngredients"`
	ExtraIngredients []string `json:"extraIngredients"`
	Steps            []string `json:"steps"`
}

// clone 深拷貝，避免呼叫端修改目錄
func (r Recipe) clone() Recipe {
	r.Badges = append([]string(nil), r.Badges...)
	r.UsedIngredients = append([]string(nil), r.UsedIngredients...)
	r.ExtraIngredients = append([]string(nil), r.ExtraIngredients...)
	r.Steps = append([]string(nil), r.Steps...)
	return r
}

var catalog = []Recipe{
	{
		ID:               "herb-egg-frittata",
		Title:            "Herb & Egg Frittata",
		Description:      "A golden, fluffy frittata loaded with pantry vegetables and herbs.",
		Time:             "22 min",
		Servings:         "3-4",
		Difficulty:       "Easy",
		Calories:         "310",
		Badges:           []string{"Vegetarian", "Gluten-Free"},
		UsedIngredients:  []string{"Eggs", "Spinach", "Onion", "Cheese"},
		ExtraIngredients: []string{"Olive oil", "Salt", "Pepper", "Fresh herbs"},
		Steps: []string{
			"Whisk eggs with salt, pepper, and a splash of milk.",
			"Saute onion until soft, then add spinach until wilted.",
			"Pour in eggs, top with cheese, and bake until set.",
			"Rest briefly, slice, and serve warm.",
		},
	},
	{
		ID:               "one-pot-tomato-rice",
		Title:            "One-Pot Tomato Rice",
		Description:      "Savory tomato rice with garlic and vegetables, all cooked in one pot.",
		Time:             "30 min",
		Servings:         "4",
		Difficulty:       "Easy",
		Calories:         "380",
		Badges:           []string{"Vegan", "Gluten-Free"},
		UsedIngredients:  []string{"Tomatoes", "Rice", "Garlic", "Onion", "Carrots"},
		ExtraIngredients: []string{"Cumin", "Paprika", "Vegetable stock", "Olive oil"},
		Steps: []string{
			"Dice vegetables and mince garlic.",
			"Cook onion and carrots until softened.",
			"Add garlic, spices, tomatoes, and rice.",
			"Pour in stock, cover, simmer, and fluff before serving.",
		},
	},
	{
		ID:               "roasted-veggie-bowl",
		Title:            "Roasted Veggie Bowl",
		Description:      "Roasted vegetables over grains with a bright lemon-garlic dressing.",
		Time:             "35 min",
		Servings:         "2",
		Difficulty:       "Easy",
		Calories:         "420",
		Badges:           []string{"Vegan"},
		UsedIngredients:  []string{"Carrots", "Potatoes", "Spinach", "Lemon", "Garlic"},
		ExtraIngredients: []string{"Olive oil", "Cumin", "Salt", "Pepper", "Rice"},
		Steps: []string{
			"Roast chopped carrots and potatoes until golden.",
			"Whisk lemon, garlic, olive oil, and salt.",
			"Serve over grains with spinach and dressing.",
		},
	},
	{
		ID:               "quick-garlic-pasta",
		Title:            "Quick Garlic Pasta",
		Description:      "Silky pasta with garlic, olive oil, chili, and a finishing shower of cheese.",
		Time:             "20 min",
		Servings:         "2",
		Difficulty:       "Easy",
		Calories:         "490",
		Badges:           []string{"Vegetarian"},
		UsedIngredients:  []string{"Pasta", "Garlic", "Cheese"},
		ExtraIngredients: []string{"Olive oil", "Chili flakes", "Salt", "Parsley"},
		Steps: []string{
			"Cook pasta and reserve some pasta water.",
			"Slowly cook sliced garlic in olive oil.",
			"Toss pasta with garlic oil, chili, cheese, and pasta water.",
		},
	},
	{
		ID:               "lemon-herb-chicken",
		Title:            "Lemon Herb Chicken",
		Description:      "Pan-seared chicken with lemon, garlic, herbs, and wilted greens.",
		Time:             "28 min",
		Servings:         "2",
		Difficulty:       "Medium",
		Calories:         "520",
		Badges:           []string{"Gluten-Free"},
		UsedIngredients:  []string{"Chicken", "Lemon", "Garlic", "Spinach"},
		ExtraIngredients: []string{"Olive oil", "Thyme", "Salt", "Pepper", "Butter"},
		Steps: []string{
			"Season and marinate chicken with lemon, garlic, and herbs.",
			"Sear until cooked through and golden.",
			"Use the pan juices to wilt spinach and serve together.",
		},
	},
	{
		ID:               "potato-egg-hash",
		Title:            "Potato & Egg Hash",
		Description:      "Crispy potatoes with caramelized onion and soft eggs in one pan.",
		Time:             "25 min",
		Servings:         "2",
		Difficulty:       "Easy",
		Calories:         "440",
		Badges:           []string{"Vegetarian", "Gluten-Free"},
		UsedIngredients:  []string{"Potatoes", "Eggs", "Onion", "Garlic"},
		ExtraIngredients: []string{"Olive oil", "Paprika", "Salt", "Fresh herbs"},
		Steps: []string{
			"Par-cook diced potatoes.",
			"Cook onion and garlic until soft.",
			"Brown potatoes, crack eggs on top, cover, and cook until set.",
		},
	},
}

// QuickAddIngredients 常用食材快捷清單
var QuickAddIngredients = []string{
	"Eggs", "Chicken", "Tomatoes", "Garlic", "Onion", "Pasta",
	"Rice", "Spinach", "Carrots", "Cheese", "Potatoes", "Lemon",
}

// Catalog 回傳內建食譜目錄的副本，順序固定
func Catalog() []Recipe {
	out := make([]Recipe, len(catalog))
	for i, r := range catalog {
		out[i] = r.clone()
	}
	return out
}

// FindByTitle 以標題（不分大小寫）或 ID 查找
func FindByTitle(title string) (Recipe, bool) {
	title = strings.TrimSpace(title)
	for _, r := range catalog {
		if strings.EqualFold(r.Title, title) || r.ID == title {
			return r.clone(), true
		}
	}
	return Recipe{}, false
}
