package admin

type Dish struct {
	DishID      int              `json:"dish_id"`
	DishName    string           `json:"dish_name"`
	Country     string           `json:"country"`
	WeightG     float64          `json:"weight_g"`
	Calories    float64          `json:"calories"`
	Ingredients []DishIngredient `json:"ingredients"`
}

type DishIngredient struct {
	UsdaFdcID int     `json:"usda_fdc_id"`
	Name      string  `json:"name"`
	WeightG   float64 `json:"weight_g"`
	Calories  float64 `json:"calories"`
}

type MissingDish struct {
	DishName             string   `json:"dish_name"`
	UserQuery            string   `json:"user_query"`
	SuggestedIngredients []string `json:"gpt_suggested_ingredients"`
	Timestamp            string   `json:"timestamp"`
}

type UsdaIngredient struct {
	FdcID int     `json:"fdc_id"`
	Name  string  `json:"name"`
	Score float64 `json:"score"`
}

type AddDishRequest struct {
	DishName    string             `json:"dish_name" validate:"required"`
	Country     string             `json:"country" validate:"required"`
	Ingredients []AddDishIngredient `json:"ingredients" validate:"required,min=1,dive"`
}

type AddDishIngredient struct {
	UsdaName string  `json:"usda_name" validate:"required"`
	WeightG  float64 `json:"weight_g" validate:"required,gt=0"`
}
