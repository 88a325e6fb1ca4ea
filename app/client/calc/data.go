package calc

// Request is the wire body of POST /calculate. A null session_id and an
// omitted one are treated identically by the server.
type Request struct {
	Query     string  `json:"query"`
	SessionID *string `json:"session_id"`
}

// Response covers both response shapes of POST /calculate. Which fields
// are meaningful depends on NeedsClarification; conversation.normalize
// turns this into a discriminated result.
type Response struct {
	SessionID          string `json:"session_id"`
	NeedsClarification bool   `json:"needs_clarification"`

	// clarification fields
	Message              string   `json:"message,omitempty"`
	SuggestedIngredients []string `json:"suggested_ingredients,omitempty"`

	// resolved fields
	Dish          string           `json:"dish,omitempty"`
	Ingredients   []IngredientLine `json:"ingredients,omitempty"`
	TotalCalories float64          `json:"total_calories,omitempty"`
	Notes         []string         `json:"notes,omitempty"`
}

type IngredientLine struct {
	Name     string  `json:"name"`
	WeightG  float64 `json:"weight_g"`
	Calories float64 `json:"calories"`
	Added    bool    `json:"added,omitempty"`
	Removed  bool    `json:"removed,omitempty"`
}

type errorBody struct {
	Detail string `json:"detail"`
}
