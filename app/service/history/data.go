package history

import "time"

// Calculation is one archived resolved computation.
type Calculation struct {
	ID            string
	Query         string
	Dish          string
	TotalCalories float64
	Lines         []Line
	CreatedAt     time.Time
}

type Line struct {
	Name     string
	WeightG  float64
	Calories float64
	Added    bool
	Removed  bool
}
