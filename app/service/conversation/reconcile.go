package conversation

import (
	"errors"
	"fmt"
	"log/slog"
	"math"

	"github.com/AA-Fatima/599-cal/app/client/calc"
	"github.com/elliotchance/pie/v2"
)

// Totals within this tolerance of the line sum are considered consistent.
// Larger discrepancies are logged but the server's total still wins.
const sumTolerance = 0.5

var errProtocol = errors.New("response violates the calculation contract")

// outcome is the discriminated result of normalizing a response: exactly
// one of clarification and computation is set.
type outcome struct {
	clarification *Clarification
	computation   *Computation
}

// normalize interprets a raw response as either a clarification request
// or a final computation. The needs_clarification flag is authoritative:
// a clarification carrying ingredient data is still a clarification.
func normalize(resp *calc.Response) (*outcome, error) {
	if resp.NeedsClarification {
		return &outcome{
			clarification: &Clarification{
				Prompt:      resp.Message,
				Suggestions: resp.SuggestedIngredients,
			},
		}, nil
	}

	if resp.Dish == "" {
		return nil, fmt.Errorf("%w: neither a clarification nor a dish", errProtocol)
	}

	lines := make([]Line, 0, len(resp.Ingredients))
	for _, ing := range resp.Ingredients {
		if ing.Added && ing.Removed {
			return nil, fmt.Errorf("%w: ingredient %q is both added and removed", errProtocol, ing.Name)
		}

		lines = append(lines, Line{
			Name:     ing.Name,
			WeightG:  ing.WeightG,
			Calories: ing.Calories,
			Added:    ing.Added,
			Removed:  ing.Removed,
		})
	}

	// The server's total is authoritative; the sum is computed only to
	// log discrepancies, never to override it.
	sum := pie.Sum(pie.Map(lines, func(l Line) float64 {
		return l.Calories
	}))
	if math.Abs(sum-resp.TotalCalories) > sumTolerance {
		slog.Warn("Server total disagrees with ingredient sum",
			"dish", resp.Dish,
			"total_calories", resp.TotalCalories,
			"line_sum", sum,
		)
	}

	return &outcome{
		computation: &Computation{
			Dish:          resp.Dish,
			Lines:         lines,
			TotalCalories: resp.TotalCalories,
			Notes:         resp.Notes,
		},
	}, nil
}
