package conversation

import (
	"errors"
	"fmt"
	"strconv"
	"strings"

	"github.com/AA-Fatima/599-cal/app/client/calc"
)

const genericFailureText = "Sorry, something went wrong. Please try again."

func renderClarification(c *Clarification) string {
	prompt := strings.TrimSpace(c.Prompt)
	if prompt == "" {
		prompt = "Could you tell me more about what you'd like to calculate?"
	}

	if len(c.Suggestions) == 0 {
		return prompt
	}

	return prompt + "\nSuggestions: " + strings.Join(c.Suggestions, ", ")
}

func renderComputation(c *Computation) string {
	var builder strings.Builder

	builder.WriteString(fmt.Sprintf("Dish: %s\n", c.Dish))
	builder.WriteString(fmt.Sprintf("Total: %s kcal", formatNumber(c.TotalCalories)))

	for _, line := range c.Lines {
		suffix := ""
		if line.Added {
			suffix = " (added)"
		}
		if line.Removed {
			suffix = " (removed)"
		}

		builder.WriteString(fmt.Sprintf("\n%s: %sg → %s kcal%s",
			line.Name, formatNumber(line.WeightG), formatNumber(line.Calories), suffix))
	}

	for _, note := range c.Notes {
		builder.WriteString("\nNote: " + note)
	}

	return builder.String()
}

// renderFailure turns a per-turn failure into a user-safe bot message.
// Server-supplied detail is surfaced when present; everything else falls
// back to a generic text.
func renderFailure(err error) string {
	var transportErr *calc.TransportError
	if errors.As(err, &transportErr) && transportErr.Detail != "" {
		return "Sorry, I couldn't process that: " + transportErr.Detail
	}

	return genericFailureText
}

func formatNumber(v float64) string {
	return strconv.FormatFloat(v, 'f', -1, 64)
}
