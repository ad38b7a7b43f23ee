package api

import (
	"fmt"
	"strconv"
	"strings"
)

// formatPrice renders a catalog price with the currency prefix.
func formatPrice(v float64) string {
	return fmt.Sprintf("R$ %.2f", v)
}

// parsePrice accepts human-entered prices: an optional "R$" prefix and
// a comma decimal separator are tolerated.
func parsePrice(raw string) (float64, error) {
	cleaned := strings.TrimSpace(strings.ReplaceAll(raw, "R$", ""))
	cleaned = strings.ReplaceAll(cleaned, ",", ".")
	v, err := strconv.ParseFloat(cleaned, 64)
	if err != nil {
		return 0, fmt.Errorf("invalid price %q: %w", raw, err)
	}
	return v, nil
}

// coercePrice maps the decoded JSON price value (number or string) to a float.
func coercePrice(v any) (float64, error) {
	switch p := v.(type) {
	case nil:
		return 0, nil
	case float64:
		return p, nil
	case string:
		return parsePrice(p)
	default:
		return 0, fmt.Errorf("unsupported price type %T", v)
	}
}
