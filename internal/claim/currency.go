package claim

import (
	"encoding/json"
	"math"
	"strconv"
	"strings"
)

var currencyStripper = strings.NewReplacer(
	",", "",
	"₹", "",
	"$", "",
	"€", "",
	"£", "",
	"Rs.", "",
	"INR", "",
	" ", "",
	"\t", "",
	"\u00a0", "",
)

// ParseCurrency converts a numeric or formatted currency value to a float.
// Unparsable input yields 0.
func ParseCurrency(v any) float64 {
	switch n := v.(type) {
	case nil:
		return 0
	case float64:
		return n
	case float32:
		return float64(n)
	case int:
		return float64(n)
	case int32:
		return float64(n)
	case int64:
		return float64(n)
	case json.Number:
		f, err := n.Float64()
		if err != nil {
			return 0
		}
		return f
	case Amount:
		return float64(n)
	case string:
		clean := currencyStripper.Replace(strings.TrimSpace(n))
		if clean == "" {
			return 0
		}
		f, err := strconv.ParseFloat(clean, 64)
		if err != nil || math.IsNaN(f) || math.IsInf(f, 0) {
			return 0
		}
		return f
	default:
		return 0
	}
}
