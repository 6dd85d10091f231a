package oracle

import (
	"encoding/json"
	"fmt"
	"math"
	"strconv"
	"strings"
)

// coerceFloat accepts JSON numbers and numeric strings. Anything else is NaN.
func coerceFloat(v any) float64 {
	switch val := v.(type) {
	case float64:
		return val
	case float32:
		return float64(val)
	case int:
		return float64(val)
	case json.Number:
		f, err := val.Float64()
		if err != nil {
			return math.NaN()
		}
		return f
	case string:
		trimmed := strings.TrimSuffix(strings.TrimSpace(val), "%")
		if trimmed == "" {
			return math.NaN()
		}
		f, err := strconv.ParseFloat(trimmed, 64)
		if err != nil {
			return math.NaN()
		}
		if strings.HasSuffix(strings.TrimSpace(val), "%") {
			f /= 100
		}
		return f
	default:
		return math.NaN()
	}
}

// coerceString flattens strings and string lists into text.
func coerceString(v any) string {
	switch val := v.(type) {
	case nil:
		return ""
	case string:
		return strings.TrimSpace(val)
	case []any:
		lines := make([]string, 0, len(val))
		for _, item := range val {
			if s := coerceString(item); s != "" {
				lines = append(lines, "- "+s)
			}
		}
		return strings.Join(lines, "\n")
	default:
		return strings.TrimSpace(fmt.Sprint(val))
	}
}
