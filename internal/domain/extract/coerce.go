package extract

import (
	"encoding/json"
	"math"
	"strconv"
	"strings"
)

// Coerce converts a raw metric value to a finite float. Numbers pass
// through, booleans widen to 0 or 1, text is tried as a number and then as
// a boolean, and lists collapse to their mean. The boolean is false when
// none of these apply.
func Coerce(raw any) (float64, bool) {
	var v float64
	switch x := raw.(type) {
	case float64:
		v = x
	case float32:
		v = float64(x)
	case int:
		v = float64(x)
	case int32:
		v = float64(x)
	case int64:
		v = float64(x)
	case uint64:
		v = float64(x)
	case json.Number:
		f, err := x.Float64()
		if err != nil {
			return 0, false
		}
		v = f
	case bool:
		v = widen(x)
	case string:
		return coerceText(x)
	case []any:
		return mean(x)
	default:
		return 0, false
	}
	return v, finite(v)
}

func coerceText(s string) (float64, bool) {
	s = strings.TrimSpace(s)
	if f, err := strconv.ParseFloat(s, 64); err == nil {
		return f, finite(f)
	}
	if b, err := strconv.ParseBool(s); err == nil {
		return widen(b), true
	}
	return 0, false
}

func mean(xs []any) (float64, bool) {
	if len(xs) == 0 {
		return 0, false
	}
	var sum float64
	for _, x := range xs {
		v, ok := Coerce(x)
		if !ok {
			return 0, false
		}
		sum += v
	}
	return sum / float64(len(xs)), true
}

func widen(b bool) float64 {
	if b {
		return 1
	}
	return 0
}

func finite(f float64) bool {
	return !math.IsNaN(f) && !math.IsInf(f, 0)
}
