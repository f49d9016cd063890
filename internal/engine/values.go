package engine

import (
	"fmt"
	"math"
	"strconv"
	"strings"
	"time"
)

// normalize converts driver values into caller-facing values.
func normalize(v any) any {
	if b, ok := v.([]byte); ok {
		return string(b)
	}
	return v
}

// textOf renders a value in the normalized text form used for comparisons.
// NULL renders as the empty string.
func textOf(v any) string {
	switch x := v.(type) {
	case nil:
		return ""
	case string:
		return x
	case []byte:
		return string(x)
	case time.Time:
		return x.Format(DateTimeLayout)
	case float64:
		return strconv.FormatFloat(x, 'f', -1, 64)
	case float32:
		return strconv.FormatFloat(float64(x), 'f', -1, 32)
	case bool:
		if x {
			return "1"
		}
		return "0"
	default:
		return fmt.Sprint(x)
	}
}

// isBlank reports whether v is NULL or whitespace-only text.
func isBlank(v any) bool {
	return strings.TrimSpace(textOf(v)) == ""
}

// sameValue reports whether stored already holds input.
// NULL equals blank input. Numbers and timestamps compare by value.
func sameValue(stored, input any) bool {
	in := strings.TrimSpace(textOf(input))
	if stored == nil {
		return in == ""
	}

	switch s := stored.(type) {
	case time.Time:
		return sameTime(s, in)
	case bool:
		b, ok := parseBool(in)
		return ok && b == s
	case int64, int32, int, float64, float32:
		f, err := strconv.ParseFloat(in, 64)
		if err == nil {
			sf, _ := strconv.ParseFloat(textOf(s), 64)
			return sf == f
		}
	}
	return textOf(stored) == textOf(input)
}

func sameTime(stored time.Time, in string) bool {
	if stored.Format(DateTimeLayout) == in {
		return true
	}
	midnight := stored.Hour() == 0 && stored.Minute() == 0 && stored.Second() == 0 && stored.Nanosecond() == 0
	if midnight && stored.Format(DateLayout) == in {
		return true
	}
	if t, err := time.Parse(time.RFC3339, in); err == nil {
		return t.Equal(stored)
	}
	return false
}

// parseBool accepts the spellings a form user types for a flag.
func parseBool(s string) (bool, bool) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "1", "true", "yes", "y", "on":
		return true, true
	case "0", "false", "no", "n", "off":
		return false, true
	}
	return false, false
}

// toInt64 converts an aggregate result into an integer key.
func toInt64(v any) (int64, bool) {
	switch x := v.(type) {
	case int64:
		return x, true
	case int32:
		return int64(x), true
	case int:
		return int64(x), true
	case uint64:
		if x > math.MaxInt64 {
			return 0, false
		}
		return int64(x), true
	case float64:
		if x != math.Trunc(x) {
			return 0, false
		}
		return int64(x), true
	case []byte:
		return toInt64(string(x))
	case string:
		n, err := strconv.ParseInt(strings.TrimSpace(x), 10, 64)
		return n, err == nil
	}
	return 0, false
}
