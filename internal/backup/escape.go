package backup

import (
	"math"
	"strconv"
	"strings"
	"time"

	"github.com/leapstack-labs/tablekit/pkg/adapter"
)

// TimeLayout is used for time.Time values in backup artifacts.
const TimeLayout = "2006-01-02 15:04:05"

var (
	backslashEscaper = strings.NewReplacer(
		`\`, `\\`,
		`'`, `''`,
		"\n", `\n`,
		"\r", `\r`,
		"\t", `\t`,
	)
	quoteEscaper = strings.NewReplacer(`'`, `''`)
)

// Literal renders v as a SQL literal for the given dialect.
func Literal(d *adapter.Dialect, v any) string {
	switch x := v.(type) {
	case nil:
		return "NULL"
	case bool:
		if x {
			return "TRUE"
		}
		return "FALSE"
	case int:
		return strconv.Itoa(x)
	case int8:
		return strconv.FormatInt(int64(x), 10)
	case int16:
		return strconv.FormatInt(int64(x), 10)
	case int32:
		return strconv.FormatInt(int64(x), 10)
	case int64:
		return strconv.FormatInt(x, 10)
	case uint:
		return strconv.FormatUint(uint64(x), 10)
	case uint8:
		return strconv.FormatUint(uint64(x), 10)
	case uint16:
		return strconv.FormatUint(uint64(x), 10)
	case uint32:
		return strconv.FormatUint(uint64(x), 10)
	case uint64:
		return strconv.FormatUint(x, 10)
	case float32:
		return formatFloat(float64(x), 32)
	case float64:
		return formatFloat(x, 64)
	case time.Time:
		return "'" + x.Format(TimeLayout) + "'"
	case []byte:
		return quote(d, string(x))
	case string:
		return quote(d, x)
	default:
		if s, ok := v.(interface{ String() string }); ok {
			return quote(d, s.String())
		}
		return "NULL"
	}
}

func formatFloat(f float64, bits int) string {
	// NaN and infinities have no portable literal.
	if math.IsNaN(f) || math.IsInf(f, 0) {
		return "NULL"
	}
	return strconv.FormatFloat(f, 'f', -1, bits)
}

func quote(d *adapter.Dialect, s string) string {
	if d == nil || d.BackslashEscapes {
		prefix := ""
		if d != nil {
			prefix = d.EscapeStringPrefix
		}
		return prefix + "'" + backslashEscaper.Replace(s) + "'"
	}
	return "'" + quoteEscaper.Replace(s) + "'"
}
