// Package normalize turns raw cell values into the text form used for every
// comparison made by the validators.
//
// Spreadsheet authors routinely decorate values with leading or trailing
// blanks, full-width ideographic spaces (U+3000) and line breaks typed with
// Alt+Enter. Only that fixed set of characters is removed; general Unicode
// whitespace such as NO-BREAK SPACE is left untouched.
package normalize

import (
	"fmt"
	"math"
	"strconv"
	"strings"
	"time"
)

// Decorative is the set trimmed from both ends of a value.
const Decorative = " \t\n\r\u3000"

// Interior is the set deleted anywhere inside a value.
const Interior = "\t\n\r\u3000"

// Text coerces a raw cell value to text. Missing values become "".
func Text(raw any) string {
	switch v := raw.(type) {
	case nil:
		return ""
	case string:
		return v
	case []byte:
		return string(v)
	case bool:
		return strconv.FormatBool(v)
	case int:
		return strconv.FormatInt(int64(v), 10)
	case int8:
		return strconv.FormatInt(int64(v), 10)
	case int16:
		return strconv.FormatInt(int64(v), 10)
	case int32:
		return strconv.FormatInt(int64(v), 10)
	case int64:
		return strconv.FormatInt(v, 10)
	case uint:
		return strconv.FormatUint(uint64(v), 10)
	case uint8:
		return strconv.FormatUint(uint64(v), 10)
	case uint16:
		return strconv.FormatUint(uint64(v), 10)
	case uint32:
		return strconv.FormatUint(uint64(v), 10)
	case uint64:
		return strconv.FormatUint(v, 10)
	case float32:
		if math.IsNaN(float64(v)) {
			return ""
		}
		return strconv.FormatFloat(float64(v), 'f', -1, 32)
	case float64:
		// NaN is how numeric drivers surface an empty cell.
		if math.IsNaN(v) {
			return ""
		}
		return strconv.FormatFloat(v, 'f', -1, 64)
	case time.Time:
		if v.IsZero() {
			return ""
		}
		if v.Hour() == 0 && v.Minute() == 0 && v.Second() == 0 && v.Nanosecond() == 0 {
			return v.Format(time.DateOnly)
		}
		return v.Format(time.RFC3339)
	case fmt.Stringer:
		return v.String()
	default:
		return fmt.Sprint(v)
	}
}

// TrimDecorative coerces raw to text and trims the decorative set from both
// ends. Interior characters are kept. Group consistency comparisons use this
// lighter form since dependent fields hold short categorical codes.
func TrimDecorative(raw any) string {
	return strings.Trim(Text(raw), Decorative)
}

// Normalize coerces raw to text, trims the decorative set from both ends and
// deletes the interior set everywhere. Regular interior spaces are kept.
func Normalize(raw any) string {
	s := TrimDecorative(raw)
	if !strings.ContainsAny(s, Interior) {
		return s
	}
	return strings.Map(func(r rune) rune {
		if strings.ContainsRune(Interior, r) {
			return -1
		}
		return r
	}, s)
}

// IsBlank reports whether raw normalizes to the empty string.
func IsBlank(raw any) bool {
	return Normalize(raw) == ""
}
