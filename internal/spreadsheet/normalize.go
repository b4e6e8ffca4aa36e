package spreadsheet

import (
	"fmt"
	"strconv"
	"strings"
)

// Normalize renders a submitted or expected value into the canonical form
// used for every equality comparison: numbers stringified (integers without a
// decimal point), strings trimmed and lower-cased. This keeps "100" equal to
// 100 and " Revenue " equal to "revenue".
func Normalize(v interface{}) string {
	switch t := v.(type) {
	case nil:
		return ""
	case string:
		return strings.ToLower(strings.TrimSpace(t))
	case float64:
		if t == float64(int64(t)) {
			return strconv.FormatInt(int64(t), 10)
		}
		return strconv.FormatFloat(t, 'f', -1, 64)
	case int:
		return strconv.Itoa(t)
	case int64:
		return strconv.FormatInt(t, 10)
	case bool:
		return strconv.FormatBool(t)
	default:
		return strings.ToLower(strings.TrimSpace(fmt.Sprintf("%v", t)))
	}
}
