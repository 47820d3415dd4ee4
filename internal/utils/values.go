package utils

import (
	"fmt"
	"strings"
	"time"
)

// NormalizeValue converts driver values into plain JSON-friendly values.
// Drivers hand back text columns as []byte.
func NormalizeValue(v any) any {
	switch val := v.(type) {
	case []byte:
		return string(val)
	case time.Time:
		return val.Format(time.RFC3339)
	default:
		return v
	}
}

// FormatValue renders a single value for prompt text.
func FormatValue(v any) string {
	switch val := NormalizeValue(v).(type) {
	case nil:
		return "NULL"
	case string:
		return val
	default:
		return fmt.Sprint(val)
	}
}

// StripCodeFences removes markdown ``` fences (with or without a language tag)
// that models wrap around SQL.
func StripCodeFences(s string) string {
	s = strings.ReplaceAll(s, "```sql", "")
	s = strings.ReplaceAll(s, "```SQL", "")
	s = strings.ReplaceAll(s, "```", "")
	return strings.TrimSpace(s)
}
