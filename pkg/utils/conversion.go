package utils

import (
	"fmt"
	"strconv"
	"strings"
	"time"
)

// ToBool converts driver values to bool. TINYINT columns arrive as int64 or []byte.
func ToBool(val interface{}) bool {
	switch v := val.(type) {
	case nil:
		return false
	case bool:
		return v
	case int64:
		return v != 0
	case int:
		return v != 0
	case float64:
		return v != 0
	case []byte:
		return parseBoolString(string(v))
	case string:
		return parseBoolString(v)
	default:
		return parseBoolString(fmt.Sprintf("%v", v))
	}
}

func parseBoolString(s string) bool {
	lower := strings.ToLower(strings.TrimSpace(s))
	if lower == "yes" || lower == "on" {
		return true
	}
	b, err := strconv.ParseBool(lower)
	return err == nil && b
}

// ToString converts driver values to string; nil becomes "".
func ToString(val interface{}) string {
	switch v := val.(type) {
	case nil:
		return ""
	case string:
		return v
	case []byte:
		return string(v)
	case time.Time:
		return v.UTC().Format(time.RFC3339)
	default:
		return fmt.Sprintf("%v", v)
	}
}

// ToInt converts driver values to int, returning 0 when the value is not numeric.
func ToInt(val interface{}) int {
	switch v := val.(type) {
	case int:
		return v
	case int64:
		return int(v)
	case float64:
		return int(v)
	case []byte:
		n, _ := strconv.Atoi(strings.TrimSpace(string(v)))
		return n
	case string:
		n, _ := strconv.Atoi(strings.TrimSpace(v))
		return n
	}
	return 0
}

// IsBlank reports whether a record value carries no information.
func IsBlank(val interface{}) bool {
	switch v := val.(type) {
	case nil:
		return true
	case string:
		return strings.TrimSpace(v) == ""
	case []byte:
		return strings.TrimSpace(string(v)) == ""
	case *string:
		return v == nil || strings.TrimSpace(*v) == ""
	}
	return false
}
