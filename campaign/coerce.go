package campaign

import (
	"encoding/json"
	"math"
	"strings"
)

// CoerceInt converts a decoded JSON value to an integer the loose way stored
// records have always been read: empty values are 0, strings yield their
// leading integer, floats are truncated and non-empty containers are 1.
func CoerceInt(v interface{}) int64 {
	switch val := v.(type) {
	case nil:
		return 0
	case bool:
		if val {
			return 1
		}
		return 0
	case json.Number:
		return numberToInt(val)
	case float64:
		return truncate(val)
	case float32:
		return truncate(float64(val))
	case int:
		return int64(val)
	case int64:
		return val
	case int32:
		return int64(val)
	case uint64:
		if val > math.MaxInt64 {
			return math.MaxInt64
		}
		return int64(val)
	case string:
		return leadingInt(val)
	case map[string]interface{}:
		return boolToInt(len(val) > 0)
	case []interface{}:
		return boolToInt(len(val) > 0)
	default:
		return 0
	}
}

// CoerceBool reports whether v is non-empty: false, 0, "", "0", null and empty
// containers are false.
func CoerceBool(v interface{}) bool {
	switch val := v.(type) {
	case nil:
		return false
	case bool:
		return val
	case json.Number:
		f, err := val.Float64()
		return err != nil || f != 0
	case float64:
		return val != 0
	case float32:
		return val != 0
	case int:
		return val != 0
	case int64:
		return val != 0
	case int32:
		return val != 0
	case uint64:
		return val != 0
	case string:
		return val != "" && val != "0"
	case map[string]interface{}:
		return len(val) > 0
	case []interface{}:
		return len(val) > 0
	default:
		return true
	}
}

func numberToInt(n json.Number) int64 {
	if i, err := n.Int64(); err == nil {
		return i
	}

	// Out-of-range values parse to +-Inf, which truncate clamps.
	f, _ := n.Float64()
	return truncate(f)
}

func truncate(f float64) int64 {
	switch {
	case math.IsNaN(f):
		return 0
	case f >= math.MaxInt64:
		return math.MaxInt64
	case f <= math.MinInt64:
		return math.MinInt64
	}
	return int64(f)
}

func leadingInt(s string) int64 {
	s = strings.TrimLeft(s, " \t\n\r\v\f")

	negative := false
	if s != "" && (s[0] == '-' || s[0] == '+') {
		negative = s[0] == '-'
		s = s[1:]
	}

	var n int64
	for i := 0; i < len(s); i++ {
		c := s[i]
		if c < '0' || c > '9' {
			break
		}
		if n > (math.MaxInt64-int64(c-'0'))/10 {
			n = math.MaxInt64
			break
		}
		n = n*10 + int64(c-'0')
	}

	if negative {
		return -n
	}
	return n
}

func boolToInt(b bool) int64 {
	if b {
		return 1
	}
	return 0
}
