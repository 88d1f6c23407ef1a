package notifier

import (
	"fmt"
	"strconv"
	"strings"
)

// ParamString returns params[key] as a string, or "".
func ParamString(params map[string]any, key string) string {
	switch v := params[key].(type) {
	case string:
		return v
	case nil:
		return ""
	default:
		return fmt.Sprint(v)
	}
}

// ParamInt returns params[key] as an int. YAML and JSON decoders disagree
// on numeric types so all of them are accepted.
func ParamInt(params map[string]any, key string) (int, bool) {
	switch v := params[key].(type) {
	case int:
		return v, true
	case int64:
		return int(v), true
	case float64:
		return int(v), true
	case string:
		n, err := strconv.Atoi(v)
		return n, err == nil
	}
	return 0, false
}

// ParamStrings returns params[key] as a list. A comma separated string is split.
func ParamStrings(params map[string]any, key string) []string {
	var out []string
	switch v := params[key].(type) {
	case []string:
		out = append(out, v...)
	case []any:
		for _, item := range v {
			out = append(out, fmt.Sprint(item))
		}
	case string:
		out = strings.Split(v, ",")
	}
	result := out[:0]
	for _, s := range out {
		if s = strings.TrimSpace(s); s != "" {
			result = append(result, s)
		}
	}
	return result
}
