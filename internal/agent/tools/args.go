package tools

import (
	"encoding/json"
	"fmt"
	"math"
	"strconv"
	"strings"

	"github.com/nakari-agent/server/internal/agent/model"
)

// stringArg reads a string field; other scalars are formatted, absent is "".
func stringArg(args map[string]any, key string) string {
	switch v := args[key].(type) {
	case nil:
		return ""
	case string:
		return v
	default:
		return fmt.Sprint(v)
	}
}

// mapArg reads an object field. Models sometimes send the object as a JSON
// string; that form is decoded with integers kept as int64. Anything else
// yields an empty map.
func mapArg(args map[string]any, key string) map[string]any {
	switch v := args[key].(type) {
	case map[string]any:
		return v
	case string:
		out, err := model.DecodeObject(v)
		if err != nil {
			return map[string]any{}
		}
		return out
	}
	return map[string]any{}
}

// intArg reads a whole number from a JSON number or numeric string. ok is false
// when the field is absent or unusable.
func intArg(args map[string]any, key string) (int, bool) {
	switch v := args[key].(type) {
	case float64:
		if math.IsNaN(v) || math.IsInf(v, 0) {
			return 0, false
		}
		return int(v), true
	case int:
		return v, true
	case int64:
		return int(v), true
	case json.Number:
		n, err := v.Int64()
		return int(n), err == nil
	case string:
		n, err := strconv.Atoi(strings.TrimSpace(v))
		return n, err == nil
	}
	return 0, false
}

func clamp(n, lo, hi int) int {
	return max(lo, min(n, hi))
}
