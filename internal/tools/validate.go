package tools

import (
	"encoding/json"
	"fmt"
	"math"
	"strings"
)

// Validate checks args against the definition's schema and returns the first
// violation, or nil.
//
// A required field is missing when absent, null, or a blank string.
// Any present non-null field must match its declared type. Unknown fields are
// ignored.
func Validate(def Definition, args Arguments) *Failure {
	for _, p := range def.Schema.Properties {
		v, present := args[p.Name]
		if !present || v == nil {
			if p.Required {
				return invalid("%s must not be empty", p.Name)
			}
			continue
		}

		if !matchesType(p.TypeName(), v) {
			return invalid("%s must be a %s", p.Name, p.TypeName())
		}

		if s, ok := v.(string); ok && p.Required && strings.TrimSpace(s) == "" {
			return invalid("%s must not be empty", p.Name)
		}
	}
	return nil
}

func invalid(format string, args ...any) *Failure {
	return &Failure{Kind: KindInvalidParams, Message: fmt.Sprintf(format, args...)}
}

func matchesType(typ string, v any) bool {
	switch typ {
	case TypeString:
		_, ok := v.(string)
		return ok
	case TypeNumber:
		switch v.(type) {
		case float64, float32, int, int64, int32, json.Number:
			return true
		}
		return false
	case TypeInteger:
		switch n := v.(type) {
		case int, int64, int32:
			return true
		case float64:
			return n == math.Trunc(n)
		case json.Number:
			_, err := n.Int64()
			return err == nil
		}
		return false
	case TypeBoolean:
		_, ok := v.(bool)
		return ok
	case TypeObject:
		_, ok := v.(map[string]any)
		return ok
	case TypeArray:
		_, ok := v.([]any)
		return ok
	default:
		return true
	}
}
