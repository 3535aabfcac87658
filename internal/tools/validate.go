package tools

import (
	"fmt"
	"math"

	"github.com/mfateev/yada-go/internal/models"
)

// ValidateArguments checks args against the declared parameters and
// returns a copy with defaults filled in for absent optional parameters.
// Undeclared arguments are passed through untouched.
func ValidateArguments(spec ToolSpec, args map[string]interface{}) (map[string]interface{}, error) {
	out := models.CloneArguments(args)
	if out == nil {
		out = map[string]interface{}{}
	}
	for _, p := range spec.Parameters {
		v, ok := out[p.Name]
		if !ok || v == nil {
			if p.Required {
				return nil, NewValidationError("missing required argument: " + p.Name)
			}
			if p.Default != nil {
				out[p.Name] = p.Default
			} else {
				delete(out, p.Name)
			}
			continue
		}
		if !matchesType(p.Type, v) {
			return nil, NewValidationError(fmt.Sprintf("%s must be of type %s, got %T", p.Name, p.Type, v))
		}
	}
	return out, nil
}

func matchesType(typ string, v interface{}) bool {
	switch typ {
	case "", "any":
		return true
	case "string":
		_, ok := v.(string)
		return ok
	case "boolean":
		_, ok := v.(bool)
		return ok
	case "integer":
		switch n := v.(type) {
		case int, int32, int64:
			return true
		case float64:
			return n == math.Trunc(n)
		}
		return false
	case "number":
		switch v.(type) {
		case int, int32, int64, float32, float64:
			return true
		}
		return false
	case "array":
		switch v.(type) {
		case []interface{}, []string:
			return true
		}
		return false
	case "object":
		_, ok := v.(map[string]interface{})
		return ok
	default:
		return true
	}
}
