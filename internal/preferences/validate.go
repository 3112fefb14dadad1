package preferences

import (
	"encoding/json"
	"fmt"
	"sort"
	"strings"

	"github.com/af-corp/aegis-modelplan/internal/planconfig"
	"github.com/af-corp/aegis-modelplan/internal/types"
)

// FieldError is one validation failure. Path is dotted, e.g.
// "oracle.fallback2"; the empty path refers to the payload itself.
type FieldError struct {
	Path    string `json:"path"`
	Message string `json:"message"`
}

// Validator checks an untyped manual plan payload.
type Validator interface {
	Validate(raw any) (planconfig.ManualPlan, []FieldError)
}

// SchemaValidator requires an object with every role, each holding
// non-empty "provider/model" strings for primary and fallback1..3.
type SchemaValidator struct{}

var planFields = []string{"primary", "fallback1", "fallback2", "fallback3"}

func (SchemaValidator) Validate(raw any) (planconfig.ManualPlan, []FieldError) {
	obj, errs := asObject(raw, "")
	if errs != nil {
		return nil, errs
	}

	plan := make(planconfig.ManualPlan, len(types.Roles()))
	for _, role := range types.Roles() {
		name := string(role)
		v, ok := obj[name]
		if !ok {
			errs = append(errs, FieldError{Path: name, Message: "required"})
			continue
		}
		entry, entryErrs := validateAgentPlan(name, v)
		errs = append(errs, entryErrs...)
		if len(entryErrs) == 0 {
			plan[role] = entry
		}
	}

	var unknown []string
	for key := range obj {
		if !types.Role(key).Valid() {
			unknown = append(unknown, key)
		}
	}
	sort.Strings(unknown)
	for _, key := range unknown {
		errs = append(errs, FieldError{
			Path:    key,
			Message: "unknown agent; expected one of: " + strings.Join(types.RoleNames(), ", "),
		})
	}

	if len(errs) > 0 {
		return nil, errs
	}
	return plan, nil
}

func validateAgentPlan(path string, raw any) (planconfig.ManualAgentPlan, []FieldError) {
	obj, errs := asObject(raw, path)
	if errs != nil {
		return planconfig.ManualAgentPlan{}, errs
	}

	values := make([]string, len(planFields))
	for i, field := range planFields {
		fieldPath := path + "." + field
		v, ok := obj[field]
		if !ok {
			errs = append(errs, FieldError{Path: fieldPath, Message: "required"})
			continue
		}
		s, ok := v.(string)
		if !ok {
			errs = append(errs, FieldError{Path: fieldPath, Message: fmt.Sprintf("expected string, got %s", typeName(v))})
			continue
		}
		s = strings.TrimSpace(s)
		if s == "" {
			errs = append(errs, FieldError{Path: fieldPath, Message: "must not be empty"})
			continue
		}
		if _, _, ok := types.SplitModelID(s); !ok {
			errs = append(errs, FieldError{Path: fieldPath, Message: fmt.Sprintf("expected provider/model, got %q", s)})
			continue
		}
		values[i] = s
	}
	return planconfig.ManualAgentPlan{
		Primary:   values[0],
		Fallback1: values[1],
		Fallback2: values[2],
		Fallback3: values[3],
	}, errs
}

// asObject accepts a decoded JSON object, or a string or raw message that
// holds one.
func asObject(raw any, path string) (map[string]any, []FieldError) {
	switch v := raw.(type) {
	case map[string]any:
		return v, nil
	case json.RawMessage:
		return decodeObject([]byte(v), path)
	case []byte:
		return decodeObject(v, path)
	case string:
		if strings.HasPrefix(strings.TrimSpace(v), "{") {
			return decodeObject([]byte(v), path)
		}
	}
	return nil, []FieldError{{Path: path, Message: fmt.Sprintf("expected object, got %s", typeName(raw))}}
}

func decodeObject(data []byte, path string) (map[string]any, []FieldError) {
	var obj map[string]any
	if err := json.Unmarshal(data, &obj); err != nil || obj == nil {
		msg := "expected object"
		if err != nil {
			msg = "invalid JSON: " + err.Error()
		}
		return nil, []FieldError{{Path: path, Message: msg}}
	}
	return obj, nil
}

func typeName(v any) string {
	switch v.(type) {
	case nil:
		return "null"
	case string:
		return "string"
	case bool:
		return "boolean"
	case float64, int, int64, json.Number:
		return "number"
	case []any:
		return "array"
	case map[string]any:
		return "object"
	default:
		return fmt.Sprintf("%T", v)
	}
}
