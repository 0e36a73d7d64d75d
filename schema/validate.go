package schema

import (
	"fmt"
	"reflect"
	"strings"

	ijson "github.com/spindleworks/spindle/internal/json"
)

// Issue is one field-level validation finding.
type Issue struct {
	Path    string
	Message string
}

func (i Issue) String() string {
	if i.Path == "" {
		return i.Message
	}
	return i.Path + ": " + i.Message
}

// ValidationError reports a structural mismatch between a value and a
// schema, carrying the individual field issues for diagnostics.
type ValidationError struct {
	Issues []Issue
}

func (e *ValidationError) Error() string {
	if len(e.Issues) == 0 {
		return "validation failed"
	}
	parts := make([]string, len(e.Issues))
	for i, issue := range e.Issues {
		parts[i] = issue.String()
	}
	return "validation failed: " + strings.Join(parts, "; ")
}

// ParseError reports text that had to be parsed as JSON but could not be.
type ParseError struct {
	Err error
}

func (e *ParseError) Error() string {
	return fmt.Sprintf("response is not parseable JSON: %v", e.Err)
}

func (e *ParseError) Unwrap() error {
	return e.Err
}

// Validate structurally validates a value against a schema. On success
// it returns the value with numbers normalized to float64; on failure
// it returns a *ValidationError listing every field issue found.
func Validate(s *Schema, value any) (any, error) {
	var issues []Issue
	result := validate(s, value, "", &issues)
	if len(issues) > 0 {
		return nil, &ValidationError{Issues: issues}
	}
	return result, nil
}

// ValidateResponse validates model output text against a schema in two
// phases: first the raw string itself (a valid answer may legitimately
// be a bare string when the schema admits one), then, if that fails,
// the text parsed as a JSON document. Parse failure when parsing was
// required yields a *ParseError; structural mismatch after a successful
// parse yields a *ValidationError.
func ValidateResponse(s *Schema, text string) (any, error) {
	if direct, err := Validate(s, text); err == nil {
		return direct, nil
	}

	parsed, parseErr := ijson.Parse(text)
	if parseErr != nil {
		return nil, &ParseError{Err: parseErr}
	}

	return Validate(s, parsed)
}

func validate(s *Schema, value any, path string, issues *[]Issue) any {
	if s == nil {
		return value
	}

	switch s.Kind {
	case KindAny:
		return value

	case KindString:
		str, ok := value.(string)
		if !ok {
			addIssue(issues, path, "expected string, got %s", typeName(value))
			return nil
		}
		return str

	case KindNumber:
		num, ok := asNumber(value)
		if !ok {
			addIssue(issues, path, "expected number, got %s", typeName(value))
			return nil
		}
		return num

	case KindBoolean:
		b, ok := value.(bool)
		if !ok {
			addIssue(issues, path, "expected boolean, got %s", typeName(value))
			return nil
		}
		return b

	case KindArray:
		items, ok := value.([]any)
		if !ok {
			addIssue(issues, path, "expected array, got %s", typeName(value))
			return nil
		}
		result := make([]any, len(items))
		for i, item := range items {
			result[i] = validate(s.Elem, item, fmt.Sprintf("%s[%d]", path, i), issues)
		}
		return result

	case KindObject:
		obj, ok := value.(map[string]any)
		if !ok {
			addIssue(issues, path, "expected object, got %s", typeName(value))
			return nil
		}
		result := make(map[string]any, len(obj))
		// Unknown keys pass through untouched
		for k, v := range obj {
			result[k] = v
		}
		for _, f := range s.Fields {
			fieldPath := joinPath(path, f.Name)
			fv, present := obj[f.Name]
			if !present || fv == nil {
				if f.Schema.IsOptional() {
					delete(result, f.Name)
					continue
				}
				addIssue(issues, fieldPath, "required field missing")
				continue
			}
			result[f.Name] = validate(f.Schema, fv, fieldPath, issues)
		}
		return result

	case KindEnum:
		str, ok := value.(string)
		if !ok {
			addIssue(issues, path, "expected one of %v, got %s", s.Values, typeName(value))
			return nil
		}
		for _, v := range s.Values {
			if str == v {
				return str
			}
		}
		addIssue(issues, path, "value %q is not one of %v", str, s.Values)
		return nil

	case KindOptional:
		if value == nil {
			return nil
		}
		return validate(s.Elem, value, path, issues)

	case KindUnion:
		for _, variant := range s.Variants {
			var variantIssues []Issue
			result := validate(variant, value, path, &variantIssues)
			if len(variantIssues) == 0 {
				return result
			}
		}
		addIssue(issues, path, "value matches no union variant")
		return nil

	case KindLiteral:
		if literalEqual(s.Value, value) {
			return value
		}
		addIssue(issues, path, "expected literal %v, got %v", s.Value, value)
		return nil

	default:
		// Unsupported kinds accept anything, mirroring the wire fallback
		return value
	}
}

func addIssue(issues *[]Issue, path, format string, args ...any) {
	*issues = append(*issues, Issue{Path: path, Message: fmt.Sprintf(format, args...)})
}

func joinPath(path, field string) string {
	if path == "" {
		return field
	}
	return path + "." + field
}

// asNumber normalizes any Go numeric type to float64. JSON decoding
// yields float64, but handlers and tests hand in native ints too.
func asNumber(value any) (float64, bool) {
	switch v := value.(type) {
	case float64:
		return v, true
	case float32:
		return float64(v), true
	case int:
		return float64(v), true
	case int32:
		return float64(v), true
	case int64:
		return float64(v), true
	case uint32:
		return float64(v), true
	case uint64:
		return float64(v), true
	default:
		return 0, false
	}
}

func literalEqual(want, got any) bool {
	if wn, ok := asNumber(want); ok {
		gn, ok := asNumber(got)
		return ok && wn == gn
	}
	return reflect.DeepEqual(want, got)
}

func typeName(value any) string {
	if value == nil {
		return "null"
	}
	switch value.(type) {
	case string:
		return "string"
	case bool:
		return "boolean"
	case float64, float32, int, int32, int64, uint32, uint64:
		return "number"
	case []any:
		return "array"
	case map[string]any:
		return "object"
	default:
		return reflect.TypeOf(value).String()
	}
}
