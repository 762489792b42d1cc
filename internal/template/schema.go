package template

import (
	"encoding/json"
	"fmt"
	"sort"
	"strconv"
	"strings"

	"github.com/getkin/kin-openapi/openapi3"
)

// ValidationError collects per-field problems found in submitted values
type ValidationError struct {
	Template string
	Fields   map[string]string
}

func (e *ValidationError) Error() string {
	names := make([]string, 0, len(e.Fields))
	for name := range e.Fields {
		names = append(names, name)
	}
	sort.Strings(names)

	parts := make([]string, 0, len(names))
	for _, name := range names {
		parts = append(parts, fmt.Sprintf("%s: %s", name, e.Fields[name]))
	}
	return fmt.Sprintf("invalid values for template %s: %s", e.Template, strings.Join(parts, "; "))
}

// Schema describes the flat name->value map accepted by the template as an
// OpenAPI object schema
func (t *Template) Schema() *openapi3.Schema {
	schema := openapi3.NewObjectSchema()
	for _, f := range t.Fields() {
		schema.WithProperty(f.Name, fieldSchema(f))
		if f.Required {
			schema.Required = append(schema.Required, f.Name)
		}
	}
	return schema
}

func fieldSchema(f Field) *openapi3.Schema {
	var s *openapi3.Schema
	switch f.Type {
	case FieldNumber:
		s = openapi3.NewFloat64Schema()
		if f.Validation != nil {
			if f.Validation.Min != nil {
				s.WithMin(*f.Validation.Min)
			}
			if f.Validation.Max != nil {
				s.WithMax(*f.Validation.Max)
			}
		}
	case FieldSelect:
		s = openapi3.NewStringSchema().WithEnum(optionValues(f.Options)...)
	case FieldMultiSelect:
		s = openapi3.NewArraySchema().WithItems(openapi3.NewStringSchema().WithEnum(optionValues(f.Options)...))
	case FieldFile:
		s = &openapi3.Schema{}
	default:
		s = openapi3.NewStringSchema()
		if f.Validation != nil && f.Validation.Pattern != "" {
			s.WithPattern(f.Validation.Pattern)
		}
	}
	s.Title = f.Label
	return s.WithNullable()
}

func optionValues(options []string) []interface{} {
	out := make([]interface{}, len(options))
	for i, o := range options {
		out[i] = o
	}
	return out
}

// ValidateValues checks a submitted value map against the template. With
// partial set, required fields may be absent (updates).
func (t *Template) ValidateValues(values map[string]any, partial bool) error {
	verr := &ValidationError{Template: t.ID, Fields: make(map[string]string)}

	normalized := make(map[string]interface{}, len(values))
	for _, f := range t.Fields() {
		raw, present := values[f.Name]
		if !present {
			if f.Required && !partial {
				verr.Fields[f.Name] = "is required"
			}
			continue
		}
		if isBlank(raw) {
			if f.Required {
				verr.Fields[f.Name] = "is required"
			}
			continue
		}
		v, err := normalizeForSchema(f, raw)
		if err != nil {
			verr.Fields[f.Name] = fieldMessage(f, err.Error())
			continue
		}
		normalized[f.Name] = v
	}

	schema := t.Schema()
	schema.Required = nil
	if err := schema.VisitJSON(normalized, openapi3.MultiErrors()); err != nil {
		collectSchemaErrors(t, err, verr)
	}

	if len(verr.Fields) > 0 {
		return verr
	}
	return nil
}

func collectSchemaErrors(t *Template, err error, verr *ValidationError) {
	switch e := err.(type) {
	case openapi3.MultiError:
		for _, inner := range e {
			collectSchemaErrors(t, inner, verr)
		}
		return
	case *openapi3.SchemaError:
		pointer := e.JSONPointer()
		if len(pointer) > 0 {
			name := pointer[0]
			if f, ok := t.Field(name); ok {
				verr.Fields[name] = fieldMessage(f, e.Reason)
				return
			}
			verr.Fields[name] = e.Reason
			return
		}
	}
	verr.Fields["_"] = err.Error()
}

func fieldMessage(f Field, reason string) string {
	if f.Validation != nil && f.Validation.Message != "" {
		return f.Validation.Message
	}
	return reason
}

func isBlank(v any) bool {
	switch x := v.(type) {
	case nil:
		return true
	case string:
		return strings.TrimSpace(x) == ""
	case []any:
		return len(x) == 0
	case []string:
		return len(x) == 0
	}
	return false
}

// normalizeForSchema converts Go values into the JSON shapes the schema
// validator understands
func normalizeForSchema(f Field, raw any) (interface{}, error) {
	switch f.Type {
	case FieldNumber:
		n, ok := ToFloat(raw)
		if !ok {
			return nil, fmt.Errorf("must be a number")
		}
		return n, nil
	case FieldDate:
		s, ok := raw.(string)
		if !ok {
			return nil, fmt.Errorf("must be a date string")
		}
		if _, ok := ParseDate(s); !ok {
			return nil, fmt.Errorf("invalid date %q", s)
		}
		return s, nil
	case FieldSelect:
		return ToOptionString(raw), nil
	case FieldMultiSelect:
		list := ToStringList(raw)
		out := make([]interface{}, len(list))
		for i, s := range list {
			out[i] = s
		}
		return out, nil
	case FieldFile:
		return raw, nil
	default:
		return ToOptionString(raw), nil
	}
}

// ToFloat converts numeric values and numeric strings to float64
func ToFloat(v any) (float64, bool) {
	switch x := v.(type) {
	case float64:
		return x, true
	case float32:
		return float64(x), true
	case int:
		return float64(x), true
	case int32:
		return float64(x), true
	case int64:
		return float64(x), true
	case uint:
		return float64(x), true
	case json.Number:
		f, err := x.Float64()
		return f, err == nil
	case string:
		f, err := strconv.ParseFloat(strings.TrimSpace(x), 64)
		return f, err == nil
	}
	return 0, false
}

// ToOptionString renders scalars the way option sets spell them, so a
// submitted 1.5 matches the option "1.5"
func ToOptionString(v any) string {
	switch x := v.(type) {
	case nil:
		return ""
	case string:
		return strings.TrimSpace(x)
	case bool:
		return strconv.FormatBool(x)
	}
	if f, ok := ToFloat(v); ok {
		return strconv.FormatFloat(f, 'f', -1, 64)
	}
	return fmt.Sprint(v)
}

// ToStringList accepts a single scalar or a list and returns option strings
func ToStringList(v any) []string {
	switch x := v.(type) {
	case nil:
		return nil
	case []string:
		out := make([]string, 0, len(x))
		for _, s := range x {
			if s = strings.TrimSpace(s); s != "" {
				out = append(out, s)
			}
		}
		return out
	case []any:
		out := make([]string, 0, len(x))
		for _, item := range x {
			if s := ToOptionString(item); s != "" {
				out = append(out, s)
			}
		}
		return out
	}
	if s := ToOptionString(v); s != "" {
		return []string{s}
	}
	return nil
}
