package patient

import (
	"encoding/json"
	"fmt"
	"strings"

	"github.com/xeipuuv/gojsonschema"
)

// Schema returns the JSON Schema (draft-07) for a prediction payload.
// Categorical fields take either their label or their integer code.
func Schema() map[string]interface{} {
	properties := make(map[string]interface{}, len(fields))
	required := make([]string, 0, len(fields))
	for _, f := range fields {
		properties[f.Name] = f.schema()
		required = append(required, f.Name)
	}
	return map[string]interface{}{
		"$schema":              "http://json-schema.org/draft-07/schema#",
		"title":                "Patient feature record",
		"type":                 "object",
		"properties":           properties,
		"required":             required,
		"additionalProperties": false,
	}
}

func (f Field) schema() map[string]interface{} {
	switch f.Kind {
	case KindCategorical:
		enum := make([]interface{}, len(f.Categories))
		for i, c := range f.Categories {
			enum[i] = c
		}
		return map[string]interface{}{
			"description": f.Label,
			"anyOf": []interface{}{
				map[string]interface{}{"type": "string", "enum": enum},
				map[string]interface{}{"type": "integer", "minimum": 0, "maximum": len(f.Categories) - 1},
			},
		}
	case KindInteger:
		return map[string]interface{}{
			"description": f.Label,
			"type":        "integer",
			"minimum":     f.Min,
			"maximum":     f.Max,
			"default":     f.Default,
		}
	default:
		return map[string]interface{}{
			"description": f.Label,
			"type":        "number",
			"minimum":     f.Min,
			"maximum":     f.Max,
			"default":     f.Default,
		}
	}
}

var schemaLoader = gojsonschema.NewGoLoader(Schema())

// FromJSON validates a decoded JSON payload against Schema and encodes it.
// Category labels are canonicalised first so "female" is accepted as "Female".
func FromJSON(payload map[string]interface{}) (Record, error) {
	normalised := make(map[string]interface{}, len(payload))
	for name, value := range payload {
		normalised[name] = canonicalLabel(name, value)
	}

	result, err := gojsonschema.Validate(schemaLoader, gojsonschema.NewGoLoader(normalised))
	if err != nil {
		return Record{}, fmt.Errorf("schema validation: %w", err)
	}
	if !result.Valid() {
		errs := make(ValidationErrors, 0, len(result.Errors()))
		for _, desc := range result.Errors() {
			errs = append(errs, schemaError(desc))
		}
		return Record{}, errs
	}

	var r Record
	slots := r.slots()
	for i, f := range fields {
		v, ferr := f.encodeJSON(normalised[f.Name])
		if ferr != nil {
			return Record{}, ValidationErrors{*ferr}
		}
		*slots[i] = v
	}
	return r, nil
}

// DecodeJSON reads a JSON object and encodes it with FromJSON.
func DecodeJSON(data []byte) (Record, error) {
	var payload map[string]interface{}
	if err := json.Unmarshal(data, &payload); err != nil {
		return Record{}, ValidationErrors{{Code: CodeInvalidType, Message: "body must be a JSON object: " + err.Error()}}
	}
	return FromJSON(payload)
}

func canonicalLabel(name string, value interface{}) interface{} {
	f, ok := Lookup(name)
	if !ok || f.Kind != KindCategorical {
		return value
	}
	s, ok := value.(string)
	if !ok {
		return value
	}
	idx, err := EncodeCategorical(s, f.Categories)
	if err != nil {
		return value
	}
	return f.Categories[idx]
}

func (f Field) encodeJSON(value interface{}) (float64, *FieldError) {
	switch v := value.(type) {
	case string:
		return f.Encode(v)
	case float64:
		return f.check(v)
	case json.Number:
		n, err := v.Float64()
		if err != nil {
			return 0, &FieldError{Field: f.Name, Code: CodeInvalidType, Message: err.Error()}
		}
		return f.check(n)
	case int:
		return f.check(float64(v))
	default:
		return 0, &FieldError{Field: f.Name, Code: CodeInvalidType, Message: fmt.Sprintf("unsupported value %v", value)}
	}
}

func schemaError(desc gojsonschema.ResultError) FieldError {
	field := desc.Field()
	if field == "(root)" {
		field = ""
		if name, ok := desc.Details()["property"].(string); ok {
			field = name
		}
	}
	code := CodeSchema
	switch desc.Type() {
	case "required":
		code = CodeMissing
	case "additional_property_not_allowed":
		code = CodeUnknownField
	case "number_gte", "number_lte":
		code = CodeOutOfRange
	case "invalid_type":
		code = CodeInvalidType
	case "number_any_of":
		code = CodeBadCategory
	}
	return FieldError{Field: strings.TrimPrefix(field, "(root)."), Message: desc.Description(), Code: code}
}
