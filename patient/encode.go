package patient

import (
	"errors"
	"fmt"
	"regexp"
	"sort"
	"strconv"
	"strings"

	"golang.org/x/text/cases"
	"golang.org/x/text/unicode/norm"
)

var (
	ErrUnknownCategory = errors.New("unknown category")
	ErrUnknownField    = errors.New("unknown field")
)

// Validation error codes.
const (
	CodeMissing      = "REQUIRED_FIELD_MISSING"
	CodeUnknownField = "UNKNOWN_FIELD"
	CodeInvalidType  = "INVALID_TYPE"
	CodeOutOfRange   = "OUT_OF_RANGE"
	CodeNotInteger   = "NOT_INTEGER"
	CodeBadCategory  = "UNKNOWN_CATEGORY"
	CodeSchema       = "SCHEMA_VIOLATION"
)

// FieldError describes one rejected input value.
type FieldError struct {
	Field   string `json:"field"`
	Message string `json:"message"`
	Code    string `json:"code"`
}

func (e FieldError) Error() string {
	if e.Field == "" {
		return e.Message
	}
	return e.Field + ": " + e.Message
}

// ValidationErrors collects every problem found in one submission.
type ValidationErrors []FieldError

func (v ValidationErrors) Error() string {
	msgs := make([]string, len(v))
	for i, e := range v {
		msgs[i] = e.Error()
	}
	return "invalid patient record: " + strings.Join(msgs, "; ")
}

// ByField indexes the errors by column name, keeping the first per field.
func (v ValidationErrors) ByField() map[string]string {
	out := make(map[string]string, len(v))
	for _, e := range v {
		if _, ok := out[e.Field]; !ok {
			out[e.Field] = e.Message
		}
	}
	return out
}

var folder = cases.Fold()

// plainDecimal is what a number widget submits. It excludes the hex, infinity
// and underscore forms that strconv.ParseFloat also accepts.
var plainDecimal = regexp.MustCompile(`^[+-]?(\d+\.?\d*|\.\d+)$`)

// EncodeCategorical maps a label to its position in categories. Labels match
// exactly or, failing that, after NFC normalisation and case folding.
func EncodeCategorical(value string, categories []string) (int, error) {
	for i, c := range categories {
		if c == value {
			return i, nil
		}
	}
	want := canonical(value)
	for i, c := range categories {
		if canonical(c) == want {
			return i, nil
		}
	}
	return -1, fmt.Errorf("%w %q", ErrUnknownCategory, value)
}

func canonical(s string) string {
	s = strings.TrimSpace(norm.NFC.String(s))
	// Typographic apostrophes show up in pasted labels ("Bachelor’s").
	s = strings.ReplaceAll(s, "’", "'")
	return folder.String(s)
}

// Encode parses one human-readable value for a field.
func (f Field) Encode(raw string) (float64, *FieldError) {
	raw = strings.TrimSpace(raw)
	if f.Kind == KindCategorical {
		idx, err := EncodeCategorical(raw, f.Categories)
		if err != nil {
			return 0, &FieldError{Field: f.Name, Code: CodeBadCategory,
				Message: fmt.Sprintf("%q is not one of %s", raw, f.rangeText())}
		}
		return float64(idx), nil
	}
	if !plainDecimal.MatchString(raw) {
		return 0, &FieldError{Field: f.Name, Code: CodeInvalidType,
			Message: fmt.Sprintf("%q is not a number", raw)}
	}
	v, err := strconv.ParseFloat(raw, 64)
	if err != nil {
		return 0, &FieldError{Field: f.Name, Code: CodeInvalidType,
			Message: fmt.Sprintf("%q is not a number", raw)}
	}
	return f.check(v)
}

// check validates an already numeric value for the field.
func (f Field) check(v float64) (float64, *FieldError) {
	if v < f.Min || v > f.Max || v != v {
		return 0, &FieldError{Field: f.Name, Code: CodeOutOfRange,
			Message: fmt.Sprintf("%s is outside %s", formatFloat(v, -1), f.rangeText())}
	}
	if !f.InRange(v) {
		return 0, &FieldError{Field: f.Name, Code: CodeNotInteger,
			Message: fmt.Sprintf("%s must be a whole number", formatFloat(v, -1))}
	}
	return v, nil
}

// FromValues builds a record from human-readable values keyed by column
// name. With defaults set, absent fields take the widget default the way an
// untouched form would submit them; otherwise they are reported as missing.
func FromValues(values map[string]string, defaults bool) (Record, error) {
	var (
		r    Record
		errs ValidationErrors
	)
	slots := r.slots()
	for i, f := range fields {
		raw, ok := values[f.Name]
		if !ok || strings.TrimSpace(raw) == "" {
			if defaults {
				*slots[i] = f.Default
				continue
			}
			errs = append(errs, FieldError{Field: f.Name, Code: CodeMissing, Message: "required field missing"})
			continue
		}
		v, ferr := f.Encode(raw)
		if ferr != nil {
			errs = append(errs, *ferr)
			continue
		}
		*slots[i] = v
	}
	errs = append(errs, unknownFields(values)...)
	if len(errs) > 0 {
		return Record{}, errs
	}
	return r, nil
}

func unknownFields[V any](values map[string]V) ValidationErrors {
	var unknown []string
	for name := range values {
		if _, ok := fieldIndex[name]; !ok {
			unknown = append(unknown, name)
		}
	}
	sort.Strings(unknown)

	var errs ValidationErrors
	for _, name := range unknown {
		errs = append(errs, FieldError{Field: name, Code: CodeUnknownField, Message: ErrUnknownField.Error()})
	}
	return errs
}

// ParseAssignments turns "Field=Value" pairs into a value map.
func ParseAssignments(pairs []string) (map[string]string, error) {
	values := make(map[string]string, len(pairs))
	for _, pair := range pairs {
		name, value, ok := strings.Cut(pair, "=")
		name = strings.TrimSpace(name)
		if !ok || name == "" {
			return nil, fmt.Errorf("expected Field=Value, got %q", pair)
		}
		values[name] = value
	}
	return values, nil
}
