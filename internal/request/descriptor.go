package request

import (
	"encoding/json"
	"fmt"
	"strings"
	"sync"

	"github.com/go-playground/validator/v10"

	apierrors "github.com/tombee/apirun/pkg/errors"
)

// Descriptor is a fully built request. URL and Method are always non-empty
// on a descriptor returned by this package.
type Descriptor struct {
	URL     string            `json:"url" validate:"required"`
	Method  string            `json:"method" validate:"required"`
	Headers map[string]string `json:"headers,omitempty"`
	Body    any               `json:"body,omitempty"`
	Query   map[string]any    `json:"query,omitempty"`
}

var (
	validatorOnce sync.Once
	validateInst  *validator.Validate
)

func validatorInstance() *validator.Validate {
	validatorOnce.Do(func() {
		validateInst = validator.New(validator.WithRequiredStructEnabled())
	})
	return validateInst
}

// rawDescriptor accepts loosely typed script output.
type rawDescriptor struct {
	URL     any            `json:"url"`
	Method  any            `json:"method"`
	Headers map[string]any `json:"headers"`
	Body    any            `json:"body"`
	Query   map[string]any `json:"query"`
	Params  map[string]any `json:"params"`
	Data    any            `json:"data"`
}

// DecodeDescriptor converts the JSON result of a request script into a
// validated Descriptor. params and data are accepted as aliases of query
// and body. Header values are stringified.
func DecodeDescriptor(raw []byte) (*Descriptor, error) {
	var probe any
	if err := json.Unmarshal(raw, &probe); err != nil {
		return nil, &apierrors.ValidationError{
			Field:   "request",
			Message: "request script result is not valid JSON",
			Cause:   err,
		}
	}
	if _, ok := probe.(map[string]any); !ok {
		return nil, &apierrors.ValidationError{
			Field:      "request",
			Message:    fmt.Sprintf("request script must return an object, got %s", kindOf(probe)),
			Suggestion: `return an object such as {url: "https://...", method: "GET"}`,
		}
	}

	var r rawDescriptor
	if err := json.Unmarshal(raw, &r); err != nil {
		return nil, &apierrors.ValidationError{
			Field:   "request",
			Message: "request script result has the wrong shape",
			Cause:   err,
		}
	}

	d := &Descriptor{
		URL:    strings.TrimSpace(scalarString(r.URL)),
		Method: strings.ToUpper(strings.TrimSpace(scalarString(r.Method))),
		Body:   r.Body,
		Query:  r.Query,
	}
	if d.Body == nil {
		d.Body = r.Data
	}
	if d.Query == nil {
		d.Query = r.Params
	}
	if len(r.Headers) > 0 {
		d.Headers = make(map[string]string, len(r.Headers))
		for k, v := range r.Headers {
			if v == nil {
				continue
			}
			d.Headers[k] = scalarString(v)
		}
	}

	if err := d.Validate(); err != nil {
		return nil, err
	}
	return d, nil
}

// Validate checks that url and method are present.
func (d *Descriptor) Validate() error {
	err := validatorInstance().Struct(d)
	if err == nil {
		return nil
	}
	if ves, ok := err.(validator.ValidationErrors); ok {
		fe := ves[0]
		field := strings.ToLower(fe.Field())
		return &apierrors.ValidationError{
			Field:      field,
			Message:    fmt.Sprintf("request descriptor is missing %s", field),
			Suggestion: "the request script must return both url and method",
			Cause:      err,
		}
	}
	return &apierrors.ValidationError{Field: "request", Message: err.Error(), Cause: err}
}

func scalarString(v any) string {
	switch val := v.(type) {
	case nil:
		return ""
	case string:
		return val
	case float64:
		if val == float64(int64(val)) {
			return fmt.Sprintf("%d", int64(val))
		}
		return fmt.Sprintf("%g", val)
	default:
		return fmt.Sprintf("%v", val)
	}
}

func kindOf(v any) string {
	switch v.(type) {
	case nil:
		return "null"
	case []any:
		return "array"
	case string:
		return "string"
	case float64:
		return "number"
	case bool:
		return "boolean"
	default:
		return fmt.Sprintf("%T", v)
	}
}
