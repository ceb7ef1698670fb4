package pagination

import (
	"encoding/json"
	"fmt"
	"strconv"
	"strings"

	apierrors "github.com/tombee/apirun/pkg/errors"
)

// Type is the addressing mode of a pagination config.
type Type string

const (
	TypePageBased   Type = "pageBased"
	TypeOffsetBased Type = "offsetBased"
	TypeCursorBased Type = "cursorBased"
	TypeDisabled    Type = "disabled"
)

// DefaultPageSize is used when a paginated config does not set pageSize.
const DefaultPageSize = 50

// ParseType accepts the camelCase and UPPER_SNAKE spellings. An empty
// string means disabled.
func ParseType(s string) (Type, error) {
	key := strings.ToLower(strings.NewReplacer("_", "", "-", "", " ", "").Replace(strings.TrimSpace(s)))
	switch key {
	case "", "disabled", "none":
		return TypeDisabled, nil
	case "pagebased", "page":
		return TypePageBased, nil
	case "offsetbased", "offset":
		return TypeOffsetBased, nil
	case "cursorbased", "cursor":
		return TypeCursorBased, nil
	default:
		return "", &apierrors.ValidationError{
			Field:      "pagination.type",
			Message:    fmt.Sprintf("unknown pagination type %q", s),
			Suggestion: "use pageBased, offsetBased, cursorBased or disabled",
		}
	}
}

// UnmarshalJSON implements json.Unmarshaler.
func (t *Type) UnmarshalJSON(data []byte) error {
	var s string
	if err := json.Unmarshal(data, &s); err != nil {
		return err
	}
	parsed, err := ParseType(s)
	if err != nil {
		return err
	}
	*t = parsed
	return nil
}

// UnmarshalYAML implements yaml.Unmarshaler.
func (t *Type) UnmarshalYAML(unmarshal func(interface{}) error) error {
	var s string
	if err := unmarshal(&s); err != nil {
		return err
	}
	parsed, err := ParseType(s)
	if err != nil {
		return err
	}
	*t = parsed
	return nil
}

// PageSize decodes from a number or a numeric string.
type PageSize int

// UnmarshalJSON implements json.Unmarshaler.
func (p *PageSize) UnmarshalJSON(data []byte) error {
	var v any
	if err := json.Unmarshal(data, &v); err != nil {
		return err
	}
	return p.set(v)
}

// UnmarshalYAML implements yaml.Unmarshaler.
func (p *PageSize) UnmarshalYAML(unmarshal func(interface{}) error) error {
	var v any
	if err := unmarshal(&v); err != nil {
		return err
	}
	return p.set(v)
}

func (p *PageSize) set(v any) error {
	var n int
	switch val := v.(type) {
	case nil:
		n = 0
	case int:
		n = val
	case float64:
		n = int(val)
	case string:
		if strings.TrimSpace(val) == "" {
			n = 0
			break
		}
		parsed, err := strconv.Atoi(strings.TrimSpace(val))
		if err != nil {
			return &apierrors.ValidationError{Field: "pagination.pageSize", Message: fmt.Sprintf("%q is not a number", val)}
		}
		n = parsed
	default:
		return &apierrors.ValidationError{Field: "pagination.pageSize", Message: fmt.Sprintf("unsupported value %v", v)}
	}
	if n < 0 {
		return &apierrors.ValidationError{Field: "pagination.pageSize", Message: "must not be negative"}
	}
	*p = PageSize(n)
	return nil
}

// Config declares how a request script is paginated.
type Config struct {
	Type          Type     `json:"type" yaml:"type"`
	PageSize      PageSize `json:"pageSize,omitempty" yaml:"pageSize,omitempty"`
	Handler       string   `json:"handler,omitempty" yaml:"handler,omitempty"`
	StopCondition string   `json:"stopCondition,omitempty" yaml:"stopCondition,omitempty"`
	CursorPath    string   `json:"cursorPath,omitempty" yaml:"cursorPath,omitempty"`
}

// Enabled reports whether the config asks for more than one request.
func (c *Config) Enabled() bool {
	return c != nil && c.Type != "" && c.Type != TypeDisabled
}

// EffectivePageSize returns the configured page size or DefaultPageSize.
func (c *Config) EffectivePageSize() int {
	if c == nil || c.PageSize <= 0 {
		return DefaultPageSize
	}
	return int(c.PageSize)
}

// Validate checks that the type is one ParseType accepts.
func (c *Config) Validate() error {
	if c == nil {
		return nil
	}
	if _, err := ParseType(string(c.Type)); err != nil {
		return err
	}
	return nil
}

// Normalized returns a copy of c with Type in its canonical camelCase form,
// so configs built in Go with spellings such as "PAGE_BASED" behave like
// decoded ones. A nil config is disabled.
func (c *Config) Normalized() (*Config, error) {
	if c == nil {
		return &Config{Type: TypeDisabled}, nil
	}
	t, err := ParseType(string(c.Type))
	if err != nil {
		return nil, err
	}
	normalized := *c
	normalized.Type = t
	return &normalized, nil
}
