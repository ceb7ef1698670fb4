package config

import (
	"bytes"
	"fmt"
	"os"
	"reflect"
	"strings"
	"sync"
	"time"

	"github.com/go-playground/validator/v10"
	"gopkg.in/yaml.v3"

	"github.com/tombee/apirun/internal/credentials"
	"github.com/tombee/apirun/internal/pagination"
	apierrors "github.com/tombee/apirun/pkg/errors"
)

// Integration is one API integration file: a request script, the host it
// is expected to call and how it paginates.
type Integration struct {
	Name        string             `yaml:"name" validate:"required,max=128"`
	Description string             `yaml:"description,omitempty"`
	Host        string             `yaml:"host,omitempty" validate:"omitempty,max=253"`
	Script      string             `yaml:"script" validate:"required"`
	Pagination  *pagination.Config `yaml:"pagination,omitempty"`

	// Input holds default input values. Values given at run time win.
	Input map[string]any `yaml:"input,omitempty"`

	// Credentials maps credential names to references such as
	// env:GITHUB_TOKEN. Literal secrets are rejected.
	Credentials map[string]string `yaml:"credentials,omitempty"`

	// MaxIterations and Timeout tighten the global run settings.
	MaxIterations int           `yaml:"maxIterations,omitempty" validate:"gte=0"`
	Timeout       time.Duration `yaml:"timeout,omitempty" validate:"gte=0"`
}

var (
	validatorOnce sync.Once
	validateInst  *validator.Validate
)

func validatorInstance() *validator.Validate {
	validatorOnce.Do(func() {
		v := validator.New(validator.WithRequiredStructEnabled())
		v.RegisterTagNameFunc(func(fld reflect.StructField) string {
			name := strings.SplitN(fld.Tag.Get("yaml"), ",", 2)[0]
			if name == "-" {
				return ""
			}
			return name
		})
		validateInst = v
	})
	return validateInst
}

// LoadIntegration reads and validates an integration file.
func LoadIntegration(path string) (*Integration, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, &apierrors.ConfigError{
			Key:    "integration",
			Reason: fmt.Sprintf("failed to read %s", path),
			Cause:  err,
		}
	}
	return ParseIntegration(data)
}

// ParseIntegration decodes YAML and validates the result. Unknown keys are
// rejected so typos such as stopCondtion surface immediately.
func ParseIntegration(data []byte) (*Integration, error) {
	var in Integration
	dec := yaml.NewDecoder(bytes.NewReader(data))
	dec.KnownFields(true)
	if err := dec.Decode(&in); err != nil {
		var ve *apierrors.ValidationError
		if apierrors.As(err, &ve) {
			return nil, ve
		}
		return nil, &apierrors.ValidationError{
			Field:   "integration",
			Message: fmt.Sprintf("invalid integration YAML: %v", err),
			Cause:   err,
		}
	}
	if err := in.Validate(); err != nil {
		return nil, err
	}
	return &in, nil
}

// Validate checks required fields and the pagination block.
func (in *Integration) Validate() error {
	if err := validatorInstance().Struct(in); err != nil {
		if ves, ok := err.(validator.ValidationErrors); ok {
			return toValidationError(ves[0])
		}
		return &apierrors.ValidationError{Field: "integration", Message: err.Error(), Cause: err}
	}
	if strings.TrimSpace(in.Script) == "" {
		return &apierrors.ValidationError{Field: "script", Message: "script is required"}
	}
	if err := in.Pagination.Validate(); err != nil {
		return err
	}
	refs := credentials.NewDefaultRegistry(credentials.Options{})
	for name, ref := range in.Credentials {
		if !refs.IsReference(ref) {
			return &apierrors.ValidationError{
				Field:      "credentials." + name,
				Message:    "must be a reference, not a literal secret",
				Suggestion: fmt.Sprintf("use one of %s, for example env:%s", strings.Join(refs.Schemes(), ", "), strings.ToUpper(name)),
			}
		}
	}
	if p := in.Pagination; p != nil && !p.Enabled() && (p.Handler != "" || p.StopCondition != "") {
		return &apierrors.ValidationError{
			Field:      "pagination.type",
			Message:    "handler and stopCondition require a pagination type",
			Suggestion: "set type to pageBased, offsetBased or cursorBased",
		}
	}
	return nil
}

func toValidationError(fe validator.FieldError) *apierrors.ValidationError {
	field := fe.Namespace()
	if i := strings.Index(field, "."); i >= 0 {
		field = field[i+1:]
	}
	var msg string
	switch fe.Tag() {
	case "required":
		msg = fmt.Sprintf("%s is required", field)
	case "max":
		msg = fmt.Sprintf("%s must be at most %s characters", field, fe.Param())
	case "gte":
		msg = fmt.Sprintf("%s must not be negative", field)
	default:
		msg = fmt.Sprintf("%s failed %s validation", field, fe.Tag())
	}
	return &apierrors.ValidationError{Field: field, Message: msg}
}

// RunOptions merges the integration's limits with the global settings. The
// smaller non-zero value wins.
func (in *Integration) RunOptions(s *Settings) pagination.Options {
	opts := pagination.Options{
		MaxIterations: s.Run.MaxIterations,
		Timeout:       s.Run.Timeout,
	}
	if in.MaxIterations > 0 && (opts.MaxIterations == 0 || in.MaxIterations < opts.MaxIterations) {
		opts.MaxIterations = in.MaxIterations
	}
	if in.Timeout > 0 && (opts.Timeout == 0 || in.Timeout < opts.Timeout) {
		opts.Timeout = in.Timeout
	}
	return opts
}

// MergeCredentials overlays runtime credentials on the integration's
// references. The result still holds unresolved references.
func (in *Integration) MergeCredentials(runtime map[string]any) map[string]any {
	out := make(map[string]any, len(in.Credentials)+len(runtime))
	for k, v := range in.Credentials {
		out[k] = v
	}
	for k, v := range runtime {
		out[k] = v
	}
	return out
}

// MergeInput overlays runtime input on the integration defaults.
func (in *Integration) MergeInput(runtime map[string]any) map[string]any {
	out := make(map[string]any, len(in.Input)+len(runtime))
	for k, v := range in.Input {
		out[k] = v
	}
	for k, v := range runtime {
		out[k] = v
	}
	return out
}
