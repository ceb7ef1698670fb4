package request

import (
	"context"
	"encoding/json"
	"errors"
	"log/slog"

	"github.com/tombee/apirun/internal/log"
	"github.com/tombee/apirun/internal/sandbox"
	apierrors "github.com/tombee/apirun/pkg/errors"
	"github.com/tombee/apirun/pkg/secrets"
)

// PhaseRequest names the request-building phase in script errors.
const PhaseRequest = "request"

// BuildOptions tunes one Build call.
type BuildOptions struct {
	// Limits overrides the sandbox limits. The zero value selects
	// sandbox.RequestLimits.
	Limits sandbox.Limits
}

// Builder turns request scripts into descriptors. It is safe for concurrent
// use; every Build evaluates in a fresh sandbox.
type Builder struct {
	runner *sandbox.Runner
	logger *slog.Logger
}

// NewBuilder creates a Builder backed by runner.
func NewBuilder(runner *sandbox.Runner, logger *slog.Logger) *Builder {
	return &Builder{
		runner: runner,
		logger: log.WithComponent(logger, "request"),
	}
}

// Build evaluates script against ec and returns the validated descriptor.
//
// The script sees the flattened context (see ExecutionContext.Vars), bound
// both at top level and as sourceData. A sandbox failure is returned as a
// *errors.ScriptError whose message, context dump and script are masked. A
// result without url or method is a *errors.ValidationError.
func (b *Builder) Build(ctx context.Context, script string, ec *ExecutionContext, opts BuildOptions) (*Descriptor, error) {
	if ec == nil {
		ec = &ExecutionContext{}
	}
	limits := opts.Limits
	if limits.Tier == "" {
		limits = sandbox.RequestLimits()
	}

	out, err := b.runner.Call(ctx, script, limits, sandbox.Arg{Name: "sourceData", Value: ec.Vars()})
	if err != nil {
		return nil, b.scriptFailure(script, ec, err)
	}

	d, err := DecodeDescriptor(out)
	if err != nil {
		masker := secrets.NewStrictMasker(ec.Credentials)
		var ve *apierrors.ValidationError
		if errors.As(err, &ve) {
			ve.Message = masker.Mask(ve.Message)
		}
		b.logger.Debug("request script returned an invalid descriptor",
			slog.String("result", masker.MaskJSON(string(out))),
			log.Error(err))
		return nil, err
	}

	log.Trace(b.logger, "request built",
		slog.String("method", d.Method),
		slog.String("url", secrets.NewMasker(ec.Credentials).Mask(d.URL)))
	return d, nil
}

// scriptFailure wraps a sandbox error with a masked dump of the context and
// the masked script text.
func (b *Builder) scriptFailure(script string, ec *ExecutionContext, err error) error {
	masker := secrets.NewStrictMasker(ec.Credentials)

	wrapped := &apierrors.ScriptError{
		Phase:   PhaseRequest,
		Message: masker.Mask(err.Error()),
		Script:  masker.Mask(script),
		Context: MaskedDump(ec),
	}
	var scriptErr *apierrors.ScriptError
	if errors.As(err, &scriptErr) {
		wrapped.Reason = scriptErr.Reason
		wrapped.Message = masker.Mask(scriptErr.Message)
		// The cause keeps errors.Is working for context errors without
		// carrying the raw interpreter message.
		wrapped.Cause = scriptErr.Cause
		if wrapped.Cause != nil && !isContextError(wrapped.Cause) {
			wrapped.Cause = errors.New(masker.Mask(wrapped.Cause.Error()))
		}
	}

	b.logger.Warn("request script failed",
		slog.String("reason", string(wrapped.Reason)),
		slog.String("error", wrapped.Message))
	return wrapped
}

// MaskedDump serializes ec with every credential value redacted, including
// copies of credential values that appear inside the input.
func MaskedDump(ec *ExecutionContext) string {
	masker := secrets.NewStrictMasker(ec.Credentials)
	dump := map[string]any{
		"input":       masker.MaskMap(nonNil(ec.Input)),
		"credentials": secrets.MaskCredentials(nonNil(ec.Credentials)),
	}
	if ec.Pagination != nil {
		dump["pagination"] = ec.Pagination
	}
	raw, err := json.Marshal(dump)
	if err != nil {
		return "<unserializable context>"
	}
	return masker.Mask(string(raw))
}

func isContextError(err error) bool {
	return errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded)
}
