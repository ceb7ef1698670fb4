package sandbox

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/expr-lang/expr"
	"github.com/expr-lang/expr/vm"

	"github.com/tombee/apirun/internal/log"
	apierrors "github.com/tombee/apirun/pkg/errors"
)

// Arg is a named argument passed into a script.
type Arg struct {
	Name  string
	Value any
}

// Runner evaluates scripts. It holds no per-evaluation state and is safe for
// concurrent use.
type Runner struct {
	logger    *slog.Logger
	functions map[string]any
}

// Option configures a Runner.
type Option func(*Runner)

// WithFunction exposes an additional host function to scripts. fn must have
// the signature func(args ...any) (any, error) and must not perform I/O
// unless the caller accepts that scripts can trigger it.
func WithFunction(name string, fn func(args ...any) (any, error)) Option {
	return func(r *Runner) { r.functions[name] = fn }
}

// NewRunner creates a Runner.
func NewRunner(logger *slog.Logger, opts ...Option) *Runner {
	r := &Runner{
		logger:    log.WithComponent(logger, "sandbox"),
		functions: map[string]any{},
	}
	for _, opt := range opts {
		opt(r)
	}
	return r
}

// Execute evaluates script with input bound as "input". When input is an
// object its keys are also bound at top level. The result is returned as JSON.
func (r *Runner) Execute(ctx context.Context, script string, input any, limits Limits) ([]byte, error) {
	return r.Call(ctx, script, limits, Arg{Name: "input", Value: input})
}

// Call evaluates script with the given arguments and returns the result as
// JSON.
//
// Every argument is bound by name. When the script is a callable, its
// parameters are bound to the arguments by position. When there is exactly
// one argument and it is an object, its keys are also bound at top level,
// except keys that collide with a helper function such as has or btoa.
// Undefined identifiers evaluate to nil.
func (r *Runner) Call(ctx context.Context, script string, limits Limits, args ...Arg) ([]byte, error) {
	started := time.Now()
	out, err := r.call(ctx, script, limits, args)
	elapsed := time.Since(started)
	recordEvaluation(limits.Tier, err, elapsed)
	if err != nil {
		r.logger.Debug("script evaluation failed",
			slog.String("tier", limits.Tier),
			log.Duration("evaluation", elapsed.Milliseconds()),
			log.Error(err))
	}
	return out, err
}

func (r *Runner) call(ctx context.Context, script string, limits Limits, args []Arg) ([]byte, error) {
	values, err := isolate(args, limits.maxInputBytes())
	if err != nil {
		return nil, scriptError(limits, apierrors.ScriptReasonSerialization, err)
	}

	normalized := Normalize(script)
	if normalized.Source == "" {
		return nil, scriptError(limits, apierrors.ScriptReasonCompile, fmt.Errorf("script is empty"))
	}
	env := r.environment(normalized, args, values)

	compileOpts := []expr.Option{
		expr.Env(env),
		expr.AllowUndefinedVariables(),
	}
	if limits.MaxNodes > 0 {
		compileOpts = append(compileOpts, expr.MaxNodes(limits.MaxNodes))
	}
	program, err := expr.Compile(normalized.Source, compileOpts...)
	if err != nil {
		return nil, scriptError(limits, apierrors.ScriptReasonCompile, err)
	}

	runCtx := ctx
	if limits.Timeout > 0 {
		var cancel context.CancelFunc
		runCtx, cancel = context.WithTimeout(ctx, limits.Timeout)
		defer cancel()
	}

	type outcome struct {
		value any
		err   error
	}
	done := make(chan outcome, 1)

	go func() {
		defer func() {
			if p := recover(); p != nil {
				done <- outcome{err: fmt.Errorf("%v", p)}
			}
		}()
		machine := &vm.VM{MemoryBudget: limits.memoryBudget()}
		value, err := machine.Run(program, env)
		done <- outcome{value: value, err: err}
	}()

	var result outcome
	select {
	case result = <-done:
	case <-runCtx.Done():
		cause := runCtx.Err()
		if ctx.Err() != nil {
			cause = ctx.Err()
		}
		return nil, &apierrors.ScriptError{
			Phase:   limits.Tier,
			Reason:  apierrors.ScriptReasonTimeout,
			Message: fmt.Sprintf("evaluation exceeded %s", limits.Timeout),
			Cause:   cause,
		}
	}

	if result.err != nil {
		reason := apierrors.ScriptReasonException
		if strings.Contains(result.err.Error(), "memory budget exceeded") {
			reason = apierrors.ScriptReasonMemory
		}
		return nil, scriptError(limits, reason, result.err)
	}

	out, err := json.Marshal(result.value)
	if err != nil {
		return nil, scriptError(limits, apierrors.ScriptReasonSerialization,
			fmt.Errorf("result is not serializable: %w", err))
	}
	return out, nil
}

// isolate round-trips every argument through JSON so the script only ever
// sees fresh values.
func isolate(args []Arg, maxBytes int) ([]any, error) {
	values := make([]any, len(args))
	total := 0
	for i, arg := range args {
		raw, err := json.Marshal(arg.Value)
		if err != nil {
			return nil, fmt.Errorf("argument %q is not serializable: %w", arg.Name, err)
		}
		total += len(raw)
		if total > maxBytes {
			return nil, fmt.Errorf("arguments exceed %d bytes", maxBytes)
		}
		if err := json.Unmarshal(raw, &values[i]); err != nil {
			return nil, fmt.Errorf("argument %q: %w", arg.Name, err)
		}
	}
	return values, nil
}

// environment binds, in increasing precedence: keys of a single object
// argument, helper functions, argument names, then callable parameters. Data
// keys never shadow a helper; they stay reachable through the argument name.
func (r *Runner) environment(n Normalized, args []Arg, values []any) map[string]any {
	env := map[string]any{}
	if len(values) == 1 {
		if obj, ok := values[0].(map[string]any); ok {
			for k, v := range obj {
				env[k] = v
			}
		}
	}

	for name, fn := range builtins() {
		env[name] = fn
	}
	for name, fn := range r.functions {
		env[name] = fn
	}

	for i, arg := range args {
		if arg.Name != "" {
			env[arg.Name] = values[i]
		}
	}
	if n.Shape == ShapeCallable {
		for i, param := range n.Params {
			if i < len(values) {
				env[param] = values[i]
			} else {
				env[param] = nil
			}
		}
	}
	return env
}

func scriptError(limits Limits, reason apierrors.ScriptReason, err error) *apierrors.ScriptError {
	return &apierrors.ScriptError{
		Phase:   limits.Tier,
		Reason:  reason,
		Message: err.Error(),
		Cause:   err,
	}
}
