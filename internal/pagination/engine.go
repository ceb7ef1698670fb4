package pagination

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"go.opentelemetry.io/otel/trace"

	"github.com/tombee/apirun/internal/fileformat"
	"github.com/tombee/apirun/internal/jq"
	"github.com/tombee/apirun/internal/log"
	"github.com/tombee/apirun/internal/request"
	"github.com/tombee/apirun/internal/sandbox"
	"github.com/tombee/apirun/internal/tracing"
	"github.com/tombee/apirun/internal/transport"
	apierrors "github.com/tombee/apirun/pkg/errors"
)

// DefaultMaxIterations caps request cycles when Options.MaxIterations is unset.
const DefaultMaxIterations = 500

// Dispatcher sends a built request to its transport.
type Dispatcher interface {
	Dispatch(ctx context.Context, d *request.Descriptor, ec *request.ExecutionContext) (*transport.Response, error)
}

// Options tunes one run.
type Options struct {
	// MaxIterations caps request cycles (default: DefaultMaxIterations).
	MaxIterations int

	// Timeout bounds the whole run. Zero means only the caller's context.
	Timeout time.Duration

	// TraceID identifies the run in logs, spans and outbound headers.
	// Generated when empty.
	TraceID tracing.TraceID
}

// RunConfig is the request script and its optional pagination settings.
type RunConfig struct {
	Script     string
	Pagination *Config
}

// RunRequest is the input of Engine.Run.
type RunRequest struct {
	Config      RunConfig
	Input       map[string]any
	Credentials map[string]any

	// HostHint is the integration's declared host, used for the
	// diagnostic host check.
	HostHint string

	Options Options
}

// Result is the output of Engine.Run.
type Result struct {
	Data       any                 `json:"data"`
	StatusCode int                 `json:"statusCode"`
	Headers    map[string][]string `json:"headers,omitempty"`
	Iterations int                 `json:"iterations"`
	TraceID    tracing.TraceID     `json:"traceId"`
}

// Engine runs request scripts to completion across pages. It holds no
// per-run state and is safe for concurrent use.
type Engine struct {
	builder    *request.Builder
	validator  *request.SecurityValidator
	dispatcher Dispatcher
	detector   fileformat.Detector
	runner     *sandbox.Runner
	jq         *jq.Executor
	tracer     trace.Tracer
	logger     *slog.Logger
}

// Option configures an Engine.
type Option func(*Engine)

// WithTracer overrides the global apirun tracer.
func WithTracer(t trace.Tracer) Option {
	return func(e *Engine) { e.tracer = t }
}

// WithJQ overrides the executor used for cursor extraction.
func WithJQ(exec *jq.Executor) Option {
	return func(e *Engine) { e.jq = exec }
}

// NewEngine wires an engine from its collaborators. The runner evaluates
// request, handler and stop-condition scripts.
func NewEngine(runner *sandbox.Runner, dispatcher Dispatcher, detector fileformat.Detector, logger *slog.Logger, opts ...Option) *Engine {
	logger = log.OrDiscard(logger)
	e := &Engine{
		builder:    request.NewBuilder(runner, logger),
		validator:  request.NewSecurityValidator(logger),
		dispatcher: dispatcher,
		detector:   detector,
		runner:     runner,
		jq:         jq.NewExecutor(0, 0),
		tracer:     tracing.Tracer(),
		logger:     log.WithComponent(logger, "pagination"),
	}
	for _, opt := range opts {
		opt(e)
	}
	return e
}

type decisionMode string

const (
	modeStopCondition decisionMode = "stop_condition"
	modeHandler       decisionMode = "handler"
	modeLegacy        decisionMode = "legacy"
)

// Run executes the request script, following pagination until the data is
// exhausted, the iteration ceiling is hit, or ctx ends.
func (e *Engine) Run(ctx context.Context, req *RunRequest) (result *Result, err error) {
	if req == nil || req.Config.Script == "" {
		return nil, &apierrors.ValidationError{Field: "script", Message: "request script is required"}
	}
	cfg, err := req.Config.Pagination.Normalized()
	if err != nil {
		return nil, err
	}

	opts := req.Options
	maxIterations := opts.MaxIterations
	if maxIterations <= 0 {
		maxIterations = DefaultMaxIterations
	}

	id := opts.TraceID
	if id == "" {
		id = tracing.FromContextOrEmpty(ctx)
	}
	if id == "" {
		id = tracing.NewTraceID()
	}
	id = id.Sanitize()
	ctx = tracing.ToContext(ctx, id)

	parent := ctx
	if opts.Timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, opts.Timeout)
		defer cancel()
	}

	logger := log.WithRunContext(e.logger, id.String()).With(slog.String("pagination_type", string(cfg.Type)))
	ctx, span := tracing.StartRun(ctx, e.tracer, id, string(cfg.Type))
	started := time.Now()
	defer func() {
		if err != nil && ctx.Err() != nil && parent.Err() == nil && opts.Timeout > 0 {
			err = &apierrors.TimeoutError{Operation: "pagination run", Duration: opts.Timeout, Cause: err}
		}
		recordRun(cfg.Type, outcome(err), time.Since(started))
		span.End(err)
	}()

	logger.Debug("pagination run started", slog.Int("max_iterations", maxIterations))

	state := newState(cfg)
	mode, handler := e.selectHandler(cfg)
	var (
		acc  any
		last Page
	)

	for state.HasMore && state.Iteration < maxIterations {
		if err := ctx.Err(); err != nil {
			return nil, err
		}

		page, raw, err := e.fetch(ctx, req, cfg, state)
		if err != nil {
			return nil, err
		}
		iterationsTotal.WithLabelValues(string(cfg.Type)).Inc()

		if !cfg.Enabled() {
			logger.Info("request completed", slog.Int("status", page.StatusCode))
			return &Result{
				Data:       page.Data,
				StatusCode: page.StatusCode,
				Headers:    page.Headers,
				Iterations: 1,
				TraceID:    id,
			}, nil
		}

		fp := fingerprint(raw, page.Data)
		if state.Iteration == 0 {
			state.FirstFingerprint = fp
			state.FirstHadData = hasData(page.Data)
		}
		if mode == modeStopCondition && state.Iteration == 1 {
			if err := checkAnomaly(cfg, state, fp); err != nil {
				logger.Error("pagination anomaly detected", log.Error(err))
				return nil, err
			}
		}
		if mode != modeStopCondition && state.Iteration > 0 && fp == state.PrevFingerprint {
			logger.Warn("consecutive pages are identical",
				slog.Int(log.IterationKey, state.Iteration+1),
				slog.String("event", "duplicate_page"))
		}
		state.PrevFingerprint = fp

		if shapeMismatch(acc, page.Data) {
			logger.Warn("page shape does not match the first page, page not merged",
				slog.Int(log.IterationKey, state.Iteration+1),
				slog.String("event", "shape_mismatch"))
		}
		acc = Merge(acc, page.Data)
		last = page

		if err := e.decide(ctx, mode, handler, cfg, state, page); err != nil {
			return nil, err
		}

		logger.Debug("page fetched",
			slog.Int(log.IterationKey, state.Iteration+1),
			slog.Int("records", recordCount(page.Data)),
			slog.Int("total_fetched", state.TotalFetched),
			slog.Bool("has_more", state.HasMore))

		state.advance(cfg.Type)
		state.Iteration++
	}

	if state.HasMore && state.Iteration >= maxIterations {
		logger.Warn("pagination stopped at iteration ceiling",
			slog.Int("max_iterations", maxIterations),
			slog.Int("total_fetched", state.TotalFetched))
	}
	logger.Info("pagination run completed",
		slog.Int("iterations", state.Iteration),
		slog.Int("total_fetched", state.TotalFetched),
		log.Duration(log.DurationKey, time.Since(started).Milliseconds()))

	data := acc
	if cfg.Type == TypeCursorBased {
		var next any
		if state.Cursor != "" {
			next = state.Cursor
		}
		data = map[string]any{"data": acc, "nextCursor": next}
	}
	return &Result{
		Data:       data,
		StatusCode: last.StatusCode,
		Headers:    last.Headers,
		Iterations: state.Iteration,
		TraceID:    id,
	}, nil
}

// fetch performs one request cycle: build, host check, dispatch, normalize.
func (e *Engine) fetch(ctx context.Context, req *RunRequest, cfg *Config, state *State) (page Page, raw []byte, err error) {
	ctx, span := tracing.StartIteration(ctx, e.tracer, state.Iteration+1)
	defer func() { span.End(err) }()

	ec := &request.ExecutionContext{Input: req.Input, Credentials: req.Credentials}
	if cfg.Enabled() {
		ec.Pagination = state.vars()
	}

	d, err := e.builder.Build(ctx, req.Config.Script, ec, request.BuildOptions{})
	if err != nil {
		return Page{}, nil, err
	}
	e.validator.Validate(d, req.HostHint)

	resp, err := e.dispatcher.Dispatch(ctx, d, ec)
	if err != nil {
		return Page{}, nil, err
	}

	page = Page{Data: resp.Data, StatusCode: resp.StatusCode, Headers: resp.Headers}
	if resp.Raw != nil {
		detection, err := e.detector.DetectAndParse(ctx, resp.Raw)
		if err != nil {
			return Page{}, nil, fmt.Errorf("normalizing response: %w", err)
		}
		page.Data = detection.Data
		span.SetAttributes(map[string]any{"response.format": string(detection.Format)})
	}
	span.SetAttributes(map[string]any{
		"http.status_code":   resp.StatusCode,
		"pagination.records": recordCount(page.Data),
	})
	return page, resp.Raw, nil
}

func (e *Engine) selectHandler(cfg *Config) (decisionMode, Handler) {
	switch {
	case cfg.StopCondition != "":
		return modeStopCondition, nil
	case cfg.Handler != "":
		return modeHandler, &scriptHandler{runner: e.runner, script: cfg.Handler}
	case (cfg.Type == TypePageBased || cfg.Type == TypeOffsetBased) && cfg.PageSize > 0:
		return modeHandler, sizeHandler{}
	case cfg.Type == TypeCursorBased && cfg.CursorPath != "":
		return modeHandler, &cursorHandler{exec: e.jq, path: cfg.CursorPath}
	default:
		return modeLegacy, nil
	}
}

// decide updates state.HasMore, state.Cursor and state.TotalFetched for the
// page just merged.
func (e *Engine) decide(ctx context.Context, mode decisionMode, handler Handler, cfg *Config, state *State, page Page) error {
	if mode == modeStopCondition {
		stop, err := evaluateStopCondition(ctx, e.runner, cfg.StopCondition, page, state)
		if err != nil {
			return err
		}
		state.TotalFetched += recordCount(page.Data)
		state.HasMore = !stop
		if cfg.Type == TypeCursorBased {
			cursor, err := extractCursor(ctx, e.jq, cfg.CursorPath, page.Data)
			if err != nil {
				return &apierrors.ValidationError{Field: "pagination.cursorPath", Message: err.Error(), Cause: err}
			}
			state.Cursor = cursor
		}
		return nil
	}

	var (
		result *HandlerResult
		err    error
	)
	if mode == modeHandler {
		result, err = handler.Handle(ctx, page, state)
	} else {
		result, err = legacyDecision(ctx, e.jq, cfg.Type, page.Data, state.PageSize)
	}
	if err != nil {
		return err
	}

	state.HasMore = result.HasMore
	if result.ResultSize != nil {
		state.TotalFetched += *result.ResultSize
	} else {
		state.TotalFetched += recordCount(page.Data)
	}
	if cfg.Type == TypeCursorBased {
		cursor := cursorString(result.Cursor)
		if cursor == "" && result.Cursor == nil && result.HasMore {
			if cursor, err = extractCursor(ctx, e.jq, cfg.CursorPath, page.Data); err != nil {
				return &apierrors.ValidationError{Field: "pagination.cursorPath", Message: err.Error(), Cause: err}
			}
		}
		state.Cursor = cursor
	}
	return nil
}

// checkAnomaly runs on the second iteration of a stop-condition run.
func checkAnomaly(cfg *Config, state *State, fp string) error {
	if state.FirstHadData && fp != "" && fp == state.FirstFingerprint {
		return &apierrors.ConfigurationError{
			Setting: "pagination." + string(cfg.Type),
			Message: "the second page is identical to the first, so the request is not changing between iterations",
			Suggestion: fmt.Sprintf("use the %s variable in the request script so each request addresses a different page",
				addressingVar(cfg.Type)),
		}
	}
	if !state.FirstHadData {
		return &apierrors.ConfigurationError{
			Setting:    "pagination.stopCondition",
			Message:    "the first page returned no data but the stop condition did not end pagination",
			Suggestion: "make the stop condition return true when the response has no records",
		}
	}
	return nil
}

func addressingVar(t Type) string {
	switch t {
	case TypeOffsetBased:
		return "offset"
	case TypeCursorBased:
		return "cursor"
	default:
		return "page"
	}
}

func outcome(err error) string {
	switch {
	case err == nil:
		return "success"
	case errors.Is(err, context.Canceled):
		return "cancelled"
	case errors.Is(err, context.DeadlineExceeded):
		return "timeout"
	default:
		return apierrors.Classify(err)
	}
}
