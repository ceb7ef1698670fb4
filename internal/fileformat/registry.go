// Package fileformat detects the format of a payload and parses it into
// structured data.
//
// A Registry holds a closed set of strategies ordered by priority. Detection
// asks each strategy in turn whether it can handle the bytes and parses with
// the first one that claims them; a parse failure moves on to the next
// candidate. Archive strategies (GZIP, ZIP) recurse into the registry for
// their contents, so nested archives and compressed entries are normalized
// too. When nothing claims the payload it is returned as text.
package fileformat

import (
	"context"
	"fmt"
	"log/slog"
	"sort"
	"sync"
	"time"

	"github.com/tombee/apirun/internal/log"
	apierrors "github.com/tombee/apirun/pkg/errors"
)

// Format identifies a payload format.
type Format string

const (
	FormatAuto  Format = "auto"
	FormatJSON  Format = "json"
	FormatCSV   Format = "csv"
	FormatXML   Format = "xml"
	FormatYAML  Format = "yaml"
	FormatGZIP  Format = "gzip"
	FormatZIP   Format = "zip"
	FormatExcel Format = "excel"
	FormatDOCX  Format = "docx"
	FormatPDF   Format = "pdf"
	FormatRaw   Format = "raw"
)

// Strategy priorities. Higher runs first. Content-specific archives come
// before generic ZIP, archives before everything textual, JSON before CSV.
const (
	PriorityExcel = 100
	PriorityDOCX  = 95
	PriorityZIP   = 90
	PriorityGZIP  = 85
	PriorityPDF   = 80
	PriorityJSON  = 70
	PriorityXML   = 60
	PriorityYAML  = 50
	PriorityCSV   = 40
	PriorityRaw   = 0
)

// Strategy is a capability-checked parser for one payload format.
// Strategies must be free of side effects so they can be reordered and
// tested in isolation.
type Strategy interface {
	// Format returns the format this strategy produces.
	Format() Format

	// Priority ranks the strategy; higher values are tried first.
	Priority() int

	// CanHandle reports whether data looks like this format.
	CanHandle(ctx context.Context, data []byte) bool

	// Parse converts data into structured values.
	Parse(ctx context.Context, data []byte) (any, error)
}

// Detection is the result of format detection.
type Detection struct {
	Format Format
	Data   any
}

// Detector runs full detection. Archive strategies use it to recurse.
type Detector interface {
	DetectAndParse(ctx context.Context, data []byte) (*Detection, error)
}

// Limits bounds the work done on nested and compressed payloads.
type Limits struct {
	// MaxExpandedBytes caps the size of any decompressed stream or archive entry.
	MaxExpandedBytes int64

	// MaxDepth caps archive nesting.
	MaxDepth int
}

// DefaultLimits returns the limits used by NewDefaultRegistry.
func DefaultLimits() Limits {
	return Limits{
		MaxExpandedBytes: 256 << 20,
		MaxDepth:         8,
	}
}

// Registry is a priority-ordered set of strategies.
type Registry struct {
	mu         sync.RWMutex
	strategies []Strategy
	logger     *slog.Logger
	limits     Limits
}

// Option configures a Registry.
type Option func(*Registry)

// WithLimits overrides the default limits.
func WithLimits(limits Limits) Option {
	return func(r *Registry) { r.limits = limits }
}

// NewRegistry creates an empty registry.
func NewRegistry(logger *slog.Logger, opts ...Option) *Registry {
	r := &Registry{
		logger: log.WithComponent(logger, "fileformat"),
		limits: DefaultLimits(),
	}
	for _, opt := range opts {
		opt(r)
	}
	return r
}

// NewDefaultRegistry creates a registry with every built-in strategy.
// extractor may be nil; PDF payloads then yield metadata only.
func NewDefaultRegistry(logger *slog.Logger, extractor TextExtractor, opts ...Option) *Registry {
	r := NewRegistry(logger, opts...)
	r.Register(&ExcelStrategy{limits: r.limits})
	r.Register(&DOCXStrategy{limits: r.limits})
	r.Register(&ZIPStrategy{detector: r, limits: r.limits})
	r.Register(&GZIPStrategy{detector: r, limits: r.limits})
	r.Register(&PDFStrategy{Extractor: extractor})
	r.Register(&JSONStrategy{})
	r.Register(&XMLStrategy{})
	r.Register(&YAMLStrategy{})
	r.Register(&CSVStrategy{})
	r.Register(&RawStrategy{})
	return r
}

// Register adds a strategy, keeping the set ordered by descending priority.
// Strategies with equal priority keep registration order.
func (r *Registry) Register(s Strategy) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.strategies = append(r.strategies, s)
	sort.SliceStable(r.strategies, func(i, j int) bool {
		return r.strategies[i].Priority() > r.strategies[j].Priority()
	})
}

// Strategies returns the registered strategies in the order they are tried.
func (r *Registry) Strategies() []Strategy {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return append([]Strategy(nil), r.strategies...)
}

type depthKey struct{}

func depthFrom(ctx context.Context) int {
	depth, _ := ctx.Value(depthKey{}).(int)
	return depth
}

// nested returns a context one archive level deeper, or an error when the
// nesting limit is reached.
func nested(ctx context.Context, limits Limits) (context.Context, error) {
	depth := depthFrom(ctx) + 1
	if limits.MaxDepth > 0 && depth > limits.MaxDepth {
		return nil, errTooDeep
	}
	return context.WithValue(ctx, depthKey{}, depth), nil
}

// DetectAndParse detects the format of data and parses it. Empty input yields
// nil data. The only errors returned are context cancellations; per-strategy
// failures fall through to the next candidate and finally to raw text.
func (r *Registry) DetectAndParse(ctx context.Context, data []byte) (*Detection, error) {
	if len(data) == 0 {
		return &Detection{Format: FormatRaw, Data: nil}, nil
	}

	for _, s := range r.Strategies() {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		if !s.CanHandle(ctx, data) {
			continue
		}

		started := time.Now()
		parsed, err := safeParse(ctx, s, data)
		if err != nil {
			if ctxErr := ctx.Err(); ctxErr != nil {
				return nil, ctxErr
			}
			recordFailure(s.Format())
			r.logger.Debug("format strategy failed, trying next candidate",
				slog.String(log.FormatKey, string(s.Format())),
				log.Error(err))
			continue
		}

		recordDetection(s.Format(), time.Since(started))
		r.logger.Debug("payload format detected",
			slog.String(log.FormatKey, string(s.Format())),
			slog.Int("bytes", len(data)),
			slog.Int("depth", depthFrom(ctx)))
		return &Detection{Format: s.Format(), Data: parsed}, nil
	}

	recordDetection(FormatRaw, 0)
	return &Detection{Format: FormatRaw, Data: decodeText(data)}, nil
}

// ParseFile is the normalization entry point used by the rest of the
// platform. With FormatAuto (or an empty format) it runs detection. With an
// explicit format it parses with that format's strategy directly and fails
// with *errors.UnsupportedFormatError when none is registered.
func (r *Registry) ParseFile(ctx context.Context, data []byte, declared Format) (any, error) {
	if declared == "" || declared == FormatAuto {
		detection, err := r.DetectAndParse(ctx, data)
		if err != nil {
			return nil, err
		}
		return detection.Data, nil
	}

	for _, s := range r.Strategies() {
		if s.Format() != declared {
			continue
		}
		if len(data) == 0 {
			return nil, nil
		}
		parsed, err := safeParse(ctx, s, data)
		if err != nil {
			return nil, apierrors.Wrapf(err, "parsing %s payload", declared)
		}
		recordDetection(declared, 0)
		return parsed, nil
	}

	return nil, &apierrors.UnsupportedFormatError{Format: string(declared)}
}

// safeParse runs a strategy, converting a panic into an ordinary parse error
// so a malformed payload cannot take the process down.
func safeParse(ctx context.Context, s Strategy, data []byte) (parsed any, err error) {
	defer func() {
		if r := recover(); r != nil {
			parsed = nil
			err = fmt.Errorf("%s strategy panicked: %v", s.Format(), r)
		}
	}()
	return s.Parse(ctx, data)
}
