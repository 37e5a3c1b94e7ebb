// Package pipeline wires the surface stages together: it normalizes the raw
// expression, compiles it (through an optional cache), samples it over the
// requested coordinate system and assembles the mesh.
//
// A Pipeline holds no per-request state. Generate may be called concurrently
// and every request is independent of the others.
package pipeline

import (
	"context"
	"errors"
	"log/slog"
	"time"

	"github.com/sandrolain/gosurface/pkg/cache"
	"github.com/sandrolain/gosurface/pkg/evaluator"
	"github.com/sandrolain/gosurface/pkg/functions"
	"github.com/sandrolain/gosurface/pkg/mesh"
	"github.com/sandrolain/gosurface/pkg/metrics"
	"github.com/sandrolain/gosurface/pkg/parser"
	"github.com/sandrolain/gosurface/pkg/preprocess"
	"github.com/sandrolain/gosurface/pkg/sampler"
	"github.com/sandrolain/gosurface/pkg/types"
)

// Result is the outcome of one request: exactly one of Mesh and Err is set.
type Result struct {
	Mesh *types.Mesh
	Err  *types.Error
}

// OK reports whether the result carries a mesh.
func (r Result) OK() bool {
	return r.Err == nil
}

// Pipeline turns surface requests into meshes.
type Pipeline struct {
	opts    Options
	logger  *slog.Logger
	sampler *sampler.Sampler
}

// Options configures a Pipeline.
type Options struct {
	// Resolution replaces a non-positive request resolution.
	Resolution int
	// Cache stores compiled expressions by normalized text. Nil disables caching.
	Cache *cache.Cache
	// Functions is the function registry used to compile and evaluate.
	Functions *functions.Registry
	// Metrics receives pipeline instrumentation. Nil disables it.
	Metrics *metrics.Metrics
	// Clock supplies the time variable of every sampling pass.
	Clock sampler.Clock
	// SamplerOptions are applied after the options derived from the fields above.
	SamplerOptions []sampler.Option
	Logger         *slog.Logger
}

// Option configures a Pipeline.
type Option func(*Options)

// New creates a Pipeline.
func New(opts ...Option) *Pipeline {
	options := Options{
		Resolution: types.DefaultResolution,
	}
	for _, opt := range opts {
		opt(&options)
	}

	if options.Resolution < 1 {
		options.Resolution = types.DefaultResolution
	}
	if options.Functions == nil {
		options.Functions = functions.Default()
	}
	if options.Logger == nil {
		options.Logger = slog.Default()
	}

	ev := evaluator.New(
		evaluator.WithLogger(options.Logger),
		evaluator.WithFunctions(options.Functions),
	)
	samplerOpts := []sampler.Option{
		sampler.WithLogger(options.Logger),
		sampler.WithEvaluator(ev),
	}
	if options.Clock != nil {
		samplerOpts = append(samplerOpts, sampler.WithClock(options.Clock))
	}
	samplerOpts = append(samplerOpts, options.SamplerOptions...)

	return &Pipeline{
		opts:    options,
		logger:  options.Logger,
		sampler: sampler.New(samplerOpts...),
	}
}

// WithResolution sets the default grid resolution.
func WithResolution(n int) Option {
	return func(opts *Options) {
		opts.Resolution = n
	}
}

// WithCache enables compiled expression caching.
func WithCache(c *cache.Cache) Option {
	return func(opts *Options) {
		opts.Cache = c
	}
}

// WithFunctions sets the function registry.
func WithFunctions(reg *functions.Registry) Option {
	return func(opts *Options) {
		opts.Functions = reg
	}
}

// WithMetrics enables Prometheus instrumentation.
func WithMetrics(m *metrics.Metrics) Option {
	return func(opts *Options) {
		opts.Metrics = m
	}
}

// WithClock sets the clock the time variable is read from.
func WithClock(clock sampler.Clock) Option {
	return func(opts *Options) {
		opts.Clock = clock
	}
}

// WithSamplerOptions passes additional options to the sampler.
func WithSamplerOptions(opts ...sampler.Option) Option {
	return func(o *Options) {
		o.SamplerOptions = append(o.SamplerOptions, opts...)
	}
}

// WithLogger sets a custom logger.
func WithLogger(logger *slog.Logger) Option {
	return func(opts *Options) {
		opts.Logger = logger
	}
}

// Compile normalizes and compiles an expression. Successful compilations are
// cached when a cache is configured. The returned error is always a
// *types.Error.
func (p *Pipeline) Compile(expression string) (*types.Expression, error) {
	if err := types.CheckExpressionLength(expression); err != nil {
		p.observeCompile(err, false)
		return nil, err
	}
	normalized := preprocess.Normalize(expression)

	compile := func() (*types.Expression, error) {
		return parser.Compile(normalized, parser.WithFunctions(p.opts.Functions))
	}

	if p.opts.Cache == nil {
		expr, err := compile()
		p.observeCompile(err, false)
		return expr, err
	}

	if expr, ok := p.opts.Cache.Get(normalized); ok {
		p.observeCompile(nil, true)
		return expr, nil
	}
	expr, err := compile()
	p.observeCompile(err, false)
	if err != nil {
		return nil, err
	}
	p.opts.Cache.Set(normalized, expr)
	return expr, nil
}

func (p *Pipeline) observeCompile(err error, cached bool) {
	switch {
	case err != nil:
		p.opts.Metrics.ObserveCompile(metrics.OutcomeError)
	case cached:
		p.opts.Metrics.ObserveCompile(metrics.OutcomeCached)
	default:
		p.opts.Metrics.ObserveCompile(metrics.OutcomeOK)
	}
}

// Generate runs one request through the pipeline.
//
// A compile error, an invalid coordinate system and cancellation of ctx are
// reported in Result.Err. Evaluation problems at individual grid points never
// are; such points are flattened to zero by the sampler.
func (p *Pipeline) Generate(ctx context.Context, req types.SurfaceRequest) Result {
	if req.Resolution < 1 {
		req.Resolution = p.opts.Resolution
	}
	if err := req.Validate(); err != nil {
		return failure(err)
	}

	expr, err := p.Compile(req.Expression)
	if err != nil {
		p.logger.Debug("compile failed",
			"expression", req.Expression,
			"error", err)
		return failure(err)
	}

	start := time.Now()
	grid, err := p.sampler.Sample(ctx, expr, req.System, req.Resolution)
	if err != nil {
		return failure(err)
	}
	elapsed := time.Since(start)
	p.opts.Metrics.ObserveSample(req.System, elapsed, grid.SoftFailures)

	m := mesh.Assemble(grid)
	p.opts.Metrics.ObserveMesh(m.VertexCount())

	p.logger.Debug("surface generated",
		"expression", expr.Source(),
		"system", req.System.String(),
		"resolution", req.Resolution,
		"vertices", m.VertexCount(),
		"soft_failures", grid.SoftFailures,
		"elapsed", elapsed)

	return Result{Mesh: m}
}

// failure converts err into a Result, mapping context errors to ErrCanceled.
func failure(err error) Result {
	var terr *types.Error
	if errors.As(err, &terr) {
		return Result{Err: terr}
	}
	if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
		return Result{Err: types.NewError(types.ErrCanceled, "request canceled", -1).WithCause(err)}
	}
	return Result{Err: types.NewError(types.ErrSyntaxError, err.Error(), -1).WithCause(err)}
}
