// Package sampler evaluates a compiled expression over the parameter grid of
// a coordinate system and converts every sample into a point in render space.
//
// For a resolution N the grid has (N+1)×(N+1) points. The outer index i and
// the inner index j both run over 0..N and map to the system's free variables
// as described by DomainOf; points are stored row-major at i*(N+1)+j.
//
// # Failure policy
//
// Sampling is fail-soft. When a point cannot be evaluated, because the
// expression references a name the system does not bind or the result is NaN
// or ±Inf, the dependent value of that point is replaced by 0 and sampling
// continues. Such points are counted in Grid.SoftFailures but never reported
// as errors. Only cancellation and invalid arguments make Sample fail.
//
// # Concurrency
//
// Rows are distributed over a pool of goroutines. Every row depends only on
// its own indices and the shared, immutable expression, so workers write
// disjoint parts of the output without locking.
package sampler

import (
	"context"
	"fmt"
	"log/slog"
	"math"
	"runtime"
	"sync"
	"sync/atomic"
	"time"

	"github.com/sandrolain/gosurface/pkg/evaluator"
	"github.com/sandrolain/gosurface/pkg/types"
)

// Clock returns the current time. It is read once per sampling pass.
type Clock func() time.Time

// Grid is the result of one sampling pass.
type Grid struct {
	System types.CoordinateSystem
	// N is the resolution; the grid has (N+1)^2 points.
	N int
	// Points holds the render-space positions, row-major.
	Points []types.Vec3
	// Values holds the dependent quantity of every point after soft-failure
	// substitution and clamping, parallel to Points.
	Values []float64
	// SoftFailures counts points whose value was replaced by 0.
	SoftFailures int
	// Time is the value bound to TimeVariable for the whole pass.
	Time float64
}

// Index returns the flat index of grid point (i, j).
func (g *Grid) Index(i, j int) int {
	return i*(g.N+1) + j
}

// At returns the point at grid indices (i, j).
func (g *Grid) At(i, j int) types.Vec3 {
	return g.Points[g.Index(i, j)]
}

// ValueAt returns the dependent quantity at grid indices (i, j).
func (g *Grid) ValueAt(i, j int) float64 {
	return g.Values[g.Index(i, j)]
}

// Sampler samples expressions over coordinate system grids.
type Sampler struct {
	opts      Options
	logger    *slog.Logger
	evaluator *evaluator.Evaluator
}

// Options configures sampling behavior.
type Options struct {
	// Concurrency enables row-parallel sampling.
	Concurrency bool
	// Workers is the number of goroutines used when Concurrency is enabled.
	// Values below 1 select runtime.NumCPU().
	Workers int
	// Clock supplies the value of TimeVariable. Defaults to time.Now.
	Clock Clock
	// Evaluator evaluates every grid point. Defaults to evaluator.New().
	Evaluator *evaluator.Evaluator
	// Logger for structured logging.
	Logger *slog.Logger
}

// defaultConcurrency controls the default value of Options.Concurrency. It is
// true on all platforms except WebAssembly targets, where sampler_wasm.go
// turns it off.
var defaultConcurrency = true

// Option configures a Sampler.
type Option func(*Options)

// New creates a new Sampler with default options.
func New(opts ...Option) *Sampler {
	options := Options{
		Concurrency: defaultConcurrency,
		Workers:     runtime.NumCPU(),
		Clock:       time.Now,
	}
	for _, opt := range opts {
		opt(&options)
	}

	if options.Workers < 1 {
		options.Workers = runtime.NumCPU()
	}
	if options.Clock == nil {
		options.Clock = time.Now
	}
	if options.Logger == nil {
		options.Logger = slog.Default()
	}
	if options.Evaluator == nil {
		options.Evaluator = evaluator.New(evaluator.WithLogger(options.Logger))
	}

	return &Sampler{
		opts:      options,
		logger:    options.Logger,
		evaluator: options.Evaluator,
	}
}

// Workers returns the number of goroutines a concurrent pass may use.
func (s *Sampler) Workers() int {
	return s.opts.Workers
}

// WithConcurrency enables or disables row-parallel sampling.
func WithConcurrency(enabled bool) Option {
	return func(opts *Options) {
		opts.Concurrency = enabled
	}
}

// WithWorkers sets the number of sampling goroutines. Zero or a negative
// count selects runtime.NumCPU().
func WithWorkers(n int) Option {
	return func(opts *Options) {
		opts.Workers = n
	}
}

// WithClock sets the clock the time variable is read from.
func WithClock(clock Clock) Option {
	return func(opts *Options) {
		opts.Clock = clock
	}
}

// WithEvaluator sets the evaluator used for every grid point.
func WithEvaluator(ev *evaluator.Evaluator) Option {
	return func(opts *Options) {
		opts.Evaluator = ev
	}
}

// WithLogger sets a custom logger.
func WithLogger(logger *slog.Logger) Option {
	return func(opts *Options) {
		opts.Logger = logger
	}
}

// Sample evaluates expr over the grid of system at resolution n.
//
// The returned error is non-nil only when n < 1, system is invalid, or ctx is
// done before the pass completes. Evaluation problems are absorbed per point.
func (s *Sampler) Sample(ctx context.Context, expr *types.Expression, system types.CoordinateSystem, n int) (*Grid, error) {
	if expr == nil || expr.AST() == nil {
		return nil, fmt.Errorf("invalid expression")
	}
	if !system.Valid() {
		return nil, types.NewError(types.ErrInvalidSystem, fmt.Sprintf("invalid coordinate system %d", uint8(system)), -1)
	}
	if n < 1 {
		return nil, types.NewError(types.ErrInvalidResolution, fmt.Sprintf("resolution must be >= 1, got %d", n), -1)
	}

	domain := DomainOf(system)
	now := s.opts.Clock()
	tval := float64(now.UnixNano()) / float64(time.Second)

	fn, err := s.evaluator.EvalFunc(expr)
	if err != nil {
		// The expression was compiled against another function registry.
		// Every point fails softly, as any evaluation error would.
		s.logger.Warn("expression cannot be evaluated; sampling a flat surface",
			"expression", expr.Source(),
			"error", err)
		fn = func(evaluator.Scope) (float64, error) { return math.NaN(), err }
	}

	if missing := s.evaluator.Missing(expr.Variables(), scopeTemplate(domain)); len(missing) > 0 {
		s.logger.Debug("expression references variables outside the coordinate system",
			"expression", expr.Source(),
			"system", system.String(),
			"missing", missing)
	}

	size := (n + 1) * (n + 1)
	grid := &Grid{
		System: system,
		N:      n,
		Points: make([]types.Vec3, size),
		Values: make([]float64, size),
		Time:   tval,
	}

	workers := 1
	if s.opts.Concurrency {
		workers = min(s.opts.Workers, n+1)
	}

	var failures atomic.Int64
	if workers == 1 {
		if err := s.sampleRows(ctx, grid, domain, fn, tval, rowRange(0, n+1), &failures); err != nil {
			return nil, err
		}
	} else {
		rows := make(chan int, n+1)
		for i := 0; i <= n; i++ {
			rows <- i
		}
		close(rows)

		var (
			wg       sync.WaitGroup
			firstErr error
			errOnce  sync.Once
		)
		for w := 0; w < workers; w++ {
			wg.Add(1)
			go func() {
				defer wg.Done()
				if err := s.sampleRows(ctx, grid, domain, fn, tval, rows, &failures); err != nil {
					errOnce.Do(func() { firstErr = err })
				}
			}()
		}
		wg.Wait()
		if firstErr != nil {
			return nil, firstErr
		}
	}

	grid.SoftFailures = int(failures.Load())
	if grid.SoftFailures > 0 {
		s.logger.Debug("soft failures during sampling",
			"expression", expr.Source(),
			"system", system.String(),
			"resolution", n,
			"soft_failures", grid.SoftFailures)
	}

	return grid, nil
}

// sampleRows fills every row received from rows. Each call owns one scope,
// which is rebound at every grid point.
func (s *Sampler) sampleRows(ctx context.Context, grid *Grid, domain Domain, fn evaluator.Func, tval float64, rows <-chan int, failures *atomic.Int64) error {
	n := grid.N
	scope := make(evaluator.Scope, 3)
	var soft int64
	defer func() { failures.Add(soft) }()

	for i := range rows {
		select {
		case <-ctx.Done():
			return ctx.Err()
		default:
		}

		outer := domain.Outer.At(i, n)
		for j := 0; j <= n; j++ {
			inner := domain.Inner.At(j, n)

			scope[domain.Outer.Name] = outer
			scope[domain.Inner.Name] = inner
			scope[TimeVariable] = tval

			value, err := fn(scope)
			if err != nil || math.IsNaN(value) || math.IsInf(value, 0) {
				value = 0
				soft++
			}
			if domain.Clamped {
				value = clamp(value)
			}

			k := i*(n+1) + j
			grid.Values[k] = value
			grid.Points[k] = domain.Point(outer, inner, value)
		}
	}
	return nil
}

// rowRange returns a closed channel yielding from..to-1.
func rowRange(from, to int) <-chan int {
	ch := make(chan int, to-from)
	for i := from; i < to; i++ {
		ch <- i
	}
	close(ch)
	return ch
}

// scopeTemplate returns a scope binding the domain's variables, used to check
// an expression's free variables before sampling.
func scopeTemplate(d Domain) evaluator.Scope {
	scope := make(evaluator.Scope, 3)
	for _, name := range d.Variables() {
		scope[name] = 0
	}
	return scope
}
