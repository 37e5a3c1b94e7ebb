package pipeline_test

import (
	"context"
	"strings"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/sandrolain/gosurface/pkg/cache"
	"github.com/sandrolain/gosurface/pkg/functions"
	"github.com/sandrolain/gosurface/pkg/metrics"
	"github.com/sandrolain/gosurface/pkg/pipeline"
	"github.com/sandrolain/gosurface/pkg/types"
)

func epoch() time.Time { return time.Unix(0, 0) }

func TestGenerateDefaults(t *testing.T) {
	p := pipeline.New(pipeline.WithClock(epoch))

	res := p.Generate(context.Background(), types.SurfaceRequest{
		Expression: "sin(sqrt(x^2 + y^2)) + 0.5 * cos(y)",
		System:     types.Cartesian,
	})

	require.True(t, res.OK(), "unexpected error: %v", res.Err)
	require.NotNil(t, res.Mesh)
	assert.Equal(t, types.DefaultResolution, res.Mesh.Resolution)
	assert.Equal(t, 101*101, res.Mesh.VertexCount())
	assert.Equal(t, 2*100*100, res.Mesh.TriangleCount())
}

func TestGenerateResolutionOption(t *testing.T) {
	p := pipeline.New(pipeline.WithResolution(4))

	res := p.Generate(context.Background(), types.SurfaceRequest{Expression: "5", System: types.Spherical})
	require.True(t, res.OK())
	assert.Equal(t, 25, res.Mesh.VertexCount())

	res = p.Generate(context.Background(), types.SurfaceRequest{Expression: "5", System: types.Spherical, Resolution: 2})
	require.True(t, res.OK())
	assert.Equal(t, 9, res.Mesh.VertexCount())
}

func TestGenerateCompileError(t *testing.T) {
	p := pipeline.New()

	tests := []struct {
		expr string
		code types.ErrorCode
	}{
		{"x+", types.ErrSyntaxError},
		{"", types.ErrEmptyExpression},
		{"(x", types.ErrUnbalancedParens},
		{"sinx(y)", types.ErrUnknownFunction},
		{"2x", types.ErrSyntaxError},
	}

	for _, tt := range tests {
		t.Run(tt.expr, func(t *testing.T) {
			res := p.Generate(context.Background(), types.SurfaceRequest{Expression: tt.expr, System: types.Cartesian, Resolution: 4})

			assert.False(t, res.OK())
			assert.Nil(t, res.Mesh)
			require.NotNil(t, res.Err)
			assert.Equal(t, tt.code, res.Err.Code)
			assert.True(t, res.Err.Code.IsCompileError())
			assert.NotEmpty(t, res.Err.Message)
		})
	}
}

func TestGenerateNormalizes(t *testing.T) {
	p := pipeline.New()

	res := p.Generate(context.Background(), types.SurfaceRequest{
		Expression: "|θ - 1| + sin^2(φ)",
		System:     types.Spherical,
		Resolution: 6,
	})
	require.True(t, res.OK(), "unexpected error: %v", res.Err)
	assert.Equal(t, 49, res.Mesh.VertexCount())
}

func TestGenerateSoftFailuresStillProduceMesh(t *testing.T) {
	p := pipeline.New()

	res := p.Generate(context.Background(), types.SurfaceRequest{Expression: "x + y", System: types.Cylindrical, Resolution: 3})
	require.True(t, res.OK())
	for _, pos := range res.Mesh.Positions {
		assert.Equal(t, 0.0, pos[1])
	}
}

func TestGenerateRequestErrors(t *testing.T) {
	p := pipeline.New()

	res := p.Generate(context.Background(), types.SurfaceRequest{Expression: "x", System: types.CoordinateSystem(7)})
	require.NotNil(t, res.Err)
	assert.Equal(t, types.ErrInvalidSystem, res.Err.Code)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	res = p.Generate(ctx, types.SurfaceRequest{Expression: "x", System: types.Cartesian})
	require.NotNil(t, res.Err)
	assert.Equal(t, types.ErrCanceled, res.Err.Code)
	assert.ErrorIs(t, res.Err, context.Canceled)
	assert.Nil(t, res.Mesh)
}

func TestCompileExpressionTooLong(t *testing.T) {
	c := cache.New(8)
	p := pipeline.New(pipeline.WithCache(c))

	long := strings.Repeat("|", types.MaxExpressionLength/2) + "x" + strings.Repeat("|", types.MaxExpressionLength/2)
	_, err := p.Compile(long)
	var terr *types.Error
	require.ErrorAs(t, err, &terr)
	assert.Equal(t, types.ErrExpressionTooLong, terr.Code)
	assert.Equal(t, 0, c.Len())

	res := p.Generate(context.Background(), types.SurfaceRequest{Expression: long, System: types.Cartesian, Resolution: 1})
	require.NotNil(t, res.Err)
	assert.Equal(t, types.ErrExpressionTooLong, res.Err.Code)
	assert.False(t, res.Err.Code.IsCompileError())
}

func TestCompileCache(t *testing.T) {
	c := cache.New(8)
	m := metrics.New(nil)
	p := pipeline.New(pipeline.WithCache(c), pipeline.WithMetrics(m))

	first, err := p.Compile("sin(θ)")
	require.NoError(t, err)
	second, err := p.Compile("sin(theta)")
	require.NoError(t, err)

	assert.Same(t, first, second)
	assert.Equal(t, 1, c.Len())

	_, err = p.Compile("x +")
	require.Error(t, err)
	assert.Equal(t, 1, c.Len())

	stats := c.Stats()
	assert.Equal(t, uint64(1), stats.Hits)
}

func TestCustomFunctions(t *testing.T) {
	reg := functions.NewRegistry(functions.Func{Name: "double", Impl: func(x float64) float64 { return 2 * x }})
	p := pipeline.New(pipeline.WithFunctions(reg))

	res := p.Generate(context.Background(), types.SurfaceRequest{Expression: "double(x)", System: types.Cartesian, Resolution: 2})
	require.True(t, res.OK())
	assert.Equal(t, types.Vec3{10, 20, -10}, res.Mesh.Positions[6])

	res = p.Generate(context.Background(), types.SurfaceRequest{Expression: "sin(x)", System: types.Cartesian, Resolution: 2})
	require.NotNil(t, res.Err)
	assert.Equal(t, types.ErrUnknownFunction, res.Err.Code)
}

func TestGenerateConcurrent(t *testing.T) {
	p := pipeline.New(pipeline.WithCache(cache.New(4)), pipeline.WithClock(epoch))
	exprs := []string{"x * y", "sin(r) * theta", "2 + cos(phi)"}
	systems := []types.CoordinateSystem{types.Cartesian, types.Cylindrical, types.Spherical}

	var wg sync.WaitGroup
	for g := 0; g < 12; g++ {
		wg.Add(1)
		go func(g int) {
			defer wg.Done()
			k := g % len(exprs)
			res := p.Generate(context.Background(), types.SurfaceRequest{Expression: exprs[k], System: systems[k], Resolution: 10})
			assert.True(t, res.OK())
		}(g)
	}
	wg.Wait()
}

func TestTrackerTickets(t *testing.T) {
	tr := pipeline.NewTracker(pipeline.New())

	first := tr.Issue()
	assert.True(t, tr.Accept(first))

	second := tr.Issue()
	assert.Greater(t, second, first)
	assert.False(t, tr.Accept(first))
	assert.True(t, tr.Accept(second))

	tr.Stop()
	assert.False(t, tr.Accept(second))
}

func TestTrackerRecompute(t *testing.T) {
	tr := pipeline.NewTracker(pipeline.New())

	res, ok := tr.Recompute(context.Background(), types.SurfaceRequest{Expression: "x", System: types.Cartesian, Resolution: 2})
	assert.True(t, ok)
	assert.True(t, res.OK())

	res, ok = tr.Recompute(context.Background(), types.SurfaceRequest{Expression: "x+", System: types.Cartesian, Resolution: 2})
	assert.True(t, ok)
	assert.False(t, res.OK())
}

func TestTrackerSupersede(t *testing.T) {
	entered := make(chan struct{})
	release := make(chan struct{})
	var calls atomic.Int32
	clock := func() time.Time {
		if calls.Add(1) == 1 {
			close(entered)
			<-release
		}
		return epoch()
	}

	m := metrics.New(nil)
	tr := pipeline.NewTracker(pipeline.New(pipeline.WithClock(clock), pipeline.WithMetrics(m)))

	type outcome struct {
		res pipeline.Result
		ok  bool
	}
	stale := make(chan outcome, 1)
	go func() {
		res, ok := tr.Recompute(context.Background(), types.SurfaceRequest{Expression: "x", System: types.Cartesian, Resolution: 8})
		stale <- outcome{res, ok}
	}()

	<-entered
	res, ok := tr.Recompute(context.Background(), types.SurfaceRequest{Expression: "y", System: types.Cartesian, Resolution: 8})
	assert.True(t, ok)
	assert.True(t, res.OK())

	close(release)
	got := <-stale
	assert.False(t, got.ok)
	assert.Nil(t, got.res.Mesh)
	assert.Nil(t, got.res.Err)
}
