package wasihost_test

import (
	"context"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/sandrolain/gosurface/pkg/types"
	"github.com/sandrolain/gosurface/pkg/wasihost"
)

// moduleEnv names a prebuilt cmd/wasm/wasi binary:
//
//	GOOS=wasip1 GOARCH=wasm go build -o /tmp/gosurface.wasm ./cmd/wasm/wasi/
//	GOSURFACE_WASI_MODULE=/tmp/gosurface.wasm go test ./pkg/wasihost/
const moduleEnv = "GOSURFACE_WASI_MODULE"

func loadRunner(t *testing.T) *wasihost.Runner {
	t.Helper()
	path := os.Getenv(moduleEnv)
	if path == "" {
		t.Skipf("%s not set", moduleEnv)
	}
	if _, err := os.Stat(path); err != nil {
		t.Skipf("wasi module not available: %v", err)
	}

	ctx := context.Background()
	r, err := wasihost.Load(ctx, path)
	require.NoError(t, err)
	t.Cleanup(func() { _ = r.Close(ctx) })
	return r
}

func TestNewRejectsInvalidModule(t *testing.T) {
	_, err := wasihost.New(context.Background(), []byte("not a wasm module"))
	assert.Error(t, err)
}

func TestLoadMissingFile(t *testing.T) {
	_, err := wasihost.Load(context.Background(), filepath.Join(t.TempDir(), "missing.wasm"))
	assert.Error(t, err)
}

func TestGenerate(t *testing.T) {
	r := loadRunner(t)

	m, err := r.Generate(context.Background(), types.SurfaceRequest{
		Expression: "x^2 + y^2",
		System:     types.Cartesian,
		Resolution: 2,
	})
	require.NoError(t, err)
	assert.Equal(t, 9, m.VertexCount())
	assert.Equal(t, types.Vec3{0, 0, 0}, m.Positions[4])
}

func TestGenerateCompileError(t *testing.T) {
	r := loadRunner(t)

	_, err := r.Generate(context.Background(), types.SurfaceRequest{Expression: "x +", System: types.Cartesian})
	var terr *types.Error
	require.ErrorAs(t, err, &terr)
	assert.Equal(t, types.ErrSyntaxError, terr.Code)
}
