// Package wasihost runs the WASI build of GoSurface (cmd/wasm/wasi) inside
// the host process with wazero.
//
// Each request instantiates a fresh module instance, so untrusted expressions
// are evaluated in a sandbox with bounded memory and no filesystem or network
// access. The compiled module is shared across requests.
package wasihost

import (
	"bytes"
	"context"
	"encoding/json"
	"log/slog"
	"os"

	"github.com/pkg/errors"
	"github.com/tetratelabs/wazero"
	"github.com/tetratelabs/wazero/imports/wasi_snapshot_preview1"
	"github.com/tetratelabs/wazero/sys"

	"github.com/sandrolain/gosurface/pkg/types"
)

// DefaultMemoryLimitPages caps guest memory at 256 MiB (64 KiB pages).
const DefaultMemoryLimitPages = 4096

// ErrNoOutput is returned when the guest exits without writing a response.
var ErrNoOutput = errors.New("wasi module produced no output")

// Runner executes surface requests in a WASI sandbox.
type Runner struct {
	runtime  wazero.Runtime
	compiled wazero.CompiledModule
	logger   *slog.Logger
}

// Options configures a Runner.
type Options struct {
	MemoryLimitPages uint32
	Logger           *slog.Logger
}

// Option configures a Runner.
type Option func(*Options)

// WithMemoryLimitPages bounds guest memory in 64 KiB pages.
func WithMemoryLimitPages(pages uint32) Option {
	return func(o *Options) {
		o.MemoryLimitPages = pages
	}
}

// WithLogger sets a custom logger.
func WithLogger(logger *slog.Logger) Option {
	return func(o *Options) {
		o.Logger = logger
	}
}

// Load reads a WASI binary from path and compiles it.
func Load(ctx context.Context, path string, opts ...Option) (*Runner, error) {
	wasm, err := os.ReadFile(path)
	if err != nil {
		return nil, errors.Wrapf(err, "read %s", path)
	}
	return New(ctx, wasm, opts...)
}

// New compiles a WASI binary. Close releases the runtime.
func New(ctx context.Context, wasm []byte, opts ...Option) (*Runner, error) {
	options := Options{MemoryLimitPages: DefaultMemoryLimitPages}
	for _, opt := range opts {
		opt(&options)
	}
	if options.Logger == nil {
		options.Logger = slog.Default()
	}

	cfg := wazero.NewRuntimeConfig().
		WithCloseOnContextDone(true).
		WithMemoryLimitPages(options.MemoryLimitPages)
	r := wazero.NewRuntimeWithConfig(ctx, cfg)

	if _, err := wasi_snapshot_preview1.Instantiate(ctx, r); err != nil {
		_ = r.Close(ctx)
		return nil, errors.Wrap(err, "instantiate wasi")
	}

	compiled, err := r.CompileModule(ctx, wasm)
	if err != nil {
		_ = r.Close(ctx)
		return nil, errors.Wrap(err, "compile module")
	}

	return &Runner{
		runtime:  r,
		compiled: compiled,
		logger:   options.Logger,
	}, nil
}

// Close releases the runtime and every compiled module.
func (r *Runner) Close(ctx context.Context) error {
	return r.runtime.Close(ctx)
}

// Generate runs req in a fresh module instance. A compile error reported by
// the guest is returned as *types.Error. Cancellation of ctx terminates the
// guest.
func (r *Runner) Generate(ctx context.Context, req types.SurfaceRequest) (*types.Mesh, error) {
	in, err := json.Marshal(req)
	if err != nil {
		return nil, errors.Wrap(err, "encode request")
	}

	var stdout, stderr bytes.Buffer
	cfg := wazero.NewModuleConfig().
		WithName("").
		WithArgs("gosurface").
		WithStdin(bytes.NewReader(in)).
		WithStdout(&stdout).
		WithStderr(&stderr).
		WithSysWalltime().
		WithSysNanotime()

	mod, err := r.runtime.InstantiateModule(ctx, r.compiled, cfg)
	if mod != nil {
		defer mod.Close(ctx)
	}

	exitCode := uint32(0)
	if err != nil {
		var exitErr *sys.ExitError
		if !errors.As(err, &exitErr) {
			return nil, errors.Wrap(err, "run module")
		}
		exitCode = exitErr.ExitCode()
		if ctxErr := ctx.Err(); ctxErr != nil {
			return nil, types.NewError(types.ErrCanceled, "request canceled", -1).WithCause(ctxErr)
		}
	}

	if stderr.Len() > 0 {
		r.logger.Debug("wasi module stderr", "output", stderr.String())
	}
	r.logger.Debug("wasi module finished",
		"expression", req.Expression,
		"exit_code", exitCode)

	return decodeResponse(stdout.Bytes())
}

type errorDetail struct {
	Code     string `json:"code"`
	Message  string `json:"message"`
	Position int    `json:"position"`
}

type response struct {
	Mesh  *types.Mesh  `json:"mesh"`
	Error *errorDetail `json:"error"`
}

// decodeResponse parses the guest's stdout.
func decodeResponse(out []byte) (*types.Mesh, error) {
	if len(bytes.TrimSpace(out)) == 0 {
		return nil, ErrNoOutput
	}
	var resp response
	if err := json.Unmarshal(out, &resp); err != nil {
		return nil, errors.Wrap(err, "decode response")
	}
	if resp.Error != nil {
		if resp.Error.Code == "" {
			return nil, errors.New(resp.Error.Message)
		}
		return nil, types.NewError(types.ErrorCode(resp.Error.Code), resp.Error.Message, resp.Error.Position)
	}
	if resp.Mesh == nil {
		return nil, ErrNoOutput
	}
	return resp.Mesh, nil
}
