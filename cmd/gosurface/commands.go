package main

import (
	"bufio"
	"context"
	"encoding/json"
	"flag"
	"fmt"
	"io"
	"log/slog"
	"os"
	"strings"
	"time"

	"github.com/pkg/errors"

	"github.com/sandrolain/gosurface/pkg/assistant"
	"github.com/sandrolain/gosurface/pkg/cache"
	"github.com/sandrolain/gosurface/pkg/config"
	"github.com/sandrolain/gosurface/pkg/mesh"
	"github.com/sandrolain/gosurface/pkg/metrics"
	"github.com/sandrolain/gosurface/pkg/pipeline"
	"github.com/sandrolain/gosurface/pkg/preprocess"
	"github.com/sandrolain/gosurface/pkg/sampler"
	"github.com/sandrolain/gosurface/pkg/server"
	"github.com/sandrolain/gosurface/pkg/types"
	"github.com/sandrolain/gosurface/pkg/wasihost"
)

// assistTimeout bounds a remote assistant call from the CLI.
const assistTimeout = 30 * time.Second

// usageError marks bad invocations, which exit with status 2.
type usageError struct{ msg string }

func (e usageError) Error() string { return e.msg }

func exitCode(err error) int {
	var ue usageError
	if errors.As(err, &ue) {
		return 2
	}
	return 1
}

// parseConfig parses args twice: once to find -config, then again on top of
// the loaded file so explicit flags win over file values.
func parseConfig(e *env, name string, args []string, extra func(fs *flag.FlagSet, cfg *config.Config)) (config.Config, *flag.FlagSet, error) {
	build := func(cfg *config.Config, out io.Writer) (*flag.FlagSet, *string) {
		fs := flag.NewFlagSet(name, flag.ContinueOnError)
		fs.SetOutput(out)
		path := fs.String("config", "", "YAML configuration file")
		cfg.RegisterFlags(fs)
		if extra != nil {
			extra(fs, cfg)
		}
		return fs, path
	}

	cfg := config.Default()
	fs, path := build(&cfg, e.stderr)
	if err := fs.Parse(args); err != nil {
		if err == flag.ErrHelp {
			return cfg, fs, err
		}
		return cfg, fs, usageError{err.Error()}
	}
	if *path == "" {
		return cfg, fs, cfg.Validate()
	}

	loaded, err := config.Load(*path)
	if err != nil {
		return loaded, fs, err
	}
	fs, _ = build(&loaded, io.Discard)
	if err := fs.Parse(args); err != nil {
		return loaded, fs, usageError{err.Error()}
	}
	return loaded, fs, loaded.Validate()
}

// expressionArg joins the positional arguments, or reads stdin when there
// are none or the only one is "-".
func expressionArg(e *env, fs *flag.FlagSet) (string, error) {
	args := fs.Args()
	if len(args) == 0 || (len(args) == 1 && args[0] == "-") {
		data, err := io.ReadAll(e.stdin)
		if err != nil {
			return "", errors.Wrap(err, "read stdin")
		}
		args = []string{strings.TrimSpace(string(data))}
	}
	expr := strings.Join(args, " ")
	if strings.TrimSpace(expr) == "" {
		return "", usageError{"missing expression"}
	}
	return expr, nil
}

func newPipeline(cfg config.Config, logger *slog.Logger, m *metrics.Metrics) *pipeline.Pipeline {
	opts := []pipeline.Option{
		pipeline.WithResolution(cfg.Resolution),
		pipeline.WithLogger(logger),
		pipeline.WithSamplerOptions(
			sampler.WithConcurrency(cfg.Concurrency),
			sampler.WithWorkers(cfg.Workers),
		),
	}
	if cfg.CacheSize > 0 {
		opts = append(opts, pipeline.WithCache(cache.New(cfg.CacheSize)))
	}
	if m != nil {
		opts = append(opts, pipeline.WithMetrics(m))
	}
	return pipeline.New(opts...)
}

func newAssistant(url string) assistant.Assistant {
	if url == "" {
		return assistant.NewCatalog()
	}
	return assistant.NewRemote(url, assistTimeout)
}

func writeJSON(w io.Writer, v any) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}

func runNormalize(ctx context.Context, e *env, args []string) error {
	var steps bool
	_, fs, err := parseConfig(e, "normalize", args, func(fs *flag.FlagSet, _ *config.Config) {
		fs.BoolVar(&steps, "steps", false, "print every normalization stage as JSON")
	})
	if err != nil {
		return err
	}
	expr, err := expressionArg(e, fs)
	if err != nil {
		return err
	}

	if steps {
		return writeJSON(e.stdout, preprocess.Steps(expr))
	}
	_, err = fmt.Fprintln(e.stdout, preprocess.Normalize(expr))
	return err
}

// compileOutput is printed by the compile command.
type compileOutput struct {
	Normalized string   `json:"normalized"`
	Canonical  string   `json:"canonical"`
	Variables  []string `json:"variables"`
}

func runCompile(ctx context.Context, e *env, args []string) error {
	var asJSON bool
	cfg, fs, err := parseConfig(e, "compile", args, func(fs *flag.FlagSet, _ *config.Config) {
		fs.BoolVar(&asJSON, "json", false, "print the result as JSON")
	})
	if err != nil {
		return err
	}
	src, err := expressionArg(e, fs)
	if err != nil {
		return err
	}

	p := newPipeline(cfg, cfg.Log.NewLogger(e.stderr), nil)
	expr, err := p.Compile(src)
	if err != nil {
		return err
	}

	out := compileOutput{
		Normalized: expr.Source(),
		Canonical:  expr.String(),
		Variables:  expr.Variables(),
	}
	if out.Variables == nil {
		out.Variables = []string{}
	}
	if asJSON {
		return writeJSON(e.stdout, out)
	}
	fmt.Fprintf(e.stdout, "canonical: %s\n", out.Canonical)
	_, err = fmt.Fprintf(e.stdout, "variables: %s\n", strings.Join(out.Variables, ", "))
	return err
}

func runMesh(ctx context.Context, e *env, args []string) error {
	var (
		system = "cartesian"
		format = "obj"
		output string
		module string
	)
	cfg, fs, err := parseConfig(e, "mesh", args, func(fs *flag.FlagSet, _ *config.Config) {
		fs.StringVar(&system, "system", system, "coordinate system: cartesian, spherical, cylindrical")
		fs.StringVar(&format, "format", format, "output format: obj or json")
		fs.StringVar(&output, "o", "", "output file (default stdout)")
		fs.StringVar(&module, "wasi", "", "generate inside this WASI build of gosurface")
	})
	if err != nil {
		return err
	}
	src, err := expressionArg(e, fs)
	if err != nil {
		return err
	}
	sys, err := types.ParseCoordinateSystem(system)
	if err != nil {
		return usageError{err.Error()}
	}
	if format != "obj" && format != "json" {
		return usageError{fmt.Sprintf("unknown format %q", format)}
	}

	logger := cfg.Log.NewLogger(e.stderr)
	req := types.SurfaceRequest{Expression: src, System: sys, Resolution: cfg.Resolution}

	var m *types.Mesh
	if module != "" {
		m, err = generateWASI(ctx, module, req, logger)
	} else {
		res := newPipeline(cfg, logger, nil).Generate(ctx, req)
		if !res.OK() {
			return res.Err
		}
		m = res.Mesh
	}
	if err != nil {
		return err
	}

	if output == "" {
		err = writeMesh(e.stdout, format, m)
	} else {
		err = writeMeshFile(output, format, m)
	}
	if err != nil {
		return err
	}

	s := mesh.Summarize(m)
	logger.Info("mesh written", "system", sys, "resolution", m.Resolution, "vertices", s.Vertices, "triangles", s.Triangles)
	return nil
}

func writeMesh(w io.Writer, format string, m *types.Mesh) error {
	bw := bufio.NewWriter(w)
	var err error
	if format == "json" {
		err = json.NewEncoder(bw).Encode(m)
	} else {
		err = mesh.WriteOBJ(bw, m)
	}
	if err != nil {
		return errors.Wrap(err, "write mesh")
	}
	return errors.Wrap(bw.Flush(), "write mesh")
}

func writeMeshFile(path, format string, m *types.Mesh) error {
	f, err := os.Create(path)
	if err != nil {
		return errors.Wrap(err, "create output")
	}
	return closeOutput(f, writeMesh(f, format, m))
}

// closeOutput closes c and returns err, or the close error when err is nil.
func closeOutput(c io.Closer, err error) error {
	if cerr := c.Close(); cerr != nil && err == nil {
		return errors.Wrap(cerr, "close output")
	}
	return err
}

func generateWASI(ctx context.Context, path string, req types.SurfaceRequest, logger *slog.Logger) (*types.Mesh, error) {
	r, err := wasihost.Load(ctx, path, wasihost.WithLogger(logger))
	if err != nil {
		return nil, err
	}
	defer r.Close(ctx)
	return r.Generate(ctx, req)
}

func runAssist(ctx context.Context, e *env, args []string) error {
	cfg, fs, err := parseConfig(e, "assist", args, func(fs *flag.FlagSet, cfg *config.Config) {
		fs.StringVar(&cfg.Server.AssistantURL, "assistant-url", cfg.Server.AssistantURL, "remote assistant endpoint")
	})
	if err != nil {
		return err
	}
	prompt, err := expressionArg(e, fs)
	if err != nil {
		return err
	}

	s, err := newAssistant(cfg.Server.AssistantURL).Suggest(ctx, prompt)
	if err != nil {
		return errors.Wrap(err, "assistant")
	}
	if s == nil {
		return errors.Errorf("no surface matches %q", prompt)
	}
	return writeJSON(e.stdout, s)
}

func runServe(ctx context.Context, e *env, args []string) error {
	cfg, fs, err := parseConfig(e, "serve", args, func(fs *flag.FlagSet, cfg *config.Config) {
		cfg.RegisterServerFlags(fs)
	})
	if err != nil {
		return err
	}
	if fs.NArg() > 0 {
		return usageError{fmt.Sprintf("unexpected arguments: %s", strings.Join(fs.Args(), " "))}
	}

	logger := cfg.Log.NewLogger(e.stderr)
	m := metrics.New(nil)
	p := newPipeline(cfg, logger, m)

	opts := []server.Option{
		server.WithBodyLimit(cfg.Server.BodyLimit),
		server.WithMaxResolution(config.MaxResolution),
		server.WithAssistant(newAssistant(cfg.Server.AssistantURL)),
		server.WithMetrics(m),
		server.WithLogger(logger),
		server.WithTimeouts(cfg.Server.ReadTimeout, cfg.Server.WriteTimeout),
	}
	if cfg.Server.RateLimit.Enabled {
		opts = append(opts, server.WithRateLimit(cfg.Server.RateLimit.RPS, cfg.Server.RateLimit.Burst))
	}

	logger.Debug("effective configuration", "config", cfg.String())
	return server.New(p, opts...).Run(ctx, cfg.Server.Listen)
}
