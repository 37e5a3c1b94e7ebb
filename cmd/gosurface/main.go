// Command gosurface normalizes, compiles and meshes surface expressions, and
// serves the surface API over HTTP.
//
// Usage:
//
//	gosurface normalize [-steps] EXPR
//	gosurface compile EXPR
//	gosurface mesh [-system cartesian] [-format obj|json] [-o FILE] [-wasi MODULE] EXPR
//	gosurface assist [-assistant-url URL] PROMPT
//	gosurface serve [-config FILE] [-listen :8080]
//
// Every subcommand accepts -config FILE (YAML) and the common flags
// -resolution, -workers, -concurrency, -cache-size, -log-level and
// -log-format. Flags override the file.
package main

import (
	"context"
	"flag"
	"fmt"
	"io"
	"os"
	"os/signal"
	"syscall"

	"github.com/sandrolain/gosurface"
)

type command struct {
	name    string
	summary string
	run     func(ctx context.Context, env *env, args []string) error
}

// env carries the process streams so commands can be tested.
type env struct {
	stdin  io.Reader
	stdout io.Writer
	stderr io.Writer
}

var commands = []command{
	{"normalize", "rewrite user syntax into the canonical grammar", runNormalize},
	{"compile", "print the canonical tree and free variables", runCompile},
	{"mesh", "generate a mesh as Wavefront OBJ or JSON", runMesh},
	{"assist", "suggest a surface for a description", runAssist},
	{"serve", "serve the HTTP API", runServe},
}

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	code := run(ctx, &env{stdin: os.Stdin, stdout: os.Stdout, stderr: os.Stderr}, os.Args[1:])
	stop()
	os.Exit(code)
}

// run dispatches args to a subcommand and returns the exit code.
func run(ctx context.Context, e *env, args []string) int {
	if len(args) == 0 {
		usage(e.stderr)
		return 2
	}

	name := args[0]
	switch name {
	case "-h", "-help", "--help", "help":
		usage(e.stdout)
		return 0
	case "version", "-version", "--version":
		fmt.Fprintln(e.stdout, gosurface.Version())
		return 0
	}

	for _, cmd := range commands {
		if cmd.name != name {
			continue
		}
		if err := cmd.run(ctx, e, args[1:]); err != nil {
			if err == flag.ErrHelp {
				return 0
			}
			fmt.Fprintf(e.stderr, "gosurface %s: %v\n", name, err)
			return exitCode(err)
		}
		return 0
	}

	fmt.Fprintf(e.stderr, "gosurface: unknown command %q\n\n", name)
	usage(e.stderr)
	return 2
}

func usage(w io.Writer) {
	fmt.Fprintln(w, "Usage: gosurface <command> [flags] [args]")
	fmt.Fprintln(w)
	fmt.Fprintln(w, "Commands:")
	for _, cmd := range commands {
		fmt.Fprintf(w, "  %-10s %s\n", cmd.name, cmd.summary)
	}
	fmt.Fprintln(w, "  version    print the version")
}
