//go:build js && wasm

// Command gosurface-wasm-js is the WebAssembly entrypoint for browser and Node.js.
//
// It exposes a global `gosurface` object with the following API:
//
//	gosurface.version()                          → string
//	gosurface.normalize(expr)                    → string
//	gosurface.generate(expr, system, resolution) → meshJSON  (throws on compile error)
//	gosurface.compile(expr)                      → { canonical, variables, generate(system, resolution) }
//
// Build:
//
//	GOOS=js GOARCH=wasm go build -o gosurface.wasm ./cmd/wasm/js/
//
// Usage in browser:
//
//	<script src="wasm_exec.js"></script>
//	<script type="module">
//	  const go = new Go()
//	  const { instance } = await WebAssembly.instantiateStreaming(fetch('gosurface.wasm'), go.importObject)
//	  go.run(instance)
//	  const mesh = JSON.parse(gosurface.generate('sin(x) * cos(y)', 'cartesian', 60))
//	</script>
package main

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"syscall/js"

	"github.com/sandrolain/gosurface"
	"github.com/sandrolain/gosurface/pkg/mesh"
	"github.com/sandrolain/gosurface/pkg/pipeline"
	"github.com/sandrolain/gosurface/pkg/sampler"
	"github.com/sandrolain/gosurface/pkg/types"
)

// jsThrow panics with a JS Error so the caller receives a thrown exception.
func jsThrow(msg string) {
	js.Global().Get("Error").New(msg)
	panic(msg)
}

// request reads (system, resolution) from args starting at offset.
func request(fn string, args []js.Value, offset int) (types.CoordinateSystem, int) {
	system := types.Cartesian
	if len(args) > offset {
		s, err := types.ParseCoordinateSystem(args[offset].String())
		if err != nil {
			jsThrow(fmt.Sprintf("%s: %v", fn, err))
		}
		system = s
	}
	resolution := 0
	if len(args) > offset+1 {
		resolution = args[offset+1].Int()
	}
	return system, resolution
}

func generate(fn string, req types.SurfaceRequest) interface{} {
	res := p.Generate(context.Background(), req)
	if res.Err != nil {
		jsThrow(fmt.Sprintf("%s: %v", fn, res.Err))
	}
	out, err := json.Marshal(res.Mesh)
	if err != nil {
		jsThrow(fmt.Sprintf("%s: marshal mesh: %v", fn, err))
	}
	return string(out)
}

// p is shared by every call; the JS event loop is single-threaded.
var p = pipeline.New(pipeline.WithSamplerOptions(sampler.WithConcurrency(false)))

// jsGenerate implements gosurface.generate(expr, system, resolution) → meshJSON.
func jsGenerate(_ js.Value, args []js.Value) interface{} {
	if len(args) < 1 {
		jsThrow("gosurface.generate requires at least 1 argument: expression (string)")
	}
	system, resolution := request("gosurface.generate", args, 1)
	return generate("gosurface.generate", types.SurfaceRequest{
		Expression: args[0].String(),
		System:     system,
		Resolution: resolution,
	})
}

// jsCompile implements gosurface.compile(expr) → { canonical, variables, generate }.
func jsCompile(_ js.Value, args []js.Value) interface{} {
	if len(args) < 1 {
		jsThrow("gosurface.compile requires 1 argument: expression (string)")
	}
	source := args[0].String()

	expr, err := p.Compile(source)
	if err != nil {
		jsThrow(fmt.Sprintf("gosurface.compile: %v", err))
	}

	vars := make([]interface{}, len(expr.Variables()))
	for k, v := range expr.Variables() {
		vars[k] = v
	}

	generateFn := js.FuncOf(func(_ js.Value, innerArgs []js.Value) interface{} {
		system, resolution := request("compiled.generate", innerArgs, 0)
		return generate("compiled.generate", types.SurfaceRequest{
			Expression: source,
			System:     system,
			Resolution: resolution,
		})
	})

	return js.ValueOf(map[string]interface{}{
		"canonical": expr.String(),
		"variables": vars,
		"generate":  generateFn,
	})
}

// jsObj implements gosurface.obj(expr, system, resolution) → Wavefront OBJ text.
func jsObj(_ js.Value, args []js.Value) interface{} {
	if len(args) < 1 {
		jsThrow("gosurface.obj requires at least 1 argument: expression (string)")
	}
	system, resolution := request("gosurface.obj", args, 1)
	res := p.Generate(context.Background(), types.SurfaceRequest{
		Expression: args[0].String(),
		System:     system,
		Resolution: resolution,
	})
	if res.Err != nil {
		jsThrow(fmt.Sprintf("gosurface.obj: %v", res.Err))
	}
	var buf bytes.Buffer
	if err := mesh.WriteOBJ(&buf, res.Mesh); err != nil {
		jsThrow(fmt.Sprintf("gosurface.obj: %v", err))
	}
	return buf.String()
}

// jsNormalize implements gosurface.normalize(expr) → string.
func jsNormalize(_ js.Value, args []js.Value) interface{} {
	if len(args) < 1 {
		jsThrow("gosurface.normalize requires 1 argument: expression (string)")
	}
	return gosurface.Normalize(args[0].String())
}

// jsVersion implements gosurface.version() → string.
func jsVersion(_ js.Value, _ []js.Value) interface{} {
	return gosurface.Version()
}

func main() {
	api := map[string]interface{}{
		"generate":  js.FuncOf(jsGenerate),
		"compile":   js.FuncOf(jsCompile),
		"obj":       js.FuncOf(jsObj),
		"normalize": js.FuncOf(jsNormalize),
		"version":   js.FuncOf(jsVersion),
	}
	js.Global().Set("gosurface", js.ValueOf(api))

	// The JS event loop owns execution from here.
	select {}
}
