//go:build wasip1

// Command gosurface-wasm-wasi is the WASI (wasip1) entrypoint for use from any
// language that supports the WebAssembly System Interface.
//
// Protocol: single JSON object on stdin → single JSON object on stdout.
//
//	stdin:  { "expression": "<expr>", "system": "cartesian", "resolution": 50 }
//	stdout: { "mesh": { "positions": ..., "indices": ... } }   on success
//	        { "error": { "code": "S0201", "message": "..." } } on failure (exit code 1)
//
// Build:
//
//	GOOS=wasip1 GOARCH=wasm go build -o gosurface.wasm ./cmd/wasm/wasi/
//
// Usage with wasmtime CLI:
//
//	echo '{"expression":"sin(x) * cos(y)","system":"cartesian","resolution":20}' | wasmtime gosurface.wasm
//
// The module can also be run in-process from Go with pkg/wasihost.
package main

import (
	"context"
	"encoding/json"
	"os"

	"github.com/sandrolain/gosurface"
	"github.com/sandrolain/gosurface/pkg/types"
)

type errorDetail struct {
	Code     string `json:"code,omitempty"`
	Message  string `json:"message"`
	Position int    `json:"position"`
}

type response struct {
	Mesh  *types.Mesh  `json:"mesh,omitempty"`
	Error *errorDetail `json:"error,omitempty"`
}

func writeResponse(r response, exitCode int) {
	_ = json.NewEncoder(os.Stdout).Encode(r)
	os.Exit(exitCode)
}

func main() {
	var req types.SurfaceRequest
	if err := json.NewDecoder(os.Stdin).Decode(&req); err != nil {
		writeResponse(response{Error: &errorDetail{Message: "invalid request JSON: " + err.Error(), Position: -1}}, 1)
	}

	res := gosurface.Generate(context.Background(), req)
	if res.Err != nil {
		writeResponse(response{Error: &errorDetail{
			Code:     string(res.Err.Code),
			Message:  res.Err.Message,
			Position: res.Err.Position,
		}}, 1)
	}

	writeResponse(response{Mesh: res.Mesh}, 0)
}
