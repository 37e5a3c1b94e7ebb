//go:build (js && wasm) || wasip1

package sampler

// init sets WebAssembly-specific defaults for all Samplers created in this
// process.
//
// On js/wasm the JavaScript runtime is single-threaded: goroutines are
// multiplexed cooperatively on one OS thread, so a worker pool only adds
// scheduling overhead to a CPU-bound pass.
//
// On wasip1 the WASI threading proposal is not supported by the Go runtime and
// the same default applies.
func init() {
	defaultConcurrency = false
}
