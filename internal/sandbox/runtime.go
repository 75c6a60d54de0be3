package sandbox

import (
	"bytes"
	"context"
	"strconv"
	"sync/atomic"
	"time"

	"github.com/tetratelabs/wazero"
	"github.com/tetratelabs/wazero/imports/wasi_snapshot_preview1"
	"go.uber.org/zap"

	"github.com/opencrust/opencrust/errors"
	"github.com/opencrust/opencrust/internal/netguard"
)

// maxPageCount caps the memory limit clamp at the largest page count a
// uint32 can express (wazero pages are 64KiB each).
const maxPageCount = 1<<32 - 1

// Result is a completed execution's captured output.
type Result struct {
	Stdout []byte
	Stderr []byte
	Status int
}

// ResultKind classifies how an execution ended, letting callers translate
// failures into the right structured error without string-matching twice.
type ResultKind string

const (
	ResultOK             ResultKind = "ok"
	ResultTimeout        ResultKind = "timeout"
	ResultOutputTooLarge ResultKind = "output_too_large"
	ResultError          ResultKind = "error"
)

// Runtime hosts one compiled plugin module inside an isolated wazero
// engine. One Runtime is built per plugin and reused across calls; only the
// linker, store, and per-call context are rebuilt on every Execute.
type Runtime struct {
	manifest *Manifest
	engine   wazero.Runtime
	compiled wazero.CompiledModule

	instanceSeq atomic.Int64
	log         *zap.SugaredLogger
}

// nextInstanceName returns a unique module instance name so sequential
// calls to the same compiled module never collide in the engine's registry.
func (r *Runtime) nextInstanceName() string {
	n := r.instanceSeq.Add(1)
	return r.manifest.Name + "-" + strconv.Itoa(int(n))
}

// NewRuntime compiles wasmBytes into a wazero engine configured to tear
// itself down when a call's context is canceled (see Execute's deadline
// handling below).
func NewRuntime(ctx context.Context, manifest *Manifest, wasmBytes []byte, log *zap.SugaredLogger) (*Runtime, error) {
	cfg := wazero.NewRuntimeConfig().
		WithMemoryLimitPages(memoryLimitPages(manifest.Limits.MaxMemoryMB)).
		WithCloseOnContextDone(true)

	engine := wazero.NewRuntimeWithConfig(ctx, cfg)

	if _, err := wasi_snapshot_preview1.Instantiate(ctx, engine); err != nil {
		engine.Close(ctx)
		return nil, errors.WrapKind(err, errors.KindPlugin, "instantiate WASI host module")
	}

	compiled, err := engine.CompileModule(ctx, wasmBytes)
	if err != nil {
		engine.Close(ctx)
		return nil, errors.WrapKind(err, errors.KindPlugin, "compile plugin module")
	}

	r := &Runtime{
		manifest: manifest,
		engine:   engine,
		compiled: compiled,
		log:      log,
	}

	return r, nil
}

// Close releases the compiled module and engine.
func (r *Runtime) Close(ctx context.Context) error {
	return r.engine.Close(ctx)
}

// memoryLimitPages converts a megabyte limit into wazero's 64KiB page unit,
// saturating instead of overflowing and clamping to the platform maximum.
func memoryLimitPages(maxMemoryMB int) uint32 {
	if maxMemoryMB <= 0 {
		maxMemoryMB = 1
	}
	limitBytes := uint64(maxMemoryMB) * 1024 * 1024
	pages := limitBytes / 65536
	if pages > maxPageCount {
		return maxPageCount
	}
	return uint32(pages)
}

// Execute runs the plugin's _start entrypoint once, with args/env/stdin
// wired per the manifest's permissions, and stdout/stderr bounded to
// max_output_bytes per stream. A fresh module instance is created for every
// call so no guest state survives between executions.
func (r *Runtime) Execute(ctx context.Context, input Input) (Result, ResultKind, error) {
	mounts, err := resolveMounts(r.manifest)
	if err != nil {
		return Result{}, ResultError, err
	}

	env := filterEnv(r.manifest, input.Env)

	if len(r.manifest.Permissions.Network) > 0 {
		if _, err := netguard.ResolveAllowlist(ctx, r.manifest.Permissions.Network); err != nil {
			return Result{}, ResultError, err
		}
	}

	maxOut := r.manifest.Limits.MaxOutputBytes
	if maxOut < 1 {
		maxOut = 1
	}
	stdout := newBoundedBuffer(maxOut)
	stderr := newBoundedBuffer(maxOut)

	fsConfig := wazero.NewFSConfig()
	fsConfig = applyMounts(fsConfig, mounts)

	modCfg := wazero.NewModuleConfig().
		WithArgs(input.Args...).
		WithStdout(stdout).
		WithStderr(stderr).
		WithFSConfig(fsConfig).
		WithName(r.nextInstanceName())

	for _, kv := range env {
		modCfg = modCfg.WithEnv(kv.Key, kv.Value)
	}
	if len(input.Stdin) > 0 {
		modCfg = modCfg.WithStdin(bytes.NewReader(input.Stdin))
	}

	// WithCloseOnContextDone (set in NewRuntime) means a deadline here
	// aborts in-flight guest code by tearing down the whole engine, not
	// just this call. That is the blunt instrument wazero gives us for
	// preempting a hung module; a Manager that sees ResultTimeout
	// back from Execute should treat this Runtime as spent and build a
	// fresh one before its next call.
	timeoutSecs := r.manifest.Limits.TimeoutSecs
	if timeoutSecs < 1 {
		timeoutSecs = 1
	}
	callCtx, cancel := context.WithTimeout(ctx, time.Duration(timeoutSecs)*time.Second)
	defer cancel()

	mod, err := r.engine.InstantiateModule(callCtx, r.compiled, modCfg)
	if mod != nil {
		defer mod.Close(context.Background())
	}

	status, kind, runErr := classifyExecution(callCtx, err, stdout, stderr)
	return Result{Stdout: stdout.Bytes(), Stderr: stderr.Bytes(), Status: status}, kind, runErr
}

// Input is what the guest module receives for one execution.
type Input struct {
	Args  []string
	Env   map[string]string
	Stdin []byte
}

func classifyExecution(ctx context.Context, err error, stdout, stderr *boundedBuffer) (int, ResultKind, error) {
	if stdout.overflowed || stderr.overflowed {
		maxOut := stdout.limit
		return -1, ResultOutputTooLarge, errors.NewKind(errors.KindPlugin, errorTooLarge(maxOut))
	}

	if err == nil {
		return 0, ResultOK, nil
	}

	if ctx.Err() == context.DeadlineExceeded {
		return -1, ResultTimeout, errors.NewKind(errors.KindPlugin, "execution timed out")
	}

	if code, ok := exitCode(err); ok {
		return code, ResultOK, nil
	}

	return -1, ResultError, errors.WrapKind(err, errors.KindPlugin, "plugin execution failed")
}

func errorTooLarge(maxOut int) string {
	return "plugin output exceeded limit (" + strconv.Itoa(maxOut) + " bytes per stream)"
}
