package wasmhost

import (
	"context"
	"sync"

	"github.com/tetratelabs/wazero"
	"github.com/tetratelabs/wazero/api"
	"go.uber.org/zap"

	obdbridge "github.com/wippyai/obd-bridge"
	"github.com/wippyai/obd-bridge/bridge"
	"github.com/wippyai/obd-bridge/errors"
)

// Config configures a Runtime. The zero value is usable.
type Config struct {
	// MemoryLimitPages caps guest memory in 64KiB pages. 0 keeps the wazero default.
	MemoryLimitPages uint32

	// Strict enables the bridge's strict decoding.
	Strict bool

	Logger   *zap.Logger
	Observer bridge.Observer
}

// Runtime hosts the bridge function for WebAssembly guests.
type Runtime struct {
	rt   wazero.Runtime
	host *hostFunc
	log  *zap.Logger

	guestOnce sync.Once
	guest     *Module
	guestErr  error

	mu     sync.Mutex
	closed bool
}

// New creates a Runtime with the host module registered.
func New(ctx context.Context, cfg *Config) (*Runtime, error) {
	if cfg == nil {
		cfg = &Config{}
	}
	log := cfg.Logger
	if log == nil {
		log = zap.NewNop()
	}

	rc := wazero.NewRuntimeConfig()
	if cfg.MemoryLimitPages > 0 {
		rc = rc.WithMemoryLimitPages(cfg.MemoryLimitPages)
	}
	rt := wazero.NewRuntimeWithConfig(ctx, rc)

	opts := []bridge.Option{
		bridge.WithCodec(bridge.UTF8),
		bridge.WithStrict(cfg.Strict),
		bridge.WithLogger(log),
	}
	if cfg.Observer != nil {
		opts = append(opts, bridge.WithObserver(cfg.Observer))
	}

	host := &hostFunc{fn: bridge.New(opts...), log: log}
	if err := host.register(ctx, rt); err != nil {
		_ = rt.Close(ctx)
		return nil, err
	}

	return &Runtime{rt: rt, host: host, log: log}, nil
}

// Module is a compiled guest whose imports the Runtime satisfies.
type Module struct {
	r        *Runtime
	compiled wazero.CompiledModule
}

// Compile compiles a guest and checks that every function it imports is
// provided by the host module with a matching signature.
func (r *Runtime) Compile(ctx context.Context, wasm []byte) (*Module, error) {
	if err := r.checkOpen(); err != nil {
		return nil, err
	}

	compiled, err := r.rt.CompileModule(ctx, wasm)
	if err != nil {
		return nil, errors.Load("compile guest module", err)
	}

	if err := checkImports(compiled); err != nil {
		_ = compiled.Close(ctx)
		return nil, err
	}

	var exports []string
	for name := range compiled.ExportedFunctions() {
		exports = append(exports, name)
	}
	r.log.Debug("compiled guest", zap.Strings("exports", exports))

	return &Module{r: r, compiled: compiled}, nil
}

func checkImports(compiled wazero.CompiledModule) error {
	sig := processSignature
	var missing []string
	for _, def := range compiled.ImportedFunctions() {
		mod, name, _ := def.Import()
		if mod != HostModule || name != HostFunc {
			missing = append(missing, mod+"#"+name)
			continue
		}
		if !sameTypes(def.ParamTypes(), sig.flatParams) || !sameTypes(def.ResultTypes(), sig.flatResults) {
			return errors.New(errors.PhaseLoad, errors.KindInvalidData).
				Op(HostFunc).
				Detail("import signature does not match %s", sig).
				Build()
		}
	}
	if len(missing) > 0 {
		return errors.NewMissingImportsError(missing)
	}
	return nil
}

// Instantiate creates an anonymous instance of the module. The module must
// export memory, cabi_realloc and process.
func (m *Module) Instantiate(ctx context.Context) (*Instance, error) {
	if err := m.r.checkOpen(); err != nil {
		return nil, err
	}

	mod, err := m.r.rt.InstantiateModule(ctx, m.compiled, wazero.NewModuleConfig().WithName(""))
	if err != nil {
		return nil, errors.Instantiation(err)
	}

	inst := &Instance{
		mod:     mod,
		process: mod.ExportedFunction(ExportProcess),
		realloc: mod.ExportedFunction(ExportRealloc),
	}
	for name, fn := range map[string]api.Function{ExportProcess: inst.process, ExportRealloc: inst.realloc} {
		if fn == nil {
			_ = mod.Close(ctx)
			return nil, errors.NotFound(errors.PhaseLoad, "export", name)
		}
	}
	if mod.Memory() == nil {
		_ = mod.Close(ctx)
		return nil, errors.NotFound(errors.PhaseLoad, "export", ExportMemory)
	}
	return inst, nil
}

// Close releases the compiled module.
func (m *Module) Close(ctx context.Context) error {
	return m.compiled.Close(ctx)
}

// Process runs input through a fresh instance of the forwarding guest.
// Each call gets its own instance, so calls may run concurrently.
func (r *Runtime) Process(ctx context.Context, input string) (string, error) {
	r.guestOnce.Do(func() {
		r.guest, r.guestErr = r.Compile(ctx, ForwardingGuest())
	})
	if r.guestErr != nil {
		return "", r.guestErr
	}

	inst, err := r.guest.Instantiate(ctx)
	if err != nil {
		return "", err
	}
	defer inst.Close(ctx)

	return inst.Process(ctx, input)
}

// Close closes the runtime and every module instantiated from it.
func (r *Runtime) Close(ctx context.Context) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.closed {
		return nil
	}
	r.closed = true
	return r.rt.Close(ctx)
}

func (r *Runtime) checkOpen() error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.closed {
		return errors.Closed(errors.PhaseRuntime, "runtime")
	}
	return nil
}

// Instance is one guest instance. It is not safe for concurrent use.
type Instance struct {
	mod     api.Module
	process api.Function
	realloc api.Function
	mu      sync.Mutex
}

// Process copies input into guest memory, calls the guest's process export
// and reads the result string back out.
func (i *Instance) Process(ctx context.Context, input string) (string, error) {
	i.mu.Lock()
	defer i.mu.Unlock()

	mem := guestMemory{mem: i.mod.Memory()}
	var alloc obdbridge.Allocator = &guestAllocator{ctx: ctx, fn: i.realloc}

	n := uint32(len(input))
	ptr, err := alloc.Alloc(n, 1)
	if err != nil {
		return "", err
	}
	if err := mem.Write(ptr, []byte(input)); err != nil {
		return "", err
	}
	retptr, err := alloc.Alloc(8, 4)
	if err != nil {
		return "", err
	}

	if _, err := i.process.Call(ctx, uint64(ptr), uint64(n), uint64(retptr)); err != nil {
		return "", errors.New(errors.PhaseRuntime, errors.KindInvalidData).
			Op(ExportProcess).
			Cause(err).
			Build()
	}

	outPtr, err := mem.ReadU32(retptr)
	if err != nil {
		return "", err
	}
	outLen, err := mem.ReadU32(retptr + 4)
	if err != nil {
		return "", err
	}
	if outPtr == 0 && outLen == 0 {
		return "", errors.New(errors.PhaseRuntime, errors.KindInvalidData).
			Op(ExportProcess).
			Detail("host returned no result").
			Build()
	}
	out, err := mem.Read(outPtr, outLen)
	if err != nil {
		return "", err
	}
	return string(out), nil
}

// Close closes the instance.
func (i *Instance) Close(ctx context.Context) error {
	return i.mod.Close(ctx)
}
