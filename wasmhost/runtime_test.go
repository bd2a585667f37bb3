package wasmhost

import (
	"context"
	stderrors "errors"
	"fmt"
	"sync"
	"testing"
	"time"

	"go.uber.org/zap"
	"go.uber.org/zap/zaptest/observer"

	"github.com/wippyai/obd-bridge/bridge"
	"github.com/wippyai/obd-bridge/errors"
	"github.com/wippyai/obd-bridge/internal/wasmgen"
)

func newRuntime(t *testing.T, cfg *Config) *Runtime {
	t.Helper()
	ctx := context.Background()
	r, err := New(ctx, cfg)
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	t.Cleanup(func() { _ = r.Close(ctx) })
	return r
}

func TestRuntime_Process(t *testing.T) {
	r := newRuntime(t, nil)
	ctx := context.Background()

	tests := []struct {
		input string
		want  string
	}{
		{"", "Processed: "},
		{"RPM=3000", "Processed: RPM=3000"},
		{"café", "Processed: café"},
		{"🚗 41 0C 1A F8", "Processed: 🚗 41 0C 1A F8"},
	}
	for _, tt := range tests {
		got, err := r.Process(ctx, tt.input)
		if err != nil {
			t.Fatalf("Process(%q): %v", tt.input, err)
		}
		if got != tt.want {
			t.Errorf("Process(%q) = %q, want %q", tt.input, got, tt.want)
		}
	}
}

func TestRuntime_ProcessLargeInputGrowsMemory(t *testing.T) {
	r := newRuntime(t, nil)

	input := make([]byte, 3*65536)
	for i := range input {
		input[i] = 'a' + byte(i%26)
	}
	got, err := r.Process(context.Background(), string(input))
	if err != nil {
		t.Fatal(err)
	}
	if want := "Processed: " + string(input); got != want {
		t.Errorf("len = %d, want %d", len(got), len(want))
	}
}

func TestRuntime_ProcessConcurrent(t *testing.T) {
	r := newRuntime(t, nil)
	ctx := context.Background()

	var wg sync.WaitGroup
	errs := make(chan error, 32)
	for i := 0; i < 32; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			in := fmt.Sprintf("SPEED=%d", i)
			got, err := r.Process(ctx, in)
			if err != nil {
				errs <- err
				return
			}
			if got != "Processed: "+in {
				errs <- fmt.Errorf("got %q for %q", got, in)
			}
		}(i)
	}
	wg.Wait()
	close(errs)
	for err := range errs {
		t.Error(err)
	}
}

func TestInstance_Reuse(t *testing.T) {
	r := newRuntime(t, nil)
	ctx := context.Background()

	mod, err := r.Compile(ctx, ForwardingGuest())
	if err != nil {
		t.Fatal(err)
	}
	inst, err := mod.Instantiate(ctx)
	if err != nil {
		t.Fatal(err)
	}
	defer inst.Close(ctx)

	for i := 0; i < 3; i++ {
		got, err := inst.Process(ctx, "TEMP=90")
		if err != nil {
			t.Fatal(err)
		}
		if got != "Processed: TEMP=90" {
			t.Errorf("call %d = %q", i, got)
		}
	}
}

func TestRuntime_Observer(t *testing.T) {
	var (
		mu       sync.Mutex
		outcomes []bridge.Outcome
	)
	obs := observerFunc(func(o bridge.Outcome, n int, _ time.Duration) {
		mu.Lock()
		defer mu.Unlock()
		outcomes = append(outcomes, o)
	})
	r := newRuntime(t, &Config{Observer: obs})

	if _, err := r.Process(context.Background(), "x"); err != nil {
		t.Fatal(err)
	}
	if len(outcomes) != 1 || outcomes[0] != bridge.OutcomeOK {
		t.Errorf("outcomes = %v, want [ok]", outcomes)
	}
}

type observerFunc func(bridge.Outcome, int, time.Duration)

func (f observerFunc) ObserveCall(o bridge.Outcome, n int, d time.Duration) { f(o, n, d) }

func TestRuntime_StrictRejectsInvalidUTF8(t *testing.T) {
	core, logs := observer.New(zap.WarnLevel)
	r := newRuntime(t, &Config{Strict: true, Logger: zap.New(core)})

	_, err := r.Process(context.Background(), "bad\xffbyte")
	if err == nil {
		t.Fatal("expected error for invalid UTF-8 in strict mode")
	}
	if logs.FilterMessage("guest call failed").Len() != 1 {
		t.Errorf("expected one failure log, got %d", logs.Len())
	}
}

func TestRuntime_LossyInvalidUTF8(t *testing.T) {
	r := newRuntime(t, nil)

	got, err := r.Process(context.Background(), "ok\xff")
	if err != nil {
		t.Fatal(err)
	}
	if got != "Processed: ok�" {
		t.Errorf("got %q", got)
	}
}

func TestCompile_MissingImports(t *testing.T) {
	r := newRuntime(t, nil)

	var m wasmgen.Module
	m.AddImport("env", "log", wasmgen.FuncType{Params: []wasmgen.ValType{wasmgen.I32}})
	m.AddImport(HostModule, "other", wasmgen.FuncType{})

	_, err := r.Compile(context.Background(), m.Encode())
	var missing *errors.MissingImportsError
	if !stderrors.As(err, &missing) {
		t.Fatalf("err = %v, want MissingImportsError", err)
	}
	if len(missing.Imports) != 2 {
		t.Fatalf("missing = %+v", missing.Imports)
	}
	if missing.Imports[0].Module != "env" || missing.Imports[0].Function != "log" {
		t.Errorf("first = %+v", missing.Imports[0])
	}
}

func TestCompile_SignatureMismatch(t *testing.T) {
	r := newRuntime(t, nil)

	var m wasmgen.Module
	m.AddImport(HostModule, HostFunc, wasmgen.FuncType{Params: []wasmgen.ValType{wasmgen.I32, wasmgen.I32}})

	_, err := r.Compile(context.Background(), m.Encode())
	if !stderrors.Is(err, errors.InvalidData(errors.PhaseLoad, "")) {
		t.Errorf("err = %v, want load/invalid_data", err)
	}
}

func TestCompile_Invalid(t *testing.T) {
	r := newRuntime(t, nil)
	if _, err := r.Compile(context.Background(), []byte("not wasm")); err == nil {
		t.Error("expected compile error")
	}
}

func TestInstantiate_MissingExports(t *testing.T) {
	r := newRuntime(t, nil)
	ctx := context.Background()

	var m wasmgen.Module
	m.Memories = append(m.Memories, wasmgen.Limits{Min: 1})
	m.Exports = append(m.Exports, wasmgen.Export{Name: ExportMemory, Kind: wasmgen.KindMemory})

	mod, err := r.Compile(ctx, m.Encode())
	if err != nil {
		t.Fatal(err)
	}
	if _, err := mod.Instantiate(ctx); !stderrors.Is(err, errors.NotFound(errors.PhaseLoad, "", "")) {
		t.Errorf("err = %v, want load/not_found", err)
	}
}

func TestRuntime_Closed(t *testing.T) {
	ctx := context.Background()
	r, err := New(ctx, nil)
	if err != nil {
		t.Fatal(err)
	}
	if err := r.Close(ctx); err != nil {
		t.Fatal(err)
	}
	if err := r.Close(ctx); err != nil {
		t.Errorf("second Close = %v", err)
	}
	if _, err := r.Compile(ctx, ForwardingGuest()); !stderrors.Is(err, errors.Closed(errors.PhaseRuntime, "")) {
		t.Errorf("err = %v, want runtime/closed", err)
	}
}

func TestRuntime_MemoryLimit(t *testing.T) {
	r := newRuntime(t, &Config{MemoryLimitPages: 2})

	_, err := r.Process(context.Background(), string(make([]byte, 4*65536)))
	if err == nil {
		t.Error("expected failure beyond the memory limit")
	}
}

func TestProcessSignature(t *testing.T) {
	sig := processSignature
	if got := sig.String(); got != "func(data: string) -> string" {
		t.Errorf("String() = %q", got)
	}
	if !sig.retptr || len(sig.flatParams) != 3 || len(sig.flatResults) != 0 {
		t.Errorf("flat = %v -> %v (retptr %v)", sig.flatParams, sig.flatResults, sig.retptr)
	}
}
