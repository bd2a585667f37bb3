package bridge_test

import (
	"errors"
	"fmt"
	"strings"
	"sync"
	"testing"
	"time"

	"go.uber.org/zap"
	"go.uber.org/zap/zaptest/observer"

	"github.com/wippyai/obd-bridge/bridge"
	bridgeerrors "github.com/wippyai/obd-bridge/errors"
	"github.com/wippyai/obd-bridge/hostenv"
)

func call(t *testing.T, h *hostenv.Host, f *bridge.Function, in string) (bridge.Ref, bridge.Ref, string) {
	t.Helper()
	ref, err := h.NewString(in)
	if err != nil {
		t.Fatal(err)
	}
	out, err := f.CallErr(h, 0, ref)
	if err != nil {
		t.Fatalf("CallErr(%q): %v", in, err)
	}
	s, err := h.String(out)
	if err != nil {
		t.Fatalf("String(result): %v", err)
	}
	return ref, out, s
}

func TestProcessObdData(t *testing.T) {
	tests := []struct {
		input string
		want  string
	}{
		{"", "Processed: "},
		{"RPM=3000", "Processed: RPM=3000"},
		{"café", "Processed: café"},
		{"🚗 speed", "Processed: 🚗 speed"},
		{"a\x00b", "Processed: a\x00b"},
	}

	h := hostenv.New()
	defer h.Close()

	for _, tt := range tests {
		t.Run(tt.input, func(t *testing.T) {
			in, err := h.NewString(tt.input)
			if err != nil {
				t.Fatal(err)
			}
			out := bridge.ProcessObdData(h, 0, in)
			if out == 0 {
				t.Fatal("null result")
			}
			got, err := h.String(out)
			if err != nil {
				t.Fatal(err)
			}
			if got != tt.want {
				t.Errorf("got %q, want %q", got, tt.want)
			}
			if h.Outstanding() != 0 {
				t.Errorf("%d view(s) not released", h.Outstanding())
			}
		})
	}
}

func TestFunction_ResultIsIndependent(t *testing.T) {
	h := hostenv.New()
	defer h.Close()

	in, out, got := call(t, h, bridge.New(), "RPM=3000")
	if in == out {
		t.Fatal("result aliases input reference")
	}

	if err := h.DeleteRef(in); err != nil {
		t.Fatalf("DeleteRef(input): %v", err)
	}
	after, err := h.String(out)
	if err != nil {
		t.Fatalf("result invalidated by input release: %v", err)
	}
	if after != got {
		t.Errorf("result changed after input release: %q -> %q", got, after)
	}
}

func TestFunction_Repeatable(t *testing.T) {
	h := hostenv.New()
	defer h.Close()
	f := bridge.New()

	in, _ := h.NewString("COOLANT=90")
	var first string
	for i := 0; i < 5; i++ {
		out := f.Call(h, 0, in)
		s, err := h.String(out)
		if err != nil {
			t.Fatal(err)
		}
		if i == 0 {
			first = s
		} else if s != first {
			t.Fatalf("call %d = %q, want %q", i, s, first)
		}
	}
	// one input plus five results
	if h.Len() != 6 {
		t.Errorf("Len = %d, want 6", h.Len())
	}
}

func TestFunction_Concurrent(t *testing.T) {
	h := hostenv.New()
	defer h.Close()
	f := bridge.New()

	const n = 50
	var wg sync.WaitGroup
	errs := make(chan error, n)

	for i := 0; i < n; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			input := fmt.Sprintf("RPM=%d", i*100)
			in, err := h.NewString(input)
			if err != nil {
				errs <- err
				return
			}
			out := f.Call(h, 0, in)
			got, err := h.String(out)
			if err != nil {
				errs <- err
				return
			}
			if want := "Processed: " + input; got != want {
				errs <- fmt.Errorf("got %q, want %q", got, want)
			}
		}(i)
	}
	wg.Wait()
	close(errs)

	for err := range errs {
		t.Error(err)
	}
	if h.Outstanding() != 0 {
		t.Errorf("%d view(s) not released", h.Outstanding())
	}
}

func TestFunction_NullInput(t *testing.T) {
	h := hostenv.New()
	defer h.Close()

	t.Run("parity defers to host", func(t *testing.T) {
		_, err := bridge.New().CallErr(h, 0, 0)
		if !errors.Is(err, &bridgeerrors.Error{Phase: bridgeerrors.PhaseHost, Kind: bridgeerrors.KindInvalidData}) {
			t.Fatalf("err = %v, want host error", err)
		}
		if !errors.Is(err, &bridgeerrors.Error{Phase: bridgeerrors.PhaseHost, Kind: bridgeerrors.KindNullHandle}) {
			t.Errorf("host null error not in chain: %v", err)
		}
	})

	t.Run("strict rejects before host", func(t *testing.T) {
		env := &countingEnv{Env: h}
		ref, err := bridge.New(bridge.WithStrict(true)).CallErr(env, 0, 0)
		if ref != 0 {
			t.Errorf("ref = %d, want 0", ref)
		}
		if !errors.Is(err, bridge.ErrNullHandle) {
			t.Errorf("err = %v, want ErrNullHandle", err)
		}
		if env.gets != 0 {
			t.Errorf("host called %d time(s)", env.gets)
		}
	})
}

// countingEnv counts host calls and can inject failures.
type countingEnv struct {
	bridge.Env
	gets, releases int
	failNew        error
	chars          []byte
}

func (e *countingEnv) GetStringUTFChars(s bridge.Ref) ([]byte, error) {
	e.gets++
	if e.chars != nil {
		return e.chars, nil
	}
	return e.Env.GetStringUTFChars(s)
}

func (e *countingEnv) ReleaseStringUTFChars(s bridge.Ref, chars []byte) {
	e.releases++
	if e.chars == nil {
		e.Env.ReleaseStringUTFChars(s, chars)
	}
}

func (e *countingEnv) NewStringUTF(chars []byte) (bridge.Ref, error) {
	if e.failNew != nil {
		return 0, e.failNew
	}
	return e.Env.NewStringUTF(chars)
}

func TestFunction_ReleasesOnEveryPath(t *testing.T) {
	h := hostenv.New()
	defer h.Close()
	in, _ := h.NewString("MAF=12.5")

	t.Run("allocation failure", func(t *testing.T) {
		env := &countingEnv{Env: h, failNew: errors.New("out of memory")}
		ref, err := bridge.New().CallErr(env, 0, in)
		if ref != 0 || err == nil {
			t.Fatalf("got ref=%d err=%v, want failure", ref, err)
		}
		if env.gets != 1 || env.releases != 1 {
			t.Errorf("gets=%d releases=%d, want 1/1", env.gets, env.releases)
		}
		if h.Outstanding() != 0 {
			t.Errorf("%d view(s) not released", h.Outstanding())
		}
	})

	t.Run("strict decode failure", func(t *testing.T) {
		env := &countingEnv{Env: h, chars: []byte{'o', 'k', 0xFF}}
		_, err := bridge.New(bridge.WithStrict(true)).CallErr(env, 0, in)
		if !errors.Is(err, &bridgeerrors.Error{Phase: bridgeerrors.PhaseDecode, Kind: bridgeerrors.KindInvalidEncoding}) {
			t.Fatalf("err = %v, want invalid encoding", err)
		}
		if env.releases != 1 {
			t.Errorf("releases = %d, want 1", env.releases)
		}
	})
}

func TestFunction_LossyDecode(t *testing.T) {
	h := hostenv.New()
	defer h.Close()
	in, _ := h.NewString("unused")

	env := &countingEnv{Env: h, chars: []byte{'o', 'k', 0xFF}}
	out, err := bridge.New().CallErr(env, 0, in)
	if err != nil {
		t.Fatal(err)
	}
	got, _ := h.String(out)
	if got != "Processed: ok�" {
		t.Errorf("got %q", got)
	}
}

func TestFunction_UTF8Codec(t *testing.T) {
	h := hostenv.New()
	defer h.Close()
	in, _ := h.NewString("unused")

	// Standard UTF-8 for U+1F697, which modified UTF-8 rejects.
	env := &countingEnv{Env: h, chars: []byte{0xF0, 0x9F, 0x9A, 0x97}}
	var encoded []byte
	capture := &captureEnv{countingEnv: env, out: &encoded}

	if _, err := bridge.New(bridge.WithCodec(bridge.UTF8), bridge.WithStrict(true)).CallErr(capture, 0, in); err != nil {
		t.Fatal(err)
	}
	if string(encoded) != "Processed: 🚗" {
		t.Errorf("encoded = %q", encoded)
	}
}

type captureEnv struct {
	*countingEnv
	out *[]byte
}

func (e *captureEnv) NewStringUTF(chars []byte) (bridge.Ref, error) {
	*e.out = append([]byte(nil), chars...)
	return 1, nil
}

func TestFunction_WithTransform(t *testing.T) {
	h := hostenv.New()
	defer h.Close()

	f := bridge.New(bridge.WithTransform(strings.ToUpper))
	_, _, got := call(t, h, f, "rpm")
	if got != "RPM" {
		t.Errorf("got %q", got)
	}
}

type outcomeRecorder struct {
	mu       sync.Mutex
	outcomes []bridge.Outcome
	bytes    []int
}

func (r *outcomeRecorder) ObserveCall(o bridge.Outcome, n int, _ time.Duration) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.outcomes = append(r.outcomes, o)
	r.bytes = append(r.bytes, n)
}

func TestFunction_Observer(t *testing.T) {
	h := hostenv.New()
	defer h.Close()

	rec := &outcomeRecorder{}
	f := bridge.New(bridge.WithObserver(rec), bridge.WithStrict(true))

	call(t, h, f, "café")
	f.Call(h, 0, 0)

	if len(rec.outcomes) != 2 {
		t.Fatalf("outcomes = %v", rec.outcomes)
	}
	if rec.outcomes[0] != bridge.OutcomeOK || rec.bytes[0] != 5 {
		t.Errorf("first call = %s/%d, want ok/5", rec.outcomes[0], rec.bytes[0])
	}
	if rec.outcomes[1] != bridge.OutcomeNullInput {
		t.Errorf("second call = %s, want null_input", rec.outcomes[1])
	}
}

func TestFunction_LogsFailures(t *testing.T) {
	core, logs := observer.New(zap.WarnLevel)
	h := hostenv.New()
	defer h.Close()

	f := bridge.New(bridge.WithLogger(zap.New(core)))
	if ref := f.Call(h, 0, 0); ref != 0 {
		t.Fatalf("ref = %d, want 0", ref)
	}
	if logs.FilterMessage("bridge call failed").Len() != 1 {
		t.Errorf("expected one warning, got %v", logs.All())
	}
}

func TestSetDefault(t *testing.T) {
	prev := bridge.Default()
	defer bridge.SetDefault(prev)

	bridge.SetDefault(bridge.New(bridge.WithStrict(true)))
	if !bridge.Default().Strict() {
		t.Error("SetDefault did not take effect")
	}

	bridge.SetDefault(nil)
	if bridge.Default() == nil {
		t.Error("SetDefault(nil) cleared the default")
	}
}
