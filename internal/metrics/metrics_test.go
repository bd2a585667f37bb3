package metrics

import (
	"strings"
	"testing"
	"time"

	"github.com/wippyai/obd-bridge/bridge"
)

func gatherText(t *testing.T, c *Collector) string {
	t.Helper()
	var sb strings.Builder
	if err := c.WriteText(&sb); err != nil {
		t.Fatal(err)
	}
	return sb.String()
}

func TestCollector_ObserveCall(t *testing.T) {
	c := New("host")

	c.ObserveCall(bridge.OutcomeOK, 8, time.Microsecond)
	c.ObserveCall(bridge.OutcomeOK, 12, time.Microsecond)
	c.ObserveCall(bridge.OutcomeNullInput, 0, time.Microsecond)

	out := gatherText(t, c)
	for _, want := range []string{
		`obdbridge_calls_total{backend="host",outcome="ok"} 2`,
		`obdbridge_calls_total{backend="host",outcome="null_input"} 1`,
		`obdbridge_input_bytes_sum{backend="host"} 20`,
		`obdbridge_input_bytes_count{backend="host"} 3`,
	} {
		if !strings.Contains(out, want) {
			t.Errorf("output missing %q:\n%s", want, out)
		}
	}
}

func TestCollector_WriteText(t *testing.T) {
	c := New("wasm")
	c.ObserveCall(bridge.OutcomeOK, 4, time.Millisecond)

	out := gatherText(t, c)
	for _, want := range []string{
		"# TYPE obdbridge_calls_total counter",
		"# TYPE obdbridge_input_bytes histogram",
		`obdbridge_call_duration_seconds_count{backend="wasm"} 1`,
	} {
		if !strings.Contains(out, want) {
			t.Errorf("output missing %q:\n%s", want, out)
		}
	}
}

func TestCollector_Empty(t *testing.T) {
	c := New("host")
	out := gatherText(t, c)
	if strings.Contains(out, "obdbridge_calls_total{") {
		t.Errorf("unexpected counter series before any call:\n%s", out)
	}
	if c.Registry() == nil {
		t.Error("Registry() = nil")
	}
}
