package adapters_test

import (
	"testing"

	"github.com/momentics/wsreactor/adapters"
	"github.com/momentics/wsreactor/api"
	"github.com/sugawarayuuta/sonnet"
)

func TestControlAdapterBasic(t *testing.T) {
	ctrl := adapters.NewControlAdapter()
	cfg := ctrl.GetConfig()
	if len(cfg) != 0 {
		t.Error("Expected empty config on init")
	}
	err := ctrl.SetConfig(map[string]any{"k": 1})
	if err != nil {
		t.Fatal(err)
	}
	stats := ctrl.Stats()
	if stats["k"] != 1 {
		t.Error("SetConfig did not apply")
	}
	called := false
	ctrl.OnReload(func() { called = true })
	ctrl.SetConfig(map[string]any{"x": 2})
	if !called {
		t.Error("Reload hook not called")
	}
}

func TestControlAdapterMetricsAndProbes(t *testing.T) {
	ctrl := adapters.NewControlAdapter()
	ctrl.AddMetric("messages_in", 2)
	if got := ctrl.AddMetric("messages_in", 3); got != 5 {
		t.Fatalf("counter = %d, want 5", got)
	}
	ctrl.RegisterDebugProbe("server.connections", func() any { return 7 })

	stats := ctrl.Stats()
	if stats["messages_in"] != int64(5) {
		t.Errorf("messages_in = %v", stats["messages_in"])
	}
	if stats["debug.server.connections"] != 7 {
		t.Errorf("probe missing: %v", stats)
	}
	if _, ok := stats["debug.platform.cpus"]; !ok {
		t.Error("platform probe not registered")
	}

	raw, err := ctrl.StatsJSON()
	if err != nil {
		t.Fatal(err)
	}
	var decoded map[string]any
	if err := sonnet.Unmarshal(raw, &decoded); err != nil {
		t.Fatal(err)
	}
	if decoded["messages_in"] != float64(5) {
		t.Errorf("json messages_in = %v", decoded["messages_in"])
	}
}

func TestControlAdapterRejectsNilConfig(t *testing.T) {
	ctrl := adapters.NewControlAdapter()
	if err := ctrl.SetConfig(nil); err != api.ErrInvalidArgument {
		t.Fatalf("err = %v", err)
	}
}

func TestControlAdapterDebugView(t *testing.T) {
	ctrl := adapters.NewControlAdapter()
	var dbg api.Debug = ctrl
	dbg.RegisterProbe("answer", func() any { return 42 })
	if dbg.DumpState()["answer"] != 42 {
		t.Errorf("DumpState = %v", dbg.DumpState())
	}
	if ctrl.Stats()["debug.answer"] != 42 {
		t.Error("probe missing from Stats")
	}
}
