package config

import (
	stderrors "errors"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/ruediste/micro-blocks/errors"
	"github.com/ruediste/micro-blocks/machine"
)

func TestDefault(t *testing.T) {
	c := Default()
	if err := c.Validate(); err != nil {
		t.Fatal(err)
	}
	mc := c.MachineConfig()
	if mc.TimeSlice != machine.DefaultTimeSlice || mc.Tick != machine.DefaultTick {
		t.Errorf("machine config = %+v", mc)
	}
	if mc.FaultPolicy != machine.FaultSilent {
		t.Errorf("fault policy = %s", mc.FaultPolicy)
	}
}

func TestParse(t *testing.T) {
	c, err := Parse([]byte(`
[machine]
time_slice = "20ms"
fault_policy = "report"
max_memory = 4096

[log]
level = "debug"
development = true

[pins]
initial = { "4" = true, "12" = false }

[[extensions]]
path = "ext.wasm"
name = "ext"
`))
	if err != nil {
		t.Fatal(err)
	}

	mc := c.MachineConfig()
	if mc.TimeSlice != 20*time.Millisecond {
		t.Errorf("time slice = %v", mc.TimeSlice)
	}
	if mc.Tick != machine.DefaultTick {
		t.Errorf("tick default lost: %v", mc.Tick)
	}
	if mc.FaultPolicy != machine.FaultReport || mc.MaxMemory != 4096 {
		t.Errorf("machine config = %+v", mc)
	}
	if c.Log.Level != "debug" || !c.Log.Development {
		t.Errorf("log = %+v", c.Log)
	}
	if len(c.Extensions) != 1 || c.Extensions[0].Path != "ext.wasm" {
		t.Errorf("extensions = %+v", c.Extensions)
	}

	d, err := c.SimDriver()
	if err != nil {
		t.Fatal(err)
	}
	if !d.Level(4) || d.Level(12) {
		t.Error("pins not seeded")
	}
	if _, err := c.Logger(); err != nil {
		t.Errorf("logger: %v", err)
	}
}

func TestParseErrors(t *testing.T) {
	tests := []struct {
		name string
		toml string
	}{
		{"syntax", `[machine`},
		{"bad duration", "[machine]\ntime_slice = \"soon\""},
		{"fault policy", "[machine]\nfault_policy = \"loud\""},
		{"log level", "[log]\nlevel = \"chatty\""},
		{"pin number", "[pins]\ninitial = { \"300\" = true }"},
		{"extension path", "[[extensions]]\nname = \"x\""},
		{"negative memory", "[machine]\nmax_memory = -1"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := Parse([]byte(tt.toml))
			var e *errors.Error
			if !stderrors.As(err, &e) || e.Phase != errors.PhaseConfig {
				t.Fatalf("err = %v", err)
			}
		})
	}
}

func TestLoad(t *testing.T) {
	path := filepath.Join(t.TempDir(), "host.toml")
	if err := os.WriteFile(path, []byte("[machine]\ntick = \"5ms\"\n"), 0o644); err != nil {
		t.Fatal(err)
	}
	c, err := Load(path)
	if err != nil {
		t.Fatal(err)
	}
	if c.Machine.Tick.Duration != 5*time.Millisecond {
		t.Errorf("tick = %v", c.Machine.Tick)
	}

	if _, err := Load(filepath.Join(t.TempDir(), "missing.toml")); err == nil {
		t.Error("missing file accepted")
	}
}
