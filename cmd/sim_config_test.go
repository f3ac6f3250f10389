package cmd

import (
	"errors"
	"os"
	"path/filepath"
	"testing"

	"github.com/spf13/pflag"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gopkg.in/yaml.v3"

	sim "github.com/crystal-sim/crystal-sim/sim"
	"github.com/crystal-sim/crystal-sim/sim/trace"
)

// newRunFlags returns a fresh flag set bound to the package flag variables,
// all reset to their defaults.
func newRunFlags(t *testing.T, args ...string) *pflag.FlagSet {
	t.Helper()
	fs := pflag.NewFlagSet("run", pflag.ContinueOnError)
	registerRunFlags(fs)
	require.NoError(t, fs.Parse(args))
	return fs
}

func writeFile(t *testing.T, name, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), name)
	require.NoError(t, os.WriteFile(path, []byte(content), 0o644))
	return path
}

func TestLoadSimConfig_MergesOverBase(t *testing.T) {
	// GIVEN a file that overrides a subset of fields
	path := writeFile(t, "sim.yaml", `
seed: 7
lattice:
  size: 12
kinetics:
  diffusion_barriers:
    z: 1.5
`)

	// WHEN loaded over the defaults
	cfg, err := loadSimConfig(path, sim.DefaultConfig())

	// THEN set fields change and everything else keeps its default
	require.NoError(t, err)
	assert.Equal(t, int64(7), cfg.Seed)
	assert.Equal(t, 12, cfg.Lattice.Size)
	assert.Equal(t, 800.0, cfg.Lattice.Temperature)
	assert.Equal(t, map[string]float64{"x": 0.75, "y": 0.95, "z": 1.5}, cfg.Kinetics.DiffusionBarriers)
	assert.True(t, cfg.Nucleation.Enabled)
}

func TestLoadSimConfig_DoesNotMutateBase(t *testing.T) {
	base := sim.DefaultConfig()
	path := writeFile(t, "sim.yaml", "kinetics:\n  diffusion_barriers:\n    x: 0.1\n")

	_, err := loadSimConfig(path, base)

	require.NoError(t, err)
	assert.Equal(t, 0.75, base.Kinetics.DiffusionBarriers["x"])
}

func TestLoadSimConfig_UnknownFieldRejected(t *testing.T) {
	path := writeFile(t, "sim.yaml", "lattice:\n  sise: 12\n")

	_, err := loadSimConfig(path, sim.DefaultConfig())

	assert.Error(t, err)
}

func TestLoadSimConfig_MissingFile(t *testing.T) {
	_, err := loadSimConfig(filepath.Join(t.TempDir(), "absent.yaml"), sim.DefaultConfig())
	assert.Error(t, err)
}

func TestBuildConfig_DefaultsWithoutFlags(t *testing.T) {
	fs := newRunFlags(t)

	cfg, err := buildConfig(fs)

	require.NoError(t, err)
	assert.Equal(t, sim.DefaultConfig(), cfg)
}

func TestBuildConfig_ExplicitFlagsOverrideFile(t *testing.T) {
	// GIVEN a config file setting size and temperature
	path := writeFile(t, "sim.yaml", "lattice:\n  size: 12\n  temperature: 900\n")

	// WHEN only --temperature and one barrier are set on the command line
	fs := newRunFlags(t,
		"--config", path,
		"--temperature", "700",
		"--diffusion-barriers", "y=0.5",
		"--no-nucleation",
	)
	cfg, err := buildConfig(fs)

	// THEN flags win where set and the file wins elsewhere
	require.NoError(t, err)
	assert.Equal(t, 12, cfg.Lattice.Size)
	assert.Equal(t, 700.0, cfg.Lattice.Temperature)
	assert.Equal(t, 0.5, cfg.Kinetics.DiffusionBarriers["y"])
	assert.Equal(t, 0.75, cfg.Kinetics.DiffusionBarriers["x"])
	assert.False(t, cfg.Nucleation.Enabled)
}

func TestBuildConfig_InvalidValues(t *testing.T) {
	tests := []struct {
		name string
		args []string
	}{
		{"unknown direction", []string{"--diffusion-barriers", "w=1"}},
		{"lattice too small", []string{"--size", "2"}},
		{"bad connectivity", []string{"--connectivity", "8"}},
		{"bad trace level", []string{"--trace-level", "all"}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := buildConfig(newRunFlags(t, tt.args...))
			require.Error(t, err)
			assert.True(t, errors.Is(err, sim.ErrInvalidConfig), "got %v", err)
		})
	}
}

func TestBuildConfig_NonNumericBarrier(t *testing.T) {
	_, err := buildConfig(newRunFlags(t, "--diffusion-barriers", "x=fast"))
	assert.Error(t, err)
}

func TestWriteTrace_RoundTrips(t *testing.T) {
	st := trace.NewSimulationTrace(trace.TraceConfig{Level: trace.TraceLevelSteps})
	st.RecordStep(trace.StepRecord{Step: 1, Event: "attach", Outcome: "executed", Dt: 1e-6, Time: 1e-6, Coverage: 0.2})
	st.RecordStep(trace.StepRecord{Step: 2, Event: "diffuse_z", Outcome: "no_available_move", Time: 1e-6, Coverage: 0.2})
	path := filepath.Join(t.TempDir(), "trace.yaml")

	require.NoError(t, writeTrace(path, st))

	data, err := os.ReadFile(path)
	require.NoError(t, err)
	var got trace.SimulationTrace
	require.NoError(t, yaml.Unmarshal(data, &got))
	assert.Equal(t, st.Steps, got.Steps)
}
