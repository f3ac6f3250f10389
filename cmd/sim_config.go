package cmd

import (
	"bytes"
	"fmt"
	"os"
	"strconv"

	"github.com/sirupsen/logrus"
	"github.com/spf13/pflag"
	"gopkg.in/yaml.v3"

	sim "github.com/crystal-sim/crystal-sim/sim"
	"github.com/crystal-sim/crystal-sim/sim/trace"
)

// loadSimConfig parses a YAML config file on top of base. Keys absent from the
// file keep their base values; diffusion barriers are merged per direction.
// Uses strict field checking: typos must cause errors.
func loadSimConfig(path string, base sim.Config) (sim.Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return base, fmt.Errorf("reading config: %w", err)
	}
	cfg := base
	cfg.Kinetics.DiffusionBarriers = make(map[string]float64, len(base.Kinetics.DiffusionBarriers))
	for k, v := range base.Kinetics.DiffusionBarriers {
		cfg.Kinetics.DiffusionBarriers[k] = v
	}
	decoder := yaml.NewDecoder(bytes.NewReader(data))
	decoder.KnownFields(true)
	if err := decoder.Decode(&cfg); err != nil {
		return base, fmt.Errorf("parsing config %s: %w", path, err)
	}
	return cfg, nil
}

// buildConfig layers defaults, the optional --config file and explicitly set
// flags, in that order. Flags left at their defaults never overwrite file values.
func buildConfig(flags *pflag.FlagSet) (sim.Config, error) {
	cfg := sim.DefaultConfig()
	if configPath != "" {
		loaded, err := loadSimConfig(configPath, cfg)
		if err != nil {
			return cfg, err
		}
		cfg = loaded
		logrus.Infof("Loaded config from %s", configPath)
	}

	if flags.Changed("seed") {
		cfg.Seed = seed
	}
	if flags.Changed("trace-level") {
		cfg.TraceLevel = traceLevel
	}
	if flags.Changed("check-invariants") {
		cfg.CheckInvariants = checkInvariants
	}
	if flags.Changed("size") {
		cfg.Lattice.Size = latticeSize
	}
	if flags.Changed("temperature") {
		cfg.Lattice.Temperature = temperature
	}
	if flags.Changed("attempt-frequency") {
		cfg.Kinetics.AttemptFrequency = attemptFrequency
	}
	if flags.Changed("attach-barrier") {
		cfg.Kinetics.AttachBarrier = attachBarrier
	}
	if flags.Changed("diffusion-barriers") {
		for dir, raw := range diffusionBarriers {
			v, err := strconv.ParseFloat(raw, 64)
			if err != nil {
				return cfg, fmt.Errorf("diffusion barrier %q: %w", dir, err)
			}
			cfg.Kinetics.DiffusionBarriers[dir] = v
		}
	}
	if flags.Changed("critical-size") {
		cfg.Nucleation.CriticalSize = criticalSize
	}
	if flags.Changed("connectivity") {
		cfg.Nucleation.Connectivity = connectivity
	}
	if flags.Changed("no-nucleation") {
		cfg.Nucleation.Enabled = !skipNucleation
	}

	if traceOutput != "" && cfg.TraceLevel != string(trace.TraceLevelSteps) {
		logrus.Warnf("--trace-output set but trace level is %q; the trace file will be empty", cfg.TraceLevel)
	}
	return cfg, cfg.Validate()
}

// writeTrace serializes the step trace as YAML.
func writeTrace(path string, st *trace.SimulationTrace) error {
	data, err := yaml.Marshal(st)
	if err != nil {
		return fmt.Errorf("encoding trace: %w", err)
	}
	if err := os.WriteFile(path, data, 0o644); err != nil {
		return fmt.Errorf("writing trace: %w", err)
	}
	logrus.Infof("Wrote %d trace records to %s", len(st.Steps), path)
	return nil
}
