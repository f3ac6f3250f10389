package sim

import (
	"errors"
	"fmt"
	"math"
	"sort"

	"github.com/crystal-sim/crystal-sim/sim/cluster"
	"github.com/crystal-sim/crystal-sim/sim/lattice"
	"github.com/crystal-sim/crystal-sim/sim/nucleation"
	"github.com/crystal-sim/crystal-sim/sim/trace"
)

// ErrInvalidConfig is wrapped by every configuration validation failure.
var ErrInvalidConfig = errors.New("invalid simulation config")

// LatticeConfig groups the grid geometry and thermal conditions.
type LatticeConfig struct {
	Size        int     `yaml:"size"`        // side length N (must be >= 3)
	Temperature float64 `yaml:"temperature"` // K (must be > 0)
}

// KineticsConfig groups the Arrhenius parameters for attachment and diffusion.
type KineticsConfig struct {
	AttemptFrequency  float64            `yaml:"attempt_frequency"`  // pre-exponential factor A (Hz)
	AttachBarrier     float64            `yaml:"attach_barrier"`     // eV
	DiffusionBarriers map[string]float64 `yaml:"diffusion_barriers"` // eV, keyed "x", "y", "z"
}

// NucleationConfig groups classical nucleation theory constants and the
// cluster criterion for nucleation eligibility.
type NucleationConfig struct {
	Enabled            bool    `yaml:"enabled"`
	MeltingTemperature float64 `yaml:"melting_temperature"` // K
	LatentHeat         float64 `yaml:"latent_heat"`         // J/m³
	SurfaceEnergy      float64 `yaml:"surface_energy"`      // J/m²
	ContactAngleDeg    float64 `yaml:"contact_angle_deg"`
	AttemptFrequency   float64 `yaml:"attempt_frequency"` // Hz
	CriticalSize       int     `yaml:"critical_size"`
	Connectivity       int     `yaml:"connectivity"` // 6 or 26
}

// Config is the full, immutable-per-run simulation configuration.
type Config struct {
	Seed              int64            `yaml:"seed"`
	BoltzmannConstant float64          `yaml:"boltzmann_constant"` // eV/K
	CheckInvariants   bool             `yaml:"check_invariants"`
	TraceLevel        string           `yaml:"trace_level"` // "none" (default) or "steps"
	Lattice           LatticeConfig    `yaml:"lattice"`
	Kinetics          KineticsConfig   `yaml:"kinetics"`
	Nucleation        NucleationConfig `yaml:"nucleation"`
}

// DefaultConfig returns the reference parameter set.
func DefaultConfig() Config {
	return Config{
		Seed:              42,
		BoltzmannConstant: 8.617e-5,
		Lattice: LatticeConfig{
			Size:        30,
			Temperature: 800,
		},
		Kinetics: KineticsConfig{
			AttemptFrequency: 1e10,
			AttachBarrier:    1.0,
			DiffusionBarriers: map[string]float64{
				"x": 0.75,
				"y": 0.95,
				"z": 1.2,
			},
		},
		Nucleation: NucleationConfig{
			Enabled:            true,
			MeltingTemperature: 1700,
			LatentHeat:         1.0e9,
			SurfaceEnergy:      0.3,
			ContactAngleDeg:    60,
			AttemptFrequency:   1e10,
			CriticalSize:       4,
			Connectivity:       int(cluster.Full),
		},
	}
}

// Validate reports the first configuration problem found, wrapped in ErrInvalidConfig.
func (c Config) Validate() error {
	if err := c.validate(); err != nil {
		return fmt.Errorf("%w: %v", ErrInvalidConfig, err)
	}
	return nil
}

func (c Config) validate() error {
	if c.Lattice.Size < 3 {
		return fmt.Errorf("lattice size must be >= 3, got %d", c.Lattice.Size)
	}
	if err := validateFinitePositive("temperature", c.Lattice.Temperature); err != nil {
		return err
	}
	if err := validateFinitePositive("boltzmann_constant", c.BoltzmannConstant); err != nil {
		return err
	}
	if err := validateFinitePositive("kinetics.attempt_frequency", c.Kinetics.AttemptFrequency); err != nil {
		return err
	}
	if c.Kinetics.AttachBarrier < 0 || math.IsNaN(c.Kinetics.AttachBarrier) {
		return fmt.Errorf("attach barrier must be non-negative, got %g", c.Kinetics.AttachBarrier)
	}
	if _, err := c.Kinetics.axisBarriers(); err != nil {
		return err
	}
	if !trace.IsValidTraceLevel(c.TraceLevel) {
		return fmt.Errorf("unknown trace level %q; valid: none, steps", c.TraceLevel)
	}

	n := c.Nucleation
	volume := c.Lattice.Size * c.Lattice.Size * c.Lattice.Size
	if n.CriticalSize < 1 || n.CriticalSize > volume {
		return fmt.Errorf("critical size must be in [1, %d], got %d", volume, n.CriticalSize)
	}
	if _, err := cluster.ParseConnectivity(n.Connectivity); err != nil {
		return err
	}
	if !n.Enabled {
		return nil
	}
	if _, err := nucleation.NewCalculator(c.nucleationParams()); err != nil {
		return err
	}
	if c.Lattice.Temperature >= n.MeltingTemperature {
		return fmt.Errorf("temperature %g K must be below melting temperature %g K for nucleation",
			c.Lattice.Temperature, n.MeltingTemperature)
	}
	return nil
}

func (c Config) nucleationParams() nucleation.Params {
	return nucleation.Params{
		MeltingTemperature: c.Nucleation.MeltingTemperature,
		LatentHeat:         c.Nucleation.LatentHeat,
		SurfaceEnergy:      c.Nucleation.SurfaceEnergy,
		ContactAngleDeg:    c.Nucleation.ContactAngleDeg,
		AttemptFrequency:   c.Nucleation.AttemptFrequency,
		BoltzmannConstant:  c.BoltzmannConstant,
	}
}

// axisBarriers converts the keyed barrier map into per-axis values. Every axis
// must be present exactly once and no other key is accepted.
func (k KineticsConfig) axisBarriers() ([lattice.NumAxes]float64, error) {
	var out [lattice.NumAxes]float64
	var seen [lattice.NumAxes]bool
	keys := make([]string, 0, len(k.DiffusionBarriers))
	for key := range k.DiffusionBarriers {
		keys = append(keys, key)
	}
	sort.Strings(keys)
	for _, key := range keys {
		axis, err := lattice.ParseAxis(key)
		if err != nil {
			return out, fmt.Errorf("diffusion barrier: %w", err)
		}
		v := k.DiffusionBarriers[key]
		if v < 0 || math.IsNaN(v) || math.IsInf(v, 0) {
			return out, fmt.Errorf("diffusion barrier %q must be finite and non-negative, got %g", key, v)
		}
		out[axis] = v
		seen[axis] = true
	}
	for axis, ok := range seen {
		if !ok {
			return out, fmt.Errorf("missing diffusion barrier for direction %q", lattice.Axis(axis))
		}
	}
	return out, nil
}

func validateFinitePositive(name string, v float64) error {
	if math.IsNaN(v) || math.IsInf(v, 0) || v <= 0 {
		return fmt.Errorf("%s must be finite and positive, got %g", name, v)
	}
	return nil
}
