package cmd

import (
	"context"
	"os"
	"os/signal"

	"github.com/sirupsen/logrus"
	"github.com/spf13/cobra"
	"github.com/spf13/pflag"

	sim "github.com/crystal-sim/crystal-sim/sim"
	"github.com/crystal-sim/crystal-sim/sim/trace"
)

var (
	// CLI flags for the run itself
	seed            int64   // Seed for the kinetic random stream
	logLevel        string  // Log verbosity level
	configPath      string  // Optional YAML config layered over the defaults
	numSteps        int     // Step attempts to make
	maxCoverage     float64 // Stop once occupied/volume reaches this fraction
	observeEvery    int     // Log a progress line every N attempts (0 = never)
	traceLevel      string  // Step trace verbosity
	traceOutput     string  // Path for the YAML step trace (empty = don't write)
	checkInvariants bool    // Verify index sets after every mutation

	// CLI flags for lattice and kinetics
	latticeSize       int               // Side length N of the cubic lattice
	temperature       float64           // Substrate temperature (K)
	attemptFrequency  float64           // Arrhenius pre-exponential factor (Hz)
	attachBarrier     float64           // Attachment barrier (eV)
	diffusionBarriers map[string]string // Per-direction diffusion barriers (eV)

	// CLI flags for nucleation
	criticalSize   int  // Minimum cluster size eligible for nucleation
	connectivity   int  // Cluster connectivity, 6 or 26
	skipNucleation bool // Disable the nucleation event class
)

// rootCmd is the base command for the CLI
var rootCmd = &cobra.Command{
	Use:   "crystal-sim",
	Short: "Kinetic Monte Carlo simulator for crystal growth on a cubic lattice",
}

// runCmd executes the simulation using parameters from defaults, config file and CLI flags
var runCmd = &cobra.Command{
	Use:   "run",
	Short: "Run the crystal growth simulation",
	Run: func(cmd *cobra.Command, args []string) {
		// Set up logging
		level, err := logrus.ParseLevel(logLevel)
		if err != nil {
			logrus.Fatalf("Invalid log level: %s", logLevel)
		}
		logrus.SetLevel(level)

		cfg, err := buildConfig(cmd.Flags())
		if err != nil {
			logrus.Fatalf("Invalid configuration: %v", err)
		}

		engine, err := sim.New(cfg)
		if err != nil {
			logrus.Fatalf("Unable to initialize simulation: %v", err)
		}

		logrus.Infof("Starting simulation with lattice=%d^3, T=%gK, seed=%d, barriers=%v",
			cfg.Lattice.Size, cfg.Lattice.Temperature, cfg.Seed, cfg.Kinetics.DiffusionBarriers)

		ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt)
		defer stop()

		opts := sim.RunOptions{Steps: numSteps, MaxCoverage: maxCoverage}
		if observeEvery > 0 {
			opts.ObserveEvery = observeEvery
			opts.Observer = logProgress
		}
		metrics, runErr := engine.Run(ctx, opts)
		metrics.Print(os.Stdout)

		if engine.Trace().Config.Enabled() {
			logTraceSummary(trace.Summarize(engine.Trace()))
		}
		if traceOutput != "" {
			if err := writeTrace(traceOutput, engine.Trace()); err != nil {
				logrus.Errorf("Unable to write trace: %v", err)
			}
		}
		if runErr != nil {
			logrus.Fatalf("Simulation aborted: %v", runErr)
		}

		logrus.Info("Simulation complete.")
	},
}

func logProgress(s sim.Snapshot) {
	logrus.WithFields(logrus.Fields{
		"event":    s.Last.Event.String(),
		"mobile":   s.Lattice.MobileCount(),
		"clusters": s.Clusters.TotalClusters,
		"critical": s.Clusters.CriticalClusters,
	}).Infof("[step %07d] t=%.3e coverage=%.1f%%", s.Steps, s.Time, 100*s.Coverage)
}

func logTraceSummary(s *trace.TraceSummary) {
	logrus.WithFields(logrus.Fields{
		"executed": s.ExecutedCount,
		"stalled":  s.StalledCount,
		"mean_dt":  s.MeanDt,
		"max_dt":   s.MaxDt,
	}).Infof("Trace summary: %d records, final t=%.3e", s.TotalSteps, s.FinalTime)
}

// Execute runs the CLI root command
func Execute() {
	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}

// registerRunFlags binds the run flags to their package variables, resetting
// each variable to its default.
func registerRunFlags(fs *pflag.FlagSet) {
	defaults := sim.DefaultConfig()

	fs.Int64Var(&seed, "seed", defaults.Seed, "Seed for the kinetic random stream")
	fs.StringVar(&logLevel, "log", "warn", "Log level (trace, debug, info, warn, error, fatal, panic)")
	fs.StringVar(&configPath, "config", "", "YAML config file layered over the built-in defaults")
	fs.IntVar(&numSteps, "steps", 10000, "Number of step attempts")
	fs.Float64Var(&maxCoverage, "max-coverage", 0.95, "Stop once this fraction of the lattice is occupied (0 disables)")
	fs.IntVar(&observeEvery, "observe-every", 150, "Log progress every N attempts (0 disables)")
	fs.StringVar(&traceLevel, "trace-level", "none", "Step trace verbosity (none, steps)")
	fs.StringVar(&traceOutput, "trace-output", "", "Write the step trace to this YAML file (requires --trace-level steps)")
	fs.BoolVar(&checkInvariants, "check-invariants", false, "Verify lattice index sets after every mutation")

	// Lattice and kinetics
	fs.IntVar(&latticeSize, "size", defaults.Lattice.Size, "Lattice side length N")
	fs.Float64Var(&temperature, "temperature", defaults.Lattice.Temperature, "Temperature (K)")
	fs.Float64Var(&attemptFrequency, "attempt-frequency", defaults.Kinetics.AttemptFrequency, "Arrhenius attempt frequency (Hz)")
	fs.Float64Var(&attachBarrier, "attach-barrier", defaults.Kinetics.AttachBarrier, "Attachment barrier (eV)")
	fs.StringToStringVar(&diffusionBarriers, "diffusion-barriers", nil, "Per-direction diffusion barriers in eV, e.g. x=0.75,y=0.95,z=1.2")

	// Nucleation
	fs.IntVar(&criticalSize, "critical-size", defaults.Nucleation.CriticalSize, "Minimum cluster size eligible for nucleation")
	fs.IntVar(&connectivity, "connectivity", defaults.Nucleation.Connectivity, "Cluster connectivity (6 or 26)")
	fs.BoolVar(&skipNucleation, "no-nucleation", false, "Disable nucleation events")
}

// init sets up CLI flags and subcommands
func init() {
	registerRunFlags(runCmd.Flags())

	// Attach `run` as a subcommand to `root`
	rootCmd.AddCommand(runCmd)
}
