package sim

import (
	"testing"

	"github.com/stretchr/testify/require"
)

// newTestEngine builds an engine on a 5³ lattice at 800 K with the reference
// parameters. mutate, if non-nil, adjusts the config before construction.
func newTestEngine(t *testing.T, mutate func(*Config)) *Engine {
	t.Helper()
	cfg := DefaultConfig()
	cfg.Lattice.Size = 5
	if mutate != nil {
		mutate(&cfg)
	}
	e, err := New(cfg)
	require.NoError(t, err)
	return e
}

func withTrace(cfg *Config) { cfg.TraceLevel = "steps" }
