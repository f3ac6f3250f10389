package lattice

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNew_AllSitesEmpty(t *testing.T) {
	l := New(4)

	assert.Equal(t, 64, l.Volume())
	assert.Equal(t, 64, l.EmptyCount())
	assert.Equal(t, 0, l.OccupiedCount())
	assert.Equal(t, 0, l.MobileCount())
	require.NoError(t, l.Verify())
}

func TestSeed_SubstrateFloorAndCenteredSeed(t *testing.T) {
	// GIVEN a 5x5x5 lattice
	l := New(5)

	// WHEN seeded
	l.Seed()

	// THEN z=0 is substrate, one mobile atom sits at (2,2,1)
	for x := 0; x < 5; x++ {
		for y := 0; y < 5; y++ {
			assert.Equal(t, Substrate, l.At(Coord{x, y, 0}))
		}
	}
	assert.Equal(t, Mobile, l.At(Coord{2, 2, 1}))
	assert.Equal(t, 26, l.OccupiedCount())
	assert.Equal(t, 99, l.EmptyCount())
	assert.Equal(t, 1, l.MobileCount())
	assert.InDelta(t, 26.0/125.0, l.Coverage(), 1e-12)
	require.NoError(t, l.Verify())
}

func TestIndex_CoordOf_RoundTrip(t *testing.T) {
	l := New(6)
	for idx := 0; idx < l.Volume(); idx++ {
		c := l.CoordOf(idx)
		require.True(t, l.InBounds(c))
		require.Equal(t, idx, l.Index(c))
	}
}

func TestSet_MaintainsIndexSets(t *testing.T) {
	l := New(3)
	c := Coord{1, 1, 1}

	l.Set(c, Mobile)
	assert.Equal(t, 1, l.OccupiedCount())
	assert.Equal(t, 1, l.MobileCount())

	// Mobile -> Stable keeps occupancy, drops mobility
	l.Set(c, Stable)
	assert.Equal(t, 1, l.OccupiedCount())
	assert.Equal(t, 0, l.MobileCount())

	l.Set(c, Empty)
	assert.Equal(t, 0, l.OccupiedCount())
	assert.Equal(t, 27, l.EmptyCount())
	require.NoError(t, l.Verify())
}

func TestMove_RelocatesState(t *testing.T) {
	l := New(4)
	l.Seed()
	from := Coord{2, 2, 1}
	to := Coord{3, 2, 1}
	before := l.OccupiedCount()

	require.NoError(t, l.Move(from, to))

	assert.Equal(t, Empty, l.At(from))
	assert.Equal(t, Mobile, l.At(to))
	assert.Equal(t, before, l.OccupiedCount())
	assert.Equal(t, 1, l.MobileCount())
	require.NoError(t, l.Verify())
}

func TestMove_RejectsOccupiedTargetAndEmptySource(t *testing.T) {
	l := New(4)
	l.Seed()

	assert.Error(t, l.Move(Coord{2, 2, 1}, Coord{2, 2, 0}), "target is substrate")
	assert.Error(t, l.Move(Coord{0, 0, 2}, Coord{0, 0, 3}), "source is empty")
	require.NoError(t, l.Verify())
}

func TestHop_PeriodicInXY_BoundedInZ(t *testing.T) {
	l := New(5)
	tests := []struct {
		name   string
		from   Coord
		axis   Axis
		sign   int
		want   Coord
		wantOK bool
	}{
		{"x wraps high", Coord{4, 0, 1}, AxisX, 1, Coord{0, 0, 1}, true},
		{"x wraps low", Coord{0, 0, 1}, AxisX, -1, Coord{4, 0, 1}, true},
		{"y wraps low", Coord{1, 0, 1}, AxisY, -1, Coord{1, 4, 1}, true},
		{"z interior", Coord{1, 1, 2}, AxisZ, 1, Coord{1, 1, 3}, true},
		{"z top face", Coord{1, 1, 4}, AxisZ, 1, Coord{}, false},
		{"z bottom face", Coord{1, 1, 0}, AxisZ, -1, Coord{}, false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, ok := l.Hop(tt.from, tt.axis, tt.sign)
			assert.Equal(t, tt.wantOK, ok)
			if tt.wantOK {
				assert.Equal(t, tt.want, got)
			}
		})
	}
}

func TestVacantHops_CountsOnlyEmptyNeighbors(t *testing.T) {
	l := New(5)
	l.Seed()
	seed := Coord{2, 2, 1}

	assert.Equal(t, 2, l.CountVacantHops(seed, AxisX))
	assert.Equal(t, 2, l.CountVacantHops(seed, AxisY))
	// below is substrate
	assert.Equal(t, 1, l.CountVacantHops(seed, AxisZ))
	assert.Equal(t, []Coord{{2, 2, 2}}, l.VacantHops(seed, AxisZ))

	l.Set(Coord{3, 2, 1}, Stable)
	assert.Equal(t, []Coord{{1, 2, 1}}, l.VacantHops(seed, AxisX))
}

func TestGrowthFront_EmptySitesTouchingSubstrateOrStable(t *testing.T) {
	l := New(4)
	l.Seed()

	// the whole z=1 layer except the mobile seed
	front := l.GrowthFront()
	assert.Len(t, front, 15)
	for _, c := range front {
		assert.Equal(t, 1, c.Z)
	}

	// a stable atom at z=1 extends the front upward
	l.Set(Coord{0, 0, 1}, Stable)
	front = l.GrowthFront()
	assert.Contains(t, front, Coord{0, 0, 2})
	assert.NotContains(t, front, Coord{0, 0, 1})

	// a mobile atom does not
	assert.NotContains(t, front, Coord{2, 2, 2})
}

func TestGrowthFront_NoAnchors_Empty(t *testing.T) {
	l := New(4)
	l.Set(Coord{1, 1, 1}, Mobile)
	assert.Empty(t, l.GrowthFront())
}

func TestReset_MatchesFreshLattice(t *testing.T) {
	// GIVEN a lattice mutated away from its seeded state
	l := New(5)
	l.Seed()
	l.Set(Coord{0, 0, 1}, Mobile)
	require.NoError(t, l.Move(Coord{2, 2, 1}, Coord{2, 2, 2}))
	l.Set(Coord{4, 4, 4}, Defect)

	// WHEN reset
	l.Reset()

	// THEN contents and index-set order match a fresh seeded lattice
	fresh := New(5)
	fresh.Seed()
	assert.Equal(t, fresh.states, l.states)
	assert.Equal(t, fresh.Empty().Items(), l.Empty().Items())
	assert.Equal(t, fresh.Occupied().Items(), l.Occupied().Items())
	assert.Equal(t, fresh.Mobile().Items(), l.Mobile().Items())
}

func TestVerify_DetectsCorruptedIndex(t *testing.T) {
	l := New(3)
	l.Seed()
	// bypass Set to desynchronize state and index
	l.states[l.Index(Coord{0, 0, 2})] = Mobile

	assert.Error(t, l.Verify())
}

func TestParseAxis(t *testing.T) {
	for _, name := range []string{"x", "y", "z"} {
		a, err := ParseAxis(name)
		require.NoError(t, err)
		assert.Equal(t, name, a.String())
	}
	_, err := ParseAxis("w")
	assert.Error(t, err)
}

func TestSiteState_String(t *testing.T) {
	assert.Equal(t, "empty", Empty.String())
	assert.Equal(t, "stable", Stable.String())
	assert.Equal(t, "cluster", Cluster.String())
	assert.Equal(t, "state(42)", SiteState(42).String())
}

func TestGrowthFront_AllocatesOnlyResult(t *testing.T) {
	l := New(30)
	l.Seed()

	allocs := testing.AllocsPerRun(5, func() { _ = l.GrowthFront() })

	// 899 front sites need only the append growth steps of one slice
	assert.LessOrEqual(t, allocs, 20.0)
	assert.Len(t, l.GrowthFront(), 899)
}
