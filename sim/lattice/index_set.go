package lattice

// IndexSet is a set of linear site indices with O(1) add, remove, membership
// and uniform sampling by position. Iteration order depends only on the
// sequence of mutations, so seeded runs replay identically.
type IndexSet struct {
	items []int
	pos   []int // pos[idx] is the position of idx in items, or -1
}

// NewIndexSet creates an empty set over the universe [0, n).
func NewIndexSet(n int) *IndexSet {
	pos := make([]int, n)
	for i := range pos {
		pos[i] = -1
	}
	return &IndexSet{items: make([]int, 0, n), pos: pos}
}

func (s *IndexSet) Len() int { return len(s.items) }

func (s *IndexSet) Contains(idx int) bool { return s.pos[idx] >= 0 }

// Add inserts idx; adding a present member is a no-op.
func (s *IndexSet) Add(idx int) {
	if s.pos[idx] >= 0 {
		return
	}
	s.pos[idx] = len(s.items)
	s.items = append(s.items, idx)
}

// Remove deletes idx by swapping the last member into its slot.
func (s *IndexSet) Remove(idx int) {
	p := s.pos[idx]
	if p < 0 {
		return
	}
	last := len(s.items) - 1
	moved := s.items[last]
	s.items[p] = moved
	s.pos[moved] = p
	s.items = s.items[:last]
	s.pos[idx] = -1
}

// At returns the member at position i, for uniform sampling with i in [0, Len()).
func (s *IndexSet) At(i int) int { return s.items[i] }

// Items returns the backing slice. Callers must not modify it.
func (s *IndexSet) Items() []int { return s.items }
