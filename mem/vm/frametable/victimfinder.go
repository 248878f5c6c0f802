package frametable

// A VictimFinder decides which frame should receive the next page.
type VictimFinder interface {
	FindVictim(table *Table) int
}

// LRUVictimFinder evicts the least recently used frame.
type LRUVictimFinder struct {
}

// NewLRUVictimFinder returns a newly constructed lru evictor
func NewLRUVictimFinder() *LRUVictimFinder {
	e := new(LRUVictimFinder)
	return e
}

// FindVictim returns the first invalid frame if there is one. Otherwise it
// returns the frame with the smallest LastUsed; on a tie the lowest frame
// number wins.
func (e *LRUVictimFinder) FindVictim(table *Table) int {
	for i := range table.entries {
		if !table.entries[i].Valid {
			return i
		}
	}

	victim := 0
	for i := range table.entries {
		if table.entries[i].LastUsed < table.entries[victim].LastUsed {
			victim = i
		}
	}

	return victim
}
