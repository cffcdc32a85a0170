package registry

import "sync/atomic"

// Store holds the current snapshot. Readers always observe either the old
// or the new snapshot in full; swaps never block readers.
type Store struct {
	current atomic.Pointer[Snapshot]
}

// NewStore creates a store holding initial. A nil initial snapshot is
// replaced with Empty().
func NewStore(initial *Snapshot) *Store {
	if initial == nil {
		initial = Empty()
	}
	s := &Store{}
	s.current.Store(initial)
	return s
}

// Current returns the current snapshot. It never returns nil.
func (s *Store) Current() *Snapshot {
	return s.current.Load()
}

// Swap installs next and returns the previous snapshot. A nil next is ignored.
func (s *Store) Swap(next *Snapshot) *Snapshot {
	if next == nil {
		return s.Current()
	}
	return s.current.Swap(next)
}
