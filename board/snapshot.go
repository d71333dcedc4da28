package board

import "boardsync/domain"

// Snapshot is a deep copy of the board sufficient to restore it after a
// failed optimistic mutation.
type Snapshot struct {
	byStage map[string][]domain.Task
}

// Snapshot captures the current board contents.
func (s *Store) Snapshot() Snapshot {
	s.mu.Lock()
	defer s.mu.Unlock()
	snap := Snapshot{byStage: make(map[string][]domain.Task, len(s.stages))}
	for _, stage := range s.stages {
		snap.byStage[stage] = cloneSeq(s.byStage[stage])
	}
	return snap
}

// Restore replaces the board contents with those held in the snapshot.
// Restoring a zero Snapshot is a no-op.
func (s *Store) Restore(snap Snapshot) {
	if snap.byStage == nil {
		return
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, stage := range s.stages {
		s.byStage[stage] = cloneSeq(snap.byStage[stage])
	}
	s.reindex()
}

// Equal reports whether the board currently matches the snapshot, comparing
// only task ids and their placement.
func (s *Store) Equal(snap Snapshot) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, stage := range s.stages {
		a, b := s.byStage[stage], snap.byStage[stage]
		if len(a) != len(b) {
			return false
		}
		for i := range a {
			if a[i].ID != b[i].ID {
				return false
			}
		}
	}
	return true
}
