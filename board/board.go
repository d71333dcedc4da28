// Package board holds the in-memory source of truth for a single project's
// Kanban view. All mutations, local or remote, go through the Store's
// operations so the placement invariants are enforced in one place.
package board

import (
	"sync"

	"boardsync/domain"
)

// Store maps each workflow stage to its ordered task sequence. The stage-id
// set is fixed at construction from the project; operations never add or
// remove stages. Position within a stage is the sequence index.
type Store struct {
	mu      sync.Mutex
	stages  []string
	byStage map[string][]domain.Task
}

// New creates an empty store for the given stages, in board order.
func New(stageIDs []string) *Store {
	s := &Store{
		stages:  append([]string(nil), stageIDs...),
		byStage: make(map[string][]domain.Task, len(stageIDs)),
	}
	for _, id := range s.stages {
		s.byStage[id] = nil
	}
	return s
}

// StageIDs returns the stage identifiers in board order.
func (s *Store) StageIDs() []string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]string(nil), s.stages...)
}

// Tasks returns a copy of the given stage's sequence.
func (s *Store) Tasks(stageID string) []domain.Task {
	s.mu.Lock()
	defer s.mu.Unlock()
	return cloneSeq(s.byStage[stageID])
}

// TaskIDs returns the task ids of the given stage in order.
func (s *Store) TaskIDs(stageID string) []string {
	s.mu.Lock()
	defer s.mu.Unlock()
	seq := s.byStage[stageID]
	ids := make([]string, len(seq))
	for i, t := range seq {
		ids[i] = t.ID
	}
	return ids
}

// StageLen returns the number of tasks in a stage.
func (s *Store) StageLen(stageID string) int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.byStage[stageID])
}

// Find locates a task, returning its stage, position and a copy of the task.
func (s *Store) Find(taskID string) (stageID string, position int, task domain.Task, ok bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.locate(taskID)
}

func (s *Store) locate(taskID string) (string, int, domain.Task, bool) {
	for _, stage := range s.stages {
		for i, t := range s.byStage[stage] {
			if t.ID == taskID {
				return stage, i, t.Clone(), true
			}
		}
	}
	return "", 0, domain.Task{}, false
}

// ReplaceAll sets the entire board. Tasks mapped to stages the store does not
// know are dropped; known stages missing from the input become empty.
func (s *Store) ReplaceAll(tasksByStage map[string][]domain.Task) {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, stage := range s.stages {
		s.byStage[stage] = cloneSeq(tasksByStage[stage])
	}
	s.reindex()
}

// Upsert updates the task in place if it exists. When the incoming stage
// differs from the current one the task is relocated to the tail of the new
// stage. Unknown tasks are appended to the tail of their stage; tasks naming
// an unknown stage are ignored.
func (s *Store) Upsert(task domain.Task) {
	s.mu.Lock()
	defer s.mu.Unlock()
	stage, idx, _, found := s.locate(task.ID)
	if found {
		if task.StageID == stage {
			seq := s.byStage[stage]
			t := task.Clone()
			t.Position = idx
			seq[idx] = t
			return
		}
		s.removeAt(stage, idx)
	}
	if _, known := s.byStage[task.StageID]; !known {
		s.reindex()
		return
	}
	s.byStage[task.StageID] = append(s.byStage[task.StageID], task.Clone())
	s.reindex()
}

// Move removes the task from wherever it is and inserts it at position in the
// new stage, clamped to [0, len]. All other tasks keep their relative order.
// Moving to an unknown stage or moving an unknown task is a no-op.
func (s *Store) Move(taskID, newStageID string, position int) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, known := s.byStage[newStageID]; !known {
		return
	}
	stage, idx, task, found := s.locate(taskID)
	if !found {
		return
	}
	s.removeAt(stage, idx)
	seq := s.byStage[newStageID]
	if position < 0 {
		position = 0
	}
	if position > len(seq) {
		position = len(seq)
	}
	seq = append(seq, domain.Task{})
	copy(seq[position+1:], seq[position:])
	task.StageID = newStageID
	seq[position] = task
	s.byStage[newStageID] = seq
	s.reindex()
}

// Reorder rewrites a stage's sequence to match the given id order. Ids not
// currently in the stage are ignored; current tasks missing from the order
// keep their original relative order at the tail.
func (s *Store) Reorder(stageID string, orderedTaskIDs []string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	seq, known := s.byStage[stageID]
	if !known {
		return
	}
	current := make(map[string]domain.Task, len(seq))
	for _, t := range seq {
		current[t.ID] = t
	}
	next := make([]domain.Task, 0, len(seq))
	taken := make(map[string]bool, len(seq))
	for _, id := range orderedTaskIDs {
		if t, ok := current[id]; ok && !taken[id] {
			next = append(next, t)
			taken[id] = true
		}
	}
	for _, t := range seq {
		if !taken[t.ID] {
			next = append(next, t)
		}
	}
	s.byStage[stageID] = next
	s.reindex()
}

// BulkMoveTasks removes each listed task from wherever it is and appends
// them, in the given order, to the tail of the stage.
func (s *Store) BulkMoveTasks(taskIDs []string, newStageID string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, known := s.byStage[newStageID]; !known {
		return
	}
	for _, id := range taskIDs {
		stage, idx, task, found := s.locate(id)
		if !found {
			continue
		}
		s.removeAt(stage, idx)
		task.StageID = newStageID
		s.byStage[newStageID] = append(s.byStage[newStageID], task)
	}
	s.reindex()
}

// Delete removes the task if present; otherwise it is a no-op.
func (s *Store) Delete(taskID string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	stage, idx, _, found := s.locate(taskID)
	if !found {
		return
	}
	s.removeAt(stage, idx)
	s.reindex()
}

// Patch applies a partial update to the task in place. Stage and position
// are never changed by a patch.
func (s *Store) Patch(taskID string, patch domain.TaskPatch) {
	s.mu.Lock()
	defer s.mu.Unlock()
	stage, idx, _, found := s.locate(taskID)
	if !found {
		return
	}
	patch.ApplyTo(&s.byStage[stage][idx])
}

func (s *Store) removeAt(stageID string, idx int) {
	seq := s.byStage[stageID]
	s.byStage[stageID] = append(seq[:idx], seq[idx+1:]...)
}

// reindex re-establishes stage membership and contiguous positions implied
// by sequence index.
func (s *Store) reindex() {
	for _, stage := range s.stages {
		seq := s.byStage[stage]
		for i := range seq {
			seq[i].StageID = stage
			seq[i].Position = i
		}
	}
}

func cloneSeq(seq []domain.Task) []domain.Task {
	if seq == nil {
		return nil
	}
	out := make([]domain.Task, len(seq))
	for i, t := range seq {
		out[i] = t.Clone()
	}
	return out
}
