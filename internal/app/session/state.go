package session

import (
	"sync/atomic"

	"vest_orchestrator/internal/domain/entity"
)

// State holds the latest views read for a session. Values are replaced as a
// whole and must not be mutated after they are stored.
type State struct {
	snapshot atomic.Pointer[entity.Snapshot]
	hidden   atomic.Pointer[entity.HiddenSlotView]
}

// Snapshot returns the latest snapshot, or nil before the first sync.
func (s *State) Snapshot() *entity.Snapshot {
	return s.snapshot.Load()
}

func (s *State) StoreSnapshot(v entity.Snapshot) {
	s.snapshot.Store(&v)
}

// HiddenSlots returns the latest hidden-slot view, or nil.
func (s *State) HiddenSlots() *entity.HiddenSlotView {
	return s.hidden.Load()
}

func (s *State) StoreHiddenSlots(v entity.HiddenSlotView) {
	s.hidden.Store(&v)
}

func (s *State) ClearHiddenSlots() {
	s.hidden.Store(nil)
}
