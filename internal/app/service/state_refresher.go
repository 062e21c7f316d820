package service

import (
	"context"

	"vest_orchestrator/internal/app/port"
	"vest_orchestrator/internal/app/session"
)

// StateRefresher is the only writer of a session's State.
type StateRefresher struct {
	sync   *MembershipSyncService
	slots  *HiddenSlotService
	logger port.Logger
}

func NewStateRefresher(syncSvc *MembershipSyncService, slots *HiddenSlotService, l port.Logger) *StateRefresher {
	return &StateRefresher{sync: syncSvc, slots: slots, logger: l}
}

// Resync runs a full sync and stores it, then reloads the hidden-slot view
// for registered accounts. A hidden-slot failure keeps the previous view.
func (r *StateRefresher) Resync(ctx context.Context, sess *session.Session) error {
	snapshot, err := r.sync.Sync(ctx, sess, sess.State.Snapshot())
	if err != nil {
		return err
	}
	sess.State.StoreSnapshot(snapshot)

	if !snapshot.Registered() {
		sess.State.ClearHiddenSlots()
		return nil
	}
	view, err := r.slots.LoadSchedule(ctx, sess, snapshot.Member.TreeIndex)
	if err != nil {
		r.logger.Warn("Hidden slot reload failed, keeping previous view", "session", sess.ID, "error", err)
		return nil
	}
	sess.State.StoreHiddenSlots(view)
	return nil
}
