package restapi

import (
	"context"
	"fmt"
	"net/http"
	"strconv"

	"vest_orchestrator/internal/app/port"
	"vest_orchestrator/internal/app/session"
	"vest_orchestrator/internal/domain/entity"

	"github.com/gin-gonic/gin"
)

// Refresher reloads the session state.
type Refresher interface {
	Resync(ctx context.Context, sess *session.Session) error
}

// SlotReader serves hidden-slot reads.
type SlotReader interface {
	TierFees(ctx context.Context, sess *session.Session, tier int) (entity.FeeBreakdown, error)
}

// Orchestrator runs the mutating operations.
type Orchestrator interface {
	ApproveEntry(ctx context.Context, sess *session.Session) entity.TxOutcome
	ApproveHiddenSlot(ctx context.Context, sess *session.Session, side entity.Side) entity.TxOutcome
	Join(ctx context.Context, sess *session.Session, referralIndex uint64, side entity.Side) entity.TxOutcome
	CreateHiddenSlot(ctx context.Context, sess *session.Session, child string, side entity.Side) entity.TxOutcome
}

// APIResponse is the envelope of every /api/v1 response.
type APIResponse struct {
	Data          any       `json:"data,omitempty"`
	Error         *APIError `json:"error,omitempty"`
	StatusMessage string    `json:"status_message"`
}

// APIError carries a classified failure.
type APIError struct {
	Kind    entity.ErrorKind `json:"kind"`
	Message string           `json:"message"`
}

// NetworkView describes the session's chain binding.
type NetworkView struct {
	Network   entity.NetworkDescriptor `json:"network"`
	Account   string                   `json:"account"`
	Contracts session.Addresses        `json:"contracts"`
}

// SyncView is returned by POST /sync.
type SyncView struct {
	Snapshot    *entity.Snapshot       `json:"snapshot"`
	HiddenSlots *entity.HiddenSlotView `json:"hiddenSlots,omitempty"`
}

type sideRequest struct {
	Side string `json:"side" binding:"required"`
}

type joinRequest struct {
	ReferralIndex uint64 `json:"referralIndex" binding:"required"`
	Side          string `json:"side" binding:"required"`
}

type hiddenSlotRequest struct {
	Child string `json:"child" binding:"required"`
	Side  string `json:"side" binding:"required"`
}

// SessionHandler serves one session over HTTP.
type SessionHandler struct {
	sess         *session.Session
	refresher    Refresher
	slots        SlotReader
	orchestrator Orchestrator
	logger       port.Logger
}

func NewSessionHandler(sess *session.Session, refresher Refresher, slots SlotReader, orchestrator Orchestrator, l port.Logger) *SessionHandler {
	return &SessionHandler{
		sess:         sess,
		refresher:    refresher,
		slots:        slots,
		orchestrator: orchestrator,
		logger:       l,
	}
}

func statusForKind(kind entity.ErrorKind) int {
	switch kind {
	case entity.KindInvalidAddress:
		return http.StatusBadRequest
	case entity.KindNotRegistered, entity.KindDuplicateMember, entity.KindOperationInFlight:
		return http.StatusConflict
	case entity.KindInsufficientAllowance, entity.KindInsufficientBalance,
		entity.KindActivationNotReady, entity.KindSideCapacityExceeded:
		return http.StatusUnprocessableEntity
	case entity.KindNotConnected, entity.KindNetworkUnresolved:
		return http.StatusServiceUnavailable
	}
	return http.StatusBadGateway
}

func (h *SessionHandler) fail(c *gin.Context, err error) {
	kind := entity.KindOf(err)
	h.logger.Warn("Request failed", "path", c.Request.URL.Path, "kind", kind, "error", err)
	c.JSON(statusForKind(kind), APIResponse{
		Error:         &APIError{Kind: kind, Message: err.Error()},
		StatusMessage: "Request failed.",
	})
}

func (h *SessionHandler) badRequest(c *gin.Context, err error) {
	c.JSON(http.StatusBadRequest, APIResponse{
		Error:         &APIError{Message: err.Error()},
		StatusMessage: "Invalid request.",
	})
}

func (h *SessionHandler) respondOutcome(c *gin.Context, outcome entity.TxOutcome) {
	status := http.StatusOK
	message := "Transaction confirmed."
	switch {
	case outcome.Skipped:
		message = "Allowance already sufficient, nothing submitted."
	case !outcome.Success && outcome.TxHash != "":
		message = "Transaction mined but reverted."
		status = http.StatusBadGateway
	case !outcome.Success:
		message = "Transaction not submitted."
		status = statusForKind(outcome.ErrorKind)
	}
	c.JSON(status, APIResponse{Data: outcome, StatusMessage: message})
}

// currentSnapshot returns the stored snapshot, syncing once if there is none.
func (h *SessionHandler) currentSnapshot(ctx context.Context) (*entity.Snapshot, error) {
	if snap := h.sess.State.Snapshot(); snap != nil {
		return snap, nil
	}
	if err := h.refresher.Resync(ctx, h.sess); err != nil {
		return nil, err
	}
	return h.sess.State.Snapshot(), nil
}

func snapshotMessage(snap *entity.Snapshot) string {
	if err := snap.DegradedErr(); err != nil {
		return "Snapshot loaded with " + err.Error() + "."
	}
	return "Snapshot loaded."
}

// GetNetwork handles GET /api/v1/network.
func (h *SessionHandler) GetNetwork(c *gin.Context) {
	c.JSON(http.StatusOK, APIResponse{
		Data: NetworkView{
			Network:   h.sess.Descriptor,
			Account:   h.sess.Account.Hex(),
			Contracts: h.sess.Addresses(),
		},
		StatusMessage: "Network resolved.",
	})
}

// GetSnapshot handles GET /api/v1/snapshot.
func (h *SessionHandler) GetSnapshot(c *gin.Context) {
	snap, err := h.currentSnapshot(c.Request.Context())
	if err != nil {
		h.fail(c, err)
		return
	}
	c.JSON(http.StatusOK, APIResponse{Data: snap, StatusMessage: snapshotMessage(snap)})
}

// PostSync handles POST /api/v1/sync.
func (h *SessionHandler) PostSync(c *gin.Context) {
	if err := h.refresher.Resync(c.Request.Context(), h.sess); err != nil {
		h.fail(c, err)
		return
	}
	snap := h.sess.State.Snapshot()
	c.JSON(http.StatusOK, APIResponse{
		Data:          SyncView{Snapshot: snap, HiddenSlots: h.sess.State.HiddenSlots()},
		StatusMessage: snapshotMessage(snap),
	})
}

// GetHiddenSlots handles GET /api/v1/hidden-slots.
func (h *SessionHandler) GetHiddenSlots(c *gin.Context) {
	snap, err := h.currentSnapshot(c.Request.Context())
	if err != nil {
		h.fail(c, err)
		return
	}
	if !snap.Registered() {
		h.fail(c, entity.NewError(entity.KindNotRegistered, "account %s is not a member", h.sess.Account.Hex()))
		return
	}
	view := h.sess.State.HiddenSlots()
	if view == nil {
		if err := h.refresher.Resync(c.Request.Context(), h.sess); err != nil {
			h.fail(c, err)
			return
		}
		if view = h.sess.State.HiddenSlots(); view == nil {
			h.fail(c, entity.NewError(entity.KindRemoteCallFailed, "hidden slot schedule unavailable"))
			return
		}
	}
	message := "Hidden slots loaded."
	if len(view.Degraded) > 0 {
		message = "Hidden slots loaded, slot list unavailable."
	}
	c.JSON(http.StatusOK, APIResponse{Data: view, StatusMessage: message})
}

// GetTierFees handles GET /api/v1/hidden-slots/fees?tier=N.
func (h *SessionHandler) GetTierFees(c *gin.Context) {
	tier, err := strconv.Atoi(c.DefaultQuery("tier", "1"))
	if err != nil || tier < 1 || tier > entity.MaxSlotsPerSide {
		h.badRequest(c, fmt.Errorf("tier must be between 1 and %d", entity.MaxSlotsPerSide))
		return
	}
	breakdown, err := h.slots.TierFees(c.Request.Context(), h.sess, tier)
	if err != nil {
		h.fail(c, err)
		return
	}
	c.JSON(http.StatusOK, APIResponse{Data: breakdown, StatusMessage: "Fee breakdown computed."})
}

// PostApproveEntry handles POST /api/v1/approvals/entry.
func (h *SessionHandler) PostApproveEntry(c *gin.Context) {
	h.respondOutcome(c, h.orchestrator.ApproveEntry(c.Request.Context(), h.sess))
}

// PostApproveHiddenSlot handles POST /api/v1/approvals/hidden-slot.
func (h *SessionHandler) PostApproveHiddenSlot(c *gin.Context) {
	var req sideRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		h.badRequest(c, err)
		return
	}
	side, err := entity.ParseSide(req.Side)
	if err != nil {
		h.badRequest(c, err)
		return
	}
	h.respondOutcome(c, h.orchestrator.ApproveHiddenSlot(c.Request.Context(), h.sess, side))
}

// PostJoin handles POST /api/v1/join.
func (h *SessionHandler) PostJoin(c *gin.Context) {
	var req joinRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		h.badRequest(c, err)
		return
	}
	side, err := entity.ParseSide(req.Side)
	if err != nil {
		h.badRequest(c, err)
		return
	}
	h.respondOutcome(c, h.orchestrator.Join(c.Request.Context(), h.sess, req.ReferralIndex, side))
}

// PostHiddenSlot handles POST /api/v1/hidden-slots.
func (h *SessionHandler) PostHiddenSlot(c *gin.Context) {
	var req hiddenSlotRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		h.badRequest(c, err)
		return
	}
	side, err := entity.ParseSide(req.Side)
	if err != nil {
		h.badRequest(c, err)
		return
	}
	h.respondOutcome(c, h.orchestrator.CreateHiddenSlot(c.Request.Context(), h.sess, req.Child, side))
}
