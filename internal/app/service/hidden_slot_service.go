package service

import (
	"context"
	"fmt"
	"math/big"
	"time"

	"vest_orchestrator/internal/app/port"
	"vest_orchestrator/internal/app/session"
	"vest_orchestrator/internal/domain/entity"
	"vest_orchestrator/internal/pkg/utils"

	"golang.org/x/sync/errgroup"
)

const defaultChildConcurrency = 4

var (
	// MonthlyReward is the fixed monthly reward deducted from a tier amount.
	MonthlyReward = utils.MinorUnits(10, entity.TokenDecimals)
	// HiddenSlotAdminFee is the fixed admin fee deducted from a tier amount.
	HiddenSlotAdminFee = utils.MinorUnits(12, entity.TokenDecimals)
)

// HiddenSlotService reads the hidden-slot schedule and gates slot actions.
type HiddenSlotService struct {
	logger           port.Logger
	now              func() time.Time
	childConcurrency int
}

func NewHiddenSlotService(l port.Logger) *HiddenSlotService {
	return &HiddenSlotService{logger: l, now: time.Now, childConcurrency: defaultChildConcurrency}
}

// WithClock replaces the wall clock, for tests.
func (s *HiddenSlotService) WithClock(now func() time.Time) *HiddenSlotService {
	s.now = now
	return s
}

// ComputeActivation derives the activation window of a member joined at
// joinedAt with the given period, as seen at now (all unix seconds).
func ComputeActivation(joinedAt, period, now uint64) entity.ActivationWindow {
	activatesAt := joinedAt + period
	if now >= activatesAt {
		return entity.ActivationWindow{ReadyNow: true, ActivatesAt: activatesAt}
	}
	remaining := activatesAt - now
	return entity.ActivationWindow{
		RemainingSeconds: remaining,
		ActivatesAt:      activatesAt,
		Countdown:        utils.FormatCountdown(remaining),
	}
}

// FeeBreakdown splits tierAmount into the fixed reward, the fixed admin fee
// and the remainder. Display only.
func FeeBreakdown(tierAmount *big.Int) entity.FeeBreakdown {
	total := utils.CloneBig(tierAmount)
	remaining := new(big.Int).Sub(total, HiddenSlotAdminFee)
	remaining.Sub(remaining, MonthlyReward)

	reward := new(big.Int).Set(MonthlyReward)
	fee := new(big.Int).Set(HiddenSlotAdminFee)
	return entity.FeeBreakdown{
		MonthlyReward:          reward,
		AdminFee:               fee,
		Remaining:              remaining,
		Total:                  total,
		MonthlyRewardFormatted: utils.FormatFixed(reward, entity.TokenDecimals, 2),
		AdminFeeFormatted:      utils.FormatFixed(fee, entity.TokenDecimals, 2),
		RemainingFormatted:     utils.FormatFixed(remaining, entity.TokenDecimals, 2),
		TotalFormatted:         utils.FormatFixed(total, entity.TokenDecimals, 2),
	}
}

// TierFees reads the amount of tier (1-based) and splits it for display.
func (s *HiddenSlotService) TierFees(ctx context.Context, sess *session.Session, tier int) (entity.FeeBreakdown, error) {
	if err := sess.RequireMembership(); err != nil {
		return entity.FeeBreakdown{}, err
	}
	if tier < 1 || tier > entity.MaxSlotsPerSide {
		return entity.FeeBreakdown{}, fmt.Errorf("tier must be between 1 and %d, got %d", entity.MaxSlotsPerSide, tier)
	}
	amount, err := sess.Membership.TierAmount(ctx, tier)
	if err != nil {
		return entity.FeeBreakdown{}, entity.RemoteError(err)
	}
	return FeeBreakdown(amount), nil
}

// Activation reads the member's join time and the activation period from
// chain and evaluates them against the clock.
func (s *HiddenSlotService) Activation(ctx context.Context, sess *session.Session, memberIndex uint64) (entity.ActivationWindow, error) {
	if err := sess.RequireMembership(); err != nil {
		return entity.ActivationWindow{}, err
	}
	var (
		position entity.Position
		period   uint64
	)
	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() (err error) {
		position, err = sess.Membership.PositionOf(gctx, memberIndex)
		return err
	})
	g.Go(func() (err error) {
		period, err = sess.Membership.ActivationPeriodSeconds(gctx)
		return err
	})
	if err := g.Wait(); err != nil {
		return entity.ActivationWindow{}, entity.RemoteError(err)
	}
	return ComputeActivation(position.JoinedAtEpoch, period, uint64(s.now().Unix())), nil
}

// Schedule reads the tier amounts and the per-side occupancy of memberIndex.
func (s *HiddenSlotService) Schedule(ctx context.Context, sess *session.Session, memberIndex uint64) (entity.HiddenSlotSchedule, error) {
	if err := sess.RequireMembership(); err != nil {
		return entity.HiddenSlotSchedule{}, err
	}
	var schedule entity.HiddenSlotSchedule
	g, gctx := errgroup.WithContext(ctx)
	for i := range schedule.Tiers {
		i := i
		g.Go(func() (err error) {
			schedule.Tiers[i], err = sess.Membership.TierAmount(gctx, i+1)
			return err
		})
	}
	g.Go(func() (err error) {
		schedule.LeftOccupied, err = sess.Membership.HideCount(gctx, memberIndex, entity.SideLeft)
		return err
	})
	g.Go(func() (err error) {
		schedule.RightOccupied, err = sess.Membership.HideCount(gctx, memberIndex, entity.SideRight)
		return err
	})
	if err := g.Wait(); err != nil {
		return entity.HiddenSlotSchedule{}, entity.RemoteError(err)
	}
	return schedule, nil
}

// LoadSchedule reads everything the slot manager shows for memberIndex.
// A failure listing children degrades the slot list only; a failure reading
// one child skips that child.
func (s *HiddenSlotService) LoadSchedule(ctx context.Context, sess *session.Session, memberIndex uint64) (entity.HiddenSlotView, error) {
	if err := sess.RequireMembership(); err != nil {
		return entity.HiddenSlotView{}, err
	}
	if memberIndex == 0 {
		return entity.HiddenSlotView{}, entity.NewError(entity.KindNotRegistered, "account is not a member")
	}

	view := entity.HiddenSlotView{MemberIndex: memberIndex, Slots: []entity.HiddenSlotRecord{}}
	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() (err error) {
		view.Schedule, err = s.Schedule(gctx, sess, memberIndex)
		return err
	})
	g.Go(func() (err error) {
		view.Activation, err = s.Activation(gctx, sess, memberIndex)
		return err
	})
	if err := g.Wait(); err != nil {
		s.logger.Error("Hidden slot schedule read failed", "session", sess.ID, "index", memberIndex, "error", err)
		return entity.HiddenSlotView{}, err
	}

	slots, err := s.listHiddenSlots(ctx, sess.Membership, memberIndex)
	if err != nil {
		s.logger.Warn("Hidden slot listing failed", "session", sess.ID, "index", memberIndex, "error", err)
		view.Degraded = append(view.Degraded, entity.DegradedHiddenSlotList)
	} else {
		view.Slots = slots
	}
	return view, nil
}

type childRef struct {
	index uint64
	side  entity.Side
}

func (s *HiddenSlotService) listHiddenSlots(ctx context.Context, contract port.MembershipContract, memberIndex uint64) ([]entity.HiddenSlotRecord, error) {
	var leftKids, rightKids []uint64
	lists, lctx := errgroup.WithContext(ctx)
	lists.Go(func() (err error) {
		leftKids, err = contract.LeftChildren(lctx, memberIndex)
		return err
	})
	lists.Go(func() (err error) {
		rightKids, err = contract.RightChildren(lctx, memberIndex)
		return err
	})
	if err := lists.Wait(); err != nil {
		return nil, err
	}

	// Side comes from the list a child was found in.
	refs := make([]childRef, 0, len(leftKids)+len(rightKids))
	for _, idx := range leftKids {
		refs = append(refs, childRef{index: idx, side: entity.SideLeft})
	}
	for _, idx := range rightKids {
		refs = append(refs, childRef{index: idx, side: entity.SideRight})
	}

	found := make([]*entity.HiddenSlotRecord, len(refs))
	var children errgroup.Group
	children.SetLimit(s.childConcurrency)
	for i, ref := range refs {
		i, ref := i, ref
		children.Go(func() error {
			position, err := contract.PositionOf(ctx, ref.index)
			if err != nil {
				s.logger.Debug("Skipping unreadable child", "index", ref.index, "error", err)
				return nil
			}
			if !position.Hidden {
				return nil
			}
			found[i] = &entity.HiddenSlotRecord{
				Index:         ref.index,
				Address:       position.Wallet,
				Side:          ref.side,
				JoinedAtEpoch: position.JoinedAtEpoch,
			}
			return nil
		})
	}
	_ = children.Wait()

	slots := make([]entity.HiddenSlotRecord, 0, len(found))
	for _, rec := range found {
		if rec != nil {
			slots = append(slots, *rec)
		}
	}
	return slots, nil
}

// NextSlotQuote is the freshly read price of the next slot on one side.
type NextSlotQuote struct {
	Price      *big.Int
	Tier       int
	Activation entity.ActivationWindow
}

// QuoteNextSlot reads activation and occupancy from chain and prices the
// next slot on side. It fails with ActivationNotReady before the window
// elapses and with SideCapacityExceeded when the side is full.
func (s *HiddenSlotService) QuoteNextSlot(ctx context.Context, sess *session.Session, memberIndex uint64, side entity.Side) (NextSlotQuote, error) {
	activation, err := s.Activation(ctx, sess, memberIndex)
	if err != nil {
		return NextSlotQuote{}, err
	}
	if !activation.ReadyNow {
		return NextSlotQuote{Activation: activation}, entity.NewError(entity.KindActivationNotReady,
			"hidden wallets activate in %s", activation.Countdown)
	}

	schedule, err := s.Schedule(ctx, sess, memberIndex)
	if err != nil {
		return NextSlotQuote{}, err
	}
	price, err := schedule.PriceForNextSlot(side)
	if err != nil {
		return NextSlotQuote{Activation: activation}, err
	}
	return NextSlotQuote{Price: price, Tier: int(schedule.Occupancy(side)) + 1, Activation: activation}, nil
}
