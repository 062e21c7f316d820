package service

import (
	"context"
	"math/big"
	"time"

	"vest_orchestrator/internal/app/port"
	"vest_orchestrator/internal/app/session"
	"vest_orchestrator/internal/domain/entity"
	"vest_orchestrator/internal/pkg/utils"

	"golang.org/x/sync/errgroup"
)

// liquiditySlot is the aggregate liquidity bucket shown as total liquidity.
const liquiditySlot = 0

// SyncObserver receives the duration and result of every completed sync.
type SyncObserver interface {
	ObserveSync(elapsed time.Duration, snapshot *entity.Snapshot)
}

// MembershipSyncService assembles a Snapshot from independent contract reads.
type MembershipSyncService struct {
	logger   port.Logger
	observer SyncObserver
	now      func() time.Time
}

// NewMembershipSyncService creates a new MembershipSyncService. observer may be nil.
func NewMembershipSyncService(l port.Logger, observer SyncObserver) *MembershipSyncService {
	return &MembershipSyncService{logger: l, observer: observer, now: time.Now}
}

// Sync reads the contract state for the session account.
//
// The member count, paused flag and caller index are required: if any of
// them fails the sync fails. Every other read degrades its own field only,
// falling back to prev where a previous value exists. prev may be nil.
func (s *MembershipSyncService) Sync(ctx context.Context, sess *session.Session, prev *entity.Snapshot) (entity.Snapshot, error) {
	if err := sess.RequireAccount(); err != nil {
		return entity.Snapshot{}, err
	}
	if err := sess.RequireMembership(); err != nil {
		return entity.Snapshot{}, err
	}
	started := s.now()
	contract := sess.Membership

	var (
		totalMembers uint64
		paused       bool
		treeIndex    uint64
	)
	required, reqCtx := errgroup.WithContext(ctx)
	required.Go(func() (err error) {
		totalMembers, err = contract.MemberCount(reqCtx)
		return err
	})
	required.Go(func() (err error) {
		paused, err = contract.Paused(reqCtx)
		return err
	})
	required.Go(func() (err error) {
		treeIndex, err = contract.IndexOf(reqCtx, sess.Account)
		return err
	})
	if err := required.Wait(); err != nil {
		s.logger.Error("Required sync reads failed", "session", sess.ID, "error", err)
		return entity.Snapshot{}, entity.RemoteError(err)
	}

	// Each optional read writes only its own variables.
	var (
		pendingCount  uint64
		pendingErr    error
		liquidity     *big.Int
		liquidityErr  error
		member        *entity.MembershipRecord
		memberErr     error
		pricing       entity.EntryPricing
		pricingErr    error
		optionalGroup errgroup.Group
	)
	optionalGroup.Go(func() error {
		pending, err := contract.PendingOperations(ctx)
		pendingCount, pendingErr = uint64(len(pending)), err
		return nil
	})
	optionalGroup.Go(func() error {
		liquidity, liquidityErr = contract.AggregateLiquidity(ctx, liquiditySlot)
		return nil
	})
	if treeIndex > 0 {
		optionalGroup.Go(func() error {
			member, memberErr = s.fetchMember(ctx, contract, treeIndex)
			return nil
		})
	}
	optionalGroup.Go(func() error {
		pricing, pricingErr = s.fetchPricing(ctx, contract)
		return nil
	})
	_ = optionalGroup.Wait()

	snapshot := entity.Snapshot{
		Account: sess.Account.Hex(),
		ChainID: sess.Descriptor.ChainID,
		Stats: entity.GlobalStats{
			TotalMembers: totalMembers,
			Paused:       paused,
		},
	}

	if pendingErr != nil {
		s.logger.Warn("Pending operations read failed, defaulting to 0", "session", sess.ID, "error", pendingErr)
		snapshot.Degraded = append(snapshot.Degraded, entity.DegradedPendingOperations)
	} else {
		snapshot.Stats.PendingOperationCount = pendingCount
	}

	if liquidityErr != nil || liquidity == nil {
		s.logger.Warn("Liquidity read failed, defaulting to 0", "session", sess.ID, "error", liquidityErr)
		snapshot.Degraded = append(snapshot.Degraded, entity.DegradedLiquidity)
		liquidity = new(big.Int)
	}
	snapshot.Stats.TotalLiquidity = liquidity
	snapshot.Stats.TotalLiquidityFormatted = utils.FormatFixed(liquidity, entity.TokenDecimals, 2)

	if treeIndex > 0 {
		if memberErr != nil {
			s.logger.Warn("Member record batch failed, keeping index only", "session", sess.ID, "index", treeIndex, "error", memberErr)
			snapshot.Degraded = append(snapshot.Degraded, entity.DegradedMemberRecord)
			member = fallbackMember(prev, treeIndex)
		}
		snapshot.Member = member
	}

	if pricingErr != nil {
		s.logger.Warn("Entry pricing read failed", "session", sess.ID, "error", pricingErr)
		snapshot.Degraded = append(snapshot.Degraded, entity.DegradedEntryPricing)
		if prev != nil {
			snapshot.Pricing = prev.Pricing
		}
	} else {
		snapshot.Pricing = pricing
	}

	snapshot.SyncedAt = s.now()
	if s.observer != nil {
		s.observer.ObserveSync(snapshot.SyncedAt.Sub(started), &snapshot)
	}
	s.logger.Debug("Sync completed", "session", sess.ID, "members", totalMembers, "index", treeIndex, "degraded", len(snapshot.Degraded))
	return snapshot, nil
}

// fetchMember reads the six per-index values concurrently. Any failure
// discards the whole batch.
func (s *MembershipSyncService) fetchMember(ctx context.Context, contract port.MembershipContract, index uint64) (*entity.MembershipRecord, error) {
	var (
		position      entity.Position
		tokenBalance  *big.Int
		treeBalance   *big.Int
		totalReceived *big.Int
		leftCount     uint64
		rightCount    uint64
	)
	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() (err error) {
		position, err = contract.PositionOf(gctx, index)
		return err
	})
	g.Go(func() (err error) {
		tokenBalance, err = contract.TokenBalanceOf(gctx, index)
		return err
	})
	g.Go(func() (err error) {
		treeBalance, err = contract.TreeBalanceOf(gctx, index)
		return err
	})
	g.Go(func() (err error) {
		totalReceived, err = contract.TotalReceivedOf(gctx, index)
		return err
	})
	g.Go(func() (err error) {
		leftCount, err = contract.LeftCountOf(gctx, index)
		return err
	})
	g.Go(func() (err error) {
		rightCount, err = contract.RightCountOf(gctx, index)
		return err
	})
	if err := g.Wait(); err != nil {
		return nil, err
	}

	return &entity.MembershipRecord{
		Registered:             true,
		TreeIndex:              index,
		Side:                   entity.SideFromIsLeft(position.IsLeft),
		DisplayName:            position.Name,
		TreeBalance:            treeBalance,
		TokenBalance:           tokenBalance,
		TokenBalanceFormatted:  utils.FormatFixed(tokenBalance, entity.TokenDecimals, 2),
		TotalReceived:          totalReceived,
		TotalReceivedFormatted: utils.FormatFixed(totalReceived, entity.TokenDecimals, 2),
		LeftSubtreeCount:       leftCount,
		RightSubtreeCount:      rightCount,
		JoinedAtEpoch:          position.JoinedAtEpoch,
		Complete:               true,
	}, nil
}

func (s *MembershipSyncService) fetchPricing(ctx context.Context, contract port.MembershipContract) (entity.EntryPricing, error) {
	var gross, fee *big.Int
	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() (err error) {
		gross, err = contract.EntryGrossAmount(gctx)
		return err
	})
	g.Go(func() (err error) {
		fee, err = contract.EntryAdminFee(gctx)
		return err
	})
	if err := g.Wait(); err != nil {
		return entity.EntryPricing{}, err
	}
	net := new(big.Int).Sub(gross, fee)
	return entity.EntryPricing{
		GrossAmount:        gross,
		AdminFeeAmount:     fee,
		NetLiquidityAmount: utils.FormatBigInt(net, entity.TokenDecimals),
		GrossAmountDecimal: utils.FormatBigInt(gross, entity.TokenDecimals),
		Loaded:             true,
	}, nil
}

// fallbackMember keeps the previous record when it belongs to the same index.
func fallbackMember(prev *entity.Snapshot, index uint64) *entity.MembershipRecord {
	if prev != nil && prev.Member != nil && prev.Member.TreeIndex == index {
		kept := *prev.Member
		kept.Registered = true
		kept.Complete = false
		return &kept
	}
	return &entity.MembershipRecord{Registered: true, TreeIndex: index}
}
