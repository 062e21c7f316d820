package service

import (
	"context"
	"errors"
	"math/big"
	"testing"
	"time"

	"vest_orchestrator/internal/domain/entity"
	"vest_orchestrator/internal/pkg/logger"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func clockAt(unix int64) func() time.Time {
	return func() time.Time { return time.Unix(unix, 0) }
}

func TestComputeActivation(t *testing.T) {
	w := ComputeActivation(1000, 3600, 2000)
	assert.False(t, w.ReadyNow)
	assert.Equal(t, uint64(2600), w.RemainingSeconds)
	assert.Equal(t, uint64(4600), w.ActivatesAt)
	assert.Equal(t, "0h 43m", w.Countdown)

	w = ComputeActivation(1000, 3600, 4600)
	assert.True(t, w.ReadyNow)
	assert.Zero(t, w.RemainingSeconds)
	assert.Empty(t, w.Countdown)
}

func TestFeeBreakdown_PartsSumToTotal(t *testing.T) {
	for _, tier := range []*big.Int{usdt(50), usdt(75), big.NewInt(22_000_001), usdt(0)} {
		b := FeeBreakdown(tier)
		sum := new(big.Int).Add(b.MonthlyReward, b.AdminFee)
		sum.Add(sum, b.Remaining)
		assert.Equal(t, 0, sum.Cmp(tier), "tier %s", tier)
	}

	b := FeeBreakdown(usdt(50))
	assert.Equal(t, "10.00", b.MonthlyRewardFormatted)
	assert.Equal(t, "12.00", b.AdminFeeFormatted)
	assert.Equal(t, "28.00", b.RemainingFormatted)
	assert.Equal(t, "50.00", b.TotalFormatted)
}

func TestFeeBreakdown_DoesNotAliasConstants(t *testing.T) {
	b := FeeBreakdown(usdt(50))
	b.MonthlyReward.SetInt64(1)
	assert.Equal(t, "10000000", MonthlyReward.String())
}

func TestLoadSchedule_ListsHiddenChildrenOnly(t *testing.T) {
	f := newFixture().registered(5, 1000)
	f.membership.ActivationPeriod = 3600
	f.membership.HideCounts[5] = [2]uint64{1, 1}
	f.membership.LeftKids[5] = []uint64{7, 8, 10}
	f.membership.RightKids[5] = []uint64{9}
	f.membership.Positions[7] = entity.Position{IsLeft: true, Hidden: true, Wallet: "0x07", JoinedAtEpoch: 1100}
	f.membership.Positions[8] = entity.Position{IsLeft: true, Wallet: "0x08"}
	f.membership.Positions[9] = entity.Position{IsLeft: true, Hidden: true, Wallet: "0x09", JoinedAtEpoch: 1200}
	f.membership.Errs["PositionOf:10"] = errors.New("execution reverted")

	svc := NewHiddenSlotService(logger.NewNop()).WithClock(clockAt(2000))
	view, err := svc.LoadSchedule(context.Background(), f.sess, 5)
	require.NoError(t, err)

	assert.Equal(t, uint64(5), view.MemberIndex)
	assert.False(t, view.Activation.ReadyNow)
	assert.Equal(t, "0h 43m", view.Activation.Countdown)
	assert.Equal(t, uint64(1), view.Schedule.LeftOccupied)
	assert.Equal(t, uint64(1), view.Schedule.RightOccupied)
	assert.Empty(t, view.Degraded)

	// child 9 reports isLeft but was found in the right list
	assert.Equal(t, []entity.HiddenSlotRecord{
		{Index: 7, Address: "0x07", Side: entity.SideLeft, JoinedAtEpoch: 1100},
		{Index: 9, Address: "0x09", Side: entity.SideRight, JoinedAtEpoch: 1200},
	}, view.Slots)
}

func TestLoadSchedule_ChildListFailureDegrades(t *testing.T) {
	f := newFixture().registered(5, 1000)
	f.membership.Errs["RightChildren"] = errors.New("timeout")

	view, err := NewHiddenSlotService(logger.NewNop()).LoadSchedule(context.Background(), f.sess, 5)
	require.NoError(t, err)
	assert.Equal(t, []entity.DegradedField{entity.DegradedHiddenSlotList}, view.Degraded)
	assert.Empty(t, view.Slots)
	assert.NotNil(t, view.Slots)
}

func TestLoadSchedule_Errors(t *testing.T) {
	f := newFixture()
	_, err := NewHiddenSlotService(logger.NewNop()).LoadSchedule(context.Background(), f.sess, 0)
	assert.ErrorIs(t, err, entity.ErrNotRegistered)

	f = newFixture().registered(5, 1000)
	f.membership.Errs["TierAmount"] = errors.New("execution reverted")
	_, err = NewHiddenSlotService(logger.NewNop()).LoadSchedule(context.Background(), f.sess, 5)
	assert.ErrorIs(t, err, entity.ErrRemoteCallFailed)
	assert.Equal(t, "execution reverted", err.Error())
}

func TestQuoteNextSlot_PricesByPerSideOccupancy(t *testing.T) {
	f := newFixture().registered(5, 1000)
	f.membership.ActivationPeriod = 3600
	f.membership.HideCounts[5] = [2]uint64{2, 0}
	svc := NewHiddenSlotService(logger.NewNop()).WithClock(clockAt(10_000))

	left, err := svc.QuoteNextSlot(context.Background(), f.sess, 5, entity.SideLeft)
	require.NoError(t, err)
	assert.Equal(t, 3, left.Tier)
	assert.Equal(t, usdt(100), left.Price)

	right, err := svc.QuoteNextSlot(context.Background(), f.sess, 5, entity.SideRight)
	require.NoError(t, err)
	assert.Equal(t, 1, right.Tier)
	assert.Equal(t, usdt(50), right.Price)
}

func TestQuoteNextSlot_SideFull(t *testing.T) {
	f := newFixture().registered(5, 1000)
	f.membership.HideCounts[5] = [2]uint64{3, 0}
	svc := NewHiddenSlotService(logger.NewNop()).WithClock(clockAt(10_000))

	_, err := svc.QuoteNextSlot(context.Background(), f.sess, 5, entity.SideLeft)
	assert.ErrorIs(t, err, entity.ErrSideCapacityExceeded)

	_, err = svc.QuoteNextSlot(context.Background(), f.sess, 5, entity.SideRight)
	assert.NoError(t, err)
}

func TestQuoteNextSlot_ActivationNotReady(t *testing.T) {
	f := newFixture().registered(5, 1000)
	f.membership.ActivationPeriod = 3600
	svc := NewHiddenSlotService(logger.NewNop()).WithClock(clockAt(2000))

	quote, err := svc.QuoteNextSlot(context.Background(), f.sess, 5, entity.SideLeft)
	require.ErrorIs(t, err, entity.ErrActivationNotReady)
	assert.Equal(t, "hidden wallets activate in 0h 43m", err.Error())
	assert.Nil(t, quote.Price)
	assert.Equal(t, 0, f.membership.CallCount("HideCount"))
}

func TestTierFees(t *testing.T) {
	f := newFixture()
	svc := NewHiddenSlotService(logger.NewNop())

	b, err := svc.TierFees(context.Background(), f.sess, 2)
	require.NoError(t, err)
	assert.Equal(t, "75.00", b.TotalFormatted)
	assert.Equal(t, "53.00", b.RemainingFormatted)

	_, err = svc.TierFees(context.Background(), f.sess, 4)
	assert.Error(t, err)
	assert.Equal(t, 1, f.membership.CallCount("TierAmount"))
}
