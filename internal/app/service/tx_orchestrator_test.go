package service

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"vest_orchestrator/internal/app/session"
	"vest_orchestrator/internal/domain/entity"
	"vest_orchestrator/internal/pkg/logger"

	"github.com/ethereum/go-ethereum/common"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const childWallet = "0x70997970C51812dc3A010C7d01b50e0d17dc79C8"

type countingResyncer struct {
	mu    sync.Mutex
	calls int
	err   error
}

func (r *countingResyncer) Resync(context.Context, *session.Session) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.calls++
	return r.err
}

type outcomeRecorder struct {
	outcomes []entity.TxOutcome
}

func (r *outcomeRecorder) ObserveTxOutcome(o entity.TxOutcome) {
	r.outcomes = append(r.outcomes, o)
}

type orchestratorHarness struct {
	*TxOrchestrator
	resyncer *countingResyncer
	outcomes *outcomeRecorder
	sleeps   []time.Duration
}

// newHarness builds an orchestrator whose clock reads now and whose
// settlement wait returns immediately.
func newHarness(now int64) *orchestratorHarness {
	h := &orchestratorHarness{resyncer: &countingResyncer{}, outcomes: &outcomeRecorder{}}
	slots := NewHiddenSlotService(logger.NewNop()).WithClock(clockAt(now))
	h.TxOrchestrator = NewTxOrchestrator(slots, h.resyncer, h.outcomes, logger.NewNop(), 3*time.Second)
	h.sleep = func(_ context.Context, d time.Duration) { h.sleeps = append(h.sleeps, d) }
	return h
}

func TestApproveEntry_SkipsWhenAllowanceSufficient(t *testing.T) {
	f := newFixture().funded(usdt(100), usdt(0))
	h := newHarness(0)

	out := h.ApproveEntry(context.Background(), f.sess)

	assert.True(t, out.Success)
	assert.True(t, out.Skipped)
	assert.Empty(t, out.TxHash)
	assert.Empty(t, f.token.Approvals)
	require.Len(t, h.outcomes.outcomes, 1)
}

func TestApproveEntry_ApprovesExactAmount(t *testing.T) {
	f := newFixture().funded(usdt(99), usdt(0))
	h := newHarness(0)

	out := h.ApproveEntry(context.Background(), f.sess)

	require.True(t, out.Success, out.Error)
	assert.False(t, out.Skipped)
	assert.Equal(t, "0xapprove1", out.TxHash)
	assert.Equal(t, "100000000", out.RequiredAmount)
	require.Len(t, f.token.Approvals, 1)
	approval := f.token.Approvals[0]
	assert.Equal(t, usdt(100), approval.Amount)
	assert.Equal(t, testMembership, approval.Spender)
	assert.Equal(t, ApproveGasLimit, approval.Opts.GasLimit)
	assert.Equal(t, "5000000000", approval.Opts.Fee.GasPrice.String())
	assert.Zero(t, h.resyncer.calls, "approvals do not resync")
	assert.Empty(t, h.sleeps)
}

func TestApproveHiddenSlot_UsesSideOccupancy(t *testing.T) {
	f := newFixture().registered(5, 1000)
	f.membership.HideCounts[5] = [2]uint64{0, 2}
	h := newHarness(0)

	out := h.ApproveHiddenSlot(context.Background(), f.sess, entity.SideRight)
	require.True(t, out.Success, out.Error)
	require.Len(t, f.token.Approvals, 1)
	assert.Equal(t, usdt(100), f.token.Approvals[0].Amount)

	out = h.ApproveHiddenSlot(context.Background(), f.sess, entity.SideLeft)
	require.True(t, out.Success, out.Error)
	// allowance of 100 already covers the tier 1 price of 50
	assert.True(t, out.Skipped)
}

func TestApproveHiddenSlot_Errors(t *testing.T) {
	f := newFixture()
	out := newHarness(0).ApproveHiddenSlot(context.Background(), f.sess, entity.SideLeft)
	assert.Equal(t, entity.KindNotRegistered, out.ErrorKind)

	f = newFixture().registered(5, 1000)
	f.membership.HideCounts[5] = [2]uint64{3, 0}
	out = newHarness(0).ApproveHiddenSlot(context.Background(), f.sess, entity.SideLeft)
	assert.Equal(t, entity.KindSideCapacityExceeded, out.ErrorKind)
	assert.Empty(t, f.token.Approvals)
}

func TestJoin_Succeeds(t *testing.T) {
	f := newFixture().funded(usdt(100), usdt(100))
	h := newHarness(0)

	out := h.Join(context.Background(), f.sess, 1, entity.SideLeft)

	require.True(t, out.Success, out.Error)
	assert.Equal(t, entity.TxKindJoin, out.Kind)
	assert.Equal(t, uint64(1), out.Status)
	assert.Equal(t, uint64(130000), out.GasLimit)
	require.Len(t, f.membership.Joins, 1)
	join := f.membership.Joins[0]
	assert.Equal(t, uint64(1), join.Referral)
	assert.Equal(t, entity.SideLeft, join.Side)
	assert.Equal(t, usdt(100), join.Amount)
	assert.Equal(t, testAccount, join.Opts.From)
	assert.Equal(t, 1, h.resyncer.calls)
	assert.Equal(t, []time.Duration{3 * time.Second}, h.sleeps)
}

func TestJoin_InsufficientAllowanceBlocksSubmission(t *testing.T) {
	f := newFixture().funded(usdt(99), usdt(1000))
	h := newHarness(0)

	out := h.Join(context.Background(), f.sess, 1, entity.SideLeft)

	assert.False(t, out.Success)
	assert.Equal(t, entity.KindInsufficientAllowance, out.ErrorKind)
	assert.Empty(t, f.membership.Joins)
	assert.Zero(t, f.membership.CallCount("EstimateJoin"))
	assert.Zero(t, h.resyncer.calls)
}

func TestJoin_InsufficientBalanceIsDistinct(t *testing.T) {
	f := newFixture().funded(usdt(100), usdt(99))

	out := newHarness(0).Join(context.Background(), f.sess, 1, entity.SideRight)

	assert.Equal(t, entity.KindInsufficientBalance, out.ErrorKind)
	assert.Empty(t, f.membership.Joins)
}

func TestJoin_EstimationFailureUsesFallback(t *testing.T) {
	f := newFixture().funded(usdt(100), usdt(100))
	f.membership.Errs["EstimateJoin"] = errors.New("execution reverted")

	out := newHarness(0).Join(context.Background(), f.sess, 1, entity.SideRight)

	require.True(t, out.Success, out.Error)
	require.Len(t, f.membership.Joins, 1)
	assert.Equal(t, RightJoinFallbackGas, f.membership.Joins[0].Opts.GasLimit)
}

func TestJoin_AlreadyMember(t *testing.T) {
	f := newFixture().registered(5, 1000).funded(usdt(100), usdt(100))

	out := newHarness(0).Join(context.Background(), f.sess, 1, entity.SideLeft)

	assert.Equal(t, entity.KindDuplicateMember, out.ErrorKind)
	assert.Empty(t, f.membership.Joins)
}

func TestJoin_RevertedReceipt(t *testing.T) {
	f := newFixture().funded(usdt(100), usdt(100))
	f.membership.ReceiptStatus = 0
	h := newHarness(0)

	out := h.Join(context.Background(), f.sess, 1, entity.SideLeft)

	assert.False(t, out.Success)
	assert.Equal(t, uint64(0), out.Status)
	assert.Equal(t, "0xjoin1", out.TxHash)
	assert.Equal(t, entity.KindRemoteCallFailed, out.ErrorKind)
	assert.Equal(t, 1, h.resyncer.calls)
}

func TestJoin_RemoteSubmitErrorKeepsMessage(t *testing.T) {
	f := newFixture().funded(usdt(100), usdt(100))
	f.membership.Errs["Join"] = errors.New("nonce too low")

	out := newHarness(0).Join(context.Background(), f.sess, 1, entity.SideLeft)

	assert.Equal(t, entity.KindRemoteCallFailed, out.ErrorKind)
	assert.Equal(t, "nonce too low", out.Error)
}

func TestJoin_Preconditions(t *testing.T) {
	f := newFixture()
	f.sess.Account = common.Address{}
	out := newHarness(0).Join(context.Background(), f.sess, 1, entity.SideLeft)
	assert.Equal(t, entity.KindNotConnected, out.ErrorKind)

	f = newFixture()
	f.sess.Token = nil
	out = newHarness(0).Join(context.Background(), f.sess, 1, entity.SideLeft)
	assert.Equal(t, entity.KindNetworkUnresolved, out.ErrorKind)
	assert.Zero(t, f.membership.CallCount("EntryGrossAmount"))
}

func TestOrchestrator_RejectsConcurrentOperation(t *testing.T) {
	f := newFixture().funded(usdt(100), usdt(100))
	h := newHarness(0)
	require.True(t, h.acquire(f.sess))

	out := h.Join(context.Background(), f.sess, 1, entity.SideLeft)
	assert.Equal(t, entity.KindOperationInFlight, out.ErrorKind)
	assert.Empty(t, f.membership.Joins)

	h.release(f.sess)
	out = h.Join(context.Background(), f.sess, 1, entity.SideLeft)
	assert.True(t, out.Success, out.Error)
}

func hiddenSlotFixture() *fixture {
	f := newFixture().registered(5, 1000).funded(usdt(100), usdt(100))
	f.membership.ActivationPeriod = 3600
	f.membership.HideCounts[5] = [2]uint64{1, 0}
	f.membership.Gas = 200000
	return f
}

func TestCreateHiddenSlot_Succeeds(t *testing.T) {
	f := hiddenSlotFixture()
	h := newHarness(10_000)

	out := h.CreateHiddenSlot(context.Background(), f.sess, " "+childWallet+" ", entity.SideLeft)

	require.True(t, out.Success, out.Error)
	assert.Equal(t, "75000000", out.RequiredAmount)
	assert.Equal(t, uint64(300000), out.GasLimit)
	require.Len(t, f.membership.HiddenSlots, 1)
	call := f.membership.HiddenSlots[0]
	assert.Equal(t, common.HexToAddress(childWallet), call.Child)
	assert.Equal(t, entity.SideLeft, call.Side)
	assert.Equal(t, usdt(75), call.Amount)
	assert.Equal(t, 1, h.resyncer.calls)
}

func TestCreateHiddenSlot_Gates(t *testing.T) {
	tests := []struct {
		name  string
		now   int64
		child string
		side  entity.Side
		setup func(f *fixture)
		want  entity.ErrorKind
	}{
		{name: "invalid address", now: 10_000, child: "0x1234", side: entity.SideLeft, want: entity.KindInvalidAddress},
		{name: "activation pending", now: 2000, child: childWallet, side: entity.SideLeft, want: entity.KindActivationNotReady},
		{
			name: "side full", now: 10_000, child: childWallet, side: entity.SideRight,
			setup: func(f *fixture) { f.membership.HideCounts[5] = [2]uint64{0, 3} },
			want:  entity.KindSideCapacityExceeded,
		},
		{
			name: "child already member", now: 10_000, child: childWallet, side: entity.SideLeft,
			setup: func(f *fixture) { f.membership.Members[common.HexToAddress(childWallet)] = true },
			want:  entity.KindDuplicateMember,
		},
		{
			name: "caller not registered", now: 10_000, child: childWallet, side: entity.SideLeft,
			setup: func(f *fixture) { delete(f.membership.Indices, testAccount) },
			want:  entity.KindNotRegistered,
		},
		{
			name: "allowance below tier price", now: 10_000, child: childWallet, side: entity.SideLeft,
			setup: func(f *fixture) { f.token.Allowances[testAccount] = usdt(74) },
			want:  entity.KindInsufficientAllowance,
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			f := hiddenSlotFixture()
			if tt.setup != nil {
				tt.setup(f)
			}
			h := newHarness(tt.now)

			out := h.CreateHiddenSlot(context.Background(), f.sess, tt.child, tt.side)

			assert.False(t, out.Success)
			assert.Equal(t, tt.want, out.ErrorKind, out.Error)
			assert.Empty(t, f.membership.HiddenSlots)
			assert.Zero(t, f.membership.CallCount("EstimateCreateHiddenSlot"))
			assert.Zero(t, h.resyncer.calls)
		})
	}
}

func TestCreateHiddenSlot_InvalidAddressMakesNoRemoteCall(t *testing.T) {
	f := hiddenSlotFixture()

	out := newHarness(10_000).CreateHiddenSlot(context.Background(), f.sess, "not-an-address", entity.SideLeft)

	assert.Equal(t, entity.KindInvalidAddress, out.ErrorKind)
	assert.Zero(t, f.membership.CallCount("IndexOf"))
	assert.Zero(t, f.membership.CallCount("PositionOf"))
}

func TestCreateHiddenSlot_ActivationMessage(t *testing.T) {
	f := hiddenSlotFixture()
	f.membership.Positions[5] = entity.Position{JoinedAtEpoch: 1000}

	out := newHarness(2000).CreateHiddenSlot(context.Background(), f.sess, childWallet, entity.SideLeft)

	assert.Equal(t, "hidden wallets activate in 0h 43m", out.Error)
}
