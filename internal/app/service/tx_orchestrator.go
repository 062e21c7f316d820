package service

import (
	"context"
	"fmt"
	"math/big"
	"strings"
	"sync"
	"time"

	"vest_orchestrator/internal/app/port"
	"vest_orchestrator/internal/app/session"
	"vest_orchestrator/internal/domain/entity"

	"github.com/ethereum/go-ethereum/common"
	"golang.org/x/sync/errgroup"
)

// Resyncer refreshes a session's state after a mined transaction.
type Resyncer interface {
	Resync(ctx context.Context, sess *session.Session) error
}

// OutcomeObserver receives every orchestrated outcome.
type OutcomeObserver interface {
	ObserveTxOutcome(outcome entity.TxOutcome)
}

// TxOrchestrator runs the approve / gate / estimate / submit / resync
// pipeline shared by all mutating operations. No operation returns an error:
// failures are reported in the outcome.
type TxOrchestrator struct {
	slots           *HiddenSlotService
	resyncer        Resyncer
	observer        OutcomeObserver
	logger          port.Logger
	settlementDelay time.Duration
	sleep           func(ctx context.Context, d time.Duration)

	mu       sync.Mutex
	inFlight map[string]struct{}
}

func NewTxOrchestrator(slots *HiddenSlotService, resyncer Resyncer, observer OutcomeObserver, l port.Logger, settlementDelay time.Duration) *TxOrchestrator {
	return &TxOrchestrator{
		slots:           slots,
		resyncer:        resyncer,
		observer:        observer,
		logger:          l,
		settlementDelay: settlementDelay,
		sleep:           sleepContext,
		inFlight:        make(map[string]struct{}),
	}
}

func sleepContext(ctx context.Context, d time.Duration) {
	if d <= 0 {
		return
	}
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-ctx.Done():
	case <-t.C:
	}
}

// txPlan parameterizes the pipeline for one kind of operation.
type txPlan struct {
	kind entity.TxKind
	// resolveAmount returns the required amount in minor units.
	resolveAmount func(ctx context.Context) (*big.Int, error)
	// alreadySatisfied short-circuits with a skipped success (approve only).
	alreadySatisfied func(ctx context.Context, amount *big.Int) (bool, error)
	// spend enables the allowance and balance gates.
	spend bool
	// gates run after the funds gates, before gas estimation.
	gates    []func(ctx context.Context, amount *big.Int) error
	estimate func(ctx context.Context, from common.Address, amount *big.Int) (uint64, error)
	gas      GasPolicy
	send     func(ctx context.Context, opts entity.TxOptions, amount *big.Int) (*entity.TxReceipt, error)
	resync   bool
}

func (o *TxOrchestrator) acquire(sess *session.Session) bool {
	key := fmt.Sprintf("%d:%s", sess.Descriptor.ChainID, strings.ToLower(sess.Account.Hex()))
	o.mu.Lock()
	defer o.mu.Unlock()
	if _, busy := o.inFlight[key]; busy {
		return false
	}
	o.inFlight[key] = struct{}{}
	return true
}

func (o *TxOrchestrator) release(sess *session.Session) {
	key := fmt.Sprintf("%d:%s", sess.Descriptor.ChainID, strings.ToLower(sess.Account.Hex()))
	o.mu.Lock()
	defer o.mu.Unlock()
	delete(o.inFlight, key)
}

func failed(outcome entity.TxOutcome, err error) entity.TxOutcome {
	outcome.Success = false
	outcome.ErrorKind = entity.KindOf(err)
	outcome.Error = err.Error()
	return outcome
}

func (o *TxOrchestrator) run(ctx context.Context, sess *session.Session, plan txPlan) (outcome entity.TxOutcome) {
	outcome = entity.TxOutcome{Kind: plan.kind}
	defer func() {
		if r := recover(); r != nil {
			o.logger.Error("Orchestrated operation panicked", "kind", plan.kind, "panic", r)
			outcome = failed(entity.TxOutcome{Kind: plan.kind}, entity.NewError(entity.KindRemoteCallFailed, "internal error: %v", r))
		}
		if o.observer != nil {
			o.observer.ObserveTxOutcome(outcome)
		}
	}()

	if err := sess.RequireAccount(); err != nil {
		return failed(outcome, err)
	}
	if err := sess.RequireContracts(); err != nil {
		return failed(outcome, err)
	}
	if !o.acquire(sess) {
		return failed(outcome, entity.NewError(entity.KindOperationInFlight, "another operation is in flight for %s", sess.Account.Hex()))
	}
	defer o.release(sess)

	amount, err := plan.resolveAmount(ctx)
	if err != nil {
		return failed(outcome, entity.RemoteError(err))
	}
	outcome.RequiredAmount = amount.String()

	if plan.alreadySatisfied != nil {
		satisfied, err := plan.alreadySatisfied(ctx, amount)
		if err != nil {
			return failed(outcome, entity.RemoteError(err))
		}
		if satisfied {
			o.logger.Info("Allowance already sufficient, approval skipped", "session", sess.ID, "required", amount.String())
			outcome.Success = true
			outcome.Skipped = true
			return outcome
		}
	}

	if plan.spend {
		if err := o.checkFunds(ctx, sess, amount); err != nil {
			return failed(outcome, err)
		}
	}
	for _, gate := range plan.gates {
		if err := gate(ctx, amount); err != nil {
			return failed(outcome, entity.RemoteError(err))
		}
	}

	gasLimit := plan.gas.Fallback
	if !plan.gas.Fixed() {
		estimate, estErr := plan.estimate(ctx, sess.Account, amount)
		if estErr != nil {
			o.logger.Warn("Gas estimation failed, using fallback ceiling", "kind", plan.kind, "fallback", plan.gas.Fallback, "error", estErr)
		}
		gasLimit = plan.gas.Resolve(estimate, estErr)
	}
	outcome.GasLimit = gasLimit

	fee, err := ResolveFeeParams(ctx, sess.Descriptor.FeePolicy, sess.Chain)
	if err != nil {
		return failed(outcome, err)
	}

	o.logger.Info("Submitting transaction", "session", sess.ID, "kind", plan.kind, "amount", amount.String(), "gas", gasLimit)
	receipt, err := plan.send(ctx, entity.TxOptions{From: sess.Account, GasLimit: gasLimit, Fee: fee}, amount)
	if err != nil {
		return failed(outcome, entity.RemoteError(err))
	}
	outcome.TxHash = receipt.TxHash
	outcome.Status = receipt.Status
	outcome.Success = receipt.Succeeded()
	if !outcome.Success {
		outcome.ErrorKind = entity.KindRemoteCallFailed
		outcome.Error = "transaction reverted"
	}

	if plan.resync && o.resyncer != nil {
		o.sleep(ctx, o.settlementDelay)
		if err := o.resyncer.Resync(ctx, sess); err != nil {
			o.logger.Warn("Resync after transaction failed", "session", sess.ID, "tx", receipt.TxHash, "error", err)
		}
	}
	o.logger.Info("Transaction finished", "session", sess.ID, "kind", plan.kind, "tx", receipt.TxHash, "status", receipt.Status)
	return outcome
}

// checkFunds reads allowance and balance together; each shortfall is its own error kind.
func (o *TxOrchestrator) checkFunds(ctx context.Context, sess *session.Session, required *big.Int) error {
	var allowance, balance *big.Int
	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() (err error) {
		allowance, err = sess.Token.Allowance(gctx, sess.Account, sess.Membership.Address())
		return err
	})
	g.Go(func() (err error) {
		balance, err = sess.Token.BalanceOf(gctx, sess.Account)
		return err
	})
	if err := g.Wait(); err != nil {
		return entity.RemoteError(err)
	}
	if allowance.Cmp(required) < 0 {
		return entity.NewError(entity.KindInsufficientAllowance, "allowance %s is below the required %s", allowance, required)
	}
	if balance.Cmp(required) < 0 {
		return entity.NewError(entity.KindInsufficientBalance, "balance %s is below the required %s", balance, required)
	}
	return nil
}

func (o *TxOrchestrator) memberIndex(ctx context.Context, sess *session.Session) (uint64, error) {
	index, err := sess.Membership.IndexOf(ctx, sess.Account)
	if err != nil {
		return 0, entity.RemoteError(err)
	}
	if index == 0 {
		return 0, entity.NewError(entity.KindNotRegistered, "account %s is not a member", sess.Account.Hex())
	}
	return index, nil
}

func (o *TxOrchestrator) approvePlan(sess *session.Session, resolve func(ctx context.Context) (*big.Int, error)) txPlan {
	spender := func() common.Address { return sess.Membership.Address() }
	return txPlan{
		kind:          entity.TxKindApprove,
		resolveAmount: resolve,
		alreadySatisfied: func(ctx context.Context, amount *big.Int) (bool, error) {
			allowance, err := sess.Token.Allowance(ctx, sess.Account, spender())
			if err != nil {
				return false, err
			}
			return allowance.Cmp(amount) >= 0, nil
		},
		gas: FixedGasPolicy(ApproveGasLimit),
		send: func(ctx context.Context, opts entity.TxOptions, amount *big.Int) (*entity.TxReceipt, error) {
			return sess.Token.Approve(ctx, opts, spender(), amount)
		},
	}
}

// ApproveEntry approves exactly the current entry amount for the membership contract.
func (o *TxOrchestrator) ApproveEntry(ctx context.Context, sess *session.Session) entity.TxOutcome {
	return o.run(ctx, sess, o.approvePlan(sess, func(ctx context.Context) (*big.Int, error) {
		return sess.Membership.EntryGrossAmount(ctx)
	}))
}

// ApproveHiddenSlot approves the price of the next hidden slot on side.
func (o *TxOrchestrator) ApproveHiddenSlot(ctx context.Context, sess *session.Session, side entity.Side) entity.TxOutcome {
	return o.run(ctx, sess, o.approvePlan(sess, func(ctx context.Context) (*big.Int, error) {
		index, err := o.memberIndex(ctx, sess)
		if err != nil {
			return nil, err
		}
		schedule, err := o.slots.Schedule(ctx, sess, index)
		if err != nil {
			return nil, err
		}
		return schedule.PriceForNextSlot(side)
	}))
}

// Join registers the session account under referralIndex on side.
func (o *TxOrchestrator) Join(ctx context.Context, sess *session.Session, referralIndex uint64, side entity.Side) entity.TxOutcome {
	return o.run(ctx, sess, txPlan{
		kind: entity.TxKindJoin,
		resolveAmount: func(ctx context.Context) (*big.Int, error) {
			return sess.Membership.EntryGrossAmount(ctx)
		},
		spend: true,
		gates: []func(ctx context.Context, amount *big.Int) error{
			func(ctx context.Context, _ *big.Int) error {
				index, err := sess.Membership.IndexOf(ctx, sess.Account)
				if err != nil {
					return err
				}
				if index > 0 {
					return entity.NewError(entity.KindDuplicateMember, "account %s is already member %d", sess.Account.Hex(), index)
				}
				return nil
			},
		},
		estimate: func(ctx context.Context, from common.Address, amount *big.Int) (uint64, error) {
			return sess.Membership.EstimateJoin(ctx, from, referralIndex, side, amount)
		},
		gas: JoinGasPolicy(side),
		send: func(ctx context.Context, opts entity.TxOptions, amount *big.Int) (*entity.TxReceipt, error) {
			return sess.Membership.Join(ctx, opts, referralIndex, side, amount)
		},
		resync: true,
	})
}

// CreateHiddenSlot opens a hidden slot for child on side of the caller.
func (o *TxOrchestrator) CreateHiddenSlot(ctx context.Context, sess *session.Session, child string, side entity.Side) entity.TxOutcome {
	child = strings.TrimSpace(child)
	var childAddr common.Address
	return o.run(ctx, sess, txPlan{
		kind: entity.TxKindCreateHiddenSlot,
		resolveAmount: func(ctx context.Context) (*big.Int, error) {
			if !common.IsHexAddress(child) {
				return nil, entity.NewError(entity.KindInvalidAddress, "invalid wallet address %q", child)
			}
			childAddr = common.HexToAddress(child)
			index, err := o.memberIndex(ctx, sess)
			if err != nil {
				return nil, err
			}
			quote, err := o.slots.QuoteNextSlot(ctx, sess, index, side)
			if err != nil {
				return nil, err
			}
			return quote.Price, nil
		},
		spend: true,
		gates: []func(ctx context.Context, amount *big.Int) error{
			func(ctx context.Context, _ *big.Int) error {
				exists, err := sess.Membership.AddressIsMember(ctx, childAddr)
				if err != nil {
					return err
				}
				if exists {
					return entity.NewError(entity.KindDuplicateMember, "address %s is already a member", childAddr.Hex())
				}
				return nil
			},
		},
		estimate: func(ctx context.Context, from common.Address, amount *big.Int) (uint64, error) {
			return sess.Membership.EstimateCreateHiddenSlot(ctx, from, childAddr, side, amount)
		},
		gas: HiddenSlotGasPolicy(),
		send: func(ctx context.Context, opts entity.TxOptions, amount *big.Int) (*entity.TxReceipt, error) {
			return sess.Membership.CreateHiddenSlot(ctx, opts, childAddr, side, amount)
		},
		resync: true,
	})
}
