package gateway

import (
	"context"
	"fmt"
	"math/big"

	"vest_orchestrator/internal/app/port"
	"vest_orchestrator/internal/domain/entity"

	"github.com/ethereum/go-ethereum/common"
	"github.com/pkg/errors"
)

// MembershipGateway is the typed call layer over the membership contract.
type MembershipGateway struct {
	c *boundContract
}

var _ port.MembershipContract = (*MembershipGateway)(nil)

func (g *MembershipGateway) Address() common.Address { return g.c.address }

func (g *MembershipGateway) readUint64(ctx context.Context, method string, args ...interface{}) (uint64, error) {
	out, err := g.c.call(ctx, method, args...)
	if err != nil {
		return 0, err
	}
	return uint64Out(out, method)
}

func (g *MembershipGateway) readBig(ctx context.Context, method string, args ...interface{}) (*big.Int, error) {
	out, err := g.c.call(ctx, method, args...)
	if err != nil {
		return nil, err
	}
	return bigOut(out, method)
}

func (g *MembershipGateway) readIndexList(ctx context.Context, method string, args ...interface{}) ([]uint64, error) {
	out, err := g.c.call(ctx, method, args...)
	if err != nil {
		return nil, err
	}
	return indexListOut(out, method)
}

func idx(v uint64) *big.Int { return new(big.Int).SetUint64(v) }

// MemberCount returns the highest assigned tree index.
func (g *MembershipGateway) MemberCount(ctx context.Context) (uint64, error) {
	return g.readUint64(ctx, "lastIndex")
}

func (g *MembershipGateway) Paused(ctx context.Context) (bool, error) {
	out, err := g.c.call(ctx, "isPaused")
	if err != nil {
		return false, err
	}
	return boolOut(out, "isPaused")
}

// IndexOf returns the tree index of account, 0 when unregistered.
func (g *MembershipGateway) IndexOf(ctx context.Context, account common.Address) (uint64, error) {
	return g.readUint64(ctx, "index", account)
}

func (g *MembershipGateway) PositionOf(ctx context.Context, index uint64) (entity.Position, error) {
	out, err := g.c.call(ctx, "position", idx(index))
	if err != nil {
		return entity.Position{}, err
	}
	if len(out) != 5 {
		return entity.Position{}, errors.Errorf("position returned %d values, want 5", len(out))
	}
	isLeft, ok1 := out[0].(bool)
	name, ok2 := out[1].(string)
	hidden, ok3 := out[2].(bool)
	wallet, ok4 := out[3].(common.Address)
	joined, ok5 := out[4].(*big.Int)
	if !ok1 || !ok2 || !ok3 || !ok4 || !ok5 {
		return entity.Position{}, errors.New("position returned unexpected types")
	}
	return entity.Position{
		IsLeft:        isLeft,
		Name:          name,
		Hidden:        hidden,
		Wallet:        wallet.Hex(),
		JoinedAtEpoch: joined.Uint64(),
	}, nil
}

func (g *MembershipGateway) TokenBalanceOf(ctx context.Context, index uint64) (*big.Int, error) {
	return g.readBig(ctx, "_tetherBalances", idx(index))
}

func (g *MembershipGateway) TreeBalanceOf(ctx context.Context, index uint64) (*big.Int, error) {
	return g.readBig(ctx, "balance", idx(index))
}

func (g *MembershipGateway) TotalReceivedOf(ctx context.Context, index uint64) (*big.Int, error) {
	return g.readBig(ctx, "totalRecived", idx(index))
}

func (g *MembershipGateway) LeftCountOf(ctx context.Context, index uint64) (uint64, error) {
	return g.readUint64(ctx, "left", idx(index))
}

func (g *MembershipGateway) RightCountOf(ctx context.Context, index uint64) (uint64, error) {
	return g.readUint64(ctx, "right", idx(index))
}

// PendingOperations lists the indices with in-progress payouts.
func (g *MembershipGateway) PendingOperations(ctx context.Context) ([]uint64, error) {
	return g.readIndexList(ctx, "getRunningUsers")
}

func (g *MembershipGateway) AggregateLiquidity(ctx context.Context, slot uint64) (*big.Int, error) {
	return g.readBig(ctx, "liquidity", idx(slot))
}

func (g *MembershipGateway) EntryGrossAmount(ctx context.Context) (*big.Int, error) {
	return g.readBig(ctx, "entryAmount")
}

func (g *MembershipGateway) EntryAdminFee(ctx context.Context) (*big.Int, error) {
	return g.readBig(ctx, "adminFeeAmount")
}

func (g *MembershipGateway) HideCount(ctx context.Context, index uint64, side entity.Side) (uint64, error) {
	return g.readUint64(ctx, "hideCount", idx(index), side.IsLeft())
}

// TierAmount reads the price of the 1-based hidden-slot tier.
func (g *MembershipGateway) TierAmount(ctx context.Context, tier int) (*big.Int, error) {
	if tier < 1 || tier > entity.MaxSlotsPerSide {
		return nil, errors.Errorf("tier %d out of range", tier)
	}
	return g.readBig(ctx, fmt.Sprintf("tier%dAmount", tier))
}

func (g *MembershipGateway) ActivationPeriodSeconds(ctx context.Context) (uint64, error) {
	return g.readUint64(ctx, "hideActivationPeriod")
}

func (g *MembershipGateway) LeftChildren(ctx context.Context, index uint64) ([]uint64, error) {
	return g.readIndexList(ctx, "getLeftChildren", idx(index))
}

func (g *MembershipGateway) RightChildren(ctx context.Context, index uint64) ([]uint64, error) {
	return g.readIndexList(ctx, "getRightChildren", idx(index))
}

func (g *MembershipGateway) AddressIsMember(ctx context.Context, account common.Address) (bool, error) {
	out, err := g.c.call(ctx, "addressExists", account)
	if err != nil {
		return false, err
	}
	return boolOut(out, "addressExists")
}

func (g *MembershipGateway) EstimateJoin(ctx context.Context, from common.Address, referralIndex uint64, side entity.Side, amount *big.Int) (uint64, error) {
	return g.c.estimate(ctx, from, "join", idx(referralIndex), side.IsLeft(), amount)
}

// Join submits join(referral, isLeft, amount) and waits for the receipt.
func (g *MembershipGateway) Join(ctx context.Context, opts entity.TxOptions, referralIndex uint64, side entity.Side, amount *big.Int) (*entity.TxReceipt, error) {
	return g.c.transact(ctx, opts, "join", idx(referralIndex), side.IsLeft(), amount)
}

func (g *MembershipGateway) EstimateCreateHiddenSlot(ctx context.Context, from common.Address, child common.Address, side entity.Side, amount *big.Int) (uint64, error) {
	return g.c.estimate(ctx, from, "activeHide", child, side.IsLeft(), amount)
}

// CreateHiddenSlot submits activeHide(child, isLeft, amount) and waits for the receipt.
func (g *MembershipGateway) CreateHiddenSlot(ctx context.Context, opts entity.TxOptions, child common.Address, side entity.Side, amount *big.Int) (*entity.TxReceipt, error) {
	return g.c.transact(ctx, opts, "activeHide", child, side.IsLeft(), amount)
}
