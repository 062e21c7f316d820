package port

import (
	"context"
	"math/big"

	"vest_orchestrator/internal/domain/entity"

	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/core/types"
)

// MembershipContract is the typed call layer over the membership contract.
// Remote errors are returned with their message unmodified.
type MembershipContract interface {
	Address() common.Address

	MemberCount(ctx context.Context) (uint64, error)
	Paused(ctx context.Context) (bool, error)
	IndexOf(ctx context.Context, account common.Address) (uint64, error)
	PositionOf(ctx context.Context, index uint64) (entity.Position, error)
	TokenBalanceOf(ctx context.Context, index uint64) (*big.Int, error)
	TreeBalanceOf(ctx context.Context, index uint64) (*big.Int, error)
	TotalReceivedOf(ctx context.Context, index uint64) (*big.Int, error)
	LeftCountOf(ctx context.Context, index uint64) (uint64, error)
	RightCountOf(ctx context.Context, index uint64) (uint64, error)
	PendingOperations(ctx context.Context) ([]uint64, error)
	AggregateLiquidity(ctx context.Context, slot uint64) (*big.Int, error)
	EntryGrossAmount(ctx context.Context) (*big.Int, error)
	EntryAdminFee(ctx context.Context) (*big.Int, error)
	HideCount(ctx context.Context, index uint64, side entity.Side) (uint64, error)
	TierAmount(ctx context.Context, tier int) (*big.Int, error)
	ActivationPeriodSeconds(ctx context.Context) (uint64, error)
	LeftChildren(ctx context.Context, index uint64) ([]uint64, error)
	RightChildren(ctx context.Context, index uint64) ([]uint64, error)
	AddressIsMember(ctx context.Context, account common.Address) (bool, error)

	EstimateJoin(ctx context.Context, from common.Address, referralIndex uint64, side entity.Side, amount *big.Int) (uint64, error)
	Join(ctx context.Context, opts entity.TxOptions, referralIndex uint64, side entity.Side, amount *big.Int) (*entity.TxReceipt, error)
	EstimateCreateHiddenSlot(ctx context.Context, from common.Address, child common.Address, side entity.Side, amount *big.Int) (uint64, error)
	CreateHiddenSlot(ctx context.Context, opts entity.TxOptions, child common.Address, side entity.Side, amount *big.Int) (*entity.TxReceipt, error)
}

// TokenContract is the typed call layer over the fungible token contract.
type TokenContract interface {
	Address() common.Address

	Symbol(ctx context.Context) (string, error)
	BalanceOf(ctx context.Context, owner common.Address) (*big.Int, error)
	Allowance(ctx context.Context, owner, spender common.Address) (*big.Int, error)
	Approve(ctx context.Context, opts entity.TxOptions, spender common.Address, amount *big.Int) (*entity.TxReceipt, error)
}

// ContractFactory binds gateways to deployed addresses.
type ContractFactory interface {
	Membership(address common.Address, backend ChainBackend, signer Signer) MembershipContract
	Token(address common.Address, backend ChainBackend, signer Signer) TokenContract
}

// Signer is the wallet's "request signature" capability.
type Signer interface {
	Address() common.Address
	SignTx(tx *types.Transaction, chainID *big.Int) (*types.Transaction, error)
}
