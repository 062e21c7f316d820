// Package porttest provides in-memory fakes of the port interfaces for tests.
package porttest

import (
	"context"
	"errors"
	"fmt"
	"math/big"
	"sync"

	"vest_orchestrator/internal/app/port"
	"vest_orchestrator/internal/domain/entity"

	"github.com/ethereum/go-ethereum"
	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/core/types"
)

// FakeChain is a ChainBackend that only answers what the engine asks directly.
type FakeChain struct {
	mu       sync.Mutex
	ID       uint64
	GasPrice *big.Int
	Code     map[common.Address][]byte
	CodeErr  map[common.Address]error
	CodeAsks []common.Address
}

func NewFakeChain(chainID uint64) *FakeChain {
	return &FakeChain{
		ID:       chainID,
		GasPrice: big.NewInt(2_000_000_000),
		Code:     map[common.Address][]byte{},
		CodeErr:  map[common.Address]error{},
	}
}

func (f *FakeChain) ChainID(context.Context) (*big.Int, error) {
	return new(big.Int).SetUint64(f.ID), nil
}

func (f *FakeChain) CodeAt(_ context.Context, account common.Address, _ *big.Int) ([]byte, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.CodeAsks = append(f.CodeAsks, account)
	if err := f.CodeErr[account]; err != nil {
		return nil, err
	}
	return f.Code[account], nil
}

func (f *FakeChain) CallContract(context.Context, ethereum.CallMsg, *big.Int) ([]byte, error) {
	return nil, errors.New("FakeChain does not execute calls")
}

func (f *FakeChain) EstimateGas(context.Context, ethereum.CallMsg) (uint64, error) {
	return 0, errors.New("FakeChain does not estimate")
}

func (f *FakeChain) PendingNonceAt(context.Context, common.Address) (uint64, error) { return 0, nil }

func (f *FakeChain) SuggestGasPrice(context.Context) (*big.Int, error) {
	return new(big.Int).Set(f.GasPrice), nil
}

func (f *FakeChain) SendTransaction(context.Context, *types.Transaction) error {
	return errors.New("FakeChain does not accept transactions")
}

func (f *FakeChain) TransactionReceipt(context.Context, common.Hash) (*types.Receipt, error) {
	return nil, ethereum.NotFound
}

// FakeSigner has an address and refuses to sign; gateways are faked too.
type FakeSigner struct {
	Addr common.Address
}

func (s FakeSigner) Address() common.Address { return s.Addr }

func (s FakeSigner) SignTx(*types.Transaction, *big.Int) (*types.Transaction, error) {
	return nil, errors.New("FakeSigner does not sign")
}

// JoinCall records a submitted join.
type JoinCall struct {
	Opts     entity.TxOptions
	Referral uint64
	Side     entity.Side
	Amount   *big.Int
}

// HiddenSlotCall records a submitted hidden-slot creation.
type HiddenSlotCall struct {
	Opts   entity.TxOptions
	Child  common.Address
	Side   entity.Side
	Amount *big.Int
}

// FakeMembership is an in-memory membership contract. Errs keys are method
// names; a key of the form "PositionOf:<index>" fails only that index.
type FakeMembership struct {
	mu sync.Mutex

	Addr             common.Address
	Count            uint64
	IsPaused         bool
	Indices          map[common.Address]uint64
	Positions        map[uint64]entity.Position
	TokenBalances    map[uint64]*big.Int
	TreeBalances     map[uint64]*big.Int
	TotalReceived    map[uint64]*big.Int
	LeftCounts       map[uint64]uint64
	RightCounts      map[uint64]uint64
	Pending          []uint64
	Liquidity        *big.Int
	EntryAmount      *big.Int
	AdminFee         *big.Int
	HideCounts       map[uint64][2]uint64
	Tiers            [entity.MaxSlotsPerSide]*big.Int
	ActivationPeriod uint64
	LeftKids         map[uint64][]uint64
	RightKids        map[uint64][]uint64
	Members          map[common.Address]bool
	Gas              uint64
	ReceiptStatus    uint64

	Errs        map[string]error
	Calls       map[string]int
	Joins       []JoinCall
	HiddenSlots []HiddenSlotCall
}

var _ port.MembershipContract = (*FakeMembership)(nil)

func NewFakeMembership(addr common.Address) *FakeMembership {
	return &FakeMembership{
		Addr:          addr,
		Indices:       map[common.Address]uint64{},
		Positions:     map[uint64]entity.Position{},
		TokenBalances: map[uint64]*big.Int{},
		TreeBalances:  map[uint64]*big.Int{},
		TotalReceived: map[uint64]*big.Int{},
		LeftCounts:    map[uint64]uint64{},
		RightCounts:   map[uint64]uint64{},
		Liquidity:     new(big.Int),
		EntryAmount:   new(big.Int),
		AdminFee:      new(big.Int),
		HideCounts:    map[uint64][2]uint64{},
		LeftKids:      map[uint64][]uint64{},
		RightKids:     map[uint64][]uint64{},
		Members:       map[common.Address]bool{},
		Gas:           100000,
		ReceiptStatus: types.ReceiptStatusSuccessful,
		Errs:          map[string]error{},
		Calls:         map[string]int{},
	}
}

func (f *FakeMembership) enter(method string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.Calls[method]++
	return f.Errs[method]
}

// CallCount returns how many times method was called.
func (f *FakeMembership) CallCount(method string) int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.Calls[method]
}

func bigOrZero(v *big.Int) *big.Int {
	if v == nil {
		return new(big.Int)
	}
	return new(big.Int).Set(v)
}

func (f *FakeMembership) Address() common.Address { return f.Addr }

func (f *FakeMembership) MemberCount(context.Context) (uint64, error) {
	if err := f.enter("MemberCount"); err != nil {
		return 0, err
	}
	return f.Count, nil
}

func (f *FakeMembership) Paused(context.Context) (bool, error) {
	if err := f.enter("Paused"); err != nil {
		return false, err
	}
	return f.IsPaused, nil
}

func (f *FakeMembership) IndexOf(_ context.Context, account common.Address) (uint64, error) {
	if err := f.enter("IndexOf"); err != nil {
		return 0, err
	}
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.Indices[account], nil
}

func (f *FakeMembership) PositionOf(_ context.Context, index uint64) (entity.Position, error) {
	if err := f.enter("PositionOf"); err != nil {
		return entity.Position{}, err
	}
	f.mu.Lock()
	defer f.mu.Unlock()
	if err := f.Errs[fmt.Sprintf("PositionOf:%d", index)]; err != nil {
		return entity.Position{}, err
	}
	return f.Positions[index], nil
}

func (f *FakeMembership) TokenBalanceOf(_ context.Context, index uint64) (*big.Int, error) {
	if err := f.enter("TokenBalanceOf"); err != nil {
		return nil, err
	}
	return bigOrZero(f.TokenBalances[index]), nil
}

func (f *FakeMembership) TreeBalanceOf(_ context.Context, index uint64) (*big.Int, error) {
	if err := f.enter("TreeBalanceOf"); err != nil {
		return nil, err
	}
	return bigOrZero(f.TreeBalances[index]), nil
}

func (f *FakeMembership) TotalReceivedOf(_ context.Context, index uint64) (*big.Int, error) {
	if err := f.enter("TotalReceivedOf"); err != nil {
		return nil, err
	}
	return bigOrZero(f.TotalReceived[index]), nil
}

func (f *FakeMembership) LeftCountOf(_ context.Context, index uint64) (uint64, error) {
	if err := f.enter("LeftCountOf"); err != nil {
		return 0, err
	}
	return f.LeftCounts[index], nil
}

func (f *FakeMembership) RightCountOf(_ context.Context, index uint64) (uint64, error) {
	if err := f.enter("RightCountOf"); err != nil {
		return 0, err
	}
	return f.RightCounts[index], nil
}

func (f *FakeMembership) PendingOperations(context.Context) ([]uint64, error) {
	if err := f.enter("PendingOperations"); err != nil {
		return nil, err
	}
	return append([]uint64(nil), f.Pending...), nil
}

func (f *FakeMembership) AggregateLiquidity(context.Context, uint64) (*big.Int, error) {
	if err := f.enter("AggregateLiquidity"); err != nil {
		return nil, err
	}
	return bigOrZero(f.Liquidity), nil
}

func (f *FakeMembership) EntryGrossAmount(context.Context) (*big.Int, error) {
	if err := f.enter("EntryGrossAmount"); err != nil {
		return nil, err
	}
	return bigOrZero(f.EntryAmount), nil
}

func (f *FakeMembership) EntryAdminFee(context.Context) (*big.Int, error) {
	if err := f.enter("EntryAdminFee"); err != nil {
		return nil, err
	}
	return bigOrZero(f.AdminFee), nil
}

func (f *FakeMembership) HideCount(_ context.Context, index uint64, side entity.Side) (uint64, error) {
	if err := f.enter("HideCount"); err != nil {
		return 0, err
	}
	f.mu.Lock()
	defer f.mu.Unlock()
	counts := f.HideCounts[index]
	if side == entity.SideLeft {
		return counts[0], nil
	}
	return counts[1], nil
}

func (f *FakeMembership) TierAmount(_ context.Context, tier int) (*big.Int, error) {
	if err := f.enter("TierAmount"); err != nil {
		return nil, err
	}
	if tier < 1 || tier > entity.MaxSlotsPerSide {
		return nil, fmt.Errorf("tier %d out of range", tier)
	}
	return bigOrZero(f.Tiers[tier-1]), nil
}

func (f *FakeMembership) ActivationPeriodSeconds(context.Context) (uint64, error) {
	if err := f.enter("ActivationPeriodSeconds"); err != nil {
		return 0, err
	}
	return f.ActivationPeriod, nil
}

func (f *FakeMembership) LeftChildren(_ context.Context, index uint64) ([]uint64, error) {
	if err := f.enter("LeftChildren"); err != nil {
		return nil, err
	}
	return append([]uint64(nil), f.LeftKids[index]...), nil
}

func (f *FakeMembership) RightChildren(_ context.Context, index uint64) ([]uint64, error) {
	if err := f.enter("RightChildren"); err != nil {
		return nil, err
	}
	return append([]uint64(nil), f.RightKids[index]...), nil
}

func (f *FakeMembership) AddressIsMember(_ context.Context, account common.Address) (bool, error) {
	if err := f.enter("AddressIsMember"); err != nil {
		return false, err
	}
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.Members[account], nil
}

func (f *FakeMembership) EstimateJoin(context.Context, common.Address, uint64, entity.Side, *big.Int) (uint64, error) {
	if err := f.enter("EstimateJoin"); err != nil {
		return 0, err
	}
	return f.Gas, nil
}

func (f *FakeMembership) Join(_ context.Context, opts entity.TxOptions, referral uint64, side entity.Side, amount *big.Int) (*entity.TxReceipt, error) {
	if err := f.enter("Join"); err != nil {
		return nil, err
	}
	f.mu.Lock()
	defer f.mu.Unlock()
	f.Joins = append(f.Joins, JoinCall{Opts: opts, Referral: referral, Side: side, Amount: new(big.Int).Set(amount)})
	return &entity.TxReceipt{TxHash: fmt.Sprintf("0xjoin%d", len(f.Joins)), Status: f.ReceiptStatus, GasUsed: opts.GasLimit / 2, BlockNumber: 10}, nil
}

func (f *FakeMembership) EstimateCreateHiddenSlot(context.Context, common.Address, common.Address, entity.Side, *big.Int) (uint64, error) {
	if err := f.enter("EstimateCreateHiddenSlot"); err != nil {
		return 0, err
	}
	return f.Gas, nil
}

func (f *FakeMembership) CreateHiddenSlot(_ context.Context, opts entity.TxOptions, child common.Address, side entity.Side, amount *big.Int) (*entity.TxReceipt, error) {
	if err := f.enter("CreateHiddenSlot"); err != nil {
		return nil, err
	}
	f.mu.Lock()
	defer f.mu.Unlock()
	f.HiddenSlots = append(f.HiddenSlots, HiddenSlotCall{Opts: opts, Child: child, Side: side, Amount: new(big.Int).Set(amount)})
	return &entity.TxReceipt{TxHash: fmt.Sprintf("0xhide%d", len(f.HiddenSlots)), Status: f.ReceiptStatus, BlockNumber: 11}, nil
}

// ApproveCall records a submitted approval.
type ApproveCall struct {
	Opts    entity.TxOptions
	Spender common.Address
	Amount  *big.Int
}

// FakeToken is an in-memory ERC20. Allowances are keyed by owner only.
type FakeToken struct {
	mu sync.Mutex

	Addr          common.Address
	Sym           string
	Balances      map[common.Address]*big.Int
	Allowances    map[common.Address]*big.Int
	ReceiptStatus uint64

	Errs      map[string]error
	Approvals []ApproveCall
}

var _ port.TokenContract = (*FakeToken)(nil)

func NewFakeToken(addr common.Address) *FakeToken {
	return &FakeToken{
		Addr:          addr,
		Sym:           "USDT",
		Balances:      map[common.Address]*big.Int{},
		Allowances:    map[common.Address]*big.Int{},
		ReceiptStatus: types.ReceiptStatusSuccessful,
		Errs:          map[string]error{},
	}
}

func (f *FakeToken) Address() common.Address { return f.Addr }

func (f *FakeToken) Symbol(context.Context) (string, error) {
	if err := f.Errs["Symbol"]; err != nil {
		return "", err
	}
	return f.Sym, nil
}

func (f *FakeToken) BalanceOf(_ context.Context, owner common.Address) (*big.Int, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if err := f.Errs["BalanceOf"]; err != nil {
		return nil, err
	}
	return bigOrZero(f.Balances[owner]), nil
}

func (f *FakeToken) Allowance(_ context.Context, owner, _ common.Address) (*big.Int, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if err := f.Errs["Allowance"]; err != nil {
		return nil, err
	}
	return bigOrZero(f.Allowances[owner]), nil
}

func (f *FakeToken) Approve(_ context.Context, opts entity.TxOptions, spender common.Address, amount *big.Int) (*entity.TxReceipt, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if err := f.Errs["Approve"]; err != nil {
		return nil, err
	}
	f.Approvals = append(f.Approvals, ApproveCall{Opts: opts, Spender: spender, Amount: new(big.Int).Set(amount)})
	if f.ReceiptStatus == types.ReceiptStatusSuccessful {
		f.Allowances[opts.From] = new(big.Int).Set(amount)
	}
	return &entity.TxReceipt{TxHash: fmt.Sprintf("0xapprove%d", len(f.Approvals)), Status: f.ReceiptStatus, BlockNumber: 9}, nil
}

// FakeClient is a FakeChain bound to a descriptor.
type FakeClient struct {
	*FakeChain
	Desc entity.NetworkDescriptor
}

var _ port.BlockchainClient = (*FakeClient)(nil)

func (c *FakeClient) Descriptor() entity.NetworkDescriptor { return c.Desc }

func (c *FakeClient) Endpoint() string { return "fake://" + c.Desc.Name }

// FakeClientProvider hands out one FakeClient per chain id.
type FakeClientProvider struct {
	Chains map[uint64]*FakeChain
	Err    error
}

func (p *FakeClientProvider) GetClient(_ context.Context, desc entity.NetworkDescriptor) (port.BlockchainClient, error) {
	if p.Err != nil {
		return nil, p.Err
	}
	chain, ok := p.Chains[desc.ChainID]
	if !ok {
		return nil, fmt.Errorf("no endpoint for chain %d", desc.ChainID)
	}
	return &FakeClient{FakeChain: chain, Desc: desc}, nil
}

// FakeFactory returns pre-built fakes keyed by address.
type FakeFactory struct {
	Memberships map[common.Address]*FakeMembership
	Tokens      map[common.Address]*FakeToken
}

var _ port.ContractFactory = (*FakeFactory)(nil)

func (f *FakeFactory) Membership(address common.Address, _ port.ChainBackend, _ port.Signer) port.MembershipContract {
	if m, ok := f.Memberships[address]; ok {
		return m
	}
	m := NewFakeMembership(address)
	m.Errs["MemberCount"] = errors.New("execution reverted")
	return m
}

func (f *FakeFactory) Token(address common.Address, _ port.ChainBackend, _ port.Signer) port.TokenContract {
	if t, ok := f.Tokens[address]; ok {
		return t
	}
	t := NewFakeToken(address)
	t.Errs["Symbol"] = errors.New("execution reverted")
	return t
}

// StaticNetworks is a NetworkDefinitionProvider over a fixed list.
type StaticNetworks []entity.NetworkDescriptor

func (n StaticNetworks) GetAllNetworkDescriptors() []entity.NetworkDescriptor {
	return append([]entity.NetworkDescriptor(nil), n...)
}

func (n StaticNetworks) Resolve(chainID uint64) entity.NetworkDescriptor {
	for _, d := range n {
		if d.ChainID == chainID {
			return d
		}
	}
	return entity.NetworkDescriptor{
		ChainID:     chainID,
		Name:        fmt.Sprintf("Custom Network %d", chainID),
		IsTestnet:   true,
		Placeholder: true,
	}
}
