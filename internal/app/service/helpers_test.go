package service

import (
	"math/big"

	"vest_orchestrator/internal/app/port/porttest"
	"vest_orchestrator/internal/app/session"
	"vest_orchestrator/internal/domain/entity"

	"github.com/ethereum/go-ethereum/common"
)

var (
	testAccount    = common.HexToAddress("0xf39Fd6e51aad88F6F4ce6aB8827279cffFb92266")
	testMembership = common.HexToAddress("0x5FbDB2315678afecb367f032d93F642f64180aa3")
	testToken      = common.HexToAddress("0xe7f1725E7734CE288F8367e1Bb143E90bb3F0512")
)

func usdt(whole int64) *big.Int {
	return new(big.Int).Mul(big.NewInt(whole), big.NewInt(1_000_000))
}

type fixture struct {
	sess       *session.Session
	membership *porttest.FakeMembership
	token      *porttest.FakeToken
	chain      *porttest.FakeChain
}

func newFixture() *fixture {
	chain := porttest.NewFakeChain(1337)
	membership := porttest.NewFakeMembership(testMembership)
	membership.Count = 40
	membership.EntryAmount = usdt(100)
	membership.AdminFee = usdt(12)
	membership.Tiers = [entity.MaxSlotsPerSide]*big.Int{usdt(50), usdt(75), usdt(100)}
	token := porttest.NewFakeToken(testToken)

	desc := entity.NetworkDescriptor{
		ChainID:   1337,
		Name:      "Ganache",
		FeePolicy: entity.FeePolicy{Type: entity.FeePolicyLegacy, GasPriceGwei: 5},
	}
	sess := session.NewSession(desc, testAccount, chain, porttest.FakeSigner{Addr: testAccount}, membership, token)
	return &fixture{sess: sess, membership: membership, token: token, chain: chain}
}

// registered makes the test account member index with the given join time.
func (f *fixture) registered(index uint64, joinedAt uint64) *fixture {
	f.membership.Indices[testAccount] = index
	f.membership.Positions[index] = entity.Position{
		IsLeft:        true,
		Name:          "alice",
		Wallet:        testAccount.Hex(),
		JoinedAtEpoch: joinedAt,
	}
	return f
}

func (f *fixture) funded(allowance, balance *big.Int) *fixture {
	f.token.Allowances[testAccount] = allowance
	f.token.Balances[testAccount] = balance
	return f
}
