package gateway

import (
	"context"
	"math/big"

	"vest_orchestrator/internal/app/port"
	"vest_orchestrator/internal/domain/entity"

	"github.com/ethereum/go-ethereum/common"
	"github.com/pkg/errors"
)

// TokenGateway is the typed call layer over the ERC20 payment token.
type TokenGateway struct {
	c *boundContract
}

var _ port.TokenContract = (*TokenGateway)(nil)

func (g *TokenGateway) Address() common.Address { return g.c.address }

func (g *TokenGateway) Symbol(ctx context.Context) (string, error) {
	out, err := g.c.call(ctx, "symbol")
	if err != nil {
		return "", err
	}
	if len(out) == 0 {
		return "", errors.New("symbol returned no values")
	}
	s, ok := out[0].(string)
	if !ok {
		return "", errors.Errorf("symbol returned %T, want string", out[0])
	}
	return s, nil
}

func (g *TokenGateway) BalanceOf(ctx context.Context, owner common.Address) (*big.Int, error) {
	out, err := g.c.call(ctx, "balanceOf", owner)
	if err != nil {
		return nil, err
	}
	return bigOut(out, "balanceOf")
}

func (g *TokenGateway) Allowance(ctx context.Context, owner, spender common.Address) (*big.Int, error) {
	out, err := g.c.call(ctx, "allowance", owner, spender)
	if err != nil {
		return nil, err
	}
	return bigOut(out, "allowance")
}

// Approve grants spender an allowance of exactly amount.
func (g *TokenGateway) Approve(ctx context.Context, opts entity.TxOptions, spender common.Address, amount *big.Int) (*entity.TxReceipt, error) {
	return g.c.transact(ctx, opts, "approve", spender, amount)
}
