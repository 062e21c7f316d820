package gateway

import (
	"context"
	"math/big"
	"time"

	"vest_orchestrator/internal/app/port"
	"vest_orchestrator/internal/domain/entity"

	"github.com/ethereum/go-ethereum"
	"github.com/ethereum/go-ethereum/accounts/abi"
	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/core/types"
	"github.com/pkg/errors"
	"golang.org/x/time/rate"
)

// CallObserver is notified after every remote call a gateway makes.
type CallObserver interface {
	ObserveRemoteCall(contract, method string, err error)
}

type boundContract struct {
	name    string
	address common.Address
	abi     abi.ABI
	backend port.ChainBackend
	signer  port.Signer

	limiter        *rate.Limiter
	pollInterval   time.Duration
	receiptTimeout time.Duration
	observer       CallObserver
}

func (b *boundContract) observe(method string, err error) {
	if b.observer != nil {
		b.observer.ObserveRemoteCall(b.name, method, err)
	}
}

func (b *boundContract) wait(ctx context.Context) error {
	if b.limiter == nil {
		return nil
	}
	return errors.WithStack(b.limiter.Wait(ctx))
}

// call runs a read-only method against the latest block. Endpoint errors are
// returned with their message as is.
func (b *boundContract) call(ctx context.Context, method string, args ...interface{}) (out []interface{}, err error) {
	defer func() { b.observe(method, err) }()

	if err := b.wait(ctx); err != nil {
		return nil, err
	}
	input, err := b.abi.Pack(method, args...)
	if err != nil {
		return nil, errors.Wrapf(err, "failed to pack %s", method)
	}
	raw, err := b.backend.CallContract(ctx, ethereum.CallMsg{To: &b.address, Data: input}, nil)
	if err != nil {
		return nil, errors.WithStack(err)
	}
	out, err = b.abi.Unpack(method, raw)
	if err != nil {
		return nil, errors.Wrapf(err, "failed to unpack %s", method)
	}
	return out, nil
}

func (b *boundContract) estimate(ctx context.Context, from common.Address, method string, args ...interface{}) (gas uint64, err error) {
	defer func() { b.observe("estimate_"+method, err) }()

	if err := b.wait(ctx); err != nil {
		return 0, err
	}
	input, err := b.abi.Pack(method, args...)
	if err != nil {
		return 0, errors.Wrapf(err, "failed to pack %s", method)
	}
	gas, err = b.backend.EstimateGas(ctx, ethereum.CallMsg{From: from, To: &b.address, Data: input})
	if err != nil {
		return 0, errors.WithStack(err)
	}
	return gas, nil
}

// transact signs and submits method, then blocks until it is mined.
func (b *boundContract) transact(ctx context.Context, opts entity.TxOptions, method string, args ...interface{}) (receipt *entity.TxReceipt, err error) {
	defer func() { b.observe(method, err) }()

	if b.signer == nil {
		return nil, errors.New("no signer bound to " + b.name + " gateway")
	}
	if opts.GasLimit == 0 {
		return nil, errors.Errorf("gas limit for %s must be positive", method)
	}
	input, err := b.abi.Pack(method, args...)
	if err != nil {
		return nil, errors.Wrapf(err, "failed to pack %s", method)
	}
	if err := b.wait(ctx); err != nil {
		return nil, err
	}

	chainID, err := b.backend.ChainID(ctx)
	if err != nil {
		return nil, errors.WithStack(err)
	}
	nonce, err := b.backend.PendingNonceAt(ctx, opts.From)
	if err != nil {
		return nil, errors.WithStack(err)
	}

	var txData types.TxData
	if opts.Fee.IsDynamic() {
		txData = &types.DynamicFeeTx{
			ChainID:   chainID,
			Nonce:     nonce,
			GasTipCap: opts.Fee.MaxPriorityFeePerGas,
			GasFeeCap: opts.Fee.MaxFeePerGas,
			Gas:       opts.GasLimit,
			To:        &b.address,
			Value:     new(big.Int),
			Data:      input,
		}
	} else {
		gasPrice := opts.Fee.GasPrice
		if gasPrice == nil {
			if gasPrice, err = b.backend.SuggestGasPrice(ctx); err != nil {
				return nil, errors.WithStack(err)
			}
		}
		txData = &types.LegacyTx{
			Nonce:    nonce,
			GasPrice: gasPrice,
			Gas:      opts.GasLimit,
			To:       &b.address,
			Value:    new(big.Int),
			Data:     input,
		}
	}

	signed, err := b.signer.SignTx(types.NewTx(txData), chainID)
	if err != nil {
		return nil, errors.Wrap(err, "failed to sign transaction")
	}
	if err := b.backend.SendTransaction(ctx, signed); err != nil {
		return nil, errors.WithStack(err)
	}
	return b.waitMined(ctx, signed.Hash())
}

func (b *boundContract) waitMined(ctx context.Context, hash common.Hash) (*entity.TxReceipt, error) {
	if b.receiptTimeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, b.receiptTimeout)
		defer cancel()
	}
	poll := b.pollInterval
	if poll <= 0 {
		poll = time.Second
	}
	ticker := time.NewTicker(poll)
	defer ticker.Stop()

	for {
		receipt, err := b.backend.TransactionReceipt(ctx, hash)
		if err == nil && receipt != nil {
			out := &entity.TxReceipt{
				TxHash:  hash.Hex(),
				Status:  receipt.Status,
				GasUsed: receipt.GasUsed,
			}
			if receipt.BlockNumber != nil {
				out.BlockNumber = receipt.BlockNumber.Uint64()
			}
			return out, nil
		}
		if err != nil && !errors.Is(err, ethereum.NotFound) {
			return nil, errors.WithStack(err)
		}

		select {
		case <-ctx.Done():
			return nil, errors.Wrapf(ctx.Err(), "transaction %s not mined", hash.Hex())
		case <-ticker.C:
		}
	}
}

func bigOut(out []interface{}, method string) (*big.Int, error) {
	if len(out) == 0 {
		return nil, errors.Errorf("%s returned no values", method)
	}
	v, ok := out[0].(*big.Int)
	if !ok || v == nil {
		return nil, errors.Errorf("%s returned %T, want uint256", method, out[0])
	}
	return v, nil
}

func uint64Out(out []interface{}, method string) (uint64, error) {
	v, err := bigOut(out, method)
	if err != nil {
		return 0, err
	}
	if !v.IsUint64() {
		return 0, errors.Errorf("%s returned %s, which overflows uint64", method, v)
	}
	return v.Uint64(), nil
}

func boolOut(out []interface{}, method string) (bool, error) {
	if len(out) == 0 {
		return false, errors.Errorf("%s returned no values", method)
	}
	v, ok := out[0].(bool)
	if !ok {
		return false, errors.Errorf("%s returned %T, want bool", method, out[0])
	}
	return v, nil
}

func indexListOut(out []interface{}, method string) ([]uint64, error) {
	if len(out) == 0 {
		return nil, errors.Errorf("%s returned no values", method)
	}
	raw, ok := out[0].([]*big.Int)
	if !ok {
		return nil, errors.Errorf("%s returned %T, want uint256[]", method, out[0])
	}
	list := make([]uint64, 0, len(raw))
	for _, v := range raw {
		if v == nil || !v.IsUint64() {
			return nil, errors.Errorf("%s returned an index out of range", method)
		}
		list = append(list, v.Uint64())
	}
	return list, nil
}
