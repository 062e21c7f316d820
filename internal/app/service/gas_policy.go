package service

import (
	"context"

	"vest_orchestrator/internal/app/port"
	"vest_orchestrator/internal/domain/entity"
	"vest_orchestrator/internal/pkg/utils"
)

// Fixed gas ceilings used when estimation fails. The multipliers applied to
// successful estimates are policy, not derived from the contract.
const (
	LeftJoinFallbackGas   uint64 = 400000
	RightJoinFallbackGas  uint64 = 1500000
	HiddenSlotFallbackGas uint64 = 500000
	ApproveGasLimit       uint64 = 100000
)

// GasPolicy turns a gas estimate into the ceiling a transaction is sent with.
type GasPolicy struct {
	Num      uint64
	Den      uint64
	Fallback uint64
}

// JoinGasPolicy scales left joins by 1.3 and right joins by 1.5.
func JoinGasPolicy(side entity.Side) GasPolicy {
	if side == entity.SideLeft {
		return GasPolicy{Num: 13, Den: 10, Fallback: LeftJoinFallbackGas}
	}
	return GasPolicy{Num: 15, Den: 10, Fallback: RightJoinFallbackGas}
}

func HiddenSlotGasPolicy() GasPolicy {
	return GasPolicy{Num: 15, Den: 10, Fallback: HiddenSlotFallbackGas}
}

// FixedGasPolicy always returns limit and never estimates.
func FixedGasPolicy(limit uint64) GasPolicy {
	return GasPolicy{Fallback: limit}
}

// Fixed reports whether the policy skips estimation.
func (p GasPolicy) Fixed() bool { return p.Num == 0 || p.Den == 0 }

// Resolve returns the scaled estimate, or the fallback when estimation failed.
func (p GasPolicy) Resolve(estimate uint64, err error) uint64 {
	if p.Fixed() || err != nil || estimate == 0 {
		return p.Fallback
	}
	return utils.ScaleGas(estimate, p.Num, p.Den)
}

// ResolveFeeParams picks the fee fields of a transaction from the network's
// fee policy. Incomplete fixed policies behave like auto.
func ResolveFeeParams(ctx context.Context, policy entity.FeePolicy, backend port.ChainBackend) (entity.FeeParams, error) {
	switch policy.Type {
	case entity.FeePolicyLegacy:
		if policy.GasPriceGwei > 0 {
			return entity.FeeParams{GasPrice: utils.GweiToWei(policy.GasPriceGwei)}, nil
		}
	case entity.FeePolicyEIP1559:
		if policy.MaxFeeGwei > 0 && policy.PriorityGwei > 0 {
			return entity.FeeParams{
				MaxFeePerGas:         utils.GweiToWei(policy.MaxFeeGwei),
				MaxPriorityFeePerGas: utils.GweiToWei(policy.PriorityGwei),
			}, nil
		}
	}
	price, err := backend.SuggestGasPrice(ctx)
	if err != nil {
		return entity.FeeParams{}, entity.RemoteError(err)
	}
	return entity.FeeParams{GasPrice: price}, nil
}
