package entity

import (
	"math/big"

	"github.com/ethereum/go-ethereum/common"
)

// TxKind identifies an orchestrated mutating operation.
type TxKind string

const (
	TxKindApprove          TxKind = "approve"
	TxKindJoin             TxKind = "join"
	TxKindCreateHiddenSlot TxKind = "create_hidden_slot"
)

// FeeParams are the resolved fee fields of a transaction. Either GasPrice or
// both dynamic caps are set.
type FeeParams struct {
	GasPrice             *big.Int
	MaxFeePerGas         *big.Int
	MaxPriorityFeePerGas *big.Int
}

// IsDynamic reports whether the EIP-1559 fields are populated.
func (f FeeParams) IsDynamic() bool {
	return f.MaxFeePerGas != nil && f.MaxPriorityFeePerGas != nil
}

// TxOptions is what a gateway write needs besides the call arguments.
type TxOptions struct {
	From     common.Address
	GasLimit uint64
	Fee      FeeParams
}

// TxReceipt is the mined result of a submitted transaction.
type TxReceipt struct {
	TxHash      string `json:"txHash"`
	Status      uint64 `json:"status"`
	GasUsed     uint64 `json:"gasUsed"`
	BlockNumber uint64 `json:"blockNumber"`
}

// Succeeded reports whether the receipt carries the success status flag.
func (r TxReceipt) Succeeded() bool { return r.Status == 1 }

// TxOutcome is the definitive result of an orchestrated operation.
type TxOutcome struct {
	Kind           TxKind    `json:"kind"`
	Success        bool      `json:"success"`
	Status         uint64    `json:"status"`
	TxHash         string    `json:"txHash,omitempty"`
	GasLimit       uint64    `json:"gasLimit,omitempty"`
	RequiredAmount string    `json:"requiredAmount,omitempty"`
	// Skipped is set when an approval was not needed.
	Skipped   bool      `json:"skipped,omitempty"`
	ErrorKind ErrorKind `json:"errorKind,omitempty"`
	Error     string    `json:"error,omitempty"`
}
