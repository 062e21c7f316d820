package port

import (
	"context"
	"math/big"

	"vest_orchestrator/internal/domain/entity"

	"github.com/ethereum/go-ethereum"
	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/core/types"
)

// ChainBackend is the subset of a ledger endpoint the engine talks to.
// *ethclient.Client satisfies it.
type ChainBackend interface {
	ChainID(ctx context.Context) (*big.Int, error)
	CodeAt(ctx context.Context, account common.Address, blockNumber *big.Int) ([]byte, error)
	CallContract(ctx context.Context, msg ethereum.CallMsg, blockNumber *big.Int) ([]byte, error)
	EstimateGas(ctx context.Context, msg ethereum.CallMsg) (uint64, error)
	PendingNonceAt(ctx context.Context, account common.Address) (uint64, error)
	SuggestGasPrice(ctx context.Context) (*big.Int, error)
	SendTransaction(ctx context.Context, tx *types.Transaction) error
	TransactionReceipt(ctx context.Context, txHash common.Hash) (*types.Receipt, error)
}

// BlockchainClient is a ChainBackend bound to one network.
type BlockchainClient interface {
	ChainBackend

	// Descriptor returns the network descriptor associated with this client.
	Descriptor() entity.NetworkDescriptor

	// Endpoint returns the RPC URL the client is connected to.
	Endpoint() string
}

// NetworkDefinitionProvider looks up network descriptors.
type NetworkDefinitionProvider interface {
	// GetAllNetworkDescriptors returns all configured descriptors.
	GetAllNetworkDescriptors() []entity.NetworkDescriptor

	// Resolve returns the descriptor for chainID, synthesizing a placeholder
	// when the chain is unknown.
	Resolve(chainID uint64) entity.NetworkDescriptor
}

// BlockchainClientProvider hands out connected clients per network.
type BlockchainClientProvider interface {
	GetClient(ctx context.Context, descriptor entity.NetworkDescriptor) (BlockchainClient, error)
}
