package client

import (
	"context"
	"errors"
	"fmt"
	"math/big"
	"time"

	"vest_orchestrator/internal/app/port"
	"vest_orchestrator/internal/domain/entity"

	"github.com/ethereum/go-ethereum"
	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/core/types"
	"github.com/ethereum/go-ethereum/ethclient"
	"go.uber.org/zap"
)

// EVMClient implements the port.BlockchainClient interface for EVM-compatible chains.
type EVMClient struct {
	ethClient      *ethclient.Client
	desc           entity.NetworkDescriptor
	endpoint       string
	rpcCallTimeout time.Duration
}

// DialOptions controls how NewEVMClient picks an endpoint.
type DialOptions struct {
	ConnectionTimeout time.Duration
	RPCCallTimeout    time.Duration
	// LocalNodeURLs are tried when the descriptor carries no RPC URL.
	LocalNodeURLs []string
}

// NewEVMClient connects to the first endpoint of desc that answers the probe
// with the expected chain id. Descriptors without URLs fall back to the
// local node list.
func NewEVMClient(ctx context.Context, desc entity.NetworkDescriptor, prober *EndpointProber, opts DialOptions, logger *zap.Logger) (*EVMClient, error) {
	if logger == nil {
		logger = zap.NewNop()
	}
	rpcURLs := desc.RPCURLs()
	if len(rpcURLs) == 0 {
		rpcURLs = opts.LocalNodeURLs
		logger.Info("No RPC URL configured, probing local nodes", zap.Uint64("chainID", desc.ChainID), zap.Strings("urls", rpcURLs))
	}
	if len(rpcURLs) == 0 {
		return nil, entity.NewError(entity.KindNotConnected, "no RPC endpoint available for chain %d", desc.ChainID)
	}

	var lastErr error
	for _, rpcURL := range rpcURLs {
		if prober != nil {
			servedChainID, err := prober.Probe(ctx, rpcURL)
			if err != nil {
				lastErr = err
				logger.Debug("Endpoint probe failed", zap.String("url", rpcURL), zap.Error(err))
				continue
			}
			if desc.ChainID != 0 && servedChainID != desc.ChainID {
				lastErr = fmt.Errorf("chainID mismatch for %s: expected %d, got %d", rpcURL, desc.ChainID, servedChainID)
				logger.Warn("Endpoint serves another chain", zap.String("url", rpcURL), zap.Uint64("expected", desc.ChainID), zap.Uint64("got", servedChainID))
				continue
			}
		}

		dialCtx, cancel := context.WithTimeout(ctx, opts.ConnectionTimeout)
		client, err := ethclient.DialContext(dialCtx, rpcURL)
		cancel()
		if err != nil {
			lastErr = fmt.Errorf("failed to connect to RPC %s: %w", rpcURL, err)
			continue
		}
		logger.Info("Connected to RPC endpoint", zap.String("url", rpcURL), zap.Uint64("chainID", desc.ChainID))
		return &EVMClient{ethClient: client, desc: desc, endpoint: rpcURL, rpcCallTimeout: opts.RPCCallTimeout}, nil
	}

	return nil, &entity.OrchestrationError{
		Kind:    entity.KindNotConnected,
		Message: fmt.Sprintf("all RPC connection attempts failed for network %s: %v", desc.Name, lastErr),
		Cause:   lastErr,
	}
}

// Descriptor returns the network descriptor associated with this client.
func (c *EVMClient) Descriptor() entity.NetworkDescriptor { return c.desc }

// Endpoint returns the RPC URL in use.
func (c *EVMClient) Endpoint() string { return c.endpoint }

// Close releases the underlying RPC connection.
func (c *EVMClient) Close() { c.ethClient.Close() }

func (c *EVMClient) callCtx(ctx context.Context) (context.Context, context.CancelFunc) {
	if c.rpcCallTimeout <= 0 {
		return context.WithCancel(ctx)
	}
	return context.WithTimeout(ctx, c.rpcCallTimeout)
}

func (c *EVMClient) ChainID(ctx context.Context) (*big.Int, error) {
	ctx, cancel := c.callCtx(ctx)
	defer cancel()
	return c.ethClient.ChainID(ctx)
}

func (c *EVMClient) CodeAt(ctx context.Context, account common.Address, blockNumber *big.Int) ([]byte, error) {
	ctx, cancel := c.callCtx(ctx)
	defer cancel()
	return c.ethClient.CodeAt(ctx, account, blockNumber)
}

func (c *EVMClient) CallContract(ctx context.Context, msg ethereum.CallMsg, blockNumber *big.Int) ([]byte, error) {
	ctx, cancel := c.callCtx(ctx)
	defer cancel()
	return c.ethClient.CallContract(ctx, msg, blockNumber)
}

func (c *EVMClient) EstimateGas(ctx context.Context, msg ethereum.CallMsg) (uint64, error) {
	ctx, cancel := c.callCtx(ctx)
	defer cancel()
	return c.ethClient.EstimateGas(ctx, msg)
}

func (c *EVMClient) PendingNonceAt(ctx context.Context, account common.Address) (uint64, error) {
	ctx, cancel := c.callCtx(ctx)
	defer cancel()
	return c.ethClient.PendingNonceAt(ctx, account)
}

func (c *EVMClient) SuggestGasPrice(ctx context.Context) (*big.Int, error) {
	ctx, cancel := c.callCtx(ctx)
	defer cancel()
	return c.ethClient.SuggestGasPrice(ctx)
}

func (c *EVMClient) SendTransaction(ctx context.Context, tx *types.Transaction) error {
	ctx, cancel := c.callCtx(ctx)
	defer cancel()
	return c.ethClient.SendTransaction(ctx, tx)
}

// TransactionReceipt returns ethereum.NotFound while the transaction is pending.
func (c *EVMClient) TransactionReceipt(ctx context.Context, txHash common.Hash) (*types.Receipt, error) {
	ctx, cancel := c.callCtx(ctx)
	defer cancel()
	receipt, err := c.ethClient.TransactionReceipt(ctx, txHash)
	if err != nil && !errors.Is(err, ethereum.NotFound) {
		return nil, err
	}
	return receipt, err
}

var _ port.BlockchainClient = (*EVMClient)(nil)
