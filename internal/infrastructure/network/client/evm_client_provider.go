package client

import (
	"context"
	"sync"

	"vest_orchestrator/internal/app/port"
	"vest_orchestrator/internal/domain/entity"
	"vest_orchestrator/internal/infrastructure/configloader"

	"go.uber.org/zap"
)

// evmClientProvider implements the port.BlockchainClientProvider interface.
type evmClientProvider struct {
	clients map[uint64]*EVMClient
	mu      sync.Mutex
	prober  *EndpointProber
	opts    DialOptions
	logger  *zap.Logger
}

// NewEVMClientProvider creates a provider that dials lazily and caches one
// client per chain id.
func NewEVMClientProvider(cfg *configloader.Config, logger *zap.Logger) port.BlockchainClientProvider {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &evmClientProvider{
		clients: make(map[uint64]*EVMClient),
		prober:  NewEndpointProber(cfg.ProbeTimeout(), logger),
		opts: DialOptions{
			ConnectionTimeout: cfg.ConnectionTimeout(),
			RPCCallTimeout:    cfg.CallTimeout(),
			LocalNodeURLs:     cfg.Session.LocalNodeURLs,
		},
		logger: logger.Named("EVMClientProvider"),
	}
}

// GetClient retrieves a blockchain client for the given descriptor.
func (p *evmClientProvider) GetClient(ctx context.Context, desc entity.NetworkDescriptor) (port.BlockchainClient, error) {
	p.mu.Lock()
	defer p.mu.Unlock()

	if client, exists := p.clients[desc.ChainID]; exists {
		p.logger.Debug("Returning cached EVM client", zap.Uint64("chainID", desc.ChainID))
		return client, nil
	}

	p.logger.Info("Creating new EVM client", zap.String("network", desc.Name), zap.String("rpc_primary", desc.PrimaryRPCURL))
	newClient, err := NewEVMClient(ctx, desc, p.prober, p.opts, p.logger)
	if err != nil {
		p.logger.Error("Failed to create EVM client", zap.String("network", desc.Name), zap.Error(err))
		return nil, err
	}

	p.clients[desc.ChainID] = newClient
	return newClient, nil
}
