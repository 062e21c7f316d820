package session

import (
	"context"
	"strconv"
	"strings"
	"time"

	"vest_orchestrator/internal/app/port"
	"vest_orchestrator/internal/domain/entity"

	"github.com/ethereum/go-ethereum/common"
	"github.com/patrickmn/go-cache"
)

// Resolver turns {chainId, account} coming from the wallet into a Session.
type Resolver struct {
	networks   port.NetworkDefinitionProvider
	clients    port.BlockchainClientProvider
	contracts  port.ContractFactory
	candidates []common.Address
	discovered *cache.Cache // chainID -> common.Address, zero when nothing was found
	logger     port.Logger
}

// NewResolver creates a Resolver. candidates are probed in order when a
// network has no configured membership contract.
func NewResolver(
	networks port.NetworkDefinitionProvider,
	clients port.BlockchainClientProvider,
	contracts port.ContractFactory,
	candidates []string,
	discoveryTTL time.Duration,
	logger port.Logger,
) *Resolver {
	parsed := make([]common.Address, 0, len(candidates))
	for _, c := range candidates {
		if !common.IsHexAddress(c) {
			logger.Warn("Skipping invalid discovery candidate", "address", c)
			continue
		}
		parsed = append(parsed, common.HexToAddress(c))
	}
	return &Resolver{
		networks:   networks,
		clients:    clients,
		contracts:  contracts,
		candidates: parsed,
		discovered: cache.New(discoveryTTL, 10*time.Minute),
		logger:     logger,
	}
}

// Resolve returns the descriptor of chainID, a placeholder when unknown.
func (r *Resolver) Resolve(chainID uint64) entity.NetworkDescriptor {
	return r.networks.Resolve(chainID)
}

// DiscoverMembershipContract returns the first candidate with deployed code,
// or the zero address. Endpoint errors count as "no code" for that candidate.
func (r *Resolver) DiscoverMembershipContract(ctx context.Context, chainID uint64, backend port.ChainBackend) common.Address {
	cacheKey := strconv.FormatUint(chainID, 10)
	if cached, found := r.discovered.Get(cacheKey); found {
		return cached.(common.Address)
	}

	var found common.Address
	for _, candidate := range r.candidates {
		code, err := backend.CodeAt(ctx, candidate, nil)
		if err != nil {
			r.logger.Debug("Discovery probe failed, treating as no code", "chain_id", chainID, "candidate", candidate.Hex(), "error", err)
			continue
		}
		if len(code) > 0 {
			found = candidate
			break
		}
	}

	if found == (common.Address{}) {
		r.logger.Warn("No membership contract found among discovery candidates", "chain_id", chainID)
	} else {
		r.logger.Info("Membership contract discovered", "chain_id", chainID, "address", found.Hex())
	}
	r.discovered.Set(cacheKey, found, cache.DefaultExpiration)
	return found
}

// Open resolves the network, connects, binds the contracts and probes them.
// account may be empty when a signer is given; its address is used then.
// A contract that fails its probe is left unbound instead of failing Open.
func (r *Resolver) Open(ctx context.Context, chainID uint64, account string, signer port.Signer) (*Session, error) {
	desc := r.Resolve(chainID)

	accountAddr, err := resolveAccount(account, signer)
	if err != nil {
		return nil, err
	}

	client, err := r.clients.GetClient(ctx, desc)
	if err != nil {
		return nil, entity.NewError(entity.KindNotConnected, "cannot connect to %s: %v", desc.Name, err)
	}

	var membershipAddr common.Address
	if common.IsHexAddress(desc.MembershipContractAddress) {
		membershipAddr = common.HexToAddress(desc.MembershipContractAddress)
	} else {
		membershipAddr = r.DiscoverMembershipContract(ctx, chainID, client)
	}

	var membership port.MembershipContract
	if membershipAddr != (common.Address{}) {
		membership = r.contracts.Membership(membershipAddr, client, signer)
		if count, err := membership.MemberCount(ctx); err != nil {
			r.logger.Warn("Membership contract probe failed", "chain_id", chainID, "address", membershipAddr.Hex(), "error", err)
			membership = nil
		} else {
			r.logger.Info("Membership contract ready", "chain_id", chainID, "address", membershipAddr.Hex(), "members", count)
		}
	}

	var token port.TokenContract
	if common.IsHexAddress(desc.TokenContractAddress) {
		token = r.contracts.Token(common.HexToAddress(desc.TokenContractAddress), client, signer)
		if symbol, err := token.Symbol(ctx); err != nil {
			r.logger.Warn("Token contract probe failed", "chain_id", chainID, "address", desc.TokenContractAddress, "error", err)
			token = nil
		} else {
			r.logger.Info("Token contract ready", "chain_id", chainID, "symbol", symbol)
		}
	}

	return NewSession(desc, accountAddr, client, signer, membership, token), nil
}

func resolveAccount(account string, signer port.Signer) (common.Address, error) {
	account = strings.TrimSpace(account)
	if account == "" {
		if signer == nil {
			return common.Address{}, nil
		}
		return signer.Address(), nil
	}
	if !common.IsHexAddress(account) {
		return common.Address{}, entity.NewError(entity.KindInvalidAddress, "invalid account address %q", account)
	}
	addr := common.HexToAddress(account)
	if signer != nil && signer.Address() != addr {
		return common.Address{}, entity.NewError(entity.KindInvalidAddress, "account %s does not match the signing key %s", addr.Hex(), signer.Address().Hex())
	}
	return addr, nil
}
