package networkdefinition

import (
	"fmt"
	"sort"

	"vest_orchestrator/internal/app/port"
	"vest_orchestrator/internal/domain/entity"
)

// NetworkDefinitionProvider provides network descriptors keyed by chain id.
type NetworkDefinitionProvider struct {
	logger      port.Logger
	descriptors map[uint64]entity.NetworkDescriptor
}

var localDevFee = entity.FeePolicy{Type: entity.FeePolicyLegacy, GasPriceGwei: 5}

// Predefined network descriptors
var ( //nolint:gochecknoglobals // Global for definitions
	GanacheCLI = entity.NetworkDescriptor{
		ChainID:                   1337,
		Name:                      "Ganache",
		NativeSymbol:              "ETH",
		MembershipContractAddress: "0x5FbDB2315678afecb367f032d93F642f64180aa3",
		TokenContractAddress:      "0xe7f1725E7734CE288F8367e1Bb143E90bb3F0512",
		PrimaryRPCURL:             "http://localhost:8545",
		IsTestnet:                 true,
		FeePolicy:                 localDevFee,
	}
	GanacheUI = entity.NetworkDescriptor{
		ChainID:                   5777,
		Name:                      "Ganache",
		NativeSymbol:              "ETH",
		MembershipContractAddress: "0x2CE805ABB53C2092C839839235C2868A94ADCABd",
		TokenContractAddress:      "0x6Adf39F876fEfFb3cb37bF6dec504591888a8c83",
		PrimaryRPCURL:             "http://localhost:7545",
		IsTestnet:                 true,
		FeePolicy:                 localDevFee,
	}
	LocalDev2025 = entity.NetworkDescriptor{
		ChainID:                   2025,
		Name:                      "Ganache",
		NativeSymbol:              "ETH",
		MembershipContractAddress: "0xd804cBe535c8F75C0b81eFaa0BE2853Ac12CEea2",
		TokenContractAddress:      "0x67A44909AC00cC03d095D7AC6e9222b8D85691f0",
		PrimaryRPCURL:             "http://localhost:8545",
		IsTestnet:                 true,
		FeePolicy:                 localDevFee,
	}
	PolygonAmoy = entity.NetworkDescriptor{
		ChainID:                   80002,
		Name:                      "Polygon Amoy",
		NativeSymbol:              "POL",
		MembershipContractAddress: "0xFCE657D19b1Ce9F3a5d53Fb4B1D8aD15BdE37f11",
		TokenContractAddress:      "0x25e4A3bF6C4dCC8aFc4F619192b45207c40cE70b",
		PrimaryRPCURL:             "https://rpc-amoy.polygon.technology",
		FallbackRPCURLs:           []string{"https://polygon-amoy.drpc.org"},
		BlockExplorerURL:          "https://amoy.polygonscan.com",
		IsTestnet:                 true,
		FeePolicy:                 entity.FeePolicy{Type: entity.FeePolicyEIP1559, MaxFeeGwei: 60, PriorityGwei: 30},
	}
	PolygonMumbai = entity.NetworkDescriptor{
		ChainID:                   80001,
		Name:                      "Polygon Mumbai",
		NativeSymbol:              "MATIC",
		MembershipContractAddress: "0x9C74996C43B19A12f5D9868cBdA264bB0A831D2A",
		TokenContractAddress:      "0x18D28DBc2a465cbA40187d67e59d724c1AD51B52",
		PrimaryRPCURL:             "https://rpc-mumbai.maticvigil.com",
		BlockExplorerURL:          "https://mumbai.polygonscan.com",
		IsTestnet:                 true,
		FeePolicy:                 entity.FeePolicy{Type: entity.FeePolicyEIP1559, MaxFeeGwei: 60, PriorityGwei: 30},
	}
	Polygon = entity.NetworkDescriptor{
		ChainID:              137,
		Name:                 "Polygon Mainnet",
		NativeSymbol:         "MATIC",
		TokenContractAddress: "0xc2132D05D31c914a87C6611C10748AEb04B58e8F",
		PrimaryRPCURL:        "https://polygon-rpc.com",
		FallbackRPCURLs:      []string{"https://polygon.publicnode.com"},
		BlockExplorerURL:     "https://polygonscan.com",
		FeePolicy:            entity.FeePolicy{Type: entity.FeePolicyAuto},
	}
	BSCTestnet = entity.NetworkDescriptor{
		ChainID:              97,
		Name:                 "BSC Testnet",
		NativeSymbol:         "tBNB",
		TokenContractAddress: "0x337610d27c682E347C9cD60BD4b3b107C9d34dDd",
		PrimaryRPCURL:        "https://data-seed-prebsc-1-s1.binance.org:8545",
		BlockExplorerURL:     "https://testnet.bscscan.com",
		IsTestnet:            true,
		FeePolicy:            entity.FeePolicy{Type: entity.FeePolicyLegacy, GasPriceGwei: 5},
	}
	BSC = entity.NetworkDescriptor{
		ChainID:              56,
		Name:                 "BSC Mainnet",
		NativeSymbol:         "BNB",
		TokenContractAddress: "0x55d398326f99059fF775485246999027B3197955",
		PrimaryRPCURL:        "https://bsc-dataseed.binance.org",
		FallbackRPCURLs:      []string{"https://bsc.publicnode.com"},
		BlockExplorerURL:     "https://bscscan.com",
		FeePolicy:            entity.FeePolicy{Type: entity.FeePolicyLegacy, GasPriceGwei: 3},
	}
	Sepolia = entity.NetworkDescriptor{
		ChainID:          11155111,
		Name:             "Ethereum Sepolia",
		NativeSymbol:     "ETH",
		PrimaryRPCURL:    "https://rpc.sepolia.org",
		BlockExplorerURL: "https://sepolia.etherscan.io",
		IsTestnet:        true,
		FeePolicy:        entity.FeePolicy{Type: entity.FeePolicyAuto},
	}
	Ethereum = entity.NetworkDescriptor{
		ChainID:              1,
		Name:                 "Ethereum Mainnet",
		NativeSymbol:         "ETH",
		TokenContractAddress: "0xdAC17F958D2ee523a2206206994597C13D831ec7",
		PrimaryRPCURL:        "https://ethereum-rpc.publicnode.com",
		FallbackRPCURLs:      []string{"https://rpc.ankr.com/eth"},
		BlockExplorerURL:     "https://etherscan.io",
		FeePolicy:            entity.FeePolicy{Type: entity.FeePolicyAuto},
	}
)

var allKnownDescriptors = []entity.NetworkDescriptor{
	GanacheCLI, GanacheUI, LocalDev2025,
	PolygonAmoy, PolygonMumbai, Polygon,
	BSCTestnet, BSC,
	Sepolia, Ethereum,
}

// NewNetworkDefinitionProvider creates a provider seeded with the built-in
// table. Entries in overrides replace or extend it; empty fields of an
// override keep the built-in value.
func NewNetworkDefinitionProvider(log port.Logger, overrides []entity.NetworkDescriptor) *NetworkDefinitionProvider {
	p := &NetworkDefinitionProvider{
		logger:      log,
		descriptors: make(map[uint64]entity.NetworkDescriptor, len(allKnownDescriptors)+len(overrides)),
	}
	for _, d := range allKnownDescriptors {
		p.descriptors[d.ChainID] = d
	}
	for _, o := range overrides {
		base, known := p.descriptors[o.ChainID]
		p.descriptors[o.ChainID] = mergeDescriptor(base, o)
		if known {
			p.logger.Debug("Network descriptor overridden from config", "chain_id", o.ChainID)
		} else {
			p.logger.Info("Network descriptor added from config", "chain_id", o.ChainID, "name", o.Name)
		}
	}
	p.logger.Info(fmt.Sprintf("NetworkDefinitionProvider initialized with %d networks", len(p.descriptors)))
	return p
}

func mergeDescriptor(base, o entity.NetworkDescriptor) entity.NetworkDescriptor {
	merged := base
	merged.ChainID = o.ChainID
	if o.Name != "" {
		merged.Name = o.Name
	}
	if o.NativeSymbol != "" {
		merged.NativeSymbol = o.NativeSymbol
	}
	if o.MembershipContractAddress != "" {
		merged.MembershipContractAddress = o.MembershipContractAddress
	}
	if o.TokenContractAddress != "" {
		merged.TokenContractAddress = o.TokenContractAddress
	}
	if o.PrimaryRPCURL != "" {
		merged.PrimaryRPCURL = o.PrimaryRPCURL
	}
	if len(o.FallbackRPCURLs) > 0 {
		merged.FallbackRPCURLs = append([]string(nil), o.FallbackRPCURLs...)
	}
	if o.BlockExplorerURL != "" {
		merged.BlockExplorerURL = o.BlockExplorerURL
	}
	if o.FeePolicy.Type != "" {
		merged.FeePolicy = o.FeePolicy
	}
	merged.IsTestnet = base.IsTestnet || o.IsTestnet
	if merged.Name == "" {
		merged.Name = fmt.Sprintf("Network %d", o.ChainID)
	}
	return merged
}

// GetAllNetworkDescriptors returns all descriptors ordered by chain id.
func (p *NetworkDefinitionProvider) GetAllNetworkDescriptors() []entity.NetworkDescriptor {
	if p == nil {
		return []entity.NetworkDescriptor{}
	}
	out := make([]entity.NetworkDescriptor, 0, len(p.descriptors))
	for _, d := range p.descriptors {
		out = append(out, d)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ChainID < out[j].ChainID })
	return out
}

// Lookup returns the configured descriptor for chainID, if any.
func (p *NetworkDefinitionProvider) Lookup(chainID uint64) (entity.NetworkDescriptor, bool) {
	if p == nil {
		return entity.NetworkDescriptor{}, false
	}
	d, ok := p.descriptors[chainID]
	return d, ok
}

// Resolve returns the descriptor for chainID. Unknown chains get a
// placeholder with empty contract addresses flagged as testnet.
func (p *NetworkDefinitionProvider) Resolve(chainID uint64) entity.NetworkDescriptor {
	if d, ok := p.Lookup(chainID); ok {
		return d
	}
	if p != nil && p.logger != nil {
		p.logger.Warn("Unknown chain id, using placeholder network descriptor", "chain_id", chainID)
	}
	return Placeholder(chainID)
}

// Placeholder synthesizes the descriptor of an unrecognized chain.
func Placeholder(chainID uint64) entity.NetworkDescriptor {
	return entity.NetworkDescriptor{
		ChainID:      chainID,
		Name:         fmt.Sprintf("Custom Network %d", chainID),
		NativeSymbol: "ETH",
		IsTestnet:    true,
		FeePolicy:    entity.FeePolicy{Type: entity.FeePolicyAuto},
		Placeholder:  true,
	}
}
