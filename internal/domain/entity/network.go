package entity

// FeePolicyType selects which fee fields a transaction carries on a network.
type FeePolicyType string

const (
	// FeePolicyAuto asks the node for a legacy gas price at submission time.
	FeePolicyAuto FeePolicyType = "auto"
	// FeePolicyLegacy uses a fixed legacy gas price.
	FeePolicyLegacy FeePolicyType = "legacy"
	// FeePolicyEIP1559 uses fixed max fee and priority fee caps.
	FeePolicyEIP1559 FeePolicyType = "eip1559"
)

// FeePolicy holds the fee parameters of a network, expressed in gwei.
type FeePolicy struct {
	Type         FeePolicyType `json:"type" yaml:"type"`
	GasPriceGwei float64       `json:"gasPriceGwei,omitempty" yaml:"gasPriceGwei"`
	MaxFeeGwei   float64       `json:"maxFeeGwei,omitempty" yaml:"maxFeeGwei"`
	PriorityGwei float64       `json:"priorityGwei,omitempty" yaml:"priorityGwei"`
}

// NetworkDescriptor describes a chain and the membership deployment on it.
// It is immutable once resolved for a session.
type NetworkDescriptor struct {
	ChainID                   uint64    `json:"chainId" yaml:"chainId"`
	Name                      string    `json:"name" yaml:"name"`
	NativeSymbol              string    `json:"nativeSymbol" yaml:"nativeSymbol"`
	MembershipContractAddress string    `json:"membershipContractAddress" yaml:"membershipContractAddress"`
	TokenContractAddress      string    `json:"tokenContractAddress" yaml:"tokenContractAddress"`
	PrimaryRPCURL             string    `json:"primaryRpcUrl" yaml:"primaryRpcUrl"`
	FallbackRPCURLs           []string  `json:"fallbackRpcUrls,omitempty" yaml:"fallbackRpcUrls"`
	BlockExplorerURL          string    `json:"blockExplorerUrl,omitempty" yaml:"blockExplorerUrl"`
	IsTestnet                 bool      `json:"isTestnet" yaml:"isTestnet"`
	FeePolicy                 FeePolicy `json:"feePolicy" yaml:"feePolicy"`
	// Placeholder is set when the chain id was not found in the network table.
	Placeholder bool `json:"placeholder,omitempty" yaml:"-"`
}

// RPCURLs returns the primary URL followed by the fallbacks, skipping empty entries.
func (d NetworkDescriptor) RPCURLs() []string {
	urls := make([]string, 0, 1+len(d.FallbackRPCURLs))
	if d.PrimaryRPCURL != "" {
		urls = append(urls, d.PrimaryRPCURL)
	}
	for _, u := range d.FallbackRPCURLs {
		if u != "" {
			urls = append(urls, u)
		}
	}
	return urls
}
