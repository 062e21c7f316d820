package configloader

import (
	"fmt"
	"os"
	"time"

	"vest_orchestrator/internal/domain/entity"

	"github.com/sirupsen/logrus"
	"gopkg.in/yaml.v3"
)

// ServerConfig holds REST adapter settings.
type ServerConfig struct {
	Port                string `yaml:"port"`
	ReadTimeoutSeconds  int    `yaml:"readTimeoutSeconds"`
	WriteTimeoutSeconds int    `yaml:"writeTimeoutSeconds"`
}

// LoggingConfig holds logging-specific configurations.
type LoggingConfig struct {
	Level  string `yaml:"level"`
	Format string `yaml:"format"` // "json" or "console"
}

// RPCClientConfig holds ledger endpoint settings.
type RPCClientConfig struct {
	ConnectionTimeoutSeconds int     `yaml:"connectionTimeoutSeconds"`
	CallTimeoutSeconds       int     `yaml:"callTimeoutSeconds"`
	ProbeTimeoutMillis       int     `yaml:"probeTimeoutMillis"`
	RateLimit                float64 `yaml:"rateLimit"` // calls per second
	BurstLimit               int     `yaml:"burstLimit"`
}

// SessionConfig holds chain session settings.
type SessionConfig struct {
	ChainID                  uint64   `yaml:"chainID"`
	Account                  string   `yaml:"account"`
	DiscoveryCandidates      []string `yaml:"discoveryCandidates"`
	DiscoveryCacheTTLMinutes int      `yaml:"discoveryCacheTTLMinutes"`
	LocalNodeURLs            []string `yaml:"localNodeURLs"`
}

// OrchestratorConfig holds transaction pipeline settings.
type OrchestratorConfig struct {
	SettlementDelayMillis int `yaml:"settlementDelayMillis"`
	ReceiptPollMillis     int `yaml:"receiptPollMillis"`
	ReceiptTimeoutSeconds int `yaml:"receiptTimeoutSeconds"`
}

// Config is the top-level configuration structure.
type Config struct {
	Server       ServerConfig               `yaml:"server"`
	Logging      LoggingConfig              `yaml:"logging"`
	RPCClient    RPCClientConfig            `yaml:"rpcClient"`
	Session      SessionConfig              `yaml:"session"`
	Orchestrator OrchestratorConfig         `yaml:"orchestrator"`
	Networks     []entity.NetworkDescriptor `yaml:"networks"`
}

// DefaultDiscoveryCandidates are probed, in order, when a network has no
// configured membership contract.
var DefaultDiscoveryCandidates = []string{
	"0x9C74996C43B19A12f5D9868cBdA264bB0A831D2A",
	"0x2CE805ABB53C2092C839839235C2868A94ADCABd",
	"0x5FbDB2315678afecb367f032d93F642f64180aa3",
}

// DefaultLocalNodeURLs are probed when a network has no RPC URL.
var DefaultLocalNodeURLs = []string{
	"http://localhost:8545",
	"http://127.0.0.1:8545",
	"http://localhost:7545",
	"http://127.0.0.1:7545",
}

// Load reads the YAML configuration file from the given path and unmarshals it.
func Load(path string) (*Config, error) {
	logrus.Infof("Loading configuration from path: %s", path)
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read config file %s: %w", path, err)
	}
	return Parse(data)
}

// Parse unmarshals YAML configuration data and applies defaults.
func Parse(data []byte) (*Config, error) {
	var cfg Config
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return nil, fmt.Errorf("failed to unmarshal config data: %w", err)
	}
	applyDefaults(&cfg)
	if err := validate(&cfg); err != nil {
		return nil, err
	}
	return &cfg, nil
}

// Default returns a configuration with only defaults applied.
func Default() *Config {
	var cfg Config
	applyDefaults(&cfg)
	return &cfg
}

func applyDefaults(cfg *Config) {
	if cfg.Logging.Level == "" {
		cfg.Logging.Level = "info"
	}
	if cfg.Logging.Format == "" {
		cfg.Logging.Format = "json"
	}
	if cfg.Server.Port == "" {
		cfg.Server.Port = ":8080"
		logrus.Infof("Server.Port not set, defaulting to %s", cfg.Server.Port)
	}
	if cfg.Server.ReadTimeoutSeconds <= 0 {
		cfg.Server.ReadTimeoutSeconds = 15
	}
	if cfg.Server.WriteTimeoutSeconds <= 0 {
		cfg.Server.WriteTimeoutSeconds = 180
	}

	if cfg.RPCClient.ConnectionTimeoutSeconds <= 0 {
		cfg.RPCClient.ConnectionTimeoutSeconds = 10
	}
	if cfg.RPCClient.CallTimeoutSeconds <= 0 {
		cfg.RPCClient.CallTimeoutSeconds = 15
		logrus.Infof("RPCClient.CallTimeoutSeconds not set, defaulting to %d", cfg.RPCClient.CallTimeoutSeconds)
	}
	if cfg.RPCClient.ProbeTimeoutMillis <= 0 {
		cfg.RPCClient.ProbeTimeoutMillis = 3000
	}
	if cfg.RPCClient.RateLimit <= 0 {
		cfg.RPCClient.RateLimit = 25
		logrus.Infof("RPCClient.RateLimit not set, defaulting to %.0f calls/s", cfg.RPCClient.RateLimit)
	}
	if cfg.RPCClient.BurstLimit <= 0 {
		cfg.RPCClient.BurstLimit = 10
	}

	if len(cfg.Session.DiscoveryCandidates) == 0 {
		cfg.Session.DiscoveryCandidates = append([]string(nil), DefaultDiscoveryCandidates...)
	}
	if cfg.Session.DiscoveryCacheTTLMinutes <= 0 {
		cfg.Session.DiscoveryCacheTTLMinutes = 30
	}
	if len(cfg.Session.LocalNodeURLs) == 0 {
		cfg.Session.LocalNodeURLs = append([]string(nil), DefaultLocalNodeURLs...)
	}

	if cfg.Orchestrator.SettlementDelayMillis <= 0 {
		cfg.Orchestrator.SettlementDelayMillis = 2000
	}
	if cfg.Orchestrator.ReceiptPollMillis <= 0 {
		cfg.Orchestrator.ReceiptPollMillis = 1000
	}
	if cfg.Orchestrator.ReceiptTimeoutSeconds <= 0 {
		cfg.Orchestrator.ReceiptTimeoutSeconds = 120
		logrus.Infof("Orchestrator.ReceiptTimeoutSeconds not set, defaulting to %d", cfg.Orchestrator.ReceiptTimeoutSeconds)
	}
}

func validate(cfg *Config) error {
	for i, network := range cfg.Networks {
		if network.ChainID == 0 {
			return fmt.Errorf("networks[%d]: chainId is required", i)
		}
		if network.Name == "" {
			logrus.Warnf("Network with ChainID %d has no name; the built-in name will be kept if one exists.", network.ChainID)
		}
		switch network.FeePolicy.Type {
		case "", entity.FeePolicyAuto, entity.FeePolicyLegacy, entity.FeePolicyEIP1559:
		default:
			return fmt.Errorf("networks[%d]: unknown fee policy %q", i, network.FeePolicy.Type)
		}
	}
	return nil
}

// CallTimeout returns the per-call RPC timeout.
func (c *Config) CallTimeout() time.Duration {
	return time.Duration(c.RPCClient.CallTimeoutSeconds) * time.Second
}

// ConnectionTimeout returns the RPC dial timeout.
func (c *Config) ConnectionTimeout() time.Duration {
	return time.Duration(c.RPCClient.ConnectionTimeoutSeconds) * time.Second
}

// ProbeTimeout returns the endpoint probe timeout.
func (c *Config) ProbeTimeout() time.Duration {
	return time.Duration(c.RPCClient.ProbeTimeoutMillis) * time.Millisecond
}

// DiscoveryCacheTTL returns how long contract discovery results are kept.
func (c *Config) DiscoveryCacheTTL() time.Duration {
	return time.Duration(c.Session.DiscoveryCacheTTLMinutes) * time.Minute
}

// SettlementDelay returns the wait between a mined transaction and the resync.
func (c *Config) SettlementDelay() time.Duration {
	return time.Duration(c.Orchestrator.SettlementDelayMillis) * time.Millisecond
}

// ReceiptPollInterval returns how often receipts are polled.
func (c *Config) ReceiptPollInterval() time.Duration {
	return time.Duration(c.Orchestrator.ReceiptPollMillis) * time.Millisecond
}

// ReceiptTimeout returns how long to wait for a receipt.
func (c *Config) ReceiptTimeout() time.Duration {
	return time.Duration(c.Orchestrator.ReceiptTimeoutSeconds) * time.Second
}
