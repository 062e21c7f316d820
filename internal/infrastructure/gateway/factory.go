package gateway

import (
	"time"

	"vest_orchestrator/internal/app/port"

	"github.com/ethereum/go-ethereum/common"
	"golang.org/x/time/rate"
)

// Options configures every gateway a Factory creates.
type Options struct {
	// RateLimit caps remote calls per second across all gateways; 0 disables it.
	RateLimit      float64
	BurstLimit     int
	PollInterval   time.Duration
	ReceiptTimeout time.Duration
	Observer       CallObserver
}

// Factory implements port.ContractFactory. Gateways it creates share one
// rate limiter.
type Factory struct {
	opts    Options
	limiter *rate.Limiter
}

var _ port.ContractFactory = (*Factory)(nil)

func NewFactory(opts Options) *Factory {
	f := &Factory{opts: opts}
	if opts.RateLimit > 0 {
		burst := opts.BurstLimit
		if burst <= 0 {
			burst = 1
		}
		f.limiter = rate.NewLimiter(rate.Limit(opts.RateLimit), burst)
	}
	return f
}

func (f *Factory) bind(name string, address common.Address, backend port.ChainBackend, signer port.Signer, isMembership bool) *boundContract {
	membership, token := parsedABIs()
	parsed := token
	if isMembership {
		parsed = membership
	}
	return &boundContract{
		name:           name,
		address:        address,
		abi:            parsed,
		backend:        backend,
		signer:         signer,
		limiter:        f.limiter,
		pollInterval:   f.opts.PollInterval,
		receiptTimeout: f.opts.ReceiptTimeout,
		observer:       f.opts.Observer,
	}
}

// Membership binds a membership gateway. signer may be nil for read-only use.
func (f *Factory) Membership(address common.Address, backend port.ChainBackend, signer port.Signer) port.MembershipContract {
	return &MembershipGateway{c: f.bind("membership", address, backend, signer, true)}
}

// Token binds a token gateway. signer may be nil for read-only use.
func (f *Factory) Token(address common.Address, backend port.ChainBackend, signer port.Signer) port.TokenContract {
	return &TokenGateway{c: f.bind("token", address, backend, signer, false)}
}
