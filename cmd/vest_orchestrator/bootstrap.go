package main

import (
	"context"
	"os"
	"strings"

	"vest_orchestrator/internal/app/port"
	"vest_orchestrator/internal/app/service"
	"vest_orchestrator/internal/app/session"
	"vest_orchestrator/internal/infrastructure/configloader"
	"vest_orchestrator/internal/infrastructure/gateway"
	"vest_orchestrator/internal/infrastructure/metrics"
	clientprovider "vest_orchestrator/internal/infrastructure/network/client"
	networkdefinition "vest_orchestrator/internal/infrastructure/network/definition"
	"vest_orchestrator/internal/infrastructure/signer"
	"vest_orchestrator/internal/pkg/logger"

	"github.com/joho/godotenv"
	"github.com/pkg/errors"
	"github.com/prometheus/client_golang/prometheus"
	"go.uber.org/zap"
)

const privateKeyEnv = "VEST_PRIVATE_KEY"

// app holds the wired components shared by every command.
type app struct {
	cfg          *configloader.Config
	zap          *zap.Logger
	registry     *prometheus.Registry
	networks     *networkdefinition.NetworkDefinitionProvider
	resolver     *session.Resolver
	sync         *service.MembershipSyncService
	slots        *service.HiddenSlotService
	refresher    *service.StateRefresher
	orchestrator *service.TxOrchestrator
	signer       port.Signer
}

func bootstrap() (*app, error) {
	if err := godotenv.Load(); err != nil && !os.IsNotExist(err) {
		return nil, errors.Wrap(err, "failed to load .env")
	}

	cfg, err := configloader.Load(configPath)
	if err != nil {
		return nil, err
	}
	zapLogger, err := logger.Init(cfg.Logging.Level, cfg.Logging.Format)
	if err != nil {
		return nil, err
	}

	a := &app{cfg: cfg, zap: zapLogger, registry: prometheus.NewRegistry()}

	if key := strings.TrimSpace(os.Getenv(privateKeyEnv)); key != "" {
		keySigner, err := signer.NewKeySigner(key)
		if err != nil {
			return nil, errors.Wrapf(err, "invalid %s", privateKeyEnv)
		}
		a.signer = keySigner
		logger.Info("Signer loaded", "address", keySigner.Address().Hex())
	} else {
		logger.Warn("No signing key configured, transactions will fail", "env", privateKeyEnv)
	}

	m := metrics.NewOrchestratorMetrics("vest", a.registry)

	a.networks = networkdefinition.NewNetworkDefinitionProvider(logger.Component("networks"), cfg.Networks)
	clients := clientprovider.NewEVMClientProvider(cfg, zapLogger)
	factory := gateway.NewFactory(gateway.Options{
		RateLimit:      cfg.RPCClient.RateLimit,
		BurstLimit:     cfg.RPCClient.BurstLimit,
		PollInterval:   cfg.ReceiptPollInterval(),
		ReceiptTimeout: cfg.ReceiptTimeout(),
		Observer:       m,
	})
	a.resolver = session.NewResolver(a.networks, clients, factory, cfg.Session.DiscoveryCandidates,
		cfg.DiscoveryCacheTTL(), logger.Component("session"))

	a.sync = service.NewMembershipSyncService(logger.Component("sync"), m)
	a.slots = service.NewHiddenSlotService(logger.Component("hidden_slots"))
	a.refresher = service.NewStateRefresher(a.sync, a.slots, logger.Component("refresher"))
	a.orchestrator = service.NewTxOrchestrator(a.slots, a.refresher, m, logger.Component("orchestrator"), cfg.SettlementDelay())
	return a, nil
}

// openSession opens the session selected by flags, falling back to config.
func (a *app) openSession(ctx context.Context) (*session.Session, error) {
	chainID := a.cfg.Session.ChainID
	if chainFlag != 0 {
		chainID = chainFlag
	}
	account := a.cfg.Session.Account
	if accountArg != "" {
		account = accountArg
	}
	sess, err := a.resolver.Open(ctx, chainID, account, a.signer)
	if err != nil {
		return nil, err
	}
	logger.Info("Session opened", "session", sess.ID, "network", sess.Descriptor.Name, "placeholder", sess.Descriptor.Placeholder)
	return sess, nil
}

func (a *app) close() {
	_ = a.zap.Sync()
}
