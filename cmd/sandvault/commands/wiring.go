package commands

import (
	"context"
	"fmt"

	"github.com/sandvault/sandvault/internal/allocator"
	"github.com/sandvault/sandvault/internal/awsx"
	"github.com/sandvault/sandvault/internal/config"
	"github.com/sandvault/sandvault/internal/costmeter"
	"github.com/sandvault/sandvault/internal/directory"
	"github.com/sandvault/sandvault/internal/eventbus"
	"github.com/sandvault/sandvault/internal/idp"
	"github.com/sandvault/sandvault/internal/logger"
	"github.com/sandvault/sandvault/internal/monitor"
	"github.com/sandvault/sandvault/internal/orchestrator"
	"github.com/sandvault/sandvault/internal/store"
)

// services is the fully wired application: every command builds one of these
// and picks the pieces it needs.
type services struct {
	cfg    *config.Config
	log    logger.Logger
	orch   *orchestrator.Orchestrator
	leases *store.LeaseStore
	meter  *costmeter.Meter
	bus    *eventbus.Publisher
}

func buildServices(ctx context.Context) (*services, error) {
	cfg, err := config.Load(cfgFile)
	if err != nil {
		return nil, err
	}
	log := logger.NewWithLevel(cfg.LogLevel)

	clients, err := awsx.NewClients(ctx, awsx.ClientConfig{
		Region:     cfg.AWS.Region,
		Profile:    cfg.AWS.Profile,
		MaxRetries: cfg.AWS.MaxRetries,
		Timeout:    cfg.AWS.Timeout,
	})
	if err != nil {
		return nil, err
	}
	identity, err := clients.CallerIdentity(ctx)
	if err != nil {
		return nil, err
	}
	log.WithField("caller", identity).Debug("AWS credentials validated")

	leases := store.NewLeaseStore(clients.DynamoDB, cfg.Tables.Leases)
	accounts := store.NewAccountStore(clients.DynamoDB, cfg.Tables.Accounts)
	dir := directory.New(clients.Organizations, cfg.OrgUnits.ByStatus(), log)
	identityProvider := idp.New(clients.IdentityStore, clients.SSOAdmin, cfg.SSO, log)
	bus := eventbus.NewPublisher(clients.EventBridge, cfg.EventBus, log)
	meter := costmeter.New(clients.CostExplorer, log)

	alloc := allocator.New(accounts, cfg.Allocation.PageSize)

	orch, err := orchestrator.New(orchestrator.Config{
		Directory:         dir,
		Identity:          identityProvider,
		Leases:            leases,
		Accounts:          accounts,
		Bus:               bus,
		Allocator:         alloc,
		Logger:            log,
		MaxLeasesPerUser:  cfg.Policy.MaxLeasesPerUser,
		TerminalLeaseTTL:  cfg.Policy.TerminalLeaseTTL,
		AllocationRetries: cfg.Allocation.Retries,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to build orchestrator: %w", err)
	}

	return &services{
		cfg:    cfg,
		log:    log,
		orch:   orch,
		leases: leases,
		meter:  meter,
		bus:    bus,
	}, nil
}

func (s *services) newScanner() (*monitor.Scanner, error) {
	return monitor.NewScanner(monitor.ScannerConfig{
		Leases:    s.leases,
		Meter:     s.meter,
		Lifecycle: s.orch,
		Bus:       s.bus,
		Logger:    s.log,
	})
}
