// Package orchestrator implements the lease/account lifecycle operations.
// Each operation validates its precondition before any external mutation,
// drives a compensating transaction across the directory, identity provider
// and stores, persists the outcome, and emits its primary domain event.
package orchestrator

import (
	"context"
	"fmt"
	"time"

	"github.com/sandvault/sandvault/internal/logger"
	"github.com/sandvault/sandvault/pkg/types"
)

// AutoApprovedBy marks leases approved without a human approver because the
// template does not require approval.
const AutoApprovedBy = "AUTO_APPROVED"

// Config wires an Orchestrator. All collaborators are required.
type Config struct {
	Directory AccountDirectory
	Identity  IdentityProvider
	Leases    LeaseStore
	Accounts  AccountStore
	Bus       EventBus
	Allocator Allocator
	Logger    logger.Logger

	MaxLeasesPerUser  int
	TerminalLeaseTTL  time.Duration
	AllocationRetries int

	// Now is overridable for tests; defaults to time.Now.
	Now func() time.Time
}

// Orchestrator is a stateless service; all state lives in the collaborators.
type Orchestrator struct {
	dir      AccountDirectory
	idp      IdentityProvider
	leases   LeaseStore
	accounts AccountStore
	bus      EventBus
	alloc    Allocator
	log      logger.Logger

	maxLeasesPerUser  int
	terminalLeaseTTL  time.Duration
	allocationRetries int
	now               func() time.Time
}

func New(cfg Config) (*Orchestrator, error) {
	if cfg.Directory == nil || cfg.Identity == nil || cfg.Leases == nil ||
		cfg.Accounts == nil || cfg.Bus == nil || cfg.Allocator == nil {
		return nil, fmt.Errorf("orchestrator requires all collaborators")
	}
	if cfg.Logger == nil {
		cfg.Logger = logger.New()
	}
	if cfg.Now == nil {
		cfg.Now = time.Now
	}
	if cfg.MaxLeasesPerUser <= 0 {
		cfg.MaxLeasesPerUser = 1
	}
	if cfg.TerminalLeaseTTL <= 0 {
		cfg.TerminalLeaseTTL = 30 * 24 * time.Hour
	}
	return &Orchestrator{
		dir:               cfg.Directory,
		idp:               cfg.Identity,
		leases:            cfg.Leases,
		accounts:          cfg.Accounts,
		bus:               cfg.Bus,
		alloc:             cfg.Allocator,
		log:               cfg.Logger,
		maxLeasesPerUser:  cfg.MaxLeasesPerUser,
		terminalLeaseTTL:  cfg.TerminalLeaseTTL,
		allocationRetries: cfg.AllocationRetries,
		now:               cfg.Now,
	}, nil
}

// fail logs the error with the operation name and returns it unchanged.
// Errors are never swallowed for logging.
func (o *Orchestrator) fail(op string, err error) error {
	o.log.WithField("operation", op).Error("operation failed", err)
	return err
}

// publish sends events fire-and-forget: a bus failure after the stores were
// updated is logged, not propagated, so the operation's outcome stands.
func (o *Orchestrator) publish(ctx context.Context, events ...types.Event) {
	if err := o.bus.Publish(ctx, events...); err != nil {
		o.log.WithField("events", len(events)).Warn("event publish failed: " + err.Error())
	}
}

// moveAccount moves the account's container in the directory and updates the
// stored record's status in lockstep.
func (o *Orchestrator) moveAccount(ctx context.Context, account *types.SandboxAccount, from, to types.AccountStatus) error {
	if err := o.dir.MoveAccount(ctx, account.AwsAccountID, from, to); err != nil {
		return err
	}
	account.Status = to
	account.LastModifiedOn = o.now()
	return o.accounts.Update(ctx, account)
}

// monitoredLeases returns every Active or Frozen lease bound to the account.
func (o *Orchestrator) monitoredLeases(ctx context.Context, awsAccountID string) ([]*types.Lease, error) {
	var monitored []*types.Lease
	for _, status := range []types.LeaseStatus{types.LeaseStatusActive, types.LeaseStatusFrozen} {
		leases, err := o.leases.FindByStatusAndAccount(ctx, status, awsAccountID)
		if err != nil {
			return nil, fmt.Errorf("failed to find %s leases for account %s: %w", status, awsAccountID, err)
		}
		monitored = append(monitored, leases...)
	}
	return monitored, nil
}
