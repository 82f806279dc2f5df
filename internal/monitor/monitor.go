// Package monitor drives the periodic cost/time scan over monitored leases.
package monitor

import (
	"context"
	"fmt"
	"time"

	"github.com/sandvault/sandvault/internal/logger"
	"github.com/sandvault/sandvault/internal/threshold"
	"github.com/sandvault/sandvault/pkg/types"
)

// LeaseSource reads and refreshes monitored leases.
type LeaseSource interface {
	FindByStatus(ctx context.Context, statuses ...types.LeaseStatus) ([]*types.Lease, error)
	Update(ctx context.Context, lease *types.Lease) error
}

// CostMeter reports accrued cost per account since each lease's start date.
type CostMeter interface {
	GetCostForLeases(ctx context.Context, starts map[string]time.Time, asOf time.Time) (map[string]float64, error)
}

// Lifecycle is the slice of the orchestrator the scan drives.
type Lifecycle interface {
	FreezeLease(ctx context.Context, lease *types.Lease, reason types.FreezeReason) error
	TerminateLease(ctx context.Context, lease *types.Lease, reason types.LeaseStatus, autoCleanup bool) error
}

// EventBus publishes threshold alert/freeze events.
type EventBus interface {
	Publish(ctx context.Context, events ...types.Event) error
}

// Scanner evaluates every monitored lease against its thresholds once per
// call. Leases are processed independently: one lease's failure never stops
// the sweep, but a cost-fetch failure aborts the whole scan before any
// watermark is written so the scheduler can retry it wholesale.
type Scanner struct {
	leases    LeaseSource
	meter     CostMeter
	lifecycle Lifecycle
	bus       EventBus
	log       logger.Logger
	now       func() time.Time
}

// ScannerConfig wires a Scanner. All collaborators are required.
type ScannerConfig struct {
	Leases    LeaseSource
	Meter     CostMeter
	Lifecycle Lifecycle
	Bus       EventBus
	Logger    logger.Logger
	Now       func() time.Time
}

func NewScanner(cfg ScannerConfig) (*Scanner, error) {
	if cfg.Leases == nil || cfg.Meter == nil || cfg.Lifecycle == nil || cfg.Bus == nil {
		return nil, fmt.Errorf("scanner requires all collaborators")
	}
	if cfg.Logger == nil {
		cfg.Logger = logger.New()
	}
	if cfg.Now == nil {
		cfg.Now = time.Now
	}
	return &Scanner{
		leases:    cfg.Leases,
		meter:     cfg.Meter,
		lifecycle: cfg.Lifecycle,
		bus:       cfg.Bus,
		log:       cfg.Logger,
		now:       cfg.Now,
	}, nil
}

// Scan runs one monitoring pass.
func (s *Scanner) Scan(ctx context.Context) error {
	leases, err := s.leases.FindByStatus(ctx, types.LeaseStatusActive, types.LeaseStatusFrozen)
	if err != nil {
		return fmt.Errorf("failed to list monitored leases: %w", err)
	}
	if len(leases) == 0 {
		s.log.Debug("no monitored leases to scan")
		return nil
	}

	starts := make(map[string]time.Time)
	for _, lease := range leases {
		if lease.AwsAccountID == nil || lease.StartDate == nil {
			continue
		}
		id := *lease.AwsAccountID
		if existing, ok := starts[id]; !ok || lease.StartDate.Before(existing) {
			starts[id] = *lease.StartDate
		}
	}

	scanTime := s.now()
	costs, err := s.meter.GetCostForLeases(ctx, starts, scanTime)
	if err != nil {
		// Abort without touching any watermark; the whole scan is retried.
		return fmt.Errorf("failed to fetch lease costs: %w", err)
	}

	for _, lease := range leases {
		s.scanLease(ctx, lease, costs, scanTime)
	}
	return nil
}

func (s *Scanner) scanLease(ctx context.Context, lease *types.Lease, costs map[string]float64, scanTime time.Time) {
	if lease.AwsAccountID == nil || lease.TotalCostAccrued == nil {
		return
	}
	accountID := *lease.AwsAccountID
	log := s.log.WithFields(map[string]interface{}{"lease": lease.UUID, "account": accountID})

	cost, ok := costs[accountID]
	if !ok {
		// No billing data yet; carry the previous reading forward.
		cost = *lease.TotalCostAccrued
	}

	decision := threshold.Evaluate(lease, cost, scanTime)

	if decision.Terminate != nil {
		if err := s.lifecycle.TerminateLease(ctx, lease, *decision.Terminate, true); err != nil {
			log.Error("failed to terminate lease from scan", err)
		}
		return
	}

	if decision.Freeze != nil {
		s.publishFreeze(ctx, lease, decision.Freeze, cost)
		if lease.Status == types.LeaseStatusActive {
			if err := s.lifecycle.FreezeLease(ctx, lease, decision.Freeze.Reason); err != nil {
				log.Error("failed to freeze lease from scan", err)
			}
		}
	}
	if decision.BudgetAlert != nil {
		s.publishEvents(ctx, types.BudgetThresholdAlert{
			LeaseID:      lease.UUID,
			UserEmail:    lease.UserEmail,
			AwsAccountID: accountID,
			DollarsSpent: decision.BudgetAlert.DollarsSpent,
			CostAccrued:  cost,
		})
	}
	if decision.DurationAlert != nil {
		s.publishEvents(ctx, types.DurationThresholdAlert{
			LeaseID:        lease.UUID,
			UserEmail:      lease.UserEmail,
			AwsAccountID:   accountID,
			HoursRemaining: decision.DurationAlert.HoursRemaining,
			ExpirationDate: *lease.ExpirationDate,
		})
	}

	// Refresh the watermark last: events and watermark are not transactional
	// with each other, so consumers must tolerate the odd duplicate signal.
	if err := lease.RecordScan(cost, scanTime); err != nil {
		log.Error("failed to record scan watermark", err)
		return
	}
	if err := s.leases.Update(ctx, lease); err != nil {
		log.Error("failed to persist scan watermark", err)
	}
}

func (s *Scanner) publishFreeze(ctx context.Context, lease *types.Lease, freeze *threshold.Freeze, cost float64) {
	switch freeze.Reason {
	case types.FreezeReasonBudgetThreshold:
		s.publishEvents(ctx, types.BudgetThresholdFreeze{
			LeaseID:      lease.UUID,
			UserEmail:    lease.UserEmail,
			AwsAccountID: *lease.AwsAccountID,
			DollarsSpent: freeze.DollarsSpent,
			CostAccrued:  cost,
		})
	case types.FreezeReasonDurationThreshold:
		s.publishEvents(ctx, types.DurationThresholdFreeze{
			LeaseID:        lease.UUID,
			UserEmail:      lease.UserEmail,
			AwsAccountID:   *lease.AwsAccountID,
			HoursRemaining: freeze.HoursRemaining,
			ExpirationDate: *lease.ExpirationDate,
		})
	}
}

func (s *Scanner) publishEvents(ctx context.Context, events ...types.Event) {
	if err := s.bus.Publish(ctx, events...); err != nil {
		s.log.Warn("failed to publish threshold events: " + err.Error())
	}
}
