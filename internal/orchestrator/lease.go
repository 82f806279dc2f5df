package orchestrator

import (
	"context"
	"errors"
	"fmt"

	domain "github.com/sandvault/sandvault/internal/errors"
	"github.com/sandvault/sandvault/internal/saga"
	"github.com/sandvault/sandvault/pkg/types"
)

// RequestLease creates a lease in PendingApproval for the user, subject to
// the per-user cap. Templates that do not require approval are approved
// immediately; if that approval fails the just-created record is deleted and
// the error surfaces to the caller.
func (o *Orchestrator) RequestLease(ctx context.Context, template *types.LeaseTemplate, userEmail string) (*types.Lease, error) {
	const op = "RequestLease"

	existing, err := o.leases.FindByUserEmail(ctx, userEmail)
	if err != nil {
		return nil, o.fail(op, fmt.Errorf("failed to count leases for %s: %w", userEmail, err))
	}
	held := 0
	for _, l := range existing {
		if l.Status.Monitored() || l.Status == types.LeaseStatusPendingApproval {
			held++
		}
	}
	if held >= o.maxLeasesPerUser {
		return nil, o.fail(op, domain.ErrMaxLeasesExceeded)
	}

	lease := types.NewPendingLease(template, userEmail, o.now())
	if err := o.leases.Create(ctx, lease); err != nil {
		return nil, o.fail(op, fmt.Errorf("failed to create lease: %w", err))
	}

	if !template.RequiresApproval {
		approved, err := o.ApproveLease(ctx, lease, AutoApprovedBy)
		if err != nil {
			if delErr := o.leases.Delete(ctx, lease.UUID); delErr != nil {
				o.log.WithField("lease", lease.UUID).Warn("failed to delete lease after auto-approval failure: " + delErr.Error())
			}
			return nil, err
		}
		return approved, nil
	}

	o.publish(ctx, types.LeaseRequested{
		LeaseID:      lease.UUID,
		UserEmail:    lease.UserEmail,
		TemplateUUID: lease.TemplateUUID,
	})
	return lease, nil
}

// ApproveLease allocates an account and activates a pending lease. When the
// directory rejects the container move because another approval won the
// account, allocation is retried with a fresh pick.
func (o *Orchestrator) ApproveLease(ctx context.Context, lease *types.Lease, approvedBy string) (*types.Lease, error) {
	const op = "ApproveLease"

	if lease.Status != types.LeaseStatusPendingApproval {
		return nil, o.fail(op, domain.ErrLeaseNotPending)
	}
	if _, err := o.idp.GetUserByEmail(ctx, lease.UserEmail); err != nil {
		return nil, o.fail(op, err)
	}

	var lastErr error
	for attempt := 0; attempt <= o.allocationRetries; attempt++ {
		account, err := o.alloc.Acquire(ctx)
		if err != nil {
			return nil, o.fail(op, err)
		}

		approved, err := o.approveWithAccount(ctx, lease, account, approvedBy)
		if err == nil {
			o.publish(ctx, types.LeaseApproved{
				LeaseID:      approved.UUID,
				UserEmail:    approved.UserEmail,
				AwsAccountID: account.AwsAccountID,
				ApprovedBy:   approvedBy,
			})
			return approved, nil
		}
		lastErr = err
		if !errors.Is(err, domain.ErrContainerMismatch) {
			break
		}
		o.log.WithFields(map[string]interface{}{
			"lease":   lease.UUID,
			"account": account.AwsAccountID,
			"attempt": attempt + 1,
		}).Warn("lost account to a concurrent approval, re-allocating")
	}
	return nil, o.fail(op, lastErr)
}

func (o *Orchestrator) approveWithAccount(ctx context.Context, lease *types.Lease, account *types.SandboxAccount, approvedBy string) (*types.Lease, error) {
	prev := lease.Snapshot()
	now := o.now()

	steps := []saga.Step[*types.Lease]{
		saga.Do[*types.Lease]("persist lease as active",
			func(ctx context.Context) error {
				if err := lease.Activate(account.AwsAccountID, approvedBy, now); err != nil {
					return err
				}
				return o.leases.Update(ctx, lease)
			},
			func(ctx context.Context) error {
				*lease = prev.Snapshot()
				return o.leases.Update(ctx, lease)
			}),
		saga.Do[*types.Lease]("move account to active container",
			func(ctx context.Context) error {
				return o.moveAccount(ctx, account, types.AccountStatusAvailable, types.AccountStatusActive)
			},
			func(ctx context.Context) error {
				return o.moveAccount(ctx, account, types.AccountStatusActive, types.AccountStatusAvailable)
			}),
		{
			Name: "grant user access",
			Perform: func(ctx context.Context) (*types.Lease, error) {
				if err := o.idp.GrantUserAccess(ctx, account.AwsAccountID, lease.UserEmail); err != nil {
					return nil, err
				}
				return lease, nil
			},
			Compensate: func(ctx context.Context) error {
				return o.idp.RevokeUserAccess(ctx, account.AwsAccountID, lease.UserEmail)
			},
		},
	}

	return saga.Run(ctx, o.log, steps)
}

// DenyLease moves a pending lease to the terminal ApprovalDenied state.
func (o *Orchestrator) DenyLease(ctx context.Context, lease *types.Lease, deniedBy string) error {
	const op = "DenyLease"

	if lease.Status != types.LeaseStatusPendingApproval {
		return o.fail(op, domain.ErrLeaseNotPending)
	}
	if err := lease.Deny(deniedBy, o.now(), o.terminalLeaseTTL); err != nil {
		return o.fail(op, err)
	}
	if err := o.leases.Update(ctx, lease); err != nil {
		return o.fail(op, fmt.Errorf("failed to persist denial: %w", err))
	}

	o.publish(ctx, types.LeaseDenied{
		LeaseID:   lease.UUID,
		UserEmail: lease.UserEmail,
		DeniedBy:  deniedBy,
	})
	return nil
}

// FreezeLease revokes the user's access and parks an active lease's account
// in the Frozen container. The lease stays monitored.
func (o *Orchestrator) FreezeLease(ctx context.Context, lease *types.Lease, reason types.FreezeReason) error {
	const op = "FreezeLease"

	if lease.Status != types.LeaseStatusActive {
		return o.fail(op, domain.ErrLeaseNotActive)
	}
	account, err := o.accounts.Get(ctx, *lease.AwsAccountID)
	if err != nil {
		return o.fail(op, err)
	}
	if account.Status != types.AccountStatusActive {
		return o.fail(op, domain.ErrAccountNotInActive)
	}

	if err := o.idp.RevokeAllUserAccess(ctx, account.AwsAccountID); err != nil {
		return o.fail(op, fmt.Errorf("failed to revoke user access: %w", err))
	}

	prev := lease.Snapshot()
	steps := []saga.Step[struct{}]{
		saga.Do[struct{}]("move account to frozen container",
			func(ctx context.Context) error {
				return o.moveAccount(ctx, account, types.AccountStatusActive, types.AccountStatusFrozen)
			},
			func(ctx context.Context) error {
				return o.moveAccount(ctx, account, types.AccountStatusFrozen, types.AccountStatusActive)
			}),
		saga.Do[struct{}]("persist lease as frozen",
			func(ctx context.Context) error {
				if err := lease.Freeze(); err != nil {
					return err
				}
				return o.leases.Update(ctx, lease)
			},
			func(ctx context.Context) error {
				*lease = prev.Snapshot()
				return o.leases.Update(ctx, lease)
			}),
	}
	if _, err := saga.Run(ctx, o.log, steps); err != nil {
		return o.fail(op, err)
	}

	o.publish(ctx, types.LeaseFrozen{
		LeaseID:      lease.UUID,
		UserEmail:    lease.UserEmail,
		AwsAccountID: account.AwsAccountID,
		Reason:       reason,
	})
	return nil
}

// TerminateLease ends a monitored lease with the given terminal reason. With
// autoCleanup the account is moved to CleanUp and a CleanupRequested event is
// queued; the eject/quarantine sweeps pass autoCleanup=false because they
// move the account themselves.
func (o *Orchestrator) TerminateLease(ctx context.Context, lease *types.Lease, reason types.LeaseStatus, autoCleanup bool) error {
	const op = "TerminateLease"

	if !lease.IsMonitored() {
		return o.fail(op, domain.ErrLeaseNotMonitored)
	}
	if !reason.TerminalExpired() {
		return o.fail(op, fmt.Errorf("%s is not a valid termination reason", reason))
	}
	account, err := o.accounts.Get(ctx, *lease.AwsAccountID)
	if err != nil {
		return o.fail(op, err)
	}

	if autoCleanup {
		if err := o.moveAccount(ctx, account, account.Status, types.AccountStatusCleanUp); err != nil {
			return o.fail(op, fmt.Errorf("failed to move account to cleanup: %w", err))
		}
		o.publish(ctx, types.CleanupRequested{AwsAccountID: account.AwsAccountID})
	}

	if err := lease.Terminate(reason, o.now(), o.terminalLeaseTTL); err != nil {
		return o.fail(op, err)
	}
	if err := o.leases.Update(ctx, lease); err != nil {
		return o.fail(op, fmt.Errorf("failed to persist termination: %w", err))
	}
	if err := o.idp.RevokeUserAccess(ctx, account.AwsAccountID, lease.UserEmail); err != nil {
		return o.fail(op, fmt.Errorf("failed to revoke user access: %w", err))
	}

	o.publish(ctx, types.LeaseTerminated{
		LeaseID:      lease.UUID,
		UserEmail:    lease.UserEmail,
		AwsAccountID: account.AwsAccountID,
		Reason:       reason,
	})
	return nil
}
