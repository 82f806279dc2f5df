package orchestrator

import (
	"context"
	"errors"
	"fmt"

	domain "github.com/sandvault/sandvault/internal/errors"
	"github.com/sandvault/sandvault/internal/saga"
	"github.com/sandvault/sandvault/pkg/types"
)

// RegisterAccount brings a freshly vended account under management: it moves
// it from Entry to CleanUp, grants the operator groups access, creates the
// sandbox record, and requests the initial cleanup. The Entry precondition
// is enforced by the directory's conditional move.
func (o *Orchestrator) RegisterAccount(ctx context.Context, awsAccountID string) (*types.SandboxAccount, error) {
	const op = "RegisterAccount"

	info, err := o.dir.DescribeAccount(ctx, awsAccountID)
	if err != nil {
		return nil, o.fail(op, err)
	}
	if _, err := o.accounts.Get(ctx, awsAccountID); err == nil {
		return nil, o.fail(op, fmt.Errorf("account %s is already registered", awsAccountID))
	} else if !errors.Is(err, domain.ErrCouldNotFindAccount) {
		return nil, o.fail(op, err)
	}

	steps := []saga.Step[struct{}]{
		saga.Do[struct{}]("move account to cleanup container",
			func(ctx context.Context) error {
				return o.dir.MoveAccount(ctx, awsAccountID, types.AccountStatusEntry, types.AccountStatusCleanUp)
			},
			func(ctx context.Context) error {
				return o.dir.MoveAccount(ctx, awsAccountID, types.AccountStatusCleanUp, types.AccountStatusEntry)
			}),
		saga.Do[struct{}]("grant manager group access",
			func(ctx context.Context) error {
				return o.idp.AssignGroupAccess(ctx, awsAccountID, types.GroupRoleManager)
			},
			func(ctx context.Context) error {
				return o.idp.RevokeGroupAccess(ctx, awsAccountID, types.GroupRoleManager)
			}),
		saga.Do[struct{}]("grant admin group access",
			func(ctx context.Context) error {
				return o.idp.AssignGroupAccess(ctx, awsAccountID, types.GroupRoleAdmin)
			},
			func(ctx context.Context) error {
				return o.idp.RevokeGroupAccess(ctx, awsAccountID, types.GroupRoleAdmin)
			}),
	}
	if _, err := saga.Run(ctx, o.log, steps); err != nil {
		return nil, o.fail(op, err)
	}

	now := o.now()
	account := &types.SandboxAccount{
		AwsAccountID:   awsAccountID,
		Email:          info.Email,
		Name:           info.Name,
		Status:         types.AccountStatusCleanUp,
		CreatedOn:      now,
		LastModifiedOn: now,
	}
	if err := o.accounts.Create(ctx, account); err != nil {
		return nil, o.fail(op, fmt.Errorf("failed to create account record: %w", err))
	}

	o.publish(ctx, types.CleanupRequested{AwsAccountID: awsAccountID})
	return account, nil
}

// RetryCleanup re-requests cleanup for an account stuck in Quarantine or
// CleanUp. Quarantined accounts are moved back to CleanUp first.
func (o *Orchestrator) RetryCleanup(ctx context.Context, awsAccountID string) error {
	const op = "RetryCleanup"

	account, err := o.accounts.Get(ctx, awsAccountID)
	if err != nil {
		return o.fail(op, err)
	}
	if account.Status != types.AccountStatusQuarantine && account.Status != types.AccountStatusCleanUp {
		return o.fail(op, domain.ErrAccountNotInQuarantine)
	}

	if account.Status == types.AccountStatusQuarantine {
		if err := o.moveAccount(ctx, account, types.AccountStatusQuarantine, types.AccountStatusCleanUp); err != nil {
			return o.fail(op, fmt.Errorf("failed to move account out of quarantine: %w", err))
		}
	}

	o.publish(ctx, types.CleanupRequested{AwsAccountID: awsAccountID})
	return nil
}

// EjectAccount removes an account from the pool entirely. Terminating its
// monitored leases is best effort: a stray lease record is less harmful than
// an account we can no longer remove, so failures are logged and the
// ejection proceeds.
func (o *Orchestrator) EjectAccount(ctx context.Context, awsAccountID string) error {
	const op = "EjectAccount"

	account, err := o.accounts.Get(ctx, awsAccountID)
	if err != nil {
		return o.fail(op, err)
	}
	if account.Status == types.AccountStatusCleanUp {
		return o.fail(op, domain.ErrAccountInCleanUp)
	}

	leases, err := o.monitoredLeases(ctx, awsAccountID)
	if err != nil {
		return o.fail(op, err)
	}
	for _, lease := range leases {
		if err := o.TerminateLease(ctx, lease, types.LeaseStatusEjected, false); err != nil {
			o.log.WithFields(map[string]interface{}{
				"lease":   lease.UUID,
				"account": awsAccountID,
			}).Warn("failed to terminate lease during ejection, continuing: " + err.Error())
		}
	}

	if err := o.dir.MoveAccount(ctx, awsAccountID, account.Status, types.AccountStatusExit); err != nil {
		return o.fail(op, fmt.Errorf("failed to move account to exit: %w", err))
	}
	if err := o.idp.RevokeGroupAccess(ctx, awsAccountID, types.GroupRoleManager); err != nil {
		return o.fail(op, fmt.Errorf("failed to revoke manager group access: %w", err))
	}
	if err := o.idp.RevokeGroupAccess(ctx, awsAccountID, types.GroupRoleAdmin); err != nil {
		return o.fail(op, fmt.Errorf("failed to revoke admin group access: %w", err))
	}
	if err := o.accounts.Delete(ctx, awsAccountID); err != nil {
		return o.fail(op, fmt.Errorf("failed to delete account record: %w", err))
	}
	return nil
}

// QuarantineAccount parks a drifted or failed account in Quarantine. Unlike
// ejection, every monitored lease must terminate cleanly first: quarantining
// while a lease silently continues would leave a user billing an account we
// claim to have isolated.
func (o *Orchestrator) QuarantineAccount(ctx context.Context, awsAccountID string, currentContainer types.AccountStatus, reason string) error {
	const op = "QuarantineAccount"

	account, err := o.accounts.Get(ctx, awsAccountID)
	exists := err == nil
	if err != nil {
		if !errors.Is(err, domain.ErrCouldNotFindAccount) {
			return o.fail(op, err)
		}
		info, derr := o.dir.DescribeAccount(ctx, awsAccountID)
		if derr != nil {
			return o.fail(op, derr)
		}
		now := o.now()
		account = &types.SandboxAccount{
			AwsAccountID:   awsAccountID,
			Email:          info.Email,
			Name:           info.Name,
			Status:         currentContainer,
			CreatedOn:      now,
			LastModifiedOn: now,
		}
	}

	leases, err := o.monitoredLeases(ctx, awsAccountID)
	if err != nil {
		return o.fail(op, err)
	}
	for _, lease := range leases {
		if err := o.TerminateLease(ctx, lease, types.LeaseStatusAccountQuarantined, false); err != nil {
			return o.fail(op, fmt.Errorf("aborting quarantine, failed to terminate lease %s: %w", lease.UUID, err))
		}
	}

	if err := o.dir.MoveAccount(ctx, awsAccountID, currentContainer, types.AccountStatusQuarantine); err != nil {
		return o.fail(op, fmt.Errorf("failed to move account to quarantine: %w", err))
	}

	account.Status = types.AccountStatusQuarantine
	account.DriftAtLastScan = true
	account.LastModifiedOn = o.now()
	if exists {
		err = o.accounts.Update(ctx, account)
	} else {
		err = o.accounts.Create(ctx, account)
	}
	if err != nil {
		return o.fail(op, fmt.Errorf("failed to persist quarantined account: %w", err))
	}

	o.publish(ctx, types.AccountQuarantined{AwsAccountID: awsAccountID, Reason: reason})
	return nil
}
