package orchestrator

import (
	"context"

	"github.com/sandvault/sandvault/pkg/types"
)

// AccountDirectory is the external account grouping service. MoveAccount
// must reject the move when the account is no longer in the expected source
// container; that conditional write is what serializes concurrent
// allocations.
type AccountDirectory interface {
	DescribeAccount(ctx context.Context, awsAccountID string) (*types.DirectoryAccount, error)
	MoveAccount(ctx context.Context, awsAccountID string, from, to types.AccountStatus) error
	ListAccountsInContainer(ctx context.Context, container types.AccountStatus) ([]types.DirectoryAccount, error)
}

// IdentityProvider manages user and group access to sandbox accounts. All
// grant and revoke calls must be idempotent so a failed operation can be
// retried from the top.
type IdentityProvider interface {
	GetUserByEmail(ctx context.Context, email string) (*types.User, error)
	GrantUserAccess(ctx context.Context, awsAccountID, email string) error
	RevokeUserAccess(ctx context.Context, awsAccountID, email string) error
	AssignGroupAccess(ctx context.Context, awsAccountID string, role types.GroupRole) error
	RevokeGroupAccess(ctx context.Context, awsAccountID string, role types.GroupRole) error
	RevokeAllUserAccess(ctx context.Context, awsAccountID string) error
}

// LeaseStore persists lease records.
type LeaseStore interface {
	Get(ctx context.Context, uuid string) (*types.Lease, error)
	Create(ctx context.Context, lease *types.Lease) error
	Update(ctx context.Context, lease *types.Lease) error
	Delete(ctx context.Context, uuid string) error
	FindByStatus(ctx context.Context, statuses ...types.LeaseStatus) ([]*types.Lease, error)
	FindByUserEmail(ctx context.Context, email string) ([]*types.Lease, error)
	FindByStatusAndAccount(ctx context.Context, status types.LeaseStatus, awsAccountID string) ([]*types.Lease, error)
}

// AccountStore persists sandbox account records.
type AccountStore interface {
	Get(ctx context.Context, awsAccountID string) (*types.SandboxAccount, error)
	Create(ctx context.Context, account *types.SandboxAccount) error
	Update(ctx context.Context, account *types.SandboxAccount) error
	Delete(ctx context.Context, awsAccountID string) error
	FindByStatus(ctx context.Context, status types.AccountStatus, limit int) ([]*types.SandboxAccount, error)
}

// EventBus publishes domain events, fire and forget. Delivery is at-least-
// once at best; consumers must tolerate duplicates.
type EventBus interface {
	Publish(ctx context.Context, events ...types.Event) error
}

// Allocator selects a free account from the available pool.
type Allocator interface {
	Acquire(ctx context.Context) (*types.SandboxAccount, error)
}
