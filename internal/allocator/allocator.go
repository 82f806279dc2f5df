// Package allocator picks a free sandbox account from the available pool.
package allocator

import (
	"context"
	"fmt"
	"math/rand/v2"

	domain "github.com/sandvault/sandvault/internal/errors"
	"github.com/sandvault/sandvault/pkg/types"
)

const defaultPageSize = 10

// AccountSource fetches sandbox account records by status.
type AccountSource interface {
	FindByStatus(ctx context.Context, status types.AccountStatus, limit int) ([]*types.SandboxAccount, error)
}

// Allocator selects one Available account, chosen uniformly at random from a
// single fetched page. Randomization spreads contention under concurrent
// approvals; it is not mutual exclusion. The directory's conditional
// container move is what actually serializes two approvals racing for the
// same account.
type Allocator struct {
	source   AccountSource
	pageSize int
}

func New(source AccountSource, pageSize int) *Allocator {
	if pageSize <= 0 {
		pageSize = defaultPageSize
	}
	return &Allocator{source: source, pageSize: pageSize}
}

// Acquire returns one Available account or ErrNoAccountsAvailable.
func (a *Allocator) Acquire(ctx context.Context) (*types.SandboxAccount, error) {
	page, err := a.source.FindByStatus(ctx, types.AccountStatusAvailable, a.pageSize)
	if err != nil {
		return nil, fmt.Errorf("failed to list available accounts: %w", err)
	}
	if len(page) == 0 {
		return nil, domain.ErrNoAccountsAvailable
	}
	return page[rand.IntN(len(page))], nil
}
