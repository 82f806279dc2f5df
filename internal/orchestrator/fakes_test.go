package orchestrator

import (
	"context"
	"fmt"
	"sync"

	domain "github.com/sandvault/sandvault/internal/errors"
	"github.com/sandvault/sandvault/pkg/types"
)

// In-memory fakes for the orchestrator's ports. Each fake records enough of
// what happened for tests to assert on ordering and side effects, and lets a
// test inject a failure at any single call site.

type fakeDirectory struct {
	mu        sync.Mutex
	accounts  map[string]*types.DirectoryAccount
	container map[string]types.AccountStatus
	moves     []string
	failMove  map[string]error // keyed by "from->to"
}

func newFakeDirectory() *fakeDirectory {
	return &fakeDirectory{
		accounts:  make(map[string]*types.DirectoryAccount),
		container: make(map[string]types.AccountStatus),
		failMove:  make(map[string]error),
	}
}

func (d *fakeDirectory) addAccount(id string, container types.AccountStatus) {
	d.accounts[id] = &types.DirectoryAccount{AwsAccountID: id, Email: id + "@example.com", Name: "sandbox-" + id}
	d.container[id] = container
}

func (d *fakeDirectory) DescribeAccount(ctx context.Context, id string) (*types.DirectoryAccount, error) {
	d.mu.Lock()
	defer d.mu.Unlock()
	account, ok := d.accounts[id]
	if !ok {
		return nil, domain.ErrCouldNotFindAccount
	}
	return account, nil
}

func (d *fakeDirectory) MoveAccount(ctx context.Context, id string, from, to types.AccountStatus) error {
	d.mu.Lock()
	defer d.mu.Unlock()
	if err, ok := d.failMove[string(from)+"->"+string(to)]; ok {
		return err
	}
	if d.container[id] != from {
		return fmt.Errorf("%w: account %s is in %s, not %s", domain.ErrContainerMismatch, id, d.container[id], from)
	}
	d.container[id] = to
	d.moves = append(d.moves, fmt.Sprintf("%s:%s->%s", id, from, to))
	return nil
}

func (d *fakeDirectory) ListAccountsInContainer(ctx context.Context, container types.AccountStatus) ([]types.DirectoryAccount, error) {
	d.mu.Lock()
	defer d.mu.Unlock()
	var out []types.DirectoryAccount
	for id, c := range d.container {
		if c == container {
			out = append(out, *d.accounts[id])
		}
	}
	return out, nil
}

type fakeIdentity struct {
	mu            sync.Mutex
	users         map[string]*types.User
	grants        []string
	revokes       []string
	groupCalls    []string
	failGrant     error
	failRevoke    error
	failRevokeAll error
}

func newFakeIdentity(emails ...string) *fakeIdentity {
	f := &fakeIdentity{users: make(map[string]*types.User)}
	for i, email := range emails {
		f.users[email] = &types.User{ID: fmt.Sprintf("user-%d", i), Email: email, UserName: email}
	}
	return f
}

func (f *fakeIdentity) GetUserByEmail(ctx context.Context, email string) (*types.User, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	user, ok := f.users[email]
	if !ok {
		return nil, domain.ErrCouldNotRetrieveUser
	}
	return user, nil
}

func (f *fakeIdentity) GrantUserAccess(ctx context.Context, id, email string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.failGrant != nil {
		return f.failGrant
	}
	f.grants = append(f.grants, id+":"+email)
	return nil
}

func (f *fakeIdentity) RevokeUserAccess(ctx context.Context, id, email string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.failRevoke != nil {
		return f.failRevoke
	}
	f.revokes = append(f.revokes, id+":"+email)
	return nil
}

func (f *fakeIdentity) AssignGroupAccess(ctx context.Context, id string, role types.GroupRole) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.groupCalls = append(f.groupCalls, fmt.Sprintf("assign:%s:%s", id, role))
	return nil
}

func (f *fakeIdentity) RevokeGroupAccess(ctx context.Context, id string, role types.GroupRole) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.groupCalls = append(f.groupCalls, fmt.Sprintf("revoke:%s:%s", id, role))
	return nil
}

func (f *fakeIdentity) RevokeAllUserAccess(ctx context.Context, id string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.failRevokeAll != nil {
		return f.failRevokeAll
	}
	f.revokes = append(f.revokes, id+":*")
	return nil
}

type fakeLeaseStore struct {
	mu         sync.Mutex
	leases     map[string]*types.Lease
	failUpdate error
	deletes    []string
}

func newFakeLeaseStore() *fakeLeaseStore {
	return &fakeLeaseStore{leases: make(map[string]*types.Lease)}
}

func (s *fakeLeaseStore) put(lease *types.Lease) {
	cp := lease.Snapshot()
	s.leases[lease.UUID] = &cp
}

func (s *fakeLeaseStore) Get(ctx context.Context, uuid string) (*types.Lease, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	lease, ok := s.leases[uuid]
	if !ok {
		return nil, domain.ErrLeaseNotFound
	}
	cp := lease.Snapshot()
	return &cp, nil
}

func (s *fakeLeaseStore) Create(ctx context.Context, lease *types.Lease) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.leases[lease.UUID]; ok {
		return fmt.Errorf("lease %s already exists", lease.UUID)
	}
	s.put(lease)
	return nil
}

func (s *fakeLeaseStore) Update(ctx context.Context, lease *types.Lease) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.failUpdate != nil {
		return s.failUpdate
	}
	if _, ok := s.leases[lease.UUID]; !ok {
		return domain.ErrLeaseNotFound
	}
	s.put(lease)
	return nil
}

func (s *fakeLeaseStore) Delete(ctx context.Context, uuid string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.leases, uuid)
	s.deletes = append(s.deletes, uuid)
	return nil
}

func (s *fakeLeaseStore) FindByStatus(ctx context.Context, statuses ...types.LeaseStatus) ([]*types.Lease, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	var out []*types.Lease
	for _, lease := range s.leases {
		for _, status := range statuses {
			if lease.Status == status {
				cp := lease.Snapshot()
				out = append(out, &cp)
			}
		}
	}
	return out, nil
}

func (s *fakeLeaseStore) FindByUserEmail(ctx context.Context, email string) ([]*types.Lease, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	var out []*types.Lease
	for _, lease := range s.leases {
		if lease.UserEmail == email {
			cp := lease.Snapshot()
			out = append(out, &cp)
		}
	}
	return out, nil
}

func (s *fakeLeaseStore) FindByStatusAndAccount(ctx context.Context, status types.LeaseStatus, id string) ([]*types.Lease, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	var out []*types.Lease
	for _, lease := range s.leases {
		if lease.Status == status && lease.AwsAccountID != nil && *lease.AwsAccountID == id {
			cp := lease.Snapshot()
			out = append(out, &cp)
		}
	}
	return out, nil
}

type fakeAccountStore struct {
	mu       sync.Mutex
	accounts map[string]*types.SandboxAccount
	deletes  []string
}

func newFakeAccountStore() *fakeAccountStore {
	return &fakeAccountStore{accounts: make(map[string]*types.SandboxAccount)}
}

func (s *fakeAccountStore) put(account *types.SandboxAccount) {
	cp := *account
	s.accounts[account.AwsAccountID] = &cp
}

func (s *fakeAccountStore) Get(ctx context.Context, id string) (*types.SandboxAccount, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	account, ok := s.accounts[id]
	if !ok {
		return nil, domain.ErrCouldNotFindAccount
	}
	cp := *account
	return &cp, nil
}

func (s *fakeAccountStore) Create(ctx context.Context, account *types.SandboxAccount) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.accounts[account.AwsAccountID]; ok {
		return fmt.Errorf("account %s already exists", account.AwsAccountID)
	}
	s.put(account)
	return nil
}

func (s *fakeAccountStore) Update(ctx context.Context, account *types.SandboxAccount) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.accounts[account.AwsAccountID]; !ok {
		return domain.ErrCouldNotFindAccount
	}
	s.put(account)
	return nil
}

func (s *fakeAccountStore) Delete(ctx context.Context, id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.accounts, id)
	s.deletes = append(s.deletes, id)
	return nil
}

func (s *fakeAccountStore) FindByStatus(ctx context.Context, status types.AccountStatus, limit int) ([]*types.SandboxAccount, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	var out []*types.SandboxAccount
	for _, account := range s.accounts {
		if account.Status == status {
			cp := *account
			out = append(out, &cp)
			if limit > 0 && len(out) == limit {
				break
			}
		}
	}
	return out, nil
}

type fakeBus struct {
	mu     sync.Mutex
	events []types.Event
	fail   error
}

func (b *fakeBus) Publish(ctx context.Context, events ...types.Event) error {
	b.mu.Lock()
	defer b.mu.Unlock()
	if b.fail != nil {
		return b.fail
	}
	b.events = append(b.events, events...)
	return nil
}

func (b *fakeBus) detailTypes() []string {
	b.mu.Lock()
	defer b.mu.Unlock()
	out := make([]string, len(b.events))
	for i, e := range b.events {
		out[i] = e.DetailType()
	}
	return out
}

// fakeAllocator hands out a scripted sequence of accounts.
type fakeAllocator struct {
	mu    sync.Mutex
	queue []*types.SandboxAccount
	err   error
	calls int
}

func (a *fakeAllocator) Acquire(ctx context.Context) (*types.SandboxAccount, error) {
	a.mu.Lock()
	defer a.mu.Unlock()
	a.calls++
	if a.err != nil {
		return nil, a.err
	}
	if len(a.queue) == 0 {
		return nil, domain.ErrNoAccountsAvailable
	}
	account := a.queue[0]
	a.queue = a.queue[1:]
	return account, nil
}
