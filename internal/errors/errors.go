package errors

import (
	"errors"
	"fmt"
)

// Domain error taxonomy. Precondition violations surface as one of these
// sentinels before any external mutation; mid-saga failures surface as a
// *TransactionFailed wrapping the original cause.
var (
	ErrNoAccountsAvailable    = errors.New("no sandbox accounts available")
	ErrMaxLeasesExceeded      = errors.New("user has reached the maximum number of leases")
	ErrAccountNotInQuarantine = errors.New("account is not in Quarantine or CleanUp")
	ErrAccountNotInActive     = errors.New("account is not in the Active container")
	ErrAccountInCleanUp       = errors.New("account is in the CleanUp container")
	ErrCouldNotFindAccount    = errors.New("could not find account")
	ErrCouldNotRetrieveUser   = errors.New("could not retrieve user")

	ErrLeaseNotFound     = errors.New("lease not found")
	ErrLeaseNotPending   = errors.New("lease is not pending approval")
	ErrLeaseNotActive    = errors.New("lease is not active")
	ErrLeaseNotMonitored = errors.New("lease is not monitored")

	// ErrContainerMismatch means a directory move was rejected because the
	// account was no longer in the expected source container. Allocation
	// retries on it.
	ErrContainerMismatch = errors.New("account is not in the expected container")
)

// TransactionFailed wraps the error that aborted a saga. The cause is always
// the original perform failure, never a compensation failure.
type TransactionFailed struct {
	Step  string
	Cause error
}

func (e *TransactionFailed) Error() string {
	return fmt.Sprintf("transaction failed at step %q: %v", e.Step, e.Cause)
}

func (e *TransactionFailed) Unwrap() error {
	return e.Cause
}
