package types

import (
	"fmt"
	"time"

	"github.com/google/uuid"
)

// LeaseStatus is the lifecycle state of a lease. Transitions are
// one-directional: Pending -> Active -> Frozen, and any monitored state can
// only move to a terminal state. Terminal states are absorbing.
type LeaseStatus string

const (
	LeaseStatusPendingApproval    LeaseStatus = "PendingApproval"
	LeaseStatusActive             LeaseStatus = "Active"
	LeaseStatusFrozen             LeaseStatus = "Frozen"
	LeaseStatusApprovalDenied     LeaseStatus = "ApprovalDenied"
	LeaseStatusBudgetExceeded     LeaseStatus = "BudgetExceeded"
	LeaseStatusExpired            LeaseStatus = "Expired"
	LeaseStatusManuallyTerminated LeaseStatus = "ManuallyTerminated"
	LeaseStatusAccountQuarantined LeaseStatus = "AccountQuarantined"
	LeaseStatusEjected            LeaseStatus = "Ejected"
)

// Monitored reports whether leases in this status are subject to the
// periodic cost/time scan.
func (s LeaseStatus) Monitored() bool {
	return s == LeaseStatusActive || s == LeaseStatusFrozen
}

// Terminal reports whether this status is absorbing.
func (s LeaseStatus) Terminal() bool {
	switch s {
	case LeaseStatusApprovalDenied, LeaseStatusBudgetExceeded, LeaseStatusExpired,
		LeaseStatusManuallyTerminated, LeaseStatusAccountQuarantined, LeaseStatusEjected:
		return true
	}
	return false
}

// TerminalExpired reports whether this status is a valid reason for
// terminating a monitored lease.
func (s LeaseStatus) TerminalExpired() bool {
	return s.Terminal() && s != LeaseStatusApprovalDenied
}

// FreezeReason records why a lease was frozen.
type FreezeReason string

const (
	FreezeReasonBudgetThreshold   FreezeReason = "BudgetThreshold"
	FreezeReasonDurationThreshold FreezeReason = "DurationThreshold"
	FreezeReasonManual            FreezeReason = "Manual"
)

// Lease is a time- and budget-bounded grant of one sandbox account to one
// user. Fields that only exist for monitored leases (account binding, dates,
// accrued cost) are pointers and are populated exclusively by the transition
// methods below, so a lease cannot be Active without an account.
type Lease struct {
	UUID         string      `json:"uuid" dynamodbav:"Uuid"`
	UserEmail    string      `json:"userEmail" dynamodbav:"UserEmail"`
	TemplateUUID string      `json:"leaseTemplateUuid" dynamodbav:"LeaseTemplateUuid"`
	Status       LeaseStatus `json:"status" dynamodbav:"Status"`

	// Policy snapshot copied from the template at request time.
	MaxSpend           float64             `json:"maxSpend" dynamodbav:"MaxSpend"`
	DurationHours      float64             `json:"leaseDurationInHours" dynamodbav:"LeaseDurationInHours"`
	BudgetThresholds   []BudgetThreshold   `json:"budgetThresholds" dynamodbav:"BudgetThresholds"`
	DurationThresholds []DurationThreshold `json:"durationThresholds" dynamodbav:"DurationThresholds"`

	ApprovedBy *string `json:"approvedBy,omitempty" dynamodbav:"ApprovedBy,omitempty"`
	DeniedBy   *string `json:"deniedBy,omitempty" dynamodbav:"DeniedBy,omitempty"`

	// Monitored-only fields. AwsAccountID is immutable once assigned and
	// TotalCostAccrued is non-decreasing while the lease is monitored.
	AwsAccountID     *string    `json:"awsAccountId,omitempty" dynamodbav:"AwsAccountId,omitempty"`
	StartDate        *time.Time `json:"startDate,omitempty" dynamodbav:"StartDate,omitempty"`
	ExpirationDate   *time.Time `json:"expirationDate,omitempty" dynamodbav:"ExpirationDate,omitempty"`
	TotalCostAccrued *float64   `json:"totalCostAccrued,omitempty" dynamodbav:"TotalCostAccrued,omitempty"`
	LastCheckedDate  *time.Time `json:"lastCheckedDate,omitempty" dynamodbav:"LastCheckedDate,omitempty"`

	// Terminal-only fields.
	EndDate *time.Time `json:"endDate,omitempty" dynamodbav:"EndDate,omitempty"`
	TTL     *int64     `json:"ttl,omitempty" dynamodbav:"Ttl,omitempty"`

	CreatedOn time.Time `json:"createdOn" dynamodbav:"CreatedOn"`
}

// NewPendingLease creates a lease in PendingApproval, snapshotting the
// template policy so later template edits do not retroactively change terms.
func NewPendingLease(template *LeaseTemplate, userEmail string, now time.Time) *Lease {
	return &Lease{
		UUID:               uuid.NewString(),
		UserEmail:          userEmail,
		TemplateUUID:       template.UUID,
		Status:             LeaseStatusPendingApproval,
		MaxSpend:           template.MaxSpend,
		DurationHours:      template.DurationHours,
		BudgetThresholds:   append([]BudgetThreshold(nil), template.BudgetThresholds...),
		DurationThresholds: append([]DurationThreshold(nil), template.DurationThresholds...),
		CreatedOn:          now,
	}
}

// IsMonitored reports whether the lease is subject to periodic scanning.
func (l *Lease) IsMonitored() bool {
	return l.Status.Monitored()
}

// Activate moves a pending lease to Active, binding it to an account and
// starting the budget/duration clock.
func (l *Lease) Activate(awsAccountID, approvedBy string, now time.Time) error {
	if l.Status != LeaseStatusPendingApproval {
		return fmt.Errorf("cannot activate lease %s in status %s", l.UUID, l.Status)
	}
	expiry := now.Add(time.Duration(l.DurationHours * float64(time.Hour)))
	cost := 0.0
	l.Status = LeaseStatusActive
	l.ApprovedBy = &approvedBy
	l.AwsAccountID = &awsAccountID
	l.StartDate = &now
	l.ExpirationDate = &expiry
	l.TotalCostAccrued = &cost
	l.LastCheckedDate = &now
	return nil
}

// Deny moves a pending lease to the terminal ApprovalDenied state.
func (l *Lease) Deny(deniedBy string, now time.Time, ttl time.Duration) error {
	if l.Status != LeaseStatusPendingApproval {
		return fmt.Errorf("cannot deny lease %s in status %s", l.UUID, l.Status)
	}
	l.Status = LeaseStatusApprovalDenied
	l.DeniedBy = &deniedBy
	l.setExpiry(now, ttl)
	return nil
}

// Freeze moves an active lease to Frozen. Monitoring continues; the user's
// access does not.
func (l *Lease) Freeze() error {
	if l.Status != LeaseStatusActive {
		return fmt.Errorf("cannot freeze lease %s in status %s", l.UUID, l.Status)
	}
	l.Status = LeaseStatusFrozen
	return nil
}

// Terminate moves a monitored lease to one of the terminal-expired statuses.
func (l *Lease) Terminate(reason LeaseStatus, now time.Time, ttl time.Duration) error {
	if !l.IsMonitored() {
		return fmt.Errorf("cannot terminate lease %s in status %s", l.UUID, l.Status)
	}
	if !reason.TerminalExpired() {
		return fmt.Errorf("%s is not a terminal lease status", reason)
	}
	l.Status = reason
	l.setExpiry(now, ttl)
	return nil
}

// RecordScan refreshes the monitoring watermark. Accrued cost never goes
// backwards; a cost meter returning less than a previous reading is clamped.
func (l *Lease) RecordScan(cost float64, at time.Time) error {
	if !l.IsMonitored() {
		return fmt.Errorf("cannot record scan for lease %s in status %s", l.UUID, l.Status)
	}
	if l.TotalCostAccrued != nil && cost < *l.TotalCostAccrued {
		cost = *l.TotalCostAccrued
	}
	l.TotalCostAccrued = &cost
	checked := at
	l.LastCheckedDate = &checked
	return nil
}

// Snapshot returns a deep-enough copy for saga compensation: restoring the
// snapshot undoes any transition applied since.
func (l *Lease) Snapshot() Lease {
	cp := *l
	cp.BudgetThresholds = append([]BudgetThreshold(nil), l.BudgetThresholds...)
	cp.DurationThresholds = append([]DurationThreshold(nil), l.DurationThresholds...)
	return cp
}

func (l *Lease) setExpiry(now time.Time, ttl time.Duration) {
	end := now
	l.EndDate = &end
	expires := now.Add(ttl).Unix()
	l.TTL = &expires
}
