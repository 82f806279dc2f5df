package types

import "time"

// Event is a domain event published to the event bus. The detail type keys
// downstream routing rules; the event itself is serialized as the detail
// payload.
type Event interface {
	DetailType() string
}

type CleanupRequested struct {
	AwsAccountID string `json:"awsAccountId"`
}

func (CleanupRequested) DetailType() string { return "CleanupRequested" }

type LeaseRequested struct {
	LeaseID      string `json:"leaseId"`
	UserEmail    string `json:"userEmail"`
	TemplateUUID string `json:"leaseTemplateUuid"`
}

func (LeaseRequested) DetailType() string { return "LeaseRequested" }

type LeaseApproved struct {
	LeaseID      string `json:"leaseId"`
	UserEmail    string `json:"userEmail"`
	AwsAccountID string `json:"awsAccountId"`
	ApprovedBy   string `json:"approvedBy"`
}

func (LeaseApproved) DetailType() string { return "LeaseApproved" }

type LeaseDenied struct {
	LeaseID   string `json:"leaseId"`
	UserEmail string `json:"userEmail"`
	DeniedBy  string `json:"deniedBy"`
}

func (LeaseDenied) DetailType() string { return "LeaseDenied" }

type LeaseFrozen struct {
	LeaseID      string       `json:"leaseId"`
	UserEmail    string       `json:"userEmail"`
	AwsAccountID string       `json:"awsAccountId"`
	Reason       FreezeReason `json:"reason"`
}

func (LeaseFrozen) DetailType() string { return "LeaseFrozen" }

type LeaseTerminated struct {
	LeaseID      string      `json:"leaseId"`
	UserEmail    string      `json:"userEmail"`
	AwsAccountID string      `json:"awsAccountId"`
	Reason       LeaseStatus `json:"reason"`
}

func (LeaseTerminated) DetailType() string { return "LeaseTerminated" }

type AccountQuarantined struct {
	AwsAccountID string `json:"awsAccountId"`
	Reason       string `json:"reason"`
}

func (AccountQuarantined) DetailType() string { return "AccountQuarantined" }

// BudgetThresholdAlert reports the most severe budget threshold newly
// crossed in a scan.
type BudgetThresholdAlert struct {
	LeaseID      string  `json:"leaseId"`
	UserEmail    string  `json:"userEmail"`
	AwsAccountID string  `json:"awsAccountId"`
	DollarsSpent float64 `json:"dollarsSpent"`
	CostAccrued  float64 `json:"costAccrued"`
}

func (BudgetThresholdAlert) DetailType() string { return "BudgetThresholdAlert" }

// BudgetThresholdFreeze reports the budget threshold that froze the lease.
type BudgetThresholdFreeze struct {
	LeaseID      string  `json:"leaseId"`
	UserEmail    string  `json:"userEmail"`
	AwsAccountID string  `json:"awsAccountId"`
	DollarsSpent float64 `json:"dollarsSpent"`
	CostAccrued  float64 `json:"costAccrued"`
}

func (BudgetThresholdFreeze) DetailType() string { return "BudgetThresholdFreeze" }

// DurationThresholdAlert reports the soonest duration threshold newly
// crossed in a scan.
type DurationThresholdAlert struct {
	LeaseID        string    `json:"leaseId"`
	UserEmail      string    `json:"userEmail"`
	AwsAccountID   string    `json:"awsAccountId"`
	HoursRemaining float64   `json:"hoursRemaining"`
	ExpirationDate time.Time `json:"expirationDate"`
}

func (DurationThresholdAlert) DetailType() string { return "DurationThresholdAlert" }

// DurationThresholdFreeze reports the duration threshold that froze the
// lease.
type DurationThresholdFreeze struct {
	LeaseID        string    `json:"leaseId"`
	UserEmail      string    `json:"userEmail"`
	AwsAccountID   string    `json:"awsAccountId"`
	HoursRemaining float64   `json:"hoursRemaining"`
	ExpirationDate time.Time `json:"expirationDate"`
}

func (DurationThresholdFreeze) DetailType() string { return "DurationThresholdFreeze" }
