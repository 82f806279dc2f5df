package types

// ThresholdAction is what happens when a threshold is newly crossed.
type ThresholdAction string

const (
	ThresholdActionAlert         ThresholdAction = "ALERT"
	ThresholdActionFreezeAccount ThresholdAction = "FREEZE_ACCOUNT"
)

// BudgetThreshold trips when accrued cost crosses DollarsSpent.
type BudgetThreshold struct {
	DollarsSpent float64         `json:"dollarsSpent" dynamodbav:"DollarsSpent"`
	Action       ThresholdAction `json:"action" dynamodbav:"Action"`
}

// DurationThreshold trips when less than HoursRemaining is left before the
// lease expires.
type DurationThreshold struct {
	HoursRemaining float64         `json:"hoursRemaining" dynamodbav:"HoursRemaining"`
	Action         ThresholdAction `json:"action" dynamodbav:"Action"`
}

// LeaseTemplate is a named policy preset leases are requested against.
type LeaseTemplate struct {
	UUID               string              `json:"uuid" dynamodbav:"Uuid"`
	Name               string              `json:"name" dynamodbav:"Name"`
	Description        string              `json:"description" dynamodbav:"Description"`
	DurationHours      float64             `json:"leaseDurationInHours" dynamodbav:"LeaseDurationInHours"`
	MaxSpend           float64             `json:"maxSpend" dynamodbav:"MaxSpend"`
	RequiresApproval   bool                `json:"requiresApproval" dynamodbav:"RequiresApproval"`
	BudgetThresholds   []BudgetThreshold   `json:"budgetThresholds" dynamodbav:"BudgetThresholds"`
	DurationThresholds []DurationThreshold `json:"durationThresholds" dynamodbav:"DurationThresholds"`
}
