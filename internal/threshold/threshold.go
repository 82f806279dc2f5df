// Package threshold classifies a monitored lease's cost and time signals
// into terminate, freeze, and alert decisions for one scan.
package threshold

import (
	"time"

	"github.com/sandvault/sandvault/pkg/types"
)

// Freeze is the single freeze signal a scan may produce for a lease. Budget
// freezes take priority over duration freezes.
type Freeze struct {
	Reason types.FreezeReason
	// DollarsSpent is set for budget freezes: the smallest crossed freeze
	// threshold.
	DollarsSpent float64
	// HoursRemaining is set for duration freezes: the soonest crossed freeze
	// threshold.
	HoursRemaining float64
}

// BudgetAlert carries the largest (most severe) budget threshold newly
// crossed this scan.
type BudgetAlert struct {
	DollarsSpent float64
}

// DurationAlert carries the smallest (soonest) hours-remaining threshold
// newly crossed this scan.
type DurationAlert struct {
	HoursRemaining float64
}

// Decision is the classification outcome for one lease in one scan.
type Decision struct {
	// Terminate, when set, overrides everything else for this lease:
	// BudgetExceeded when cost reached max spend, Expired when the lease
	// outlived its expiration date.
	Terminate *types.LeaseStatus

	Freeze        *Freeze
	BudgetAlert   *BudgetAlert
	DurationAlert *DurationAlert
}

// Evaluate classifies one monitored lease given the current cost reading and
// scan time. Newly-crossed detection uses a strict lower bound against the
// previous watermark (prior cost, last checked time) so a threshold fires at
// most once per lease across scans.
func Evaluate(lease *types.Lease, currentCost float64, now time.Time) Decision {
	var d Decision
	if !lease.IsMonitored() || lease.ExpirationDate == nil ||
		lease.TotalCostAccrued == nil || lease.LastCheckedDate == nil {
		return d
	}

	if currentCost >= lease.MaxSpend {
		status := types.LeaseStatusBudgetExceeded
		d.Terminate = &status
		return d
	}
	if now.After(*lease.ExpirationDate) {
		status := types.LeaseStatusExpired
		d.Terminate = &status
		return d
	}

	previousCost := *lease.TotalCostAccrued
	lastChecked := *lease.LastCheckedDate
	expiration := *lease.ExpirationDate

	var crossedBudget []types.BudgetThreshold
	for _, t := range lease.BudgetThresholds {
		if previousCost < t.DollarsSpent && t.DollarsSpent <= currentCost {
			crossedBudget = append(crossedBudget, t)
		}
	}

	var crossedDuration []types.DurationThreshold
	for _, t := range lease.DurationThresholds {
		trip := expiration.Add(-time.Duration(t.HoursRemaining * float64(time.Hour)))
		if lastChecked.Before(trip) && !now.Before(trip) {
			crossedDuration = append(crossedDuration, t)
		}
	}

	budgetFroze := false
	if dollars, ok := smallestBudgetFreeze(crossedBudget); ok {
		budgetFroze = true
		d.Freeze = &Freeze{Reason: types.FreezeReasonBudgetThreshold, DollarsSpent: dollars}
	}
	durationFroze := false
	if hours, ok := soonestDurationFreeze(crossedDuration); ok {
		durationFroze = true
		if d.Freeze == nil {
			d.Freeze = &Freeze{Reason: types.FreezeReasonDurationThreshold, HoursRemaining: hours}
		}
	}

	// A freeze crossing supersedes alerts on the same axis; alerts on the
	// other axis still co-occur with the freeze.
	if !budgetFroze {
		if dollars, ok := largestBudgetAlert(crossedBudget); ok {
			d.BudgetAlert = &BudgetAlert{DollarsSpent: dollars}
		}
	}
	if !durationFroze {
		if hours, ok := soonestDurationAlert(crossedDuration); ok {
			d.DurationAlert = &DurationAlert{HoursRemaining: hours}
		}
	}

	return d
}

func smallestBudgetFreeze(crossed []types.BudgetThreshold) (float64, bool) {
	found := false
	var smallest float64
	for _, t := range crossed {
		if t.Action != types.ThresholdActionFreezeAccount {
			continue
		}
		if !found || t.DollarsSpent < smallest {
			smallest = t.DollarsSpent
			found = true
		}
	}
	return smallest, found
}

func largestBudgetAlert(crossed []types.BudgetThreshold) (float64, bool) {
	found := false
	var largest float64
	for _, t := range crossed {
		if t.Action != types.ThresholdActionAlert {
			continue
		}
		if !found || t.DollarsSpent > largest {
			largest = t.DollarsSpent
			found = true
		}
	}
	return largest, found
}

func soonestDurationFreeze(crossed []types.DurationThreshold) (float64, bool) {
	found := false
	var soonest float64
	for _, t := range crossed {
		if t.Action != types.ThresholdActionFreezeAccount {
			continue
		}
		if !found || t.HoursRemaining < soonest {
			soonest = t.HoursRemaining
			found = true
		}
	}
	return soonest, found
}

func soonestDurationAlert(crossed []types.DurationThreshold) (float64, bool) {
	found := false
	var soonest float64
	for _, t := range crossed {
		if t.Action != types.ThresholdActionAlert {
			continue
		}
		if !found || t.HoursRemaining < soonest {
			soonest = t.HoursRemaining
			found = true
		}
	}
	return soonest, found
}
