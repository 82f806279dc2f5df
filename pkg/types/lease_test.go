package types

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var testTime = time.Date(2025, 6, 1, 12, 0, 0, 0, time.UTC)

func pendingLease() *Lease {
	return NewPendingLease(&LeaseTemplate{
		UUID:          "template-1",
		MaxSpend:      100,
		DurationHours: 72,
		BudgetThresholds: []BudgetThreshold{
			{DollarsSpent: 80, Action: ThresholdActionAlert},
		},
	}, "dev@example.com", testTime)
}

func TestNewPendingLeaseSnapshotsPolicy(t *testing.T) {
	template := &LeaseTemplate{
		UUID:          "template-1",
		MaxSpend:      100,
		DurationHours: 72,
		BudgetThresholds: []BudgetThreshold{
			{DollarsSpent: 80, Action: ThresholdActionAlert},
		},
	}
	lease := NewPendingLease(template, "dev@example.com", testTime)

	// Editing the template afterwards must not change the lease's terms.
	template.BudgetThresholds[0].DollarsSpent = 10
	template.MaxSpend = 5

	assert.Equal(t, LeaseStatusPendingApproval, lease.Status)
	assert.Equal(t, 100.0, lease.MaxSpend)
	assert.Equal(t, 80.0, lease.BudgetThresholds[0].DollarsSpent)
	assert.NotEmpty(t, lease.UUID)
	assert.Nil(t, lease.AwsAccountID)
}

func TestActivateBindsAccountAndStartsClock(t *testing.T) {
	lease := pendingLease()
	require.NoError(t, lease.Activate("111111111111", "boss@example.com", testTime))

	assert.Equal(t, LeaseStatusActive, lease.Status)
	assert.Equal(t, "111111111111", *lease.AwsAccountID)
	assert.Equal(t, testTime, *lease.StartDate)
	assert.Equal(t, testTime.Add(72*time.Hour), *lease.ExpirationDate)
	assert.Zero(t, *lease.TotalCostAccrued)
	assert.Equal(t, testTime, *lease.LastCheckedDate)
}

func TestActivateRejectsNonPending(t *testing.T) {
	lease := pendingLease()
	require.NoError(t, lease.Activate("111111111111", "boss@example.com", testTime))

	assert.Error(t, lease.Activate("222222222222", "boss@example.com", testTime))
}

func TestDenySetsTerminalFields(t *testing.T) {
	lease := pendingLease()
	require.NoError(t, lease.Deny("boss@example.com", testTime, 24*time.Hour))

	assert.Equal(t, LeaseStatusApprovalDenied, lease.Status)
	assert.Equal(t, "boss@example.com", *lease.DeniedBy)
	assert.Equal(t, testTime, *lease.EndDate)
	assert.Equal(t, testTime.Add(24*time.Hour).Unix(), *lease.TTL)
	assert.True(t, lease.Status.Terminal())
	assert.False(t, lease.Status.TerminalExpired())
}

func TestFreezeOnlyFromActive(t *testing.T) {
	lease := pendingLease()
	assert.Error(t, lease.Freeze())

	require.NoError(t, lease.Activate("111111111111", "boss@example.com", testTime))
	require.NoError(t, lease.Freeze())
	assert.Equal(t, LeaseStatusFrozen, lease.Status)
	assert.True(t, lease.IsMonitored())

	assert.Error(t, lease.Freeze())
}

func TestTerminateRequiresExpiredReason(t *testing.T) {
	lease := pendingLease()
	require.NoError(t, lease.Activate("111111111111", "boss@example.com", testTime))

	assert.Error(t, lease.Terminate(LeaseStatusApprovalDenied, testTime, time.Hour))
	assert.Error(t, lease.Terminate(LeaseStatusActive, testTime, time.Hour))

	require.NoError(t, lease.Terminate(LeaseStatusBudgetExceeded, testTime, time.Hour))
	assert.Equal(t, LeaseStatusBudgetExceeded, lease.Status)
	assert.False(t, lease.IsMonitored())

	// Terminal states are absorbing.
	assert.Error(t, lease.Terminate(LeaseStatusExpired, testTime, time.Hour))
}

func TestRecordScanClampsDecreasingCost(t *testing.T) {
	lease := pendingLease()
	require.NoError(t, lease.Activate("111111111111", "boss@example.com", testTime))
	require.NoError(t, lease.RecordScan(40, testTime.Add(time.Hour)))

	// A lagging cost reading never moves the accrued total backwards.
	require.NoError(t, lease.RecordScan(35, testTime.Add(2*time.Hour)))
	assert.Equal(t, 40.0, *lease.TotalCostAccrued)
	assert.Equal(t, testTime.Add(2*time.Hour), *lease.LastCheckedDate)
}

func TestSnapshotIsIndependent(t *testing.T) {
	lease := pendingLease()
	snap := lease.Snapshot()

	require.NoError(t, lease.Activate("111111111111", "boss@example.com", testTime))
	lease.BudgetThresholds[0].DollarsSpent = 1

	assert.Equal(t, LeaseStatusPendingApproval, snap.Status)
	assert.Nil(t, snap.AwsAccountID)
	assert.Equal(t, 80.0, snap.BudgetThresholds[0].DollarsSpent)

	// Restoring the snapshot undoes the transition.
	*lease = snap.Snapshot()
	assert.Equal(t, LeaseStatusPendingApproval, lease.Status)
	assert.Nil(t, lease.AwsAccountID)
}
