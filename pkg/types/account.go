package types

import "time"

// AccountStatus mirrors the organizational container an account currently
// lives in. The orchestrator changes it only in lockstep with a container
// move.
type AccountStatus string

const (
	AccountStatusEntry      AccountStatus = "Entry"
	AccountStatusAvailable  AccountStatus = "Available"
	AccountStatusActive     AccountStatus = "Active"
	AccountStatusFrozen     AccountStatus = "Frozen"
	AccountStatusCleanUp    AccountStatus = "CleanUp"
	AccountStatusQuarantine AccountStatus = "Quarantine"
	AccountStatusExit       AccountStatus = "Exit"
)

// SandboxAccount is the persisted record for a pooled AWS account. Created on
// registration, deleted only on ejection.
type SandboxAccount struct {
	AwsAccountID    string        `json:"awsAccountId" dynamodbav:"AwsAccountId"`
	Email           string        `json:"email" dynamodbav:"Email"`
	Name            string        `json:"name" dynamodbav:"Name"`
	Status          AccountStatus `json:"status" dynamodbav:"Status"`
	DriftAtLastScan bool          `json:"driftAtLastScan" dynamodbav:"DriftAtLastScan"`
	CreatedOn       time.Time     `json:"createdOn" dynamodbav:"CreatedOn"`
	LastModifiedOn  time.Time     `json:"lastModifiedOn" dynamodbav:"LastModifiedOn"`
}

// DirectoryAccount is what the account directory knows about an account,
// independent of any sandbox record we may hold for it.
type DirectoryAccount struct {
	AwsAccountID string
	Email        string
	Name         string
}

// User is a resolved identity-provider principal.
type User struct {
	ID          string
	UserName    string
	Email       string
	DisplayName string
}

// GroupRole names the operator groups granted on registered accounts.
type GroupRole string

const (
	GroupRoleManager GroupRole = "Manager"
	GroupRoleAdmin   GroupRole = "Admin"
)
