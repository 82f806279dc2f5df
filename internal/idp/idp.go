// Package idp adapts IAM Identity Center (identity store + SSO admin) to
// the identity-provider contract. Account access is modeled as account
// assignments: users get the sandbox-user permission set on their leased
// account, operator groups get the manager/admin permission sets on every
// registered account.
package idp

import (
	"context"
	"fmt"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/identitystore"
	idstoretypes "github.com/aws/aws-sdk-go-v2/service/identitystore/types"
	"github.com/aws/aws-sdk-go-v2/service/ssoadmin"
	ssotypes "github.com/aws/aws-sdk-go-v2/service/ssoadmin/types"

	"github.com/sandvault/sandvault/internal/config"
	domain "github.com/sandvault/sandvault/internal/errors"
	"github.com/sandvault/sandvault/internal/logger"
	"github.com/sandvault/sandvault/pkg/types"
)

// IdentityStoreAPI defines the identity store client methods we use.
type IdentityStoreAPI interface {
	ListUsers(ctx context.Context, params *identitystore.ListUsersInput, optFns ...func(*identitystore.Options)) (*identitystore.ListUsersOutput, error)
}

// SSOAdminAPI defines the SSO admin client methods we use.
type SSOAdminAPI interface {
	CreateAccountAssignment(ctx context.Context, params *ssoadmin.CreateAccountAssignmentInput, optFns ...func(*ssoadmin.Options)) (*ssoadmin.CreateAccountAssignmentOutput, error)
	DeleteAccountAssignment(ctx context.Context, params *ssoadmin.DeleteAccountAssignmentInput, optFns ...func(*ssoadmin.Options)) (*ssoadmin.DeleteAccountAssignmentOutput, error)
	ListAccountAssignments(ctx context.Context, params *ssoadmin.ListAccountAssignmentsInput, optFns ...func(*ssoadmin.Options)) (*ssoadmin.ListAccountAssignmentsOutput, error)
}

// Service implements the IdentityProvider port.
type Service struct {
	ids IdentityStoreAPI
	sso SSOAdminAPI
	cfg config.SSOConfig
	log logger.Logger
}

func New(ids IdentityStoreAPI, sso SSOAdminAPI, cfg config.SSOConfig, log logger.Logger) *Service {
	if log == nil {
		log = logger.New()
	}
	return &Service{ids: ids, sso: sso, cfg: cfg, log: log}
}

// GetUserByEmail resolves an identity-store user by email address.
func (s *Service) GetUserByEmail(ctx context.Context, email string) (*types.User, error) {
	return s.findUser(ctx, "Emails.Value", email)
}

// GetUserByUsername resolves an identity-store user by username.
func (s *Service) GetUserByUsername(ctx context.Context, username string) (*types.User, error) {
	return s.findUser(ctx, "UserName", username)
}

func (s *Service) findUser(ctx context.Context, attributePath, value string) (*types.User, error) {
	out, err := s.ids.ListUsers(ctx, &identitystore.ListUsersInput{
		IdentityStoreId: aws.String(s.cfg.IdentityStoreID),
		Filters: []idstoretypes.Filter{
			{AttributePath: aws.String(attributePath), AttributeValue: aws.String(value)},
		},
	})
	if err != nil {
		return nil, fmt.Errorf("%w: %v", domain.ErrCouldNotRetrieveUser, err)
	}
	if len(out.Users) == 0 {
		return nil, fmt.Errorf("%w: no user with %s %q", domain.ErrCouldNotRetrieveUser, attributePath, value)
	}

	user := out.Users[0]
	resolved := &types.User{
		ID:       aws.ToString(user.UserId),
		UserName: aws.ToString(user.UserName),
	}
	if user.DisplayName != nil {
		resolved.DisplayName = *user.DisplayName
	}
	for _, e := range user.Emails {
		if e.Value != nil {
			resolved.Email = *e.Value
			break
		}
	}
	return resolved, nil
}

// GrantUserAccess assigns the sandbox-user permission set on the account to
// the user. Re-granting an existing assignment is a no-op on the AWS side,
// which keeps retries of a failed operation safe.
func (s *Service) GrantUserAccess(ctx context.Context, awsAccountID, email string) error {
	user, err := s.GetUserByEmail(ctx, email)
	if err != nil {
		return err
	}
	_, err = s.sso.CreateAccountAssignment(ctx, &ssoadmin.CreateAccountAssignmentInput{
		InstanceArn:      aws.String(s.cfg.InstanceArn),
		PermissionSetArn: aws.String(s.cfg.UserPermissionSetArn),
		PrincipalType:    ssotypes.PrincipalTypeUser,
		PrincipalId:      aws.String(user.ID),
		TargetId:         aws.String(awsAccountID),
		TargetType:       ssotypes.TargetTypeAwsAccount,
	})
	if err != nil {
		return fmt.Errorf("failed to grant %s access to account %s: %w", email, awsAccountID, err)
	}
	return nil
}

// RevokeUserAccess removes the user's sandbox assignment from the account.
func (s *Service) RevokeUserAccess(ctx context.Context, awsAccountID, email string) error {
	user, err := s.GetUserByEmail(ctx, email)
	if err != nil {
		return err
	}
	_, err = s.sso.DeleteAccountAssignment(ctx, &ssoadmin.DeleteAccountAssignmentInput{
		InstanceArn:      aws.String(s.cfg.InstanceArn),
		PermissionSetArn: aws.String(s.cfg.UserPermissionSetArn),
		PrincipalType:    ssotypes.PrincipalTypeUser,
		PrincipalId:      aws.String(user.ID),
		TargetId:         aws.String(awsAccountID),
		TargetType:       ssotypes.TargetTypeAwsAccount,
	})
	if err != nil {
		return fmt.Errorf("failed to revoke %s access to account %s: %w", email, awsAccountID, err)
	}
	return nil
}

func (s *Service) groupAssignment(role types.GroupRole) (groupID, permissionSetArn string, err error) {
	switch role {
	case types.GroupRoleManager:
		return s.cfg.ManagerGroupID, s.cfg.ManagerPermissionSetArn, nil
	case types.GroupRoleAdmin:
		return s.cfg.AdminGroupID, s.cfg.AdminPermissionSetArn, nil
	}
	return "", "", fmt.Errorf("unknown group role %s", role)
}

// AssignGroupAccess grants an operator group its permission set on the
// account.
func (s *Service) AssignGroupAccess(ctx context.Context, awsAccountID string, role types.GroupRole) error {
	groupID, permissionSetArn, err := s.groupAssignment(role)
	if err != nil {
		return err
	}
	_, err = s.sso.CreateAccountAssignment(ctx, &ssoadmin.CreateAccountAssignmentInput{
		InstanceArn:      aws.String(s.cfg.InstanceArn),
		PermissionSetArn: aws.String(permissionSetArn),
		PrincipalType:    ssotypes.PrincipalTypeGroup,
		PrincipalId:      aws.String(groupID),
		TargetId:         aws.String(awsAccountID),
		TargetType:       ssotypes.TargetTypeAwsAccount,
	})
	if err != nil {
		return fmt.Errorf("failed to assign %s group to account %s: %w", role, awsAccountID, err)
	}
	return nil
}

// RevokeGroupAccess removes an operator group's permission set from the
// account.
func (s *Service) RevokeGroupAccess(ctx context.Context, awsAccountID string, role types.GroupRole) error {
	groupID, permissionSetArn, err := s.groupAssignment(role)
	if err != nil {
		return err
	}
	_, err = s.sso.DeleteAccountAssignment(ctx, &ssoadmin.DeleteAccountAssignmentInput{
		InstanceArn:      aws.String(s.cfg.InstanceArn),
		PermissionSetArn: aws.String(permissionSetArn),
		PrincipalType:    ssotypes.PrincipalTypeGroup,
		PrincipalId:      aws.String(groupID),
		TargetId:         aws.String(awsAccountID),
		TargetType:       ssotypes.TargetTypeAwsAccount,
	})
	if err != nil {
		return fmt.Errorf("failed to revoke %s group from account %s: %w", role, awsAccountID, err)
	}
	return nil
}

// RevokeAllUserAccess removes every user assignment of the sandbox-user
// permission set from the account. Group assignments are untouched.
func (s *Service) RevokeAllUserAccess(ctx context.Context, awsAccountID string) error {
	var nextToken *string
	for {
		out, err := s.sso.ListAccountAssignments(ctx, &ssoadmin.ListAccountAssignmentsInput{
			InstanceArn:      aws.String(s.cfg.InstanceArn),
			AccountId:        aws.String(awsAccountID),
			PermissionSetArn: aws.String(s.cfg.UserPermissionSetArn),
			NextToken:        nextToken,
		})
		if err != nil {
			return fmt.Errorf("failed to list assignments for account %s: %w", awsAccountID, err)
		}

		for _, assignment := range out.AccountAssignments {
			if assignment.PrincipalType != ssotypes.PrincipalTypeUser {
				continue
			}
			_, err := s.sso.DeleteAccountAssignment(ctx, &ssoadmin.DeleteAccountAssignmentInput{
				InstanceArn:      aws.String(s.cfg.InstanceArn),
				PermissionSetArn: aws.String(s.cfg.UserPermissionSetArn),
				PrincipalType:    ssotypes.PrincipalTypeUser,
				PrincipalId:      assignment.PrincipalId,
				TargetId:         aws.String(awsAccountID),
				TargetType:       ssotypes.TargetTypeAwsAccount,
			})
			if err != nil {
				return fmt.Errorf("failed to revoke assignment from account %s: %w", awsAccountID, err)
			}
		}

		nextToken = out.NextToken
		if nextToken == nil {
			return nil
		}
	}
}
