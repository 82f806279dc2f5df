// Package directory adapts AWS Organizations to the account-directory
// contract: each lifecycle container is an organizational unit, and moving
// an account between containers is an OU move.
package directory

import (
	"context"
	"errors"
	"fmt"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/organizations"
	orgtypes "github.com/aws/aws-sdk-go-v2/service/organizations/types"

	domain "github.com/sandvault/sandvault/internal/errors"
	"github.com/sandvault/sandvault/internal/logger"
	"github.com/sandvault/sandvault/pkg/types"
)

// OrganizationsAPI defines the Organizations client methods we use.
type OrganizationsAPI interface {
	DescribeAccount(ctx context.Context, params *organizations.DescribeAccountInput, optFns ...func(*organizations.Options)) (*organizations.DescribeAccountOutput, error)
	MoveAccount(ctx context.Context, params *organizations.MoveAccountInput, optFns ...func(*organizations.Options)) (*organizations.MoveAccountOutput, error)
	ListAccountsForParent(ctx context.Context, params *organizations.ListAccountsForParentInput, optFns ...func(*organizations.Options)) (*organizations.ListAccountsForParentOutput, error)
}

// Service implements the AccountDirectory port.
type Service struct {
	client OrganizationsAPI
	ous    map[types.AccountStatus]string
	log    logger.Logger
}

func New(client OrganizationsAPI, ous map[types.AccountStatus]string, log logger.Logger) *Service {
	if log == nil {
		log = logger.New()
	}
	return &Service{client: client, ous: ous, log: log}
}

func (s *Service) ou(container types.AccountStatus) (string, error) {
	id, ok := s.ous[container]
	if !ok || id == "" {
		return "", fmt.Errorf("no organizational unit configured for container %s", container)
	}
	return id, nil
}

// DescribeAccount returns the directory's view of an account.
func (s *Service) DescribeAccount(ctx context.Context, awsAccountID string) (*types.DirectoryAccount, error) {
	out, err := s.client.DescribeAccount(ctx, &organizations.DescribeAccountInput{
		AccountId: aws.String(awsAccountID),
	})
	if err != nil {
		var notFound *orgtypes.AccountNotFoundException
		if errors.As(err, &notFound) {
			return nil, fmt.Errorf("%w: %s", domain.ErrCouldNotFindAccount, awsAccountID)
		}
		return nil, fmt.Errorf("failed to describe account %s: %w", awsAccountID, err)
	}
	return &types.DirectoryAccount{
		AwsAccountID: aws.ToString(out.Account.Id),
		Email:        aws.ToString(out.Account.Email),
		Name:         aws.ToString(out.Account.Name),
	}, nil
}

// MoveAccount moves the account between containers. Organizations rejects
// the call when the account is not under the source parent, which is exactly
// the conditional-move contract the allocator relies on; that rejection
// surfaces as ErrContainerMismatch.
func (s *Service) MoveAccount(ctx context.Context, awsAccountID string, from, to types.AccountStatus) error {
	sourceOU, err := s.ou(from)
	if err != nil {
		return err
	}
	destOU, err := s.ou(to)
	if err != nil {
		return err
	}

	_, err = s.client.MoveAccount(ctx, &organizations.MoveAccountInput{
		AccountId:           aws.String(awsAccountID),
		SourceParentId:      aws.String(sourceOU),
		DestinationParentId: aws.String(destOU),
	})
	if err != nil {
		var accountNotFound *orgtypes.AccountNotFoundException
		var childNotFound *orgtypes.ChildNotFoundException
		if errors.As(err, &accountNotFound) || errors.As(err, &childNotFound) {
			return fmt.Errorf("%w: account %s is not in %s", domain.ErrContainerMismatch, awsAccountID, from)
		}
		return fmt.Errorf("failed to move account %s from %s to %s: %w", awsAccountID, from, to, err)
	}

	s.log.WithFields(map[string]interface{}{
		"account": awsAccountID,
		"from":    string(from),
		"to":      string(to),
	}).Debug("moved account between containers")
	return nil
}

// ListAccountsInContainer lists every account under a container's OU.
func (s *Service) ListAccountsInContainer(ctx context.Context, container types.AccountStatus) ([]types.DirectoryAccount, error) {
	parentOU, err := s.ou(container)
	if err != nil {
		return nil, err
	}

	var accounts []types.DirectoryAccount
	var nextToken *string
	for {
		out, err := s.client.ListAccountsForParent(ctx, &organizations.ListAccountsForParentInput{
			ParentId:  aws.String(parentOU),
			NextToken: nextToken,
		})
		if err != nil {
			return nil, fmt.Errorf("failed to list accounts in %s: %w", container, err)
		}
		for _, account := range out.Accounts {
			accounts = append(accounts, types.DirectoryAccount{
				AwsAccountID: aws.ToString(account.Id),
				Email:        aws.ToString(account.Email),
				Name:         aws.ToString(account.Name),
			})
		}
		nextToken = out.NextToken
		if nextToken == nil {
			break
		}
	}
	return accounts, nil
}
