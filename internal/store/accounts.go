package store

import (
	"context"
	"errors"
	"fmt"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/feature/dynamodb/attributevalue"
	"github.com/aws/aws-sdk-go-v2/service/dynamodb"
	ddbtypes "github.com/aws/aws-sdk-go-v2/service/dynamodb/types"

	domain "github.com/sandvault/sandvault/internal/errors"
	"github.com/sandvault/sandvault/pkg/types"
)

const accountStatusIndex = "StatusIndex"

// AccountStore is the DynamoDB-backed sandbox account repository.
type AccountStore struct {
	client DynamoDBAPI
	table  string
}

func NewAccountStore(client DynamoDBAPI, table string) *AccountStore {
	return &AccountStore{client: client, table: table}
}

func (s *AccountStore) Get(ctx context.Context, awsAccountID string) (*types.SandboxAccount, error) {
	out, err := s.client.GetItem(ctx, &dynamodb.GetItemInput{
		TableName: aws.String(s.table),
		Key: map[string]ddbtypes.AttributeValue{
			"AwsAccountId": &ddbtypes.AttributeValueMemberS{Value: awsAccountID},
		},
	})
	if err != nil {
		return nil, fmt.Errorf("failed to get account %s: %w", awsAccountID, err)
	}
	if out.Item == nil {
		return nil, fmt.Errorf("%w: %s", domain.ErrCouldNotFindAccount, awsAccountID)
	}

	var account types.SandboxAccount
	if err := attributevalue.UnmarshalMap(out.Item, &account); err != nil {
		return nil, fmt.Errorf("failed to unmarshal account %s: %w", awsAccountID, err)
	}
	return &account, nil
}

func (s *AccountStore) Create(ctx context.Context, account *types.SandboxAccount) error {
	item, err := attributevalue.MarshalMap(account)
	if err != nil {
		return fmt.Errorf("failed to marshal account %s: %w", account.AwsAccountID, err)
	}
	_, err = s.client.PutItem(ctx, &dynamodb.PutItemInput{
		TableName:           aws.String(s.table),
		Item:                item,
		ConditionExpression: aws.String("attribute_not_exists(AwsAccountId)"),
	})
	if err != nil {
		return fmt.Errorf("failed to create account %s: %w", account.AwsAccountID, err)
	}
	return nil
}

// Update rewrites the account record; a record deleted by a concurrent
// ejection stays deleted.
func (s *AccountStore) Update(ctx context.Context, account *types.SandboxAccount) error {
	item, err := attributevalue.MarshalMap(account)
	if err != nil {
		return fmt.Errorf("failed to marshal account %s: %w", account.AwsAccountID, err)
	}
	_, err = s.client.PutItem(ctx, &dynamodb.PutItemInput{
		TableName:           aws.String(s.table),
		Item:                item,
		ConditionExpression: aws.String("attribute_exists(AwsAccountId)"),
	})
	if err != nil {
		var conditionFailed *ddbtypes.ConditionalCheckFailedException
		if errors.As(err, &conditionFailed) {
			return fmt.Errorf("%w: %s", domain.ErrCouldNotFindAccount, account.AwsAccountID)
		}
		return fmt.Errorf("failed to update account %s: %w", account.AwsAccountID, err)
	}
	return nil
}

func (s *AccountStore) Delete(ctx context.Context, awsAccountID string) error {
	_, err := s.client.DeleteItem(ctx, &dynamodb.DeleteItemInput{
		TableName: aws.String(s.table),
		Key: map[string]ddbtypes.AttributeValue{
			"AwsAccountId": &ddbtypes.AttributeValueMemberS{Value: awsAccountID},
		},
	})
	if err != nil {
		return fmt.Errorf("failed to delete account %s: %w", awsAccountID, err)
	}
	return nil
}

// FindByStatus returns accounts in the given status. A positive limit stops
// at one page of at most that many records, which is all the allocator
// wants; limit 0 pages through everything.
func (s *AccountStore) FindByStatus(ctx context.Context, status types.AccountStatus, limit int) ([]*types.SandboxAccount, error) {
	input := &dynamodb.QueryInput{
		TableName:              aws.String(s.table),
		IndexName:              aws.String(accountStatusIndex),
		KeyConditionExpression: aws.String("#s = :status"),
		ExpressionAttributeNames: map[string]string{
			"#s": "Status",
		},
		ExpressionAttributeValues: map[string]ddbtypes.AttributeValue{
			":status": &ddbtypes.AttributeValueMemberS{Value: string(status)},
		},
	}
	if limit > 0 {
		input.Limit = aws.Int32(int32(limit))
	}

	var accounts []*types.SandboxAccount
	for {
		out, err := s.client.Query(ctx, input)
		if err != nil {
			return nil, fmt.Errorf("failed to query accounts by status %s: %w", status, err)
		}
		for _, item := range out.Items {
			var account types.SandboxAccount
			if err := attributevalue.UnmarshalMap(item, &account); err != nil {
				return nil, fmt.Errorf("failed to unmarshal account item: %w", err)
			}
			accounts = append(accounts, &account)
		}
		if limit > 0 || out.LastEvaluatedKey == nil {
			return accounts, nil
		}
		input.ExclusiveStartKey = out.LastEvaluatedKey
	}
}
