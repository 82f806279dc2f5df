// Package store persists lease and account records in DynamoDB.
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

// Index names on the leases table.
const (
	leaseStatusIndex    = "StatusIndex"
	leaseUserEmailIndex = "UserEmailIndex"
)

// DynamoDBAPI defines the DynamoDB client methods the stores use.
type DynamoDBAPI interface {
	GetItem(ctx context.Context, params *dynamodb.GetItemInput, optFns ...func(*dynamodb.Options)) (*dynamodb.GetItemOutput, error)
	PutItem(ctx context.Context, params *dynamodb.PutItemInput, optFns ...func(*dynamodb.Options)) (*dynamodb.PutItemOutput, error)
	DeleteItem(ctx context.Context, params *dynamodb.DeleteItemInput, optFns ...func(*dynamodb.Options)) (*dynamodb.DeleteItemOutput, error)
	Query(ctx context.Context, params *dynamodb.QueryInput, optFns ...func(*dynamodb.Options)) (*dynamodb.QueryOutput, error)
}

// LeaseStore is the DynamoDB-backed lease repository.
type LeaseStore struct {
	client DynamoDBAPI
	table  string
}

func NewLeaseStore(client DynamoDBAPI, table string) *LeaseStore {
	return &LeaseStore{client: client, table: table}
}

func (s *LeaseStore) Get(ctx context.Context, uuid string) (*types.Lease, error) {
	out, err := s.client.GetItem(ctx, &dynamodb.GetItemInput{
		TableName: aws.String(s.table),
		Key: map[string]ddbtypes.AttributeValue{
			"Uuid": &ddbtypes.AttributeValueMemberS{Value: uuid},
		},
	})
	if err != nil {
		return nil, fmt.Errorf("failed to get lease %s: %w", uuid, err)
	}
	if out.Item == nil {
		return nil, fmt.Errorf("%w: %s", domain.ErrLeaseNotFound, uuid)
	}

	var lease types.Lease
	if err := attributevalue.UnmarshalMap(out.Item, &lease); err != nil {
		return nil, fmt.Errorf("failed to unmarshal lease %s: %w", uuid, err)
	}
	return &lease, nil
}

func (s *LeaseStore) Create(ctx context.Context, lease *types.Lease) error {
	item, err := attributevalue.MarshalMap(lease)
	if err != nil {
		return fmt.Errorf("failed to marshal lease %s: %w", lease.UUID, err)
	}
	_, err = s.client.PutItem(ctx, &dynamodb.PutItemInput{
		TableName:           aws.String(s.table),
		Item:                item,
		ConditionExpression: aws.String("attribute_not_exists(#u)"),
		ExpressionAttributeNames: map[string]string{
			"#u": "Uuid",
		},
	})
	if err != nil {
		return fmt.Errorf("failed to create lease %s: %w", lease.UUID, err)
	}
	return nil
}

// Update rewrites the lease record. The condition keeps a deleted lease from
// resurrecting through a late in-flight write.
func (s *LeaseStore) Update(ctx context.Context, lease *types.Lease) error {
	item, err := attributevalue.MarshalMap(lease)
	if err != nil {
		return fmt.Errorf("failed to marshal lease %s: %w", lease.UUID, err)
	}
	_, err = s.client.PutItem(ctx, &dynamodb.PutItemInput{
		TableName:           aws.String(s.table),
		Item:                item,
		ConditionExpression: aws.String("attribute_exists(#u)"),
		ExpressionAttributeNames: map[string]string{
			"#u": "Uuid",
		},
	})
	if err != nil {
		var conditionFailed *ddbtypes.ConditionalCheckFailedException
		if errors.As(err, &conditionFailed) {
			return fmt.Errorf("%w: %s", domain.ErrLeaseNotFound, lease.UUID)
		}
		return fmt.Errorf("failed to update lease %s: %w", lease.UUID, err)
	}
	return nil
}

func (s *LeaseStore) Delete(ctx context.Context, uuid string) error {
	_, err := s.client.DeleteItem(ctx, &dynamodb.DeleteItemInput{
		TableName: aws.String(s.table),
		Key: map[string]ddbtypes.AttributeValue{
			"Uuid": &ddbtypes.AttributeValueMemberS{Value: uuid},
		},
	})
	if err != nil {
		return fmt.Errorf("failed to delete lease %s: %w", uuid, err)
	}
	return nil
}

// FindByStatus returns every lease in any of the given statuses.
func (s *LeaseStore) FindByStatus(ctx context.Context, statuses ...types.LeaseStatus) ([]*types.Lease, error) {
	var leases []*types.Lease
	for _, status := range statuses {
		found, err := s.queryAll(ctx, &dynamodb.QueryInput{
			TableName:              aws.String(s.table),
			IndexName:              aws.String(leaseStatusIndex),
			KeyConditionExpression: aws.String("#s = :status"),
			ExpressionAttributeNames: map[string]string{
				"#s": "Status",
			},
			ExpressionAttributeValues: map[string]ddbtypes.AttributeValue{
				":status": &ddbtypes.AttributeValueMemberS{Value: string(status)},
			},
		})
		if err != nil {
			return nil, fmt.Errorf("failed to query leases by status %s: %w", status, err)
		}
		leases = append(leases, found...)
	}
	return leases, nil
}

// FindByUserEmail returns every lease the user has ever held, any status.
func (s *LeaseStore) FindByUserEmail(ctx context.Context, email string) ([]*types.Lease, error) {
	leases, err := s.queryAll(ctx, &dynamodb.QueryInput{
		TableName:              aws.String(s.table),
		IndexName:              aws.String(leaseUserEmailIndex),
		KeyConditionExpression: aws.String("UserEmail = :email"),
		ExpressionAttributeValues: map[string]ddbtypes.AttributeValue{
			":email": &ddbtypes.AttributeValueMemberS{Value: email},
		},
	})
	if err != nil {
		return nil, fmt.Errorf("failed to query leases for %s: %w", email, err)
	}
	return leases, nil
}

// FindByStatusAndAccount returns leases in the given status bound to the
// given account.
func (s *LeaseStore) FindByStatusAndAccount(ctx context.Context, status types.LeaseStatus, awsAccountID string) ([]*types.Lease, error) {
	leases, err := s.queryAll(ctx, &dynamodb.QueryInput{
		TableName:              aws.String(s.table),
		IndexName:              aws.String(leaseStatusIndex),
		KeyConditionExpression: aws.String("#s = :status"),
		FilterExpression:       aws.String("AwsAccountId = :account"),
		ExpressionAttributeNames: map[string]string{
			"#s": "Status",
		},
		ExpressionAttributeValues: map[string]ddbtypes.AttributeValue{
			":status":  &ddbtypes.AttributeValueMemberS{Value: string(status)},
			":account": &ddbtypes.AttributeValueMemberS{Value: awsAccountID},
		},
	})
	if err != nil {
		return nil, fmt.Errorf("failed to query %s leases for account %s: %w", status, awsAccountID, err)
	}
	return leases, nil
}

func (s *LeaseStore) queryAll(ctx context.Context, input *dynamodb.QueryInput) ([]*types.Lease, error) {
	var leases []*types.Lease
	for {
		out, err := s.client.Query(ctx, input)
		if err != nil {
			return nil, err
		}
		for _, item := range out.Items {
			var lease types.Lease
			if err := attributevalue.UnmarshalMap(item, &lease); err != nil {
				return nil, fmt.Errorf("failed to unmarshal lease item: %w", err)
			}
			leases = append(leases, &lease)
		}
		if out.LastEvaluatedKey == nil {
			return leases, nil
		}
		input.ExclusiveStartKey = out.LastEvaluatedKey
	}
}
