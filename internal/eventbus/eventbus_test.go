package eventbus

import (
	"context"
	"errors"
	"testing"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/eventbridge"
	ebtypes "github.com/aws/aws-sdk-go-v2/service/eventbridge/types"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/sandvault/sandvault/internal/logger"
	"github.com/sandvault/sandvault/pkg/types"
)

type fakeEventBridge struct {
	calls [][]ebtypes.PutEventsRequestEntry
	out   *eventbridge.PutEventsOutput
	err   error
}

func (f *fakeEventBridge) PutEvents(ctx context.Context, params *eventbridge.PutEventsInput, optFns ...func(*eventbridge.Options)) (*eventbridge.PutEventsOutput, error) {
	f.calls = append(f.calls, params.Entries)
	if f.err != nil {
		return nil, f.err
	}
	if f.out != nil {
		return f.out, nil
	}
	return &eventbridge.PutEventsOutput{}, nil
}

func TestPublishSetsSourceAndDetailType(t *testing.T) {
	client := &fakeEventBridge{}
	publisher := NewPublisher(client, "sandvault", logger.NewNop())

	err := publisher.Publish(context.Background(), types.CleanupRequested{AwsAccountID: "111111111111"})
	require.NoError(t, err)

	require.Len(t, client.calls, 1)
	require.Len(t, client.calls[0], 1)
	entry := client.calls[0][0]
	assert.Equal(t, "sandvault", aws.ToString(entry.EventBusName))
	assert.Equal(t, "sandvault.leases", aws.ToString(entry.Source))
	assert.Equal(t, "CleanupRequested", aws.ToString(entry.DetailType))
	assert.JSONEq(t, `{"awsAccountId":"111111111111"}`, aws.ToString(entry.Detail))
}

func TestPublishSplitsLargeBatches(t *testing.T) {
	client := &fakeEventBridge{}
	publisher := NewPublisher(client, "sandvault", logger.NewNop())

	events := make([]types.Event, 23)
	for i := range events {
		events[i] = types.CleanupRequested{AwsAccountID: "111111111111"}
	}
	require.NoError(t, publisher.Publish(context.Background(), events...))

	require.Len(t, client.calls, 3)
	assert.Len(t, client.calls[0], 10)
	assert.Len(t, client.calls[1], 10)
	assert.Len(t, client.calls[2], 3)
}

func TestPublishSurfacesClientError(t *testing.T) {
	client := &fakeEventBridge{err: errors.New("bus unavailable")}
	publisher := NewPublisher(client, "sandvault", logger.NewNop())

	err := publisher.Publish(context.Background(), types.CleanupRequested{AwsAccountID: "111111111111"})
	assert.Error(t, err)
}

func TestPublishReportsRejectedEntries(t *testing.T) {
	client := &fakeEventBridge{out: &eventbridge.PutEventsOutput{
		FailedEntryCount: 1,
		Entries: []ebtypes.PutEventsResultEntry{
			{ErrorCode: aws.String("ThrottlingException"), ErrorMessage: aws.String("slow down")},
		},
	}}
	publisher := NewPublisher(client, "sandvault", logger.NewNop())

	err := publisher.Publish(context.Background(), types.CleanupRequested{AwsAccountID: "111111111111"})
	assert.ErrorContains(t, err, "1 of 1")
}
