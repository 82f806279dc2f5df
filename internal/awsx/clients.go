// Package awsx builds the AWS service clients the lease service talks to.
package awsx

import (
	"context"
	"fmt"
	"time"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/aws/retry"
	"github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/service/costexplorer"
	"github.com/aws/aws-sdk-go-v2/service/dynamodb"
	"github.com/aws/aws-sdk-go-v2/service/eventbridge"
	"github.com/aws/aws-sdk-go-v2/service/identitystore"
	"github.com/aws/aws-sdk-go-v2/service/organizations"
	"github.com/aws/aws-sdk-go-v2/service/ssoadmin"
	"github.com/aws/aws-sdk-go-v2/service/sts"
)

// Clients holds all AWS service clients used by the service.
type Clients struct {
	Organizations *organizations.Client
	IdentityStore *identitystore.Client
	SSOAdmin      *ssoadmin.Client
	DynamoDB      *dynamodb.Client
	EventBridge   *eventbridge.Client
	CostExplorer  *costexplorer.Client
	STS           *sts.Client
	Config        aws.Config
}

// ClientConfig holds configuration for AWS client creation.
type ClientConfig struct {
	Region     string
	Profile    string
	MaxRetries int
	Timeout    time.Duration
}

// NewClients creates and configures all AWS service clients from one shared
// config.
func NewClients(ctx context.Context, clientConfig ClientConfig) (*Clients, error) {
	if clientConfig.MaxRetries == 0 {
		clientConfig.MaxRetries = 3
	}
	if clientConfig.Timeout == 0 {
		clientConfig.Timeout = 30 * time.Second
	}

	var opts []func(*config.LoadOptions) error
	if clientConfig.Profile != "" {
		opts = append(opts, config.WithSharedConfigProfile(clientConfig.Profile))
	}
	if clientConfig.Region != "" {
		opts = append(opts, config.WithRegion(clientConfig.Region))
	}
	opts = append(opts, config.WithRetryer(func() aws.Retryer {
		return retry.AddWithMaxAttempts(retry.NewStandard(), clientConfig.MaxRetries)
	}))

	loadCtx, cancel := context.WithTimeout(ctx, clientConfig.Timeout)
	defer cancel()

	cfg, err := config.LoadDefaultConfig(loadCtx, opts...)
	if err != nil {
		return nil, fmt.Errorf("failed to load AWS config: %w", err)
	}

	return &Clients{
		Organizations: organizations.NewFromConfig(cfg),
		IdentityStore: identitystore.NewFromConfig(cfg),
		SSOAdmin:      ssoadmin.NewFromConfig(cfg),
		DynamoDB:      dynamodb.NewFromConfig(cfg),
		EventBridge:   eventbridge.NewFromConfig(cfg),
		CostExplorer:  costexplorer.NewFromConfig(cfg),
		STS:           sts.NewFromConfig(cfg),
		Config:        cfg,
	}, nil
}

// CallerIdentity returns the ARN of the credentials in use, for startup
// logging and credential validation.
func (c *Clients) CallerIdentity(ctx context.Context) (string, error) {
	out, err := c.STS.GetCallerIdentity(ctx, &sts.GetCallerIdentityInput{})
	if err != nil {
		return "", fmt.Errorf("failed to validate AWS credentials: %w", err)
	}
	return aws.ToString(out.Arn), nil
}
