// Package costmeter reads per-account accrued cost from Cost Explorer.
package costmeter

import (
	"context"
	"fmt"
	"strconv"
	"time"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/costexplorer"
	cetypes "github.com/aws/aws-sdk-go-v2/service/costexplorer/types"

	"github.com/sandvault/sandvault/internal/logger"
)

const dateLayout = "2006-01-02"

// CostExplorerAPI defines the Cost Explorer client methods we use.
type CostExplorerAPI interface {
	GetCostAndUsage(ctx context.Context, params *costexplorer.GetCostAndUsageInput, optFns ...func(*costexplorer.Options)) (*costexplorer.GetCostAndUsageOutput, error)
}

// Meter implements the CostMeter port on Cost Explorer.
type Meter struct {
	client CostExplorerAPI
	log    logger.Logger
}

func New(client CostExplorerAPI, log logger.Logger) *Meter {
	if log == nil {
		log = logger.New()
	}
	return &Meter{client: client, log: log}
}

// GetCostForLeases returns the unblended cost accrued per account since that
// account's earliest lease start date. Cost Explorer takes one date range per
// query, so accounts are grouped by start day and queried one batch per
// distinct day.
func (m *Meter) GetCostForLeases(ctx context.Context, starts map[string]time.Time, asOf time.Time) (map[string]float64, error) {
	costs := make(map[string]float64, len(starts))
	if len(starts) == 0 {
		return costs, nil
	}

	byDay := make(map[string][]string)
	for accountID, start := range starts {
		day := start.UTC().Format(dateLayout)
		byDay[day] = append(byDay[day], accountID)
	}

	// Cost Explorer's end date is exclusive.
	end := asOf.UTC().AddDate(0, 0, 1).Format(dateLayout)

	for day, accountIDs := range byDay {
		if err := m.fetchBatch(ctx, day, end, accountIDs, costs); err != nil {
			return nil, err
		}
	}
	return costs, nil
}

func (m *Meter) fetchBatch(ctx context.Context, start, end string, accountIDs []string, costs map[string]float64) error {
	input := &costexplorer.GetCostAndUsageInput{
		TimePeriod: &cetypes.DateInterval{
			Start: aws.String(start),
			End:   aws.String(end),
		},
		Granularity: cetypes.GranularityMonthly,
		Metrics:     []string{"UnblendedCost"},
		Filter: &cetypes.Expression{
			Dimensions: &cetypes.DimensionValues{
				Key:    cetypes.DimensionLinkedAccount,
				Values: accountIDs,
			},
		},
		GroupBy: []cetypes.GroupDefinition{
			{Type: cetypes.GroupDefinitionTypeDimension, Key: aws.String("LINKED_ACCOUNT")},
		},
	}

	for {
		out, err := m.client.GetCostAndUsage(ctx, input)
		if err != nil {
			return fmt.Errorf("failed to fetch cost for accounts starting %s: %w", start, err)
		}

		for _, result := range out.ResultsByTime {
			for _, group := range result.Groups {
				if len(group.Keys) == 0 {
					continue
				}
				accountID := group.Keys[0]
				metric, ok := group.Metrics["UnblendedCost"]
				if !ok || metric.Amount == nil {
					continue
				}
				amount, err := strconv.ParseFloat(*metric.Amount, 64)
				if err != nil {
					return fmt.Errorf("failed to parse cost amount %q for account %s: %w", *metric.Amount, accountID, err)
				}
				costs[accountID] += amount
			}
		}

		if out.NextPageToken == nil {
			return nil
		}
		input.NextPageToken = out.NextPageToken
	}
}
