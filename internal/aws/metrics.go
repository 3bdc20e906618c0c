package aws

import (
	"context"
	"time"

	"github.com/aws/aws-sdk-go-v2/service/cloudwatch"
	cwtypes "github.com/aws/aws-sdk-go-v2/service/cloudwatch/types"
)

// Metric names emitted during reconciliation.
const (
	MetricOrdersReconciled       = "OrdersReconciled"
	MetricDuplicateConfirmations = "DuplicateConfirmations"
	MetricUnknownOrderWebhooks   = "UnknownOrderWebhooks"
	MetricManualFixes            = "ManualFixes"
)

const metricNamespace = "EnrollFlow"

// Metrics emits reconciliation counters to CloudWatch. All emission is
// best-effort; callers must not fail a request on a metrics error.
type Metrics struct {
	client  CloudWatchAPI
	nowFunc func() time.Time
}

// NewMetrics returns a Metrics emitter. client may be nil, in which case
// every Count call is a no-op (local development).
func NewMetrics(client CloudWatchAPI) *Metrics {
	return &Metrics{
		client:  client,
		nowFunc: time.Now,
	}
}

// Count emits a count-of-one data point for name, dimensioned by gateway.
func (m *Metrics) Count(ctx context.Context, name, gateway string) error {
	if m.client == nil {
		return nil
	}
	now := m.nowFunc()
	one := 1.0
	input := &cloudwatch.PutMetricDataInput{
		Namespace: awsString(metricNamespace),
		MetricData: []cwtypes.MetricDatum{
			{
				MetricName: &name,
				Timestamp:  &now,
				Value:      &one,
				Unit:       cwtypes.StandardUnitCount,
				Dimensions: []cwtypes.Dimension{
					{Name: awsString("Gateway"), Value: &gateway},
				},
			},
		},
	}
	_, err := m.client.PutMetricData(ctx, input)
	return err
}
