// file: services/metrics.go
package services

import (
	"time"

	"github.com/aws/aws-sdk-go/aws"
	"github.com/aws/aws-sdk-go/aws/session"
	"github.com/aws/aws-sdk-go/service/cloudwatch"
	"github.com/aws/aws-sdk-go/service/cloudwatch/cloudwatchiface"

	"climb-calendar/cache"
	"climb-calendar/logger"
)

// MetricsNamespace groups every metric we publish.
const MetricsNamespace = "ClimbCalendar"

// CloudWatchMetrics publishes cache metrics to CloudWatch.
type CloudWatchMetrics struct {
	client    cloudwatchiface.CloudWatchAPI
	namespace string
}

var _ cache.Metrics = (*CloudWatchMetrics)(nil)

// NewCloudWatchMetrics uses the default AWS session.
func NewCloudWatchMetrics() (*CloudWatchMetrics, error) {
	sess, err := session.NewSession()
	if err != nil {
		return nil, err
	}
	return &CloudWatchMetrics{client: cloudwatch.New(sess), namespace: MetricsNamespace}, nil
}

// ActiveSubscriptions pushes the number of open push subscriptions.
func (m *CloudWatchMetrics) ActiveSubscriptions(n int) {
	m.putMetric("ActiveSubscriptions", float64(n), cloudwatch.StandardUnitCount, "all")
}

// MutationLatency pushes how long a store write took, and a failure count
// when it failed.
func (m *CloudWatchMetrics) MutationLatency(action string, d time.Duration, err error) {
	m.putMetric("MutationLatencyMs", float64(d.Milliseconds()), cloudwatch.StandardUnitMilliseconds, action)
	if err != nil {
		m.putMetric("MutationFailures", 1, cloudwatch.StandardUnitCount, action)
	}
}

// -----------------------------------------------------------
// internal helper function to package up CloudWatch calls
// -----------------------------------------------------------
func (m *CloudWatchMetrics) putMetric(metricName string, value float64, unit string, action string) {
	_, err := m.client.PutMetricData(&cloudwatch.PutMetricDataInput{
		Namespace: aws.String(m.namespace),
		MetricData: []*cloudwatch.MetricDatum{
			{
				MetricName: aws.String(metricName),
				Dimensions: []*cloudwatch.Dimension{
					{
						Name:  aws.String("Action"),
						Value: aws.String(action),
					},
				},
				Timestamp: aws.Time(time.Now()),
				Value:     aws.Float64(value),
				Unit:      aws.String(unit),
			},
		},
	})

	if err != nil {
		logger.Error.Printf("[putMetric] CloudWatch metric failed (%s): %v", metricName, err)
	}
}
