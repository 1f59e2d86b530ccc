// file: cache/metrics.go
package cache

import "time"

// Metrics receives operational measurements from the cache.
type Metrics interface {
	ActiveSubscriptions(n int)
	MutationLatency(action string, d time.Duration, err error)
}

// NopMetrics discards everything.
type NopMetrics struct{}

func (NopMetrics) ActiveSubscriptions(int) {}
func (NopMetrics) MutationLatency(string, time.Duration, error) {}
