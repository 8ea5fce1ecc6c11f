package taskAuth

import (
	"sync/atomic"
	"time"
)

// MetricID identifies one engine counter or histogram.
type MetricID uint16

const (
	// MetricLoginSuccess counts token pairs issued by IssueLoginTokens.
	MetricLoginSuccess MetricID = iota
	// MetricLoginFailure counts rejected credentials.
	MetricLoginFailure
	// MetricLoginRateLimited counts logins refused by the attempt budget.
	MetricLoginRateLimited
	// MetricRefreshSuccess counts token pairs issued by RefreshTokens.
	MetricRefreshSuccess
	// MetricRefreshFailure counts refresh exchanges that failed.
	MetricRefreshFailure
	// MetricRefreshRateLimited counts refreshes refused by the attempt budget.
	MetricRefreshRateLimited
	// MetricAuthenticateSuccess counts access tokens resolved to a principal.
	MetricAuthenticateSuccess
	// MetricAuthenticateFailure counts access tokens that did not resolve.
	MetricAuthenticateFailure
	// MetricTokenExpired counts tokens rejected for expiry by Validate.
	MetricTokenExpired
	// MetricSignatureInvalid counts tokens rejected for a bad MAC by Validate.
	MetricSignatureInvalid
	// MetricUserAccessGranted counts CanAccessUser allow decisions.
	MetricUserAccessGranted
	// MetricUserAccessDenied counts CanAccessUser deny decisions.
	MetricUserAccessDenied
	// MetricTaskAccessGranted counts CanAccessTask allow decisions.
	MetricTaskAccessGranted
	// MetricTaskAccessDenied counts CanAccessTask deny decisions.
	MetricTaskAccessDenied
	// MetricOwnershipLookupError counts ownership lookups that failed and were denied.
	MetricOwnershipLookupError
	// MetricRateLimitBackendError counts limiter backend failures.
	MetricRateLimitBackendError
	// MetricAuthenticateLatency is the Authenticate latency histogram.
	MetricAuthenticateLatency
	metricIDCount
)

const (
	histBucketCount = 8
	cacheLineSize   = 64
)

type metricHistogram struct {
	buckets [histBucketCount]uint64
}

type paddedCounter struct {
	value uint64
	_     [cacheLineSize - 8]byte
}

// Metrics is a fixed set of lock-free counters. A nil *Metrics ignores all updates.
type Metrics struct {
	enabled       bool
	enableLatency bool
	counters      [metricIDCount]paddedCounter
	histograms    [metricIDCount]metricHistogram
}

// MetricsSnapshot is a point-in-time copy of all counters. Histogram buckets are
// not cumulative; bucket i counts samples in (bound[i-1], bound[i]].
type MetricsSnapshot struct {
	Counters   map[MetricID]uint64
	Histograms map[MetricID][]uint64
}

// NewMetrics builds a Metrics from cfg.
func NewMetrics(cfg MetricsConfig) *Metrics {
	return &Metrics{
		enabled:       cfg.Enabled,
		enableLatency: cfg.Enabled && cfg.EnableLatencyHistograms,
	}
}

// Enabled reports whether counters are recorded.
func (m *Metrics) Enabled() bool {
	return m != nil && m.enabled
}

// LatencyEnabled reports whether the latency histogram is recorded.
func (m *Metrics) LatencyEnabled() bool {
	return m != nil && m.enableLatency
}

// Inc adds one to the counter id.
func (m *Metrics) Inc(id MetricID) {
	if m == nil || !m.enabled || id >= metricIDCount {
		return
	}
	atomic.AddUint64(&m.counters[id].value, 1)
}

// Observe records d in the histogram id. Only MetricAuthenticateLatency is a histogram.
func (m *Metrics) Observe(id MetricID, d time.Duration) {
	if m == nil || !m.enableLatency || id != MetricAuthenticateLatency {
		return
	}
	atomic.AddUint64(&m.histograms[id].buckets[bucketIndex(d)], 1)
}

// Value returns the current counter id.
func (m *Metrics) Value(id MetricID) uint64 {
	if m == nil || id >= metricIDCount {
		return 0
	}
	return atomic.LoadUint64(&m.counters[id].value)
}

// Snapshot copies every counter and, when enabled, the latency histogram.
func (m *Metrics) Snapshot() MetricsSnapshot {
	if m == nil || !m.enabled {
		return MetricsSnapshot{
			Counters:   map[MetricID]uint64{},
			Histograms: map[MetricID][]uint64{},
		}
	}

	s := MetricsSnapshot{
		Counters:   make(map[MetricID]uint64, int(metricIDCount)),
		Histograms: make(map[MetricID][]uint64, 1),
	}

	for id := MetricID(0); id < metricIDCount; id++ {
		if id == MetricAuthenticateLatency {
			continue
		}
		s.Counters[id] = atomic.LoadUint64(&m.counters[id].value)
	}

	if m.enableLatency {
		buckets := make([]uint64, histBucketCount)
		for i := range buckets {
			buckets[i] = atomic.LoadUint64(&m.histograms[MetricAuthenticateLatency].buckets[i])
		}
		s.Histograms[MetricAuthenticateLatency] = buckets
	}

	return s
}

// bucketIndex maps d onto the 1, 2.5, 5, 10, 25, 50, 100 ms bounds plus +Inf.
// Authenticate does no I/O, so the bounds sit well below request latencies.
func bucketIndex(d time.Duration) int {
	us := d.Microseconds()

	switch {
	case us <= 1000:
		return 0
	case us <= 2500:
		return 1
	case us <= 5000:
		return 2
	case us <= 10000:
		return 3
	case us <= 25000:
		return 4
	case us <= 50000:
		return 5
	case us <= 100000:
		return 6
	default:
		return 7
	}
}
