package stream

import (
	"sync"
	"time"
)

// -----------------------------------------------------------------------------
// Quality classification
// -----------------------------------------------------------------------------

type Quality int

const (
	QualityPoor Quality = iota
	QualityFair
	QualityGood
)

func (q Quality) String() string {
	switch q {
	case QualityGood:
		return "Good"
	case QualityFair:
		return "Fair"
	default:
		return "Poor"
	}
}

// Classification thresholds and timeout scaling. Observed defaults; the
// timeout base comes from configuration, the multipliers do not.
const (
	qualityGoodBelow = 300 * time.Millisecond
	qualityFairBelow = 1000 * time.Millisecond

	timeoutFairFactor = 1.5
	timeoutPoorFactor = 2.5

	defaultTimeoutBase = 8 * time.Second

	qualityWindowSize = 10
)

// -----------------------------------------------------------------------------
// QualityDetector observes connection-establishment latency and derives a
// recommended connect timeout. Slow networks get a longer leash so they are
// not punished with premature timeout-driven reconnects; fast networks fail
// over quickly. The sample window is private per stream instance.
// -----------------------------------------------------------------------------

type QualityDetector struct {
	timeoutBase time.Duration

	// Fixed-capacity ring of the most recent connect times.
	samples [qualityWindowSize]time.Duration
	index   int
	size    int
	mu      sync.Mutex
}

// -----------------------------------------------------------------------------

// NewQualityDetector creates a detector scaling from the given base connect
// timeout (the Good-quality timeout).
func NewQualityDetector(timeoutBase time.Duration) *QualityDetector {
	if timeoutBase <= 0 {
		timeoutBase = defaultTimeoutBase
	}
	return &QualityDetector{timeoutBase: timeoutBase}
}

// -----------------------------------------------------------------------------

// RecordConnectTime appends one connect-latency sample, evicting the oldest
// once the window is full.
func (q *QualityDetector) RecordConnectTime(d time.Duration) {
	q.mu.Lock()
	defer q.mu.Unlock()

	q.samples[q.index] = d
	q.index = (q.index + 1) % qualityWindowSize
	if q.size < qualityWindowSize {
		q.size++
	}
}

// -----------------------------------------------------------------------------

// Quality classifies the rolling average connect time. With zero samples it
// returns Fair; the detector has no failure mode.
func (q *QualityDetector) Quality() Quality {
	q.mu.Lock()
	defer q.mu.Unlock()

	if q.size == 0 {
		return QualityFair
	}

	var total time.Duration
	for i := 0; i < q.size; i++ {
		total += q.samples[i]
	}
	avg := total / time.Duration(q.size)

	switch {
	case avg < qualityGoodBelow:
		return QualityGood
	case avg < qualityFairBelow:
		return QualityFair
	default:
		return QualityPoor
	}
}

// -----------------------------------------------------------------------------

// RecommendedTimeout maps the current quality band to a connect timeout.
// With the default 8s base: Good 8s, Fair 12s, Poor 20s.
func (q *QualityDetector) RecommendedTimeout() time.Duration {
	switch q.Quality() {
	case QualityGood:
		return q.timeoutBase
	case QualityPoor:
		return time.Duration(float64(q.timeoutBase) * timeoutPoorFactor)
	default:
		return time.Duration(float64(q.timeoutBase) * timeoutFairFactor)
	}
}
