package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"

	"github.com/cuongbtq/geophoto-worker/internal/worker/domain"
)

const namespace = "geophoto"

var (
	// Photo outcomes
	PhotosProcessed = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "photos_processed_total",
			Help:      "Total number of photos processed, by outcome",
		},
		[]string{"status"},
	)

	PhotosSkipped = promauto.NewCounter(
		prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "photos_skipped_total",
			Help:      "Photos skipped because they were already processed",
		},
	)

	// Poll loop
	PollBatches = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "poll_batches_total",
			Help:      "Total number of feed polls, by result",
		},
		[]string{"result"},
	)

	PollBatchSize = promauto.NewHistogram(
		prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "poll_batch_size",
			Help:      "Number of photos returned per poll",
			Buckets:   []float64{0, 1, 2, 5, 10, 25, 50, 100},
		},
	)

	CursorTimestamp = promauto.NewGauge(
		prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "cursor_timestamp_seconds",
			Help:      "Unix time of the feed cursor",
		},
	)

	DedupEntries = promauto.NewGauge(
		prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "dedup_entries",
			Help:      "Number of photo ids remembered by the dedup tracker",
		},
	)

	// Remote calls
	RemoteCallDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "remote_call_duration_seconds",
			Help:      "Photo service call duration in seconds, retries included",
			Buckets:   prometheus.DefBuckets,
		},
		[]string{"operation", "result"},
	)

	RemoteCallRetries = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "remote_call_retries_total",
			Help:      "Retries of photo service calls",
		},
		[]string{"operation"},
	)

	EventPublishFailures = promauto.NewCounter(
		prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "event_publish_failures_total",
			Help:      "Decision events that could not be published",
		},
	)
)

// RecordDecision counts a processed photo
func RecordDecision(status domain.Status) {
	PhotosProcessed.WithLabelValues(string(status)).Inc()
}

// RecordPoll records one feed poll
func RecordPoll(size int, err error) {
	result := "ok"
	if err != nil {
		result = "error"
	}
	PollBatches.WithLabelValues(result).Inc()
	PollBatchSize.Observe(float64(size))
}

// RecordCursor exposes the cursor position
func RecordCursor(c domain.Cursor) {
	if t := c.Time(); !t.IsZero() {
		CursorTimestamp.Set(float64(t.Unix()))
	}
}

// ObserveCall records the duration of a remote call started at start
func ObserveCall(operation string, start time.Time, err error) {
	result := "ok"
	if err != nil {
		result = "error"
	}
	RemoteCallDuration.WithLabelValues(operation, result).Observe(time.Since(start).Seconds())
}

// RecordRetry counts a retry of operation
func RecordRetry(operation string, _ int, _ error) {
	RemoteCallRetries.WithLabelValues(operation).Inc()
}
