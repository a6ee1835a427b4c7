package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Media-API Metrics
var (
	// Request counters
	RequestsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "mediavault",
			Subsystem: "media_api",
			Name:      "requests_total",
			Help:      "Total number of HTTP requests",
		},
		[]string{"method", "endpoint", "status"},
	)

	// Request duration histogram
	RequestDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Namespace: "mediavault",
			Subsystem: "media_api",
			Name:      "request_duration_seconds",
			Help:      "HTTP request duration in seconds",
			Buckets:   []float64{0.1, 0.5, 1, 2, 5, 10, 30},
		},
		[]string{"method", "endpoint"},
	)

	// Upload outcomes: completed, orphaned, rejected, failed
	UploadsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "mediavault",
			Subsystem: "media_api",
			Name:      "uploads_total",
			Help:      "Total file uploads by outcome",
		},
		[]string{"outcome"},
	)

	UploadBytesTotal = promauto.NewCounter(
		prometheus.CounterOpts{
			Namespace: "mediavault",
			Subsystem: "media_api",
			Name:      "upload_bytes_total",
			Help:      "Total bytes persisted by accepted uploads",
		},
	)

	DeletionsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "mediavault",
			Subsystem: "media_api",
			Name:      "deletions_total",
			Help:      "Total deletions by outcome",
		},
		[]string{"outcome"},
	)

	BlobOperationsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "mediavault",
			Subsystem: "media_api",
			Name:      "blob_operations_total",
			Help:      "Total blob store operations",
		},
		[]string{"backend", "operation", "status"},
	)

	BlobDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Namespace: "mediavault",
			Subsystem: "media_api",
			Name:      "blob_duration_seconds",
			Help:      "Blob store operation duration in seconds",
			Buckets:   []float64{0.05, 0.1, 0.5, 1, 2, 5, 15, 60},
		},
		[]string{"backend", "operation"},
	)

	MetadataAvailable = promauto.NewGauge(
		prometheus.GaugeOpts{
			Namespace: "mediavault",
			Subsystem: "media_api",
			Name:      "metadata_available",
			Help:      "1 when the metadata store is reachable, 0 in degraded mode",
		},
	)
)

// RecordRequest records an HTTP request
func RecordRequest(method, endpoint, status string, durationSec float64) {
	RequestsTotal.WithLabelValues(method, endpoint, status).Inc()
	RequestDuration.WithLabelValues(method, endpoint).Observe(durationSec)
}

// RecordUpload records an upload outcome; bytes count only for stored uploads.
func RecordUpload(outcome string, bytes int64) {
	UploadsTotal.WithLabelValues(outcome).Inc()
	if bytes > 0 {
		UploadBytesTotal.Add(float64(bytes))
	}
}

// RecordDeletion records a deletion outcome
func RecordDeletion(outcome string) {
	DeletionsTotal.WithLabelValues(outcome).Inc()
}

// RecordBlobOperation records a blob store operation
func RecordBlobOperation(backend, operation, status string, durationSec float64) {
	BlobOperationsTotal.WithLabelValues(backend, operation, status).Inc()
	BlobDuration.WithLabelValues(backend, operation).Observe(durationSec)
}

// SetMetadataAvailable mirrors the metadata store capability flag
func SetMetadataAvailable(available bool) {
	if available {
		MetadataAvailable.Set(1)
		return
	}
	MetadataAvailable.Set(0)
}
