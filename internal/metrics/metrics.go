// Package metrics provides Prometheus metrics for the file browser.
package metrics

import (
	"net/http"
	"strconv"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

var (
	// HTTP request metrics
	httpRequestsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "filebrowser_http_requests_total",
			Help: "Total number of HTTP requests",
		},
		[]string{"method", "route", "status"},
	)

	httpRequestDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "filebrowser_http_request_duration_seconds",
			Help:    "HTTP request duration in seconds",
			Buckets: prometheus.DefBuckets,
		},
		[]string{"method", "route"},
	)

	// Listing metrics
	listingDuration = promauto.NewHistogram(
		prometheus.HistogramOpts{
			Name:    "filebrowser_listing_duration_seconds",
			Help:    "Time to scan and sort one directory listing",
			Buckets: prometheus.DefBuckets,
		},
	)

	listingEntriesSkipped = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "filebrowser_listing_entries_skipped_total",
			Help: "Directory children skipped because they vanished or could not be read",
		},
	)

	// Archive metrics
	archiveStreamsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "filebrowser_archive_streams_total",
			Help: "Archive streams by outcome",
		},
		[]string{"result"},
	)

	archiveBytesTotal = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "filebrowser_archive_source_bytes_total",
			Help: "Uncompressed file bytes written into archive streams",
		},
	)

	archiveEntriesSkipped = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "filebrowser_archive_entries_skipped_total",
			Help: "Archive entries skipped because they vanished or could not be read",
		},
	)

	archivesInFlight = promauto.NewGauge(
		prometheus.GaugeOpts{
			Name: "filebrowser_archive_streams_in_flight",
			Help: "Number of archive streams currently being written",
		},
	)

	// Download metrics
	downloadsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "filebrowser_downloads_total",
			Help: "Single file downloads by kind",
		},
		[]string{"kind"},
	)
)

// Handler returns the Prometheus scrape handler.
func Handler() http.Handler {
	return promhttp.Handler()
}

func RecordHTTPRequest(method string, route string, status int, duration time.Duration) {
	httpRequestsTotal.WithLabelValues(method, route, strconv.Itoa(status)).Inc()
	httpRequestDuration.WithLabelValues(method, route).Observe(duration.Seconds())
}

func RecordListing(duration time.Duration, skipped int) {
	listingDuration.Observe(duration.Seconds())
	if skipped > 0 {
		listingEntriesSkipped.Add(float64(skipped))
	}
}

// ArchiveStarted marks a stream as in flight and returns the func that
// records its outcome.
func ArchiveStarted() func(result string, bytes int64, skipped int) {
	archivesInFlight.Inc()
	return func(result string, bytes int64, skipped int) {
		archivesInFlight.Dec()
		archiveStreamsTotal.WithLabelValues(result).Inc()
		if bytes > 0 {
			archiveBytesTotal.Add(float64(bytes))
		}
		if skipped > 0 {
			archiveEntriesSkipped.Add(float64(skipped))
		}
	}
}

func RecordDownload(kind string) {
	downloadsTotal.WithLabelValues(kind).Inc()
}
