package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Collectors updated only by the refresher; readers never touch them.
var (
	RecordsTotal = promauto.NewGauge(prometheus.GaugeOpts{
		Namespace: "recordcache",
		Name:      "records",
		Help:      "Number of regional records in the published snapshot",
	})

	LastRefreshTS = promauto.NewGauge(prometheus.GaugeOpts{
		Namespace: "recordcache",
		Name:      "last_refresh_timestamp_seconds",
		Help:      "Unix timestamp of the last successful refresh",
	})

	RefreshFailures = promauto.NewCounter(prometheus.CounterOpts{
		Namespace: "recordcache",
		Name:      "refresh_failures_total",
		Help:      "Number of refresh cycles that failed to fetch",
	})

	PersistFailures = promauto.NewCounter(prometheus.CounterOpts{
		Namespace: "recordcache",
		Name:      "persist_failures_total",
		Help:      "Number of snapshot writes that failed after a successful refresh",
	})

	RefreshDuration = promauto.NewSummary(prometheus.SummaryOpts{
		Namespace: "recordcache",
		Name:      "refresh_duration_seconds",
		Help:      "Time spent fetching and publishing one refresh cycle",
	})
)
