package observability

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	WorkItemsEnqueuedTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "datls_work_items_enqueued_total",
		Help: "Total number of work items added to the diagnostics queue.",
	}, []string{"kind"})

	WorkItemsProcessedTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "datls_work_items_processed_total",
		Help: "Total number of work items processed, by where they ran.",
	}, []string{"kind", "mode"})

	WorkQueueDepth = promauto.NewGauge(prometheus.GaugeOpts{
		Name: "datls_work_queue_depth",
		Help: "Current number of work items waiting in the diagnostics queue.",
	})

	WorkerStartsTotal = promauto.NewCounter(prometheus.CounterOpts{
		Name: "datls_worker_starts_total",
		Help: "Total number of times the background diagnostics worker was started.",
	})

	RecalculationsTotal = promauto.NewCounter(prometheus.CounterOpts{
		Name: "datls_recalculations_total",
		Help: "Total number of completed diagnostics passes.",
	})

	RecalculationsSkippedTotal = promauto.NewCounter(prometheus.CounterOpts{
		Name: "datls_recalculations_skipped_total",
		Help: "Total number of passes skipped because the open file's version was already analyzed.",
	})

	RecalculationDuration = promauto.NewHistogramVec(prometheus.HistogramOpts{
		Name:    "datls_recalculation_seconds",
		Help:    "Time spent on one diagnostics pass.",
		Buckets: prometheus.DefBuckets,
	}, []string{"file_kind"})

	DiagnosticsPublishedTotal = promauto.NewCounter(prometheus.CounterOpts{
		Name: "datls_diagnostics_published_total",
		Help: "Total number of diagnostic sets published to the client.",
	})

	TrackedFiles = promauto.NewGauge(prometheus.GaugeOpts{
		Name: "datls_tracked_files",
		Help: "Current number of files in the diagnostics registry.",
	})

	OpenFiles = promauto.NewGauge(prometheus.GaugeOpts{
		Name: "datls_open_files",
		Help: "Current number of files open in the editor.",
	})

	WorkspaceFolders = promauto.NewGauge(prometheus.GaugeOpts{
		Name: "datls_workspace_folders",
		Help: "Current number of workspace folders.",
	})

	WatcherEventsTotal = promauto.NewCounter(prometheus.CounterOpts{
		Name: "datls_watcher_events_total",
		Help: "Total number of file system events received by the watcher.",
	})
)
