package observability

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Metrics definitions
var (
	ParsingDuration = promauto.NewHistogramVec(prometheus.HistogramOpts{
		Name:    "pyshape_parsing_seconds",
		Help:    "Time spent parsing a source file.",
		Buckets: prometheus.DefBuckets,
	}, []string{"language"})

	SourceFilesLoaded = promauto.NewGauge(prometheus.GaugeOpts{
		Name: "pyshape_source_files_loaded",
		Help: "Number of source files in the most recent load.",
	})

	SourceFilesFailed = promauto.NewCounter(prometheus.CounterOpts{
		Name: "pyshape_source_files_failed_total",
		Help: "Total number of source files that could not be read or parsed.",
	})

	ClassesRegistered = promauto.NewGauge(prometheus.GaugeOpts{
		Name: "pyshape_classes_registered",
		Help: "Number of classes known to the class registry.",
	})

	ClassesAnalyzedTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "pyshape_classes_analyzed_total",
		Help: "Total number of class descriptors produced, by outcome (full or stub).",
	}, []string{"outcome"})

	DecoratorResolutionFailures = promauto.NewCounter(prometheus.CounterOpts{
		Name: "pyshape_decorator_resolution_failures_total",
		Help: "Total number of classes whose source could not be re-parsed for decorators.",
	})

	AnalysisDuration = promauto.NewHistogramVec(prometheus.HistogramOpts{
		Name:    "pyshape_analysis_seconds",
		Help:    "Time spent on high-level analysis tasks.",
		Buckets: prometheus.DefBuckets,
	}, []string{"task"})

	WatcherEventsTotal = promauto.NewCounter(prometheus.CounterOpts{
		Name: "pyshape_watcher_events_total",
		Help: "Total number of file system events received by the watcher.",
	})
)
