package metrics

import (
	"fmt"
	"regexp"
	"strings"
	"time"

	"github.com/ethereum/go-ethereum/log"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"

	"github.com/ethereum-optimism/infra/reportree/types"
)

const (
	MetricsNamespace = "reportree"
)

var (
	Debug                bool = false
	nonAlphanumericRegex      = regexp.MustCompile(`[^a-zA-Z ]+`)

	errorsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: MetricsNamespace,
		Name:      "errors_total",
		Help:      "Count of errors",
	}, []string{
		"error",
	})

	reportsServedTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: MetricsNamespace,
		Name:      "reports_served_total",
		Help:      "Count of report trees served",
	}, []string{
		"view",
		"filtered",
	})

	reportCacheTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: MetricsNamespace,
		Name:      "report_cache_total",
		Help:      "Report cache lookups by result",
	}, []string{
		"result",
	})

	mergeConflictsTotal = promauto.NewCounter(prometheus.CounterOpts{
		Namespace: MetricsNamespace,
		Name:      "merge_conflicts_total",
		Help:      "Count of merge requests rejected with a merge conflict",
	})

	attachmentFetchesTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: MetricsNamespace,
		Name:      "attachment_fetches_total",
		Help:      "Count of assertion attachment fetches by result",
	}, []string{
		"result",
	})

	attachmentFetchDuration = promauto.NewHistogram(prometheus.HistogramOpts{
		Namespace: MetricsNamespace,
		Name:      "attachment_fetch_duration_seconds",
		Help:      "Duration of assertion attachment fetches",
		Buckets:   prometheus.DefBuckets,
	})

	reportTestcases = promauto.NewGaugeVec(prometheus.GaugeOpts{
		Namespace: MetricsNamespace,
		Name:      "report_testcases",
		Help:      "Testcase counts of the last decoded version of each report",
	}, []string{
		"report_uid",
		"result",
	})
)

// errToLabel tries to make the error string a more valid Prometheus label
func errToLabel(err error) string {
	if err == nil {
		return "nil"
	}
	errClean := nonAlphanumericRegex.ReplaceAllString(err.Error(), "")
	errClean = strings.ReplaceAll(errClean, " ", "_")
	errClean = strings.ReplaceAll(errClean, "__", "_")
	return errClean
}

func RecordError(error string) {
	if Debug {
		log.Debug("metric inc",
			"m", "errors_total",
			"error", error,
		)
	}
	errorsTotal.WithLabelValues(error).Inc()
}

// RecordErrorDetails concats the error message to the label
// and also tries to clean the label to be a valid Prometheus label
func RecordErrorDetails(label string, err error) {
	if err == nil {
		return
	}
	label = fmt.Sprintf("%s.%s", label, errToLabel(err))
	RecordError(label)
}

func RecordReportServed(merged bool, filtered bool) {
	view := "unmerged"
	if merged {
		view = "merged"
	}
	reportsServedTotal.WithLabelValues(view, fmt.Sprint(filtered)).Inc()
}

func RecordCacheLookup(hit bool) {
	result := "miss"
	if hit {
		result = "hit"
	}
	reportCacheTotal.WithLabelValues(result).Inc()
}

func RecordMergeConflict() {
	mergeConflictsTotal.Inc()
}

// RecordAttachmentFetch records one attachment fetch; err is nil on success
func RecordAttachmentFetch(duration time.Duration, err error) {
	result := "success"
	if err != nil {
		result = "failure"
	}
	if Debug {
		log.Debug("metric inc",
			"m", "attachment_fetches_total",
			"result", result,
			"duration", duration)
	}
	attachmentFetchesTotal.WithLabelValues(result).Inc()
	attachmentFetchDuration.Observe(duration.Seconds())
}

// RecordReport exports the root counter of a decoded report
func RecordReport(reportUID string, counter types.Counter) {
	reportTestcases.WithLabelValues(reportUID, "total").Set(float64(counter.Total))
	reportTestcases.WithLabelValues(reportUID, string(types.StatusPassed)).Set(float64(counter.Passed))
	reportTestcases.WithLabelValues(reportUID, string(types.StatusFailed)).Set(float64(counter.Failed))
	reportTestcases.WithLabelValues(reportUID, string(types.StatusError)).Set(float64(counter.Error))
}
