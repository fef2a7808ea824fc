package handler

import (
	"fmt"
	"net/http"
	"sort"

	"github.com/snipvault/snipvault/internal/metrics"
)

// MetricsHandler exposes in-memory metrics.
type MetricsHandler struct {
	snapshotter metrics.Snapshotter
}

// NewMetricsHandler creates a new MetricsHandler.
func NewMetricsHandler(snapshotter metrics.Snapshotter) *MetricsHandler {
	return &MetricsHandler{snapshotter: snapshotter}
}

// Metrics returns metrics in Prometheus exposition format.
func (h *MetricsHandler) Metrics(w http.ResponseWriter, r *http.Request) {
	if h.snapshotter == nil {
		w.WriteHeader(http.StatusServiceUnavailable)
		return
	}

	snap := h.snapshotter.Snapshot()

	w.Header().Set("Content-Type", "text/plain; version=0.0.4")

	writeMetric(w, "snipvault_registrations_total %d\n", snap.Registrations)
	writeMetric(w, "snipvault_logins_total{outcome=\"success\"} %d\n", snap.LoginsSucceeded)
	writeMetric(w, "snipvault_logins_total{outcome=\"failed\"} %d\n", snap.LoginsFailed)

	reasons := make([]string, 0, len(snap.AuthRejected))
	for reason := range snap.AuthRejected {
		reasons = append(reasons, reason)
	}
	sort.Strings(reasons)
	for _, reason := range reasons {
		writeMetric(w, "snipvault_session_rejected_total{reason=%q} %d\n", reason, snap.AuthRejected[reason])
	}

	writeMetric(w, "snipvault_password_hash_duration_seconds_count %d\n", snap.PasswordHashCount)
	writeMetric(w, "snipvault_password_hash_duration_seconds_sum %.6f\n", float64(snap.PasswordHashTotalNs)/1e9)

	writeMetric(w, "snipvault_folders_created_total %d\n", snap.FoldersCreated)
	writeMetric(w, "snipvault_folders_deleted_total %d\n", snap.FoldersDeleted)
	writeMetric(w, "snipvault_snippets_created_total %d\n", snap.SnippetsCreated)
	writeMetric(w, "snipvault_snippets_deleted_total %d\n", snap.SnippetsDeleted)
	writeMetric(w, "snipvault_screenshots_uploaded_total %d\n", snap.ScreenshotsUploaded)

	writeMetric(w, "snipvault_user_cache_hits_total %d\n", snap.UserCacheHits)
	writeMetric(w, "snipvault_user_cache_misses_total %d\n", snap.UserCacheMisses)
}

func writeMetric(w http.ResponseWriter, format string, args ...any) {
	_, _ = fmt.Fprintf(w, format, args...)
}
