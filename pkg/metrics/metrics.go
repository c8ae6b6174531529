// Package metrics provides the Prometheus registry used by the exporter and a
// textfile writer for one-shot runs.
// All metrics are defined in their respective packages (client, pagination,
// export, runlock) to keep packages self-contained.
//
// A run is a short-lived process, so nothing is served over HTTP. When
// METRICS_TEXTFILE is set the gathered metrics are written once at the end of
// the run, in the format read by the node exporter textfile collector.
package metrics

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/prometheus/client_golang/prometheus"
)

// Registry is the default Prometheus registry used by the exporter.
// All metrics are automatically registered via promauto in their respective packages.
var Registry = prometheus.DefaultRegisterer

// Gatherer is the source read by WriteTextfile.
var Gatherer prometheus.Gatherer = prometheus.DefaultGatherer

// WriteTextfile writes all gathered metrics to path. The file is replaced
// atomically so a collector never reads a partial file.
func WriteTextfile(path string) error {
	if path == "" {
		return fmt.Errorf("metrics textfile path is empty")
	}

	if dir := filepath.Dir(path); dir != "" {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return fmt.Errorf("create metrics dir: %w", err)
		}
	}

	if err := prometheus.WriteToTextfile(path, Gatherer); err != nil {
		return fmt.Errorf("write metrics textfile: %w", err)
	}
	return nil
}

// Metrics Documentation
//
// Request Metrics (pkg/client):
//   - withdraw_requests_total{endpoint, status} (Counter): Requests by logical endpoint and HTTP status
//   - withdraw_request_duration_seconds{endpoint} (Histogram): Request duration by endpoint
//   - withdraw_errors_total{class} (Counter): Errors by class (network, client, server, decode)
//
// Detail Metrics (pkg/withdrawal):
//   - withdraw_records_invalid_total (Counter): Page elements skipped because they are not JSON objects
//
// Pagination Metrics (pkg/pagination):
//   - withdraw_pages_total{outcome} (Counter): Pages by outcome (ok, empty, transport, status, malformed)
//   - withdraw_records_fetched_total (Counter): Records appended to the result
//   - withdraw_notify_failures_total (Counter): Tracking calls that failed at transport level
//
// Export Metrics (pkg/export):
//   - withdraw_rows_exported_total (Counter): Rows written to the spreadsheet
//   - withdraw_records_skipped_total (Counter): Records dropped during normalization
//   - withdraw_parse_warnings_total (Counter): Records with an unparsable withdrawRequest
//
// Run Lock Metrics (pkg/runlock):
//   - withdraw_run_lock_total{result} (Counter): Lock operations by result (acquired, held, released, error)
//
// Example Queries:
//
//   # Pages skipped in the last run
//   sum(withdraw_pages_total{outcome=~"transport|status|malformed"})
//
//   # Share of records dropped during export
//   withdraw_records_skipped_total / withdraw_records_fetched_total
