package server

import (
	"fmt"
	"net/http"
	"strings"
	"time"
)

var processStart = time.Now()

// PrometheusExporter renders Metrics in the Prometheus text format.
type PrometheusExporter struct {
	metrics *Metrics
	build   BuildInfo
}

func NewPrometheusExporter(m *Metrics, build BuildInfo) *PrometheusExporter {
	return &PrometheusExporter{metrics: m, build: build}
}

// Handler returns an HTTP handler for the /metrics endpoint
func (p *PrometheusExporter) Handler() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if r.Method != http.MethodGet {
			writeJSON(w, http.StatusMethodNotAllowed, msgBody{Msg: "Method Not Allowed"})
			return
		}

		w.Header().Set("Content-Type", "text/plain; version=0.0.4; charset=utf-8")
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte(p.Render()))
	}
}

// Render returns the current exposition text.
func (p *PrometheusExporter) Render() string {
	snap := p.metrics.Snapshot()
	version := p.build.Version
	if version == "" {
		version = "dev"
	}

	var out strings.Builder
	gauge := func(name, help string, v any) {
		fmt.Fprintf(&out, "# HELP %s %s\n# TYPE %s gauge\n%s %v\n\n", name, help, name, name, v)
	}
	counter := func(name, help string, v int64) {
		fmt.Fprintf(&out, "# HELP %s %s\n# TYPE %s counter\n%s %d\n\n", name, help, name, name, v)
	}

	fmt.Fprintf(&out, "# HELP photowall_info Build info\n# TYPE photowall_info gauge\n")
	fmt.Fprintf(&out, "photowall_info{version=\"%s\",commit=\"%s\"} 1\n\n",
		prometheusLabel(version), prometheusLabel(p.build.Commit))

	counter("photowall_requests_total", "Total number of HTTP requests", snap.RequestsTotal)
	counter("photowall_request_errors_4xx_total", "HTTP responses with a 4xx status", snap.RequestErrors4xx)
	counter("photowall_request_errors_5xx_total", "HTTP responses with a 5xx status", snap.RequestErrors5xx)

	counter("photowall_uploads_total", "Photos stored and recorded", snap.UploadsTotal)
	counter("photowall_upload_bytes_total", "Bytes of stored photos", snap.UploadBytesTotal)

	out.WriteString("# HELP photowall_upload_errors_total Failed uploads by stage\n")
	out.WriteString("# TYPE photowall_upload_errors_total counter\n")
	for _, stage := range uploadStages {
		fmt.Fprintf(&out, "photowall_upload_errors_total{stage=\"%s\"} %d\n", stage, snap.UploadErrorsByStage[stage])
	}
	out.WriteString("\n")

	counter("photowall_orphaned_media_total", "Objects stored without a photo record", snap.OrphanedMediaTotal)
	counter("photowall_lists_total", "Successful photo listings", snap.ListsTotal)
	counter("photowall_list_errors_total", "Failed photo listings", snap.ListErrorsTotal)

	gauge("photowall_upload_avg_duration_ms", "Mean upload duration in milliseconds", snap.UploadAvgDurationMs)
	gauge("photowall_list_avg_duration_ms", "Mean listing duration in milliseconds", snap.ListAvgDurationMs)
	gauge("photowall_uptime_seconds", "Process uptime in seconds", fmt.Sprintf("%.0f", time.Since(processStart).Seconds()))

	return out.String()
}

func prometheusLabel(value string) string {
	value = strings.ReplaceAll(value, `\`, `\\`)
	value = strings.ReplaceAll(value, `"`, `\"`)
	value = strings.ReplaceAll(value, "\n", `\n`)
	return value
}
