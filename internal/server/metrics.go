package server

import (
	"sync"
	"time"
)

// Upload failure stages, used as the "stage" label.
const (
	stageConfig = "config"
	stageParse  = "parse"
	stageInput  = "input"
	stageMedia  = "media"
	stageStore  = "store"
)

var uploadStages = []string{stageConfig, stageParse, stageInput, stageMedia, stageStore}

// Metrics holds in-process counters for the photo wall.
type Metrics struct {
	mu sync.RWMutex

	uploadsTotal        int64
	uploadBytesTotal    int64
	uploadDurationTotal time.Duration
	uploadErrors        map[string]int64
	orphanedMediaTotal  int64

	listsTotal        int64
	listErrorsTotal   int64
	listDurationTotal time.Duration

	requestsTotal    int64
	requestErrors5xx int64
	requestErrors4xx int64
}

// NewMetrics returns an empty metrics set.
func NewMetrics() *Metrics {
	return &Metrics{uploadErrors: make(map[string]int64)}
}

var globalMetrics = NewMetrics()

// GetMetrics returns the global metrics instance
func GetMetrics() *Metrics {
	return globalMetrics
}

// RecordUpload records a stored-and-recorded photo.
func (m *Metrics) RecordUpload(bytes int64, duration time.Duration) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.uploadsTotal++
	m.uploadBytesTotal += bytes
	m.uploadDurationTotal += duration
}

// RecordUploadError records a failed upload at the given stage.
func (m *Metrics) RecordUploadError(stage string) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.uploadErrors[stage]++
}

// RecordOrphanedMedia records an object that was stored but never recorded.
func (m *Metrics) RecordOrphanedMedia() {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.orphanedMediaTotal++
}

func (m *Metrics) RecordList(duration time.Duration) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.listsTotal++
	m.listDurationTotal += duration
}

func (m *Metrics) RecordListError() {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.listErrorsTotal++
}

// RecordRequest records an HTTP request
func (m *Metrics) RecordRequest(statusCode int) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.requestsTotal++

	if statusCode >= 500 {
		m.requestErrors5xx++
	} else if statusCode >= 400 {
		m.requestErrors4xx++
	}
}

// Snapshot returns a snapshot of current metrics
func (m *Metrics) Snapshot() MetricsSnapshot {
	m.mu.RLock()
	defer m.mu.RUnlock()

	errs := make(map[string]int64, len(m.uploadErrors))
	var errTotal int64
	for stage, n := range m.uploadErrors {
		errs[stage] = n
		errTotal += n
	}

	return MetricsSnapshot{
		UploadsTotal:        m.uploadsTotal,
		UploadBytesTotal:    m.uploadBytesTotal,
		UploadErrorsTotal:   errTotal,
		UploadErrorsByStage: errs,
		UploadAvgDurationMs: avgDuration(m.uploadDurationTotal, m.uploadsTotal),
		OrphanedMediaTotal:  m.orphanedMediaTotal,
		ListsTotal:          m.listsTotal,
		ListErrorsTotal:     m.listErrorsTotal,
		ListAvgDurationMs:   avgDuration(m.listDurationTotal, m.listsTotal),
		RequestsTotal:       m.requestsTotal,
		RequestErrors5xx:    m.requestErrors5xx,
		RequestErrors4xx:    m.requestErrors4xx,
	}
}

// MetricsSnapshot represents a point-in-time snapshot of metrics
type MetricsSnapshot struct {
	UploadsTotal        int64            `json:"uploads_total"`
	UploadBytesTotal    int64            `json:"upload_bytes_total"`
	UploadErrorsTotal   int64            `json:"upload_errors_total"`
	UploadErrorsByStage map[string]int64 `json:"upload_errors_by_stage"`
	UploadAvgDurationMs float64          `json:"upload_avg_duration_ms"`
	OrphanedMediaTotal  int64            `json:"orphaned_media_total"`

	ListsTotal        int64   `json:"lists_total"`
	ListErrorsTotal   int64   `json:"list_errors_total"`
	ListAvgDurationMs float64 `json:"list_avg_duration_ms"`

	RequestsTotal    int64 `json:"requests_total"`
	RequestErrors5xx int64 `json:"request_errors_5xx"`
	RequestErrors4xx int64 `json:"request_errors_4xx"`
}

func avgDuration(total time.Duration, count int64) float64 {
	if count == 0 {
		return 0
	}
	return float64(total.Milliseconds()) / float64(count)
}
