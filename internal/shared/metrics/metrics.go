package metrics

import (
	"bytes"
	"fmt"
	"net/http"
	"sort"
	"strconv"
	"sync"
	"sync/atomic"

	"github.com/gin-gonic/gin"
)

var (
	uploadStartedTotal   atomic.Uint64
	uploadCompletedTotal atomic.Uint64
	uploadFailedTotal    = newLabeledCounter("stage")

	coercionFallbackTotal atomic.Uint64
	summaryCacheHitsTotal atomic.Uint64
	chatMessagesTotal     atomic.Uint64

	uploadDuration = newHistogram([]float64{100, 250, 500, 1000, 2000, 5000, 10000, 30000, 60000, 120000})
)

// IncUploadStarted increments the started counter.
func IncUploadStarted() {
	uploadStartedTotal.Add(1)
}

// IncUploadCompleted increments the completed counter.
func IncUploadCompleted() {
	uploadCompletedTotal.Add(1)
}

// IncUploadFailed increments the failed counter for the stage that failed.
func IncUploadFailed(stage string) {
	uploadFailedTotal.Inc(stage)
}

// IncCoercionFallback counts parameter values stored as the non-numeric sentinel.
func IncCoercionFallback() {
	coercionFallbackTotal.Add(1)
}

func IncSummaryCacheHit() {
	summaryCacheHitsTotal.Add(1)
}

func IncChatMessage() {
	chatMessagesTotal.Add(1)
}

// ObserveUploadDurationMs records an upload pipeline duration in milliseconds.
func ObserveUploadDurationMs(value float64) {
	if value < 0 {
		value = 0
	}
	uploadDuration.Observe(value)
}

// Handler exposes metrics in Prometheus text format.
func Handler() gin.HandlerFunc {
	return func(c *gin.Context) {
		c.Header("Content-Type", "text/plain; version=0.0.4")
		c.String(http.StatusOK, Render())
	}
}

// Render renders metrics in Prometheus text format.
func Render() string {
	var buf bytes.Buffer
	writeCounter(&buf, "report_upload_started_total", "Total report uploads started", uploadStartedTotal.Load())
	writeCounter(&buf, "report_upload_completed_total", "Total report uploads completed", uploadCompletedTotal.Load())
	writeLabeledCounter(&buf, "report_upload_failed_total", "Total report uploads failed by stage", uploadFailedTotal)
	writeCounter(&buf, "report_parameter_coercion_fallback_total", "Parameter values stored without a numeric value", coercionFallbackTotal.Load())
	writeCounter(&buf, "summary_cache_hits_total", "Summaries served from cache", summaryCacheHitsTotal.Load())
	writeCounter(&buf, "chat_messages_total", "Chat messages answered", chatMessagesTotal.Load())
	writeHistogram(&buf, "report_upload_duration_ms", "Report upload duration in milliseconds", uploadDuration.Snapshot())
	return buf.String()
}

type labeledCounter struct {
	mu     sync.Mutex
	label  string
	values map[string]uint64
}

func newLabeledCounter(label string) *labeledCounter {
	return &labeledCounter{label: label, values: map[string]uint64{}}
}

func (l *labeledCounter) Inc(value string) {
	if value == "" {
		value = "unknown"
	}
	l.mu.Lock()
	l.values[value]++
	l.mu.Unlock()
}

func (l *labeledCounter) snapshot() ([]string, map[string]uint64) {
	l.mu.Lock()
	defer l.mu.Unlock()
	keys := make([]string, 0, len(l.values))
	out := make(map[string]uint64, len(l.values))
	for k, v := range l.values {
		keys = append(keys, k)
		out[k] = v
	}
	sort.Strings(keys)
	return keys, out
}

type histogram struct {
	mu      sync.Mutex
	buckets []float64
	counts  []uint64
	sum     float64
	count   uint64
}

type histogramSnapshot struct {
	buckets []float64
	counts  []uint64
	sum     float64
	count   uint64
}

func newHistogram(buckets []float64) *histogram {
	return &histogram{
		buckets: buckets,
		counts:  make([]uint64, len(buckets)),
	}
}

// Observe counts value in the first bucket it fits; Render accumulates.
func (h *histogram) Observe(value float64) {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.count++
	h.sum += value
	for i, bound := range h.buckets {
		if value <= bound {
			h.counts[i]++
			return
		}
	}
}

func (h *histogram) Snapshot() histogramSnapshot {
	h.mu.Lock()
	defer h.mu.Unlock()
	return histogramSnapshot{
		buckets: append([]float64(nil), h.buckets...),
		counts:  append([]uint64(nil), h.counts...),
		sum:     h.sum,
		count:   h.count,
	}
}

func writeCounter(buf *bytes.Buffer, name, help string, value uint64) {
	fmt.Fprintf(buf, "# HELP %s %s\n", name, help)
	fmt.Fprintf(buf, "# TYPE %s counter\n", name)
	fmt.Fprintf(buf, "%s %d\n", name, value)
}

func writeLabeledCounter(buf *bytes.Buffer, name, help string, counter *labeledCounter) {
	fmt.Fprintf(buf, "# HELP %s %s\n", name, help)
	fmt.Fprintf(buf, "# TYPE %s counter\n", name)
	keys, values := counter.snapshot()
	for _, k := range keys {
		fmt.Fprintf(buf, "%s{%s=%q} %d\n", name, counter.label, k, values[k])
	}
}

func writeHistogram(buf *bytes.Buffer, name, help string, snap histogramSnapshot) {
	fmt.Fprintf(buf, "# HELP %s %s\n", name, help)
	fmt.Fprintf(buf, "# TYPE %s histogram\n", name)
	var cumulative uint64
	for i, bound := range snap.buckets {
		cumulative += snap.counts[i]
		fmt.Fprintf(buf, "%s_bucket{le=\"%s\"} %d\n", name, formatFloat(bound), cumulative)
	}
	fmt.Fprintf(buf, "%s_bucket{le=\"+Inf\"} %d\n", name, snap.count)
	fmt.Fprintf(buf, "%s_sum %s\n", name, formatFloat(snap.sum))
	fmt.Fprintf(buf, "%s_count %d\n", name, snap.count)
}

func formatFloat(value float64) string {
	if value == float64(int64(value)) {
		return strconv.FormatInt(int64(value), 10)
	}
	return strconv.FormatFloat(value, 'f', -1, 64)
}
