package metrics

import (
	"fmt"
	"io"
	"net/http"
	"sort"
	"strings"
	"sync"
	"time"
)

type requestLabel struct {
	method string
	path   string
	status string
}

// Recorder aggregates in-memory counters for HTTP traffic and domain events
// (signups, tokens, reviews, comments, bulk imports). A RWMutex coordinates
// concurrent writers; Write renders a stable Prometheus text exposition.
type Recorder struct {
	mu              sync.RWMutex
	requestCount    map[requestLabel]uint64
	requestDuration map[requestLabel]time.Duration
	authEvents      map[string]uint64
	reviewEvents    map[string]uint64
	commentEvents   map[string]uint64
	importRows      map[string]uint64
}

var defaultRecorder = New()

// New constructs an empty Recorder with initialized backing maps so callers
// can record immediately without additional setup.
func New() *Recorder {
	return &Recorder{
		requestCount:    make(map[requestLabel]uint64),
		requestDuration: make(map[requestLabel]time.Duration),
		authEvents:      make(map[string]uint64),
		reviewEvents:    make(map[string]uint64),
		commentEvents:   make(map[string]uint64),
		importRows:      make(map[string]uint64),
	}
}

// Default returns the singleton Recorder shared by packages that do not need
// a custom instrumentation pipeline.
func Default() *Recorder {
	return defaultRecorder
}

// ObserveRequest normalizes the request label set and accumulates totals for
// request count and cumulative duration by method, path, and status code.
func (r *Recorder) ObserveRequest(method, path string, status int, duration time.Duration) {
	label := requestLabel{
		method: strings.ToUpper(method),
		path:   normalizePath(path),
		status: fmt.Sprintf("%d", status),
	}
	r.mu.Lock()
	r.requestCount[label]++
	r.requestDuration[label] += duration
	r.mu.Unlock()
}

// ObserveAuthEvent records an authentication flow event, e.g. "signup",
// "token_issued", "token_rejected".
func (r *Recorder) ObserveAuthEvent(event string) {
	r.incrementEvent(r.authEvents, event)
}

// ObserveReviewEvent records a review lifecycle event, e.g. "created",
// "rejected", "deleted".
func (r *Recorder) ObserveReviewEvent(event string) {
	r.incrementEvent(r.reviewEvents, event)
}

// ObserveCommentEvent records a comment lifecycle event.
func (r *Recorder) ObserveCommentEvent(event string) {
	r.incrementEvent(r.commentEvents, event)
}

// ObserveImportRows accumulates the number of rows loaded from a bulk-import
// file, keyed by file name.
func (r *Recorder) ObserveImportRows(file string, rows int) {
	if rows <= 0 {
		return
	}
	normalized := normalizeName(file)
	r.mu.Lock()
	r.importRows[normalized] += uint64(rows)
	r.mu.Unlock()
}

func (r *Recorder) incrementEvent(counters map[string]uint64, event string) {
	normalized := normalizeName(event)
	r.mu.Lock()
	counters[normalized]++
	r.mu.Unlock()
}

// Reset clears all recorded values. Intended for tests that share the default
// recorder.
func (r *Recorder) Reset() {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.requestCount = make(map[requestLabel]uint64)
	r.requestDuration = make(map[requestLabel]time.Duration)
	r.authEvents = make(map[string]uint64)
	r.reviewEvents = make(map[string]uint64)
	r.commentEvents = make(map[string]uint64)
	r.importRows = make(map[string]uint64)
}

// Handler exposes the Recorder as an http.Handler writing Prometheus text
// exposition data with the appropriate content type.
func (r *Recorder) Handler() http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.Header().Set("Content-Type", "text/plain; version=0.0.4")
		r.Write(w)
	})
}

// Write renders the Recorder's metrics in Prometheus text format, sorting
// label sets so scrapes and tests see stable output.
func (r *Recorder) Write(w io.Writer) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	requestLabels := r.sortedRequestLabels()
	authEvents := sortedKeys(r.authEvents)
	reviewEvents := sortedKeys(r.reviewEvents)
	commentEvents := sortedKeys(r.commentEvents)
	importFiles := sortedKeys(r.importRows)

	fmt.Fprintln(w, "# HELP reviewdeck_http_requests_total Total number of HTTP requests processed by the API")
	fmt.Fprintln(w, "# TYPE reviewdeck_http_requests_total counter")
	for _, label := range requestLabels {
		count := r.requestCount[label]
		fmt.Fprintf(w, "reviewdeck_http_requests_total{method=\"%s\",path=\"%s\",status=\"%s\"} %d\n", label.method, label.path, label.status, count)
	}

	fmt.Fprintln(w, "# HELP reviewdeck_http_request_duration_seconds_sum Cumulative duration of HTTP requests in seconds")
	fmt.Fprintln(w, "# TYPE reviewdeck_http_request_duration_seconds_sum counter")
	for _, label := range requestLabels {
		duration := r.requestDuration[label].Seconds()
		fmt.Fprintf(w, "reviewdeck_http_request_duration_seconds_sum{method=\"%s\",path=\"%s\",status=\"%s\"} %f\n", label.method, label.path, label.status, duration)
	}

	fmt.Fprintln(w, "# HELP reviewdeck_http_request_duration_seconds_count Total number of observations for request durations")
	fmt.Fprintln(w, "# TYPE reviewdeck_http_request_duration_seconds_count counter")
	for _, label := range requestLabels {
		count := r.requestCount[label]
		fmt.Fprintf(w, "reviewdeck_http_request_duration_seconds_count{method=\"%s\",path=\"%s\",status=\"%s\"} %d\n", label.method, label.path, label.status, count)
	}

	fmt.Fprintln(w, "# HELP reviewdeck_auth_events_total Authentication flow events by type")
	fmt.Fprintln(w, "# TYPE reviewdeck_auth_events_total counter")
	for _, event := range authEvents {
		fmt.Fprintf(w, "reviewdeck_auth_events_total{event=\"%s\"} %d\n", event, r.authEvents[event])
	}

	fmt.Fprintln(w, "# HELP reviewdeck_review_events_total Review lifecycle events by type")
	fmt.Fprintln(w, "# TYPE reviewdeck_review_events_total counter")
	for _, event := range reviewEvents {
		fmt.Fprintf(w, "reviewdeck_review_events_total{event=\"%s\"} %d\n", event, r.reviewEvents[event])
	}

	fmt.Fprintln(w, "# HELP reviewdeck_comment_events_total Comment lifecycle events by type")
	fmt.Fprintln(w, "# TYPE reviewdeck_comment_events_total counter")
	for _, event := range commentEvents {
		fmt.Fprintf(w, "reviewdeck_comment_events_total{event=\"%s\"} %d\n", event, r.commentEvents[event])
	}

	fmt.Fprintln(w, "# HELP reviewdeck_import_rows_total Rows loaded by the CSV importer by file")
	fmt.Fprintln(w, "# TYPE reviewdeck_import_rows_total counter")
	for _, file := range importFiles {
		fmt.Fprintf(w, "reviewdeck_import_rows_total{file=\"%s\"} %d\n", file, r.importRows[file])
	}
}

func (r *Recorder) sortedRequestLabels() []requestLabel {
	labels := make([]requestLabel, 0, len(r.requestCount))
	for label := range r.requestCount {
		labels = append(labels, label)
	}
	sort.Slice(labels, func(i, j int) bool {
		if labels[i].method != labels[j].method {
			return labels[i].method < labels[j].method
		}
		if labels[i].path != labels[j].path {
			return labels[i].path < labels[j].path
		}
		return labels[i].status < labels[j].status
	})
	return labels
}

func sortedKeys(counters map[string]uint64) []string {
	keys := make([]string, 0, len(counters))
	for key := range counters {
		keys = append(keys, key)
	}
	sort.Strings(keys)
	return keys
}

// collectionSegments name the path segments whose successor is a resource
// identifier. Identifiers (and the literal "me") collapse to ":id" so the
// label cardinality stays bounded.
var collectionSegments = map[string]bool{
	"users":      true,
	"categories": true,
	"genres":     true,
	"titles":     true,
	"reviews":    true,
	"comments":   true,
}

func normalizePath(path string) string {
	if path == "" || path == "/" {
		return "/"
	}
	parts := strings.Split(path, "/")
	previous := ""
	for i, part := range parts {
		if part == "" {
			continue
		}
		original := part
		if collectionSegments[previous] {
			parts[i] = ":id"
		}
		previous = original
	}
	normalized := strings.Join(parts, "/")
	if !strings.HasPrefix(normalized, "/") {
		normalized = "/" + normalized
	}
	if strings.HasSuffix(normalized, "/") && len(normalized) > 1 {
		normalized = strings.TrimSuffix(normalized, "/")
	}
	return normalized
}

func normalizeName(name string) string {
	normalized := strings.ToLower(strings.TrimSpace(name))
	if normalized == "" {
		return "unknown"
	}
	return normalized
}

// ObserveRequest records an HTTP request against the default recorder.
func ObserveRequest(method, path string, status int, duration time.Duration) {
	defaultRecorder.ObserveRequest(method, path, status, duration)
}

// ObserveAuthEvent records an authentication event against the default recorder.
func ObserveAuthEvent(event string) {
	defaultRecorder.ObserveAuthEvent(event)
}

// ObserveReviewEvent records a review event against the default recorder.
func ObserveReviewEvent(event string) {
	defaultRecorder.ObserveReviewEvent(event)
}

// ObserveCommentEvent records a comment event against the default recorder.
func ObserveCommentEvent(event string) {
	defaultRecorder.ObserveCommentEvent(event)
}

// ObserveImportRows records bulk-import rows against the default recorder.
func ObserveImportRows(file string, rows int) {
	defaultRecorder.ObserveImportRows(file, rows)
}

// Handler exposes the default recorder as an http.Handler.
func Handler() http.Handler {
	return defaultRecorder.Handler()
}
