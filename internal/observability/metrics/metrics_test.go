package metrics

import (
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"
)

func TestRecorderWriteRendersCounters(t *testing.T) {
	recorder := New()
	recorder.ObserveRequest("get", "/api/titles/abc123", 200, 150*time.Millisecond)
	recorder.ObserveRequest("GET", "/api/titles/def456", 200, 50*time.Millisecond)
	recorder.ObserveAuthEvent("signup")
	recorder.ObserveReviewEvent("created")
	recorder.ObserveCommentEvent("created")
	recorder.ObserveImportRows("review.csv", 12)

	var buf strings.Builder
	recorder.Write(&buf)
	output := buf.String()

	for _, want := range []string{
		`reviewdeck_http_requests_total{method="GET",path="/api/titles/:id",status="200"} 2`,
		`reviewdeck_auth_events_total{event="signup"} 1`,
		`reviewdeck_review_events_total{event="created"} 1`,
		`reviewdeck_comment_events_total{event="created"} 1`,
		`reviewdeck_import_rows_total{file="review.csv"} 12`,
	} {
		if !strings.Contains(output, want) {
			t.Fatalf("expected output to contain %q\n%s", want, output)
		}
	}
}

func TestNormalizePath(t *testing.T) {
	cases := []struct {
		path string
		want string
	}{
		{path: "", want: "/"},
		{path: "/", want: "/"},
		{path: "/healthz", want: "/healthz"},
		{path: "/api/titles", want: "/api/titles"},
		{path: "/api/titles/0a1b2c3d4e5f6a7b", want: "/api/titles/:id"},
		{path: "/api/users/me", want: "/api/users/:id"},
		{path: "/api/categories/science-fiction", want: "/api/categories/:id"},
		{path: "/api/titles/t1/reviews/r1/comments/c1", want: "/api/titles/:id/reviews/:id/comments/:id"},
		{path: "/api/titles/t1/reviews/", want: "/api/titles/:id/reviews"},
	}
	for _, tc := range cases {
		if got := normalizePath(tc.path); got != tc.want {
			t.Fatalf("normalizePath(%q) = %q, want %q", tc.path, got, tc.want)
		}
	}
}

func TestRecorderReset(t *testing.T) {
	recorder := New()
	recorder.ObserveAuthEvent("token_issued")
	recorder.Reset()

	var buf strings.Builder
	recorder.Write(&buf)
	if strings.Contains(buf.String(), "token_issued") {
		t.Fatal("expected reset to clear auth events")
	}
}

func TestHTTPMiddlewareRecordsStatus(t *testing.T) {
	recorder := New()
	handler := HTTPMiddleware(recorder, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusNotFound)
	}))

	req := httptest.NewRequest(http.MethodGet, "/api/titles/missing", nil)
	rr := httptest.NewRecorder()
	handler.ServeHTTP(rr, req)

	var buf strings.Builder
	recorder.Write(&buf)
	want := `reviewdeck_http_requests_total{method="GET",path="/api/titles/:id",status="404"} 1`
	if !strings.Contains(buf.String(), want) {
		t.Fatalf("expected output to contain %q\n%s", want, buf.String())
	}
}

func TestMetricsHandlerContentType(t *testing.T) {
	recorder := New()
	req := httptest.NewRequest(http.MethodGet, "/metrics", nil)
	rr := httptest.NewRecorder()
	recorder.Handler().ServeHTTP(rr, req)

	if got := rr.Header().Get("Content-Type"); got != "text/plain; version=0.0.4" {
		t.Fatalf("unexpected content type %q", got)
	}
}
