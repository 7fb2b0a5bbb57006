package httpapi

import (
	"bytes"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/riskibarqy/fpl-predictor/internal/platform/logging"
)

var okHandler = http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
	w.WriteHeader(http.StatusOK)
})

func TestCORS(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name       string
		allowed    []string
		method     string
		origin     string
		wantStatus int
		wantOrigin string
		wantVary   bool
	}{
		{name: "configured origin", allowed: []string{"https://fpl.example.com/"}, method: http.MethodGet, origin: "https://fpl.example.com", wantStatus: http.StatusOK, wantOrigin: "https://fpl.example.com", wantVary: true},
		{name: "wildcard preflight", allowed: []string{"*"}, method: http.MethodOptions, origin: "https://fpl.example.com", wantStatus: http.StatusNoContent, wantOrigin: "*"},
		{name: "unknown origin", allowed: []string{"https://fpl.example.com"}, method: http.MethodGet, origin: "https://evil.example.com", wantStatus: http.StatusOK},
		{name: "unknown origin preflight", allowed: []string{"https://fpl.example.com"}, method: http.MethodOptions, origin: "https://evil.example.com", wantStatus: http.StatusNoContent},
		{name: "no origin header", allowed: []string{"*"}, method: http.MethodGet, wantStatus: http.StatusOK},
		{name: "blank entries ignored", allowed: []string{" ", ""}, method: http.MethodGet, origin: "https://fpl.example.com", wantStatus: http.StatusOK},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			t.Parallel()

			req := httptest.NewRequest(tc.method, "/v1/tiers", nil)
			if tc.origin != "" {
				req.Header.Set("Origin", tc.origin)
			}
			rec := httptest.NewRecorder()
			CORS(tc.allowed, okHandler).ServeHTTP(rec, req)

			if rec.Code != tc.wantStatus {
				t.Fatalf("status got=%d want=%d", rec.Code, tc.wantStatus)
			}
			if got := rec.Header().Get("Access-Control-Allow-Origin"); got != tc.wantOrigin {
				t.Fatalf("allow-origin got=%q want=%q", got, tc.wantOrigin)
			}
			if got := rec.Header().Get("Vary") == "Origin"; got != tc.wantVary {
				t.Fatalf("vary got=%v want=%v", got, tc.wantVary)
			}
		})
	}
}

func TestRequireInternalToken(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name       string
		configured string
		provided   string
		want       int
	}{
		{name: "not configured", configured: "", provided: "x", want: http.StatusServiceUnavailable},
		{name: "missing header", configured: "secret", provided: "", want: http.StatusUnauthorized},
		{name: "wrong token", configured: "secret", provided: "nope", want: http.StatusUnauthorized},
		{name: "valid token", configured: "secret", provided: " secret ", want: http.StatusOK},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			t.Parallel()

			req := httptest.NewRequest(http.MethodPost, "/v1/internal/snapshot/refresh", nil)
			if tc.provided != "" {
				req.Header.Set(internalTokenHeader, tc.provided)
			}
			rec := httptest.NewRecorder()
			RequireInternalToken(tc.configured, okHandler).ServeHTTP(rec, req)
			if rec.Code != tc.want {
				t.Fatalf("got=%d want=%d", rec.Code, tc.want)
			}
		})
	}
}

func TestRequestLogging(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name      string
		status    int
		requestID string
		wantLevel string
	}{
		{name: "ok keeps caller id", status: http.StatusOK, requestID: "req-42", wantLevel: `"level":"info"`},
		{name: "client error", status: http.StatusNotFound, wantLevel: `"level":"warn"`},
		{name: "server error", status: http.StatusBadGateway, wantLevel: `"level":"error"`},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			t.Parallel()

			var buf bytes.Buffer
			logger := logging.NewJSONWriter(&buf, logging.LevelDebug)
			next := http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
				w.WriteHeader(tc.status)
				_, _ = w.Write([]byte("body"))
			})

			req := httptest.NewRequest(http.MethodGet, "/v1/players/7/prediction", nil)
			if tc.requestID != "" {
				req.Header.Set(requestIDHeader, tc.requestID)
			}
			rec := httptest.NewRecorder()
			RequestLogging(logger, next).ServeHTTP(rec, req)

			gotID := rec.Header().Get(requestIDHeader)
			if gotID == "" || (tc.requestID != "" && gotID != tc.requestID) {
				t.Fatalf("request id got=%q want=%q", gotID, tc.requestID)
			}
			out := buf.String()
			for _, want := range []string{tc.wantLevel, `"request_id":"` + gotID + `"`, `"bytes":4`, `"path":"/v1/players/7/prediction"`} {
				if !strings.Contains(out, want) {
					t.Fatalf("missing %s in %s", want, out)
				}
			}
		})
	}
}

func TestRequestID_RejectsOversizedHeader(t *testing.T) {
	t.Parallel()

	req := httptest.NewRequest(http.MethodGet, "/", nil)
	req.Header.Set(requestIDHeader, strings.Repeat("x", maxRequestIDLen+1))
	if got := requestID(req); len(got) != 36 {
		t.Fatalf("expected a generated uuid, got=%q", got)
	}
}

func TestClientIP(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name    string
		remote  string
		headers map[string]string
		want    string
	}{
		{name: "socket address", remote: "10.0.0.1:5555", want: "10.0.0.1"},
		{name: "first forwarded hop", remote: "10.0.0.1:5555", headers: map[string]string{"X-Forwarded-For": "203.0.113.7, 10.0.0.1"}, want: "203.0.113.7"},
		{name: "real ip", remote: "10.0.0.1:5555", headers: map[string]string{"X-Real-IP": "198.51.100.3"}, want: "198.51.100.3"},
		{name: "garbage forwarded falls through", remote: "[::1]:80", headers: map[string]string{"X-Forwarded-For": "unknown"}, want: "::1"},
	}

	for _, tc := range tests {
		req := httptest.NewRequest(http.MethodGet, "/", nil)
		req.RemoteAddr = tc.remote
		for k, v := range tc.headers {
			req.Header.Set(k, v)
		}
		if got := clientIP(req); got != tc.want {
			t.Fatalf("%s: got=%q want=%q", tc.name, got, tc.want)
		}
	}
}
