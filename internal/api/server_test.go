package api

import (
	"context"
	"encoding/json"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"webrecon/internal/engine"
	"webrecon/internal/enrich"
	"webrecon/internal/fetcher"
	"webrecon/internal/netscan"
	"webrecon/pkg/types"
)

type fakeProber struct{}

func (fakeProber) Run(_ context.Context, kind types.ProbeKind, _ string) *types.ProbeResult {
	switch kind {
	case types.ProbeReachability:
		return &types.ProbeResult{Kind: kind, Success: true, Ping: &types.PingData{Reachable: true}}
	case types.ProbeResolve:
		return &types.ProbeResult{Kind: kind, Success: true, Resolve: &types.ResolveData{IPv4: []string{"10.0.0.1"}}}
	default:
		return &types.ProbeResult{Kind: kind, Error: "not available"}
	}
}

func newTestServer(t *testing.T) *Server {
	t.Helper()
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	httpFetcher, err := fetcher.NewHTTPFetcher(fetcher.Options{UserAgent: "webrecon-test"})
	if err != nil {
		t.Fatalf("build fetcher: %v", err)
	}
	selector := engine.NewSelector([]string{"static"}, engine.NewStaticEngine(httpFetcher, logger))
	prober := fakeProber{}
	scanner := netscan.NewAggregator(prober, logger)
	return NewServer(selector, prober, scanner, enrich.NewProcessor(), logger)
}

func serveJSON(t *testing.T, h http.Handler, method, path, body string) (*httptest.ResponseRecorder, map[string]any) {
	t.Helper()
	var reader io.Reader
	if body != "" {
		reader = strings.NewReader(body)
	}
	req := httptest.NewRequest(method, path, reader)
	rr := httptest.NewRecorder()
	h.ServeHTTP(rr, req)

	payload := map[string]any{}
	if rr.Body.Len() > 0 && strings.Contains(rr.Header().Get("Content-Type"), "json") {
		if err := json.Unmarshal(rr.Body.Bytes(), &payload); err != nil {
			t.Fatalf("%s %s: invalid json response: %v (%s)", method, path, err, rr.Body.String())
		}
	}
	return rr, payload
}

func TestRoutes(t *testing.T) {
	server := newTestServer(t)

	cases := []struct {
		method      string
		path        string
		status      int
		contentType string
	}{
		{http.MethodGet, "/health", http.StatusOK, "application/json"},
		{http.MethodGet, "/openapi.yaml", http.StatusOK, "application/yaml"},
		{http.MethodGet, "/docs", http.StatusOK, "text/html; charset=utf-8"},
	}
	for _, tc := range cases {
		req := httptest.NewRequest(tc.method, tc.path, nil)
		rr := httptest.NewRecorder()
		server.ServeHTTP(rr, req)
		if rr.Code != tc.status {
			t.Errorf("%s %s: status %d, want %d", tc.method, tc.path, rr.Code, tc.status)
		}
		if got := rr.Header().Get("Content-Type"); got != tc.contentType {
			t.Errorf("%s %s: content-type %q, want %q", tc.method, tc.path, got, tc.contentType)
		}
	}
}

func TestUnknownPath_JSON404(t *testing.T) {
	server := newTestServer(t)
	rr, payload := serveJSON(t, server, http.MethodGet, "/api/nope", "")
	if rr.Code != http.StatusNotFound {
		t.Fatalf("status = %d, want 404", rr.Code)
	}
	if payload["error"] != "endpoint not found" {
		t.Errorf("payload = %v", payload)
	}
}

func TestHealth_ReportsEngines(t *testing.T) {
	server := newTestServer(t)
	_, payload := serveJSON(t, server, http.MethodGet, "/health", "")
	engines, ok := payload["engines"].(map[string]any)
	if !ok {
		t.Fatalf("health payload missing engines: %v", payload)
	}
	if engines["static"] != true {
		t.Errorf("static engine should report available: %v", engines)
	}
}

func TestCrawl_MissingURL(t *testing.T) {
	server := newTestServer(t)
	rr, _ := serveJSON(t, server, http.MethodPost, "/api/crawl", `{}`)
	if rr.Code != http.StatusBadRequest {
		t.Errorf("status = %d, want 400", rr.Code)
	}
}

func TestCrawl_UnknownEngine(t *testing.T) {
	server := newTestServer(t)
	rr, _ := serveJSON(t, server, http.MethodPost, "/api/crawl", `{"url":"https://example.com","engine":"scrapy"}`)
	if rr.Code != http.StatusBadRequest {
		t.Errorf("unknown engine should be a 400, got %d", rr.Code)
	}
}

func TestCrawl_MethodGuard(t *testing.T) {
	server := newTestServer(t)
	rr, _ := serveJSON(t, server, http.MethodGet, "/api/crawl", "")
	if rr.Code != http.StatusMethodNotAllowed {
		t.Errorf("status = %d, want 405", rr.Code)
	}
}

func TestCrawl_Success(t *testing.T) {
	backend := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte(`<title>Target</title><input type="text" name="q">`))
	}))
	defer backend.Close()

	server := newTestServer(t)
	rr, payload := serveJSON(t, server, http.MethodPost, "/api/crawl", `{"url":"`+backend.URL+`"}`)
	if rr.Code != http.StatusOK {
		t.Fatalf("status = %d (%s)", rr.Code, rr.Body.String())
	}
	if payload["success"] != true {
		t.Fatalf("payload = %v", payload)
	}
	if payload["engine"] != "static" {
		t.Errorf("engine = %v", payload["engine"])
	}
	raw, ok := payload["raw_data"].(map[string]any)
	if !ok || raw["title"] != "Target" {
		t.Errorf("raw_data = %v", payload["raw_data"])
	}
	processed, ok := payload["processed_data"].(map[string]any)
	if !ok {
		t.Fatalf("processed_data missing: %v", payload)
	}
	if _, ok := processed["normalized_crawl"]; !ok {
		t.Errorf("processed_data = %v", processed)
	}
}

func TestCrawl_FailureKeepsStatus200(t *testing.T) {
	backend := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {}))
	target := backend.URL
	backend.Close()

	server := newTestServer(t)
	rr, payload := serveJSON(t, server, http.MethodPost, "/api/crawl", `{"url":"`+target+`"}`)
	if rr.Code != http.StatusOK {
		t.Fatalf("completed attempt should stay 200, got %d", rr.Code)
	}
	if payload["success"] != false {
		t.Fatalf("payload = %v", payload)
	}
	errObj, ok := payload["error"].(map[string]any)
	if !ok || errObj["kind"] != string(types.FailConnection) {
		t.Errorf("error = %v", payload["error"])
	}
}

func TestCrawlLogin_MissingFields(t *testing.T) {
	server := newTestServer(t)
	rr, payload := serveJSON(t, server, http.MethodPost, "/api/crawl/login", `{"url":"https://example.com"}`)
	if rr.Code != http.StatusBadRequest {
		t.Fatalf("status = %d, want 400", rr.Code)
	}
	msg, _ := payload["error"].(string)
	if !strings.Contains(msg, "username_selector") {
		t.Errorf("error should name the missing fields: %q", msg)
	}
}

func TestScanNetwork(t *testing.T) {
	server := newTestServer(t)
	rr, payload := serveJSON(t, server, http.MethodPost, "/api/scan/network", `{"url":"https://example.com"}`)
	if rr.Code != http.StatusOK {
		t.Fatalf("status = %d", rr.Code)
	}
	data, ok := payload["network_data"].(map[string]any)
	if !ok {
		t.Fatalf("payload = %v", payload)
	}
	if data["hostname"] != "example.com" {
		t.Errorf("hostname = %v", data["hostname"])
	}
	if data["network_accessible"] != true {
		t.Errorf("network_accessible = %v", data["network_accessible"])
	}
}

func TestScanPing(t *testing.T) {
	server := newTestServer(t)
	rr, payload := serveJSON(t, server, http.MethodPost, "/api/scan/ping", `{"url":"example.com"}`)
	if rr.Code != http.StatusOK {
		t.Fatalf("status = %d", rr.Code)
	}
	if payload["success"] != true {
		t.Errorf("payload = %v", payload)
	}
}

func TestExtractForms(t *testing.T) {
	backend := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte(`<form action="/s" method="post"><input type="text" name="q"></form>`))
	}))
	defer backend.Close()

	server := newTestServer(t)
	rr, payload := serveJSON(t, server, http.MethodPost, "/api/extract/forms", `{"url":"`+backend.URL+`"}`)
	if rr.Code != http.StatusOK {
		t.Fatalf("status = %d", rr.Code)
	}
	if payload["form_count"] != float64(1) {
		t.Errorf("form_count = %v", payload["form_count"])
	}
}

func TestExtractSensitiveFields(t *testing.T) {
	backend := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte(`<input type="password" name="pwd"><input type="text" name="city">`))
	}))
	defer backend.Close()

	server := newTestServer(t)
	rr, payload := serveJSON(t, server, http.MethodPost, "/api/extract/sensitive-fields", `{"url":"`+backend.URL+`"}`)
	if rr.Code != http.StatusOK {
		t.Fatalf("status = %d", rr.Code)
	}
	if payload["sensitive_count"] != float64(1) {
		t.Errorf("sensitive_count = %v (%v)", payload["sensitive_count"], payload["sensitive_fields"])
	}
}
