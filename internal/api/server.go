// Package api exposes the reconnaissance pipeline over HTTP. Handlers
// distinguish malformed requests (400) from crawl attempts that completed
// with a failure outcome (200, success=false).
package api

import (
	"context"
	"encoding/json"
	"log/slog"
	"net/http"
	"strings"
	"sync"
	"time"

	"webrecon/internal/engine"
	"webrecon/internal/enrich"
	"webrecon/internal/netscan"
	"webrecon/pkg/types"
)

// Server wires handlers for crawling, scanning, and extraction.
type Server struct {
	selector *engine.Selector
	prober   netscan.Prober
	scanner  *netscan.Aggregator
	enricher *enrich.Processor
	logger   *slog.Logger
	mux      *http.ServeMux
}

// NewServer builds the HTTP surface over the pipeline components.
func NewServer(selector *engine.Selector, prober netscan.Prober, scanner *netscan.Aggregator, enricher *enrich.Processor, logger *slog.Logger) *Server {
	if logger == nil {
		logger = slog.Default()
	}
	s := &Server{
		selector: selector,
		prober:   prober,
		scanner:  scanner,
		enricher: enricher,
		logger:   logger,
		mux:      http.NewServeMux(),
	}
	s.routes()
	return s
}

// ServeHTTP satisfies the http.Handler interface. A panicking handler is
// reported as a JSON 500 instead of tearing the connection down.
func (s *Server) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	defer func() {
		if rec := recover(); rec != nil {
			s.logger.Error("handler panic", "path", r.URL.Path, "panic", rec)
			writeJSON(w, http.StatusInternalServerError, map[string]any{"error": "internal server error"})
		}
	}()
	s.mux.ServeHTTP(w, r)
}

func (s *Server) routes() {
	s.mux.HandleFunc("/health", s.handleHealth)
	s.mux.HandleFunc("/api/crawl", s.handleCrawl)
	s.mux.HandleFunc("/api/crawl/with-network", s.handleCrawlWithNetwork)
	s.mux.HandleFunc("/api/crawl/login", s.handleCrawlLogin)
	s.mux.HandleFunc("/api/crawl/static", s.engineCrawl(types.EngineStatic))
	s.mux.HandleFunc("/api/crawl/deep", s.engineCrawl(types.EngineDeep))
	s.mux.HandleFunc("/api/scan/network", s.handleScanNetwork)
	s.mux.HandleFunc("/api/scan/ping", s.probeHandler(types.ProbeReachability))
	s.mux.HandleFunc("/api/scan/dns", s.probeHandler(types.ProbeResolve))
	s.mux.HandleFunc("/api/scan/traceroute", s.probeHandler(types.ProbeTrace))
	s.mux.HandleFunc("/api/extract/forms", s.handleExtractForms)
	s.mux.HandleFunc("/api/extract/sensitive-fields", s.handleExtractSensitive)
	s.mux.HandleFunc("/openapi.yaml", s.handleOpenAPI)
	s.mux.HandleFunc("/docs", s.handleDocs)
	s.mux.HandleFunc("/", s.handleNotFound)
}

func (s *Server) handleNotFound(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusNotFound, map[string]any{"error": "endpoint not found"})
}

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		methodNotAllowed(w, http.MethodGet)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{
		"status":    "online",
		"engines":   s.selector.Tags(),
		"timestamp": time.Now().UTC(),
	})
}

// handleCrawl serves crawls with a caller-chosen (or automatic) engine.
func (s *Server) handleCrawl(w http.ResponseWriter, r *http.Request) {
	req, ok := s.decodeCrawlRequest(w, r)
	if !ok {
		return
	}
	s.crawlAndRespond(r.Context(), w, req.Engine, *req)
}

// engineCrawl pins the crawl to one engine regardless of the request body.
func (s *Server) engineCrawl(tag string) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		req, ok := s.decodeCrawlRequest(w, r)
		if !ok {
			return
		}
		s.crawlAndRespond(r.Context(), w, tag, *req)
	}
}

func (s *Server) crawlAndRespond(ctx context.Context, w http.ResponseWriter, tag string, req CrawlRequest) {
	resp := CrawlResponse{URL: req.URL}

	result, fail := s.runCrawl(ctx, tag, req)
	if fail != nil {
		if fail.Kind == types.FailMalformedInput {
			writeJSON(w, http.StatusBadRequest, map[string]any{"error": fail.Message})
			return
		}
		resp.Error = fail
		writeJSON(w, http.StatusOK, resp)
		return
	}

	record, err := s.enricher.Enrich(result, nil)
	if err != nil {
		s.logger.Error("enrich failed", "url", req.URL, "error", err)
		writeJSON(w, http.StatusInternalServerError, map[string]any{"error": "internal server error"})
		return
	}

	resp.Success = true
	resp.Engine = result.Engine
	resp.RawData = result
	resp.ProcessedData = record
	writeJSON(w, http.StatusOK, resp)
}

// handleCrawlWithNetwork runs the crawl and the network scan concurrently and
// fuses both into the enriched record.
func (s *Server) handleCrawlWithNetwork(w http.ResponseWriter, r *http.Request) {
	req, ok := s.decodeCrawlRequest(w, r)
	if !ok {
		return
	}
	ctx := r.Context()

	var (
		wg      sync.WaitGroup
		summary *types.NetworkSummary
	)
	wg.Add(1)
	go func() {
		defer wg.Done()
		summary = s.scanner.Scan(ctx, req.URL)
	}()

	result, fail := s.runCrawl(ctx, req.Engine, *req)
	wg.Wait()

	resp := NetworkCrawlResponse{CrawlResponse: CrawlResponse{URL: req.URL}}
	resp.NetworkScan = summary

	if fail != nil {
		if fail.Kind == types.FailMalformedInput {
			writeJSON(w, http.StatusBadRequest, map[string]any{"error": fail.Message})
			return
		}
		resp.Error = fail
		writeJSON(w, http.StatusOK, resp)
		return
	}

	record, err := s.enricher.Enrich(result, summary)
	if err != nil {
		s.logger.Error("enrich failed", "url", req.URL, "error", err)
		writeJSON(w, http.StatusInternalServerError, map[string]any{"error": "internal server error"})
		return
	}

	resp.Success = true
	resp.Engine = result.Engine
	resp.RawData = result
	resp.ProcessedData = record
	resp.ScannerContexts = map[string]*types.ScannerContext{
		types.ConsumerSQLInjection: s.enricher.ContextFor(record, types.ConsumerSQLInjection),
		types.ConsumerXSS:          s.enricher.ContextFor(record, types.ConsumerXSS),
		types.ConsumerNetwork:      s.enricher.ContextFor(record, types.ConsumerNetwork),
	}
	writeJSON(w, http.StatusOK, resp)
}

// handleCrawlLogin drives a browser login flow; only engines that can submit
// forms serve it.
func (s *Server) handleCrawlLogin(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		methodNotAllowed(w, http.MethodPost)
		return
	}
	var req LoginCrawlRequest
	if !decodeJSON(w, r, &req) {
		return
	}
	if missing := missingLoginFields(req); len(missing) > 0 {
		writeJSON(w, http.StatusBadRequest, map[string]any{
			"error": "required fields: " + strings.Join(missing, ", "),
		})
		return
	}

	resp := CrawlResponse{URL: req.URL}

	eng, fail := s.selector.Select(types.EngineBrowser)
	if fail == nil {
		login, ok := eng.(engine.LoginCrawler)
		if !ok {
			fail = types.NewFailure(types.FailEngineUnavailable, "engine %q cannot perform logins", eng.Name())
		} else {
			result, crawlErr := login.CrawlWithLogin(r.Context(), engine.LoginRequest{
				URL:              req.URL,
				UsernameSelector: req.UsernameSelector,
				PasswordSelector: req.PasswordSelector,
				SubmitSelector:   req.SubmitSelector,
				Username:         req.Username,
				Password:         req.Password,
			})
			if crawlErr != nil {
				fail = types.AsFailure(crawlErr)
			} else {
				record, err := s.enricher.Enrich(result, nil)
				if err != nil {
					s.logger.Error("enrich failed", "url", req.URL, "error", err)
					writeJSON(w, http.StatusInternalServerError, map[string]any{"error": "internal server error"})
					return
				}
				resp.Success = true
				resp.Engine = result.Engine
				resp.Authenticated = true
				resp.RawData = result
				resp.ProcessedData = record
				writeJSON(w, http.StatusOK, resp)
				return
			}
		}
	}

	if fail.Kind == types.FailMalformedInput {
		writeJSON(w, http.StatusBadRequest, map[string]any{"error": fail.Message})
		return
	}
	resp.Error = fail
	writeJSON(w, http.StatusOK, resp)
}

func (s *Server) handleScanNetwork(w http.ResponseWriter, r *http.Request) {
	req, ok := s.decodeScanRequest(w, r)
	if !ok {
		return
	}
	summary := s.scanner.Scan(r.Context(), req.URL)
	writeJSON(w, http.StatusOK, ScanResponse{
		Success:     true,
		URL:         req.URL,
		NetworkData: summary,
	})
}

// probeHandler serves a single named probe against the target's hostname.
func (s *Server) probeHandler(kind types.ProbeKind) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		req, ok := s.decodeScanRequest(w, r)
		if !ok {
			return
		}
		hostname := netscan.ExtractHostname(req.URL)
		if hostname == "" {
			writeJSON(w, http.StatusBadRequest, map[string]any{"error": "url has no hostname"})
			return
		}
		result := s.prober.Run(r.Context(), kind, hostname)
		writeJSON(w, http.StatusOK, ProbeResponse{
			Success: result.Success,
			URL:     req.URL,
			Result:  result,
		})
	}
}

func (s *Server) handleExtractForms(w http.ResponseWriter, r *http.Request) {
	req, ok := s.decodeScanRequest(w, r)
	if !ok {
		return
	}
	resp := FormsResponse{URL: req.URL, Forms: []types.Form{}}

	result, fail := s.runCrawl(r.Context(), types.EngineStatic, CrawlRequest{URL: req.URL})
	if fail != nil {
		if fail.Kind == types.FailMalformedInput {
			writeJSON(w, http.StatusBadRequest, map[string]any{"error": fail.Message})
			return
		}
		resp.Error = fail
		writeJSON(w, http.StatusOK, resp)
		return
	}

	resp.Success = true
	resp.Forms = result.Forms
	resp.FormCount = len(result.Forms)
	writeJSON(w, http.StatusOK, resp)
}

func (s *Server) handleExtractSensitive(w http.ResponseWriter, r *http.Request) {
	req, ok := s.decodeScanRequest(w, r)
	if !ok {
		return
	}
	resp := SensitiveFieldsResponse{URL: req.URL, SensitiveFields: []types.Field{}}

	result, fail := s.runCrawl(r.Context(), types.EngineStatic, CrawlRequest{URL: req.URL})
	if fail != nil {
		if fail.Kind == types.FailMalformedInput {
			writeJSON(w, http.StatusBadRequest, map[string]any{"error": fail.Message})
			return
		}
		resp.Error = fail
		writeJSON(w, http.StatusOK, resp)
		return
	}

	record, err := s.enricher.Enrich(result, nil)
	if err != nil {
		s.logger.Error("enrich failed", "url", req.URL, "error", err)
		writeJSON(w, http.StatusInternalServerError, map[string]any{"error": "internal server error"})
		return
	}

	resp.Success = true
	resp.SensitiveFields = record.SensitiveFields
	resp.SensitiveCount = len(record.SensitiveFields)
	writeJSON(w, http.StatusOK, resp)
}

// runCrawl resolves the engine and performs the crawl, folding every error
// into the failure taxonomy.
func (s *Server) runCrawl(ctx context.Context, tag string, req CrawlRequest) (*types.CrawlResult, *types.Failure) {
	eng, fail := s.selector.Select(tag)
	if fail != nil {
		return nil, fail
	}
	s.logger.Info("crawl started", "url", req.URL, "engine", eng.Name())
	result, err := eng.Crawl(ctx, engine.Request{URL: req.URL, MaxDepth: req.Depth})
	if err != nil {
		f := types.AsFailure(err)
		s.logger.Warn("crawl failed", "url", req.URL, "engine", eng.Name(), "kind", f.Kind)
		return nil, f
	}
	s.logger.Info("crawl completed", "url", req.URL, "engine", eng.Name(), "status", result.StatusCode)
	return result, nil
}

func (s *Server) decodeCrawlRequest(w http.ResponseWriter, r *http.Request) (*CrawlRequest, bool) {
	if r.Method != http.MethodPost {
		methodNotAllowed(w, http.MethodPost)
		return nil, false
	}
	var req CrawlRequest
	if !decodeJSON(w, r, &req) {
		return nil, false
	}
	if strings.TrimSpace(req.URL) == "" {
		writeJSON(w, http.StatusBadRequest, map[string]any{"error": "url required"})
		return nil, false
	}
	return &req, true
}

func (s *Server) decodeScanRequest(w http.ResponseWriter, r *http.Request) (*ScanRequest, bool) {
	if r.Method != http.MethodPost {
		methodNotAllowed(w, http.MethodPost)
		return nil, false
	}
	var req ScanRequest
	if !decodeJSON(w, r, &req) {
		return nil, false
	}
	if strings.TrimSpace(req.URL) == "" {
		writeJSON(w, http.StatusBadRequest, map[string]any{"error": "url required"})
		return nil, false
	}
	return &req, true
}

func missingLoginFields(req LoginCrawlRequest) []string {
	var missing []string
	require := func(name, value string) {
		if strings.TrimSpace(value) == "" {
			missing = append(missing, name)
		}
	}
	require("url", req.URL)
	require("username_selector", req.UsernameSelector)
	require("password_selector", req.PasswordSelector)
	require("submit_selector", req.SubmitSelector)
	require("username", req.Username)
	require("password", req.Password)
	return missing
}

func decodeJSON(w http.ResponseWriter, r *http.Request, dst any) bool {
	if err := json.NewDecoder(r.Body).Decode(dst); err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]any{"error": "invalid json payload: " + err.Error()})
		return false
	}
	return true
}

func methodNotAllowed(w http.ResponseWriter, allowed ...string) {
	w.Header().Set("Allow", strings.Join(allowed, ", "))
	http.Error(w, "method not allowed", http.StatusMethodNotAllowed)
}

func writeJSON(w http.ResponseWriter, status int, payload any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(payload)
}
