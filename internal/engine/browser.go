package engine

import (
	"context"
	"log/slog"
	"net/url"

	"webrecon/internal/fetcher"
	"webrecon/internal/parser"
	"webrecon/pkg/types"
)

// BrowserEngine drives a headless browser, so extraction sees the DOM after
// scripts have run. It has no HTTP status visibility; StatusCode stays zero.
type BrowserEngine struct {
	renderer *fetcher.ChromedpRenderer
	logger   *slog.Logger
}

// NewBrowserEngine constructs the scripted-rendering engine.
func NewBrowserEngine(r *fetcher.ChromedpRenderer, logger *slog.Logger) *BrowserEngine {
	if logger == nil {
		logger = slog.Default()
	}
	return &BrowserEngine{renderer: r, logger: logger}
}

func (e *BrowserEngine) Name() string { return types.EngineBrowser }

// Available reports whether a driveable browser binary exists on this host.
func (e *BrowserEngine) Available() bool { return e.renderer.Available() }

// Crawl renders the page and extracts structure from the settled DOM.
func (e *BrowserEngine) Crawl(ctx context.Context, req Request) (*types.CrawlResult, error) {
	target, fail := parseTarget(req.URL)
	if fail != nil {
		return nil, fail
	}
	if !e.Available() {
		return nil, types.NewFailure(types.FailEngineUnavailable, "no browser binary found")
	}

	page, err := e.renderer.Render(ctx, target)
	if err != nil {
		e.logger.Warn("browser render failed", "url", target.String(), "error", err)
		return nil, classifyFetchError(err)
	}

	return e.buildResult(target, page, false), nil
}

// CrawlWithLogin fills the login form, submits it, waits for the settle
// delay, and extracts from the page the browser lands on.
func (e *BrowserEngine) CrawlWithLogin(ctx context.Context, req LoginRequest) (*types.CrawlResult, error) {
	target, fail := parseTarget(req.URL)
	if fail != nil {
		return nil, fail
	}
	if !e.Available() {
		return nil, types.NewFailure(types.FailEngineUnavailable, "no browser binary found")
	}

	page, err := e.renderer.RenderWithLogin(ctx, target, fetcher.LoginParams{
		UsernameSelector: req.UsernameSelector,
		PasswordSelector: req.PasswordSelector,
		SubmitSelector:   req.SubmitSelector,
		Username:         req.Username,
		Password:         req.Password,
	})
	if err != nil {
		e.logger.Warn("login render failed", "url", target.String(), "error", err)
		return nil, classifyFetchError(err)
	}

	return e.buildResult(target, page, true), nil
}

func (e *BrowserEngine) buildResult(target *url.URL, page *fetcher.Page, authenticated bool) *types.CrawlResult {
	result := types.NewCrawlResult(types.EngineBrowser, target.String())
	result.JavaScriptRendered = true
	result.Authenticated = authenticated
	result.PageSizeBytes = len(page.Body)
	if page.FinalURL != nil {
		result.ResolvedURL = page.FinalURL.String()
	}
	for name, value := range page.Cookies {
		result.Cookies[name] = value
	}

	doc, err := parser.Parse(page.Body, target)
	if err != nil {
		e.logger.Debug("browser parse failed", "url", target.String(), "error", err)
		return result
	}
	result.Title = doc.Title()
	result.Links = doc.Links()
	result.Forms = doc.Forms()
	result.Inputs = doc.Inputs()
	result.MetaTags = doc.MetaTags()
	return result
}
