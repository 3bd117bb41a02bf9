package fetcher

import (
	"context"
	"fmt"
	"log/slog"
	"net/url"
	"os/exec"
	"strings"
	"time"

	"github.com/chromedp/cdproto/storage"
	"github.com/chromedp/chromedp"
)

// RenderOptions configures the headless browser pipeline.
type RenderOptions struct {
	Timeout            time.Duration
	SettleDelay        time.Duration
	LoginSettleDelay   time.Duration
	UserAgent          string
	MaxBodyBytes       int64
	DisableHeadless    bool
	ConcurrentSessions int
}

// LoginParams describes a form-based login to perform before capture.
type LoginParams struct {
	UsernameSelector string
	PasswordSelector string
	SubmitSelector   string
	Username         string
	Password         string
}

// ChromedpRenderer executes headless Chrome sessions with bounded concurrency.
type ChromedpRenderer struct {
	opts      RenderOptions
	semaphore chan struct{}
	logger    *slog.Logger
}

// NewChromedpRenderer constructs a renderer.
func NewChromedpRenderer(opts RenderOptions, logger *slog.Logger) *ChromedpRenderer {
	if opts.Timeout <= 0 {
		opts.Timeout = 60 * time.Second
	}
	if opts.SettleDelay <= 0 {
		opts.SettleDelay = 2 * time.Second
	}
	if opts.LoginSettleDelay <= 0 {
		opts.LoginSettleDelay = 3 * time.Second
	}
	if opts.MaxBodyBytes <= 0 {
		opts.MaxBodyBytes = 5 * 1024 * 1024
	}
	if opts.ConcurrentSessions <= 0 {
		opts.ConcurrentSessions = 1
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &ChromedpRenderer{
		opts:      opts,
		semaphore: make(chan struct{}, opts.ConcurrentSessions),
		logger:    logger,
	}
}

// browserCandidates are the executables chromedp can drive.
var browserCandidates = []string{
	"google-chrome", "google-chrome-stable", "chromium", "chromium-browser", "headless-shell",
}

// Available reports whether a driveable browser binary is on PATH.
func (r *ChromedpRenderer) Available() bool {
	for _, name := range browserCandidates {
		if _, err := exec.LookPath(name); err == nil {
			return true
		}
	}
	return false
}

// Render navigates to the target URL, waits for the document plus a settle
// delay for async-rendered content, and captures the final DOM and cookies.
func (r *ChromedpRenderer) Render(parentCtx context.Context, target *url.URL) (*Page, error) {
	if target == nil {
		return nil, fmt.Errorf("render target URL is nil")
	}
	return r.run(parentCtx, target, nil)
}

// RenderWithLogin performs a form login before capture: fill the username and
// password fields, click submit, allow a settle delay, then read the final
// (possibly redirected) page.
func (r *ChromedpRenderer) RenderWithLogin(parentCtx context.Context, target *url.URL, login LoginParams) (*Page, error) {
	if target == nil {
		return nil, fmt.Errorf("render target URL is nil")
	}
	return r.run(parentCtx, target, &login)
}

func (r *ChromedpRenderer) run(parentCtx context.Context, target *url.URL, login *LoginParams) (*Page, error) {
	logger := r.logger.With("url", target.String(), "timeout", r.opts.Timeout.String())

	select {
	case r.semaphore <- struct{}{}:
		defer func() { <-r.semaphore }()
	case <-parentCtx.Done():
		return nil, parentCtx.Err()
	}

	ctx, cancel := context.WithTimeout(parentCtx, r.opts.Timeout)
	defer cancel()

	headless := !r.opts.DisableHeadless
	execOpts := []chromedp.ExecAllocatorOption{
		chromedp.Flag("headless", headless),
		chromedp.Flag("disable-gpu", true),
		chromedp.Flag("disable-dev-shm-usage", true),
		chromedp.Flag("no-sandbox", true),
	}
	if ua := strings.TrimSpace(selectUserAgent(r.opts.UserAgent)); ua != "" {
		execOpts = append(execOpts, chromedp.UserAgent(ua))
	}

	allocCtx, allocCancel := chromedp.NewExecAllocator(ctx, execOpts...)
	defer allocCancel()

	chromeCtx, chromeCancel := chromedp.NewContext(allocCtx)
	defer chromeCancel()

	var html string
	var finalURL string
	cookies := map[string]string{}

	actions := []chromedp.Action{
		chromedp.Navigate(target.String()),
		waitForDocumentReady(logger),
		chromedp.Sleep(r.opts.SettleDelay),
	}

	if login != nil {
		actions = append(actions,
			chromedp.WaitVisible(login.UsernameSelector, chromedp.ByQuery),
			chromedp.Clear(login.UsernameSelector, chromedp.ByQuery),
			chromedp.SendKeys(login.UsernameSelector, login.Username, chromedp.ByQuery),
			chromedp.Clear(login.PasswordSelector, chromedp.ByQuery),
			chromedp.SendKeys(login.PasswordSelector, login.Password, chromedp.ByQuery),
			chromedp.Click(login.SubmitSelector, chromedp.ByQuery),
			chromedp.Sleep(r.opts.LoginSettleDelay),
		)
	}

	actions = append(actions,
		chromedp.OuterHTML("html", &html, chromedp.ByQuery),
		chromedp.Location(&finalURL),
		chromedp.ActionFunc(func(ctx context.Context) error {
			cks, err := storage.GetCookies().Do(ctx)
			if err != nil {
				logger.Warn("cookie capture failed", "error", err)
				return nil
			}
			for _, ck := range cks {
				cookies[ck.Name] = ck.Value
			}
			return nil
		}),
	)

	start := time.Now()
	if err := chromedp.Run(chromeCtx, actions...); err != nil {
		logger.Error("chromedp run failed", "error", err)
		return nil, fmt.Errorf("chromedp run: %w", err)
	}

	if int64(len(html)) > r.opts.MaxBodyBytes {
		html = html[:r.opts.MaxBodyBytes]
	}

	parsedFinal := target
	if finalURL != "" {
		if u, err := url.Parse(finalURL); err == nil {
			parsedFinal = u
		}
	}

	logger.Debug("render complete",
		"latency_ms", time.Since(start).Milliseconds(),
		"final_url", parsedFinal.String(),
		"html_bytes", len(html),
	)

	return &Page{
		URL:         target,
		FinalURL:    parsedFinal,
		Body:        []byte(html),
		ContentType: "text/html; charset=utf-8",
		Rendered:    true,
		Cookies:     cookies,
		FetchedAt:   time.Now(),
	}, nil
}

func selectUserAgent(base string) string {
	if strings.TrimSpace(base) != "" {
		return base
	}
	return "Mozilla/5.0 (X11; Linux x86_64) AppleWebKit/537.36 (KHTML, like Gecko) Chrome/120 Safari/537.36"
}

func waitForDocumentReady(logger *slog.Logger) chromedp.Action {
	return chromedp.ActionFunc(func(ctx context.Context) error {
		ticker := time.NewTicker(100 * time.Millisecond)
		defer ticker.Stop()
		for {
			var readyState string
			if err := chromedp.Evaluate(`document.readyState`, &readyState).Do(ctx); err != nil {
				if logger != nil {
					logger.Warn("readyState evaluate failed", "error", err)
				}
				return err
			}
			if readyState == "complete" {
				return nil
			}
			select {
			case <-ticker.C:
			case <-ctx.Done():
				return ctx.Err()
			}
		}
	})
}
