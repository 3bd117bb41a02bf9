package engine

import (
	"context"
	"log/slog"
	"net/url"
	"sync"

	"webrecon/internal/config"
	"webrecon/internal/fetcher"
	"webrecon/internal/parser"
	"webrecon/internal/robots"
	"webrecon/pkg/types"
)

// DeepEngine follows links breadth-first up to a depth limit, staying on the
// seed's host. The result carries the seed page's structure plus aggregate
// counts over every page visited.
type DeepEngine struct {
	fetcher *fetcher.HTTPFetcher
	gate    *robots.Gate
	limiter *HostLimiter
	cfg     config.DeepConfig
	logger  *slog.Logger
}

// NewDeepEngine constructs the depth-limited engine. The robots gate may be
// nil when robots.txt handling is disabled.
func NewDeepEngine(f *fetcher.HTTPFetcher, gate *robots.Gate, limiter *HostLimiter, cfg config.DeepConfig, logger *slog.Logger) *DeepEngine {
	if logger == nil {
		logger = slog.Default()
	}
	return &DeepEngine{fetcher: f, gate: gate, limiter: limiter, cfg: cfg, logger: logger}
}

func (e *DeepEngine) Name() string { return types.EngineDeep }

// Available always reports true; deep crawls ride the plain HTTP fetcher.
func (e *DeepEngine) Available() bool { return true }

// crawledPage pairs a fetched page with its parsed document. doc is nil when
// the body did not parse.
type crawledPage struct {
	url  *url.URL
	page *fetcher.Page
	doc  *parser.Document
}

// Crawl walks the site level by level. Each level beyond the seed fetches at
// most FanOut new same-host pages; a URL is fetched once per call no matter
// how many pages link to it.
func (e *DeepEngine) Crawl(ctx context.Context, req Request) (*types.CrawlResult, error) {
	seed, fail := parseTarget(req.URL)
	if fail != nil {
		return nil, fail
	}

	depth := req.MaxDepth
	if depth <= 0 {
		depth = e.cfg.MaxDepth
	}
	if depth <= 0 {
		depth = 1
	}
	fanOut := e.cfg.FanOut
	if fanOut <= 0 {
		fanOut = 5
	}

	first, err := e.fetchPage(ctx, seed)
	if err != nil {
		return nil, classifyFetchError(err)
	}
	if first.page.StatusCode >= 400 {
		return nil, types.HTTPFailure(first.page.StatusCode)
	}

	result := types.NewCrawlResult(types.EngineDeep, seed.String())
	result.StatusCode = first.page.StatusCode
	result.PageSizeBytes = len(first.page.Body)
	if first.page.FinalURL != nil {
		result.ResolvedURL = first.page.FinalURL.String()
	}
	result.Depth = depth

	visited := map[string]struct{}{visitKey(seed): {}}
	var frontier []*url.URL

	if first.doc != nil {
		result.Title = first.doc.Title()
		result.Links = first.doc.Links()
		result.Forms = first.doc.Forms()
		result.Inputs = first.doc.Inputs()
		result.MetaTags = first.doc.MetaTags()
		frontier = nextFrontier([]*crawledPage{first}, seed, visited, fanOut)
	}
	result.Pages = []types.PageStats{pageStats(first)}
	result.TotalLinks = result.Links.Total()
	result.TotalForms = len(result.Forms)
	result.TotalInputs = len(result.Inputs)

	if depth < 2 || len(frontier) == 0 {
		return result, nil
	}

	pool, err := newWorkerPool(ctx, e.cfg.Workers, e.cfg.QueueSize)
	if err != nil {
		return nil, types.NewFailure(types.FailOther, "start crawl workers: %v", err)
	}
	defer pool.close()

	for level := 2; level <= depth && len(frontier) > 0; level++ {
		pages := e.fetchLevel(ctx, pool, frontier)
		for _, p := range pages {
			stats := pageStats(p)
			result.Pages = append(result.Pages, stats)
			result.TotalLinks += stats.Links
			result.TotalForms += stats.Forms
			result.TotalInputs += stats.Inputs
		}
		if level == depth {
			break
		}
		frontier = nextFrontier(pages, seed, visited, fanOut)
	}

	return result, nil
}

// fetchLevel runs every frontier fetch through the pool and returns the pages
// that came back successfully.
func (e *DeepEngine) fetchLevel(ctx context.Context, pool *workerPool, frontier []*url.URL) []*crawledPage {
	var (
		mu    sync.Mutex
		wg    sync.WaitGroup
		pages []*crawledPage
	)
	for _, target := range frontier {
		target := target
		wg.Add(1)
		submitErr := pool.submit(ctx, func(taskCtx context.Context) {
			defer wg.Done()
			p, err := e.fetchPage(taskCtx, target)
			if err != nil {
				e.logger.Debug("deep fetch skipped", "url", target.String(), "error", err)
				return
			}
			if p.page.StatusCode >= 400 {
				e.logger.Debug("deep fetch skipped", "url", target.String(), "status", p.page.StatusCode)
				return
			}
			mu.Lock()
			pages = append(pages, p)
			mu.Unlock()
		})
		if submitErr != nil {
			wg.Done()
		}
	}
	wg.Wait()
	return pages
}

func (e *DeepEngine) fetchPage(ctx context.Context, target *url.URL) (*crawledPage, error) {
	if e.gate != nil && !e.gate.Allow(ctx, target) {
		return nil, types.NewFailure(types.FailOther, "blocked by robots.txt: %s", target)
	}
	if err := e.limiter.Wait(ctx, target.Hostname()); err != nil {
		return nil, err
	}
	page, err := e.fetcher.Fetch(ctx, target)
	if err != nil {
		return nil, err
	}
	doc, parseErr := parser.Parse(page.Body, target)
	if parseErr != nil {
		e.logger.Debug("deep parse failed", "url", target.String(), "error", parseErr)
		doc = nil
	}
	return &crawledPage{url: target, page: page, doc: doc}, nil
}

// pageStats summarises one visited page for the result's page list.
func pageStats(p *crawledPage) types.PageStats {
	stats := types.PageStats{URL: p.url.String()}
	if p.doc != nil {
		stats.Title = p.doc.Title()
		stats.Links = p.doc.Links().Total()
		stats.Forms = len(p.doc.Forms())
		stats.Inputs = len(p.doc.Inputs())
	}
	return stats
}

// nextFrontier picks the next level's URLs from the pages just crawled:
// same-host, not yet visited, at most max in total across the whole level.
func nextFrontier(pages []*crawledPage, seed *url.URL, visited map[string]struct{}, max int) []*url.URL {
	frontier := make([]*url.URL, 0, max)
	for _, p := range pages {
		if p.doc == nil {
			continue
		}
		for _, link := range p.doc.CrawlableLinks() {
			if len(frontier) >= max {
				return frontier
			}
			if !sameHost(link, seed) {
				continue
			}
			key := visitKey(link)
			if _, seen := visited[key]; seen {
				continue
			}
			visited[key] = struct{}{}
			frontier = append(frontier, link)
		}
	}
	return frontier
}
