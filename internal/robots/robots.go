// Package robots gates deep-crawl fetches on robots.txt when the operator
// opts in. Rules are cached per host and failures fall open so an unreachable
// robots.txt never blocks reconnaissance.
package robots

import (
	"context"
	"fmt"
	"net/http"
	"net/url"
	"strings"
	"sync"
	"time"

	"github.com/temoto/robotstxt"

	"webrecon/internal/config"
)

// Gate answers allow/deny for crawl targets.
type Gate struct {
	client    *http.Client
	userAgent string
	ttl       time.Duration
	respect   bool
	skipHosts map[string]struct{}

	mu    sync.RWMutex
	cache map[string]cached
}

type cached struct {
	at    time.Time
	rules *robotstxt.RobotsData
}

// NewGate builds a gate from configuration. When cfg.Respect is false every
// target is allowed.
func NewGate(cfg config.RobotsConfig, client *http.Client) *Gate {
	if client == nil {
		client = &http.Client{Timeout: 10 * time.Second}
	}
	ttl := cfg.CacheTTL.Duration
	if ttl <= 0 {
		ttl = 30 * time.Minute
	}
	skip := make(map[string]struct{}, len(cfg.Overrides))
	for _, host := range cfg.Overrides {
		host = strings.ToLower(strings.TrimSpace(host))
		if host != "" {
			skip[host] = struct{}{}
		}
	}
	return &Gate{
		client:    client,
		userAgent: cfg.UserAgent,
		ttl:       ttl,
		respect:   cfg.Respect,
		skipHosts: skip,
		cache:     make(map[string]cached),
	}
}

// Allow reports whether the target may be fetched.
func (g *Gate) Allow(ctx context.Context, target *url.URL) bool {
	if target == nil || !target.IsAbs() {
		return false
	}
	if !g.respect {
		return true
	}
	if _, ok := g.skipHosts[strings.ToLower(target.Hostname())]; ok {
		return true
	}

	rules, err := g.hostRules(ctx, target)
	if err != nil {
		return true
	}

	group := rules.FindGroup(g.userAgent)
	if group == nil {
		if group = rules.FindGroup("*"); group == nil {
			return true
		}
	}
	return group.Test(target.Path)
}

func (g *Gate) hostRules(ctx context.Context, target *url.URL) (*robotstxt.RobotsData, error) {
	key := strings.ToLower(target.Host)

	g.mu.RLock()
	entry, ok := g.cache[key]
	g.mu.RUnlock()
	if ok && time.Since(entry.at) < g.ttl {
		return entry.rules, nil
	}

	robotsURL := target.Scheme + "://" + target.Host + "/robots.txt"
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, robotsURL, nil)
	if err != nil {
		return nil, fmt.Errorf("build robots request: %w", err)
	}
	if g.userAgent != "" {
		req.Header.Set("User-Agent", g.userAgent)
	}

	resp, err := g.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("fetch robots.txt: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode >= 400 {
		return nil, fmt.Errorf("robots.txt status %d", resp.StatusCode)
	}

	rules, err := robotstxt.FromResponse(resp)
	if err != nil {
		return nil, fmt.Errorf("parse robots.txt: %w", err)
	}

	g.mu.Lock()
	g.cache[key] = cached{at: time.Now(), rules: rules}
	g.mu.Unlock()
	return rules, nil
}
