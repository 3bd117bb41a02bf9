// Package app assembles the pipeline components from configuration. Both
// entrypoints build the same graph through it.
package app

import (
	"fmt"
	"log/slog"
	"os"
	"strings"

	"webrecon/internal/api"
	"webrecon/internal/config"
	"webrecon/internal/engine"
	"webrecon/internal/enrich"
	"webrecon/internal/fetcher"
	"webrecon/internal/netscan"
	"webrecon/internal/probe"
	"webrecon/internal/robots"
)

// App holds the wired pipeline.
type App struct {
	Config   *config.Config
	Logger   *slog.Logger
	Selector *engine.Selector
	Prober   *probe.Runner
	Scanner  *netscan.Aggregator
	Enricher *enrich.Processor
	Server   *api.Server
}

// New wires every component from the given configuration.
func New(cfg *config.Config, logger *slog.Logger) (*App, error) {
	if cfg == nil {
		return nil, fmt.Errorf("config is nil")
	}
	if logger == nil {
		logger = slog.Default()
	}

	httpFetcher, err := fetcher.NewHTTPFetcher(fetcher.Options{
		UserAgent:    cfg.Crawl.UserAgent,
		Headers:      cfg.Crawl.Headers,
		Timeout:      cfg.Crawl.RequestTimeout.Duration,
		MaxBodyBytes: cfg.Crawl.MaxBodyBytes,
		ProxyURL:     cfg.Crawl.ProxyURL,
	})
	if err != nil {
		return nil, fmt.Errorf("build http fetcher: %w", err)
	}

	renderer := fetcher.NewChromedpRenderer(fetcher.RenderOptions{
		Timeout:            cfg.Rendering.Timeout.Duration,
		SettleDelay:        cfg.Rendering.SettleDelay.Duration,
		LoginSettleDelay:   cfg.Rendering.LoginSettleDelay.Duration,
		UserAgent:          cfg.Crawl.UserAgent,
		MaxBodyBytes:       cfg.Crawl.MaxBodyBytes,
		DisableHeadless:    cfg.Rendering.DisableHeadless,
		ConcurrentSessions: cfg.Rendering.ConcurrentSessions,
	}, logger)

	gate := robots.NewGate(cfg.Robots, httpFetcher.Client())
	limiter := engine.NewHostLimiter(cfg.Deep.PerDomainDelay.Duration, cfg.Deep.RateLimit)

	selector := engine.NewSelector(cfg.Engines.AutoOrder,
		engine.NewStaticEngine(httpFetcher, logger),
		engine.NewBrowserEngine(renderer, logger),
		engine.NewDeepEngine(httpFetcher, gate, limiter, cfg.Deep, logger),
	)

	prober := probe.NewRunner(cfg.Probes, nil, nil, logger)
	scanner := netscan.NewAggregator(prober, logger)
	enricher := enrich.NewProcessor()
	server := api.NewServer(selector, prober, scanner, enricher, logger)

	return &App{
		Config:   cfg,
		Logger:   logger,
		Selector: selector,
		Prober:   prober,
		Scanner:  scanner,
		Enricher: enricher,
		Server:   server,
	}, nil
}

// BuildLogger constructs the process logger from the logging section.
func BuildLogger(cfg config.LoggingConfig) (*slog.Logger, error) {
	level := slog.LevelInfo
	switch strings.ToLower(cfg.Level) {
	case "debug":
		level = slog.LevelDebug
	case "info", "":
		level = slog.LevelInfo
	case "warn", "warning":
		level = slog.LevelWarn
	case "error":
		level = slog.LevelError
	default:
		return nil, fmt.Errorf("unsupported log level %q", cfg.Level)
	}

	opts := &slog.HandlerOptions{Level: level}
	var handler slog.Handler
	if cfg.Structured {
		handler = slog.NewJSONHandler(os.Stdout, opts)
	} else {
		handler = slog.NewTextHandler(os.Stdout, opts)
	}
	return slog.New(handler), nil
}
