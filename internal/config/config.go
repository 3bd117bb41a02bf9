package config

import (
	"errors"
	"fmt"
	"io"
	"os"
	"sort"
	"strings"
	"time"

	"gopkg.in/yaml.v3"
)

// Config captures the full configuration for the recon service.
type Config struct {
	Server    ServerConfig    `yaml:"server"`
	Crawl     CrawlConfig     `yaml:"crawl"`
	Rendering RenderingConfig `yaml:"rendering"`
	Deep      DeepConfig      `yaml:"deep"`
	Probes    ProbesConfig    `yaml:"probes"`
	Robots    RobotsConfig    `yaml:"robots"`
	Engines   EnginesConfig   `yaml:"engines"`
	Logging   LoggingConfig   `yaml:"logging"`
}

// ServerConfig controls the HTTP API listener.
type ServerConfig struct {
	Addr            string   `yaml:"addr"`
	ReadTimeout     Duration `yaml:"read_timeout"`
	WriteTimeout    Duration `yaml:"write_timeout"`
	IdleTimeout     Duration `yaml:"idle_timeout"`
	ShutdownTimeout Duration `yaml:"shutdown_timeout"`
}

// CrawlConfig controls single-page fetching shared by all engines.
type CrawlConfig struct {
	UserAgent      string            `yaml:"user_agent"`
	Headers        map[string]string `yaml:"headers"`
	RequestTimeout Duration          `yaml:"request_timeout"`
	MaxBodyBytes   int64             `yaml:"max_body_bytes"`
	ProxyURL       string            `yaml:"proxy_url"`
}

// RenderingConfig controls the browser engine.
type RenderingConfig struct {
	Timeout            Duration `yaml:"timeout"`
	SettleDelay        Duration `yaml:"settle_delay"`
	LoginSettleDelay   Duration `yaml:"login_settle_delay"`
	ConcurrentSessions int      `yaml:"concurrent_sessions"`
	DisableHeadless    bool     `yaml:"disable_headless"`
}

// DeepConfig controls the depth-limited structured engine.
type DeepConfig struct {
	MaxDepth       int      `yaml:"max_depth"`
	FanOut         int      `yaml:"fan_out"`
	Workers        int      `yaml:"workers"`
	QueueSize      int      `yaml:"queue_size"`
	PerDomainDelay Duration `yaml:"per_domain_delay"`
	RateLimit      RateLimitConfig `yaml:"rate_limit"`
}

// RateLimitConfig applies a token bucket per host.
type RateLimitConfig struct {
	Requests int      `yaml:"requests"`
	Window   Duration `yaml:"window"`
}

// Enabled reports whether per-host rate limiting is active.
func (r RateLimitConfig) Enabled() bool {
	return r.Requests > 0 && !r.Window.IsZero()
}

// ProbesConfig carries per-probe timeouts and the port scanner's target list.
type ProbesConfig struct {
	PingTimeout     Duration `yaml:"ping_timeout"`
	ResolveTimeout  Duration `yaml:"resolve_timeout"`
	TraceTimeout    Duration `yaml:"trace_timeout"`
	PortScanTimeout Duration `yaml:"port_scan_timeout"`
	ScanPorts       string   `yaml:"scan_ports"`
}

// RobotsConfig configures the optional robots.txt gate for deep crawls.
type RobotsConfig struct {
	Respect   bool     `yaml:"respect"`
	UserAgent string   `yaml:"user_agent"`
	CacheTTL  Duration `yaml:"cache_ttl"`
	Overrides []string `yaml:"overrides"`
}

// EnginesConfig tunes engine selection.
type EnginesConfig struct {
	// AutoOrder is the preference list tried when the request asks for "auto".
	AutoOrder []string `yaml:"auto_order"`
}

// LoggingConfig selects log verbosity and format.
type LoggingConfig struct {
	Level      string `yaml:"level"`
	Structured bool   `yaml:"structured"`
}

// Default returns a Config populated with sensible defaults.
func Default() Config {
	return Config{
		Server: ServerConfig{
			Addr:            ":8080",
			ReadTimeout:     DurationFrom(30 * time.Second),
			WriteTimeout:    DurationFrom(120 * time.Second),
			IdleTimeout:     DurationFrom(90 * time.Second),
			ShutdownTimeout: DurationFrom(10 * time.Second),
		},
		Crawl: CrawlConfig{
			UserAgent:      "webrecon/1.0",
			Headers:        map[string]string{},
			RequestTimeout: DurationFrom(10 * time.Second),
			MaxBodyBytes:   6 * 1024 * 1024,
		},
		Rendering: RenderingConfig{
			Timeout:            DurationFrom(60 * time.Second),
			SettleDelay:        DurationFrom(2 * time.Second),
			LoginSettleDelay:   DurationFrom(3 * time.Second),
			ConcurrentSessions: 2,
		},
		Deep: DeepConfig{
			MaxDepth:       1,
			FanOut:         5,
			Workers:        3,
			QueueSize:      64,
			PerDomainDelay: DurationFrom(250 * time.Millisecond),
		},
		Probes: ProbesConfig{
			PingTimeout:     DurationFrom(10 * time.Second),
			ResolveTimeout:  DurationFrom(5 * time.Second),
			TraceTimeout:    DurationFrom(15 * time.Second),
			PortScanTimeout: DurationFrom(30 * time.Second),
			ScanPorts:       "80,443,22,21,25,53,3306,5432",
		},
		Robots: RobotsConfig{
			Respect:   false,
			UserAgent: "webrecon/1.0",
			CacheTTL:  DurationFrom(6 * time.Hour),
			Overrides: []string{},
		},
		Engines: EnginesConfig{
			AutoOrder: []string{"browser", "static"},
		},
		Logging: LoggingConfig{
			Level:      "info",
			Structured: true,
		},
	}
}

// Load reads, merges, and validates configuration from a YAML file.
func Load(path string) (*Config, error) {
	fh, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("open config: %w", err)
	}
	defer fh.Close()
	return LoadFromReader(fh)
}

// LoadFromReader decodes configuration from an arbitrary reader.
func LoadFromReader(r io.Reader) (*Config, error) {
	cfg := Default()
	dec := yaml.NewDecoder(r)
	dec.KnownFields(true)
	if err := dec.Decode(&cfg); err != nil {
		if errors.Is(err, io.EOF) {
			// Empty file keeps the defaults.
			cfg.normalise()
			return &cfg, cfg.Validate()
		}
		return nil, fmt.Errorf("decode config: %w", err)
	}
	cfg.normalise()
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

// Validate enforces required invariants.
func (c Config) Validate() error {
	if strings.TrimSpace(c.Server.Addr) == "" {
		return errors.New("server.addr must be set")
	}
	if strings.TrimSpace(c.Crawl.UserAgent) == "" {
		return errors.New("crawl.user_agent must be set")
	}
	if c.Crawl.MaxBodyBytes <= 0 {
		return fmt.Errorf("crawl.max_body_bytes must be > 0 (got %d)", c.Crawl.MaxBodyBytes)
	}
	if c.Deep.MaxDepth <= 0 {
		return fmt.Errorf("deep.max_depth must be > 0 (got %d)", c.Deep.MaxDepth)
	}
	if c.Deep.FanOut <= 0 {
		return fmt.Errorf("deep.fan_out must be > 0 (got %d)", c.Deep.FanOut)
	}
	if c.Deep.Workers <= 0 {
		return fmt.Errorf("deep.workers must be > 0 (got %d)", c.Deep.Workers)
	}
	if c.Deep.QueueSize <= 0 {
		return fmt.Errorf("deep.queue_size must be > 0 (got %d)", c.Deep.QueueSize)
	}
	if rl := c.Deep.RateLimit; rl.Requests < 0 {
		return fmt.Errorf("deep.rate_limit.requests must be >= 0 (got %d)", rl.Requests)
	}
	if strings.TrimSpace(c.Probes.ScanPorts) == "" {
		return errors.New("probes.scan_ports must be set")
	}
	if c.Robots.Respect && strings.TrimSpace(c.Robots.UserAgent) == "" {
		return errors.New("robots.user_agent must be set when robots.respect is true")
	}
	for _, tag := range c.Engines.AutoOrder {
		switch tag {
		case "static", "browser", "deep":
		default:
			return fmt.Errorf("engines.auto_order contains unknown tag %q", tag)
		}
	}
	return nil
}

func (c *Config) normalise() {
	c.Server.Addr = strings.TrimSpace(c.Server.Addr)
	c.Crawl.UserAgent = strings.TrimSpace(c.Crawl.UserAgent)
	c.Crawl.ProxyURL = strings.TrimSpace(c.Crawl.ProxyURL)
	c.Robots.UserAgent = strings.TrimSpace(c.Robots.UserAgent)
	c.Probes.ScanPorts = strings.TrimSpace(c.Probes.ScanPorts)
	if c.Crawl.Headers == nil {
		c.Crawl.Headers = map[string]string{}
	}
	if len(c.Robots.Overrides) > 0 {
		c.Robots.Overrides = dedupeLower(c.Robots.Overrides)
	}
	if len(c.Engines.AutoOrder) == 0 {
		c.Engines.AutoOrder = []string{"browser", "static"}
	}
	for i, tag := range c.Engines.AutoOrder {
		c.Engines.AutoOrder[i] = strings.ToLower(strings.TrimSpace(tag))
	}
}

func dedupeLower(values []string) []string {
	unique := make(map[string]struct{}, len(values))
	cleaned := make([]string, 0, len(values))
	for _, v := range values {
		v = strings.ToLower(strings.TrimSpace(v))
		if v == "" {
			continue
		}
		if _, ok := unique[v]; ok {
			continue
		}
		unique[v] = struct{}{}
		cleaned = append(cleaned, v)
	}
	sort.Strings(cleaned)
	return cleaned
}
