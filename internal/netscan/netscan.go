// Package netscan fans the network probes out against one hostname and
// reduces their outcomes into a single summary for downstream enrichment.
package netscan

import (
	"context"
	"log/slog"
	"net/url"
	"regexp"
	"sort"
	"strconv"
	"strings"
	"sync"

	"webrecon/pkg/types"
)

// serviceNames maps the scanned ports onto their conventional services.
var serviceNames = map[int]string{
	80:   "HTTP",
	443:  "HTTPS",
	22:   "SSH",
	21:   "FTP",
	25:   "SMTP",
	53:   "DNS",
	3306: "MySQL",
	5432: "PostgreSQL",
}

var openPortRe = regexp.MustCompile(`(\d+)/`)

// Prober runs one named probe against a host.
type Prober interface {
	Run(ctx context.Context, kind types.ProbeKind, host string) *types.ProbeResult
}

// Aggregator coordinates all probes for a target and builds the summary.
type Aggregator struct {
	prober Prober
	logger *slog.Logger
}

// NewAggregator constructs an aggregator over the given prober.
func NewAggregator(prober Prober, logger *slog.Logger) *Aggregator {
	if logger == nil {
		logger = slog.Default()
	}
	return &Aggregator{prober: prober, logger: logger}
}

// Scan probes the target's hostname. All four probes run concurrently and a
// failed probe leaves its zero contribution in the summary; Scan itself never
// fails.
func (a *Aggregator) Scan(ctx context.Context, target string) *types.NetworkSummary {
	hostname := ExtractHostname(target)
	summary := types.NewNetworkSummary(hostname)
	if hostname == "" {
		a.logger.Warn("network scan skipped, no hostname", "target", target)
		return summary
	}

	a.logger.Info("network scan started", "hostname", hostname)

	kinds := []types.ProbeKind{
		types.ProbeReachability,
		types.ProbeResolve,
		types.ProbeTrace,
		types.ProbePortScan,
	}

	var (
		mu sync.Mutex
		wg sync.WaitGroup
	)
	for _, kind := range kinds {
		kind := kind
		wg.Add(1)
		go func() {
			defer wg.Done()
			result := a.prober.Run(ctx, kind, hostname)
			mu.Lock()
			summary.Probes[kind] = result
			mu.Unlock()
		}()
	}
	wg.Wait()

	a.reduce(summary)
	a.logger.Info("network scan completed",
		"hostname", hostname,
		"reachable", summary.Reachable,
		"open_ports", len(summary.OpenPorts),
	)
	return summary
}

// reduce folds the probe results into the summary's top-level fields.
func (a *Aggregator) reduce(s *types.NetworkSummary) {
	if ping := s.Probes[types.ProbeReachability]; ping != nil && ping.Ping != nil {
		s.Reachable = ping.Ping.Reachable
	}
	if res := s.Probes[types.ProbeResolve]; res != nil && res.Resolve != nil {
		s.IPAddresses = append(s.IPAddresses, res.Resolve.IPv4...)
		s.IPAddresses = append(s.IPAddresses, res.Resolve.IPv6...)
	}
	if trace := s.Probes[types.ProbeTrace]; trace != nil && trace.Trace != nil {
		s.HopCount = trace.Trace.TotalHops
	}
	if scan := s.Probes[types.ProbePortScan]; scan != nil && scan.Success && scan.Ports != nil {
		s.OpenPorts = parseOpenPorts(scan.Ports.OpenLines)
		for _, port := range s.OpenPorts {
			name, ok := serviceNames[port]
			if !ok {
				name = "Unknown"
			}
			s.Services[port] = name
		}
	}

	s.NetworkAccessible = s.Reachable && len(s.IPAddresses) > 0
}

// parseOpenPorts pulls port numbers out of scanner "open" lines, sorted and
// deduplicated.
func parseOpenPorts(lines []string) []int {
	seen := map[int]struct{}{}
	ports := []int{}
	for _, line := range lines {
		m := openPortRe.FindStringSubmatch(line)
		if m == nil {
			continue
		}
		port, err := strconv.Atoi(m[1])
		if err != nil {
			continue
		}
		if _, dup := seen[port]; dup {
			continue
		}
		seen[port] = struct{}{}
		ports = append(ports, port)
	}
	sort.Ints(ports)
	return ports
}

// ExtractHostname reduces a URL or host:port string to the bare hostname.
func ExtractHostname(target string) string {
	target = strings.TrimSpace(target)
	if target == "" {
		return ""
	}
	if strings.HasPrefix(target, "http://") || strings.HasPrefix(target, "https://") {
		if u, err := url.Parse(target); err == nil {
			return u.Hostname()
		}
	}
	host := target
	if i := strings.IndexByte(host, '/'); i >= 0 {
		host = host[:i]
	}
	if i := strings.IndexByte(host, ':'); i >= 0 {
		host = host[:i]
	}
	return host
}
