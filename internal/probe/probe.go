// Package probe wraps the external network-diagnostic tools. Every probe
// returns a ProbeResult rather than an error: a missing tool or an
// unreachable host is a finding, not a fault.
package probe

import (
	"context"
	"errors"
	"log/slog"
	"net"
	"regexp"
	"strings"
	"time"

	"webrecon/internal/config"
	"webrecon/pkg/types"
)

const (
	outputLimit     = 500
	scanOutputLimit = 1000
	maxHops         = 15
	maxPingSamples  = 4
)

var (
	pingTimeRe = regexp.MustCompile(`time=(\d+\.?\d*)\s*ms`)
	hopLineRe  = regexp.MustCompile(`^\s*\d+\s+`)
)

// Runner executes the individual network probes with per-probe timeouts.
type Runner struct {
	cmd      CommandRunner
	resolver Resolver
	cfg      config.ProbesConfig
	logger   *slog.Logger
}

// NewRunner builds a Runner. Passing nil for cmd or resolver selects the real
// executables and net.DefaultResolver.
func NewRunner(cfg config.ProbesConfig, cmd CommandRunner, resolver Resolver, logger *slog.Logger) *Runner {
	if cmd == nil {
		cmd = execRunner{}
	}
	if resolver == nil {
		resolver = net.DefaultResolver
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &Runner{cmd: cmd, resolver: resolver, cfg: cfg, logger: logger}
}

// Run dispatches to the probe named by kind.
func (r *Runner) Run(ctx context.Context, kind types.ProbeKind, host string) *types.ProbeResult {
	switch kind {
	case types.ProbeReachability:
		return r.Ping(ctx, host)
	case types.ProbeResolve:
		return r.ResolveHost(ctx, host)
	case types.ProbeTrace:
		return r.Trace(ctx, host)
	case types.ProbePortScan:
		return r.PortScan(ctx, host)
	default:
		return fail(&types.ProbeResult{Kind: kind}, types.FailMalformedInput, "unknown probe kind")
	}
}

// fail tags a probe result with its taxonomy kind and message.
func fail(res *types.ProbeResult, kind types.FailureKind, msg string) *types.ProbeResult {
	res.FailureKind = kind
	res.Error = msg
	return res
}

// Ping checks reachability with four ICMP echoes and collects per-packet
// round-trip times.
func (r *Runner) Ping(ctx context.Context, host string) *types.ProbeResult {
	res := &types.ProbeResult{Kind: types.ProbeReachability, Ping: &types.PingData{ResponseTimes: []string{}}}

	ctx, cancel := r.withTimeout(ctx, r.cfg.PingTimeout.Duration, 10*time.Second)
	defer cancel()

	if _, err := r.cmd.LookPath("ping"); err != nil {
		return fail(res, types.FailToolUnavailable, "ping command not found")
	}

	stdout, stderr, err := r.cmd.Run(ctx, "ping", "-c", "4", host)
	if err != nil {
		if timedOut(ctx, err) {
			return fail(res, types.FailTimeout, "ping timed out")
		}
		res.Output = truncate(stderr, outputLimit)
		return fail(res, types.FailConnection, "host unreachable")
	}

	times := pingTimeRe.FindAllStringSubmatch(stdout, -1)
	for i, m := range times {
		if i == maxPingSamples {
			break
		}
		res.Ping.ResponseTimes = append(res.Ping.ResponseTimes, m[1])
	}
	res.Success = true
	res.Ping.Reachable = true
	res.Output = truncate(stdout, outputLimit)
	return res
}

// ResolveHost gathers IPv4 and IPv6 addresses via the resolver, then shells
// out to dig for raw record output when the tool exists.
func (r *Runner) ResolveHost(ctx context.Context, host string) *types.ProbeResult {
	res := &types.ProbeResult{
		Kind:    types.ProbeResolve,
		Resolve: &types.ResolveData{IPv4: []string{}, IPv6: []string{}},
	}

	ctx, cancel := r.withTimeout(ctx, r.cfg.ResolveTimeout.Duration, 5*time.Second)
	defer cancel()

	addrs, err := r.resolver.LookupIPAddr(ctx, host)
	if err != nil {
		if timedOut(ctx, err) {
			return fail(res, types.FailTimeout, "resolution timed out")
		}
		return fail(res, types.FailConnection, "resolution failed: "+err.Error())
	}
	for _, addr := range addrs {
		if v4 := addr.IP.To4(); v4 != nil {
			res.Resolve.IPv4 = append(res.Resolve.IPv4, v4.String())
		} else {
			res.Resolve.IPv6 = append(res.Resolve.IPv6, addr.IP.String())
		}
	}

	if _, lookErr := r.cmd.LookPath("dig"); lookErr == nil {
		if stdout, _, digErr := r.cmd.Run(ctx, "dig", host, "+short"); digErr == nil {
			res.Output = truncate(stdout, outputLimit)
		}
	}

	res.Success = len(res.Resolve.IPv4) > 0 || len(res.Resolve.IPv6) > 0
	if !res.Success {
		return fail(res, types.FailConnection, "no addresses found")
	}
	return res
}

// Trace records the route to the host, keeping the first fifteen hops.
func (r *Runner) Trace(ctx context.Context, host string) *types.ProbeResult {
	res := &types.ProbeResult{Kind: types.ProbeTrace, Trace: &types.TraceData{Hops: []string{}}}

	ctx, cancel := r.withTimeout(ctx, r.cfg.TraceTimeout.Duration, 15*time.Second)
	defer cancel()

	if _, err := r.cmd.LookPath("traceroute"); err != nil {
		return fail(res, types.FailToolUnavailable, "traceroute command not found")
	}

	stdout, stderr, err := r.cmd.Run(ctx, "traceroute", host)
	if err != nil {
		if timedOut(ctx, err) {
			return fail(res, types.FailTimeout, "traceroute timed out")
		}
		msg := truncate(strings.TrimSpace(stderr), 200)
		if msg == "" {
			msg = "traceroute failed"
		}
		return fail(res, types.FailOther, msg)
	}

	var hops []string
	for _, line := range strings.Split(stdout, "\n") {
		if hopLineRe.MatchString(line) && !strings.Contains(strings.ToLower(line), "traceroute") {
			hops = append(hops, strings.TrimSpace(line))
		}
	}
	res.Trace.TotalHops = len(hops)
	if len(hops) > maxHops {
		hops = hops[:maxHops]
	}
	if hops != nil {
		res.Trace.Hops = hops
	}
	res.Success = true
	res.Output = truncate(stdout, outputLimit)
	return res
}

// PortScan runs nmap against the configured port list. nmap is optional;
// its absence is reported, never fatal.
func (r *Runner) PortScan(ctx context.Context, host string) *types.ProbeResult {
	res := &types.ProbeResult{Kind: types.ProbePortScan, Ports: &types.PortScanData{OpenLines: []string{}}}

	if _, err := r.cmd.LookPath("nmap"); err != nil {
		return fail(res, types.FailToolUnavailable, "nmap not installed")
	}

	checkCtx, checkCancel := context.WithTimeout(ctx, 2*time.Second)
	_, _, err := r.cmd.Run(checkCtx, "nmap", "-V")
	checkCancel()
	if err != nil {
		return fail(res, types.FailToolUnavailable, "nmap not installed")
	}

	ctx, cancel := r.withTimeout(ctx, r.cfg.PortScanTimeout.Duration, 30*time.Second)
	defer cancel()

	ports := strings.TrimSpace(r.cfg.ScanPorts)
	if ports == "" {
		ports = "80,443,22,21,25,53,3306,5432"
	}

	stdout, stderr, err := r.cmd.Run(ctx, "nmap", "-p", ports, "-T3", host)
	if err != nil {
		if timedOut(ctx, err) {
			return fail(res, types.FailTimeout, "nmap timed out")
		}
		msg := truncate(strings.TrimSpace(stderr), 200)
		if msg == "" {
			msg = "nmap scan failed"
		}
		return fail(res, types.FailOther, msg)
	}

	for _, line := range strings.Split(stdout, "\n") {
		if strings.Contains(strings.ToLower(line), "open") {
			res.Ports.OpenLines = append(res.Ports.OpenLines, strings.TrimSpace(line))
		}
	}
	res.Success = true
	res.Output = truncate(stdout, scanOutputLimit)
	return res
}

func (r *Runner) withTimeout(ctx context.Context, configured, fallback time.Duration) (context.Context, context.CancelFunc) {
	d := configured
	if d <= 0 {
		d = fallback
	}
	return context.WithTimeout(ctx, d)
}

func timedOut(ctx context.Context, err error) bool {
	return errors.Is(ctx.Err(), context.DeadlineExceeded) || errors.Is(err, context.DeadlineExceeded)
}

func truncate(s string, limit int) string {
	if len(s) <= limit {
		return s
	}
	return s[:limit]
}
