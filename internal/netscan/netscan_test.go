package netscan

import (
	"context"
	"io"
	"log/slog"
	"reflect"
	"testing"

	"webrecon/pkg/types"
)

// fakeProber returns canned results per probe kind.
type fakeProber struct {
	results map[types.ProbeKind]*types.ProbeResult
}

func (f fakeProber) Run(_ context.Context, kind types.ProbeKind, _ string) *types.ProbeResult {
	if res, ok := f.results[kind]; ok {
		return res
	}
	return &types.ProbeResult{Kind: kind, Error: "probe failed"}
}

func discard() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func newAggregator(results map[types.ProbeKind]*types.ProbeResult) *Aggregator {
	return NewAggregator(fakeProber{results: results}, discard())
}

func TestScan_AllProbesSucceed(t *testing.T) {
	agg := newAggregator(map[types.ProbeKind]*types.ProbeResult{
		types.ProbeReachability: {
			Kind: types.ProbeReachability, Success: true,
			Ping: &types.PingData{Reachable: true, ResponseTimes: []string{"12.3"}},
		},
		types.ProbeResolve: {
			Kind: types.ProbeResolve, Success: true,
			Resolve: &types.ResolveData{IPv4: []string{"93.184.216.34"}, IPv6: []string{"2606:2800::1"}},
		},
		types.ProbeTrace: {
			Kind: types.ProbeTrace, Success: true,
			Trace: &types.TraceData{Hops: []string{"1 gw", "2 isp"}, TotalHops: 2},
		},
		types.ProbePortScan: {
			Kind: types.ProbePortScan, Success: true,
			Ports: &types.PortScanData{OpenLines: []string{"443/tcp open https", "80/tcp open http"}},
		},
	})

	summary := agg.Scan(context.Background(), "https://example.com:8443/path")

	if summary.Hostname != "example.com" {
		t.Errorf("hostname = %q", summary.Hostname)
	}
	if !summary.Reachable {
		t.Error("expected reachable")
	}
	if got, want := summary.IPAddresses, []string{"93.184.216.34", "2606:2800::1"}; !reflect.DeepEqual(got, want) {
		t.Errorf("ip addresses = %v, want %v", got, want)
	}
	if got, want := summary.OpenPorts, []int{80, 443}; !reflect.DeepEqual(got, want) {
		t.Errorf("open ports = %v, want %v", got, want)
	}
	if summary.Services[80] != "HTTP" || summary.Services[443] != "HTTPS" {
		t.Errorf("services = %v", summary.Services)
	}
	if summary.HopCount != 2 {
		t.Errorf("hop count = %d", summary.HopCount)
	}
	if !summary.NetworkAccessible {
		t.Error("reachable host with resolved addresses should be network accessible")
	}
	if len(summary.Probes) != 4 {
		t.Errorf("expected all probe results retained, got %d", len(summary.Probes))
	}
}

func TestScan_AccessibleNeedsPingAndAddresses(t *testing.T) {
	cases := []struct {
		name      string
		reachable bool
		ipv4      []string
		ipv6      []string
		want      bool
	}{
		{"reachable with ipv4", true, []string{"10.0.0.1"}, nil, true},
		{"reachable ipv6 only", true, nil, []string{"2606:2800::1"}, true},
		{"reachable without addresses", true, nil, nil, false},
		{"unreachable with ipv4", false, []string{"10.0.0.1"}, nil, false},
		{"unreachable without addresses", false, nil, nil, false},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			agg := newAggregator(map[types.ProbeKind]*types.ProbeResult{
				types.ProbeReachability: {
					Kind: types.ProbeReachability, Success: tc.reachable,
					Ping: &types.PingData{Reachable: tc.reachable},
				},
				types.ProbeResolve: {
					Kind: types.ProbeResolve, Success: len(tc.ipv4)+len(tc.ipv6) > 0,
					Resolve: &types.ResolveData{IPv4: tc.ipv4, IPv6: tc.ipv6},
				},
			})
			summary := agg.Scan(context.Background(), "example.com")
			if summary.NetworkAccessible != tc.want {
				t.Errorf("network_accessible = %v, want %v", summary.NetworkAccessible, tc.want)
			}
		})
	}
}

func TestScan_PartialFailureKeepsOtherResults(t *testing.T) {
	agg := newAggregator(map[types.ProbeKind]*types.ProbeResult{
		types.ProbeReachability: {
			Kind: types.ProbeReachability, Success: true,
			Ping: &types.PingData{Reachable: true},
		},
		types.ProbeResolve: {
			Kind: types.ProbeResolve, Success: true,
			Resolve: &types.ResolveData{IPv4: []string{"10.0.0.1"}},
		},
		// trace and port scan fall through to the failure default
	})

	summary := agg.Scan(context.Background(), "example.com")
	if !summary.NetworkAccessible {
		t.Error("failed optional probes should not block accessibility")
	}
	if summary.HopCount != 0 || len(summary.OpenPorts) != 0 {
		t.Errorf("failed probes should contribute zeros, got hops=%d ports=%v", summary.HopCount, summary.OpenPorts)
	}
	if summary.Probes[types.ProbeTrace] == nil || summary.Probes[types.ProbePortScan] == nil {
		t.Error("failed probe results must still be retained")
	}
}

func TestScan_FailedPortScanIgnoresOpenLines(t *testing.T) {
	agg := newAggregator(map[types.ProbeKind]*types.ProbeResult{
		types.ProbePortScan: {
			Kind: types.ProbePortScan, Success: false,
			Ports: &types.PortScanData{OpenLines: []string{"80/tcp open http"}},
		},
	})
	summary := agg.Scan(context.Background(), "example.com")
	if len(summary.OpenPorts) != 0 {
		t.Errorf("open ports from a failed scan must be ignored, got %v", summary.OpenPorts)
	}
}

func TestParseOpenPorts(t *testing.T) {
	lines := []string{
		"443/tcp open  https",
		"80/tcp  open  http",
		"80/tcp  open  http-alt", // duplicate port
		"not a port line",
	}
	got := parseOpenPorts(lines)
	want := []int{80, 443}
	if !reflect.DeepEqual(got, want) {
		t.Errorf("parseOpenPorts = %v, want %v", got, want)
	}
}

func TestExtractHostname(t *testing.T) {
	cases := []struct {
		in   string
		want string
	}{
		{"https://example.com/path", "example.com"},
		{"http://example.com:8080/x", "example.com"},
		{"example.com", "example.com"},
		{"example.com:443", "example.com"},
		{"example.com/path", "example.com"},
		{"  ", ""},
	}
	for _, tc := range cases {
		if got := ExtractHostname(tc.in); got != tc.want {
			t.Errorf("ExtractHostname(%q) = %q, want %q", tc.in, got, tc.want)
		}
	}
}
