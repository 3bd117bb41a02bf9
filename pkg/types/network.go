package types

// ProbeKind identifies one network-diagnostic check.
type ProbeKind string

const (
	ProbeReachability ProbeKind = "reachability"
	ProbeResolve      ProbeKind = "resolve"
	ProbeTrace        ProbeKind = "trace"
	ProbePortScan     ProbeKind = "port_scan"
)

// PingData carries the parsed output of the reachability probe.
type PingData struct {
	Reachable     bool     `json:"reachable"`
	ResponseTimes []string `json:"response_times"`
}

// ResolveData carries addresses gathered by the resolution probe.
type ResolveData struct {
	IPv4 []string `json:"ipv4_addresses"`
	IPv6 []string `json:"ipv6_addresses"`
}

// TraceData carries the parsed route trace.
type TraceData struct {
	Hops      []string `json:"hops"`
	TotalHops int      `json:"total_hops"`
}

// PortScanData carries the raw "open" lines reported by the port scanner.
type PortScanData struct {
	OpenLines []string `json:"open_ports"`
}

// ProbeResult is the outcome of a single probe invocation. Exactly one of the
// data fields is populated, matching Kind; Output retains truncated raw tool
// output for audit. A failed probe carries both the taxonomy tag and a
// human-readable Error.
type ProbeResult struct {
	Kind        ProbeKind     `json:"kind"`
	Success     bool          `json:"success"`
	FailureKind FailureKind   `json:"failure_kind,omitempty"`
	Error       string        `json:"error,omitempty"`
	Output      string        `json:"output,omitempty"`
	Ping        *PingData     `json:"ping,omitempty"`
	Resolve     *ResolveData  `json:"resolve,omitempty"`
	Trace       *TraceData    `json:"trace,omitempty"`
	Ports       *PortScanData `json:"ports,omitempty"`
}

// NetworkSummary is the reduced view of all probe outcomes for one hostname.
type NetworkSummary struct {
	Hostname          string                     `json:"hostname"`
	Reachable         bool                       `json:"reachable"`
	IPAddresses       []string                   `json:"ip_addresses"`
	OpenPorts         []int                      `json:"open_ports"`
	Services          map[int]string             `json:"services"`
	HopCount          int                        `json:"hop_count"`
	NetworkAccessible bool                       `json:"network_accessible"`
	Probes            map[ProbeKind]*ProbeResult `json:"probes"`
}

// NewNetworkSummary returns a summary with empty collections rather than nils.
func NewNetworkSummary(hostname string) *NetworkSummary {
	return &NetworkSummary{
		Hostname:    hostname,
		IPAddresses: []string{},
		OpenPorts:   []int{},
		Services:    map[int]string{},
		Probes:      map[ProbeKind]*ProbeResult{},
	}
}
