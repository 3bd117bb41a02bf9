package types

// NormalizedCrawl is the engine-agnostic projection of a CrawlResult.
// Every field is always present; engines that lack the underlying data
// contribute the zero value.
type NormalizedCrawl struct {
	StatusCode        int     `json:"status_code"`
	TotalLinks        int     `json:"total_links"`
	InternalLinks     int     `json:"internal_links"`
	ExternalLinks     int     `json:"external_links"`
	FormsCount        int     `json:"forms_count"`
	InputsCount       int     `json:"inputs_count"`
	PageSizeKB        float64 `json:"page_size_kb"`
	JavaScriptEnabled bool    `json:"javascript_enabled"`
	Authenticated     bool    `json:"authenticated"`
	Redirected        bool    `json:"redirected"`
}

// NetworkContext is the subset of a NetworkSummary attached to an enriched
// record. The zero value (with initialised collections) stands for "no scan
// requested"; it is never null.
type NetworkContext struct {
	IPAddresses []string       `json:"ip_addresses"`
	Reachable   bool           `json:"reachable"`
	OpenPorts   []int          `json:"open_ports"`
	Services    map[int]string `json:"services"`
}

// EmptyNetworkContext returns the explicit empty form.
func EmptyNetworkContext() NetworkContext {
	return NetworkContext{
		IPAddresses: []string{},
		OpenPorts:   []int{},
		Services:    map[int]string{},
	}
}

// EnrichedRecord fuses one crawl result with optional network posture and the
// derived security annotations downstream scanners consume. Each record is
// owned by the caller that requested the fusion; nothing is shared across
// requests.
type EnrichedRecord struct {
	SourceEngine           string          `json:"source_engine"`
	TargetURL              string          `json:"target_url"`
	NormalizedCrawl        NormalizedCrawl `json:"normalized_crawl"`
	NetworkContext         NetworkContext  `json:"network_context"`
	SensitiveFields        []Field         `json:"sensitive_fields"`
	InjectableParameters   []string        `json:"injectable_parameters"`
	AuthenticationRequired bool            `json:"authentication_required"`
}

// Consumer tags selecting a context view of an enriched record.
const (
	ConsumerSQLInjection = "sql_injection"
	ConsumerXSS          = "xss"
	ConsumerNetwork      = "network"
)

// ScannerContext is a fixed projection of an EnrichedRecord for one consumer.
// Which fields are populated depends solely on the consumer tag; building one
// is a selection, never a second enrichment pass.
type ScannerContext struct {
	Consumer             string          `json:"consumer"`
	TargetURL            string          `json:"target_url"`
	SensitiveFields      []Field         `json:"sensitive_fields,omitempty"`
	InjectableParameters []string        `json:"injectable_parameters,omitempty"`
	Network              *NetworkContext `json:"network,omitempty"`
	OpenPorts            []int           `json:"open_ports,omitempty"`
	Services             map[int]string  `json:"services,omitempty"`
	IPAddresses          []string        `json:"ip_addresses,omitempty"`
}
