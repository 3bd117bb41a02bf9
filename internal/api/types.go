package api

import (
	"webrecon/pkg/types"
)

// CrawlRequest is the payload for the crawl endpoints. Engine defaults to
// automatic selection; Depth only matters to the deep engine.
type CrawlRequest struct {
	URL    string `json:"url"`
	Engine string `json:"engine,omitempty"`
	Depth  int    `json:"depth,omitempty"`
}

// LoginCrawlRequest is the payload for the login crawl endpoint. All fields
// are required.
type LoginCrawlRequest struct {
	URL              string `json:"url"`
	UsernameSelector string `json:"username_selector"`
	PasswordSelector string `json:"password_selector"`
	SubmitSelector   string `json:"submit_selector"`
	Username         string `json:"username"`
	Password         string `json:"password"`
}

// ScanRequest targets the network scan and single-probe endpoints. URL may be
// a full URL or a bare hostname.
type ScanRequest struct {
	URL string `json:"url"`
}

// CrawlResponse is the envelope for crawl outcomes. A logical failure keeps
// Success false and fills Error; the HTTP status stays 200 because the
// attempt itself completed.
type CrawlResponse struct {
	Success       bool                  `json:"success"`
	URL           string                `json:"url"`
	Engine        string                `json:"engine,omitempty"`
	Authenticated bool                  `json:"authenticated,omitempty"`
	RawData       *types.CrawlResult    `json:"raw_data,omitempty"`
	ProcessedData *types.EnrichedRecord `json:"processed_data,omitempty"`
	Error         *types.Failure        `json:"error,omitempty"`
}

// NetworkCrawlResponse extends the crawl envelope with the network posture
// and per-scanner context views.
type NetworkCrawlResponse struct {
	CrawlResponse
	NetworkScan     *types.NetworkSummary            `json:"network_scan,omitempty"`
	ScannerContexts map[string]*types.ScannerContext `json:"scanner_contexts,omitempty"`
}

// ScanResponse is the envelope for the full network scan endpoint.
type ScanResponse struct {
	Success     bool                  `json:"success"`
	URL         string                `json:"url"`
	NetworkData *types.NetworkSummary `json:"network_data"`
}

// ProbeResponse is the envelope for single-probe endpoints.
type ProbeResponse struct {
	Success bool               `json:"success"`
	URL     string             `json:"url"`
	Result  *types.ProbeResult `json:"result"`
}

// FormsResponse carries extracted forms.
type FormsResponse struct {
	Success   bool           `json:"success"`
	URL       string         `json:"url"`
	FormCount int            `json:"form_count"`
	Forms     []types.Form   `json:"forms"`
	Error     *types.Failure `json:"error,omitempty"`
}

// SensitiveFieldsResponse carries fields flagged as sensitive.
type SensitiveFieldsResponse struct {
	Success         bool           `json:"success"`
	URL             string         `json:"url"`
	SensitiveCount  int            `json:"sensitive_count"`
	SensitiveFields []types.Field  `json:"sensitive_fields"`
	Error           *types.Failure `json:"error,omitempty"`
}
