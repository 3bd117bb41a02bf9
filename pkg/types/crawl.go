package types

// Engine tags for the crawl backends.
const (
	EngineStatic  = "static"
	EngineBrowser = "browser"
	EngineDeep    = "deep"
	EngineAuto    = "auto"
)

// Field describes one form field (native inputs and textareas).
type Field struct {
	Type     string `json:"type"`
	Name     string `json:"name"`
	ID       string `json:"id"`
	Value    string `json:"value,omitempty"`
	Required bool   `json:"required"`
}

// Form describes one <form> element and its fields in document order.
type Form struct {
	Name   string  `json:"name"`
	ID     string  `json:"id"`
	Action string  `json:"action"`
	Method string  `json:"method"`
	Fields []Field `json:"fields"`
}

// Input is a bare input descriptor, collected page-wide regardless of form grouping.
type Input struct {
	Type  string `json:"type"`
	Name  string `json:"name"`
	ID    string `json:"id"`
	Value string `json:"value"`
}

// LinkSet partitions discovered hrefs by where they point.
type LinkSet struct {
	Internal []string `json:"internal"`
	External []string `json:"external"`
	Email    []string `json:"email"`
}

// Total counts crawlable links; mailto entries are excluded.
func (l LinkSet) Total() int {
	return len(l.Internal) + len(l.External)
}

// PageStats summarises one page visited by the deep engine.
type PageStats struct {
	URL    string `json:"url"`
	Title  string `json:"title"`
	Links  int    `json:"links"`
	Forms  int    `json:"forms"`
	Inputs int    `json:"inputs"`
}

// CrawlResult is the canonical output of one crawl engine invocation.
// Every engine fills Engine, URL, and JavaScriptRendered; all other fields hold
// their empty form rather than being absent, so consumers never branch on presence.
type CrawlResult struct {
	Engine             string            `json:"engine"`
	URL                string            `json:"url"`
	ResolvedURL        string            `json:"resolved_url"`
	StatusCode         int               `json:"status_code"`
	Title              string            `json:"title"`
	Links              LinkSet           `json:"links"`
	Forms              []Form            `json:"forms"`
	Inputs             []Input           `json:"inputs"`
	MetaTags           map[string]string `json:"meta_tags"`
	PageSizeBytes      int               `json:"page_size_bytes"`
	JavaScriptRendered bool              `json:"javascript_rendered"`
	Cookies            map[string]string `json:"cookies"`
	Authenticated      bool              `json:"authenticated"`

	// Deep-crawl aggregates; zero-valued for single-page engines.
	Depth       int         `json:"depth,omitempty"`
	Pages       []PageStats `json:"pages,omitempty"`
	TotalLinks  int         `json:"total_links,omitempty"`
	TotalForms  int         `json:"total_forms,omitempty"`
	TotalInputs int         `json:"total_inputs,omitempty"`
}

// NewCrawlResult returns a result with every collection initialised to its
// empty form so serialised output never contains nulls.
func NewCrawlResult(engine, url string) *CrawlResult {
	return &CrawlResult{
		Engine:      engine,
		URL:         url,
		ResolvedURL: url,
		Links: LinkSet{
			Internal: []string{},
			External: []string{},
			Email:    []string{},
		},
		Forms:    []Form{},
		Inputs:   []Input{},
		MetaTags: map[string]string{},
		Cookies:  map[string]string{},
	}
}

// AllFields returns form fields and bare inputs as one sequence of field
// descriptors, preserving order (form fields first, document order within each).
func (c *CrawlResult) AllFields() []Field {
	fields := make([]Field, 0, len(c.Inputs))
	for _, form := range c.Forms {
		fields = append(fields, form.Fields...)
	}
	for _, in := range c.Inputs {
		fields = append(fields, Field{Type: in.Type, Name: in.Name, ID: in.ID, Value: in.Value})
	}
	return fields
}
