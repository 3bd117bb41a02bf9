// Package engine provides the crawl backends behind one contract. Each
// variant fetches a target its own way but returns the canonical CrawlResult
// shape, so downstream fusion never branches on which engine ran.
package engine

import (
	"context"
	"errors"
	"net"
	"net/url"
	"strings"

	"webrecon/pkg/types"
)

// Request describes one crawl invocation.
type Request struct {
	URL      string
	MaxDepth int
}

// LoginRequest describes a login-flavoured crawl.
type LoginRequest struct {
	URL              string
	UsernameSelector string
	PasswordSelector string
	SubmitSelector   string
	Username         string
	Password         string
}

// Engine is the common contract over all crawl backends.
type Engine interface {
	Name() string
	Available() bool
	Crawl(ctx context.Context, req Request) (*types.CrawlResult, error)
}

// LoginCrawler is implemented by engines capable of form submission.
type LoginCrawler interface {
	CrawlWithLogin(ctx context.Context, req LoginRequest) (*types.CrawlResult, error)
}

// parseTarget validates and normalises a request URL. A missing scheme
// defaults to https.
func parseTarget(raw string) (*url.URL, *types.Failure) {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return nil, types.NewFailure(types.FailMalformedInput, "url is required")
	}
	parsed, err := url.Parse(raw)
	if err != nil {
		return nil, types.NewFailure(types.FailMalformedInput, "invalid url %q: %v", raw, err)
	}
	if parsed.Scheme == "" {
		parsed, err = url.Parse("https://" + raw)
		if err != nil {
			return nil, types.NewFailure(types.FailMalformedInput, "invalid url %q: %v", raw, err)
		}
	}
	if parsed.Host == "" {
		return nil, types.NewFailure(types.FailMalformedInput, "url %q has no host", raw)
	}
	return parsed, nil
}

// classifyFetchError maps transport errors onto the failure taxonomy.
func classifyFetchError(err error) *types.Failure {
	if err == nil {
		return nil
	}
	if f := failureIn(err); f != nil {
		return f
	}
	if errors.Is(err, context.DeadlineExceeded) {
		return types.NewFailure(types.FailTimeout, "request timed out")
	}
	var netErr net.Error
	if errors.As(err, &netErr) {
		if netErr.Timeout() {
			return types.NewFailure(types.FailTimeout, "request timed out")
		}
		return types.NewFailure(types.FailConnection, "connection failed: %v", err)
	}
	var dnsErr *net.DNSError
	if errors.As(err, &dnsErr) {
		return types.NewFailure(types.FailConnection, "name resolution failed: %v", dnsErr)
	}
	msg := err.Error()
	switch {
	case strings.Contains(msg, "connection refused"),
		strings.Contains(msg, "no such host"),
		strings.Contains(msg, "net::ERR_CONNECTION"),
		strings.Contains(msg, "net::ERR_NAME_NOT_RESOLVED"):
		return types.NewFailure(types.FailConnection, "connection failed: %v", err)
	case strings.Contains(msg, "context deadline exceeded"):
		return types.NewFailure(types.FailTimeout, "request timed out")
	}
	return types.NewFailure(types.FailOther, "%v", err)
}

func failureIn(err error) *types.Failure {
	var f *types.Failure
	if errors.As(err, &f) {
		return f
	}
	return nil
}

// sameHost compares the hostname components of two URLs.
func sameHost(a, b *url.URL) bool {
	if a == nil || b == nil {
		return false
	}
	return strings.EqualFold(a.Hostname(), b.Hostname())
}

// visitKey canonicalises a URL for visited-set membership within one crawl.
func visitKey(u *url.URL) string {
	if u == nil {
		return ""
	}
	scheme := strings.ToLower(u.Scheme)
	if scheme == "" {
		scheme = "http"
	}
	host := strings.ToLower(u.Hostname())
	if port := u.Port(); port != "" && port != defaultPortForScheme(scheme) {
		host = host + ":" + port
	}
	path := u.EscapedPath()
	if path == "" {
		path = "/"
	}
	key := scheme + "://" + host + path
	if q := u.RawQuery; q != "" {
		key += "?" + q
	}
	return key
}

func defaultPortForScheme(scheme string) string {
	switch scheme {
	case "http":
		return "80"
	case "https":
		return "443"
	default:
		return ""
	}
}
