// Package parser extracts structural page data (links, forms, inputs,
// metadata) from fetched markup. It is the only package that touches the DOM;
// engines hand it raw bytes and receive canonical shapes back.
package parser

import (
	"bytes"
	"fmt"
	"net/url"
	"strings"

	"github.com/PuerkitoBio/goquery"
	"golang.org/x/net/html"

	"webrecon/pkg/types"
)

// Document wraps a parsed page together with the request URL used to resolve
// relative references.
type Document struct {
	doc  *goquery.Document
	base *url.URL
}

// Parse builds a Document from raw markup.
func Parse(body []byte, base *url.URL) (*Document, error) {
	if len(body) == 0 {
		return nil, fmt.Errorf("empty document body")
	}
	doc, err := goquery.NewDocumentFromReader(bytes.NewReader(body))
	if err != nil {
		return nil, fmt.Errorf("parse html: %w", err)
	}
	return &Document{doc: doc, base: base}, nil
}

// Title returns the text of the first <title> element.
func (d *Document) Title() string {
	return strings.TrimSpace(d.doc.Find("title").First().Text())
}

// Links collects every href and partitions it: mailto hrefs go to the email
// bucket, javascript hrefs are discarded, absolute hrefs are classified by
// host, and relative hrefs resolve against the request URL and count as
// internal regardless of where they land.
func (d *Document) Links() types.LinkSet {
	set := types.LinkSet{
		Internal: []string{},
		External: []string{},
		Email:    []string{},
	}
	seenInternal := map[string]struct{}{}
	seenExternal := map[string]struct{}{}

	baseHost := ""
	if d.base != nil {
		baseHost = strings.ToLower(d.base.Hostname())
	}

	d.doc.Find("a[href]").Each(func(_ int, s *goquery.Selection) {
		href, ok := s.Attr("href")
		if !ok {
			return
		}
		href = strings.TrimSpace(href)
		if href == "" {
			return
		}
		switch {
		case strings.HasPrefix(href, "mailto:"):
			set.Email = append(set.Email, href)
			return
		case strings.HasPrefix(href, "javascript:"):
			return
		case strings.HasPrefix(href, "http"):
			u, err := url.Parse(href)
			if err != nil {
				return
			}
			if strings.EqualFold(u.Hostname(), baseHost) {
				if _, dup := seenInternal[href]; !dup {
					seenInternal[href] = struct{}{}
					set.Internal = append(set.Internal, href)
				}
			} else {
				if _, dup := seenExternal[href]; !dup {
					seenExternal[href] = struct{}{}
					set.External = append(set.External, href)
				}
			}
			return
		default:
			if d.base == nil {
				return
			}
			resolved, err := d.base.Parse(href)
			if err != nil {
				return
			}
			abs := resolved.String()
			if _, dup := seenInternal[abs]; !dup {
				seenInternal[abs] = struct{}{}
				set.Internal = append(set.Internal, abs)
			}
		}
	})

	return set
}

// Forms returns every <form> with its input and textarea fields in document
// order. Methods are uppercased and default to GET.
func (d *Document) Forms() []types.Form {
	forms := []types.Form{}
	d.doc.Find("form").Each(func(_ int, s *goquery.Selection) {
		method := strings.ToUpper(strings.TrimSpace(s.AttrOr("method", "GET")))
		if method == "" {
			method = "GET"
		}
		form := types.Form{
			Name:   s.AttrOr("name", ""),
			ID:     s.AttrOr("id", ""),
			Action: s.AttrOr("action", ""),
			Method: method,
			Fields: []types.Field{},
		}
		s.Find("input").Each(func(_ int, in *goquery.Selection) {
			_, required := in.Attr("required")
			form.Fields = append(form.Fields, types.Field{
				Type:     in.AttrOr("type", "text"),
				Name:     in.AttrOr("name", ""),
				ID:       in.AttrOr("id", ""),
				Value:    in.AttrOr("value", ""),
				Required: required,
			})
		})
		s.Find("textarea").Each(func(_ int, ta *goquery.Selection) {
			_, required := ta.Attr("required")
			form.Fields = append(form.Fields, types.Field{
				Type:     "textarea",
				Name:     ta.AttrOr("name", ""),
				ID:       ta.AttrOr("id", ""),
				Required: required,
			})
		})
		forms = append(forms, form)
	})
	return forms
}

// Inputs returns every input element on the page, whether or not it sits
// inside a form.
func (d *Document) Inputs() []types.Input {
	inputs := []types.Input{}
	d.doc.Find("input").Each(func(_ int, s *goquery.Selection) {
		inputs = append(inputs, types.Input{
			Type:  s.AttrOr("type", "text"),
			Name:  s.AttrOr("name", ""),
			ID:    s.AttrOr("id", ""),
			Value: s.AttrOr("value", ""),
		})
	})
	return inputs
}

// MetaTags maps meta name/property to content, last write wins.
func (d *Document) MetaTags() map[string]string {
	tags := map[string]string{}
	d.doc.Find("meta").Each(func(_ int, s *goquery.Selection) {
		name, ok := s.Attr("name")
		if !ok || name == "" {
			name, _ = s.Attr("property")
		}
		content, hasContent := s.Attr("content")
		if name == "" || !hasContent {
			return
		}
		tags[name] = content
	})
	return tags
}

// Text extracts readable text, skipping script and style subtrees, collapsing
// whitespace, and truncating at limit runes (0 means no truncation).
func (d *Document) Text(limit int) string {
	var b strings.Builder
	for _, node := range d.doc.Selection.Nodes {
		collectText(node, &b)
	}
	text := strings.Join(strings.Fields(b.String()), " ")
	if limit > 0 {
		runes := []rune(text)
		if len(runes) > limit {
			text = string(runes[:limit])
		}
	}
	return text
}

var skippedTextTags = map[string]struct{}{
	"script":   {},
	"style":    {},
	"noscript": {},
}

func collectText(node *html.Node, b *strings.Builder) {
	if node == nil {
		return
	}
	switch node.Type {
	case html.TextNode:
		if text := strings.TrimSpace(node.Data); text != "" {
			b.WriteString(node.Data)
			b.WriteString(" ")
		}
	case html.ElementNode:
		if _, skip := skippedTextTags[strings.ToLower(node.Data)]; skip {
			return
		}
	}
	for child := node.FirstChild; child != nil; child = child.NextSibling {
		collectText(child, b)
	}
}

// CrawlableLinks resolves hrefs suitable for following: http(s) only, no
// mailto/javascript/fragment-only targets, deduplicated in document order.
func (d *Document) CrawlableLinks() []*url.URL {
	seen := map[string]struct{}{}
	links := []*url.URL{}
	d.doc.Find("a[href]").Each(func(_ int, s *goquery.Selection) {
		href := strings.TrimSpace(s.AttrOr("href", ""))
		if href == "" || strings.HasPrefix(href, "mailto:") ||
			strings.HasPrefix(href, "javascript:") || strings.HasPrefix(href, "#") {
			return
		}
		if d.base == nil {
			return
		}
		u, err := d.base.Parse(href)
		if err != nil {
			return
		}
		scheme := strings.ToLower(u.Scheme)
		if scheme != "http" && scheme != "https" {
			return
		}
		u.Fragment = ""
		key := u.String()
		if _, dup := seen[key]; dup {
			return
		}
		seen[key] = struct{}{}
		links = append(links, u)
	})
	return links
}
