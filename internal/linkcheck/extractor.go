// Package linkcheck verifies link integrity of rendered output. Internal
// references must resolve to a file in the output tree; external links can
// additionally be HEAD-checked over the network with bounded concurrency.
package linkcheck

import (
	"io"
	"net/url"
	"os"
	"path/filepath"
	"strings"

	"golang.org/x/net/html"

	"github.com/pagefold/pagefold/internal/errors"
)

// Link is one reference extracted from rendered HTML.
type Link struct {
	URL        string // raw attribute value
	Text       string // link text or alt text
	Tag        string // a, img, script, link, video, audio, source
	Attribute  string // href or src
	IsInternal bool
}

// ExtractFile extracts all links from an HTML file on disk.
func ExtractFile(htmlPath, baseURL string) ([]*Link, error) {
	f, err := os.Open(filepath.Clean(htmlPath))
	if err != nil {
		return nil, errors.WrapContent(err, htmlPath, "cannot open rendered page")
	}
	defer func() { _ = f.Close() }()
	return Extract(f, baseURL)
}

// Extract parses HTML from r and collects every outbound reference.
func Extract(r io.Reader, baseURL string) ([]*Link, error) {
	doc, err := html.Parse(r)
	if err != nil {
		return nil, errors.WrapContent(err, "", "cannot parse rendered HTML")
	}

	base, err := url.Parse(baseURL)
	if err != nil {
		return nil, errors.WrapConfig(err, "invalid base URL for link extraction")
	}

	var links []*Link
	var walk func(*html.Node)
	walk = func(n *html.Node) {
		if n.Type == html.ElementNode {
			collectElementLinks(n, &links, base)
		}
		for c := n.FirstChild; c != nil; c = c.NextSibling {
			walk(c)
		}
	}
	walk(doc)
	return links, nil
}

func collectElementLinks(n *html.Node, links *[]*Link, base *url.URL) {
	switch n.Data {
	case "a":
		if href := getAttr(n, "href"); href != "" {
			*links = append(*links, &Link{
				URL: href, Text: nodeText(n), Tag: "a", Attribute: "href",
				IsInternal: isInternalLink(href, base),
			})
		}
	case "img":
		if src := getAttr(n, "src"); src != "" {
			*links = append(*links, &Link{
				URL: src, Text: getAttr(n, "alt"), Tag: "img", Attribute: "src",
				IsInternal: isInternalLink(src, base),
			})
		}
	case "script", "video", "audio", "source":
		if src := getAttr(n, "src"); src != "" {
			*links = append(*links, &Link{
				URL: src, Tag: n.Data, Attribute: "src",
				IsInternal: isInternalLink(src, base),
			})
		}
		// Single-URL srcset, as emitted for dark-scheme logos.
		if srcset := getAttr(n, "srcset"); srcset != "" && !strings.ContainsAny(srcset, ", ") {
			*links = append(*links, &Link{
				URL: srcset, Tag: n.Data, Attribute: "srcset",
				IsInternal: isInternalLink(srcset, base),
			})
		}
	case "link":
		if href := getAttr(n, "href"); href != "" {
			*links = append(*links, &Link{
				URL: href, Text: getAttr(n, "rel"), Tag: "link", Attribute: "href",
				IsInternal: isInternalLink(href, base),
			})
		}
	}
}

func getAttr(n *html.Node, key string) string {
	for _, attr := range n.Attr {
		if attr.Key == key {
			return attr.Val
		}
	}
	return ""
}

func nodeText(n *html.Node) string {
	if n.Type == html.TextNode {
		return strings.TrimSpace(n.Data)
	}
	var b strings.Builder
	for c := n.FirstChild; c != nil; c = c.NextSibling {
		b.WriteString(nodeText(c))
	}
	return strings.TrimSpace(b.String())
}

// ExternalURLs filters the extracted links down to the outbound URLs a
// network check can verify. Duplicates are kept; the checker dedups.
func ExternalURLs(links []*Link) []string {
	var urls []string
	for _, link := range links {
		if link.IsInternal || !shouldCheck(link) {
			continue
		}
		urls = append(urls, link.URL)
	}
	return urls
}

// isInternalLink reports whether the URL targets the site itself. Relative
// URLs and URLs on the configured base host count as internal.
func isInternalLink(link string, base *url.URL) bool {
	if strings.HasPrefix(link, "#") {
		return true
	}
	u, err := url.Parse(link)
	if err != nil {
		return false
	}
	if u.Scheme == "" && u.Host == "" {
		return true
	}
	if u.Scheme != "http" && u.Scheme != "https" {
		return false
	}
	return base != nil && base.Host != "" && u.Host == base.Host
}

// shouldCheck filters out references no checker can meaningfully verify.
func shouldCheck(link *Link) bool {
	if link.URL == "" || strings.HasPrefix(link.URL, "#") {
		return false
	}
	for _, scheme := range []string{"mailto:", "tel:", "javascript:", "data:"} {
		if strings.HasPrefix(link.URL, scheme) {
			return false
		}
	}
	return true
}
