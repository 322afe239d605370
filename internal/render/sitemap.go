package render

import (
	"html/template"
	"sort"
	"strings"
)

// Sitemap renders sitemap.xml for the given routes. Routes are sorted and
// no lastmod timestamps are emitted so rebuilds stay byte-identical.
func Sitemap(baseURL string, routes []string) []byte {
	base := strings.TrimRight(baseURL, "/")

	sorted := make([]string, len(routes))
	copy(sorted, routes)
	sort.Strings(sorted)

	var b strings.Builder
	b.WriteString(`<?xml version="1.0" encoding="UTF-8"?>` + "\n")
	b.WriteString(`<urlset xmlns="http://www.sitemaps.org/schemas/sitemap/0.9">` + "\n")
	for _, route := range sorted {
		b.WriteString("  <url><loc>")
		b.WriteString(template.HTMLEscapeString(base + route))
		b.WriteString("</loc></url>\n")
	}
	b.WriteString("</urlset>\n")
	return []byte(b.String())
}
