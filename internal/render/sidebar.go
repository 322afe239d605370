package render

import (
	"html/template"
	"strings"

	"github.com/pagefold/pagefold/internal/nav"
)

// renderSidebar renders the resolved navigation as nested lists. The entry
// whose route matches the current page is marked active.
func renderSidebar(items []*nav.Item, activeRoute string) template.HTML {
	if len(items) == 0 {
		return ""
	}
	var b strings.Builder
	renderItems(&b, items, activeRoute)
	return template.HTML(b.String())
}

func renderItems(b *strings.Builder, items []*nav.Item, activeRoute string) {
	b.WriteString("<ul>")
	for _, item := range items {
		if item.IsLink() {
			b.WriteString(`<li><a href="`)
			b.WriteString(template.HTMLEscapeString(item.Route))
			b.WriteByte('"')
			if item.Route == activeRoute {
				b.WriteString(` class="active" aria-current="page"`)
			}
			b.WriteByte('>')
			b.WriteString(template.HTMLEscapeString(item.Label))
			b.WriteString("</a></li>")
			continue
		}

		b.WriteString(`<li class="section`)
		if item.Collapsed {
			b.WriteString(" collapsed")
		}
		b.WriteString(`"><span class="section-label">`)
		b.WriteString(template.HTMLEscapeString(item.Label))
		b.WriteString("</span>")
		renderItems(b, item.Children, activeRoute)
		b.WriteString("</li>")
	}
	b.WriteString("</ul>")
}
