package render

import (
	"fmt"
	"html/template"
	"sort"
	"strings"

	"github.com/pagefold/pagefold/internal/config"
	"github.com/pagefold/pagefold/internal/errors"
)

// Void elements render without a closing tag.
var voidElements = map[string]bool{
	"meta": true,
	"link": true,
	"base": true,
}

// renderHeadTags renders the configured head tags once; sequence order is
// preserved, attributes within a tag are sorted by key.
func renderHeadTags(tags []config.HeadTag) ([]template.HTML, error) {
	rendered := make([]template.HTML, 0, len(tags))
	for i, tag := range tags {
		html, err := renderHeadTag(tag)
		if err != nil {
			return nil, errors.WrapConfig(err, fmt.Sprintf("site.head_tags[%d] cannot be rendered", i))
		}
		rendered = append(rendered, html)
	}
	return rendered, nil
}

func renderHeadTag(tag config.HeadTag) (template.HTML, error) {
	name := strings.ToLower(strings.TrimSpace(tag.Tag))
	if name == "" || strings.ContainsAny(name, "<> /") {
		return "", fmt.Errorf("invalid tag name %q", tag.Tag)
	}

	keys := make([]string, 0, len(tag.Attributes))
	for k := range tag.Attributes {
		keys = append(keys, k)
	}
	sort.Strings(keys)

	var b strings.Builder
	b.WriteByte('<')
	b.WriteString(name)
	for _, k := range keys {
		if strings.ContainsAny(k, "<>\"'= /") {
			return "", fmt.Errorf("invalid attribute name %q", k)
		}
		b.WriteByte(' ')
		b.WriteString(k)
		b.WriteString(`="`)
		b.WriteString(template.HTMLEscapeString(tag.Attributes[k]))
		b.WriteByte('"')
	}
	b.WriteByte('>')

	if !voidElements[name] {
		b.WriteString("</")
		b.WriteString(name)
		b.WriteByte('>')
	}

	return template.HTML(b.String()), nil
}
