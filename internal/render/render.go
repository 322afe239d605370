// Package render turns the corpus and resolved navigation into the static
// HTML tree. Rendering is deterministic: no timestamps, sorted attribute
// and social orders, so identical inputs produce byte-identical pages.
package render

import (
	"bytes"
	"embed"
	"fmt"
	"html/template"
	"path"
	"sort"
	"strings"

	"github.com/yuin/goldmark"
	"github.com/yuin/goldmark/extension"
	"github.com/yuin/goldmark/parser"
	gmhtml "github.com/yuin/goldmark/renderer/html"

	"github.com/pagefold/pagefold/internal/config"
	"github.com/pagefold/pagefold/internal/content"
	"github.com/pagefold/pagefold/internal/errors"
	"github.com/pagefold/pagefold/internal/nav"
)

//go:embed templates/*.tmpl
var embeddedTemplates embed.FS

//go:embed templates/site.css
var DefaultStylesheet []byte

// Renderer renders documents into full HTML pages.
type Renderer struct {
	site     config.Site
	baseURL  string
	markdown goldmark.Markdown
	page     *template.Template
	headTags []template.HTML
	social   []SocialLink
}

// SocialLink is one platform/URL pair, ordered by platform for stable output.
type SocialLink struct {
	Platform string
	URL      string
}

// Page is the template context for one rendered document.
type Page struct {
	SiteTitle   string
	Title       string
	Description string
	Route       string
	HeadTags    []template.HTML
	Favicon     string
	LogoLight   string
	LogoDark    string
	Social      []SocialLink
	Sidebar     template.HTML
	Content     template.HTML
	EditURL     string
}

// NewRenderer builds a renderer for one composed configuration.
func NewRenderer(cfg *config.Config) (*Renderer, error) {
	page, err := template.ParseFS(embeddedTemplates, "templates/page.html.tmpl")
	if err != nil {
		return nil, fmt.Errorf("parse page template: %w", err)
	}

	md := goldmark.New(
		goldmark.WithExtensions(extension.GFM),
		goldmark.WithParserOptions(
			parser.WithAutoHeadingID(),
		),
		goldmark.WithRendererOptions(
			gmhtml.WithUnsafe(),
		),
	)

	headTags, err := renderHeadTags(cfg.Site.HeadTags)
	if err != nil {
		return nil, err
	}

	return &Renderer{
		site:     cfg.Site,
		baseURL:  strings.TrimRight(cfg.Output.BaseURL, "/"),
		markdown: md,
		page:     page,
		headTags: headTags,
		social:   sortedSocial(cfg.Site.Social),
	}, nil
}

// RenderDocument produces the final HTML page for one document. The sidebar
// is rendered per page so the active entry is marked.
func (r *Renderer) RenderDocument(doc *content.Document, items []*nav.Item) ([]byte, error) {
	var body bytes.Buffer
	if err := r.markdown.Convert(doc.Body, &body); err != nil {
		return nil, errors.WrapContent(err, doc.SourceFile, "markdown rendering failed")
	}

	page := Page{
		SiteTitle:   r.site.Title,
		Title:       doc.Title,
		Description: doc.Description,
		Route:       doc.Route,
		HeadTags:    r.headTags,
		Favicon:     assetHref(r.site.Favicon),
		LogoLight:   assetHref(r.site.Logo.Light),
		LogoDark:    assetHref(r.site.Logo.Dark),
		Social:      r.social,
		Sidebar:     renderSidebar(items, doc.Route),
		Content:     template.HTML(body.String()),
		EditURL:     r.editURL(doc),
	}

	var out bytes.Buffer
	if err := r.page.Execute(&out, page); err != nil {
		return nil, errors.WrapContent(err, doc.SourceFile, "page template failed")
	}
	return out.Bytes(), nil
}

// editURL joins the configured edit base with the document's source path.
func (r *Renderer) editURL(doc *content.Document) string {
	base := r.site.EditLinkBaseURL
	if base == "" {
		return ""
	}
	return strings.TrimRight(base, "/") + "/" + doc.SourceFile
}

// assetHref maps a content-root-relative asset path to its site-absolute
// href.
func assetHref(rel string) string {
	if rel == "" {
		return ""
	}
	return "/" + strings.TrimLeft(path.Clean(rel), "/")
}

func sortedSocial(social map[string]string) []SocialLink {
	links := make([]SocialLink, 0, len(social))
	for platform, url := range social {
		links = append(links, SocialLink{Platform: platform, URL: url})
	}
	sort.Slice(links, func(i, j int) bool { return links[i].Platform < links[j].Platform })
	return links
}
