package render

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/pagefold/pagefold/internal/config"
	"github.com/pagefold/pagefold/internal/content"
	"github.com/pagefold/pagefold/internal/nav"
)

func testConfig() *config.Config {
	return &config.Config{
		Site: config.Site{
			Title: "Sizzle Starter",
			Social: map[string]string{
				"github": "https://github.com/hawkkiller/sizzle_starter",
			},
			Favicon:         "assets/favicon.ico",
			Logo:            config.Logo{Light: "assets/logo-light.svg", Dark: "assets/logo-dark.svg"},
			EditLinkBaseURL: "https://github.com/hawkkiller/sizzle_starter/edit/main/docs",
			HeadTags: []config.HeadTag{
				{Tag: "meta", Attributes: map[string]string{"name": "theme-color", "content": "#1d76db"}},
			},
		},
	}
}

func testDoc() *content.Document {
	return &content.Document{
		Route:       "/get-started",
		SourceFile:  "get-started.md",
		Title:       "Get Started",
		Description: "Setup guide",
		Body:        []byte("# Get Started\n\nSome **bold** text.\n"),
	}
}

func testNav() []*nav.Item {
	return []*nav.Item{
		{Label: "Get Started", Children: []*nav.Item{
			{Label: "Get Started", Route: "/get-started"},
		}},
	}
}

func TestRenderDocument_ProducesCompletePage(t *testing.T) {
	r, err := NewRenderer(testConfig())
	require.NoError(t, err)

	out, err := r.RenderDocument(testDoc(), testNav())
	require.NoError(t, err)
	html := string(out)

	require.Contains(t, html, "<title>Get Started | Sizzle Starter</title>")
	require.Contains(t, html, `<meta name="description" content="Setup guide">`)
	require.Contains(t, html, `<meta content="#1d76db" name="theme-color">`)
	require.Contains(t, html, `<link rel="icon" href="/assets/favicon.ico">`)
	require.Contains(t, html, `<img class="logo" src="/assets/logo-light.svg"`)
	require.Contains(t, html, `srcset="/assets/logo-dark.svg"`)
	require.Contains(t, html, `<a href="https://github.com/hawkkiller/sizzle_starter" rel="me">github</a>`)
	require.Contains(t, html, "<strong>bold</strong>")
	require.Contains(t, html, `href="https://github.com/hawkkiller/sizzle_starter/edit/main/docs/get-started.md"`)
}

func TestRenderDocument_SidebarMarksActiveEntry(t *testing.T) {
	r, err := NewRenderer(testConfig())
	require.NoError(t, err)

	out, err := r.RenderDocument(testDoc(), testNav())
	require.NoError(t, err)
	html := string(out)

	require.Contains(t, html, `<span class="section-label">Get Started</span>`)
	require.Contains(t, html, `<a href="/get-started" class="active" aria-current="page">Get Started</a>`)
	// Exactly one sidebar entry for the page.
	require.Equal(t, 1, strings.Count(html, `href="/get-started"`))
}

func TestRenderDocument_Deterministic(t *testing.T) {
	r, err := NewRenderer(testConfig())
	require.NoError(t, err)

	first, err := r.RenderDocument(testDoc(), testNav())
	require.NoError(t, err)
	second, err := r.RenderDocument(testDoc(), testNav())
	require.NoError(t, err)

	require.Equal(t, first, second)
}

func TestRenderDocument_NoEditBase_OmitsEditLink(t *testing.T) {
	cfg := testConfig()
	cfg.Site.EditLinkBaseURL = ""
	r, err := NewRenderer(cfg)
	require.NoError(t, err)

	out, err := r.RenderDocument(testDoc(), testNav())
	require.NoError(t, err)
	require.NotContains(t, string(out), "edit-link")
}

func TestRenderDocument_AutoHeadingIDs(t *testing.T) {
	r, err := NewRenderer(testConfig())
	require.NoError(t, err)

	out, err := r.RenderDocument(testDoc(), testNav())
	require.NoError(t, err)
	require.Contains(t, string(out), `<h1 id="get-started">Get Started</h1>`)
}

func TestRenderHeadTag_AttributesSortedAndEscaped(t *testing.T) {
	html, err := renderHeadTag(config.HeadTag{
		Tag: "meta",
		Attributes: map[string]string{
			"name":    "og:title",
			"content": `Docs "quoted"`,
		},
	})
	require.NoError(t, err)
	require.Equal(t, `<meta content="Docs &#34;quoted&#34;" name="og:title">`, string(html))
}

func TestRenderHeadTag_NonVoidElement_GetsClosingTag(t *testing.T) {
	html, err := renderHeadTag(config.HeadTag{
		Tag:        "script",
		Attributes: map[string]string{"src": "/assets/app.js", "defer": ""},
	})
	require.NoError(t, err)
	require.Equal(t, `<script defer="" src="/assets/app.js"></script>`, string(html))
}

func TestRenderHeadTag_InvalidTagName_Fails(t *testing.T) {
	_, err := renderHeadTag(config.HeadTag{Tag: "meta><script"})
	require.Error(t, err)
}

func TestRenderHeadTag_InvalidAttributeName_Fails(t *testing.T) {
	_, err := renderHeadTag(config.HeadTag{
		Tag:        "meta",
		Attributes: map[string]string{`on"load`: "x"},
	})
	require.Error(t, err)
}

func TestSidebar_CollapsedSectionsAndEscaping(t *testing.T) {
	items := []*nav.Item{
		{Label: "A & B", Collapsed: true, Children: []*nav.Item{
			{Label: "<script>", Route: "/xss"},
		}},
	}

	html := string(renderSidebar(items, "/other"))
	require.Contains(t, html, `<li class="section collapsed">`)
	require.Contains(t, html, "A &amp; B")
	require.Contains(t, html, "&lt;script&gt;")
	require.NotContains(t, html, "<script>")
}

func TestSitemap_SortedWithBaseURL(t *testing.T) {
	out := string(Sitemap("https://docs.example.com/", []string{"/guides/intro", "/", "/get-started"}))

	require.Contains(t, out, "<loc>https://docs.example.com/</loc>")
	require.Contains(t, out, "<loc>https://docs.example.com/get-started</loc>")
	require.Less(t,
		strings.Index(out, "https://docs.example.com/get-started"),
		strings.Index(out, "https://docs.example.com/guides/intro"))
	require.NotContains(t, out, "lastmod")
}

func TestSitemap_NoBaseURL_EmitsRootRelative(t *testing.T) {
	out := string(Sitemap("", []string{"/"}))
	require.Contains(t, out, "<loc>/</loc>")
}
