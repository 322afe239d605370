// Package content scans the content root into the document corpus. Every
// markdown file becomes one Document with a route derived from its location;
// title and description frontmatter are required. Documents are independent:
// a parse failure is fatal to that document only, and the scanner keeps
// going so a single run reports every offending file.
package content

import (
	"path"
	"path/filepath"
	"strings"

	"github.com/pagefold/pagefold/internal/frontmatter"
)

// Document is one static content page.
type Document struct {
	Route       string           // site-absolute route, e.g. /guides/intro
	SourceFile  string           // path relative to the content root, always forward slashes
	Title       string
	Description string
	Body        []byte           // markdown body without frontmatter
	Meta        frontmatter.Meta // full decoded frontmatter
}

// Asset is a non-markdown file copied through to the output unchanged.
type Asset struct {
	SourceFile string // path relative to the content root, always forward slashes
	AbsPath    string
}

// RouteFor derives the site route from a content-root-relative file path.
// index files collapse onto their directory: index.md at the root maps to
// "/", guides/index.md maps to "/guides". Routes are lowercased.
func RouteFor(relPath string) string {
	p := filepath.ToSlash(relPath)
	p = strings.TrimSuffix(p, path.Ext(p))
	p = strings.ToLower(p)

	if path.Base(p) == "index" {
		p = path.Dir(p)
		if p == "." {
			p = ""
		}
	}

	p = strings.Trim(p, "/")
	if p == "" {
		return "/"
	}
	return "/" + p
}

// OutputPath maps a route to the file it renders into: "/" becomes
// index.html, any other route becomes <route>/index.html so links need no
// extension.
func OutputPath(route string) string {
	if route == "/" {
		return "index.html"
	}
	return filepath.Join(filepath.FromSlash(strings.TrimPrefix(route, "/")), "index.html")
}

// Dir returns the source file's directory relative to the content root
// ("" for top-level documents).
func (d *Document) Dir() string {
	dir := path.Dir(d.SourceFile)
	if dir == "." {
		return ""
	}
	return dir
}

func isMarkdownFile(filename string) bool {
	ext := strings.ToLower(filepath.Ext(filename))
	return ext == ".md" || ext == ".markdown" || ext == ".mdown" || ext == ".mkd"
}

// isAsset checks if a file is an asset copied through unchanged.
func isAsset(filename string) bool {
	ext := strings.ToLower(filepath.Ext(filename))
	assetExtensions := []string{
		// Images
		".png", ".jpg", ".jpeg", ".gif", ".svg", ".webp", ".bmp", ".ico",
		// Documents
		".pdf",
		// Video
		".mp4", ".webm", ".ogv",
		// Other
		".csv", ".json", ".xml", ".txt", ".css", ".js",
	}
	for _, assetExt := range assetExtensions {
		if ext == assetExt {
			return true
		}
	}
	return false
}

// isIgnoredFile checks if a root-level file should be ignored. These are
// repository housekeeping files, not documentation.
func isIgnoredFile(filename string) bool {
	ignored := []string{
		"README.md",
		"CONTRIBUTING.md",
		"CHANGELOG.md",
		"LICENSE.md",
	}
	for _, ignore := range ignored {
		if strings.EqualFold(filename, ignore) {
			return true
		}
	}
	return false
}
