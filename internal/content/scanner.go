package content

import (
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"github.com/pagefold/pagefold/internal/errors"
	"github.com/pagefold/pagefold/internal/frontmatter"
	"github.com/pagefold/pagefold/internal/logfields"
)

// Corpus is the scanned document set for one build.
type Corpus struct {
	Documents []*Document
	Assets    []Asset

	byRoute map[string]*Document
}

// Scanner walks a content root and parses every document independently.
type Scanner struct {
	root string
}

// NewScanner creates a scanner over the given content root.
func NewScanner(root string) *Scanner {
	return &Scanner{root: root}
}

// ScanResult carries the corpus plus every per-document error found. Issues
// are fatal individually; callers decide how to surface them (the build
// stage fails when any exist, check lists them all).
type ScanResult struct {
	Corpus *Corpus
	Issues []*errors.PagefoldError
}

// Scan walks the content root. The returned error covers walk-level
// failures only (missing root, unreadable directories); per-document parse
// failures land in ScanResult.Issues.
func (s *Scanner) Scan() (*ScanResult, error) {
	info, err := os.Stat(s.root)
	if err != nil {
		return nil, errors.WrapConfig(err, fmt.Sprintf("content root not found: %s", s.root))
	}
	if !info.IsDir() {
		return nil, errors.Config(fmt.Sprintf("content root is not a directory: %s", s.root))
	}

	result := &ScanResult{
		Corpus: &Corpus{byRoute: make(map[string]*Document)},
	}

	err = filepath.Walk(s.root, func(p string, info os.FileInfo, err error) error {
		if err != nil {
			return err
		}
		if info.IsDir() {
			// Hidden directories are never content.
			if p != s.root && strings.HasPrefix(info.Name(), ".") {
				return filepath.SkipDir
			}
			return nil
		}
		if strings.HasPrefix(info.Name(), ".") {
			return nil
		}

		relPath, err := filepath.Rel(s.root, p)
		if err != nil {
			return fmt.Errorf("invalid relative path for %s: %w", p, err)
		}
		rel := filepath.ToSlash(relPath)
		atRoot := !strings.Contains(rel, "/")

		switch {
		case isMarkdownFile(p):
			if atRoot && isIgnoredFile(info.Name()) {
				return nil
			}
			doc, perr := s.parseDocument(p, rel)
			if perr != nil {
				result.Issues = append(result.Issues, perr)
				return nil
			}
			if existing, dup := result.Corpus.byRoute[doc.Route]; dup {
				result.Issues = append(result.Issues, errors.Content(rel,
					fmt.Sprintf("route %s already provided by %s", doc.Route, existing.SourceFile)).
					WithField("route", doc.Route))
				return nil
			}
			result.Corpus.Documents = append(result.Corpus.Documents, doc)
			result.Corpus.byRoute[doc.Route] = doc
			slog.Debug("Discovered document", logfields.File(rel), logfields.Route(doc.Route))
		case isAsset(p):
			result.Corpus.Assets = append(result.Corpus.Assets, Asset{SourceFile: rel, AbsPath: p})
			slog.Debug("Discovered asset", logfields.File(rel))
		}

		return nil
	})
	if err != nil {
		return nil, errors.Wrap(err, errors.KindContent, errors.SeverityFatal, "content walk failed")
	}

	// filepath.Walk is lexical already; sorting by route keeps downstream
	// output ordering independent of the walk.
	sort.Slice(result.Corpus.Documents, func(i, j int) bool {
		return result.Corpus.Documents[i].Route < result.Corpus.Documents[j].Route
	})
	sort.Slice(result.Corpus.Assets, func(i, j int) bool {
		return result.Corpus.Assets[i].SourceFile < result.Corpus.Assets[j].SourceFile
	})

	slog.Info("Content scan complete",
		logfields.Count(len(result.Corpus.Documents)),
		slog.Int("assets", len(result.Corpus.Assets)),
		slog.Int("issues", len(result.Issues)))

	return result, nil
}

// parseDocument reads and parses one file. Any failure is a ContentError
// attributed to that file alone.
func (s *Scanner) parseDocument(absPath, rel string) (*Document, *errors.PagefoldError) {
	raw, err := os.ReadFile(absPath)
	if err != nil {
		return nil, errors.WrapContent(err, rel, "failed to read document")
	}

	fm, body, had, err := frontmatter.Split(raw)
	if err != nil {
		return nil, errors.WrapContent(err, rel, "malformed frontmatter block")
	}
	if !had {
		return nil, errors.Content(rel, "document has no frontmatter; title and description are required")
	}

	meta, err := frontmatter.DecodeMeta(fm)
	if err != nil {
		return nil, errors.WrapContent(err, rel, "unparseable frontmatter")
	}
	if missing := meta.MissingFields(); len(missing) > 0 {
		return nil, errors.Content(rel,
			fmt.Sprintf("missing required frontmatter: %s", strings.Join(missing, ", "))).
			WithField("missing", missing)
	}

	return &Document{
		Route:       RouteFor(rel),
		SourceFile:  rel,
		Title:       meta.Title,
		Description: meta.Description,
		Body:        body,
		Meta:        meta,
	}, nil
}

// HasRoute reports whether a document provides the route.
func (c *Corpus) HasRoute(route string) bool {
	_, ok := c.byRoute[route]
	return ok
}

// ByRoute returns the document providing the route, or nil.
func (c *Corpus) ByRoute(route string) *Document {
	return c.byRoute[route]
}

// Routes returns all document routes sorted.
func (c *Corpus) Routes() []string {
	routes := make([]string, 0, len(c.byRoute))
	for route := range c.byRoute {
		routes = append(routes, route)
	}
	sort.Strings(routes)
	return routes
}

// InDir returns the documents whose source files live directly in the given
// content-root-relative directory, sorted by source file name. Used for
// autogenerated navigation sections.
func (c *Corpus) InDir(dir string) []*Document {
	dir = strings.Trim(filepath.ToSlash(dir), "/")
	var docs []*Document
	for _, doc := range c.Documents {
		if doc.Dir() == dir {
			docs = append(docs, doc)
		}
	}
	sort.Slice(docs, func(i, j int) bool {
		return docs[i].SourceFile < docs[j].SourceFile
	})
	return docs
}
