package linkcheck

import (
	"io/fs"
	"net/url"
	"os"
	"path"
	"path/filepath"
	"sort"
	"strings"

	"github.com/pagefold/pagefold/internal/errors"
)

// VerifyTree checks every internal reference in the rendered tree under root.
// A reference resolves when it names an existing file or a route directory
// holding an index.html. All broken references are returned together; any
// finding fails the build.
func VerifyTree(root, baseURL string) ([]*errors.PagefoldError, error) {
	if _, err := url.Parse(baseURL); err != nil {
		return nil, errors.WrapConfig(err, "invalid base URL for link verification")
	}

	var issues []*errors.PagefoldError
	walkErr := filepath.WalkDir(root, func(p string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if d.IsDir() || !strings.HasSuffix(d.Name(), ".html") {
			return nil
		}

		rel, err := filepath.Rel(root, p)
		if err != nil {
			return err
		}
		pagePath := "/" + filepath.ToSlash(rel)

		links, err := ExtractFile(p, baseURL)
		if err != nil {
			issues = append(issues, errors.WrapContent(err, pagePath, "link extraction failed"))
			return nil
		}
		for _, link := range links {
			if !link.IsInternal || !shouldCheck(link) {
				continue
			}
			target := resolveInternal(link.URL, pagePath)
			if target == "" || !targetExists(root, target) {
				issues = append(issues, errors.Content(pagePath,
					"internal link "+link.URL+" does not resolve to any rendered file").
					WithField("url", link.URL).
					WithField("tag", link.Tag))
			}
		}
		return nil
	})
	if walkErr != nil {
		return nil, errors.WrapContent(walkErr, root, "cannot walk rendered output")
	}

	sort.Slice(issues, func(i, j int) bool { return issues[i].Message < issues[j].Message })
	return issues, nil
}

// resolveInternal turns a raw internal reference into a clean absolute site
// path. Relative references resolve against the referencing page's directory;
// path cleaning clamps them at the site root. Unparseable references resolve
// to "".
func resolveInternal(raw, pagePath string) string {
	u, err := url.Parse(raw)
	if err != nil {
		return ""
	}
	// Drops query and fragment; same-host absolute URLs reduce to their path.
	raw = u.Path
	if raw == "" {
		if u.Host != "" {
			return "/"
		}
		// Fragment- or query-only reference targets the page itself.
		return pagePath
	}

	if strings.HasPrefix(raw, "/") {
		return path.Clean(raw)
	}
	return path.Join(path.Dir(pagePath), raw)
}

func targetExists(root, target string) bool {
	rel := filepath.FromSlash(strings.TrimPrefix(target, "/"))
	if rel == "" {
		rel = "."
	}
	full := filepath.Join(root, rel)
	if fi, err := os.Stat(full); err == nil {
		if !fi.IsDir() {
			return true
		}
		// Directories only count when they hold a rendered index.
		if _, err := os.Stat(filepath.Join(full, "index.html")); err == nil {
			return true
		}
	}
	return false
}
