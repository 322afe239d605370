// Package nav resolves the configured navigation tree against the scanned
// corpus: autogenerate sections expand from the directory's file set, and
// every link target must resolve to an existing document route. A dangling
// link or duplicate derived label is a fatal configuration error, never a
// silent omission.
package nav

import (
	"fmt"
	"path"
	"sort"
	"strings"

	"golang.org/x/text/cases"
	"golang.org/x/text/language"

	"github.com/pagefold/pagefold/internal/config"
	"github.com/pagefold/pagefold/internal/content"
	"github.com/pagefold/pagefold/internal/errors"
)

// Item is one resolved sidebar entry. Links carry a Route; sections carry
// Children. Exactly one of the two is set.
type Item struct {
	Label     string
	Route     string
	Collapsed bool
	Children  []*Item
}

// IsLink reports whether the item navigates to a page.
func (it *Item) IsLink() bool { return it.Route != "" }

// Walk visits the item and all descendants depth-first in order.
func (it *Item) Walk(visit func(item *Item, depth int)) {
	it.walk(visit, 0)
}

func (it *Item) walk(visit func(item *Item, depth int), depth int) {
	visit(it, depth)
	for _, child := range it.Children {
		child.walk(visit, depth+1)
	}
}

// Resolver expands and verifies navigation trees against one corpus.
type Resolver struct {
	corpus *content.Corpus
	titler cases.Caser
}

// NewResolver creates a resolver over the scanned corpus.
func NewResolver(corpus *content.Corpus) *Resolver {
	return &Resolver{
		corpus: corpus,
		titler: cases.Title(language.English),
	}
}

// Resolve expands the configured tree. All navigation issues found are
// returned together so one run reports every dangling link; any issue is
// fatal to the build.
func (r *Resolver) Resolve(nodes []*config.NavNode) ([]*Item, []*errors.PagefoldError) {
	var issues []*errors.PagefoldError
	items := r.resolveSiblings(nodes, "nav", &issues)
	return items, issues
}

func (r *Resolver) resolveSiblings(nodes []*config.NavNode, at string, issues *[]*errors.PagefoldError) []*Item {
	items := make([]*Item, 0, len(nodes))

	for i, node := range nodes {
		where := fmt.Sprintf("%s[%d]", at, i)

		switch {
		case node.IsLink():
			if !r.corpus.HasRoute(node.Link) {
				*issues = append(*issues, errors.Config(
					fmt.Sprintf("%s (%q): link target %s does not resolve to any document", where, node.Label, node.Link)).
					WithField("label", node.Label).
					WithField("route", node.Link))
				continue
			}
			items = append(items, &Item{Label: node.Label, Route: node.Link})

		case node.Autogenerate != nil:
			children := r.expandDir(node.Autogenerate.Dir, where, issues)
			if len(children) == 0 {
				*issues = append(*issues, errors.Config(
					fmt.Sprintf("%s (%q): autogenerate matched no documents under %q", where, node.Label, node.Autogenerate.Dir)).
					WithField("label", node.Label))
				continue
			}
			items = append(items, &Item{
				Label:     node.Label,
				Collapsed: node.Collapsed,
				Children:  children,
			})

		default:
			items = append(items, &Item{
				Label:     node.Label,
				Collapsed: node.Collapsed,
				Children:  r.resolveSiblings(node.Children, where+".children", issues),
			})
		}
	}

	return items
}

// expandDir derives a sibling list from a content directory: documents
// first in source-file order, then subdirectories as nested sections in
// name order. Document labels come from their required titles;
// subdirectory labels are title-cased directory names.
func (r *Resolver) expandDir(dir, where string, issues *[]*errors.PagefoldError) []*Item {
	dir = strings.Trim(path.Clean(dir), "/")

	var items []*Item
	seen := make(map[string]string)

	for _, doc := range r.corpus.InDir(dir) {
		if prev, dup := seen[doc.Title]; dup {
			*issues = append(*issues, errors.Config(
				fmt.Sprintf("%s: autogenerated label %q from %s collides with %s", where, doc.Title, doc.SourceFile, prev)).
				WithField("label", doc.Title))
			continue
		}
		seen[doc.Title] = doc.SourceFile
		items = append(items, &Item{Label: doc.Title, Route: doc.Route})
	}

	for _, sub := range r.subDirs(dir) {
		label := r.dirLabel(sub)
		if prev, dup := seen[label]; dup {
			*issues = append(*issues, errors.Config(
				fmt.Sprintf("%s: autogenerated label %q from directory %s collides with %s", where, label, sub, prev)).
				WithField("label", label))
			continue
		}
		seen[label] = sub

		children := r.expandDir(path.Join(dir, sub), where, issues)
		if len(children) == 0 {
			continue
		}
		items = append(items, &Item{Label: label, Children: children})
	}

	return items
}

// subDirs lists the immediate subdirectories of dir that contain documents
// anywhere beneath them, sorted by name.
func (r *Resolver) subDirs(dir string) []string {
	prefix := dir
	if prefix != "" {
		prefix += "/"
	}

	set := make(map[string]struct{})
	for _, doc := range r.corpus.Documents {
		d := doc.Dir()
		if !strings.HasPrefix(d, prefix) || d == dir {
			continue
		}
		rest := strings.TrimPrefix(d, prefix)
		first := strings.SplitN(rest, "/", 2)[0]
		if first != "" {
			set[first] = struct{}{}
		}
	}

	subs := make([]string, 0, len(set))
	for s := range set {
		subs = append(subs, s)
	}
	sort.Strings(subs)
	return subs
}

// dirLabel turns a directory name into a section label.
func (r *Resolver) dirLabel(name string) string {
	cleaned := strings.ReplaceAll(strings.ReplaceAll(name, "-", " "), "_", " ")
	return r.titler.String(cleaned)
}
