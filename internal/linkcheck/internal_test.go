package linkcheck

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
)

func writeTree(t *testing.T, files map[string]string) string {
	t.Helper()
	root := t.TempDir()
	for name, body := range files {
		full := filepath.Join(root, filepath.FromSlash(name))
		if err := os.MkdirAll(filepath.Dir(full), 0o755); err != nil {
			t.Fatalf("mkdir: %v", err)
		}
		if err := os.WriteFile(full, []byte(body), 0o644); err != nil {
			t.Fatalf("write %s: %v", name, err)
		}
	}
	return root
}

func TestVerifyTree_AllInternalLinksResolve(t *testing.T) {
	root := writeTree(t, map[string]string{
		"index.html": `<html><body>
			<a href="/get-started">Get Started</a>
			<a href="/assets/site.css">css</a>
			<img src="/assets/logo.svg" alt="logo">
			<a href="#section">anchor</a>
			<a href="mailto:docs@example.com">mail</a>
		</body></html>`,
		"get-started/index.html": `<html><body><a href="/">home</a></body></html>`,
		"assets/site.css":        "body{}",
		"assets/logo.svg":        "<svg/>",
	})

	issues, err := VerifyTree(root, "https://docs.example.com")
	if err != nil {
		t.Fatalf("VerifyTree: %v", err)
	}
	if len(issues) != 0 {
		t.Fatalf("expected no issues, got %v", issues)
	}
}

func TestVerifyTree_BrokenLinkReported(t *testing.T) {
	root := writeTree(t, map[string]string{
		"index.html": `<html><body><a href="/missing">gone</a></body></html>`,
	})

	issues, err := VerifyTree(root, "https://docs.example.com")
	if err != nil {
		t.Fatalf("VerifyTree: %v", err)
	}
	if len(issues) != 1 {
		t.Fatalf("expected 1 issue, got %d", len(issues))
	}
	if !strings.Contains(issues[0].Message, "/missing") {
		t.Fatalf("issue does not name the target: %s", issues[0].Message)
	}
}

func TestVerifyTree_CollectsEveryBrokenReference(t *testing.T) {
	root := writeTree(t, map[string]string{
		"index.html": `<html><body>
			<a href="/gone-one">one</a>
			<img src="/gone-two.png">
		</body></html>`,
		"other/index.html": `<html><body><a href="/gone-three">three</a></body></html>`,
	})

	issues, err := VerifyTree(root, "https://docs.example.com")
	if err != nil {
		t.Fatalf("VerifyTree: %v", err)
	}
	if len(issues) != 3 {
		t.Fatalf("expected 3 issues, got %d: %v", len(issues), issues)
	}
}

func TestVerifyTree_RelativeLinksResolveAgainstPage(t *testing.T) {
	root := writeTree(t, map[string]string{
		"guides/intro/index.html": `<html><body><img src="../diagram.png"></body></html>`,
		"guides/diagram.png":      "png",
	})

	issues, err := VerifyTree(root, "https://docs.example.com")
	if err != nil {
		t.Fatalf("VerifyTree: %v", err)
	}
	if len(issues) != 0 {
		t.Fatalf("expected no issues, got %v", issues)
	}
}

func TestVerifyTree_SameHostAbsoluteURLChecked(t *testing.T) {
	root := writeTree(t, map[string]string{
		"index.html": `<html><body><a href="https://docs.example.com/missing">x</a></body></html>`,
	})

	issues, err := VerifyTree(root, "https://docs.example.com")
	if err != nil {
		t.Fatalf("VerifyTree: %v", err)
	}
	if len(issues) != 1 {
		t.Fatalf("expected same-host URL to be verified, got %d issues", len(issues))
	}
}

func TestVerifyTree_ExternalLinksIgnored(t *testing.T) {
	root := writeTree(t, map[string]string{
		"index.html": `<html><body><a href="https://github.com/hawkkiller/sizzle_starter">repo</a></body></html>`,
	})

	issues, err := VerifyTree(root, "https://docs.example.com")
	if err != nil {
		t.Fatalf("VerifyTree: %v", err)
	}
	if len(issues) != 0 {
		t.Fatalf("external link must not be verified against the tree: %v", issues)
	}
}

func TestVerifyTree_QueryAndFragmentStripped(t *testing.T) {
	root := writeTree(t, map[string]string{
		"index.html":      `<html><body><a href="/page?tab=1#anchor">page</a></body></html>`,
		"page/index.html": "<html></html>",
	})

	issues, err := VerifyTree(root, "https://docs.example.com")
	if err != nil {
		t.Fatalf("VerifyTree: %v", err)
	}
	if len(issues) != 0 {
		t.Fatalf("expected query/fragment to be ignored, got %v", issues)
	}
}

func TestVerifyTree_EscapingRootIsBroken(t *testing.T) {
	root := writeTree(t, map[string]string{
		"index.html": `<html><body><a href="/../outside">x</a></body></html>`,
	})

	issues, err := VerifyTree(root, "https://docs.example.com")
	if err != nil {
		t.Fatalf("VerifyTree: %v", err)
	}
	if len(issues) != 1 {
		t.Fatalf("expected root-escaping link to be reported, got %d", len(issues))
	}
}

func TestExtract_CollectsTagsAndClassifies(t *testing.T) {
	page := `<html><head><link rel="stylesheet" href="/assets/site.css"></head><body>
		<a href="https://example.org/ext">ext</a>
		<a href="/internal">int</a>
		<script src="/assets/app.js"></script>
	</body></html>`

	links, err := Extract(strings.NewReader(page), "https://docs.example.com")
	if err != nil {
		t.Fatalf("Extract: %v", err)
	}
	if len(links) != 4 {
		t.Fatalf("expected 4 links, got %d", len(links))
	}

	internal := 0
	for _, l := range links {
		if l.IsInternal {
			internal++
		}
	}
	if internal != 3 {
		t.Fatalf("expected 3 internal links, got %d", internal)
	}
}
