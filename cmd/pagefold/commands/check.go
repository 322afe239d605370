package commands

import (
	"bytes"
	"context"
	stderrors "errors"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/pagefold/pagefold/internal/config"
	"github.com/pagefold/pagefold/internal/content"
	"github.com/pagefold/pagefold/internal/errors"
	"github.com/pagefold/pagefold/internal/linkcheck"
	"github.com/pagefold/pagefold/internal/nav"
	"github.com/pagefold/pagefold/internal/render"
)

// CheckCmd implements the 'check' command: validate the configuration, the
// corpus and the navigation without writing any output. Exit code 1 when
// fatal findings exist, 2 when only warnings do.
type CheckCmd struct {
	External    bool          `help:"Verify external links over the network"`
	Timeout     time.Duration `default:"10s" help:"Per-request timeout for external link checks"`
	Concurrency int           `default:"8" help:"Concurrent external link requests"`
}

func (c *CheckCmd) Run(_ *Global, root *CLI) error {
	ctx, cancel := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer cancel()

	findings := c.collect(ctx, root.Config)

	useColor := isColorSupported()
	fatals, warnings := 0, 0
	for _, f := range findings {
		if f.Severity == errors.SeverityFatal {
			fatals++
		} else {
			warnings++
		}
		printFinding(f, useColor)
	}

	switch {
	case fatals > 0:
		fmt.Printf("%d error(s), %d warning(s)\n", fatals, warnings)
		os.Exit(1)
	case warnings > 0:
		fmt.Printf("%d warning(s)\n", warnings)
		os.Exit(2)
	}
	fmt.Println("no issues found")
	return nil
}

// collect gathers every finding check can produce. Config and corpus
// problems end the walk early when later checks would only cascade.
func (c *CheckCmd) collect(ctx context.Context, configPath string) []*errors.PagefoldError {
	cfg, err := config.Load(configPath)
	if err != nil {
		return []*errors.PagefoldError{asFinding(err)}
	}

	res, err := content.NewScanner(cfg.Content.Dir).Scan()
	if err != nil {
		return []*errors.PagefoldError{asFinding(err)}
	}
	findings := append([]*errors.PagefoldError{}, res.Issues...)

	items, navIssues := nav.NewResolver(res.Corpus).Resolve(cfg.Nav)
	findings = append(findings, navIssues...)

	// External verification only runs against a corpus that would build; fix
	// fatal findings first.
	if c.External && len(findings) == 0 {
		findings = append(findings, c.checkExternal(ctx, cfg, res.Corpus, items)...)
	}
	return findings
}

// checkExternal renders every document in memory, extracts outbound links
// and HEAD-checks them. Unreachable links are warnings: the site still
// builds, the reader just hits a dead end.
func (c *CheckCmd) checkExternal(ctx context.Context, cfg *config.Config, corpus *content.Corpus, items []*nav.Item) []*errors.PagefoldError {
	renderer, err := render.NewRenderer(cfg)
	if err != nil {
		return []*errors.PagefoldError{asFinding(err)}
	}

	sourceOf := make(map[string]string)
	var urls []string
	for _, doc := range corpus.Documents {
		page, err := renderer.RenderDocument(doc, items)
		if err != nil {
			return []*errors.PagefoldError{asFinding(err)}
		}
		links, err := linkcheck.Extract(bytes.NewReader(page), cfg.Output.BaseURL)
		if err != nil {
			return []*errors.PagefoldError{asFinding(err)}
		}
		for _, u := range linkcheck.ExternalURLs(links) {
			if _, seen := sourceOf[u]; !seen {
				sourceOf[u] = doc.SourceFile
			}
			urls = append(urls, u)
		}
	}
	if len(urls) == 0 {
		return nil
	}

	var findings []*errors.PagefoldError
	checker := linkcheck.NewChecker(c.Timeout, c.Concurrency)
	for _, r := range checker.Check(ctx, urls) {
		if r.OK() {
			continue
		}
		findings = append(findings, errors.New(errors.KindContent, errors.SeverityWarning,
			fmt.Sprintf("external link %s unreachable: %s", r.URL, r.Err)).
			WithField("file", sourceOf[r.URL]).
			WithField("url", r.URL))
	}
	return findings
}

// asFinding coerces any error into a finding. Unclassified errors become
// internal fatals so they still count against the exit code.
func asFinding(err error) *errors.PagefoldError {
	var pe *errors.PagefoldError
	if stderrors.As(err, &pe) {
		return pe
	}
	return errors.Wrap(err, errors.KindInternal, errors.SeverityFatal, "check failed")
}

func printFinding(f *errors.PagefoldError, useColor bool) {
	label := string(f.Severity)
	if useColor {
		switch f.Severity {
		case errors.SeverityFatal:
			label = "\x1b[31m" + label + "\x1b[0m"
		case errors.SeverityWarning:
			label = "\x1b[33m" + label + "\x1b[0m"
		}
	}
	if file, ok := f.Fields["file"].(string); ok && file != "" {
		fmt.Printf("%s %s: %s\n", label, file, f.Message)
		return
	}
	fmt.Printf("%s %s\n", label, f.Message)
}

// isColorSupported checks if the terminal supports color output.
func isColorSupported() bool {
	if fileInfo, _ := os.Stdout.Stat(); (fileInfo.Mode() & os.ModeCharDevice) == 0 {
		return false
	}
	// https://no-color.org/
	if os.Getenv("NO_COLOR") != "" {
		return false
	}
	term := os.Getenv("TERM")
	if term == "dumb" || term == "" {
		return false
	}
	return true
}
