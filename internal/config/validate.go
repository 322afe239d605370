package config

import (
	"fmt"
	"net/url"
	"path"
	"strings"
	"time"

	"github.com/pagefold/pagefold/internal/errors"
)

// Validate checks the configuration shape. It does not touch the content
// corpus; corpus-dependent checks (dangling links, autogenerate directories)
// happen during navigation resolution.
func (c *Config) Validate() error {
	v := &configValidator{config: c}
	return v.validate()
}

// configValidator coordinates validation across the configuration domains.
type configValidator struct {
	config *Config
}

func (cv *configValidator) validate() error {
	if err := cv.validateSite(); err != nil {
		return err
	}
	if err := cv.validateNav(); err != nil {
		return err
	}
	if err := cv.validateContent(); err != nil {
		return err
	}
	if err := cv.validateServe(); err != nil {
		return err
	}
	return nil
}

func (cv *configValidator) validateSite() error {
	site := cv.config.Site

	if strings.TrimSpace(site.Title) == "" {
		return errors.Config("site.title must not be empty")
	}

	for platform, raw := range site.Social {
		u, err := url.Parse(raw)
		if err != nil || u.Scheme == "" || u.Host == "" {
			return errors.Config(fmt.Sprintf("site.social.%s is not an absolute URL: %q", platform, raw))
		}
	}

	if site.EditLinkBaseURL != "" {
		u, err := url.Parse(site.EditLinkBaseURL)
		if err != nil || u.Scheme == "" || u.Host == "" {
			return errors.Config(fmt.Sprintf("site.edit_link_base_url is not an absolute URL: %q", site.EditLinkBaseURL))
		}
	}

	for i, tag := range site.HeadTags {
		if strings.TrimSpace(tag.Tag) == "" {
			return errors.Config(fmt.Sprintf("site.head_tags[%d].tag must not be empty", i))
		}
	}

	return nil
}

// validateNav enforces the structural navigation invariants: every node is
// exactly one of link/section, labels are non-empty and unique within each
// sibling list, link targets are site-absolute routes, and autogenerate
// directories stay inside the content root.
func (cv *configValidator) validateNav() error {
	return cv.validateSiblings(cv.config.Nav, "nav")
}

func (cv *configValidator) validateSiblings(siblings []*NavNode, at string) error {
	seen := make(map[string]bool, len(siblings))

	for i, node := range siblings {
		where := fmt.Sprintf("%s[%d]", at, i)

		if strings.TrimSpace(node.Label) == "" {
			return errors.Config(fmt.Sprintf("%s: label must not be empty", where))
		}
		if seen[node.Label] {
			return errors.Config(fmt.Sprintf("%s: duplicate sibling label %q", where, node.Label)).
				WithField("label", node.Label)
		}
		seen[node.Label] = true

		isLink := node.IsLink()
		isSection := node.IsSection()
		switch {
		case isLink && isSection:
			return errors.Config(fmt.Sprintf("%s (%q): node declares both a link and children", where, node.Label))
		case !isLink && !isSection:
			return errors.Config(fmt.Sprintf("%s (%q): node declares neither a link nor children", where, node.Label))
		}

		if isLink {
			if !strings.HasPrefix(node.Link, "/") {
				return errors.Config(fmt.Sprintf("%s (%q): link target must start with /: %q", where, node.Label, node.Link))
			}
			if node.Collapsed {
				return errors.Config(fmt.Sprintf("%s (%q): collapsed applies to sections only", where, node.Label))
			}
		}

		if node.Autogenerate != nil {
			if len(node.Children) > 0 {
				return errors.Config(fmt.Sprintf("%s (%q): autogenerate sections cannot declare explicit children", where, node.Label))
			}
			dir := node.Autogenerate.Dir
			if dir == "" {
				return errors.Config(fmt.Sprintf("%s (%q): autogenerate.dir must not be empty", where, node.Label))
			}
			clean := path.Clean(dir)
			if path.IsAbs(clean) || clean == ".." || strings.HasPrefix(clean, "../") {
				return errors.Config(fmt.Sprintf("%s (%q): autogenerate.dir must stay inside the content root: %q", where, node.Label, dir))
			}
		}

		if len(node.Children) > 0 {
			if err := cv.validateSiblings(node.Children, where+".children"); err != nil {
				return err
			}
		}
	}

	return nil
}

func (cv *configValidator) validateContent() error {
	content := cv.config.Content

	if content.Repo != "" {
		u, err := url.Parse(content.Repo)
		if err != nil || u.Scheme == "" {
			return errors.Config(fmt.Sprintf("content.repo is not a valid URL: %q", content.Repo))
		}
	}
	if content.Path != "" && content.Repo == "" {
		return errors.Config("content.path requires content.repo")
	}

	return nil
}

func (cv *configValidator) validateServe() error {
	if _, err := cv.config.RebuildEvery(); err != nil {
		return err
	}
	return nil
}

// RebuildEvery parses serve.rebuild_interval. Zero means the interval
// scheduler is disabled.
func (c *Config) RebuildEvery() (time.Duration, error) {
	raw := c.Serve.RebuildInterval
	if raw == "" {
		return 0, nil
	}
	d, err := time.ParseDuration(raw)
	if err != nil {
		return 0, errors.WrapConfig(err, fmt.Sprintf("serve.rebuild_interval is not a duration: %q", raw))
	}
	if d < 0 {
		return 0, errors.Config(fmt.Sprintf("serve.rebuild_interval must not be negative: %q", raw))
	}
	return d, nil
}
