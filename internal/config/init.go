package config

import (
	"fmt"
	"os"
	"path/filepath"

	"gopkg.in/yaml.v3"

	"github.com/pagefold/pagefold/internal/frontmatter"
)

// Init creates a new configuration file with example content plus a starter
// content tree the example navigation resolves against.
func Init(configPath string, force bool) error {
	if _, err := os.Stat(configPath); err == nil && !force {
		return fmt.Errorf("configuration file already exists: %s (use --force to overwrite)", configPath)
	}

	example := Config{
		Site: Site{
			Title: "My Documentation",
			Social: map[string]string{
				"github": "https://github.com/example/project",
			},
			Favicon: "assets/favicon.ico",
			Logo: Logo{
				Light: "assets/logo-light.svg",
				Dark:  "assets/logo-dark.svg",
			},
			EditLinkBaseURL: "https://github.com/example/project/edit/main/docs",
			HeadTags: []HeadTag{
				{Tag: "meta", Attributes: map[string]string{"name": "theme-color", "content": "#1d76db"}},
			},
		},
		Nav: []*NavNode{
			{Label: "Overview", Link: "/"},
			{
				Label: "Get Started",
				Children: []*NavNode{
					{Label: "Get Started", Link: "/get-started"},
				},
			},
			{
				Label:        "Guides",
				Collapsed:    true,
				Autogenerate: &AutogenRule{Dir: "guides"},
			},
		},
		Content: ContentConfig{Dir: DefaultContentDir},
		Output:  OutputConfig{Directory: DefaultOutputDir},
		Deploy:  DeployConfig{Project: "my-docs"},
	}

	data, err := yaml.Marshal(&example)
	if err != nil {
		return fmt.Errorf("failed to marshal config: %w", err)
	}

	if err := os.WriteFile(configPath, data, 0o644); err != nil {
		return fmt.Errorf("failed to write config file: %w", err)
	}

	base := filepath.Dir(configPath)
	return scaffoldContent(filepath.Join(base, example.Content.Dir), force)
}

// scaffoldContent writes the starter documents referenced by the example
// navigation. Existing files are left alone unless force is set.
func scaffoldContent(contentDir string, force bool) error {
	starters := []struct {
		relPath string
		meta    map[string]any
		body    string
	}{
		{
			relPath: "index.md",
			meta: map[string]any{
				"title":       "Overview",
				"description": "What this documentation covers",
			},
			body: "# Overview\n\nWelcome. Start with [Get Started](/get-started).\n",
		},
		{
			relPath: "get-started.md",
			meta: map[string]any{
				"title":       "Get Started",
				"description": "Set up the project in five minutes",
			},
			body: "# Get Started\n\n1. Install.\n2. Configure.\n3. Build.\n",
		},
		{
			relPath: filepath.Join("guides", "writing-pages.md"),
			meta: map[string]any{
				"title":       "Writing Pages",
				"description": "How to add a new documentation page",
			},
			body: "# Writing Pages\n\nAdd a markdown file with title and description frontmatter.\n",
		},
	}

	for _, s := range starters {
		target := filepath.Join(contentDir, s.relPath)
		if _, err := os.Stat(target); err == nil && !force {
			continue
		}
		if err := os.MkdirAll(filepath.Dir(target), 0o755); err != nil {
			return fmt.Errorf("failed to create content directory: %w", err)
		}

		doc, err := frontmatter.Compose(s.meta, []byte(s.body))
		if err != nil {
			return fmt.Errorf("failed to serialize frontmatter for %s: %w", s.relPath, err)
		}

		if err := os.WriteFile(target, doc, 0o644); err != nil {
			return fmt.Errorf("failed to write %s: %w", s.relPath, err)
		}
	}

	return nil
}
