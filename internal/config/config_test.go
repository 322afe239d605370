package config

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/pagefold/pagefold/internal/errors"
)

const minimalYAML = `
site:
  title: Sizzle Starter
  social:
    github: https://github.com/hawkkiller/sizzle_starter
nav:
  - label: Get Started
    children:
      - label: Get Started
        link: /get-started
`

func TestParse_MinimalConfig_AppliesDefaults(t *testing.T) {
	cfg, err := Parse([]byte(minimalYAML))
	require.NoError(t, err)

	require.Equal(t, "Sizzle Starter", cfg.Site.Title)
	require.Equal(t, "https://github.com/hawkkiller/sizzle_starter", cfg.Site.Social["github"])
	require.Equal(t, DefaultContentDir, cfg.Content.Dir)
	require.Equal(t, DefaultOutputDir, cfg.Output.Directory)
	require.Equal(t, DefaultStateDir, cfg.Output.StateDir)
	require.Equal(t, DefaultAPIURL, cfg.Deploy.APIURL)
	require.Equal(t, DefaultServeAddr, cfg.Serve.Addr)
	require.Equal(t, DefaultSubject, cfg.Events.Subject)
}

func TestParse_NavTree_DecodesRecursively(t *testing.T) {
	cfg, err := Parse([]byte(minimalYAML))
	require.NoError(t, err)

	require.Len(t, cfg.Nav, 1)
	section := cfg.Nav[0]
	require.Equal(t, "Get Started", section.Label)
	require.True(t, section.IsSection())
	require.False(t, section.IsLink())

	require.Len(t, section.Children, 1)
	link := section.Children[0]
	require.True(t, link.IsLink())
	require.Equal(t, "/get-started", link.Link)
}

func TestParse_UnknownField_Rejected(t *testing.T) {
	yaml := `
site:
  title: Docs
  sidebar_width: 200
nav:
  - label: Home
    link: /
`
	_, err := Parse([]byte(yaml))
	require.Error(t, err)
	require.True(t, errors.IsKind(err, errors.KindConfig))
}

func TestParse_EnvExpansion_ResolvesReferences(t *testing.T) {
	t.Setenv("DOCS_TITLE", "Expanded Title")

	yaml := `
site:
  title: ${DOCS_TITLE}
nav:
  - label: Home
    link: /
`
	cfg, err := Parse([]byte(yaml))
	require.NoError(t, err)
	require.Equal(t, "Expanded Title", cfg.Site.Title)
}

func TestParse_HeadTags_OrderPreserved(t *testing.T) {
	yaml := `
site:
  title: Docs
  head_tags:
    - tag: meta
      attributes: {name: theme-color, content: "#fff"}
    - tag: link
      attributes: {rel: preconnect, href: https://fonts.example.com}
nav:
  - label: Home
    link: /
`
	cfg, err := Parse([]byte(yaml))
	require.NoError(t, err)
	require.Len(t, cfg.Site.HeadTags, 2)
	require.Equal(t, "meta", cfg.Site.HeadTags[0].Tag)
	require.Equal(t, "link", cfg.Site.HeadTags[1].Tag)
}

func TestLoad_MissingFile_ReturnsConfigError(t *testing.T) {
	_, err := Load(filepath.Join(t.TempDir(), "absent.yaml"))
	require.Error(t, err)
	require.True(t, errors.IsKind(err, errors.KindConfig))
}

func TestLoad_FromDisk_ParsesFile(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "site.yaml")
	require.NoError(t, os.WriteFile(path, []byte(minimalYAML), 0o644))

	cfg, err := Load(path)
	require.NoError(t, err)
	require.Equal(t, "Sizzle Starter", cfg.Site.Title)
}

func TestRebuildEvery_ParsesDuration(t *testing.T) {
	cfg := &Config{Serve: ServeConfig{RebuildInterval: "15m"}}
	d, err := cfg.RebuildEvery()
	require.NoError(t, err)
	require.Equal(t, "15m0s", d.String())
}

func TestRebuildEvery_Empty_DisablesScheduler(t *testing.T) {
	cfg := &Config{}
	d, err := cfg.RebuildEvery()
	require.NoError(t, err)
	require.Zero(t, d)
}

func TestRebuildEvery_Invalid_ReturnsConfigError(t *testing.T) {
	cfg := &Config{Serve: ServeConfig{RebuildInterval: "soon"}}
	_, err := cfg.RebuildEvery()
	require.Error(t, err)
	require.True(t, errors.IsKind(err, errors.KindConfig))
}
