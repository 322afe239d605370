package config

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/require"
)

func TestInit_CreatesConfigAndStarterContent(t *testing.T) {
	dir := t.TempDir()
	configPath := filepath.Join(dir, "site.yaml")

	require.NoError(t, Init(configPath, false))

	cfg, err := Load(configPath)
	require.NoError(t, err)
	require.Equal(t, "My Documentation", cfg.Site.Title)
	require.NotEmpty(t, cfg.Nav)

	for _, rel := range []string{"index.md", "get-started.md", filepath.Join("guides", "writing-pages.md")} {
		_, err := os.Stat(filepath.Join(dir, DefaultContentDir, rel))
		require.NoError(t, err, "expected starter file %s", rel)
	}
}

func TestInit_ExistingConfigWithoutForce_Fails(t *testing.T) {
	dir := t.TempDir()
	configPath := filepath.Join(dir, "site.yaml")
	require.NoError(t, os.WriteFile(configPath, []byte("site:\n  title: Keep\n"), 0o644))

	err := Init(configPath, false)
	require.Error(t, err)
	require.Contains(t, err.Error(), "already exists")
}

func TestInit_Force_OverwritesConfig(t *testing.T) {
	dir := t.TempDir()
	configPath := filepath.Join(dir, "site.yaml")
	require.NoError(t, os.WriteFile(configPath, []byte("site:\n  title: Keep\n"), 0o644))

	require.NoError(t, Init(configPath, true))

	cfg, err := Load(configPath)
	require.NoError(t, err)
	require.Equal(t, "My Documentation", cfg.Site.Title)
}

func TestInit_StarterContentHasRequiredFrontmatter(t *testing.T) {
	dir := t.TempDir()
	require.NoError(t, Init(filepath.Join(dir, "site.yaml"), false))

	data, err := os.ReadFile(filepath.Join(dir, DefaultContentDir, "get-started.md"))
	require.NoError(t, err)
	require.Contains(t, string(data), "title: Get Started")
	require.Contains(t, string(data), "description:")
}
