// Package config loads, validates and composes the site configuration:
// site identity (title, social links, favicon, logos, head tags), the
// navigation tree and the build/deploy settings. Exactly one configuration
// is active per build; loading a file fully replaces any previous one.
package config

import (
	"fmt"
	"os"
	"strings"

	"github.com/joho/godotenv"
	"gopkg.in/yaml.v3"

	"github.com/pagefold/pagefold/internal/errors"
)

// Config represents the full site configuration loaded from site.yaml.
type Config struct {
	Site    Site          `yaml:"site"`
	Nav     []*NavNode    `yaml:"nav"`
	Content ContentConfig `yaml:"content"`
	Output  OutputConfig  `yaml:"output"`
	Deploy  DeployConfig  `yaml:"deploy"`
	Serve   ServeConfig   `yaml:"serve"`
	Events  EventsConfig  `yaml:"events"`
}

// Site carries the site identity merged into every rendered page.
type Site struct {
	Title           string            `yaml:"title"`
	Social          map[string]string `yaml:"social"`
	Favicon         string            `yaml:"favicon"`
	Logo            Logo              `yaml:"logo"`
	EditLinkBaseURL string            `yaml:"edit_link_base_url"`
	HeadTags        []HeadTag         `yaml:"head_tags"`
}

// Logo holds light/dark logo asset paths, relative to the content root.
type Logo struct {
	Light string `yaml:"light"`
	Dark  string `yaml:"dark"`
}

// HeadTag is one injected document-head tag. Order in the config is the
// order tags are emitted; attributes render sorted by key so rebuilds stay
// byte-identical.
type HeadTag struct {
	Tag        string            `yaml:"tag"`
	Attributes map[string]string `yaml:"attributes"`
}

// ContentConfig locates the document corpus: a local directory, or a remote
// git repository cloned into an ephemeral workspace before scanning.
type ContentConfig struct {
	Dir    string `yaml:"dir"`
	Repo   string `yaml:"repo"`
	Branch string `yaml:"branch"`
	Path   string `yaml:"path"`
}

// OutputConfig controls where the built site and pagefold's own state land.
// StateDir (reports, history database) always lives outside Directory so the
// published tree stays byte-identical across rebuilds.
type OutputConfig struct {
	Directory string `yaml:"directory"`
	BaseURL   string `yaml:"base_url"`
	StateDir  string `yaml:"state_dir"`
}

// DeployConfig identifies the hosting target. Credentials never live here:
// they come from PAGEFOLD_API_TOKEN, PAGEFOLD_ACCOUNT_ID and the optional
// PAGEFOLD_REPO_TOKEN (environment or .env).
type DeployConfig struct {
	Project string `yaml:"project"`
	APIURL  string `yaml:"api_url"`
}

// ServeConfig controls the local preview server.
type ServeConfig struct {
	Addr            string `yaml:"addr"`
	RebuildInterval string `yaml:"rebuild_interval"`
	WebhookSecret   string `yaml:"webhook_secret"`
}

// EventsConfig enables mirroring lifecycle events to NATS.
type EventsConfig struct {
	NATSURL string `yaml:"nats_url"`
	Subject string `yaml:"subject"`
}

// Defaults applied after unmarshal.
const (
	DefaultContentDir = "content"
	DefaultOutputDir  = "public"
	DefaultStateDir   = ".pagefold"
	DefaultBranch     = "main"
	DefaultServeAddr  = ":8080"
	DefaultAPIURL     = "https://api.pagehost.dev/v1"
	DefaultSubject    = "pagefold.builds"
)

// Load reads, env-expands, decodes and validates the configuration file.
// A .env file alongside the working directory is loaded first (existing
// environment variables win) so ${VAR} references in the YAML resolve.
func Load(configPath string) (*Config, error) {
	// Missing .env is the normal case, not an error.
	_ = godotenv.Load()

	if _, err := os.Stat(configPath); os.IsNotExist(err) {
		return nil, errors.Config(fmt.Sprintf("configuration file not found: %s", configPath))
	}

	data, err := os.ReadFile(configPath)
	if err != nil {
		return nil, errors.WrapConfig(err, "failed to read configuration file")
	}

	return Parse(data)
}

// Parse decodes raw YAML bytes into a validated Config. Environment
// variables are expanded before decoding; unknown fields are rejected.
func Parse(data []byte) (*Config, error) {
	expanded := os.ExpandEnv(string(data))

	var cfg Config
	dec := yaml.NewDecoder(strings.NewReader(expanded))
	dec.KnownFields(true)
	if err := dec.Decode(&cfg); err != nil {
		return nil, errors.WrapConfig(err, "failed to decode configuration")
	}

	cfg.applyDefaults()

	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	return &cfg, nil
}

func (c *Config) applyDefaults() {
	if c.Content.Dir == "" {
		c.Content.Dir = DefaultContentDir
	}
	if c.Content.Repo != "" && c.Content.Branch == "" {
		c.Content.Branch = DefaultBranch
	}
	if c.Output.Directory == "" {
		c.Output.Directory = DefaultOutputDir
	}
	if c.Output.StateDir == "" {
		c.Output.StateDir = DefaultStateDir
	}
	if c.Deploy.APIURL == "" {
		c.Deploy.APIURL = DefaultAPIURL
	}
	if c.Serve.Addr == "" {
		c.Serve.Addr = DefaultServeAddr
	}
	if c.Events.Subject == "" {
		c.Events.Subject = DefaultSubject
	}
	if c.Events.NATSURL == "" {
		c.Events.NATSURL = os.Getenv("PAGEFOLD_NATS_URL")
	}
}
