package deploy

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/pagefold/pagefold/internal/gitmeta"
	"github.com/pagefold/pagefold/internal/logfields"
	"github.com/pagefold/pagefold/internal/version"
)

// RecordClient registers deployment records on the content repository's
// forge, so the deployed commit shows up next to the code. Only
// GitHub-style deployment APIs are supported.
type RecordClient struct {
	httpClient *http.Client
	apiURL     string // empty derives the API root from the remote host
	token      string
}

// NewRecordClient returns a forge client authenticated by the repository
// token.
func NewRecordClient(repoToken string) *RecordClient {
	return &RecordClient{
		httpClient: &http.Client{Timeout: 30 * time.Second},
		token:      repoToken,
	}
}

type forgeDeployment struct {
	ID int64 `json:"id"`
}

// Register creates a deployment record for the commit described by meta and
// marks it successful with the published URL. The content checkout must
// have an origin remote; without one there is nothing to record against.
func (c *RecordClient) Register(ctx context.Context, meta *gitmeta.Meta, dep *Deployment) error {
	if meta == nil || meta.Commit == "" {
		return fmt.Errorf("deployment record: content checkout has no git metadata")
	}
	owner, repo, host, err := parseRepoPath(meta.Remote)
	if err != nil {
		return fmt.Errorf("deployment record: %w", err)
	}

	apiURL := c.apiURL
	if apiURL == "" {
		apiURL = deriveAPIURL(host)
	}

	createBody := map[string]any{
		"ref":         meta.Commit,
		"environment": "production",
		"auto_merge":  false,
		// An empty context list skips required status checks; the site is
		// already live by the time the record is written.
		"required_contexts": []string{},
		"description":       "pagefold deployment",
	}
	endpoint := fmt.Sprintf("%s/repos/%s/%s/deployments", apiURL, owner, repo)

	var created forgeDeployment
	if err := c.post(ctx, endpoint, createBody, &created); err != nil {
		return fmt.Errorf("deployment record: create: %w", err)
	}

	statusBody := map[string]any{
		"state":           "success",
		"environment_url": dep.URL,
		"description":     "published by pagefold",
	}
	statusEndpoint := fmt.Sprintf("%s/repos/%s/%s/deployments/%d/statuses", apiURL, owner, repo, created.ID)
	if err := c.post(ctx, statusEndpoint, statusBody, nil); err != nil {
		return fmt.Errorf("deployment record: mark success: %w", err)
	}

	slog.Info("Deployment record registered",
		slog.String("repository", owner+"/"+repo),
		slog.String("commit", meta.ShortCommit()),
		logfields.URL(dep.URL))
	return nil
}

func (c *RecordClient) post(ctx context.Context, rawURL string, body any, result any) error {
	jsonBody, err := json.Marshal(body)
	if err != nil {
		return err
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, rawURL, bytes.NewReader(jsonBody))
	if err != nil {
		return err
	}
	req.Header.Set("Authorization", "Bearer "+c.token)
	req.Header.Set("Accept", "application/vnd.github+json")
	req.Header.Set("X-GitHub-Api-Version", "2022-11-28")
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("User-Agent", "pagefold/"+version.Version)

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()

	if resp.StatusCode >= 400 {
		snippet, _ := io.ReadAll(io.LimitReader(resp.Body, 512))
		return fmt.Errorf("forge API error: %s: %s", resp.Status, strings.TrimSpace(string(snippet)))
	}
	if result != nil {
		return json.NewDecoder(resp.Body).Decode(result)
	}
	return nil
}

// deriveAPIURL maps a forge host to its REST API root. github.com has a
// dedicated API host; self-hosted forges serve the API under /api/v3.
func deriveAPIURL(host string) string {
	if host == "github.com" {
		return "https://api.github.com"
	}
	return "https://" + host + "/api/v3"
}

// parseRepoPath extracts host, owner and repository name from a git remote
// URL in either https or scp-like ssh form.
func parseRepoPath(remote string) (owner, repo, host string, err error) {
	if remote == "" {
		return "", "", "", fmt.Errorf("remote URL is empty")
	}

	var repoPath string
	switch {
	case strings.Contains(remote, "://"):
		u, perr := url.Parse(remote)
		if perr != nil {
			return "", "", "", fmt.Errorf("parse remote %q: %w", remote, perr)
		}
		host = u.Host
		repoPath = strings.Trim(u.Path, "/")
	case strings.Contains(remote, "@") && strings.Contains(remote, ":"):
		// scp-like syntax: git@host:owner/repo.git
		rest := remote[strings.Index(remote, "@")+1:]
		colon := strings.Index(rest, ":")
		host = rest[:colon]
		repoPath = strings.Trim(rest[colon+1:], "/")
	default:
		return "", "", "", fmt.Errorf("unrecognized remote URL %q", remote)
	}

	repoPath = strings.TrimSuffix(repoPath, ".git")
	parts := strings.Split(repoPath, "/")
	if len(parts) != 2 || parts[0] == "" || parts[1] == "" {
		return "", "", "", fmt.Errorf("remote %q does not name an owner/repository pair", remote)
	}
	return parts[0], parts[1], host, nil
}
