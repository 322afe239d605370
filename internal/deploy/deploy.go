// Package deploy publishes a built output directory to the pagehost API.
//
// Publication is content addressed: the client sends the sha256 manifest of
// the output tree, the host answers with the blob hashes it does not have
// yet, the client uploads exactly those, then registers the deployment.
// Re-deploying an unchanged site therefore uploads nothing.
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
	"os"
	"path"
	"path/filepath"
	"sort"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/pagefold/pagefold/internal/logfields"
	"github.com/pagefold/pagefold/internal/site"
	"github.com/pagefold/pagefold/internal/version"
)

// Deployment is the hosting target's record of one published site version.
type Deployment struct {
	ID        string    `json:"id"`
	URL       string    `json:"url"`
	CreatedAt time.Time `json:"created_at"`
}

// Client talks to the pagehost deployments API.
type Client struct {
	httpClient *http.Client
	apiURL     string
	apiToken   string
	accountID  string
}

// NewClient returns a hosting API client for the given account.
func NewClient(apiURL string, creds *Credentials) *Client {
	return &Client{
		httpClient: &http.Client{Timeout: 60 * time.Second},
		apiURL:     strings.TrimRight(apiURL, "/"),
		apiToken:   creds.APIToken,
		accountID:  creds.AccountID,
	}
}

// uploadNegotiation is the host's answer to a manifest announcement: the
// blob hashes it does not hold yet.
type uploadNegotiation struct {
	Missing []string `json:"missing"`
}

type deploymentRequest struct {
	BuildID string            `json:"build_id"`
	Files   map[string]string `json:"files"`
}

// Deploy publishes the directory as a new deployment of the project.
// The directory must be a promoted build output; Deploy never mutates it.
func (c *Client) Deploy(ctx context.Context, project, dir, buildID string) (*Deployment, error) {
	if project == "" {
		return nil, fmt.Errorf("deploy: project identifier is empty")
	}
	if buildID == "" {
		buildID = uuid.NewString()
	}

	manifest, err := site.NewManifest(dir)
	if err != nil {
		return nil, fmt.Errorf("deploy: read output directory: %w", err)
	}
	if len(manifest.Files) == 0 {
		return nil, fmt.Errorf("deploy: output directory %s is empty", dir)
	}

	missing, err := c.announceManifest(ctx, project, manifest)
	if err != nil {
		return nil, err
	}

	slog.Info("Uploading site",
		logfields.Project(project),
		logfields.Count(len(manifest.Files)),
		slog.Int("missing", len(missing)))

	if err := c.uploadBlobs(ctx, project, dir, manifest, missing); err != nil {
		return nil, err
	}

	dep, err := c.createDeployment(ctx, project, buildID, manifest)
	if err != nil {
		return nil, err
	}

	slog.Info("Deployment created",
		logfields.Project(project),
		logfields.DeployID(dep.ID),
		logfields.URL(dep.URL))
	return dep, nil
}

// announceManifest sends the full file manifest and returns the hashes the
// host still needs.
func (c *Client) announceManifest(ctx context.Context, project string, m *site.Manifest) ([]string, error) {
	endpoint := fmt.Sprintf("/accounts/%s/projects/%s/uploads", c.accountID, project)
	req, err := c.newRequest(ctx, http.MethodPost, endpoint, map[string]any{"files": m.Files})
	if err != nil {
		return nil, err
	}

	var neg uploadNegotiation
	if err := c.doRequest(req, &neg); err != nil {
		return nil, fmt.Errorf("deploy: announce manifest: %w", err)
	}
	sort.Strings(neg.Missing)
	return neg.Missing, nil
}

// uploadBlobs pushes each missing blob, content addressed by hash.
func (c *Client) uploadBlobs(ctx context.Context, project, dir string, m *site.Manifest, missing []string) error {
	if len(missing) == 0 {
		return nil
	}

	// The manifest maps path to hash; uploads go the other way.
	byHash := make(map[string]string, len(m.Files))
	for p, h := range m.Files {
		byHash[h] = p
	}

	for _, hash := range missing {
		rel, ok := byHash[hash]
		if !ok {
			return fmt.Errorf("deploy: host requested unknown blob %s", hash)
		}
		data, err := os.ReadFile(filepath.Join(dir, filepath.FromSlash(rel)))
		if err != nil {
			return fmt.Errorf("deploy: read %s: %w", rel, err)
		}

		endpoint := fmt.Sprintf("/accounts/%s/projects/%s/uploads/%s", c.accountID, project, hash)
		u, err := c.buildURL(endpoint)
		if err != nil {
			return err
		}
		req, err := http.NewRequestWithContext(ctx, http.MethodPut, u, bytes.NewReader(data))
		if err != nil {
			return err
		}
		c.authorize(req)
		req.Header.Set("Content-Type", "application/octet-stream")

		if err := c.doRequest(req, nil); err != nil {
			return fmt.Errorf("deploy: upload %s: %w", rel, err)
		}
		slog.Debug("Uploaded blob", logfields.File(rel), slog.String("hash", hash[:12]))
	}
	return nil
}

func (c *Client) createDeployment(ctx context.Context, project, buildID string, m *site.Manifest) (*Deployment, error) {
	endpoint := fmt.Sprintf("/accounts/%s/projects/%s/deployments", c.accountID, project)
	req, err := c.newRequest(ctx, http.MethodPost, endpoint, deploymentRequest{
		BuildID: buildID,
		Files:   m.Files,
	})
	if err != nil {
		return nil, err
	}

	var dep Deployment
	if err := c.doRequest(req, &dep); err != nil {
		return nil, fmt.Errorf("deploy: create deployment: %w", err)
	}
	if dep.ID == "" {
		return nil, fmt.Errorf("deploy: host returned a deployment without an id")
	}
	return &dep, nil
}

func (c *Client) buildURL(endpoint string) (string, error) {
	u, err := url.Parse(c.apiURL)
	if err != nil {
		return "", err
	}
	u.Path = path.Join(u.Path, endpoint)
	return u.String(), nil
}

func (c *Client) authorize(req *http.Request) {
	req.Header.Set("Authorization", "Bearer "+c.apiToken)
	req.Header.Set("Accept", "application/json")
	req.Header.Set("User-Agent", "pagefold/"+version.Version)
}

func (c *Client) newRequest(ctx context.Context, method, endpoint string, body any) (*http.Request, error) {
	u, err := c.buildURL(endpoint)
	if err != nil {
		return nil, err
	}

	var req *http.Request
	if body != nil {
		jsonBody, err := json.Marshal(body)
		if err != nil {
			return nil, err
		}
		req, err = http.NewRequestWithContext(ctx, method, u, bytes.NewReader(jsonBody))
		if err != nil {
			return nil, err
		}
		req.Header.Set("Content-Type", "application/json")
	} else {
		req, err = http.NewRequestWithContext(ctx, method, u, nil)
		if err != nil {
			return nil, err
		}
	}

	c.authorize(req)
	return req, nil
}

func (c *Client) doRequest(req *http.Request, result any) error {
	resp, err := c.httpClient.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()

	if resp.StatusCode >= 400 {
		snippet, _ := io.ReadAll(io.LimitReader(resp.Body, 512))
		if msg := strings.TrimSpace(string(snippet)); msg != "" {
			return fmt.Errorf("hosting API error: %s: %s", resp.Status, msg)
		}
		return fmt.Errorf("hosting API error: %s", resp.Status)
	}

	if result != nil {
		return json.NewDecoder(resp.Body).Decode(result)
	}
	return nil
}
