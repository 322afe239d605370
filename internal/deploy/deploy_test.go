package deploy

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strings"
	"sync/atomic"
	"testing"
)

const (
	indexHTML = "<html>home</html>"
	siteCSS   = "body { margin: 0 }"
)

func writeSite(t *testing.T) string {
	t.Helper()
	dir := t.TempDir()
	if err := os.WriteFile(filepath.Join(dir, "index.html"), []byte(indexHTML), 0o644); err != nil {
		t.Fatalf("write index: %v", err)
	}
	if err := os.MkdirAll(filepath.Join(dir, "assets"), 0o755); err != nil {
		t.Fatalf("mkdir assets: %v", err)
	}
	if err := os.WriteFile(filepath.Join(dir, "assets", "site.css"), []byte(siteCSS), 0o644); err != nil {
		t.Fatalf("write css: %v", err)
	}
	return dir
}

func hashOf(content string) string {
	sum := sha256.Sum256([]byte(content))
	return hex.EncodeToString(sum[:])
}

func newTestClient(srv *httptest.Server) *Client {
	c := NewClient(srv.URL, &Credentials{APIToken: "test-token", AccountID: "acct-1"})
	c.httpClient = srv.Client()
	return c
}

func TestDeploy_UploadsOnlyMissingBlobs(t *testing.T) {
	dir := writeSite(t)
	indexHash := hashOf(indexHTML)

	var puts atomic.Int32
	var uploadedBody []byte
	var announcedFiles int
	var sawAuth string

	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		sawAuth = r.Header.Get("Authorization")
		switch {
		case r.Method == http.MethodPost && r.URL.Path == "/accounts/acct-1/projects/docs/uploads":
			var body struct {
				Files map[string]string `json:"files"`
			}
			if err := json.NewDecoder(r.Body).Decode(&body); err != nil {
				t.Errorf("decode announce: %v", err)
			}
			announcedFiles = len(body.Files)
			_ = json.NewEncoder(w).Encode(map[string][]string{"missing": {indexHash}})

		case r.Method == http.MethodPut && r.URL.Path == "/accounts/acct-1/projects/docs/uploads/"+indexHash:
			puts.Add(1)
			uploadedBody, _ = io.ReadAll(r.Body)
			w.WriteHeader(http.StatusCreated)

		case r.Method == http.MethodPost && r.URL.Path == "/accounts/acct-1/projects/docs/deployments":
			var body deploymentRequest
			if err := json.NewDecoder(r.Body).Decode(&body); err != nil {
				t.Errorf("decode deployment: %v", err)
			}
			if body.BuildID != "build-42" {
				t.Errorf("build id = %q, want build-42", body.BuildID)
			}
			if len(body.Files) != 2 {
				t.Errorf("deployment manifest has %d files, want 2", len(body.Files))
			}
			w.WriteHeader(http.StatusCreated)
			_, _ = w.Write([]byte(`{"id":"dep-1","url":"https://docs.example.dev","created_at":"2026-08-25T10:00:00Z"}`))

		default:
			t.Errorf("unexpected request: %s %s", r.Method, r.URL.Path)
			w.WriteHeader(http.StatusNotFound)
		}
	}))
	defer srv.Close()

	dep, err := newTestClient(srv).Deploy(context.Background(), "docs", dir, "build-42")
	if err != nil {
		t.Fatalf("deploy: %v", err)
	}

	if dep.ID != "dep-1" || dep.URL != "https://docs.example.dev" {
		t.Errorf("deployment = %+v", dep)
	}
	if announcedFiles != 2 {
		t.Errorf("announced %d files, want 2", announcedFiles)
	}
	if got := puts.Load(); got != 1 {
		t.Errorf("uploaded %d blobs, want 1", got)
	}
	if string(uploadedBody) != indexHTML {
		t.Errorf("uploaded body = %q, want index content", uploadedBody)
	}
	if sawAuth != "Bearer test-token" {
		t.Errorf("authorization header = %q", sawAuth)
	}
}

func TestDeploy_NothingMissingSkipsUploads(t *testing.T) {
	dir := writeSite(t)

	var puts atomic.Int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		switch {
		case r.Method == http.MethodPut:
			puts.Add(1)
		case strings.HasSuffix(r.URL.Path, "/uploads"):
			_, _ = w.Write([]byte(`{"missing":[]}`))
		case strings.HasSuffix(r.URL.Path, "/deployments"):
			_, _ = w.Write([]byte(`{"id":"dep-2","url":"https://docs.example.dev"}`))
		}
	}))
	defer srv.Close()

	dep, err := newTestClient(srv).Deploy(context.Background(), "docs", dir, "")
	if err != nil {
		t.Fatalf("deploy: %v", err)
	}
	if dep.ID != "dep-2" {
		t.Errorf("deployment id = %q", dep.ID)
	}
	if got := puts.Load(); got != 0 {
		t.Errorf("uploaded %d blobs, want 0", got)
	}
}

func TestDeploy_HostErrorSurfaces(t *testing.T) {
	dir := writeSite(t)

	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "maintenance window", http.StatusServiceUnavailable)
	}))
	defer srv.Close()

	_, err := newTestClient(srv).Deploy(context.Background(), "docs", dir, "")
	if err == nil {
		t.Fatal("expected deploy to fail")
	}
	if !strings.Contains(err.Error(), "503") || !strings.Contains(err.Error(), "maintenance window") {
		t.Errorf("error = %v, want status and body", err)
	}
}

func TestDeploy_UnknownBlobRequestFails(t *testing.T) {
	dir := writeSite(t)

	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte(`{"missing":["deadbeef"]}`))
	}))
	defer srv.Close()

	_, err := newTestClient(srv).Deploy(context.Background(), "docs", dir, "")
	if err == nil || !strings.Contains(err.Error(), "unknown blob") {
		t.Errorf("error = %v, want unknown blob", err)
	}
}

func TestDeploy_EmptyOutputFails(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		t.Errorf("no request expected for an empty output, got %s %s", r.Method, r.URL.Path)
	}))
	defer srv.Close()

	_, err := newTestClient(srv).Deploy(context.Background(), "docs", t.TempDir(), "")
	if err == nil || !strings.Contains(err.Error(), "empty") {
		t.Errorf("error = %v, want empty output failure", err)
	}
}

func TestDeploy_EmptyProjectFails(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {}))
	defer srv.Close()

	_, err := newTestClient(srv).Deploy(context.Background(), "", writeSite(t), "")
	if err == nil {
		t.Fatal("expected empty project to fail")
	}
}
