package gitmeta

import (
	"context"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/go-git/go-git/v5"
	gitcfg "github.com/go-git/go-git/v5/config"
	"github.com/go-git/go-git/v5/plumbing/object"
)

func initRepo(t *testing.T) (*git.Repository, string) {
	t.Helper()
	dir := t.TempDir()
	repo, err := git.PlainInit(dir, false)
	if err != nil {
		t.Fatalf("init repo: %v", err)
	}
	return repo, dir
}

func commitFile(t *testing.T, repo *git.Repository, dir, name, content string) string {
	t.Helper()
	wt, err := repo.Worktree()
	if err != nil {
		t.Fatalf("worktree: %v", err)
	}
	if err := os.WriteFile(filepath.Join(dir, name), []byte(content), 0o600); err != nil {
		t.Fatalf("write %s: %v", name, err)
	}
	if _, err := wt.Add(name); err != nil {
		t.Fatalf("add %s: %v", name, err)
	}
	hash, err := wt.Commit("add "+name, &git.CommitOptions{
		Author: &object.Signature{Name: "tester", Email: "tester@example.com", When: time.Now()},
	})
	if err != nil {
		t.Fatalf("commit: %v", err)
	}
	return hash.String()
}

func headBranch(t *testing.T, repo *git.Repository) string {
	t.Helper()
	head, err := repo.Head()
	if err != nil {
		t.Fatalf("head: %v", err)
	}
	return head.Name().Short()
}

func TestDescribe_ReportsCommitBranchAndRemote(t *testing.T) {
	repo, dir := initRepo(t)
	if _, err := repo.CreateRemote(&gitcfg.RemoteConfig{
		Name: git.DefaultRemoteName,
		URLs: []string{"https://example.com/docs.git"},
	}); err != nil {
		t.Fatalf("create remote: %v", err)
	}
	commit := commitFile(t, repo, dir, "index.md", "hello")

	meta, err := Describe(dir)
	if err != nil {
		t.Fatalf("describe: %v", err)
	}
	if meta == nil {
		t.Fatal("expected metadata for a repository with commits")
	}
	if meta.Commit != commit {
		t.Errorf("commit = %s, want %s", meta.Commit, commit)
	}
	if want := headBranch(t, repo); meta.Branch != want {
		t.Errorf("branch = %q, want %q", meta.Branch, want)
	}
	if meta.Remote != "https://example.com/docs.git" {
		t.Errorf("remote = %q", meta.Remote)
	}
	if got := meta.ShortCommit(); got != commit[:8] {
		t.Errorf("short commit = %q, want %q", got, commit[:8])
	}
}

func TestDescribe_ResolvesEnclosingRepoFromSubdirectory(t *testing.T) {
	repo, dir := initRepo(t)
	commit := commitFile(t, repo, dir, "index.md", "hello")

	sub := filepath.Join(dir, "docs", "guides")
	if err := os.MkdirAll(sub, 0o750); err != nil {
		t.Fatalf("mkdir: %v", err)
	}

	meta, err := Describe(sub)
	if err != nil {
		t.Fatalf("describe: %v", err)
	}
	if meta == nil || meta.Commit != commit {
		t.Fatalf("expected commit %s from subdirectory, got %+v", commit, meta)
	}
}

func TestDescribe_NonRepoYieldsNilMetadata(t *testing.T) {
	meta, err := Describe(t.TempDir())
	if err != nil {
		t.Fatalf("describe: %v", err)
	}
	if meta != nil {
		t.Fatalf("expected nil metadata outside a repository, got %+v", meta)
	}
}

func TestDescribe_RepoWithoutCommitsYieldsNilMetadata(t *testing.T) {
	_, dir := initRepo(t)

	meta, err := Describe(dir)
	if err != nil {
		t.Fatalf("describe: %v", err)
	}
	if meta != nil {
		t.Fatalf("expected nil metadata for an unborn HEAD, got %+v", meta)
	}
}

func TestClone_ChecksOutLocalSource(t *testing.T) {
	repo, src := initRepo(t)
	commit := commitFile(t, repo, src, "index.md", "# Welcome\n")
	branch := headBranch(t, repo)

	dest := filepath.Join(t.TempDir(), "checkout")
	if err := Clone(context.Background(), dest, CloneOptions{URL: src, Branch: branch}); err != nil {
		t.Fatalf("clone: %v", err)
	}

	data, err := os.ReadFile(filepath.Join(dest, "index.md"))
	if err != nil {
		t.Fatalf("read cloned file: %v", err)
	}
	if string(data) != "# Welcome\n" {
		t.Errorf("cloned content = %q", data)
	}

	meta, err := Describe(dest)
	if err != nil {
		t.Fatalf("describe clone: %v", err)
	}
	if meta == nil || meta.Commit != commit {
		t.Fatalf("clone head = %+v, want commit %s", meta, commit)
	}
	if meta.Remote != src {
		t.Errorf("clone remote = %q, want %q", meta.Remote, src)
	}
}

func TestClone_ReplacesExistingCheckout(t *testing.T) {
	repo, src := initRepo(t)
	commitFile(t, repo, src, "index.md", "fresh")

	dest := filepath.Join(t.TempDir(), "checkout")
	if err := os.MkdirAll(dest, 0o750); err != nil {
		t.Fatalf("mkdir: %v", err)
	}
	if err := os.WriteFile(filepath.Join(dest, "stale.txt"), []byte("old"), 0o600); err != nil {
		t.Fatalf("write stale file: %v", err)
	}

	if err := Clone(context.Background(), dest, CloneOptions{URL: src}); err != nil {
		t.Fatalf("clone: %v", err)
	}

	if _, err := os.Stat(filepath.Join(dest, "stale.txt")); !os.IsNotExist(err) {
		t.Errorf("stale file survived the clone, stat err=%v", err)
	}
	if _, err := os.Stat(filepath.Join(dest, "index.md")); err != nil {
		t.Errorf("cloned file missing: %v", err)
	}
}

func TestClone_MissingSourceFails(t *testing.T) {
	dest := filepath.Join(t.TempDir(), "checkout")
	err := Clone(context.Background(), dest, CloneOptions{URL: filepath.Join(t.TempDir(), "nope")})
	if err == nil {
		t.Fatal("expected clone of a missing repository to fail")
	}
}

func TestClone_EmptyURLFails(t *testing.T) {
	err := Clone(context.Background(), t.TempDir(), CloneOptions{})
	if err == nil {
		t.Fatal("expected empty URL to fail")
	}
}
