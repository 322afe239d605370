package deploy

import (
	"strings"
	"testing"

	"github.com/pagefold/pagefold/internal/errors"
)

func TestLoadCredentials_RequiresTokenAndAccount(t *testing.T) {
	t.Setenv(EnvAPIToken, "")
	t.Setenv(EnvAccountID, "")
	t.Setenv(EnvRepoToken, "")

	_, err := LoadCredentials()
	if err == nil {
		t.Fatal("expected missing credentials to fail")
	}
	if !errors.IsKind(err, errors.KindPipeline) {
		t.Errorf("error kind = %v, want pipeline", errors.KindOf(err))
	}
	if !strings.Contains(err.Error(), EnvAPIToken) || !strings.Contains(err.Error(), EnvAccountID) {
		t.Errorf("error should name the missing variables, got: %v", err)
	}
}

func TestLoadCredentials_RepoTokenIsOptional(t *testing.T) {
	t.Setenv(EnvAPIToken, "tok")
	t.Setenv(EnvAccountID, "acct")
	t.Setenv(EnvRepoToken, "")

	creds, err := LoadCredentials()
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	if creds.APIToken != "tok" || creds.AccountID != "acct" {
		t.Errorf("creds = %+v", creds)
	}
	if creds.RepoToken != "" {
		t.Errorf("repo token = %q, want empty", creds.RepoToken)
	}
}
