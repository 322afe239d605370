package deploy

import (
	"fmt"
	"os"
	"strings"

	"github.com/joho/godotenv"

	"github.com/pagefold/pagefold/internal/errors"
)

// Credential environment variables. Credentials never live in site.yaml.
const (
	EnvAPIToken  = "PAGEFOLD_API_TOKEN"
	EnvAccountID = "PAGEFOLD_ACCOUNT_ID"
	EnvRepoToken = "PAGEFOLD_REPO_TOKEN"
)

// Credentials authenticate against the hosting target. RepoToken is
// optional; when present a deployment record is registered on the content
// repository's forge.
type Credentials struct {
	APIToken  string
	AccountID string
	RepoToken string
}

// LoadCredentials reads deploy credentials from the environment, loading a
// .env file first when one exists (real environment variables win).
func LoadCredentials() (*Credentials, error) {
	_ = godotenv.Load()

	creds := &Credentials{
		APIToken:  os.Getenv(EnvAPIToken),
		AccountID: os.Getenv(EnvAccountID),
		RepoToken: os.Getenv(EnvRepoToken),
	}

	var missing []string
	if creds.APIToken == "" {
		missing = append(missing, EnvAPIToken)
	}
	if creds.AccountID == "" {
		missing = append(missing, EnvAccountID)
	}
	if len(missing) > 0 {
		return nil, errors.Pipeline("install",
			fmt.Sprintf("missing deploy credentials: %s", strings.Join(missing, ", ")))
	}
	return creds, nil
}
