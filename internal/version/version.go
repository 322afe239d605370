// Package version carries the build identity stamped in at link time:
//
//	go build -ldflags "\
//	  -X github.com/pagefold/pagefold/internal/version.Version=v1.2.0 \
//	  -X github.com/pagefold/pagefold/internal/version.GitCommit=$(git rev-parse --short HEAD)"
//
// Unstamped binaries report "dev".
package version

var (
	Version   = "dev"
	GitCommit = ""
	BuildTime = ""
)

// String renders the version for --version output: the bare version, with
// the commit appended when the build was stamped with one.
func String() string {
	if GitCommit == "" {
		return Version
	}
	return Version + " (" + GitCommit + ")"
}
