package version

import "testing"

func TestString_UnstampedBuild(t *testing.T) {
	if got := String(); got != Version {
		t.Errorf("String() = %q, want bare version %q for unstamped builds", got, Version)
	}
}

func TestString_IncludesCommitWhenStamped(t *testing.T) {
	t.Cleanup(func() { GitCommit = "" })

	GitCommit = "abc1234"
	if got := String(); got != Version+" (abc1234)" {
		t.Errorf("String() = %q", got)
	}
}
