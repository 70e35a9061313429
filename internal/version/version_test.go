package version

import (
	"strings"
	"testing"
)

func TestStringFor(t *testing.T) {
	oldCommit, oldDate := Commit, Date
	defer func() { Commit, Date = oldCommit, oldDate }()

	Commit, Date = "unknown", "unknown"
	if got := StringFor("picpalette"); !strings.HasPrefix(got, "picpalette version "+Version+" (") {
		t.Errorf("StringFor() = %q", got)
	}

	Commit, Date = "abc", "2026-01-02T03:04:05Z"
	got := StringFor("picpalette-quantizer")
	if !strings.Contains(got, "commit: abc,") {
		t.Errorf("StringFor() = %q, want short commit kept intact", got)
	}

	Commit = "0123456789abcdef"
	if got := String(); !strings.Contains(got, "commit: 01234567,") {
		t.Errorf("String() = %q, want commit truncated to 8 characters", got)
	}
}
