package version

import (
	"runtime"
	"strings"
	"testing"
)

func TestGetReportsLdflagValues(t *testing.T) {
	oldVersion, oldCommit, oldDate := Version, GitCommit, BuildDate
	t.Cleanup(func() { Version, GitCommit, BuildDate = oldVersion, oldCommit, oldDate })

	Version, GitCommit, BuildDate = "1.4.0", "0123abc", "2025-01-27T10:30:00Z"

	info := Get()
	if info.Version != "1.4.0" || info.GitCommit != "0123abc" || info.BuildDate != "2025-01-27T10:30:00Z" {
		t.Errorf("Get() = %+v", info)
	}
	if info.Platform != runtime.GOOS+"/"+runtime.GOARCH {
		t.Errorf("Platform = %q", info.Platform)
	}
}

func TestShortCommit(t *testing.T) {
	if got := shortCommit("0123456789abcdef"); got != "0123456" {
		t.Errorf("shortCommit(long) = %q", got)
	}
	if got := shortCommit("abc"); got != "abc" {
		t.Errorf("shortCommit(short) = %q", got)
	}
}

func TestBanner(t *testing.T) {
	oldVersion := Version
	t.Cleanup(func() { Version = oldVersion })
	Version = "2.0.0"

	if got := Banner(); !strings.HasPrefix(got, "mxcamera 2.0.0 (") {
		t.Errorf("Banner() = %q", got)
	}
}
