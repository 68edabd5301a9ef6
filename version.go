package rip

import (
	xstrings "github.com/frantjc/x/strings"
	"golang.org/x/mod/semver"
)

var (
	// Version is set at build time with
	// -ldflags "-X github.com/frantjc/rip.Version=...".
	Version = "0.0.0"
	// Prerelease is appended to Version, if set.
	Prerelease = ""
)

// SemVer returns the semantic version of rip, without the leading "v".
func SemVer() string {
	v := xstrings.EnsurePrefix(Version, "v")
	if Prerelease != "" {
		v += "-" + Prerelease
	}

	if !semver.IsValid(v) {
		return Version
	}

	return semver.Canonical(v)[1:] + semver.Build(v)
}
