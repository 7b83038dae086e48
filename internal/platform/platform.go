// Package platform implements Mussels' platform-tag matcher (spec §4.2).
//
// A platform tag is a free-form string (e.g. "linux", "darwin", "posix")
// declared on a recipe or tool's platforms map. This package decides whether
// a declared tag matches the host the process is running on, and picks the
// best of a set of declared tags when more than one could apply.
package platform

import (
	"runtime"
	"strings"
)

// aliasSets lists, for each alias tag, the set of concrete OS names it
// covers. Concrete OS names (darwin, linux, windows, ...) alias only
// themselves and are not listed here; canonicalAlias below folds their
// spelling variants (mac/macos/osx) to "darwin".
var aliasSets = map[string]map[string]bool{
	"posix": set("linux", "darwin", "freebsd", "openbsd", "sunos", "aix", "hp-ux"),
	"unix":  set("darwin", "freebsd", "openbsd", "sunos", "aix", "hp-ux"), // posix minus linux
	"*nix":  nil,                                                         // special-cased: anything other than windows
}

func set(names ...string) map[string]bool {
	m := make(map[string]bool, len(names))
	for _, n := range names {
		m[n] = true
	}
	return m
}

// canonicalAlias folds spelling variants of a single concrete OS onto its
// canonical name. Only darwin has alternate spellings in spec §4.2.
var canonicalAlias = map[string]string{
	"mac":   "darwin",
	"macos": "darwin",
	"osx":   "darwin",
}

// canonicalize lowercases a tag and folds known spelling aliases.
func canonicalize(tag string) string {
	tag = strings.ToLower(strings.TrimSpace(tag))
	if c, ok := canonicalAlias[tag]; ok {
		return c
	}
	return tag
}

// HostOS returns the canonicalized name of the OS the process is running on.
func HostOS() string {
	return canonicalize(runtime.GOOS)
}

// matches reports whether declared tag covers concrete host OS name.
func matches(tag, host string) bool {
	tag = canonicalize(tag)
	host = canonicalize(host)

	if tag == host {
		return true
	}
	if tag == "*nix" {
		return host != "windows"
	}
	if group, ok := aliasSets[tag]; ok {
		return group[host]
	}
	return false
}

// Is returns true when tag matches the OS the process runs on
// (spec §4.2 "platform_is(tag)").
func Is(tag string) bool {
	return matches(tag, runtime.GOOS)
}

// Matches reports whether declared tag covers the given host OS name,
// independent of the running process's actual OS — used by the catalog
// loader and selector to test recipes against a caller-specified host.
func Matches(tag, hostOS string) bool {
	return matches(tag, hostOS)
}

// PickBest chooses the best of a set of declared platform tags for the given
// host OS: exact match wins; otherwise any declared tag whose alias set
// covers the host. Returns "" when nothing matches.
func PickBest(declared []string, hostOS string) string {
	host := canonicalize(hostOS)

	for _, tag := range declared {
		if canonicalize(tag) == host {
			return tag
		}
	}
	for _, tag := range declared {
		if matches(tag, hostOS) {
			return tag
		}
	}
	return ""
}
