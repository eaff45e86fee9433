package domain

import "fmt"

// APIVersion is a route or token API version such as "v1".
type APIVersion string

const APIVersionV1 APIVersion = "v1"

// versionOrder ranks known versions; unknown versions rank below all of them.
var versionOrder = map[APIVersion]int{
	APIVersionV1: 1,
}

func ParseAPIVersion(s string) (APIVersion, error) {
	v := APIVersion(s)
	if _, ok := versionOrder[v]; !ok {
		return "", fmt.Errorf("unknown API version: %q", s)
	}
	return v, nil
}

func (v APIVersion) String() string { return string(v) }
func (v APIVersion) IsNil() bool    { return v == "" }

// IsAtLeast reports whether v is the same as or newer than other. An older
// token is accepted on a newer route, never the reverse.
func (v APIVersion) IsAtLeast(other APIVersion) bool {
	mine, ok := versionOrder[v]
	if !ok {
		return false
	}
	theirs, ok := versionOrder[other]
	if !ok {
		return true
	}
	return mine >= theirs
}
