// Package version holds the redspot release version.
package version

import (
	_ "embed"
	"strings"
)

//go:embed VERSION
var versionContent string

// Get returns the release version without surrounding whitespace.
func Get() string {
	return strings.TrimSpace(versionContent)
}
