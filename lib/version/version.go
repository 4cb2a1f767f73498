package version

import "strings"

// Version is overridden at link time for release builds:
//
//	go build -ldflags "-X oss.terrastruct.com/sketchpad/lib/version.Version=v0.2.0"
var Version = "v0.1.0-HEAD"

// Dev reports whether this binary was built from an untagged tree.
func Dev() bool {
	return strings.HasSuffix(Version, "-HEAD")
}
