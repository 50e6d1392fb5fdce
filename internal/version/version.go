// Package version holds build-time version metadata, set with -ldflags.
package version

var (
	Version   = "dev"
	Commit    = "none"
	Date      = "unknown"
	GoVersion = ""
)
