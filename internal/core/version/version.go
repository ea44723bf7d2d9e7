// Package version provides information about the build version of the binary.
package version

// BuildInfo holds version information about the build.
type BuildInfo struct {
	Service string `json:"service"`
	Version string `json:"version"`
	Commit  string `json:"commit"`
	Date    string `json:"date"`
}

// Info returns the build information. The version, commit, and date variables
// are intended to be set at build time using -ldflags.
func Info() BuildInfo {
	// Set via -ldflags "-X 'impfmon/internal/core/version.version=v0.3.0'
	// -X 'impfmon/internal/core/version.commit=abcd' -X 'impfmon/internal/core/version.date=2021-03-23'"
	return BuildInfo{
		Service: "impfmon",
		Version: version,
		Commit:  commit,
		Date:    date,
	}
}

// UserAgent is sent with every source request so publishers can identify the poller
func UserAgent() string {
	return "impfmon/" + version + " (+" + commit + ")"
}

var (
	version = "dev"
	commit  = "none"
	date    = "unknown"
)
