package version

import (
	"strings"

	"github.com/fatih/color"
)

// Component is the tool name recorded in producer strings and user agents.
const Component = "qirgen"

// Version information for the qirgen CLI.
// These variables can be overridden at build time via -ldflags.

var (
	versionMajorColor = color.New(color.FgYellow, color.Bold)
	versionMinorColor = color.New(color.FgGreen, color.Bold)
	versionPatchColor = color.New(color.FgBlue, color.Bold)

	// Version is the semantic version of the CLI. Kept plain so it can be
	// embedded in generated modules; Pretty colors it for terminals.
	Version = "0.4.0-dev"

	// GitCommit is an optional git commit hash.
	GitCommit = ""

	// GitMessage is an optional git commit message.
	GitMessage = ""

	// BuildDate is an optional build date in ISO-8601.
	BuildDate = ""
)

// Producer is the identity written into generated modules (compile unit and
// ident metadata): "<component> V.<version>".
func Producer() string {
	return Component + " V." + Version
}

// Pretty renders the version with the major/minor/patch split colored for
// terminal display. Versions that do not look like semver pass through as-is.
func Pretty() string {
	rest := Version
	suffix := ""
	if i := strings.IndexAny(rest, "-+"); i >= 0 {
		rest, suffix = rest[:i], rest[i:]
	}
	parts := strings.Split(rest, ".")
	if len(parts) != 3 {
		return Version
	}
	return versionMajorColor.Sprint(parts[0]) + "." +
		versionMinorColor.Sprint(parts[1]) + "." +
		versionPatchColor.Sprint(parts[2]) + suffix
}
