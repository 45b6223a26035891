package main

import (
	"runtime/debug"

	"github.com/marcus/bujo/cmd"
)

// Version may be set at build time via -ldflags "-X main.Version=...".
var Version = "dev"

// effectiveVersion prefers an injected version, then the module version from
// `go install`, then a devel+<rev>[+dirty] string from VCS build settings.
func effectiveVersion(v string) string {
	if v != "" && v != "dev" {
		return v
	}
	info, ok := debug.ReadBuildInfo()
	if !ok || info == nil {
		return v
	}
	if mv := info.Main.Version; mv != "" && mv != "(devel)" {
		return mv
	}

	settings := make(map[string]string, len(info.Settings))
	for _, s := range info.Settings {
		settings[s.Key] = s.Value
	}
	rev := settings["vcs.revision"]
	if rev == "" {
		return v
	}
	out := "devel+" + rev[:min(12, len(rev))]
	if settings["vcs.modified"] == "true" {
		out += "+dirty"
	}
	return out
}

func main() {
	cmd.SetVersion(effectiveVersion(Version))
	cmd.Execute()
}
