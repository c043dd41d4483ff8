// Package version reports build information for the hubsync binary. Release
// builds set the variables below with -ldflags; other builds fall back to the
// module and VCS metadata embedded by the Go toolchain.
package version

import (
	"fmt"
	"runtime"
	"runtime/debug"
	"strings"
)

const devVersion = "0.1.0-dev"

var (
	AppName   = "hubsync"
	Version   = devVersion
	Revision  = "HEAD"
	BuildDate = ""
)

// Info is a snapshot of the build metadata.
type Info struct {
	App       string `json:"app"`
	Version   string `json:"version"`
	Revision  string `json:"revision"`
	BuildDate string `json:"buildDate,omitempty"`
	GoVersion string `json:"goVersion"`
	Platform  string `json:"platform"`
}

func Get() Info {
	return Info{
		App:       AppName,
		Version:   Version,
		Revision:  Revision,
		BuildDate: BuildDate,
		GoVersion: runtime.Version(),
		Platform:  runtime.GOOS + "/" + runtime.GOARCH,
	}
}

// Short returns `0.1.0 (5e23a4)`.
func (i Info) Short() string {
	return fmt.Sprintf("%s (%s)", i.Version, i.Revision)
}

// String returns `hubsync 0.1.0 (5e23a4; go1.24.0; linux/amd64; 2024-05-01T10:00:00Z)`.
func (i Info) String() string {
	parts := []string{i.Revision, i.GoVersion, i.Platform}
	if i.BuildDate != "" {
		parts = append(parts, i.BuildDate)
	}
	return fmt.Sprintf("%s %s (%s)", i.App, i.Version, strings.Join(parts, "; "))
}

// UserAgent is sent with every request to the content hub.
func UserAgent() string {
	return fmt.Sprintf("%s/%s (%s; %s)", AppName, Version, Revision, runtime.GOOS)
}

func applyBuildInfo(mainVersion string, settings map[string]string) {
	if (Version == devVersion || Version == "") && mainVersion != "" && mainVersion != "(devel)" {
		Version = strings.TrimPrefix(mainVersion, "v")
	}

	if rev := settings["vcs.revision"]; (Revision == "HEAD" || Revision == "") && rev != "" {
		if len(rev) > 12 {
			rev = rev[:12]
		}
		if settings["vcs.modified"] == "true" {
			rev += "-dirty"
		}
		Revision = rev
	}

	if BuildDate == "" {
		BuildDate = settings["vcs.time"]
	}
}

func init() {
	info, ok := debug.ReadBuildInfo()
	if !ok || info == nil {
		return
	}
	settings := make(map[string]string, len(info.Settings))
	for _, s := range info.Settings {
		settings[s.Key] = s.Value
	}
	applyBuildInfo(info.Main.Version, settings)
}
