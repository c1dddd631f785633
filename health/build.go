package health

import (
	"fmt"
	"os"
	"runtime"
	"runtime/debug"
	"strings"
	"time"

	"github.com/caarlos0/env/v11"
)

// BuildInfo is read from BUILD_* variables, falling back to the VCS stamp in the binary.
type BuildInfo struct {
	Version   string    `json:"version" env:"BUILD_VERSION" envDefault:"dev"`
	GitCommit string    `json:"git_commit" env:"BUILD_COMMIT"`
	GitBranch string    `json:"git_branch" env:"BUILD_BRANCH"`
	BuildTime time.Time `json:"build_time" env:"BUILD_TIME"`
	GoVersion string    `json:"go_version"`
	OS        string    `json:"os"`
	Arch      string    `json:"arch"`
}

func ReadBuildInfo() BuildInfo {
	environment := make(map[string]string)
	for _, kv := range os.Environ() {
		if key, value, ok := strings.Cut(kv, "="); ok && strings.HasPrefix(key, "BUILD_") {
			environment[key] = value
		}
	}
	return readBuildInfo(environment)
}

func readBuildInfo(environment map[string]string) BuildInfo {
	info := BuildInfo{
		GoVersion: runtime.Version(),
		OS:        runtime.GOOS,
		Arch:      runtime.GOARCH,
	}

	if err := env.ParseWithOptions(&info, env.Options{Environment: environment}); err != nil {
		info.Version = "dev"
	}

	if info.GitCommit == "" {
		info.GitCommit = "unknown"
		if bi, ok := debug.ReadBuildInfo(); ok {
			for _, setting := range bi.Settings {
				switch setting.Key {
				case "vcs.revision":
					info.GitCommit = setting.Value
				case "vcs.time":
					if info.BuildTime.IsZero() {
						if t, err := time.Parse(time.RFC3339, setting.Value); err == nil {
							info.BuildTime = t
						}
					}
				}
			}
		}
	}

	return info
}

func (b BuildInfo) withVersion(version string) BuildInfo {
	if version != "" && (b.Version == "" || b.Version == "dev") {
		b.Version = version
	}
	return b
}

// Short renders version, abbreviated commit and build date.
func (b BuildInfo) Short() string {
	commit := b.GitCommit
	if len(commit) > 7 {
		commit = commit[:7]
	}

	out := fmt.Sprintf("%s-%s", b.Version, commit)
	if !b.BuildTime.IsZero() {
		out += " (" + b.BuildTime.Format("2006-01-02") + ")"
	}
	return strings.TrimSuffix(out, "-")
}
