// Package version resolves what build of gdt is running.
package version

import (
	"context"
	"fmt"
	"os/exec"
	"runtime"
	"runtime/debug"
	"strings"
	"sync"
	"time"
)

// Set via -ldflags "-X .../internal/version.Version=...".
var (
	Version = ""
	Commit  = ""
	Date    = ""
)

var (
	once sync.Once

	readBuildInfo = debug.ReadBuildInfo
	runGit        = gitOutput
)

const gitTimeout = 2 * time.Second

// resolve fills whatever ldflags left empty, first from the module build
// info that `go install` embeds, then from a git checkout.
func resolve() {
	once.Do(func() {
		if info, ok := readBuildInfo(); ok {
			fromBuildInfo(info)
		}
		if Commit == "" {
			Commit = "unknown"
			if out, err := runGit("describe", "--always", "--dirty"); err == nil && out != "" {
				Commit = out
			}
		}
		if Version == "" {
			Version = "dev"
			if out, err := runGit("describe", "--tags", "--abbrev=0"); err == nil && out != "" {
				Version = strings.TrimPrefix(out, "v")
			}
		}
		if Date == "" {
			Date = time.Now().Format("2006-01-02")
		}
	})
}

func fromBuildInfo(info *debug.BuildInfo) {
	if Version == "" && info.Main.Version != "" && info.Main.Version != "(devel)" {
		Version = strings.TrimPrefix(info.Main.Version, "v")
	}
	for _, s := range info.Settings {
		switch s.Key {
		case "vcs.revision":
			if Commit == "" && len(s.Value) >= 7 {
				Commit = s.Value[:7]
			}
		case "vcs.time":
			if t, err := time.Parse(time.RFC3339, s.Value); err == nil && Date == "" {
				Date = t.Format("2006-01-02")
			}
		}
	}
}

func gitOutput(args ...string) (string, error) {
	ctx, cancel := context.WithTimeout(context.Background(), gitTimeout)
	defer cancel()

	out, err := exec.CommandContext(ctx, "git", args...).Output()
	if err != nil {
		return "", err
	}
	return strings.TrimSpace(string(out)), nil
}

// Reset clears resolved values so they are computed again.
func Reset() {
	Version, Commit, Date = "", "", ""
	once = sync.Once{}
}

func GetVersion() string {
	resolve()
	return Version
}

func GetCommit() string {
	resolve()
	return Commit
}

func GetDate() string {
	resolve()
	return Date
}

// Info is the one-line banner printed by `gdt version`.
func Info() string {
	resolve()
	return fmt.Sprintf("gdt %s (commit: %s, built: %s, %s/%s)",
		Version, Commit, Date, runtime.GOOS, runtime.GOARCH)
}
