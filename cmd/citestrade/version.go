package main

import (
	"fmt"
	"runtime/debug"

	"github.com/spf13/cobra"
)

// Version information set at build time via ldflags.
var (
	version = ""
	commit  = ""
	date    = ""
)

// versionInfo is what the version command prints.
type versionInfo struct {
	Version string
	Commit  string
	Date    string
}

// buildSetting returns a setting recorded by the Go toolchain, or "".
func buildSetting(info *debug.BuildInfo, key string) string {
	if info == nil {
		return ""
	}
	for _, setting := range info.Settings {
		if setting.Key == key {
			return setting.Value
		}
	}
	return ""
}

// resolveVersion fills every field of ldflags that is empty from info,
// then from fixed placeholders. info may be nil.
//
// Priority: ldflags > debug.ReadBuildInfo > "(devel)" / "unknown"
func resolveVersion(ldflags versionInfo, info *debug.BuildInfo) versionInfo {
	v := ldflags
	if v.Version == "" {
		if info != nil && info.Main.Version != "" {
			v.Version = info.Main.Version
		} else {
			v.Version = "(devel)"
		}
	}
	if v.Commit == "" {
		v.Commit = buildSetting(info, "vcs.revision")
		if len(v.Commit) > 7 {
			v.Commit = v.Commit[:7]
		}
		if v.Commit == "" {
			v.Commit = "unknown"
		}
	}
	if v.Date == "" {
		v.Date = buildSetting(info, "vcs.time")
		if v.Date == "" {
			v.Date = "unknown"
		}
	}
	return v
}

// currentVersion resolves the version of the running binary.
func currentVersion() versionInfo {
	info, ok := debug.ReadBuildInfo()
	if !ok {
		info = nil
	}
	return resolveVersion(versionInfo{Version: version, Commit: commit, Date: date}, info)
}

// NewVersionCmd creates the version command.
func NewVersionCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "version",
		Short: "Print version information",
		Long:  `Print the version, commit hash, and build date of citestrade.`,
		Run: func(cmd *cobra.Command, _ []string) {
			v := currentVersion()
			fmt.Fprintf(cmd.OutOrStdout(), "citestrade version %s\n", v.Version)
			fmt.Fprintf(cmd.OutOrStdout(), "  commit: %s\n", v.Commit)
			fmt.Fprintf(cmd.OutOrStdout(), "  built:  %s\n", v.Date)
		},
	}
}
