package cmd

import (
	"log"
	"os"
	goruntime "runtime"
	"runtime/debug"

	"github.com/spf13/cobra"
)

// Actual version and commit can be specified in build command.
var (
	version = "unknown"
	commit  = ""
)

type buildInfo struct {
	App     string `json:"app" yaml:"app"`
	Version string `json:"version" yaml:"version"`
	Commit  string `json:"commit,omitempty" yaml:"commit,omitempty"`
	Go      string `json:"go" yaml:"go"`
}

var versionCmd = &cobra.Command{
	Use:   "version",
	Short: "Print the version",
	Run: func(cmd *cobra.Command, _ []string) {
		output, _ := cmd.Flags().GetString("output")
		if err := render(os.Stdout, output, currentBuild()); err != nil {
			log.Fatalf("printing version: %v", err)
		}
	},
}

func init() {
	rootCmd.AddCommand(versionCmd)
	versionCmd.Flags().StringP("output", "o", formatYAML, "output format: yaml or json")
}

func currentBuild() buildInfo {
	info := buildInfo{App: app, Version: version, Commit: commit, Go: goruntime.Version()}
	if info.Commit != "" {
		return info
	}
	if bi, ok := debug.ReadBuildInfo(); ok {
		for _, s := range bi.Settings {
			if s.Key == "vcs.revision" {
				info.Commit = s.Value
			}
		}
	}
	return info
}
