package main

import (
	"fmt"
	"io"
	"runtime"

	"github.com/spf13/cobra"

	"sta-hq/verdict/pkg/cli"
)

// Set with -ldflags "-X main.Version=...".
var (
	Version   = "0.1.0"
	GitCommit = "unknown"
	BuildDate = "unknown"
)

var versionFlags struct {
	format string
}

type buildInfo struct {
	Version   string `json:"version"`
	GitCommit string `json:"git_commit"`
	BuildDate string `json:"build_date"`
	GoVersion string `json:"go_version"`
	Platform  string `json:"platform"`
}

func currentBuild() buildInfo {
	return buildInfo{
		Version:   Version,
		GitCommit: GitCommit,
		BuildDate: BuildDate,
		GoVersion: runtime.Version(),
		Platform:  runtime.GOOS + "/" + runtime.GOARCH,
	}
}

func (b buildInfo) WriteText(w io.Writer) error {
	_, err := fmt.Fprintf(w, "Verdict %s\nGit Commit: %s\nBuild Date: %s\nGo Version: %s\nOS/Arch: %s\n",
		b.Version, b.GitCommit, b.BuildDate, b.GoVersion, b.Platform)
	return err
}

var versionCmd = &cobra.Command{
	Use:   "version",
	Short: "Print version information",
	Long:  `Print the release, git commit, build date and Go toolchain of this binary.`,
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		format, err := cli.ParseFormat(versionFlags.format)
		if err != nil {
			return err
		}
		f, err := cli.NewFormatter(format)
		if err != nil {
			return err
		}
		return f.FormatTo(cmd.OutOrStdout(), currentBuild())
	},
}

func init() {
	versionCmd.Flags().StringVarP(&versionFlags.format, "format", "f", "text", "output format: text, json or ndjson")
	rootCmd.AddCommand(versionCmd)
}
