// Package cli wires the webcritic commands.
package cli

import (
	"fmt"
	"io"
	"os"
	"runtime"

	"github.com/spf13/cobra"

	"github.com/anime-shed/webcritic-go/internal/config"
	"github.com/anime-shed/webcritic-go/internal/container"
	"github.com/anime-shed/webcritic-go/internal/transport"
)

var (
	logLevel string
)

// NewRootCommand creates the root command. Container options are passed to
// every command that builds the dependency graph.
func NewRootCommand(version, commit, date string, opts ...container.Option) *cobra.Command {
	transport.Version = version

	rootCmd := &cobra.Command{
		Use:   "webcritic",
		Short: "Brutally honest webpage critiques",
		Long: `webcritic sends a webpage screenshot to a multimodal model playing a
merciless web design critic and turns the reply into four 1-10 scores
(Design, Usability, Originality, Overall) and a short roast.

Run it as an HTTP service, roast a single screenshot, or watch a directory.`,
		SilenceUsage: true,
	}

	// Global flags
	rootCmd.PersistentFlags().StringVar(&logLevel, "log-level", "", "log level (debug, info, warn, error); overrides LOG_LEVEL")

	// Add subcommands
	rootCmd.AddCommand(newServeCommand(opts))
	rootCmd.AddCommand(newRoastCommand(opts))
	rootCmd.AddCommand(newWatchCommand(opts))
	rootCmd.AddCommand(newVersionCommand(version, commit, date))

	return rootCmd
}

func newVersionCommand(version, commit, date string) *cobra.Command {
	return &cobra.Command{
		Use:   "version",
		Short: "Show version information",
		Long:  "Display version number, build commit, date, and runtime information",
		Run: func(cmd *cobra.Command, args []string) {
			displayVersion := version
			displayCommit := commit
			displayDate := date

			if version == "dev" || version == "" {
				displayVersion = "development"
			}
			if commit == "none" || commit == "" {
				displayCommit = "local-build"
			}
			if date == "unknown" || date == "" {
				displayDate = "local-build"
			}

			out := cmd.OutOrStdout()
			fmt.Fprintf(out, "webcritic %s (%s) built on %s\n", displayVersion, displayCommit, displayDate)
			fmt.Fprintf(out, "Go version: %s\n", runtime.Version())
			fmt.Fprintf(out, "OS/Arch: %s/%s\n", runtime.GOOS, runtime.GOARCH)
		},
	}
}

// loadConfig reads the environment and applies global flag overrides
func loadConfig(defaultLevel string) (*config.Config, error) {
	cfg, err := config.LoadFromEnv()
	if err != nil {
		return nil, fmt.Errorf("failed to load config: %w", err)
	}
	switch {
	case logLevel != "":
		cfg.LogLevel = logLevel
	case defaultLevel != "" && os.Getenv("LOG_LEVEL") == "":
		cfg.LogLevel = defaultLevel
	}
	return cfg, nil
}

func closeContainer(c *container.Container, errOut io.Writer) {
	if err := c.Close(); err != nil {
		fmt.Fprintf(errOut, "Warning: failed to release resources: %v\n", err)
	}
}
