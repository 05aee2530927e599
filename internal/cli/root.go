// Package cli implements the bannerapp command line.
//
// Commands:
//   - serve: run the HTTP API the upload page talks to
//   - compose: build banners from files on disk, without a server
//   - sizes: list the supported banner sizes
//
// All commands accept --verbose for debug logging and --config for a TOML
// settings file. A .env file in the working directory is loaded first.
package cli

import (
	"context"
	"fmt"
	"os"

	"github.com/charmbracelet/log"
	"github.com/joho/godotenv"
	"github.com/spf13/cobra"
)

var (
	version = "dev"
	commit  = "none"
	date    = "unknown"
)

// SetVersion sets what --version prints. main calls it with values
// injected by ldflags.
func SetVersion(v, c, d string) {
	version, commit, date = v, c, d
}

type globalFlags struct {
	verbose bool
	config  string
}

// NewRootCommand builds the command tree.
func NewRootCommand() *cobra.Command {
	flags := &globalFlags{}

	root := &cobra.Command{
		Use:           "bannerapp",
		Short:         "Composite visuals onto banner templates",
		Long:          `bannerapp places one or more visual images into the cut-out of a banner template, with rounded corners where the banner size calls for them, and exports the result as PNG/JPEG files or a zip archive.`,
		Version:       version,
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRun: func(cmd *cobra.Command, args []string) {
			_ = godotenv.Load()

			level := log.InfoLevel
			if flags.verbose {
				level = log.DebugLevel
			}
			cmd.SetContext(withLogger(cmd.Context(), newLogger(os.Stderr, level)))
		},
	}

	root.SetVersionTemplate(fmt.Sprintf("bannerapp %s\ncommit: %s\nbuilt: %s\n", version, commit, date))
	root.PersistentFlags().BoolVarP(&flags.verbose, "verbose", "v", false, "enable verbose logging")
	root.PersistentFlags().StringVarP(&flags.config, "config", "c", "", "path to a TOML config file")

	root.AddCommand(newServeCmd(flags))
	root.AddCommand(newComposeCmd(flags))
	root.AddCommand(newSizesCmd())

	return root
}

// Execute runs the CLI with ctx.
func Execute(ctx context.Context) error {
	return NewRootCommand().ExecuteContext(ctx)
}
