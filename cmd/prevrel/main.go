// Command prevrel fetches or builds tagged historical releases of a
// project so a test harness has prior release binaries available under a
// common layout.
//
//	prevrel -b v0.20.1 v0.21.0      download release binaries
//	prevrel -f -d v0.20.1           build from source for functional tests
package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/kestrelworks/prevrel/internal/config"
	"github.com/kestrelworks/prevrel/internal/release"
)

// Version will be set at build time via -ldflags
var Version = "v0.1.0"

func main() {
	os.Exit(run(os.Args[1:]))
}

func run(args []string) int {
	var (
		opts       release.Options
		configPath string
		verbose    bool
	)

	cmd := &cobra.Command{
		Use:           "prevrel [flags] tag [tag...]",
		Short:         "Fetch or build tagged historical releases",
		Long:          "prevrel downloads pre-built release tarballs or builds tagged\nreleases from source, placing each under <target-dir>/<tag>/.",
		Version:       Version,
		Args:          cobra.ArbitraryArgs,
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, tags []string) error {
			if len(tags) == 0 {
				// No tags is a usage hint, not an error.
				return cmd.Usage()
			}

			project, err := config.Load(configPath)
			if err != nil {
				return err
			}

			logger, err := newLogger(verbose)
			if err != nil {
				return err
			}
			defer logger.Sync()

			ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
			defer stop()

			return release.NewManager(project, logger).Run(ctx, opts, tags)
		},
	}

	flags := cmd.Flags()
	flags.BoolVarP(&opts.FunctionalTests, "functional-tests", "f", false, "Configure for functional tests")
	flags.BoolVarP(&opts.RemoveDir, "remove-dir", "r", false, "Remove existing directory")
	flags.BoolVarP(&opts.UseDepends, "depends", "d", false, "Use depends")
	flags.BoolVarP(&opts.DownloadBinary, "download-binary", "b", false, "Download release binary")
	flags.StringVarP(&opts.TargetDir, "target-dir", "t", "releases", "Target directory")
	flags.StringVar(&configPath, "config", "prevrel.lua", "Project config file (optional)")
	flags.BoolVarP(&verbose, "verbose", "v", false, "Enable debug logging")

	cmd.SetArgs(args)
	if err := cmd.ExecuteContext(context.Background()); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		return release.ExitStatus(err)
	}
	return 0
}
