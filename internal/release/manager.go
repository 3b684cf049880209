// Package release drives the per-tag workflow: it prepares the target
// directory, detects the build host, and dispatches every requested tag
// to either the binary fetcher or the source builder. Tags are processed
// strictly in order and the first failure aborts the remaining queue.
package release

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"

	"go.uber.org/zap"

	"github.com/kestrelworks/prevrel/internal/build"
	"github.com/kestrelworks/prevrel/internal/config"
	"github.com/kestrelworks/prevrel/internal/fetch"
	"github.com/kestrelworks/prevrel/internal/platform"
	"github.com/kestrelworks/prevrel/internal/run"
)

// configFlagsEnvVar holds extra ./configure arguments supplied by the
// caller's environment.
const configFlagsEnvVar = "CONFIG_FLAGS"

// functionalTestFlags configures a build without GUI, tests, or
// benchmarks, the minimum a functional-test harness needs.
const functionalTestFlags = "--without-gui --disable-tests --disable-bench"

// Options selects the mode and behavior for a run.
type Options struct {
	// FunctionalTests configures builds for functional tests only.
	FunctionalTests bool
	// RemoveDir deletes and recreates pre-existing per-tag directories.
	RemoveDir bool
	// UseDepends builds platform dependencies before configuring.
	UseDepends bool
	// DownloadBinary switches to binary-download mode.
	DownloadBinary bool
	// TargetDir is the root output directory.
	TargetDir string
}

// Manager orchestrates release retrieval for a set of tags.
type Manager struct {
	project *config.Project
	logger  *zap.Logger
}

// NewManager creates a manager for the given project.
func NewManager(project *config.Project, logger *zap.Logger) *Manager {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Manager{project: project, logger: logger}
}

// Run processes every tag in order, stopping at the first failure and
// returning it. An empty tag list is a no-op. The target directory is
// created if missing; host detection and, in binary mode, platform
// resolution happen once, before any tag is touched.
func (m *Manager) Run(ctx context.Context, opts Options, tags []string) error {
	if len(tags) == 0 {
		return nil
	}

	targetDir, err := filepath.Abs(opts.TargetDir)
	if err != nil {
		return fmt.Errorf("resolve target dir: %w", err)
	}
	if err := os.MkdirAll(targetDir, 0755); err != nil {
		return fmt.Errorf("create target dir: %w", err)
	}
	m.logger.Info("releases directory", zap.String("dir", targetDir))

	runner := run.NewRunner(m.logger)

	// "depends" is the helper location when invoked from a source
	// checkout, as the original workflow assumes; DetectTriple falls back
	// to the runtime when the helper is absent.
	host, err := platform.DetectTriple(ctx, runner, "depends")
	if err != nil {
		return err
	}
	m.logger.Debug("detected host",
		zap.String("triple", host.Triple),
		zap.String("source", host.Source))

	if opts.DownloadBinary {
		platformTag, err := platform.ResolveTag(host.Triple, m.project.Platforms)
		if err != nil {
			return err
		}
		fetcher := fetch.NewFetcher(m.project, platformTag, m.logger)
		for _, tag := range tags {
			if err := fetcher.Fetch(ctx, targetDir, tag, opts.RemoveDir); err != nil {
				return fmt.Errorf("fetch %s: %w", tag, err)
			}
		}
		return nil
	}

	builder := build.NewBuilder(m.project, runner, m.logger)
	configFlags := buildConfigFlags(opts.FunctionalTests)
	for _, tag := range tags {
		err := builder.Build(ctx, targetDir, tag, build.Options{
			FunctionalTests: opts.FunctionalTests,
			RemoveExisting:  opts.RemoveDir,
			UseDepends:      opts.UseDepends,
			Host:            host.Triple,
			ConfigFlags:     configFlags,
		})
		if err != nil {
			return fmt.Errorf("build %s: %w", tag, err)
		}
	}
	return nil
}

// buildConfigFlags assembles the extra ./configure arguments from the
// caller's environment plus the functional-tests extras.
func buildConfigFlags(functionalTests bool) string {
	flags := os.Getenv(configFlagsEnvVar)
	if functionalTests {
		if flags != "" {
			flags += " "
		}
		flags += functionalTestFlags
	}
	return flags
}

// ExitStatus returns the exit code the process should terminate with for
// the given error: the child's code for external command failures, 1 for
// domain failures, 0 for nil.
func ExitStatus(err error) int {
	if err == nil {
		return 0
	}
	var cmdErr *run.CommandError
	if errors.As(err, &cmdErr) && cmdErr.ExitCode > 0 {
		return cmdErr.ExitCode
	}
	return 1
}
