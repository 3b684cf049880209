// Package build clones the project repository at a tag and drives its
// standard autotools build, leaving the produced executables under a
// bin/ subdirectory so built trees mirror the binary-download layout.
package build

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"go.uber.org/zap"

	"github.com/kestrelworks/prevrel/internal/config"
	"github.com/kestrelworks/prevrel/internal/platform"
	"github.com/kestrelworks/prevrel/internal/run"
)

// ErrUnknownTag indicates the requested tag does not exist in the
// project repository. Returned before any clone is attempted.
var ErrUnknownTag = errors.New("build: tag not found in repository")

// Options controls a single tag build.
type Options struct {
	// FunctionalTests configures without GUI, tests, or benchmarks.
	FunctionalTests bool
	// RemoveExisting wipes a pre-existing tag directory first.
	RemoveExisting bool
	// UseDepends builds the project's depends tree before configuring.
	UseDepends bool
	// Host is the detected host triple. When UseDepends is set it is
	// re-derived from the depends tree's config.guess unless HOST
	// overrides it.
	Host string
	// ConfigFlags are extra arguments appended to ./configure, after the
	// generated --prefix flag.
	ConfigFlags string
}

// Builder builds project releases from source, one tag at a time.
type Builder struct {
	project *config.Project
	runner  *run.Runner
	logger  *zap.Logger
}

// NewBuilder creates a builder for the given project.
func NewBuilder(project *config.Project, runner *run.Runner, logger *zap.Logger) *Builder {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Builder{project: project, runner: runner, logger: logger}
}

// Build clones and builds one tag into <targetDir>/<tag>. An existing
// tag directory is treated as a cache and skipped unless
// opts.RemoveExisting is set. Unknown tags fail before any clone.
func (b *Builder) Build(ctx context.Context, targetDir, tag string, opts Options) error {
	tagDir := filepath.Join(targetDir, tag)

	if info, err := os.Stat(tagDir); err == nil && info.IsDir() {
		if !opts.RemoveExisting {
			b.logger.Info("using cached build", zap.String("tag", tag))
			return nil
		}
		if err := os.RemoveAll(tagDir); err != nil {
			return fmt.Errorf("remove existing %s: %w", tagDir, err)
		}
	}

	known, err := remoteTagExists(ctx, b.project.RepoURL, tag)
	if err != nil {
		return err
	}
	if !known {
		return fmt.Errorf("%w: %s", ErrUnknownTag, tag)
	}

	b.logger.Info("cloning repository",
		zap.String("url", b.project.RepoURL),
		zap.String("tag", tag))
	if err := cloneTag(ctx, b.project.RepoURL, tagDir, tag, os.Stderr); err != nil {
		return err
	}

	host := opts.Host
	if opts.UseDepends {
		host, err = b.buildDepends(ctx, tagDir, opts)
		if err != nil {
			return err
		}
	}

	absTagDir, err := filepath.Abs(tagDir)
	if err != nil {
		return fmt.Errorf("resolve tag dir: %w", err)
	}

	configArgs := []string{fmt.Sprintf("--prefix=%s/depends/%s", absTagDir, host)}
	configArgs = append(configArgs, strings.Fields(opts.ConfigFlags)...)

	steps := [][]string{
		{"./autogen.sh"},
		append([]string{"./configure"}, configArgs...),
		{"make"},
	}
	for _, step := range steps {
		if err := b.runner.Run(ctx, tagDir, nil, step[0], step[1:]...); err != nil {
			return err
		}
	}

	return b.relocateBinaries(tagDir, opts)
}

// buildDepends runs the project's dependency build and returns the host
// triple the depends output is keyed under.
func (b *Builder) buildDepends(ctx context.Context, tagDir string, opts Options) (string, error) {
	dependsDir := filepath.Join(tagDir, "depends")

	// NO_QT goes on the make command line so it wins even if the
	// makefile assigns a default.
	var makeArgs []string
	if opts.FunctionalTests {
		makeArgs = append(makeArgs, "NO_QT=1")
	}
	if err := b.runner.Run(ctx, dependsDir, nil, "make", makeArgs...); err != nil {
		return "", err
	}

	// The depends output directory is named after config.guess's idea of
	// the host, which may differ from the triple detected earlier.
	info, err := platform.DetectTriple(ctx, b.runner, dependsDir)
	if err != nil {
		return "", err
	}
	return info.Triple, nil
}

// relocateBinaries moves the produced executables into bin/, matching
// the layout of an extracted binary release.
func (b *Builder) relocateBinaries(tagDir string, opts Options) error {
	binDir := filepath.Join(tagDir, "bin")
	if err := os.MkdirAll(binDir, 0755); err != nil {
		return fmt.Errorf("create bin dir: %w", err)
	}

	for _, name := range b.project.CoreBinaries {
		src := filepath.Join(tagDir, "src", name)
		dst := filepath.Join(binDir, name)
		if err := os.Rename(src, dst); err != nil {
			return fmt.Errorf("move %s: %w", name, err)
		}
	}

	// Functional-tests mode configures --without-gui, so a GUI binary
	// only exists otherwise, and then only when its toolkit was found.
	if !opts.FunctionalTests && b.project.GUIBinary != "" {
		src := filepath.Join(tagDir, filepath.FromSlash(b.project.GUIBinary))
		if _, err := os.Stat(src); err == nil {
			dst := filepath.Join(binDir, filepath.Base(src))
			if err := os.Rename(src, dst); err != nil {
				return fmt.Errorf("move %s: %w", b.project.GUIBinary, err)
			}
		}
	}

	return nil
}
