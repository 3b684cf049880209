// Package fetch downloads pre-built release tarballs, verifies them
// against the published checksum manifest, and extracts them into
// per-tag directories.
package fetch

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"regexp"
	"strings"

	"go.uber.org/zap"

	"github.com/kestrelworks/prevrel/internal/config"
)

// ErrArtifactNotFound indicates the release tarball does not exist at
// the expected remote location.
var ErrArtifactNotFound = errors.New("fetch: remote artifact not found")

// rcTag matches release-candidate tags like v0.20.1rc2, capturing the
// bare version and the rc suffix. Release candidates are published under
// a test.rcN path segment instead of the final release path.
var rcTag = regexp.MustCompile(`^v(.*)(rc[0-9]+)$`)

// artifact holds the remote and local names derived from a tag.
type artifact struct {
	version      string // tag without the leading v, rc suffix included
	topDir       string // top-level directory inside the tarball
	tarballName  string
	tarballURL   string
	manifestName string // local name, unique per version
	manifestURL  string
}

// Fetcher retrieves pre-built releases for one platform.
type Fetcher struct {
	project     *config.Project
	platformTag string
	downloader  *Downloader
	logger      *zap.Logger
}

// NewFetcher creates a fetcher for the given project and platform tag.
func NewFetcher(project *config.Project, platformTag string, logger *zap.Logger) *Fetcher {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Fetcher{
		project:     project,
		platformTag: platformTag,
		downloader:  NewDownloader(),
		logger:      logger,
	}
}

// artifactFor derives all artifact names and URLs for a tag.
func (f *Fetcher) artifactFor(tag string) artifact {
	version := strings.TrimPrefix(tag, "v")

	binPath := fmt.Sprintf("bin/%s-core-%s", f.project.Name, version)
	if m := rcTag.FindStringSubmatch(tag); m != nil {
		binPath = fmt.Sprintf("bin/%s-core-%s/test.%s", f.project.Name, m[1], m[2])
	}

	tarballName := fmt.Sprintf("%s-%s-%s.tar.gz", f.project.Name, version, f.platformTag)
	base := strings.TrimSuffix(f.project.DownloadBase, "/")

	return artifact{
		version:      version,
		topDir:       fmt.Sprintf("%s-%s", f.project.Name, version),
		tarballName:  tarballName,
		tarballURL:   fmt.Sprintf("%s/%s/%s", base, binPath, tarballName),
		manifestName: fmt.Sprintf("SHA256SUMS-%s.asc", version),
		manifestURL:  fmt.Sprintf("%s/%s/SHA256SUMS.asc", base, binPath),
	}
}

// Fetch downloads, verifies, and extracts the release for one tag into
// <targetDir>/<tag>. An existing tag directory is treated as a cache and
// skipped unless removeExisting is set. Intermediate tarball and
// manifest files live in targetDir and are removed on success; the
// tarball is also removed when verification fails.
func (f *Fetcher) Fetch(ctx context.Context, targetDir, tag string, removeExisting bool) error {
	tagDir := filepath.Join(targetDir, tag)

	if info, err := os.Stat(tagDir); err == nil && info.IsDir() {
		if !removeExisting {
			f.logger.Info("using cached release", zap.String("tag", tag))
			return nil
		}
		if err := os.RemoveAll(tagDir); err != nil {
			return fmt.Errorf("remove existing %s: %w", tagDir, err)
		}
	}
	if err := os.MkdirAll(tagDir, 0755); err != nil {
		return fmt.Errorf("create tag dir: %w", err)
	}

	art := f.artifactFor(tag)
	f.logger.Info("fetching release",
		zap.String("tag", tag),
		zap.String("tarball", art.tarballURL),
		zap.String("manifest", art.manifestURL))

	// Probe before downloading so a tag that was never released for this
	// platform fails fast.
	found, err := f.downloader.Probe(ctx, art.tarballURL)
	if err != nil {
		return err
	}
	if !found {
		return fmt.Errorf("%w: %s", ErrArtifactNotFound, art.tarballURL)
	}

	tarballPath := filepath.Join(targetDir, art.tarballName)
	manifestPath := filepath.Join(targetDir, art.manifestName)

	if err := f.downloader.DownloadToFile(ctx, art.tarballURL, tarballPath); err != nil {
		return fmt.Errorf("download tarball: %w", err)
	}
	if err := f.downloader.DownloadToFile(ctx, art.manifestURL, manifestPath); err != nil {
		return fmt.Errorf("download manifest: %w", err)
	}

	if err := verifyManifest(tarballPath, manifestPath); err != nil {
		// Never leave an unverified tarball behind.
		os.Remove(tarballPath)
		return err
	}

	if err := extractTarGz(tarballPath, tagDir, art.topDir); err != nil {
		return fmt.Errorf("extract tarball: %w", err)
	}

	if err := os.Remove(tarballPath); err != nil {
		return fmt.Errorf("remove tarball: %w", err)
	}
	if err := os.Remove(manifestPath); err != nil {
		return fmt.Errorf("remove manifest: %w", err)
	}

	f.logger.Info("release ready", zap.String("tag", tag), zap.String("dir", tagDir))
	return nil
}
