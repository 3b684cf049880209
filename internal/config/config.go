// Package config describes the project whose releases are fetched or
// built. Defaults target Bitcoin Core; an optional Lua file overrides
// them for forks or projects with the same release layout.
package config

import (
	"fmt"
	"os"

	"github.com/kestrelworks/prevrel/internal/platform"
)

// Project identifies the software project and its release conventions.
type Project struct {
	// Name is the artifact base name, e.g. "bitcoin" in
	// bitcoin-0.20.1-x86_64-linux-gnu.tar.gz.
	Name string
	// RepoURL is the source repository cloned in build mode.
	RepoURL string
	// DownloadBase is the root URL release tarballs are published under.
	DownloadBase string
	// CoreBinaries are the executables relocated from src/ into bin/
	// after a source build.
	CoreBinaries []string
	// GUIBinary is the GUI executable path relative to the source tree,
	// relocated only when a GUI build was produced. May be empty.
	GUIBinary string
	// Platforms is the ordered host-triple glob to platform-tag mapping
	// used by binary download mode.
	Platforms []platform.Pattern
}

// Default returns the Bitcoin Core project description.
func Default() *Project {
	return &Project{
		Name:         "bitcoin",
		RepoURL:      "https://github.com/bitcoin/bitcoin",
		DownloadBase: "https://bitcoincore.org",
		CoreBinaries: []string{"bitcoind", "bitcoin-cli", "bitcoin-tx"},
		GUIBinary:    "src/qt/bitcoin-qt",
		Platforms: []platform.Pattern{
			{Glob: "x86_64-*-linux*", Tag: "x86_64-linux-gnu"},
			{Glob: "x86_64-apple-darwin*", Tag: "osx64"},
		},
	}
}

// Load reads a project description from a Lua config file. A missing
// file is not an error: the defaults are returned. Fields absent from
// the file keep their default values.
func Load(path string) (*Project, error) {
	project := Default()
	if path == "" {
		return project, nil
	}

	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return project, nil
		}
		return nil, fmt.Errorf("read config: %w", err)
	}

	if err := parseLua(string(data), project); err != nil {
		return nil, fmt.Errorf("parse %s: %w", path, err)
	}
	if err := project.Validate(); err != nil {
		return nil, fmt.Errorf("invalid config %s: %w", path, err)
	}
	return project, nil
}

// Validate checks that the fields every mode depends on are present.
func (p *Project) Validate() error {
	if p.Name == "" {
		return fmt.Errorf("project name is required")
	}
	if p.RepoURL == "" {
		return fmt.Errorf("repo_url is required")
	}
	if p.DownloadBase == "" {
		return fmt.Errorf("download_base is required")
	}
	if len(p.CoreBinaries) == 0 {
		return fmt.Errorf("core_binaries must list at least one executable")
	}
	if len(p.Platforms) == 0 {
		return fmt.Errorf("platforms must list at least one pattern")
	}
	return nil
}
