package build

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"testing"
	"time"

	gogit "github.com/go-git/go-git/v5"
	"github.com/go-git/go-git/v5/plumbing/object"
	"go.uber.org/zap"

	"github.com/kestrelworks/prevrel/internal/config"
	"github.com/kestrelworks/prevrel/internal/run"
)

// initFixtureRepo creates a local repository with one commit, tagged with
// each of the given tags. The directory path doubles as the clone URL.
func initFixtureRepo(t *testing.T, tags ...string) string {
	t.Helper()
	dir := t.TempDir()

	repo, err := gogit.PlainInit(dir, false)
	if err != nil {
		t.Fatalf("init repo: %v", err)
	}

	if err := os.WriteFile(filepath.Join(dir, "README.md"), []byte("fixture\n"), 0644); err != nil {
		t.Fatalf("write file: %v", err)
	}

	worktree, err := repo.Worktree()
	if err != nil {
		t.Fatalf("get worktree: %v", err)
	}
	if _, err := worktree.Add("README.md"); err != nil {
		t.Fatalf("stage file: %v", err)
	}

	hash, err := worktree.Commit("initial", &gogit.CommitOptions{
		Author: &object.Signature{
			Name:  "fixture",
			Email: "fixture@example.org",
			When:  time.Now(),
		},
	})
	if err != nil {
		t.Fatalf("commit: %v", err)
	}

	for _, tag := range tags {
		if _, err := repo.CreateTag(tag, hash, nil); err != nil {
			t.Fatalf("create tag %s: %v", tag, err)
		}
	}
	return dir
}

func TestRemoteTagExists(t *testing.T) {
	repoURL := initFixtureRepo(t, "v0.1.0", "v0.2.0")

	tests := []struct {
		tag  string
		want bool
	}{
		{tag: "v0.1.0", want: true},
		{tag: "v0.2.0", want: true},
		{tag: "v9.9.9", want: false},
	}

	for _, tt := range tests {
		t.Run(tt.tag, func(t *testing.T) {
			got, err := remoteTagExists(context.Background(), repoURL, tt.tag)
			if err != nil {
				t.Fatalf("unexpected error: %v", err)
			}
			if got != tt.want {
				t.Errorf("got %v, want %v", got, tt.want)
			}
		})
	}
}

func TestCloneTag(t *testing.T) {
	repoURL := initFixtureRepo(t, "v0.1.0")
	dest := filepath.Join(t.TempDir(), "v0.1.0")

	if err := cloneTag(context.Background(), repoURL, dest, "v0.1.0", nil); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if _, err := os.Stat(filepath.Join(dest, "README.md")); err != nil {
		t.Errorf("cloned tree incomplete: %v", err)
	}
}

func TestBuildUnknownTag(t *testing.T) {
	repoURL := initFixtureRepo(t, "v0.1.0")

	project := config.Default()
	project.RepoURL = repoURL

	builder := NewBuilder(project, run.NewRunner(nil), zap.NewNop())
	targetDir := t.TempDir()

	err := builder.Build(context.Background(), targetDir, "v9.9.9", Options{})
	if !errors.Is(err, ErrUnknownTag) {
		t.Fatalf("expected ErrUnknownTag, got %v", err)
	}

	// Unknown tags must fail before any clone.
	if _, err := os.Stat(filepath.Join(targetDir, "v9.9.9")); !os.IsNotExist(err) {
		t.Error("tag directory created despite unknown tag")
	}
}

func TestBuildCacheHit(t *testing.T) {
	// Repo URL pointing nowhere: a cached tag must short-circuit before
	// the repository is ever consulted.
	project := config.Default()
	project.RepoURL = "/nonexistent/repo"

	targetDir := t.TempDir()
	if err := os.MkdirAll(filepath.Join(targetDir, "v0.1.0"), 0755); err != nil {
		t.Fatalf("create cached dir: %v", err)
	}

	builder := NewBuilder(project, run.NewRunner(nil), zap.NewNop())
	if err := builder.Build(context.Background(), targetDir, "v0.1.0", Options{}); err != nil {
		t.Errorf("cached tag must be a no-op success: %v", err)
	}
}

// fakeMake puts a make stub on PATH that records its arguments.
func fakeMake(t *testing.T) string {
	t.Helper()
	binDir := t.TempDir()
	recordPath := filepath.Join(binDir, "make-args")

	script := "#!/bin/sh\nprintf '%s' \"$*\" > \"" + recordPath + "\"\n"
	if err := os.WriteFile(filepath.Join(binDir, "make"), []byte(script), 0755); err != nil {
		t.Fatalf("write make stub: %v", err)
	}
	t.Setenv("PATH", binDir+string(os.PathListSeparator)+os.Getenv("PATH"))
	return recordPath
}

func TestBuildDependsMakeArgs(t *testing.T) {
	// HOST short-circuits the config.guess lookup after the make run.
	t.Setenv("HOST", "x86_64-pc-linux-gnu")

	tests := []struct {
		name     string
		opts     Options
		wantArgs string
	}{
		{
			name:     "functional_tests_skip_qt",
			opts:     Options{FunctionalTests: true, UseDepends: true},
			wantArgs: "NO_QT=1",
		},
		{
			name:     "full_build",
			opts:     Options{UseDepends: true},
			wantArgs: "",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			recordPath := fakeMake(t)

			tagDir := t.TempDir()
			if err := os.MkdirAll(filepath.Join(tagDir, "depends"), 0755); err != nil {
				t.Fatalf("create depends dir: %v", err)
			}

			builder := NewBuilder(config.Default(), run.NewRunner(nil), zap.NewNop())
			host, err := builder.buildDepends(context.Background(), tagDir, tt.opts)
			if err != nil {
				t.Fatalf("unexpected error: %v", err)
			}
			if host != "x86_64-pc-linux-gnu" {
				t.Errorf("got host %q, want HOST override", host)
			}

			args, err := os.ReadFile(recordPath)
			if err != nil {
				t.Fatalf("make stub never ran: %v", err)
			}
			if string(args) != tt.wantArgs {
				t.Errorf("got make args %q, want %q", args, tt.wantArgs)
			}
		})
	}
}

func TestRelocateBinaries(t *testing.T) {
	project := config.Default()
	builder := NewBuilder(project, run.NewRunner(nil), zap.NewNop())

	tagDir := t.TempDir()
	srcDir := filepath.Join(tagDir, "src")
	if err := os.MkdirAll(filepath.Join(srcDir, "qt"), 0755); err != nil {
		t.Fatalf("create src dir: %v", err)
	}
	for _, name := range project.CoreBinaries {
		if err := os.WriteFile(filepath.Join(srcDir, name), []byte("bin"), 0755); err != nil {
			t.Fatalf("write %s: %v", name, err)
		}
	}
	if err := os.WriteFile(filepath.Join(srcDir, "qt", "bitcoin-qt"), []byte("gui"), 0755); err != nil {
		t.Fatalf("write gui binary: %v", err)
	}

	if err := builder.relocateBinaries(tagDir, Options{}); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	for _, name := range project.CoreBinaries {
		if _, err := os.Stat(filepath.Join(tagDir, "bin", name)); err != nil {
			t.Errorf("bin/%s missing: %v", name, err)
		}
		if _, err := os.Stat(filepath.Join(srcDir, name)); !os.IsNotExist(err) {
			t.Errorf("src/%s not moved", name)
		}
	}
	if _, err := os.Stat(filepath.Join(tagDir, "bin", "bitcoin-qt")); err != nil {
		t.Errorf("GUI binary not relocated: %v", err)
	}
}

func TestRelocateBinariesFunctionalTests(t *testing.T) {
	project := config.Default()
	builder := NewBuilder(project, run.NewRunner(nil), zap.NewNop())

	tagDir := t.TempDir()
	srcDir := filepath.Join(tagDir, "src")
	if err := os.MkdirAll(srcDir, 0755); err != nil {
		t.Fatalf("create src dir: %v", err)
	}
	for _, name := range project.CoreBinaries {
		if err := os.WriteFile(filepath.Join(srcDir, name), []byte("bin"), 0755); err != nil {
			t.Fatalf("write %s: %v", name, err)
		}
	}

	// Functional-tests builds configure --without-gui; no GUI binary
	// exists and its absence must not fail relocation.
	if err := builder.relocateBinaries(tagDir, Options{FunctionalTests: true}); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if _, err := os.Stat(filepath.Join(tagDir, "bin", "bitcoind")); err != nil {
		t.Errorf("bin/bitcoind missing: %v", err)
	}
}

func TestBuildMissingCoreBinaryFails(t *testing.T) {
	project := config.Default()
	builder := NewBuilder(project, run.NewRunner(nil), zap.NewNop())

	tagDir := t.TempDir()
	if err := os.MkdirAll(filepath.Join(tagDir, "src"), 0755); err != nil {
		t.Fatalf("create src dir: %v", err)
	}

	if err := builder.relocateBinaries(tagDir, Options{}); err == nil {
		t.Error("expected error when a core binary was not produced")
	}
}
