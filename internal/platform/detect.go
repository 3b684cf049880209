package platform

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"runtime"
	"strings"

	"github.com/shirou/gopsutil/v4/host"

	"github.com/kestrelworks/prevrel/internal/run"
)

// hostEnvVar overrides triple detection when set.
const hostEnvVar = "HOST"

// configGuess is the autotools host-identification helper shipped in the
// project's depends tree.
const configGuess = "config.guess"

// DetectTriple determines the build host triple. The HOST environment
// variable wins; otherwise the config.guess helper under dependsDir is
// executed if present; otherwise the triple is synthesized from the Go
// runtime. dependsDir may be empty to skip the helper.
func DetectTriple(ctx context.Context, runner *run.Runner, dependsDir string) (*Info, error) {
	if triple := os.Getenv(hostEnvVar); triple != "" {
		return &Info{Triple: strings.TrimSpace(triple), Source: "env"}, nil
	}

	if dependsDir != "" {
		helper := filepath.Join(dependsDir, configGuess)
		if _, err := os.Stat(helper); err == nil {
			triple, err := runner.Output(ctx, dependsDir, "./"+configGuess)
			if err != nil {
				return nil, fmt.Errorf("run %s: %w", configGuess, err)
			}
			if triple != "" {
				return &Info{Triple: triple, Source: "config.guess"}, nil
			}
		}
	}

	triple, err := runtimeTriple(ctx)
	if err != nil {
		return nil, err
	}
	return &Info{Triple: triple, Source: "runtime"}, nil
}

// runtimeTriple synthesizes a host triple from GOOS/GOARCH. On darwin the
// kernel major version is appended, matching config.guess output like
// "x86_64-apple-darwin20".
func runtimeTriple(ctx context.Context) (string, error) {
	arch, err := tripleArch(runtime.GOARCH)
	if err != nil {
		return "", err
	}

	switch runtime.GOOS {
	case "linux":
		return arch + "-pc-linux-gnu", nil
	case "darwin":
		return arch + "-apple-darwin" + darwinMajor(ctx), nil
	case "windows":
		return arch + "-w64-mingw32", nil
	default:
		return "", fmt.Errorf("cannot synthesize host triple for %s", runtime.GOOS)
	}
}

// darwinMajor returns the Darwin kernel major version ("20" for macOS 11)
// or an empty string when detection fails; a bare "-apple-darwin" triple
// still matches the darwin glob patterns.
func darwinMajor(ctx context.Context) string {
	version, err := host.KernelVersionWithContext(ctx)
	if err != nil {
		return ""
	}
	major, _, ok := strings.Cut(version, ".")
	if !ok {
		return ""
	}
	return major
}

// tripleArch maps GOARCH values to the architecture field of a triple.
func tripleArch(goarch string) (string, error) {
	switch goarch {
	case "amd64":
		return "x86_64", nil
	case "arm64":
		return "aarch64", nil
	case "386":
		return "i686", nil
	case "arm":
		return "arm", nil
	default:
		return "", fmt.Errorf("unsupported architecture: %s", goarch)
	}
}
