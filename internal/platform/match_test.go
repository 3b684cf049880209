package platform

import (
	"errors"
	"testing"
)

var testPatterns = []Pattern{
	{Glob: "x86_64-*-linux*", Tag: "x86_64-linux-gnu"},
	{Glob: "x86_64-apple-darwin*", Tag: "osx64"},
}

func TestResolveTag(t *testing.T) {
	tests := []struct {
		name    string
		triple  string
		want    string
		wantErr bool
	}{
		{
			name:   "linux_gnu",
			triple: "x86_64-unknown-linux-gnu",
			want:   "x86_64-linux-gnu",
		},
		{
			name:   "linux_pc",
			triple: "x86_64-pc-linux-gnu",
			want:   "x86_64-linux-gnu",
		},
		{
			name:   "darwin",
			triple: "x86_64-apple-darwin20",
			want:   "osx64",
		},
		{
			name:    "aarch64_linux",
			triple:  "aarch64-unknown-linux-gnu",
			wantErr: true,
		},
		{
			name:    "windows",
			triple:  "x86_64-w64-mingw32",
			wantErr: true,
		},
		{
			name:    "empty",
			triple:  "",
			wantErr: true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := ResolveTag(tt.triple, testPatterns)
			if tt.wantErr {
				if !errors.Is(err, ErrUnresolvedPlatform) {
					t.Errorf("expected ErrUnresolvedPlatform, got %v", err)
				}
				return
			}
			if err != nil {
				t.Fatalf("unexpected error: %v", err)
			}
			if got != tt.want {
				t.Errorf("got %q, want %q", got, tt.want)
			}
		})
	}
}

func TestResolveTagOrder(t *testing.T) {
	// First match must win, even when a later pattern also matches.
	patterns := []Pattern{
		{Glob: "x86_64-*", Tag: "first"},
		{Glob: "x86_64-*-linux*", Tag: "second"},
	}

	got, err := ResolveTag("x86_64-unknown-linux-gnu", patterns)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if got != "first" {
		t.Errorf("got %q, want first pattern to win", got)
	}
}

func TestResolveTagBadPattern(t *testing.T) {
	_, err := ResolveTag("x86_64-pc-linux-gnu", []Pattern{{Glob: "x86_64-[", Tag: "broken"}})
	if err == nil {
		t.Fatal("expected error for malformed pattern")
	}
	if errors.Is(err, ErrUnresolvedPlatform) {
		t.Error("malformed pattern should not report as unresolved platform")
	}
}
