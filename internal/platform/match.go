package platform

import (
	"errors"
	"fmt"
	"path"
)

// ErrUnresolvedPlatform indicates the host triple matched none of the
// known binary platform patterns. Binary download mode must fail with
// this before any network access.
var ErrUnresolvedPlatform = errors.New("platform: no binary platform for host")

// ResolveTag maps a host triple to a platform tag by evaluating the
// pattern list in order; the first matching glob wins.
func ResolveTag(triple string, patterns []Pattern) (string, error) {
	for _, p := range patterns {
		ok, err := path.Match(p.Glob, triple)
		if err != nil {
			return "", fmt.Errorf("bad platform pattern %q: %w", p.Glob, err)
		}
		if ok {
			return p.Tag, nil
		}
	}
	return "", fmt.Errorf("%w: %s", ErrUnresolvedPlatform, triple)
}
