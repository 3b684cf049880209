package build

import (
	"context"
	"fmt"
	"io"

	gogit "github.com/go-git/go-git/v5"
	gitconfig "github.com/go-git/go-git/v5/config"
	"github.com/go-git/go-git/v5/plumbing"
	"github.com/go-git/go-git/v5/storage/memory"
)

// remoteTagExists lists the repository's tags without cloning and
// reports whether tag is among them.
func remoteTagExists(ctx context.Context, repoURL, tag string) (bool, error) {
	remote := gogit.NewRemote(memory.NewStorage(), &gitconfig.RemoteConfig{
		Name: "origin",
		URLs: []string{repoURL},
	})

	refs, err := remote.ListContext(ctx, &gogit.ListOptions{})
	if err != nil {
		return false, fmt.Errorf("list remote tags: %w", err)
	}

	want := plumbing.NewTagReferenceName(tag)
	for _, ref := range refs {
		if ref.Name() == want {
			return true, nil
		}
	}
	return false, nil
}

// cloneTag clones repoURL into dir and checks out the given tag.
// Progress output goes to progress, which may be nil.
func cloneTag(ctx context.Context, repoURL, dir, tag string, progress io.Writer) error {
	repo, err := gogit.PlainCloneContext(ctx, dir, false, &gogit.CloneOptions{
		URL:      repoURL,
		Tags:     gogit.AllTags,
		Progress: progress,
	})
	if err != nil {
		return fmt.Errorf("clone %s: %w", repoURL, err)
	}

	worktree, err := repo.Worktree()
	if err != nil {
		return fmt.Errorf("get worktree: %w", err)
	}

	err = worktree.Checkout(&gogit.CheckoutOptions{
		Branch: plumbing.NewTagReferenceName(tag),
	})
	if err != nil {
		return fmt.Errorf("checkout %s: %w", tag, err)
	}

	return nil
}
