package ps

import (
	"fmt"

	"github.com/go-git/go-git/v6"
	"github.com/go-git/go-git/v6/plumbing"
)

// Snapshot marks the current store state (or a past transaction) with a named
// Git tag so it can be recovered later.
func (persistence *Persistence) Snapshot(name string, asof *Transaction) error {
	persistence.mu.Lock()
	defer persistence.mu.Unlock()

	if asof != nil {
		_, err := persistence.repo.CreateTag(name, plumbing.NewHash(asof.Id), nil)
		return err
	}

	headRef, err := persistence.repo.Head()
	if err != nil {
		return fmt.Errorf("nothing to snapshot: %w", err)
	}

	_, err = persistence.repo.CreateTag(name, headRef.Hash(), nil)
	return err
}

// Recover resets the store to a named snapshot.
func (persistence *Persistence) Recover(name string) error {
	persistence.mu.Lock()
	defer persistence.mu.Unlock()

	ref, err := persistence.repo.Tag(name)
	if err != nil {
		return fmt.Errorf("snapshot %q not found: %w", name, err)
	}

	return persistence.resetTo(ref.Hash())
}

// Restore rolls the entire metadata store back to the state committed by the
// given transaction. Records, tag pointers, history, and the child index all
// move together since they live in one tree.
func (persistence *Persistence) Restore(asof Transaction) error {
	persistence.mu.Lock()
	defer persistence.mu.Unlock()

	return persistence.resetTo(plumbing.NewHash(asof.Id))
}

func (persistence *Persistence) resetTo(hash plumbing.Hash) error {
	wt, err := persistence.repo.Worktree()
	if err != nil {
		return err
	}

	return wt.Reset(&git.ResetOptions{
		Mode:   git.HardReset,
		Commit: hash,
	})
}
