package ps

import (
	"errors"
	"os"
	"sync"

	"github.com/go-git/go-billy/v6/memfs"
	"github.com/go-git/go-billy/v6/osfs"
	"github.com/go-git/go-git/v6"
	"github.com/go-git/go-git/v6/plumbing/cache"
	"github.com/go-git/go-git/v6/storage/filesystem"
	"github.com/go-git/go-git/v6/storage/memory"
)

var ErrNotInitialized = errors.New("persistence layer not initialized")

// Persistence is the metadata record store. Every dataset record, tag
// pointer, tag history entry, and index file lives in a Git tree; every
// mutation is a single commit, so a reader never observes a half-written
// state.
type Persistence struct {
	repo         *git.Repository
	mu           sync.RWMutex
	isMemoryMode bool

	// ExplicitTagOverwrite makes AddTag fail with DuplicateTagError when
	// the (name, label) pointer already targets a different dataset,
	// instead of silently overwriting it.
	ExplicitTagOverwrite bool
}

// IsInitialized returns true if the persistence layer has a valid repository
func (p *Persistence) IsInitialized() bool {
	return p != nil && p.repo != nil
}

// ensureInitialized checks if the persistence layer is initialized and returns an error if not
func (p *Persistence) ensureInitialized() error {
	if !p.IsInitialized() {
		return ErrNotInitialized
	}
	return nil
}

// NewMemoryPersistence creates an ephemeral store for tests and scratch work.
func NewMemoryPersistence() (Persistence, error) {
	wt := memfs.New()
	storer := memory.NewStorage()

	repo, err := git.Init(storer, git.WithWorkTree(wt))
	if err != nil {
		return Persistence{}, err
	}

	return Persistence{
		repo:         repo,
		isMemoryMode: true,
	}, nil
}

// NewFilePersistence opens the repository rooted at baseDir. Initialization
// is idempotent: an existing repository is attached to, a fresh path gets a
// new empty store.
func NewFilePersistence(baseDir string) (Persistence, error) {
	if err := os.MkdirAll(baseDir, 0755); err != nil {
		return Persistence{}, err
	}

	wt := osfs.New(baseDir)
	fs, err := wt.Chroot(".git")
	if err != nil {
		return Persistence{}, err
	}

	storer := filesystem.NewStorageWithOptions(
		fs,
		cache.NewObjectLRUDefault(),
		filesystem.Options{ExclusiveAccess: true})

	var repo *git.Repository

	if _, statErr := os.Stat(fs.Root()); statErr != nil {
		// Directory doesn't exist, initialize new repo
		repo, err = git.Init(storer, git.WithWorkTree(wt))
	} else {
		// Directory exists, open existing repo
		repo, err = git.Open(storer, wt)
	}
	if err != nil {
		return Persistence{}, err
	}

	return Persistence{
		repo: repo,
	}, nil
}
