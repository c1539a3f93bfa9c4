// Package ps provides the persistence layer for DatasetDB.
//
// The metadata record store is backed by Git, using go-git for storage.
// Dataset version records, tag pointers, the tag history log, and the
// reverse-lineage index live as files in a Git tree; every mutating
// operation builds the new tree with the plumbing API and lands as exactly
// one commit. Readers therefore always see a consistent committed state, and
// the full mutation history is recoverable from the commit log.
//
// # Memory Persistence
//
// For testing or ephemeral stores:
//
//	persistence, err := ps.NewMemoryPersistence()
//	if err != nil {
//	    log.Fatal(err)
//	}
//
// # File Persistence
//
// For a durable store rooted at a directory (idempotent: attaches to an
// existing store, creates a fresh one otherwise):
//
//	persistence, err := ps.NewFilePersistence("/path/to/repo")
//	if err != nil {
//	    log.Fatal(err)
//	}
//
// # Tree Layout
//
//	datasets/<id>.json      dataset version records
//	tags/<name>/<label>     current tag pointers
//	history/<name>/<label>  append-only tag reassignment log (JSON lines)
//	index/children/<id>     reverse-lineage index
//
// # Time Travel
//
// Because every mutation is a commit, the store can be rolled back:
//
//	txn := persistence.LatestTransaction()
//	// ... more mutations ...
//	persistence.Restore(txn)
package ps
