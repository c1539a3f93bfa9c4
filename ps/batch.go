package ps

import (
	"encoding/json"
	"fmt"

	"github.com/ajholden/DatasetDB/core"
)

// stagedOp is a single pending write or delete inside a batch.
type stagedOp struct {
	path     string
	data     []byte
	isDelete bool
}

// batch accumulates path-level writes and deletes that must land atomically.
// commit applies every staged change in a single Git commit, so compound
// mutations (record + tag pointer + index entries) are all-or-nothing.
type batch struct {
	persistence *Persistence
	ops         []stagedOp
	dirDeletes  []string
	staged      map[string][]byte // pending writes, readable before commit
}

func (p *Persistence) newBatch() *batch {
	return &batch{
		persistence: p,
		staged:      make(map[string][]byte),
	}
}

// write stages raw bytes at a path.
func (b *batch) write(filePath string, data []byte) {
	b.staged[filePath] = data
	b.ops = append(b.ops, stagedOp{path: filePath, data: data})
}

// writeJSON stages a JSON-encoded value at a path.
func (b *batch) writeJSON(filePath string, v any) error {
	data, err := json.Marshal(v)
	if err != nil {
		return fmt.Errorf("failed to marshal %s: %w", filePath, err)
	}
	b.write(filePath, data)
	return nil
}

// delete stages removal of a single file.
func (b *batch) delete(filePath string) {
	delete(b.staged, filePath)
	b.ops = append(b.ops, stagedOp{path: filePath, isDelete: true})
}

// deleteDir stages removal of a whole subtree.
func (b *batch) deleteDir(dirPath string) {
	b.dirDeletes = append(b.dirDeletes, dirPath)
}

// read returns a staged write if one exists, falling back to the committed
// tree. Lets later stages of a compound mutation observe earlier ones.
func (b *batch) read(filePath string) ([]byte, error) {
	if data, ok := b.staged[filePath]; ok {
		return data, nil
	}
	return b.persistence.readFile(filePath)
}

// commit materializes blobs for every staged write and applies all changes in
// one commit. Caller holds the store's write lock.
func (b *batch) commit(identity core.Identity, message string) (Transaction, error) {
	changes := make([]treeChange, 0, len(b.ops))
	for _, op := range b.ops {
		if op.isDelete {
			changes = append(changes, treeChange{path: op.path, isDelete: true})
			continue
		}
		blobHash, err := b.persistence.createBlob(op.data)
		if err != nil {
			return Transaction{}, fmt.Errorf("failed to create blob for %s: %w", op.path, err)
		}
		changes = append(changes, treeChange{path: op.path, blobHash: blobHash})
	}

	return b.persistence.commitChanges(changes, b.dirDeletes, identity, message)
}
