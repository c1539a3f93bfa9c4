package ps

import (
	"encoding/json"
	"fmt"
	"sort"

	"github.com/ajholden/DatasetDB/core"
)

// The reverse-lineage index maps a parent id to the ids derived from it, one
// JSON file per parent under index/children/. It is maintained inside the
// same commit as the record mutation that changes it, so it can never drift
// from the records within a committed state.

const childIndexDir = "index/children"

func childIndexPath(id string) string {
	return fmt.Sprintf("%s/%s", childIndexDir, id)
}

// loadChildren returns the ids derived from a dataset, sorted. Callers hold
// the lock.
func (p *Persistence) loadChildren(id string) []string {
	data, err := p.readFile(childIndexPath(id))
	if err != nil {
		return nil
	}

	var children []string
	if err := json.Unmarshal(data, &children); err != nil {
		return nil
	}
	sort.Strings(children)
	return children
}

// Children returns the ids of datasets listing id in their parents.
func (p *Persistence) Children(id string) []string {
	p.mu.RLock()
	defer p.mu.RUnlock()
	return p.loadChildren(id)
}

// indexAddChild stages childID into parentID's index entry. Reads through the
// batch so repeated adds within one compound mutation compose.
func (p *Persistence) indexAddChild(b *batch, parentID, childID string) error {
	var children []string
	if data, err := b.read(childIndexPath(parentID)); err == nil {
		if err := json.Unmarshal(data, &children); err != nil {
			return fmt.Errorf("corrupt child index for %s: %w", parentID, err)
		}
	}

	for _, existing := range children {
		if existing == childID {
			return nil
		}
	}
	children = append(children, childID)
	sort.Strings(children)

	return b.writeJSON(childIndexPath(parentID), children)
}

// indexDropDataset stages removal of a record from the index: its own entry
// goes away and it is pulled out of each parent's entry.
func (p *Persistence) indexDropDataset(b *batch, record *core.DatasetVersion) {
	b.delete(childIndexPath(record.ID))

	for _, parentID := range record.ParentIDs {
		data, err := b.read(childIndexPath(parentID))
		if err != nil {
			continue
		}
		var children []string
		if err := json.Unmarshal(data, &children); err != nil {
			continue
		}

		kept := children[:0]
		for _, child := range children {
			if child != record.ID {
				kept = append(kept, child)
			}
		}

		if len(kept) == 0 {
			b.delete(childIndexPath(parentID))
		} else {
			b.writeJSON(childIndexPath(parentID), kept)
		}
	}
}

// RebuildChildIndex regenerates the whole reverse-lineage index from the
// records in a single commit. A repair tool for stores written by older
// versions or damaged by hand-editing.
func (p *Persistence) RebuildChildIndex(identity core.Identity) (Transaction, error) {
	p.mu.Lock()
	defer p.mu.Unlock()

	records, err := p.loadAllDatasets()
	if err != nil {
		return Transaction{}, err
	}

	index := make(map[string][]string)
	for _, record := range records {
		for _, parentID := range record.ParentIDs {
			index[parentID] = append(index[parentID], record.ID)
		}
	}

	batch := p.newBatch()
	batch.deleteDir(childIndexDir)
	for parentID, children := range index {
		sort.Strings(children)
		if err := batch.writeJSON(childIndexPath(parentID), children); err != nil {
			return Transaction{}, err
		}
	}

	return batch.commit(identity, "Rebuild child index")
}
