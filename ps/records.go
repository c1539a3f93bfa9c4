package ps

import (
	"encoding/json"
	"fmt"
	"path"
	"sort"
	"strings"
	"time"

	"github.com/ajholden/DatasetDB/core"
)

const (
	datasetsDir = "datasets"
	tagsDir     = "tags"
	historyDir  = "history"
)

func datasetPath(id string) string {
	return fmt.Sprintf("%s/%s.json", datasetsDir, id)
}

func tagPath(name, label string) string {
	return path.Join(tagsDir, name, label)
}

func historyPath(name, label string) string {
	return path.Join(historyDir, name, label)
}

// loadDataset reads a record without locking; callers hold the lock.
func (p *Persistence) loadDataset(id string) (*core.DatasetVersion, error) {
	data, err := p.readFile(datasetPath(id))
	if err != nil {
		return nil, &core.NotFoundError{Ref: id}
	}

	var d core.DatasetVersion
	if err := json.Unmarshal(data, &d); err != nil {
		return nil, fmt.Errorf("failed to unmarshal dataset %s: %w", id, err)
	}

	return &d, nil
}

// loadTag reads the current pointer for (name, label) without locking.
func (p *Persistence) loadTag(name, label string) (*core.TagPointer, error) {
	data, err := p.readFile(tagPath(name, label))
	if err != nil {
		return nil, &core.NotFoundError{Ref: name + ":" + label}
	}

	var t core.TagPointer
	if err := json.Unmarshal(data, &t); err != nil {
		return nil, fmt.Errorf("failed to unmarshal tag %s:%s: %w", name, label, err)
	}

	return &t, nil
}

// CreateDataset inserts a new version record. Every parent id must already
// exist and self-reference is rejected, which keeps the lineage relation a
// DAG without a cycle-detection pass. When tagLabel is non-empty the tag
// pointer lands in the same commit as the record, so no reader ever sees one
// without the other.
func (p *Persistence) CreateDataset(record core.DatasetVersion, tagLabel string, identity core.Identity) (Transaction, error) {
	p.mu.Lock()
	defer p.mu.Unlock()

	if _, err := p.loadDataset(record.ID); err == nil {
		return Transaction{}, fmt.Errorf("dataset id %s already exists", record.ID)
	}

	for _, parentID := range record.ParentIDs {
		if parentID == record.ID {
			return Transaction{}, fmt.Errorf("dataset %s cannot be its own parent", record.ID)
		}
		if _, err := p.loadDataset(parentID); err != nil {
			return Transaction{}, fmt.Errorf("parent does not exist: %w", err)
		}
	}

	batch := p.newBatch()
	if err := batch.writeJSON(datasetPath(record.ID), record); err != nil {
		return Transaction{}, err
	}

	for _, parentID := range record.ParentIDs {
		if err := p.indexAddChild(batch, parentID, record.ID); err != nil {
			return Transaction{}, err
		}
	}

	if tagLabel != "" {
		if err := p.stageTag(batch, record.Name, tagLabel, record.ID); err != nil {
			return Transaction{}, err
		}
	}

	return batch.commit(identity, fmt.Sprintf("Create dataset %s (%s)", record.Name, record.ID))
}

// GetDataset loads a version record by id.
func (p *Persistence) GetDataset(id string) (*core.DatasetVersion, error) {
	p.mu.RLock()
	defer p.mu.RUnlock()
	return p.loadDataset(id)
}

// UpdateDataset replaces the data-derived fields of an existing record:
// fingerprint, data pointer, shape, and optionally the description. Identity
// fields (id, name, parents) and tag pointers are untouched.
func (p *Persistence) UpdateDataset(id, fingerprint, dataPointer string, shape core.ShapeDescriptor, description *string, identity core.Identity) (Transaction, error) {
	p.mu.Lock()
	defer p.mu.Unlock()

	record, err := p.loadDataset(id)
	if err != nil {
		return Transaction{}, err
	}

	record.Fingerprint = fingerprint
	record.DataPointer = dataPointer
	record.Shape = shape
	record.UpdatedAt = time.Now().UTC()
	if description != nil {
		record.Description = *description
	}

	batch := p.newBatch()
	if err := batch.writeJSON(datasetPath(id), *record); err != nil {
		return Transaction{}, err
	}

	return batch.commit(identity, fmt.Sprintf("Update dataset %s (%s)", record.Name, id))
}

// UpdateDescription rewrites only the free-form description of a record.
func (p *Persistence) UpdateDescription(id, description string, identity core.Identity) (Transaction, error) {
	p.mu.Lock()
	defer p.mu.Unlock()

	record, err := p.loadDataset(id)
	if err != nil {
		return Transaction{}, err
	}

	record.Description = description
	record.UpdatedAt = time.Now().UTC()

	batch := p.newBatch()
	if err := batch.writeJSON(datasetPath(id), *record); err != nil {
		return Transaction{}, err
	}

	return batch.commit(identity, fmt.Sprintf("Describe dataset %s (%s)", record.Name, id))
}

// RenameDataset changes the logical family name of a record. The id is
// unchanged; tag pointers and their history move under the new name in the
// same commit.
func (p *Persistence) RenameDataset(id, newName string, identity core.Identity) (Transaction, error) {
	p.mu.Lock()
	defer p.mu.Unlock()

	record, err := p.loadDataset(id)
	if err != nil {
		return Transaction{}, err
	}

	oldName := record.Name
	if oldName == newName {
		return Transaction{}, nil
	}
	record.Name = newName
	record.UpdatedAt = time.Now().UTC()

	batch := p.newBatch()
	if err := batch.writeJSON(datasetPath(id), *record); err != nil {
		return Transaction{}, err
	}

	// Only pointers targeting this record move; a sibling version sharing
	// the old name keeps its tags.
	labels, _ := p.listEntries(path.Join(tagsDir, oldName))
	for _, entry := range labels {
		if entry.IsDir {
			continue
		}
		pointer, err := p.loadTag(oldName, entry.Name)
		if err != nil || pointer.ID != id {
			continue
		}

		// A pointer already living at (newName, label) belongs to another
		// family; displacing it follows the same policy as AddTag.
		var displaced *core.TagPointer
		if existing, err := p.loadTag(newName, entry.Name); err == nil && existing.ID != id {
			if p.ExplicitTagOverwrite {
				return Transaction{}, &core.DuplicateTagError{Name: newName, Label: entry.Name, CurrentID: existing.ID}
			}
			displaced = existing
		}

		pointer.Name = newName
		if err := batch.writeJSON(tagPath(newName, entry.Name), *pointer); err != nil {
			return Transaction{}, err
		}
		batch.delete(tagPath(oldName, entry.Name))

		if history, err := p.readFile(historyPath(oldName, entry.Name)); err == nil {
			dest, _ := batch.read(historyPath(newName, entry.Name))
			batch.write(historyPath(newName, entry.Name), append(dest, history...))
			batch.delete(historyPath(oldName, entry.Name))
		}
		if displaced != nil {
			if err := p.appendTagEvent(batch, newName, entry.Name, *displaced); err != nil {
				return Transaction{}, err
			}
		}
	}

	return batch.commit(identity, fmt.Sprintf("Rename dataset %s -> %s (%s)", oldName, newName, id))
}

// DeleteDataset removes a record. A dataset that other datasets were derived
// from is only removed when force is set; forced deletion also drops every
// tag pointer targeting the record and its reverse-index entry. Children
// keep their parent_ids entry as a dangling reference.
func (p *Persistence) DeleteDataset(id string, force bool, identity core.Identity) (Transaction, error) {
	p.mu.Lock()
	defer p.mu.Unlock()

	record, err := p.loadDataset(id)
	if err != nil {
		return Transaction{}, err
	}

	children := p.loadChildren(id)
	if len(children) > 0 && !force {
		return Transaction{}, &core.HasChildrenError{ID: id, ChildIDs: children}
	}

	batch := p.newBatch()
	batch.delete(datasetPath(id))
	p.indexDropDataset(batch, record)

	labels, _ := p.listEntries(path.Join(tagsDir, record.Name))
	for _, entry := range labels {
		if entry.IsDir {
			continue
		}
		pointer, err := p.loadTag(record.Name, entry.Name)
		if err != nil || pointer.ID != id {
			continue
		}
		batch.delete(tagPath(record.Name, entry.Name))
		if err := p.appendTagEvent(batch, record.Name, entry.Name, *pointer); err != nil {
			return Transaction{}, err
		}
	}

	return batch.commit(identity, fmt.Sprintf("Delete dataset %s (%s)", record.Name, id))
}

// stageTag stages a pointer write plus, when overwriting, a history entry for
// the displaced pointer. Caller holds the lock.
func (p *Persistence) stageTag(batch *batch, name, label, id string) error {
	if existing, err := p.loadTag(name, label); err == nil {
		if existing.ID == id {
			return nil // already points here, nothing to do
		}
		if p.ExplicitTagOverwrite {
			return &core.DuplicateTagError{Name: name, Label: label, CurrentID: existing.ID}
		}
		if err := p.appendTagEvent(batch, name, label, *existing); err != nil {
			return err
		}
	}

	pointer := core.TagPointer{
		Name:     name,
		Label:    label,
		ID:       id,
		TaggedAt: time.Now().UTC(),
	}
	return batch.writeJSON(tagPath(name, label), pointer)
}

// appendTagEvent stages an append to the (name, label) history log recording
// the pointer being displaced.
func (p *Persistence) appendTagEvent(batch *batch, name, label string, prior core.TagPointer) error {
	event := core.TagEvent{
		PreviousID: prior.ID,
		TaggedAt:   prior.TaggedAt,
		ReplacedAt: time.Now().UTC(),
	}
	line, err := json.Marshal(event)
	if err != nil {
		return fmt.Errorf("failed to marshal tag event: %w", err)
	}

	log, _ := batch.read(historyPath(name, label))
	log = append(log, line...)
	log = append(log, '\n')
	batch.write(historyPath(name, label), log)
	return nil
}

// AddTag points (record's name, label) at the dataset id. Reassignment is an
// overwrite; the displaced pointer goes into the history log. Tagging the
// current target again is a no-op.
func (p *Persistence) AddTag(id, label string, identity core.Identity) (Transaction, error) {
	p.mu.Lock()
	defer p.mu.Unlock()

	record, err := p.loadDataset(id)
	if err != nil {
		return Transaction{}, err
	}

	if existing, err := p.loadTag(record.Name, label); err == nil && existing.ID == id {
		return Transaction{}, nil
	}

	batch := p.newBatch()
	if err := p.stageTag(batch, record.Name, label, id); err != nil {
		return Transaction{}, err
	}

	return batch.commit(identity, fmt.Sprintf("Tag %s:%s -> %s", record.Name, label, id))
}

// RemoveTag deletes the (name, label) pointer, recording it in the history
// log. Fails with NotFoundError if the tag does not exist.
func (p *Persistence) RemoveTag(name, label string, identity core.Identity) (Transaction, error) {
	p.mu.Lock()
	defer p.mu.Unlock()

	pointer, err := p.loadTag(name, label)
	if err != nil {
		return Transaction{}, err
	}

	batch := p.newBatch()
	batch.delete(tagPath(name, label))
	if err := p.appendTagEvent(batch, name, label, *pointer); err != nil {
		return Transaction{}, err
	}

	return batch.commit(identity, fmt.Sprintf("Untag %s:%s", name, label))
}

// GetTag returns the current pointer for (name, label).
func (p *Persistence) GetTag(name, label string) (*core.TagPointer, error) {
	p.mu.RLock()
	defer p.mu.RUnlock()
	return p.loadTag(name, label)
}

// TagsFor lists the labels currently pointing at the dataset id, sorted.
func (p *Persistence) TagsFor(id string) ([]string, error) {
	p.mu.RLock()
	defer p.mu.RUnlock()

	record, err := p.loadDataset(id)
	if err != nil {
		return nil, err
	}

	entries, _ := p.listEntries(path.Join(tagsDir, record.Name))
	var labels []string
	for _, entry := range entries {
		if entry.IsDir {
			continue
		}
		pointer, err := p.loadTag(record.Name, entry.Name)
		if err == nil && pointer.ID == id {
			labels = append(labels, entry.Name)
		}
	}
	sort.Strings(labels)
	return labels, nil
}

// TagHistory returns the append-only reassignment log for (name, label),
// oldest first. A tag that was never reassigned has an empty history.
func (p *Persistence) TagHistory(name, label string) ([]core.TagEvent, error) {
	p.mu.RLock()
	defer p.mu.RUnlock()

	log, err := p.readFile(historyPath(name, label))
	if err != nil {
		return nil, nil
	}

	var events []core.TagEvent
	for _, line := range strings.Split(strings.TrimSpace(string(log)), "\n") {
		if line == "" {
			continue
		}
		var event core.TagEvent
		if err := json.Unmarshal([]byte(line), &event); err != nil {
			return nil, fmt.Errorf("corrupt tag history for %s:%s: %w", name, label, err)
		}
		events = append(events, event)
	}
	return events, nil
}

// loadAllDatasets reads every record without locking; callers hold the lock.
func (p *Persistence) loadAllDatasets() ([]core.DatasetVersion, error) {
	entries, err := p.listEntries(datasetsDir)
	if err != nil {
		return nil, err
	}

	var records []core.DatasetVersion
	for _, entry := range entries {
		if entry.IsDir || !strings.HasSuffix(entry.Name, ".json") {
			continue
		}
		record, err := p.loadDataset(strings.TrimSuffix(entry.Name, ".json"))
		if err != nil {
			return nil, err
		}
		records = append(records, *record)
	}
	return records, nil
}

// ListDatasets returns records matching the filters, ordered by creation time
// ascending. nameFilter is a substring match, tagFilter an exact label match;
// both must hold when both are given.
func (p *Persistence) ListDatasets(nameFilter, tagFilter string) ([]core.DatasetVersion, error) {
	p.mu.RLock()
	defer p.mu.RUnlock()

	records, err := p.loadAllDatasets()
	if err != nil {
		return nil, err
	}

	var matched []core.DatasetVersion
	for _, record := range records {
		if nameFilter != "" && !strings.Contains(record.Name, nameFilter) {
			continue
		}
		if tagFilter != "" {
			pointer, err := p.loadTag(record.Name, tagFilter)
			if err != nil || pointer.ID != record.ID {
				continue
			}
		}
		matched = append(matched, record)
	}

	sort.Slice(matched, func(i, j int) bool {
		if matched[i].CreatedAt.Equal(matched[j].CreatedAt) {
			return matched[i].ID < matched[j].ID
		}
		return matched[i].CreatedAt.Before(matched[j].CreatedAt)
	})

	return matched, nil
}

// ListByName returns every version of a dataset family, creation order. Used
// by the resolver for fingerprint-prefix matching.
func (p *Persistence) ListByName(name string) ([]core.DatasetVersion, error) {
	p.mu.RLock()
	defer p.mu.RUnlock()

	records, err := p.loadAllDatasets()
	if err != nil {
		return nil, err
	}

	var matched []core.DatasetVersion
	for _, record := range records {
		if record.Name == name {
			matched = append(matched, record)
		}
	}

	sort.Slice(matched, func(i, j int) bool {
		if matched[i].CreatedAt.Equal(matched[j].CreatedAt) {
			return matched[i].ID < matched[j].ID
		}
		return matched[i].CreatedAt.Before(matched[j].CreatedAt)
	})

	return matched, nil
}

// HasDataset reports whether an id exists without surfacing an error.
func (p *Persistence) HasDataset(id string) bool {
	p.mu.RLock()
	defer p.mu.RUnlock()

	_, err := p.loadDataset(id)
	return err == nil
}
