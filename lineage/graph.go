// Package lineage derives ancestor/descendant relationships between dataset
// versions. The graph is never persisted separately: it is computed on demand
// from the parent lists in the metadata store plus the store's reverse index.
package lineage

import (
	"github.com/ajholden/DatasetDB/core"
)

// Store is the read surface the graph needs from the metadata store.
type Store interface {
	GetDataset(id string) (*core.DatasetVersion, error)
	Children(id string) []string
}

// Result is the outcome of a lineage query. Dangling holds parent entries
// whose target record was force-deleted; they are reported alongside the
// versions that did resolve instead of failing the whole query.
type Result struct {
	Versions []core.DatasetVersion
	Dangling []string
}

// DanglingErr returns a DanglingAncestorError describing the unresolvable
// entries, or nil when everything resolved.
func (r Result) DanglingErr(id string) *core.DanglingAncestorError {
	if len(r.Dangling) == 0 {
		return nil
	}
	return &core.DanglingAncestorError{ID: id, Missing: r.Dangling}
}

// ParentsOf resolves the direct parents of a version, in parent-entry order.
func ParentsOf(store Store, id string) (Result, error) {
	record, err := store.GetDataset(id)
	if err != nil {
		return Result{}, err
	}

	var result Result
	for _, parentID := range record.ParentIDs {
		parent, err := store.GetDataset(parentID)
		if err != nil {
			result.Dangling = append(result.Dangling, parentID)
			continue
		}
		result.Versions = append(result.Versions, *parent)
	}

	return result, nil
}

// ChildrenOf returns the versions derived directly from id, in the reverse
// index's order.
func ChildrenOf(store Store, id string) ([]core.DatasetVersion, error) {
	if _, err := store.GetDataset(id); err != nil {
		return nil, err
	}

	var children []core.DatasetVersion
	for _, childID := range store.Children(id) {
		child, err := store.GetDataset(childID)
		if err != nil {
			// Index entries are maintained in the same commit as the
			// records, so a miss here means external damage; skip it.
			continue
		}
		children = append(children, *child)
	}

	return children, nil
}

// Ancestors walks the transitive closure of parent links breadth-first,
// visiting parents in entry order. The visited set guarantees termination
// even on a damaged store, though cycles are structurally impossible: a
// record can only name parents that existed before it.
func Ancestors(store Store, id string) (Result, error) {
	record, err := store.GetDataset(id)
	if err != nil {
		return Result{}, err
	}

	var result Result
	visited := map[string]bool{id: true}
	queue := append([]string(nil), record.ParentIDs...)

	for len(queue) > 0 {
		current := queue[0]
		queue = queue[1:]

		if visited[current] {
			continue
		}
		visited[current] = true

		ancestor, err := store.GetDataset(current)
		if err != nil {
			result.Dangling = append(result.Dangling, current)
			continue
		}

		result.Versions = append(result.Versions, *ancestor)
		queue = append(queue, ancestor.ParentIDs...)
	}

	return result, nil
}

// Descendants walks the transitive closure of the reverse index breadth-first.
func Descendants(store Store, id string) ([]core.DatasetVersion, error) {
	if _, err := store.GetDataset(id); err != nil {
		return nil, err
	}

	var descendants []core.DatasetVersion
	visited := map[string]bool{id: true}
	queue := append([]string(nil), store.Children(id)...)

	for len(queue) > 0 {
		current := queue[0]
		queue = queue[1:]

		if visited[current] {
			continue
		}
		visited[current] = true

		descendant, err := store.GetDataset(current)
		if err != nil {
			continue
		}

		descendants = append(descendants, *descendant)
		queue = append(queue, store.Children(current)...)
	}

	return descendants, nil
}

// Roots returns the ancestors of id that have no parents of their own, in
// traversal order. A version without parents is its own root. A dangling
// ancestor is treated as a root boundary and reported in Dangling.
func Roots(store Store, id string) (Result, error) {
	record, err := store.GetDataset(id)
	if err != nil {
		return Result{}, err
	}

	if len(record.ParentIDs) == 0 {
		return Result{Versions: []core.DatasetVersion{*record}}, nil
	}

	closure, err := Ancestors(store, id)
	if err != nil {
		return Result{}, err
	}

	var result Result
	result.Dangling = closure.Dangling
	for _, ancestor := range closure.Versions {
		if len(ancestor.ParentIDs) == 0 {
			result.Versions = append(result.Versions, ancestor)
		}
	}

	return result, nil
}
