package lineage

import (
	"errors"
	"sort"
	"testing"

	"github.com/ajholden/DatasetDB/core"
)

// fakeStore is an in-memory Store with explicit parent and child links.
type fakeStore struct {
	datasets map[string]core.DatasetVersion
	children map[string][]string
}

func newFakeStore() *fakeStore {
	return &fakeStore{
		datasets: make(map[string]core.DatasetVersion),
		children: make(map[string][]string),
	}
}

func (s *fakeStore) add(id, name string, parents ...string) {
	s.datasets[id] = core.DatasetVersion{ID: id, Name: name, ParentIDs: parents}
	for _, parentID := range parents {
		s.children[parentID] = append(s.children[parentID], id)
	}
}

func (s *fakeStore) remove(id string) {
	delete(s.datasets, id)
}

func (s *fakeStore) GetDataset(id string) (*core.DatasetVersion, error) {
	record, ok := s.datasets[id]
	if !ok {
		return nil, &core.NotFoundError{Ref: id}
	}
	return &record, nil
}

func (s *fakeStore) Children(id string) []string {
	return s.children[id]
}

func ids(versions []core.DatasetVersion) []string {
	var out []string
	for _, version := range versions {
		out = append(out, version.ID)
	}
	return out
}

// chainStore builds raw -> clean -> agg, plus an unrelated side dataset.
func chainStore() *fakeStore {
	store := newFakeStore()
	store.add("raw", "sales_raw")
	store.add("clean", "sales_clean", "raw")
	store.add("agg", "sales_agg", "clean")
	store.add("side", "marketing")
	return store
}

func TestParentsOf(t *testing.T) {
	store := chainStore()

	result, err := ParentsOf(store, "clean")
	if err != nil {
		t.Fatalf("Failed to get parents: %v", err)
	}
	if len(result.Versions) != 1 || result.Versions[0].ID != "raw" {
		t.Errorf("Expected parent [raw], got %v", ids(result.Versions))
	}
	if result.DanglingErr("clean") != nil {
		t.Error("Expected no dangling parents")
	}

	result, err = ParentsOf(store, "raw")
	if err != nil {
		t.Fatalf("Failed to get parents of root: %v", err)
	}
	if len(result.Versions) != 0 {
		t.Errorf("Expected root to have no parents, got %v", ids(result.Versions))
	}

	if _, err := ParentsOf(store, "missing"); err == nil {
		t.Error("Expected error for unknown dataset")
	}
}

func TestParentsOfDangling(t *testing.T) {
	store := chainStore()
	store.remove("raw") // simulates a force delete

	result, err := ParentsOf(store, "clean")
	if err != nil {
		t.Fatalf("Expected dangling parent not to fail the call: %v", err)
	}
	if len(result.Versions) != 0 {
		t.Errorf("Expected no resolvable parents, got %v", ids(result.Versions))
	}
	if len(result.Dangling) != 1 || result.Dangling[0] != "raw" {
		t.Errorf("Expected dangling [raw], got %v", result.Dangling)
	}

	danglingErr := result.DanglingErr("clean")
	if danglingErr == nil {
		t.Fatal("Expected DanglingAncestorError")
	}
	var asErr *core.DanglingAncestorError
	if !errors.As(danglingErr, &asErr) {
		t.Errorf("Expected error to be matchable, got %v", danglingErr)
	}
}

func TestChildrenOf(t *testing.T) {
	store := chainStore()

	children, err := ChildrenOf(store, "raw")
	if err != nil {
		t.Fatalf("Failed to get children: %v", err)
	}
	if len(children) != 1 || children[0].ID != "clean" {
		t.Errorf("Expected children [clean], got %v", ids(children))
	}

	children, err = ChildrenOf(store, "agg")
	if err != nil {
		t.Fatalf("Failed to get children of leaf: %v", err)
	}
	if len(children) != 0 {
		t.Errorf("Expected leaf to have no children, got %v", ids(children))
	}
}

func TestAncestors(t *testing.T) {
	store := chainStore()

	result, err := Ancestors(store, "agg")
	if err != nil {
		t.Fatalf("Failed to get ancestors: %v", err)
	}
	got := ids(result.Versions)
	if len(got) != 2 || got[0] != "clean" || got[1] != "raw" {
		t.Errorf("Expected BFS order [clean raw], got %v", got)
	}
}

func TestAncestorsDiamond(t *testing.T) {
	store := newFakeStore()
	store.add("root", "base")
	store.add("left", "left", "root")
	store.add("right", "right", "root")
	store.add("merged", "merged", "left", "right")

	result, err := Ancestors(store, "merged")
	if err != nil {
		t.Fatalf("Failed to get ancestors: %v", err)
	}

	// Shared ancestor appears exactly once.
	got := ids(result.Versions)
	sort.Strings(got)
	if len(got) != 3 {
		t.Fatalf("Expected 3 distinct ancestors, got %v", got)
	}
}

func TestAncestorsDangling(t *testing.T) {
	store := chainStore()
	store.remove("raw")

	result, err := Ancestors(store, "agg")
	if err != nil {
		t.Fatalf("Expected dangling ancestor not to fail the call: %v", err)
	}
	if len(result.Versions) != 1 || result.Versions[0].ID != "clean" {
		t.Errorf("Expected [clean], got %v", ids(result.Versions))
	}
	if len(result.Dangling) != 1 || result.Dangling[0] != "raw" {
		t.Errorf("Expected dangling [raw], got %v", result.Dangling)
	}
}

func TestDescendants(t *testing.T) {
	store := chainStore()

	descendants, err := Descendants(store, "raw")
	if err != nil {
		t.Fatalf("Failed to get descendants: %v", err)
	}
	got := ids(descendants)
	if len(got) != 2 || got[0] != "clean" || got[1] != "agg" {
		t.Errorf("Expected BFS order [clean agg], got %v", got)
	}

	descendants, err = Descendants(store, "side")
	if err != nil {
		t.Fatalf("Failed to get descendants of isolated dataset: %v", err)
	}
	if len(descendants) != 0 {
		t.Errorf("Expected no descendants, got %v", ids(descendants))
	}
}

func TestRoots(t *testing.T) {
	store := chainStore()

	result, err := Roots(store, "agg")
	if err != nil {
		t.Fatalf("Failed to get roots: %v", err)
	}
	if len(result.Versions) != 1 || result.Versions[0].ID != "raw" {
		t.Errorf("Expected roots [raw], got %v", ids(result.Versions))
	}
}

func TestRootsOfRoot(t *testing.T) {
	store := chainStore()

	// A parentless version is its own root.
	result, err := Roots(store, "raw")
	if err != nil {
		t.Fatalf("Failed to get roots: %v", err)
	}
	if len(result.Versions) != 1 || result.Versions[0].ID != "raw" {
		t.Errorf("Expected [raw] as its own root, got %v", ids(result.Versions))
	}
}

func TestRootsMultiple(t *testing.T) {
	store := newFakeStore()
	store.add("a", "first")
	store.add("b", "second")
	store.add("joined", "joined", "a", "b")

	result, err := Roots(store, "joined")
	if err != nil {
		t.Fatalf("Failed to get roots: %v", err)
	}
	got := ids(result.Versions)
	sort.Strings(got)
	if len(got) != 2 || got[0] != "a" || got[1] != "b" {
		t.Errorf("Expected roots [a b], got %v", got)
	}
}
