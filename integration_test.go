package DatasetDB

import (
	"errors"
	"fmt"
	"os"
	"testing"

	"github.com/ajholden/DatasetDB/core"
	"github.com/ajholden/DatasetDB/db"
	"github.com/ajholden/DatasetDB/ps"
)

// stubData derives shape and sample purely from the pointer string so
// fingerprints are deterministic without real files.
type stubData struct{}

func (stubData) Snapshot(pointer string) (core.ShapeDescriptor, core.Sample, error) {
	if pointer == "" {
		return core.ShapeDescriptor{}, core.Sample{}, fmt.Errorf("empty data pointer")
	}
	shape := core.ShapeDescriptor{
		Columns:     []core.Column{{Name: "id", Type: "BIGINT"}, {Name: "payload", Type: "VARCHAR"}},
		RowCount:    int64(len(pointer)),
		ColumnCount: 2,
	}
	sample := core.Sample{
		Head: [][]string{{"1", pointer}},
		Tail: [][]string{{"2", pointer}},
	}
	return shape, sample, nil
}

// TestFunc is the signature for test functions that work with any persistence
type TestFunc func(t *testing.T, engine *db.Engine)

// runWithBothPersistence runs a test function with both memory and file persistence
func runWithBothPersistence(t *testing.T, testFunc TestFunc) {
	t.Run("Memory", func(t *testing.T) {
		persistence, err := ps.NewMemoryPersistence()
		if err != nil {
			t.Fatalf("Failed to initialize memory persistence: %v", err)
		}
		DB := Open(&persistence)
		engine := DB.Engine(core.Identity{Name: "test", Email: "test@test.com"}, stubData{})
		testFunc(t, engine)
	})

	t.Run("File", func(t *testing.T) {
		tmpDir, err := os.MkdirTemp("", "datasetdb-test-*")
		if err != nil {
			t.Fatalf("Failed to create temp dir: %v", err)
		}
		defer os.RemoveAll(tmpDir)

		persistence, err := ps.NewFilePersistence(tmpDir)
		if err != nil {
			t.Fatalf("Failed to initialize file persistence: %v", err)
		}
		DB := Open(&persistence)
		engine := DB.Engine(core.Identity{Name: "test", Email: "test@test.com"}, stubData{})
		testFunc(t, engine)
	})
}

// TestIntegrationWorkflow walks a complete dataset lifecycle: register,
// derive, retag, update, and delete.
func TestIntegrationWorkflow(t *testing.T) {
	runWithBothPersistence(t, func(t *testing.T, engine *db.Engine) {

		// Register a root dataset with a tag
		raw, err := engine.CreateDataset(db.CreateParams{
			Name:        "transactions",
			DataPointer: "/data/transactions.csv",
			Tag:         "latest",
			Description: "raw export",
		})
		if err != nil {
			t.Fatalf("Failed to create dataset: %v", err)
		}

		// Derive a cleaned version, tag it
		clean, err := engine.DeriveDataset("transactions:latest", db.CreateParams{
			Name:        "transactions_clean",
			DataPointer: "/data/transactions_clean.parquet",
			Tag:         "stable",
		})
		if err != nil {
			t.Fatalf("Failed to derive dataset: %v", err)
		}
		if len(clean.ParentIDs) != 1 || clean.ParentIDs[0] != raw.ID {
			t.Fatalf("Expected derived parent %s, got %v", raw.ID, clean.ParentIDs)
		}

		// All three reference forms resolve to the clean version
		for _, ref := range []string{clean.ID, "transactions_clean:stable", "transactions_clean@" + clean.ShortFingerprint()} {
			id, err := engine.Resolve(ref)
			if err != nil {
				t.Errorf("Failed to resolve %q: %v", ref, err)
			} else if id != clean.ID {
				t.Errorf("Expected %q -> %s, got %s", ref, clean.ID, id)
			}
		}

		// Update the clean version's data; identity survives, fingerprint moves
		updated, err := engine.UpdateDataset(clean.ID, "/data/transactions_clean_v2.parquet", nil)
		if err != nil {
			t.Fatalf("Failed to update dataset: %v", err)
		}
		if updated.ID != clean.ID {
			t.Error("Expected update to keep the id")
		}
		if updated.Fingerprint == clean.Fingerprint {
			t.Error("Expected update to change the fingerprint")
		}
		if _, err := engine.Resolve("transactions_clean:stable"); err != nil {
			t.Errorf("Expected tag to survive update: %v", err)
		}

		// Lineage sees the chain from both ends
		ancestors, err := engine.Ancestors(clean.ID)
		if err != nil {
			t.Fatalf("Failed to get ancestors: %v", err)
		}
		if len(ancestors.Versions) != 1 || ancestors.Versions[0].ID != raw.ID {
			t.Errorf("Expected ancestor chain [%s], got %v", raw.ID, ancestors.Versions)
		}

		descendants, err := engine.Descendants(raw.ID)
		if err != nil {
			t.Fatalf("Failed to get descendants: %v", err)
		}
		if len(descendants) != 1 || descendants[0].ID != clean.ID {
			t.Errorf("Expected descendant [%s], got %v", clean.ID, descendants)
		}

		// The parent cannot go quietly while the child exists
		err = engine.Delete(raw.ID, false)
		var hasChildren *core.HasChildrenError
		if !errors.As(err, &hasChildren) {
			t.Fatalf("Expected HasChildrenError, got %v", err)
		}

		// Force delete leaves a dangling parent on the child
		if err := engine.Delete(raw.ID, true); err != nil {
			t.Fatalf("Failed to force delete: %v", err)
		}
		parents, err := engine.Parents(clean.ID)
		if err != nil {
			t.Fatalf("Failed to get parents: %v", err)
		}
		if len(parents.Dangling) != 1 || parents.Dangling[0] != raw.ID {
			t.Errorf("Expected dangling parent %s, got %v", raw.ID, parents.Dangling)
		}

		// The leaf deletes cleanly
		if err := engine.Delete(clean.ID, false); err != nil {
			t.Fatalf("Failed to delete leaf: %v", err)
		}
		records, err := engine.Persistence.ListDatasets("", "")
		if err != nil {
			t.Fatalf("Failed to list: %v", err)
		}
		if len(records) != 0 {
			t.Errorf("Expected empty store, got %d records", len(records))
		}
	})
}

// TestIntegrationTagLifecycle exercises tag reassignment and history across
// versions of one family.
func TestIntegrationTagLifecycle(t *testing.T) {
	runWithBothPersistence(t, func(t *testing.T, engine *db.Engine) {

		v1, err := engine.CreateDataset(db.CreateParams{Name: "model_input", DataPointer: "/v1.csv", Tag: "prod"})
		if err != nil {
			t.Fatalf("Failed to create v1: %v", err)
		}
		v2, err := engine.CreateDataset(db.CreateParams{Name: "model_input", DataPointer: "/v2.csv"})
		if err != nil {
			t.Fatalf("Failed to create v2: %v", err)
		}

		// Promote v2
		if err := engine.Tag(v2.ID, "prod"); err != nil {
			t.Fatalf("Failed to retag: %v", err)
		}
		id, err := engine.Resolve("model_input:prod")
		if err != nil || id != v2.ID {
			t.Fatalf("Expected prod -> v2, got %s / %v", id, err)
		}

		// The displacement is on record
		events, err := engine.Persistence.TagHistory("model_input", "prod")
		if err != nil {
			t.Fatalf("Failed to get history: %v", err)
		}
		if len(events) != 1 || events[0].PreviousID != v1.ID {
			t.Errorf("Expected history naming v1, got %v", events)
		}

		// v1 is still reachable by fingerprint
		if _, err := engine.Resolve("model_input@" + v1.ShortFingerprint()); err != nil {
			t.Errorf("Expected untagged version reachable by fingerprint: %v", err)
		}
	})
}

// TestIntegrationTimeTravel restores a past store state through the
// transaction log.
func TestIntegrationTimeTravel(t *testing.T) {
	runWithBothPersistence(t, func(t *testing.T, engine *db.Engine) {

		first, err := engine.CreateDataset(db.CreateParams{Name: "events", DataPointer: "/day1.json", Tag: "latest"})
		if err != nil {
			t.Fatalf("Failed to create: %v", err)
		}
		checkpoint := engine.Persistence.LatestTransaction()

		if _, err := engine.CreateDataset(db.CreateParams{Name: "events", DataPointer: "/day2.json"}); err != nil {
			t.Fatalf("Failed to create second version: %v", err)
		}
		if err := engine.Delete(first.ID, true); err != nil {
			t.Fatalf("Failed to delete: %v", err)
		}

		if err := engine.Persistence.Restore(checkpoint); err != nil {
			t.Fatalf("Failed to restore: %v", err)
		}

		// Back to the single-version state, tag included
		records, err := engine.Persistence.ListDatasets("", "")
		if err != nil {
			t.Fatalf("Failed to list: %v", err)
		}
		if len(records) != 1 || records[0].ID != first.ID {
			t.Errorf("Expected only the first version after restore, got %v", records)
		}
		id, err := engine.Resolve("events:latest")
		if err != nil || id != first.ID {
			t.Errorf("Expected latest -> first after restore, got %s / %v", id, err)
		}
	})
}

// TestFilePersistenceReopen verifies records survive closing and reopening a
// file-backed store.
func TestFilePersistenceReopen(t *testing.T) {
	tmpDir, err := os.MkdirTemp("", "datasetdb-reopen-*")
	if err != nil {
		t.Fatalf("Failed to create temp dir: %v", err)
	}
	defer os.RemoveAll(tmpDir)

	identity := core.Identity{Name: "test", Email: "test@test.com"}

	persistence, err := ps.NewFilePersistence(tmpDir)
	if err != nil {
		t.Fatalf("Failed to initialize persistence: %v", err)
	}
	engine := Open(&persistence).Engine(identity, stubData{})

	record, err := engine.CreateDataset(db.CreateParams{Name: "sales", DataPointer: "/sales.csv", Tag: "latest"})
	if err != nil {
		t.Fatalf("Failed to create dataset: %v", err)
	}

	// Reopen from disk
	reopened, err := ps.NewFilePersistence(tmpDir)
	if err != nil {
		t.Fatalf("Failed to reopen persistence: %v", err)
	}
	engine2 := Open(&reopened).Engine(identity, stubData{})

	got, err := engine2.Get("sales:latest")
	if err != nil {
		t.Fatalf("Failed to resolve after reopen: %v", err)
	}
	if got.ID != record.ID || got.Fingerprint != record.Fingerprint {
		t.Errorf("Expected identical record after reopen, got %+v", got)
	}
}
