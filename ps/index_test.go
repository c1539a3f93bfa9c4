package ps

import (
	"testing"
)

func TestChildIndexMaintained(t *testing.T) {
	persistence := newTestPersistence(t)

	_, _ = persistence.CreateDataset(testRecord("d1", "sales", "aaa111"), "", testIdentity)
	_, _ = persistence.CreateDataset(testRecord("d2", "sales_clean", "bbb222", "d1"), "", testIdentity)
	_, _ = persistence.CreateDataset(testRecord("d3", "sales_agg", "ccc333", "d1"), "", testIdentity)

	children := persistence.Children("d1")
	if len(children) != 2 || children[0] != "d2" || children[1] != "d3" {
		t.Errorf("Expected sorted children [d2 d3], got %v", children)
	}

	if got := persistence.Children("d2"); len(got) != 0 {
		t.Errorf("Expected no children for leaf, got %v", got)
	}
}

func TestChildIndexMultiParent(t *testing.T) {
	persistence := newTestPersistence(t)

	_, _ = persistence.CreateDataset(testRecord("d1", "sales", "aaa111"), "", testIdentity)
	_, _ = persistence.CreateDataset(testRecord("d2", "marketing", "bbb222"), "", testIdentity)
	_, _ = persistence.CreateDataset(testRecord("d3", "joined", "ccc333", "d1", "d2"), "", testIdentity)

	if children := persistence.Children("d1"); len(children) != 1 || children[0] != "d3" {
		t.Errorf("Expected d3 under d1, got %v", children)
	}
	if children := persistence.Children("d2"); len(children) != 1 || children[0] != "d3" {
		t.Errorf("Expected d3 under d2, got %v", children)
	}
}

func TestChildIndexDroppedOnDelete(t *testing.T) {
	persistence := newTestPersistence(t)

	_, _ = persistence.CreateDataset(testRecord("d1", "sales", "aaa111"), "", testIdentity)
	_, _ = persistence.CreateDataset(testRecord("d2", "sales_clean", "bbb222", "d1"), "", testIdentity)

	if _, err := persistence.DeleteDataset("d2", false, testIdentity); err != nil {
		t.Fatalf("Failed to delete child: %v", err)
	}

	if children := persistence.Children("d1"); len(children) != 0 {
		t.Errorf("Expected empty index after child delete, got %v", children)
	}

	// Parent is now deletable without force.
	if _, err := persistence.DeleteDataset("d1", false, testIdentity); err != nil {
		t.Fatalf("Failed to delete former parent: %v", err)
	}
}

func TestRebuildChildIndex(t *testing.T) {
	persistence := newTestPersistence(t)

	_, _ = persistence.CreateDataset(testRecord("d1", "sales", "aaa111"), "", testIdentity)
	_, _ = persistence.CreateDataset(testRecord("d2", "sales_clean", "bbb222", "d1"), "", testIdentity)
	_, _ = persistence.CreateDataset(testRecord("d3", "sales_agg", "ccc333", "d2"), "", testIdentity)

	if _, err := persistence.RebuildChildIndex(testIdentity); err != nil {
		t.Fatalf("Failed to rebuild index: %v", err)
	}

	if children := persistence.Children("d1"); len(children) != 1 || children[0] != "d2" {
		t.Errorf("Expected rebuilt index to hold [d2], got %v", children)
	}
	if children := persistence.Children("d2"); len(children) != 1 || children[0] != "d3" {
		t.Errorf("Expected rebuilt index to hold [d3], got %v", children)
	}
	if children := persistence.Children("d3"); len(children) != 0 {
		t.Errorf("Expected no children for leaf after rebuild, got %v", children)
	}
}
