// Package DatasetDB provides a Git-backed versioning layer for tabular
// datasets.
//
// DatasetDB assigns immutable, content-derived identities to dataset
// snapshots, tracks parent/child lineage between them, and resolves
// human-friendly references (name:tag, name@hash-prefix, raw id) back to a
// specific version. Metadata lives in a Git repository, so every mutation is
// a commit with full history and point-in-time restore. Row data itself is
// never held by the core: it stores only an opaque pointer and a fast,
// sample-based fingerprint.
//
// # Quick Start
//
// Create an in-memory repository:
//
//	persistence, _ := ps.NewMemoryPersistence()
//	instance := DatasetDB.Open(&persistence)
//	engine := instance.Engine(
//	    core.Identity{Name: "App", Email: "app@example.com"},
//	    dataeng.New(""),
//	)
//
//	created, _ := engine.CreateDataset(db.CreateParams{
//	    Name:        "sales",
//	    DataPointer: "data/sales.csv",
//	    Tag:         "v1",
//	})
//	derived, _ := engine.DeriveDataset("sales:v1", db.CreateParams{
//	    DataPointer: "data/sales-clean.parquet",
//	})
//
// # References
//
// Three reference forms resolve to a version:
//   - name:tag - a mutable tag pointer
//   - name@prefix - a fingerprint hex prefix (conventionally 7 chars)
//   - a raw dataset id (UUID)
//
// # Fingerprints
//
// A version's fingerprint is a SHA-256 digest over the dataset's shape and a
// bounded head/tail row sample, so fingerprinting cost is independent of
// dataset size. Two versions with equal fingerprints are presumed
// content-equivalent; the sampling collision risk is a documented trade-off.
package DatasetDB
