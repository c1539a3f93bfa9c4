// Package db provides the repository engine for DatasetDB.
//
// Engine orchestrates the fingerprint engine, reference resolver, lineage
// graph, and metadata store into the operations callers use: create, derive,
// update, delete, tag, and the read queries. It is the only write path; each
// mutation validates, fingerprints new data when there is any, and lands as
// exactly one store commit.
//
//	persistence, _ := ps.NewMemoryPersistence()
//	engine := db.NewEngine(&persistence, identity, dataEngine)
//
//	created, _ := engine.CreateDataset(db.CreateParams{
//	    Name:        "sales",
//	    DataPointer: "data/sales.parquet",
//	    Tag:         "v1",
//	})
//	derived, _ := engine.DeriveDataset("sales:v1", db.CreateParams{
//	    DataPointer: "data/sales-clean.parquet",
//	})
package db
