// Package op provides dataset-level operation handles.
//
// A DatasetOp pairs a loaded version record with its store so callers can
// chain queries and mutations without re-resolving the reference:
//
//	dataset, _ := op.GetDataset("sales:v1", &persistence)
//	parents, _ := dataset.Parents()
//	dataset.Tag("stable", identity)
package op
