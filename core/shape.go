package core

// Column is one column of a dataset's schema. Type is the data engine's
// canonical type name (stable across runs, so fingerprints are stable).
type Column struct {
	Name string `json:"name"`
	Type string `json:"type"`
}

// ShapeDescriptor captures the shape of a dataset: ordered column schema
// plus row and column counts. It is one of the two fingerprint inputs.
type ShapeDescriptor struct {
	Columns     []Column `json:"columns"`
	RowCount    int64    `json:"row_count"`
	ColumnCount int      `json:"column_count"`
}

// Sample is a bounded, deterministically-selected subset of rows: the first
// and last SampleRows rows in storage order. Cells are the data engine's
// string rendering of each value, with nulls rendered as empty strings.
type Sample struct {
	Head [][]string `json:"head"`
	Tail [][]string `json:"tail"`
}

// SampleRows is how many rows Snapshot takes from each end of the dataset.
const SampleRows = 5

// DataEngine is the collaborator that owns actual row data. The core never
// queries rows itself; it asks the engine for the shape and sample needed to
// fingerprint a pointer, and otherwise treats pointers as opaque handles.
type DataEngine interface {
	// Snapshot produces the shape descriptor and bounded sample for the
	// data behind pointer. The returned sample holds at most SampleRows
	// rows from each end regardless of dataset size.
	Snapshot(pointer string) (ShapeDescriptor, Sample, error)
}
