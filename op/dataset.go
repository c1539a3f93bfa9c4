package op

import (
	"github.com/ajholden/DatasetDB/core"
	"github.com/ajholden/DatasetDB/lineage"
	"github.com/ajholden/DatasetDB/ps"
	"github.com/ajholden/DatasetDB/refs"
)

// DatasetOp couples a loaded version record with the store it came from,
// giving callers a handle for follow-up queries and mutations.
type DatasetOp struct {
	Version     core.DatasetVersion
	Persistence *ps.Persistence
}

// GetDataset resolves any reference form and loads the record.
func GetDataset(ref string, persistence *ps.Persistence) (*DatasetOp, error) {
	id, err := refs.Resolve(persistence, ref)
	if err != nil {
		return nil, err
	}

	version, err := persistence.GetDataset(id)
	if err != nil {
		return nil, err
	}

	return &DatasetOp{
		Version:     *version,
		Persistence: persistence,
	}, nil
}

// Tags lists the labels currently pointing at this version.
func (op *DatasetOp) Tags() ([]string, error) {
	return op.Persistence.TagsFor(op.Version.ID)
}

// Tag points (name, label) at this version.
func (op *DatasetOp) Tag(label string, identity core.Identity) (ps.Transaction, error) {
	return op.Persistence.AddTag(op.Version.ID, label, identity)
}

// Parents resolves the direct parents, reporting force-deleted ones as
// dangling rather than failing.
func (op *DatasetOp) Parents() (lineage.Result, error) {
	return lineage.ParentsOf(op.Persistence, op.Version.ID)
}

// Children returns the versions derived directly from this one.
func (op *DatasetOp) Children() ([]core.DatasetVersion, error) {
	return lineage.ChildrenOf(op.Persistence, op.Version.ID)
}

// Ancestors returns the transitive parent closure.
func (op *DatasetOp) Ancestors() (lineage.Result, error) {
	return lineage.Ancestors(op.Persistence, op.Version.ID)
}

// Descendants returns the transitive child closure.
func (op *DatasetOp) Descendants() ([]core.DatasetVersion, error) {
	return lineage.Descendants(op.Persistence, op.Version.ID)
}

// Delete removes this version from the store.
func (op *DatasetOp) Delete(force bool, identity core.Identity) (ps.Transaction, error) {
	return op.Persistence.DeleteDataset(op.Version.ID, force, identity)
}
