package db

import (
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/ajholden/DatasetDB/core"
	"github.com/ajholden/DatasetDB/fp"
	"github.com/ajholden/DatasetDB/lineage"
	"github.com/ajholden/DatasetDB/ps"
	"github.com/ajholden/DatasetDB/refs"
)

// MaxDescriptionLen bounds the free-form description field.
const MaxDescriptionLen = 10000

// Engine is the repository: the only write path to the metadata store. Every
// operation is validate -> fingerprint (when data changed) -> persist, and
// lands as one store commit.
type Engine struct {
	*ps.Persistence
	Identity core.Identity
	Data     core.DataEngine
}

func NewEngine(persistence *ps.Persistence, identity core.Identity, data core.DataEngine) *Engine {
	return &Engine{
		Persistence: persistence,
		Identity:    identity,
		Data:        data,
	}
}

// CreateParams describes a new dataset version.
type CreateParams struct {
	Name        string
	DataPointer string
	Tag         string   // optional: assigned in the same commit
	ParentRefs  []string // optional: any reference form
	Description string
	Author      string // optional: defaults to the engine identity's name
}

func (engine *Engine) validateParams(name, tag, description string) error {
	if !refs.ValidName(name) {
		return fmt.Errorf("invalid dataset name %q: alphanumeric, underscore, and dash only, max %d chars", name, refs.MaxNameLen)
	}
	if tag != "" && !refs.ValidTag(tag) {
		return fmt.Errorf("invalid tag %q: alphanumeric, underscore, and dash only, max %d chars", tag, refs.MaxTagLen)
	}
	if len(description) > MaxDescriptionLen {
		return fmt.Errorf("description too long (%d chars, max %d)", len(description), MaxDescriptionLen)
	}
	return nil
}

// snapshot asks the data engine for shape+sample and fingerprints them. An
// engine failure propagates with the offending pointer attached.
func (engine *Engine) snapshot(pointer string) (core.ShapeDescriptor, string, error) {
	shape, sample, err := engine.Data.Snapshot(pointer)
	if err != nil {
		return core.ShapeDescriptor{}, "", fmt.Errorf("data engine failed for pointer %q: %w", pointer, err)
	}
	return shape, fp.Fingerprint(shape, sample), nil
}

// CreateDataset registers a new root or multi-parent version and returns its
// record.
func (engine *Engine) CreateDataset(params CreateParams) (*core.DatasetVersion, error) {
	if err := engine.validateParams(params.Name, params.Tag, params.Description); err != nil {
		return nil, err
	}

	parentIDs := make([]string, 0, len(params.ParentRefs))
	for _, parentRef := range params.ParentRefs {
		parentID, err := refs.Resolve(engine.Persistence, parentRef)
		if err != nil {
			return nil, fmt.Errorf("bad parent reference: %w", err)
		}
		parentIDs = append(parentIDs, parentID)
	}

	shape, fingerprint, err := engine.snapshot(params.DataPointer)
	if err != nil {
		return nil, err
	}

	author := params.Author
	if author == "" {
		author = engine.Identity.Name
	}

	now := time.Now().UTC()
	record := core.DatasetVersion{
		ID:          uuid.NewString(),
		Name:        params.Name,
		Fingerprint: fingerprint,
		Description: params.Description,
		Author:      author,
		CreatedAt:   now,
		UpdatedAt:   now,
		ParentIDs:   parentIDs,
		DataPointer: params.DataPointer,
		Shape:       shape,
	}

	if _, err := engine.Persistence.CreateDataset(record, params.Tag, engine.Identity); err != nil {
		return nil, err
	}

	return &record, nil
}

// DeriveDataset creates a version with a single implied parent. Name defaults
// to the source's name.
func (engine *Engine) DeriveDataset(sourceRef string, params CreateParams) (*core.DatasetVersion, error) {
	sourceID, err := refs.Resolve(engine.Persistence, sourceRef)
	if err != nil {
		return nil, err
	}

	if params.Name == "" {
		source, err := engine.Persistence.GetDataset(sourceID)
		if err != nil {
			return nil, err
		}
		params.Name = source.Name
	}

	params.ParentRefs = []string{sourceID}
	return engine.CreateDataset(params)
}

// UpdateDataset replaces the data behind an existing version: new pointer,
// new fingerprint, new shape. The id, tags, and parent links stay put. A nil
// description keeps the existing one.
func (engine *Engine) UpdateDataset(ref, newPointer string, description *string) (*core.DatasetVersion, error) {
	if description != nil && len(*description) > MaxDescriptionLen {
		return nil, fmt.Errorf("description too long (%d chars, max %d)", len(*description), MaxDescriptionLen)
	}

	id, err := refs.Resolve(engine.Persistence, ref)
	if err != nil {
		return nil, err
	}

	shape, fingerprint, err := engine.snapshot(newPointer)
	if err != nil {
		return nil, err
	}

	if _, err := engine.Persistence.UpdateDataset(id, fingerprint, newPointer, shape, description, engine.Identity); err != nil {
		return nil, err
	}

	return engine.Persistence.GetDataset(id)
}

// Delete removes a version. Without force it fails when other versions were
// derived from it, naming the dependents.
func (engine *Engine) Delete(ref string, force bool) error {
	id, err := refs.Resolve(engine.Persistence, ref)
	if err != nil {
		return err
	}

	_, err = engine.Persistence.DeleteDataset(id, force, engine.Identity)
	return err
}

// Tag points (name, label) of the referenced version at it.
func (engine *Engine) Tag(ref, label string) error {
	if !refs.ValidTag(label) {
		return fmt.Errorf("invalid tag %q", label)
	}

	id, err := refs.Resolve(engine.Persistence, ref)
	if err != nil {
		return err
	}

	_, err = engine.Persistence.AddTag(id, label, engine.Identity)
	return err
}

// Untag removes the (name, label) pointer.
func (engine *Engine) Untag(name, label string) error {
	_, err := engine.Persistence.RemoveTag(name, label, engine.Identity)
	return err
}

// Rename moves a version to a new family name, keeping its id and moving its
// tag pointers.
func (engine *Engine) Rename(ref, newName string) (*core.DatasetVersion, error) {
	if !refs.ValidName(newName) {
		return nil, fmt.Errorf("invalid dataset name %q", newName)
	}

	id, err := refs.Resolve(engine.Persistence, ref)
	if err != nil {
		return nil, err
	}

	if _, err := engine.Persistence.RenameDataset(id, newName, engine.Identity); err != nil {
		return nil, err
	}

	return engine.Persistence.GetDataset(id)
}

// Describe rewrites the description of a version.
func (engine *Engine) Describe(ref, description string) error {
	if len(description) > MaxDescriptionLen {
		return fmt.Errorf("description too long (%d chars, max %d)", len(description), MaxDescriptionLen)
	}

	id, err := refs.Resolve(engine.Persistence, ref)
	if err != nil {
		return err
	}

	_, err = engine.Persistence.UpdateDescription(id, description, engine.Identity)
	return err
}

// Get resolves any reference form and returns the record.
func (engine *Engine) Get(ref string) (*core.DatasetVersion, error) {
	id, err := refs.Resolve(engine.Persistence, ref)
	if err != nil {
		return nil, err
	}
	return engine.Persistence.GetDataset(id)
}

// Resolve maps a reference to its dataset id.
func (engine *Engine) Resolve(ref string) (string, error) {
	return refs.Resolve(engine.Persistence, ref)
}

// Parents returns the direct parents of the referenced version plus any
// dangling parent ids left by forced deletes.
func (engine *Engine) Parents(ref string) (lineage.Result, error) {
	id, err := refs.Resolve(engine.Persistence, ref)
	if err != nil {
		return lineage.Result{}, err
	}
	return lineage.ParentsOf(engine.Persistence, id)
}

// Children returns the versions derived directly from the referenced one.
func (engine *Engine) Children(ref string) ([]core.DatasetVersion, error) {
	id, err := refs.Resolve(engine.Persistence, ref)
	if err != nil {
		return nil, err
	}
	return lineage.ChildrenOf(engine.Persistence, id)
}

// Ancestors returns the transitive parent closure of the referenced version.
func (engine *Engine) Ancestors(ref string) (lineage.Result, error) {
	id, err := refs.Resolve(engine.Persistence, ref)
	if err != nil {
		return lineage.Result{}, err
	}
	return lineage.Ancestors(engine.Persistence, id)
}

// Descendants returns the transitive child closure of the referenced version.
func (engine *Engine) Descendants(ref string) ([]core.DatasetVersion, error) {
	id, err := refs.Resolve(engine.Persistence, ref)
	if err != nil {
		return nil, err
	}
	return lineage.Descendants(engine.Persistence, id)
}

// Roots returns the parentless ancestors of the referenced version.
func (engine *Engine) Roots(ref string) (lineage.Result, error) {
	id, err := refs.Resolve(engine.Persistence, ref)
	if err != nil {
		return lineage.Result{}, err
	}
	return lineage.Roots(engine.Persistence, id)
}
