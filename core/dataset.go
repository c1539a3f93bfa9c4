package core

import "time"

// DatasetVersion is one immutable snapshot record. The ID is assigned at
// creation and never reused; Fingerprint and DataPointer change only when
// the underlying data is replaced by an update.
type DatasetVersion struct {
	ID          string    `json:"id"`
	Name        string    `json:"name"`
	Fingerprint string    `json:"fingerprint"`
	Description string    `json:"description,omitempty"`
	Author      string    `json:"author,omitempty"`
	CreatedAt   time.Time `json:"created_at"`
	UpdatedAt   time.Time `json:"updated_at"`
	ParentIDs   []string  `json:"parent_ids,omitempty"`
	DataPointer string    `json:"data_pointer"`

	// Shape is recorded for display and auditing. It is refreshed on
	// update together with the fingerprint.
	Shape ShapeDescriptor `json:"shape"`
}

// ShortFingerprint returns the 7-character prefix used in name@prefix
// references.
func (d DatasetVersion) ShortFingerprint() string {
	if len(d.Fingerprint) < 7 {
		return d.Fingerprint
	}
	return d.Fingerprint[:7]
}

// Ref returns the full reference string for this version.
func (d DatasetVersion) Ref() string {
	return d.Name + "@" + d.ShortFingerprint()
}

// TagPointer is the current assignment of a (name, label) tag. At most one
// pointer exists per pair; reassignment replaces it and records the previous
// assignment in the tag history log.
type TagPointer struct {
	Name     string    `json:"name"`
	Label    string    `json:"label"`
	ID       string    `json:"id"`
	TaggedAt time.Time `json:"tagged_at"`
}

// TagEvent is one entry in the append-only tag history log: the pointer that
// was replaced and when the replacement happened.
type TagEvent struct {
	PreviousID string    `json:"previous_id"`
	TaggedAt   time.Time `json:"tagged_at"`
	ReplacedAt time.Time `json:"replaced_at"`
}
