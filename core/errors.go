package core

import (
	"fmt"
	"strings"
)

// NotFoundError reports a reference, id, or tag that does not resolve.
type NotFoundError struct {
	Ref string
}

func (e *NotFoundError) Error() string {
	return fmt.Sprintf("dataset %q not found", e.Ref)
}

// AmbiguousReferenceError reports a hash prefix that matches more than one
// version of a name. Never silently resolved to one of them.
type AmbiguousReferenceError struct {
	Ref     string
	Matches []string // matching dataset ids
}

func (e *AmbiguousReferenceError) Error() string {
	return fmt.Sprintf("reference %q is ambiguous: matches %s", e.Ref, strings.Join(e.Matches, ", "))
}

// InvalidReferenceError reports a reference string that matches no recognized
// grammar.
type InvalidReferenceError struct {
	Ref    string
	Reason string
}

func (e *InvalidReferenceError) Error() string {
	if e.Reason != "" {
		return fmt.Sprintf("invalid reference %q: %s", e.Ref, e.Reason)
	}
	return fmt.Sprintf("invalid reference %q: use name:tag, name@hash, or id", e.Ref)
}

// HasChildrenError reports a non-forced delete of a dataset other datasets
// were derived from. ChildIDs names every dependent.
type HasChildrenError struct {
	ID       string
	ChildIDs []string
}

func (e *HasChildrenError) Error() string {
	return fmt.Sprintf("dataset %s has children (%s); use force to delete", e.ID, strings.Join(e.ChildIDs, ", "))
}

// DanglingAncestorError reports parent entries whose target records were
// force-deleted. Lineage queries return it alongside the parents that did
// resolve; it never aborts a traversal.
type DanglingAncestorError struct {
	ID      string   // dataset whose parent list contains the dangling entries
	Missing []string // parent ids that no longer resolve
}

func (e *DanglingAncestorError) Error() string {
	return fmt.Sprintf("dataset %s has dangling ancestors: %s", e.ID, strings.Join(e.Missing, ", "))
}

// DuplicateTagError reports a tag assignment that would overwrite an existing
// pointer when the store is configured to require explicit overwrites.
type DuplicateTagError struct {
	Name      string
	Label     string
	CurrentID string
}

func (e *DuplicateTagError) Error() string {
	return fmt.Sprintf("tag %s:%s already points to %s", e.Name, e.Label, e.CurrentID)
}
