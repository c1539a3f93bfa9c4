// Package refs parses and resolves dataset reference strings.
//
// Three forms are recognized, tried in order:
//
//	<raw-id>              a dataset id (UUID)
//	<name>:<tag>          a tag pointer lookup
//	<name>@<hash-prefix>  a fingerprint prefix scan within a name
//
// The id form is tried first so an identifier can never be misparsed as a
// delimiter form. A hash prefix may be any non-empty length; matching more
// than one version of the name is an error, never a silent pick.
package refs

import (
	"regexp"
	"strings"

	"github.com/google/uuid"

	"github.com/ajholden/DatasetDB/core"
)

// Store is the read surface the resolver needs from the metadata store.
type Store interface {
	HasDataset(id string) bool
	GetTag(name, label string) (*core.TagPointer, error)
	ListByName(name string) ([]core.DatasetVersion, error)
}

const (
	MaxNameLen = 100
	MaxTagLen  = 50
)

var namePattern = regexp.MustCompile(`^[a-zA-Z0-9_-]+$`)

// Kind discriminates the parsed reference forms.
type Kind int

const (
	KindID Kind = iota
	KindTag
	KindHashPrefix
)

// Ref is a parsed reference string.
type Ref struct {
	Kind   Kind
	ID     string // KindID
	Name   string // KindTag, KindHashPrefix
	Label  string // KindTag
	Prefix string // KindHashPrefix
}

// ValidName reports whether s is a legal dataset family name.
func ValidName(s string) bool {
	return s != "" && len(s) <= MaxNameLen && namePattern.MatchString(s)
}

// ValidTag reports whether s is a legal tag label.
func ValidTag(s string) bool {
	return s != "" && len(s) <= MaxTagLen && namePattern.MatchString(s)
}

// Parse classifies a reference string without touching the store.
func Parse(ref string) (Ref, error) {
	if ref == "" {
		return Ref{}, &core.InvalidReferenceError{Ref: ref, Reason: "empty reference"}
	}

	if _, err := uuid.Parse(ref); err == nil {
		return Ref{Kind: KindID, ID: ref}, nil
	}

	if strings.Contains(ref, ":") {
		name, label, _ := strings.Cut(ref, ":")
		if !ValidName(name) {
			return Ref{}, &core.InvalidReferenceError{Ref: ref, Reason: "bad dataset name"}
		}
		if !ValidTag(label) {
			return Ref{}, &core.InvalidReferenceError{Ref: ref, Reason: "bad tag label"}
		}
		return Ref{Kind: KindTag, Name: name, Label: label}, nil
	}

	if strings.Contains(ref, "@") {
		name, prefix, _ := strings.Cut(ref, "@")
		if !ValidName(name) {
			return Ref{}, &core.InvalidReferenceError{Ref: ref, Reason: "bad dataset name"}
		}
		if prefix == "" {
			return Ref{}, &core.InvalidReferenceError{Ref: ref, Reason: "empty hash prefix"}
		}
		return Ref{Kind: KindHashPrefix, Name: name, Prefix: prefix}, nil
	}

	return Ref{}, &core.InvalidReferenceError{Ref: ref}
}

// Resolve maps a reference string to exactly one dataset id against the
// current store state.
func Resolve(store Store, ref string) (string, error) {
	parsed, err := Parse(ref)
	if err != nil {
		return "", err
	}

	switch parsed.Kind {
	case KindID:
		if !store.HasDataset(parsed.ID) {
			return "", &core.NotFoundError{Ref: ref}
		}
		return parsed.ID, nil

	case KindTag:
		pointer, err := store.GetTag(parsed.Name, parsed.Label)
		if err != nil {
			return "", err
		}
		return pointer.ID, nil

	default: // KindHashPrefix
		versions, err := store.ListByName(parsed.Name)
		if err != nil {
			return "", err
		}

		var matches []string
		for _, version := range versions {
			if strings.HasPrefix(version.Fingerprint, parsed.Prefix) {
				matches = append(matches, version.ID)
			}
		}

		switch len(matches) {
		case 0:
			return "", &core.NotFoundError{Ref: ref}
		case 1:
			return matches[0], nil
		default:
			return "", &core.AmbiguousReferenceError{Ref: ref, Matches: matches}
		}
	}
}
