// Package core provides core types used throughout DatasetDB.
//
// The package defines fundamental types like Identity, DatasetVersion,
// TagPointer, ShapeDescriptor, and the error kinds surfaced by the
// repository.
//
// # Identity
//
// Identity identifies the author of store transactions (Git commit author):
//
//	identity := core.Identity{
//	    Name:  "John Doe",
//	    Email: "john@example.com",
//	}
//
// # Dataset Versions
//
// DatasetVersion is one immutable snapshot of a tabular dataset. Its ID is
// assigned at creation and never reused; the Fingerprint is a fast,
// sample-based content identity computed by package fp.
//
// # Errors
//
// The error kinds reported by repository operations are concrete types
// matchable with errors.As:
//
//	var notFound *core.NotFoundError
//	if errors.As(err, &notFound) {
//	    ...
//	}
package core
