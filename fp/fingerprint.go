// Package fp computes content fingerprints for dataset snapshots.
//
// A fingerprint is a SHA-256 hex digest over a canonical serialization of a
// dataset's shape (row count, column count, schema) and a bounded sample of
// its rows. Because only the sample is hashed, fingerprinting cost does not
// grow with dataset size; the trade-off is a small, documented collision
// probability when two datasets differ only outside the sampled rows.
package fp

import (
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"sort"
	"strings"

	"github.com/ajholden/DatasetDB/core"
)

// ShortLen is the conventional prefix length for human-facing references.
const ShortLen = 7

// Fingerprint derives the content identity for a shape descriptor and sample.
// It is deterministic and never fails: an empty or degenerate dataset hashes
// to a valid fingerprint over the empty shape.
func Fingerprint(shape core.ShapeDescriptor, sample core.Sample) string {
	var b strings.Builder

	fmt.Fprintf(&b, "rows:%d", shape.RowCount)
	fmt.Fprintf(&b, "|cols:%d", shape.ColumnCount)

	// Schema pairs are sorted by column name so column order does not
	// change the identity. Name and type are length-prefixed to keep the
	// serialization unambiguous.
	pairs := make([]string, 0, len(shape.Columns))
	for _, col := range shape.Columns {
		pairs = append(pairs, fmt.Sprintf("%d:%s=%d:%s", len(col.Name), col.Name, len(col.Type), col.Type))
	}
	sort.Strings(pairs)
	fmt.Fprintf(&b, "|schema:[%s]", strings.Join(pairs, ","))

	fmt.Fprintf(&b, "|head:%s", rowsDigest(sample.Head))
	fmt.Fprintf(&b, "|tail:%s", rowsDigest(sample.Tail))

	sum := sha256.Sum256([]byte(b.String()))
	return hex.EncodeToString(sum[:])
}

// Short returns the human-facing prefix form of a fingerprint.
func Short(fingerprint string) string {
	if len(fingerprint) < ShortLen {
		return fingerprint
	}
	return fingerprint[:ShortLen]
}

// rowsDigest hashes a block of sample rows into a short hex string. Each cell
// is length-prefixed so cell boundaries cannot be confused.
func rowsDigest(rows [][]string) string {
	h := sha256.New()
	for _, row := range rows {
		for _, cell := range row {
			fmt.Fprintf(h, "%d:%s;", len(cell), cell)
		}
		h.Write([]byte{'\n'})
	}
	return hex.EncodeToString(h.Sum(nil))[:8]
}
