// Package dataeng is the DuckDB-backed data engine collaborator.
//
// The core never touches row data; this package owns it. Given an opaque
// pointer (a local path, file://, http(s)://, or s3:// URL to a CSV,
// Parquet, or JSON file) it produces the shape descriptor and bounded
// head/tail sample the fingerprint engine needs. Remote pointers are fetched
// into a local cache before DuckDB reads them.
package dataeng

import (
	"database/sql"
	"fmt"
	"path/filepath"
	"strings"
	"time"

	_ "github.com/duckdb/duckdb-go/v2"

	"github.com/ajholden/DatasetDB/core"
)

// Engine implements core.DataEngine on top of an in-process DuckDB.
type Engine struct {
	cacheDir string
	s3cfg    *S3Config
}

// New creates an engine. cacheDir is where remote pointers are materialized;
// it may be empty if only local pointers will be used.
func New(cacheDir string) *Engine {
	return &Engine{cacheDir: cacheDir}
}

// WithS3 configures credentials for s3:// pointers.
func (e *Engine) WithS3(cfg S3Config) *Engine {
	e.s3cfg = &cfg
	return e
}

// relationFor maps a local file to the DuckDB table function reading it.
func relationFor(localPath string) (string, error) {
	quoted := strings.ReplaceAll(localPath, "'", "''")
	switch strings.ToLower(filepath.Ext(localPath)) {
	case ".csv":
		return fmt.Sprintf("read_csv_auto('%s')", quoted), nil
	case ".parquet":
		return fmt.Sprintf("read_parquet('%s')", quoted), nil
	case ".json", ".jsonl":
		return fmt.Sprintf("read_json_auto('%s')", quoted), nil
	default:
		return "", fmt.Errorf("unsupported file type: %s", filepath.Ext(localPath))
	}
}

// Snapshot produces the shape descriptor and first/last core.SampleRows rows
// for the data behind pointer. Deterministic for unchanged data: DuckDB
// preserves storage order for these reads.
func (e *Engine) Snapshot(pointer string) (core.ShapeDescriptor, core.Sample, error) {
	local, err := e.localize(pointer)
	if err != nil {
		return core.ShapeDescriptor{}, core.Sample{}, err
	}

	rel, err := relationFor(local)
	if err != nil {
		return core.ShapeDescriptor{}, core.Sample{}, err
	}

	conn, err := sql.Open("duckdb", "")
	if err != nil {
		return core.ShapeDescriptor{}, core.Sample{}, fmt.Errorf("failed to open duckdb: %w", err)
	}
	defer conn.Close()

	shape, err := describeShape(conn, rel)
	if err != nil {
		return core.ShapeDescriptor{}, core.Sample{}, err
	}

	sample, err := sampleRows(conn, rel, shape.RowCount)
	if err != nil {
		return core.ShapeDescriptor{}, core.Sample{}, err
	}

	return shape, sample, nil
}

func describeShape(conn *sql.DB, rel string) (core.ShapeDescriptor, error) {
	rows, err := conn.Query(fmt.Sprintf("SELECT column_name, column_type FROM (DESCRIBE SELECT * FROM %s)", rel))
	if err != nil {
		return core.ShapeDescriptor{}, fmt.Errorf("failed to describe: %w", err)
	}
	defer rows.Close()

	var shape core.ShapeDescriptor
	for rows.Next() {
		var col core.Column
		if err := rows.Scan(&col.Name, &col.Type); err != nil {
			return core.ShapeDescriptor{}, err
		}
		shape.Columns = append(shape.Columns, col)
	}
	if err := rows.Err(); err != nil {
		return core.ShapeDescriptor{}, err
	}
	shape.ColumnCount = len(shape.Columns)

	if err := conn.QueryRow(fmt.Sprintf("SELECT count(*) FROM %s", rel)).Scan(&shape.RowCount); err != nil {
		return core.ShapeDescriptor{}, fmt.Errorf("failed to count rows: %w", err)
	}

	return shape, nil
}

func sampleRows(conn *sql.DB, rel string, rowCount int64) (core.Sample, error) {
	head, err := scanRows(conn, fmt.Sprintf("SELECT * FROM %s LIMIT %d", rel, core.SampleRows))
	if err != nil {
		return core.Sample{}, err
	}

	tailOffset := rowCount - core.SampleRows
	if tailOffset < 0 {
		tailOffset = 0
	}
	tail, err := scanRows(conn, fmt.Sprintf("SELECT * FROM %s LIMIT %d OFFSET %d", rel, core.SampleRows, tailOffset))
	if err != nil {
		return core.Sample{}, err
	}

	return core.Sample{Head: head, Tail: tail}, nil
}

// scanRows runs a query and renders every cell as a string, nulls as "".
func scanRows(conn *sql.DB, query string) ([][]string, error) {
	rows, err := conn.Query(query)
	if err != nil {
		return nil, fmt.Errorf("failed to sample: %w", err)
	}
	defer rows.Close()

	columns, err := rows.Columns()
	if err != nil {
		return nil, err
	}

	var out [][]string
	for rows.Next() {
		values := make([]any, len(columns))
		pointers := make([]any, len(columns))
		for i := range values {
			pointers[i] = &values[i]
		}
		if err := rows.Scan(pointers...); err != nil {
			return nil, err
		}

		row := make([]string, len(columns))
		for i, value := range values {
			row[i] = renderCell(value)
		}
		out = append(out, row)
	}

	return out, rows.Err()
}

func renderCell(value any) string {
	switch v := value.(type) {
	case nil:
		return ""
	case []byte:
		return string(v)
	case time.Time:
		return v.UTC().Format(time.RFC3339Nano)
	default:
		return fmt.Sprintf("%v", v)
	}
}
