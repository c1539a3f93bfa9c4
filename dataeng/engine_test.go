package dataeng

import (
	"testing"
	"time"
)

func TestRelationFor(t *testing.T) {
	cases := []struct {
		path string
		want string
	}{
		{"/data/sales.csv", "read_csv_auto('/data/sales.csv')"},
		{"/data/sales.CSV", "read_csv_auto('/data/sales.CSV')"},
		{"/data/sales.parquet", "read_parquet('/data/sales.parquet')"},
		{"/data/events.json", "read_json_auto('/data/events.json')"},
		{"/data/events.jsonl", "read_json_auto('/data/events.jsonl')"},
	}

	for _, tc := range cases {
		got, err := relationFor(tc.path)
		if err != nil {
			t.Errorf("relationFor(%q) failed: %v", tc.path, err)
			continue
		}
		if got != tc.want {
			t.Errorf("relationFor(%q) = %q, want %q", tc.path, got, tc.want)
		}
	}
}

func TestRelationForQuotesPath(t *testing.T) {
	got, err := relationFor("/data/client's.csv")
	if err != nil {
		t.Fatalf("relationFor failed: %v", err)
	}
	if got != "read_csv_auto('/data/client''s.csv')" {
		t.Errorf("Expected escaped quote in relation, got %q", got)
	}
}

func TestRelationForUnsupported(t *testing.T) {
	if _, err := relationFor("/data/sales.xlsx"); err == nil {
		t.Error("Expected unsupported extension to be rejected")
	}
	if _, err := relationFor("/data/noext"); err == nil {
		t.Error("Expected extensionless path to be rejected")
	}
}

func TestRenderCell(t *testing.T) {
	if got := renderCell(nil); got != "" {
		t.Errorf("Expected null to render empty, got %q", got)
	}
	if got := renderCell([]byte("blob")); got != "blob" {
		t.Errorf("Expected bytes to render as string, got %q", got)
	}
	if got := renderCell(int64(42)); got != "42" {
		t.Errorf("Expected 42, got %q", got)
	}

	ts := time.Date(2024, 3, 1, 12, 30, 0, 0, time.UTC)
	if got := renderCell(ts); got != "2024-03-01T12:30:00Z" {
		t.Errorf("Expected RFC3339 timestamp, got %q", got)
	}
}

func TestURLSchemeDetection(t *testing.T) {
	cases := []struct {
		pointer string
		want    urlScheme
	}{
		{"/data/local.csv", schemeLocal},
		{"file:///data/local.csv", schemeFile},
		{"http://host/data.csv", schemeHTTP},
		{"https://host/data.parquet", schemeHTTPS},
		{"S3://bucket/key.parquet", schemeS3},
		{"s3://bucket/key.parquet", schemeS3},
	}

	for _, tc := range cases {
		if got := detectScheme(tc.pointer); got != tc.want {
			t.Errorf("detectScheme(%q) = %v, want %v", tc.pointer, got, tc.want)
		}
	}
}

func TestParseS3URL(t *testing.T) {
	bucket, key, err := parseS3URL("s3://my-bucket/path/to/data.parquet")
	if err != nil {
		t.Fatalf("Failed to parse: %v", err)
	}
	if bucket != "my-bucket" || key != "path/to/data.parquet" {
		t.Errorf("Expected (my-bucket, path/to/data.parquet), got (%s, %s)", bucket, key)
	}

	if _, _, err := parseS3URL("s3://bucket-only"); err == nil {
		t.Error("Expected keyless URL to be rejected")
	}
}
