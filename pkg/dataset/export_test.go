package dataset

import (
	"encoding/csv"
	"encoding/json"
	"errors"
	"os"
	"path/filepath"
	"testing"

	"github.com/mapflow/arcquery/pkg/arcgis"
)

func testDataset(t *testing.T) *Dataset {
	t.Helper()
	return Aggregate(testDescriptor(), []*arcgis.FeatureCollection{
		{Features: []arcgis.Feature{feature(1, "Minneapolis"), feature(2, "Saint Paul")}},
	}, Options{})
}

func TestWriteGeoJSON(t *testing.T) {
	ds := testDataset(t)
	path := filepath.Join(t.TempDir(), "out.geojson")

	if err := ds.WriteGeoJSON(path); err != nil {
		t.Fatalf("WriteGeoJSON error: %v", err)
	}

	buf, err := os.ReadFile(path)
	if err != nil {
		t.Fatalf("read: %v", err)
	}

	var doc struct {
		Type string `json:"type"`
		CRS  struct {
			Properties struct {
				Name string `json:"name"`
			} `json:"properties"`
		} `json:"crs"`
		Features []struct {
			Type       string         `json:"type"`
			Properties map[string]any `json:"properties"`
		} `json:"features"`
	}
	if err := json.Unmarshal(buf, &doc); err != nil {
		t.Fatalf("unmarshal: %v", err)
	}

	if doc.Type != "FeatureCollection" {
		t.Errorf("type = %q", doc.Type)
	}
	if doc.CRS.Properties.Name != "EPSG:4326" {
		t.Errorf("crs = %q, want EPSG:4326", doc.CRS.Properties.Name)
	}
	if len(doc.Features) != 2 {
		t.Fatalf("features = %d, want 2", len(doc.Features))
	}
	if doc.Features[0].Properties["NAME"] != "Minneapolis" {
		t.Errorf("first feature NAME = %v", doc.Features[0].Properties["NAME"])
	}
}

func TestWriteGeoJSON_EmptyDataset(t *testing.T) {
	ds := Aggregate(testDescriptor(), nil, Options{})
	path := filepath.Join(t.TempDir(), "empty.geojson")

	if err := ds.WriteGeoJSON(path); err != nil {
		t.Fatalf("WriteGeoJSON error: %v", err)
	}

	buf, _ := os.ReadFile(path)
	var doc struct {
		Features []any `json:"features"`
	}
	if err := json.Unmarshal(buf, &doc); err != nil {
		t.Fatalf("unmarshal: %v", err)
	}
	if doc.Features == nil {
		t.Error("features = null, want []")
	}
}

func TestWriteCSV(t *testing.T) {
	ds := testDataset(t)
	path := filepath.Join(t.TempDir(), "out.csv")

	if err := ds.WriteCSV(path); err != nil {
		t.Fatalf("WriteCSV error: %v", err)
	}

	file, err := os.Open(path)
	if err != nil {
		t.Fatalf("open: %v", err)
	}
	defer file.Close()

	rows, err := csv.NewReader(file).ReadAll()
	if err != nil {
		t.Fatalf("read csv: %v", err)
	}

	if len(rows) != 3 {
		t.Fatalf("rows = %d, want header + 2 records", len(rows))
	}
	header := rows[0]
	if header[0] != "OBJECTID" || header[len(header)-1] != "geometry" {
		t.Errorf("header = %v", header)
	}
	if rows[1][1] != "Minneapolis" || rows[2][1] != "Saint Paul" {
		t.Errorf("record order: %v / %v", rows[1], rows[2])
	}
	if rows[1][3] != "POINT(-93.1 44.9)" {
		t.Errorf("geometry cell = %q", rows[1][3])
	}
}

func TestWriteSchema(t *testing.T) {
	ds := testDataset(t)
	path := filepath.Join(t.TempDir(), "schema.json")

	if err := ds.WriteSchema(path); err != nil {
		t.Fatalf("WriteSchema error: %v", err)
	}

	buf, _ := os.ReadFile(path)
	var fields []arcgis.Field
	if err := json.Unmarshal(buf, &fields); err != nil {
		t.Fatalf("unmarshal: %v", err)
	}
	if len(fields) != 3 || fields[0].Name != "OBJECTID" {
		t.Errorf("fields = %+v", fields)
	}
}

func TestExportError_UnwritablePath(t *testing.T) {
	ds := testDataset(t)
	path := filepath.Join(t.TempDir(), "missing", "dir", "out.geojson")

	err := ds.WriteGeoJSON(path)
	if err == nil {
		t.Fatal("expected error for unwritable path")
	}

	var exportErr *ExportError
	if !errors.As(err, &exportErr) {
		t.Fatalf("error = %T, want *ExportError", err)
	}
	if exportErr.Format != "geojson" || exportErr.Path != path {
		t.Errorf("ExportError = %+v", exportErr)
	}

	// A failed export leaves the dataset intact.
	if ds.Len() != 2 {
		t.Errorf("Len = %d after failed export, want 2", ds.Len())
	}
}
