package arcgis

import (
	"strings"
	"testing"
)

const validMetadata = `{
	"maxRecordCount": 1000,
	"geometryType": "esriGeometryPolygon",
	"advancedQueryCapabilities": {"supportsPagination": true},
	"fields": [
		{"name": "OBJECTID", "type": "esriFieldTypeOID", "alias": "OBJECTID"},
		{"name": "NAME", "type": "esriFieldTypeString", "alias": "Name"},
		{"name": "ACRES", "type": "esriFieldTypeDouble", "alias": "Acres"}
	]
}`

func TestParseDescriptor(t *testing.T) {
	desc, err := ParseDescriptor([]byte(validMetadata), []byte(`{"count": 2542}`))
	if err != nil {
		t.Fatalf("ParseDescriptor error: %v", err)
	}

	if desc.TotalRecords != 2542 {
		t.Errorf("TotalRecords = %d, want 2542", desc.TotalRecords)
	}
	if desc.MaxRecordCount != 1000 {
		t.Errorf("MaxRecordCount = %d, want 1000", desc.MaxRecordCount)
	}
	if !desc.SupportsPagination {
		t.Error("SupportsPagination = false, want true")
	}
	if desc.GeometryType != GeometryPolygon {
		t.Errorf("GeometryType = %q, want %q", desc.GeometryType, GeometryPolygon)
	}
	if desc.RawGeometryType != "esriGeometryPolygon" {
		t.Errorf("RawGeometryType = %q", desc.RawGeometryType)
	}

	// Field order must follow the metadata document.
	wantFields := []string{"OBJECTID", "NAME", "ACRES"}
	if len(desc.Fields) != len(wantFields) {
		t.Fatalf("len(Fields) = %d, want %d", len(desc.Fields), len(wantFields))
	}
	for i, name := range wantFields {
		if desc.Fields[i].Name != name {
			t.Errorf("Fields[%d].Name = %q, want %q", i, desc.Fields[i].Name, name)
		}
	}
}

func TestParseDescriptor_Errors(t *testing.T) {
	tests := []struct {
		name      string
		metadata  string
		count     string
		errSubstr string
	}{
		{
			name:      "metadata not json",
			metadata:  `<html>not found</html>`,
			count:     `{"count": 1}`,
			errSubstr: "parse layer metadata",
		},
		{
			name:      "missing maxRecordCount",
			metadata:  `{"fields": []}`,
			count:     `{"count": 1}`,
			errSubstr: "maxRecordCount",
		},
		{
			name:      "non-numeric maxRecordCount",
			metadata:  `{"maxRecordCount": "lots", "fields": []}`,
			count:     `{"count": 1}`,
			errSubstr: "parse layer metadata",
		},
		{
			name:      "maxRecordCount below one",
			metadata:  `{"maxRecordCount": 0, "fields": []}`,
			count:     `{"count": 1}`,
			errSubstr: "maxRecordCount must be >= 1",
		},
		{
			name:      "missing fields",
			metadata:  `{"maxRecordCount": 1000}`,
			count:     `{"count": 1}`,
			errSubstr: "missing fields",
		},
		{
			name:      "missing count",
			metadata:  validMetadata,
			count:     `{}`,
			errSubstr: "missing count",
		},
		{
			name:      "negative count",
			metadata:  validMetadata,
			count:     `{"count": -3}`,
			errSubstr: "count must be >= 0",
		},
		{
			name:      "count not json",
			metadata:  validMetadata,
			count:     `oops`,
			errSubstr: "parse record count",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := ParseDescriptor([]byte(tt.metadata), []byte(tt.count))
			if err == nil {
				t.Fatal("expected error, got nil")
			}
			if !strings.Contains(err.Error(), tt.errSubstr) {
				t.Errorf("error = %q, want substring %q", err, tt.errSubstr)
			}
		})
	}
}

func TestParseDescriptor_Defaults(t *testing.T) {
	// Tables have no geometryType and may omit advancedQueryCapabilities.
	desc, err := ParseDescriptor(
		[]byte(`{"maxRecordCount": 500, "fields": []}`),
		[]byte(`{"count": 0}`),
	)
	if err != nil {
		t.Fatalf("ParseDescriptor error: %v", err)
	}
	if desc.SupportsPagination {
		t.Error("SupportsPagination = true, want false when capabilities absent")
	}
	if desc.GeometryType != GeometryNone {
		t.Errorf("GeometryType = %q, want %q", desc.GeometryType, GeometryNone)
	}
}

func TestGeometryKind(t *testing.T) {
	tests := []struct {
		tag  string
		want GeometryKind
	}{
		{"esriGeometryPoint", GeometryPoint},
		{"esriGeometryMultipoint", GeometryPoint},
		{"esriGeometryPolyline", GeometryLine},
		{"esriGeometryPolygon", GeometryPolygon},
		{"esriGeometryEnvelope", GeometryPolygon},
		{"", GeometryNone},
		{"esriGeometrySomethingNew", GeometryNone},
	}

	for _, tt := range tests {
		if got := geometryKind(tt.tag); got != tt.want {
			t.Errorf("geometryKind(%q) = %q, want %q", tt.tag, got, tt.want)
		}
	}
}
