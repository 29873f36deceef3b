package arcgis

import (
	"encoding/json"
	"fmt"
)

// GeometryKind classifies the geometry a layer serves.
type GeometryKind string

const (
	// GeometryPoint covers point and multipoint layers.
	GeometryPoint GeometryKind = "point"

	// GeometryLine covers polyline layers.
	GeometryLine GeometryKind = "line"

	// GeometryPolygon covers polygon and envelope layers.
	GeometryPolygon GeometryKind = "polygon"

	// GeometryNone marks tables without geometry.
	GeometryNone GeometryKind = "none"
)

// geometryKind maps the esriGeometry* tags reported by the service.
func geometryKind(tag string) GeometryKind {
	switch tag {
	case "esriGeometryPoint", "esriGeometryMultipoint":
		return GeometryPoint
	case "esriGeometryPolyline":
		return GeometryLine
	case "esriGeometryPolygon", "esriGeometryEnvelope":
		return GeometryPolygon
	default:
		return GeometryNone
	}
}

// Field is one column of a layer's schema. Field order in the descriptor
// is the authoritative column order for tabular output.
type Field struct {
	Name  string `json:"name"`
	Type  string `json:"type"`
	Alias string `json:"alias,omitempty"`
}

// Descriptor holds the layer metadata fetched once per session. It is
// never mutated after construction.
type Descriptor struct {
	// Fields is the ordered schema of the layer.
	Fields []Field

	// TotalRecords is the number of records matching where=1=1.
	TotalRecords int

	// MaxRecordCount is the server-imposed per-request record cap.
	MaxRecordCount int

	// SupportsPagination reports whether the service honors
	// resultOffset/resultRecordCount.
	SupportsPagination bool

	// GeometryType is the classified geometry kind.
	GeometryType GeometryKind

	// RawGeometryType is the esriGeometry* tag as reported.
	RawGeometryType string
}

// layerMetadata is the subset of the layer resource JSON the descriptor
// needs. json.RawMessage keeps absent and malformed members apart.
type layerMetadata struct {
	MaxRecordCount *json.Number `json:"maxRecordCount"`
	Fields         []Field      `json:"fields"`
	GeometryType   string       `json:"geometryType"`
	AdvancedQuery  struct {
		SupportsPagination bool `json:"supportsPagination"`
	} `json:"advancedQueryCapabilities"`
}

// countResult is the response to a returnCountOnly query.
type countResult struct {
	Count *json.Number `json:"count"`
}

// ParseDescriptor builds a Descriptor from the layer resource body and the
// returnCountOnly response body. It rejects payloads missing the members
// the pagination plan depends on.
func ParseDescriptor(metadataBody, countBody []byte) (*Descriptor, error) {
	var meta layerMetadata
	if err := json.Unmarshal(metadataBody, &meta); err != nil {
		return nil, fmt.Errorf("parse layer metadata: %w", err)
	}

	if meta.MaxRecordCount == nil {
		return nil, fmt.Errorf("layer metadata missing maxRecordCount")
	}
	maxRecords, err := meta.MaxRecordCount.Int64()
	if err != nil {
		return nil, fmt.Errorf("maxRecordCount is not an integer: %w", err)
	}
	if maxRecords < 1 {
		return nil, fmt.Errorf("maxRecordCount must be >= 1 (got %d)", maxRecords)
	}

	if meta.Fields == nil {
		return nil, fmt.Errorf("layer metadata missing fields")
	}

	var count countResult
	if err := json.Unmarshal(countBody, &count); err != nil {
		return nil, fmt.Errorf("parse record count: %w", err)
	}
	if count.Count == nil {
		return nil, fmt.Errorf("count response missing count")
	}
	total, err := count.Count.Int64()
	if err != nil {
		return nil, fmt.Errorf("count is not an integer: %w", err)
	}
	if total < 0 {
		return nil, fmt.Errorf("count must be >= 0 (got %d)", total)
	}

	return &Descriptor{
		Fields:             meta.Fields,
		TotalRecords:       int(total),
		MaxRecordCount:     int(maxRecords),
		SupportsPagination: meta.AdvancedQuery.SupportsPagination,
		GeometryType:       geometryKind(meta.GeometryType),
		RawGeometryType:    meta.GeometryType,
	}, nil
}
