// Package dataset assembles partial query results into one immutable
// dataset and exposes it, together with the layer's descriptor metadata,
// through read-only accessors and export entry points.
package dataset

import (
	"fmt"
	"strconv"

	"github.com/mapflow/arcquery/pkg/arcgis"
)

// DefaultCRS is assumed when no output spatial reference was requested.
const DefaultCRS = "4326"

// Options controls aggregation.
type Options struct {
	// CRS is the spatial reference of the returned geometries (the
	// query's outSR). Empty means DefaultCRS.
	CRS string

	// Dedupe selects the policy for boundary-overlapping records.
	Dedupe DedupePolicy
}

// Dataset is the aggregated result of a complete layer fetch. It owns its
// records exclusively and is immutable after aggregation; accessors must
// not be used to mutate it.
type Dataset struct {
	desc     *arcgis.Descriptor
	features []arcgis.Feature
	crs      string
}

// Aggregate concatenates partial results in partition-index order into a
// single dataset. Completion order played no part: collections is already
// slotted by partition index, so the output is deterministic regardless
// of the dispatch strategy that produced it. Zero collections produce a
// valid empty dataset.
func Aggregate(desc *arcgis.Descriptor, collections []*arcgis.FeatureCollection, opts Options) *Dataset {
	total := 0
	for _, fc := range collections {
		total += len(fc.Features)
	}

	features := make([]arcgis.Feature, 0, total)
	for _, fc := range collections {
		features = append(features, fc.Features...)
	}

	if opts.Dedupe == DedupeByID {
		features = dedupeFeatures(features)
	}

	crs := opts.CRS
	if crs == "" {
		crs = DefaultCRS
	}

	return &Dataset{
		desc:     desc,
		features: features,
		crs:      crs,
	}
}

// Features returns the aggregated records in partition order.
func (d *Dataset) Features() []arcgis.Feature {
	return d.features
}

// Records returns the attribute maps of the aggregated records, without
// geometry.
func (d *Dataset) Records() []map[string]any {
	records := make([]map[string]any, len(d.features))
	for i, feature := range d.features {
		records[i] = feature.Properties
	}
	return records
}

// Len returns the number of aggregated records.
func (d *Dataset) Len() int {
	return len(d.features)
}

// Schema returns the layer's ordered field schema.
func (d *Dataset) Schema() []arcgis.Field {
	return d.desc.Fields
}

// TotalRecords returns the record count the service reported at session
// open. It can exceed Len when pagination is unsupported.
func (d *Dataset) TotalRecords() int {
	return d.desc.TotalRecords
}

// MaxRecordCount returns the server's per-request record cap.
func (d *Dataset) MaxRecordCount() int {
	return d.desc.MaxRecordCount
}

// SupportsPagination reports whether the service honors offset/count.
func (d *Dataset) SupportsPagination() bool {
	return d.desc.SupportsPagination
}

// GeometryType returns the layer's geometry kind.
func (d *Dataset) GeometryType() arcgis.GeometryKind {
	return d.desc.GeometryType
}

// CRS returns the spatial reference of the dataset's geometries.
func (d *Dataset) CRS() string {
	return d.crs
}

// Table is a geometry-aware tabular rendering of a dataset: attribute
// columns in schema order plus a trailing WKT geometry column for layers
// that carry geometry.
type Table struct {
	Columns []string
	Rows    [][]string
}

// Table converts the dataset to tabular form. It is a pure transformation
// of aggregated state; no network activity occurs.
func (d *Dataset) Table() (*Table, error) {
	hasGeometry := d.desc.GeometryType != arcgis.GeometryNone

	columns := make([]string, 0, len(d.desc.Fields)+1)
	for _, field := range d.desc.Fields {
		columns = append(columns, field.Name)
	}
	if hasGeometry {
		columns = append(columns, "geometry")
	}

	rows := make([][]string, 0, len(d.features))
	for i, feature := range d.features {
		row := make([]string, 0, len(columns))
		for _, field := range d.desc.Fields {
			row = append(row, formatValue(feature.Properties[field.Name]))
		}
		if hasGeometry {
			wkt, err := GeometryToWKT(feature.Geometry)
			if err != nil {
				return nil, fmt.Errorf("record %d: %w", i, err)
			}
			row = append(row, wkt)
		}
		rows = append(rows, row)
	}

	return &Table{Columns: columns, Rows: rows}, nil
}

// formatValue renders an attribute value for tabular output.
func formatValue(v any) string {
	switch t := v.(type) {
	case nil:
		return ""
	case string:
		return t
	case float64:
		return strconv.FormatFloat(t, 'f', -1, 64)
	case bool:
		return strconv.FormatBool(t)
	case int:
		return strconv.Itoa(t)
	default:
		return fmt.Sprintf("%v", t)
	}
}
