package dataset

import (
	"encoding/csv"
	"encoding/json"
	"fmt"
	"os"

	"github.com/rs/zerolog/log"

	"github.com/mapflow/arcquery/pkg/arcgis"
)

// ExportError reports a failed dataset export. The in-memory dataset is
// untouched by a failed export.
type ExportError struct {
	Path   string
	Format string
	Err    error
}

// Error implements the error interface.
func (e *ExportError) Error() string {
	return fmt.Sprintf("export %s to %s failed: %v", e.Format, e.Path, e.Err)
}

// Unwrap implements error unwrapping for errors.Is/As.
func (e *ExportError) Unwrap() error {
	return e.Err
}

// geoJSONDocument is the exported FeatureCollection shape. The crs member
// follows the named-CRS convention ArcGIS emits for f=geojson output.
type geoJSONDocument struct {
	Type     string           `json:"type"`
	CRS      geoJSONCRS       `json:"crs"`
	Features []arcgis.Feature `json:"features"`
}

type geoJSONCRS struct {
	Type       string `json:"type"`
	Properties struct {
		Name string `json:"name"`
	} `json:"properties"`
}

// WriteGeoJSON writes the dataset as a GeoJSON FeatureCollection.
func (d *Dataset) WriteGeoJSON(path string) error {
	doc := geoJSONDocument{
		Type:     "FeatureCollection",
		Features: d.features,
	}
	doc.CRS.Type = "name"
	doc.CRS.Properties.Name = "EPSG:" + d.crs
	if doc.Features == nil {
		doc.Features = []arcgis.Feature{}
	}

	file, err := os.Create(path)
	if err != nil {
		return &ExportError{Path: path, Format: "geojson", Err: err}
	}

	encoder := json.NewEncoder(file)
	if err := encoder.Encode(doc); err != nil {
		file.Close()
		return &ExportError{Path: path, Format: "geojson", Err: err}
	}
	if err := file.Close(); err != nil {
		return &ExportError{Path: path, Format: "geojson", Err: err}
	}

	log.Debug().Str("path", path).Int("records", d.Len()).Msg("GeoJSON written")
	return nil
}

// WriteCSV writes the dataset as CSV: attribute columns in schema order
// plus a trailing WKT geometry column for layers that carry geometry.
func (d *Dataset) WriteCSV(path string) error {
	table, err := d.Table()
	if err != nil {
		return &ExportError{Path: path, Format: "csv", Err: err}
	}

	file, err := os.Create(path)
	if err != nil {
		return &ExportError{Path: path, Format: "csv", Err: err}
	}

	writer := csv.NewWriter(file)
	if err := writer.Write(table.Columns); err != nil {
		file.Close()
		return &ExportError{Path: path, Format: "csv", Err: err}
	}
	for _, row := range table.Rows {
		if err := writer.Write(row); err != nil {
			file.Close()
			return &ExportError{Path: path, Format: "csv", Err: err}
		}
	}
	writer.Flush()
	if err := writer.Error(); err != nil {
		file.Close()
		return &ExportError{Path: path, Format: "csv", Err: err}
	}
	if err := file.Close(); err != nil {
		return &ExportError{Path: path, Format: "csv", Err: err}
	}

	log.Debug().Str("path", path).Int("records", d.Len()).Msg("CSV written")
	return nil
}

// WriteSchema writes the layer's ordered field schema as JSON.
func (d *Dataset) WriteSchema(path string) error {
	buf, err := json.MarshalIndent(d.desc.Fields, "", "  ")
	if err != nil {
		return &ExportError{Path: path, Format: "schema", Err: err}
	}
	if err := os.WriteFile(path, buf, 0o644); err != nil {
		return &ExportError{Path: path, Format: "schema", Err: err}
	}

	log.Debug().Str("path", path).Int("fields", len(d.desc.Fields)).Msg("Schema written")
	return nil
}
