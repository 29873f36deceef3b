package arcgis

import (
	"encoding/json"
	"fmt"
)

// Feature is one labeled record of a query response: an attribute map
// plus an optional GeoJSON geometry. Geometry is kept raw; the dataset
// layer interprets it only when converting or exporting.
type Feature struct {
	ID         any             `json:"id,omitempty"`
	Geometry   json.RawMessage `json:"geometry,omitempty"`
	Properties map[string]any  `json:"properties"`
}

// MarshalJSON emits the feature as a GeoJSON Feature object.
func (f Feature) MarshalJSON() ([]byte, error) {
	out := struct {
		Type       string          `json:"type"`
		ID         any             `json:"id,omitempty"`
		Geometry   json.RawMessage `json:"geometry"`
		Properties map[string]any  `json:"properties"`
	}{
		Type:       "Feature",
		ID:         f.ID,
		Geometry:   f.Geometry,
		Properties: f.Properties,
	}
	if len(out.Geometry) == 0 {
		out.Geometry = json.RawMessage("null")
	}
	return json.Marshal(out)
}

// FeatureCollection is the parsed body of one partition's query response.
type FeatureCollection struct {
	Features []Feature
}

// ParseFeatureCollection parses a query response body requested with
// f=geojson. Bodies that are not a GeoJSON FeatureCollection are
// rejected, including ArcGIS error envelopes delivered with HTTP 200.
func ParseFeatureCollection(body []byte) (*FeatureCollection, error) {
	var root struct {
		Type     string `json:"type"`
		Features []struct {
			Type       string          `json:"type"`
			ID         any             `json:"id,omitempty"`
			Geometry   json.RawMessage `json:"geometry"`
			Properties map[string]any  `json:"properties"`
		} `json:"features"`
		Error *struct {
			Code    int    `json:"code"`
			Message string `json:"message"`
		} `json:"error"`
	}

	if err := json.Unmarshal(body, &root); err != nil {
		return nil, fmt.Errorf("parse response: %w", err)
	}
	if root.Error != nil {
		return nil, fmt.Errorf("service error %d: %s", root.Error.Code, root.Error.Message)
	}
	if root.Type != "FeatureCollection" {
		return nil, fmt.Errorf("response type is %q (want FeatureCollection)", root.Type)
	}

	collection := &FeatureCollection{
		Features: make([]Feature, 0, len(root.Features)),
	}
	for i, raw := range root.Features {
		if raw.Type != "Feature" {
			return nil, fmt.Errorf("feature %d: type is %q (want Feature)", i, raw.Type)
		}
		props := raw.Properties
		if props == nil {
			props = map[string]any{}
		}
		collection.Features = append(collection.Features, Feature{
			ID:         raw.ID,
			Geometry:   raw.Geometry,
			Properties: props,
		})
	}
	return collection, nil
}
