package arcgis

import (
	"errors"
	"fmt"
	"net/url"
)

// ErrUnknownOption is returned when a query option key is not part of the
// recognized parameter set.
var ErrUnknownOption = errors.New("unknown query option")

// Default filter values: match every record, project every field.
const (
	DefaultWhere     = "1=1"
	DefaultOutFields = "*"
)

// QuerySpec holds the user-supplied filter and projection parameters of a
// layer query. It never carries pagination parameters; resultOffset and
// resultRecordCount are overlaid per partition by the executor and always
// win. A QuerySpec is immutable once a fetch begins.
type QuerySpec struct {
	// Where is the SQL-like row filter (default "1=1").
	Where string

	// Text is a free-text search over the layer's display field.
	Text string

	// ObjectIDs restricts the query to a comma-separated id list.
	ObjectIDs string

	// Geometry, GeometryType, InSR and SpatialRel together form the
	// spatial filter.
	Geometry     string
	GeometryType string
	InSR         string
	SpatialRel   string

	// OutFields is the field projection (default "*", all fields).
	OutFields string

	// OutSR requests reprojection of returned geometries.
	OutSR string
}

// DefaultSpec returns a spec matching all records with all fields.
func DefaultSpec() QuerySpec {
	return QuerySpec{
		Where:     DefaultWhere,
		OutFields: DefaultOutFields,
	}
}

// SpecFromMap builds a QuerySpec from string pairs, applying defaults for
// where/outFields. Unrecognized keys are rejected here, at construction,
// rather than surfacing as a server error at fetch time.
func SpecFromMap(options map[string]string) (QuerySpec, error) {
	spec := DefaultSpec()
	for key, value := range options {
		switch key {
		case "where":
			if value != "" {
				spec.Where = value
			}
		case "text":
			spec.Text = value
		case "objectIds":
			spec.ObjectIDs = value
		case "geometry":
			spec.Geometry = value
		case "geometryType":
			spec.GeometryType = value
		case "inSR":
			spec.InSR = value
		case "spatialRel":
			spec.SpatialRel = value
		case "outFields":
			if value != "" {
				spec.OutFields = value
			}
		case "outSR":
			spec.OutSR = value
		default:
			return QuerySpec{}, fmt.Errorf("%w: %q", ErrUnknownOption, key)
		}
	}
	return spec, nil
}

// Params renders the spec as query endpoint parameters. Empty optional
// values are omitted; where and outFields fall back to their defaults so
// an unset spec matches everything.
func (s QuerySpec) Params() url.Values {
	params := url.Values{}

	where := s.Where
	if where == "" {
		where = DefaultWhere
	}
	params.Set("where", where)

	outFields := s.OutFields
	if outFields == "" {
		outFields = DefaultOutFields
	}
	params.Set("outFields", outFields)

	setIfPresent(params, "text", s.Text)
	setIfPresent(params, "objectIds", s.ObjectIDs)
	setIfPresent(params, "geometry", s.Geometry)
	setIfPresent(params, "geometryType", s.GeometryType)
	setIfPresent(params, "inSR", s.InSR)
	setIfPresent(params, "spatialRel", s.SpatialRel)
	setIfPresent(params, "outSR", s.OutSR)

	return params
}

func setIfPresent(params url.Values, key, value string) {
	if value != "" {
		params.Set(key, value)
	}
}
