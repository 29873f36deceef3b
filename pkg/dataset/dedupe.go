package dataset

import (
	"encoding/json"
	"fmt"
	"strconv"

	"github.com/cespare/xxhash/v2"

	"github.com/mapflow/arcquery/pkg/arcgis"
)

// DedupePolicy selects how boundary-overlapping records are handled.
// Some services return the same record in two adjacent partitions; the
// default reproduces the server output verbatim and leaves that data
// quality question to the caller.
type DedupePolicy string

const (
	// DedupePassThrough keeps every returned record, duplicates included.
	DedupePassThrough DedupePolicy = "pass-through"

	// DedupeByID drops later occurrences of a record identity. Identity
	// is the canonical feature id, or a hash of geometry plus attributes
	// for features without an id.
	DedupeByID DedupePolicy = "by-id"
)

// dedupeFeatures removes later duplicates, preserving first-seen order.
func dedupeFeatures(features []arcgis.Feature) []arcgis.Feature {
	seen := make(map[string]struct{}, len(features))
	out := features[:0:0]
	for _, feature := range features {
		key := featureKey(feature)
		if _, dup := seen[key]; dup {
			continue
		}
		seen[key] = struct{}{}
		out = append(out, feature)
	}
	return out
}

// featureKey returns a canonical identity key for a feature.
func featureKey(feature arcgis.Feature) string {
	switch id := feature.ID.(type) {
	case string:
		return "s:" + id
	case float64:
		return "n:" + strconv.FormatFloat(id, 'g', -1, 64)
	case json.Number:
		return "n:" + id.String()
	case nil:
		return contentKey(feature)
	default:
		return fmt.Sprintf("v:%v", id)
	}
}

// contentKey hashes geometry plus attributes for id-less features.
// json.Marshal sorts map keys, so the digest is deterministic.
func contentKey(feature arcgis.Feature) string {
	digest := xxhash.New()
	_, _ = digest.Write(feature.Geometry)
	if props, err := json.Marshal(feature.Properties); err == nil {
		_, _ = digest.Write(props)
	}
	return "h:" + strconv.FormatUint(digest.Sum64(), 16)
}
