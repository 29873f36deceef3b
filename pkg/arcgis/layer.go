// Package arcgis defines the wire-level types of the ArcGIS REST API
// Map Service query contract: layer URLs, service descriptors, query
// parameters, and GeoJSON feature collections.
package arcgis

import (
	"errors"
	"fmt"
	"net/url"
	"strconv"
	"strings"
)

// ErrInvalidLayerURL is returned when a URL cannot be resolved to a
// numbered layer resource.
var ErrInvalidLayerURL = errors.New("invalid layer URL")

// QueryPath is the query endpoint appended to a validated layer URL.
const QueryPath = "/Query"

// ValidateLayerURL checks that raw points at a numbered Map Service layer
// and normalizes it. The layer number is the last numeric path segment;
// anything after it is dropped.
//
// Accepted shape: https://<server>/arcgis/rest/services/<folders>/MapServer/<layer>
func ValidateLayerURL(raw string) (string, error) {
	parsed, err := url.Parse(raw)
	if err != nil {
		return "", fmt.Errorf("%w: %v", ErrInvalidLayerURL, err)
	}

	if parsed.Scheme != "http" && parsed.Scheme != "https" {
		return "", fmt.Errorf("%w: scheme must be http or https (got %q)", ErrInvalidLayerURL, parsed.Scheme)
	}
	if parsed.Host == "" {
		return "", fmt.Errorf("%w: missing host", ErrInvalidLayerURL)
	}

	segments := strings.Split(strings.TrimRight(parsed.Path, "/"), "/")
	for i := len(segments) - 1; i > 0; i-- {
		if _, err := strconv.Atoi(segments[i]); err != nil {
			continue
		}
		return parsed.Scheme + "://" + parsed.Host + strings.Join(segments[:i+1], "/"), nil
	}

	return "", fmt.Errorf("%w: no layer number in path %q", ErrInvalidLayerURL, parsed.Path)
}
