package dataset

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"strconv"
	"strings"
)

// GeometryToWKT converts a GeoJSON geometry to its WKT form. A missing or
// null geometry renders as the empty string.
func GeometryToWKT(geom json.RawMessage) (string, error) {
	if len(bytes.TrimSpace(geom)) == 0 || bytes.Equal(bytes.TrimSpace(geom), []byte("null")) {
		return "", nil
	}

	var v struct {
		Type        string          `json:"type"`
		Coordinates json.RawMessage `json:"coordinates"`
	}
	if err := json.Unmarshal(geom, &v); err != nil {
		return "", fmt.Errorf("parse geometry: %w", err)
	}

	switch strings.TrimSpace(v.Type) {
	case "Point":
		var pos []float64
		if err := json.Unmarshal(v.Coordinates, &pos); err != nil {
			return "", fmt.Errorf("parse point coords: %w", err)
		}
		wkt, err := positionToWKT(pos)
		if err != nil {
			return "", err
		}
		return fmt.Sprintf("POINT(%s)", wkt), nil
	case "MultiPoint":
		var positions [][]float64
		if err := json.Unmarshal(v.Coordinates, &positions); err != nil {
			return "", fmt.Errorf("parse multipoint coords: %w", err)
		}
		wkt, err := lineToWKT(positions, 1)
		if err != nil {
			return "", err
		}
		return fmt.Sprintf("MULTIPOINT%s", wkt), nil
	case "LineString":
		var positions [][]float64
		if err := json.Unmarshal(v.Coordinates, &positions); err != nil {
			return "", fmt.Errorf("parse linestring coords: %w", err)
		}
		wkt, err := lineToWKT(positions, 2)
		if err != nil {
			return "", err
		}
		return fmt.Sprintf("LINESTRING%s", wkt), nil
	case "MultiLineString":
		var lines [][][]float64
		if err := json.Unmarshal(v.Coordinates, &lines); err != nil {
			return "", fmt.Errorf("parse multilinestring coords: %w", err)
		}
		if len(lines) == 0 {
			return "", errors.New("empty multilinestring")
		}
		parts := make([]string, 0, len(lines))
		for _, line := range lines {
			wkt, err := lineToWKT(line, 2)
			if err != nil {
				return "", err
			}
			parts = append(parts, wkt)
		}
		return fmt.Sprintf("MULTILINESTRING(%s)", strings.Join(parts, ", ")), nil
	case "Polygon":
		var rings [][][]float64
		if err := json.Unmarshal(v.Coordinates, &rings); err != nil {
			return "", fmt.Errorf("parse polygon coords: %w", err)
		}
		return polygonToWKT(rings)
	case "MultiPolygon":
		var polys [][][][]float64
		if err := json.Unmarshal(v.Coordinates, &polys); err != nil {
			return "", fmt.Errorf("parse multipolygon coords: %w", err)
		}
		return multiPolygonToWKT(polys)
	default:
		return "", fmt.Errorf("unsupported geometry type %q", v.Type)
	}
}

func positionToWKT(pos []float64) (string, error) {
	if len(pos) < 2 {
		return "", errors.New("coordinate must be [x,y]")
	}
	return formatCoord(pos[0]) + " " + formatCoord(pos[1]), nil
}

// lineToWKT renders a sequence of positions as "(x y, x y, ...)".
func lineToWKT(positions [][]float64, minPoints int) (string, error) {
	if len(positions) < minPoints {
		return "", fmt.Errorf("need at least %d points (got %d)", minPoints, len(positions))
	}
	pts := make([]string, 0, len(positions))
	for _, pos := range positions {
		wkt, err := positionToWKT(pos)
		if err != nil {
			return "", err
		}
		pts = append(pts, wkt)
	}
	return fmt.Sprintf("(%s)", strings.Join(pts, ", ")), nil
}

func polygonToWKT(rings [][][]float64) (string, error) {
	if len(rings) == 0 {
		return "", errors.New("empty polygon")
	}
	outRings := make([]string, 0, len(rings))
	for _, ring := range rings {
		if len(ring) < 4 {
			return "", errors.New("polygon ring has <4 points")
		}
		wkt, err := lineToWKT(ring, 4)
		if err != nil {
			return "", err
		}
		outRings = append(outRings, wkt)
	}
	return fmt.Sprintf("POLYGON(%s)", strings.Join(outRings, ", ")), nil
}

func multiPolygonToWKT(polys [][][][]float64) (string, error) {
	if len(polys) == 0 {
		return "", errors.New("empty multipolygon")
	}
	parts := make([]string, 0, len(polys))
	for _, poly := range polys {
		wkt, err := polygonToWKT(poly)
		if err != nil {
			return "", err
		}
		// strip "POLYGON" wrapper to embed into MULTIPOLYGON
		parts = append(parts, strings.TrimPrefix(wkt, "POLYGON"))
	}
	return fmt.Sprintf("MULTIPOLYGON(%s)", strings.Join(parts, ", ")), nil
}

func formatCoord(x float64) string {
	return strconv.FormatFloat(x, 'f', -1, 64)
}
