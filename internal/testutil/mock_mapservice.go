// Package testutil provides testing utilities for the arcquery client.
package testutil

import (
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"net/url"
	"strconv"
	"strings"
	"sync"
)

// MockMapService is a configurable mock ArcGIS Map Service for testing.
// It serves a single layer (layer 0) with synthetic point records.
type MockMapService struct {
	server *httptest.Server
	mu     sync.RWMutex

	// Layer configuration, mutable until the first request.
	TotalRecords       int
	MaxRecordCount     int
	SupportsPagination bool
	GeometryType       string
	Fields             []map[string]string

	// FailOffsets maps a resultOffset to the HTTP status returned for
	// that page instead of data.
	FailOffsets map[int]int

	// MetadataStatus / CountStatus override the status of the metadata
	// and count responses when non-zero.
	MetadataStatus int
	CountStatus    int

	// Tracking
	RequestCount  int
	QueryRequests []url.Values
}

// NewMockMapService creates a mock service with the given record count
// and per-request cap. Pagination is supported by default.
func NewMockMapService(totalRecords, maxRecordCount int) *MockMapService {
	mock := &MockMapService{
		TotalRecords:       totalRecords,
		MaxRecordCount:     maxRecordCount,
		SupportsPagination: true,
		GeometryType:       "esriGeometryPoint",
		Fields: []map[string]string{
			{"name": "OBJECTID", "type": "esriFieldTypeOID", "alias": "OBJECTID"},
			{"name": "NAME", "type": "esriFieldTypeString", "alias": "Name"},
		},
		FailOffsets: map[int]int{},
	}

	mock.server = httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		mock.mu.Lock()
		mock.RequestCount++
		mock.mu.Unlock()

		switch {
		case strings.HasSuffix(r.URL.Path, "/MapServer/0"):
			mock.metadataHandler(w, r)
		case strings.HasSuffix(r.URL.Path, "/MapServer/0/Query"):
			mock.queryHandler(w, r)
		default:
			http.NotFound(w, r)
		}
	}))

	return mock
}

// LayerURL returns the URL of the mock's single layer.
func (m *MockMapService) LayerURL() string {
	return m.server.URL + "/arcgis/rest/services/Test/MapServer/0"
}

// Close shuts down the mock server.
func (m *MockMapService) Close() {
	m.server.Close()
}

// GetRequestCount returns the number of requests made to the server.
func (m *MockMapService) GetRequestCount() int {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.RequestCount
}

// GetQueryRequests returns the recorded data-query parameter sets.
func (m *MockMapService) GetQueryRequests() []url.Values {
	m.mu.RLock()
	defer m.mu.RUnlock()
	out := make([]url.Values, len(m.QueryRequests))
	copy(out, m.QueryRequests)
	return out
}

// metadataHandler serves the layer resource JSON.
func (m *MockMapService) metadataHandler(w http.ResponseWriter, _ *http.Request) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	if m.MetadataStatus != 0 && m.MetadataStatus != http.StatusOK {
		w.WriteHeader(m.MetadataStatus)
		return
	}

	payload := map[string]any{
		"maxRecordCount": m.MaxRecordCount,
		"geometryType":   m.GeometryType,
		"fields":         m.Fields,
		"advancedQueryCapabilities": map[string]any{
			"supportsPagination": m.SupportsPagination,
		},
	}
	writeJSON(w, payload)
}

// queryHandler serves count queries and paged f=geojson data queries.
func (m *MockMapService) queryHandler(w http.ResponseWriter, r *http.Request) {
	params := r.URL.Query()

	if params.Get("returnCountOnly") == "true" {
		m.mu.RLock()
		status := m.CountStatus
		total := m.TotalRecords
		m.mu.RUnlock()

		if status != 0 && status != http.StatusOK {
			w.WriteHeader(status)
			return
		}
		writeJSON(w, map[string]any{"count": total})
		return
	}

	m.mu.Lock()
	m.QueryRequests = append(m.QueryRequests, params)
	m.mu.Unlock()

	m.mu.RLock()
	defer m.mu.RUnlock()

	offset := 0
	count := m.MaxRecordCount
	if m.SupportsPagination {
		if v := params.Get("resultOffset"); v != "" {
			offset, _ = strconv.Atoi(v)
		}
		if v := params.Get("resultRecordCount"); v != "" {
			count, _ = strconv.Atoi(v)
		}
	}
	if count > m.MaxRecordCount {
		count = m.MaxRecordCount
	}

	if status, fail := m.FailOffsets[offset]; fail {
		w.WriteHeader(status)
		fmt.Fprint(w, `{"error": "injected failure"}`)
		return
	}

	features := make([]map[string]any, 0, count)
	for i := offset; i < offset+count && i < m.TotalRecords; i++ {
		features = append(features, map[string]any{
			"type": "Feature",
			"id":   i,
			"geometry": map[string]any{
				"type":        "Point",
				"coordinates": []float64{-93.0 + float64(i)*0.001, 45.0},
			},
			"properties": map[string]any{
				"OBJECTID": i,
				"NAME":     fmt.Sprintf("record-%d", i),
			},
		})
	}

	writeJSON(w, map[string]any{
		"type":     "FeatureCollection",
		"features": features,
	})
}

func writeJSON(w http.ResponseWriter, payload any) {
	w.Header().Set("Content-Type", "application/json; charset=utf-8")
	w.WriteHeader(http.StatusOK)
	_ = json.NewEncoder(w).Encode(payload)
}
