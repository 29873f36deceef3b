package integration

import (
	"context"
	"encoding/csv"
	"encoding/json"
	"errors"
	"os"
	"path/filepath"
	"testing"

	"github.com/mapflow/arcquery/internal/testutil"
	"github.com/mapflow/arcquery/pkg/arcgis"
	"github.com/mapflow/arcquery/pkg/client"
	"github.com/mapflow/arcquery/pkg/pagination"
)

func newClient(t *testing.T, mode pagination.Mode) *client.Client {
	t.Helper()

	cfg := client.DefaultConfig()
	cfg.Dispatch.Mode = mode

	c, err := client.New(cfg)
	if err != nil {
		t.Fatalf("Failed to create client: %v", err)
	}
	return c
}

// TestFullFetchFlow exercises the complete flow: layer validation,
// descriptor fetch, partition planning, paged queries and aggregation.
func TestFullFetchFlow(t *testing.T) {
	mock := testutil.NewMockMapService(250, 100)
	defer mock.Close()

	c := newClient(t, pagination.Sequential)
	ctx := context.Background()

	layer, err := c.OpenLayer(ctx, mock.LayerURL(), arcgis.DefaultSpec())
	if err != nil {
		t.Fatalf("OpenLayer failed: %v", err)
	}

	desc := layer.Descriptor()
	if desc.TotalRecords != 250 {
		t.Errorf("TotalRecords = %d, want 250", desc.TotalRecords)
	}
	if desc.MaxRecordCount != 100 {
		t.Errorf("MaxRecordCount = %d, want 100", desc.MaxRecordCount)
	}

	ds, err := layer.Fetch(ctx)
	if err != nil {
		t.Fatalf("Fetch failed: %v", err)
	}

	if ds.Len() != 250 {
		t.Errorf("Len() = %d, want 250", ds.Len())
	}

	// metadata + count + 3 pages
	if got := mock.GetRequestCount(); got != 5 {
		t.Errorf("Service requests = %d, want 5", got)
	}

	// records arrive in partition order regardless of page boundaries
	for i, rec := range ds.Records() {
		if id := rec["OBJECTID"]; id != float64(i) {
			t.Fatalf("Record %d has OBJECTID %v, want %d", i, id, i)
		}
	}
}

// TestDispatchModesAgree verifies sequential and concurrent dispatch
// assemble identical datasets.
func TestDispatchModesAgree(t *testing.T) {
	mock := testutil.NewMockMapService(250, 100)
	defer mock.Close()

	ctx := context.Background()

	fetch := func(mode pagination.Mode) []map[string]any {
		c := newClient(t, mode)
		layer, err := c.OpenLayer(ctx, mock.LayerURL(), arcgis.DefaultSpec())
		if err != nil {
			t.Fatalf("OpenLayer failed: %v", err)
		}
		ds, err := layer.Fetch(ctx)
		if err != nil {
			t.Fatalf("Fetch failed: %v", err)
		}
		return ds.Records()
	}

	sequential := fetch(pagination.Sequential)
	concurrent := fetch(pagination.Concurrent)

	if len(sequential) != len(concurrent) {
		t.Fatalf("Record counts differ: sequential %d, concurrent %d", len(sequential), len(concurrent))
	}
	for i := range sequential {
		if sequential[i]["OBJECTID"] != concurrent[i]["OBJECTID"] {
			t.Fatalf("Record %d differs: sequential %v, concurrent %v",
				i, sequential[i]["OBJECTID"], concurrent[i]["OBJECTID"])
		}
	}
}

// TestPartitionFailureFailsFetch verifies a single failing partition
// fails the whole fetch with no partial dataset.
func TestPartitionFailureFailsFetch(t *testing.T) {
	mock := testutil.NewMockMapService(250, 100)
	mock.FailOffsets = map[int]int{100: 500}
	defer mock.Close()

	for _, mode := range []pagination.Mode{pagination.Sequential, pagination.Concurrent} {
		c := newClient(t, mode)
		layer, err := c.OpenLayer(context.Background(), mock.LayerURL(), arcgis.DefaultSpec())
		if err != nil {
			t.Fatalf("OpenLayer failed: %v", err)
		}

		ds, err := layer.Fetch(context.Background())
		if err == nil {
			t.Fatalf("Fetch with mode %v succeeded, want failure", mode)
		}
		if ds != nil {
			t.Errorf("Fetch with mode %v returned a partial dataset", mode)
		}

		var fetchErr *pagination.FetchError
		if !errors.As(err, &fetchErr) {
			t.Fatalf("Fetch error = %v, want *pagination.FetchError", err)
		}
		if fetchErr.Partition != 1 {
			t.Errorf("FetchError.Partition = %d, want 1", fetchErr.Partition)
		}
	}
}

// TestExportsEndToEnd fetches and writes all three export formats.
func TestExportsEndToEnd(t *testing.T) {
	mock := testutil.NewMockMapService(250, 100)
	defer mock.Close()

	c := newClient(t, pagination.Concurrent)
	ctx := context.Background()

	layer, err := c.OpenLayer(ctx, mock.LayerURL(), arcgis.DefaultSpec())
	if err != nil {
		t.Fatalf("OpenLayer failed: %v", err)
	}
	ds, err := layer.Fetch(ctx)
	if err != nil {
		t.Fatalf("Fetch failed: %v", err)
	}

	dir := t.TempDir()

	geojsonPath := filepath.Join(dir, "out.geojson")
	if err := ds.WriteGeoJSON(geojsonPath); err != nil {
		t.Fatalf("WriteGeoJSON failed: %v", err)
	}
	data, err := os.ReadFile(geojsonPath)
	if err != nil {
		t.Fatalf("Reading geojson: %v", err)
	}
	var doc struct {
		Type     string            `json:"type"`
		Features []json.RawMessage `json:"features"`
	}
	if err := json.Unmarshal(data, &doc); err != nil {
		t.Fatalf("Decoding geojson: %v", err)
	}
	if doc.Type != "FeatureCollection" || len(doc.Features) != 250 {
		t.Errorf("GeoJSON = %s with %d features, want FeatureCollection with 250",
			doc.Type, len(doc.Features))
	}

	csvPath := filepath.Join(dir, "out.csv")
	if err := ds.WriteCSV(csvPath); err != nil {
		t.Fatalf("WriteCSV failed: %v", err)
	}
	f, err := os.Open(csvPath)
	if err != nil {
		t.Fatalf("Opening csv: %v", err)
	}
	defer f.Close()
	rows, err := csv.NewReader(f).ReadAll()
	if err != nil {
		t.Fatalf("Reading csv: %v", err)
	}
	if len(rows) != 251 {
		t.Errorf("CSV rows = %d, want 251 (header + 250)", len(rows))
	}

	schemaPath := filepath.Join(dir, "schema.json")
	if err := ds.WriteSchema(schemaPath); err != nil {
		t.Fatalf("WriteSchema failed: %v", err)
	}
	schemaData, err := os.ReadFile(schemaPath)
	if err != nil {
		t.Fatalf("Reading schema: %v", err)
	}
	var fields []arcgis.Field
	if err := json.Unmarshal(schemaData, &fields); err != nil {
		t.Fatalf("Decoding schema: %v", err)
	}
	if len(fields) != len(ds.Schema()) {
		t.Errorf("Schema fields = %d, want %d", len(fields), len(ds.Schema()))
	}
}

// TestPaginationUnsupported verifies a single unpaged request when the
// service reports no pagination support.
func TestPaginationUnsupported(t *testing.T) {
	mock := testutil.NewMockMapService(250, 100)
	mock.SupportsPagination = false
	defer mock.Close()

	c := newClient(t, pagination.Sequential)
	ctx := context.Background()

	layer, err := c.OpenLayer(ctx, mock.LayerURL(), arcgis.DefaultSpec())
	if err != nil {
		t.Fatalf("OpenLayer failed: %v", err)
	}
	ds, err := layer.Fetch(ctx)
	if err != nil {
		t.Fatalf("Fetch failed: %v", err)
	}

	// only what one request can carry
	if ds.Len() != 100 {
		t.Errorf("Len() = %d, want 100", ds.Len())
	}
	// metadata + count + one query
	if got := mock.GetRequestCount(); got != 3 {
		t.Errorf("Service requests = %d, want 3", got)
	}
}
