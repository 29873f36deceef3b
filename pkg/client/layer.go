package client

import (
	"context"
	"net/url"
	"strconv"

	"github.com/rs/zerolog"

	"github.com/mapflow/arcquery/pkg/arcgis"
	"github.com/mapflow/arcquery/pkg/dataset"
	"github.com/mapflow/arcquery/pkg/pagination"
)

// Layer is a session against one Map Service layer, bound to a single
// immutable query specification. The descriptor is fetched once when the
// session opens; the partition plan is derived from it and never changes.
// A different QuerySpec requires a new session.
type Layer struct {
	client   *Client
	url      string
	queryURL string
	spec     arcgis.QuerySpec
	desc     *arcgis.Descriptor
	logger   zerolog.Logger
}

// OpenLayer validates the layer URL, fetches the service descriptor, and
// returns a session bound to spec. Descriptor fetch or parse failures are
// reported as a DescriptorError and nothing further is attempted.
func (c *Client) OpenLayer(ctx context.Context, rawURL string, spec arcgis.QuerySpec) (*Layer, error) {
	layerURL, err := arcgis.ValidateLayerURL(rawURL)
	if err != nil {
		return nil, &DescriptorError{URL: rawURL, Err: err}
	}
	queryURL := layerURL + arcgis.QueryPath

	metadataBody, err := c.get(ctx, kindMetadata, layerURL, url.Values{"f": {"json"}})
	if err != nil {
		return nil, &DescriptorError{URL: layerURL, Err: err}
	}

	countBody, err := c.get(ctx, kindCount, queryURL, url.Values{
		"returnCountOnly": {"true"},
		"where":           {arcgis.DefaultWhere},
		"f":               {"json"},
	})
	if err != nil {
		return nil, &DescriptorError{URL: layerURL, Err: err}
	}

	desc, err := arcgis.ParseDescriptor(metadataBody, countBody)
	if err != nil {
		errorsTotal.WithLabelValues(string(ErrorClassParse)).Inc()
		return nil, &DescriptorError{URL: layerURL, Err: err}
	}

	logger := c.logger.With().Str("layer", layerURL).Logger()
	logger.Info().
		Int("total_records", desc.TotalRecords).
		Int("max_record_count", desc.MaxRecordCount).
		Bool("pagination", desc.SupportsPagination).
		Str("geometry_type", string(desc.GeometryType)).
		Msg("Layer opened")

	return &Layer{
		client:   c,
		url:      layerURL,
		queryURL: queryURL,
		spec:     spec,
		desc:     desc,
		logger:   logger,
	}, nil
}

// URL returns the validated layer URL.
func (l *Layer) URL() string {
	return l.url
}

// Descriptor returns the layer's service descriptor.
func (l *Layer) Descriptor() *arcgis.Descriptor {
	return l.desc
}

// Spec returns the bound query specification.
func (l *Layer) Spec() arcgis.QuerySpec {
	return l.spec
}

// FetchPartition performs one data-fetch request for a partition. The
// partition's offset/count are overlaid onto the spec parameters and
// always win; they are omitted entirely when the service does not support
// pagination. Implements pagination.PartitionFetcher.
func (l *Layer) FetchPartition(ctx context.Context, part pagination.Partition) (*arcgis.FeatureCollection, error) {
	params := l.spec.Params()
	if l.desc.SupportsPagination {
		params.Set("resultOffset", strconv.Itoa(part.Offset))
		params.Set("resultRecordCount", strconv.Itoa(part.Count))
	}
	params.Set("f", "geojson")

	body, err := l.client.get(ctx, kindQuery, l.queryURL, params)
	if err != nil {
		return nil, err
	}

	fc, err := arcgis.ParseFeatureCollection(body)
	if err != nil {
		errorsTotal.WithLabelValues(string(ErrorClassParse)).Inc()
		return nil, &ServiceError{
			Class:   ErrorClassParse,
			URL:     l.queryURL,
			Message: "invalid query response",
			Err:     err,
		}
	}
	return fc, nil
}

// Fetch retrieves the complete dataset: it plans the partitions, runs
// them through the configured dispatch strategy, and aggregates the
// partial results in partition-index order. Either the full dataset is
// returned or an error; a partial dataset is never exposed.
func (l *Layer) Fetch(ctx context.Context) (*dataset.Dataset, error) {
	partitions := pagination.Plan(l.desc.TotalRecords, l.desc.MaxRecordCount, l.desc.SupportsPagination)

	dispatcher := pagination.NewDispatcher(l, l.client.config.Dispatch)
	collections, err := dispatcher.FetchAll(ctx, partitions)
	if err != nil {
		return nil, err
	}

	ds := dataset.Aggregate(l.desc, collections, dataset.Options{
		CRS:    l.spec.OutSR,
		Dedupe: l.client.config.Dedupe,
	})

	l.logger.Info().
		Int("partitions", len(partitions)).
		Int("records", ds.Len()).
		Msg("Dataset assembled")

	return ds, nil
}
