package pagination

import (
	"context"
	"fmt"
	"time"

	"github.com/rs/zerolog/log"
	"golang.org/x/sync/errgroup"

	"github.com/mapflow/arcquery/pkg/arcgis"
)

// Mode selects the dispatch strategy.
type Mode string

const (
	// Sequential executes partitions strictly in order on the calling
	// goroutine and aborts on the first failure.
	Sequential Mode = "sequential"

	// Concurrent executes partitions on a bounded worker pool. Every
	// partition is attempted; if any fail, the failure with the lowest
	// partition index is reported.
	Concurrent Mode = "concurrent"
)

// Config holds dispatcher configuration.
type Config struct {
	// Mode is the dispatch strategy.
	Mode Mode

	// MaxConcurrency is the worker pool size for the Concurrent mode.
	MaxConcurrency int

	// Timeout bounds each partition fetch.
	Timeout time.Duration
}

// DefaultConfig returns a safe default configuration: concurrent dispatch
// with 10 workers and a 30s per-partition timeout.
func DefaultConfig() Config {
	return Config{
		Mode:           Concurrent,
		MaxConcurrency: 10,
		Timeout:        30 * time.Second,
	}
}

// PartitionFetcher executes the data query for a single partition.
type PartitionFetcher interface {
	// FetchPartition performs one data-fetch request covering part and
	// returns the parsed partial result.
	FetchPartition(ctx context.Context, part Partition) (*arcgis.FeatureCollection, error)
}

// FetchError reports the failure of a single partition's fetch. On any
// FetchError the overall operation has failed and no results are exposed.
type FetchError struct {
	Partition int
	Err       error
}

// Error implements the error interface.
func (e *FetchError) Error() string {
	return fmt.Sprintf("partition %d fetch failed: %v", e.Partition, e.Err)
}

// Unwrap implements error unwrapping for errors.Is/As.
func (e *FetchError) Unwrap() error {
	return e.Err
}

// Dispatcher runs partition fetches according to its configured mode.
type Dispatcher struct {
	fetcher PartitionFetcher
	config  Config
}

// NewDispatcher creates a dispatcher. Zero config values fall back to the
// defaults.
func NewDispatcher(fetcher PartitionFetcher, config Config) *Dispatcher {
	if config.Mode == "" {
		config.Mode = Concurrent
	}
	if config.MaxConcurrency <= 0 {
		config.MaxConcurrency = 10
	}
	if config.Timeout <= 0 {
		config.Timeout = 30 * time.Second
	}

	return &Dispatcher{
		fetcher: fetcher,
		config:  config,
	}
}

// FetchAll fetches every partition and returns the partial results slot
// by partition index. Partitions must be a plan produced by Plan, i.e.
// partitions[i].Index == i. On any partition failure FetchAll returns a
// nil slice and the FetchError with the lowest partition index; results
// from partitions that succeeded are discarded.
func (d *Dispatcher) FetchAll(ctx context.Context, partitions []Partition) ([]*arcgis.FeatureCollection, error) {
	if len(partitions) == 0 {
		return nil, nil
	}

	start := time.Now()
	log.Info().
		Str("mode", string(d.config.Mode)).
		Int("partitions", len(partitions)).
		Msg("Starting partition fetch")

	var (
		results []*arcgis.FeatureCollection
		err     error
	)
	if d.config.Mode == Sequential {
		results, err = d.fetchSequential(ctx, partitions)
	} else {
		results, err = d.fetchConcurrent(ctx, partitions)
	}
	if err != nil {
		return nil, err
	}

	records := 0
	for _, fc := range results {
		records += len(fc.Features)
	}
	log.Info().
		Int("partitions", len(partitions)).
		Int("records", records).
		Dur("duration", time.Since(start)).
		Msg("Partition fetch complete")

	return results, nil
}

// fetchSequential executes partitions in order, aborting on the first
// failure.
func (d *Dispatcher) fetchSequential(ctx context.Context, partitions []Partition) ([]*arcgis.FeatureCollection, error) {
	results := make([]*arcgis.FeatureCollection, len(partitions))
	for _, part := range partitions {
		fc, err := d.fetchOne(ctx, part)
		if err != nil {
			return nil, &FetchError{Partition: part.Index, Err: err}
		}
		results[part.Index] = fc
	}
	return results, nil
}

// fetchConcurrent executes all partitions on a bounded worker pool. Each
// worker writes exactly one slot (its own partition index), so the result
// slices need no locking. The pool is not cancelled on failure: every
// partition is attempted, then failures are reported by lowest index.
func (d *Dispatcher) fetchConcurrent(ctx context.Context, partitions []Partition) ([]*arcgis.FeatureCollection, error) {
	results := make([]*arcgis.FeatureCollection, len(partitions))
	failures := make([]error, len(partitions))

	var group errgroup.Group
	group.SetLimit(d.config.MaxConcurrency)

	for _, part := range partitions {
		part := part
		group.Go(func() error {
			fc, err := d.fetchOne(ctx, part)
			if err != nil {
				log.Warn().
					Err(err).
					Int("partition", part.Index).
					Msg("Partition fetch failed")
				failures[part.Index] = err
				return nil
			}
			results[part.Index] = fc
			return nil
		})
	}
	_ = group.Wait()

	for index, err := range failures {
		if err != nil {
			return nil, &FetchError{Partition: index, Err: err}
		}
	}
	return results, nil
}

// fetchOne performs a single partition fetch under the configured timeout.
func (d *Dispatcher) fetchOne(ctx context.Context, part Partition) (*arcgis.FeatureCollection, error) {
	fetchCtx, cancel := context.WithTimeout(ctx, d.config.Timeout)
	defer cancel()

	fc, err := d.fetcher.FetchPartition(fetchCtx, part)
	if err != nil {
		return nil, err
	}

	log.Debug().
		Int("partition", part.Index).
		Int("offset", part.Offset).
		Int("requested", part.Count).
		Int("returned", len(fc.Features)).
		Msg("Partition fetched")

	return fc, nil
}
