// Package pagination plans and dispatches the partitioned fetches that
// assemble a complete layer dataset.
//
// Map Services cap every query response at the layer's maxRecordCount, so
// a full retrieval is split into offset/count partitions that tile the
// record range exactly. Partitions are fetched either strictly in order or
// across a bounded worker pool; either way each result lands in the slot
// of its partition index, so the assembled output is deterministic no
// matter in which order fetches complete.
//
// Example usage:
//
//	partitions := pagination.Plan(desc.TotalRecords, desc.MaxRecordCount, desc.SupportsPagination)
//	dispatcher := pagination.NewDispatcher(fetcher, pagination.DefaultConfig())
//	collections, err := dispatcher.FetchAll(ctx, partitions)
//
// A failed partition fails the whole operation: FetchAll never returns a
// partial result set. Under the concurrent mode every partition is still
// attempted, and the failure with the lowest partition index is the one
// reported.
package pagination
