package pagination

// Partition is one contiguous sub-range of record indices, fetched in a
// single query. It covers the half-open range [Offset, Offset+Count).
type Partition struct {
	// Index is the partition's position in the plan; results are
	// reassembled by this index.
	Index int

	// Offset is the record index the partition starts at.
	Offset int

	// Count is the number of records requested for the partition.
	Count int
}

// Plan computes the ordered partitions needed to cover a layer's full
// result set.
//
// When the service does not support pagination a single partition spanning
// [0, maxRecordCount) is planned; the server truncates internally and the
// fetch may return fewer than totalRecords records. Otherwise the
// partitions tile [0, totalRecords) exactly: all partitions carry
// maxRecordCount records except possibly the last, which carries the
// remainder. A totalRecords of zero yields no partitions at all.
func Plan(totalRecords, maxRecordCount int, paginated bool) []Partition {
	if maxRecordCount < 1 {
		// Descriptor validation rejects this earlier; treat it as an
		// empty plan rather than looping forever.
		return nil
	}

	if !paginated {
		return []Partition{{Index: 0, Offset: 0, Count: maxRecordCount}}
	}

	if totalRecords <= 0 {
		return nil
	}

	count := (totalRecords + maxRecordCount - 1) / maxRecordCount
	partitions := make([]Partition, 0, count)
	for i := 0; i < count; i++ {
		offset := i * maxRecordCount
		size := maxRecordCount
		if remaining := totalRecords - offset; remaining < size {
			size = remaining
		}
		partitions = append(partitions, Partition{Index: i, Offset: offset, Count: size})
	}
	return partitions
}
