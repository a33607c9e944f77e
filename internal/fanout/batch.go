// internal/fanout/batch.go
package fanout

import (
	"weather-notify/internal/store"
)

// DefaultBatchLimit is the push provider's maximum tokens per call.
const DefaultBatchLimit = 100

// SplitBatches slices a group's recipients into contiguous chunks of at most
// limit elements, preserving order. An empty recipient list yields zero
// batches. A limit <= 0 falls back to DefaultBatchLimit.
func SplitBatches(groupKey string, recipients []store.Recipient, limit int) []Batch {
	if len(recipients) == 0 {
		return nil
	}
	if limit <= 0 {
		limit = DefaultBatchLimit
	}

	batches := make([]Batch, 0, (len(recipients)+limit-1)/limit)
	for start := 0; start < len(recipients); start += limit {
		end := start + limit
		if end > len(recipients) {
			end = len(recipients)
		}
		batches = append(batches, Batch{
			GroupKey:   groupKey,
			Seq:        len(batches),
			Recipients: recipients[start:end],
		})
	}

	return batches
}
