// internal/fanout/group.go
package fanout

import (
	"fmt"
	"math"

	"weather-notify/internal/store"
)

// BucketKey derives the coarse location bucket for a coordinate pair by
// rounding each axis to two decimal degrees (~1.1 km latitude resolution).
// Two recipients share a bucket iff their rounded coordinates are equal.
func BucketKey(lat, lon float64) string {
	return fmt.Sprintf("%.2f-%.2f", roundCoord(lat), roundCoord(lon))
}

// roundCoord rounds to two decimals and normalizes negative zero, so
// coordinates within half a cell on either side of the equator or prime
// meridian land in the same bucket.
func roundCoord(v float64) float64 {
	return math.Round(v*100)/100 + 0
}

// Group partitions recipients into coarse location buckets. The returned key
// slice preserves first-encounter order and each bucket preserves input order,
// so identical input always yields identical groups. Recipients with identical
// rounded coordinates but different raw coordinates share a bucket and hence
// one weather snapshot, fetched from the first recipient encountered.
func Group(recipients []store.Recipient) ([]string, map[string][]store.Recipient) {
	var order []string
	buckets := make(map[string][]store.Recipient)

	for _, r := range recipients {
		key := BucketKey(r.Latitude, r.Longitude)
		if _, seen := buckets[key]; !seen {
			order = append(order, key)
		}
		buckets[key] = append(buckets[key], r)
	}

	return order, buckets
}
