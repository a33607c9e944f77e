// internal/fanout/group_test.go
package fanout

import (
	"testing"

	"weather-notify/internal/store"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestBucketKey(t *testing.T) {
	tests := []struct {
		name string
		lat  float64
		lon  float64
		want string
	}{
		{
			name: "bangalore coordinates round to two decimals",
			lat:  12.9716,
			lon:  77.5946,
			want: "12.97-77.59",
		},
		{
			name: "nearby coordinates share the bucket",
			lat:  12.9717,
			lon:  77.5947,
			want: "12.97-77.59",
		},
		{
			name: "negative coordinates keep sign",
			lat:  -33.8688,
			lon:  -70.6693,
			want: "-33.87--70.67",
		},
		{
			name: "zero pads to two decimals",
			lat:  0,
			lon:  0,
			want: "0.00-0.00",
		},
		{
			name: "just below zero normalizes negative zero",
			lat:  -0.004,
			lon:  -0.002,
			want: "0.00-0.00",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, BucketKey(tt.lat, tt.lon))
		})
	}
}

func TestBucketKeySharedAcrossEquator(t *testing.T) {
	// Two recipients within half a cell of the equator/meridian, one on each
	// side, fall into the same grid cell.
	recipients := []store.Recipient{
		{FID: 1, Latitude: 0.003, Longitude: 0.001},
		{FID: 2, Latitude: -0.003, Longitude: -0.001},
	}

	order, buckets := Group(recipients)

	require.Len(t, order, 1)
	assert.Equal(t, "0.00-0.00", order[0])
	assert.Len(t, buckets["0.00-0.00"], 2)
}

func TestGroupPartitionsWithoutLossOrDuplication(t *testing.T) {
	recipients := []store.Recipient{
		{FID: 1, Latitude: 12.9716, Longitude: 77.5946},
		{FID: 2, Latitude: 48.8566, Longitude: 2.3522},
		{FID: 3, Latitude: 12.9717, Longitude: 77.5947},
		{FID: 4, Latitude: 48.8567, Longitude: 2.3521},
		{FID: 5, Latitude: -33.8688, Longitude: 151.2093},
	}

	order, buckets := Group(recipients)

	require.Len(t, order, 3)
	assert.Equal(t, []string{"12.97-77.59", "48.86-2.35", "-33.87-151.21"}, order)

	total := 0
	seen := make(map[int64]bool)
	for _, key := range order {
		for _, r := range buckets[key] {
			assert.False(t, seen[r.FID], "recipient %d appears twice", r.FID)
			seen[r.FID] = true
			total++
		}
	}
	assert.Equal(t, len(recipients), total)

	// Within a bucket, input order is preserved.
	assert.Equal(t, int64(1), buckets["12.97-77.59"][0].FID)
	assert.Equal(t, int64(3), buckets["12.97-77.59"][1].FID)
}

func TestGroupIsDeterministic(t *testing.T) {
	recipients := []store.Recipient{
		{FID: 10, Latitude: 51.5074, Longitude: -0.1278},
		{FID: 11, Latitude: 40.7128, Longitude: -74.0060},
		{FID: 12, Latitude: 51.5075, Longitude: -0.1279},
	}

	orderA, bucketsA := Group(recipients)
	orderB, bucketsB := Group(recipients)

	assert.Equal(t, orderA, orderB)
	assert.Equal(t, bucketsA, bucketsB)
}

func TestGroupEmptyInput(t *testing.T) {
	order, buckets := Group(nil)
	assert.Empty(t, order)
	assert.Empty(t, buckets)
}
