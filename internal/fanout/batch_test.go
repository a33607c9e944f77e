// internal/fanout/batch_test.go
package fanout

import (
	"fmt"
	"testing"

	"weather-notify/internal/store"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func makeRecipients(n int) []store.Recipient {
	recipients := make([]store.Recipient, n)
	for i := range recipients {
		recipients[i] = store.Recipient{
			FID:   int64(i + 1),
			Token: fmt.Sprintf("token-%d", i+1),
		}
	}
	return recipients
}

func TestSplitBatches(t *testing.T) {
	tests := []struct {
		name      string
		count     int
		limit     int
		wantSizes []int
	}{
		{
			name:      "under the limit yields one batch",
			count:     42,
			limit:     100,
			wantSizes: []int{42},
		},
		{
			name:      "exactly the limit yields one full batch",
			count:     100,
			limit:     100,
			wantSizes: []int{100},
		},
		{
			name:      "one over the limit spills into a second batch",
			count:     101,
			limit:     100,
			wantSizes: []int{100, 1},
		},
		{
			name:      "150 recipients split 100 plus 50",
			count:     150,
			limit:     100,
			wantSizes: []int{100, 50},
		},
		{
			name:      "zero limit falls back to the default",
			count:     250,
			limit:     0,
			wantSizes: []int{100, 100, 50},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			batches := SplitBatches("12.97-77.59", makeRecipients(tt.count), tt.limit)

			require.Len(t, batches, len(tt.wantSizes))

			total := 0
			for i, b := range batches {
				assert.Equal(t, tt.wantSizes[i], len(b.Recipients))
				assert.Equal(t, "12.97-77.59", b.GroupKey)
				assert.Equal(t, i, b.Seq)
				total += len(b.Recipients)
			}
			assert.Equal(t, tt.count, total)

			// Order is preserved across the split.
			assert.Equal(t, int64(1), batches[0].Recipients[0].FID)
			last := batches[len(batches)-1].Recipients
			assert.Equal(t, int64(tt.count), last[len(last)-1].FID)
		})
	}
}

func TestSplitBatchesEmptyGroup(t *testing.T) {
	assert.Empty(t, SplitBatches("0.00-0.00", nil, 100))
}

func TestBatchKeyDistinguishesSequence(t *testing.T) {
	batches := SplitBatches("48.86-2.35", makeRecipients(150), 100)

	require.Len(t, batches, 2)
	assert.Equal(t, "48.86-2.35#0", batches[0].Key())
	assert.Equal(t, "48.86-2.35#1", batches[1].Key())
}
