// internal/fanout/models.go
package fanout

import (
	"fmt"

	"weather-notify/internal/store"
)

// Batch is one provider-sized chunk of a location group's recipients.
// Ephemeral: constructed and consumed within one orchestration run.
type Batch struct {
	GroupKey   string
	Seq        int
	Recipients []store.Recipient
}

// Key identifies a batch within a run: the group key plus the batch's
// position within the group.
func (b Batch) Key() string {
	return fmt.Sprintf("%s#%d", b.GroupKey, b.Seq)
}

// Message is the composed notification content for one batch.
type Message struct {
	Title     string `json:"title"`
	Body      string `json:"body"`
	TargetURL string `json:"targetUrl"`
}

// Result records the outcome of dispatching one batch.
type Result struct {
	BatchKey          string  `json:"batchKey"`
	Success           bool    `json:"success"`
	RecipientCount    int     `json:"recipientCount"`
	ProviderRequestID string  `json:"providerRequestId,omitempty"`
	Error             string  `json:"error,omitempty"`
	InvalidatedFIDs   []int64 `json:"invalidatedFids,omitempty"`
}

// Report is the aggregate outcome of one fan-out run. It is returned even when
// some batches failed, so callers can distinguish "ran with partial failures"
// from "did not run".
type Report struct {
	RunID           string   `json:"runId"`
	GroupsProcessed int      `json:"groupsProcessed"`
	TotalBatches    int      `json:"totalBatches"`
	Results         []Result `json:"results"`
}
