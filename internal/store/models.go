// internal/store/models.go
package store

import (
	"fmt"
	"time"
)

// Key conventions shared with the registration/webhook collaborators.
const (
	locationKeyPrefix     = "location:"
	notificationKeyPrefix = "notification:"
	morningQueueKey       = "morning_queue"
)

// LocationRecord is the stored location for one user.
type LocationRecord struct {
	Latitude  *float64  `json:"lat"`
	Longitude *float64  `json:"lon"`
	Label     string    `json:"label"`
	UpdatedAt time.Time `json:"updatedAt"`
}

// NotificationRecord holds the push credentials for one user.
type NotificationRecord struct {
	Token     string    `json:"token"`
	URL       string    `json:"url"`
	UpdatedAt time.Time `json:"updatedAt"`
}

// Recipient joins a user's location and push credentials. A recipient
// participates in fan-out only if all four of latitude, longitude, token and
// endpoint are present.
type Recipient struct {
	FID       int64
	Latitude  float64
	Longitude float64
	Label     string
	Token     string
	URL       string
}

// QueueItem is one entry in the morning notification queue.
type QueueItem struct {
	FID       int64    `json:"fid"`
	Latitude  *float64 `json:"lat"`
	Longitude *float64 `json:"lon"`
	Label     string   `json:"label"`
}

// Cursor is the store's pagination token. The zero value starts a scan;
// Done reports completion. The backend's raw cursor representation never
// leaks to callers.
type Cursor struct {
	next    uint64
	started bool
}

// Done reports whether the scan has been exhausted.
func (c Cursor) Done() bool {
	return c.started && c.next == 0
}

func locationKey(fid int64) string {
	return fmt.Sprintf("%s%d", locationKeyPrefix, fid)
}

func notificationKey(fid int64) string {
	return fmt.Sprintf("%s%d", notificationKeyPrefix, fid)
}
