// internal/store/redis.go
package store

import (
	"context"
	"encoding/json"
	"errors"
	"strconv"
	"strings"
	"time"

	commonerrors "weather-notify/internal/common/errors"
	"weather-notify/internal/common/logger"

	"github.com/redis/go-redis/v9"
)

// ErrNotFound is returned when no record exists for a user.
var ErrNotFound = errors.New("record not found")

// scanPageSize is the COUNT hint passed to the backend per scan page.
const scanPageSize = 100

// RedisStore is the Redis-backed token/location store.
type RedisStore struct {
	client *redis.Client
	logger logger.Logger
}

func NewRedisStore(client *redis.Client, log logger.Logger) *RedisStore {
	return &RedisStore{
		client: client,
		logger: log.WithFields(map[string]interface{}{"component": "store"}),
	}
}

// SaveLocation upserts the location record for a user.
func (s *RedisStore) SaveLocation(ctx context.Context, fid int64, rec LocationRecord) error {
	rec.UpdatedAt = time.Now().UTC()
	return s.setJSON(ctx, locationKey(fid), rec)
}

// GetLocation returns the location record for a user, or ErrNotFound.
func (s *RedisStore) GetLocation(ctx context.Context, fid int64) (LocationRecord, error) {
	var rec LocationRecord
	err := s.getJSON(ctx, locationKey(fid), &rec)
	return rec, err
}

// DeleteLocation removes the location record. Deleting an absent record is a no-op.
func (s *RedisStore) DeleteLocation(ctx context.Context, fid int64) error {
	if err := s.client.Del(ctx, locationKey(fid)).Err(); err != nil {
		return commonerrors.NewStoreUnavailableError("delete location", err)
	}
	return nil
}

// SaveToken upserts the push credentials for a user.
func (s *RedisStore) SaveToken(ctx context.Context, fid int64, rec NotificationRecord) error {
	rec.UpdatedAt = time.Now().UTC()
	return s.setJSON(ctx, notificationKey(fid), rec)
}

// GetToken returns the push credentials for a user, or ErrNotFound.
func (s *RedisStore) GetToken(ctx context.Context, fid int64) (NotificationRecord, error) {
	var rec NotificationRecord
	err := s.getJSON(ctx, notificationKey(fid), &rec)
	return rec, err
}

// DeleteToken removes the push credentials for a user. Idempotent: deleting
// an already-absent token is a no-op, not an error.
func (s *RedisStore) DeleteToken(ctx context.Context, fid int64) error {
	if err := s.client.Del(ctx, notificationKey(fid)).Err(); err != nil {
		return commonerrors.NewStoreUnavailableError("delete token", err)
	}
	return nil
}

// Scan returns one page of keys matching pattern, starting at cursor.
// Pass the zero Cursor to start; iterate until the returned cursor is Done.
func (s *RedisStore) Scan(ctx context.Context, pattern string, cursor Cursor) ([]string, Cursor, error) {
	keys, next, err := s.client.Scan(ctx, cursor.next, pattern, scanPageSize).Result()
	if err != nil {
		return nil, cursor, commonerrors.NewStoreUnavailableError("scan", err)
	}
	return keys, Cursor{next: next, started: true}, nil
}

// EligibleRecipients loads up to limit recipients that satisfy the fan-out
// eligibility invariant: latitude, longitude, token and endpoint all present.
// Incomplete records are skipped silently. A limit <= 0 means unbounded.
func (s *RedisStore) EligibleRecipients(ctx context.Context, limit int) ([]Recipient, error) {
	var recipients []Recipient
	var cursor Cursor

	for !cursor.Done() {
		keys, next, err := s.Scan(ctx, notificationKeyPrefix+"*", cursor)
		if err != nil {
			return nil, err
		}
		cursor = next

		for _, key := range keys {
			fid, ok := fidFromKey(key, notificationKeyPrefix)
			if !ok {
				continue
			}

			recipient, err := s.loadRecipient(ctx, fid)
			if err != nil {
				if errors.Is(err, ErrNotFound) {
					continue
				}
				return nil, err
			}
			if recipient == nil {
				// Incomplete record: fails the eligibility invariant.
				s.logger.Debug("skipping ineligible recipient", map[string]interface{}{"fid": fid})
				continue
			}

			recipients = append(recipients, *recipient)
			if limit > 0 && len(recipients) >= limit {
				return recipients, nil
			}
		}
	}

	return recipients, nil
}

// QueueMorning appends one item to the morning notification queue.
func (s *RedisStore) QueueMorning(ctx context.Context, item QueueItem) error {
	data, err := json.Marshal(item)
	if err != nil {
		return commonerrors.NewStoreUnavailableError("queue morning", err)
	}
	if err := s.client.RPush(ctx, morningQueueKey, data).Err(); err != nil {
		return commonerrors.NewStoreUnavailableError("queue morning", err)
	}
	return nil
}

// PeekQueued returns up to n queued items without removing them.
func (s *RedisStore) PeekQueued(ctx context.Context, n int) ([]QueueItem, error) {
	raw, err := s.client.LRange(ctx, morningQueueKey, 0, int64(n)-1).Result()
	if err != nil {
		return nil, commonerrors.NewStoreUnavailableError("peek queued", err)
	}

	items := make([]QueueItem, 0, len(raw))
	for _, entry := range raw {
		var item QueueItem
		if err := json.Unmarshal([]byte(entry), &item); err != nil {
			s.logger.Warn("dropping malformed queue entry", map[string]interface{}{"entry": entry})
			continue
		}
		items = append(items, item)
	}
	return items, nil
}

// TrimQueued removes the first n items from the morning queue.
func (s *RedisStore) TrimQueued(ctx context.Context, n int) error {
	if err := s.client.LTrim(ctx, morningQueueKey, int64(n), -1).Err(); err != nil {
		return commonerrors.NewStoreUnavailableError("trim queued", err)
	}
	return nil
}

// loadRecipient joins the notification and location records for one user.
// Returns (nil, nil) when the records exist but fail the eligibility invariant.
func (s *RedisStore) loadRecipient(ctx context.Context, fid int64) (*Recipient, error) {
	notif, err := s.GetToken(ctx, fid)
	if err != nil {
		return nil, err
	}
	if notif.Token == "" || notif.URL == "" {
		return nil, nil
	}

	loc, err := s.GetLocation(ctx, fid)
	if err != nil {
		if errors.Is(err, ErrNotFound) {
			return nil, nil
		}
		return nil, err
	}
	if loc.Latitude == nil || loc.Longitude == nil {
		return nil, nil
	}

	return &Recipient{
		FID:       fid,
		Latitude:  *loc.Latitude,
		Longitude: *loc.Longitude,
		Label:     loc.Label,
		Token:     notif.Token,
		URL:       notif.URL,
	}, nil
}

func (s *RedisStore) setJSON(ctx context.Context, key string, value interface{}) error {
	data, err := json.Marshal(value)
	if err != nil {
		return commonerrors.NewStoreUnavailableError("set "+key, err)
	}
	if err := s.client.Set(ctx, key, data, 0).Err(); err != nil {
		return commonerrors.NewStoreUnavailableError("set "+key, err)
	}
	return nil
}

func (s *RedisStore) getJSON(ctx context.Context, key string, out interface{}) error {
	data, err := s.client.Get(ctx, key).Result()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return ErrNotFound
		}
		return commonerrors.NewStoreUnavailableError("get "+key, err)
	}
	if err := json.Unmarshal([]byte(data), out); err != nil {
		return commonerrors.NewStoreUnavailableError("get "+key, err)
	}
	return nil
}

func fidFromKey(key, prefix string) (int64, bool) {
	raw := strings.TrimPrefix(key, prefix)
	fid, err := strconv.ParseInt(raw, 10, 64)
	if err != nil {
		return 0, false
	}
	return fid, true
}
