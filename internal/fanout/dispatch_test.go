// internal/fanout/dispatch_test.go
package fanout

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"weather-notify/internal/common/logger"
	"weather-notify/internal/store"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/time/rate"
)

type fakeTokenRemover struct {
	deleted []int64
	failFor map[int64]error
}

func (f *fakeTokenRemover) DeleteToken(ctx context.Context, fid int64) error {
	if err, ok := f.failFor[fid]; ok {
		return err
	}
	f.deleted = append(f.deleted, fid)
	return nil
}

func batchWithURL(url string, recipients ...store.Recipient) Batch {
	for i := range recipients {
		recipients[i].URL = url
	}
	return Batch{GroupKey: "12.97-77.59", Recipients: recipients}
}

func newTestDispatcher(remover TokenRemover) *Dispatcher {
	return NewDispatcher(
		&http.Client{Timeout: 5 * time.Second},
		rate.NewLimiter(rate.Inf, 1),
		remover,
		logger.NewNoOpLogger(),
	)
}

func TestDailyNotificationID(t *testing.T) {
	day := time.Date(2026, 3, 14, 9, 30, 0, 0, time.UTC)

	id := DailyNotificationID(day, "12.97-77.59")
	assert.Equal(t, "morning-2026-03-14-12.97-77.59", id)

	// Same calendar day, different wall-clock time: same id.
	later := time.Date(2026, 3, 14, 23, 59, 0, 0, time.UTC)
	assert.Equal(t, id, DailyNotificationID(later, "12.97-77.59"))

	// Different group on the same day: different id.
	assert.NotEqual(t, id, DailyNotificationID(day, "48.86-2.35"))
}

func TestDispatchSuccess(t *testing.T) {
	var received pushPayload
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		require.NoError(t, json.NewDecoder(r.Body).Decode(&received))
		assert.Equal(t, "application/json", r.Header.Get("Content-Type"))
		json.NewEncoder(w).Encode(pushResponse{RequestID: "req-42"})
	}))
	defer srv.Close()

	remover := &fakeTokenRemover{}
	d := newTestDispatcher(remover)

	batch := batchWithURL(srv.URL,
		store.Recipient{FID: 1, Token: "tok-1"},
		store.Recipient{FID: 2, Token: "tok-2"},
	)
	msg := Message{Title: "☀️ 20°C", Body: "Clear. Good morning!", TargetURL: "https://example.com/?context=notification"}

	result := d.Dispatch(context.Background(), batch, msg, "morning-2026-03-14-12.97-77.59")

	assert.True(t, result.Success)
	assert.Equal(t, "req-42", result.ProviderRequestID)
	assert.Equal(t, 2, result.RecipientCount)
	assert.Empty(t, result.InvalidatedFIDs)
	assert.Empty(t, remover.deleted)

	assert.Equal(t, "morning-2026-03-14-12.97-77.59", received.NotificationID)
	assert.Equal(t, []string{"tok-1", "tok-2"}, received.Tokens)
	assert.Equal(t, msg.Title, received.Title)
	assert.Equal(t, msg.Body, received.Body)
	assert.Equal(t, msg.TargetURL, received.TargetURL)
}

func TestDispatchReconcilesInvalidTokens(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		json.NewEncoder(w).Encode(pushResponse{InvalidTokens: []string{"tok-2", "tok-3"}})
	}))
	defer srv.Close()

	remover := &fakeTokenRemover{}
	d := newTestDispatcher(remover)

	batch := batchWithURL(srv.URL,
		store.Recipient{FID: 1, Token: "tok-1"},
		store.Recipient{FID: 2, Token: "tok-2"},
		store.Recipient{FID: 3, Token: "tok-3"},
	)

	result := d.Dispatch(context.Background(), batch, Message{}, "morning-2026-03-14-12.97-77.59")

	assert.True(t, result.Success)
	assert.Equal(t, []int64{2, 3}, result.InvalidatedFIDs)
	assert.Equal(t, []int64{2, 3}, remover.deleted)
}

func TestDispatchRateLimitedTokensAreNotDeleted(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		json.NewEncoder(w).Encode(pushResponse{RateLimitedTokens: []string{"tok-1"}})
	}))
	defer srv.Close()

	remover := &fakeTokenRemover{}
	d := newTestDispatcher(remover)

	batch := batchWithURL(srv.URL, store.Recipient{FID: 1, Token: "tok-1"})
	result := d.Dispatch(context.Background(), batch, Message{}, "id")

	// Rate-limited tokens stay; they may succeed on the next run.
	assert.True(t, result.Success)
	assert.Empty(t, remover.deleted)
}

func TestDispatchProviderError(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusInternalServerError)
	}))
	defer srv.Close()

	remover := &fakeTokenRemover{}
	d := newTestDispatcher(remover)

	batch := batchWithURL(srv.URL, store.Recipient{FID: 1, Token: "tok-1"})
	result := d.Dispatch(context.Background(), batch, Message{}, "id")

	assert.False(t, result.Success)
	assert.NotEmpty(t, result.Error)
	assert.Empty(t, remover.deleted)
}

func TestDispatchUndecodableSuccessBody(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte("not json"))
	}))
	defer srv.Close()

	d := newTestDispatcher(&fakeTokenRemover{})

	batch := batchWithURL(srv.URL, store.Recipient{FID: 1, Token: "tok-1"})
	result := d.Dispatch(context.Background(), batch, Message{}, "id")

	// 2xx means delivered; a garbled body just means empty token lists.
	assert.True(t, result.Success)
	assert.Empty(t, result.InvalidatedFIDs)
}

func TestDispatchDeleteFailureLeavesOtherReconciliations(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		json.NewEncoder(w).Encode(pushResponse{InvalidTokens: []string{"tok-1", "tok-2"}})
	}))
	defer srv.Close()

	remover := &fakeTokenRemover{failFor: map[int64]error{1: assert.AnError}}
	d := newTestDispatcher(remover)

	batch := batchWithURL(srv.URL,
		store.Recipient{FID: 1, Token: "tok-1"},
		store.Recipient{FID: 2, Token: "tok-2"},
	)
	result := d.Dispatch(context.Background(), batch, Message{}, "id")

	assert.True(t, result.Success)
	assert.Equal(t, []int64{2}, result.InvalidatedFIDs)
	assert.Equal(t, []int64{2}, remover.deleted)
}

func TestDispatchEmptyBatch(t *testing.T) {
	d := newTestDispatcher(&fakeTokenRemover{})

	result := d.Dispatch(context.Background(), Batch{GroupKey: "0.00-0.00"}, Message{}, "id")

	assert.True(t, result.Success)
	assert.Zero(t, result.RecipientCount)
}
