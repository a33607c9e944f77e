// internal/fanout/orchestrator_test.go
package fanout

import (
	"context"
	"errors"
	"testing"

	"weather-notify/internal/common/logger"
	"weather-notify/internal/store"
	"weather-notify/internal/weather"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeSource struct {
	recipients []store.Recipient
	err        error
	gotLimit   int
}

func (f *fakeSource) EligibleRecipients(ctx context.Context, limit int) ([]store.Recipient, error) {
	f.gotLimit = limit
	return f.recipients, f.err
}

type fakeFetcher struct {
	calls   int
	coords  [][2]float64
	failFor map[string]error
}

func (f *fakeFetcher) FetchCurrent(ctx context.Context, lat, lon float64) (weather.Snapshot, error) {
	f.calls++
	f.coords = append(f.coords, [2]float64{lat, lon})
	if err, ok := f.failFor[BucketKey(lat, lon)]; ok {
		return weather.Snapshot{}, err
	}
	return weather.Snapshot{TemperatureC: 20, Code: 0, Description: "Clear", Emoji: "☀️"}, nil
}

type fakeDispatcher struct {
	dispatched []Batch
	ids        []string
	failKeys   map[string]bool
}

func (f *fakeDispatcher) Dispatch(ctx context.Context, batch Batch, msg Message, notificationID string) Result {
	f.dispatched = append(f.dispatched, batch)
	f.ids = append(f.ids, notificationID)
	if f.failKeys[batch.Key()] {
		return Result{BatchKey: batch.Key(), RecipientCount: len(batch.Recipients), Error: "provider 500"}
	}
	return Result{BatchKey: batch.Key(), Success: true, RecipientCount: len(batch.Recipients)}
}

func newTestOrchestrator(src RecipientSource, fetcher WeatherFetcher, disp BatchDispatcher) *Orchestrator {
	return NewOrchestrator(
		Config{BatchLimit: 100, ScanLimit: 1000, AppBaseURL: "https://example.com/"},
		src, fetcher, disp,
		logger.NewNoOpLogger(),
	)
}

func TestRunGroupsBatchesAndDispatches(t *testing.T) {
	src := &fakeSource{recipients: []store.Recipient{
		{FID: 1, Latitude: 12.9716, Longitude: 77.5946, Token: "t1", URL: "u"},
		{FID: 2, Latitude: 12.9717, Longitude: 77.5947, Token: "t2", URL: "u"},
		{FID: 3, Latitude: 48.8566, Longitude: 2.3522, Token: "t3", URL: "u"},
	}}
	fetcher := &fakeFetcher{}
	disp := &fakeDispatcher{}

	report, err := newTestOrchestrator(src, fetcher, disp).Run(context.Background())

	require.NoError(t, err)
	assert.NotEmpty(t, report.RunID)
	assert.Equal(t, 2, report.GroupsProcessed)
	assert.Equal(t, 2, report.TotalBatches)
	assert.Equal(t, 1000, src.gotLimit)

	// One weather fetch per batch, from the bucket's first recipient.
	assert.Equal(t, 2, fetcher.calls)
	assert.Equal(t, [2]float64{12.9716, 77.5946}, fetcher.coords[0])
	assert.Equal(t, [2]float64{48.8566, 2.3522}, fetcher.coords[1])

	require.Len(t, disp.dispatched, 2)
	assert.Equal(t, 2, len(disp.dispatched[0].Recipients))
	assert.Contains(t, disp.ids[0], "12.97-77.59")
	for _, res := range report.Results {
		assert.True(t, res.Success)
	}
}

func TestRunContinuesPastFailedBatch(t *testing.T) {
	src := &fakeSource{recipients: []store.Recipient{
		{FID: 1, Latitude: 12.9716, Longitude: 77.5946, Token: "t1", URL: "u"},
		{FID: 2, Latitude: 48.8566, Longitude: 2.3522, Token: "t2", URL: "u"},
	}}
	fetcher := &fakeFetcher{}
	disp := &fakeDispatcher{failKeys: map[string]bool{"12.97-77.59#0": true}}

	report, err := newTestOrchestrator(src, fetcher, disp).Run(context.Background())

	require.NoError(t, err)
	require.Len(t, report.Results, 2)
	assert.False(t, report.Results[0].Success)
	assert.Equal(t, "provider 500", report.Results[0].Error)
	assert.True(t, report.Results[1].Success)

	// The failed first group never blocked the second dispatch.
	assert.Len(t, disp.dispatched, 2)
}

func TestRunSkipsBatchOnWeatherFailure(t *testing.T) {
	src := &fakeSource{recipients: []store.Recipient{
		{FID: 1, Latitude: 12.9716, Longitude: 77.5946, Token: "t1", URL: "u"},
		{FID: 2, Latitude: 48.8566, Longitude: 2.3522, Token: "t2", URL: "u"},
	}}
	fetcher := &fakeFetcher{failFor: map[string]error{"12.97-77.59": errors.New("open-meteo down")}}
	disp := &fakeDispatcher{}

	report, err := newTestOrchestrator(src, fetcher, disp).Run(context.Background())

	require.NoError(t, err)
	require.Len(t, report.Results, 2)
	assert.False(t, report.Results[0].Success)
	assert.Contains(t, report.Results[0].Error, "open-meteo down")
	assert.True(t, report.Results[1].Success)

	// Only the healthy group reached the dispatcher.
	require.Len(t, disp.dispatched, 1)
	assert.Equal(t, "48.86-2.35", disp.dispatched[0].GroupKey)
}

func TestRunAbortsOnStoreFailure(t *testing.T) {
	src := &fakeSource{err: errors.New("redis unreachable")}
	fetcher := &fakeFetcher{}
	disp := &fakeDispatcher{}

	_, err := newTestOrchestrator(src, fetcher, disp).Run(context.Background())

	require.Error(t, err)
	assert.Zero(t, fetcher.calls)
	assert.Empty(t, disp.dispatched)
}

func TestRunWithNoRecipients(t *testing.T) {
	report, err := newTestOrchestrator(&fakeSource{}, &fakeFetcher{}, &fakeDispatcher{}).Run(context.Background())

	require.NoError(t, err)
	assert.Zero(t, report.GroupsProcessed)
	assert.Zero(t, report.TotalBatches)
	assert.NotEmpty(t, report.RunID)
}
