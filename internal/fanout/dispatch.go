// internal/fanout/dispatch.go
package fanout

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"time"

	"weather-notify/internal/common/logger"
	"weather-notify/internal/common/metrics"

	"golang.org/x/time/rate"
)

// DailyNotificationID derives the provider dedup id for a batch: stable per
// (calendar date, group), so repeated runs on the same day are deduplicated
// by the provider rather than delivered twice.
func DailyNotificationID(day time.Time, groupKey string) string {
	return fmt.Sprintf("morning-%s-%s", day.UTC().Format("2006-01-02"), groupKey)
}

// TokenRemover is the slice of the store the dispatcher needs for
// delete-on-invalid reconciliation.
type TokenRemover interface {
	DeleteToken(ctx context.Context, fid int64) error
}

// HTTPDoer issues one push provider call. Satisfied by *http.Client.
type HTTPDoer interface {
	Do(req *http.Request) (*http.Response, error)
}

// Dispatcher sends one batch per provider call, paced by a token-bucket
// limiter, and reconciles provider-reported invalid tokens into the store.
type Dispatcher struct {
	http    HTTPDoer
	limiter *rate.Limiter
	tokens  TokenRemover
	logger  logger.Logger
}

func NewDispatcher(httpClient HTTPDoer, limiter *rate.Limiter, tokens TokenRemover, log logger.Logger) *Dispatcher {
	return &Dispatcher{
		http:    httpClient,
		limiter: limiter,
		tokens:  tokens,
		logger:  log.WithFields(map[string]interface{}{"component": "dispatcher"}),
	}
}

type pushPayload struct {
	NotificationID string   `json:"notificationId"`
	Title          string   `json:"title"`
	Body           string   `json:"body"`
	TargetURL      string   `json:"targetUrl"`
	Tokens         []string `json:"tokens"`
}

// pushResponse mirrors the provider's success body. Both token lists may be
// absent or null; absence means empty, not an error.
type pushResponse struct {
	InvalidTokens     []string `json:"invalidTokens"`
	RateLimitedTokens []string `json:"rateLimitedTokens"`
	RequestID         string   `json:"requestId"`
}

// Dispatch issues one provider call for the batch. A transport or non-2xx
// outcome is recorded on the result and never retried within the run; retries
// across runs are the trigger cadence's job.
func (d *Dispatcher) Dispatch(ctx context.Context, batch Batch, msg Message, notificationID string) Result {
	result := Result{
		BatchKey:       batch.Key(),
		RecipientCount: len(batch.Recipients),
	}

	if len(batch.Recipients) == 0 {
		result.Success = true
		return result
	}

	if err := d.limiter.Wait(ctx); err != nil {
		result.Error = err.Error()
		metrics.BatchesDispatched.WithLabelValues("failed").Inc()
		return result
	}

	tokens := make([]string, 0, len(batch.Recipients))
	for _, r := range batch.Recipients {
		tokens = append(tokens, r.Token)
	}

	payload := pushPayload{
		NotificationID: notificationID,
		Title:          msg.Title,
		Body:           msg.Body,
		TargetURL:      msg.TargetURL,
		Tokens:         tokens,
	}

	// All recipients in a batch registered through the same mini-app host,
	// so the first recipient's delivery endpoint serves the whole batch.
	endpoint := batch.Recipients[0].URL

	resp, err := d.post(ctx, endpoint, payload)
	if err != nil {
		d.logger.Error("push dispatch failed", map[string]interface{}{
			"batchKey": batch.Key(),
			"error":    err.Error(),
		})
		result.Error = err.Error()
		metrics.BatchesDispatched.WithLabelValues("failed").Inc()
		return result
	}

	result.Success = true
	result.ProviderRequestID = resp.RequestID
	result.InvalidatedFIDs = d.reconcileInvalidTokens(ctx, batch, resp.InvalidTokens)

	if len(resp.RateLimitedTokens) > 0 {
		// Rate-limited tokens stay in the store; they may succeed next run.
		d.logger.Warn("provider rate-limited tokens", map[string]interface{}{
			"batchKey": batch.Key(),
			"count":    len(resp.RateLimitedTokens),
		})
	}

	metrics.BatchesDispatched.WithLabelValues("ok").Inc()
	metrics.RecipientsNotified.Add(float64(len(batch.Recipients)))
	return result
}

func (d *Dispatcher) post(ctx context.Context, endpoint string, payload pushPayload) (*pushResponse, error) {
	body, err := json.Marshal(payload)
	if err != nil {
		return nil, err
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, endpoint, bytes.NewReader(body))
	if err != nil {
		return nil, err
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := d.http.Do(req)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return nil, fmt.Errorf("push provider returned status %d", resp.StatusCode)
	}

	var parsed pushResponse
	if err := json.NewDecoder(resp.Body).Decode(&parsed); err != nil {
		// A 2xx with an undecodable body still delivered; treat the token
		// lists as empty rather than failing the batch.
		d.logger.Warn("push response body not decodable", map[string]interface{}{"error": err.Error()})
		return &pushResponse{}, nil
	}
	return &parsed, nil
}

// reconcileInvalidTokens deletes the store records of recipients whose tokens
// the provider reported invalid. Stale tokens are never retried. Deletion is
// idempotent, so a failure here is logged and left for the next run.
func (d *Dispatcher) reconcileInvalidTokens(ctx context.Context, batch Batch, invalid []string) []int64 {
	if len(invalid) == 0 {
		return nil
	}

	invalidSet := make(map[string]struct{}, len(invalid))
	for _, token := range invalid {
		invalidSet[token] = struct{}{}
	}

	var removed []int64
	for _, r := range batch.Recipients {
		if _, ok := invalidSet[r.Token]; !ok {
			continue
		}
		if err := d.tokens.DeleteToken(ctx, r.FID); err != nil {
			d.logger.Error("invalid token removal failed", map[string]interface{}{
				"fid":   r.FID,
				"error": err.Error(),
			})
			continue
		}
		removed = append(removed, r.FID)
	}

	if len(removed) > 0 {
		metrics.TokensInvalidated.Add(float64(len(removed)))
	}
	return removed
}
