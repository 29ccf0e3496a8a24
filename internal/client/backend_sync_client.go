package client

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/pesio-ai/be-claims-evaluator/internal/claim"
	"github.com/pesio-ai/be-claims-evaluator/internal/errors"
	"github.com/pesio-ai/be-claims-evaluator/internal/logger"
	"github.com/pesio-ai/be-claims-evaluator/internal/timeline"
)

// BackendSyncClient pushes claim state and the derived timeline to the admin
// backend after every stage. Every failure is logged and swallowed.
type BackendSyncClient struct {
	baseURL      string
	http         *http.Client
	fetchTimeout time.Duration
	log          *logger.Logger
	now          func() time.Time
}

// NewBackendSyncClient creates a new BackendSyncClient.
func NewBackendSyncClient(baseURL string, timeout time.Duration, log *logger.Logger) *BackendSyncClient {
	if timeout <= 0 {
		timeout = 5 * time.Second
	}
	return &BackendSyncClient{
		baseURL:      strings.TrimRight(baseURL, "/"),
		http:         &http.Client{Timeout: timeout},
		fetchTimeout: 2 * time.Second,
		log:          log,
		now:          time.Now,
	}
}

// SyncRequest is the body of POST /agent/sync.
type SyncRequest struct {
	ApplicationID string          `json:"applicationId"`
	Status        string          `json:"status"`
	CurrentStep   string          `json:"currentStep"`
	RunID         string          `json:"runId,omitempty"`
	AgentData     claim.Record    `json:"agentData"`
	StepHistory   []timeline.Step `json:"stepHistory"`
	StartTime     string          `json:"startTime"`
}

// BackendStatus maps a decision to the admin backend's application status.
func BackendStatus(d claim.Decision) string {
	switch d {
	case claim.DecisionInvestigate:
		return "manual_review"
	case claim.DecisionReject:
		return "rejected"
	case claim.DecisionApprove:
		return "approved"
	}
	return "processing"
}

// SyncState implements the pipeline's state syncer.
func (c *BackendSyncClient) SyncState(ctx context.Context, runID string, step claim.Step, rec claim.Record) {
	if rec.ClaimID == "" {
		c.log.Warn().Msg("sync: no claim id in record, skipping")
		return
	}

	existing, err := c.FetchStepHistory(ctx, rec.ClaimID)
	if err != nil {
		c.log.Debug().Err(err).Str("claim_id", rec.ClaimID).Msg("sync: could not fetch existing step history")
	}

	now := c.now()
	body := SyncRequest{
		ApplicationID: rec.ClaimID,
		Status:        BackendStatus(rec.Decision),
		CurrentStep:   string(step),
		RunID:         runID,
		AgentData:     rec,
		StepHistory:   timeline.Build(rec, existing, now),
		StartTime:     now.Format("2006-01-02"),
	}

	if err := c.post(ctx, "/agent/sync", body); err != nil {
		c.log.Error().
			Err(err).
			Str("claim_id", rec.ClaimID).
			Str("stage", string(step)).
			Msg("sync: backend sync failed (non-fatal)")
		return
	}

	c.log.Debug().
		Str("claim_id", rec.ClaimID).
		Str("stage", string(step)).
		Msg("sync: claim state synced")
}

// FetchStepHistory returns the timeline the backend currently holds for a
// claim, or nil when it has none.
func (c *BackendSyncClient) FetchStepHistory(ctx context.Context, claimID string) ([]timeline.Step, error) {
	ctx, cancel := context.WithTimeout(ctx, c.fetchTimeout)
	defer cancel()

	req, err := http.NewRequestWithContext(ctx, http.MethodGet,
		c.baseURL+"/agent/application/"+url.PathEscape(claimID), nil)
	if err != nil {
		return nil, errors.Wrap(err, errors.ErrCodeInternal, "failed to build request")
	}
	resp, err := c.http.Do(req)
	if err != nil {
		return nil, errors.Wrap(err, errors.ErrCodeUnavailable, "failed to fetch application")
	}
	defer resp.Body.Close()

	if resp.StatusCode == http.StatusNotFound {
		return nil, nil
	}
	if resp.StatusCode != http.StatusOK {
		return nil, errors.New(errors.ErrCodeUnavailable, fmt.Sprintf("backend returned status %d", resp.StatusCode))
	}

	var app struct {
		StepHistory json.RawMessage `json:"stepHistory"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&app); err != nil {
		return nil, errors.Wrap(err, errors.ErrCodeInternal, "failed to decode application")
	}
	return decodeStepHistory(app.StepHistory)
}

// decodeStepHistory accepts the history as a JSON array or as a string
// holding the encoded array.
func decodeStepHistory(raw json.RawMessage) ([]timeline.Step, error) {
	raw = bytes.TrimSpace(raw)
	if len(raw) == 0 || bytes.Equal(raw, []byte("null")) {
		return nil, nil
	}
	if raw[0] == '"' {
		var encoded string
		if err := json.Unmarshal(raw, &encoded); err != nil {
			return nil, errors.Wrap(err, errors.ErrCodeInternal, "failed to decode step history")
		}
		raw = []byte(encoded)
	}

	var steps []timeline.Step
	if err := json.Unmarshal(raw, &steps); err != nil {
		return nil, errors.Wrap(err, errors.ErrCodeInternal, "failed to decode step history")
	}
	return steps, nil
}

func (c *BackendSyncClient) post(ctx context.Context, path string, body any) error {
	data, err := json.Marshal(body)
	if err != nil {
		return errors.Wrap(err, errors.ErrCodeInternal, "failed to marshal request")
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+path, bytes.NewReader(data))
	if err != nil {
		return errors.Wrap(err, errors.ErrCodeInternal, "failed to build request")
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.http.Do(req)
	if err != nil {
		return errors.Wrap(err, errors.ErrCodeUnavailable, "request failed")
	}
	defer resp.Body.Close()

	if resp.StatusCode >= 400 {
		msg, _ := io.ReadAll(io.LimitReader(resp.Body, 1024))
		return errors.New(errors.ErrCodeUnavailable,
			fmt.Sprintf("backend returned status %d: %s", resp.StatusCode, strings.TrimSpace(string(msg))))
	}
	return nil
}
