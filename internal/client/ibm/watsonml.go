package ibm

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

	"capbudget/internal/config"
)

// Terminal job states as reported by the runner (already lowercased).
const (
	JobStateCompleted = "completed"
	JobStateFailed    = "failed"
	JobStateCanceled  = "canceled"
)

// JobRunner submits runs of a pre-deployed Watson ML job and polls them.
type JobRunner struct {
	endpoint   string
	spaceID    string
	jobID      string
	tokens     *TokenCache
	httpClient *http.Client
}

// JobRun is the handle returned by a successful submission.
type JobRun struct {
	RuntimeJobID string    `json:"runtime_job_id"`
	State        string    `json:"state"`
	StatusURL    string    `json:"status_url"`
	CreatedAt    time.Time `json:"created_at"`
}

// JobStatus is the structured poll result. State is normalized to lowercase.
type JobStatus struct {
	State        string     `json:"state"`
	CreatedAt    *time.Time `json:"created_at,omitempty"`
	CompletedAt  *time.Time `json:"completed_at,omitempty"`
	ErrorMessage string     `json:"error_message,omitempty"`
}

func NewJobRunner(httpClient *http.Client, cfg config.WatsonConfig, tokens *TokenCache) *JobRunner {
	return &JobRunner{
		endpoint:   strings.TrimRight(cfg.Endpoint, "/"),
		spaceID:    cfg.SpaceID,
		jobID:      cfg.JobID,
		tokens:     tokens,
		httpClient: httpClient,
	}
}

func IsTerminalState(state string) bool {
	switch state {
	case JobStateCompleted, JobStateFailed, JobStateCanceled:
		return true
	}
	return false
}

// jobRunEnvelope mirrors the v2 jobs API response shape for both submission
// and status calls.
type jobRunEnvelope struct {
	Href   string `json:"href"`
	Entity struct {
		JobRun struct {
			RuntimeJobID string `json:"runtime_job_id"`
			State        string `json:"state"`
			CompletedAt  string `json:"completed_at"`
			Error        string `json:"error"`
		} `json:"job_run"`
	} `json:"entity"`
	Metadata struct {
		CreatedAt string `json:"created_at"`
	} `json:"metadata"`
}

func (r *JobRunner) Submit(ctx context.Context) (JobRun, error) {
	u := fmt.Sprintf("%s/v2/jobs/%s/runs?space_id=%s", r.endpoint, url.PathEscape(r.jobID), url.QueryEscape(r.spaceID))
	body, err := r.do(ctx, http.MethodPost, u, []byte("{}"))
	if err != nil {
		return JobRun{}, err
	}

	var payload jobRunEnvelope
	if err := json.Unmarshal(body, &payload); err != nil {
		return JobRun{}, &SubmissionError{Reason: "unparseable response: " + err.Error()}
	}
	runtimeJobID := strings.TrimSpace(payload.Entity.JobRun.RuntimeJobID)
	if runtimeJobID == "" {
		return JobRun{}, &SubmissionError{Reason: "response has no runtime_job_id"}
	}

	createdAt, _ := time.Parse(time.RFC3339, payload.Metadata.CreatedAt)
	statusURL := payload.Href
	if statusURL == "" {
		statusURL = r.RunStatusURL(runtimeJobID)
	} else if !strings.HasPrefix(statusURL, "http") {
		statusURL = r.endpoint + statusURL
	}
	return JobRun{
		RuntimeJobID: runtimeJobID,
		State:        strings.ToLower(payload.Entity.JobRun.State),
		StatusURL:    statusURL,
		CreatedAt:    createdAt,
	}, nil
}

// RunStatusURL builds the canonical poll URL for a runtime job id, for
// callers that recorded the id rather than the href.
func (r *JobRunner) RunStatusURL(runtimeJobID string) string {
	return fmt.Sprintf("%s/v2/jobs/runs/%s?space_id=%s", r.endpoint, url.PathEscape(runtimeJobID), url.QueryEscape(r.spaceID))
}

func (r *JobRunner) PollStatus(ctx context.Context, statusURL string) (JobStatus, error) {
	body, err := r.do(ctx, http.MethodGet, statusURL, nil)
	if err != nil {
		return JobStatus{}, err
	}

	var payload jobRunEnvelope
	if err := json.Unmarshal(body, &payload); err != nil {
		return JobStatus{}, fmt.Errorf("parse job status: %w", err)
	}
	status := JobStatus{
		State:        strings.ToLower(strings.TrimSpace(payload.Entity.JobRun.State)),
		ErrorMessage: payload.Entity.JobRun.Error,
	}
	if t, err := time.Parse(time.RFC3339, payload.Metadata.CreatedAt); err == nil {
		status.CreatedAt = &t
	}
	if t, err := time.Parse(time.RFC3339, payload.Entity.JobRun.CompletedAt); err == nil {
		status.CompletedAt = &t
	}
	return status, nil
}

// FetchLogs returns the raw log payload for a run. The body shape is solver
// specific, so it is passed through opaque.
func (r *JobRunner) FetchLogs(ctx context.Context, runtimeJobID string) (json.RawMessage, error) {
	u := fmt.Sprintf("%s/v2/jobs/runs/%s/logs?space_id=%s", r.endpoint, url.PathEscape(runtimeJobID), url.QueryEscape(r.spaceID))
	body, err := r.do(ctx, http.MethodGet, u, nil)
	if err != nil {
		return nil, err
	}
	return json.RawMessage(body), nil
}

// AwaitCompletion polls until a terminal state or maxPolls is exhausted.
// It blocks the calling goroutine between polls, so it belongs on a
// background worker, never on a request handler.
func (r *JobRunner) AwaitCompletion(ctx context.Context, statusURL string, maxPolls int, interval time.Duration) (JobStatus, error) {
	if maxPolls <= 0 {
		maxPolls = 1
	}
	var last JobStatus
	for attempt := 0; attempt < maxPolls; attempt++ {
		if attempt > 0 {
			select {
			case <-ctx.Done():
				return JobStatus{}, ctx.Err()
			case <-time.After(interval):
			}
		}
		status, err := r.PollStatus(ctx, statusURL)
		if err != nil {
			return JobStatus{}, err
		}
		if IsTerminalState(status.State) {
			return status, nil
		}
		last = status
	}
	return JobStatus{}, &TimeoutError{Attempts: maxPolls, LastState: last.State}
}

func (r *JobRunner) do(ctx context.Context, method, u string, body []byte) ([]byte, error) {
	resp, err := r.doOnce(ctx, method, u, body)
	if err != nil {
		return nil, err
	}
	if resp.StatusCode == http.StatusUnauthorized {
		_, _ = io.Copy(io.Discard, resp.Body)
		_ = resp.Body.Close()
		r.tokens.Invalidate(ServiceWatsonML)
		resp, err = r.doOnce(ctx, method, u, body)
		if err != nil {
			return nil, err
		}
	}
	defer func() { _ = resp.Body.Close() }()
	data, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, err
	}
	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return nil, &RemoteError{Op: method + " " + u, Status: resp.StatusCode, Body: strings.TrimSpace(string(data))}
	}
	return data, nil
}

func (r *JobRunner) doOnce(ctx context.Context, method, u string, body []byte) (*http.Response, error) {
	token, err := r.tokens.Token(ctx, ServiceWatsonML)
	if err != nil {
		return nil, err
	}
	var reader io.Reader
	if body != nil {
		reader = bytes.NewReader(body)
	}
	req, err := http.NewRequestWithContext(ctx, method, u, reader)
	if err != nil {
		return nil, err
	}
	req.Header.Set("Authorization", "Bearer "+token)
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	return r.httpClient.Do(req)
}
