package detect

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"mime/multipart"
	"net/http"
	"strings"
	"time"

	"golang.org/x/text/language"
)

// Verdict strings returned by the detection API.
const (
	VerdictFake       = "fake"
	VerdictReal       = "real"
	VerdictUnverified = "unverified"
)

// Job statuses for asynchronous video classification.
const (
	StatusProcessing = "processing"
	StatusCompleted  = "completed"
	StatusFailed     = "failed"
)

// DefaultPollInterval is the delay between video job status polls.
const DefaultPollInterval = 2 * time.Second

// Result is the detection outcome for one item.
// Older gateway builds report a boolean is_fake; current ones report a
// verdict string. IsFake normalizes across both.
type Result struct {
	// DetectionID is the server-assigned identifier for this check.
	DetectionID int64 `json:"detection_id"`

	// Verdict is one of the Verdict* constants.
	Verdict string `json:"verdict"`

	// FakeFlag is the legacy boolean verdict field.
	FakeFlag *bool `json:"is_fake,omitempty"`

	// Confidence is the model's confidence in [0,1].
	Confidence float64 `json:"confidence"`

	// Explanation is the model's human-readable analysis.
	Explanation string `json:"explanation"`

	// Analysis is the legacy name for Explanation.
	Analysis string `json:"analysis,omitempty"`

	// ModelUsed names the model that produced the verdict.
	ModelUsed string `json:"model_used"`

	// ProcessingTimeMS is the server-side processing time.
	ProcessingTimeMS int64 `json:"processing_time_ms"`

	// Source is set for URL checks only (blacklist/whitelist/model).
	Source string `json:"source,omitempty"`
}

// IsFake reports the normalized verdict.
func (r *Result) IsFake() bool {
	if r.FakeFlag != nil {
		return *r.FakeFlag
	}
	return r.Verdict == VerdictFake
}

// AnalysisText returns the explanation, preferring the current field
// name over the legacy one.
func (r *Result) AnalysisText() string {
	if r.Explanation != "" {
		return r.Explanation
	}
	return r.Analysis
}

// Job is the handle returned for asynchronous video classification.
type Job struct {
	JobID    string  `json:"job_id"`
	Status   string  `json:"status"`
	Progress float64 `json:"progress"`
	Message  string  `json:"message,omitempty"`
}

// VideoResult is the polled status of a video classification job.
type VideoResult struct {
	JobID        string   `json:"job_id"`
	Status       string   `json:"status"`
	Progress     float64  `json:"progress"`
	Verdict      *string  `json:"verdict,omitempty"`
	Confidence   *float64 `json:"confidence,omitempty"`
	Explanation  *string  `json:"explanation,omitempty"`
	ErrorMessage *string  `json:"error_message,omitempty"`
}

// Client calls the detection API.
type Client struct {
	// baseURL is the API base, e.g. "http://localhost:8000/api/v1".
	baseURL string

	// httpClient performs requests. It must not carry its own timeout;
	// callers bound every call through the context.
	httpClient *http.Client

	// lang is the language hint sent with text checks.
	lang string

	// pollInterval is the delay between video job polls.
	pollInterval time.Duration
}

// Option configures a Client.
type Option func(*Client)

// WithHTTPClient sets a custom HTTP client.
func WithHTTPClient(c *http.Client) Option {
	return func(cl *Client) {
		cl.httpClient = c
	}
}

// WithLanguage sets the language hint for text checks. The tag is
// validated with BCP 47 parsing; an unparseable tag falls back to "en".
func WithLanguage(tag string) Option {
	return func(cl *Client) {
		parsed, err := language.Parse(tag)
		if err != nil {
			cl.lang = "en"
			return
		}
		base, _ := parsed.Base()
		cl.lang = base.String()
	}
}

// WithPollInterval sets the video job poll interval.
func WithPollInterval(d time.Duration) Option {
	return func(cl *Client) {
		if d > 0 {
			cl.pollInterval = d
		}
	}
}

// NewClient creates a detection API client for the given base URL.
func NewClient(baseURL string, opts ...Option) *Client {
	c := &Client{
		baseURL:      strings.TrimSuffix(baseURL, "/"),
		httpClient:   http.DefaultClient,
		lang:         "en",
		pollInterval: DefaultPollInterval,
	}

	for _, opt := range opts {
		opt(c)
	}

	return c
}

// CheckText classifies a text passage.
// Returns (nil, nil) when the API answered with a non-2xx status: the
// item is unclassifiable, not an error. Transport failures return an
// error; the caller decides whether the item or the batch suffers.
func (c *Client) CheckText(ctx context.Context, text string) (*Result, error) {
	body, err := json.Marshal(map[string]string{
		"text":     text,
		"language": c.lang,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to encode text request: %w", err)
	}

	return c.postJSON(ctx, "/check-text", body)
}

// CheckURL classifies the content behind a URL.
func (c *Client) CheckURL(ctx context.Context, pageURL string) (*Result, error) {
	body, err := json.Marshal(map[string]string{"url": pageURL})
	if err != nil {
		return nil, fmt.Errorf("failed to encode url request: %w", err)
	}

	return c.postJSON(ctx, "/check-url", body)
}

// CheckImage classifies an image from its raw bytes.
func (c *Client) CheckImage(ctx context.Context, filename string, data []byte) (*Result, error) {
	return c.postFile(ctx, "/check-image", filename, data)
}

// CheckVoice classifies an audio clip from its raw bytes.
func (c *Client) CheckVoice(ctx context.Context, filename string, data []byte) (*Result, error) {
	return c.postFile(ctx, "/check-voice", filename, data)
}

// CheckVideo uploads a video for asynchronous classification and
// returns the job handle. Use VideoJobResult or WaitVideo to retrieve
// the outcome.
func (c *Client) CheckVideo(ctx context.Context, filename string, data []byte) (*Job, error) {
	resp, err := c.uploadMultipart(ctx, "/check-video", filename, data)
	if err != nil {
		return nil, err
	}
	if resp == nil {
		return nil, nil
	}
	defer resp.Body.Close()

	var job Job
	if err := json.NewDecoder(resp.Body).Decode(&job); err != nil {
		return nil, fmt.Errorf("failed to decode video job: %w", err)
	}
	return &job, nil
}

// VideoJobResult polls the status of a video classification job once.
func (c *Client) VideoJobResult(ctx context.Context, jobID string) (*VideoResult, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet,
		c.baseURL+"/check-video/result/"+jobID, nil)
	if err != nil {
		return nil, fmt.Errorf("failed to create request: %w", err)
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("video result request failed: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, nil
	}

	var vr VideoResult
	if err := json.NewDecoder(resp.Body).Decode(&vr); err != nil {
		return nil, fmt.Errorf("failed to decode video result: %w", err)
	}
	return &vr, nil
}

// WaitVideo polls a video job until it completes, fails, or the
// context is cancelled. The poll loop has no deadline of its own; the
// orchestrator's per-item video timeout bounds it via ctx.
func (c *Client) WaitVideo(ctx context.Context, jobID string) (*Result, error) {
	ticker := time.NewTicker(c.pollInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return nil, ctx.Err()
		case <-ticker.C:
		}

		vr, err := c.VideoJobResult(ctx, jobID)
		if err != nil {
			return nil, err
		}
		if vr == nil {
			return nil, nil
		}

		switch vr.Status {
		case StatusFailed:
			msg := "video classification failed"
			if vr.ErrorMessage != nil {
				msg = *vr.ErrorMessage
			}
			return nil, fmt.Errorf("job %s: %s", jobID, msg)
		case StatusCompleted:
			result := &Result{Verdict: VerdictUnverified}
			if vr.Verdict != nil {
				result.Verdict = *vr.Verdict
			}
			if vr.Confidence != nil {
				result.Confidence = *vr.Confidence
			}
			if vr.Explanation != nil {
				result.Explanation = *vr.Explanation
			}
			return result, nil
		}
		// Still processing; keep polling.
	}
}

// postJSON issues a JSON POST and decodes the standard result shape.
func (c *Client) postJSON(ctx context.Context, path string, body []byte) (*Result, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+path, bytes.NewReader(body))
	if err != nil {
		return nil, fmt.Errorf("failed to create request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("detection request failed: %w", err)
	}
	defer resp.Body.Close()

	return decodeResult(resp)
}

// postFile issues a multipart POST and decodes the standard result shape.
func (c *Client) postFile(ctx context.Context, path, filename string, data []byte) (*Result, error) {
	resp, err := c.uploadMultipart(ctx, path, filename, data)
	if err != nil {
		return nil, err
	}
	if resp == nil {
		return nil, nil
	}
	defer resp.Body.Close()

	return decodeResult(resp)
}

// uploadMultipart builds and sends a multipart form with a single
// "file" field. Returns a nil response for non-2xx statuses.
func (c *Client) uploadMultipart(ctx context.Context, path, filename string, data []byte) (*http.Response, error) {
	var buf bytes.Buffer
	mw := multipart.NewWriter(&buf)

	part, err := mw.CreateFormFile("file", filename)
	if err != nil {
		return nil, fmt.Errorf("failed to create form file: %w", err)
	}
	if _, err := part.Write(data); err != nil {
		return nil, fmt.Errorf("failed to write form file: %w", err)
	}
	if err := mw.Close(); err != nil {
		return nil, fmt.Errorf("failed to finalize form: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+path, &buf)
	if err != nil {
		return nil, fmt.Errorf("failed to create request: %w", err)
	}
	req.Header.Set("Content-Type", mw.FormDataContentType())

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("detection request failed: %w", err)
	}

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		// Drain so the connection can be reused, then degrade.
		_, _ = io.Copy(io.Discard, resp.Body)
		resp.Body.Close()
		return nil, nil
	}

	return resp, nil
}

// decodeResult decodes the shared result shape, degrading non-2xx
// statuses to a nil result.
func decodeResult(resp *http.Response) (*Result, error) {
	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		_, _ = io.Copy(io.Discard, resp.Body)
		return nil, nil
	}

	var result Result
	if err := json.NewDecoder(resp.Body).Decode(&result); err != nil {
		return nil, fmt.Errorf("failed to decode detection result: %w", err)
	}
	return &result, nil
}
