package jobs

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"socialsync-backend/internal/components/telemetry"
	"socialsync-backend/internal/outcome"
	libtelemetry "socialsync-backend/lib/telemetry"
	"strings"
	"time"

	"github.com/go-resty/resty/v2"
	"golang.org/x/time/rate"
)

type Status string

const (
	StatusReady     Status = "READY"
	StatusRunning   Status = "RUNNING"
	StatusSucceeded Status = "SUCCEEDED"
	StatusFailed    Status = "FAILED"
	StatusTimingOut Status = "TIMING-OUT"
	StatusTimedOut  Status = "TIMED-OUT"
	StatusAborting  Status = "ABORTING"
	StatusAborted   Status = "ABORTED"
)

func (s Status) Terminal() bool {
	switch s {
	case StatusSucceeded, StatusFailed, StatusTimedOut, StatusAborted:
		return true
	}
	return false
}

// Run is the vendor's view of one actor run.
type Run struct {
	ID            string `json:"id"`
	ActorID       string `json:"actId"`
	Status        Status `json:"status"`
	StatusMessage string `json:"statusMessage"`
	DatasetID     string `json:"defaultDatasetId"`
}

// Client is the vendor job api.
//
// note: fault injection point
type Client interface {
	SubmitJob(ctx context.Context, actorID string, input map[string]any) (Run, error)
	GetJobStatus(ctx context.Context, runID string) (Run, error)
	FetchResults(ctx context.Context, datasetID string) ([]map[string]any, error)
}

type ClientOptions struct {
	BaseURL string
	Token   string
	// RequestsPerSecond paces every call made to the vendor, 2 when zero.
	RequestsPerSecond float64
}

// HTTPClient talks to an apify compatible REST api.
type HTTPClient struct {
	http *resty.Client
}

const defaultBaseURL = "https://api.apify.com"

func NewHTTPClient(opts ClientOptions, tel telemetry.API) *HTTPClient {
	baseURL := opts.BaseURL
	if baseURL == "" {
		baseURL = defaultBaseURL
	}

	client := resty.New()
	client.SetBaseURL(strings.TrimRight(baseURL, "/"))
	client.SetHeader("user-agent", "socialsync-backend")
	client.SetTimeout(time.Minute)
	if opts.Token != "" {
		client.SetAuthToken(opts.Token)
	}

	rps := opts.RequestsPerSecond
	if rps <= 0 {
		rps = 2
	}
	// max burst >= 1 so no request is dropped
	rateLimiter := rate.NewLimiter(rate.Limit(rps), max(1, int(rps)))
	client.OnBeforeRequest(func(_ *resty.Client, req *resty.Request) error {
		return rateLimiter.Wait(req.Context())
	})

	telemetry.InstrumentResty(client, telemetry.NewScopedAPI("vendor_client", tel))
	libtelemetry.TraceResty(client, "socialsync/jobs/vendor")

	return &HTTPClient{http: client}
}

type runEnvelope struct {
	Data  Run `json:"data"`
	Error *struct {
		Type    string `json:"type"`
		Message string `json:"message"`
	} `json:"error"`
}

// actorPath turns "owner/name" into the "owner~name" form used in urls.
func actorPath(actorID string) string {
	return strings.ReplaceAll(actorID, "/", "~")
}

func (c *HTTPClient) SubmitJob(ctx context.Context, actorID string, input map[string]any) (Run, error) {
	var envelope runEnvelope
	res, err := c.http.R().
		SetContext(ctx).
		SetPathParam("actor", actorPath(actorID)).
		SetHeader("content-type", "application/json").
		SetBody(input).
		SetResult(&envelope).
		SetError(&envelope).
		Post("/v2/acts/{actor}/runs")
	if err != nil {
		return Run{}, &JobError{Code: outcome.Classify(err), Err: fmt.Errorf("submit %s: %w", actorID, err)}
	}
	if res.IsError() {
		return Run{}, submitError(actorID, res.StatusCode(), envelope)
	}
	return envelope.Data, nil
}

func submitError(actorID string, status int, envelope runEnvelope) error {
	message := http.StatusText(status)
	if envelope.Error != nil && envelope.Error.Message != "" {
		message = envelope.Error.Message
	}
	err := fmt.Errorf("submit %s: http %d: %s", actorID, status, message)

	switch {
	case status == http.StatusTooManyRequests:
		return &JobError{Code: outcome.CodeRateLimit, Err: err}
	case status >= 400 && status < 500:
		return &JobError{Code: outcome.CodeJobRejected, Err: err}
	}
	return &JobError{Code: outcome.CodeError, Err: err}
}

func (c *HTTPClient) GetJobStatus(ctx context.Context, runID string) (Run, error) {
	var envelope runEnvelope
	res, err := c.http.R().
		SetContext(ctx).
		SetPathParam("run", runID).
		SetResult(&envelope).
		Get("/v2/actor-runs/{run}")
	if err != nil {
		return Run{}, fmt.Errorf("get run %s: %w", runID, err)
	}
	if res.IsError() {
		return Run{}, fmt.Errorf("get run %s: http %d", runID, res.StatusCode())
	}
	return envelope.Data, nil
}

func (c *HTTPClient) FetchResults(ctx context.Context, datasetID string) ([]map[string]any, error) {
	res, err := c.http.R().
		SetContext(ctx).
		SetPathParam("dataset", datasetID).
		// no clean=true, it drops the '#' fields actors mark failed items with
		SetQueryParam("format", "json").
		Get("/v2/datasets/{dataset}/items")
	if err != nil {
		return nil, fmt.Errorf("fetch dataset %s: %w", datasetID, err)
	}
	if res.IsError() {
		return nil, fmt.Errorf("fetch dataset %s: http %d", datasetID, res.StatusCode())
	}

	var items []map[string]any
	if err := json.Unmarshal(res.Body(), &items); err != nil {
		return nil, outcome.Errorf(outcome.CodeParseError, "decode dataset %s: %w", datasetID, err)
	}
	return items, nil
}
