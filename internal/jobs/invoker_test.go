package jobs

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"socialsync-backend/internal/components/telemetry"
	"socialsync-backend/internal/outcome"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

// fakeVendor is an apify-like api whose runs move through a scripted list of statuses.
type fakeVendor struct {
	t *testing.T

	submitStatus int
	statuses     []Status
	items        string

	mu        sync.Mutex
	polls     int
	submitted map[string]any
	actorPath string
}

func (v *fakeVendor) handler() http.Handler {
	mux := http.NewServeMux()
	mux.HandleFunc("POST /v2/acts/{actor}/runs", func(w http.ResponseWriter, r *http.Request) {
		require.Equal(v.t, "Bearer secret", r.Header.Get("Authorization"))

		v.mu.Lock()
		v.actorPath = r.PathValue("actor")
		require.NoError(v.t, json.NewDecoder(r.Body).Decode(&v.submitted))
		v.mu.Unlock()

		w.Header().Set("content-type", "application/json")
		if v.submitStatus != 0 {
			w.WriteHeader(v.submitStatus)
			w.Write([]byte(`{"error":{"type":"invalid-input","message":"Input is not valid"}}`))
			return
		}
		w.WriteHeader(http.StatusCreated)
		w.Write([]byte(`{"data":{"id":"run1","actId":"act1","status":"READY","defaultDatasetId":"ds1"}}`))
	})
	mux.HandleFunc("GET /v2/actor-runs/{run}", func(w http.ResponseWriter, r *http.Request) {
		v.mu.Lock()
		idx := v.polls
		if idx >= len(v.statuses) {
			idx = len(v.statuses) - 1
		}
		v.polls++
		status := v.statuses[idx]
		v.mu.Unlock()

		w.Header().Set("content-type", "application/json")
		json.NewEncoder(w).Encode(map[string]any{
			"data": map[string]any{
				"id":               r.PathValue("run"),
				"status":           status,
				"statusMessage":    "scripted",
				"defaultDatasetId": "ds1",
			},
		})
	})
	mux.HandleFunc("GET /v2/datasets/{dataset}/items", func(w http.ResponseWriter, r *http.Request) {
		require.Equal(v.t, "ds1", r.PathValue("dataset"))
		w.Header().Set("content-type", "application/json")
		query := r.URL.Query()
		if query.Get("clean") != "true" && query.Get("skipHidden") != "true" {
			w.Write([]byte(v.items))
			return
		}
		// hidden fields start with '#'
		var items []map[string]any
		require.NoError(v.t, json.Unmarshal([]byte(v.items), &items))
		for _, item := range items {
			for k := range item {
				if strings.HasPrefix(k, "#") {
					delete(item, k)
				}
			}
		}
		json.NewEncoder(w).Encode(items)
	})
	return mux
}

func newTestInvoker(t *testing.T, vendor *fakeVendor, deadline time.Duration) (*Invoker, func()) {
	server := httptest.NewServer(vendor.handler())
	tel := telemetry.NewTestAPI(t)
	client := NewHTTPClient(ClientOptions{
		BaseURL:           server.URL,
		Token:             "secret",
		RequestsPerSecond: 1000,
	}, tel)
	invoker := NewInvoker(client, InvokerOptions{
		PollInterval: 5 * time.Millisecond,
		Deadline:     deadline,
	}, tel)
	return invoker, server.Close
}

func TestInvokerRun(t *testing.T) {
	table := []struct {
		name         string
		submitStatus int
		statuses     []Status
		deadline     time.Duration
		records      int
		code         outcome.Code
		message      string
	}{
		{
			name:     "succeeds after polling",
			statuses: []Status{StatusRunning, StatusRunning, StatusSucceeded},
			records:  2,
		},
		{
			name:         "rejected submission",
			submitStatus: http.StatusBadRequest,
			statuses:     []Status{StatusRunning},
			code:         outcome.CodeJobRejected,
			message:      "Input is not valid",
		},
		{
			name:         "throttled submission",
			submitStatus: http.StatusTooManyRequests,
			statuses:     []Status{StatusRunning},
			code:         outcome.CodeRateLimit,
		},
		{
			name:     "vendor failure",
			statuses: []Status{StatusRunning, StatusFailed},
			code:     outcome.CodeError,
			message:  "FAILED",
		},
		{
			name:     "vendor abort",
			statuses: []Status{StatusAborting, StatusAborted},
			code:     outcome.CodeError,
			message:  "ABORTED",
		},
		{
			name:     "vendor timeout",
			statuses: []Status{StatusTimingOut, StatusTimedOut},
			code:     outcome.CodeTimeout,
		},
		{
			name:     "deadline passes",
			statuses: []Status{StatusRunning},
			deadline: 50 * time.Millisecond,
			code:     outcome.CodeTimeout,
		},
	}

	for _, test := range table {
		t.Run(test.name, func(t *testing.T) {
			vendor := &fakeVendor{
				t:            t,
				submitStatus: test.submitStatus,
				statuses:     test.statuses,
				items:        `[{"username":"natgeo","followersCount":10},{"username":"nasa","followersCount":20}]`,
			}
			deadline := test.deadline
			if deadline == 0 {
				deadline = 5 * time.Second
			}
			invoker, cleanup := newTestInvoker(t, vendor, deadline)
			defer cleanup()

			records, err := invoker.Run(context.Background(), "apify/instagram-profile-scraper", map[string]any{
				"usernames": []string{"natgeo", "nasa"},
			})

			require.Equal(t, "apify~instagram-profile-scraper", vendor.actorPath)
			require.Equal(t, []any{"natgeo", "nasa"}, vendor.submitted["usernames"])

			if test.code == "" {
				require.NoError(t, err)
				require.Len(t, records, test.records)
				require.Equal(t, "natgeo", records[0]["username"])
				return
			}

			require.Error(t, err)
			var jobErr *JobError
			require.True(t, errors.As(err, &jobErr))
			require.Equal(t, test.code, jobErr.Code)
			require.Equal(t, test.code, outcome.Classify(err))
			if test.message != "" {
				require.True(t, strings.Contains(err.Error(), test.message), err.Error())
			}
		})
	}
}

func TestRejectedIsNotRetryable(t *testing.T) {
	require.False(t, (&JobError{Code: outcome.CodeJobRejected}).OutcomeCode().Retryable())
	require.True(t, (&JobError{Code: outcome.CodeTimeout}).OutcomeCode().Retryable())
}

type flakyClient struct {
	Client
	fails int
	calls int
}

func (c *flakyClient) GetJobStatus(ctx context.Context, runID string) (Run, error) {
	c.calls++
	if c.calls <= c.fails {
		return Run{}, errors.New("connection reset by peer")
	}
	return c.Client.GetJobStatus(ctx, runID)
}

func TestInvokerSurvivesPollErrors(t *testing.T) {
	vendor := &fakeVendor{
		t:        t,
		statuses: []Status{StatusSucceeded},
		items:    `[]`,
	}
	server := httptest.NewServer(vendor.handler())
	defer server.Close()

	tel := telemetry.NewTestAPI(t)
	client := &flakyClient{
		Client: NewHTTPClient(ClientOptions{BaseURL: server.URL, Token: "secret", RequestsPerSecond: 1000}, tel),
		fails:  2,
	}
	invoker := NewInvoker(client, InvokerOptions{PollInterval: 5 * time.Millisecond, Deadline: 5 * time.Second}, tel)

	records, err := invoker.Run(context.Background(), "actor", map[string]any{})
	require.NoError(t, err)
	require.Empty(t, records)
	require.Equal(t, 3, client.calls)
}

func TestFetchResultsKeepsErrorFields(t *testing.T) {
	vendor := &fakeVendor{
		t:        t,
		statuses: []Status{StatusSucceeded},
		items:    `[{"#error":true,"#debug":{"url":"https://www.instagram.com/ghost/"},"username":"ghost"},{"username":"nasa","followersCount":20}]`,
	}
	invoker, cleanup := newTestInvoker(t, vendor, 5*time.Second)
	defer cleanup()

	records, err := invoker.Run(context.Background(), "apify/instagram-profile-scraper", map[string]any{})
	require.NoError(t, err)
	require.Len(t, records, 2)
	require.Equal(t, true, records[0]["#error"])
	require.Contains(t, records[0], "#debug")
}
