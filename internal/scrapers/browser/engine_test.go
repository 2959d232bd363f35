package browser

import (
	"context"
	"fmt"
	"net/http"
	"net/http/httptest"
	"socialsync-backend/internal/components/telemetry"
	"socialsync-backend/internal/outcome"
	"socialsync-backend/internal/platform"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

// scriptedAttempt is what one opened page does.
type scriptedAttempt struct {
	navigateErr error
	idleErr     error
	structured  string
	html        string
}

type fakeRuntime struct {
	mu       sync.Mutex
	attempts []scriptedAttempt
	opened   int
	closed   int
	urls     []string
}

func (r *fakeRuntime) OpenPage(ctx context.Context) (Page, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if len(r.attempts) == 0 {
		return nil, fmt.Errorf("no more scripted pages")
	}
	// the last scripted attempt repeats forever
	a := r.attempts[0]
	if len(r.attempts) > 1 {
		r.attempts = r.attempts[1:]
	}
	r.opened++
	return &fakePage{runtime: r, attempt: a}, nil
}

type fakePage struct {
	runtime *fakeRuntime
	attempt scriptedAttempt
}

func (p *fakePage) Navigate(ctx context.Context, url string) error {
	p.runtime.mu.Lock()
	p.runtime.urls = append(p.runtime.urls, url)
	p.runtime.mu.Unlock()
	return p.attempt.navigateErr
}

func (p *fakePage) WaitNetworkIdle(ctx context.Context, timeout time.Duration) error {
	return p.attempt.idleErr
}

func (p *fakePage) Evaluate(ctx context.Context, script string) (string, error) {
	if p.attempt.structured == "" {
		return "", ErrEvaluateUnsupported
	}
	return p.attempt.structured, nil
}

func (p *fakePage) Content(ctx context.Context) (string, error) {
	return p.attempt.html, nil
}

func (p *fakePage) Close() error {
	p.runtime.mu.Lock()
	p.runtime.closed++
	p.runtime.mu.Unlock()
	return nil
}

func newTestEngine(t *testing.T, runtime Runtime) *Engine {
	return NewEngine(Options{
		Runtime:    runtime,
		RetryDelay: time.Millisecond,
	}, telemetry.NewTestAPI(t))
}

const subscribersPage = `<html><body><div id="channel-header"><span>@natgeo</span><span>12.3K subscribers</span></div></body></html>`

func TestExtract(t *testing.T) {
	table := []struct {
		name      string
		profile   platform.Profile
		attempts  []scriptedAttempt
		ok        bool
		followers int64
		code      outcome.Code
		opened    int
	}{
		{
			name:      "text fallback",
			profile:   platform.Profile{Platform: platform.YouTube, Handle: "natgeo"},
			attempts:  []scriptedAttempt{{html: subscribersPage}},
			ok:        true,
			followers: 12_300,
			opened:    1,
		},
		{
			name:    "idle timeout is not fatal",
			profile: platform.Profile{Platform: platform.YouTube, Handle: "natgeo"},
			attempts: []scriptedAttempt{
				{idleErr: context.DeadlineExceeded, html: subscribersPage},
			},
			ok:        true,
			followers: 12_300,
			opened:    1,
		},
		{
			name:    "structured probe",
			profile: platform.Profile{Platform: platform.TikTok, Handle: "khaby.lame"},
			attempts: []scriptedAttempt{{
				structured: `{"userInfo":{"stats":{"followerCount":162100000,"videoCount":1290}}}`,
				html:       `<html><body></body></html>`,
			}},
			ok:        true,
			followers: 162_100_000,
			opened:    1,
		},
		{
			name:    "navigation timeout then success",
			profile: platform.Profile{Platform: platform.YouTube, Handle: "natgeo"},
			attempts: []scriptedAttempt{
				{navigateErr: fmt.Errorf("navigate: %w", context.DeadlineExceeded)},
				{html: subscribersPage},
			},
			ok:        true,
			followers: 12_300,
			opened:    2,
		},
		{
			name:     "persistent timeout",
			profile:  platform.Profile{Platform: platform.Instagram, Handle: "natgeo"},
			attempts: []scriptedAttempt{{navigateErr: fmt.Errorf("navigate: %w", context.DeadlineExceeded)}},
			code:     outcome.CodeTimeout,
			opened:   3,
		},
		{
			name:     "captcha wall",
			profile:  platform.Profile{Platform: platform.TikTok, Handle: "someone"},
			attempts: []scriptedAttempt{{html: `<html><body><h1>Verify you are human</h1><div>Drag the slider</div></body></html>`}},
			code:     outcome.CodeCaptcha,
			opened:   3,
		},
		{
			name:     "no count on page",
			profile:  platform.Profile{Platform: platform.Facebook, Handle: "someone"},
			attempts: []scriptedAttempt{{html: `<html><body><p>Hello</p></body></html>`}},
			code:     outcome.CodeParseError,
			opened:   3,
		},
		{
			name:     "missing account is not retried",
			profile:  platform.Profile{Platform: platform.Instagram, Handle: "gone"},
			attempts: []scriptedAttempt{{html: `<html><body><h2>Sorry, this page isn't available.</h2></body></html>`}},
			code:     outcome.CodeNotFound,
			opened:   1,
		},
	}

	for _, test := range table {
		t.Run(test.name, func(t *testing.T) {
			runtime := &fakeRuntime{attempts: test.attempts}
			engine := newTestEngine(t, runtime)

			extraction := engine.Extract(context.Background(), test.profile)
			require.Equal(t, test.ok, extraction.OK, extraction.Message)
			if test.ok {
				require.Equal(t, test.followers, extraction.Followers)
			} else {
				require.Equal(t, test.code, extraction.Code, extraction.Message)
			}
			require.Equal(t, test.opened, runtime.opened)
			require.Equal(t, runtime.opened, runtime.closed, "every opened page is closed")
			require.Equal(t, test.opened, extraction.Attempts)
		})
	}
}

func TestExtractionOutcome(t *testing.T) {
	profile := platform.Profile{ID: 7, Platform: platform.YouTube, Handle: "natgeo"}

	ok := Extraction{Profile: profile, OK: true, Followers: 12_300, Posts: 4}.Outcome("2024-05-01")
	require.True(t, ok.OK())
	require.Equal(t, []outcome.Point{{Date: "2024-05-01", Followers: 12_300, Posts: 4}}, ok.Points)

	failed := Extraction{Profile: profile, Code: outcome.CodeBlocked, Message: "login wall"}.Outcome("2024-05-01")
	require.False(t, failed.OK())
	require.Equal(t, outcome.CodeBlocked, failed.Code)
}

func TestStaticRuntime(t *testing.T) {
	mux := http.NewServeMux()
	mux.HandleFunc("/@natgeo", func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(subscribersPage))
	})
	mux.HandleFunc("/@busy", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusTooManyRequests)
	})
	mux.HandleFunc("/@gone", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusNotFound)
	})
	server := httptest.NewServer(mux)
	defer server.Close()

	engine := NewEngine(Options{
		Runtime:    NewStaticRuntime("", telemetry.NewTestAPI(t)),
		Retries:    1,
		RetryDelay: time.Millisecond,
	}, telemetry.NewTestAPI(t))

	extraction := engine.Extract(context.Background(), platform.Profile{
		Platform: platform.YouTube,
		Handle:   "natgeo",
		URL:      server.URL + "/@natgeo",
	})
	require.True(t, extraction.OK, extraction.Message)
	require.Equal(t, int64(12_300), extraction.Followers)

	extraction = engine.Extract(context.Background(), platform.Profile{
		Platform: platform.YouTube,
		Handle:   "busy",
		URL:      server.URL + "/@busy",
	})
	require.False(t, extraction.OK)
	require.Equal(t, outcome.CodeRateLimit, extraction.Code)

	extraction = engine.Extract(context.Background(), platform.Profile{
		Platform: platform.YouTube,
		Handle:   "gone",
		URL:      server.URL + "/@gone",
	})
	require.False(t, extraction.OK)
	require.Equal(t, outcome.CodeNotFound, extraction.Code)
	require.Equal(t, 1, extraction.Attempts)
}
