package browser

import (
	"context"
	"errors"
	"time"
)

// ErrEvaluateUnsupported is returned by pages that cannot run scripts.
var ErrEvaluateUnsupported = errors.New("page cannot evaluate scripts")

// Runtime opens pages, a real browser or anything that can pretend to be one.
//
// note: fault injection point
type Runtime interface {
	OpenPage(ctx context.Context) (Page, error)
}

// Page is a single tab. Close must be safe to call after any failure.
type Page interface {
	Navigate(ctx context.Context, url string) error
	// WaitNetworkIdle blocks until the page stops making requests or the timeout elapses.
	WaitNetworkIdle(ctx context.Context, timeout time.Duration) error
	// Evaluate runs a js function in the page and returns its result as a string.
	Evaluate(ctx context.Context, script string) (string, error)
	Content(ctx context.Context) (string, error)
	Close() error
}

const defaultUserAgent = "Mozilla/5.0 (Windows NT 10.0; Win64; x64) AppleWebKit/537.36 (KHTML, like Gecko) Chrome/126.0.0.0 Safari/537.36"
