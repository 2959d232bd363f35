package browser

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"socialsync-backend/internal/components/telemetry"
	"socialsync-backend/internal/outcome"
	libtelemetry "socialsync-backend/lib/telemetry"
	"time"

	cloudflarebp "github.com/DaRealFreak/cloudflare-bp-go"
	"github.com/go-resty/resty/v2"
	"golang.org/x/time/rate"
)

// StaticRuntime fetches pages over plain http, it serves server-rendered pages and
// the embedded data of pages that hydrate on the client.
type StaticRuntime struct {
	client *resty.Client
}

func NewStaticRuntime(userAgent string, tel telemetry.API) *StaticRuntime {
	if userAgent == "" {
		userAgent = defaultUserAgent
	}

	client := resty.New()
	client.GetClient().Transport = cloudflarebp.AddCloudFlareByPass(client.GetClient().Transport)
	client.SetHeader("user-agent", userAgent)
	client.SetHeader("accept-language", "en-US,en;q=0.9")
	client.SetTimeout(time.Second * 30)

	// 1 request per second, profile pages are heavily rate limited
	rateLimiter := rate.NewLimiter(1, 1)
	client.OnBeforeRequest(func(_ *resty.Client, req *resty.Request) error {
		return rateLimiter.Wait(req.Context())
	})

	telemetry.InstrumentResty(client, telemetry.NewScopedAPI("static_runtime", tel))
	libtelemetry.TraceResty(client, "socialsync/scrapers/browser/static")

	return &StaticRuntime{client: client}
}

func (r *StaticRuntime) OpenPage(ctx context.Context) (Page, error) {
	return &staticPage{client: r.client}, nil
}

type staticPage struct {
	client *resty.Client
	body   string
	loaded bool
}

func (p *staticPage) Navigate(ctx context.Context, url string) error {
	res, err := p.client.R().
		SetContext(ctx).
		Get(url)
	if err != nil {
		return fmt.Errorf("fetch %s: %w", url, err)
	}
	if err := statusError(res.StatusCode()); err != nil {
		return fmt.Errorf("fetch %s: %w", url, err)
	}
	p.body = res.String()
	p.loaded = true
	return nil
}

func (p *staticPage) WaitNetworkIdle(ctx context.Context, timeout time.Duration) error {
	return nil
}

func (p *staticPage) Evaluate(ctx context.Context, script string) (string, error) {
	return "", ErrEvaluateUnsupported
}

func (p *staticPage) Content(ctx context.Context) (string, error) {
	if !p.loaded {
		return "", errors.New("page was never navigated")
	}
	return p.body, nil
}

func (p *staticPage) Close() error {
	p.body = ""
	return nil
}

func statusError(status int) error {
	switch {
	case status < 400:
		return nil
	case status == http.StatusTooManyRequests:
		return outcome.Errorf(outcome.CodeRateLimit, "http %d", status)
	case status == http.StatusUnauthorized, status == http.StatusForbidden:
		return outcome.Errorf(outcome.CodeBlocked, "http %d", status)
	case status == http.StatusNotFound, status == http.StatusGone:
		return outcome.Errorf(outcome.CodeNotFound, "http %d", status)
	}
	return outcome.Errorf(outcome.CodeError, "http %d", status)
}
