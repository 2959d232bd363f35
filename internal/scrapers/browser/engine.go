// Package browser renders profile pages and extracts follower/post counts from them.
//
// Per profile the engine goes through launch/navigate -> settle -> structured probe ->
// text fallback -> emit. A page is opened per attempt and is always closed before the
// attempt returns.
package browser

import (
	"context"
	"errors"
	"fmt"
	"socialsync-backend/internal/components/assert"
	"socialsync-backend/internal/components/telemetry"
	"socialsync-backend/internal/extract"
	"socialsync-backend/internal/outcome"
	"socialsync-backend/internal/platform"
	"strings"
	"time"

	"github.com/failsafe-go/failsafe-go"
	"github.com/failsafe-go/failsafe-go/retrypolicy"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/metric"
)

var (
	tracer = otel.Tracer("socialsync/scrapers/browser")
	meter  = otel.Meter("socialsync/scrapers/browser")
)

const (
	report_engine_extract = "engine.extract"
	report_engine_page    = "engine.page"
)

type Timeouts struct {
	Navigation time.Duration
	Idle       time.Duration
}

var DefaultTimeouts = map[platform.Platform]Timeouts{
	platform.Instagram: {Navigation: 45 * time.Second, Idle: 10 * time.Second},
	platform.TikTok:    {Navigation: 60 * time.Second, Idle: 15 * time.Second},
	platform.Twitter:   {Navigation: 45 * time.Second, Idle: 15 * time.Second},
	platform.YouTube:   {Navigation: 30 * time.Second, Idle: 10 * time.Second},
	platform.Facebook:  {Navigation: 45 * time.Second, Idle: 10 * time.Second},
}

var fallbackTimeouts = Timeouts{Navigation: 30 * time.Second, Idle: 10 * time.Second}

type Options struct {
	Runtime Runtime
	// Timeouts overrides DefaultTimeouts per platform.
	Timeouts map[platform.Platform]Timeouts
	// Retries is the number of extra attempts after a failed one, 2 when zero.
	Retries    int
	RetryDelay time.Duration
}

// Extraction is the result for one profile.
type Extraction struct {
	Profile   platform.Profile
	OK        bool
	Followers int64
	Posts     int64
	// Strategy names the strategy that produced the follower count.
	Strategy string
	Attempts int
	Code     outcome.Code
	Message  string
}

// Outcome converts the extraction into a single-day outcome.
func (e Extraction) Outcome(date string) outcome.Outcome {
	if !e.OK {
		return outcome.Failure(e.Profile, e.Code, e.Message)
	}
	return outcome.Success(e.Profile, outcome.Point{
		Date:      date,
		Followers: e.Followers,
		Posts:     e.Posts,
	})
}

// Engine extracts one profile at a time, callers that need parallelism use one engine
// per partition.
type Engine struct {
	runtime    Runtime
	timeouts   map[platform.Platform]Timeouts
	retries    int
	retryDelay time.Duration

	extractions metric.Int64Counter
	tel         telemetry.API
}

func NewEngine(opts Options, tel telemetry.API) *Engine {
	assert.NotNil(opts.Runtime)
	assert.NotNil(tel)

	timeouts := make(map[platform.Platform]Timeouts, len(DefaultTimeouts))
	for p, t := range DefaultTimeouts {
		timeouts[p] = t
	}
	for p, t := range opts.Timeouts {
		current := timeouts[p]
		if t.Navigation > 0 {
			current.Navigation = t.Navigation
		}
		if t.Idle > 0 {
			current.Idle = t.Idle
		}
		timeouts[p] = current
	}

	retries := opts.Retries
	if retries <= 0 {
		retries = 2
	}
	retryDelay := opts.RetryDelay
	if retryDelay <= 0 {
		retryDelay = 2 * time.Second
	}

	extractions, err := meter.Int64Counter(
		"browser.extractions",
		metric.WithDescription("profile page extractions by platform and result code"),
	)
	if err != nil {
		tel.ReportBroken(report_engine_extract, fmt.Errorf("create counter: %w", err))
	}

	return &Engine{
		runtime:     opts.Runtime,
		timeouts:    timeouts,
		retries:     retries,
		retryDelay:  retryDelay,
		extractions: extractions,
		tel:         telemetry.NewScopedAPI("browser", tel),
	}
}

func (e *Engine) timeoutsFor(p platform.Platform) Timeouts {
	t, ok := e.timeouts[p]
	if !ok {
		return fallbackTimeouts
	}
	return t
}

// Extract never returns an error, failures are classified into the extraction.
func (e *Engine) Extract(ctx context.Context, profile platform.Profile) Extraction {
	ctx, span := tracer.Start(ctx, "Engine.Extract")
	defer span.End()
	span.SetAttributes(
		attribute.String("platform", string(profile.Platform)),
		attribute.String("handle", profile.Handle),
	)

	attempts := 0
	var lastErr error
	policy := retrypolicy.NewBuilder[extract.Result]().
		HandleIf(func(_ extract.Result, err error) bool {
			return err != nil && shouldRetry(ctx, err)
		}).
		WithMaxRetries(e.retries).
		WithDelay(e.retryDelay).
		Build()

	res, err := failsafe.With[extract.Result](policy).
		WithContext(ctx).
		Get(func() (extract.Result, error) {
			attempts++
			r, err := e.attempt(ctx, profile)
			if err != nil {
				lastErr = err
				e.tel.ReportDebug(
					"attempt failed",
					telemetry.KV{Key: "handle", Value: profile.Handle},
					telemetry.KV{Key: "attempt", Value: attempts},
					telemetry.KV{Key: "err", Value: err},
				)
			}
			return r, err
		})

	extraction := Extraction{Profile: profile, Attempts: attempts}
	if err != nil {
		if lastErr != nil {
			err = lastErr
		}
		span.RecordError(err)
		span.SetStatus(codes.Error, "extraction failed")

		extraction.Code = outcome.Classify(err)
		extraction.Message = err.Error()
		e.count(ctx, profile.Platform, extraction.Code)
		return extraction
	}

	extraction.OK = true
	extraction.Followers = res.Followers
	extraction.Posts = res.Posts
	extraction.Strategy = res.FollowersFrom
	span.SetAttributes(
		attribute.Int64("followers", res.Followers),
		attribute.String("strategy", res.FollowersFrom),
	)
	e.count(ctx, profile.Platform, "")
	return extraction
}

func (e *Engine) count(ctx context.Context, p platform.Platform, code outcome.Code) {
	if e.extractions == nil {
		return
	}
	result := "ok"
	if code != "" {
		result = string(code)
	}
	e.extractions.Add(ctx, 1, metric.WithAttributes(
		attribute.String("platform", string(p)),
		attribute.String("result", result),
	))
}

func shouldRetry(ctx context.Context, err error) bool {
	if ctx.Err() != nil {
		return false
	}
	return outcome.Classify(err) != outcome.CodeNotFound
}

func (e *Engine) attempt(ctx context.Context, profile platform.Profile) (extract.Result, error) {
	timeouts := e.timeoutsFor(profile.Platform)

	page, err := e.runtime.OpenPage(ctx)
	if err != nil {
		return extract.Result{}, fmt.Errorf("open page: %w", err)
	}
	defer func() {
		if err := page.Close(); err != nil {
			e.tel.ReportWarning(report_engine_page, fmt.Errorf("close page: %w", err))
		}
	}()

	url := profile.CanonicalURL()
	navCtx, cancel := context.WithTimeout(ctx, timeouts.Navigation)
	err = page.Navigate(navCtx, url)
	cancel()
	if err != nil {
		return extract.Result{}, err
	}

	// pages that keep polling never go idle, that is not a failure
	err = page.WaitNetworkIdle(ctx, timeouts.Idle)
	if err != nil {
		if ctx.Err() != nil {
			return extract.Result{}, ctx.Err()
		}
		e.tel.ReportDebug("network idle wait ended", telemetry.KV{Key: "url", Value: url}, telemetry.KV{Key: "err", Value: err})
	}

	html, err := page.Content(ctx)
	if err != nil {
		return extract.Result{}, fmt.Errorf("read content: %w", err)
	}

	probe := extract.ProbeFor(profile.Platform)
	structured := ""
	if probe.Script != "" {
		structured, err = page.Evaluate(ctx, probe.Script)
		if err != nil && !errors.Is(err, ErrEvaluateUnsupported) {
			e.tel.ReportDebug("probe script failed", telemetry.KV{Key: "url", Value: url}, telemetry.KV{Key: "err", Value: err})
		}
	}

	src := extract.NewSource(ctx, profile.Platform, structured, html)
	if src.Structured == "" {
		src.Structured = src.ProbeHTML(probe)
	}

	res, ok := extract.Run(src, extract.Strategies(profile.Platform))
	if ok {
		return res, nil
	}
	if code, marker := detectWall(src.Text()); code != "" {
		return extract.Result{}, outcome.Errorf(code, "%s: page shows '%s'", url, marker)
	}
	return extract.Result{}, outcome.Errorf(outcome.CodeParseError, "%s: no follower count found", url)
}

var wallMarkers = []struct {
	code    outcome.Code
	markers []string
}{
	{outcome.CodeCaptcha, []string{"captcha", "verify you are human", "are you a robot", "security check"}},
	{outcome.CodeNotFound, []string{
		"this page isn't available",
		"couldn't find this account",
		"this account doesn't exist",
		"this channel does not exist",
		"página não está disponível",
	}},
	{outcome.CodeRateLimit, []string{"too many requests", "please wait a few minutes"}},
	{outcome.CodeBlocked, []string{"log in to continue", "sign in to continue", "login • instagram", "you must log in", "log into facebook"}},
}

// detectWall recognizes the interstitials platforms serve instead of a profile.
func detectWall(text string) (outcome.Code, string) {
	lower := strings.ToLower(text)
	for _, w := range wallMarkers {
		for _, m := range w.markers {
			if strings.Contains(lower, m) {
				return w.code, m
			}
		}
	}
	return "", ""
}
