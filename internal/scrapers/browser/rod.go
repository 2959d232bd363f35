package browser

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/go-rod/rod"
	"github.com/go-rod/rod/lib/launcher"
	"github.com/go-rod/rod/lib/proto"
	"github.com/go-rod/stealth"
)

// blockedResourceTypes are never fetched, counts live in the document and its scripts.
var blockedResourceTypes = []proto.NetworkResourceType{
	proto.NetworkResourceTypeImage,
	proto.NetworkResourceTypeFont,
	proto.NetworkResourceTypeStylesheet,
	proto.NetworkResourceTypeMedia,
}

type RodOptions struct {
	// Bin is the chromium binary, when empty rod looks one up (or downloads it).
	Bin       string
	Headless  bool
	UserAgent string
}

// RodRuntime drives a headless chromium through the devtools protocol.
type RodRuntime struct {
	launcher  *launcher.Launcher
	browser   *rod.Browser
	userAgent string
}

func NewRodRuntime(opts RodOptions) (*RodRuntime, error) {
	l := launcher.New().
		Headless(opts.Headless).
		Set("disable-gpu").
		Set("no-sandbox").
		Set("disable-dev-shm-usage").
		Set("window-size", "1366,768")
	if opts.Bin != "" {
		l = l.Bin(opts.Bin)
	}
	u, err := l.Launch()
	if err != nil {
		return nil, fmt.Errorf("launch headless browser: %w", err)
	}

	browser := rod.New().ControlURL(u)
	if err := browser.Connect(); err != nil {
		l.Kill()
		return nil, fmt.Errorf("connect to headless browser: %w", err)
	}

	userAgent := opts.UserAgent
	if userAgent == "" {
		userAgent = defaultUserAgent
	}
	return &RodRuntime{launcher: l, browser: browser, userAgent: userAgent}, nil
}

func (r *RodRuntime) OpenPage(ctx context.Context) (Page, error) {
	page, err := stealth.Page(r.browser)
	if err != nil {
		return nil, fmt.Errorf("create tab: %w", err)
	}

	err = page.Context(ctx).SetUserAgent(&proto.NetworkSetUserAgentOverride{
		UserAgent:      r.userAgent,
		AcceptLanguage: "en-US,en;q=0.9",
	})
	if err != nil {
		_ = page.Close()
		return nil, fmt.Errorf("set user agent: %w", err)
	}
	err = page.Context(ctx).SetViewport(&proto.EmulationSetDeviceMetricsOverride{
		Width:             1366,
		Height:            768,
		DeviceScaleFactor: 1,
	})
	if err != nil {
		_ = page.Close()
		return nil, fmt.Errorf("set viewport: %w", err)
	}

	router := page.HijackRequests()
	for _, rt := range blockedResourceTypes {
		err = router.Add("*", rt, func(h *rod.Hijack) {
			h.Response.Fail(proto.NetworkErrorReasonBlockedByClient)
		})
		if err != nil {
			_ = page.Close()
			return nil, fmt.Errorf("block resources: %w", err)
		}
	}
	go router.Run()

	return &rodPage{page: page, router: router}, nil
}

func (r *RodRuntime) Close() error {
	err := r.browser.Close()
	r.launcher.Kill()
	return err
}

type rodPage struct {
	page   *rod.Page
	router *rod.HijackRouter
}

func (p *rodPage) Navigate(ctx context.Context, url string) error {
	page := p.page.Context(ctx)
	if err := page.Navigate(url); err != nil {
		return fmt.Errorf("navigate to %s: %w", url, err)
	}
	if err := page.WaitLoad(); err != nil {
		return fmt.Errorf("wait load %s: %w", url, err)
	}
	return nil
}

func (p *rodPage) WaitNetworkIdle(ctx context.Context, timeout time.Duration) error {
	waitCtx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()
	wait := p.page.Context(waitCtx).WaitRequestIdle(500*time.Millisecond, nil, nil, nil)
	wait()
	return waitCtx.Err()
}

func (p *rodPage) Evaluate(ctx context.Context, script string) (string, error) {
	res, err := p.page.Context(ctx).Eval(script)
	if err != nil {
		return "", err
	}
	return res.Value.Str(), nil
}

func (p *rodPage) Content(ctx context.Context) (string, error) {
	return p.page.Context(ctx).HTML()
}

func (p *rodPage) Close() error {
	return errors.Join(p.router.Stop(), p.page.Close())
}
