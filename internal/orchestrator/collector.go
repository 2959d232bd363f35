package orchestrator

import (
	"context"
	"fmt"
	"socialsync-backend/internal/adapters"
	"socialsync-backend/internal/archive"
	"socialsync-backend/internal/components/assert"
	"socialsync-backend/internal/components/telemetry"
	"socialsync-backend/internal/outcome"
	"socialsync-backend/internal/platform"
	"socialsync-backend/internal/reconcile"
	"socialsync-backend/internal/scrapers/browser"
	"strings"
	"time"
)

const (
	report_collector_archive = "collector.archive"
)

// Batch is the set of same-platform profiles handed to a collector in one call.
type Batch struct {
	RunID    string
	Date     string
	Platform platform.Platform
	Profiles []platform.Profile
}

// Collector turns a batch into exactly one outcome per profile. It never returns an error,
// failures are per-profile outcomes.
//
// note: fault injection point
type Collector interface {
	Collect(ctx context.Context, batch Batch) []outcome.Outcome
}

// Runner is satisfied by *jobs.Invoker.
type Runner interface {
	Run(ctx context.Context, actorID string, input map[string]any) ([]map[string]any, error)
}

// Extractor is satisfied by *browser.Engine.
type Extractor interface {
	Extract(ctx context.Context, profile platform.Profile) browser.Extraction
}

type JobCollectorOptions struct {
	Actor   string
	Adapter adapters.Adapter
	Runner  Runner
	Archive archive.Archive
	// Isolate runs the actor once per profile instead of once per batch.
	Isolate bool
	// Delay is waited between isolated runs.
	Delay time.Duration
}

// JobCollector collects a platform through a vendor actor.
type JobCollector struct {
	actor   string
	adapter adapters.Adapter
	runner  Runner
	archive archive.Archive
	isolate bool
	delay   time.Duration
	tel     telemetry.API
}

func NewJobCollector(opts JobCollectorOptions, tel telemetry.API) JobCollector {
	assert.NotNil(opts.Adapter)
	assert.NotNil(opts.Runner)
	assert.NotNil(tel)

	arch := opts.Archive
	if arch == nil {
		arch = archive.Discard{}
	}
	return JobCollector{
		actor:   opts.Actor,
		adapter: opts.Adapter,
		runner:  opts.Runner,
		archive: arch,
		isolate: opts.Isolate,
		delay:   opts.Delay,
		tel:     telemetry.NewScopedAPI("orchestrator", tel),
	}
}

func (c JobCollector) Collect(ctx context.Context, batch Batch) []outcome.Outcome {
	if !c.isolate {
		return c.collect(ctx, batch, batch.Profiles, "batch")
	}

	out := make([]outcome.Outcome, 0, len(batch.Profiles))
	for i, profile := range batch.Profiles {
		if i > 0 && c.delay > 0 {
			select {
			case <-ctx.Done():
			case <-time.After(c.delay):
			}
		}
		single := []platform.Profile{profile}
		out = append(out, c.collect(ctx, batch, single, platform.NormalizeHandle(profile.Handle))...)
	}
	return out
}

func (c JobCollector) collect(ctx context.Context, batch Batch, profiles []platform.Profile, part string) []outcome.Outcome {
	if err := ctx.Err(); err != nil {
		return failAll(profiles, outcome.Errorf(outcome.CodeTimeout, "sync cancelled before the actor ran: %w", err))
	}

	input := c.adapter.BuildJobInput(platform.Identities(profiles))
	records, err := c.runner.Run(ctx, c.actor, input)
	if err != nil {
		return failAll(profiles, err)
	}

	key := archive.Key(batch.Platform, batch.Date, batch.RunID, fmt.Sprintf("%s-%s", actorSlug.Replace(c.actor), part))
	// the raw archive is best effort, losing it does not fail the profiles
	err = archive.PutRecords(context.WithoutCancel(ctx), c.archive, key, records)
	if err != nil {
		c.tel.ReportWarning(report_collector_archive, err)
	}

	return reconcile.Reconcile(c.adapter, profiles, records, batch.Date)
}

var actorSlug = strings.NewReplacer("/", "_", "~", "_")

// BrowserCollector renders every profile page in turn.
type BrowserCollector struct {
	extractor Extractor
}

func NewBrowserCollector(extractor Extractor) BrowserCollector {
	assert.NotNil(extractor)
	return BrowserCollector{extractor: extractor}
}

func (c BrowserCollector) Collect(ctx context.Context, batch Batch) []outcome.Outcome {
	out := make([]outcome.Outcome, len(batch.Profiles))
	for i, profile := range batch.Profiles {
		out[i] = c.extractor.Extract(ctx, profile).Outcome(batch.Date)
	}
	return out
}

func failAll(profiles []platform.Profile, err error) []outcome.Outcome {
	out := make([]outcome.Outcome, len(profiles))
	for i, p := range profiles {
		out[i] = outcome.FromError(p, err)
	}
	return out
}
