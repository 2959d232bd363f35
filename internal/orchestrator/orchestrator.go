// Package orchestrator runs a full sync: it reads the tracked profiles, fans them out to a
// collector per platform, persists what came back and gives retryable failures one more
// attempt through the platform's backup collector.
package orchestrator

import (
	"context"
	"fmt"
	"socialsync-backend/internal/components/assert"
	"socialsync-backend/internal/components/chrono"
	"socialsync-backend/internal/components/telemetry"
	"socialsync-backend/internal/outcome"
	"socialsync-backend/internal/platform"
	"socialsync-backend/internal/store"

	"github.com/google/uuid"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/metric"
	"golang.org/x/sync/errgroup"
)

var (
	tracer = otel.Tracer("socialsync/orchestrator")
	meter  = otel.Meter("socialsync/orchestrator")
)

const (
	report_sync          = "orchestrator.sync"
	report_sync_persist  = "orchestrator.persist"
	report_sync_audit    = "orchestrator.audit"
	report_sync_retry    = "orchestrator.retry"
	report_sync_outcomes = "orchestrator.outcomes"
)

// Storage is the part of store.Store a sync needs.
//
// note: fault injection point
type Storage interface {
	ListProfiles(ctx context.Context, filter store.Filter) ([]platform.Profile, error)
	UpsertMetricPoint(ctx context.Context, point store.MetricPoint) error
	AppendSyncLog(ctx context.Context, entry store.SyncLog) error
}

type Options struct {
	Storage Storage
	// Collectors is the primary collection path per platform, a platform without one
	// fails with no_actor.
	Collectors map[platform.Platform]Collector
	// Backups is used for the retry pass.
	Backups map[platform.Platform]Collector
	// Concurrency caps the number of platforms collected at once, unlimited when zero.
	Concurrency int
	Clock       chrono.API
}

// Result summarizes a run. Failed is Total minus Success.
type Result struct {
	RunID     string
	Date      string
	Success   int
	Failed    int
	Total     int
	Retryable []outcome.RetryCandidate
	// Failures are the profiles that still failed after the retry pass.
	Failures []outcome.Outcome
}

type Orchestrator struct {
	storage     Storage
	collectors  map[platform.Platform]Collector
	backups     map[platform.Platform]Collector
	concurrency int
	clock       chrono.API

	outcomes metric.Int64Counter
	tel      telemetry.API
}

func NewOrchestrator(opts Options, tel telemetry.API) *Orchestrator {
	assert.NotNil(opts.Storage)
	assert.NotNil(opts.Clock)
	assert.NotNil(tel)

	outcomes, err := meter.Int64Counter(
		"sync.outcomes",
		metric.WithDescription("profile outcomes by platform, status and code"),
	)
	if err != nil {
		tel.ReportBroken(report_sync, fmt.Errorf("create counter: %w", err))
	}

	collectors := opts.Collectors
	if collectors == nil {
		collectors = map[platform.Platform]Collector{}
	}
	backups := opts.Backups
	if backups == nil {
		backups = map[platform.Platform]Collector{}
	}

	return &Orchestrator{
		storage:     opts.Storage,
		collectors:  collectors,
		backups:     backups,
		concurrency: opts.Concurrency,
		clock:       opts.Clock,
		outcomes:    outcomes,
		tel:         telemetry.NewScopedAPI("orchestrator", tel),
	}
}

// SyncAllProfiles collects every profile matching filter and stores today's point for each
// success. Re-running it on the same day overwrites that day's points instead of adding
// new ones. The only error returned is a failure to read the profiles, everything after that
// is reported per profile in the Result.
func (o *Orchestrator) SyncAllProfiles(ctx context.Context, filter store.Filter) (Result, error) {
	ctx, span := tracer.Start(ctx, "Orchestrator.SyncAllProfiles")
	defer span.End()

	profiles, err := o.storage.ListProfiles(ctx, filter)
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, "list profiles")
		return Result{}, fmt.Errorf("sync: %w", err)
	}

	result := Result{
		RunID: uuid.NewString(),
		Date:  chrono.Today(o.clock),
		Total: len(profiles),
	}
	span.SetAttributes(
		attribute.String("run_id", result.RunID),
		attribute.Int("profiles", len(profiles)),
	)

	order, partitions := partition(profiles)
	collected := o.collect(ctx, result, order, partitions)

	// writes must land even when the run itself was cancelled
	persistCtx := context.WithoutCancel(ctx)

	var failed []outcome.Outcome
	for i, p := range order {
		for _, out := range collected[i] {
			out = o.persist(persistCtx, result.RunID, 1, out)
			o.count(ctx, p, out)
			if out.OK() {
				result.Success++
				continue
			}
			failed = append(failed, out)
			if out.Code.Retryable() {
				result.Retryable = append(result.Retryable, outcome.NewRetryCandidate(out, 1))
			}
		}
	}
	result.Failed = result.Total - result.Success

	failed = o.retry(ctx, persistCtx, &result, failed)
	result.Failures = failed

	span.SetAttributes(
		attribute.Int("success", result.Success),
		attribute.Int("failed", result.Failed),
	)
	o.tel.ReportCount(report_sync_outcomes, int64(result.Success))
	o.tel.ReportDebug(
		"sync finished",
		telemetry.KV{Key: "run_id", Value: result.RunID},
		telemetry.KV{Key: "success", Value: result.Success},
		telemetry.KV{Key: "failed", Value: result.Failed},
		telemetry.KV{Key: "total", Value: result.Total},
	)
	return result, nil
}

// partition groups profiles by platform, keeping the order platforms first appear in.
func partition(profiles []platform.Profile) ([]platform.Platform, map[platform.Platform][]platform.Profile) {
	var order []platform.Platform
	partitions := map[platform.Platform][]platform.Profile{}
	for _, p := range profiles {
		if _, ok := partitions[p.Platform]; !ok {
			order = append(order, p.Platform)
		}
		partitions[p.Platform] = append(partitions[p.Platform], p)
	}
	return order, partitions
}

// collect runs each platform partition in its own goroutine. Every goroutine only writes
// its own slot of the returned slice.
func (o *Orchestrator) collect(
	ctx context.Context,
	result Result,
	order []platform.Platform,
	partitions map[platform.Platform][]platform.Profile,
) [][]outcome.Outcome {
	collected := make([][]outcome.Outcome, len(order))

	g := &errgroup.Group{}
	if o.concurrency > 0 {
		g.SetLimit(o.concurrency)
	}
	for i, p := range order {
		batch := Batch{
			RunID:    result.RunID,
			Date:     result.Date,
			Platform: p,
			Profiles: partitions[p],
		}
		g.Go(func() error {
			collected[i] = o.collectPartition(ctx, batch)
			return nil
		})
	}
	_ = g.Wait()
	return collected
}

func (o *Orchestrator) collectPartition(ctx context.Context, batch Batch) []outcome.Outcome {
	ctx, span := tracer.Start(ctx, "Orchestrator.collectPartition")
	defer span.End()
	span.SetAttributes(
		attribute.String("platform", string(batch.Platform)),
		attribute.Int("profiles", len(batch.Profiles)),
	)

	collector, ok := o.collectors[batch.Platform]
	if !ok {
		out := make([]outcome.Outcome, len(batch.Profiles))
		for i, p := range batch.Profiles {
			out[i] = outcome.Failure(p, outcome.CodeNoActor, fmt.Sprintf("no collector configured for %s", batch.Platform))
		}
		return out
	}
	return complete(batch.Profiles, safeCollect(ctx, collector, batch))
}

// safeCollect keeps a panicking collector from taking the other partitions down with it.
func safeCollect(ctx context.Context, collector Collector, batch Batch) (out []outcome.Outcome) {
	defer func() {
		if r := recover(); r != nil {
			out = failAll(batch.Profiles, outcome.Errorf(outcome.CodeError, "collector panicked: %v", r))
		}
	}()
	return collector.Collect(ctx, batch)
}

// complete makes sure there is exactly one outcome per requested profile.
func complete(profiles []platform.Profile, outcomes []outcome.Outcome) []outcome.Outcome {
	byID := make(map[int64]outcome.Outcome, len(outcomes))
	for _, out := range outcomes {
		if _, exists := byID[out.Profile.ID]; !exists {
			byID[out.Profile.ID] = out
		}
	}
	completed := make([]outcome.Outcome, len(profiles))
	for i, p := range profiles {
		out, ok := byID[p.ID]
		if !ok {
			out = outcome.Failure(p, outcome.CodeError, "collector returned no outcome for this profile")
		}
		completed[i] = out
	}
	return completed
}

// persist writes the audit row and, for a success, its points. A failed upsert turns the
// outcome into an error.
func (o *Orchestrator) persist(ctx context.Context, runID string, attempt int, out outcome.Outcome) outcome.Outcome {
	if out.OK() {
		for _, point := range out.Points {
			err := o.storage.UpsertMetricPoint(ctx, store.MetricPoint{
				SocialProfileID: out.Profile.ID,
				Date:            point.Date,
				FollowersCount:  point.Followers,
				PostsCount:      point.Posts,
			})
			if err != nil {
				o.tel.ReportBroken(report_sync_persist, err, telemetry.KV{Key: "profile_id", Value: out.Profile.ID})
				out = outcome.Failure(out.Profile, outcome.CodeError, fmt.Sprintf("store metric point: %s", err.Error()))
				break
			}
		}
	}

	entry := store.SyncLog{
		RunID:           runID,
		SocialProfileID: out.Profile.ID,
		Platform:        out.Profile.Platform,
		Attempt:         attempt,
		Status:          out.Status,
		Code:            out.Code,
		Message:         out.Message,
	}
	if out.OK() && len(out.Points) > 0 {
		last := out.Points[len(out.Points)-1]
		entry.Followers = &last.Followers
		entry.Posts = &last.Posts
	}
	err := o.storage.AppendSyncLog(ctx, entry)
	if err != nil {
		o.tel.ReportBroken(report_sync_audit, err, telemetry.KV{Key: "profile_id", Value: out.Profile.ID})
	}
	return out
}

// retry gives the retry candidates a second attempt through their platform's backup collector
// and returns the outcomes that are still failed.
func (o *Orchestrator) retry(ctx, persistCtx context.Context, result *Result, failed []outcome.Outcome) []outcome.Outcome {
	retryable := map[int64]bool{}
	for _, candidate := range result.Retryable {
		retryable[candidate.ProfileID] = true
	}

	var order []platform.Platform
	partitions := map[platform.Platform][]platform.Profile{}
	for _, out := range failed {
		p := out.Profile.Platform
		if !retryable[out.Profile.ID] {
			continue
		}
		if _, ok := o.backups[p]; !ok {
			continue
		}
		if _, ok := partitions[p]; !ok {
			order = append(order, p)
		}
		partitions[p] = append(partitions[p], out.Profile)
	}
	if len(order) == 0 {
		return failed
	}

	ctx, span := tracer.Start(ctx, "Orchestrator.retry")
	defer span.End()

	second := map[int64]outcome.Outcome{}
	for _, p := range order {
		batch := Batch{
			RunID:    result.RunID,
			Date:     result.Date,
			Platform: p,
			Profiles: partitions[p],
		}
		outcomes := complete(batch.Profiles, safeCollect(ctx, o.backups[p], batch))
		for _, out := range outcomes {
			second[out.Profile.ID] = o.persist(persistCtx, result.RunID, 2, out)
		}
	}

	var remaining []outcome.Outcome
	for _, first := range failed {
		out, retried := second[first.Profile.ID]
		if !retried {
			remaining = append(remaining, first)
			continue
		}
		o.count(ctx, first.Profile.Platform, out)
		if out.OK() {
			result.Success++
			result.Failed--
			continue
		}
		o.tel.ReportWarning(
			report_sync_retry,
			telemetry.KV{Key: "profile_id", Value: first.Profile.ID},
			telemetry.KV{Key: "code", Value: out.Code},
		)
		first.Message = fmt.Sprintf("%s; retry: %s", first.Message, out.Message)
		remaining = append(remaining, first)
	}
	span.SetAttributes(attribute.Int("retried", len(second)))
	return remaining
}

func (o *Orchestrator) count(ctx context.Context, p platform.Platform, out outcome.Outcome) {
	if o.outcomes == nil {
		return
	}
	o.outcomes.Add(ctx, 1, metric.WithAttributes(
		attribute.String("platform", string(p)),
		attribute.String("status", string(out.Status)),
		attribute.String("code", string(out.Code)),
	))
}
