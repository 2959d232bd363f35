// Package jobs runs vendor actors: submit a run, poll it until it reaches a terminal
// status or the deadline passes, then read its dataset in one request.
//
// The invoker keeps no state between calls.
package jobs

import (
	"context"
	"errors"
	"fmt"
	"socialsync-backend/internal/components/assert"
	"socialsync-backend/internal/components/telemetry"
	"socialsync-backend/internal/outcome"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/metric"
)

var (
	tracer = otel.Tracer("socialsync/jobs")
	meter  = otel.Meter("socialsync/jobs")
)

const (
	report_invoker_run  = "invoker.run"
	report_invoker_poll = "invoker.poll"
)

// JobError is a failed run, Status is the last vendor status seen (if any).
type JobError struct {
	Code   outcome.Code
	Status Status
	Err    error
}

func (e *JobError) Error() string {
	if e.Status != "" {
		return fmt.Sprintf("%s (run status %s)", e.Err.Error(), e.Status)
	}
	return e.Err.Error()
}

func (e *JobError) Unwrap() error {
	return e.Err
}

func (e *JobError) OutcomeCode() outcome.Code {
	return e.Code
}

type InvokerOptions struct {
	// PollInterval is 5s when zero.
	PollInterval time.Duration
	// Deadline bounds a whole run including the dataset read, 10m when zero.
	Deadline time.Duration
}

type Invoker struct {
	client       Client
	pollInterval time.Duration
	deadline     time.Duration

	runs metric.Int64Counter
	tel  telemetry.API
}

func NewInvoker(client Client, opts InvokerOptions, tel telemetry.API) *Invoker {
	assert.NotNil(client)
	assert.NotNil(tel)

	pollInterval := opts.PollInterval
	if pollInterval <= 0 {
		pollInterval = 5 * time.Second
	}
	deadline := opts.Deadline
	if deadline <= 0 {
		deadline = 10 * time.Minute
	}

	runs, err := meter.Int64Counter(
		"jobs.runs",
		metric.WithDescription("vendor actor runs by actor and final code"),
	)
	if err != nil {
		tel.ReportBroken(report_invoker_run, fmt.Errorf("create counter: %w", err))
	}

	return &Invoker{
		client:       client,
		pollInterval: pollInterval,
		deadline:     deadline,
		runs:         runs,
		tel:          telemetry.NewScopedAPI("jobs", tel),
	}
}

// Run executes an actor and returns its raw records. Every returned error is a *JobError.
func (i *Invoker) Run(ctx context.Context, actorID string, input map[string]any) ([]map[string]any, error) {
	ctx, span := tracer.Start(ctx, "Invoker.Run")
	defer span.End()
	span.SetAttributes(attribute.String("actor", actorID))

	records, err := i.run(ctx, actorID, input)
	code := "ok"
	if err != nil {
		var jobErr *JobError
		if !errors.As(err, &jobErr) {
			jobErr = &JobError{Code: outcome.Classify(err), Err: err}
		}
		err = jobErr
		code = string(jobErr.Code)

		span.RecordError(err)
		span.SetStatus(codes.Error, "actor run failed")
		i.tel.ReportWarning(
			report_invoker_run,
			err,
			telemetry.KV{Key: "actor", Value: actorID},
			telemetry.KV{Key: "code", Value: jobErr.Code},
		)
	} else {
		span.SetAttributes(attribute.Int("records", len(records)))
	}
	if i.runs != nil {
		i.runs.Add(ctx, 1, metric.WithAttributes(
			attribute.String("actor", actorID),
			attribute.String("code", code),
		))
	}
	return records, err
}

func (i *Invoker) run(ctx context.Context, actorID string, input map[string]any) ([]map[string]any, error) {
	ctx, cancel := context.WithTimeout(ctx, i.deadline)
	defer cancel()

	run, err := i.client.SubmitJob(ctx, actorID, input)
	if err != nil {
		return nil, err
	}
	i.tel.ReportDebug(
		"run submitted",
		telemetry.KV{Key: "actor", Value: actorID},
		telemetry.KV{Key: "run", Value: run.ID},
	)

	ticker := time.NewTicker(i.pollInterval)
	defer ticker.Stop()

	for !run.Status.Terminal() {
		select {
		case <-ctx.Done():
			if errors.Is(ctx.Err(), context.DeadlineExceeded) {
				return nil, &JobError{
					Code:   outcome.CodeTimeout,
					Status: run.Status,
					Err:    fmt.Errorf("run %s of %s did not finish within %s", run.ID, actorID, i.deadline),
				}
			}
			return nil, &JobError{Code: outcome.CodeError, Status: run.Status, Err: ctx.Err()}
		case <-ticker.C:
		}

		next, err := i.client.GetJobStatus(ctx, run.ID)
		if err != nil {
			// a failed poll does not fail the run, the deadline bounds retries
			i.tel.ReportWarning(report_invoker_poll, err, telemetry.KV{Key: "run", Value: run.ID})
			continue
		}
		next.ID = run.ID
		run = next
	}

	switch run.Status {
	case StatusSucceeded:
	case StatusTimedOut:
		return nil, &JobError{
			Code:   outcome.CodeTimeout,
			Status: run.Status,
			Err:    fmt.Errorf("run %s of %s timed out on the vendor: %s", run.ID, actorID, run.StatusMessage),
		}
	default:
		return nil, &JobError{
			Code:   outcome.CodeError,
			Status: run.Status,
			Err:    fmt.Errorf("run %s of %s ended %s: %s", run.ID, actorID, run.Status, run.StatusMessage),
		}
	}

	records, err := i.client.FetchResults(ctx, run.DatasetID)
	if err != nil {
		return nil, &JobError{Code: outcome.Classify(err), Status: run.Status, Err: err}
	}
	return records, nil
}
