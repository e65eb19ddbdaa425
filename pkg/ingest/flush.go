package ingest

import (
	"context"
	"time"

	"github.com/peekapi-dev/telemetry-go/pkg/apperror"
	"github.com/peekapi-dev/telemetry-go/pkg/logger"
	"github.com/peekapi-dev/telemetry-go/pkg/metrics"
	"github.com/peekapi-dev/telemetry-go/pkg/tracing"
)

// maxConsecutiveFailures is the number of retryable failures in a row that
// triggers a spill of the in-flight batch to disk instead of another
// in-memory retry.
const maxConsecutiveFailures = 5

// flushEngine owns the retry/backoff state machine around a submitter. It is
// only ever touched by the client's actor goroutine.
type flushEngine struct {
	submit  *submitter
	spool   *spool
	metrics *metrics.Metrics
	onError func(error)

	inFlight            bool
	consecutiveFailures int
	backoffUntil        time.Time
}

func newFlushEngine(submit *submitter, sp *spool, onError func(error)) *flushEngine {
	return &flushEngine{
		submit:  submit,
		spool:   sp,
		metrics: metrics.Get(),
		onError: onError,
	}
}

// reportError invokes the user's OnError callback, if any, swallowing
// whatever panic or misbehavior it might produce: a host callback must
// never be able to take down the flush engine.
func (f *flushEngine) reportError(err error) {
	if f.onError == nil {
		return
	}
	defer func() { _ = recover() }()
	f.onError(err)
}

// Flush attempts to deliver up to batchSize events from buf. It is a no-op
// if the buffer is empty, a flush is already in flight, or the engine is
// still inside its backoff window. The bool result reports whether a
// network attempt was actually made.
func (f *flushEngine) Flush(ctx context.Context, buf *buffer, batchSize int) bool {
	if f.inFlight {
		return false
	}
	if buf.Len() == 0 {
		return false
	}
	if f.consecutiveFailures > 0 && time.Now().Before(f.backoffUntil) {
		return false
	}

	events := buf.DrainFront(batchSize)
	if len(events) == 0 {
		return false
	}

	f.inFlight = true
	defer func() { f.inFlight = false }()

	f.doFlush(ctx, buf, events)
	return true
}

func (f *flushEngine) doFlush(ctx context.Context, buf *buffer, events []RequestEvent) {
	ctx, span := tracing.StartSpan(ctx, "ingest.flush")
	defer span.End()
	tracing.SetAttributes(ctx, tracing.FlushAttributes(len(events), f.submit.endpoint.Host)...)

	start := time.Now()
	err := f.submit.Submit(ctx, events)
	duration := time.Since(start)

	statusCode := 0
	if appErr, ok := err.(*apperror.Error); ok {
		statusCode = appErr.StatusCode
	}
	tracing.SetAttributes(ctx, tracing.SubmitOutcomeAttributes(outcomeLabel(err), statusCode, apperror.IsRetryable(err))...)

	if err == nil {
		f.metrics.RecordFlush("success", duration)
		f.consecutiveFailures = 0
		f.metrics.ConsecutiveFailures.Set(0)
		f.backoffUntil = time.Time{}
		f.spool.CleanupRecovery()
		return
	}

	tracing.SetError(ctx, err)
	f.metrics.RecordFlush(outcomeLabel(err), duration)
	logger.Warn("ingest: flush failed", "error", err, "batch_size", len(events))
	f.reportError(err)

	if !apperror.IsRetryable(err) {
		// Non-retryable failures (bad request, encode failure) would fail
		// identically on every future attempt, so they go straight to disk
		// without counting against the backoff sequence.
		f.spool.WriteAsync(events)
		f.metrics.SpoolBytes.Set(float64(f.spool.Size()))
		return
	}

	f.consecutiveFailures++
	f.metrics.ConsecutiveFailures.Set(float64(f.consecutiveFailures))
	backoff := nextBackoff(f.consecutiveFailures)

	if f.consecutiveFailures >= maxConsecutiveFailures {
		f.spool.WriteAsync(events)
		f.metrics.SpoolBytes.Set(float64(f.spool.Size()))
		f.consecutiveFailures = 0
		f.metrics.ConsecutiveFailures.Set(0)
	} else {
		buf.PrependFront(events)
	}

	f.backoffUntil = time.Now().Add(backoff)
	f.metrics.BackoffSeconds.Set(backoff.Seconds())
}

func outcomeLabel(err error) string {
	if err == nil {
		return "success"
	}
	if apperror.IsRetryable(err) {
		return "retryable_failure"
	}
	return "permanent_failure"
}
