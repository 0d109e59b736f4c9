// Package collector drives one collection run: it advances a fixed-size
// date window over the feed, normalizes each page, and hands the truncated
// batch to the store.
package collector

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync/atomic"
	"time"

	"github.com/jonboulle/clockwork"

	"github.com/lunardrift/neo-tracker/internal/domain"
	"github.com/lunardrift/neo-tracker/internal/observability"
)

// FeedFetcher fetches one inclusive date window from the upstream catalog.
type FeedFetcher interface {
	FetchWindow(ctx context.Context, start, end time.Time) (*domain.FeedPage, error)
}

// BatchWriter persists a finished batch into the relational store.
type BatchWriter interface {
	EnsureSchema(ctx context.Context) error
	InsertBatch(ctx context.Context, batch *domain.Batch) error
}

// EventPublisher streams a stored batch's approach events to an optional
// downstream sink.
type EventPublisher interface {
	PublishBatch(ctx context.Context, batch *domain.Batch) error
}

// State tracks the driver's progress through a run.
type State string

const (
	StateIdle           State = "idle"
	StateAccumulating   State = "accumulating"
	StateTargetReached  State = "target_reached"
	StateCeilingReached State = "ceiling_reached"
	StateTruncated      State = "truncated"
	StateDone           State = "done"
)

// ErrDriverUsed is returned when Run is called a second time.
var ErrDriverUsed = errors.New("collection driver is single-use")

// Policy holds the collection loop's fixed knobs.
type Policy struct {
	Target       int
	StartDate    time.Time
	CeilingYear  int
	WindowDays   int
	SuccessDelay time.Duration // courtesy pause between successful windows
	RetryDelay   time.Duration // longer pause before retrying a failed window

	// MaxWindowRetries aborts the run after this many consecutive failures
	// of one window. 0 retries forever: without a cap, a permanently failing
	// window stalls the run because the year ceiling only advances on
	// success.
	MaxWindowRetries int
}

// Driver executes one collection run. It is single-use; construct a new
// Driver per invocation.
type Driver struct {
	fetcher   FeedFetcher
	writer    BatchWriter
	publisher EventPublisher // nil when the Kafka sink is disabled
	policy    Policy
	clock     clockwork.Clock
	logger    *slog.Logger
	metrics   *observability.Metrics

	used  atomic.Bool
	state atomic.Value // State
}

// New assembles a driver. Pass a nil publisher to skip event streaming.
func New(f FeedFetcher, w BatchWriter, p EventPublisher, policy Policy, clock clockwork.Clock, logger *slog.Logger, metrics *observability.Metrics) *Driver {
	d := &Driver{
		fetcher:   f,
		writer:    w,
		publisher: p,
		policy:    policy,
		clock:     clock,
		logger:    logger,
		metrics:   metrics,
	}
	d.state.Store(StateIdle)
	return d
}

// State returns the driver's current phase.
func (d *Driver) State() State {
	return d.state.Load().(State)
}

// CheckReadiness reports nil once at least one window has been collected.
func (d *Driver) CheckReadiness(_ context.Context) error {
	switch d.State() {
	case StateIdle:
		return errors.New("collection has not started")
	default:
		return nil
	}
}

// Run accumulates windows until the target count is reached or the window
// start crosses the year ceiling, truncates to the exact target, stores the
// batch, and optionally publishes it. Fetch failures are retried against
// the same window after the retry delay; normalization and store failures
// abort the run.
func (d *Driver) Run(ctx context.Context) (*domain.Batch, error) {
	if d.used.Swap(true) {
		return nil, ErrDriverUsed
	}

	d.metrics.CollectionRunning.Set(1)
	defer d.metrics.CollectionRunning.Set(0)
	d.state.Store(StateAccumulating)

	d.logger.Info("collection starting",
		"target", d.policy.Target,
		"start_date", d.policy.StartDate.Format(time.DateOnly),
		"ceiling_year", d.policy.CeilingYear,
		"window_days", d.policy.WindowDays,
	)

	batch, err := d.accumulate(ctx)
	if err != nil {
		return nil, err
	}

	batch.Truncate(d.policy.Target)
	d.state.Store(StateTruncated)
	d.metrics.ObjectsCollected.Set(float64(batch.ObjectCount()))
	d.metrics.EventsCollected.Set(float64(batch.EventCount()))

	if err := d.writer.EnsureSchema(ctx); err != nil {
		return nil, fmt.Errorf("ensure schema: %w", err)
	}
	if err := d.writer.InsertBatch(ctx, batch); err != nil {
		return nil, fmt.Errorf("store batch: %w", err)
	}

	if d.publisher != nil {
		// The store is the source of truth; a failed publish is logged and
		// the run still succeeds.
		if err := d.publisher.PublishBatch(ctx, batch); err != nil {
			d.logger.Error("publish batch failed", "error", err)
		}
	}

	d.state.Store(StateDone)
	d.logger.Info("collection complete",
		"objects", batch.ObjectCount(),
		"approach_events", batch.EventCount(),
	)
	return batch, nil
}

func (d *Driver) accumulate(ctx context.Context) (*domain.Batch, error) {
	batch := domain.NewBatch()
	start := d.policy.StartDate
	failures := 0

	for {
		if ctx.Err() != nil {
			return nil, ctx.Err()
		}
		if batch.ObjectCount() >= d.policy.Target {
			d.state.Store(StateTargetReached)
			return batch, nil
		}
		if start.Year() > d.policy.CeilingYear {
			d.state.Store(StateCeilingReached)
			d.logger.Info("date ceiling reached",
				"next_window_start", start.Format(time.DateOnly),
				"objects", batch.ObjectCount(),
			)
			return batch, nil
		}

		end := start.AddDate(0, 0, d.policy.WindowDays-1)
		page, err := d.fetcher.FetchWindow(ctx, start, end)
		if err != nil {
			if ctx.Err() != nil {
				return nil, ctx.Err()
			}
			failures++
			d.metrics.FetchRetries.Inc()
			if d.policy.MaxWindowRetries > 0 && failures >= d.policy.MaxWindowRetries {
				return nil, fmt.Errorf("window %s permanently failing after %d attempts: %w",
					start.Format(time.DateOnly), failures, err)
			}
			d.logger.Warn("fetch failed, retrying window",
				"start_date", start.Format(time.DateOnly),
				"attempt", failures,
				"error", err,
			)
			if !d.sleep(ctx, d.policy.RetryDelay) {
				return nil, ctx.Err()
			}
			continue // same window, not advanced
		}
		failures = 0

		records, err := domain.NormalizeFeedPage(page)
		if err != nil {
			return nil, err
		}
		batch.Append(records)

		d.metrics.WindowsProcessed.Inc()
		d.metrics.ObjectsCollected.Set(float64(batch.ObjectCount()))
		d.metrics.EventsCollected.Set(float64(batch.EventCount()))
		d.logger.Info("window collected",
			"start_date", start.Format(time.DateOnly),
			"end_date", end.Format(time.DateOnly),
			"objects", batch.ObjectCount(),
			"approach_events", batch.EventCount(),
		)

		if !d.sleep(ctx, d.policy.SuccessDelay) {
			return nil, ctx.Err()
		}
		// Advance one day past the window end so dates are never refetched.
		start = end.AddDate(0, 0, 1)
	}
}

// sleep waits for the given duration on the injected clock. Returns false
// if the context was cancelled first.
func (d *Driver) sleep(ctx context.Context, dur time.Duration) bool {
	if dur <= 0 {
		return ctx.Err() == nil
	}
	timer := d.clock.NewTimer(dur)
	defer timer.Stop()

	select {
	case <-ctx.Done():
		return false
	case <-timer.Chan():
		return true
	}
}
