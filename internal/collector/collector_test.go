package collector_test

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"strconv"
	"testing"
	"time"

	"github.com/jonboulle/clockwork"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/lunardrift/neo-tracker/internal/collector"
	"github.com/lunardrift/neo-tracker/internal/domain"
	"github.com/lunardrift/neo-tracker/internal/observability"
)

// --- mocks ---

type fetchCall struct {
	start, end time.Time
}

type fetchReply struct {
	page *domain.FeedPage
	err  error
}

type mockFetcher struct {
	calls   []fetchCall
	replies []fetchReply
}

func (m *mockFetcher) FetchWindow(_ context.Context, start, end time.Time) (*domain.FeedPage, error) {
	m.calls = append(m.calls, fetchCall{start: start, end: end})
	if len(m.replies) == 0 {
		return emptyPage(start), nil
	}
	reply := m.replies[0]
	m.replies = m.replies[1:]
	return reply.page, reply.err
}

type mockWriter struct {
	schemaCalls int
	batches     []*domain.Batch
	schemaErr   error
	insertErr   error
}

func (m *mockWriter) EnsureSchema(_ context.Context) error {
	m.schemaCalls++
	return m.schemaErr
}

func (m *mockWriter) InsertBatch(_ context.Context, batch *domain.Batch) error {
	if m.insertErr != nil {
		return m.insertErr
	}
	m.batches = append(m.batches, batch)
	return nil
}

type mockPublisher struct {
	batches []*domain.Batch
	err     error
}

func (m *mockPublisher) PublishBatch(_ context.Context, batch *domain.Batch) error {
	if m.err != nil {
		return m.err
	}
	m.batches = append(m.batches, batch)
	return nil
}

// --- helpers ---

func discardLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func testPolicy() collector.Policy {
	return collector.Policy{
		Target:      4,
		StartDate:   time.Date(2024, time.January, 1, 0, 0, 0, 0, time.UTC),
		CeilingYear: 2025,
		WindowDays:  7,
	}
}

func emptyPage(day time.Time) *domain.FeedPage {
	return &domain.FeedPage{
		NearEarthObjects: map[string][]domain.RawNEORecord{
			day.Format(time.DateOnly): {},
		},
	}
}

// pageWithObjects builds a one-date feed page where each id contributes the
// given number of approach events.
func pageWithObjects(day time.Time, approachCounts ...int) *domain.FeedPage {
	date := day.Format(time.DateOnly)
	mag := 21.0
	objects := make([]domain.RawNEORecord, 0, len(approachCounts))
	for i, n := range approachCounts {
		rec := domain.RawNEORecord{
			ID:                 strconv.Itoa(1000*len(approachCounts) + i),
			Name:               fmt.Sprintf("(TEST %d)", i),
			AbsoluteMagnitudeH: &mag,
			EstimatedDiameter: &domain.RawDiameter{
				Kilometers: domain.RawDiameterBounds{Min: 0.1, Max: 0.3},
			},
		}
		for j := 0; j < n; j++ {
			rec.CloseApproachData = append(rec.CloseApproachData, domain.RawCloseApproach{
				CloseApproachDate: date,
				RelativeVelocity:  domain.RawVelocity{KilometersPerHour: "30000"},
				MissDistance: domain.RawMissDistance{
					Astronomical: "0.1", Kilometers: "14959787", Lunar: "38.9",
				},
				OrbitingBody: "Earth",
			})
		}
		objects = append(objects, rec)
	}
	return &domain.FeedPage{NearEarthObjects: map[string][]domain.RawNEORecord{date: objects}}
}

func newDriver(f collector.FeedFetcher, w collector.BatchWriter, p collector.EventPublisher, policy collector.Policy, clock clockwork.Clock) *collector.Driver {
	return collector.New(f, w, p, policy, clock, discardLogger(), observability.NewMetricsForTesting())
}

// --- tests ---

func TestDriver_Run_TargetReachedExactCount(t *testing.T) {
	start := testPolicy().StartDate
	fetcher := &mockFetcher{replies: []fetchReply{
		{page: pageWithObjects(start, 1, 1)},
		// Last window overshoots the target; truncation trims back to it.
		{page: pageWithObjects(start.AddDate(0, 0, 7), 1, 2, 1)},
	}}
	writer := &mockWriter{}

	d := newDriver(fetcher, writer, nil, testPolicy(), clockwork.NewFakeClock())
	batch, err := d.Run(context.Background())
	require.NoError(t, err)

	assert.Equal(t, 4, batch.ObjectCount())
	// The fourth kept object owns two events; both survive truncation.
	assert.Equal(t, 5, batch.EventCount())
	assert.Equal(t, collector.StateDone, d.State())

	require.Len(t, writer.batches, 1)
	assert.Equal(t, 1, writer.schemaCalls)
	objects, events := writer.batches[0].Flatten()
	assert.Len(t, objects, 4)
	ids := map[int]bool{}
	for _, o := range objects {
		ids[o.ID] = true
	}
	for _, e := range events {
		assert.True(t, ids[e.ObjectID])
	}
}

func TestDriver_Run_WindowsAdvancePastEnd(t *testing.T) {
	policy := testPolicy()
	policy.Target = 3
	start := policy.StartDate
	fetcher := &mockFetcher{replies: []fetchReply{
		{page: pageWithObjects(start, 1)},
		{page: pageWithObjects(start.AddDate(0, 0, 7), 1)},
		{page: pageWithObjects(start.AddDate(0, 0, 14), 1)},
	}}

	d := newDriver(fetcher, &mockWriter{}, nil, policy, clockwork.NewFakeClock())
	_, err := d.Run(context.Background())
	require.NoError(t, err)

	require.Len(t, fetcher.calls, 3)
	for i, call := range fetcher.calls {
		wantStart := start.AddDate(0, 0, 7*i)
		assert.Equal(t, wantStart, call.start, "window %d start", i)
		assert.Equal(t, wantStart.AddDate(0, 0, 6), call.end, "window %d end", i)
	}
}

func TestDriver_Run_CeilingReachedWithFewerRecords(t *testing.T) {
	policy := testPolicy()
	policy.Target = 10000
	policy.StartDate = time.Date(2025, time.December, 20, 0, 0, 0, 0, time.UTC)

	fetcher := &mockFetcher{replies: []fetchReply{
		{page: pageWithObjects(policy.StartDate, 1, 1)},
		// Next window would start 2026-01-03, past the ceiling.
	}}
	writer := &mockWriter{}

	d := newDriver(fetcher, writer, nil, policy, clockwork.NewFakeClock())
	batch, err := d.Run(context.Background())
	require.NoError(t, err)

	assert.Len(t, fetcher.calls, 1)
	// Truncation to 10000 is a no-op on a 2-object batch.
	assert.Equal(t, 2, batch.ObjectCount())
	assert.Equal(t, collector.StateDone, d.State())
	require.Len(t, writer.batches, 1)
}

func TestDriver_Run_RetriesSameWindowAfterFailure(t *testing.T) {
	policy := testPolicy()
	policy.Target = 1
	policy.RetryDelay = 5 * time.Second

	start := policy.StartDate
	fetcher := &mockFetcher{replies: []fetchReply{
		{err: errors.New("status 500")},
		{page: pageWithObjects(start, 1)},
	}}

	fc := clockwork.NewFakeClock()
	d := newDriver(fetcher, &mockWriter{}, nil, policy, fc)

	done := make(chan error, 1)
	go func() {
		_, err := d.Run(context.Background())
		done <- err
	}()

	// The driver must be sleeping out the long retry delay after the first
	// failure, with no second fetch issued yet.
	fc.BlockUntil(1)
	assert.Len(t, fetcher.calls, 1)

	fc.Advance(5 * time.Second)
	require.NoError(t, <-done)

	require.Len(t, fetcher.calls, 2)
	// The failed window is retried identically, not advanced.
	assert.Equal(t, fetcher.calls[0], fetcher.calls[1])
}

func TestDriver_Run_MaxWindowRetriesAborts(t *testing.T) {
	policy := testPolicy()
	policy.MaxWindowRetries = 3

	fetcher := &mockFetcher{replies: []fetchReply{
		{err: errors.New("status 500")},
		{err: errors.New("status 500")},
		{err: errors.New("status 500")},
	}}

	d := newDriver(fetcher, &mockWriter{}, nil, policy, clockwork.NewFakeClock())
	_, err := d.Run(context.Background())
	require.Error(t, err)
	assert.Contains(t, err.Error(), "permanently failing")
	assert.Len(t, fetcher.calls, 3)
}

func TestDriver_Run_NormalizationErrorIsFatal(t *testing.T) {
	bad := pageWithObjects(testPolicy().StartDate, 1)
	for date := range bad.NearEarthObjects {
		bad.NearEarthObjects[date][0].ID = "not-a-number"
	}
	fetcher := &mockFetcher{replies: []fetchReply{{page: bad}}}
	writer := &mockWriter{}

	d := newDriver(fetcher, writer, nil, testPolicy(), clockwork.NewFakeClock())
	_, err := d.Run(context.Background())
	require.Error(t, err)
	assert.Contains(t, err.Error(), "object id")
	assert.Empty(t, writer.batches)
}

func TestDriver_Run_StoreErrorIsFatal(t *testing.T) {
	policy := testPolicy()
	policy.Target = 1
	fetcher := &mockFetcher{replies: []fetchReply{{page: pageWithObjects(policy.StartDate, 1)}}}
	writer := &mockWriter{insertErr: errors.New("disk full")}

	d := newDriver(fetcher, writer, nil, policy, clockwork.NewFakeClock())
	_, err := d.Run(context.Background())
	require.Error(t, err)
	assert.Contains(t, err.Error(), "store batch")
}

func TestDriver_Run_PublisherErrorIsNotFatal(t *testing.T) {
	policy := testPolicy()
	policy.Target = 1
	fetcher := &mockFetcher{replies: []fetchReply{{page: pageWithObjects(policy.StartDate, 1)}}}
	pub := &mockPublisher{err: errors.New("broker unreachable")}

	d := newDriver(fetcher, &mockWriter{}, pub, policy, clockwork.NewFakeClock())
	batch, err := d.Run(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 1, batch.ObjectCount())
	assert.Equal(t, collector.StateDone, d.State())
}

func TestDriver_Run_PublishesStoredBatch(t *testing.T) {
	policy := testPolicy()
	policy.Target = 1
	fetcher := &mockFetcher{replies: []fetchReply{{page: pageWithObjects(policy.StartDate, 2)}}}
	pub := &mockPublisher{}

	d := newDriver(fetcher, &mockWriter{}, pub, policy, clockwork.NewFakeClock())
	_, err := d.Run(context.Background())
	require.NoError(t, err)
	require.Len(t, pub.batches, 1)
	assert.Equal(t, 2, pub.batches[0].EventCount())
}

func TestDriver_Run_SingleUse(t *testing.T) {
	policy := testPolicy()
	policy.Target = 1
	fetcher := &mockFetcher{replies: []fetchReply{{page: pageWithObjects(policy.StartDate, 1)}}}

	d := newDriver(fetcher, &mockWriter{}, nil, policy, clockwork.NewFakeClock())
	_, err := d.Run(context.Background())
	require.NoError(t, err)

	_, err = d.Run(context.Background())
	require.ErrorIs(t, err, collector.ErrDriverUsed)
}

func TestDriver_Run_ContextCancelled(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	d := newDriver(&mockFetcher{}, &mockWriter{}, nil, testPolicy(), clockwork.NewFakeClock())
	_, err := d.Run(ctx)
	require.ErrorIs(t, err, context.Canceled)
}

func TestDriver_CheckReadiness(t *testing.T) {
	d := newDriver(&mockFetcher{}, &mockWriter{}, nil, testPolicy(), clockwork.NewFakeClock())
	require.Error(t, d.CheckReadiness(context.Background()))

	policy := testPolicy()
	policy.Target = 1
	fetcher := &mockFetcher{replies: []fetchReply{{page: pageWithObjects(policy.StartDate, 1)}}}
	d = newDriver(fetcher, &mockWriter{}, nil, policy, clockwork.NewFakeClock())
	_, err := d.Run(context.Background())
	require.NoError(t, err)
	assert.NoError(t, d.CheckReadiness(context.Background()))
}
