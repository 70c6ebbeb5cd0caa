package relay

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/jonboulle/clockwork"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/tzhsiao/eew-go/internal/events"
	"github.com/tzhsiao/eew-go/internal/observability"
	"github.com/tzhsiao/eew-go/internal/seismic"
)

var testTarget = seismic.GeoPoint{Lat: 25.0324, Lon: 121.5199}

type mockNotifier struct {
	mu       sync.Mutex
	warnings []struct {
		Level string
		Sec   float64
	}
	reports []string
}

func (m *mockNotifier) PublishWarning(ctx context.Context, level string, sec float64) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.warnings = append(m.warnings, struct {
		Level string
		Sec   float64
	}{level, sec})
	return nil
}

func (m *mockNotifier) PublishReport(ctx context.Context, report string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.reports = append(m.reports, report)
	return nil
}

func (m *mockNotifier) warningCount() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.warnings)
}

type mockRenderer struct {
	mu       sync.Mutex
	rendered [][]string
	cleanups int
	err      error
}

func (m *mockRenderer) Render(ctx context.Context, clips []string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.err != nil {
		return m.err
	}
	m.rendered = append(m.rendered, clips)
	return nil
}

func (m *mockRenderer) Cleanup() {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.cleanups++
}

func newTestOrchestrator(clock clockwork.Clock) (*Orchestrator, *mockNotifier, *mockRenderer) {
	notifier := &mockNotifier{}
	renderer := &mockRenderer{}
	metrics := observability.NewMetrics(prometheus.NewRegistry())
	o := New(Config{Target: testTarget, CountdownDelay: 2, PlaybackDelay: 1}, notifier, renderer, metrics, clock)
	return o, notifier, renderer
}

func TestDebounceSuppressesWeakerRepeat(t *testing.T) {
	t.Parallel()

	clock := clockwork.NewFakeClock()
	o, notifier, _ := newTestOrchestrator(clock)
	ctx := context.Background()

	o.genAndNotify(ctx, 5, 15)
	require.Equal(t, 1, notifier.warningCount())

	clock.Advance(5 * time.Second)
	o.genAndNotify(ctx, 4, 15)
	assert.Equal(t, 1, notifier.warningCount(), "weaker repeat inside the cooldown must be suppressed")

	clock.Advance(5 * time.Second)
	o.genAndNotify(ctx, 5, 15)
	assert.Equal(t, 1, notifier.warningCount(), "equal repeat inside the cooldown must be suppressed")
}

func TestDebounceStrongerAlwaysPasses(t *testing.T) {
	t.Parallel()

	clock := clockwork.NewFakeClock()
	o, notifier, _ := newTestOrchestrator(clock)
	ctx := context.Background()

	o.genAndNotify(ctx, 5, 15)
	clock.Advance(5 * time.Second)
	o.genAndNotify(ctx, 6, 15)

	require.Equal(t, 2, notifier.warningCount(), "a strictly larger intensity bypasses debounce")
	assert.Equal(t, "5+", notifier.warnings[1].Level)
}

func TestDebounceExpiresAfterCooldown(t *testing.T) {
	t.Parallel()

	clock := clockwork.NewFakeClock()
	o, notifier, _ := newTestOrchestrator(clock)
	ctx := context.Background()

	o.genAndNotify(ctx, 5, 15)
	clock.Advance(21 * time.Second)
	o.genAndNotify(ctx, 4, 15)

	assert.Equal(t, 2, notifier.warningCount(), "after the cooldown even a weaker alert notifies")
}

func TestGenerationAttemptsNeverOverlap(t *testing.T) {
	t.Parallel()

	clock := clockwork.NewRealClock()
	lock := newGenerationLock(clock)
	ctx := context.Background()

	var mu sync.Mutex
	var firstRelease, secondStart time.Time

	var wg sync.WaitGroup
	wg.Add(2)

	go func() {
		defer wg.Done()
		_, err := lock.Acquire(ctx, generationHold)
		assert.NoError(t, err)
		time.Sleep(250 * time.Millisecond) // critical section
		mu.Lock()
		firstRelease = time.Now()
		mu.Unlock()
		lock.Release()
	}()

	time.Sleep(50 * time.Millisecond) // let the first goroutine win
	go func() {
		defer wg.Done()
		_, err := lock.Acquire(ctx, generationHold)
		assert.NoError(t, err)
		mu.Lock()
		secondStart = time.Now()
		mu.Unlock()
		lock.Release()
	}()

	wg.Wait()
	mu.Lock()
	defer mu.Unlock()
	assert.False(t, secondStart.Before(firstRelease),
		"second attempt started %v before first release", firstRelease.Sub(secondStart))
}

func TestLockWaitIsSubtractedFromLead(t *testing.T) {
	t.Parallel()

	clock := clockwork.NewRealClock()
	o, notifier, _ := newTestOrchestrator(clock)
	ctx := context.Background()

	// Pre-claim the hold window so genAndNotify has to wait it out.
	_, err := o.lock.Acquire(ctx, 300*time.Millisecond)
	require.NoError(t, err)

	o.genAndNotify(ctx, 5, 15)

	require.Equal(t, 1, notifier.warningCount())
	assert.Less(t, notifier.warnings[0].Sec, 15.0, "lock wait must reduce the remaining lead")
}

func TestLockAcquireRespectsCancellation(t *testing.T) {
	t.Parallel()

	clock := clockwork.NewRealClock()
	lock := newGenerationLock(clock)

	_, err := lock.Acquire(context.Background(), time.Minute)
	require.NoError(t, err)

	ctx, cancel := context.WithTimeout(context.Background(), 150*time.Millisecond)
	defer cancel()
	_, err = lock.Acquire(ctx, time.Minute)
	assert.ErrorIs(t, err, context.DeadlineExceeded)
}

func TestLockReleaseResetsHoldToNow(t *testing.T) {
	t.Parallel()

	clock := clockwork.NewFakeClock()
	lock := newGenerationLock(clock)
	ctx := context.Background()

	_, err := lock.Acquire(ctx, generationHold)
	require.NoError(t, err)
	lock.Release()

	// After release the window is "now", not zero: an acquisition at the
	// same instant proceeds without waiting.
	waited, err := lock.Acquire(ctx, generationHold)
	require.NoError(t, err)
	assert.Equal(t, time.Duration(0), waited)
}

func TestRenderFailureAbortsAttemptButReleasesLock(t *testing.T) {
	t.Parallel()

	clock := clockwork.NewFakeClock()
	o, notifier, renderer := newTestOrchestrator(clock)
	renderer.err = assert.AnError
	ctx := context.Background()

	o.genAndNotify(ctx, 5, 15)
	assert.Equal(t, 0, notifier.warningCount(), "failed render must not notify")

	// Lock must be reusable immediately.
	renderer.err = nil
	clock.Advance(debounceCooldown + time.Second)
	o.genAndNotify(ctx, 5, 15)
	assert.Equal(t, 1, notifier.warningCount())
}

func TestHandleWarningEndToEnd(t *testing.T) {
	t.Parallel()

	origin := time.Now()
	clock := clockwork.NewFakeClockAt(origin)
	o, notifier, renderer := newTestOrchestrator(clock)

	// Magnitude 6.0 at 10 km depth, epicenter roughly 50 km north.
	ev := events.WarningEvent{
		EpicenterLat: testTarget.Lat + 0.45,
		EpicenterLon: testTarget.Lon,
		DepthKm:      10,
		Magnitude:    6.0,
		OriginTime:   origin.UnixMilli(),
	}

	o.HandleWarning(context.Background(), ev)

	require.Equal(t, 1, notifier.warningCount(), "exactly one outbound notification")
	got := notifier.warnings[0]
	assert.Equal(t, "4", got.Level)

	epicenter := seismic.GeoPoint{Lat: ev.EpicenterLat, Lon: ev.EpicenterLon}
	wt := seismic.TravelTimes(ev.DepthKm, seismic.Distance(epicenter, testTarget))
	assert.GreaterOrEqual(t, got.Sec, 0.0)
	assert.LessOrEqual(t, got.Sec, wt.S)

	require.Len(t, renderer.rendered, 1)
	clips := renderer.rendered[0]
	assert.Equal(t, "4", clips[0])
	assert.Equal(t, "arrive", clips[len(clips)-6])
}

func TestHandleWarningBelowThresholdDiscarded(t *testing.T) {
	t.Parallel()

	origin := time.Now()
	clock := clockwork.NewFakeClockAt(origin)
	o, notifier, renderer := newTestOrchestrator(clock)

	// Small, distant, deep event: nowhere near the threshold.
	ev := events.WarningEvent{
		EpicenterLat: testTarget.Lat + 4.0,
		EpicenterLon: testTarget.Lon,
		DepthKm:      80,
		Magnitude:    4.0,
		OriginTime:   origin.UnixMilli(),
	}

	o.HandleWarning(context.Background(), ev)

	assert.Equal(t, 0, notifier.warningCount())
	assert.Empty(t, renderer.rendered)
}

func TestCleanupScheduledAfterGrace(t *testing.T) {
	t.Parallel()

	clock := clockwork.NewFakeClock()
	o, _, renderer := newTestOrchestrator(clock)

	o.genAndNotify(context.Background(), 5, 15)

	renderer.mu.Lock()
	before := renderer.cleanups
	renderer.mu.Unlock()
	assert.Equal(t, 0, before, "cleanup must wait out the grace period")

	clock.Advance(cleanupGrace + time.Second)

	// The fired callback runs on its own goroutine.
	assert.Eventually(t, func() bool {
		renderer.mu.Lock()
		defer renderer.mu.Unlock()
		return renderer.cleanups == 1
	}, time.Second, 10*time.Millisecond)
}

func TestHandleReportPublishesLocalizedDescription(t *testing.T) {
	t.Parallel()

	clock := clockwork.NewFakeClock()
	o, notifier, _ := newTestOrchestrator(clock)

	ev := events.ReportEvent{
		EpicenterLat: testTarget.Lat + 0.3,
		EpicenterLon: testTarget.Lon,
		DepthKm:      10,
		Magnitude:    6.5,
		Description:  "04/03-14:52花蓮近海發生有感地震",
	}

	o.HandleReport(context.Background(), ev)

	require.Len(t, notifier.reports, 1)
	assert.Equal(t, "4月3號14點52分花蓮近海發生有感地震", notifier.reports[0])
	assert.Equal(t, 0, notifier.warningCount(), "reports never trigger warning notifications")
}

func TestHandleReportBelowThresholdDiscarded(t *testing.T) {
	t.Parallel()

	clock := clockwork.NewFakeClock()
	o, notifier, _ := newTestOrchestrator(clock)

	ev := events.ReportEvent{
		EpicenterLat: testTarget.Lat + 4.0,
		EpicenterLon: testTarget.Lon,
		DepthKm:      80,
		Magnitude:    4.0,
		Description:  "04/03-14:52遠方小震",
	}

	o.HandleReport(context.Background(), ev)
	assert.Empty(t, notifier.reports)
}
