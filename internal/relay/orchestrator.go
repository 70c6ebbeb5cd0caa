// Package relay implements the warning orchestrator: it reacts to decoded
// feed events, evaluates the threat at the configured target point, and
// drives debounced, serialized audio generation and outbound notification.
package relay

import (
	"context"
	"log/slog"
	"sync"
	"time"

	"github.com/jonboulle/clockwork"

	"github.com/tzhsiao/eew-go/internal/audio"
	"github.com/tzhsiao/eew-go/internal/events"
	"github.com/tzhsiao/eew-go/internal/logging"
	"github.com/tzhsiao/eew-go/internal/observability"
	"github.com/tzhsiao/eew-go/internal/seismic"
)

const (
	// minNotifyLevel is the intensity threshold below which events are
	// discarded without audio or notification.
	minNotifyLevel = 2

	// debounceCooldown suppresses repeated equal-or-weaker alerts.
	// Earlier revisions of the relay used 30s.
	debounceCooldown = 20 * time.Second

	// generationHold is the hold window claimed for one audio generation.
	generationHold = 3 * time.Second

	// cleanupGrace is how long a rendered file is kept after notification.
	cleanupGrace = 5 * time.Second
)

// Notifier publishes outbound notifications.
type Notifier interface {
	PublishWarning(ctx context.Context, level string, sec float64) error
	PublishReport(ctx context.Context, report string) error
}

// Renderer renders a clip sequence to the output file.
type Renderer interface {
	Render(ctx context.Context, clips []string) error
	Cleanup()
}

// Config holds the orchestrator's evaluation parameters.
type Config struct {
	Target         seismic.GeoPoint
	CountdownDelay int
	PlaybackDelay  int
}

// Orchestrator reacts to warning and report events. Debounce state and the
// generation lock live here, owned by one instance and guarded for real
// parallelism.
type Orchestrator struct {
	config   Config
	notifier Notifier
	renderer Renderer
	metrics  *observability.Metrics
	clock    clockwork.Clock
	logger   *slog.Logger

	lock *generationLock

	mu            sync.Mutex
	lastNotified  int
	cooldownUntil time.Time
}

// New creates an orchestrator evaluating threats at config.Target.
func New(config Config, notifier Notifier, renderer Renderer, metrics *observability.Metrics, clock clockwork.Clock) *Orchestrator {
	return &Orchestrator{
		config:   config,
		notifier: notifier,
		renderer: renderer,
		metrics:  metrics,
		clock:    clock,
		logger:   logging.ForService("relay"),
		lock:     newGenerationLock(clock),
	}
}

// Register subscribes the orchestrator to both event streams on bus.
func (o *Orchestrator) Register(bus *events.Bus) {
	bus.SubscribeWarning(o.HandleWarning)
	bus.SubscribeReport(o.HandleReport)
}

// HandleWarning evaluates a realtime warning and, above threshold, runs the
// debounce-guarded generation path.
func (o *Orchestrator) HandleWarning(ctx context.Context, ev events.WarningEvent) {
	o.metrics.WarningsEvaluated.Inc()

	// Clock skew and network delay have already consumed part of the lead.
	transmitSeconds := o.clock.Since(ev.Origin()).Seconds()

	epicenter := seismic.GeoPoint{Lat: ev.EpicenterLat, Lon: ev.EpicenterLon}
	distanceKm := seismic.Distance(epicenter, o.config.Target)
	continuous := seismic.ContinuousIntensity(epicenter, o.config.Target, ev.DepthKm, ev.Magnitude)
	level := seismic.Classify(continuous)

	waveTime := seismic.TravelTimes(ev.DepthKm, distanceKm)

	o.logger.Info("warning evaluated",
		"magnitude", ev.Magnitude,
		"depth_km", ev.DepthKm,
		"distance_km", distanceKm,
		"intensity", continuous,
		"level", level,
		"p_seconds", waveTime.P,
		"s_seconds", waveTime.S,
		"transmit_seconds", transmitSeconds)

	if level < minNotifyLevel {
		o.metrics.WarningsBelowMin.Inc()
		o.logger.Info("below notification threshold, discarding", "level", level)
		return
	}

	var leadSeconds float64
	if !waveTime.Valid() {
		// Degenerate near-field geometry; treat the wave as already here.
		o.logger.Warn("non-finite wave travel time, assuming zero lead",
			"depth_km", ev.DepthKm, "distance_km", distanceKm)
	} else {
		leadSeconds = waveTime.S - transmitSeconds
		if leadSeconds < 0 {
			leadSeconds = 0
		}
	}

	o.genAndNotify(ctx, level, leadSeconds)
}

// HandleReport evaluates a confirmation report and publishes the localized
// description. No audio, no debounce, no lock.
func (o *Orchestrator) HandleReport(ctx context.Context, ev events.ReportEvent) {
	epicenter := seismic.GeoPoint{Lat: ev.EpicenterLat, Lon: ev.EpicenterLon}
	continuous := seismic.ContinuousIntensity(epicenter, o.config.Target, ev.DepthKm, ev.Magnitude)
	level := seismic.Classify(continuous)

	if level < minNotifyLevel {
		o.logger.Info("report below notification threshold, discarding", "level", level)
		return
	}

	report, err := localizeReport(ev.Description)
	if err != nil {
		o.logger.Error("dropping unparseable report description", "error", err)
		return
	}

	if err := o.notifier.PublishReport(ctx, report); err != nil {
		o.logger.Error("report notification failed", "error", err)
		return
	}
	o.logger.Info("confirmed report published", "report", report)
}

// genAndNotify runs the debounce-guarded generation path: suppress
// equal-or-weaker repeats inside the cooldown, serialize audio generation
// through the hold-window lock, then notify downstream and schedule
// best-effort cleanup of the rendered file.
func (o *Orchestrator) genAndNotify(ctx context.Context, level int, leadSeconds float64) {
	label := seismic.Label(level)

	now := o.clock.Now()
	o.mu.Lock()
	if now.Before(o.cooldownUntil) && level <= o.lastNotified {
		o.mu.Unlock()
		o.metrics.WarningsSuppressed.Inc()
		o.logger.Info("suppressed by debounce",
			"level", level, "last_notified", o.lastNotified)
		return
	}
	// Updated before any work so a concurrent evaluation sees the new
	// state immediately; not gated by the generation lock.
	o.cooldownUntil = now.Add(debounceCooldown)
	o.lastNotified = level
	o.mu.Unlock()

	waited, err := o.lock.Acquire(ctx, generationHold)
	if err != nil {
		o.logger.Warn("generation cancelled while waiting for lock", "error", err)
		return
	}
	o.metrics.GenerationLockWait.Observe(waited.Seconds())

	// The wait ate into the lead.
	leadSeconds -= waited.Seconds()
	if leadSeconds < 0 {
		leadSeconds = 0
	}

	renderStart := o.clock.Now()
	clips := audio.BuildTimeline(label, leadSeconds, o.config.CountdownDelay, o.config.PlaybackDelay)
	renderErr := o.renderer.Render(ctx, clips)
	o.lock.Release()

	if renderErr != nil {
		o.logger.Error("audio generation failed, aborting this attempt", "error", renderErr)
		return
	}
	o.metrics.RenderDuration.Observe(o.clock.Since(renderStart).Seconds())

	if err := o.notifier.PublishWarning(ctx, label, leadSeconds); err != nil {
		o.logger.Error("warning notification failed", "error", err)
	} else {
		o.logger.Info("warning notification published", "level", label, "sec", leadSeconds)
	}

	// Best effort; the renderer logs and ignores a failed removal.
	o.clock.AfterFunc(cleanupGrace, o.renderer.Cleanup)
}
