package relay

import (
	"context"
	"net/http"
	"os/signal"
	"path/filepath"
	"syscall"
	"time"

	"github.com/jonboulle/clockwork"
	"github.com/prometheus/client_golang/prometheus"

	"github.com/tzhsiao/eew-go/internal/audio"
	"github.com/tzhsiao/eew-go/internal/conf"
	"github.com/tzhsiao/eew-go/internal/events"
	"github.com/tzhsiao/eew-go/internal/logging"
	"github.com/tzhsiao/eew-go/internal/mqtt"
	"github.com/tzhsiao/eew-go/internal/observability"
	"github.com/tzhsiao/eew-go/internal/seismic"
)

// Run wires the full relay pipeline from settings and blocks until SIGINT or
// SIGTERM, then tears the ingress connection and telemetry endpoint down.
func Run(settings *conf.Settings) error {
	target, err := settings.TargetLocation()
	if err != nil {
		return err
	}

	// Tee logs to the rotated file before any component derives its logger.
	if settings.Main.Log.Path != "" {
		closeLogger, err := logging.InitFile(
			filepath.Join(settings.Main.Log.Path, "relay.log"),
			logging.ParseLevel(settings.Main.Log.Level))
		if err != nil {
			logging.Warn("file logging disabled", "error", err)
		} else {
			defer func() {
				if err := closeLogger(); err != nil {
					logging.Warn("closing log file failed", "error", err)
				}
			}()
		}
	}

	registry := prometheus.NewRegistry()
	metrics := observability.NewMetrics(registry)

	bus := events.NewBus()
	renderer := audio.NewRenderer(settings.Audio)
	publisher := mqtt.NewPublisher(settings.Egress, settings.Main.Name, metrics)

	orchestrator := New(Config{
		Target:         seismic.GeoPoint{Lat: target.Lat, Lon: target.Lon},
		CountdownDelay: settings.Delay.Countdown,
		PlaybackDelay:  settings.Delay.Playback,
	}, publisher, renderer, metrics, clockwork.NewRealClock())
	orchestrator.Register(bus)

	ingressConfig := mqtt.DefaultConfig()
	ingressConfig.ClientID = settings.Main.Name
	ingressConfig.Username = settings.Ingress.Username
	ingressConfig.Password = settings.Ingress.Password
	if settings.Ingress.Keepalive > 0 {
		ingressConfig.Keepalive = time.Duration(settings.Ingress.Keepalive) * time.Second
	}
	ingress := mqtt.NewIngressClient(ingressConfig, mqtt.NewDiscovery(settings.Ingress.InfoURL), bus, metrics)

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	ingress.Start(ctx)

	var telemetry *http.Server
	if settings.Telemetry.Enabled {
		telemetry = observability.Serve(settings.Telemetry.Listen, registry)
	}

	logging.Info("relay running",
		"city", settings.Region.City,
		"district", settings.Region.District,
		"lat", target.Lat,
		"lon", target.Lon)

	<-ctx.Done()
	logging.Info("shutdown signal received")

	ingress.Stop()
	if telemetry != nil {
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		if err := telemetry.Shutdown(shutdownCtx); err != nil {
			logging.Warn("telemetry shutdown failed", "error", err)
		}
		cancel()
	}

	return nil
}
