// client.go: long-lived ingress connection with reconnect, periodic
// resubscription and proactive rotation.
package mqtt

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"sync"
	"time"

	pahomqtt "github.com/eclipse/paho.mqtt.golang"

	"github.com/tzhsiao/eew-go/internal/errors"
	"github.com/tzhsiao/eew-go/internal/events"
	"github.com/tzhsiao/eew-go/internal/logging"
	"github.com/tzhsiao/eew-go/internal/observability"
)

// IngressClient owns the long-lived feed connection. It discovers the
// broker endpoint before every connection attempt, resubscribes hourly as a
// freshness safeguard, reconnects 5 seconds after an unintentional close,
// and replaces connections older than 24 hours with a new one before ending
// the old (overlap avoids a delivery gap during rotation).
type IngressClient struct {
	config    Config
	discovery *Discovery
	bus       *events.Bus
	metrics   *observability.Metrics
	logger    *slog.Logger

	mu             sync.Mutex
	conn           pahomqtt.Client
	connectedAt    time.Time
	resubTimer     *time.Timer
	reconnectTimer *time.Timer
	stopped        bool

	supervisorStop chan struct{}
	supervisorDone chan struct{}
}

// NewIngressClient creates an ingress client publishing decoded feed
// messages onto bus.
func NewIngressClient(config Config, discovery *Discovery, bus *events.Bus, metrics *observability.Metrics) *IngressClient {
	return &IngressClient{
		config:         config,
		discovery:      discovery,
		bus:            bus,
		metrics:        metrics,
		logger:         logging.ForService("mqtt"),
		supervisorStop: make(chan struct{}),
		supervisorDone: make(chan struct{}),
	}
}

// Start establishes the initial connection and launches the rotation
// supervisor. A failed initial attempt is fatal only for that attempt: the
// next one is scheduled on the reconnect delay, same as after a lost
// connection, so an unreachable feed or info endpoint at boot never takes
// the process down.
func (c *IngressClient) Start(ctx context.Context) {
	conn, err := c.connect(ctx)
	if err != nil {
		c.logger.Error("initial connect failed, retrying",
			"error", err, "delay", c.config.ReconnectDelay)
		c.mu.Lock()
		if !c.stopped {
			c.reconnectTimer = time.AfterFunc(c.config.ReconnectDelay, c.reconnect)
		}
		c.mu.Unlock()
		go c.rotationSupervisor()
		return
	}

	c.mu.Lock()
	c.conn = conn
	c.connectedAt = time.Now()
	c.mu.Unlock()

	go c.rotationSupervisor()
}

// Stop tears the client down intentionally: no reconnect is scheduled.
func (c *IngressClient) Stop() {
	c.mu.Lock()
	c.stopped = true
	c.stopTimersLocked()
	conn := c.conn
	c.conn = nil
	c.mu.Unlock()

	close(c.supervisorStop)
	<-c.supervisorDone

	if conn != nil && conn.IsConnected() {
		conn.Disconnect(250)
	}
	c.metrics.ConnectionStatus.Set(0)
	c.logger.Info("ingress client stopped")
}

// IsConnected reports whether the current connection is live.
func (c *IngressClient) IsConnected() bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.conn != nil && c.conn.IsConnected()
}

// connect discovers the broker and establishes one new connection.
func (c *IngressClient) connect(ctx context.Context) (pahomqtt.Client, error) {
	broker, err := c.discovery.Broker(ctx)
	if err != nil {
		return nil, err
	}

	opts := pahomqtt.NewClientOptions()
	opts.AddBroker(broker.URL())
	opts.SetClientID(fmt.Sprintf("%s-%d", c.config.ClientID, time.Now().UnixMilli()))
	opts.SetUsername(c.config.Username)
	opts.SetPassword(c.config.Password)
	opts.SetKeepAlive(c.config.Keepalive)
	opts.SetCleanSession(true)
	// Reconnection is owned by this client, not by paho.
	opts.SetAutoReconnect(false)
	opts.SetConnectRetry(false)
	opts.SetOnConnectHandler(c.onConnect)
	opts.SetConnectionLostHandler(c.onConnectionLost)

	conn := pahomqtt.NewClient(opts)

	c.logger.Info("connecting to broker", "url", broker.URL())
	token := conn.Connect()
	if !token.WaitTimeout(c.config.ConnectTimeout) {
		return nil, errors.Newf("connection timeout to %s", broker.URL()).
			Component("mqtt").
			Category(errors.CategoryTimeout).
			Build()
	}
	if err := token.Error(); err != nil {
		return nil, errors.New(fmt.Errorf("connection error: %w", err)).
			Component("mqtt").
			Category(errors.CategoryMQTTConnection).
			Context("url", broker.URL()).
			Build()
	}

	c.metrics.ConnectionStatus.Set(1)
	return conn, nil
}

// onConnect issues the feed subscriptions and schedules the hourly
// resubscription safeguard.
func (c *IngressClient) onConnect(conn pahomqtt.Client) {
	c.logger.Info("connected, subscribing to feed topics")
	c.subscribe(conn)
	c.scheduleResubscribe(conn)
}

// subscribe (re)issues both feed subscriptions. Unsubscribe-then-subscribe
// keeps the operation idempotent: running it twice leaves the same
// two-topic subscription set active.
func (c *IngressClient) subscribe(conn pahomqtt.Client) {
	if token := conn.Unsubscribe(TopicWarningFeed, TopicReportFeed); token.Wait() && token.Error() != nil {
		c.logger.Warn("unsubscribe before resubscribe failed", "error", token.Error())
	}

	if token := conn.Subscribe(TopicWarningFeed, feedQoS, c.handleWarningMessage); token.Wait() && token.Error() != nil {
		c.logger.Error("warning feed subscription failed", "error", token.Error())
	}
	if token := conn.Subscribe(TopicReportFeed, feedQoS, c.handleReportMessage); token.Wait() && token.Error() != nil {
		c.logger.Error("report feed subscription failed", "error", token.Error())
	}
}

// scheduleResubscribe arms the hourly resubscription timer for conn.
func (c *IngressClient) scheduleResubscribe(conn pahomqtt.Client) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.resubTimer != nil {
		c.resubTimer.Stop()
	}
	c.resubTimer = time.AfterFunc(c.config.ResubscribeInterval, func() {
		c.mu.Lock()
		current := c.conn
		c.mu.Unlock()
		// A stale timer must not fire against a dead or replaced connection.
		if current != conn || !conn.IsConnected() {
			return
		}
		c.logger.Info("periodic resubscription")
		c.subscribe(conn)
		c.scheduleResubscribe(conn)
	})
}

// onConnectionLost handles an unintentional close: the resubscription timer
// is cancelled first, then a reconnect is scheduled after the fixed delay.
func (c *IngressClient) onConnectionLost(conn pahomqtt.Client, err error) {
	c.logger.Warn("connection lost", "error", err)
	c.metrics.ConnectionStatus.Set(0)

	c.mu.Lock()
	defer c.mu.Unlock()

	// Losses on a rotated-out connection or after Stop are not ours to fix.
	if c.stopped || c.conn != conn {
		return
	}

	c.stopTimersLocked()
	c.reconnectTimer = time.AfterFunc(c.config.ReconnectDelay, c.reconnect)
}

// reconnect performs one reconnect attempt; on failure the next attempt is
// scheduled after the same fixed delay.
func (c *IngressClient) reconnect() {
	c.mu.Lock()
	if c.stopped {
		c.mu.Unlock()
		return
	}
	c.mu.Unlock()

	c.metrics.ReconnectAttempts.Inc()

	ctx, cancel := context.WithTimeout(context.Background(), c.config.ConnectTimeout)
	conn, err := c.connect(ctx)
	cancel()

	if err != nil {
		c.logger.Error("reconnect failed, retrying", "error", err, "delay", c.config.ReconnectDelay)
		c.mu.Lock()
		if !c.stopped {
			c.reconnectTimer = time.AfterFunc(c.config.ReconnectDelay, c.reconnect)
		}
		c.mu.Unlock()
		return
	}

	c.mu.Lock()
	c.conn = conn
	c.connectedAt = time.Now()
	c.mu.Unlock()
	c.logger.Info("reconnected")
}

// rotationSupervisor periodically replaces connections older than
// RotationMaxAge. The new connection is established first and the old one
// ended afterwards so no delivery gap opens during rotation.
func (c *IngressClient) rotationSupervisor() {
	defer close(c.supervisorDone)

	ticker := time.NewTicker(c.config.RotationCheckInterval)
	defer ticker.Stop()

	for {
		select {
		case <-c.supervisorStop:
			return
		case <-ticker.C:
			c.mu.Lock()
			age := time.Since(c.connectedAt)
			connected := c.conn != nil && c.conn.IsConnected()
			c.mu.Unlock()

			if connected && age >= c.config.RotationMaxAge {
				c.rotate()
			}
		}
	}
}

// rotate establishes a fresh connection and then gracefully ends the old.
func (c *IngressClient) rotate() {
	c.logger.Info("rotating ingress connection")

	ctx, cancel := context.WithTimeout(context.Background(), c.config.ConnectTimeout)
	newConn, err := c.connect(ctx)
	cancel()
	if err != nil {
		// The old connection stays up; rotation is retried on the next tick.
		c.logger.Error("rotation connect failed, keeping old connection", "error", err)
		return
	}

	c.mu.Lock()
	old := c.conn
	c.conn = newConn
	c.connectedAt = time.Now()
	c.mu.Unlock()

	c.metrics.ConnectionRotations.Inc()

	if old != nil && old.IsConnected() {
		old.Disconnect(250)
		c.logger.Info("previous connection ended after rotation")
	}
}

// stopTimersLocked cancels pending resubscription and reconnect timers.
// Caller must hold c.mu.
func (c *IngressClient) stopTimersLocked() {
	if c.resubTimer != nil {
		c.resubTimer.Stop()
		c.resubTimer = nil
	}
	if c.reconnectTimer != nil {
		c.reconnectTimer.Stop()
		c.reconnectTimer = nil
	}
}

// handleWarningMessage decodes an inbound realtime warning and publishes it
// onto the event bus. Malformed payloads are dropped and logged; the
// ingress loop never crashes on bad input.
func (c *IngressClient) handleWarningMessage(conn pahomqtt.Client, msg pahomqtt.Message) {
	c.metrics.MessagesReceived.WithLabelValues(TopicWarningFeed).Inc()
	c.logger.Debug("feed message", "topic", msg.Topic(), "bytes", len(msg.Payload()))

	var ev events.WarningEvent
	if err := json.Unmarshal(msg.Payload(), &ev); err != nil {
		c.metrics.ParseFailures.WithLabelValues(TopicWarningFeed).Inc()
		c.logger.Error("dropping malformed warning message", "error", err)
		return
	}

	c.bus.PublishWarning(context.Background(), ev)
}

// handleReportMessage decodes an inbound confirmation report and publishes
// it onto the event bus.
func (c *IngressClient) handleReportMessage(conn pahomqtt.Client, msg pahomqtt.Message) {
	c.metrics.MessagesReceived.WithLabelValues(TopicReportFeed).Inc()
	c.logger.Debug("feed message", "topic", msg.Topic(), "bytes", len(msg.Payload()))

	var ev events.ReportEvent
	if err := json.Unmarshal(msg.Payload(), &ev); err != nil {
		c.metrics.ParseFailures.WithLabelValues(TopicReportFeed).Inc()
		c.logger.Error("dropping malformed report message", "error", err)
		return
	}

	c.bus.PublishReport(context.Background(), ev)
}
