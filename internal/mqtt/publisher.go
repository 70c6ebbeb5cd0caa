// publisher.go: short-lived egress connections for outbound notifications.
package mqtt

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"time"

	pahomqtt "github.com/eclipse/paho.mqtt.golang"

	"github.com/tzhsiao/eew-go/internal/conf"
	"github.com/tzhsiao/eew-go/internal/errors"
	"github.com/tzhsiao/eew-go/internal/logging"
	"github.com/tzhsiao/eew-go/internal/observability"
)

// egress operation timeouts
const (
	egressConnectTimeout = 10 * time.Second
	egressPublishTimeout = 10 * time.Second
)

// WarningNotification is the simplified outbound warning payload.
type WarningNotification struct {
	Level string  `json:"level"` // display label, e.g. "5-"
	Sec   float64 `json:"sec"`   // remaining lead seconds
}

// ReportNotification is the outbound confirmed report payload.
type ReportNotification struct {
	Report string `json:"report"` // localized human-readable description
}

// Publisher publishes outbound notifications on the egress broker. Every
// publish opens its own connection and closes it before returning, so a
// slow or failing ingress reconnect never blocks outbound notification.
type Publisher struct {
	settings conf.EgressSettings
	clientID string
	metrics  *observability.Metrics
	logger   *slog.Logger
}

// NewPublisher creates a publisher for the configured egress broker.
func NewPublisher(settings conf.EgressSettings, clientID string, metrics *observability.Metrics) *Publisher {
	return &Publisher{
		settings: settings,
		clientID: clientID,
		metrics:  metrics,
		logger:   logging.ForService("mqtt"),
	}
}

// PublishWarning publishes a simplified warning to the egress broker.
func (p *Publisher) PublishWarning(ctx context.Context, level string, sec float64) error {
	payload, err := json.Marshal(WarningNotification{Level: level, Sec: sec})
	if err != nil {
		return err
	}
	if err := p.publish(ctx, TopicWarningOut, payload); err != nil {
		return err
	}
	p.metrics.Notifications.WithLabelValues("warning").Inc()
	return nil
}

// PublishReport publishes a confirmed report notification.
func (p *Publisher) PublishReport(ctx context.Context, report string) error {
	payload, err := json.Marshal(ReportNotification{Report: report})
	if err != nil {
		return err
	}
	if err := p.publish(ctx, TopicReportOut, payload); err != nil {
		return err
	}
	p.metrics.Notifications.WithLabelValues("report").Inc()
	return nil
}

// publish performs one connect-publish-disconnect cycle at QoS 1. The
// connection is closed on every exit path.
func (p *Publisher) publish(ctx context.Context, topic string, payload []byte) error {
	opts := pahomqtt.NewClientOptions()
	opts.AddBroker(p.settings.Broker)
	opts.SetClientID(fmt.Sprintf("%s-egress-%d", p.clientID, time.Now().UnixMilli()))
	opts.SetUsername(p.settings.Username)
	opts.SetPassword(p.settings.Password)
	opts.SetCleanSession(true)
	opts.SetAutoReconnect(false)
	opts.SetConnectRetry(false)

	conn := pahomqtt.NewClient(opts)
	defer func() {
		if conn.IsConnected() {
			conn.Disconnect(250)
		}
	}()

	token := conn.Connect()
	if !waitToken(ctx, token, egressConnectTimeout) {
		return errors.Newf("egress connection timeout to %s", p.settings.Broker).
			Component("mqtt").
			Category(errors.CategoryTimeout).
			Build()
	}
	if err := token.Error(); err != nil {
		return errors.New(fmt.Errorf("egress connection error: %w", err)).
			Component("mqtt").
			Category(errors.CategoryMQTTConnection).
			Context("broker", p.settings.Broker).
			Build()
	}

	pubToken := conn.Publish(topic, feedQoS, false, payload)
	if !waitToken(ctx, pubToken, egressPublishTimeout) {
		return errors.Newf("egress publish timeout on %s", topic).
			Component("mqtt").
			Category(errors.CategoryTimeout).
			Build()
	}
	if err := pubToken.Error(); err != nil {
		return errors.New(fmt.Errorf("egress publish error: %w", err)).
			Component("mqtt").
			Category(errors.CategoryMQTTPublish).
			Context("topic", topic).
			Build()
	}

	p.logger.Info("published notification", "topic", topic, "bytes", len(payload))
	return nil
}

// waitToken waits for a paho token respecting both the context and timeout.
func waitToken(ctx context.Context, token pahomqtt.Token, timeout time.Duration) bool {
	deadline := time.NewTimer(timeout)
	defer deadline.Stop()

	select {
	case <-token.Done():
		return true
	case <-ctx.Done():
		return false
	case <-deadline.C:
		return false
	}
}
