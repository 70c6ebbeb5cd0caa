// Package mqtt provides the resilient ingress client for the seismic alert
// feed and the short-lived egress publisher for outbound notifications.
package mqtt

import (
	"time"
)

// Feed topics subscribed on the ingress connection.
const (
	TopicWarningFeed = "warning/cwb"
	TopicReportFeed  = "report/cwb"
)

// Topics published on the egress broker.
const (
	TopicWarningOut = "warning/earthquake"
	TopicReportOut  = "report/earthquake"
)

// feedQoS is the delivery guarantee for both subscriptions and egress
// publishes: at-least-once.
const feedQoS = 1

// Config holds the configuration for the ingress client.
type Config struct {
	ClientID  string
	Username  string
	Password  string
	Keepalive time.Duration

	// ReconnectDelay is the wait after an unintentional close before the
	// next connection attempt.
	ReconnectDelay time.Duration

	// ResubscribeInterval is the period of the idempotent resubscription
	// safeguard on a live connection.
	ResubscribeInterval time.Duration

	// RotationMaxAge is the age at which a healthy connection is replaced.
	RotationMaxAge time.Duration

	// RotationCheckInterval is how often the rotation supervisor checks
	// connection age.
	RotationCheckInterval time.Duration

	ConnectTimeout time.Duration
}

// DefaultConfig returns a Config with the relay's standard timing values.
func DefaultConfig() Config {
	return Config{
		Keepalive:             30 * time.Second,
		ReconnectDelay:        5 * time.Second,
		ResubscribeInterval:   time.Hour,
		RotationMaxAge:        24 * time.Hour,
		RotationCheckInterval: 5 * time.Second,
		ConnectTimeout:        30 * time.Second,
	}
}
