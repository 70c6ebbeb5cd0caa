// Package events provides a typed in-process publish/subscribe bus used to
// decouple the ingress client from the warning orchestrator. The message
// kinds form a closed union: WarningEvent for realtime alerts and
// ReportEvent for post-event confirmations.
package events

import (
	"time"
)

// WarningEvent is a decoded realtime alert from the seismic feed.
type WarningEvent struct {
	EpicenterLat float64 `json:"epicenterLat"`
	EpicenterLon float64 `json:"epicenterLon"`
	DepthKm      float64 `json:"depth"`
	Magnitude    float64 `json:"magnitude"`
	OriginTime   int64   `json:"time"` // epoch milliseconds
	Description  string  `json:"description"`
}

// Origin returns the event origin time as a time.Time.
func (e WarningEvent) Origin() time.Time {
	return time.UnixMilli(e.OriginTime)
}

// ReportEvent is a decoded post-event confirmation report. Description is
// free text prefixed with an MM/DD-HH:MM timestamp.
type ReportEvent struct {
	EpicenterLat float64 `json:"epicenterLat"`
	EpicenterLon float64 `json:"epicenterLon"`
	DepthKm      float64 `json:"depth"`
	Magnitude    float64 `json:"magnitude"`
	OriginTime   int64   `json:"time"` // epoch milliseconds
	Description  string  `json:"description"`
}
