// discovery.go: broker endpoint discovery with a last-known-value cache.
package mqtt

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"time"

	gocache "github.com/patrickmn/go-cache"

	"github.com/tzhsiao/eew-go/internal/errors"
	"github.com/tzhsiao/eew-go/internal/logging"
)

// ErrNoBroker is returned when discovery fails and no broker has ever been
// cached; the connection attempt cannot proceed and is retried later.
var ErrNoBroker = errors.NewStd("no broker endpoint available")

// brokerCacheKey is the single cache entry for the last known broker.
const brokerCacheKey = "broker"

// discoveryTimeout bounds one info endpoint request.
const discoveryTimeout = 10 * time.Second

// BrokerInfo is the broker endpoint returned by the info endpoint.
type BrokerInfo struct {
	Host string `json:"host"`
	Port int    `json:"port"`
}

// URL returns the broker connection URL.
func (b BrokerInfo) URL() string {
	return fmt.Sprintf("ssl://%s:%d", b.Host, b.Port)
}

type brokerInfoResponse struct {
	Broker BrokerInfo `json:"broker"`
}

// Discovery fetches the current broker endpoint from the info endpoint,
// retaining the last successful answer so a transient fetch failure does
// not block a reconnect.
type Discovery struct {
	infoURL    string
	httpClient *http.Client
	cache      *gocache.Cache
	logger     *slog.Logger
}

// NewDiscovery creates a Discovery against the given info endpoint URL.
func NewDiscovery(infoURL string) *Discovery {
	return &Discovery{
		infoURL:    infoURL,
		httpClient: &http.Client{Timeout: discoveryTimeout},
		cache:      gocache.New(gocache.NoExpiration, 0),
		logger:     logging.ForService("mqtt"),
	}
}

// Broker returns the current broker endpoint. On fetch failure the last
// cached endpoint is reused; if none has ever been cached, ErrNoBroker is
// returned and the caller should retry the whole attempt later.
func (d *Discovery) Broker(ctx context.Context) (BrokerInfo, error) {
	info, err := d.fetch(ctx)
	if err == nil {
		d.cache.Set(brokerCacheKey, info, gocache.NoExpiration)
		return info, nil
	}

	if cached, ok := d.cache.Get(brokerCacheKey); ok {
		info := cached.(BrokerInfo)
		d.logger.Warn("broker discovery failed, reusing cached endpoint",
			"error", err, "host", info.Host, "port", info.Port)
		return info, nil
	}

	return BrokerInfo{}, errors.New(fmt.Errorf("%w: discovery failed with no cached endpoint: %v", ErrNoBroker, err)).
		Component("mqtt").
		Category(errors.CategoryDiscovery).
		Context("info_url", d.infoURL).
		Build()
}

func (d *Discovery) fetch(ctx context.Context) (BrokerInfo, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, d.infoURL, http.NoBody)
	if err != nil {
		return BrokerInfo{}, fmt.Errorf("error creating request: %w", err)
	}

	resp, err := d.httpClient.Do(req)
	if err != nil {
		return BrokerInfo{}, err
	}
	defer func() {
		_ = resp.Body.Close()
	}()

	if resp.StatusCode != http.StatusOK {
		return BrokerInfo{}, fmt.Errorf("info endpoint returned status %d", resp.StatusCode)
	}

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return BrokerInfo{}, fmt.Errorf("error reading info response: %w", err)
	}

	var decoded brokerInfoResponse
	if err := json.Unmarshal(body, &decoded); err != nil {
		return BrokerInfo{}, fmt.Errorf("error decoding info response: %w", err)
	}

	if decoded.Broker.Host == "" || decoded.Broker.Port == 0 {
		return BrokerInfo{}, fmt.Errorf("info endpoint returned incomplete broker info")
	}

	return decoded.Broker, nil
}
