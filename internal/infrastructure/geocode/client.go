package geocode

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/url"
	"time"

	"golang.org/x/time/rate"

	domain "github.com/geomap-tools/shareholder-import/internal/domain/shareholder"
)

type Config struct {
	BaseURL           string
	UserAgent         string
	RequestsPerSecond float64
	ReadyTimeout      time.Duration
	ReadyPollInterval time.Duration
}

// Client resolves raw address strings to coordinates against a Nominatim-style
// geocoding endpoint. The service's many failure modes (HTTP errors, rate
// limit responses, empty result sets, malformed bodies) are normalized into
// the three-way GeocodeResult before anything downstream sees them.
type Client struct {
	baseURL   string
	userAgent string
	http      *http.Client
	limiter   *rate.Limiter
	cfg       Config
}

func NewClient(cfg Config) *Client {
	if cfg.UserAgent == "" {
		cfg.UserAgent = "shareholder-import/1.0"
	}
	if cfg.RequestsPerSecond <= 0 {
		cfg.RequestsPerSecond = 1
	}
	if cfg.ReadyTimeout <= 0 {
		cfg.ReadyTimeout = 10 * time.Second
	}
	if cfg.ReadyPollInterval <= 0 {
		cfg.ReadyPollInterval = 500 * time.Millisecond
	}

	return &Client{
		baseURL:   cfg.BaseURL,
		userAgent: cfg.UserAgent,
		http:      &http.Client{Timeout: 15 * time.Second},
		limiter:   rate.NewLimiter(rate.Limit(cfg.RequestsPerSecond), 1),
		cfg:       cfg,
	}
}

// Ready polls the service status endpoint at a fixed short interval until it
// answers, or fails with ErrServiceUnavailable once the bounded timeout
// elapses. Every import run must pass through Ready before its first batch.
func (c *Client) Ready(ctx context.Context) error {
	deadline := time.Now().Add(c.cfg.ReadyTimeout)

	// bound the pings too, so a black-holing endpoint cannot stretch the
	// timeout by the HTTP client's own limit
	ctx, cancel := context.WithDeadline(ctx, deadline)
	defer cancel()

	for {
		if c.ping(ctx) {
			return nil
		}
		if time.Now().After(deadline) {
			return fmt.Errorf("%w: not ready after %s", domain.ErrServiceUnavailable, c.cfg.ReadyTimeout)
		}

		timer := time.NewTimer(c.cfg.ReadyPollInterval)
		select {
		case <-ctx.Done():
			timer.Stop()
			return fmt.Errorf("%w: %v", domain.ErrServiceUnavailable, ctx.Err())
		case <-timer.C:
		}
	}
}

func (c *Client) ping(ctx context.Context) bool {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.baseURL+"/status", nil)
	if err != nil {
		return false
	}
	req.Header.Set("User-Agent", c.userAgent)

	resp, err := c.http.Do(req)
	if err != nil {
		return false
	}
	defer resp.Body.Close()

	return resp.StatusCode == http.StatusOK
}

type searchHit struct {
	Lat string `json:"lat"`
	Lon string `json:"lon"`
}

// Resolve looks up a single address. Coordinates are passed through as the
// decimal-degree strings the service returned.
func (c *Client) Resolve(ctx context.Context, address string) domain.GeocodeResult {
	if err := c.limiter.Wait(ctx); err != nil {
		return domain.GeocodeResult{Status: domain.GeocodeServiceError}
	}

	params := url.Values{}
	params.Set("q", address)
	params.Set("format", "json")
	params.Set("limit", "1")

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.baseURL+"/search?"+params.Encode(), nil)
	if err != nil {
		return domain.GeocodeResult{Status: domain.GeocodeServiceError}
	}
	req.Header.Set("User-Agent", c.userAgent)
	req.Header.Set("Accept-Language", "en")

	resp, err := c.http.Do(req)
	if err != nil {
		return domain.GeocodeResult{Status: domain.GeocodeServiceError}
	}
	defer resp.Body.Close()

	// 429 and 5xx both land here; the scheduler treats them the same as a
	// no-match, the ledger keeps the distinction.
	if resp.StatusCode != http.StatusOK {
		return domain.GeocodeResult{Status: domain.GeocodeServiceError}
	}

	var hits []searchHit
	if err := json.NewDecoder(resp.Body).Decode(&hits); err != nil {
		return domain.GeocodeResult{Status: domain.GeocodeServiceError}
	}

	if len(hits) == 0 || hits[0].Lat == "" || hits[0].Lon == "" {
		return domain.GeocodeResult{Status: domain.GeocodeNoMatch}
	}

	return domain.GeocodeResult{
		Status: domain.GeocodeOK,
		Lat:    hits[0].Lat,
		Lng:    hits[0].Lon,
	}
}
