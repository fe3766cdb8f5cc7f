package geo

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/ClipsonBusiness/tracking-system-sub000/config"
)

// Location is a best-effort country/city pair; either field may be empty.
type Location struct {
	Country string
	City    string
}

// Locator resolves an IP address to a location. Implementations are
// best-effort: a failed lookup returns an error and the caller records
// the click without geography.
type Locator interface {
	Locate(ctx context.Context, ip string) (Location, error)
}

type httpLocator struct {
	client   *http.Client
	endpoint string
}

// NewLocator builds an HTTP locator against an ip-api style JSON
// endpoint. An empty endpoint yields a locator that resolves nothing.
func NewLocator(cfg config.GeoConfig) Locator {
	if cfg.Endpoint == "" {
		return noopLocator{}
	}

	timeout := time.Duration(cfg.TimeoutSeconds) * time.Second
	if timeout <= 0 {
		timeout = 2 * time.Second
	}

	return &httpLocator{
		client:   &http.Client{Timeout: timeout},
		endpoint: strings.TrimRight(cfg.Endpoint, "/"),
	}
}

func (l *httpLocator) Locate(ctx context.Context, ip string) (Location, error) {
	url := fmt.Sprintf("%s/%s", l.endpoint, ip)
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return Location{}, fmt.Errorf("geo: build request: %w", err)
	}

	resp, err := l.client.Do(req)
	if err != nil {
		return Location{}, fmt.Errorf("geo: lookup %s: %w", ip, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return Location{}, fmt.Errorf("geo: lookup %s: status %d", ip, resp.StatusCode)
	}

	var payload struct {
		CountryCode string `json:"countryCode"`
		City        string `json:"city"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&payload); err != nil {
		return Location{}, fmt.Errorf("geo: decode response: %w", err)
	}

	return Location{Country: payload.CountryCode, City: payload.City}, nil
}

type noopLocator struct{}

func (noopLocator) Locate(context.Context, string) (Location, error) {
	return Location{}, nil
}
