// Package geo resolves request IPs to coarse location data. Lookups are
// best-effort: private and loopback addresses resolve locally, remote lookups
// are time-bounded, and every failure path yields a fallback Location so the
// caller is never blocked on geo data.
package geo

import (
	"context"
	"encoding/json"
	"fmt"
	"log"
	"net"
	"net/http"
	"time"
)

const defaultTimeout = 3 * time.Second

// Location sources, recorded so the risk engine can penalize fallback data.
const (
	SourceLocal    = "local"
	SourceRemote   = "remote"
	SourceFallback = "fallback"
)

// Location is a coarse IP geolocation result.
type Location struct {
	Country string
	City    string
	Org     string
	Source  string
}

// Resolver resolves IPs via an ip-api style JSON endpoint.
type Resolver struct {
	BaseURL    string
	HTTPClient *http.Client
}

// NewResolver returns a resolver against the given base URL (e.g.
// http://ip-api.com/json). timeout bounds each lookup; zero uses 3s.
func NewResolver(baseURL string, timeout time.Duration) *Resolver {
	if timeout <= 0 {
		timeout = defaultTimeout
	}
	return &Resolver{
		BaseURL:    baseURL,
		HTTPClient: &http.Client{Timeout: timeout},
	}
}

// Lookup resolves ip to a Location. It never returns an error: unresolvable
// or failing lookups return a Location with Source set to "fallback".
func (r *Resolver) Lookup(ctx context.Context, ip string) Location {
	if ip == "" {
		return Location{Source: SourceFallback}
	}
	parsed := net.ParseIP(ip)
	if parsed == nil {
		return Location{Source: SourceFallback}
	}
	if parsed.IsLoopback() || parsed.IsPrivate() || parsed.IsUnspecified() {
		return Location{Country: "", City: "internal", Source: SourceLocal}
	}
	if r == nil || r.BaseURL == "" {
		return Location{Source: SourceFallback}
	}

	loc, err := r.remoteLookup(ctx, ip)
	if err != nil {
		log.Printf("geo: lookup %s failed: %v", ip, err)
		return Location{Source: SourceFallback}
	}
	loc.Source = SourceRemote
	return loc
}

func (r *Resolver) remoteLookup(ctx context.Context, ip string) (Location, error) {
	url := fmt.Sprintf("%s/%s?fields=status,country,city,org", r.BaseURL, ip)
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return Location{}, err
	}
	resp, err := r.HTTPClient.Do(req)
	if err != nil {
		return Location{}, err
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		return Location{}, fmt.Errorf("geo: status %d", resp.StatusCode)
	}
	var body struct {
		Status  string `json:"status"`
		Country string `json:"country"`
		City    string `json:"city"`
		Org     string `json:"org"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&body); err != nil {
		return Location{}, err
	}
	if body.Status != "" && body.Status != "success" {
		return Location{}, fmt.Errorf("geo: lookup status %q", body.Status)
	}
	return Location{Country: body.Country, City: body.City, Org: body.Org}, nil
}
