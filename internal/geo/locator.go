// Package geo resolves a network address to a coarse, human readable location.
package geo

import (
	"context"
	"encoding/json"
	"fmt"
	"log"
	"net/http"
	"strings"
	"time"
)

// Defaults reported when a lookup fails.
const (
	DefaultIP       = "127.0.0.1"
	DefaultLocation = "Localhost"
)

// Location is the result of a lookup.
type Location struct {
	IP    string
	Label string
}

// Locator looks up the location of an address. Lookups are best-effort and
// always return a usable Location.
type Locator interface {
	Lookup(ctx context.Context, ip string) Location
}

// IPAPI queries an ipapi.co compatible endpoint.
type IPAPI struct {
	BaseURL    string
	httpClient *http.Client
}

// NewIPAPI creates a locator for baseURL (e.g. "https://ipapi.co").
func NewIPAPI(baseURL string, timeout time.Duration) *IPAPI {
	if timeout == 0 {
		timeout = 5 * time.Second
	}
	return &IPAPI{
		BaseURL:    strings.TrimRight(baseURL, "/"),
		httpClient: &http.Client{Timeout: timeout},
	}
}

type ipapiResponse struct {
	IP          string `json:"ip"`
	City        string `json:"city"`
	CountryName string `json:"country_name"`
	Error       bool   `json:"error"`
	Reason      string `json:"reason"`
}

// Lookup resolves ip. An empty or loopback ip asks the service about the
// server's own public address. On failure the caller's ip is kept (DefaultIP
// when empty) and the label is DefaultLocation.
func (c *IPAPI) Lookup(ctx context.Context, ip string) Location {
	fallback := Location{IP: DefaultIP, Label: DefaultLocation}
	if ip != "" {
		fallback.IP = ip
	}

	loc, err := c.lookup(ctx, ip)
	if err != nil {
		log.Printf("WARNING: geolocation lookup for %q failed: %v", ip, err)
		return fallback
	}
	return loc
}

func (c *IPAPI) lookup(ctx context.Context, ip string) (Location, error) {
	url := c.BaseURL + "/json/"
	if ip != "" && !isLoopback(ip) {
		url = c.BaseURL + "/" + ip + "/json/"
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return Location{}, err
	}
	req.Header.Set("Accept", "application/json")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return Location{}, err
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return Location{}, fmt.Errorf("unexpected status %s", resp.Status)
	}

	var body ipapiResponse
	if err := json.NewDecoder(resp.Body).Decode(&body); err != nil {
		return Location{}, fmt.Errorf("invalid response: %w", err)
	}
	if body.Error {
		return Location{}, fmt.Errorf("service error: %s", body.Reason)
	}
	if body.IP == "" {
		body.IP = ip
	}
	return Location{IP: body.IP, Label: fmt.Sprintf("%s, %s", body.City, body.CountryName)}, nil
}

func isLoopback(ip string) bool {
	return ip == "::1" || ip == "localhost" || strings.HasPrefix(ip, "127.")
}

// Static always returns the same location. Used when lookups are disabled.
type Static Location

func (s Static) Lookup(context.Context, string) Location {
	return Location(s)
}
