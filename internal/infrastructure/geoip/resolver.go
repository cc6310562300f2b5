// Package geoip resolves client IP addresses to a display location.
package geoip

import (
	"context"
	"fmt"
	"net/http"
	"net/netip"
	"strings"
	"time"

	"github.com/go-resty/resty/v2"

	"pomegranate/internal/infrastructure/cache"
)

// LocalNetwork is returned for loopback and private addresses.
const LocalNetwork = "Local network"

// Config holds lookup service settings.
type Config struct {
	// Endpoint is the lookup base URL; the IP is appended as a path segment.
	Endpoint string
	Timeout  time.Duration
	CacheTTL time.Duration
	// CacheSize bounds the number of cached addresses.
	CacheSize int
}

// Resolver looks addresses up over HTTP and caches the answers.
type Resolver struct {
	http  *resty.Client
	cache *cache.TTL[string, string]
}

// New creates a Resolver. Call Start to sweep the cache in the background.
func New(cfg Config) *Resolver {
	if cfg.Timeout <= 0 {
		cfg.Timeout = 2 * time.Second
	}
	if cfg.CacheTTL <= 0 {
		cfg.CacheTTL = 6 * time.Hour
	}
	if cfg.CacheSize <= 0 {
		cfg.CacheSize = 10000
	}
	return &Resolver{
		http: resty.New().
			SetBaseURL(strings.TrimRight(cfg.Endpoint, "/")).
			SetTimeout(cfg.Timeout).
			SetHeader("Accept", "application/json"),
		cache: cache.NewTTL[string, string](cfg.CacheTTL, cfg.CacheSize),
	}
}

// Start runs the cache sweeper until ctx ends.
func (r *Resolver) Start(ctx context.Context) {
	r.cache.Start(ctx, 10*time.Minute)
}

// Stop halts the cache sweeper.
func (r *Resolver) Stop() {
	r.cache.Stop()
}

// lookupResponse follows the ip-api.com JSON shape.
type lookupResponse struct {
	Status     string `json:"status"`
	Message    string `json:"message"`
	Country    string `json:"country"`
	RegionName string `json:"regionName"`
	City       string `json:"city"`
}

func (l lookupResponse) location() string {
	switch {
	case l.RegionName != "":
		return l.RegionName
	case l.City != "":
		return l.City
	default:
		return l.Country
	}
}

// Locate returns the region for ip.
func (r *Resolver) Locate(ctx context.Context, ip string) (string, error) {
	addr, err := netip.ParseAddr(strings.TrimSpace(ip))
	if err != nil {
		return "", fmt.Errorf("parse ip %q: %w", ip, err)
	}
	addr = addr.Unmap()
	if addr.IsLoopback() || addr.IsPrivate() || addr.IsLinkLocalUnicast() || addr.IsUnspecified() {
		return LocalNetwork, nil
	}

	key := addr.String()
	if loc, ok := r.cache.Get(key); ok {
		return loc, nil
	}

	var out lookupResponse
	resp, err := r.http.R().
		SetContext(ctx).
		SetPathParam("ip", key).
		SetResult(&out).
		Get("/{ip}")
	if err != nil {
		return "", fmt.Errorf("geoip request: %w", err)
	}
	if resp.StatusCode() != http.StatusOK {
		return "", fmt.Errorf("geoip status %d", resp.StatusCode())
	}
	if out.Status != "" && out.Status != "success" {
		return "", fmt.Errorf("geoip lookup failed: %s", out.Message)
	}

	loc := out.location()
	if loc == "" {
		return "", fmt.Errorf("geoip returned no location for %s", key)
	}
	r.cache.Set(key, loc)
	return loc, nil
}
