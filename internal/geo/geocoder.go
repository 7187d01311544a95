// Package geo resolves city names to coordinates through the
// open-meteo geocoding API.
package geo

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/url"
	"strings"
	"time"

	lru "github.com/hashicorp/golang-lru/v2"
)

// ErrNotFound is returned when the upstream lookup has no match for
// the requested city, or the best match has a different canonical name.
var ErrNotFound = errors.New("city not found")

// Coordinates is a resolved location.
type Coordinates struct {
	Latitude  float64
	Longitude float64
}

// Resolver looks up city coordinates. Implemented by Geocoder.
type Resolver interface {
	Resolve(ctx context.Context, city string) (Coordinates, error)
}

// Config holds geocoder configuration
type Config struct {
	BaseURL   string
	CacheSize int
	Timeout   time.Duration
}

// Geocoder resolves city names with a fixed-capacity memoization
// cache. Negative results are not cached so a transient upstream
// failure does not pin a city as unresolvable.
type Geocoder struct {
	baseURL    string
	httpClient *http.Client
	cache      *lru.Cache[string, Coordinates]
	logger     *slog.Logger
}

type searchResult struct {
	Name      string  `json:"name"`
	Latitude  float64 `json:"latitude"`
	Longitude float64 `json:"longitude"`
	Country   string  `json:"country"`
}

type searchResponse struct {
	Results []searchResult `json:"results"`
}

// NewGeocoder creates a new Geocoder
func NewGeocoder(cfg *Config, logger *slog.Logger) (*Geocoder, error) {
	size := cfg.CacheSize
	if size <= 0 {
		size = 256
	}

	cache, err := lru.New[string, Coordinates](size)
	if err != nil {
		return nil, fmt.Errorf("failed to create geocode cache: %w", err)
	}

	timeout := cfg.Timeout
	if timeout <= 0 {
		timeout = 10 * time.Second
	}

	return &Geocoder{
		baseURL:    cfg.BaseURL,
		httpClient: &http.Client{Timeout: timeout},
		cache:      cache,
		logger:     logger,
	}, nil
}

// Resolve returns the coordinates for a city name. The first upstream
// match must carry the same canonical name as the query, otherwise the
// city is treated as unknown.
func (g *Geocoder) Resolve(ctx context.Context, city string) (Coordinates, error) {
	key := strings.ToLower(strings.TrimSpace(city))

	if coords, ok := g.cache.Get(key); ok {
		g.logger.Debug("Geocode cache hit", slog.String("city", city))
		return coords, nil
	}

	coords, err := g.lookup(ctx, city)
	if err != nil {
		return Coordinates{}, err
	}

	g.cache.Add(key, coords)
	return coords, nil
}

func (g *Geocoder) lookup(ctx context.Context, city string) (Coordinates, error) {
	params := url.Values{}
	params.Set("name", city)
	params.Set("count", "1")
	params.Set("language", "en")
	params.Set("format", "json")

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, g.baseURL+"?"+params.Encode(), http.NoBody)
	if err != nil {
		return Coordinates{}, fmt.Errorf("failed to create geocoding request: %w", err)
	}

	resp, err := g.httpClient.Do(req)
	if err != nil {
		return Coordinates{}, fmt.Errorf("geocoding request failed: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		body, _ := io.ReadAll(io.LimitReader(resp.Body, 512))
		return Coordinates{}, fmt.Errorf("geocoding API returned status %d: %s", resp.StatusCode, string(body))
	}

	var search searchResponse
	if err := json.NewDecoder(resp.Body).Decode(&search); err != nil {
		return Coordinates{}, fmt.Errorf("failed to decode geocoding response: %w", err)
	}

	if len(search.Results) == 0 {
		return Coordinates{}, ErrNotFound
	}

	best := search.Results[0]
	if !strings.EqualFold(best.Name, strings.TrimSpace(city)) {
		g.logger.Debug("Geocode name mismatch",
			slog.String("requested", city),
			slog.String("matched", best.Name),
		)
		return Coordinates{}, ErrNotFound
	}

	g.logger.Debug("City resolved",
		slog.String("city", best.Name),
		slog.String("country", best.Country),
		slog.Float64("lat", best.Latitude),
		slog.Float64("lon", best.Longitude),
	)

	return Coordinates{Latitude: best.Latitude, Longitude: best.Longitude}, nil
}
