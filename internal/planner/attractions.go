package planner

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/url"
	"strconv"
	"time"

	"github.com/tripline/tripline-be/internal/geo"
)

const (
	// Indoor categories shown when the range has rain
	rainyWeatherKinds = "museums,religion"
	// Outdoor categories shown otherwise
	dryWeatherKinds = "architecture,natural"

	attractionsRadiusMeters = 10000
	attractionsLimit        = 10
)

// Attraction is one nearby place of interest.
type Attraction struct {
	Name  string  `json:"name"`
	Kinds string  `json:"kinds"`
	Dist  float64 `json:"dist"`
}

// AttractionsClient fetches points of interest around a coordinate
// from the OpenTripMap places API.
type AttractionsClient struct {
	baseURL    string
	apiKey     string
	httpClient *http.Client
	logger     *slog.Logger
}

// NewAttractionsClient creates a new AttractionsClient
func NewAttractionsClient(baseURL, apiKey string, timeout time.Duration, logger *slog.Logger) *AttractionsClient {
	if timeout <= 0 {
		timeout = 30 * time.Second
	}
	return &AttractionsClient{
		baseURL:    baseURL,
		apiKey:     apiKey,
		httpClient: &http.Client{Timeout: timeout},
		logger:     logger,
	}
}

// Nearby returns named attractions of the given kinds around coords,
// closest first. Unnamed places are dropped.
func (c *AttractionsClient) Nearby(ctx context.Context, coords geo.Coordinates, kinds string) ([]Attraction, error) {
	params := url.Values{}
	params.Set("radius", strconv.Itoa(attractionsRadiusMeters))
	params.Set("lat", strconv.FormatFloat(coords.Latitude, 'f', -1, 64))
	params.Set("lon", strconv.FormatFloat(coords.Longitude, 'f', -1, 64))
	params.Set("kinds", kinds)
	params.Set("rate", "2")
	params.Set("format", "json")
	params.Set("limit", strconv.Itoa(attractionsLimit))
	params.Set("apikey", c.apiKey)

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.baseURL+"?"+params.Encode(), http.NoBody)
	if err != nil {
		return nil, fmt.Errorf("failed to create attractions request: %w", err)
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("attractions request failed: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		body, _ := io.ReadAll(io.LimitReader(resp.Body, 512))
		return nil, fmt.Errorf("attractions API returned status %d: %s", resp.StatusCode, string(body))
	}

	var places []Attraction
	if err := json.NewDecoder(resp.Body).Decode(&places); err != nil {
		return nil, fmt.Errorf("failed to decode attractions response: %w", err)
	}

	named := places[:0]
	for _, p := range places {
		if p.Name != "" {
			named = append(named, p)
		}
	}

	c.logger.Debug("Attractions fetched",
		slog.String("kinds", kinds),
		slog.Int("count", len(named)),
	)

	return named, nil
}
