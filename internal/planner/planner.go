// Package planner produces the trip report for a task: historical
// weather for the date range, attractions picked to suit the weather,
// and a composed text artifact.
package planner

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/tripline/tripline-be/internal/geo"
)

// TripRequest carries the fields submitted by the client. Dates use
// the 2006-01-02 layout.
type TripRequest struct {
	City      string
	StartDate string
	EndDate   string
}

// Planner produces a text report for a trip request.
type Planner interface {
	Plan(ctx context.Context, req TripRequest) (string, error)
}

// Config holds planner configuration
type Config struct {
	WeatherURL        string
	AttractionsURL    string
	AttractionsAPIKey string
	GeminiAPIKey      string
	GeminiModel       string
	HTTPTimeout       time.Duration
}

// Service is the production Planner. It resolves the city, fetches
// daily weather, steers the attraction categories by rain, and hands
// everything to the composer.
type Service struct {
	resolver    geo.Resolver
	weather     *WeatherClient
	attractions *AttractionsClient
	composer    Composer
	logger      *slog.Logger
}

// NewService creates a planner Service. When no Gemini key is
// configured the deterministic text composer is used.
func NewService(cfg *Config, resolver geo.Resolver, logger *slog.Logger) (*Service, error) {
	var composer Composer
	if cfg.GeminiAPIKey != "" {
		gc, err := NewGeminiComposer(cfg.GeminiAPIKey, cfg.GeminiModel, logger)
		if err != nil {
			return nil, fmt.Errorf("failed to create gemini composer: %w", err)
		}
		composer = gc
	} else {
		logger.Info("No Gemini API key configured, using plain text composer")
		composer = &TextComposer{}
	}

	return &Service{
		resolver:    resolver,
		weather:     NewWeatherClient(cfg.WeatherURL, cfg.HTTPTimeout, logger),
		attractions: NewAttractionsClient(cfg.AttractionsURL, cfg.AttractionsAPIKey, cfg.HTTPTimeout, logger),
		composer:    composer,
		logger:      logger,
	}, nil
}

// Plan produces the trip report text.
func (s *Service) Plan(ctx context.Context, req TripRequest) (string, error) {
	started := time.Now()

	coords, err := s.resolver.Resolve(ctx, req.City)
	if err != nil {
		return "", fmt.Errorf("failed to resolve city %q: %w", req.City, err)
	}

	days, err := s.weather.DailyWeather(ctx, coords, req.StartDate, req.EndDate)
	if err != nil {
		return "", fmt.Errorf("failed to fetch weather for %q: %w", req.City, err)
	}

	// Indoor attractions for rainy periods, outdoor otherwise
	kinds := dryWeatherKinds
	if anyRain(days) {
		kinds = rainyWeatherKinds
	}

	attractions, err := s.attractions.Nearby(ctx, coords, kinds)
	if err != nil {
		return "", fmt.Errorf("failed to fetch attractions for %q: %w", req.City, err)
	}

	report, err := s.composer.Compose(ctx, req, days, attractions)
	if err != nil {
		return "", fmt.Errorf("failed to compose report for %q: %w", req.City, err)
	}

	s.logger.Info("Trip report produced",
		slog.String("city", req.City),
		slog.Int("days", len(days)),
		slog.Int("attractions", len(attractions)),
		slog.Duration("elapsed", time.Since(started)),
	)

	return report, nil
}
