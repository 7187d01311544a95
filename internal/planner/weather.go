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

// DayWeather is one day of historical weather.
type DayWeather struct {
	Date        string
	TempMax     float64
	TempMin     float64
	PrecipSum   float64
	PrecipHours float64
}

// rainThresholdMM is the daily precipitation above which a day counts
// as rainy for attraction selection.
const rainThresholdMM = 1.0

// WeatherClient fetches daily historical weather from the open-meteo
// archive API.
type WeatherClient struct {
	baseURL    string
	httpClient *http.Client
	logger     *slog.Logger
}

type archiveResponse struct {
	Daily struct {
		Time             []string  `json:"time"`
		TemperatureMax   []float64 `json:"temperature_2m_max"`
		TemperatureMin   []float64 `json:"temperature_2m_min"`
		PrecipitationSum []float64 `json:"precipitation_sum"`
		PrecipitationHrs []float64 `json:"precipitation_hours"`
	} `json:"daily"`
}

// NewWeatherClient creates a new WeatherClient
func NewWeatherClient(baseURL string, timeout time.Duration, logger *slog.Logger) *WeatherClient {
	if timeout <= 0 {
		timeout = 30 * time.Second
	}
	return &WeatherClient{
		baseURL:    baseURL,
		httpClient: &http.Client{Timeout: timeout},
		logger:     logger,
	}
}

// DailyWeather returns one entry per day in [startDate, endDate].
func (c *WeatherClient) DailyWeather(ctx context.Context, coords geo.Coordinates, startDate, endDate string) ([]DayWeather, error) {
	params := url.Values{}
	params.Set("latitude", strconv.FormatFloat(coords.Latitude, 'f', -1, 64))
	params.Set("longitude", strconv.FormatFloat(coords.Longitude, 'f', -1, 64))
	params.Set("start_date", startDate)
	params.Set("end_date", endDate)
	params.Set("daily", "temperature_2m_max,temperature_2m_min,precipitation_sum,precipitation_hours")
	params.Set("timezone", "auto")

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.baseURL+"?"+params.Encode(), http.NoBody)
	if err != nil {
		return nil, fmt.Errorf("failed to create weather request: %w", err)
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("weather request failed: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		body, _ := io.ReadAll(io.LimitReader(resp.Body, 512))
		return nil, fmt.Errorf("weather API returned status %d: %s", resp.StatusCode, string(body))
	}

	var archive archiveResponse
	if err := json.NewDecoder(resp.Body).Decode(&archive); err != nil {
		return nil, fmt.Errorf("failed to decode weather response: %w", err)
	}

	days := make([]DayWeather, 0, len(archive.Daily.Time))
	for i, date := range archive.Daily.Time {
		day := DayWeather{Date: date}
		if i < len(archive.Daily.TemperatureMax) {
			day.TempMax = archive.Daily.TemperatureMax[i]
		}
		if i < len(archive.Daily.TemperatureMin) {
			day.TempMin = archive.Daily.TemperatureMin[i]
		}
		if i < len(archive.Daily.PrecipitationSum) {
			day.PrecipSum = archive.Daily.PrecipitationSum[i]
		}
		if i < len(archive.Daily.PrecipitationHrs) {
			day.PrecipHours = archive.Daily.PrecipitationHrs[i]
		}
		days = append(days, day)
	}

	if len(days) == 0 {
		return nil, fmt.Errorf("weather API returned no daily data for %s..%s", startDate, endDate)
	}

	c.logger.Debug("Weather fetched",
		slog.Int("days", len(days)),
		slog.String("start_date", startDate),
		slog.String("end_date", endDate),
	)

	return days, nil
}

// anyRain reports whether any day in the range counts as rainy.
func anyRain(days []DayWeather) bool {
	for _, d := range days {
		if d.PrecipSum > rainThresholdMM {
			return true
		}
	}
	return false
}
