package planner

import (
	"context"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/tripline/tripline-be/internal/geo"
)

type staticResolver struct {
	coords geo.Coordinates
	err    error
}

func (r *staticResolver) Resolve(ctx context.Context, city string) (geo.Coordinates, error) {
	return r.coords, r.err
}

const rainyArchive = `{"daily":{
	"time":["2024-02-01","2024-02-02"],
	"temperature_2m_max":[3.1,4.5],
	"temperature_2m_min":[-2.0,-1.2],
	"precipitation_sum":[5.2,0.0],
	"precipitation_hours":[6,0]}}`

const dryArchive = `{"daily":{
	"time":["2024-02-01","2024-02-02"],
	"temperature_2m_max":[21.0,23.4],
	"temperature_2m_min":[12.3,13.0],
	"precipitation_sum":[0.0,0.2],
	"precipitation_hours":[0,0]}}`

func newTestService(t *testing.T, archiveBody string, capturedKinds *string) *Service {
	t.Helper()

	weatherSrv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.NotEmpty(t, r.URL.Query().Get("latitude"))
		assert.Equal(t, "2024-02-01", r.URL.Query().Get("start_date"))
		w.Write([]byte(archiveBody))
	}))
	t.Cleanup(weatherSrv.Close)

	attractionsSrv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if capturedKinds != nil {
			*capturedKinds = r.URL.Query().Get("kinds")
		}
		assert.Equal(t, "test-key", r.URL.Query().Get("apikey"))
		w.Write([]byte(`[{"name":"Royal Ontario Museum","kinds":"museums","dist":812.5},{"name":"","kinds":"museums","dist":90}]`))
	}))
	t.Cleanup(attractionsSrv.Close)

	svc, err := NewService(&Config{
		WeatherURL:        weatherSrv.URL,
		AttractionsURL:    attractionsSrv.URL,
		AttractionsAPIKey: "test-key",
	}, &staticResolver{coords: geo.Coordinates{Latitude: 43.7, Longitude: -79.4}}, slog.New(slog.DiscardHandler))
	require.NoError(t, err)

	return svc
}

func TestPlan_RainPicksIndoorKinds(t *testing.T) {
	var kinds string
	svc := newTestService(t, rainyArchive, &kinds)

	report, err := svc.Plan(context.Background(), TripRequest{
		City:      "Toronto",
		StartDate: "2024-02-01",
		EndDate:   "2024-02-02",
	})
	require.NoError(t, err)

	assert.Equal(t, rainyWeatherKinds, kinds)
	assert.Contains(t, report, "Toronto")
	assert.Contains(t, report, "Royal Ontario Museum")
	assert.Contains(t, report, "indoor")
	// Unnamed places are dropped
	assert.NotContains(t, report, "(0.1 km away)")
}

func TestPlan_DryPicksOutdoorKinds(t *testing.T) {
	var kinds string
	svc := newTestService(t, dryArchive, &kinds)

	report, err := svc.Plan(context.Background(), TripRequest{
		City:      "Toronto",
		StartDate: "2024-02-01",
		EndDate:   "2024-02-02",
	})
	require.NoError(t, err)

	assert.Equal(t, dryWeatherKinds, kinds)
	assert.Contains(t, report, "outdoor")
}

func TestPlan_ResolveFailure(t *testing.T) {
	svc, err := NewService(&Config{
		WeatherURL:     "http://127.0.0.1:0",
		AttractionsURL: "http://127.0.0.1:0",
	}, &staticResolver{err: geo.ErrNotFound}, slog.New(slog.DiscardHandler))
	require.NoError(t, err)

	_, err = svc.Plan(context.Background(), TripRequest{
		City:      "Nonexistentville",
		StartDate: "2024-01-02",
		EndDate:   "2024-01-03",
	})
	assert.ErrorIs(t, err, geo.ErrNotFound)
}

func TestPlan_WeatherUpstreamFailure(t *testing.T) {
	weatherSrv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusBadGateway)
	}))
	t.Cleanup(weatherSrv.Close)

	svc, err := NewService(&Config{
		WeatherURL:     weatherSrv.URL,
		AttractionsURL: "http://127.0.0.1:0",
	}, &staticResolver{coords: geo.Coordinates{Latitude: 1, Longitude: 2}}, slog.New(slog.DiscardHandler))
	require.NoError(t, err)

	_, err = svc.Plan(context.Background(), TripRequest{
		City:      "Toronto",
		StartDate: "2024-02-01",
		EndDate:   "2024-02-02",
	})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "weather")
}

func TestTextComposer_Deterministic(t *testing.T) {
	c := &TextComposer{}
	req := TripRequest{City: "Toronto", StartDate: "2024-02-01", EndDate: "2024-02-02"}
	days := []DayWeather{{Date: "2024-02-01", TempMax: 4, TempMin: -1, PrecipSum: 3, PrecipHours: 2}}
	attractions := []Attraction{{Name: "Casa Loma", Dist: 1500}}

	first, err := c.Compose(context.Background(), req, days, attractions)
	require.NoError(t, err)
	second, err := c.Compose(context.Background(), req, days, attractions)
	require.NoError(t, err)

	assert.Equal(t, first, second)
	assert.Contains(t, first, "Casa Loma (1.5 km away)")
}

func TestAnyRain(t *testing.T) {
	assert.False(t, anyRain([]DayWeather{{PrecipSum: 0.4}, {PrecipSum: 1.0}}))
	assert.True(t, anyRain([]DayWeather{{PrecipSum: 0}, {PrecipSum: 1.1}}))
	assert.False(t, anyRain(nil))
}
