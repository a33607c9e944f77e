// internal/weather/client.go
package weather

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/url"
	"time"

	commonerrors "weather-notify/internal/common/errors"
	"weather-notify/internal/common/httpx"
	"weather-notify/internal/common/metrics"
)

const providerName = "open-meteo"

// Snapshot is one current-conditions reading for a coordinate pair.
type Snapshot struct {
	TemperatureC float64   `json:"temperatureC"`
	Code         int       `json:"weatherCode"`
	Description  string    `json:"description"`
	Emoji        string    `json:"emoji"`
	CapturedAt   time.Time `json:"capturedAt"`
}

// Place is one geocoding result for a searched city.
type Place struct {
	Name      string  `json:"name"`
	Latitude  float64 `json:"latitude"`
	Longitude float64 `json:"longitude"`
	Country   string  `json:"country"`
}

// Client fetches current conditions and geocoding results from Open-Meteo.
type Client struct {
	forecastURL string
	geocodeURL  string
	http        *httpx.Client
	now         func() time.Time
}

func NewClient(forecastURL, geocodeURL string, httpClient *httpx.Client) *Client {
	return &Client{
		forecastURL: forecastURL,
		geocodeURL:  geocodeURL,
		http:        httpClient,
		now:         time.Now,
	}
}

// FetchCurrent returns one weather snapshot for the given coordinates.
func (c *Client) FetchCurrent(ctx context.Context, lat, lon float64) (Snapshot, error) {
	buildRequest := func() (*http.Request, error) {
		values := url.Values{}
		values.Set("latitude", fmt.Sprintf("%f", lat))
		values.Set("longitude", fmt.Sprintf("%f", lon))
		values.Set("current", "temperature_2m,weather_code")
		values.Set("timezone", "auto")

		return http.NewRequest(http.MethodGet, fmt.Sprintf("%s?%s", c.forecastURL, values.Encode()), nil)
	}

	resp, err := c.http.Do(ctx, buildRequest)
	if err != nil {
		metrics.WeatherFetches.WithLabelValues("error").Inc()
		return Snapshot{}, commonerrors.NewProviderUnavailableError(providerName, err)
	}
	defer resp.Body.Close()

	var payload struct {
		Current *struct {
			Temperature *float64 `json:"temperature_2m"`
			WeatherCode *int     `json:"weather_code"`
		} `json:"current"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&payload); err != nil {
		metrics.WeatherFetches.WithLabelValues("malformed").Inc()
		return Snapshot{}, commonerrors.NewProviderMalformedResponseError(providerName, err.Error())
	}
	if payload.Current == nil || payload.Current.Temperature == nil || payload.Current.WeatherCode == nil {
		metrics.WeatherFetches.WithLabelValues("malformed").Inc()
		return Snapshot{}, commonerrors.NewProviderMalformedResponseError(providerName, "missing current.temperature_2m or current.weather_code")
	}

	code := *payload.Current.WeatherCode
	cond := Describe(code)

	metrics.WeatherFetches.WithLabelValues("ok").Inc()
	return Snapshot{
		TemperatureC: *payload.Current.Temperature,
		Code:         code,
		Description:  cond.Description,
		Emoji:        cond.Emoji,
		CapturedAt:   c.now().UTC(),
	}, nil
}

// GeocodeCity resolves a searched city name to coordinates.
func (c *Client) GeocodeCity(ctx context.Context, query string) (Place, error) {
	buildRequest := func() (*http.Request, error) {
		values := url.Values{}
		values.Set("name", query)
		values.Set("count", "1")
		values.Set("language", "en")
		values.Set("format", "json")

		return http.NewRequest(http.MethodGet, fmt.Sprintf("%s?%s", c.geocodeURL, values.Encode()), nil)
	}

	resp, err := c.http.Do(ctx, buildRequest)
	if err != nil {
		return Place{}, commonerrors.NewProviderUnavailableError(providerName, err)
	}
	defer resp.Body.Close()

	var payload struct {
		Results []Place `json:"results"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&payload); err != nil {
		return Place{}, commonerrors.NewProviderMalformedResponseError(providerName, err.Error())
	}
	if len(payload.Results) == 0 {
		return Place{}, commonerrors.NewCityNotFoundError(query)
	}

	return payload.Results[0], nil
}
