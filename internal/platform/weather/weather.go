// Package weather fetches current conditions from Open-Meteo, geocoding a
// city name first when one is given instead of coordinates. Open-Meteo needs
// no API key.
package weather

import (
	"context"
	"fmt"
	"net/url"

	"github.com/imlucaa/dashboard-api/internal/platform"
)

const (
	defaultForecastURL = "https://api.open-meteo.com/v1"
	defaultGeocodeURL  = "https://geocoding-api.open-meteo.com/v1"
)

// Client fetches weather data.
type Client struct {
	doer        *platform.Doer
	forecastURL string
	geocodeURL  string
}

// NewClient creates a weather client.
func NewClient(doer *platform.Doer) *Client {
	return &Client{doer: doer, forecastURL: defaultForecastURL, geocodeURL: defaultGeocodeURL}
}

// SetBaseURL points both the forecast and geocoding endpoints at one server
// (for testing).
func (c *Client) SetBaseURL(baseURL string) {
	c.forecastURL = baseURL
	c.geocodeURL = baseURL
}

// Location identifies where to fetch weather for. City wins over
// coordinates when both are set.
type Location struct {
	City      string
	Latitude  float64
	Longitude float64
}

// Current is the normalized weather payload.
type Current struct {
	City        string  `json:"city,omitempty"`
	Country     string  `json:"country,omitempty"`
	Latitude    float64 `json:"latitude"`
	Longitude   float64 `json:"longitude"`
	Temperature float64 `json:"temperature"`
	FeelsLike   float64 `json:"feelsLike"`
	Humidity    int     `json:"humidity"`
	WindSpeed   float64 `json:"windSpeed"`
	WeatherCode int     `json:"weatherCode"`
	Description string  `json:"description"`
	IsDay       bool    `json:"isDay"`
}

type geocodeResponse struct {
	Results []struct {
		Name      string  `json:"name"`
		Country   string  `json:"country"`
		Latitude  float64 `json:"latitude"`
		Longitude float64 `json:"longitude"`
	} `json:"results"`
}

type forecastResponse struct {
	Latitude  float64 `json:"latitude"`
	Longitude float64 `json:"longitude"`
	Current   struct {
		Temperature      float64 `json:"temperature_2m"`
		ApparentTemp     float64 `json:"apparent_temperature"`
		RelativeHumidity int     `json:"relative_humidity_2m"`
		WindSpeed        float64 `json:"wind_speed_10m"`
		WeatherCode      int     `json:"weather_code"`
		IsDay            int     `json:"is_day"`
	} `json:"current"`
}

// weatherDescriptions maps WMO weather codes to display text.
var weatherDescriptions = map[int]string{
	0:  "Clear sky",
	1:  "Mainly clear",
	2:  "Partly cloudy",
	3:  "Overcast",
	45: "Fog",
	48: "Depositing rime fog",
	51: "Light drizzle",
	53: "Moderate drizzle",
	55: "Dense drizzle",
	61: "Slight rain",
	63: "Moderate rain",
	65: "Heavy rain",
	66: "Freezing rain",
	71: "Slight snow",
	73: "Moderate snow",
	75: "Heavy snow",
	77: "Snow grains",
	80: "Slight showers",
	81: "Moderate showers",
	82: "Violent showers",
	85: "Snow showers",
	95: "Thunderstorm",
	96: "Thunderstorm with hail",
	99: "Thunderstorm with heavy hail",
}

func describe(code int) string {
	if text, ok := weatherDescriptions[code]; ok {
		return text
	}
	return "Unknown"
}

// geocode resolves a city name to coordinates via the first geocoding match.
func (c *Client) geocode(ctx context.Context, city string) (*Current, error) {
	var raw geocodeResponse
	reqURL := fmt.Sprintf("%s/search?name=%s&count=1&language=en&format=json", c.geocodeURL, url.QueryEscape(city))
	if err := c.doer.GetJSON(ctx, "weather", reqURL, nil, &raw); err != nil {
		return nil, err
	}
	if len(raw.Results) == 0 {
		return nil, platform.NewError(platform.CodeNotFound, 404, fmt.Sprintf("city %q not found", city))
	}
	match := raw.Results[0]
	return &Current{
		City:      match.Name,
		Country:   match.Country,
		Latitude:  match.Latitude,
		Longitude: match.Longitude,
	}, nil
}

// Fetch retrieves current conditions for the location.
func (c *Client) Fetch(ctx context.Context, location Location) (*Current, error) {
	current := &Current{
		City:      location.City,
		Latitude:  location.Latitude,
		Longitude: location.Longitude,
	}
	if location.City != "" {
		resolved, err := c.geocode(ctx, location.City)
		if err != nil {
			return nil, err
		}
		current = resolved
	} else if location.Latitude == 0 && location.Longitude == 0 {
		return nil, platform.ConfigError("weather location is not configured")
	}

	var raw forecastResponse
	reqURL := fmt.Sprintf(
		"%s/forecast?latitude=%.4f&longitude=%.4f&current=temperature_2m,apparent_temperature,relative_humidity_2m,wind_speed_10m,weather_code,is_day",
		c.forecastURL, current.Latitude, current.Longitude)
	if err := c.doer.GetJSON(ctx, "weather", reqURL, nil, &raw); err != nil {
		return nil, err
	}

	current.Temperature = raw.Current.Temperature
	current.FeelsLike = raw.Current.ApparentTemp
	current.Humidity = raw.Current.RelativeHumidity
	current.WindSpeed = raw.Current.WindSpeed
	current.WeatherCode = raw.Current.WeatherCode
	current.Description = describe(raw.Current.WeatherCode)
	current.IsDay = raw.Current.IsDay == 1
	return current, nil
}
