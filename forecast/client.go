// Package forecast is a thin client for the forecasting microservice. The
// service is a black box to us: we only consume its JSON endpoints for the
// dashboard surface, the core loop never depends on it.
package forecast

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"net/http"
	"time"
)

// Client implements the API onto the forecasting service.
type Client struct {
	httpClient http.Client
	baseUrl    string
	logger     *slog.Logger
}

func New(httpClient http.Client, baseUrl string) *Client {
	return &Client{
		httpClient: httpClient,
		baseUrl:    baseUrl,
		logger:     slog.Default().With("host", baseUrl),
	}
}

// HourlyPoint is one hour of actual vs predicted consumption.
type HourlyPoint struct {
	Hour      int      `json:"hour"`
	Label     string   `json:"label"`
	Actual    *float64 `json:"actual"`
	Predicted *float64 `json:"predicted"`
}

// DayForecast is the predicted peak and average for one upcoming day.
type DayForecast struct {
	Date          string   `json:"date"`
	DayLabel      string   `json:"dayLabel"`
	PeakPredicted *float64 `json:"peakPredicted"`
	AvgPredicted  *float64 `json:"avgPredicted"`
	IsWeekend     bool     `json:"isWeekend"`
}

// ModelStats describes the accuracy of the model behind the forecasts.
type ModelStats struct {
	MAE       float64 `json:"mae"`
	RMSE      float64 `json:"rmse"`
	R2        float64 `json:"r2"`
	Algorithm string  `json:"algorithm"`
}

// Forecast is the response of the service's /forecast endpoint.
type Forecast struct {
	Forecast24H    []HourlyPoint `json:"forecast24h"`
	WeeklyForecast []DayForecast `json:"weeklyForecast"`
	ModelStats     ModelStats    `json:"modelStats"`
}

// DailyPeak is one day of observed and predicted peak load.
type DailyPeak struct {
	Date       string   `json:"date"`
	PeakKW     *float64 `json:"peakKW"`
	PeakPredKW *float64 `json:"peakPredKW"`
	AvgKW      *float64 `json:"avgKW"`
	AvgPredKW  *float64 `json:"avgPredKW"`
}

// Peak is the response of the service's /peak endpoint.
type Peak struct {
	DailyPeak []DailyPeak `json:"dailyPeak"`
}

// Health is the response of the service's /health endpoint.
type Health struct {
	Status string `json:"status"`
	Model  string `json:"model"`
}

// Forecast pulls the 24h and 7-day forecasts from the service.
func (c *Client) Forecast(ctx context.Context) (Forecast, error) {
	var forecast Forecast
	if err := c.get(ctx, "/forecast", &forecast); err != nil {
		return Forecast{}, err
	}
	return forecast, nil
}

// Peak pulls the daily peak load summary from the service.
func (c *Client) Peak(ctx context.Context) (Peak, error) {
	var peak Peak
	if err := c.get(ctx, "/peak", &peak); err != nil {
		return Peak{}, err
	}
	return peak, nil
}

// Health checks that the service is up and its model is loaded.
func (c *Client) Health(ctx context.Context) (Health, error) {
	var health Health
	if err := c.get(ctx, "/health", &health); err != nil {
		return Health{}, err
	}
	return health, nil
}

func (c *Client) get(ctx context.Context, path string, parsed interface{}) error {

	req, err := http.NewRequestWithContext(ctx, "GET", c.baseUrl+path, nil)
	if err != nil {
		return err
	}

	start := time.Now()
	response, err := c.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("get %s: %w", path, err)
	}
	defer response.Body.Close()

	if response.StatusCode != 200 {
		return fmt.Errorf("unexpected status code: %d", response.StatusCode)
	}

	if err := json.NewDecoder(response.Body).Decode(parsed); err != nil {
		return fmt.Errorf("parse body: %w", err)
	}

	c.logger.Debug("Forecast service request", "path", path, "duration", time.Since(start))
	return nil
}
