package owm

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/url"
	"time"

	"github.com/sony/gobreaker"
)

const BASE_URL = "https://api.openweathermap.org/data/2.5/weather"

var (
	ErrUnexpectedStatus = errors.New("unexpected status code")
	ErrInvalidPayload   = errors.New("invalid payload")
	ErrCircuitOpen      = errors.New("circuit breaker open")
)

// StatusError is a non-2xx answer. Body holds the start of the provider's
// explanation, e.g. "city not found".
type StatusError struct {
	City string
	Code int
	Body string
}

func (e *StatusError) Error() string {
	return fmt.Sprintf("error fetching weather for %s: %v: %d %s", e.City, ErrUnexpectedStatus, e.Code, e.Body)
}

func (e *StatusError) Unwrap() error {
	return ErrUnexpectedStatus
}

// providerFailure tells errors that say something about the provider (down,
// overloaded, key revoked) from errors that only concern the requested city.
func providerFailure(err error) bool {
	if err == nil || errors.Is(err, ErrInvalidPayload) {
		return false
	}
	var statusErr *StatusError
	if errors.As(err, &statusErr) {
		switch {
		case statusErr.Code == http.StatusUnauthorized,
			statusErr.Code == http.StatusForbidden,
			statusErr.Code == http.StatusTooManyRequests,
			statusErr.Code >= 500:
			return true
		}
		return false
	}
	return true
}

type Client struct {
	logger  *slog.Logger
	apiKey  string
	baseURL string
	client  *http.Client
	circuit *gobreaker.CircuitBreaker
}

type Option func(*Client)

func WithBaseURL(baseURL string) Option {
	return func(c *Client) { c.baseURL = baseURL }
}

func WithHTTPClient(client *http.Client) Option {
	return func(c *Client) { c.client = client }
}

func WithLogger(logger *slog.Logger) Option {
	return func(c *Client) { c.logger = logger }
}

// WithBreaker trips the circuit after the given number of consecutive provider
// failures. A 400 or 404 for a single city counts as a working provider. While
// open every call fails fast. Zero disables the breaker.
func WithBreaker(consecutiveFailures uint32, openTimeout time.Duration) Option {
	return func(c *Client) {
		if consecutiveFailures == 0 {
			c.circuit = nil
			return
		}
		c.circuit = gobreaker.NewCircuitBreaker(gobreaker.Settings{
			Name:        "openweathermap",
			MaxRequests: 1,
			Timeout:     openTimeout,
			ReadyToTrip: func(counts gobreaker.Counts) bool {
				return counts.ConsecutiveFailures >= consecutiveFailures
			},
			IsSuccessful: func(err error) bool {
				return !providerFailure(err)
			},
			OnStateChange: func(name string, from gobreaker.State, to gobreaker.State) {
				c.logger.Warn("circuit breaker changed state",
					slog.String("breaker", name),
					slog.String("from", from.String()),
					slog.String("to", to.String()))
			},
		})
	}
}

func New(apiKey string, opts ...Option) *Client {
	c := &Client{
		logger:  slog.Default().With("module", "owm"),
		apiKey:  apiKey,
		baseURL: BASE_URL,
		client:  &http.Client{Timeout: 10 * time.Second},
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// GetCurrentWeather does a single request for the city, there are no retries.
func (c *Client) GetCurrentWeather(ctx context.Context, city string) (Observation, error) {
	if c.circuit == nil {
		return c.get(ctx, city)
	}

	res, err := c.circuit.Execute(func() (interface{}, error) {
		return c.get(ctx, city)
	})
	if errors.Is(err, gobreaker.ErrOpenState) || errors.Is(err, gobreaker.ErrTooManyRequests) {
		return Observation{}, fmt.Errorf("error fetching weather for %s: %w: %v", city, ErrCircuitOpen, err)
	}
	if err != nil {
		return Observation{}, err
	}
	return res.(Observation), nil
}

func (c *Client) get(ctx context.Context, city string) (Observation, error) {
	values := url.Values{}
	values.Set("q", city)
	values.Set("appid", c.apiKey)
	values.Set("units", "metric")
	values.Set("lang", "en")

	c.logger.Debug("fetching current weather from OpenWeatherMap...", slog.String("city", city))

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.baseURL+"?"+values.Encode(), nil)
	if err != nil {
		return Observation{}, fmt.Errorf("failed to create request for %s: %w", city, err)
	}

	res, err := c.client.Do(req)
	if err != nil {
		return Observation{}, fmt.Errorf("error fetching weather for %s: %w", city, err)
	}
	defer res.Body.Close()

	if res.StatusCode < 200 || res.StatusCode >= 300 {
		// The body carries the provider's reason, e.g. "city not found"
		body, _ := io.ReadAll(io.LimitReader(res.Body, 512))
		return Observation{}, &StatusError{City: city, Code: res.StatusCode, Body: string(body)}
	}

	var obs Observation
	if err := json.NewDecoder(res.Body).Decode(&obs); err != nil {
		return Observation{}, fmt.Errorf("error decoding weather json for %s: %w: %w", city, ErrInvalidPayload, err)
	}

	return obs, nil
}
