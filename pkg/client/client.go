// Package client provides the InPost points API client: the total-page probe
// and the single-page fetcher used by the collector.
package client

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"time"

	"github.com/Sternrassler/inpost-airmap/pkg/metrics"
	"github.com/Sternrassler/inpost-airmap/pkg/pagination"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
)

// DefaultBaseURL is the public points endpoint.
const DefaultBaseURL = "https://api.inpost.pl/v1/points"

// maxBodyBytes caps how much of a single response is read.
const maxBodyBytes = 32 << 20

// Prometheus metrics for points API operations.
var (
	apiRequestsTotal = promauto.With(metrics.Registry).NewCounterVec(prometheus.CounterOpts{
		Name: "airmap_api_requests_total",
		Help: "Total points API requests by kind and status",
	}, []string{"kind", "status"})

	pageFetchesTotal = promauto.With(metrics.Registry).NewCounterVec(prometheus.CounterOpts{
		Name: "airmap_page_fetches_total",
		Help: "Page fetches by outcome",
	}, []string{"outcome"})

	pageFetchDuration = promauto.With(metrics.Registry).NewHistogram(prometheus.HistogramOpts{
		Name:    "airmap_page_fetch_duration_seconds",
		Help:    "Duration of single page fetches in seconds",
		Buckets: []float64{0.1, 0.25, 0.5, 1, 2, 5, 10},
	})
)

// ErrorClass represents a classification of API errors.
type ErrorClass string

const (
	// ErrorClassClient represents 4xx client errors.
	ErrorClassClient ErrorClass = "client"

	// ErrorClassServer represents 5xx server errors.
	ErrorClassServer ErrorClass = "server"

	// ErrorClassUnexpected represents non-200 statuses below 400.
	ErrorClassUnexpected ErrorClass = "unexpected"
)

// Config holds the client configuration.
type Config struct {
	// BaseURL is the points endpoint; pages are requested as BaseURL?page=n.
	BaseURL string

	// Token is the static bearer token. Required.
	Token string

	// Timeout bounds every single request.
	Timeout time.Duration

	// UserAgent is sent with every request when non-empty.
	UserAgent string
}

// DefaultConfig returns the production configuration for the given token.
func DefaultConfig(token string) Config {
	return Config{
		BaseURL:   DefaultBaseURL,
		Token:     token,
		Timeout:   15 * time.Second,
		UserAgent: "inpost-airmap/1.0",
	}
}

// Client talks to the points API.
type Client struct {
	httpClient *http.Client
	baseURL    *url.URL
	config     Config
	logger     zerolog.Logger
}

// New creates a new points API client.
func New(cfg Config) (*Client, error) {
	if cfg.Token == "" {
		return nil, ErrMissingToken
	}

	if cfg.BaseURL == "" {
		cfg.BaseURL = DefaultBaseURL
	}
	base, err := url.Parse(cfg.BaseURL)
	if err != nil || !base.IsAbs() {
		return nil, fmt.Errorf("%w: %q", ErrInvalidBaseURL, cfg.BaseURL)
	}

	if cfg.Timeout <= 0 {
		cfg.Timeout = 15 * time.Second
	}

	return &Client{
		httpClient: &http.Client{},
		baseURL:    base,
		config:     cfg,
		logger:     log.With().Str("component", "points-client").Logger(),
	}, nil
}

// SetHTTPClient sets a custom HTTP client (for testing).
func (c *Client) SetHTTPClient(client *http.Client) {
	c.httpClient = client
}

// FetchTotalPages reads total_pages from the unpaginated endpoint.
// Any failure here is fatal for the job.
func (c *Client) FetchTotalPages(ctx context.Context) (int, error) {
	ctx, cancel := context.WithTimeout(ctx, c.config.Timeout)
	defer cancel()

	body, statusCode, err := c.get(ctx, c.baseURL.String())
	if err != nil {
		apiRequestsTotal.WithLabelValues("total_pages", "network_error").Inc()
		return 0, fmt.Errorf("fetch total pages: %w", err)
	}
	apiRequestsTotal.WithLabelValues("total_pages", strconv.Itoa(statusCode)).Inc()

	if statusCode != http.StatusOK {
		c.logger.Error().Int("status_code", statusCode).Msg("Total pages request failed")
		return 0, &APIError{
			StatusCode: statusCode,
			ErrorClass: classifyStatus(statusCode),
			Message:    fmt.Sprintf("Error fetching data: %d", statusCode),
		}
	}

	var envelope struct {
		TotalPages *int `json:"total_pages"`
	}
	if err := json.Unmarshal(body, &envelope); err != nil {
		return 0, fmt.Errorf("%w: %v", ErrUpstreamFormat, err)
	}
	if envelope.TotalPages == nil {
		return 0, ErrUpstreamFormat
	}
	if *envelope.TotalPages < 0 {
		return 0, fmt.Errorf("%w: negative total_pages %d", ErrUpstreamFormat, *envelope.TotalPages)
	}

	c.logger.Info().Int("total_pages", *envelope.TotalPages).Msg("Total pages to process")
	return *envelope.TotalPages, nil
}

// FetchPage fetches one page of points. It never returns an error: every
// failure is folded into the result's Outcome so one bad page cannot abort
// the batch. It satisfies pagination.FetchFunc.
func (c *Client) FetchPage(ctx context.Context, page int) pagination.PageResult {
	start := time.Now()
	result := c.fetchPage(ctx, page)
	pageFetchDuration.Observe(time.Since(start).Seconds())
	pageFetchesTotal.WithLabelValues(string(result.Outcome)).Inc()

	switch result.Outcome {
	case pagination.OutcomeSuccess:
		c.logger.Debug().
			Int("page", page).
			Int("items", len(result.Items)).
			Msg("Page fetched")
	case pagination.OutcomeHTTPError:
		c.logger.Warn().
			Int("page", page).
			Int("status_code", result.StatusCode).
			Msg("Error on page")
	default:
		c.logger.Warn().
			Err(result.Err).
			Int("page", page).
			Str("outcome", string(result.Outcome)).
			Msg("Page fetch failed")
	}

	return result
}

func (c *Client) fetchPage(ctx context.Context, page int) pagination.PageResult {
	result := pagination.PageResult{Page: page, Items: []pagination.RawItem{}}

	ctx, cancel := context.WithTimeout(ctx, c.config.Timeout)
	defer cancel()

	body, statusCode, err := c.get(ctx, c.pageURL(page))
	result.StatusCode = statusCode
	if err != nil {
		apiRequestsTotal.WithLabelValues("page", "network_error").Inc()
		result.Outcome = pagination.OutcomeTransportError
		result.Err = err
		return result
	}
	apiRequestsTotal.WithLabelValues("page", strconv.Itoa(statusCode)).Inc()

	if statusCode != http.StatusOK {
		result.Outcome = pagination.OutcomeHTTPError
		result.Err = &APIError{
			StatusCode: statusCode,
			ErrorClass: classifyStatus(statusCode),
			Message:    http.StatusText(statusCode),
		}
		return result
	}

	items, err := decodeItems(body)
	if err != nil {
		result.Outcome = pagination.OutcomeEmptyOrMalformed
		result.Err = err
		return result
	}

	result.Items = items
	result.Outcome = pagination.OutcomeSuccess
	return result
}

// decodeItems extracts the "items" array. Elements that are not JSON objects
// are skipped; a missing or null "items" key is an error.
func decodeItems(body []byte) ([]pagination.RawItem, error) {
	var envelope struct {
		Items *[]json.RawMessage `json:"items"`
	}
	if err := json.Unmarshal(body, &envelope); err != nil {
		return nil, fmt.Errorf("decode page: %w", err)
	}
	if envelope.Items == nil {
		return nil, errors.New("missing 'items' key in response")
	}

	items := make([]pagination.RawItem, 0, len(*envelope.Items))
	for _, raw := range *envelope.Items {
		var item pagination.RawItem
		if err := json.Unmarshal(raw, &item); err != nil || item == nil {
			continue
		}
		items = append(items, item)
	}
	return items, nil
}

// pageURL builds BaseURL?page=n, preserving any query already on BaseURL.
func (c *Client) pageURL(page int) string {
	u := *c.baseURL
	query := u.Query()
	query.Set("page", strconv.Itoa(page))
	u.RawQuery = query.Encode()
	return u.String()
}

// get performs one authorized GET and returns the body and status code.
// An error means no usable response was received.
func (c *Client) get(ctx context.Context, target string) ([]byte, int, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, target, nil)
	if err != nil {
		return nil, 0, fmt.Errorf("create request: %w", err)
	}
	req.Header.Set("Authorization", "Bearer "+c.config.Token)
	req.Header.Set("Accept", "application/json")
	if c.config.UserAgent != "" {
		req.Header.Set("User-Agent", c.config.UserAgent)
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, 0, err
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(io.LimitReader(resp.Body, maxBodyBytes))
	if err != nil {
		return nil, resp.StatusCode, fmt.Errorf("read response body: %w", err)
	}

	return body, resp.StatusCode, nil
}
