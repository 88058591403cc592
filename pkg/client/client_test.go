package client

import (
	"context"
	"errors"
	"net/http"
	"testing"
	"time"

	"github.com/Sternrassler/inpost-airmap/internal/testutil"
	"github.com/Sternrassler/inpost-airmap/pkg/pagination"
)

type failingTransport struct {
	err error
}

func (f failingTransport) RoundTrip(*http.Request) (*http.Response, error) {
	return nil, f.err
}

func newTestClient(t *testing.T, baseURL string) *Client {
	t.Helper()

	cfg := DefaultConfig("test-token")
	cfg.BaseURL = baseURL
	cfg.Timeout = 2 * time.Second

	c, err := New(cfg)
	if err != nil {
		t.Fatalf("New() error = %v", err)
	}
	return c
}

func TestNew_Validation(t *testing.T) {
	tests := []struct {
		name    string
		config  Config
		wantErr error
	}{
		{
			name:   "valid config",
			config: DefaultConfig("secret"),
		},
		{
			name:    "missing token",
			config:  DefaultConfig(""),
			wantErr: ErrMissingToken,
		},
		{
			name:    "relative base URL",
			config:  Config{Token: "secret", BaseURL: "/v1/points"},
			wantErr: ErrInvalidBaseURL,
		},
		{
			name:   "empty base URL falls back to default",
			config: Config{Token: "secret"},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			c, err := New(tt.config)
			if tt.wantErr != nil {
				if !errors.Is(err, tt.wantErr) {
					t.Fatalf("New() error = %v, want %v", err, tt.wantErr)
				}
				return
			}
			if err != nil {
				t.Fatalf("New() unexpected error = %v", err)
			}
			if c.config.Timeout <= 0 {
				t.Error("expected a positive default timeout")
			}
		})
	}
}

func TestFetchTotalPages(t *testing.T) {
	tests := []struct {
		name       string
		statusCode int
		body       string
		want       int
		wantErr    error
		wantStatus int
	}{
		{name: "valid", statusCode: 200, body: `{"total_pages": 42, "count": 1234}`, want: 42},
		{name: "zero pages", statusCode: 200, body: `{"total_pages": 0}`, want: 0},
		{name: "missing field", statusCode: 200, body: `{"count": 5}`, wantErr: ErrUpstreamFormat},
		{name: "not json", statusCode: 200, body: `<html>`, wantErr: ErrUpstreamFormat},
		{name: "negative", statusCode: 200, body: `{"total_pages": -1}`, wantErr: ErrUpstreamFormat},
		{name: "server error", statusCode: 503, body: `{}`, wantStatus: 503},
		{name: "unauthorized", statusCode: 401, body: `{}`, wantStatus: 401},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			mock := testutil.NewMockPointsAPI(0)
			defer mock.Close()
			mock.SetTotalPagesResponse(tt.statusCode, tt.body)

			got, err := newTestClient(t, mock.URL()).FetchTotalPages(context.Background())

			switch {
			case tt.wantStatus != 0:
				var apiErr *APIError
				if !errors.As(err, &apiErr) {
					t.Fatalf("error = %v, want *APIError", err)
				}
				if apiErr.StatusCode != tt.wantStatus {
					t.Errorf("StatusCode = %d, want %d", apiErr.StatusCode, tt.wantStatus)
				}
			case tt.wantErr != nil:
				if !errors.Is(err, tt.wantErr) {
					t.Fatalf("error = %v, want %v", err, tt.wantErr)
				}
			default:
				if err != nil {
					t.Fatalf("FetchTotalPages() error = %v", err)
				}
				if got != tt.want {
					t.Errorf("FetchTotalPages() = %d, want %d", got, tt.want)
				}
			}
		})
	}
}

func TestFetchPage_Outcomes(t *testing.T) {
	tests := []struct {
		name        string
		response    testutil.MockPageResponse
		wantOutcome pagination.Outcome
		wantItems   int
		wantStatus  int
	}{
		{
			name:        "items present",
			response:    testutil.MockPageResponse{StatusCode: 200, Body: `{"items": [{"name": "A"}, {"name": "B"}]}`},
			wantOutcome: pagination.OutcomeSuccess,
			wantItems:   2,
			wantStatus:  200,
		},
		{
			name:        "empty items is still success",
			response:    testutil.MockPageResponse{StatusCode: 200, Body: `{"items": []}`},
			wantOutcome: pagination.OutcomeSuccess,
			wantStatus:  200,
		},
		{
			name:        "non-object elements skipped",
			response:    testutil.MockPageResponse{StatusCode: 200, Body: `{"items": [{"name": "A"}, 7, null, "x"]}`},
			wantOutcome: pagination.OutcomeSuccess,
			wantItems:   1,
			wantStatus:  200,
		},
		{
			name:        "missing items key",
			response:    testutil.NewMalformedResponse(),
			wantOutcome: pagination.OutcomeEmptyOrMalformed,
			wantStatus:  200,
		},
		{
			name:        "null items",
			response:    testutil.MockPageResponse{StatusCode: 200, Body: `{"items": null}`},
			wantOutcome: pagination.OutcomeEmptyOrMalformed,
			wantStatus:  200,
		},
		{
			name:        "not json",
			response:    testutil.MockPageResponse{StatusCode: 200, Body: `<!doctype html>`},
			wantOutcome: pagination.OutcomeEmptyOrMalformed,
			wantStatus:  200,
		},
		{
			name:        "server error",
			response:    testutil.NewServerErrorResponse(),
			wantOutcome: pagination.OutcomeHTTPError,
			wantStatus:  500,
		},
		{
			name:        "not found",
			response:    testutil.MockPageResponse{StatusCode: 404, Body: `{"items": [{"name": "ignored"}]}`},
			wantOutcome: pagination.OutcomeHTTPError,
			wantStatus:  404,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			mock := testutil.NewMockPointsAPI(1)
			defer mock.Close()
			mock.SetPage(1, tt.response)

			result := newTestClient(t, mock.URL()).FetchPage(context.Background(), 1)

			if result.Outcome != tt.wantOutcome {
				t.Errorf("Outcome = %q, want %q (err=%v)", result.Outcome, tt.wantOutcome, result.Err)
			}
			if len(result.Items) != tt.wantItems {
				t.Errorf("Items = %d, want %d", len(result.Items), tt.wantItems)
			}
			if result.StatusCode != tt.wantStatus {
				t.Errorf("StatusCode = %d, want %d", result.StatusCode, tt.wantStatus)
			}
			if result.Page != 1 {
				t.Errorf("Page = %d, want 1", result.Page)
			}
		})
	}
}

func TestFetchPage_TransportErrors(t *testing.T) {
	t.Run("timeout", func(t *testing.T) {
		mock := testutil.NewMockPointsAPI(1)
		defer mock.Close()
		mock.SetPage(1, testutil.MockPageResponse{StatusCode: 200, Body: `{"items": []}`, Delay: 300 * time.Millisecond})

		cfg := DefaultConfig("test-token")
		cfg.BaseURL = mock.URL()
		cfg.Timeout = 20 * time.Millisecond
		c, err := New(cfg)
		if err != nil {
			t.Fatalf("New() error = %v", err)
		}

		result := c.FetchPage(context.Background(), 1)
		if result.Outcome != pagination.OutcomeTransportError {
			t.Errorf("Outcome = %q, want transport_error", result.Outcome)
		}
		if result.Err == nil {
			t.Error("expected transport error message")
		}
		if len(result.Items) != 0 {
			t.Errorf("Items = %d, want 0", len(result.Items))
		}
	})

	t.Run("connection refused", func(t *testing.T) {
		mock := testutil.NewMockPointsAPI(1)
		url := mock.URL()
		mock.Close()

		result := newTestClient(t, url).FetchPage(context.Background(), 1)
		if result.Outcome != pagination.OutcomeTransportError {
			t.Errorf("Outcome = %q, want transport_error", result.Outcome)
		}
	})

	t.Run("custom http client", func(t *testing.T) {
		resetErr := errors.New("connection reset by peer")
		c := newTestClient(t, "http://points.invalid/api")
		c.SetHTTPClient(&http.Client{Transport: failingTransport{err: resetErr}})

		result := c.FetchPage(context.Background(), 2)
		if result.Outcome != pagination.OutcomeTransportError {
			t.Errorf("Outcome = %q, want transport_error", result.Outcome)
		}
		if !errors.Is(result.Err, resetErr) {
			t.Errorf("Err = %v, want wrapped %v", result.Err, resetErr)
		}

		if _, err := c.FetchTotalPages(context.Background()); !errors.Is(err, resetErr) {
			t.Errorf("FetchTotalPages() error = %v, want wrapped %v", err, resetErr)
		}
	})
}

func TestFetchPage_SendsBearerTokenAndPage(t *testing.T) {
	mock := testutil.NewMockPointsAPI(3)
	defer mock.Close()

	c := newTestClient(t, mock.URL())
	c.FetchPage(context.Background(), 3)

	if got := mock.GetLastAuthorization(); got != "Bearer test-token" {
		t.Errorf("Authorization = %q, want %q", got, "Bearer test-token")
	}
	if mock.GetPageRequests(3) != 1 {
		t.Errorf("page 3 requested %d times, want 1", mock.GetPageRequests(3))
	}
}

func TestPageURL(t *testing.T) {
	tests := []struct {
		name    string
		baseURL string
		page    int
		want    string
	}{
		{
			name:    "plain endpoint",
			baseURL: "https://api.inpost.pl/v1/points",
			page:    7,
			want:    "https://api.inpost.pl/v1/points?page=7",
		},
		{
			name:    "existing query kept",
			baseURL: "https://api.inpost.pl/v1/points?per_page=500",
			page:    2,
			want:    "https://api.inpost.pl/v1/points?page=2&per_page=500",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			c := newTestClient(t, tt.baseURL)
			if got := c.pageURL(tt.page); got != tt.want {
				t.Errorf("pageURL(%d) = %q, want %q", tt.page, got, tt.want)
			}
		})
	}
}

func TestFetchPage_WithCollector(t *testing.T) {
	mock := testutil.NewMockPointsAPI(2)
	defer mock.Close()
	mock.SetPage(1, testutil.NewServerErrorResponse())
	mock.SetPageItems(2, testutil.SensorItems(2, 4, "GOOD"))

	c := newTestClient(t, mock.URL())
	report, err := pagination.NewCollector(pagination.DefaultConfig()).
		Collect(context.Background(), 2, c.FetchPage)
	if err != nil {
		t.Fatalf("Collect() error = %v", err)
	}

	if report.PagesCompleted != 1 || report.PagesFailed != 1 || len(report.Items) != 4 {
		t.Errorf("report = %+v, want 1 completed, 1 failed, 4 items", report)
	}
	if mock.GetPageRequests(1) != 1 || mock.GetPageRequests(2) != 1 {
		t.Error("each page should be requested exactly once")
	}
	if mock.GetRequestCount() != 2 {
		t.Errorf("requests = %d, want 2", mock.GetRequestCount())
	}
}
