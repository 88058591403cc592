// Package testutil provides testing utilities for the points API.
package testutil

import (
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"strconv"
	"sync"
	"time"
)

// MockPageResponse defines the behavior for one page of the mock API.
type MockPageResponse struct {
	StatusCode int
	Body       string
	Delay      time.Duration
}

// MockPointsAPI is a configurable mock of the points API for testing.
type MockPointsAPI struct {
	server *httptest.Server
	mu     sync.RWMutex

	totalPagesBody string
	totalPagesCode int
	pages          map[int]MockPageResponse

	// Tracking
	RequestCount      int
	PageRequests      map[int]int
	LastAuthorization string
	inFlight          int
	PeakInFlight      int
}

// NewMockPointsAPI creates a mock serving totalPages empty pages.
func NewMockPointsAPI(totalPages int) *MockPointsAPI {
	mock := &MockPointsAPI{
		totalPagesBody: fmt.Sprintf(`{"total_pages": %d, "count": 0}`, totalPages),
		totalPagesCode: http.StatusOK,
		pages:          make(map[int]MockPageResponse),
		PageRequests:   make(map[int]int),
	}

	mock.server = httptest.NewServer(http.HandlerFunc(mock.handle))
	return mock
}

// URL returns the mock endpoint URL.
func (m *MockPointsAPI) URL() string {
	return m.server.URL + "/v1/points"
}

// Close shuts down the mock server.
func (m *MockPointsAPI) Close() {
	m.server.Close()
}

// SetTotalPagesResponse overrides the unpaginated response.
func (m *MockPointsAPI) SetTotalPagesResponse(statusCode int, body string) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.totalPagesCode = statusCode
	m.totalPagesBody = body
}

// SetPage configures the response for one page.
func (m *MockPointsAPI) SetPage(page int, resp MockPageResponse) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.pages[page] = resp
}

// SetPageItems configures a 200 response carrying the given items.
func (m *MockPointsAPI) SetPageItems(page int, items []map[string]any) {
	body, err := json.Marshal(map[string]any{"items": items, "page": page})
	if err != nil {
		panic(err)
	}
	m.SetPage(page, MockPageResponse{StatusCode: http.StatusOK, Body: string(body)})
}

// GetRequestCount returns the number of requests made to the server.
func (m *MockPointsAPI) GetRequestCount() int {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.RequestCount
}

// GetPageRequests returns how often the given page was requested.
func (m *MockPointsAPI) GetPageRequests(page int) int {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.PageRequests[page]
}

// GetPeakInFlight returns the highest number of concurrent page requests seen.
func (m *MockPointsAPI) GetPeakInFlight() int {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.PeakInFlight
}

// GetLastAuthorization returns the last Authorization header received.
func (m *MockPointsAPI) GetLastAuthorization() string {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.LastAuthorization
}

func (m *MockPointsAPI) handle(w http.ResponseWriter, r *http.Request) {
	m.mu.Lock()
	m.RequestCount++
	m.LastAuthorization = r.Header.Get("Authorization")
	m.mu.Unlock()

	w.Header().Set("Content-Type", "application/json; charset=utf-8")

	pageParam := r.URL.Query().Get("page")
	if pageParam == "" {
		m.mu.RLock()
		code, body := m.totalPagesCode, m.totalPagesBody
		m.mu.RUnlock()
		w.WriteHeader(code)
		w.Write([]byte(body))
		return
	}

	page, err := strconv.Atoi(pageParam)
	if err != nil {
		w.WriteHeader(http.StatusBadRequest)
		w.Write([]byte(`{"error": "invalid page"}`))
		return
	}

	m.mu.Lock()
	m.PageRequests[page]++
	m.inFlight++
	if m.inFlight > m.PeakInFlight {
		m.PeakInFlight = m.inFlight
	}
	resp, exists := m.pages[page]
	m.mu.Unlock()

	defer func() {
		m.mu.Lock()
		m.inFlight--
		m.mu.Unlock()
	}()

	if !exists {
		resp = MockPageResponse{StatusCode: http.StatusOK, Body: `{"items": []}`}
	}
	if resp.Delay > 0 {
		time.Sleep(resp.Delay)
	}

	w.WriteHeader(resp.StatusCode)
	if resp.Body != "" {
		w.Write([]byte(resp.Body))
	}
}

// SensorItem builds a raw point item with the given category and coordinates.
func SensorItem(name, category string, lat, lon float64) map[string]any {
	return map[string]any{
		"name":            name,
		"air_index_level": category,
		"location": map[string]any{
			"latitude":  lat,
			"longitude": lon,
		},
	}
}

// SensorItems builds n valid items for a page, all in the given category.
func SensorItems(page, n int, category string) []map[string]any {
	items := make([]map[string]any, 0, n)
	for i := 0; i < n; i++ {
		items = append(items, SensorItem(
			fmt.Sprintf("WAW%02d%02dM", page, i),
			category,
			52.0+float64(page)*0.01,
			21.0+float64(i)*0.01,
		))
	}
	return items
}

// NewServerErrorResponse creates a 500 Internal Server Error response.
func NewServerErrorResponse() MockPageResponse {
	return MockPageResponse{
		StatusCode: http.StatusInternalServerError,
		Body:       `{"error": "Internal server error"}`,
	}
}

// NewMalformedResponse creates a 200 response without an "items" key.
func NewMalformedResponse() MockPageResponse {
	return MockPageResponse{
		StatusCode: http.StatusOK,
		Body:       `{"count": 0}`,
	}
}
