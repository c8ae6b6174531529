// Package testutil provides testing utilities for the withdrawal exporter.
package testutil

import (
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"time"
)

// Paths served by MockServer.
const (
	ProducerPath = "/reportclient/producerController/send"
	DetailPath   = "/awclient/landscape/withdraw/withdrawDetail"
)

// MockResponse defines the behavior for a mock endpoint response.
type MockResponse struct {
	StatusCode int
	Body       string
	Headers    map[string]string
	Delay      time.Duration
}

// MockServer serves both the tracking endpoint and the withdraw detail endpoint.
// Detail responses are configured per page number; pages without a configured
// response get an empty record list.
type MockServer struct {
	server *httptest.Server
	mu     sync.RWMutex
	pages  map[int]MockResponse

	producer MockResponse

	// Tracking
	ProducerCount    int
	DetailPages      []int
	ProducerPayloads []map[string]any
	LastDetailHeader http.Header
	LastProducerHdr  http.Header
}

// NewMockServer creates a new mock server.
func NewMockServer() *MockServer {
	mock := &MockServer{
		pages:    make(map[int]MockResponse),
		producer: MockResponse{StatusCode: http.StatusOK, Body: `{"code":0,"msg":"success"}`},
	}

	mux := http.NewServeMux()
	mux.HandleFunc(ProducerPath, mock.handleProducer)
	mux.HandleFunc(DetailPath, mock.handleDetail)
	mock.server = httptest.NewServer(mux)

	return mock
}

// URL returns the mock server URL.
func (m *MockServer) URL() string {
	return m.server.URL
}

// ProducerURL returns the full tracking endpoint URL.
func (m *MockServer) ProducerURL() string {
	return m.server.URL + ProducerPath
}

// DetailURL returns the full withdraw detail endpoint URL.
func (m *MockServer) DetailURL() string {
	return m.server.URL + DetailPath
}

// Close shuts down the mock server.
func (m *MockServer) Close() {
	m.server.Close()
}

// Reset clears all tracking counters.
func (m *MockServer) Reset() {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.ProducerCount = 0
	m.DetailPages = nil
	m.ProducerPayloads = nil
	m.LastDetailHeader = nil
	m.LastProducerHdr = nil
}

// SetPage configures the response for one detail page.
func (m *MockServer) SetPage(page int, resp MockResponse) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.pages[page] = resp
}

// SetProducerResponse configures the tracking endpoint response.
func (m *MockServer) SetProducerResponse(resp MockResponse) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.producer = resp
}

// GetProducerCount returns the number of tracking calls received.
func (m *MockServer) GetProducerCount() int {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.ProducerCount
}

// GetDetailPages returns the page numbers requested, in order.
func (m *MockServer) GetDetailPages() []int {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return append([]int(nil), m.DetailPages...)
}

// GetProducerPayloads returns the decoded tracking payloads, in order.
func (m *MockServer) GetProducerPayloads() []map[string]any {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return append([]map[string]any(nil), m.ProducerPayloads...)
}

// GetLastDetailHeader returns the headers of the last detail request.
func (m *MockServer) GetLastDetailHeader() http.Header {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.LastDetailHeader
}

func (m *MockServer) handleProducer(w http.ResponseWriter, r *http.Request) {
	body, _ := io.ReadAll(r.Body)
	var payload map[string]any
	_ = json.Unmarshal(body, &payload)

	m.mu.Lock()
	m.ProducerCount++
	m.ProducerPayloads = append(m.ProducerPayloads, payload)
	m.LastProducerHdr = r.Header.Clone()
	resp := m.producer
	m.mu.Unlock()

	writeResponse(w, resp)
}

func (m *MockServer) handleDetail(w http.ResponseWriter, r *http.Request) {
	var req struct {
		Page int `json:"page"`
		Size int `json:"size"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, `{"code":400,"msg":"bad request"}`, http.StatusBadRequest)
		return
	}

	m.mu.Lock()
	m.DetailPages = append(m.DetailPages, req.Page)
	m.LastDetailHeader = r.Header.Clone()
	resp, ok := m.pages[req.Page]
	m.mu.Unlock()

	if !ok {
		resp = NewRecordsResponse()
	}
	writeResponse(w, resp)
}

func writeResponse(w http.ResponseWriter, resp MockResponse) {
	if resp.Delay > 0 {
		time.Sleep(resp.Delay)
	}

	for key, value := range resp.Headers {
		w.Header().Set(key, value)
	}
	if w.Header().Get("Content-Type") == "" {
		w.Header().Set("Content-Type", "application/json")
	}

	status := resp.StatusCode
	if status == 0 {
		status = http.StatusOK
	}
	w.WriteHeader(status)
	if resp.Body != "" {
		w.Write([]byte(resp.Body))
	}
}

// NewRecordsResponse creates a successful page containing the given raw JSON records.
func NewRecordsResponse(records ...string) MockResponse {
	return MockResponse{
		StatusCode: http.StatusOK,
		Body:       fmt.Sprintf(`{"code":0,"msg":"success","data":{"records":[%s]}}`, strings.Join(records, ",")),
	}
}

// NewServerErrorResponse creates a 500 Internal Server Error response.
func NewServerErrorResponse() MockResponse {
	return MockResponse{
		StatusCode: http.StatusInternalServerError,
		Body:       `{"error": "Internal server error"}`,
	}
}

// NewBusinessErrorResponse creates a 200 response carrying a non-zero code.
func NewBusinessErrorResponse(code int) MockResponse {
	return MockResponse{
		StatusCode: http.StatusOK,
		Body:       fmt.Sprintf(`{"code":%d,"msg":"token expired"}`, code),
	}
}

// NewMalformedResponse creates a 200 response whose body is not JSON.
func NewMalformedResponse() MockResponse {
	return MockResponse{
		StatusCode: http.StatusOK,
		Body:       `<html>gateway</html>`,
	}
}

// Record builds one raw withdrawal record as JSON. bank is encoded as the
// stringified withdrawRequest; pass nil to omit it.
func Record(withdrawID string, amount string, status int, utr string, bank map[string]string) string {
	rec := map[string]any{
		"created":    "2024-01-01 10:00:00",
		"modified":   "2024-01-01 10:05:00",
		"amount":     json.Number(amount),
		"withdrawId": withdrawID,
		"status":     status,
	}
	if utr != "" {
		rec["utr"] = utr
	} else {
		rec["utr"] = nil
	}
	if bank != nil {
		nested, _ := json.Marshal(bank)
		rec["withdrawRequest"] = string(nested)
	}
	b, _ := json.Marshal(rec)
	return string(b)
}
