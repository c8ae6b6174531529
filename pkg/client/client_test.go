package client

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"
)

func TestNew_Validation(t *testing.T) {
	tests := []struct {
		name        string
		config      Config
		expectError bool
		errorMsg    string
	}{
		{
			name:        "valid config",
			config:      DefaultConfig(),
			expectError: false,
		},
		{
			name: "empty user agent",
			config: Config{
				UserAgent: "",
				Timeout:   time.Second,
			},
			expectError: true,
			errorMsg:    "user-agent is required",
		},
		{
			name: "negative timeout",
			config: Config{
				UserAgent: "TestApp/1.0.0",
				Timeout:   -time.Second,
			},
			expectError: true,
			errorMsg:    "timeout must be >= 0 (got -1s)",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			client, err := New(tt.config)

			if tt.expectError {
				if err == nil {
					t.Errorf("Expected error but got nil")
					return
				}
				if tt.errorMsg != "" && err.Error() != tt.errorMsg {
					t.Errorf("Error message = %q, want %q", err.Error(), tt.errorMsg)
				}
			} else {
				if err != nil {
					t.Errorf("Unexpected error: %v", err)
					return
				}
				if client == nil {
					t.Error("Client is nil")
				}
			}
		})
	}
}

func TestNew_DefaultTimeout(t *testing.T) {
	c, err := New(Config{UserAgent: "TestApp/1.0.0"})
	if err != nil {
		t.Fatalf("New() error = %v", err)
	}
	if c.httpClient.Timeout != 30*time.Second {
		t.Errorf("Timeout = %v, want 30s", c.httpClient.Timeout)
	}
}

func TestBrowserHeaders(t *testing.T) {
	c, err := New(Config{
		UserAgent: "TestApp/1.0.0",
		Origin:    "https://h5.example.com",
		Referer:   "https://h5.example.com/",
	})
	if err != nil {
		t.Fatalf("New() error = %v", err)
	}

	h := c.BrowserHeaders()

	expected := map[string]string{
		"User-Agent":     "TestApp/1.0.0",
		"Origin":         "https://h5.example.com",
		"Referer":        "https://h5.example.com/",
		"Accept":         "application/json, text/plain, */*",
		"Sec-Fetch-Mode": "cors",
		"Sec-Fetch-Site": "cross-site",
	}
	for key, want := range expected {
		if got := h.Get(key); got != want {
			t.Errorf("header %s = %q, want %q", key, got, want)
		}
	}
}

func TestBrowserHeaders_NoOrigin(t *testing.T) {
	c, err := New(DefaultConfig())
	if err != nil {
		t.Fatalf("New() error = %v", err)
	}

	h := c.BrowserHeaders()
	if _, ok := h["Origin"]; ok {
		t.Error("Origin should not be set when unconfigured")
	}
}

func TestPostJSON(t *testing.T) {
	var gotBody map[string]any
	var gotHeader http.Header

	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.Method != http.MethodPost {
			t.Errorf("method = %s, want POST", r.Method)
		}
		gotHeader = r.Header.Clone()
		body, _ := io.ReadAll(r.Body)
		if err := json.Unmarshal(body, &gotBody); err != nil {
			t.Errorf("invalid request body: %v", err)
		}
		w.WriteHeader(http.StatusOK)
		w.Write([]byte(`{"code":0}`))
	}))
	defer server.Close()

	c, err := New(DefaultConfig())
	if err != nil {
		t.Fatalf("New() error = %v", err)
	}

	header := http.Header{}
	header.Set("Token", "secret")

	resp, err := c.PostJSON(context.Background(), "test", server.URL, header, map[string]int{"page": 1, "size": 15})
	if err != nil {
		t.Fatalf("PostJSON() error = %v", err)
	}

	if resp.StatusCode != http.StatusOK {
		t.Errorf("StatusCode = %d, want 200", resp.StatusCode)
	}
	if resp.Text() != `{"code":0}` {
		t.Errorf("Text() = %q", resp.Text())
	}
	if gotHeader.Get("Token") != "secret" {
		t.Errorf("Token header = %q, want secret", gotHeader.Get("Token"))
	}
	if gotHeader.Get("Content-Type") != "application/json" {
		t.Errorf("Content-Type = %q, want application/json", gotHeader.Get("Content-Type"))
	}
	if gotBody["page"] != float64(1) || gotBody["size"] != float64(15) {
		t.Errorf("body = %v, want page=1 size=15", gotBody)
	}
}

func TestPostJSON_ContentTypeOverride(t *testing.T) {
	var contentType string
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		contentType = r.Header.Get("Content-Type")
		w.WriteHeader(http.StatusOK)
	}))
	defer server.Close()

	c, _ := New(DefaultConfig())
	header := http.Header{}
	header.Set("Content-Type", "application/json;charset=UTF-8")

	if _, err := c.PostJSON(context.Background(), "test", server.URL, header, struct{}{}); err != nil {
		t.Fatalf("PostJSON() error = %v", err)
	}
	if contentType != "application/json;charset=UTF-8" {
		t.Errorf("Content-Type = %q", contentType)
	}
}

func TestPostJSON_ErrorStatusIsNotAnError(t *testing.T) {
	tests := []struct {
		name   string
		status int
	}{
		{"bad request", http.StatusBadRequest},
		{"unauthorized", http.StatusUnauthorized},
		{"server error", http.StatusInternalServerError},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
				w.WriteHeader(tt.status)
				w.Write([]byte("nope"))
			}))
			defer server.Close()

			c, _ := New(DefaultConfig())
			resp, err := c.PostJSON(context.Background(), "test", server.URL, nil, struct{}{})
			if err != nil {
				t.Fatalf("PostJSON() error = %v, want nil", err)
			}
			if resp.StatusCode != tt.status {
				t.Errorf("StatusCode = %d, want %d", resp.StatusCode, tt.status)
			}
			if resp.Text() != "nope" {
				t.Errorf("Text() = %q, want nope", resp.Text())
			}
		})
	}
}

func TestPostJSON_TransportError(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {}))
	url := server.URL
	server.Close()

	c, _ := New(DefaultConfig())
	_, err := c.PostJSON(context.Background(), "test", url, nil, struct{}{})
	if err == nil {
		t.Fatal("Expected transport error")
	}

	var apiErr *APIError
	if !errors.As(err, &apiErr) {
		t.Fatalf("error type = %T, want *APIError", err)
	}
	if apiErr.ErrorClass != ErrorClassNetwork {
		t.Errorf("ErrorClass = %q, want network", apiErr.ErrorClass)
	}
	if !IsTransport(err) {
		t.Error("IsTransport() = false, want true")
	}
}

func TestPostJSON_MarshalError(t *testing.T) {
	c, _ := New(DefaultConfig())
	_, err := c.PostJSON(context.Background(), "test", "http://127.0.0.1", nil, map[string]any{"bad": make(chan int)})
	if err == nil {
		t.Fatal("Expected marshal error")
	}
	if IsTransport(err) {
		t.Error("marshal error should not be a transport error")
	}
}

func TestClassifyError(t *testing.T) {
	c, _ := New(DefaultConfig())

	tests := []struct {
		name     string
		status   int
		err      error
		expected ErrorClass
	}{
		{"network", 0, errors.New("dial tcp: refused"), ErrorClassNetwork},
		{"not found", 404, nil, ErrorClassClient},
		{"too many requests", 429, nil, ErrorClassClient},
		{"bad gateway", 502, nil, ErrorClassServer},
		{"ok", 200, nil, ""},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var resp *http.Response
			if tt.err == nil {
				resp = &http.Response{StatusCode: tt.status}
			}
			if got := c.classifyError(resp, tt.err); got != tt.expected {
				t.Errorf("classifyError() = %q, want %q", got, tt.expected)
			}
		})
	}
}

func TestResponse_DecodeJSON(t *testing.T) {
	resp := &Response{StatusCode: 200, Body: []byte(`{"amount": 100.50}`)}

	var v map[string]any
	if err := resp.DecodeJSON(&v); err != nil {
		t.Fatalf("DecodeJSON() error = %v", err)
	}
	n, ok := v["amount"].(json.Number)
	if !ok {
		t.Fatalf("amount type = %T, want json.Number", v["amount"])
	}
	if n.String() != "100.50" {
		t.Errorf("amount = %s, want 100.50", n)
	}
}

func TestResponse_DecodeJSONError(t *testing.T) {
	resp := &Response{StatusCode: 200, Body: []byte(`<html>`)}

	var v map[string]any
	err := resp.DecodeJSON(&v)

	var apiErr *APIError
	if !errors.As(err, &apiErr) {
		t.Fatalf("error type = %T, want *APIError", err)
	}
	if apiErr.ErrorClass != ErrorClassDecode {
		t.Errorf("ErrorClass = %q, want decode", apiErr.ErrorClass)
	}
}
