package transport

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/orbitalmind/kernel/internal/rpc"
)

func newTestServer(authToken string) *Server {
	d := rpc.NewDispatcher()
	d.Register("echo", func(ctx context.Context, params interface{}) (interface{}, error) {
		return params, nil
	})
	return New("127.0.0.1:0", d, authToken, "test", Info{Embedding: "fake-embedder", DB: "test.db", IndexesOK: true})
}

func TestHealthRequiresNoAuth(t *testing.T) {
	s := newTestServer("secret")
	rec := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodGet, "/health", nil)
	s.router.ServeHTTP(rec, req)
	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", rec.Code)
	}
}

func TestDispatchRejectsMissingBearerToken(t *testing.T) {
	s := newTestServer("secret")
	body, _ := json.Marshal(map[string]interface{}{"id": 1, "method": "echo", "params": "hi"})
	rec := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodPost, "/rpc", bytes.NewReader(body))
	s.router.ServeHTTP(rec, req)
	if rec.Code != http.StatusUnauthorized {
		t.Fatalf("expected 401, got %d", rec.Code)
	}
}

func TestDispatchAcceptsValidBearerToken(t *testing.T) {
	s := newTestServer("secret")
	body, _ := json.Marshal(map[string]interface{}{"id": 1, "method": "echo", "params": "hi"})
	rec := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodPost, "/rpc", bytes.NewReader(body))
	req.Header.Set("Authorization", "Bearer secret")
	s.router.ServeHTTP(rec, req)
	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", rec.Code)
	}
}

func TestDispatchWithNoTokenConfiguredSkipsAuth(t *testing.T) {
	s := newTestServer("")
	body, _ := json.Marshal(map[string]interface{}{"id": 1, "method": "echo", "params": "hi"})
	rec := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodPost, "/rpc", bytes.NewReader(body))
	s.router.ServeHTTP(rec, req)
	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", rec.Code)
	}
}

func TestInfoReportsEmbeddingDBAndIndexShape(t *testing.T) {
	s := newTestServer("")
	rec := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodGet, "/info", nil)
	s.router.ServeHTTP(rec, req)
	var resp struct {
		Embedding string `json:"embedding"`
		DB        string `json:"db"`
		IndexesOK bool   `json:"indexes_ok"`
	}
	if err := json.Unmarshal(rec.Body.Bytes(), &resp); err != nil {
		t.Fatalf("decode response: %v", err)
	}
	if resp.Embedding != "fake-embedder" || resp.DB != "test.db" || !resp.IndexesOK {
		t.Fatalf("unexpected /info shape: %+v", resp)
	}
}

func TestMetricsReportsRollingCounters(t *testing.T) {
	s := newTestServer("")
	body, _ := json.Marshal(map[string]interface{}{"id": 1, "method": "echo", "params": "hi"})
	req := httptest.NewRequest(http.MethodPost, "/rpc", bytes.NewReader(body))
	s.router.ServeHTTP(httptest.NewRecorder(), req)

	rec := httptest.NewRecorder()
	mreq := httptest.NewRequest(http.MethodGet, "/metrics", nil)
	s.router.ServeHTTP(rec, mreq)

	var resp struct {
		TotalRequests   int64   `json:"total_requests"`
		ErrorCount      int64   `json:"error_count"`
		LatencyRolling  float64 `json:"latency_rolling"`
		LastRequestUnix int64   `json:"last_request_unix"`
	}
	if err := json.Unmarshal(rec.Body.Bytes(), &resp); err != nil {
		t.Fatalf("decode response: %v", err)
	}
	if resp.TotalRequests != 1 || resp.ErrorCount != 0 || resp.LastRequestUnix == 0 {
		t.Fatalf("unexpected /metrics shape: %+v", resp)
	}
}

func TestUnauthorizedResponseShape(t *testing.T) {
	s := newTestServer("secret")
	body, _ := json.Marshal(map[string]interface{}{"id": 1, "method": "echo", "params": "hi"})
	rec := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodPost, "/rpc", bytes.NewReader(body))
	s.router.ServeHTTP(rec, req)

	var resp struct {
		Error            string `json:"error"`
		ErrorDescription string `json:"error_description"`
	}
	if err := json.Unmarshal(rec.Body.Bytes(), &resp); err != nil {
		t.Fatalf("decode response: %v", err)
	}
	if resp.Error != "invalid_token" || resp.ErrorDescription != "Unauthorized" {
		t.Fatalf("unexpected 401 shape: %+v", resp)
	}
}
