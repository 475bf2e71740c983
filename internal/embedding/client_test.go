package embedding

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/orbitalmind/kernel/internal/types"
)

func TestEmbedReturnsVector(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_ = json.NewEncoder(w).Encode(map[string]interface{}{
			"data": []map[string]interface{}{
				{"embedding": []float32{0.1, 0.2, 0.3}},
			},
		})
	}))
	defer srv.Close()

	c := NewHTTPClient(srv.URL, "test-model", 3)
	vec, err := c.Embed(context.Background(), "hello")
	if err != nil {
		t.Fatalf("embed: %v", err)
	}
	if len(vec) != 3 {
		t.Fatalf("expected 3 dims, got %d", len(vec))
	}
}

func TestEmbedRejectsDimensionMismatch(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_ = json.NewEncoder(w).Encode(map[string]interface{}{
			"data": []map[string]interface{}{
				{"embedding": []float32{0.1, 0.2}},
			},
		})
	}))
	defer srv.Close()

	c := NewHTTPClient(srv.URL, "test-model", 3)
	_, err := c.Embed(context.Background(), "hello")
	if err == nil {
		t.Fatalf("expected dimension mismatch error")
	}
	if types.KindOf(err) != types.KindEmbeddingError {
		t.Fatalf("expected KindEmbeddingError, got %s", types.KindOf(err))
	}
}

func TestEmbedProviderErrorStatus(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusInternalServerError)
		_, _ = w.Write([]byte("boom"))
	}))
	defer srv.Close()

	c := NewHTTPClient(srv.URL, "test-model", 3)
	_, err := c.Embed(context.Background(), "hello")
	if err == nil {
		t.Fatalf("expected provider error")
	}
	if types.KindOf(err) != types.KindEmbeddingError {
		t.Fatalf("expected KindEmbeddingError, got %s", types.KindOf(err))
	}
}

func TestCircuitBreakerOpensAfterConsecutiveFailures(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusInternalServerError)
	}))
	defer srv.Close()

	c := NewHTTPClient(srv.URL, "test-model", 3)
	var lastErr error
	for i := 0; i < 5; i++ {
		_, lastErr = c.Embed(context.Background(), "hello")
	}
	if lastErr == nil {
		t.Fatalf("expected error once breaker trips")
	}
	if types.KindOf(lastErr) != types.KindEmbeddingError {
		t.Fatalf("expected KindEmbeddingError from open breaker, got %s", types.KindOf(lastErr))
	}
}
