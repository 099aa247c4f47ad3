package suggest

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/goccy/go-json"
	gobreaker "github.com/sony/gobreaker/v2"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewOllamaGeneratorRequiresEndpoint(t *testing.T) {
	_, err := NewOllamaGenerator(OllamaConfig{Endpoint: "  "})
	assert.ErrorIs(t, err, ErrNotConfigured)
}

func TestOllamaGenerate(t *testing.T) {
	var got generateRequest
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/api/generate", r.URL.Path)
		assert.Equal(t, "Bearer secret", r.Header.Get("Authorization"))
		assert.NoError(t, json.NewDecoder(r.Body).Decode(&got))
		w.Header().Set("Content-Type", "application/json")
		w.Write([]byte(`{"model":"llama3.2","response":"{\"suggestions\":[]}","done":true}`))
	}))
	defer srv.Close()

	gen, err := NewOllamaGenerator(OllamaConfig{Endpoint: srv.URL + "/", Model: "llama3.2", APIKey: "secret", Timeout: time.Second})
	require.NoError(t, err)

	text, err := gen.Generate(context.Background(), "hello")
	require.NoError(t, err)
	assert.Equal(t, `{"suggestions":[]}`, text)
	assert.Equal(t, "llama3.2", got.Model)
	assert.Equal(t, "hello", got.Prompt)
	assert.False(t, got.Stream)
	assert.Equal(t, 512, got.Options.NumPredict)
}

func TestOllamaGenerateStatusError(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Empty(t, r.Header.Get("Authorization"))
		http.Error(w, "model not found", http.StatusNotFound)
	}))
	defer srv.Close()

	gen, err := NewOllamaGenerator(OllamaConfig{Endpoint: srv.URL, Model: "missing"})
	require.NoError(t, err)

	_, err = gen.Generate(context.Background(), "hello")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "status 404")
	assert.Contains(t, err.Error(), "model not found")
}

func TestBreakerOpensAfterFailures(t *testing.T) {
	inner := &stubGenerator{err: errors.New("boom")}
	b := NewBreakerGenerator(inner, BreakerConfig{MaxRequests: 1, Timeout: time.Minute, FailureThreshold: 3})

	for i := 0; i < 3; i++ {
		_, err := b.Generate(context.Background(), "p")
		require.Error(t, err)
	}
	assert.Equal(t, gobreaker.StateOpen, b.State())

	_, err := b.Generate(context.Background(), "p")
	assert.ErrorIs(t, err, gobreaker.ErrOpenState)
	assert.Equal(t, int32(3), inner.calls.Load())
}

func TestBreakerPassesThrough(t *testing.T) {
	b := NewBreakerGenerator(&stubGenerator{text: "ok"}, BreakerConfig{MaxRequests: 1, Timeout: time.Minute})
	text, err := b.Generate(context.Background(), "p")
	require.NoError(t, err)
	assert.Equal(t, "ok", text)
	assert.Equal(t, gobreaker.StateClosed, b.State())
}
