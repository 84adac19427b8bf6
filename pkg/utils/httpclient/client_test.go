package httpclient

import (
	"context"
	"io"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/propagation"
	sdktrace "go.opentelemetry.io/otel/sdk/trace"
)

func newTestClient(retries int) *Client {
	c := NewClient(5*time.Second, retries)
	c.backoff = time.Millisecond
	return c
}

func TestPostJSON(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, http.MethodPost, r.Method)
		assert.Equal(t, "application/json", r.Header.Get("Content-Type"))
		assert.Equal(t, "Bearer k", r.Header.Get("Authorization"))
		body, _ := io.ReadAll(r.Body)
		assert.JSONEq(t, `{"prompt":"hello"}`, string(body))
		_, _ = w.Write([]byte(`{"response":"world"}`))
	}))
	defer server.Close()

	var out struct {
		Response string `json:"response"`
	}
	err := newTestClient(0).PostJSON(context.Background(), server.URL,
		map[string]string{"Authorization": "Bearer k"},
		map[string]string{"prompt": "hello"}, &out)
	require.NoError(t, err)
	assert.Equal(t, "world", out.Response)
}

func TestDoJSONClientError(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusNotFound)
		_, _ = w.Write([]byte("model not found"))
	}))
	defer server.Close()

	err := newTestClient(2).GetJSON(context.Background(), server.URL, nil)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "404")
	assert.Contains(t, err.Error(), "model not found")
}

func TestRetryOnServerError(t *testing.T) {
	var calls atomic.Int32
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		body, _ := io.ReadAll(r.Body)
		assert.Equal(t, `{"n":1}`, string(body), "body must be resent on retry")
		if calls.Add(1) < 3 {
			w.WriteHeader(http.StatusBadGateway)
			return
		}
		_, _ = w.Write([]byte(`{}`))
	}))
	defer server.Close()

	err := newTestClient(2).PostJSON(context.Background(), server.URL, nil, map[string]int{"n": 1}, nil)
	require.NoError(t, err)
	assert.Equal(t, int32(3), calls.Load())
}

func TestNoRetryWhenDisabled(t *testing.T) {
	var calls atomic.Int32
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		calls.Add(1)
		w.WriteHeader(http.StatusInternalServerError)
	}))
	defer server.Close()

	err := newTestClient(0).GetJSON(context.Background(), server.URL, nil)
	require.Error(t, err)
	assert.Equal(t, int32(1), calls.Load())
}

func TestTraceContextPropagated(t *testing.T) {
	tp := sdktrace.NewTracerProvider()
	defer func() { _ = tp.Shutdown(context.Background()) }()
	otel.SetTextMapPropagator(propagation.TraceContext{})

	var traceparent string
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		traceparent = r.Header.Get("traceparent")
		_, _ = w.Write([]byte(`{}`))
	}))
	defer server.Close()

	ctx, span := tp.Tracer("test").Start(context.Background(), "generate")
	defer span.End()

	require.NoError(t, newTestClient(0).GetJSON(ctx, server.URL, nil))
	assert.NotEmpty(t, traceparent)
	assert.Contains(t, traceparent, span.SpanContext().TraceID().String())
}

func TestNoTraceWithoutSpan(t *testing.T) {
	otel.SetTextMapPropagator(propagation.TraceContext{})
	req := httptest.NewRequest(http.MethodGet, "http://example.com", nil)

	newTestClient(0).injectTraceContext(req)
	assert.Empty(t, req.Header.Get("traceparent"))
	assert.NotPanics(t, func() { newTestClient(0).injectTraceContext(nil) })
}
