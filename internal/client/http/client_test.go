package http_test

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	httpclient "github.com/priroda-spa/loyalty-console/internal/client/http"
)

type echoPayload struct {
	Message string `json:"message"`
}

func TestDoSuccess(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "application/json", r.Header.Get("Content-Type"))
		assert.Equal(t, "Bearer secret", r.Header.Get("Authorization"))
		assert.Equal(t, "v", r.URL.Query().Get("k"))
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`{"message":"ok"}`))
	}))
	defer server.Close()

	client := httpclient.NewClient(httpclient.WithBaseURL(server.URL))
	resp, err := client.Get(context.Background(), "/ping",
		httpclient.WithBearerToken("secret"),
		httpclient.WithQueryParam("k", "v"))
	require.NoError(t, err)

	var payload echoPayload
	require.NoError(t, httpclient.DecodeJSON(resp, &payload))
	assert.Equal(t, "ok", payload.Message)
}

func TestDoReturnsHTTPErrorWithBody(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusBadRequest)
		_, _ = w.Write([]byte(`{"detail":"bad input"}`))
	}))
	defer server.Close()

	client := httpclient.NewClient(httpclient.WithBaseURL(server.URL))
	resp, err := client.Post(context.Background(), "/things", map[string]string{"a": "b"})
	require.Error(t, err)
	require.NotNil(t, resp)

	var httpErr *httpclient.HTTPError
	require.ErrorAs(t, err, &httpErr)
	assert.Equal(t, http.StatusBadRequest, httpErr.StatusCode)
	assert.Equal(t, http.MethodPost, httpErr.Method)
	assert.Contains(t, httpErr.Body, "bad input")

	// The body is preserved on the error so callers can decode the error
	// envelope themselves.
	var detail struct {
		Detail string `json:"detail"`
	}
	require.NoError(t, json.Unmarshal([]byte(httpErr.Body), &detail))
	assert.Equal(t, "bad input", detail.Detail)
}

func TestNoRetryByDefault(t *testing.T) {
	var calls atomic.Int32
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		calls.Add(1)
		w.WriteHeader(http.StatusServiceUnavailable)
	}))
	defer server.Close()

	client := httpclient.NewClient(httpclient.WithBaseURL(server.URL))
	_, err := client.Get(context.Background(), "/flaky")
	require.Error(t, err)
	assert.Equal(t, int32(1), calls.Load())
}

func TestRetriesTransientFailures(t *testing.T) {
	var calls atomic.Int32
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if calls.Add(1) < 3 {
			w.WriteHeader(http.StatusServiceUnavailable)
			return
		}
		_, _ = w.Write([]byte(`{"message":"recovered"}`))
	}))
	defer server.Close()

	retry := httpclient.DefaultRetryConfig()
	retry.InitialInterval = time.Millisecond
	retry.MaxInterval = 5 * time.Millisecond

	client := httpclient.NewClient(
		httpclient.WithBaseURL(server.URL),
		httpclient.WithRetryConfig(retry))

	resp, err := client.Get(context.Background(), "/flaky")
	require.NoError(t, err)
	assert.Equal(t, int32(3), calls.Load())

	var payload echoPayload
	require.NoError(t, httpclient.DecodeJSON(resp, &payload))
	assert.Equal(t, "recovered", payload.Message)
}

func TestRetriesResendBody(t *testing.T) {
	var calls atomic.Int32
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		var payload echoPayload
		require.NoError(t, json.NewDecoder(r.Body).Decode(&payload))
		assert.Equal(t, "hello", payload.Message)
		if calls.Add(1) < 2 {
			w.WriteHeader(http.StatusTooManyRequests)
			return
		}
		_, _ = w.Write([]byte(`{"message":"done"}`))
	}))
	defer server.Close()

	retry := httpclient.DefaultRetryConfig()
	retry.InitialInterval = time.Millisecond

	client := httpclient.NewClient(
		httpclient.WithBaseURL(server.URL),
		httpclient.WithRetryConfig(retry))

	resp, err := client.Post(context.Background(), "/echo", echoPayload{Message: "hello"})
	require.NoError(t, err)
	require.NoError(t, httpclient.DecodeJSON(resp, nil))
	assert.Equal(t, int32(2), calls.Load())
}

func TestNonRetryableStatusIsNotRetried(t *testing.T) {
	var calls atomic.Int32
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		calls.Add(1)
		w.WriteHeader(http.StatusBadRequest)
	}))
	defer server.Close()

	client := httpclient.NewClient(
		httpclient.WithBaseURL(server.URL),
		httpclient.WithRetryConfig(httpclient.DefaultRetryConfig()))

	_, err := client.Get(context.Background(), "/bad")
	require.Error(t, err)
	assert.Equal(t, int32(1), calls.Load())
}

func TestPathWithoutBaseURLMustBeAbsolute(t *testing.T) {
	client := httpclient.NewClient()
	_, err := client.Get(context.Background(), "/relative/only")
	require.Error(t, err)
}

func TestDecodeJSONNilTargetDrains(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusNoContent)
	}))
	defer server.Close()

	client := httpclient.NewClient(httpclient.WithBaseURL(server.URL))
	resp, err := client.Delete(context.Background(), "/things/1")
	require.NoError(t, err)
	require.NoError(t, httpclient.DecodeJSON(resp, nil))
}
