package llm

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"
	"time"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/spherical/pdf2md/internal/domain"
)

func testPage() domain.EncodedPage {
	return domain.EncodedPage{
		Page:   3,
		Width:  100,
		Height: 140,
		Data:   "aGVsbG8=",
		Format: "png",
	}
}

func fastRetry() RetryPolicy {
	return RetryPolicy{MaxAttempts: 3, BaseBackoff: time.Millisecond, MaxBackoff: 4 * time.Millisecond}
}

func newTestClient(t *testing.T, url string) *Client {
	t.Helper()
	client, err := NewClient(Config{
		Credentials: domain.Credentials{APIKey: "sk-or-test", SiteURL: "https://example.com", AppName: "pdf2md-test"},
		BaseURL:     url,
		Retry:       fastRetry(),
		Logger:      zerolog.Nop(),
	})
	require.NoError(t, err)
	return client
}

func completionBody(content string) string {
	resp := map[string]any{
		"id": "gen-1",
		"choices": []map[string]any{
			{"message": map[string]any{"role": "assistant", "content": content}},
		},
	}
	b, _ := json.Marshal(resp)
	return string(b)
}

func TestNewClientRequiresAPIKey(t *testing.T) {
	_, err := NewClient(Config{})
	require.Error(t, err)
	assert.True(t, domain.IsKind(err, domain.KindConfiguration))
}

func TestNewClientDefaults(t *testing.T) {
	client, err := NewClient(Config{Credentials: domain.Credentials{APIKey: "sk-or-test"}})
	require.NoError(t, err)
	assert.Equal(t, defaultModel, client.Model())
	assert.Equal(t, defaultBaseURL, client.baseURL)
	assert.Equal(t, defaultTimeout, client.httpClient.Timeout)
	assert.Equal(t, DefaultRetryPolicy(), client.retry)
}

func TestNewClientKeepsPartialRetryPolicy(t *testing.T) {
	client, err := NewClient(Config{
		Credentials: domain.Credentials{APIKey: "sk-or-test"},
		Retry:       RetryPolicy{BaseBackoff: 50 * time.Millisecond},
	})
	require.NoError(t, err)

	// Unset fields default individually; set ones survive.
	assert.Equal(t, 50*time.Millisecond, client.retry.BaseBackoff)
	assert.Equal(t, DefaultRetryPolicy().MaxAttempts, client.retry.MaxAttempts)
	assert.Equal(t, DefaultRetryPolicy().MaxBackoff, client.retry.MaxBackoff)
}

func TestAnnotateMessageSchema(t *testing.T) {
	var captured Request
	var gotAuth, gotReferer, gotTitle string

	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotAuth = r.Header.Get("Authorization")
		gotReferer = r.Header.Get("HTTP-Referer")
		gotTitle = r.Header.Get("X-Title")
		require.NoError(t, json.NewDecoder(r.Body).Decode(&captured))
		w.Write([]byte(completionBody("# Title")))
	}))
	defer srv.Close()

	client := newTestClient(t, srv.URL)
	fragment, err := client.Annotate(context.Background(), testPage(), "Convert this document to markdown")
	require.NoError(t, err)

	assert.Equal(t, 3, fragment.PageNumber)
	assert.Equal(t, "# Title", fragment.Text)

	assert.Equal(t, "Bearer sk-or-test", gotAuth)
	assert.Equal(t, "https://example.com", gotReferer)
	assert.Equal(t, "pdf2md-test", gotTitle)

	require.Len(t, captured.Messages, 2)
	assert.Equal(t, "system", captured.Messages[0].Role)
	sys, ok := captured.Messages[0].Content.(string)
	require.True(t, ok)
	assert.Contains(t, sys, "Convert the following document to markdown")
	assert.Contains(t, sys, "<logo>")
	assert.Contains(t, sys, "☐")

	assert.Equal(t, "user", captured.Messages[1].Role)
	parts, ok := captured.Messages[1].Content.([]any)
	require.True(t, ok)
	require.Len(t, parts, 2)

	text := parts[0].(map[string]any)
	assert.Equal(t, "text", text["type"])
	assert.Equal(t, "Convert this document to markdown", text["text"])

	img := parts[1].(map[string]any)
	assert.Equal(t, "image_url", img["type"])
	url := img["image_url"].(map[string]any)["url"].(string)
	// The URI is tagged with the format the rasterizer produced.
	assert.Equal(t, "data:image/png;base64,aGVsbG8=", url)
}

func TestAnnotateJPEGContentType(t *testing.T) {
	var captured Request
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		require.NoError(t, json.NewDecoder(r.Body).Decode(&captured))
		w.Write([]byte(completionBody("ok")))
	}))
	defer srv.Close()

	page := testPage()
	page.Format = "jpeg"

	client := newTestClient(t, srv.URL)
	_, err := client.Annotate(context.Background(), page, "p")
	require.NoError(t, err)

	parts := captured.Messages[1].Content.([]any)
	url := parts[1].(map[string]any)["image_url"].(map[string]any)["url"].(string)
	assert.Contains(t, url, "data:image/jpeg;base64,")
}

func TestAnnotateRetriesTransientFailures(t *testing.T) {
	var calls atomic.Int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		switch calls.Add(1) {
		case 1:
			w.WriteHeader(http.StatusTooManyRequests)
		case 2:
			w.WriteHeader(http.StatusBadGateway)
		default:
			w.Write([]byte(completionBody("recovered")))
		}
	}))
	defer srv.Close()

	client := newTestClient(t, srv.URL)
	fragment, err := client.Annotate(context.Background(), testPage(), "p")
	require.NoError(t, err)
	assert.Equal(t, "recovered", fragment.Text)
	assert.Equal(t, int32(3), calls.Load())
}

func TestAnnotateDoesNotRetryAuthFailures(t *testing.T) {
	var calls atomic.Int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		calls.Add(1)
		w.WriteHeader(http.StatusUnauthorized)
		w.Write([]byte(`{"error":"invalid key"}`))
	}))
	defer srv.Close()

	client := newTestClient(t, srv.URL)
	_, err := client.Annotate(context.Background(), testPage(), "p")
	require.Error(t, err)
	assert.True(t, domain.IsKind(err, domain.KindAnnotation))
	assert.Equal(t, int32(1), calls.Load())
}

func TestAnnotateExhaustsRetries(t *testing.T) {
	var calls atomic.Int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		calls.Add(1)
		w.WriteHeader(http.StatusServiceUnavailable)
	}))
	defer srv.Close()

	client := newTestClient(t, srv.URL)
	_, err := client.Annotate(context.Background(), testPage(), "p")
	require.Error(t, err)
	assert.True(t, domain.IsKind(err, domain.KindAnnotation))
	assert.Equal(t, int32(3), calls.Load())
}

func TestAnnotateEmptyChoices(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(`{"id":"gen-1","choices":[]}`))
	}))
	defer srv.Close()

	client := newTestClient(t, srv.URL)
	_, err := client.Annotate(context.Background(), testPage(), "p")
	require.Error(t, err)
	assert.True(t, domain.IsKind(err, domain.KindAnnotation))
	assert.Contains(t, err.Error(), "no choices")
}
