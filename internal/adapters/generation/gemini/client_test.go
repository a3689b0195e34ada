package gemini

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

func TestGenerate_ReturnsFirstCandidateText(t *testing.T) {
	ts := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		require.Equal(t, http.MethodPost, r.Method)
		require.Equal(t, "/v1beta/models/test-model:generateContent", r.URL.Path)
		require.Equal(t, "k", r.URL.Query().Get("key"))

		var req generateRequest
		require.NoError(t, json.NewDecoder(r.Body).Decode(&req))
		require.Equal(t, "hello", req.Contents[0].Parts[0].Text)

		_, _ = w.Write([]byte(`{"candidates":[{"content":{"parts":[{"text":"SECTION 1: hi"}]}}]}`))
	}))
	defer ts.Close()

	c, err := NewClient(Config{BaseURL: ts.URL, APIKey: "k", Model: "test-model", Timeout: time.Second})
	require.NoError(t, err)

	text, err := c.Generate(context.Background(), "hello")
	require.NoError(t, err)
	require.Equal(t, "SECTION 1: hi", text)
}

func TestGenerate_NoCandidatesIsEmptyText(t *testing.T) {
	ts := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte(`{"candidates":[]}`))
	}))
	defer ts.Close()

	c, err := NewClient(Config{BaseURL: ts.URL, APIKey: "k", Timeout: time.Second})
	require.NoError(t, err)

	text, err := c.Generate(context.Background(), "hello")
	require.NoError(t, err)
	require.Empty(t, text)
}

func TestGenerate_Errors(t *testing.T) {
	ts := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "quota", http.StatusTooManyRequests)
	}))
	defer ts.Close()

	c, err := NewClient(Config{BaseURL: ts.URL, APIKey: "k", Timeout: time.Second})
	require.NoError(t, err)
	_, err = c.Generate(context.Background(), "hello")
	require.ErrorIs(t, err, ErrUpstream)

	unconfigured, err := NewClient(Config{BaseURL: ts.URL})
	require.NoError(t, err)
	_, err = unconfigured.Generate(context.Background(), "hello")
	require.ErrorIs(t, err, ErrNotConfigured)
}
