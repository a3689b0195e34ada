package httpclient

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"net/url"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

func TestDoJSON_SendsQueryHeadersAndBody(t *testing.T) {
	ts := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		require.Equal(t, "/v1/echo", r.URL.Path)
		require.Equal(t, `openfda.brand_name:"metformin"`, r.URL.Query().Get("search"))
		require.Equal(t, "k1", r.Header.Get("X-Api-Key"))
		require.Equal(t, "application/json", r.Header.Get("Content-Type"))

		var in map[string]string
		require.NoError(t, json.NewDecoder(r.Body).Decode(&in))

		w.Header().Set("Content-Type", "application/json")
		_ = json.NewEncoder(w).Encode(map[string]string{"echo": in["msg"]})
	}))
	defer ts.Close()

	c, err := NewWithBaseURL(ts.URL+"/", time.Second)
	require.NoError(t, err)

	var out struct {
		Echo string `json:"echo"`
	}
	err = c.DoJSON(context.Background(), http.MethodPost, "v1/echo", Request{
		Headers: map[string]string{"X-Api-Key": "k1", " ": "skip"},
		Query:   url.Values{"search": {`openfda.brand_name:"metformin"`}},
		Body:    map[string]string{"msg": "hola"},
	}, &out)
	require.NoError(t, err)
	require.Equal(t, "hola", out.Echo)
}

func TestDoJSON_Non2xxReturnsHTTPError(t *testing.T) {
	ts := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "no matches", http.StatusNotFound)
	}))
	defer ts.Close()

	c := New(time.Second)
	err := c.DoJSON(context.Background(), http.MethodGet, ts.URL+"/x", Request{}, nil)
	require.Error(t, err)
	require.True(t, IsStatus(err, http.StatusNotFound))

	var he *HTTPError
	require.ErrorAs(t, err, &he)
	require.Equal(t, "no matches", he.Body)
}

func TestResolveURL(t *testing.T) {
	c := New(0)
	_, err := c.resolveURL("/relative")
	require.Error(t, err, "relative path without BaseURL must fail")

	_, err = c.resolveURL("  ")
	require.Error(t, err)

	u, err := c.resolveURL("https://api.fda.gov/drug/label.json")
	require.NoError(t, err)
	require.Equal(t, "https://api.fda.gov/drug/label.json", u)

	_, err = NewWithBaseURL("::bad", time.Second)
	require.Error(t, err)
}
