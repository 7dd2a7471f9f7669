// Copyright 2025 The NLP Odyssey Authors
//
// Licensed under the Apache License, Version 2.0 (the "License");
// you may not use this file except in compliance with the License.
// You may obtain a copy of the License at
//
//     http://www.apache.org/licenses/LICENSE-2.0
//
// Unless required by applicable law or agreed to in writing, software
// distributed under the License is distributed on an "AS IS" BASIS,
// WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
// See the License for the specific language governing permissions and
// limitations under the License.

package exa_test

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/nlpodyssey/account-research/exa"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type recordedRequest struct {
	Path   string
	APIKey string
	Body   map[string]any
}

func newServer(t *testing.T, status int, response string) (*httptest.Server, chan recordedRequest) {
	t.Helper()
	requests := make(chan recordedRequest, 10)
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		var body map[string]any
		_ = json.NewDecoder(r.Body).Decode(&body)
		requests <- recordedRequest{Path: r.URL.Path, APIKey: r.Header.Get("x-api-key"), Body: body}
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(status)
		_, _ = w.Write([]byte(response))
	}))
	t.Cleanup(srv.Close)
	return srv, requests
}

func TestNewClientRequiresAPIKey(t *testing.T) {
	_, err := exa.NewClient("  ")
	assert.ErrorIs(t, err, exa.ErrMissingAPIKey)
}

func TestSearch(t *testing.T) {
	srv, requests := newServer(t, http.StatusOK, `{
		"results": [{
			"id": "doc-1",
			"url": "https://example.com/a",
			"title": "Acme raises funds",
			"publishedDate": "2024-01-02",
			"highlights": ["Acme raised $10M"],
			"highlightScores": [0.91]
		}],
		"autopromptString": "Acme funding"
	}`)

	client, err := exa.NewClient("secret", exa.WithBaseURL(srv.URL+"/"))
	require.NoError(t, err)

	resp, err := client.Search(t.Context(), exa.SearchParams{
		Query:         "Acme funding",
		UseAutoprompt: true,
		Highlights:    true,
	})
	require.NoError(t, err)

	req := <-requests
	assert.Equal(t, "/search", req.Path)
	assert.Equal(t, "secret", req.APIKey)
	assert.Equal(t, map[string]any{
		"query":         "Acme funding",
		"numResults":    float64(exa.DefaultNumResults),
		"useAutoprompt": true,
		"contents":      map[string]any{"highlights": true},
	}, req.Body)

	assert.Equal(t, "Acme funding", resp.AutopromptString)
	require.Len(t, resp.Results, 1)
	assert.Equal(t, exa.Result{
		ID:              "doc-1",
		URL:             "https://example.com/a",
		Title:           "Acme raises funds",
		PublishedDate:   "2024-01-02",
		Highlights:      []string{"Acme raised $10M"},
		HighlightScores: []float64{0.91},
	}, resp.Results[0])
}

func TestFindSimilar(t *testing.T) {
	srv, requests := newServer(t, http.StatusOK, `{"results": []}`)
	client, err := exa.NewClient("secret", exa.WithBaseURL(srv.URL))
	require.NoError(t, err)

	resp, err := client.FindSimilar(t.Context(), exa.FindSimilarParams{URL: "https://example.com", NumResults: 5})
	require.NoError(t, err)
	assert.Empty(t, resp.Results)

	req := <-requests
	assert.Equal(t, "/findSimilar", req.Path)
	assert.Equal(t, map[string]any{"url": "https://example.com", "numResults": float64(5)}, req.Body)
}

func TestGetContents(t *testing.T) {
	srv, requests := newServer(t, http.StatusOK, `{"results": [{"id": "a", "url": "u", "title": "t"}]}`)
	client, err := exa.NewClient("secret", exa.WithBaseURL(srv.URL))
	require.NoError(t, err)

	resp, err := client.GetContents(t.Context(), []string{"a", "b"}, true)
	require.NoError(t, err)
	assert.Len(t, resp.Results, 1)

	req := <-requests
	assert.Equal(t, "/contents", req.Path)
	assert.Equal(t, map[string]any{"ids": []any{"a", "b"}, "highlights": true}, req.Body)
}

func TestInvalidArguments(t *testing.T) {
	client, err := exa.NewClient("secret", exa.WithBaseURL("http://127.0.0.1:1"))
	require.NoError(t, err)

	_, err = client.Search(t.Context(), exa.SearchParams{Query: " "})
	assert.Error(t, err)
	_, err = client.FindSimilar(t.Context(), exa.FindSimilarParams{})
	assert.Error(t, err)
	_, err = client.GetContents(t.Context(), nil, false)
	assert.Error(t, err)
}

func TestAPIError(t *testing.T) {
	srv, _ := newServer(t, http.StatusUnauthorized, `{"error": "invalid api key"}`)
	client, err := exa.NewClient("wrong", exa.WithBaseURL(srv.URL))
	require.NoError(t, err)

	_, err = client.Search(t.Context(), exa.SearchParams{Query: "x"})
	var apiErr *exa.APIError
	require.ErrorAs(t, err, &apiErr)
	assert.Equal(t, http.StatusUnauthorized, apiErr.Status)
	assert.Equal(t, "invalid api key", apiErr.Message)
}

func TestAPIErrorWithPlainBody(t *testing.T) {
	srv, _ := newServer(t, http.StatusBadGateway, "upstream down\n")
	client, err := exa.NewClient("k", exa.WithBaseURL(srv.URL))
	require.NoError(t, err)

	_, err = client.Search(t.Context(), exa.SearchParams{Query: "x"})
	var apiErr *exa.APIError
	require.ErrorAs(t, err, &apiErr)
	assert.Equal(t, "upstream down", apiErr.Message)
}

func TestRateLimitHonorsContext(t *testing.T) {
	srv, _ := newServer(t, http.StatusOK, `{"results": []}`)
	client, err := exa.NewClient("k", exa.WithBaseURL(srv.URL), exa.WithRateLimit(0.001))
	require.NoError(t, err)

	// The first request consumes the only token.
	_, err = client.Search(t.Context(), exa.SearchParams{Query: "x"})
	require.NoError(t, err)

	ctx, cancel := context.WithTimeout(t.Context(), 50*time.Millisecond)
	defer cancel()
	_, err = client.Search(ctx, exa.SearchParams{Query: "x"})
	assert.Error(t, err)
}
