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

// Package exa is a small client for the Exa web search API.
package exa

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"golang.org/x/time/rate"
)

const DefaultBaseURL = "https://api.exa.ai"

// DefaultNumResults is the number of results requested when a call leaves
// NumResults unset.
const DefaultNumResults = 3

// ErrMissingAPIKey is returned by NewClient when no API key is given.
var ErrMissingAPIKey = errors.New("exa: missing API key")

// APIError is returned for any non-2xx response.
type APIError struct {
	Status  int
	Message string
}

func (e *APIError) Error() string {
	return fmt.Sprintf("exa: API error (status %d): %s", e.Status, e.Message)
}

type Client struct {
	apiKey  string
	baseURL string
	http    *http.Client
	limiter *rate.Limiter
}

type Option func(*Client)

func WithBaseURL(u string) Option {
	return func(c *Client) {
		if u != "" {
			c.baseURL = strings.TrimRight(u, "/")
		}
	}
}

func WithHTTPClient(hc *http.Client) Option {
	return func(c *Client) {
		if hc != nil {
			c.http = hc
		}
	}
}

// WithRateLimit limits the client to rps requests per second. Callers block
// until a request is allowed or their context is done. Zero disables the limit.
func WithRateLimit(rps float64) Option {
	return func(c *Client) {
		if rps > 0 {
			c.limiter = rate.NewLimiter(rate.Limit(rps), max(1, int(rps)))
		}
	}
}

func NewClient(apiKey string, opts ...Option) (*Client, error) {
	if strings.TrimSpace(apiKey) == "" {
		return nil, ErrMissingAPIKey
	}
	c := &Client{
		apiKey:  apiKey,
		baseURL: DefaultBaseURL,
		http:    &http.Client{Timeout: 30 * time.Second},
	}
	for _, opt := range opts {
		opt(c)
	}
	return c, nil
}

type SearchParams struct {
	Query         string
	NumResults    int
	UseAutoprompt bool
	Highlights    bool
}

type FindSimilarParams struct {
	URL        string
	NumResults int
	Highlights bool
}

// Result is a single document returned by Exa.
type Result struct {
	ID              string    `json:"id"`
	URL             string    `json:"url"`
	Title           string    `json:"title"`
	PublishedDate   string    `json:"publishedDate,omitempty"`
	Author          string    `json:"author,omitempty"`
	Score           float64   `json:"score,omitempty"`
	Text            string    `json:"text,omitempty"`
	Highlights      []string  `json:"highlights,omitempty"`
	HighlightScores []float64 `json:"highlightScores,omitempty"`
}

type Response struct {
	Results          []Result `json:"results"`
	AutopromptString string   `json:"autopromptString,omitempty"`
}

type contentsOptions struct {
	Highlights bool `json:"highlights,omitempty"`
}

type searchRequest struct {
	Query         string           `json:"query"`
	NumResults    int              `json:"numResults"`
	UseAutoprompt bool             `json:"useAutoprompt,omitempty"`
	Contents      *contentsOptions `json:"contents,omitempty"`
}

type findSimilarRequest struct {
	URL        string           `json:"url"`
	NumResults int              `json:"numResults"`
	Contents   *contentsOptions `json:"contents,omitempty"`
}

type contentsRequest struct {
	IDs        []string `json:"ids"`
	Highlights bool     `json:"highlights,omitempty"`
}

func numResults(n int) int {
	if n <= 0 {
		return DefaultNumResults
	}
	return n
}

func contents(highlights bool) *contentsOptions {
	if !highlights {
		return nil
	}
	return &contentsOptions{Highlights: true}
}

// Search runs a web search and returns matching documents.
func (c *Client) Search(ctx context.Context, params SearchParams) (*Response, error) {
	if strings.TrimSpace(params.Query) == "" {
		return nil, errors.New("exa: empty search query")
	}
	return c.post(ctx, "/search", searchRequest{
		Query:         params.Query,
		NumResults:    numResults(params.NumResults),
		UseAutoprompt: params.UseAutoprompt,
		Contents:      contents(params.Highlights),
	})
}

// FindSimilar returns documents similar to the page at params.URL.
func (c *Client) FindSimilar(ctx context.Context, params FindSimilarParams) (*Response, error) {
	if strings.TrimSpace(params.URL) == "" {
		return nil, errors.New("exa: empty URL")
	}
	return c.post(ctx, "/findSimilar", findSimilarRequest{
		URL:        params.URL,
		NumResults: numResults(params.NumResults),
		Contents:   contents(params.Highlights),
	})
}

// GetContents fetches the documents with the given IDs, as returned by
// Search or FindSimilar.
func (c *Client) GetContents(ctx context.Context, ids []string, highlights bool) (*Response, error) {
	if len(ids) == 0 {
		return nil, errors.New("exa: no ids given")
	}
	return c.post(ctx, "/contents", contentsRequest{IDs: ids, Highlights: highlights})
}

func (c *Client) post(ctx context.Context, path string, body any) (*Response, error) {
	if c.limiter != nil {
		if err := c.limiter.Wait(ctx); err != nil {
			return nil, fmt.Errorf("exa: rate limit: %w", err)
		}
	}

	payload, err := json.Marshal(body)
	if err != nil {
		return nil, fmt.Errorf("exa: marshal request: %w", err)
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+path, bytes.NewReader(payload))
	if err != nil {
		return nil, fmt.Errorf("exa: build request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Accept", "application/json")
	req.Header.Set("x-api-key", c.apiKey)

	resp, err := c.http.Do(req)
	if err != nil {
		return nil, fmt.Errorf("exa: %s: %w", path, err)
	}
	defer func() { _ = resp.Body.Close() }()

	raw, err := io.ReadAll(io.LimitReader(resp.Body, 10<<20))
	if err != nil {
		return nil, fmt.Errorf("exa: read response: %w", err)
	}
	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return nil, &APIError{Status: resp.StatusCode, Message: errorMessage(raw)}
	}

	var out Response
	if err = json.Unmarshal(raw, &out); err != nil {
		return nil, fmt.Errorf("exa: decode response: %w", err)
	}
	return &out, nil
}

// errorMessage extracts the "error" field of a JSON error body, falling
// back to the raw text.
func errorMessage(raw []byte) string {
	var body struct {
		Error string `json:"error"`
	}
	if json.Unmarshal(raw, &body) == nil && body.Error != "" {
		return body.Error
	}
	return strings.TrimSpace(string(raw))
}
