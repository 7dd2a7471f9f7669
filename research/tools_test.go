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

package research_test

import (
	"context"
	"errors"
	"sync"
	"testing"

	"github.com/nlpodyssey/account-research/agents"
	"github.com/nlpodyssey/account-research/exa"
	"github.com/nlpodyssey/account-research/research"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// fakeSearcher returns canned results and records every call.
type fakeSearcher struct {
	mu          sync.Mutex
	searches    []exa.SearchParams
	similar     []exa.FindSimilarParams
	contentsIDs [][]string
	results     []exa.Result
	err         error
}

func (s *fakeSearcher) Search(_ context.Context, params exa.SearchParams) (*exa.Response, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.searches = append(s.searches, params)
	return s.response()
}

func (s *fakeSearcher) FindSimilar(_ context.Context, params exa.FindSimilarParams) (*exa.Response, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.similar = append(s.similar, params)
	return s.response()
}

func (s *fakeSearcher) GetContents(_ context.Context, ids []string, _ bool) (*exa.Response, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.contentsIDs = append(s.contentsIDs, ids)
	return s.response()
}

func (s *fakeSearcher) response() (*exa.Response, error) {
	if s.err != nil {
		return nil, s.err
	}
	return &exa.Response{Results: s.results}, nil
}

func (s *fakeSearcher) searchQueries() []string {
	s.mu.Lock()
	defer s.mu.Unlock()
	var out []string
	for _, p := range s.searches {
		out = append(out, p.Query)
	}
	return out
}

func acmeResults() []exa.Result {
	return []exa.Result{{
		ID:              "doc-1",
		URL:             "https://acme.example/news",
		Title:           "Acme raises Series B",
		Highlights:      []string{"Acme raised $20M"},
		HighlightScores: []float64{0.5},
	}}
}

func toolByName(t *testing.T, tools []agents.FunctionTool, name string) agents.FunctionTool {
	t.Helper()
	for _, tool := range tools {
		if tool.Name == name {
			return tool
		}
	}
	require.FailNowf(t, "tool not found", "%s", name)
	return agents.FunctionTool{}
}

func TestTools_Search(t *testing.T) {
	s := &fakeSearcher{results: acmeResults()}
	tools := research.Tools(s, 5)
	require.Len(t, tools, 3)

	out, err := toolByName(t, tools, "search").OnInvokeTool(t.Context(), `{"query":"Acme funding"}`)
	require.NoError(t, err)
	assert.Equal(t,
		"ID: doc-1\nURL: https://acme.example/news\nTitle: Acme raises Series B\n"+
			"Highlights and Scores:\n- Acme raised $20M (Score: 0.50)",
		out)

	require.Len(t, s.searches, 1)
	assert.Equal(t, exa.SearchParams{
		Query:         "Acme funding",
		NumResults:    5,
		UseAutoprompt: true,
		Highlights:    true,
	}, s.searches[0])
}

func TestTools_FindSimilarAndContents(t *testing.T) {
	s := &fakeSearcher{results: acmeResults()}
	tools := research.Tools(s, 0)

	_, err := toolByName(t, tools, "find_similar").OnInvokeTool(t.Context(), `{"url":"https://acme.example"}`)
	require.NoError(t, err)
	require.Len(t, s.similar, 1)
	assert.Equal(t, "https://acme.example", s.similar[0].URL)
	assert.True(t, s.similar[0].Highlights)

	out, err := toolByName(t, tools, "get_contents").OnInvokeTool(t.Context(), `{"ids":["doc-1","doc-2"]}`)
	require.NoError(t, err)
	assert.Equal(t, [][]string{{"doc-1", "doc-2"}}, s.contentsIDs)
	assert.NotContains(t, out, "ID:")
	assert.Contains(t, out, "Title: Acme raises Series B")
}

func TestTools_NoResultsAndErrors(t *testing.T) {
	out, err := toolByName(t, research.Tools(&fakeSearcher{}, 0), "search").
		OnInvokeTool(t.Context(), `{"query":"nothing"}`)
	require.NoError(t, err)
	assert.Equal(t, "No results found.", out)

	boom := errors.New("boom")
	_, err = toolByName(t, research.Tools(&fakeSearcher{err: boom}, 0), "search").
		OnInvokeTool(t.Context(), `{"query":"x"}`)
	assert.ErrorIs(t, err, boom)
}

func TestTools_StrictSchemas(t *testing.T) {
	for _, tool := range research.Tools(&fakeSearcher{}, 0) {
		assert.Equal(t, false, tool.ParamsJSONSchema["additionalProperties"], tool.Name)
		assert.NotEmpty(t, tool.ParamsJSONSchema["required"], tool.Name)
	}
}
