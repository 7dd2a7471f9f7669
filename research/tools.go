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

package research

import (
	"context"
	"fmt"
	"strings"

	"github.com/nlpodyssey/account-research/agents"
	"github.com/nlpodyssey/account-research/exa"
)

// Searcher is the web search backend used by the research tools.
// *exa.Client implements it.
type Searcher interface {
	Search(ctx context.Context, params exa.SearchParams) (*exa.Response, error)
	FindSimilar(ctx context.Context, params exa.FindSimilarParams) (*exa.Response, error)
	GetContents(ctx context.Context, ids []string, highlights bool) (*exa.Response, error)
}

type SearchArgs struct {
	Query string `json:"query" jsonschema_description:"The search query."`
}

type FindSimilarArgs struct {
	URL string `json:"url" jsonschema_description:"A URL returned by search."`
}

type GetContentsArgs struct {
	IDs []string `json:"ids" jsonschema_description:"Document IDs returned by search or find_similar."`
}

// Tools returns the search, find_similar and get_contents tools bound to s.
// numResults <= 0 selects exa.DefaultNumResults.
func Tools(s Searcher, numResults int) []agents.FunctionTool {
	return []agents.FunctionTool{
		agents.NewFunctionTool("search",
			"Search for webpages based on the query and retrieve their IDs, titles, URLs and highlights.",
			func(ctx context.Context, args SearchArgs) (string, error) {
				resp, err := s.Search(ctx, exa.SearchParams{
					Query:         args.Query,
					NumResults:    numResults,
					UseAutoprompt: true,
					Highlights:    true,
				})
				if err != nil {
					return "", err
				}
				return formatResults(resp.Results), nil
			}),
		agents.NewFunctionTool("find_similar",
			"Search for webpages similar to a given URL and retrieve their IDs, titles, URLs and highlights. "+
				"The URL passed in should be a URL returned from `search`.",
			func(ctx context.Context, args FindSimilarArgs) (string, error) {
				resp, err := s.FindSimilar(ctx, exa.FindSimilarParams{
					URL:        args.URL,
					NumResults: numResults,
					Highlights: true,
				})
				if err != nil {
					return "", err
				}
				return formatResults(resp.Results), nil
			}),
		agents.NewFunctionTool("get_contents",
			"Get the highlights of webpages. The ids must be a list of IDs returned from `search` or `find_similar`.",
			func(ctx context.Context, args GetContentsArgs) (string, error) {
				resp, err := s.GetContents(ctx, args.IDs, true)
				if err != nil {
					return "", err
				}
				return exa.FormatContents(resp.Results), nil
			}),
	}
}

// formatResults renders results like exa.FormatContents, prefixing each
// entry with its ID so that it can be passed to get_contents.
func formatResults(results []exa.Result) string {
	if len(results) == 0 {
		return "No results found."
	}
	entries := make([]string, len(results))
	for i, r := range results {
		entries[i] = fmt.Sprintf("ID: %s\n%s", r.ID, exa.FormatContents([]exa.Result{r}))
	}
	return strings.Join(entries, "\n\n")
}
