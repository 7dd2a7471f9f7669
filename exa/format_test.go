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
	"testing"

	"github.com/nlpodyssey/account-research/exa"
	"github.com/stretchr/testify/assert"
)

func TestFormatContents(t *testing.T) {
	results := []exa.Result{
		{
			URL:             "https://example.com/a",
			Title:           "A",
			Highlights:      []string{"first", "second"},
			HighlightScores: []float64{0.123, 0.9},
		},
		{URL: "https://example.com/b", Title: "B"},
	}

	expected := "URL: https://example.com/a\nTitle: A\nHighlights and Scores:\n" +
		"- first (Score: 0.12)\n- second (Score: 0.90)" +
		"\n\n" +
		"URL: https://example.com/b\nTitle: B\nNo highlights available."
	assert.Equal(t, expected, exa.FormatContents(results))
}

func TestFormatContentsEmpty(t *testing.T) {
	assert.Equal(t, "", exa.FormatContents(nil))
}
