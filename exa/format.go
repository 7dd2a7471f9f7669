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

package exa

import (
	"fmt"
	"strings"
)

// FormatContents renders results as plain text for an LLM:
//
//	URL: https://example.com
//	Title: Example
//	Highlights and Scores:
//	- some highlight (Score: 0.42)
//
// Results without highlights read "No highlights available." instead.
// Entries are separated by a blank line.
func FormatContents(results []Result) string {
	entries := make([]string, 0, len(results))
	for _, r := range results {
		var sb strings.Builder
		fmt.Fprintf(&sb, "URL: %s\nTitle: %s\n", r.URL, r.Title)
		if len(r.Highlights) == 0 {
			sb.WriteString("No highlights available.")
			entries = append(entries, sb.String())
			continue
		}
		sb.WriteString("Highlights and Scores:")
		for i, h := range r.Highlights {
			var score float64
			if i < len(r.HighlightScores) {
				score = r.HighlightScores[i]
			}
			fmt.Fprintf(&sb, "\n- %s (Score: %.2f)", h, score)
		}
		entries = append(entries, sb.String())
	}
	return strings.Join(entries, "\n\n")
}
