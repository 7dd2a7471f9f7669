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

// Placeholder written by agents for data they could not find.
const Missing = "MISSING"

// NamedURL is a source document.
type NamedURL struct {
	Title   string `json:"title"`
	URL     string `json:"url"`
	Year    int    `json:"year" jsonschema_description:"Publication year, or 0 when unknown."`
	Snippet string `json:"snippet" jsonschema_description:"A short excerpt of the source supporting the finding."`
}

// Finding is a fact about the target account backed by a source.
type Finding struct {
	Title      string   `json:"title"`
	Source     NamedURL `json:"source"`
	Highlights []string `json:"highlights" jsonschema_description:"Verbatim highlights from the source."`
}

// TopicInfo groups the findings of one research topic.
type TopicInfo struct {
	Title             string     `json:"title" jsonschema_description:"The research topic."`
	Topic             []Finding  `json:"topic" jsonschema_description:"Findings for the topic."`
	AdditionalSources []NamedURL `json:"additional_sources" jsonschema_description:"Relevant sources not yet turned into findings."`
}

type TopicInfoList struct {
	Topics []TopicInfo `json:"topics"`
}

// ResearchGap is something the reviewer wants researched again.
type ResearchGap struct {
	Topic  string `json:"topic" jsonschema_description:"The research topic the gap belongs to, as given in the request."`
	Query  string `json:"query" jsonschema_description:"A specific search query the researcher should run."`
	Reason string `json:"reason"`
}

// ReviewFeedback is the output of the research reviewer.
type ReviewFeedback struct {
	Approved bool          `json:"approved" jsonschema_description:"True when the findings are complete and credible."`
	Summary  string        `json:"summary"`
	Gaps     []ResearchGap `json:"gaps"`
}

// Report is the final output of a research job.
type Report struct {
	TargetAccount     string      `json:"target_account"`
	Summary           string      `json:"summary" jsonschema_description:"A short executive summary of the account."`
	Topics            []TopicInfo `json:"topics"`
	FollowUpQuestions []string    `json:"follow_up_questions" jsonschema_description:"Suggested questions for further research."`
}
