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
	"github.com/nlpodyssey/account-research/agents"
)

// Agent names, also used in progress events.
const (
	ResearcherName = "Account Researcher"
	ReviewerName   = "Research Reviewer"
	ManagerName    = "Research Manager"
	WriterName     = "Report Writer"
)

func newResearcher(tools []agents.FunctionTool) *agents.Agent {
	return agents.New(ResearcherName).
		WithInstructions(ResearcherPrompt).
		WithTools(tools...).
		WithOutputType(agents.OutputType[TopicInfo]())
}

func newReviewer() *agents.Agent {
	return agents.New(ReviewerName).
		WithInstructions(ReviewerPrompt).
		WithOutputType(agents.OutputType[ReviewFeedback]())
}

func newManager() *agents.Agent {
	return agents.New(ManagerName).
		WithInstructions(ManagerPrompt).
		WithOutputType(agents.OutputType[TopicInfoList]())
}

func newWriter() *agents.Agent {
	return agents.New(WriterName).
		WithInstructions(WriterPrompt).
		WithOutputType(agents.OutputType[Report]())
}
