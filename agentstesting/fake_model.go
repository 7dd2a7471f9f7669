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

package agentstesting

import (
	"context"
	"errors"
	"slices"
	"sync"

	"github.com/nlpodyssey/account-research/agents"
	"github.com/nlpodyssey/account-research/usage"
)

// ErrNoMoreOutputs is returned by FakeModel when its queue is exhausted.
var ErrNoMoreOutputs = errors.New("fake model: no more turn outputs")

// FakeModel is a scripted agents.Model. Outputs are consumed from
// TurnOutputs in order, unless Respond is set, in which case it decides the
// output of every turn. It is safe for concurrent use.
type FakeModel struct {
	mu             sync.Mutex
	turnOutputs    []FakeModelTurnOutput
	requests       []agents.ModelRequest
	hardcodedUsage *usage.Usage

	// Respond, when set, computes the output of each turn from the request.
	Respond func(req agents.ModelRequest) FakeModelTurnOutput
}

type FakeModelTurnOutput struct {
	Value agents.Message
	Error error
}

func NewFakeModel(outputs ...FakeModelTurnOutput) *FakeModel {
	return &FakeModel{turnOutputs: outputs}
}

func (m *FakeModel) SetHardcodedUsage(u usage.Usage) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.hardcodedUsage = &u
}

func (m *FakeModel) SetNextOutput(output FakeModelTurnOutput) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.turnOutputs = append(m.turnOutputs, output)
}

func (m *FakeModel) AddMultipleTurnOutputs(outputs []FakeModelTurnOutput) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.turnOutputs = append(m.turnOutputs, outputs...)
}

// Requests returns a copy of every request received so far.
func (m *FakeModel) Requests() []agents.ModelRequest {
	m.mu.Lock()
	defer m.mu.Unlock()
	return slices.Clone(m.requests)
}

// LastRequest returns the most recent request, or the zero value.
func (m *FakeModel) LastRequest() agents.ModelRequest {
	m.mu.Lock()
	defer m.mu.Unlock()
	if len(m.requests) == 0 {
		return agents.ModelRequest{}
	}
	return m.requests[len(m.requests)-1]
}

func (m *FakeModel) GetResponse(_ context.Context, req agents.ModelRequest) (*agents.ModelResponse, error) {
	m.mu.Lock()
	m.requests = append(m.requests, req)

	var output FakeModelTurnOutput
	respond := m.Respond
	if respond == nil {
		if len(m.turnOutputs) == 0 {
			m.mu.Unlock()
			return nil, ErrNoMoreOutputs
		}
		output = m.turnOutputs[0]
		m.turnOutputs = m.turnOutputs[1:]
	}
	u := usage.Usage{Requests: 1}
	if m.hardcodedUsage != nil {
		u = *m.hardcodedUsage
	}
	m.mu.Unlock()

	if respond != nil {
		output = respond(req)
	}
	if output.Error != nil {
		return nil, output.Error
	}
	return &agents.ModelResponse{Output: output.Value, Usage: u}, nil
}
