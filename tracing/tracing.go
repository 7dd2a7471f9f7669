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

// Package tracing exports one trace per research job. Each agent run of the
// job is reported through the agents.RunHooks callbacks of its JobTrace.
package tracing

import (
	"context"

	"github.com/nlpodyssey/account-research/agents"
)

// JobInfo describes the job a trace belongs to.
type JobInfo struct {
	JobID         string
	TargetAccount string
	Topics        []string
}

// Exporter is implemented by tracing backends.
type Exporter interface {
	// StartJob opens the trace of a job. The returned JobTrace must be
	// ended exactly once.
	StartJob(ctx context.Context, info JobInfo) JobTrace

	// Shutdown flushes pending data. It is called when the application stops.
	Shutdown(ctx context.Context) error
}

// JobTrace receives the lifecycle events of every agent run of a job.
// Implementations must be safe for concurrent use: agent runs of the same
// job may overlap.
type JobTrace interface {
	agents.RunHooks

	// End closes the trace. err is the error that stopped the job, if any.
	End(err error)
}

// NoopExporter discards everything.
type NoopExporter struct{}

func (NoopExporter) StartJob(context.Context, JobInfo) JobTrace { return noopTrace{} }
func (NoopExporter) Shutdown(context.Context) error             { return nil }

type noopTrace struct {
	agents.NoOpRunHooks
}

func (noopTrace) End(error) {}
