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

package jobs

import (
	"bytes"
	"encoding/json"
	"slices"
	"time"
)

// Status is the lifecycle state of a job.
type Status string

const (
	StatusPending  Status = "PENDING"
	StatusRunning  Status = "RUNNING"
	StatusComplete Status = "COMPLETE"
	StatusError    Status = "ERROR"
)

func (s Status) String() string { return string(s) }

// IsTerminal reports whether no further status transition is valid.
func (s Status) IsTerminal() bool {
	return s == StatusComplete || s == StatusError
}

// canTransition reports whether the state machine allows moving from s to next.
func (s Status) canTransition(next Status) bool {
	switch s {
	case StatusPending:
		return next == StatusRunning
	case StatusRunning:
		return next == StatusComplete || next == StatusError
	default:
		return false
	}
}

// Event is a single timestamped record in a job's event log.
type Event struct {
	Timestamp time.Time
	Data      string
}

// ResultKind tells which variant of a Result is populated.
type ResultKind string

const (
	ResultKindStructured ResultKind = "structured"
	ResultKindText       ResultKind = "text"
	ResultKindError      ResultKind = "error"
)

// Result is the final payload of a job.
//
// Exactly one of the variants is meaningful, as indicated by Kind:
// Structured holds a JSON document, Text holds raw text, and Error holds
// a description of the fault that terminated the job.
type Result struct {
	Kind       ResultKind
	Structured json.RawMessage
	Text       string
	Error      string
}

// StructuredResult creates a Result holding a JSON document.
// The bytes are copied.
func StructuredResult(doc json.RawMessage) Result {
	return Result{Kind: ResultKindStructured, Structured: bytes.Clone(doc)}
}

// StructuredResultOf marshals v into a structured Result.
func StructuredResultOf(v any) (Result, error) {
	b, err := json.Marshal(v)
	if err != nil {
		return Result{}, err
	}
	return Result{Kind: ResultKindStructured, Structured: b}, nil
}

// TextResult creates a Result holding raw text.
func TextResult(text string) Result {
	return Result{Kind: ResultKindText, Text: text}
}

// ErrorResult creates a Result describing a fault.
func ErrorResult(description string) Result {
	return Result{Kind: ResultKindError, Error: description}
}

func (r Result) clone() Result {
	r.Structured = bytes.Clone(r.Structured)
	return r
}

// Snapshot is an immutable point-in-time copy of a job.
// It never shares memory with the registry's live records.
type Snapshot struct {
	ID        string
	Status    Status
	Result    *Result
	Events    []Event
	CreatedAt time.Time
	UpdatedAt time.Time
}

type job struct {
	id        string
	status    Status
	result    *Result
	events    []Event
	createdAt time.Time
	updatedAt time.Time
}

func (j *job) snapshot() Snapshot {
	s := Snapshot{
		ID:        j.id,
		Status:    j.status,
		Events:    slices.Clone(j.events),
		CreatedAt: j.createdAt,
		UpdatedAt: j.updatedAt,
	}
	if s.Events == nil {
		s.Events = []Event{}
	}
	if j.result != nil {
		r := j.result.clone()
		s.Result = &r
	}
	return s
}

// nextTimestamp returns now, or the timestamp of the last event if the
// clock went backwards, keeping event times non-decreasing.
func (j *job) nextTimestamp(now time.Time) time.Time {
	if n := len(j.events); n > 0 && now.Before(j.events[n-1].Timestamp) {
		return j.events[n-1].Timestamp
	}
	return now
}
