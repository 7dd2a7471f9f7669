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
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/google/uuid"
)

// Registry is the in-memory table of jobs shared by the submitting
// handlers, the background workers and the status readers.
//
// All methods are safe for concurrent use. Critical sections only touch
// memory; nothing performs I/O while holding the lock.
//
// Jobs are never evicted: the table lives as long as the process.
type Registry struct {
	mu   sync.RWMutex
	jobs map[string]*job

	newID  func() string
	now    func() time.Time
	logger *slog.Logger
}

// Option configures a Registry.
type Option func(*Registry)

// WithIDGenerator replaces the default UUIDv4 identifier generator.
func WithIDGenerator(fn func() string) Option {
	return func(r *Registry) { r.newID = fn }
}

// WithClock replaces time.Now as the source of event timestamps.
func WithClock(fn func() time.Time) Option {
	return func(r *Registry) { r.now = fn }
}

// WithLogger sets the logger used for debug output.
func WithLogger(l *slog.Logger) Option {
	return func(r *Registry) { r.logger = l }
}

// NewRegistry creates an empty registry.
func NewRegistry(opts ...Option) *Registry {
	r := &Registry{
		jobs:   make(map[string]*job),
		newID:  uuid.NewString,
		now:    time.Now,
		logger: slog.Default(),
	}
	for _, opt := range opts {
		opt(r)
	}
	return r
}

// CreateJob inserts a new PENDING job and returns its identifier.
func (r *Registry) CreateJob() (string, error) {
	id := r.newID()
	now := r.now()

	r.mu.Lock()
	if _, exists := r.jobs[id]; exists {
		r.mu.Unlock()
		return "", ErrDuplicateJob
	}
	r.jobs[id] = &job{
		id:        id,
		status:    StatusPending,
		createdAt: now,
		updatedAt: now,
	}
	r.mu.Unlock()

	r.logger.Debug("Job created", slog.String("job_id", id))
	return id, nil
}

// AppendEvent records data, stamped with the current time, at the end of
// the job's event log.
func (r *Registry) AppendEvent(id, data string) error {
	return r.update(id, func(j *job, now time.Time) error {
		j.events = append(j.events, Event{Timestamp: j.nextTimestamp(now), Data: data})
		return nil
	})
}

// SetStatus moves the job to a new status.
// Only PENDING -> RUNNING and RUNNING -> COMPLETE|ERROR are accepted;
// any other change returns a *TransitionError.
func (r *Registry) SetStatus(id string, status Status) error {
	err := r.update(id, func(j *job, _ time.Time) error {
		return j.transition(status)
	})
	if err == nil {
		r.logger.Debug("Job status changed", slog.String("job_id", id), slog.String("status", status.String()))
	}
	return err
}

// SetResult replaces the job's result.
// Once the job is COMPLETE or ERROR its result is frozen and ErrJobFinished
// is returned.
func (r *Registry) SetResult(id string, result Result) error {
	result = result.clone()
	return r.update(id, func(j *job, _ time.Time) error {
		if j.status.IsTerminal() {
			return fmt.Errorf("%w: %q is %s", ErrJobFinished, j.id, j.status)
		}
		j.result = &result
		return nil
	})
}

// Complete atomically appends event (when non-empty), stores result and
// moves the job to COMPLETE.
func (r *Registry) Complete(id string, result Result, event string) error {
	return r.finish(id, StatusComplete, result.clone(), event)
}

// Fail atomically appends the fault description as an event, stores it as
// an error result and moves the job to ERROR.
func (r *Registry) Fail(id string, description string) error {
	return r.finish(id, StatusError, ErrorResult(description), description)
}

func (r *Registry) finish(id string, status Status, result Result, event string) error {
	err := r.update(id, func(j *job, now time.Time) error {
		if !j.status.canTransition(status) {
			return &TransitionError{JobID: j.id, From: j.status, To: status}
		}
		if event != "" {
			j.events = append(j.events, Event{Timestamp: j.nextTimestamp(now), Data: event})
		}
		j.result = &result
		j.status = status
		return nil
	})
	if err == nil {
		r.logger.Debug("Job finished", slog.String("job_id", id), slog.String("status", status.String()))
	}
	return err
}

// GetJob returns a snapshot of the job, or ErrJobNotFound.
func (r *Registry) GetJob(id string) (Snapshot, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	j, ok := r.jobs[id]
	if !ok {
		return Snapshot{}, notFound(id)
	}
	return j.snapshot(), nil
}

// Len returns the number of jobs in the registry.
func (r *Registry) Len() int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return len(r.jobs)
}

func (r *Registry) update(id string, fn func(*job, time.Time) error) error {
	now := r.now()

	r.mu.Lock()
	defer r.mu.Unlock()

	j, ok := r.jobs[id]
	if !ok {
		return notFound(id)
	}
	if err := fn(j, now); err != nil {
		return err
	}
	j.updatedAt = now
	return nil
}

func (j *job) transition(next Status) error {
	if !j.status.canTransition(next) {
		return &TransitionError{JobID: j.id, From: j.status, To: next}
	}
	j.status = next
	return nil
}
