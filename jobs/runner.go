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
	"context"
	"errors"
	"fmt"
	"log/slog"

	"github.com/nlpodyssey/account-research/asynctask"
)

// Event data recorded by the runner around every pipeline.
const (
	EventStarted  = "Task Started"
	EventComplete = "Crew complete"
)

// Progress receives intermediate events from a running pipeline.
type Progress interface {
	Event(data string)
}

// Pipeline is the work executed by a job's worker.
// Returning an error (or panicking) moves the job to ERROR; otherwise the
// returned Result is stored and the job moves to COMPLETE.
type Pipeline func(ctx context.Context, progress Progress) (Result, error)

// Runner starts one background worker per submitted job and reports the
// worker's progress into a Registry.
//
// Workers cannot be canceled and there is no limit on how many run at once.
type Runner struct {
	registry *Registry
	logger   *slog.Logger
	workers  asynctask.Group
}

// NewRunner creates a runner reporting into registry.
func NewRunner(registry *Registry, logger *slog.Logger) *Runner {
	if logger == nil {
		logger = slog.Default()
	}
	return &Runner{registry: registry, logger: logger}
}

// Registry returns the registry the runner reports into.
func (r *Runner) Registry() *Registry { return r.registry }

// Submit creates a job, starts its worker and returns the job identifier
// without waiting for the worker.
//
// The worker does not inherit ctx cancellation: it keeps running after the
// submitting request has returned. Values carried by ctx are preserved.
func (r *Runner) Submit(ctx context.Context, pipeline Pipeline) (string, error) {
	id, err := r.registry.CreateJob()
	if err != nil {
		return "", fmt.Errorf("create job: %w", err)
	}

	workerCtx := context.WithoutCancel(ctx)
	r.workers.Go(workerCtx, func(ctx context.Context) error {
		return r.work(ctx, id, pipeline)
	})
	return id, nil
}

// InFlight returns the number of workers still running.
func (r *Runner) InFlight() int { return r.workers.Len() }

// Wait blocks until every submitted worker has finished or ctx is done.
// It never interrupts a worker.
func (r *Runner) Wait(ctx context.Context) error {
	return r.workers.Wait(ctx)
}

func (r *Runner) work(ctx context.Context, id string, pipeline Pipeline) error {
	logger := r.logger.With(slog.String("job_id", id))
	logger.Info("Job started")

	if err := r.registry.SetStatus(id, StatusRunning); err != nil {
		logger.Error("Cannot start job", slog.String("error", err.Error()))
		return err
	}
	r.emit(logger, id, EventStarted)

	result, err := r.runPipeline(ContextWithJobID(ctx, id), id, logger, pipeline)
	if err != nil {
		logger.Error("Job failed", slog.String("error", err.Error()))
		if failErr := r.registry.Fail(id, fmt.Sprintf("An error occurred: %s", err)); failErr != nil {
			logger.Error("Cannot record job failure", slog.String("error", failErr.Error()))
			return errors.Join(err, failErr)
		}
		return err
	}

	if err := r.registry.Complete(id, result, EventComplete); err != nil {
		logger.Error("Cannot record job completion", slog.String("error", err.Error()))
		return err
	}
	logger.Info("Job complete")
	return nil
}

// runPipeline converts a panic inside the pipeline into an error, so the
// worker always reaches a terminal status.
func (r *Runner) runPipeline(ctx context.Context, id string, logger *slog.Logger, pipeline Pipeline) (result Result, err error) {
	defer func() {
		if v := recover(); v != nil {
			err = fmt.Errorf("%w: %v", asynctask.ErrPanicked, v)
		}
	}()
	return pipeline(ctx, progressFunc(func(data string) { r.emit(logger, id, data) }))
}

func (r *Runner) emit(logger *slog.Logger, id, data string) {
	if err := r.registry.AppendEvent(id, data); err != nil {
		logger.Warn("Cannot append job event", slog.String("error", err.Error()))
	}
}

type progressFunc func(string)

func (f progressFunc) Event(data string) { f(data) }
