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

package asynctask

import (
	"context"
	"errors"
	"fmt"
	"sync"
)

// Task is the handle of a function running in its own goroutine.
// There is no way to stop a task from the outside: it runs until fn returns.
type Task[T any] struct {
	done   chan struct{}
	result Result[T]
}

type Result[T any] struct {
	Value T
	Error error
}

// ErrPanicked is wrapped by the error of a task whose function panicked.
var ErrPanicked = errors.New("task panicked")

// Await blocks until the task is done and returns its result.
func (t *Task[T]) Await() Result[T] {
	<-t.done
	return t.result
}

// AwaitContext is like Await, but gives up when ctx is done.
// Giving up does not affect the task.
func (t *Task[T]) AwaitContext(ctx context.Context) (Result[T], error) {
	select {
	case <-t.done:
		return t.result, nil
	case <-ctx.Done():
		return Result[T]{}, ctx.Err()
	}
}

func (t *Task[T]) IsDone() bool {
	select {
	case <-t.done:
		return true
	default:
		return false
	}
}

// Done returns a channel that is closed when the task finishes.
func (t *Task[T]) Done() <-chan struct{} { return t.done }

type TaskFunc[T any] = func(context.Context) (T, error)

// CreateTask runs fn in a new goroutine. A panic in fn is recovered and
// reported as an error wrapping ErrPanicked.
func CreateTask[T any](ctx context.Context, fn TaskFunc[T]) *Task[T] {
	t := &Task[T]{done: make(chan struct{})}

	go func() {
		var value T
		var err error

		defer func() {
			if r := recover(); r != nil {
				err = errors.Join(err, fmt.Errorf("%w: %v", ErrPanicked, r))
			}
			t.result = Result[T]{Value: value, Error: err}
			close(t.done)
		}()

		value, err = fn(ctx)
	}()

	return t
}

type TaskNoValue = Task[struct{}]

func CreateTaskNoValue(ctx context.Context, fn func(context.Context) error) *TaskNoValue {
	return CreateTask(ctx, func(ctx context.Context) (struct{}, error) {
		return struct{}{}, fn(ctx)
	})
}

// Group keeps track of running tasks so that a caller can wait for all of
// them, e.g. during shutdown.
type Group struct {
	mu    sync.Mutex
	tasks map[*TaskNoValue]struct{}
	wg    sync.WaitGroup
}

// Go starts fn as a task belonging to the group.
func (g *Group) Go(ctx context.Context, fn func(context.Context) error) *TaskNoValue {
	g.wg.Add(1)
	t := CreateTaskNoValue(ctx, fn)

	g.mu.Lock()
	if g.tasks == nil {
		g.tasks = make(map[*TaskNoValue]struct{})
	}
	g.tasks[t] = struct{}{}
	g.mu.Unlock()

	go func() {
		<-t.Done()
		g.mu.Lock()
		delete(g.tasks, t)
		g.mu.Unlock()
		g.wg.Done()
	}()
	return t
}

// Len returns the number of tasks still running.
func (g *Group) Len() int {
	g.mu.Lock()
	defer g.mu.Unlock()
	return len(g.tasks)
}

// Wait blocks until every task started so far has finished, or ctx is done.
func (g *Group) Wait(ctx context.Context) error {
	done := make(chan struct{})
	go func() {
		g.wg.Wait()
		close(done)
	}()
	select {
	case <-done:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}
