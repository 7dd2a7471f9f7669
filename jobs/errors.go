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
	"errors"
	"fmt"
)

var (
	// ErrJobNotFound is returned when an identifier does not name a job.
	ErrJobNotFound = errors.New("job not found")

	// ErrDuplicateJob is returned when a newly generated identifier is already in use.
	ErrDuplicateJob = errors.New("duplicate job id")

	// ErrJobFinished is returned when the result of a COMPLETE or ERROR job
	// would be replaced.
	ErrJobFinished = errors.New("job already finished")

	// ErrInvalidTransition is wrapped by every TransitionError.
	ErrInvalidTransition = errors.New("invalid status transition")
)

// TransitionError is returned when a status change is not allowed by the
// job state machine.
type TransitionError struct {
	JobID string
	From  Status
	To    Status
}

func (err *TransitionError) Error() string {
	return fmt.Sprintf("job %s: invalid status transition %s -> %s", err.JobID, err.From, err.To)
}

func (err *TransitionError) Unwrap() error { return ErrInvalidTransition }

func notFound(id string) error {
	return fmt.Errorf("%w: %q", ErrJobNotFound, id)
}
